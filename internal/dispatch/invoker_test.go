package dispatch

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPInvokerPostsJobID(t *testing.T) {
	var gotPath, gotAuth, gotJobID string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		var payload invokePayload
		_ = json.NewDecoder(r.Body).Decode(&payload)
		gotJobID = payload.JobID
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	inv := NewHTTPInvoker(srv.URL, "svc-token", 5*time.Second)
	err := inv.Invoke(context.Background(), "generate-blog-post", "job-1")
	require.NoError(t, err)

	assert.Equal(t, "/generators/generate-blog-post", gotPath)
	assert.Equal(t, "Bearer svc-token", gotAuth)
	assert.Equal(t, "job-1", gotJobID)
}

func TestHTTPInvokerSurfacesRejection(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "no such generator", http.StatusNotFound)
	}))
	defer srv.Close()

	inv := NewHTTPInvoker(srv.URL, "svc-token", 5*time.Second)
	err := inv.Invoke(context.Background(), "bogus", "job-1")
	require.Error(t, err)

	var invokeErr *InvokeError
	require.ErrorAs(t, err, &invokeErr)
	assert.Equal(t, http.StatusNotFound, invokeErr.Status)
	assert.Contains(t, invokeErr.Body, "no such generator")
}

func TestHTTPInvokerConnectionFailure(t *testing.T) {
	inv := NewHTTPInvoker("http://127.0.0.1:1", "svc-token", time.Second)
	err := inv.Invoke(context.Background(), "generate-blog-post", "job-1")
	require.Error(t, err)
}
