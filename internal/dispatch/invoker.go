package dispatch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Invoker delivers a job id to a named generator. A nil return means the
// generator accepted the job (not that it finished it).
type Invoker interface {
	Invoke(ctx context.Context, generator, jobID string) error
}

// InvokeError carries the HTTP status and response body of a failed generator
// invocation so the dispatcher can embed them in the job's error field.
type InvokeError struct {
	Generator string
	Status    int
	Body      string
}

func (e *InvokeError) Error() string {
	return fmt.Sprintf("invoke %s: status %d: %s", e.Generator, e.Status, e.Body)
}

// HTTPInvoker posts {"job_id": ...} to {baseURL}/generators/{name},
// authenticating with the internal service token.
type HTTPInvoker struct {
	BaseURL string
	Token   string
	Client  *http.Client
}

// NewHTTPInvoker builds an invoker for the generator host at baseURL.
func NewHTTPInvoker(baseURL, token string, timeout time.Duration) *HTTPInvoker {
	return &HTTPInvoker{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Token:   token,
		Client:  &http.Client{Timeout: timeout},
	}
}

type invokePayload struct {
	JobID string `json:"job_id"`
}

func (i *HTTPInvoker) Invoke(ctx context.Context, generator, jobID string) error {
	body, err := json.Marshal(invokePayload{JobID: jobID})
	if err != nil {
		return fmt.Errorf("encode invoke payload: %w", err)
	}

	url := i.BaseURL + "/generators/" + generator
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build invoke request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+i.Token)

	resp, err := i.Client.Do(req)
	if err != nil {
		return fmt.Errorf("invoke %s: %w", generator, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return &InvokeError{
			Generator: generator,
			Status:    resp.StatusCode,
			Body:      strings.TrimSpace(string(detail)),
		}
	}
	return nil
}

var _ Invoker = (*HTTPInvoker)(nil)
