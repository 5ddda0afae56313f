package content

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"jobserver/internal/domain"
)

func geminiStub(t *testing.T, status int, text string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.Contains(r.URL.Path, ":generateContent") {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.URL.Query().Get("key") == "" {
			t.Error("missing api key query param")
		}
		w.WriteHeader(status)
		if status == http.StatusOK {
			_ = json.NewEncoder(w).Encode(map[string]any{
				"candidates": []map[string]any{
					{"content": map[string]any{"parts": []map[string]string{{"text": text}}}},
				},
			})
		}
	}))
}

func TestGenerateTextReturnsCandidateText(t *testing.T) {
	srv := geminiStub(t, http.StatusOK, "generated copy")
	defer srv.Close()

	client := NewGeminiClient(GeminiOptions{APIKey: "key", BaseURL: srv.URL, HTTPClient: srv.Client()})
	got, err := client.GenerateText(context.Background(), "write something")
	if err != nil {
		t.Fatalf("generate text: %v", err)
	}
	if got != "generated copy" {
		t.Errorf("text = %q", got)
	}
}

func TestGenerateTextWithoutKey(t *testing.T) {
	client := NewGeminiClient(GeminiOptions{})
	if _, err := client.GenerateText(context.Background(), "prompt"); err == nil {
		t.Fatal("expected credentials error")
	}
}

func TestGeminiGeneratorWrapsModelOutput(t *testing.T) {
	srv := geminiStub(t, http.StatusOK, "model output")
	defer srv.Close()

	client := NewGeminiClient(GeminiOptions{APIKey: "key", BaseURL: srv.URL, HTTPClient: srv.Client()})
	gen := NewGeminiGenerator(client, StaticGenerators()[domain.JobTypeBlogGeneration])

	job := &domain.Job{ID: "j1", Type: domain.JobTypeBlogGeneration, Payload: json.RawMessage(`{"topic":"audits"}`)}
	out, err := gen.Generate(context.Background(), job)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	var result struct {
		Generator string `json:"generator"`
		Content   string `json:"content"`
	}
	if err := json.Unmarshal(out, &result); err != nil {
		t.Fatalf("decode result: %v", err)
	}
	if result.Generator != "gemini" || result.Content != "model output" {
		t.Errorf("unexpected result: %+v", result)
	}
}

func TestGeminiGeneratorFallsBackOnAPIError(t *testing.T) {
	srv := geminiStub(t, http.StatusInternalServerError, "")
	defer srv.Close()

	client := NewGeminiClient(GeminiOptions{APIKey: "key", BaseURL: srv.URL, HTTPClient: srv.Client()})
	gen := NewGeminiGenerator(client, StaticGenerators()[domain.JobTypeBlogGeneration])

	job := &domain.Job{ID: "j1", Type: domain.JobTypeBlogGeneration, Payload: json.RawMessage(`{"topic":"audits"}`)}
	out, err := gen.Generate(context.Background(), job)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if !json.Valid(out) || len(out) == 0 {
		t.Fatal("fallback produced no result")
	}
}

func TestGeminiGeneratorFallsBackWithoutCredentials(t *testing.T) {
	client := NewGeminiClient(GeminiOptions{})
	gen := NewGeminiGenerator(client, StaticGenerators()[domain.JobTypeLinkedInOutreach])

	job := &domain.Job{ID: "j1", Type: domain.JobTypeLinkedInOutreach}
	out, err := gen.Generate(context.Background(), job)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if len(out) == 0 {
		t.Fatal("fallback produced no result")
	}
}
