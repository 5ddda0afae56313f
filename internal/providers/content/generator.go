package content

import (
	"context"
	"encoding/json"

	"jobserver/internal/domain"
)

// Generator performs the content-producing work for an accepted job. The
// returned payload becomes the job's result; an error fails the job with the
// error text as the reason.
type Generator interface {
	Generate(ctx context.Context, job *domain.Job) (json.RawMessage, error)
}

// GeneratorFunc adapts a function to the Generator interface.
type GeneratorFunc func(ctx context.Context, job *domain.Job) (json.RawMessage, error)

func (f GeneratorFunc) Generate(ctx context.Context, job *domain.Job) (json.RawMessage, error) {
	return f(ctx, job)
}

// payload covers the fields the built-in generators read from job payloads.
// Every field is optional; generators fall back to sensible defaults.
type payload struct {
	Topic    string   `json:"topic"`
	Content  string   `json:"content"`
	URL      string   `json:"url"`
	Persona  string   `json:"persona"`
	Keywords []string `json:"keywords"`
	Category string   `json:"category"`
	Depth    string   `json:"depth"`
}

func decodePayload(raw json.RawMessage) payload {
	var p payload
	if len(raw) > 0 {
		_ = json.Unmarshal(raw, &p)
	}
	return p
}
