package content

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"jobserver/internal/domain"
	"jobserver/internal/infra"
)

// GeminiOptions controls how the Gemini client is configured.
type GeminiOptions struct {
	APIKey     string
	BaseURL    string
	Model      string
	HTTPClient *http.Client
	Logger     *infra.Logger
}

// GeminiClient is a lightweight facade over the Gemini generateContent API.
// It only produces text; translating job payloads into prompts and results
// is the generator wrapper's concern.
type GeminiClient struct {
	apiKey     string
	baseURL    string
	model      string
	httpClient *http.Client
	logger     *infra.Logger
}

var errNoCredentials = errors.New("gemini api key not configured")

func NewGeminiClient(opts GeminiOptions) *GeminiClient {
	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 60 * time.Second}
	}

	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://generativelanguage.googleapis.com/v1beta"
	}

	model := opts.Model
	if model == "" {
		model = "gemini-2.5-flash"
	}

	var logger *infra.Logger
	if opts.Logger != nil {
		logger = opts.Logger
	} else {
		discard := zerolog.New(io.Discard)
		l := infra.Logger(discard)
		logger = &l
	}

	return &GeminiClient{
		apiKey:     strings.TrimSpace(opts.APIKey),
		baseURL:    baseURL,
		model:      model,
		httpClient: client,
		logger:     logger,
	}
}

// Model returns the configured model identifier.
func (c *GeminiClient) Model() string {
	return c.model
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts,omitempty"`
}

type geminiPart struct {
	Text string `json:"text,omitempty"`
}

type geminiGenerateRequest struct {
	Contents []geminiContent `json:"contents"`
}

type geminiGenerateResponse struct {
	Candidates []struct {
		Content geminiContent `json:"content"`
	} `json:"candidates"`
}

// GenerateText runs one prompt through generateContent and returns the
// concatenated candidate text.
func (c *GeminiClient) GenerateText(ctx context.Context, prompt string) (string, error) {
	if c.apiKey == "" {
		return "", errNoCredentials
	}

	payload := geminiGenerateRequest{
		Contents: []geminiContent{{Role: "user", Parts: []geminiPart{{Text: prompt}}}},
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("encode gemini request: %w", err)
	}

	endpoint := fmt.Sprintf("%s/models/%s:generateContent?key=%s", c.baseURL, c.model, url.QueryEscape(c.apiKey))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build gemini request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("call gemini: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return "", fmt.Errorf("gemini status %d: %s", resp.StatusCode, strings.TrimSpace(string(detail)))
	}

	var decoded geminiGenerateResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return "", fmt.Errorf("decode gemini response: %w", err)
	}

	var out strings.Builder
	for _, candidate := range decoded.Candidates {
		for _, part := range candidate.Content.Parts {
			out.WriteString(part.Text)
		}
	}
	return strings.TrimSpace(out.String()), nil
}

// GeminiGenerator runs a job's prompt through Gemini and falls back to the
// job type's static generator when the model is unavailable or returns
// nothing, so the pipeline stays operational without credentials.
type GeminiGenerator struct {
	client   *GeminiClient
	fallback Generator
}

func NewGeminiGenerator(client *GeminiClient, fallback Generator) *GeminiGenerator {
	return &GeminiGenerator{client: client, fallback: fallback}
}

func (g *GeminiGenerator) Generate(ctx context.Context, job *domain.Job) (json.RawMessage, error) {
	text, err := g.client.GenerateText(ctx, promptForJob(job))
	if err != nil || text == "" {
		if err != nil && !errors.Is(err, errNoCredentials) {
			g.client.logger.Warn().Err(err).Str("job_id", job.ID).Msg("content: remote generation failed, using static generator")
		}
		return g.fallback.Generate(ctx, job)
	}
	return json.Marshal(map[string]any{
		"generator": "gemini",
		"model":     g.client.Model(),
		"content":   text,
	})
}

func promptForJob(job *domain.Job) string {
	p := decodePayload(job.Payload)
	topic := topicOf(p)
	switch job.Type {
	case domain.JobTypeCarouselGeneration:
		return fmt.Sprintf("Write a 5-slide LinkedIn carousel outline about %s.", topic)
	case domain.JobTypeBlogGeneration:
		return fmt.Sprintf("Write a blog post in markdown about %s. Keywords: %s.", topic, strings.Join(p.Keywords, ", "))
	case domain.JobTypeContentRepurpose:
		return fmt.Sprintf("Repurpose the following content for LinkedIn, Twitter and a newsletter:\n\n%s", p.Content)
	case domain.JobTypeDeepResearch:
		return fmt.Sprintf("Produce a %s research summary on %s.", p.Depth, topic)
	case domain.JobTypeLeadMagnet:
		return fmt.Sprintf("Outline a downloadable guide about %s for a %s.", topic, p.Persona)
	case domain.JobTypeLinkedInOutreach:
		return fmt.Sprintf("Draft a short, friendly LinkedIn outreach message about %s.", topic)
	default:
		return fmt.Sprintf("Write about %s.", topic)
	}
}

// WrapWithGemini decorates every static generator with the Gemini client.
func WrapWithGemini(client *GeminiClient, static map[domain.JobType]Generator) map[domain.JobType]Generator {
	wrapped := make(map[domain.JobType]Generator, len(static))
	for jobType, generator := range static {
		wrapped[jobType] = NewGeminiGenerator(client, generator)
	}
	return wrapped
}
