package content

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"jobserver/internal/domain"
)

// Static generators produce deterministic output from the job payload alone.
// They keep the whole pipeline (dispatch, claim, terminal writes, polling)
// operational in local and CI environments with no external API, and serve as
// the fallback when a remote model call fails.

const defaultCarouselSlides = 5

// StaticGenerators returns a generator per routable job type.
func StaticGenerators() map[domain.JobType]Generator {
	return map[domain.JobType]Generator{
		domain.JobTypeCarouselGeneration: GeneratorFunc(generateCarousel),
		domain.JobTypeBlogGeneration:     GeneratorFunc(generateBlogPost),
		domain.JobTypeContentRepurpose:   GeneratorFunc(repurposeContent),
		domain.JobTypeDeepResearch:       GeneratorFunc(generateResearch),
		domain.JobTypeLeadMagnet:         GeneratorFunc(generateLeadMagnet),
		domain.JobTypeLinkedInOutreach:   GeneratorFunc(generateOutreach),
	}
}

func titleCase(s string) string {
	return cases.Title(language.Und).String(s)
}

func topicOf(p payload) string {
	if t := strings.TrimSpace(p.Topic); t != "" {
		return t
	}
	return "industry insights"
}

func generateCarousel(ctx context.Context, job *domain.Job) (json.RawMessage, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p := decodePayload(job.Payload)
	topic := topicOf(p)

	slides := make([]map[string]any, 0, defaultCarouselSlides)
	slides = append(slides, map[string]any{
		"position": 1,
		"kind":     "title",
		"headline": titleCase(topic),
	})
	for i := 2; i <= defaultCarouselSlides; i++ {
		slides = append(slides, map[string]any{
			"position": i,
			"kind":     "content",
			"headline": fmt.Sprintf("%s: key point %d", titleCase(topic), i-1),
			"body":     fmt.Sprintf("Talking point %d about %s.", i-1, topic),
		})
	}

	return json.Marshal(map[string]any{
		"topic":  topic,
		"slides": slides,
	})
}

func generateBlogPost(ctx context.Context, job *domain.Job) (json.RawMessage, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p := decodePayload(job.Payload)
	topic := topicOf(p)

	var body strings.Builder
	fmt.Fprintf(&body, "# %s\n\n", titleCase(topic))
	for _, section := range []string{"Overview", "Why It Matters", "Key Takeaways"} {
		fmt.Fprintf(&body, "## %s\n\nNotes on %s for the %s section.\n\n", section, topic, strings.ToLower(section))
	}

	return json.Marshal(map[string]any{
		"title":    titleCase(topic),
		"category": p.Category,
		"keywords": p.Keywords,
		"markdown": body.String(),
	})
}

func repurposeContent(ctx context.Context, job *domain.Job) (json.RawMessage, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p := decodePayload(job.Payload)
	source := strings.TrimSpace(p.Content)
	if source == "" {
		source = p.URL
	}
	if source == "" {
		return nil, fmt.Errorf("repurpose: payload needs content or url")
	}

	summary := source
	if len(summary) > 140 {
		summary = summary[:140]
	}

	return json.Marshal(map[string]any{
		"variants": []map[string]string{
			{"channel": "linkedin", "text": "From our latest piece: " + summary},
			{"channel": "twitter", "text": summary},
			{"channel": "newsletter", "text": "This week we covered: " + summary},
		},
	})
}

func generateResearch(ctx context.Context, job *domain.Job) (json.RawMessage, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p := decodePayload(job.Payload)
	topic := topicOf(p)
	depth := p.Depth
	if depth == "" {
		depth = "deep"
	}

	return json.Marshal(map[string]any{
		"topic": topic,
		"depth": depth,
		"findings": []string{
			fmt.Sprintf("Current state of %s.", topic),
			fmt.Sprintf("Open problems in %s.", topic),
		},
	})
}

func generateLeadMagnet(ctx context.Context, job *domain.Job) (json.RawMessage, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p := decodePayload(job.Payload)
	topic := topicOf(p)
	persona := p.Persona
	if persona == "" {
		persona = "practitioner"
	}

	return json.Marshal(map[string]any{
		"title":    fmt.Sprintf("The %s Guide to %s", titleCase(persona), titleCase(topic)),
		"persona":  persona,
		"sections": []string{"Checklist", "Common Pitfalls", "Next Steps"},
	})
}

func generateOutreach(ctx context.Context, job *domain.Job) (json.RawMessage, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p := decodePayload(job.Payload)
	topic := topicOf(p)

	return json.Marshal(map[string]any{
		"message": fmt.Sprintf("Hi! We just published new material on %s and thought of you.", topic),
		"channel": "linkedin",
	})
}
