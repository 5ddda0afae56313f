package dispatch

import "jobserver/internal/domain"

// Registry maps job types to the generator that handles them. The dispatcher
// routes by it and the generator host serves the same names, so the two sides
// cannot drift apart.
type Registry struct {
	byType map[domain.JobType]string
}

// NewRegistry returns a registry preloaded with the built-in generators.
func NewRegistry() *Registry {
	return &Registry{byType: map[domain.JobType]string{
		domain.JobTypeCarouselGeneration: "generate-linkedin-carousel",
		domain.JobTypeBlogGeneration:     "generate-blog-post",
		domain.JobTypeContentRepurpose:   "repurpose-content",
		domain.JobTypeDeepResearch:       "deep-research",
		domain.JobTypeLeadMagnet:         "generate-lead-magnet",
		domain.JobTypeLinkedInOutreach:   "linkedin-outreach",
	}}
}

// Register adds or replaces a route.
func (r *Registry) Register(jobType domain.JobType, generator string) {
	r.byType[jobType] = generator
}

// Resolve returns the generator name for a job type.
func (r *Registry) Resolve(jobType domain.JobType) (string, bool) {
	name, ok := r.byType[jobType]
	return name, ok
}

// Known reports whether the job type has a mapped generator.
func (r *Registry) Known(jobType domain.JobType) bool {
	_, ok := r.byType[jobType]
	return ok
}

// Types returns all routable job types.
func (r *Registry) Types() []domain.JobType {
	types := make([]domain.JobType, 0, len(r.byType))
	for t := range r.byType {
		types = append(types, t)
	}
	return types
}
