package govern

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"jobserver/internal/domain"
)

// BatchCap limits how many jobs one cycle may release per rule, regardless of
// remaining quota, to avoid bursty release.
const BatchCap = 5

// Rule cycle statuses reported per rule.
const (
	StatusSleepingHours = "sleeping_hours"
	StatusLimitHit      = "limit_hit"
	StatusNoPending     = "no_pending_jobs"
)

// RuleReport is one rule's outcome for a governance cycle. Status is empty
// when jobs were released; Released is zero otherwise.
type RuleReport struct {
	Rule     string `json:"rule"`
	Status   string `json:"status,omitempty"`
	Released int    `json:"released,omitempty"`
}

// Releaser dispatches a job the governor has decided to release.
type Releaser interface {
	Release(ctx context.Context, job *domain.Job) error
}

// DefaultRuleJobTypes maps rule keys to the job type they throttle. Rules
// without a mapping are skipped.
func DefaultRuleJobTypes() map[string]domain.JobType {
	return map[string]domain.JobType{
		"linkedin_outreach_daily": domain.JobTypeLinkedInOutreach,
	}
}

// Governor throttles release of scheduled jobs according to per-rule quotas
// and active-hour windows. It holds no state across cycles; all counters live
// in the rule store.
type Governor struct {
	rules        domain.RuleRepository
	jobs         domain.JobRepository
	releaser     Releaser
	ruleJobTypes map[string]domain.JobType
	logger       zerolog.Logger
	now          func() time.Time
}

func NewGovernor(rules domain.RuleRepository, jobs domain.JobRepository, releaser Releaser, ruleJobTypes map[string]domain.JobType, logger zerolog.Logger) *Governor {
	if ruleJobTypes == nil {
		ruleJobTypes = DefaultRuleJobTypes()
	}
	return &Governor{
		rules:        rules,
		jobs:         jobs,
		releaser:     releaser,
		ruleJobTypes: ruleJobTypes,
		logger:       logger,
		now:          time.Now,
	}
}

// RunCycle evaluates every governance rule once and releases eligible pending
// jobs. One job's dispatch failure neither stops the batch nor consumes
// quota; one rule's failure does not stop later rules.
func (g *Governor) RunCycle(ctx context.Context) ([]RuleReport, error) {
	rules, err := g.rules.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("governor: list rules: %w", err)
	}

	reports := make([]RuleReport, 0, len(rules))
	for _, rule := range rules {
		report, ok := g.runRule(ctx, rule)
		if ok {
			reports = append(reports, report)
		}
	}
	return reports, nil
}

func (g *Governor) runRule(ctx context.Context, rule domain.GovernanceRule) (RuleReport, bool) {
	log := g.logger.With().Str("rule", rule.Key).Logger()
	now := g.now()

	active, err := inWindow(now, rule.Config)
	if err != nil {
		log.Error().Err(err).Msg("governor: bad rule window config")
		return RuleReport{}, false
	}
	if !active {
		log.Debug().Msg("governor: outside active hours")
		return RuleReport{Rule: rule.Key, Status: StatusSleepingHours}, true
	}

	if rule.CurrentUsage >= rule.Config.Max {
		log.Debug().Int("usage", rule.CurrentUsage).Int("max", rule.Config.Max).Msg("governor: limit hit")
		return RuleReport{Rule: rule.Key, Status: StatusLimitHit}, true
	}

	jobType, ok := g.ruleJobTypes[rule.Key]
	if !ok {
		log.Warn().Msg("governor: rule has no mapped job type")
		return RuleReport{}, false
	}

	remaining := rule.Config.Max - rule.CurrentUsage
	batch := remaining
	if batch > BatchCap {
		batch = BatchCap
	}

	jobs, err := g.jobs.ListReleasable(ctx, jobType, now, batch)
	if err != nil {
		log.Error().Err(err).Msg("governor: list releasable jobs failed")
		return RuleReport{}, false
	}
	if len(jobs) == 0 {
		return RuleReport{Rule: rule.Key, Status: StatusNoPending}, true
	}

	log.Info().Int("count", len(jobs)).Msg("governor: releasing jobs")

	released := 0
	for i := range jobs {
		job := jobs[i]
		if err := g.releaser.Release(ctx, &job); err != nil {
			log.Error().Err(err).Str("job_id", job.ID).Msg("governor: release failed")
			continue
		}
		// Quota is consumed only on confirmed dispatch.
		if _, err := g.rules.IncrementUsage(ctx, rule.Key); err != nil {
			log.Error().Err(err).Msg("governor: usage increment failed")
		}
		released++
	}

	return RuleReport{Rule: rule.Key, Released: released}, true
}
