package govern

import (
	"fmt"
	"time"

	"jobserver/internal/domain"
)

// inWindow reports whether now falls inside the rule's active hours, compared
// as wall-clock time in the rule's timezone. Bounds are inclusive. Zero-padded
// "HH:MM:SS" strings compare correctly lexicographically, so the check is a
// plain string comparison, with a wrapped window (start > end, e.g. 22:00 to
// 06:00) treated as the complement.
func inWindow(now time.Time, cfg domain.RuleConfig) (bool, error) {
	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		return false, fmt.Errorf("load timezone %q: %w", cfg.Timezone, err)
	}
	local := now.In(loc).Format("15:04:05")

	if cfg.WindowStart <= cfg.WindowEnd {
		return local >= cfg.WindowStart && local <= cfg.WindowEnd, nil
	}
	return local >= cfg.WindowStart || local <= cfg.WindowEnd, nil
}
