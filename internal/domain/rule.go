package domain

// RuleConfig is the quota and active-window policy stored in the rule's
// config column. Window bounds are local wall-clock times ("HH:MM:SS") in the
// rule's IANA timezone.
type RuleConfig struct {
	Max         int    `json:"max"`
	WindowStart string `json:"window_start"`
	WindowEnd   string `json:"window_end"`
	Timezone    string `json:"timezone"`
}

// GovernanceRule limits how many jobs of a given activity may be released per
// period. CurrentUsage is reset out of band (admin tooling / cron); the
// governor only ever increments it, and only through the store's atomic
// increment.
type GovernanceRule struct {
	Key          string
	Config       RuleConfig
	CurrentUsage int
}
