package sqlinline

const QListRules = `--sql 55b75aa1-fb25-4b82-bf0c-3f03a2fccff6
select rule_key, config, current_usage
from governance_rules
order by rule_key;
`

// Usage must be bumped server-side in one statement; two overlapping governor
// cycles doing read-modify-write would lose increments and over-release.
const QIncrementRuleUsage = `--sql 0eefacd1-9384-4270-8125-1d09feaf0e22
update governance_rules
set current_usage = current_usage + 1
where rule_key = $1::text
returning current_usage;
`
