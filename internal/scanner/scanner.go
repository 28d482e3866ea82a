package scanner

import (
	"fmt"

	"github.com/clawguard/clawguard/internal/rules"
	"github.com/clawguard/clawguard/internal/signals"
	"github.com/clawguard/clawguard/internal/skill"
)

// Report is the scan result for one bundle.
type Report struct {
	APIVersion  int             `json:"api_version"`
	PackID      string          `json:"pack_id"`
	PackVersion string          `json:"pack_version"`
	RiskScore   int             `json:"risk_score"`
	Findings    []rules.Finding `json:"findings"`
}

// Scan extracts signals, evaluates the rule pack, deduplicates the
// findings, and scores the result. It is a pure function of
// (bundle, pack).
func Scan(b *skill.Bundle, pack rules.Pack) Report {
	sigs := signals.Extract(b)
	findings := dedupe(rules.Evaluate(pack, sigs))

	return Report{
		APIVersion:  1,
		PackID:      pack.PackID,
		PackVersion: pack.PackVersion,
		RiskScore:   riskScore(findings),
		Findings:    findings,
	}
}

// dedupe drops findings sharing (rule_id, file, line, column,
// evidence), keeping the first.
func dedupe(findings []rules.Finding) []rules.Finding {
	seen := make(map[string]bool, len(findings))
	out := findings[:0]
	for _, f := range findings {
		key := fmt.Sprintf("%s\x00%s\x00%d\x00%d\x00%s", f.RuleID, f.File, f.Line, f.Column, f.Evidence)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, f)
	}
	return out
}

// riskScore sums rule points but never lands below the highest single
// severity floor: one critical finding alone must dominate the
// sub-threshold band. Clamped to [0, 100].
func riskScore(findings []rules.Finding) int {
	total := 0
	floor := 0
	for _, f := range findings {
		total += f.Score
		if sf := f.Severity.Floor(); sf > floor {
			floor = sf
		}
	}
	if total < floor {
		total = floor
	}
	if total < 0 {
		total = 0
	}
	if total > 100 {
		total = 100
	}
	return total
}
