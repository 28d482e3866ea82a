package rules

import (
	"log/slog"
	"regexp"
	"strings"

	"github.com/clawguard/clawguard/internal/signals"
)

// Severity of a rule and the findings it produces.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// Floor is the minimum risk score a single finding of this severity
// imposes on a report.
func (s Severity) Floor() int {
	switch s {
	case SeverityLow:
		return 10
	case SeverityMedium:
		return 30
	case SeverityHigh:
		return 60
	case SeverityCritical:
		return 80
	default:
		return 0
	}
}

// Valid reports whether the severity is a known value.
func (s Severity) Valid() bool {
	switch s {
	case SeverityLow, SeverityMedium, SeverityHigh, SeverityCritical:
		return true
	}
	return false
}

// Rule is pure data: a regex with routing and scoring metadata.
type Rule struct {
	ID         string         `json:"id" yaml:"id"`
	Title      string         `json:"title" yaml:"title"`
	Severity   Severity       `json:"severity" yaml:"severity"`
	ReasonCode string         `json:"reason_code" yaml:"reason_code"`
	Selectors  []signals.Type `json:"selectors" yaml:"selectors"`
	Match      string         `json:"match" yaml:"match"`
	Flags      string         `json:"flags,omitempty" yaml:"flags,omitempty"`
	Score      int            `json:"score" yaml:"score"`
	Doc        string         `json:"doc,omitempty" yaml:"doc,omitempty"`
}

func (r Rule) selects(t signals.Type) bool {
	for _, s := range r.Selectors {
		if s == t {
			return true
		}
	}
	return false
}

// Pack is a versioned set of rules.
type Pack struct {
	PackID      string `json:"pack_id" yaml:"pack_id"`
	PackVersion string `json:"pack_version" yaml:"pack_version"`
	Rules       []Rule `json:"rules" yaml:"rules"`
}

// RuleByID returns the rule with the given id, if present.
func (p Pack) RuleByID(id string) (Rule, bool) {
	for _, r := range p.Rules {
		if strings.EqualFold(r.ID, id) {
			return r, true
		}
	}
	return Rule{}, false
}

// Finding is one rule match with evidence and location.
type Finding struct {
	RuleID     string   `json:"rule_id"`
	Severity   Severity `json:"severity"`
	ReasonCode string   `json:"reason_code"`
	File       string   `json:"file,omitempty"`
	Line       int      `json:"line,omitempty"`
	Column     int      `json:"column,omitempty"`
	Evidence   string   `json:"evidence"`
	Score      int      `json:"-"`
}

const maxEvidenceBytes = 220

// Evaluate runs every rule against every signal it selects, in stable
// rule x signal x match order. Rules with invalid regexes are skipped.
func Evaluate(pack Pack, sigs []signals.Signal) []Finding {
	var findings []Finding
	for _, rule := range pack.Rules {
		re, err := compileRule(rule)
		if err != nil {
			slog.Debug("skipping rule with invalid regex", "rule", rule.ID, "error", err)
			continue
		}
		for _, sig := range sigs {
			if !rule.selects(sig.Type) {
				continue
			}
			for _, m := range re.FindAllStringIndex(sig.Text, -1) {
				findings = append(findings, makeFinding(rule, sig, m[0], m[1]))
			}
		}
	}
	return findings
}

func compileRule(rule Rule) (*regexp.Regexp, error) {
	flags := rule.Flags
	if flags == "" {
		flags = "gi"
	}
	var prefix string
	if strings.Contains(flags, "i") {
		prefix += "i"
	}
	if strings.Contains(flags, "m") {
		prefix += "m"
	}
	if strings.Contains(flags, "s") {
		prefix += "s"
	}
	pattern := rule.Match
	if prefix != "" {
		pattern = "(?" + prefix + ")" + pattern
	}
	return regexp.Compile(pattern)
}

func makeFinding(rule Rule, sig signals.Signal, start, end int) Finding {
	evidence := sig.Text[start:end]
	if len(evidence) > maxEvidenceBytes {
		evidence = evidence[:maxEvidenceBytes]
	}

	localLine := strings.Count(sig.Text[:start], "\n") + 1
	lastNL := strings.LastIndexByte(sig.Text[:start], '\n')
	column := start - lastNL // 1-based: lastNL is -1 on line one

	baseLine := sig.BaseLine
	if baseLine == 0 {
		baseLine = 1
	}

	return Finding{
		RuleID:     rule.ID,
		Severity:   rule.Severity,
		ReasonCode: rule.ReasonCode,
		File:       sig.File,
		Line:       baseLine + localLine - 1,
		Column:     column,
		Evidence:   evidence,
		Score:      rule.Score,
	}
}
