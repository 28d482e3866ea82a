package rules

import (
	"fmt"
	"log/slog"
	"os"

	"gopkg.in/yaml.v3"
)

// LoadYAML reads a rule pack override from disk. Individual malformed
// rules are skipped so a partly-bad pack still scans; an unreadable or
// unparseable file is an error.
func LoadYAML(path string) (Pack, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Pack{}, fmt.Errorf("read rule pack: %w", err)
	}

	var pack Pack
	if err := yaml.Unmarshal(data, &pack); err != nil {
		return Pack{}, fmt.Errorf("parse rule pack %s: %w", path, err)
	}
	if pack.PackID == "" {
		return Pack{}, fmt.Errorf("rule pack %s: pack_id is required", path)
	}

	kept := pack.Rules[:0]
	for _, r := range pack.Rules {
		switch {
		case r.ID == "" || r.Match == "":
			slog.Warn("skipping rule without id or match", "pack", pack.PackID, "rule", r.ID)
		case !r.Severity.Valid():
			slog.Warn("skipping rule with unknown severity", "rule", r.ID, "severity", r.Severity)
		case len(r.Selectors) == 0:
			slog.Warn("skipping rule without selectors", "rule", r.ID)
		default:
			kept = append(kept, r)
		}
	}
	pack.Rules = kept
	return pack, nil
}
