package ingest

import (
	"fmt"
	"strings"

	"github.com/Masterminds/semver/v3"
	"gopkg.in/yaml.v3"
)

// frontmatter is the YAML block conventionally leading a SKILL.md.
type frontmatter struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
	Version     string `yaml:"version"`
}

// parseFrontmatter extracts the leading YAML frontmatter block from a
// skill manifest. A missing or malformed block is not an error; the
// second return reports a warning to attach to the bundle, if any.
func parseFrontmatter(content string) (frontmatter, string) {
	var fm frontmatter

	trimmed := strings.TrimSpace(content)
	if !strings.HasPrefix(trimmed, "---") {
		return fm, ""
	}
	end := strings.Index(trimmed[3:], "---")
	if end < 0 {
		return fm, ""
	}

	block := trimmed[3 : 3+end]
	if err := yaml.Unmarshal([]byte(block), &fm); err != nil {
		return frontmatter{}, fmt.Sprintf("frontmatter: malformed YAML: %v", err)
	}

	if v := strings.TrimSpace(fm.Version); v != "" {
		if _, err := semver.NewVersion(v); err != nil {
			return fm, fmt.Sprintf("frontmatter: version %q is not valid semver", v)
		}
	}
	return fm, ""
}
