package signals

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/clawguard/clawguard/internal/skill"
)

// Type classifies a signal for rule selection.
type Type string

const (
	TypeFile      Type = "file"
	TypeMarkdown  Type = "markdown"
	TypeCodeblock Type = "codeblock"
	TypeURL       Type = "url"
	TypePath      Type = "path"
	TypeMeta      Type = "meta"
)

// Signal is one typed slice of ingested content fed to the rule
// engine. BaseLine is the 1-based line in File where Text begins,
// except for codeblock signals, where it is the line of the opening
// fence (one line above the block body in Text).
type Signal struct {
	Type     Type
	Text     string
	File     string
	BaseLine int
}

var (
	fenceRe = regexp.MustCompile("(?ms)^```[a-zA-Z0-9_+-]*[ \t]*\n(.*?)^```[ \t]*$")
	urlRe   = regexp.MustCompile(`https?://[^\s<>"')\]]+`)
	pathRe  = regexp.MustCompile(`(^|\s)((\./|\.\./|scripts/|bin/|assets/)[\w./-]+)`)
)

// Extract derives all scan signals from a bundle: per-file content
// signals, markdown structure signals, and meta signals from the
// manifest and ingest warnings.
func Extract(b *skill.Bundle) []Signal {
	var out []Signal

	for _, f := range b.Files {
		out = append(out, Signal{Type: TypeFile, Text: f.Content, File: f.Path, BaseLine: 1})

		if !strings.HasSuffix(strings.ToLower(f.Path), ".md") {
			continue
		}
		out = append(out, Signal{Type: TypeMarkdown, Text: f.Content, File: f.Path, BaseLine: 1})
		out = append(out, extractFences(f)...)
		out = append(out, extractMatches(f, urlRe, 0, TypeURL)...)
		out = append(out, extractMatches(f, pathRe, 2, TypePath)...)
	}

	out = append(out, extractMeta(b)...)
	return out
}

func extractFences(f skill.File) []Signal {
	var out []Signal
	for _, m := range fenceRe.FindAllStringSubmatchIndex(f.Content, -1) {
		// Base line is the fence opener, not the first body line.
		out = append(out, Signal{
			Type:     TypeCodeblock,
			Text:     f.Content[m[2]:m[3]],
			File:     f.Path,
			BaseLine: lineAt(f.Content, m[0]),
		})
	}
	return out
}

// extractMatches emits one signal per regex match. group selects the
// submatch to report (0 for the whole match).
func extractMatches(f skill.File, re *regexp.Regexp, group int, typ Type) []Signal {
	var out []Signal
	for _, m := range re.FindAllStringSubmatchIndex(f.Content, -1) {
		start, end := m[2*group], m[2*group+1]
		if start < 0 {
			continue
		}
		out = append(out, Signal{
			Type:     typ,
			Text:     f.Content[start:end],
			File:     f.Path,
			BaseLine: lineAt(f.Content, start),
		})
	}
	return out
}

func extractMeta(b *skill.Bundle) []Signal {
	var out []Signal
	for _, m := range b.Manifest {
		switch {
		case m.SkippedReason == skill.SkipInvalidPath:
			out = append(out, metaSignal(fmt.Sprintf("path_traversal_entry raw=%s", m.RawPath), m.Path))
		case m.IsSymlink:
			out = append(out, metaSignal("symlink_entry "+m.Path, m.Path))
		case m.IsArchive:
			out = append(out, metaSignal("nested_archive "+m.Path, m.Path))
		case m.IsExecutable && !m.IsDirectory:
			out = append(out, metaSignal("executable_file "+m.Path, m.Path))
		case m.IsBinary:
			out = append(out, metaSignal("binary_file "+m.Path, m.Path))
		}
	}
	for _, w := range b.IngestWarnings {
		out = append(out, metaSignal("ingest_warning: "+w, ""))
	}
	return out
}

func metaSignal(text, file string) Signal {
	return Signal{Type: TypeMeta, Text: text, File: file, BaseLine: 1}
}

// lineAt returns the 1-based line number of the byte offset.
func lineAt(text string, offset int) int {
	return strings.Count(text[:offset], "\n") + 1
}
