package ingest

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/clawguard/clawguard/internal/archive"
	"github.com/clawguard/clawguard/internal/skill"
	"github.com/clawguard/clawguard/internal/transport"
)

// Error reports a source that could not be ingested at all. Soft
// problems (one unreadable file, one bad entry) become manifest skip
// reasons or ingest warnings instead.
type Error struct {
	Msg string
}

func (e *Error) Error() string {
	return "ingest: " + e.Msg
}

func errf(format string, args ...any) error {
	return &Error{Msg: fmt.Sprintf(format, args...)}
}

// Limits bound a single ingest. Values outside the supported ranges
// are clamped, not rejected.
type Limits struct {
	TimeoutMs        int
	Retries          int
	MaxFiles         int
	MaxTotalBytes    int64
	MaxFileBytes     int64
	MaxZipBytes      int64
	MaxZipEntryBytes int64
}

// DefaultLimits returns the stock limits.
func DefaultLimits() Limits {
	return Limits{
		TimeoutMs:        12000,
		Retries:          2,
		MaxFiles:         200,
		MaxTotalBytes:    5_000_000,
		MaxFileBytes:     1_000_000,
		MaxZipBytes:      25_000_000,
		MaxZipEntryBytes: 1_000_000,
	}
}

// Clamped returns a copy with every limit forced into its supported
// range.
func (l Limits) Clamped() Limits {
	clampInt := func(v, min, max int) int {
		if v < min {
			return min
		}
		if v > max {
			return max
		}
		return v
	}
	clampInt64 := func(v, min, max int64) int64 {
		if v < min {
			return min
		}
		if v > max {
			return max
		}
		return v
	}

	l.TimeoutMs = clampInt(l.TimeoutMs, 1000, 60000)
	l.Retries = clampInt(l.Retries, 0, 5)
	l.MaxFiles = clampInt(l.MaxFiles, 1, 2000)
	l.MaxTotalBytes = clampInt64(l.MaxTotalBytes, 10_000, 200_000_000)
	if l.MaxFileBytes <= 0 {
		l.MaxFileBytes = 1_000_000
	}
	l.MaxZipBytes = clampInt64(l.MaxZipBytes, 50_000, 200_000_000)
	l.MaxZipEntryBytes = clampInt64(l.MaxZipEntryBytes, 1000, 50_000_000)
	return l
}

// directories the walker never descends into.
var skipDirNames = map[string]bool{
	".git": true, "node_modules": true, "dist": true, "build": true, ".pnpm": true,
}

const (
	maxWalkDepth   = 8
	entrypointName = "SKILL.md"
)

// BuildBundle turns a raw source reference (directory, local archive
// file, or URL) into a bounded in-memory bundle. Nothing from the
// source is ever executed or evaluated.
func BuildBundle(ctx context.Context, raw string, limits Limits) (*skill.Bundle, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, errf("source is required")
	}
	limits = limits.Clamped()

	if strings.HasPrefix(raw, "http://") || strings.HasPrefix(raw, "https://") {
		return fromURL(ctx, raw, limits)
	}

	info, err := os.Stat(raw)
	if err != nil {
		return nil, errf("stat source: %v", err)
	}
	if info.IsDir() {
		return fromDir(raw, limits)
	}

	if info.Size() > limits.MaxZipBytes {
		return nil, errf("archive %s exceeds maxZipBytes (%d)", raw, limits.MaxZipBytes)
	}
	data, err := os.ReadFile(raw)
	if err != nil {
		return nil, errf("read archive: %v", err)
	}
	id := strings.TrimSuffix(filepath.Base(raw), filepath.Ext(raw))
	return fromArchive(data, id, skill.SourceLocal, limits)
}

func fromURL(ctx context.Context, rawURL string, limits Limits) (*skill.Bundle, error) {
	body, contentType, err := transport.Fetch(ctx, rawURL, transport.Options{
		MaxBytes: limits.MaxZipBytes,
		Timeout:  time.Duration(limits.TimeoutMs) * time.Millisecond,
		Retries:  limits.Retries,
	})
	if err != nil {
		return nil, err
	}

	source := classifyURL(rawURL)
	if strings.Contains(strings.ToLower(contentType), "zip") || isZipMagic(body) {
		id := rawURL
		if u, err := url.Parse(rawURL); err == nil && u.Path != "" {
			base := path.Base(u.Path)
			id = strings.TrimSuffix(base, path.Ext(base))
		}
		return fromArchive(body, id, source, limits)
	}

	if looksBinary(body) {
		return nil, errf("remote source is binary and not an archive")
	}

	content := string(body)
	b := &skill.Bundle{
		ID:     rawURL,
		Source: source,
		Files:  []skill.File{{Path: entrypointName, Content: content}},
		Manifest: []skill.ManifestEntry{{
			Path:       entrypointName,
			SizeBytes:  int64(len(body)),
			SourceKind: "dir",
		}},
	}
	finalize(b)
	return b, nil
}

func classifyURL(rawURL string) skill.Source {
	u, err := url.Parse(rawURL)
	if err != nil {
		return skill.SourceUnknown
	}
	host := strings.ToLower(u.Hostname())
	switch {
	case strings.Contains(host, "clawhub"):
		return skill.SourceClawHub
	case strings.Contains(host, "github") || strings.Contains(host, "gitlab"):
		return skill.SourceGit
	default:
		return skill.SourceRegistry
	}
}

// finalize picks the entrypoint and folds frontmatter identity into
// the bundle.
func finalize(b *skill.Bundle) {
	entry := ""
	for _, f := range b.Files {
		if path.Base(f.Path) != entrypointName {
			continue
		}
		if entry == "" || len(f.Path) < len(entry) {
			entry = f.Path
		}
	}
	b.Entrypoint = entry
	if entry == "" {
		return
	}

	f, ok := b.FileByPath(entry)
	if !ok {
		return
	}
	fm, warning := parseFrontmatter(f.Content)
	if warning != "" {
		b.IngestWarnings = append(b.IngestWarnings, warning)
	}
	if fm.Version != "" {
		b.Version = strings.TrimSpace(fm.Version)
	}
	if fm.Description != "" {
		b.Description = strings.TrimSpace(fm.Description)
	}
}

func fromArchive(data []byte, id string, source skill.Source, limits Limits) (*skill.Bundle, error) {
	r, err := archive.NewReader(data)
	if err != nil {
		return nil, err
	}

	b := &skill.Bundle{ID: id, Source: source}

	// Everything in the central directory lands in the manifest:
	// directories, symlinks, rejected paths included.
	entryIndex := make(map[string]int)
	for _, e := range r.Entries {
		if len(b.Manifest) >= limits.MaxFiles {
			b.IngestWarnings = append(b.IngestWarnings,
				fmt.Sprintf("maxFiles reached (%d)", limits.MaxFiles))
			break
		}

		size := e.UncompressedSize
		if size > limits.MaxZipEntryBytes {
			size = limits.MaxZipEntryBytes
		}
		m := skill.ManifestEntry{
			Path:         e.Name,
			SizeBytes:    size,
			IsDirectory:  e.IsDirectory,
			IsSymlink:    e.IsSymlink(),
			IsExecutable: e.IsExecutable(),
			IsArchive:    e.Name != "" && hasArchiveExtension(e.Name),
			SourceKind:   "zip",
		}
		switch {
		case e.Name == "":
			m.RawPath = e.RawName
			m.SkippedReason = skill.SkipInvalidPath
		case e.IsSymlink():
			m.SkippedReason = skill.SkipSymlink
		case e.UncompressedSize > limits.MaxZipEntryBytes:
			m.SkippedReason = skill.SkipTooLarge
			b.IngestWarnings = append(b.IngestWarnings,
				fmt.Sprintf("skipped %s: exceeds maxZipEntryBytes (%d)", e.Name, limits.MaxZipEntryBytes))
		}
		b.Manifest = append(b.Manifest, m)
		if e.Name != "" {
			entryIndex[e.Name] = len(b.Manifest) - 1
		}
	}

	selected := r.SelectForScan(archive.SelectOptions{
		MaxEntries:    limits.MaxFiles,
		MaxEntryBytes: limits.MaxZipEntryBytes,
		MaxTotalBytes: limits.MaxTotalBytes,
	})

	for _, e := range selected {
		if !hasTextExtension(e.Name) {
			if idx, ok := entryIndex[e.Name]; ok && !b.Manifest[idx].IsArchive {
				// Not a text candidate; record it as binary payload.
				b.Manifest[idx].IsBinary = true
			}
			continue
		}

		content, err := r.Extract(e, limits.MaxZipEntryBytes)
		if err != nil {
			reason := skill.SkipUnreadable
			if err == archive.ErrUnsupportedMethod {
				reason = skill.SkipUnsupported
			}
			if idx, ok := entryIndex[e.Name]; ok {
				b.Manifest[idx].SkippedReason = reason
			}
			continue
		}
		if looksBinary(content) || !utf8.Valid(content) {
			if idx, ok := entryIndex[e.Name]; ok {
				b.Manifest[idx].IsBinary = true
			}
			continue
		}
		if len(b.Files) >= limits.MaxFiles {
			break
		}
		b.Files = append(b.Files, skill.File{Path: e.Name, Content: string(content)})
	}

	finalize(b)
	return b, nil
}

func fromDir(root string, limits Limits) (*skill.Bundle, error) {
	b := &skill.Bundle{
		ID:     filepath.Base(filepath.Clean(root)),
		Source: skill.SourceLocal,
	}

	var totalLoaded int64
	totalCapHit := false
	maxFilesHit := false

	err := filepath.WalkDir(root, func(p string, d os.DirEntry, walkErr error) error {
		if walkErr != nil {
			return nil // unreadable subtree is a soft problem
		}
		if p == root {
			return nil
		}

		rel, err := filepath.Rel(root, p)
		if err != nil {
			return nil
		}
		rel = filepath.ToSlash(rel)
		depth := strings.Count(rel, "/") + 1

		if d.IsDir() {
			if skipDirNames[d.Name()] || depth > maxWalkDepth {
				return filepath.SkipDir
			}
			return nil
		}

		if len(b.Manifest) >= limits.MaxFiles {
			if !maxFilesHit {
				maxFilesHit = true
				b.IngestWarnings = append(b.IngestWarnings,
					fmt.Sprintf("maxFiles reached (%d)", limits.MaxFiles))
			}
			return filepath.SkipAll
		}

		// Symlinks are recorded but never followed or loaded.
		if d.Type()&os.ModeSymlink != 0 {
			b.Manifest = append(b.Manifest, skill.ManifestEntry{
				Path:          rel,
				IsSymlink:     true,
				SourceKind:    "dir",
				SkippedReason: skill.SkipSymlink,
			})
			return nil
		}

		info, err := d.Info()
		if err != nil {
			b.Manifest = append(b.Manifest, skill.ManifestEntry{
				Path:          rel,
				SourceKind:    "dir",
				SkippedReason: skill.SkipUnreadable,
			})
			return nil
		}

		m := skill.ManifestEntry{
			Path:         rel,
			SizeBytes:    info.Size(),
			IsExecutable: info.Mode().Perm()&0o111 != 0,
			IsArchive:    hasArchiveExtension(rel),
			SourceKind:   "dir",
		}

		switch {
		case !hasTextExtension(rel):
			m.IsBinary = true
		case info.Size() > limits.MaxFileBytes:
			m.SkippedReason = skill.SkipTooLarge
			b.IngestWarnings = append(b.IngestWarnings,
				fmt.Sprintf("skipped %s: exceeds maxFileBytes (%d)", rel, limits.MaxFileBytes))
		case totalLoaded+info.Size() > limits.MaxTotalBytes:
			if !totalCapHit {
				totalCapHit = true
				b.IngestWarnings = append(b.IngestWarnings,
					fmt.Sprintf("maxTotalBytes reached (%d)", limits.MaxTotalBytes))
			}
			m.SkippedReason = skill.SkipTotalBytesCap
		default:
			data, err := os.ReadFile(p)
			if err != nil {
				m.SkippedReason = skill.SkipUnreadable
			} else if looksBinary(data) || !utf8.Valid(data) {
				m.IsBinary = true
			} else {
				totalLoaded += int64(len(data))
				b.Files = append(b.Files, skill.File{Path: rel, Content: string(data)})
			}
		}

		b.Manifest = append(b.Manifest, m)
		return nil
	})
	if err != nil {
		return nil, errf("walk %s: %v", root, err)
	}

	finalize(b)
	return b, nil
}
