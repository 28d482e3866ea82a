package ingest

import (
	"archive/zip"
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/clawguard/clawguard/internal/skill"
)

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	p := filepath.Join(dir, filepath.FromSlash(name))
	if err := os.MkdirAll(filepath.Dir(p), 0755); err != nil {
		t.Fatalf("mkdir for %s: %v", name, err)
	}
	if err := os.WriteFile(p, []byte(content), 0644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
}

func TestBuildBundle_Directory(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "SKILL.md", "---\nname: weather\ndescription: \"Weather lookup\"\nversion: 1.2.0\n---\n# Weather\n")
	writeFile(t, dir, "scripts/run.sh", "echo hi\n")
	writeFile(t, dir, "assets/logo.png", "\x89PNG\x00\x00binary")

	b, err := BuildBundle(context.Background(), dir, DefaultLimits())
	if err != nil {
		t.Fatalf("BuildBundle returned error: %v", err)
	}

	if b.Entrypoint != "SKILL.md" {
		t.Errorf("entrypoint = %q, want SKILL.md", b.Entrypoint)
	}
	if b.Version != "1.2.0" {
		t.Errorf("version = %q, want 1.2.0", b.Version)
	}
	if b.Description != "Weather lookup" {
		t.Errorf("description = %q", b.Description)
	}
	if len(b.Files) != 2 {
		t.Fatalf("expected 2 loaded files, got %d: %+v", len(b.Files), b.Files)
	}
	for _, f := range b.Files {
		if strings.HasPrefix(f.Path, "/") || strings.Contains(f.Path, "..") {
			t.Errorf("unsafe path in files: %q", f.Path)
		}
	}

	var png *skill.ManifestEntry
	for i := range b.Manifest {
		if b.Manifest[i].Path == "assets/logo.png" {
			png = &b.Manifest[i]
		}
	}
	if png == nil {
		t.Fatal("manifest missing assets/logo.png")
	}
	if !png.IsBinary {
		t.Error("expected png to be flagged binary")
	}
}

func TestBuildBundle_DirectorySkipsGitAndSymlinks(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "SKILL.md", "# s\n")
	writeFile(t, dir, ".git/config", "[core]\n")
	if err := os.Symlink("/etc/passwd", filepath.Join(dir, "link.md")); err != nil {
		t.Skipf("symlinks unavailable: %v", err)
	}

	b, err := BuildBundle(context.Background(), dir, DefaultLimits())
	if err != nil {
		t.Fatalf("BuildBundle returned error: %v", err)
	}

	for _, f := range b.Files {
		if strings.HasPrefix(f.Path, ".git/") || f.Path == "link.md" {
			t.Errorf("loaded file that must be skipped: %q", f.Path)
		}
	}
	found := false
	for _, m := range b.Manifest {
		if m.Path == "link.md" {
			found = true
			if !m.IsSymlink || m.SkippedReason != skill.SkipSymlink {
				t.Errorf("symlink entry not recorded correctly: %+v", m)
			}
		}
	}
	if !found {
		t.Error("symlink missing from manifest")
	}
}

func TestBuildBundle_MaxFilesWarning(t *testing.T) {
	dir := t.TempDir()
	for i := 0; i < 10; i++ {
		writeFile(t, dir, "f"+string(rune('a'+i))+".md", "x\n")
	}

	limits := DefaultLimits()
	limits.MaxFiles = 3

	b, err := BuildBundle(context.Background(), dir, limits)
	if err != nil {
		t.Fatalf("BuildBundle returned error: %v", err)
	}
	if len(b.Files) > 3 || len(b.Manifest) > 3 {
		t.Fatalf("caps not applied: files=%d manifest=%d", len(b.Files), len(b.Manifest))
	}
	if len(b.IngestWarnings) == 0 || !strings.Contains(b.IngestWarnings[0], "maxFiles reached (3)") {
		t.Fatalf("expected maxFiles warning, got %v", b.IngestWarnings)
	}
}

func buildZipFile(t *testing.T, entries map[string]string) string {
	t.Helper()
	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	// Deterministic order for the central directory.
	names := make([]string, 0, len(entries))
	for name := range entries {
		names = append(names, name)
	}
	for _, name := range []string{"SKILL.md", "../SKILL.md", "bin/payload.dylib", "nested.zip"} {
		for _, have := range names {
			if have == name {
				fw, err := w.Create(name)
				if err != nil {
					t.Fatalf("create %q: %v", name, err)
				}
				if _, err := fw.Write([]byte(entries[name])); err != nil {
					t.Fatalf("write %q: %v", name, err)
				}
			}
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close zip: %v", err)
	}
	p := filepath.Join(t.TempDir(), "bundle.zip")
	if err := os.WriteFile(p, buf.Bytes(), 0644); err != nil {
		t.Fatalf("write zip: %v", err)
	}
	return p
}

func TestBuildBundle_ArchiveTraversalEntry(t *testing.T) {
	p := buildZipFile(t, map[string]string{
		"SKILL.md":    "# clean\n",
		"../SKILL.md": "# evil\n",
	})

	b, err := BuildBundle(context.Background(), p, DefaultLimits())
	if err != nil {
		t.Fatalf("BuildBundle returned error: %v", err)
	}

	if len(b.Files) != 1 || b.Files[0].Path != "SKILL.md" {
		t.Fatalf("expected exactly SKILL.md loaded, got %+v", b.Files)
	}

	var invalid *skill.ManifestEntry
	for i := range b.Manifest {
		if b.Manifest[i].SkippedReason == skill.SkipInvalidPath {
			invalid = &b.Manifest[i]
		}
	}
	if invalid == nil {
		t.Fatal("manifest missing invalid_path entry")
	}
	if invalid.RawPath != "../SKILL.md" {
		t.Errorf("raw_path = %q, want ../SKILL.md", invalid.RawPath)
	}
}

func TestBuildBundle_ArchiveBinaryPayloadListedNotLoaded(t *testing.T) {
	p := buildZipFile(t, map[string]string{
		"SKILL.md":          "# skill\n",
		"bin/payload.dylib": "\xcf\xfa\xed\xfe\x00\x00machO",
	})

	b, err := BuildBundle(context.Background(), p, DefaultLimits())
	if err != nil {
		t.Fatalf("BuildBundle returned error: %v", err)
	}

	if _, ok := b.FileByPath("bin/payload.dylib"); ok {
		t.Fatal("binary payload must not be loaded as text")
	}
	var dylib *skill.ManifestEntry
	for i := range b.Manifest {
		if b.Manifest[i].Path == "bin/payload.dylib" {
			dylib = &b.Manifest[i]
		}
	}
	if dylib == nil {
		t.Fatal("manifest missing dylib entry")
	}
	if !dylib.IsBinary {
		t.Errorf("dylib not flagged binary: %+v", dylib)
	}
}

func TestBuildBundle_ArchiveNestedArchiveFlag(t *testing.T) {
	p := buildZipFile(t, map[string]string{
		"SKILL.md":   "# skill\n",
		"nested.zip": "PK\x03\x04fake",
	})

	b, err := BuildBundle(context.Background(), p, DefaultLimits())
	if err != nil {
		t.Fatalf("BuildBundle returned error: %v", err)
	}
	for _, m := range b.Manifest {
		if m.Path == "nested.zip" && !m.IsArchive {
			t.Errorf("nested.zip not flagged as archive: %+v", m)
		}
	}
}

func TestBuildBundle_RemoteSkillMarkdown(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/markdown")
		_, _ = w.Write([]byte("---\nname: remote\n---\n# Remote skill\n"))
	}))
	defer srv.Close()

	b, err := BuildBundle(context.Background(), srv.URL+"/skills/remote", DefaultLimits())
	if err != nil {
		t.Fatalf("BuildBundle returned error: %v", err)
	}
	if b.Entrypoint != "SKILL.md" {
		t.Errorf("entrypoint = %q", b.Entrypoint)
	}
	if len(b.Files) != 1 {
		t.Fatalf("expected single file, got %d", len(b.Files))
	}
	if b.Source != skill.SourceRegistry {
		t.Errorf("source = %q, want registry", b.Source)
	}
}

func TestBuildBundle_RemoteZip(t *testing.T) {
	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	fw, _ := w.Create("SKILL.md")
	_, _ = fw.Write([]byte("# zipped skill\n"))
	_ = w.Close()

	srv := httptest.NewServer(http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
		rw.Header().Set("Content-Type", "application/zip")
		_, _ = rw.Write(buf.Bytes())
	}))
	defer srv.Close()

	b, err := BuildBundle(context.Background(), srv.URL+"/skill.zip", DefaultLimits())
	if err != nil {
		t.Fatalf("BuildBundle returned error: %v", err)
	}
	if len(b.Files) != 1 || b.Files[0].Path != "SKILL.md" {
		t.Fatalf("unexpected files: %+v", b.Files)
	}
	if b.Manifest[0].SourceKind != "zip" {
		t.Errorf("source_kind = %q, want zip", b.Manifest[0].SourceKind)
	}
}

func TestBuildBundle_InvalidSemverWarns(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "SKILL.md", "---\nversion: not-a-version\n---\n# s\n")

	b, err := BuildBundle(context.Background(), dir, DefaultLimits())
	if err != nil {
		t.Fatalf("BuildBundle returned error: %v", err)
	}
	found := false
	for _, w := range b.IngestWarnings {
		if strings.Contains(w, "not valid semver") {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected semver warning, got %v", b.IngestWarnings)
	}
}

func TestLimitsClamped(t *testing.T) {
	l := Limits{TimeoutMs: 100, Retries: 99, MaxFiles: 0, MaxTotalBytes: 1, MaxZipBytes: 1, MaxZipEntryBytes: 1}.Clamped()
	if l.TimeoutMs != 1000 || l.Retries != 5 || l.MaxFiles != 1 {
		t.Errorf("clamp failed: %+v", l)
	}
	if l.MaxTotalBytes != 10_000 || l.MaxZipBytes != 50_000 || l.MaxZipEntryBytes != 1000 {
		t.Errorf("clamp failed: %+v", l)
	}
	if l.MaxFileBytes != 1_000_000 {
		t.Errorf("maxFileBytes default not applied: %+v", l)
	}
}
