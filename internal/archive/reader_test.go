package archive

import (
	"archive/zip"
	"bytes"
	"errors"
	"strings"
	"testing"
)

type zipEntry struct {
	name   string
	body   string
	mode   uint32 // unix mode bits shifted into external attrs by the writer
	store  bool
	isLink bool
}

func buildZip(t *testing.T, entries []zipEntry) []byte {
	t.Helper()
	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	for _, e := range entries {
		header := &zip.FileHeader{Name: e.name, Method: zip.Deflate}
		if e.store {
			header.Method = zip.Store
		}
		if e.mode != 0 {
			header.ExternalAttrs = e.mode << 16
		}
		if e.isLink {
			header.ExternalAttrs = 0o120777 << 16
		}
		fw, err := w.CreateHeader(header)
		if err != nil {
			t.Fatalf("create %q: %v", e.name, err)
		}
		if _, err := fw.Write([]byte(e.body)); err != nil {
			t.Fatalf("write %q: %v", e.name, err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close zip: %v", err)
	}
	return buf.Bytes()
}

func TestNewReader_ListsEntriesInCentralDirectoryOrder(t *testing.T) {
	data := buildZip(t, []zipEntry{
		{name: "SKILL.md", body: "# skill\n"},
		{name: "scripts/run.sh", body: "echo hi\n", store: true},
	})

	r, err := NewReader(data)
	if err != nil {
		t.Fatalf("NewReader returned error: %v", err)
	}
	if len(r.Entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(r.Entries))
	}
	if r.Entries[0].Name != "SKILL.md" || r.Entries[1].Name != "scripts/run.sh" {
		t.Fatalf("unexpected entry order: %+v", r.Entries)
	}
	if r.Entries[1].Method != methodStored {
		t.Fatalf("expected stored method for second entry, got %d", r.Entries[1].Method)
	}
}

func TestNewReader_RejectsGarbage(t *testing.T) {
	for _, data := range [][]byte{
		nil,
		[]byte("not a zip archive at all"),
		bytes.Repeat([]byte{0}, 100),
	} {
		_, err := NewReader(data)
		var ae *Error
		if !errors.As(err, &ae) {
			t.Fatalf("expected *archive.Error for %d-byte input, got %v", len(data), err)
		}
	}
}

func TestSanitizeName(t *testing.T) {
	tests := []struct {
		raw  string
		want string
	}{
		{"SKILL.md", "SKILL.md"},
		{"scripts/run.sh", "scripts/run.sh"},
		{"dir/", "dir/"},
		{"../SKILL.md", ""},
		{"a/../b", ""},
		{"./a", ""},
		{"/etc/passwd", ""},
		{`\windows\path`, ""},
		{"a\x00b", ""},
		{"nested/deep/file.txt", "nested/deep/file.txt"},
	}
	for _, tt := range tests {
		if got := SanitizeName(tt.raw); got != tt.want {
			t.Errorf("SanitizeName(%q) = %q, want %q", tt.raw, got, tt.want)
		}
	}
}

func TestInvalidPaths_RecordsTraversalNames(t *testing.T) {
	data := buildZip(t, []zipEntry{
		{name: "SKILL.md", body: "clean\n"},
		{name: "../SKILL.md", body: "evil\n"},
	})

	r, err := NewReader(data)
	if err != nil {
		t.Fatalf("NewReader returned error: %v", err)
	}
	invalid := r.InvalidPaths()
	if len(invalid) != 1 || invalid[0] != "../SKILL.md" {
		t.Fatalf("unexpected invalid paths: %v", invalid)
	}
}

func TestExtract_StoredAndDeflated(t *testing.T) {
	data := buildZip(t, []zipEntry{
		{name: "a.md", body: strings.Repeat("deflate me ", 50)},
		{name: "b.md", body: "stored", store: true},
	})

	r, err := NewReader(data)
	if err != nil {
		t.Fatalf("NewReader returned error: %v", err)
	}

	got, err := r.Extract(r.Entries[0], 1<<20)
	if err != nil {
		t.Fatalf("extract deflated: %v", err)
	}
	if string(got) != strings.Repeat("deflate me ", 50) {
		t.Fatalf("deflated content mismatch")
	}

	got, err = r.Extract(r.Entries[1], 1<<20)
	if err != nil {
		t.Fatalf("extract stored: %v", err)
	}
	if string(got) != "stored" {
		t.Fatalf("stored content mismatch: %q", got)
	}
}

func TestExtract_CapsOutput(t *testing.T) {
	data := buildZip(t, []zipEntry{
		{name: "big.md", body: strings.Repeat("x", 4096)},
	})

	r, err := NewReader(data)
	if err != nil {
		t.Fatalf("NewReader returned error: %v", err)
	}
	if _, err := r.Extract(r.Entries[0], 100); err == nil {
		t.Fatal("expected error extracting past cap")
	}
}

func TestExtract_RefusesSymlink(t *testing.T) {
	data := buildZip(t, []zipEntry{
		{name: "link", body: "target", isLink: true},
	})

	r, err := NewReader(data)
	if err != nil {
		t.Fatalf("NewReader returned error: %v", err)
	}
	if !r.Entries[0].IsSymlink() {
		t.Fatal("expected entry to be detected as symlink")
	}
	if _, err := r.Extract(r.Entries[0], 1024); err == nil {
		t.Fatal("expected error extracting symlink")
	}
}

func TestSelectForScan_AppliesCaps(t *testing.T) {
	data := buildZip(t, []zipEntry{
		{name: "dir/", body: ""},
		{name: "empty.md", body: ""},
		{name: "small.md", body: "1234567890"},
		{name: "huge.md", body: strings.Repeat("x", 2048)},
		{name: "second.md", body: "abcdefghij"},
	})

	r, err := NewReader(data)
	if err != nil {
		t.Fatalf("NewReader returned error: %v", err)
	}

	picked := r.SelectForScan(SelectOptions{
		MaxEntries:    10,
		MaxEntryBytes: 1024,
		MaxTotalBytes: 15,
	})
	// dir and empty skipped, huge over entry cap, second would break the
	// total cap after small's 10 bytes.
	if len(picked) != 1 || picked[0].Name != "small.md" {
		t.Fatalf("unexpected selection: %+v", picked)
	}
}

func TestEntryModeBits(t *testing.T) {
	data := buildZip(t, []zipEntry{
		{name: "bin/tool", body: "#!/bin/sh\n", mode: 0o100755},
		{name: "plain.txt", body: "text", mode: 0o100644},
	})

	r, err := NewReader(data)
	if err != nil {
		t.Fatalf("NewReader returned error: %v", err)
	}
	if !r.Entries[0].IsExecutable() {
		t.Error("expected bin/tool to be executable")
	}
	if r.Entries[1].IsExecutable() {
		t.Error("expected plain.txt to not be executable")
	}
}
