package trust

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/clawguard/clawguard/internal/hashing"
	"github.com/clawguard/clawguard/internal/skill"
)

func testBundle() *skill.Bundle {
	return &skill.Bundle{
		ID:         "weather",
		Entrypoint: "SKILL.md",
		Files:      []skill.File{{Path: "SKILL.md", Content: "# Weather\n"}},
		Manifest:   []skill.ManifestEntry{{Path: "SKILL.md", SizeBytes: 10, SourceKind: "dir"}},
	}
}

func TestLoad_MissingFileIsEmptyStore(t *testing.T) {
	s := Load(filepath.Join(t.TempDir(), "trust.json"))
	if s.Version != 1 || len(s.Records) != 0 {
		t.Fatalf("unexpected store: %+v", s)
	}
}

func TestLoad_MalformedFileIsEmptyStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "trust.json")
	if err := os.WriteFile(path, []byte("{broken"), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if s := Load(path); len(s.Records) != 0 {
		t.Fatalf("malformed store must read empty: %+v", s)
	}
}

func TestLoad_VersionMismatchIsEmptyStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "trust.json")
	if err := os.WriteFile(path, []byte(`{"version": 2, "records": [{"content_sha256": "x"}]}`), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if s := Load(path); len(s.Records) != 0 {
		t.Fatalf("version mismatch must read empty: %+v", s)
	}
}

func TestAddCheckRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "trust.json")
	b := testBundle()

	status, _ := StatusForBundle(b, Load(path))
	if status != StatusUntrusted {
		t.Fatal("fresh bundle must be untrusted")
	}

	err := Add(path, Record{
		ContentSHA256:  hashing.ContentSHA256(b),
		ManifestSHA256: hashing.ManifestSHA256(b),
		SourceInput:    "./weather",
		CreatedAt:      time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("Add returned error: %v", err)
	}

	status, rec := StatusForBundle(b, Load(path))
	if status != StatusTrusted || rec == nil {
		t.Fatal("pinned bundle must be trusted")
	}

	// Any byte change breaks the pin.
	b.Files[0].Content = "# Weather!\n"
	status, _ = StatusForBundle(b, Load(path))
	if status != StatusUntrusted {
		t.Fatal("mutated bundle must be untrusted")
	}
}

func TestAdd_DedupesByContentHash(t *testing.T) {
	path := filepath.Join(t.TempDir(), "trust.json")
	r := Record{ContentSHA256: "abc", SourceInput: "a", CreatedAt: time.Now()}
	for i := 0; i < 3; i++ {
		if err := Add(path, r); err != nil {
			t.Fatalf("Add returned error: %v", err)
		}
	}
	s := Load(path)
	if len(s.Records) != 1 {
		t.Fatalf("expected 1 record after dedupe, got %d", len(s.Records))
	}
}

func TestAdd_NewestFirst(t *testing.T) {
	path := filepath.Join(t.TempDir(), "trust.json")
	_ = Add(path, Record{ContentSHA256: "old"})
	_ = Add(path, Record{ContentSHA256: "new"})

	s := Load(path)
	if len(s.Records) != 2 || s.Records[0].ContentSHA256 != "new" {
		t.Fatalf("unexpected order: %+v", s.Records)
	}
}

func TestRemoveByHash(t *testing.T) {
	path := filepath.Join(t.TempDir(), "trust.json")
	_ = Add(path, Record{ContentSHA256: "keep"})
	_ = Add(path, Record{ContentSHA256: "drop"})

	if err := RemoveByHash(path, "drop"); err != nil {
		t.Fatalf("RemoveByHash returned error: %v", err)
	}
	s := Load(path)
	if len(s.Records) != 1 || s.Records[0].ContentSHA256 != "keep" {
		t.Fatalf("unexpected records: %+v", s.Records)
	}
}

func TestStatusForBundle_ManifestPinMustMatch(t *testing.T) {
	b := testBundle()
	s := Store{Version: 1, Records: []Record{{
		ContentSHA256:  hashing.ContentSHA256(b),
		ManifestSHA256: "not-the-real-manifest-hash",
	}}}
	if status, _ := StatusForBundle(b, s); status != StatusUntrusted {
		t.Fatal("manifest mismatch must not be trusted")
	}

	s.Records[0].ManifestSHA256 = ""
	if status, _ := StatusForBundle(b, s); status != StatusTrusted {
		t.Fatal("content-only pin must be trusted")
	}
}

func TestSave_EndsWithNewline(t *testing.T) {
	path := filepath.Join(t.TempDir(), "trust.json")
	_ = Add(path, Record{ContentSHA256: "abc"})
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read store: %v", err)
	}
	if len(data) == 0 || data[len(data)-1] != '\n' {
		t.Fatal("store file must end with a newline")
	}
}
