package trust

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/clawguard/clawguard/internal/hashing"
	"github.com/clawguard/clawguard/internal/skill"
)

const (
	storeVersion  = 1
	maxRecords    = 5000
	storeFileMode = 0644
	storeDirMode  = 0755
)

// Status of a bundle against the trust store.
type Status string

const (
	StatusTrusted   Status = "trusted"
	StatusUntrusted Status = "untrusted"
)

// Record pins one exact bundle content as human-approved. The pin
// auto-breaks when any byte of the content changes.
type Record struct {
	ContentSHA256  string    `json:"content_sha256"`
	ManifestSHA256 string    `json:"manifest_sha256,omitempty"`
	SourceInput    string    `json:"source_input"`
	CreatedAt      time.Time `json:"created_at"`
}

// Store is the append-only pin list, newest first.
type Store struct {
	Version int      `json:"version"`
	Records []Record `json:"records"`
}

// DefaultPath is the trust store location relative to the working
// directory.
func DefaultPath() string {
	return filepath.Join(".clawguard", "trust.json")
}

// Load reads the store. A missing, malformed, or wrong-version file
// yields an empty store rather than an error: a broken store must
// never make a bundle look trusted.
func Load(path string) Store {
	data, err := os.ReadFile(path)
	if err != nil {
		return emptyStore()
	}
	var s Store
	if err := json.Unmarshal(data, &s); err != nil {
		slog.Warn("trust store malformed, treating as empty", "path", path, "error", err)
		return emptyStore()
	}
	if s.Version != storeVersion {
		slog.Warn("trust store version mismatch, treating as empty", "path", path, "version", s.Version)
		return emptyStore()
	}
	if s.Records == nil {
		s.Records = []Record{}
	}
	return s
}

// Add pins a record: dedupe by content hash, newest first, capped.
func Add(path string, r Record) error {
	s := Load(path)

	records := make([]Record, 0, len(s.Records)+1)
	records = append(records, r)
	for _, existing := range s.Records {
		if existing.ContentSHA256 == r.ContentSHA256 {
			continue
		}
		records = append(records, existing)
	}
	if len(records) > maxRecords {
		records = records[:maxRecords]
	}
	s.Version = storeVersion
	s.Records = records
	return save(path, s)
}

// RemoveByHash drops the pin for a content hash, if present.
func RemoveByHash(path, contentSHA256 string) error {
	s := Load(path)
	records := s.Records[:0]
	for _, r := range s.Records {
		if r.ContentSHA256 == contentSHA256 {
			continue
		}
		records = append(records, r)
	}
	s.Records = records
	return save(path, s)
}

// StatusForBundle reports whether a bundle is pinned. A record matches
// iff the content hashes are equal and, when the record pins a
// manifest hash, the manifest hashes are equal too.
func StatusForBundle(b *skill.Bundle, s Store) (Status, *Record) {
	contentHash := hashing.ContentSHA256(b)
	manifestHash := hashing.ManifestSHA256(b)

	for i := range s.Records {
		r := s.Records[i]
		if r.ContentSHA256 != contentHash {
			continue
		}
		if r.ManifestSHA256 != "" && r.ManifestSHA256 != manifestHash {
			continue
		}
		return StatusTrusted, &r
	}
	return StatusUntrusted, nil
}

func emptyStore() Store {
	return Store{Version: storeVersion, Records: []Record{}}
}

// save writes atomically: temp file in the same directory, then
// rename. Concurrent writers are not coordinated; the last rename
// wins.
func save(path string, s Store) error {
	encoded, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal trust store: %w", err)
	}
	encoded = append(encoded, '\n')

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, storeDirMode); err != nil {
		return fmt.Errorf("create trust store dir: %w", err)
	}

	tmpFile, err := os.CreateTemp(dir, "trust-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp trust store: %w", err)
	}
	tmpPath := tmpFile.Name()
	defer os.Remove(tmpPath)

	if _, err := tmpFile.Write(encoded); err != nil {
		_ = tmpFile.Close()
		return fmt.Errorf("write temp trust store: %w", err)
	}
	if err := tmpFile.Chmod(storeFileMode); err != nil {
		_ = tmpFile.Close()
		return fmt.Errorf("chmod temp trust store: %w", err)
	}
	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("close temp trust store: %w", err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		if removeErr := os.Remove(path); removeErr != nil && !os.IsNotExist(removeErr) {
			return fmt.Errorf("replace trust store: rename failed (%v), remove failed (%v)", err, removeErr)
		}
		if retryErr := os.Rename(tmpPath, path); retryErr != nil {
			return fmt.Errorf("replace trust store after remove: %w", retryErr)
		}
	}
	return nil
}
