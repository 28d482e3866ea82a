package hashing

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/clawguard/clawguard/internal/policy"
	"github.com/clawguard/clawguard/internal/skill"
)

// ContentSHA256 hashes the loaded file contents in path order. Any
// byte change in any file changes the hash, which is what breaks a
// trust pin.
func ContentSHA256(b *skill.Bundle) string {
	files := append([]skill.File(nil), b.Files...)
	sort.Slice(files, func(i, j int) bool { return files[i].Path < files[j].Path })

	h := sha256.New()
	for _, f := range files {
		h.Write([]byte(f.Path))
		h.Write([]byte{'\n'})
		h.Write([]byte(f.Content))
		h.Write([]byte{'\n'})
	}
	return hex.EncodeToString(h.Sum(nil))
}

// ManifestSHA256 hashes the manifest shape in path order: what was
// seen, how big, and which flags it carried.
func ManifestSHA256(b *skill.Bundle) string {
	entries := append([]skill.ManifestEntry(nil), b.Manifest...)
	sort.SliceStable(entries, func(i, j int) bool { return entries[i].Path < entries[j].Path })

	h := sha256.New()
	for _, e := range entries {
		fmt.Fprintf(h, "%s\n%d\n\n\n%t\n%t\n%t\n%t\n%s\n",
			e.Path, e.SizeBytes, e.IsBinary, e.IsExecutable, e.IsSymlink, e.IsArchive, e.SkippedReason)
	}
	return hex.EncodeToString(h.Sum(nil))
}

// PolicySHA256 hashes the canonical JSON serialization of a policy.
// Struct field order fixes the serialization, so equal policies hash
// equal.
func PolicySHA256(p policy.Policy) (string, error) {
	data, err := json.Marshal(p)
	if err != nil {
		return "", fmt.Errorf("marshal policy: %w", err)
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}
