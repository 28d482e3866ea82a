package hashing

import (
	"testing"

	"github.com/clawguard/clawguard/internal/policy"
	"github.com/clawguard/clawguard/internal/skill"
)

func TestContentSHA256_ChangesOnAnyByte(t *testing.T) {
	b := &skill.Bundle{
		Files: []skill.File{
			{Path: "SKILL.md", Content: "# hello\n"},
			{Path: "scripts/run.sh", Content: "echo hi\n"},
		},
	}
	first := ContentSHA256(b)

	b.Files[1].Content = "echo hi!\n"
	second := ContentSHA256(b)
	if first == second {
		t.Fatal("content hash did not change after byte change")
	}
}

func TestContentSHA256_OrderIndependent(t *testing.T) {
	a := &skill.Bundle{Files: []skill.File{
		{Path: "a.md", Content: "a"},
		{Path: "b.md", Content: "b"},
	}}
	b := &skill.Bundle{Files: []skill.File{
		{Path: "b.md", Content: "b"},
		{Path: "a.md", Content: "a"},
	}}
	if ContentSHA256(a) != ContentSHA256(b) {
		t.Fatal("content hash depends on file order")
	}
}

func TestManifestSHA256_SensitiveToFlags(t *testing.T) {
	base := &skill.Bundle{Manifest: []skill.ManifestEntry{
		{Path: "bin/tool", SizeBytes: 10, SourceKind: "zip"},
	}}
	flagged := &skill.Bundle{Manifest: []skill.ManifestEntry{
		{Path: "bin/tool", SizeBytes: 10, SourceKind: "zip", IsExecutable: true},
	}}
	if ManifestSHA256(base) == ManifestSHA256(flagged) {
		t.Fatal("manifest hash ignores the executable flag")
	}
}

func TestPolicySHA256_StableAndDistinct(t *testing.T) {
	first, err := PolicySHA256(policy.Default())
	if err != nil {
		t.Fatalf("PolicySHA256 returned error: %v", err)
	}
	second, err := PolicySHA256(policy.Default())
	if err != nil {
		t.Fatalf("PolicySHA256 returned error: %v", err)
	}
	if first != second {
		t.Fatal("equal policies hash differently")
	}

	custom := policy.Default()
	custom.Thresholds.ScanDenyAt = 99
	third, err := PolicySHA256(custom)
	if err != nil {
		t.Fatalf("PolicySHA256 returned error: %v", err)
	}
	if third == first {
		t.Fatal("different policies hash equal")
	}
}
