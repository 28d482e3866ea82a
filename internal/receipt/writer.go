package receipt

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/clawguard/clawguard/internal/policy"
	"github.com/clawguard/clawguard/internal/scanner"
	"github.com/clawguard/clawguard/internal/skill"
)

const (
	receiptVersion  = 1
	receiptFileMode = 0644
	receiptDirMode  = 0755
)

// BundleSummary identifies the scanned bundle inside a receipt.
type BundleSummary struct {
	ID             string       `json:"id"`
	Source         skill.Source `json:"source"`
	Version        string       `json:"version,omitempty"`
	Entrypoint     string       `json:"entrypoint"`
	FileCount      int          `json:"file_count"`
	ContentSHA256  string       `json:"content_sha256"`
	ManifestSHA256 string       `json:"manifest_sha256,omitempty"`
}

// Receipt records one ingest+scan outcome keyed by content hash.
type Receipt struct {
	ReceiptVersion int            `json:"receipt_version"`
	ID             string         `json:"id"`
	CreatedAt      time.Time      `json:"created_at"`
	SourceInput    string         `json:"source_input"`
	Bundle         BundleSummary  `json:"bundle"`
	PolicySHA256   string         `json:"policy_sha256"`
	ScanReport     scanner.Report `json:"scan_report"`
}

// Envelope is what lands on disk: the install action plus the receipt.
type Envelope struct {
	Action  policy.Action `json:"action"`
	Receipt Receipt       `json:"receipt"`
}

// New stamps a fresh receipt.
func New(sourceInput string, bundle BundleSummary, policyHash string, report scanner.Report) Receipt {
	return Receipt{
		ReceiptVersion: receiptVersion,
		ID:             uuid.NewString(),
		CreatedAt:      time.Now().UTC(),
		SourceInput:    sourceInput,
		Bundle:         bundle,
		PolicySHA256:   policyHash,
		ScanReport:     report,
	}
}

// Writer persists receipts under a directory, one file per content
// hash.
type Writer struct {
	dir string
}

// NewWriter creates a receipt writer rooted at dir.
func NewWriter(dir string) *Writer {
	return &Writer{dir: dir}
}

// DefaultDir is the receipts location relative to the working
// directory.
func DefaultDir() string {
	return filepath.Join(".clawguard", "receipts")
}

// Write stores the envelope at <dir>/<content_sha256>.json via
// temp-file + rename and returns the final path.
func (w *Writer) Write(env Envelope) (string, error) {
	if env.Receipt.Bundle.ContentSHA256 == "" {
		return "", fmt.Errorf("receipt has no content hash")
	}

	if err := os.MkdirAll(w.dir, receiptDirMode); err != nil {
		return "", fmt.Errorf("create receipts dir: %w", err)
	}

	encoded, err := json.MarshalIndent(env, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal receipt: %w", err)
	}
	encoded = append(encoded, '\n')

	finalPath := filepath.Join(w.dir, env.Receipt.Bundle.ContentSHA256+".json")
	tmpFile, err := os.CreateTemp(w.dir, "receipt-*.tmp")
	if err != nil {
		return "", fmt.Errorf("create temp receipt: %w", err)
	}
	tmpPath := tmpFile.Name()
	defer os.Remove(tmpPath)

	if _, err := tmpFile.Write(encoded); err != nil {
		_ = tmpFile.Close()
		return "", fmt.Errorf("write temp receipt: %w", err)
	}
	if err := tmpFile.Chmod(receiptFileMode); err != nil {
		_ = tmpFile.Close()
		return "", fmt.Errorf("chmod temp receipt: %w", err)
	}
	if err := tmpFile.Close(); err != nil {
		return "", fmt.Errorf("close temp receipt: %w", err)
	}

	if err := os.Rename(tmpPath, finalPath); err != nil {
		return "", fmt.Errorf("replace receipt: %w", err)
	}
	return finalPath, nil
}
