package commands

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/clawguard/clawguard/internal/config"
	"github.com/clawguard/clawguard/internal/ingest"
	"github.com/clawguard/clawguard/internal/rules"
)

// emitJSON writes one pretty-printed JSON object with a trailing
// newline. Commands with a JSON result emit exactly one; the table
// views (rules list, trust list without --json), rules explain, and
// version print plain text instead.
func emitJSON(w io.Writer, v any) error {
	encoded, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode output: %w", err)
	}
	encoded = append(encoded, '\n')
	_, err = w.Write(encoded)
	return err
}

// limitFlags are the per-invocation overrides of the configured ingest
// limits.
type limitFlags struct {
	timeoutMs     int
	maxFiles      int
	maxTotalBytes int64
	maxZipBytes   int64
}

func (f *limitFlags) register(cmd *cobra.Command) {
	cmd.Flags().IntVar(&f.timeoutMs, "timeout-ms", 0, "Transport timeout in milliseconds")
	cmd.Flags().IntVar(&f.maxFiles, "max-files", 0, "Maximum files ingested per bundle")
	cmd.Flags().Int64Var(&f.maxTotalBytes, "max-total-bytes", 0, "Maximum total bytes of loaded text")
	cmd.Flags().Int64Var(&f.maxZipBytes, "max-zip-bytes", 0, "Maximum archive size in bytes")
}

// apply overlays the non-zero flag values onto configured limits and
// clamps the result.
func (f *limitFlags) apply(cfg *config.Config) ingest.Limits {
	limits := cfg.IngestLimits()
	if f.timeoutMs > 0 {
		limits.TimeoutMs = f.timeoutMs
	}
	if f.maxFiles > 0 {
		limits.MaxFiles = f.maxFiles
	}
	if f.maxTotalBytes > 0 {
		limits.MaxTotalBytes = f.maxTotalBytes
	}
	if f.maxZipBytes > 0 {
		limits.MaxZipBytes = f.maxZipBytes
	}
	return limits.Clamped()
}

// loadRulePack returns the builtin pack, or a YAML override when a
// path is given.
func loadRulePack(path string) (rules.Pack, error) {
	if path == "" {
		return rules.Builtin(), nil
	}
	return rules.LoadYAML(path)
}
