package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/clawguard/clawguard/internal/config"
	"github.com/clawguard/clawguard/internal/gate"
	"github.com/clawguard/clawguard/internal/hashing"
	"github.com/clawguard/clawguard/internal/ingest"
	"github.com/clawguard/clawguard/internal/policy"
	"github.com/clawguard/clawguard/internal/receipt"
	"github.com/clawguard/clawguard/internal/scanner"
)

// NewIngestCmd creates the ingest command
func NewIngestCmd() *cobra.Command {
	var (
		receiptDir string
		policyPath string
		rulesPath  string
		limits     limitFlags
	)

	cmd := &cobra.Command{
		Use:   "ingest <path|url|zip>",
		Short: "Ingest, scan, and write a receipt keyed by content hash",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			if receiptDir == "" {
				receiptDir = cfg.Paths.ReceiptsDir
			}
			if policyPath == "" {
				policyPath = cfg.Paths.Policy
			}

			ingestLimits := limits.apply(cfg)
			ctx, cancel := context.WithTimeout(cmd.Context(), 2*time.Duration(ingestLimits.TimeoutMs)*time.Millisecond)
			defer cancel()

			bundle, err := ingest.BuildBundle(ctx, args[0], ingestLimits)
			if err != nil {
				return err
			}

			pack, err := loadRulePack(rulesPath)
			if err != nil {
				return err
			}
			report := scanner.Scan(bundle, pack)

			basePolicy, err := policy.Load(policyPath)
			if err != nil {
				return err
			}
			stance := gate.Compose(gate.ModeUntrusted, false, basePolicy)
			action := gate.InstallAction(report.RiskScore, stance.Policy.Thresholds)

			policyHash, err := hashing.PolicySHA256(stance.Policy)
			if err != nil {
				return err
			}

			env := receipt.Envelope{
				Action: action,
				Receipt: receipt.New(args[0], receipt.BundleSummary{
					ID:             bundle.ID,
					Source:         bundle.Source,
					Version:        bundle.Version,
					Entrypoint:     bundle.Entrypoint,
					FileCount:      len(bundle.Files),
					ContentSHA256:  hashing.ContentSHA256(bundle),
					ManifestSHA256: hashing.ManifestSHA256(bundle),
				}, policyHash, report),
			}

			writer := receipt.NewWriter(receiptDir)
			if _, err := writer.Write(env); err != nil {
				return err
			}

			if err := emitJSON(cmd.OutOrStdout(), env); err != nil {
				return err
			}
			return exitForAction(action)
		},
	}

	cmd.Flags().StringVar(&receiptDir, "receipt-dir", "", "Receipts directory (default: .clawguard/receipts)")
	cmd.Flags().StringVar(&policyPath, "policy", "", "Policy JSON file (default: built-in policy)")
	cmd.Flags().StringVar(&rulesPath, "rules", "", "Rule pack YAML override (default: built-in pack)")
	limits.register(cmd)

	return cmd
}
