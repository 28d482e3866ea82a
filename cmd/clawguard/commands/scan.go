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
	"github.com/clawguard/clawguard/internal/scanner"
	"github.com/clawguard/clawguard/internal/skill"
	"github.com/clawguard/clawguard/internal/trust"
)

type trustStatusOutput struct {
	Status         trust.Status `json:"status"`
	ContentSHA256  string       `json:"content_sha256"`
	ManifestSHA256 string       `json:"manifest_sha256"`
}

type scanSourceOutput struct {
	Bundle           *skill.Bundle            `json:"bundle"`
	ModeRequested    gate.Mode                `json:"mode_requested"`
	ModeEffective    gate.Mode                `json:"mode_effective"`
	Trust            trustStatusOutput        `json:"trust"`
	TrustStore       string                   `json:"trust_store"`
	Action           policy.Action            `json:"action"`
	PolicyThresholds *policy.ThresholdsPolicy `json:"policy_thresholds"`
	Reasons          []policy.Reason          `json:"reasons"`
	Report           scanner.Report           `json:"report"`
}

// NewScanSourceCmd creates the scan-source command
func NewScanSourceCmd() *cobra.Command {
	var (
		mode       string
		policyPath string
		rulesPath  string
		trustStore string
		limits     limitFlags
	)

	cmd := &cobra.Command{
		Use:   "scan-source <path|url|zip>",
		Short: "Ingest and statically scan a skill source",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			if trustStore == "" {
				trustStore = cfg.Paths.TrustStore
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

			store := trust.Load(trustStore)
			status, _ := trust.StatusForBundle(bundle, store)
			stance := gate.Compose(gate.Mode(mode), status == trust.StatusTrusted, basePolicy)
			action := gate.InstallAction(report.RiskScore, stance.Policy.Thresholds)

			out := scanSourceOutput{
				Bundle:        bundle,
				ModeRequested: stance.ModeRequested,
				ModeEffective: stance.ModeEffective,
				Trust: trustStatusOutput{
					Status:         status,
					ContentSHA256:  hashing.ContentSHA256(bundle),
					ManifestSHA256: hashing.ManifestSHA256(bundle),
				},
				TrustStore:       trustStore,
				Action:           action,
				PolicyThresholds: stance.Policy.Thresholds,
				Reasons:          installReasons(action, report.RiskScore, stance.Policy.Thresholds),
				Report:           report,
			}
			if err := emitJSON(cmd.OutOrStdout(), out); err != nil {
				return err
			}
			return exitForAction(action)
		},
	}

	cmd.Flags().StringVar(&mode, "mode", string(gate.ModeUntrusted), "Trust stance: untrusted or trusted")
	cmd.Flags().StringVar(&policyPath, "policy", "", "Policy JSON file (default: built-in policy)")
	cmd.Flags().StringVar(&rulesPath, "rules", "", "Rule pack YAML override (default: built-in pack)")
	cmd.Flags().StringVar(&trustStore, "trust-store", "", "Trust store path (default: .clawguard/trust.json)")
	limits.register(cmd)

	return cmd
}

func installReasons(action policy.Action, score int, t *policy.ThresholdsPolicy) []policy.Reason {
	detail := fmt.Sprintf("risk_score %d (approve at %d, deny at %d)", score, t.ScanApproveAt, t.ScanDenyAt)
	switch action {
	case policy.ActionDeny:
		return []policy.Reason{{ReasonCode: "scan_deny_threshold", Detail: detail}}
	case policy.ActionNeedsApproval:
		return []policy.Reason{{ReasonCode: "scan_approve_threshold", Detail: detail}}
	default:
		return []policy.Reason{{ReasonCode: "scan_below_thresholds", Detail: detail}}
	}
}
