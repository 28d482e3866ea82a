package commands

import (
	"github.com/clawguard/clawguard/internal/config"
	"github.com/spf13/cobra"
)

var logLevelOverride string

// NewRootCmd creates the root command
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "clawguard",
		Short: "Clawguard - Deterministic safety gate for agent skills",
		Long: `Clawguard statically scans third-party skill bundles before install
and evaluates proposed tool calls against a policy at runtime. Every
decision is deterministic, explainable, and reproducible.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			return configureLogger(cfg, logLevelOverride)
		},
	}

	cmd.PersistentFlags().StringVar(&logLevelOverride, "log-level", "", "Override log level (debug|info|warn|error)")

	cmd.AddCommand(
		NewScanSourceCmd(),
		NewEvalToolCallCmd(),
		NewIngestCmd(),
		NewTrustCmd(),
		NewRulesCmd(),
		NewPolicyCmd(),
		NewCorpusCmd(),
		NewVersionCmd(),
	)

	return cmd
}
