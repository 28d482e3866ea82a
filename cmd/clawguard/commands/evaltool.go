package commands

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/clawguard/clawguard/internal/config"
	"github.com/clawguard/clawguard/internal/gate"
	"github.com/clawguard/clawguard/internal/policy"
)

// NewEvalToolCallCmd creates the eval-tool-call command
func NewEvalToolCallCmd() *cobra.Command {
	var (
		fromStdin  bool
		mode       string
		policyPath string
	)

	cmd := &cobra.Command{
		Use:   "eval-tool-call --stdin",
		Short: "Evaluate one tool call against the policy",
		Long: `Reads a ToolCall JSON object on stdin and prints a Decision.
The exit code mirrors the decision: 0 allow, 2 deny, 3 needs_approval
or sandbox_only.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !fromStdin {
				return fmt.Errorf("eval-tool-call requires --stdin")
			}

			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			if policyPath == "" {
				policyPath = cfg.Paths.Policy
			}

			var call policy.ToolCall
			decoder := json.NewDecoder(cmd.InOrStdin())
			if err := decoder.Decode(&call); err != nil {
				return fmt.Errorf("tool call input: %w", err)
			}
			if strings.TrimSpace(call.ToolName) == "" {
				return fmt.Errorf("tool call input: tool_name is required")
			}

			basePolicy, err := policy.Load(policyPath)
			if err != nil {
				return err
			}

			// The mode stance is opt-in here: without --mode, the call is
			// judged against the policy as written.
			effective := basePolicy
			if mode != "" {
				requested := gate.Mode(mode)
				effective = gate.Compose(requested, requested == gate.ModeTrusted, basePolicy).Policy
			}
			decision := policy.Evaluate(call, effective)

			if err := emitJSON(cmd.OutOrStdout(), decision); err != nil {
				return err
			}
			return exitForAction(decision.Action)
		},
	}

	cmd.Flags().BoolVar(&fromStdin, "stdin", false, "Read the ToolCall JSON from stdin")
	cmd.Flags().StringVar(&mode, "mode", "", "Overlay a trust stance: untrusted or trusted")
	cmd.Flags().StringVar(&policyPath, "policy", "", "Policy JSON file (default: built-in policy)")

	return cmd
}
