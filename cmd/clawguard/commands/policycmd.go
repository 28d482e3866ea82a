package commands

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/clawguard/clawguard/internal/gate"
	"github.com/clawguard/clawguard/internal/policy"
)

// NewPolicyCmd creates the policy command group
func NewPolicyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "policy",
		Short: "Manage policy files",
	}

	cmd.AddCommand(newPolicyInitCmd())
	return cmd
}

func newPolicyInitCmd() *cobra.Command {
	var (
		path string
		mode string
	)

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a starter policy JSON file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var p policy.Policy
			switch mode {
			case "", "default":
				p = policy.Default()
			case "untrusted":
				p = gate.Compose(gate.ModeUntrusted, false, policy.Default()).Policy
			default:
				return fmt.Errorf("unknown policy mode: %s (want default or untrusted)", mode)
			}

			if _, err := os.Stat(path); err == nil {
				return fmt.Errorf("refusing to overwrite existing policy: %s", path)
			}
			if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
				return fmt.Errorf("create policy dir: %w", err)
			}

			encoded, err := json.MarshalIndent(p, "", "  ")
			if err != nil {
				return fmt.Errorf("encode policy: %w", err)
			}
			encoded = append(encoded, '\n')
			if err := os.WriteFile(path, encoded, 0644); err != nil {
				return fmt.Errorf("write policy: %w", err)
			}

			return emitJSON(cmd.OutOrStdout(), map[string]any{
				"status": "written",
				"path":   path,
				"mode":   modeOrDefault(mode),
			})
		},
	}

	cmd.Flags().StringVar(&path, "path", filepath.Join(".clawguard", "policy.json"), "Where to write the policy")
	cmd.Flags().StringVar(&mode, "mode", "default", "Starter stance: default or untrusted")
	return cmd
}

func modeOrDefault(mode string) string {
	if mode == "" {
		return "default"
	}
	return mode
}
