package commands

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/clawguard/clawguard/internal/config"
	"github.com/clawguard/clawguard/internal/hashing"
	"github.com/clawguard/clawguard/internal/ingest"
	"github.com/clawguard/clawguard/internal/trust"
)

// NewTrustCmd creates the trust command group
func NewTrustCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "trust",
		Short: "Manage content-hash trust pins",
	}

	cmd.AddCommand(
		newTrustAddCmd(),
		newTrustCheckCmd(),
		newTrustListCmd(),
		newTrustRemoveCmd(),
	)

	return cmd
}

func trustStorePath(flagValue string) (string, error) {
	if flagValue != "" {
		return flagValue, nil
	}
	cfg, err := config.Load()
	if err != nil {
		return "", fmt.Errorf("load config: %w", err)
	}
	return cfg.Paths.TrustStore, nil
}

func ingestForTrust(ctx context.Context, source string) (contentHash, manifestHash string, err error) {
	cfg, err := config.Load()
	if err != nil {
		return "", "", fmt.Errorf("load config: %w", err)
	}
	bundle, err := ingest.BuildBundle(ctx, source, cfg.IngestLimits())
	if err != nil {
		return "", "", err
	}
	return hashing.ContentSHA256(bundle), hashing.ManifestSHA256(bundle), nil
}

func newTrustAddCmd() *cobra.Command {
	var storePath string

	cmd := &cobra.Command{
		Use:   "add <path|url|zip>",
		Short: "Pin a source's exact content as trusted",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := trustStorePath(storePath)
			if err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), 60*time.Second)
			defer cancel()
			contentHash, manifestHash, err := ingestForTrust(ctx, args[0])
			if err != nil {
				return err
			}

			record := trust.Record{
				ContentSHA256:  contentHash,
				ManifestSHA256: manifestHash,
				SourceInput:    args[0],
				CreatedAt:      time.Now().UTC(),
			}
			if err := trust.Add(path, record); err != nil {
				return err
			}

			return emitJSON(cmd.OutOrStdout(), map[string]any{
				"status":          "pinned",
				"trust_store":     path,
				"content_sha256":  record.ContentSHA256,
				"manifest_sha256": record.ManifestSHA256,
			})
		},
	}

	cmd.Flags().StringVar(&storePath, "trust-store", "", "Trust store path (default: .clawguard/trust.json)")
	return cmd
}

func newTrustCheckCmd() *cobra.Command {
	var storePath string

	cmd := &cobra.Command{
		Use:   "check <path|url|zip>",
		Short: "Check whether a source's content is pinned",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := trustStorePath(storePath)
			if err != nil {
				return err
			}

			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), 60*time.Second)
			defer cancel()
			bundle, err := ingest.BuildBundle(ctx, args[0], cfg.IngestLimits())
			if err != nil {
				return err
			}

			status, record := trust.StatusForBundle(bundle, trust.Load(path))
			out := map[string]any{
				"status":         status,
				"trust_store":    path,
				"content_sha256": hashing.ContentSHA256(bundle),
			}
			if record != nil {
				out["pinned_at"] = record.CreatedAt
				out["source_input"] = record.SourceInput
			}
			return emitJSON(cmd.OutOrStdout(), out)
		},
	}

	cmd.Flags().StringVar(&storePath, "trust-store", "", "Trust store path (default: .clawguard/trust.json)")
	return cmd
}

func newTrustListCmd() *cobra.Command {
	var (
		storePath string
		asJSON    bool
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List trust pins, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := trustStorePath(storePath)
			if err != nil {
				return err
			}
			store := trust.Load(path)

			if asJSON {
				return emitJSON(cmd.OutOrStdout(), store)
			}

			if len(store.Records) == 0 {
				fmt.Println("No trust pins.")
				return nil
			}

			var (
				headerStyle = lipgloss.NewStyle().
						Bold(true).
						Foreground(lipgloss.Color("#FAFAFA")).
						Background(lipgloss.Color("#2E8B57")). // SeaGreen
						Padding(0, 1).
						MarginBottom(1)

				wHash   = 16
				wSource = 40
				wDate   = 20

				colHeaderStyle = lipgloss.NewStyle().
						Foreground(lipgloss.Color("#2E8B57")).
						Bold(true).
						MarginRight(1)

				hashStyle = lipgloss.NewStyle().
						Foreground(lipgloss.Color("245")).
						Width(wHash).
						MarginRight(1)

				sourceStyle = lipgloss.NewStyle().
						Width(wSource).
						MarginRight(1)

				dateStyle = lipgloss.NewStyle().
						Width(wDate).
						MarginRight(1)
			)

			fmt.Println(headerStyle.Render("Trust Pins"))

			headers := lipgloss.JoinHorizontal(lipgloss.Top,
				colHeaderStyle.Width(wHash).Render("CONTENT SHA"),
				colHeaderStyle.Width(wSource).Render("SOURCE"),
				colHeaderStyle.Width(wDate).Render("PINNED AT"),
			)
			fmt.Printf("  %s\n", headers)

			sepStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("240")).MarginRight(1)
			separator := lipgloss.JoinHorizontal(lipgloss.Top,
				sepStyle.Render(strings.Repeat("─", wHash)),
				sepStyle.Render(strings.Repeat("─", wSource)),
				sepStyle.Render(strings.Repeat("─", wDate)),
			)
			fmt.Printf("  %s\n", separator)

			for _, r := range store.Records {
				row := lipgloss.JoinHorizontal(lipgloss.Top,
					hashStyle.Render(truncate(r.ContentSHA256, wHash-2)),
					sourceStyle.Render(truncate(r.SourceInput, wSource-2)),
					dateStyle.Render(r.CreatedAt.Format("2006-01-02 15:04:05")),
				)
				fmt.Printf("  %s\n", row)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&storePath, "trust-store", "", "Trust store path (default: .clawguard/trust.json)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the raw store JSON")
	return cmd
}

func newTrustRemoveCmd() *cobra.Command {
	var storePath string

	cmd := &cobra.Command{
		Use:   "remove <content_sha256>",
		Short: "Remove the pin for a content hash",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := trustStorePath(storePath)
			if err != nil {
				return err
			}
			if err := trust.RemoveByHash(path, args[0]); err != nil {
				return err
			}
			return emitJSON(cmd.OutOrStdout(), map[string]any{
				"status":         "removed",
				"trust_store":    path,
				"content_sha256": args[0],
			})
		},
	}

	cmd.Flags().StringVar(&storePath, "trust-store", "", "Trust store path (default: .clawguard/trust.json)")
	return cmd
}

func truncate(s string, max int) string {
	if max <= 3 || len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}
