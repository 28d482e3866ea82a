package commands

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/clawguard/clawguard/internal/rules"
)

// NewRulesCmd creates the rules command group
func NewRulesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rules",
		Short: "Inspect the built-in rule pack",
	}

	cmd.AddCommand(
		newRulesListCmd(),
		newRulesExplainCmd(),
	)

	return cmd
}

func newRulesListCmd() *cobra.Command {
	var (
		asJSON    bool
		rulesPath string
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List all rules in the pack",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			pack, err := loadRulePack(rulesPath)
			if err != nil {
				return err
			}

			if asJSON {
				return emitJSON(cmd.OutOrStdout(), pack)
			}

			var (
				headerStyle = lipgloss.NewStyle().
						Bold(true).
						Foreground(lipgloss.Color("#FAFAFA")).
						Background(lipgloss.Color("#8E4EC6")). // Purple
						Padding(0, 1).
						MarginBottom(1)

				wID       = 6
				wTitle    = 38
				wSeverity = 10
				wScore    = 6

				colHeaderStyle = lipgloss.NewStyle().
						Foreground(lipgloss.Color("#8E4EC6")).
						Bold(true).
						MarginRight(1)

				idStyle = lipgloss.NewStyle().
					Foreground(lipgloss.Color("245")).
					Width(wID).
					MarginRight(1)

				titleStyle = lipgloss.NewStyle().
						Width(wTitle).
						MarginRight(1)

				severityStyleBase = lipgloss.NewStyle().
							Width(wSeverity).
							MarginRight(1)

				scoreStyle = lipgloss.NewStyle().
						Width(wScore).
						MarginRight(1)

				criticalColor = lipgloss.Color("#DC2626")
				highColor     = lipgloss.Color("#EA580C")
				mediumColor   = lipgloss.Color("#CA8A04")
				lowColor      = lipgloss.Color("241")
			)

			fmt.Println(headerStyle.Render(fmt.Sprintf("Rule Pack %s %s", pack.PackID, pack.PackVersion)))

			headers := lipgloss.JoinHorizontal(lipgloss.Top,
				colHeaderStyle.Width(wID).Render("ID"),
				colHeaderStyle.Width(wTitle).Render("TITLE"),
				colHeaderStyle.Width(wSeverity).Render("SEVERITY"),
				colHeaderStyle.Width(wScore).Render("SCORE"),
			)
			fmt.Printf("  %s\n", headers)

			sepStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("240")).MarginRight(1)
			separator := lipgloss.JoinHorizontal(lipgloss.Top,
				sepStyle.Render(strings.Repeat("─", wID)),
				sepStyle.Render(strings.Repeat("─", wTitle)),
				sepStyle.Render(strings.Repeat("─", wSeverity)),
				sepStyle.Render(strings.Repeat("─", wScore)),
			)
			fmt.Printf("  %s\n", separator)

			for _, r := range pack.Rules {
				severityStyle := severityStyleBase
				switch r.Severity {
				case rules.SeverityCritical:
					severityStyle = severityStyle.Foreground(criticalColor).Bold(true)
				case rules.SeverityHigh:
					severityStyle = severityStyle.Foreground(highColor)
				case rules.SeverityMedium:
					severityStyle = severityStyle.Foreground(mediumColor)
				default:
					severityStyle = severityStyle.Foreground(lowColor)
				}

				row := lipgloss.JoinHorizontal(lipgloss.Top,
					idStyle.Render(r.ID),
					titleStyle.Render(truncate(r.Title, wTitle-2)),
					severityStyle.Render(string(r.Severity)),
					scoreStyle.Render(fmt.Sprintf("%d", r.Score)),
				)
				fmt.Printf("  %s\n", row)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the raw pack JSON")
	cmd.Flags().StringVar(&rulesPath, "rules", "", "Rule pack YAML override (default: built-in pack)")
	return cmd
}

func newRulesExplainCmd() *cobra.Command {
	var rulesPath string

	cmd := &cobra.Command{
		Use:   "explain <id>",
		Short: "Explain one rule",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			pack, err := loadRulePack(rulesPath)
			if err != nil {
				return err
			}
			rule, ok := pack.RuleByID(args[0])
			if !ok {
				return fmt.Errorf("unknown rule: %s", args[0])
			}

			doc := ruleDoc(rule, pack)
			renderer, err := glamour.NewTermRenderer(
				glamour.WithAutoStyle(),
				glamour.WithWordWrap(100),
			)
			if err != nil {
				// Fall back to the raw markdown.
				fmt.Println(doc)
				return nil
			}
			rendered, err := renderer.Render(doc)
			if err != nil {
				fmt.Println(doc)
				return nil
			}
			fmt.Print(rendered)
			return nil
		},
	}

	cmd.Flags().StringVar(&rulesPath, "rules", "", "Rule pack YAML override (default: built-in pack)")
	return cmd
}

func ruleDoc(r rules.Rule, pack rules.Pack) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "# %s — %s\n\n", r.ID, r.Title)
	if r.Doc != "" {
		sb.WriteString(r.Doc + "\n\n")
	}
	fmt.Fprintf(&sb, "- **Severity**: %s (floor %d)\n", r.Severity, r.Severity.Floor())
	fmt.Fprintf(&sb, "- **Score**: %d points\n", r.Score)
	fmt.Fprintf(&sb, "- **Reason code**: `%s`\n", r.ReasonCode)

	selectors := make([]string, 0, len(r.Selectors))
	for _, s := range r.Selectors {
		selectors = append(selectors, string(s))
	}
	fmt.Fprintf(&sb, "- **Selectors**: %s\n", strings.Join(selectors, ", "))
	fmt.Fprintf(&sb, "- **Pattern**: `%s`\n", r.Match)
	fmt.Fprintf(&sb, "\n_Pack %s %s_\n", pack.PackID, pack.PackVersion)
	return sb.String()
}
