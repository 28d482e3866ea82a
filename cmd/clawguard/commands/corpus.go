package commands

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/clawguard/clawguard/internal/config"
	"github.com/clawguard/clawguard/internal/corpus"
	"github.com/clawguard/clawguard/internal/policy"
)

// NewCorpusCmd creates the corpus command group
func NewCorpusCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "corpus",
		Short: "Bulk-scan many skill sources",
	}

	cmd.AddCommand(newCorpusScanCmd())
	return cmd
}

func newCorpusScanCmd() *cobra.Command {
	var (
		inputPath   string
		concurrency int
		cachePath   string
		statePath   string
		rulesPath   string
	)

	cmd := &cobra.Command{
		Use:   "scan --input <file>",
		Short: "Scan every source listed in a file, one per line",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if inputPath == "" {
				return fmt.Errorf("corpus scan requires --input")
			}

			sources, err := readSourceList(inputPath)
			if err != nil {
				return err
			}
			if len(sources) == 0 {
				return fmt.Errorf("no sources in %s", inputPath)
			}

			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			pack, err := loadRulePack(rulesPath)
			if err != nil {
				return err
			}

			runner := &corpus.Runner{
				Limits:      cfg.IngestLimits(),
				Pack:        pack,
				Concurrency: concurrency,
				Thresholds: &policy.ThresholdsPolicy{
					ScanApproveAt: policy.UntrustedApproveAt,
					ScanDenyAt:    policy.UntrustedDenyAt,
				},
			}

			if cachePath != "" {
				cache, err := corpus.OpenCache(cachePath)
				if err != nil {
					return err
				}
				defer cache.Close()
				runner.Cache = cache
			}

			results := runner.Run(cmd.Context(), sources)

			state := corpus.State{
				LastRunID: uuid.NewString(),
				LastRunAt: time.Now().UTC(),
				Scanned:   len(results),
			}
			for _, r := range results {
				if r.Error != "" {
					state.Errors++
				}
				if r.Action == policy.ActionDeny {
					state.Denied++
				}
			}
			if err := corpus.SaveState(statePath, state); err != nil {
				return err
			}

			return emitJSON(cmd.OutOrStdout(), map[string]any{
				"run_id":  state.LastRunID,
				"scanned": state.Scanned,
				"denied":  state.Denied,
				"errors":  state.Errors,
				"results": results,
			})
		},
	}

	cmd.Flags().StringVar(&inputPath, "input", "", "File with one source per line")
	cmd.Flags().IntVar(&concurrency, "concurrency", 4, "Worker count")
	cmd.Flags().StringVar(&cachePath, "cache", "", "bbolt cache path (content hash -> report)")
	cmd.Flags().StringVar(&statePath, "state", corpus.DefaultStatePath(), "Corpus state file")
	cmd.Flags().StringVar(&rulesPath, "rules", "", "Rule pack YAML override (default: built-in pack)")
	return cmd
}

func readSourceList(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open source list: %w", err)
	}
	defer f.Close()

	var sources []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		sources = append(sources, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read source list: %w", err)
	}
	return sources, nil
}
