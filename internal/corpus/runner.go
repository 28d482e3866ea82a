package corpus

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/clawguard/clawguard/internal/gate"
	"github.com/clawguard/clawguard/internal/hashing"
	"github.com/clawguard/clawguard/internal/ingest"
	"github.com/clawguard/clawguard/internal/policy"
	"github.com/clawguard/clawguard/internal/rules"
	"github.com/clawguard/clawguard/internal/scanner"
)

const defaultConcurrency = 4

// Result is one source's outcome in a bulk scan.
type Result struct {
	Source        string        `json:"source"`
	ContentSHA256 string        `json:"content_sha256,omitempty"`
	RiskScore     int           `json:"risk_score"`
	Action        policy.Action `json:"action,omitempty"`
	Error         string        `json:"error,omitempty"`
	Cached        bool          `json:"cached,omitempty"`
}

// Runner sweeps many sources through fetch -> ingest -> scan with a
// fixed worker pool. Results come back in input order regardless of
// completion order.
type Runner struct {
	Limits      ingest.Limits
	Pack        rules.Pack
	Thresholds  *policy.ThresholdsPolicy
	Concurrency int
	Cache       *Cache // optional
}

// Run scans every source. Each worker performs one full synchronous
// pipeline per item; a shared index hands out work.
func (r *Runner) Run(ctx context.Context, sources []string) []Result {
	results := make([]Result, len(sources))
	if len(sources) == 0 {
		return results
	}

	workers := r.Concurrency
	if workers <= 0 {
		workers = defaultConcurrency
	}
	if workers > len(sources) {
		workers = len(sources)
	}

	var next atomic.Int64
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				i := int(next.Add(1)) - 1
				if i >= len(sources) {
					return
				}
				if ctx.Err() != nil {
					results[i] = Result{Source: sources[i], Error: ctx.Err().Error()}
					continue
				}
				results[i] = r.scanOne(ctx, sources[i])
			}
		}()
	}
	wg.Wait()
	return results
}

func (r *Runner) scanOne(ctx context.Context, source string) Result {
	bundle, err := ingest.BuildBundle(ctx, source, r.Limits)
	if err != nil {
		return Result{Source: source, Error: err.Error()}
	}

	contentHash := hashing.ContentSHA256(bundle)

	if r.Cache != nil {
		if report, ok := r.Cache.GetReport(contentHash); ok {
			return Result{
				Source:        source,
				ContentSHA256: contentHash,
				RiskScore:     report.RiskScore,
				Action:        gate.InstallAction(report.RiskScore, r.Thresholds),
				Cached:        true,
			}
		}
	}

	report := scanner.Scan(bundle, r.Pack)
	if r.Cache != nil {
		if err := r.Cache.PutReport(contentHash, report); err != nil {
			slog.Warn("failed to cache scan report", "source", source, "error", err)
		}
	}

	return Result{
		Source:        source,
		ContentSHA256: contentHash,
		RiskScore:     report.RiskScore,
		Action:        gate.InstallAction(report.RiskScore, r.Thresholds),
	}
}
