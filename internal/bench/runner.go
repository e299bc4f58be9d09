// Copyright 2020-2021 Dolthub, Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package bench

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/queryforge/sqlbeam/internal/equivalence"
	"github.com/queryforge/sqlbeam/internal/model"
)

// Knobs configures one benchmark_query_patches call, per spec.md §4.5.
type Knobs struct {
	BaselineRuns      int
	CandidateRuns     int
	WinnerRuns        int
	CollectExplain    bool
	KnownTimeout      bool
	TimeoutSeconds    int
	ClassifySpeedupFn model.ClassifySpeedupFunc
}

// DefaultKnobs returns the spec's documented defaults (spec.md §4.5).
func DefaultKnobs() Knobs {
	return Knobs{
		BaselineRuns:      3,
		CandidateRuns:     3,
		WinnerRuns:        3,
		CollectExplain:    true,
		TimeoutSeconds:    300,
		ClassifySpeedupFn: model.DefaultClassifySpeedup,
	}
}

// Summary is the result of one benchmark_query_patches call.
type Summary struct {
	BaselineMs       float64
	BaselineRows     int64
	BaselineChecksum uint64
	Candidates       []*model.Candidate
}

// Runner executes the fail-fast timing harness of spec.md §4.5.
type Runner struct {
	Factory ConnectionFactory
	Log     *logrus.Entry
}

// NewRunner constructs a Runner using factory to open connections.
func NewRunner(factory ConnectionFactory, log *logrus.Entry) *Runner {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Runner{Factory: factory, Log: log}
}

// Run executes patches against originalSQL on a single connection opened
// from spec, following the algorithm of spec.md §4.5. The single-connection
// invariant (spec.md §8) is guaranteed here: Factory is called exactly once.
func (r *Runner) Run(ctx context.Context, patches []*model.Candidate, originalSQL string, spec ConnectionSpec, knobs Knobs) (Summary, error) {
	conn, err := r.Factory(ctx, spec)
	if err != nil {
		return Summary{}, fmt.Errorf("bench: opening connection: %w", err)
	}
	defer conn.Close()

	summary := Summary{}

	var baselineRS equivalence.ResultSet
	var baselineChecksum uint64
	if knobs.KnownTimeout {
		summary.BaselineMs = float64(knobs.TimeoutSeconds) * 1000
		summary.BaselineRows = -1
		summary.BaselineChecksum = 0
	} else {
		baselineMs, rs, checksum, err := r.timeBaseline(ctx, conn, originalSQL, knobs.BaselineRuns)
		if err != nil {
			return Summary{}, fmt.Errorf("bench: baseline execution: %w", err)
		}
		summary.BaselineMs = baselineMs
		summary.BaselineRows = int64(len(rs.Rows))
		summary.BaselineChecksum = checksum
		baselineRS = rs
		baselineChecksum = checksum
	}

	for _, cand := range patches {
		if cand.OutputSQL == "" {
			continue
		}
		cand.OriginalMs = &summary.BaselineMs
		r.runCandidate(ctx, conn, cand, originalSQL, summary.BaselineRows, baselineChecksum, baselineRS, knobs)
		summary.Candidates = append(summary.Candidates, cand)
	}

	bestIdx := BestCandidateIndex(summary.Candidates)
	if bestIdx >= 0 {
		best := summary.Candidates[bestIdx]
		confirmedMs, err := r.timeRuns(ctx, conn, best.OutputSQL, knobs.WinnerRuns)
		if err == nil {
			speedup := summary.BaselineMs / confirmedMs
			best.Speedup = &speedup
			best.PatchMs = &confirmedMs
			best.Status = classify(knobs, speedup)
		}
	}

	if knobs.CollectExplain {
		for _, cand := range summary.Candidates {
			if cand.Status == model.StatusFail || cand.Status == model.StatusError {
				continue
			}
			if text, err := conn.Explain(ctx, cand.OutputSQL); err == nil {
				cand.ExplainText = text
			}
		}
	}

	return summary, nil
}

func (r *Runner) runCandidate(ctx context.Context, conn Connection, cand *model.Candidate, originalSQL string, baselineRows int64, baselineChecksum uint64, baselineRS equivalence.ResultSet, knobs Knobs) {
	timeout := time.Duration(knobs.TimeoutSeconds) * time.Second
	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	first, err := conn.Query(runCtx, cand.OutputSQL)
	if err != nil {
		if runCtx.Err() == context.DeadlineExceeded {
			cand.Status = model.StatusError
			cand.ApplyError = "timeout"
			return
		}
		cand.Status = model.StatusError
		cand.ApplyError = err.Error()
		return
	}

	// Fail-fast correctness: spec.md §4.5 step 3a/b and §8 "Benchmark
	// fail-fast" — exactly one execution before declaring FAIL.
	if !knobs.KnownTimeout {
		gotRows := int64(len(first.Rows))
		if gotRows != baselineRows {
			cand.Status = model.StatusFail
			zero := 0.0
			cand.Speedup = &zero
			cand.ApplyError = fmt.Sprintf("Row count mismatch: orig=%d cand=%d", baselineRows, gotRows)
			return
		}
		if equivalence.Checksum(first) != baselineChecksum {
			cand.Status = model.StatusFail
			zero := 0.0
			cand.Speedup = &zero
			cand.ApplyError = "Checksum mismatch"
			return
		}
	}

	extra, err := r.timeRuns(ctx, conn, cand.OutputSQL, knobs.CandidateRuns-1)
	if err != nil {
		cand.Status = model.StatusError
		cand.ApplyError = err.Error()
		return
	}

	patchMs := extra
	cand.PatchMs = &patchMs
	speedup := 0.0
	if cand.OriginalMs != nil && *cand.OriginalMs > 0 && patchMs > 0 {
		speedup = *cand.OriginalMs / patchMs
	}
	cand.Speedup = &speedup
	cand.SemanticPassed = true
	cand.CorrectnessVerified = true
	cand.Status = classify(knobs, speedup)
}

// timeBaseline runs the baseline query runs+1 times (one warmup, discarded),
// capturing row count / checksum from run 1 and the trimmed mean of the
// remaining runs (spec.md §4.5 step 2).
func (r *Runner) timeBaseline(ctx context.Context, conn Connection, sql string, runs int) (float64, equivalence.ResultSet, uint64, error) {
	if runs < 1 {
		runs = 1
	}
	// Warmup, discarded.
	if _, err := conn.Query(ctx, sql); err != nil {
		return 0, equivalence.ResultSet{}, 0, err
	}

	var rs, first equivalence.ResultSet
	var checksum uint64
	durations := make([]float64, 0, runs)
	for i := 0; i < runs; i++ {
		d, err := timed(func() error {
			var qerr error
			rs, qerr = conn.Query(ctx, sql)
			return qerr
		})
		if err != nil {
			return 0, equivalence.ResultSet{}, 0, err
		}
		if i == 0 {
			first = rs
			checksum = equivalence.Checksum(rs)
		}
		durations = append(durations, float64(d.Milliseconds()))
	}
	return trimmedMean(durations), first, checksum, nil
}

// timeRuns times sql exactly n times (n<=0 means zero additional runs,
// returning 0) and returns the trimmed mean in milliseconds.
func (r *Runner) timeRuns(ctx context.Context, conn Connection, sql string, n int) (float64, error) {
	if n <= 0 {
		return 0, nil
	}
	durations := make([]float64, 0, n)
	for i := 0; i < n; i++ {
		d, err := timed(func() error {
			_, qerr := conn.Query(ctx, sql)
			return qerr
		})
		if err != nil {
			return 0, err
		}
		durations = append(durations, float64(d.Milliseconds()))
	}
	return trimmedMean(durations), nil
}

// trimmedMean drops the single highest and lowest sample when there are
// enough of them, then averages the rest — standard jitter suppression for
// microbenchmark timing.
func trimmedMean(samples []float64) float64 {
	if len(samples) == 0 {
		return 0
	}
	if len(samples) <= 2 {
		return avg(samples)
	}
	sorted := append([]float64(nil), samples...)
	sort.Float64s(sorted)
	trimmed := sorted[1 : len(sorted)-1]
	return avg(trimmed)
}

func avg(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	var sum float64
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}

func classify(knobs Knobs, speedup float64) model.Status {
	if knobs.ClassifySpeedupFn != nil {
		return knobs.ClassifySpeedupFn(speedup)
	}
	return model.DefaultClassifySpeedup(speedup)
}

// BestCandidateIndex picks the passing candidate with the highest speedup,
// tie-broken by smaller SQL length, then lower patch count, then insertion
// order (spec.md §4.6). Insertion order falls out naturally: ties only
// displace the earlier candidate when strictly better on an earlier key.
// The orchestrator reuses this exact rule when assembling the final
// SessionResult across multiple benchmark batches (workers + sniper).
func BestCandidateIndex(candidates []*model.Candidate) int {
	best := -1
	for i, c := range candidates {
		if c.Status == model.StatusFail || c.Status == model.StatusError || c.Speedup == nil {
			continue
		}
		if best == -1 {
			best = i
			continue
		}
		if BetterCandidate(c, candidates[best]) {
			best = i
		}
	}
	return best
}

// BetterCandidate reports whether c should replace cur as the incumbent
// best, applying the tie-break chain of spec.md §4.6 in order.
func BetterCandidate(c, cur *model.Candidate) bool {
	if *c.Speedup != *cur.Speedup {
		return *c.Speedup > *cur.Speedup
	}
	if len(c.OutputSQL) != len(cur.OutputSQL) {
		return len(c.OutputSQL) < len(cur.OutputSQL)
	}
	return c.PatchCount < cur.PatchCount
}
