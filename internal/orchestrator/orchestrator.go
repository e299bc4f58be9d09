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

package orchestrator

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/queryforge/sqlbeam/internal/bench"
	"github.com/queryforge/sqlbeam/internal/ir"
	"github.com/queryforge/sqlbeam/internal/llm"
	"github.com/queryforge/sqlbeam/internal/model"
	"github.com/queryforge/sqlbeam/internal/patch"
	"github.com/queryforge/sqlbeam/internal/promptassembly"
	"github.com/queryforge/sqlbeam/internal/transform"
	"github.com/queryforge/sqlbeam/internal/validate"
)

// Orchestrator drives the state machine of spec.md §4.6:
//
//	INIT → ANALYST → WORKERS(parallel) → VALIDATE → BENCHMARK →
//	  [RETRY_TIER1 → VALIDATE → BENCHMARK]? → SNIPER(optional) → COMPLETE
//
// VALIDATE and the Tier-1 retry are folded into the Workers phase here
// (each worker validates and, if diagnosable, retries its own candidate
// before returning it) so that a single Benchmark Runner call - which
// owns the one permitted database connection for the whole phase - sees
// the final candidate pool exactly once.
//
// Consequence: no candidate's speedup is known until BENCHMARK runs, which
// is after every worker has already returned, so Config.EarlyStopSpeedup
// cannot cancel in-flight workers the way spec.md §4.6 describes - there is
// nothing to compare against yet while WORKERS is still running. Giving a
// worker its own benchmark connection to get an early, incremental speedup
// reading would break the single-connection-per-phase contract above. See
// DESIGN.md for the accepted deviation.
type Orchestrator struct {
	Config    Config
	Engine    *patch.Engine
	Validator *validate.Validator
	Runner    *bench.Runner
	Synthetic validate.Executor
	Full      validate.Executor
	Log       *logrus.Entry
}

// New constructs an Orchestrator from its collaborators.
func New(cfg Config, engine *patch.Engine, validator *validate.Validator, runner *bench.Runner, synthetic, full validate.Executor, log *logrus.Entry) *Orchestrator {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Orchestrator{Config: cfg, Engine: engine, Validator: validator, Runner: runner, Synthetic: synthetic, Full: full, Log: log}
}

// RunQuery executes the full beam search for one query, per spec.md §4.6.
// timeShare is this query's fraction of the batch's total baseline time,
// consulted by the workload router; pass 0 for single-query sessions.
// forcedMode overrides the router's choice when non-empty (still subject to
// the reasoning-lane-disabled fallback of spec.md §4.6).
func (o *Orchestrator) RunQuery(ctx context.Context, queryID, sql, explainText string, timeShare float64, forcedMode Mode) (model.SessionResult, error) {
	script, err := ir.BuildScriptIR(sql, o.Config.DialectProfile.Name)
	if err != nil {
		return model.SessionResult{}, fmt.Errorf("orchestrator: fatal configuration error parsing query %s: %w", queryID, err)
	}
	if len(script.Statements) == 0 {
		return model.SessionResult{}, fmt.Errorf("orchestrator: query %s has no statements", queryID)
	}
	baseline := script.Statements[0]

	runID := uuid.NewString()
	log := o.Log.WithField("run_id", runID)

	applicable := transform.Applicable(script, o.Config.DialectProfile)
	mode := forcedMode
	if mode == "" {
		mode = SelectMode(timeShare, o.Config)
	} else if mode == ModeFocused && !o.Config.Clients.ReasoningLaneEnabled() {
		mode = ModeWide
	}

	shared := promptassembly.SharedInputs{
		QueryID:              queryID,
		OriginalSQL:          sql,
		ExplainText:          explainText,
		IRNodeMap:            ir.RenderNodeMap(script),
		Dialect:              o.Config.DialectProfile.Name,
		DialectVersion:       o.Config.DialectProfile.Version,
		SchemaContext:        o.Config.SchemaContext,
		EngineKnowledge:      o.Config.EngineKnowledge,
		ApplicableTransforms: applicable,
		GoldExamples:         goldExamplesFor(applicable, o.Config.GoldExamples),
		ImportanceStars:      o.Config.ImportanceStars,
		EquivalenceTier:      o.Config.EquivalenceTier,
		DoNotDo:              o.Config.DoNotDo,
	}

	analystClient := o.Config.Clients.For(laneFor(mode))
	tasks, err := runAnalyst(ctx, analystClient, shared, mode)
	if err != nil {
		// spec.md §4.6: "an empty response is a hard failure for the
		// session." Treated as a session abort, not an error (spec.md §7
		// kind 4): best_patch_idx=null, original SQL is the caller's
		// fallback.
		log.WithField("query_id", queryID).WithError(err).Warn("analyst phase produced no usable probes or targets")
		return abortResult(runID, queryID), nil
	}

	wdeps := workerDeps{
		client:    o.Config.Clients.For(laneFor(mode)),
		shared:    shared,
		baseline:  baseline,
		engine:    o.Engine,
		validator: o.Validator,
		synthetic: o.Synthetic,
		full:      o.Full,
		family:    familyForMode(mode),
		poolSize:  o.Config.WorkerPoolSize,
	}
	candidates := runWorkers(ctx, tasks, wdeps)

	passing := passingCandidates(candidates)
	if len(passing) == 0 {
		return abortResult(runID, queryID), nil
	}

	summary, err := o.Runner.Run(ctx, passing, sql, o.Config.ConnSpec, o.Config.BenchKnobs)
	if err != nil {
		return model.SessionResult{}, fmt.Errorf("orchestrator: benchmark phase for query %s: %w", queryID, err)
	}

	if o.Config.EnableSniper {
		sniperDeps := wdeps
		sniperDeps.client = o.Config.Clients.For(llm.FamilyReasoning)
		sniperCandidates := runSniper(ctx, candidates, sniperDeps)
		sniperPassing := passingCandidates(sniperCandidates)
		if len(sniperPassing) > 0 {
			if _, err := o.Runner.Run(ctx, sniperPassing, sql, o.Config.ConnSpec, o.Config.BenchKnobs); err != nil {
				log.WithField("query_id", queryID).WithError(err).Warn("sniper benchmark phase failed; discarding sniper candidates")
			} else {
				candidates = append(candidates, sniperCandidates...)
			}
		}
	}

	result := model.SessionResult{
		RunID:            runID,
		QueryID:          queryID,
		BaselineMs:       summary.BaselineMs,
		BaselineRows:     summary.BaselineRows,
		BaselineChecksum: summary.BaselineChecksum,
		Candidates:       candidates,
	}

	bestIdx := bench.BestCandidateIndex(candidates)
	if bestIdx < 0 {
		result.BestPatchIdx = nil
		return result, nil
	}
	result.BestPatchIdx = &bestIdx
	result.BestSpeedup = *candidates[bestIdx].Speedup
	return result, nil
}

// abortResult implements spec.md §7 kind 4: "Session aborts... emit a
// SessionResult with best_patch_idx=null and the original SQL as the best;
// do not raise." The original SQL fallback is the caller's responsibility
// (it already has it); this orchestrator only ever reports candidates it
// produced itself.
func abortResult(runID, queryID string) model.SessionResult {
	return model.SessionResult{RunID: runID, QueryID: queryID, BestPatchIdx: nil}
}

// passingCandidates returns candidates that cleared validation and carry a
// rewrite worth benchmarking.
func passingCandidates(candidates []*model.Candidate) []*model.Candidate {
	var out []*model.Candidate
	for _, c := range candidates {
		if c.OutputSQL == "" {
			continue
		}
		if c.Status == model.StatusFail || c.Status == model.StatusError {
			continue
		}
		out = append(out, c)
	}
	return out
}

// laneFor picks the LLM family serving a given mode's worker/analyst lane.
func laneFor(mode Mode) llm.Family {
	if mode == ModeFocused || mode == ModeReasoning {
		return llm.FamilyReasoning
	}
	return llm.FamilyFast
}

func familyForMode(mode Mode) model.Family {
	switch mode {
	case ModeFocused:
		return model.FamilyWorkerFocused
	case ModeReasoning:
		return model.FamilyReasoning
	default:
		return model.FamilyWorkerWide
	}
}

// goldExamplesFor collects up to two gold examples per applicable
// transform, per spec.md §4.7's "one or two gold examples" worker input.
func goldExamplesFor(candidates []transform.Candidate, lookup func(string) []transform.GoldExample) []transform.GoldExample {
	if lookup == nil {
		var out []transform.GoldExample
		for _, c := range candidates {
			for i, g := range c.Transform.GoldExamples {
				if i >= 2 {
					break
				}
				out = append(out, g)
			}
		}
		return out
	}
	var out []transform.GoldExample
	for _, c := range candidates {
		examples := lookup(c.Transform.Name)
		for i, g := range examples {
			if i >= 2 {
				break
			}
			out = append(out, g)
		}
	}
	return out
}
