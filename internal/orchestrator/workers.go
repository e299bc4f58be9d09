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
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/queryforge/sqlbeam/internal/ir"
	"github.com/queryforge/sqlbeam/internal/llm"
	"github.com/queryforge/sqlbeam/internal/model"
	"github.com/queryforge/sqlbeam/internal/patch"
	"github.com/queryforge/sqlbeam/internal/promptassembly"
	"github.com/queryforge/sqlbeam/internal/validate"
)

// workerDeps bundles everything a worker task needs to go from a probe or
// focused target to zero or more validated candidates.
type workerDeps struct {
	client    llm.Client
	shared    promptassembly.SharedInputs
	baseline  *ir.Statement
	engine    *patch.Engine
	validator *validate.Validator
	synthetic validate.Executor
	full      validate.Executor
	family    model.Family
	poolSize  int
}

// runWorkers fans out one LLM call per task over a bounded pool (spec.md
// §4.6 "Workers phase"), applying and validating every tree each worker
// returns. Diagnosable Tier-1 failures are retried exactly once.
func runWorkers(ctx context.Context, tasks []promptassembly.WorkerTask, deps workerDeps) []*model.Candidate {
	var mu sync.Mutex
	var out []*model.Candidate

	g, gctx := errgroup.WithContext(ctx)
	poolSize := deps.poolSize
	if poolSize <= 0 {
		poolSize = 8
	}
	g.SetLimit(poolSize)

	for i, task := range tasks {
		task := task
		idx := i
		g.Go(func() error {
			cands := runOneWorker(gctx, task, idx, deps)
			mu.Lock()
			out = append(out, cands...)
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()
	return out
}

func runOneWorker(ctx context.Context, task promptassembly.WorkerTask, idx int, deps workerDeps) []*model.Candidate {
	prompt := promptassembly.WorkerPrompt(deps.shared, task, deps.shared.GoldExamples, deps.shared.EquivalenceTier)
	response, err := deps.client.Analyze(ctx, prompt)
	if err != nil {
		return []*model.Candidate{{
			PatchID:    fmt.Sprintf("%s-%d", task.ID, idx),
			Family:     deps.family,
			Status:     model.StatusError,
			ApplyError: err.Error(),
		}}
	}

	trees, err := promptassembly.ParseWorkerResponse(response)
	if err != nil {
		cand := &model.Candidate{
			PatchID:        fmt.Sprintf("%s-%d", task.ID, idx),
			Family:         deps.family,
			WorkerPrompt:   prompt,
			WorkerResponse: response,
		}
		applyRetry(ctx, cand, task, prompt, response, err.Error(), "", deps)
		return []*model.Candidate{cand}
	}

	var out []*model.Candidate
	for ti, tree := range trees {
		cand := &model.Candidate{
			PatchID:        fmt.Sprintf("%s-%d-%d", task.ID, idx, ti),
			Family:         deps.family,
			WorkerPrompt:   prompt,
			WorkerResponse: response,
		}
		applyTree(cand, tree, deps)
		validateCandidate(cand, deps)
		if isDiagnosableFailure(cand) {
			applyRetry(ctx, cand, task, prompt, response, cand.ApplyError, cand.OutputSQL, deps)
		}
		out = append(out, cand)
	}
	return out
}

// applyTree applies one parsed tree to the candidate: either the patch plan
// via the Patch Engine, or the whole-SQL rewrite directly.
func applyTree(cand *model.Candidate, tree promptassembly.Tree, deps workerDeps) {
	if tree.Plan != nil {
		result := deps.engine.Apply(&ir.ScriptIR{Dialect: deps.shared.Dialect, Statements: []*ir.Statement{deps.baseline}}, tree.Plan)
		cand.OutputSQL = result.OutputSQL
		cand.PatchCount = len(tree.Plan.Steps)
		if !result.Success {
			cand.ApplyError = strings.Join(result.Errors, "; ")
		}
		return
	}
	cand.OutputSQL = tree.OptimizedSQL
	cand.PatchCount = 1
}

func validateCandidate(cand *model.Candidate, deps workerDeps) {
	if cand.OutputSQL == "" {
		cand.Status = model.StatusError
		if cand.ApplyError == "" {
			cand.ApplyError = "empty rewrite"
		}
		return
	}
	verdict := deps.validator.Run(context.Background(), cand.OutputSQL, deps.shared.Dialect, deps.baseline, false, deps.synthetic, deps.full)
	if !verdict.Passed {
		cand.Status = model.StatusFail
		cand.ApplyError = verdict.Reason
		return
	}
	cand.SemanticPassed = true
	cand.CorrectnessVerified = verdict.Tier == 3
}

// isDiagnosableFailure reports whether cand failed, has not been retried yet,
// and carries one of the Tier-1 validator or response-parsing messages listed
// below, making it eligible for exactly one retry. Other failures, such as
// patch-engine errors or unknown aliases and columns (which Tier-1 does not
// report), are not retried.
func isDiagnosableFailure(cand *model.Candidate) bool {
	if cand.Status != model.StatusFail && cand.Status != model.StatusError {
		return false
	}
	if cand.RetryCount > 0 {
		return false
	}
	reason := strings.ToLower(cand.ApplyError)
	diagnosable := []string{
		"unaliased derived table",
		"defined but never referenced",
		"output columns changed",
		"malformed llm response",
		"exceeds step count cap",
		"parse error",
	}
	for _, d := range diagnosable {
		if strings.Contains(reason, d) {
			return true
		}
	}
	return false
}

// applyRetry issues the one permitted retry worker call of spec.md §4.6,
// embedding the gate-failure feedback, then re-applies and re-validates.
func applyRetry(ctx context.Context, cand *model.Candidate, task promptassembly.WorkerTask, basePrompt, previousResponse, errorText, failedSQL string, deps workerDeps) {
	cand.RetryCount++
	retryPrompt := promptassembly.RetryWorkerPrompt(basePrompt, failedSQL, errorText, previousResponse)
	response, err := deps.client.Analyze(ctx, retryPrompt)
	if err != nil {
		cand.Status = model.StatusError
		cand.ApplyError = err.Error()
		return
	}
	cand.WorkerResponse = response

	trees, err := promptassembly.ParseWorkerResponse(response)
	if err != nil || len(trees) == 0 {
		cand.Status = model.StatusError
		cand.ApplyError = "retry: malformed response"
		return
	}

	cand.Family = model.FamilyRetry
	cand.Status = ""
	cand.ApplyError = ""
	applyTree(cand, trees[0], deps)
	validateCandidate(cand, deps)
}
