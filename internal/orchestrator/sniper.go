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
	"sort"
	"strings"

	"github.com/queryforge/sqlbeam/internal/model"
	"github.com/queryforge/sqlbeam/internal/promptassembly"
)

// bestTwo returns the two highest-speedup passing candidates, best first.
// Fewer than two passing candidates disables the sniper phase.
func bestTwo(candidates []*model.Candidate) []*model.Candidate {
	var passing []*model.Candidate
	for _, c := range candidates {
		if c.Speedup != nil && c.Status != model.StatusFail && c.Status != model.StatusError {
			passing = append(passing, c)
		}
	}
	sort.SliceStable(passing, func(i, j int) bool { return *passing[i].Speedup > *passing[j].Speedup })
	if len(passing) > 2 {
		passing = passing[:2]
	}
	return passing
}

// runSniper implements spec.md §4.6's optional sniper phase: given the best
// and next-best candidates, ask for one or two compound rewrites combining
// their non-overlapping improvements.
func runSniper(ctx context.Context, candidates []*model.Candidate, deps workerDeps) []*model.Candidate {
	top := bestTwo(candidates)
	if len(top) < 2 {
		return nil
	}

	var results []promptassembly.StrikeResult
	for _, c := range top {
		results = append(results, promptassembly.StrikeResult{
			PatchID:     c.PatchID,
			Speedup:     *c.Speedup,
			ExplainText: c.ExplainText,
			SQL:         c.OutputSQL,
		})
	}

	prompt := promptassembly.SniperPrompt(deps.shared, results)
	response, err := deps.client.Analyze(ctx, prompt)
	if err != nil {
		return []*model.Candidate{{PatchID: "sniper-0", Family: model.FamilySniper, Status: model.StatusError, ApplyError: err.Error()}}
	}

	trees, err := promptassembly.ParseWorkerResponse(response)
	if err != nil {
		return []*model.Candidate{{PatchID: "sniper-0", Family: model.FamilySniper, Status: model.StatusError, ApplyError: fmt.Sprintf("sniper: %s", err)}}
	}

	var out []*model.Candidate
	for i, tree := range trees {
		cand := &model.Candidate{
			PatchID:        fmt.Sprintf("sniper-%d", i),
			Family:         model.FamilySniper,
			WorkerPrompt:   prompt,
			WorkerResponse: response,
		}
		applyTree(cand, tree, deps)
		validateCandidate(cand, deps)
		out = append(out, cand)
	}
	return out
}

// strikeTableSummary renders a one-line-per-candidate debug summary, mostly
// useful in session log artifacts.
func strikeTableSummary(candidates []*model.Candidate) string {
	var b strings.Builder
	for _, c := range candidates {
		speedup := 0.0
		if c.Speedup != nil {
			speedup = *c.Speedup
		}
		fmt.Fprintf(&b, "%s\t%s\t%.2fx\n", c.PatchID, c.Status, speedup)
	}
	return b.String()
}
