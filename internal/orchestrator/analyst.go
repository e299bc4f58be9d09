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

	"github.com/queryforge/sqlbeam/internal/llm"
	"github.com/queryforge/sqlbeam/internal/promptassembly"
)

// runAnalyst builds and issues the analyst prompt, returning a normalized
// list of worker tasks regardless of mode (spec.md §4.6 "Analyst phase").
func runAnalyst(ctx context.Context, client llm.Client, in promptassembly.SharedInputs, mode Mode) ([]promptassembly.WorkerTask, error) {
	promptMode := "wide"
	if mode == ModeFocused {
		promptMode = "focused"
	}

	prompt := promptassembly.AnalystPrompt(in, promptMode)
	response, err := client.Analyze(ctx, prompt)
	if err != nil {
		return nil, fmt.Errorf("orchestrator: analyst call: %w", err)
	}

	if promptMode == "focused" {
		targets, err := promptassembly.ParseFocusedTargets(response)
		if err != nil {
			return nil, err
		}
		tasks := make([]promptassembly.WorkerTask, len(targets))
		for i, t := range targets {
			tasks[i] = promptassembly.WorkerTask{ID: t.ID, Hypothesis: t.Hypothesis, Reasoning: t.Reasoning, AnchorHints: t.AnchorHints, HazardFlags: t.HazardFlags}
		}
		return tasks, nil
	}

	scout, err := promptassembly.ParseScoutResult(response)
	if err != nil {
		return nil, err
	}
	tasks := make([]promptassembly.WorkerTask, len(scout.Probes))
	for i, p := range scout.Probes {
		tasks[i] = promptassembly.WorkerTask{ID: p.ID, Hypothesis: p.Hypothesis, Reasoning: p.Reasoning, AnchorHints: p.AnchorHints}
	}
	return tasks, nil
}
