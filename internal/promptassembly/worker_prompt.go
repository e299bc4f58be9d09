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

package promptassembly

import (
	"fmt"
	"strings"

	"github.com/queryforge/sqlbeam/internal/transform"
)

// WorkerTask is one probe or focused target, normalized to the shape the
// worker prompt needs regardless of which mode produced it.
type WorkerTask struct {
	ID          string
	Hypothesis  string
	Reasoning   string
	AnchorHints []string
	HazardFlags []string
}

// WorkerPrompt renders the worker archetype for one task, per spec.md §4.7.
func WorkerPrompt(in SharedInputs, task WorkerTask, gold []transform.GoldExample, equivalenceTier int) string {
	var b strings.Builder

	b.WriteString("You are a worker stage of a SQL rewrite engine. Produce one executable rewrite.\n")
	fmt.Fprintf(&b, "query_id: %s\n", in.QueryID)
	fmt.Fprintf(&b, "dialect: %s %s\n", in.Dialect, in.DialectVersion)
	fmt.Fprintf(&b, "equivalence_tier: %d\n\n", equivalenceTier)

	fmt.Fprintf(&b, "hypothesis: %s\n", task.Hypothesis)
	fmt.Fprintf(&b, "reasoning: %s\n\n", task.Reasoning)

	if len(task.HazardFlags) > 0 {
		fmt.Fprintf(&b, "hazard_flags: %s\n\n", strings.Join(task.HazardFlags, ", "))
	}

	fmt.Fprintf(&b, "ir_node_map:\n%s\n\n", in.IRNodeMap)
	if len(task.AnchorHints) > 0 {
		fmt.Fprintf(&b, "anchor_hints: %s\n\n", strings.Join(task.AnchorHints, ", "))
	}

	writeGoldExamples(&b, gold)

	b.WriteString("Respond with one tree object, an array of 1 to 4 tree objects, or {\"steps\": [...]}.\n")
	b.WriteString("Every changed node must carry the full executable SQL fragment; never use ellipses.\n")
	b.WriteString("A safe no-change tree is an allowed response if no improvement is found.\n")
	b.WriteString("Output must be valid JSON and nothing else.\n")

	return b.String()
}

// RetryWorkerPrompt appends a gate-failure feedback block to the base worker
// prompt, per spec.md §4.6's retry policy.
func RetryWorkerPrompt(base, failedSQL, errorText, previousResponse string) string {
	var b strings.Builder
	b.WriteString(base)
	b.WriteString("\nThe previous attempt failed validation. Fix it.\n")
	fmt.Fprintf(&b, "previous_response:\n%s\n\n", previousResponse)
	fmt.Fprintf(&b, "failed_sql:\n%s\n\n", failedSQL)
	fmt.Fprintf(&b, "gate_error: %s\n", errorText)
	return b.String()
}
