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

// AnalystPrompt renders the analyst archetype for the given mode ("wide" or
// "focused"). Both branches declare a strict JSON output schema, per
// spec.md §4.7.
func AnalystPrompt(in SharedInputs, mode string) string {
	var b strings.Builder

	fmt.Fprintf(&b, "You are the analyst stage of a SQL rewrite engine.\n")
	fmt.Fprintf(&b, "query_id: %s\n", in.QueryID)
	fmt.Fprintf(&b, "dialect: %s %s\n", in.Dialect, in.DialectVersion)
	fmt.Fprintf(&b, "importance_stars: %d\n", in.ImportanceStars)
	fmt.Fprintf(&b, "equivalence_tier: %d\n\n", in.EquivalenceTier)

	fmt.Fprintf(&b, "original_sql:\n%s\n\n", in.OriginalSQL)
	fmt.Fprintf(&b, "explain_text:\n%s\n\n", in.ExplainText)
	fmt.Fprintf(&b, "ir_node_map:\n%s\n\n", in.IRNodeMap)

	if in.SchemaContext != "" {
		fmt.Fprintf(&b, "schema_context:\n%s\n\n", in.SchemaContext)
	}
	if in.EngineKnowledge != "" {
		fmt.Fprintf(&b, "engine_knowledge:\n%s\n\n", in.EngineKnowledge)
	}

	writeApplicableTransforms(&b, in.ApplicableTransforms)
	writeGoldExamples(&b, in.GoldExamples)

	if len(in.DoNotDo) > 0 {
		fmt.Fprintf(&b, "do_not_do:\n")
		for _, d := range in.DoNotDo {
			fmt.Fprintf(&b, "- %s\n", d)
		}
		b.WriteString("\n")
	}

	switch mode {
	case "focused":
		fmt.Fprintf(&b, "Mode: focused. Propose between 1 and %d deep targets.\n", FocusedTargetCap)
		b.WriteString("Respond with a JSON array of targets, each: {id, hypothesis, reasoning, anchor_hints[], hazard_flags[]}.\n")
	default:
		fmt.Fprintf(&b, "Mode: wide. Propose between 1 and %d shallow, diverse probes covering distinct transforms.\n", WideProbeCap)
		b.WriteString("Respond with JSON: {dispatch, probes: [{id, hypothesis, reasoning, anchor_hints[]}]}.\n")
	}
	b.WriteString("Diversify probes across different applicable_transforms; do not repeat the same hypothesis twice.\n")
	b.WriteString("Output must be valid JSON and nothing else.\n")

	return b.String()
}

func writeApplicableTransforms(b *strings.Builder, cands []transform.Candidate) {
	if len(cands) == 0 {
		return
	}
	b.WriteString("applicable_transforms:\n")
	for _, c := range cands {
		tag := ""
		if c.PortabilityCandidate {
			tag = " (contraindicated on this dialect, portability-only)"
		}
		fmt.Fprintf(b, "- %s score=%.2f%s\n", c.Transform.Name, c.Score, tag)
	}
	b.WriteString("\n")
}

func writeGoldExamples(b *strings.Builder, examples []transform.GoldExample) {
	if len(examples) == 0 {
		return
	}
	b.WriteString("gold_examples:\n")
	for _, g := range examples {
		fmt.Fprintf(b, "- %s (%s): %s\n  original: %s\n  optimized: %s\n", g.ID, g.Dialect, g.Description, g.OriginalSQL, g.OptimizedSQL)
	}
	b.WriteString("\n")
}
