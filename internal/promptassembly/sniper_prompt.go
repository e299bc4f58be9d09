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
)

// StrikeResult is one row of the sniper's results table: a candidate that
// already ran through validation and benchmarking.
type StrikeResult struct {
	PatchID     string
	Speedup     float64
	ExplainText string
	SQL         string
}

// SniperPrompt renders the sniper archetype: given the best and next-best
// candidates, ask for one or two compound rewrites combining their
// non-overlapping improvements, per spec.md §4.6/§4.7.
func SniperPrompt(in SharedInputs, results []StrikeResult) string {
	var b strings.Builder

	b.WriteString("You are the sniper stage of a SQL rewrite engine.\n")
	fmt.Fprintf(&b, "query_id: %s\n", in.QueryID)
	fmt.Fprintf(&b, "dialect: %s %s\n\n", in.Dialect, in.DialectVersion)

	b.WriteString("strike_results:\n")
	for _, r := range results {
		fmt.Fprintf(&b, "- patch_id=%s speedup=%.2fx\n  sql: %s\n  explain: %s\n", r.PatchID, r.Speedup, r.SQL, r.ExplainText)
	}
	b.WriteString("\n")

	b.WriteString("Combine the non-overlapping improvements of these candidates into one or two compound rewrites.\n")
	b.WriteString("Respond with one or two tree objects in a JSON array.\n")
	b.WriteString("Every changed node must carry the full executable SQL fragment; never use ellipses.\n")
	b.WriteString("Output must be valid JSON and nothing else.\n")

	return b.String()
}
