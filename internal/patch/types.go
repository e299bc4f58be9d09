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

// Package patch implements the Patch Engine (spec.md §4.2): applying an
// ordered, declarative PatchPlan of anchor-addressed edits to a Script IR.
package patch

import (
	"github.com/queryforge/sqlbeam/internal/dialect"
	"github.com/queryforge/sqlbeam/internal/ir"
)

// Op is one of the closed set of edit operations spec.md §3 defines.
type Op string

const (
	OpInsertCTE               Op = "insert_cte"
	OpReplaceFrom             Op = "replace_from"
	OpReplaceWherePredicate   Op = "replace_where_predicate"
	OpReplaceBody             Op = "replace_body"
	OpReplaceExprSubtree      Op = "replace_expr_subtree"
	OpDeleteExprSubtree       Op = "delete_expr_subtree"
	OpReplaceBlockWithCTEPair Op = "replace_block_with_cte_pair"
)

// Target selects the part of the IR a step acts on.
type Target struct {
	ByNodeID     ir.NodeID     `json:"by_node_id,omitempty"`
	ByLabel      string        `json:"by_label,omitempty"`
	ByAnchorHash ir.AnchorHash `json:"by_anchor_hash,omitempty"`
}

// Payload carries the op-specific SQL fragments a step applies, per the
// op table in spec.md §3.
type Payload struct {
	CTEName     string `json:"cte_name,omitempty"`
	CTEQuerySQL string `json:"cte_query_sql,omitempty"`
	FromSQL     string `json:"from_sql,omitempty"`
	ExprSQL     string `json:"expr_sql,omitempty"`
	SQLFragment string `json:"sql_fragment,omitempty"`
}

// Step is one typed edit. Wire-format keys match spec.md §3's PatchPlan
// step schema; the JSON parser is strict on keys but permissive on unknown
// fields, which Go's encoding/json already ignores silently.
type Step struct {
	StepID      string  `json:"step_id"`
	Op          Op      `json:"op"`
	Target      Target  `json:"target"`
	Payload     Payload `json:"payload"`
	Description string  `json:"description,omitempty"`
}

// Plan is an ordered list of Steps applied in sequence; each step sees the
// IR state produced by its predecessors (spec.md §3).
type Plan struct {
	PlanID         string      `json:"plan_id"`
	Dialect        dialect.Name `json:"-"`
	Steps          []Step      `json:"steps"`
	Preconditions  []string    `json:"preconditions,omitempty"`
	Postconditions []string    `json:"postconditions,omitempty"`
}

// Result is the outcome of applying a Plan, per spec.md §4.2.
type Result struct {
	Success      bool
	OutputSQL    string
	OutputIR     *ir.ScriptIR
	StepsApplied int
	StepsTotal   int
	Errors       []string
}
