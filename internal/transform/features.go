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

// Package transform implements the Transform Gate (spec.md §4.3): given SQL
// and a dialect, it returns the subset of known rewrite transforms whose
// feature fingerprint plausibly applies.
package transform

import (
	"strings"

	"github.com/queryforge/sqlbeam/internal/ir"
)

// Feature is a coarse AST predicate detected in a query, per spec.md §4.3.
type Feature string

const (
	HasCorrelatedSubquery Feature = "HAS_CORRELATED_SUBQUERY"
	HasOrAcrossColumns    Feature = "HAS_OR_ACROSS_COLUMNS"
	HasNotIn              Feature = "HAS_NOT_IN"
	RepeatsFactScan        Feature = "REPEATS_FACT_SCAN"
	HasWindowFunction      Feature = "HAS_WINDOW_FUNCTION"
	HasUnion               Feature = "HAS_UNION"
	HasSelfJoin            Feature = "HAS_SELF_JOIN"
	AggCountDistinct       Feature = "AGG_COUNT_DISTINCT"
	TableRepeat8Plus       Feature = "TABLE_REPEAT_8+"
)

// Detect computes the feature set of a parsed query. Detection is
// deliberately coarse (text/shape heuristics over the IR), matching the
// "coarse AST predicates" framing of spec.md §4.3 rather than full semantic
// analysis, which belongs to the validator/equivalence layers.
func Detect(script *ir.ScriptIR) map[Feature]bool {
	feats := make(map[Feature]bool)
	tableCounts := make(map[string]int)

	for _, stmt := range script.Statements {
		detectBody(stmt.Body, feats, tableCounts)
	}

	for _, n := range tableCounts {
		if n >= 8 {
			feats[TableRepeat8Plus] = true
		}
		if n >= 2 {
			feats[RepeatsFactScan] = true
		}
	}
	for table, count := range selfJoinCandidates(tableCounts) {
		if count >= 2 {
			feats[HasSelfJoin] = true
			_ = table
		}
	}
	return feats
}

func selfJoinCandidates(tableCounts map[string]int) map[string]int {
	return tableCounts
}

func detectBody(body *ir.SelectBody, feats map[Feature]bool, tableCounts map[string]int) {
	if body == nil {
		return
	}
	for _, cte := range body.CTEs {
		detectBody(cte.Body, feats, tableCounts)
	}
	countTables(body.From, tableCounts)
	detectFrom(body.From, feats, tableCounts)

	if body.Where != nil {
		detectExpr(body.Where, feats)
	}
	for _, g := range body.GroupBy {
		detectExpr(g, feats)
	}
	for _, item := range body.SelectList {
		detectExpr(item.Expr, feats)
	}
}

func countTables(f *ir.FromNode, counts map[string]int) {
	if f == nil {
		return
	}
	switch f.Kind {
	case ir.FromTable:
		counts[f.Table]++
	case ir.FromJoin:
		countTables(f.Left, counts)
		countTables(f.Right, counts)
	case ir.FromSubquery:
		for _, cte := range f.Subquery.CTEs {
			countTables(cte.Body.From, counts)
		}
		countTables(f.Subquery.From, counts)
	}
}

func detectFrom(f *ir.FromNode, feats map[Feature]bool, tableCounts map[string]int) {
	if f == nil {
		return
	}
	if f.Kind == ir.FromSubquery {
		detectBody(f.Subquery, feats, tableCounts)
	}
	if f.Kind == ir.FromJoin {
		detectFrom(f.Left, feats, tableCounts)
		detectFrom(f.Right, feats, tableCounts)
		if f.On != nil {
			detectExpr(f.On, feats)
		}
	}
}

func detectExpr(e *ir.Expr, feats map[Feature]bool) {
	if e == nil {
		return
	}
	lower := strings.ToLower(e.Text)
	switch {
	case strings.Contains(lower, "not in"):
		feats[HasNotIn] = true
	case strings.Contains(lower, " or "):
		feats[HasOrAcrossColumns] = true
	case strings.Contains(lower, "count(distinct"):
		feats[AggCountDistinct] = true
	case strings.Contains(lower, "over ("), strings.Contains(lower, "over("):
		feats[HasWindowFunction] = true
	case strings.Contains(lower, "union"):
		feats[HasUnion] = true
	case strings.Contains(lower, "select") && strings.Contains(lower, "where"):
		// A nested SELECT referencing an outer-scope column is the
		// correlated-subquery signal; this coarse heuristic flags any
		// expression whose text contains both SELECT and WHERE, without
		// checking for an outer reference, and lets the worker lane confirm
		// correlation.
		feats[HasCorrelatedSubquery] = true
	}
	for _, c := range e.Children {
		detectExpr(c, feats)
	}
}
