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

// Package validate implements the three-tier Validator described in
// spec.md §4.4: Tier-1 structural (no DB), Tier-2 synthetic (small sampled
// data) and Tier-3 full dataset, each a blocking gate for the next.
package validate

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/queryforge/sqlbeam/internal/dialect"
	"github.com/queryforge/sqlbeam/internal/ir"
)

// Tier1Result is the outcome of the structural gate.
type Tier1Result struct {
	Passed bool
	Reason string
}

// Tier1 runs the structural checks of spec.md §4.4 against candidateSQL,
// given the baseline statement it must remain column-compatible with
// (unless declaresSelectListChange is true, signalling the patch plan
// explicitly targeted select_list).
func Tier1(candidateSQL string, dial dialect.Name, baseline *ir.Statement, declaresSelectListChange bool) Tier1Result {
	script, err := ir.BuildScriptIR(candidateSQL, dial)
	if err != nil {
		return Tier1Result{Passed: false, Reason: fmt.Sprintf("parse error: %s", err)}
	}
	if len(script.Statements) != 1 {
		return Tier1Result{Passed: false, Reason: fmt.Sprintf("expected 1 statement, got %d", len(script.Statements))}
	}
	candidate := script.Statements[0]

	if !declaresSelectListChange {
		want := ir.OutputColumns(baseline)
		got := ir.OutputColumns(candidate)
		if !columnsMatch(want, got) {
			return Tier1Result{Passed: false, Reason: fmt.Sprintf("output columns changed: want %v got %v", want, got)}
		}
	}

	if reason, ok := undeclaredIdentifiers(candidate.Body); !ok {
		return Tier1Result{Passed: false, Reason: reason}
	}

	if reason, ok := noUnreferencedCTEs(candidate.Body); !ok {
		return Tier1Result{Passed: false, Reason: reason}
	}

	return Tier1Result{Passed: true}
}

func columnsMatch(want, got []string) bool {
	if len(want) != len(got) {
		return false
	}
	for i := range want {
		if !strings.EqualFold(want[i], got[i]) {
			return false
		}
	}
	return true
}

// undeclaredIdentifiers collects the table, CTE and derived-table names the
// IR builder resolved in the FROM scope and fails when a derived table has no
// alias. It does not check that qualifiers used elsewhere in the statement
// name a declared table or alias, and it does not validate column-level
// references, which requires a schema.
func undeclaredIdentifiers(body *ir.SelectBody) (string, bool) {
	declared := scopeNames(body.From)
	for name := range declared {
		if name == "" {
			return "FROM clause has an unaliased derived table", false
		}
	}
	return "", true
}

func scopeNames(f *ir.FromNode) map[string]bool {
	out := make(map[string]bool)
	var walk func(*ir.FromNode)
	walk = func(n *ir.FromNode) {
		if n == nil {
			return
		}
		switch n.Kind {
		case ir.FromTable, ir.FromCTERef:
			name := n.Alias
			if name == "" {
				name = n.Table
				if name == "" {
					name = n.CTERef
				}
			}
			out[name] = true
		case ir.FromSubquery:
			out[n.Alias] = true
		case ir.FromJoin:
			walk(n.Left)
			walk(n.Right)
		}
	}
	walk(f)
	return out
}

// noUnreferencedCTEs checks that every defined CTE is referenced somewhere
// in the statement, per spec.md §4.4 Tier-1 bullet 4. A CTE name can appear
// either as a FROM/JOIN table reference (structurally resolved by the IR
// builder into FromCTERef) or buried inside a scalar/EXISTS/IN subquery that
// the IR keeps as an opaque Expr.Raw string — those are picked up by a
// word-boundary text scan instead, since the IR does not parse expression
// subqueries into a walkable SelectBody.
func noUnreferencedCTEs(body *ir.SelectBody) (string, bool) {
	if len(body.CTEs) == 0 {
		return "", true
	}
	names := make([]string, 0, len(body.CTEs))
	for _, cte := range body.CTEs {
		names = append(names, cte.Name)
	}

	referenced := make(map[string]bool)
	collectCTERefs(body.From, referenced)
	collectCTERefsFromExprs(body, names, referenced)
	for _, cte := range body.CTEs {
		collectCTERefs(cte.Body.From, referenced)
		collectCTERefsFromExprs(cte.Body, names, referenced)
	}
	for _, cte := range body.CTEs {
		if !referenced[cte.Name] {
			return fmt.Sprintf("CTE %q is defined but never referenced", cte.Name), false
		}
	}
	return "", true
}

func collectCTERefs(f *ir.FromNode, out map[string]bool) {
	if f == nil {
		return
	}
	switch f.Kind {
	case ir.FromCTERef:
		out[f.CTERef] = true
	case ir.FromJoin:
		collectCTERefs(f.Left, out)
		collectCTERefs(f.Right, out)
	case ir.FromSubquery:
		collectCTERefs(f.Subquery.From, out)
	}
}

// collectCTERefsFromExprs scans every expression clause of body (WHERE,
// HAVING, GROUP BY, ORDER BY, the select list, LIMIT) for any of names used
// as a bare identifier, which is how a CTE name surfaces in a subquery
// buried inside a scalar/EXISTS/IN expression. names is the full set of CTEs
// defined on the statement, not just on body, since a CTE's own body can
// reference a sibling CTE defined earlier in the same WITH clause. It marks
// a name referenced in out regardless of which CTE actually owns it;
// noUnreferencedCTEs only cares whether each defined name appears
// somewhere, not where.
func collectCTERefsFromExprs(body *ir.SelectBody, names []string, out map[string]bool) {
	if body == nil || len(names) == 0 {
		return
	}
	var b strings.Builder
	writeExprRaw(&b, body.Where)
	writeExprRaw(&b, body.Having)
	writeExprRaw(&b, body.Limit)
	for _, g := range body.GroupBy {
		writeExprRaw(&b, g)
	}
	for _, o := range body.OrderBy {
		writeExprRaw(&b, o.Expr)
	}
	for _, item := range body.SelectList {
		writeExprRaw(&b, item.Expr)
	}
	text := b.String()
	for _, name := range names {
		if out[name] {
			continue
		}
		if identifierPattern(name).MatchString(text) {
			out[name] = true
		}
	}
}

func writeExprRaw(b *strings.Builder, e *ir.Expr) {
	if e == nil {
		return
	}
	b.WriteString(e.Raw)
	b.WriteByte(' ')
}

func identifierPattern(name string) *regexp.Regexp {
	return regexp.MustCompile(`(?i)\b` + regexp.QuoteMeta(name) + `\b`)
}
