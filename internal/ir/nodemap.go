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

package ir

import (
	"fmt"
	"strings"
)

// RenderNodeMap produces the compact human-readable outline of script
// described in spec.md §4.1: one line per statement, indented lines for
// CTEs, each tagged with its anchor hash in brackets. The result is fed to
// the analyst/worker prompts so the model can address subtrees by anchor.
func RenderNodeMap(script *ScriptIR) string {
	var b strings.Builder
	for _, stmt := range script.Statements {
		fmt.Fprintf(&b, "%s [%s]\n", stmt.ID, stmt.Body.Anchor)
		for _, cte := range stmt.Body.CTEs {
			fmt.Fprintf(&b, "  WITH %s [%s]\n", cte.Name, cte.Body.Anchor)
			writeClauseLines(&b, "    ", cte.Body)
		}
		writeClauseLines(&b, "  ", stmt.Body)
	}
	return b.String()
}

func writeClauseLines(b *strings.Builder, indent string, body *SelectBody) {
	if body.From != nil {
		fmt.Fprintf(b, "%sFROM %s [%s]\n", indent, RenderFrom(body.From), body.From.Anchor)
	}
	if body.Where != nil {
		fmt.Fprintf(b, "%sWHERE %s [%s]\n", indent, body.Where.Raw, body.Where.Anchor)
	}
	for _, g := range body.GroupBy {
		fmt.Fprintf(b, "%sGROUP BY %s [%s]\n", indent, g.Raw, g.Anchor)
	}
	if body.Having != nil {
		fmt.Fprintf(b, "%sHAVING %s [%s]\n", indent, body.Having.Raw, body.Having.Anchor)
	}
	for _, o := range body.OrderBy {
		fmt.Fprintf(b, "%sORDER BY %s [%s]\n", indent, o.Expr.Raw, o.Expr.Anchor)
	}
	if body.Limit != nil {
		fmt.Fprintf(b, "%sLIMIT %s [%s]\n", indent, body.Limit.Raw, body.Limit.Anchor)
	}
	for _, item := range body.SelectList {
		fmt.Fprintf(b, "%sSELECT %s [%s]\n", indent, item.Column(), item.Expr.Anchor)
	}
}

// OutputColumns returns the ordered (alias-or-text) output column names of
// the top-level SELECT of stmt — the invariant checked by the Validator's
// Tier-1 column-preservation gate (spec.md §4.4).
func OutputColumns(stmt *Statement) []string {
	cols := make([]string, 0, len(stmt.Body.SelectList))
	for _, item := range stmt.Body.SelectList {
		cols = append(cols, item.Column())
	}
	return cols
}

// Clone deep-copies a ScriptIR. The Patch Engine clones before every patch
// attempt so no shared mutable state exists between candidates (spec.md §5).
func Clone(script *ScriptIR) *ScriptIR {
	out := &ScriptIR{Dialect: script.Dialect}
	for _, s := range script.Statements {
		out.Statements = append(out.Statements, &Statement{
			ID:   s.ID,
			Body: cloneBody(s.Body),
		})
	}
	return out
}

func cloneBody(body *SelectBody) *SelectBody {
	if body == nil {
		return nil
	}
	out := &SelectBody{
		From:    cloneFrom(body.From),
		Where:   cloneExpr(body.Where),
		Having:  cloneExpr(body.Having),
		Limit:   cloneExpr(body.Limit),
		Anchor:  body.Anchor,
	}
	for _, c := range body.CTEs {
		out.CTEs = append(out.CTEs, &CTE{Name: c.Name, Body: cloneBody(c.Body)})
	}
	for _, g := range body.GroupBy {
		out.GroupBy = append(out.GroupBy, cloneExpr(g))
	}
	for _, o := range body.OrderBy {
		out.OrderBy = append(out.OrderBy, &OrderItem{Expr: cloneExpr(o.Expr), Desc: o.Desc})
	}
	for _, item := range body.SelectList {
		out.SelectList = append(out.SelectList, &SelectItem{Expr: cloneExpr(item.Expr), Alias: item.Alias})
	}
	return out
}

func cloneFrom(f *FromNode) *FromNode {
	if f == nil {
		return nil
	}
	out := &FromNode{
		Kind:     f.Kind,
		Table:    f.Table,
		Alias:    f.Alias,
		CTERef:   f.CTERef,
		JoinType: f.JoinType,
		On:       cloneExpr(f.On),
		Anchor:   f.Anchor,
	}
	if f.Subquery != nil {
		out.Subquery = cloneBody(f.Subquery)
	}
	out.Left = cloneFrom(f.Left)
	out.Right = cloneFrom(f.Right)
	return out
}

func cloneExpr(e *Expr) *Expr {
	if e == nil {
		return nil
	}
	out := &Expr{Text: e.Text, Raw: e.Raw, Op: e.Op, Anchor: e.Anchor}
	for _, c := range e.Children {
		out.Children = append(out.Children, cloneExpr(c))
	}
	return out
}
