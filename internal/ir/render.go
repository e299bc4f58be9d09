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

import "strings"

// Render re-renders SQL from an entire ScriptIR. Per spec.md §4.2's rendering
// policy, it preserves CTE order as stored, emits explicit AS on aliases,
// and uppercases keywords. Render must be idempotent:
// Render(Build(Render(ir))) == Render(ir).
func Render(script *ScriptIR) string {
	stmts := make([]string, 0, len(script.Statements))
	for _, s := range script.Statements {
		stmts = append(stmts, RenderBody(s.Body))
	}
	return strings.Join(stmts, ";\n") + ";"
}

// RenderBody renders a single SelectBody (statement or CTE body) to SQL text.
func RenderBody(body *SelectBody) string {
	var b strings.Builder

	if len(body.CTEs) > 0 {
		b.WriteString("WITH ")
		parts := make([]string, 0, len(body.CTEs))
		for _, cte := range body.CTEs {
			parts = append(parts, cte.Name+" AS (\n"+indent(RenderBody(cte.Body))+"\n)")
		}
		b.WriteString(strings.Join(parts, ",\n"))
		b.WriteString("\n")
	}

	b.WriteString("SELECT ")
	items := make([]string, 0, len(body.SelectList))
	for _, item := range body.SelectList {
		if item.Alias != "" {
			items = append(items, item.Expr.Raw+" AS "+item.Alias)
		} else {
			items = append(items, item.Expr.Raw)
		}
	}
	b.WriteString(strings.Join(items, ", "))

	if body.From != nil {
		b.WriteString("\nFROM ")
		b.WriteString(RenderFrom(body.From))
	}
	if body.Where != nil {
		b.WriteString("\nWHERE ")
		b.WriteString(body.Where.Raw)
	}
	if len(body.GroupBy) > 0 {
		b.WriteString("\nGROUP BY ")
		gb := make([]string, 0, len(body.GroupBy))
		for _, g := range body.GroupBy {
			gb = append(gb, g.Raw)
		}
		b.WriteString(strings.Join(gb, ", "))
	}
	if body.Having != nil {
		b.WriteString("\nHAVING ")
		b.WriteString(body.Having.Raw)
	}
	if len(body.OrderBy) > 0 {
		b.WriteString("\nORDER BY ")
		ob := make([]string, 0, len(body.OrderBy))
		for _, o := range body.OrderBy {
			dir := "ASC"
			if o.Desc {
				dir = "DESC"
			}
			ob = append(ob, o.Expr.Raw+" "+dir)
		}
		b.WriteString(strings.Join(ob, ", "))
	}
	if body.Limit != nil {
		b.WriteString("\nLIMIT ")
		b.WriteString(body.Limit.Raw)
	}

	return b.String()
}

// RenderFrom renders a FROM+JOIN tree, dialect-specializing nothing here —
// identifier quoting and interval syntax specialization live in the per-op
// renderers inside the patch engine where a dialect tag is actually in hand.
func RenderFrom(f *FromNode) string {
	if f == nil {
		return ""
	}
	switch f.Kind {
	case FromTable:
		if f.Alias != "" {
			return f.Table + " AS " + f.Alias
		}
		return f.Table
	case FromCTERef:
		if f.Alias != "" {
			return f.CTERef + " AS " + f.Alias
		}
		return f.CTERef
	case FromSubquery:
		s := "(" + RenderBody(f.Subquery) + ")"
		if f.Alias != "" {
			s += " AS " + f.Alias
		}
		return s
	case FromJoin:
		left := RenderFrom(f.Left)
		right := RenderFrom(f.Right)
		joinType := f.JoinType
		if joinType == "" {
			joinType = "INNER"
		}
		if joinType == "CROSS" {
			return left + ", " + right
		}
		s := left + " " + joinType + " JOIN " + right
		if f.On != nil {
			s += " ON " + f.On.Raw
		}
		return s
	default:
		return ""
	}
}

func indent(s string) string {
	lines := strings.Split(s, "\n")
	for i, l := range lines {
		lines[i] = "  " + l
	}
	return strings.Join(lines, "\n")
}
