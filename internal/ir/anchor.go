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

	"github.com/cespare/xxhash/v2"
)

// AnchorHash is a 16-hex-char fingerprint of a canonicalized SQL subtree, as
// defined in spec.md §3. Two syntactically identical subtrees collide
// intentionally; callers disambiguate by node_id when that happens.
type AnchorHash string

// Anchor computes the anchor hash of normalized SQL text. Canonicalization
// (lowercasing, whitespace collapse) must already have been applied by the
// caller — Anchor itself is a pure hash, kept separate so tests can assert on
// canonicalization independently of hashing.
func Anchor(canonicalText string) AnchorHash {
	sum := xxhash.Sum64String(canonicalText)
	return AnchorHash(fmt.Sprintf("%016x", sum))
}

// Canonicalize lowercases s and collapses runs of whitespace to a single
// space, per spec.md §3 ("lowercase, whitespace-collapsed, stable across
// sqlglot revisions" in the source; this engine's renderer is the stability
// boundary instead).
func Canonicalize(s string) string {
	fields := strings.Fields(strings.ToLower(s))
	return strings.Join(fields, " ")
}

// recomputeExpr recomputes the anchor of e and, recursively, every
// descendant, bottom-up, then returns the resulting hash. Children are
// always hashed before their parent since a parent's canonical text embeds
// its children's text. For an AND/OR node (Op != ""), Raw is first rebuilt
// from the (possibly edited) Children so that a fold or replace below a
// clause root reflows into the rendered SQL instead of leaving the node's
// original text stale.
func recomputeExpr(e *Expr) AnchorHash {
	if e == nil {
		return ""
	}
	for _, c := range e.Children {
		recomputeExpr(c)
	}
	if e.Op != "" {
		e.Raw = rebuildConnective(e.Op, e.Children)
	}
	e.Text = Canonicalize(e.Raw)
	e.Anchor = Anchor(e.Text)
	return e.Anchor
}

// rebuildConnective reconstructs an AND/OR node's rendered text from its
// surviving operands, in order. A single surviving operand collapses to
// just that operand's text (the connective drops out); zero operands yields
// an empty string, which verifySingleSelectBody's re-parse catches as an
// invalid predicate rather than silently rendering a dangling WHERE/ON.
func rebuildConnective(op string, children []*Expr) string {
	switch len(children) {
	case 0:
		return ""
	case 1:
		return children[0].Raw
	default:
		parts := make([]string, len(children))
		for i, c := range children {
			parts[i] = c.Raw
		}
		return strings.Join(parts, " "+op+" ")
	}
}

// recomputeFrom recomputes anchors across a FROM+JOIN tree bottom-up.
func recomputeFrom(f *FromNode, render func(*FromNode) string) AnchorHash {
	if f == nil {
		return ""
	}
	switch f.Kind {
	case FromJoin:
		recomputeFrom(f.Left, render)
		recomputeFrom(f.Right, render)
		recomputeExpr(f.On)
	case FromSubquery:
		RecomputeAnchors(f.Subquery, render)
	}
	f.Anchor = Anchor(Canonicalize(render(f)))
	return f.Anchor
}

// RecomputeAnchors recomputes every anchor hash in body, bottom-up, per the
// Patch Engine contract (spec.md §4.2 step 2d: "Recompute anchor hashes on
// the modified subtree and any ancestors").
func RecomputeAnchors(body *SelectBody, renderFrom func(*FromNode) string) {
	if body == nil {
		return
	}
	for _, cte := range body.CTEs {
		RecomputeAnchors(cte.Body, renderFrom)
	}
	recomputeFrom(body.From, renderFrom)
	recomputeExpr(body.Where)
	for _, g := range body.GroupBy {
		recomputeExpr(g)
	}
	recomputeExpr(body.Having)
	for _, o := range body.OrderBy {
		recomputeExpr(o.Expr)
	}
	recomputeExpr(body.Limit)
	for _, item := range body.SelectList {
		recomputeExpr(item.Expr)
	}
	body.Anchor = Anchor(Canonicalize(renderBodySkeleton(body)))
}

// renderBodySkeleton produces a cheap, order-stable text summary of a
// SelectBody used only to anchor the body itself (as opposed to its
// sub-clauses, which carry their own anchors). It is intentionally coarse:
// callers needing the exact SQL use the renderer package.
func renderBodySkeleton(body *SelectBody) string {
	var b strings.Builder
	for _, item := range body.SelectList {
		if item.Expr != nil {
			b.WriteString(item.Expr.Text)
		}
		b.WriteByte(',')
	}
	if body.Where != nil {
		b.WriteString(body.Where.Text)
	}
	return b.String()
}

// FindByAnchor returns every Expr subtree of body's WHERE, HAVING, LIMIT,
// GROUP BY, ORDER BY and select-list expressions whose Anchor equals hash.
// JOIN ON predicates, CTE bodies and FROM subqueries are not searched.
// Zero or multiple results signal UNRESOLVED_TARGET / AMBIGUOUS_ANCHOR
// to the patch engine (spec.md §4.2 step 2a).
func FindByAnchor(body *SelectBody, hash AnchorHash) []*Expr {
	var out []*Expr
	var walk func(*Expr)
	walk = func(e *Expr) {
		if e == nil {
			return
		}
		if e.Anchor == hash {
			out = append(out, e)
		}
		for _, c := range e.Children {
			walk(c)
		}
	}
	walk(body.Where)
	walk(body.Having)
	walk(body.Limit)
	for _, g := range body.GroupBy {
		walk(g)
	}
	for _, o := range body.OrderBy {
		walk(o.Expr)
	}
	for _, item := range body.SelectList {
		walk(item.Expr)
	}
	return out
}
