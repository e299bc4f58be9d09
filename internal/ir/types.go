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

// Package ir implements the typed Script IR described in spec.md §3: an
// ordered sequence of SELECT statements, each carrying CTEs, a FROM tree, an
// optional WHERE predicate, GROUP BY/HAVING/ORDER BY/LIMIT clauses and a
// SELECT list, with every expression node addressable by a stable anchor
// hash.
package ir

import "github.com/queryforge/sqlbeam/internal/dialect"

// NodeID addresses a Statement within a ScriptIR ("S0", "S1", ...).
type NodeID string

// ScriptIR is the typed representation of one or more SELECT statements.
type ScriptIR struct {
	Dialect    dialect.Name
	Statements []*Statement
}

// Statement owns one SelectBody and carries the node_id referenced by
// PatchStep.Target.ByNodeID.
type Statement struct {
	ID   NodeID
	Body *SelectBody
}

// CTE is one named entry of a statement's WITH clause. Names are unique
// within the owning statement (spec.md §3 invariant).
type CTE struct {
	Name string
	Body *SelectBody
}

// SelectBody is the clause tree of one SELECT (top-level or inside a CTE).
type SelectBody struct {
	CTEs       []*CTE
	From       *FromNode
	Where      *Expr
	GroupBy    []*Expr
	Having     *Expr
	OrderBy    []*OrderItem
	Limit      *Expr
	SelectList []*SelectItem

	// Anchor is the subtree hash of this SelectBody's rendered SQL, recomputed
	// bottom-up after every successful patch step (spec.md §3).
	Anchor AnchorHash
}

// SelectItem is one (expr, alias?) pair of the SELECT list. Column() returns
// the effective output name: Alias if present, else the expression's own
// source text.
type SelectItem struct {
	Expr  *Expr
	Alias string
}

// Column returns the output column name: the explicit alias, or the
// expression's canonical text when no alias is given.
func (s *SelectItem) Column() string {
	if s.Alias != "" {
		return s.Alias
	}
	if s.Expr != nil {
		return s.Expr.Text
	}
	return ""
}

// OrderItem is one ORDER BY entry.
type OrderItem struct {
	Expr *Expr
	Desc bool
}

// FromNode is a node of the FROM+JOIN tree: a base table, a subquery, or a
// JOIN combining two FromNodes under a predicate.
type FromNode struct {
	// Kind selects which of the fields below is populated.
	Kind FromKind

	// Table / Alias populated when Kind == FromTable.
	Table string
	Alias string

	// Subquery populated when Kind == FromSubquery.
	Subquery *SelectBody

	// CTERef populated when Kind == FromCTERef: a FROM-clause reference to a
	// CTE by name (design note §9: "CTE references... are by name... not by
	// pointer").
	CTERef string

	// Join fields populated when Kind == FromJoin.
	JoinType string // INNER, LEFT, RIGHT, FULL, CROSS
	Left     *FromNode
	Right    *FromNode
	On       *Expr

	// Anchor is this subtree's hash.
	Anchor AnchorHash
}

// FromKind discriminates FromNode's variant.
type FromKind int

const (
	FromTable FromKind = iota
	FromSubquery
	FromCTERef
	FromJoin
)

// Expr is an expression-tree node. The IR treats expressions opaquely beyond
// their rendered text and child list: patch operations address and replace
// whole subtrees by anchor hash rather than interpreting operator semantics.
type Expr struct {
	// Text is the canonical, normalized SQL text of this subtree (lowercase,
	// whitespace-collapsed) — the input to the anchor hash function.
	Text string
	// Raw is the original-cased rendering, used when re-emitting SQL.
	Raw string
	// Op is the boolean connective ("AND" or "OR") this node represents when
	// Children holds its exact, order-preserving operands and Raw can be
	// rebuilt from them; empty for a leaf or any other opaque expression
	// whose Raw is authoritative and not reconstructed from Children.
	Op string
	// Children are this node's direct subexpressions, in source order.
	Children []*Expr
	// Anchor is this subtree's fingerprint (spec.md §3).
	Anchor AnchorHash
}
