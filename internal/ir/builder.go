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

	"github.com/dolthub/vitess/go/vt/sqlparser"
	"github.com/pkg/errors"

	"github.com/queryforge/sqlbeam/internal/dialect"
)

// ParseError is a structured failure from BuildScriptIR, carrying the
// statement index (in source order) that failed to parse.
type ParseError struct {
	StatementIndex int
	Cause          error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("ir: statement %d: %s", e.StatementIndex, e.Cause)
}

func (e *ParseError) Unwrap() error { return e.Cause }

// BuildScriptIR parses sql (one or more ';'-terminated SELECT statements) in
// the given dialect and returns the typed ScriptIR, per spec.md §4.1.
// node_ids are assigned sequentially in source order ("S0", "S1", ...).
func BuildScriptIR(sql string, dial dialect.Name) (*ScriptIR, error) {
	pieces, err := sqlparser.SplitStatementToPieces(sql)
	if err != nil {
		return nil, &ParseError{StatementIndex: 0, Cause: errors.Wrap(err, "splitting statements")}
	}

	out := &ScriptIR{Dialect: dial}
	for i, piece := range pieces {
		piece = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(piece), ";"))
		if piece == "" {
			continue
		}
		stmt, err := sqlparser.Parse(piece)
		if err != nil {
			return nil, &ParseError{StatementIndex: i, Cause: err}
		}
		sel, ok := stmt.(*sqlparser.Select)
		if !ok {
			return nil, &ParseError{StatementIndex: i, Cause: errors.Errorf("statement is not a SELECT: %T", stmt)}
		}
		body, err := buildSelectBody(sel)
		if err != nil {
			return nil, &ParseError{StatementIndex: i, Cause: err}
		}
		out.Statements = append(out.Statements, &Statement{
			ID:   NodeID(fmt.Sprintf("S%d", i)),
			Body: body,
		})
	}
	if len(out.Statements) == 0 {
		return nil, &ParseError{StatementIndex: 0, Cause: errors.New("no statements found")}
	}
	return out, nil
}

func buildSelectBody(sel *sqlparser.Select) (*SelectBody, error) {
	body := &SelectBody{}

	if sel.With != nil {
		seen := make(map[string]bool, len(sel.With.Ctes))
		for _, cte := range sel.With.Ctes {
			name := cte.ID.String()
			if seen[name] {
				return nil, errors.Errorf("duplicate CTE name %q", name)
			}
			seen[name] = true
			inner, ok := cte.Subquery.Select.(*sqlparser.Select)
			if !ok {
				return nil, errors.Errorf("CTE %q body is not a SELECT", name)
			}
			innerBody, err := buildSelectBody(inner)
			if err != nil {
				return nil, errors.Wrapf(err, "CTE %q", name)
			}
			body.CTEs = append(body.CTEs, &CTE{Name: name, Body: innerBody})
		}
	}

	from, err := buildFrom(sel.From, cteNames(body))
	if err != nil {
		return nil, err
	}
	body.From = from

	if sel.Where != nil {
		body.Where = exprFromNode(sel.Where.Expr)
	}
	for _, g := range sel.GroupBy {
		body.GroupBy = append(body.GroupBy, exprFromNode(g))
	}
	if sel.Having != nil {
		body.Having = exprFromNode(sel.Having.Expr)
	}
	for _, o := range sel.OrderBy {
		body.OrderBy = append(body.OrderBy, &OrderItem{
			Expr: exprFromNode(o.Expr),
			Desc: strings.EqualFold(o.Direction, sqlparser.DescScr),
		})
	}
	if sel.Limit != nil && sel.Limit.Rowcount != nil {
		body.Limit = exprFromNode(sel.Limit.Rowcount)
	}

	for _, se := range sel.SelectExprs {
		item, err := selectItemFromNode(se)
		if err != nil {
			return nil, err
		}
		body.SelectList = append(body.SelectList, item)
	}

	RecomputeAnchors(body, RenderFrom)
	return body, nil
}

// BuildSelectFragment parses a standalone SELECT fragment (as supplied by a
// patch step payload's cte_query_sql/sql_fragment) into a SelectBody, with
// anchors computed. Used by the Patch Engine for insert_cte, replace_body
// and replace_block_with_cte_pair (spec.md §3 op table).
func BuildSelectFragment(sql string) (*SelectBody, error) {
	stmt, err := sqlparser.Parse(sql)
	if err != nil {
		return nil, err
	}
	sel, ok := stmt.(*sqlparser.Select)
	if !ok {
		return nil, fmt.Errorf("fragment is not a SELECT: %T", stmt)
	}
	return buildSelectBody(sel)
}

// BuildFromFragment parses a standalone FROM+JOIN fragment (the text after
// the FROM keyword) for the replace_from op.
func BuildFromFragment(sql string) (*FromNode, error) {
	wrapped := "select 1 from " + sql
	stmt, err := sqlparser.Parse(wrapped)
	if err != nil {
		return nil, err
	}
	sel, ok := stmt.(*sqlparser.Select)
	if !ok {
		return nil, fmt.Errorf("fragment is not parseable as FROM: %T", stmt)
	}
	from, err := buildFrom(sel.From, map[string]bool{})
	if err != nil {
		return nil, err
	}
	RecomputeAnchors(&SelectBody{From: from}, RenderFrom)
	return from, nil
}

// BuildExprFragment parses a standalone expression fragment for the
// replace_where_predicate / replace_expr_subtree ops.
func BuildExprFragment(sql string) (*Expr, error) {
	node, err := sqlparser.ParseExpr(sql)
	if err != nil {
		return nil, err
	}
	e := exprFromNode(node)
	recomputeExpr(e)
	return e, nil
}

func cteNames(body *SelectBody) map[string]bool {
	names := make(map[string]bool, len(body.CTEs))
	for _, c := range body.CTEs {
		names[c.Name] = true
	}
	return names
}

func buildFrom(exprs sqlparser.TableExprs, ctes map[string]bool) (*FromNode, error) {
	if len(exprs) == 0 {
		return nil, nil
	}
	node, err := buildTableExpr(exprs[0], ctes)
	if err != nil {
		return nil, err
	}
	for _, rest := range exprs[1:] {
		right, err := buildTableExpr(rest, ctes)
		if err != nil {
			return nil, err
		}
		node = &FromNode{Kind: FromJoin, JoinType: "CROSS", Left: node, Right: right}
	}
	return node, nil
}

func buildTableExpr(te sqlparser.TableExpr, ctes map[string]bool) (*FromNode, error) {
	switch t := te.(type) {
	case *sqlparser.AliasedTableExpr:
		switch simple := t.Expr.(type) {
		case sqlparser.TableName:
			name := simple.Name.String()
			if ctes[name] {
				return &FromNode{Kind: FromCTERef, CTERef: name, Alias: t.As.String()}, nil
			}
			return &FromNode{Kind: FromTable, Table: name, Alias: t.As.String()}, nil
		case *sqlparser.Subquery:
			inner, ok := simple.Select.(*sqlparser.Select)
			if !ok {
				return nil, errors.New("subquery in FROM is not a SELECT")
			}
			sub, err := buildSelectBody(inner)
			if err != nil {
				return nil, err
			}
			return &FromNode{Kind: FromSubquery, Subquery: sub, Alias: t.As.String()}, nil
		default:
			return nil, errors.Errorf("unsupported table expression %T", simple)
		}
	case *sqlparser.JoinTableExpr:
		left, err := buildTableExpr(t.LeftExpr, ctes)
		if err != nil {
			return nil, err
		}
		right, err := buildTableExpr(t.RightExpr, ctes)
		if err != nil {
			return nil, err
		}
		var on *Expr
		if t.Condition.On != nil {
			on = exprFromNode(t.Condition.On)
		}
		return &FromNode{Kind: FromJoin, JoinType: strings.ToUpper(t.Join), Left: left, Right: right, On: on}, nil
	case *sqlparser.ParenTableExpr:
		return buildFrom(t.Exprs, ctes)
	default:
		return nil, errors.Errorf("unsupported FROM node %T", te)
	}
}

func selectItemFromNode(se sqlparser.SelectExpr) (*SelectItem, error) {
	switch e := se.(type) {
	case *sqlparser.AliasedExpr:
		return &SelectItem{Expr: exprFromNode(e.Expr), Alias: e.As.String()}, nil
	case *sqlparser.StarExpr:
		return &SelectItem{Expr: &Expr{Raw: "*", Text: "*"}}, nil
	default:
		return nil, errors.Errorf("unsupported select expression %T", se)
	}
}

// exprFromNode wraps an arbitrary expression AST node as an Expr, carrying
// its rendered text and recursing into any child expressions that
// sqlparser.Walk discovers. AND/OR connectives are built out recursively
// with Op set, down to their leaf operands, because spec.md §3's
// sub-predicate fold must be able to target and remove any conjunct at any
// nesting depth, not just a connective's immediate two operands. Every
// other expression type remains an opaque leaf beyond one level: the patch
// engine never interprets operator semantics there, only subtree text and
// anchors (types.go doc on Expr).
func exprFromNode(node sqlparser.Expr) *Expr {
	if node == nil {
		return nil
	}
	switch n := node.(type) {
	case *sqlparser.AndExpr:
		return &Expr{Raw: sqlparser.String(node), Op: "AND", Children: []*Expr{exprFromNode(n.Left), exprFromNode(n.Right)}}
	case *sqlparser.OrExpr:
		return &Expr{Raw: sqlparser.String(node), Op: "OR", Children: []*Expr{exprFromNode(n.Left), exprFromNode(n.Right)}}
	}

	raw := sqlparser.String(node)
	e := &Expr{Raw: raw}

	_ = sqlparser.Walk(func(n sqlparser.SQLNode) (bool, error) {
		if n == node {
			return true, nil
		}
		if child, ok := n.(sqlparser.Expr); ok {
			e.Children = append(e.Children, &Expr{Raw: sqlparser.String(child)})
		}
		return false, nil
	}, node)

	return e
}
