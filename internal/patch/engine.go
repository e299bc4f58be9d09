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

package patch

import (
	"fmt"

	"github.com/dolthub/vitess/go/vt/sqlparser"
	goerrors "gopkg.in/src-d/go-errors.v1"

	"github.com/queryforge/sqlbeam/internal/ir"
	"github.com/queryforge/sqlbeam/internal/similartext"
)

// Failure kinds reported to callers, per spec.md §4.2.
var (
	ErrUnresolvedTarget      = goerrors.NewKind("unresolved target: %s")
	ErrAmbiguousAnchor       = goerrors.NewKind("ambiguous anchor %s: %d matches")
	ErrPayloadParseError     = goerrors.NewKind("payload parse error: %s")
	ErrCTENameCollision      = goerrors.NewKind("CTE name collision: %s")
	ErrColumnInvariantViol   = goerrors.NewKind("column invariant violated: want %v got %v")
	ErrPostconditionFailed   = goerrors.NewKind("postcondition failed: %s")
)

// Engine applies PatchPlans to a ScriptIR.
type Engine struct{}

// NewEngine constructs a patch Engine. The engine holds no state of its own;
// every Apply call clones its input IR (spec.md §5: "IR... cloned before
// every patch attempt; no shared mutable state").
func NewEngine() *Engine { return &Engine{} }

// Apply runs plan against script and returns the resulting Result, per the
// step-application algorithm of spec.md §4.2. Apply is a pure function of
// its inputs (spec.md §8 "Patch determinism").
func (e *Engine) Apply(script *ir.ScriptIR, plan *Plan) Result {
	working := ir.Clone(script)
	res := Result{OutputIR: working, StepsTotal: len(plan.Steps)}

	touchesSelectList := make(map[ir.NodeID]bool)

	for _, step := range plan.Steps {
		if err := e.applyStep(working, step, touchesSelectList); err != nil {
			res.Errors = append(res.Errors, fmt.Sprintf("%s: %s", step.StepID, err))
			res.Success = false
			res.OutputSQL = ir.Render(working)
			return res
		}
		res.StepsApplied++
	}

	res.OutputSQL = ir.Render(working)

	if _, err := sqlparser.SplitStatementToPieces(res.OutputSQL); err != nil {
		res.Errors = append(res.Errors, ErrPostconditionFailed.New("output does not parse: "+err.Error()).Error())
		res.Success = false
		return res
	}

	for _, stmt := range script.Statements {
		if touchesSelectList[stmt.ID] {
			continue
		}
		var out *ir.Statement
		for _, s := range working.Statements {
			if s.ID == stmt.ID {
				out = s
				break
			}
		}
		if out == nil {
			continue
		}
		before := ir.OutputColumns(stmt)
		after := ir.OutputColumns(out)
		if !columnsEqual(before, after) {
			res.Errors = append(res.Errors, ErrColumnInvariantViol.New(before, after).Error())
			res.Success = false
			return res
		}
	}

	res.Success = true
	return res
}

func columnsEqual(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !equalFold(a[i], b[i]) {
			return false
		}
	}
	return true
}

func equalFold(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := 0; i < len(a); i++ {
		ca, cb := a[i], b[i]
		if 'A' <= ca && ca <= 'Z' {
			ca += 'a' - 'A'
		}
		if 'A' <= cb && cb <= 'Z' {
			cb += 'a' - 'A'
		}
		if ca != cb {
			return false
		}
	}
	return true
}

func (e *Engine) applyStep(script *ir.ScriptIR, step Step, touchesSelectList map[ir.NodeID]bool) error {
	stmt, err := resolveStatement(script, step.Target.ByNodeID)
	if err != nil {
		return err
	}

	switch step.Op {
	case OpInsertCTE:
		return e.insertCTE(stmt, step)
	case OpReplaceFrom:
		return e.replaceFrom(stmt, step)
	case OpReplaceWherePredicate:
		return e.replaceWherePredicate(stmt, step)
	case OpReplaceBody:
		touchesSelectList[stmt.ID] = true
		return e.replaceBody(stmt, step)
	case OpReplaceExprSubtree:
		return e.replaceExprSubtree(stmt, step)
	case OpDeleteExprSubtree:
		return e.deleteExprSubtree(stmt, step)
	case OpReplaceBlockWithCTEPair:
		return e.replaceBlockWithCTEPair(stmt, step)
	default:
		return ErrUnresolvedTarget.New(fmt.Sprintf("unknown op %q", step.Op))
	}
}

func resolveStatement(script *ir.ScriptIR, id ir.NodeID) (*ir.Statement, error) {
	var found *ir.Statement
	for _, s := range script.Statements {
		if s.ID == id {
			if found != nil {
				return nil, ErrAmbiguousAnchor.New(string(id), 2)
			}
			found = s
		}
	}
	if found == nil {
		return nil, ErrUnresolvedTarget.New(string(id))
	}
	return found, nil
}

func (e *Engine) insertCTE(stmt *ir.Statement, step Step) error {
	name := step.Payload.CTEName
	for _, c := range stmt.Body.CTEs {
		if c.Name == name {
			return ErrCTENameCollision.New(name)
		}
	}
	parsed, err := parseSelect(step.Payload.CTEQuerySQL)
	if err != nil {
		return ErrPayloadParseError.New(err.Error())
	}
	stmt.Body.CTEs = append(stmt.Body.CTEs, &ir.CTE{Name: name, Body: parsed})
	ir.RecomputeAnchors(stmt.Body, ir.RenderFrom)
	return nil
}

func (e *Engine) replaceFrom(stmt *ir.Statement, step Step) error {
	from, err := parseFromFragment(step.Payload.FromSQL)
	if err != nil {
		return ErrPayloadParseError.New(err.Error())
	}
	stmt.Body.From = from
	if err := verifySingleSelectBody(stmt.Body); err != nil {
		return err
	}
	ir.RecomputeAnchors(stmt.Body, ir.RenderFrom)
	return nil
}

func (e *Engine) replaceWherePredicate(stmt *ir.Statement, step Step) error {
	if step.Target.ByAnchorHash != "" {
		if stmt.Body.Where == nil || stmt.Body.Where.Anchor != step.Target.ByAnchorHash {
			return ErrUnresolvedTarget.New(string(step.Target.ByAnchorHash))
		}
	}
	expr, err := parseExprFragment(step.Payload.ExprSQL)
	if err != nil {
		return ErrPayloadParseError.New(err.Error())
	}
	stmt.Body.Where = expr
	if err := verifySingleSelectBody(stmt.Body); err != nil {
		return err
	}
	ir.RecomputeAnchors(stmt.Body, ir.RenderFrom)
	return nil
}

func (e *Engine) replaceBody(stmt *ir.Statement, step Step) error {
	parsed, err := parseSelect(step.Payload.SQLFragment)
	if err != nil {
		return ErrPayloadParseError.New(err.Error())
	}
	// replace_body preserves CTEs (spec.md §3 op table).
	parsed.CTEs = stmt.Body.CTEs
	stmt.Body = parsed
	if err := verifySingleSelectBody(stmt.Body); err != nil {
		return err
	}
	ir.RecomputeAnchors(stmt.Body, ir.RenderFrom)
	return nil
}

func (e *Engine) replaceExprSubtree(stmt *ir.Statement, step Step) error {
	matches := ir.FindByAnchor(stmt.Body, step.Target.ByAnchorHash)
	if len(matches) == 0 {
		return ErrUnresolvedTarget.New(string(step.Target.ByAnchorHash))
	}
	if len(matches) > 1 {
		return ErrAmbiguousAnchor.New(string(step.Target.ByAnchorHash), len(matches))
	}
	replacement, err := parseExprFragment(step.Payload.ExprSQL)
	if err != nil {
		return ErrPayloadParseError.New(err.Error())
	}
	*matches[0] = *replacement
	ir.RecomputeAnchors(stmt.Body, ir.RenderFrom)
	return verifySingleSelectBody(stmt.Body)
}

func (e *Engine) deleteExprSubtree(stmt *ir.Statement, step Step) error {
	matches := ir.FindByAnchor(stmt.Body, step.Target.ByAnchorHash)
	if len(matches) == 0 {
		return ErrUnresolvedTarget.New(string(step.Target.ByAnchorHash))
	}
	if len(matches) > 1 {
		return ErrAmbiguousAnchor.New(string(step.Target.ByAnchorHash), len(matches))
	}
	switch {
	case stmt.Body.Where != nil && stmt.Body.Where.Anchor == step.Target.ByAnchorHash:
		stmt.Body.Where = nil
	case stmt.Body.Having != nil && stmt.Body.Having.Anchor == step.Target.ByAnchorHash:
		stmt.Body.Having = nil
	default:
		if !foldAnyClauseRoot(stmt.Body, step.Target.ByAnchorHash) {
			return ErrUnresolvedTarget.New(string(step.Target.ByAnchorHash) + ": not an AND/OR operand, and not a whole WHERE/HAVING clause")
		}
	}
	ir.RecomputeAnchors(stmt.Body, ir.RenderFrom)
	return verifySingleSelectBody(stmt.Body)
}

// foldAnyClauseRoot tries foldConjunct against every expression FindByAnchor
// can match against (WHERE, HAVING, GROUP BY, ORDER BY, the select list) —
// the match may sit under any of those, not just WHERE, so searching WHERE
// alone silently no-ops a delete targeting e.g. a HAVING conjunct.
func foldAnyClauseRoot(body *ir.SelectBody, target ir.AnchorHash) bool {
	if foldConjunct(body.Where, target) {
		return true
	}
	if foldConjunct(body.Having, target) {
		return true
	}
	for _, g := range body.GroupBy {
		if foldConjunct(g, target) {
			return true
		}
	}
	for _, o := range body.OrderBy {
		if foldConjunct(o.Expr, target) {
			return true
		}
	}
	for _, item := range body.SelectList {
		if foldConjunct(item.Expr, target) {
			return true
		}
	}
	return false
}

// foldConjunct removes a matched child from an AND/OR expression's child
// list, per spec.md §3 ("sub-predicate in AND/OR → fold"). AND/OR nodes
// rebuild their Raw text from Children in RecomputeAnchors, so dropping the
// matched node here reflows into the rendered clause and its ancestors'
// anchors, not just the in-memory tree.
func foldConjunct(e *ir.Expr, target ir.AnchorHash) bool {
	if e == nil {
		return false
	}
	for i, c := range e.Children {
		if c.Anchor == target && e.Op != "" {
			e.Children = append(e.Children[:i], e.Children[i+1:]...)
			return true
		}
		if foldConjunct(c, target) {
			return true
		}
	}
	return false
}

func (e *Engine) replaceBlockWithCTEPair(stmt *ir.Statement, step Step) error {
	label := step.Target.ByLabel
	names := make([]string, 0, len(stmt.Body.CTEs))
	for _, c := range stmt.Body.CTEs {
		names = append(names, c.Name)
		if c.Name == label {
			parsed, err := parseSelect(step.Payload.SQLFragment)
			if err != nil {
				return ErrPayloadParseError.New(err.Error())
			}
			c.Body = parsed
			ir.RecomputeAnchors(stmt.Body, ir.RenderFrom)
			return nil
		}
	}
	return ErrUnresolvedTarget.New(label + similartext.Find(names, label))
}

func verifySingleSelectBody(body *ir.SelectBody) error {
	text := ir.RenderBody(body)
	if _, err := sqlparser.Parse(text); err != nil {
		return ErrPostconditionFailed.New("resulting statement does not parse: " + err.Error())
	}
	return nil
}

func parseSelect(sql string) (*ir.SelectBody, error)    { return ir.BuildSelectFragment(sql) }
func parseFromFragment(sql string) (*ir.FromNode, error) { return ir.BuildFromFragment(sql) }
func parseExprFragment(sql string) (*ir.Expr, error)     { return ir.BuildExprFragment(sql) }
