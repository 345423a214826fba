/* Copyright 2026 Comcast Cable Communications Management, LLC
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 * http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package sheet

import (
	"context"
	"errors"
	"strconv"
)

// Evaluator evaluates formula text.
//
// The resolve callback maps a reference token (as written in the
// formula) to its typed value.  Eval can block; an error should carry a
// message suitable for storing on the cell.
type Evaluator interface {
	Eval(ctx context.Context, src string, resolve func(ref string) (interface{}, error)) (interface{}, error)
}

// Engine keeps formula cells' cached values consistent with the
// current content of their transitive dependencies.
//
// An Engine never runs two evaluations concurrently against its
// workbook.  The inFlight set is both the cycle detector and the
// per-cell re-entrancy guard; it belongs to this engine, so two
// workbooks never share one guard.
type Engine struct {
	wb *Workbook
	ev Evaluator

	inFlight map[string]bool
}

func NewEngine(wb *Workbook, ev Evaluator) *Engine {
	return &Engine{
		wb:       wb,
		ev:       ev,
		inFlight: make(map[string]bool, 8),
	}
}

// Workbook returns the engine's workbook.
func (e *Engine) Workbook() *Workbook {
	return e.wb
}

// SetCell stores content at ref, evaluates it, and propagates to
// dependents.  When the call returns, every cached value is a function
// of the current content of its transitive dependencies (cycles
// excepted, which end up in error state instead).
func (e *Engine) SetCell(ctx context.Context, ref, content string) (*Cell, error) {
	c, err := e.wb.Set(ref, content)
	if err != nil {
		return nil, err
	}

	canon := ref
	if c != nil {
		canon = c.Ref
		e.Evaluate(ctx, canon)
	} else if canon, err = Canon(ref); err != nil {
		return nil, err
	}

	e.Propagate(ctx, canon)

	return e.wb.Get(canon)
}

// Evaluate re-evaluates the formula cell at ref (a no-op for literals
// and unset cells).
//
// Re-entering a ref already in flight is a cycle: the cell is marked
// with CircularMessage and CircularValue, and evaluation simply does
// not recurse further, so the rest of the workbook stays computable.
func (e *Engine) Evaluate(ctx context.Context, ref string) {
	c, have := e.wb.Cells[ref]
	if !have || !c.IsFormula {
		return
	}

	if e.inFlight[ref] {
		c.Err = CircularMessage
		c.Value = CircularValue
		return
	}

	e.inFlight[ref] = true
	defer delete(e.inFlight, ref)

	// Reconcile edges against the current formula text.
	e.wb.unwire(ref, c.Deps)
	c.Deps = ScanRefs(c.Formula())
	e.wb.wire(ref, c.Deps)

	v, err := e.ev.Eval(ctx, c.Formula(), e.Resolver(ctx))
	switch {
	case err != nil && err.Error() == CircularMessage:
		c.Err = CircularMessage
		c.Value = CircularValue
	case err != nil:
		c.Err = err.Error()
		c.Value = ErrorValue
	case c.Err == CircularMessage:
		// The cell was marked from inside Eval (a
		// self-reference).  Keep that verdict.
	default:
		c.Err = ""
		c.Value = v
	}
}

// Propagate re-evaluates every dependent of ref, depth first, then
// recursively propagates from each.
//
// Propagation is deliberately not deduplicated: in a diamond-shaped
// graph a shared ancestor is re-evaluated once per path reaching it.
// The result is still correct; the extra work is tolerated.  Only the
// active recursion path is guarded, so cyclic edges don't loop.
func (e *Engine) Propagate(ctx context.Context, ref string) {
	e.propagate(ctx, ref, map[string]bool{ref: true})
}

func (e *Engine) propagate(ctx context.Context, ref string, path map[string]bool) {
	for _, dep := range e.wb.Dependents(ref) {
		e.Evaluate(ctx, dep)
		if path[dep] {
			continue
		}
		path[dep] = true
		e.propagate(ctx, dep, path)
		delete(path, dep)
	}
}

// Recalculate re-evaluates every formula cell.  Returns the number of
// formula cells visited.
func (e *Engine) Recalculate(ctx context.Context) int {
	n := 0
	for _, ref := range e.wb.Refs() {
		if c := e.wb.Cells[ref]; c == nil || !c.IsFormula {
			continue
		}
		e.Evaluate(ctx, ref)
		n++
	}
	return n
}

// Resolver returns the reference-resolution callback handed to the
// evaluator.  It resolves a token to a typed value (numeric if
// parseable, else text), recursively re-evaluating formula
// dependencies on demand.  Consistency comes from this eager
// recursion; there is no separate scheduling pass.
func (e *Engine) Resolver(ctx context.Context) func(ref string) (interface{}, error) {
	return func(ref string) (interface{}, error) {
		ref, err := Canon(ref)
		if err != nil {
			return nil, err
		}

		c, have := e.wb.Cells[ref]
		if !have {
			return "", nil
		}

		if c.IsFormula {
			if e.inFlight[ref] {
				// The resolution chain re-entered a cell
				// still being evaluated: a cycle.  Mark
				// it and fail the caller's evaluation so
				// every cell on the cycle lands in the
				// same error state.
				c.Err = CircularMessage
				c.Value = CircularValue
				return nil, errors.New(CircularMessage)
			}
			e.Evaluate(ctx, ref)
			if c.Err == CircularMessage {
				return nil, errors.New(CircularMessage)
			}
			return c.Value, nil
		}

		if f, err := strconv.ParseFloat(c.Content, 64); err == nil {
			return f, nil
		}
		return c.Content, nil
	}
}
