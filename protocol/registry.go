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

package protocol

import (
	"context"
	"errors"
	"fmt"

	"github.com/Comcast/gridbus/sheet"
)

// UnknownCommand is returned (as a Result error, not raised) for a
// name outside the vocabulary.
var UnknownCommand = errors.New("unknown command")

// Registry binds the command vocabulary to one workbook and its
// engine.  No ambient globals: whoever owns the workbook constructs a
// Registry and passes it to whichever transport needs it.
type Registry struct {
	wb     *sheet.Workbook
	engine *sheet.Engine
	ev     sheet.Evaluator
}

func NewRegistry(engine *sheet.Engine, ev sheet.Evaluator) *Registry {
	return &Registry{
		wb:     engine.Workbook(),
		engine: engine,
		ev:     ev,
	}
}

// Workbook returns the registry's workbook.
func (r *Registry) Workbook() *sheet.Workbook {
	return r.wb
}

// Dispatch executes one command and always returns a structured
// Result.  Handler errors (and panics) become CommandError results;
// they never cross the transport boundary raw.
//
// Dispatch holds the workbook lock for the duration of the command, so
// evaluation is single-threaded per workbook no matter how many
// transports feed it.
func (r *Registry) Dispatch(ctx context.Context, cmd Command) (res Result) {
	defer func() {
		if x := recover(); x != nil {
			res = Errf(cmd.RequestID, "command %s panic: %v", cmd.Name, x)
		}
	}()

	r.wb.Lock()
	defer r.wb.Unlock()

	v, err := r.run(ctx, KindOf(cmd.Name), cmd)
	if err != nil {
		return Errf(cmd.RequestID, "%s", err)
	}
	return OK(cmd.RequestID, v)
}

func (r *Registry) run(ctx context.Context, k Kind, cmd Command) (interface{}, error) {
	switch k {
	case KindUnknown:
		return nil, fmt.Errorf("%w: '%s'", UnknownCommand, cmd.Name)

	case KindGetCell:
		ref, err := stringParam(cmd.Params, "ref")
		if err != nil {
			return nil, err
		}
		return r.wb.Get(ref)

	case KindSetCell:
		ref, err := stringParam(cmd.Params, "ref")
		if err != nil {
			return nil, err
		}
		content, _ := optStringParam(cmd.Params, "content")
		c, err := r.engine.SetCell(ctx, ref, content)
		if err != nil {
			return nil, err
		}
		if comment, has := optStringParam(cmd.Params, "comment"); has {
			if _, err := r.wb.SetMetadata(c.Ref, &comment, nil); err != nil {
				return nil, err
			}
		}
		if format, has := optStringParam(cmd.Params, "format"); has {
			if _, err := r.wb.SetMetadata(c.Ref, nil, &format); err != nil {
				return nil, err
			}
		}
		return r.wb.Get(c.Ref)

	case KindGetCellValue:
		ref, err := stringParam(cmd.Params, "ref")
		if err != nil {
			return nil, err
		}
		c, err := r.wb.Get(ref)
		if err != nil {
			return nil, err
		}
		return map[string]interface{}{"value": c.Value}, nil

	case KindGetCellExpression:
		ref, err := stringParam(cmd.Params, "ref")
		if err != nil {
			return nil, err
		}
		c, err := r.wb.Get(ref)
		if err != nil {
			return nil, err
		}
		return map[string]interface{}{"expression": c.Content}, nil

	case KindGetCells:
		rng, err := stringParam(cmd.Params, "range")
		if err != nil {
			return nil, err
		}
		refs, err := sheet.ParseRange(rng)
		if err != nil {
			return nil, err
		}
		acc := make(map[string]interface{}, len(refs))
		for _, ref := range refs {
			if c, have := r.wb.Cells[ref]; have {
				acc[ref] = c.Value
			}
		}
		return acc, nil

	case KindSetCells:
		rng, err := stringParam(cmd.Params, "range")
		if err != nil {
			return nil, err
		}
		refs, err := sheet.ParseRange(rng)
		if err != nil {
			return nil, err
		}
		within := make(map[string]bool, len(refs))
		for _, ref := range refs {
			within[ref] = true
		}
		cells, is := cmd.Params["cells"].(map[string]interface{})
		if !is {
			return nil, errors.New("need a 'cells' map of ref to content")
		}
		n := 0
		for ref, x := range cells {
			canon, err := sheet.Canon(ref)
			if err != nil {
				return nil, err
			}
			if !within[canon] {
				return nil, fmt.Errorf("%s is outside %s", canon, rng)
			}
			content, is := x.(string)
			if !is {
				return nil, fmt.Errorf("bad content for %s (%T)", ref, x)
			}
			if _, err := r.wb.Set(canon, content); err != nil {
				return nil, err
			}
			n++
		}
		r.engine.Recalculate(ctx)
		return map[string]interface{}{"set": n}, nil

	case KindClear:
		r.wb.Clear()
		return true, nil

	case KindExport:
		return sheet.Export(r.wb), nil

	case KindImport:
		doc, is := cmd.Params["document"].(map[string]interface{})
		if !is {
			return nil, errors.New("need a 'document' object")
		}
		if err := sheet.ImportMap(r.wb, doc); err != nil {
			return nil, err
		}
		r.engine.Recalculate(ctx)
		return true, nil

	case KindGetSheetName:
		return map[string]interface{}{"name": r.wb.Name}, nil

	case KindSetSheetName:
		name, err := stringParam(cmd.Params, "name")
		if err != nil {
			return nil, err
		}
		r.wb.Name = name
		return true, nil

	case KindEvaluate:
		expr, err := stringParam(cmd.Params, "expression")
		if err != nil {
			return nil, err
		}
		return r.ev.Eval(ctx, expr, r.engine.Resolver(ctx))

	case KindRecalculate:
		return map[string]interface{}{"recalculated": r.engine.Recalculate(ctx)}, nil

	case KindGetSetupScript:
		return map[string]interface{}{"script": r.wb.SetupScript}, nil

	case KindSetSetupScript:
		script, err := stringParam(cmd.Params, "script")
		if err != nil {
			return nil, err
		}
		r.wb.SetupScript = script
		return true, nil

	case KindExecuteSetupScript:
		if r.wb.SetupScript == "" {
			return nil, nil
		}
		return r.ev.Eval(ctx, r.wb.SetupScript, r.engine.Resolver(ctx))

	case KindListCommands:
		return Names(), nil
	}

	// Unreachable while the Kind switch stays exhaustive.
	return nil, fmt.Errorf("%w: '%s'", UnknownCommand, cmd.Name)
}

func stringParam(params map[string]interface{}, key string) (string, error) {
	s, has := optStringParam(params, key)
	if !has {
		return "", fmt.Errorf("need a string '%s' param", key)
	}
	return s, nil
}

func optStringParam(params map[string]interface{}, key string) (string, bool) {
	if params == nil {
		return "", false
	}
	s, is := params[key].(string)
	return s, is
}
