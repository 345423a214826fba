package goja

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Comcast/gridbus/sheet"

	"github.com/dop251/goja"
	"github.com/gorhill/cronexpr"
)

var (
	// InterruptedMessage is the string value of Interrupted.
	InterruptedMessage = "RuntimeError: timeout"

	// Interrupted is returned by Eval if the execution is
	// interrupted.
	Interrupted = errors.New(InterruptedMessage)
)

// Interpreter evaluates formula text as ECMAScript using Goja, which
// is a Go implementation of ECMAScript 5.1+.
//
// See https://github.com/dop251/goja.
//
// Before a formula runs, every reference-shaped token in its text is
// resolved through the engine's callback and bound as a global, so
// "A1+A2" just works.  Dynamic references go through the cell()
// function.
type Interpreter struct {

	// Testing exposes some runtime capabilities (sleep) that
	// production formulas shouldn't have.
	Testing bool
}

// NewInterpreter makes a new Interpreter.
func NewInterpreter() *Interpreter {
	return &Interpreter{}
}

// Eval implements sheet.Evaluator.
//
// The following are available from the runtime:
//
//	A1, B2, ...: the values of the cells the formula mentions.
//	cell(ref): resolve a reference computed at runtime.
//	cronNext(expr): the next firing time of a cron expression,
//	  as an RFC3339 string.
//	sleep(ms): sleep (only when Testing).
//
// An evaluation error (bad syntax, unknown function, type mismatch)
// comes back as a plain error carrying the interpreter's message.
func (i *Interpreter) Eval(ctx context.Context, src string, resolve func(ref string) (interface{}, error)) (interface{}, error) {
	o := goja.New()

	// Bind each referenced cell as a global under the token as
	// written, so case follows the formula text.  Tokens that
	// merely look reference-ish but don't parse (say "sum2") are
	// left for the script to deal with.
	for _, tok := range sheet.RefTokens(src) {
		if _, err := sheet.Canon(tok); err != nil {
			continue
		}
		v, err := resolve(tok)
		if err != nil {
			return nil, err
		}
		o.Set(tok, v)
	}

	var resolveErr error
	o.Set("cell", func(x interface{}) interface{} {
		if vv, is := x.(goja.Value); is {
			x = vv.Export()
		}
		ref, is := x.(string)
		if !is {
			panic(o.ToValue("cell() wants a reference string"))
		}
		v, err := resolve(ref)
		if err != nil {
			resolveErr = err
			panic(o.ToValue(err.Error()))
		}
		return v
	})

	o.Set("cronNext", func(x interface{}) interface{} {
		if vv, is := x.(goja.Value); is {
			x = vv.Export()
		}
		s, is := x.(string)
		if !is {
			panic(o.ToValue("not a string"))
		}
		c, err := cronexpr.Parse(s)
		if err != nil {
			panic(o.ToValue(err.Error()))
		}
		return c.Next(time.Now()).UTC().Format(time.RFC3339Nano)
	})

	if i.Testing {
		o.Set("sleep", func(ms int) {
			time.Sleep(time.Duration(ms) * time.Millisecond)
		})
	}

	// Terminate the run if the context is canceled.
	ictx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		<-ictx.Done()
		// If Eval got here on its own, RunString has already
		// returned and this Interrupt is a no-op.
		o.Interrupt(InterruptedMessage)
	}()

	v, err := o.RunString(src)
	cancel()

	if err != nil {
		if _, is := err.(*goja.InterruptedError); is {
			return nil, Interrupted
		}
		// A cycle discovered during cell() resolution should
		// surface as the cycle error, not as a Javascript
		// exception wrapping it.
		if resolveErr != nil {
			return nil, resolveErr
		}
		return nil, errors.New(err.Error())
	}

	x := v.Export()

	switch vv := x.(type) {
	case nil, bool, string, int64, float64:
		return vv, nil
	default:
		// Arrays, objects, dates.  Keep the export as-is; the
		// protocol layer JSON-encodes whatever this is.
		return vv, nil
	}
}

// EvalString is a convenience for ad-hoc expressions with no cell
// resolution at all.
func (i *Interpreter) EvalString(ctx context.Context, src string) (interface{}, error) {
	return i.Eval(ctx, src, func(ref string) (interface{}, error) {
		return nil, fmt.Errorf("no cell context for '%s'", ref)
	})
}
