package bus

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/Comcast/gridbus/interpreters/goja"
	"github.com/Comcast/gridbus/protocol"
	"github.com/Comcast/gridbus/sheet"
)

func testBus(t *testing.T) (*Bus, context.CancelFunc) {
	wb := sheet.NewWorkbook("test")
	i := goja.NewInterpreter()
	b := NewBus(protocol.NewRegistry(sheet.NewEngine(wb, i), i))

	ctx, cancel := context.WithCancel(context.Background())
	go b.Serve(ctx)
	return b, cancel
}

func TestBusCall(t *testing.T) {
	b, cancel := testBus(t)
	defer cancel()

	ctx := context.Background()

	resp, err := b.Call(ctx, Envelope{
		Command: "setCell",
		Params:  map[string]interface{}{"ref": "A1", "content": "42"},
	})
	if err != nil {
		t.Fatal(err)
	}
	if !resp.Success {
		t.Fatalf("failed: %s", resp.Error)
	}
	if resp.Type != ResponseType {
		t.Fatalf("type '%s'", resp.Type)
	}
	if resp.RequestID == "" {
		t.Fatal("no requestId generated")
	}
}

func TestBusBadEnvelopeType(t *testing.T) {
	b, cancel := testBus(t)
	defer cancel()

	resp, err := b.Call(context.Background(), Envelope{
		Type:      "spreadsheet-chitchat",
		Command:   "listCommands",
		RequestID: "r1",
	})
	if err != nil {
		t.Fatal(err)
	}
	if resp.Success || !strings.Contains(resp.Error, "envelope type") {
		t.Fatalf("got %#v", resp)
	}
	// Even a rejected envelope gets a correlated, typed reply.
	if resp.RequestID != "r1" || resp.Type != ResponseType {
		t.Fatalf("got %#v", resp)
	}
}

func TestBusConcurrentCorrelation(t *testing.T) {
	b, cancel := testBus(t)
	defer cancel()

	ctx := context.Background()

	// Many concurrent callers, each with its own requestId.  Every
	// caller must get exactly its own response back.
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id := fmt.Sprintf("caller-%d", i)
			resp, err := b.Call(ctx, Envelope{
				Command:   "evaluate",
				Params:    map[string]interface{}{"expression": fmt.Sprintf("%d*2", i)},
				RequestID: id,
			})
			if err != nil {
				t.Error(err)
				return
			}
			if resp.RequestID != id {
				t.Errorf("%s got response %s", id, resp.RequestID)
				return
			}
			want := float64(i * 2)
			switch v := resp.Result.(type) {
			case int64:
				if float64(v) != want {
					t.Errorf("%s = %v", id, v)
				}
			case float64:
				if v != want {
					t.Errorf("%s = %v", id, v)
				}
			default:
				t.Errorf("%s = %#v (%T)", id, v, v)
			}
		}(i)
	}
	wg.Wait()
}

func TestBusExecute(t *testing.T) {
	b, cancel := testBus(t)
	defer cancel()

	ctx := context.Background()

	if _, err := b.Execute(ctx, protocol.Command{Name: "listCommands"}); err == nil {
		t.Fatal("wanted an error for a missing requestId")
	}

	res, err := b.Execute(ctx, protocol.Command{
		Name:      "setCell",
		Params:    map[string]interface{}{"ref": "B2", "content": "hi"},
		RequestID: "x1",
	})
	if err != nil {
		t.Fatal(err)
	}
	if !res.Success || res.RequestID != "x1" {
		t.Fatalf("got %#v", res)
	}
}

func TestBusCallCanceled(t *testing.T) {
	// A bus nobody serves: Call must respect the caller's context
	// instead of hanging.
	wb := sheet.NewWorkbook("test")
	i := goja.NewInterpreter()
	b := NewBus(protocol.NewRegistry(sheet.NewEngine(wb, i), i))

	// Fill the submission queue so Call blocks on submit.
	for n := 0; n < cap(b.in); n++ {
		b.in <- Request{}
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := b.Call(ctx, Envelope{Command: "listCommands"}); err == nil {
		t.Fatal("wanted a context error")
	}
}
