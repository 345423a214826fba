package tools

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/Comcast/gridbus/bus"
	"github.com/Comcast/gridbus/interpreters/goja"
	"github.com/Comcast/gridbus/protocol"
	"github.com/Comcast/gridbus/sheet"
)

func testBus(t *testing.T) *bus.Bus {
	wb := sheet.NewWorkbook("test")
	i := goja.NewInterpreter()
	b := bus.NewBus(protocol.NewRegistry(sheet.NewEngine(wb, i), i))

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go b.Serve(ctx)
	return b
}

func TestSessionRun(t *testing.T) {
	session := `
doc: Basic arithmetic through the bus.
steps:
- command: setCell
  params:
    ref: A1
    content: "10"
  success: true
- command: setCell
  params:
    ref: A2
    content: "=A1*2"
  success: true
- doc: Only the value key matters; the response may carry more.
  command: getCellValue
  params:
    ref: A2
  success: true
  result:
    value: 20
- command: frobnicate
  success: false
`
	s, err := ParseSession([]byte(session))
	if err != nil {
		t.Fatal(err)
	}
	if len(s.Steps) != 4 {
		t.Fatalf("%d steps", len(s.Steps))
	}

	if err := s.Run(context.Background(), testBus(t)); err != nil {
		t.Fatal(err)
	}
}

func TestSessionRunMismatch(t *testing.T) {
	session := `
steps:
- command: setCell
  params:
    ref: A1
    content: "10"
  success: true
- command: getCellValue
  params:
    ref: A1
  success: true
  result:
    value: "999"
`
	s, err := ParseSession([]byte(session))
	if err != nil {
		t.Fatal(err)
	}
	err = s.Run(context.Background(), testBus(t))
	if err == nil {
		t.Fatal("wanted a mismatch")
	}
	if !strings.Contains(err.Error(), "step 1") {
		t.Fatalf("got %v", err)
	}
}

func TestSubsets(t *testing.T) {
	for _, tc := range []struct {
		want, got interface{}
		ok        bool
	}{
		{map[string]interface{}{"a": 1}, map[string]interface{}{"a": 1, "b": 2}, true},
		{map[string]interface{}{"a": 1}, map[string]interface{}{"a": 2}, false},
		{map[string]interface{}{"a": 1}, "nope", false},
		{"x", "x", true},
		{1, 1.0, true},
		// YAML's nested map shape still compares.
		{map[interface{}]interface{}{"a": map[interface{}]interface{}{"b": 1}},
			map[string]interface{}{"a": map[string]interface{}{"b": 1, "c": 2}}, true},
	} {
		if got := Subsets(tc.want, tc.got); got != tc.ok {
			t.Fatalf("Subsets(%#v, %#v) = %v", tc.want, tc.got, got)
		}
	}
}

func TestRenderVocab(t *testing.T) {
	var buf bytes.Buffer
	if err := RenderVocabPage(&buf); err != nil {
		t.Fatal(err)
	}
	page := buf.String()

	for _, name := range protocol.Names() {
		if !strings.Contains(page, `id="`+name+`"`) {
			t.Fatalf("no entry for %s", name)
		}
	}
	if !strings.Contains(page, "<code") || !strings.Contains(page, "</html>") {
		t.Fatal("not a page")
	}
}
