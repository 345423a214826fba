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
	"encoding/json"
	"strings"
	"testing"

	"github.com/Comcast/gridbus/interpreters/goja"
	"github.com/Comcast/gridbus/sheet"
)

func testRegistry(t *testing.T) *Registry {
	wb := sheet.NewWorkbook("test")
	i := goja.NewInterpreter()
	return NewRegistry(sheet.NewEngine(wb, i), i)
}

func dispatch(t *testing.T, r *Registry, name string, params map[string]interface{}) Result {
	t.Helper()
	res := r.Dispatch(context.Background(), Command{
		Name:      name,
		Params:    params,
		RequestID: "t-" + name,
	})
	if res.RequestID != "t-"+name {
		t.Fatalf("requestId '%s'", res.RequestID)
	}
	return res
}

func ok(t *testing.T, r *Registry, name string, params map[string]interface{}) interface{} {
	t.Helper()
	res := dispatch(t, r, name, params)
	if !res.Success {
		t.Fatalf("%s failed: %s", name, res.Error)
	}
	return res.Value
}

func num(t *testing.T, x interface{}) float64 {
	t.Helper()
	switch vv := x.(type) {
	case int:
		return float64(vv)
	case int64:
		return float64(vv)
	case float64:
		return vv
	default:
		t.Fatalf("not a number: %#v (%T)", x, x)
		return 0
	}
}

func TestDispatchSetGet(t *testing.T) {
	r := testRegistry(t)

	ok(t, r, "setCell", map[string]interface{}{"ref": "A1", "content": "10"})
	ok(t, r, "setCell", map[string]interface{}{"ref": "A2", "content": "20"})
	ok(t, r, "setCell", map[string]interface{}{"ref": "A3", "content": "=A1+A2"})

	v := ok(t, r, "getCellValue", map[string]interface{}{"ref": "A3"})
	m, is := v.(map[string]interface{})
	if !is {
		t.Fatalf("got %#v", v)
	}
	if num(t, m["value"]) != 30 {
		t.Fatalf("A3 = %#v", m["value"])
	}

	v = ok(t, r, "getCellExpression", map[string]interface{}{"ref": "A3"})
	if m := v.(map[string]interface{}); m["expression"] != "=A1+A2" {
		t.Fatalf("got %#v", v)
	}
}

func TestDispatchFarCell(t *testing.T) {
	r := testRegistry(t)

	ok(t, r, "setCell", map[string]interface{}{"ref": "Z99", "content": "x"})

	v := ok(t, r, "getCellValue", map[string]interface{}{"ref": "Z99"})
	if m := v.(map[string]interface{}); m["value"] != "x" {
		t.Fatalf("got %#v", v)
	}
}

func TestDispatchUnknownCommand(t *testing.T) {
	r := testRegistry(t)

	res := dispatch(t, r, "explodeViolently", nil)
	if res.Success {
		t.Fatal("succeeded?")
	}
	if !strings.Contains(res.Error, "unknown command") {
		t.Fatalf("error '%s'", res.Error)
	}
}

func TestDispatchMissingParam(t *testing.T) {
	r := testRegistry(t)

	res := dispatch(t, r, "getCell", nil)
	if res.Success || !strings.Contains(res.Error, "ref") {
		t.Fatalf("got %#v", res)
	}
}

func TestDispatchRanges(t *testing.T) {
	r := testRegistry(t)

	v := ok(t, r, "setCells", map[string]interface{}{
		"range": "A1:B2",
		"cells": map[string]interface{}{
			"A1": "1",
			"B1": "2",
			"A2": "=A1+B1",
		},
	})
	if m := v.(map[string]interface{}); num(t, m["set"]) != 3 {
		t.Fatalf("got %#v", v)
	}

	v = ok(t, r, "getCells", map[string]interface{}{"range": "A1:B2"})
	m := v.(map[string]interface{})
	if len(m) != 3 {
		t.Fatalf("got %#v", m)
	}
	if num(t, m["A2"]) != 3 {
		t.Fatalf("A2 = %#v", m["A2"])
	}

	// A ref outside the range is refused.
	res := dispatch(t, r, "setCells", map[string]interface{}{
		"range": "A1:B2",
		"cells": map[string]interface{}{"Q9": "1"},
	})
	if res.Success || !strings.Contains(res.Error, "Q9") {
		t.Fatalf("got %#v", res)
	}
}

func TestDispatchExportImport(t *testing.T) {
	r := testRegistry(t)

	ok(t, r, "setCell", map[string]interface{}{"ref": "A1", "content": "10"})
	ok(t, r, "setCell", map[string]interface{}{"ref": "A2", "content": "=A1*2", "comment": "doubled"})
	ok(t, r, "setSheetName", map[string]interface{}{"name": "budget"})

	// Round-trip the document the way a remote caller would: as
	// JSON.
	doc := ok(t, r, "export", nil)
	js, err := json.Marshal(doc)
	if err != nil {
		t.Fatal(err)
	}
	var wire map[string]interface{}
	if err := json.Unmarshal(js, &wire); err != nil {
		t.Fatal(err)
	}

	r2 := testRegistry(t)
	ok(t, r2, "import", map[string]interface{}{"document": wire})

	if v := ok(t, r2, "getSheetName", nil); v.(map[string]interface{})["name"] != "budget" {
		t.Fatalf("got %#v", v)
	}
	v := ok(t, r2, "getCellValue", map[string]interface{}{"ref": "A2"})
	if m := v.(map[string]interface{}); num(t, m["value"]) != 20 {
		t.Fatalf("A2 = %#v", m["value"])
	}
	c, _ := r2.Workbook().Get("A2")
	if c.Comment != "doubled" {
		t.Fatalf("got %#v", c)
	}
}

func TestDispatchEvaluate(t *testing.T) {
	r := testRegistry(t)

	ok(t, r, "setCell", map[string]interface{}{"ref": "A1", "content": "41"})

	if v := ok(t, r, "evaluate", map[string]interface{}{"expression": "A1+1"}); num(t, v) != 42 {
		t.Fatalf("got %#v", v)
	}

	// Ad-hoc evaluation stores nothing.
	c, err := r.Workbook().Get("A1")
	if err != nil {
		t.Fatal(err)
	}
	if c.Content != "41" {
		t.Fatalf("got %#v", c)
	}
}

func TestDispatchSetupScript(t *testing.T) {
	r := testRegistry(t)

	ok(t, r, "setSetupScript", map[string]interface{}{"script": "6*7"})

	if v := ok(t, r, "getSetupScript", nil); v.(map[string]interface{})["script"] != "6*7" {
		t.Fatalf("got %#v", v)
	}
	if v := ok(t, r, "executeSetupScript", nil); num(t, v) != 42 {
		t.Fatalf("got %#v", v)
	}

	// An empty script is a quiet no-op.
	r2 := testRegistry(t)
	if v := ok(t, r2, "executeSetupScript", nil); v != nil {
		t.Fatalf("got %#v", v)
	}
}

func TestDispatchClearRecalculate(t *testing.T) {
	r := testRegistry(t)

	ok(t, r, "setCell", map[string]interface{}{"ref": "A1", "content": "1"})
	ok(t, r, "setCell", map[string]interface{}{"ref": "A2", "content": "=A1+1"})

	v := ok(t, r, "recalculate", nil)
	if m := v.(map[string]interface{}); num(t, m["recalculated"]) != 1 {
		t.Fatalf("got %#v", v)
	}

	ok(t, r, "clear", nil)
	if refs := r.Workbook().Refs(); len(refs) != 0 {
		t.Fatalf("cells survived: %v", refs)
	}
}

func TestDispatchListCommands(t *testing.T) {
	r := testRegistry(t)

	v := ok(t, r, "listCommands", nil)
	names, is := v.([]string)
	if !is {
		t.Fatalf("got %#v", v)
	}
	if len(names) != len(kinds) {
		t.Fatalf("%d names", len(names))
	}
	for _, name := range names {
		if KindOf(name) == KindUnknown {
			t.Fatalf("'%s' not in the vocabulary", name)
		}
		if _, documented := Docs[name]; !documented {
			t.Fatalf("'%s' undocumented", name)
		}
	}
}
