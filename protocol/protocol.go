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

// Package protocol is the fixed command vocabulary over a workbook.
//
// A remote caller drives the workbook exclusively through Commands
// dispatched here.  Dispatch never panics across the boundary: handler
// failures come back as structured Results, since the caller may be a
// separate process that needs a well-formed reply in all cases.
package protocol

import (
	"fmt"
	"sort"
)

// Kind enumerates the command vocabulary.  Dispatch switches
// exhaustively over Kind, so adding a command here without a handler
// is a compile-time complaint, not a runtime surprise.
type Kind int

const (
	KindUnknown Kind = iota
	KindGetCell
	KindSetCell
	KindGetCellValue
	KindGetCellExpression
	KindGetCells
	KindSetCells
	KindClear
	KindExport
	KindImport
	KindGetSheetName
	KindSetSheetName
	KindEvaluate
	KindRecalculate
	KindGetSetupScript
	KindSetSetupScript
	KindExecuteSetupScript
	KindListCommands
)

var kinds = map[string]Kind{
	"getCell":            KindGetCell,
	"setCell":            KindSetCell,
	"getCellValue":       KindGetCellValue,
	"getCellExpression":  KindGetCellExpression,
	"getCells":           KindGetCells,
	"setCells":           KindSetCells,
	"clear":              KindClear,
	"export":             KindExport,
	"import":             KindImport,
	"getSheetName":       KindGetSheetName,
	"setSheetName":       KindSetSheetName,
	"evaluate":           KindEvaluate,
	"recalculate":        KindRecalculate,
	"getSetupScript":     KindGetSetupScript,
	"setSetupScript":     KindSetSetupScript,
	"executeSetupScript": KindExecuteSetupScript,
	"listCommands":       KindListCommands,
}

// KindOf maps a wire command name to its Kind (KindUnknown if the name
// isn't in the vocabulary).
func KindOf(name string) Kind {
	return kinds[name]
}

// Names returns the sorted command names.
func Names() []string {
	acc := make([]string, 0, len(kinds))
	for name := range kinds {
		acc = append(acc, name)
	}
	sort.Strings(acc)
	return acc
}

// Command is one request from a remote caller.
type Command struct {
	Name      string                 `json:"command"`
	Params    map[string]interface{} `json:"params,omitempty"`
	RequestID string                 `json:"requestId,omitempty"`

	// AuthToken is only meaningful on transports that
	// authenticate (the relay and its kin).
	AuthToken string `json:"authToken,omitempty"`
}

// Result is the reply to exactly one Command, matched by RequestID,
// never by arrival order.
type Result struct {
	RequestID string      `json:"requestId,omitempty"`
	Success   bool        `json:"success"`
	Value     interface{} `json:"result,omitempty"`
	Error     string      `json:"error,omitempty"`
}

// OK makes a successful Result.
func OK(id string, v interface{}) Result {
	return Result{RequestID: id, Success: true, Value: v}
}

// Errf makes a failed Result.
func Errf(id, format string, args ...interface{}) Result {
	return Result{RequestID: id, Success: false, Error: fmt.Sprintf(format, args...)}
}

// Docs maps each command name to a short markdown description, for the
// vocabulary reference page (see the tools package).
var Docs = map[string]string{
	"getCell":            "Get the whole cell at `ref`: content, value, error, dependencies, comment, format.",
	"setCell":            "Store `content` at `ref`, evaluate it, and propagate to dependents. Empty content deletes the cell.",
	"getCellValue":       "Get just the cached value at `ref`.",
	"getCellExpression":  "Get the raw stored content at `ref` (formula marker included).",
	"getCells":           "Get the set cells within `range` (e.g. `A1:B5`) as a map of ref to value.",
	"setCells":           "Store each entry of the `cells` map (ref to content) that falls within `range`, then recalculate once.",
	"clear":              "Remove every cell.",
	"export":             "Export the workbook as a document: name, version, setup script, cells, metadata.",
	"import":             "Replace the workbook from a `document` (current or legacy flat shape), then recalculate.",
	"getSheetName":       "Get the workbook name.",
	"setSheetName":       "Set the workbook name to `name`.",
	"evaluate":           "Evaluate an ad-hoc `expression` against the live cells without storing it anywhere.",
	"recalculate":        "Re-evaluate every formula cell.",
	"getSetupScript":     "Get the workbook's setup script.",
	"setSetupScript":     "Set the workbook's setup script to `script` (not executed).",
	"executeSetupScript": "Run the stored setup script and return its value.",
	"listCommands":       "List the command vocabulary.",
}
