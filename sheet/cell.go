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

import "strings"

// FormulaPrefix marks stored content as a formula.
const FormulaPrefix = "="

const (
	// CircularValue is the value sentinel for a cell caught in a
	// reference cycle.
	CircularValue = "#CIRCULAR!"

	// ErrorValue is the value sentinel for a cell whose formula
	// failed to evaluate.
	ErrorValue = "#ERROR!"

	// CircularMessage is the error text for a cycle.
	CircularMessage = "Circular reference"
)

// Cell is one workbook cell.
//
// Content is the raw stored text.  Value is the cached result of the
// most recent evaluation: for a literal cell it's just Content, and for
// a formula cell it's whatever the evaluator returned (or a sentinel
// when Err is set).
type Cell struct {
	Ref       string      `json:"ref"`
	Content   string      `json:"content"`
	IsFormula bool        `json:"isFormula,omitempty"`
	Value     interface{} `json:"value,omitempty"`
	Err       string      `json:"error,omitempty"`

	// Deps always reflects the most recently stored formula text.
	Deps []string `json:"dependencies,omitempty"`

	Comment string `json:"comment,omitempty"`
	Format  string `json:"format,omitempty"`
}

// Formula returns the formula text without the marker.
func (c *Cell) Formula() string {
	return strings.TrimPrefix(c.Content, FormulaPrefix)
}

// Copy returns a copy of the cell with its own Deps slice.
func (c *Cell) Copy() *Cell {
	acc := *c
	if c.Deps != nil {
		acc.Deps = make([]string, len(c.Deps))
		copy(acc.Deps, c.Deps)
	}
	return &acc
}
