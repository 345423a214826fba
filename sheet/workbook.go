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
	"sort"
	"sync"
	"time"
)

// Workbook holds cells and the reverse dependency adjacency.
//
// Workbook methods do not lock.  All mutation goes through a single
// command-dispatch path (see the protocol package), which holds the
// embedded Mutex for the duration of each operation.  Readers outside
// that path should use Snapshot.
type Workbook struct {
	sync.Mutex

	Name        string
	SetupScript string

	Cells map[string]*Cell

	// dependents[D] is the set of cells whose formulas read D.
	// Invariant: C.Deps contains D iff dependents[D] contains C.Ref.
	dependents map[string]map[string]bool

	Created  time.Time
	Modified time.Time
}

func NewWorkbook(name string) *Workbook {
	now := time.Now().UTC()
	return &Workbook{
		Name:       name,
		Cells:      make(map[string]*Cell, 64),
		dependents: make(map[string]map[string]bool, 64),
		Created:    now,
		Modified:   now,
	}
}

// Get returns a copy of the cell at ref.
//
// A well-formed ref that has no cell yields an empty sentinel cell, not
// an error.  Only a malformed ref fails.
func (w *Workbook) Get(ref string) (*Cell, error) {
	ref, err := Canon(ref)
	if err != nil {
		return nil, err
	}
	if c, have := w.Cells[ref]; have {
		return c.Copy(), nil
	}
	return &Cell{Ref: ref}, nil
}

// Set stores raw content at ref without evaluating anything.
//
// Empty content is a tombstone: the cell and its outgoing dependency
// edges are removed.  Content starting with FormulaPrefix is stored as
// a formula and its dependency set is rescanned from the text; anything
// else is a literal whose value is the content itself.
func (w *Workbook) Set(ref, content string) (*Cell, error) {
	ref, err := Canon(ref)
	if err != nil {
		return nil, err
	}

	w.Modified = time.Now().UTC()

	if content == "" {
		if c, have := w.Cells[ref]; have {
			w.unwire(ref, c.Deps)
			delete(w.Cells, ref)
		}
		return nil, nil
	}

	c, have := w.Cells[ref]
	if !have {
		c = &Cell{Ref: ref}
		w.Cells[ref] = c
	}

	// Drop stale edges before adding new ones.
	w.unwire(ref, c.Deps)

	c.Content = content
	c.IsFormula = len(content) > len(FormulaPrefix) &&
		content[:len(FormulaPrefix)] == FormulaPrefix
	c.Err = ""

	if c.IsFormula {
		c.Deps = ScanRefs(c.Formula())
		c.Value = nil
		w.wire(ref, c.Deps)
	} else {
		c.Deps = nil
		c.Value = content
	}

	return c, nil
}

// SetMetadata merges comment and/or format into the cell at ref,
// creating an empty cell if necessary.  A nil argument leaves that
// field alone.
func (w *Workbook) SetMetadata(ref string, comment, format *string) (*Cell, error) {
	ref, err := Canon(ref)
	if err != nil {
		return nil, err
	}

	c, have := w.Cells[ref]
	if !have {
		c = &Cell{Ref: ref}
		w.Cells[ref] = c
	}

	if comment != nil {
		c.Comment = *comment
	}
	if format != nil {
		c.Format = *format
	}

	w.Modified = time.Now().UTC()

	return c.Copy(), nil
}

// Clear removes all cells and edges.  The setup script survives.
func (w *Workbook) Clear() {
	w.Cells = make(map[string]*Cell, 64)
	w.dependents = make(map[string]map[string]bool, 64)
	w.Modified = time.Now().UTC()
}

// Dependents returns the (sorted) refs of cells that read ref.
func (w *Workbook) Dependents(ref string) []string {
	set := w.dependents[ref]
	if len(set) == 0 {
		return nil
	}
	acc := make([]string, 0, len(set))
	for r := range set {
		acc = append(acc, r)
	}
	sort.Strings(acc)
	return acc
}

// Refs returns the sorted refs of all set cells.
func (w *Workbook) Refs() []string {
	acc := make([]string, 0, len(w.Cells))
	for r := range w.Cells {
		acc = append(acc, r)
	}
	sort.Strings(acc)
	return acc
}

// Snapshot returns a deep copy of all cells for read-only consumers
// (rendering and the like), which must never touch live cells.
func (w *Workbook) Snapshot() map[string]*Cell {
	w.Lock()
	acc := make(map[string]*Cell, len(w.Cells))
	for r, c := range w.Cells {
		acc[r] = c.Copy()
	}
	w.Unlock()
	return acc
}

func (w *Workbook) wire(ref string, deps []string) {
	for _, d := range deps {
		set, have := w.dependents[d]
		if !have {
			set = make(map[string]bool, 4)
			w.dependents[d] = set
		}
		set[ref] = true
	}
}

func (w *Workbook) unwire(ref string, deps []string) {
	for _, d := range deps {
		if set, have := w.dependents[d]; have {
			delete(set, ref)
			if len(set) == 0 {
				delete(w.dependents, d)
			}
		}
	}
}
