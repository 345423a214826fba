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
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// InvalidRef is returned when given something that isn't A1 notation.
var InvalidRef = errors.New("invalid cell reference")

var (
	refPat = regexp.MustCompile(`^([A-Za-z]+)([0-9]+)$`)

	// tokenPat finds reference-shaped tokens in formula text.
	tokenPat = regexp.MustCompile(`\b[A-Za-z]+[0-9]+\b`)
)

// ParseRef parses A1 notation into a 1-based (column, row) pair.
//
// Input is case-insensitive.  Columns are bijective base-26: A=1, Z=26,
// AA=27, and so on.
func ParseRef(s string) (col int, row int, err error) {
	ss := refPat.FindStringSubmatch(s)
	if ss == nil {
		return 0, 0, fmt.Errorf("%w: '%s'", InvalidRef, s)
	}

	for _, c := range strings.ToUpper(ss[1]) {
		col = col*26 + int(c-'A') + 1
	}

	row, err = strconv.Atoi(ss[2])
	if err != nil || row < 1 {
		return 0, 0, fmt.Errorf("%w: '%s'", InvalidRef, s)
	}

	return col, row, nil
}

// FormatRef renders a 1-based (column, row) pair in canonical
// (uppercase) A1 notation.
func FormatRef(col, row int) string {
	var letters []byte
	for 0 < col {
		col--
		letters = append([]byte{byte('A' + col%26)}, letters...)
		col /= 26
	}
	return fmt.Sprintf("%s%d", letters, row)
}

// Canon returns the canonical form of a reference: FormatRef(ParseRef(s)).
func Canon(s string) (string, error) {
	col, row, err := ParseRef(s)
	if err != nil {
		return "", err
	}
	return FormatRef(col, row), nil
}

// ParseRange expands "A1:B5" into the refs of that rectangle in
// row-major order.  A bare ref is a 1x1 range.
func ParseRange(s string) ([]string, error) {
	parts := strings.SplitN(s, ":", 2)

	c0, r0, err := ParseRef(parts[0])
	if err != nil {
		return nil, err
	}
	c1, r1 := c0, r0
	if len(parts) == 2 {
		if c1, r1, err = ParseRef(parts[1]); err != nil {
			return nil, err
		}
	}

	if c1 < c0 {
		c0, c1 = c1, c0
	}
	if r1 < r0 {
		r0, r1 = r1, r0
	}

	acc := make([]string, 0, (c1-c0+1)*(r1-r0+1))
	for r := r0; r <= r1; r++ {
		for c := c0; c <= c1; c++ {
			acc = append(acc, FormatRef(c, r))
		}
	}

	return acc, nil
}

// RefTokens returns the distinct reference-shaped tokens in formula
// text, as written (case preserved), in order of first appearance.
//
// The scan is purely lexical.  A token like 'x2' that names a script
// variable rather than a cell will be picked up, too.  So be it.
func RefTokens(src string) []string {
	seen := make(map[string]bool)
	var acc []string
	for _, tok := range tokenPat.FindAllString(src, -1) {
		if seen[tok] {
			continue
		}
		seen[tok] = true
		acc = append(acc, tok)
	}
	return acc
}

// ScanRefs returns the distinct canonical refs mentioned in formula
// text, in order of first appearance.
func ScanRefs(src string) []string {
	seen := make(map[string]bool)
	var acc []string
	for _, tok := range RefTokens(src) {
		ref, err := Canon(tok)
		if err != nil {
			continue
		}
		if seen[ref] {
			continue
		}
		seen[ref] = true
		acc = append(acc, ref)
	}
	return acc
}
