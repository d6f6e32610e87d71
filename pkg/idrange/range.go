/*
 * Copyright The OpenTelemetry Authors
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *        http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 *
 */

package idrange

import (
	"sort"

	"github.com/apache/arrow/go/v12/arrow"

	"github.com/open-telemetry/otap-dataflow/pkg/arrowutil"
)

// Range is an inclusive [Min, Max] span of non-null id-column values.
type Range struct {
	Min, Max uint32
}

// Contains reports whether v falls within the inclusive range.
func (r Range) Contains(v uint32) bool {
	return v >= r.Min && v <= r.Max
}

// Window is a contiguous [Start, End) row span within a table.
type Window struct {
	Start, End int
}

// Len returns the number of rows in the window.
func (w Window) Len() int { return w.End - w.Start }

// ExtractRange scans the id column of arr over [start, end) and returns the
// inclusive range of non-null values, or nil if every value in the window is
// null. The id column is assumed sorted ascending with nulls first (per the
// hierarchy invariants), so the first non-null row is found by binary search
// and the window's maximum is simply its last row.
func ExtractRange(arr arrow.Array, start, end int) (*Range, error) {
	if start >= end {
		return nil, nil
	}

	// Binary search for the first non-null row in [start, end): IsNull is
	// monotonically false->true->false is impossible under the nulls-first
	// invariant, so within [start,end) it is true for a prefix and false
	// thereafter.
	firstNonNull := sort.Search(end-start, func(i int) bool {
		return !arr.IsNull(start + i)
	}) + start

	if firstNonNull >= end {
		return nil, nil
	}

	minVal, isNull, err := arrowutil.IDFromArray(arr, firstNonNull)
	if err != nil {
		return nil, err
	}
	if isNull {
		// Defensive: should not happen given the binary search above, but a
		// malformed (not actually nulls-first) column must not panic.
		return nil, nil
	}

	maxVal, isNull, err := arrowutil.IDFromArray(arr, end-1)
	if err != nil {
		return nil, err
	}
	if isNull {
		return nil, nil
	}

	return &Range{Min: minVal, Max: maxVal}, nil
}

// ExtractRanges applies ExtractRange to each window in turn, returning one
// *Range (or nil for an all-null window) per window, in order.
func ExtractRanges(arr arrow.Array, windows []Window) ([]*Range, error) {
	out := make([]*Range, len(windows))
	for i, w := range windows {
		r, err := ExtractRange(arr, w.Start, w.End)
		if err != nil {
			return nil, err
		}
		out[i] = r
	}
	return out, nil
}

// Partition splits n rows into contiguous windows of at most maxRows each.
// The last window may be shorter. leftover is the remaining room (maxRows -
// size) carried from a caller's prior batch, consumed by the first window
// only; pass 0 when there is no carry-forward budget.
func Partition(n int, maxRows int, leftover int) []Window {
	if maxRows <= 0 {
		maxRows = 1
	}
	var windows []Window
	pos := 0
	first := true
	for pos < n {
		size := maxRows
		if first && leftover > 0 && leftover < maxRows {
			size = leftover
		}
		first = false
		end := pos + size
		if end > n {
			end = n
		}
		windows = append(windows, Window{Start: pos, End: end})
		pos = end
	}
	return windows
}
