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

// ChildSlicesByParentRange returns, for each parent range in ranges (which
// must be in ascending, non-overlapping order, as produced by ExtractRanges
// over a partition of the primary table), the contiguous [start, end) slice
// of rows in a child table whose parent_id falls within that range. A nil
// range (all-null parent window — never valid for a parent_id column, but
// tolerated) yields an empty slice. When no rows match, the returned window
// is empty but still well-formed (Start == End) so callers can always slice
// the child table's other columns the same way.
//
// parentID must be sorted ascending (parent_id is never nullable, per the
// hierarchy invariants). The search advances a cursor across calls so the
// total cost across all ranges is O(rows + len(ranges)*log(rows)) rather
// than O(len(ranges)*rows).
func ChildSlicesByParentRange(parentID arrow.Array, ranges []*Range) ([]Window, error) {
	n := parentID.Len()
	out := make([]Window, len(ranges))
	cursor := 0

	for i, r := range ranges {
		if r == nil {
			out[i] = Window{Start: cursor, End: cursor}
			continue
		}

		lo, err := lowerBound(parentID, cursor, n, r.Min)
		if err != nil {
			return nil, err
		}
		hi, err := lowerBound(parentID, lo, n, r.Max+1)
		if err != nil {
			return nil, err
		}

		out[i] = Window{Start: lo, End: hi}
		cursor = hi
	}

	return out, nil
}

// lowerBound returns the partition point: the smallest index in [from, to)
// whose parent_id value is >= target, or to if none qualifies. Equivalent to
// Rust's slice::partition_point over a sorted column.
func lowerBound(arr arrow.Array, from, to int, target uint32) (int, error) {
	var searchErr error
	idx := sort.Search(to-from, func(i int) bool {
		v, isNull, err := arrowutil.IDFromArray(arr, from+i)
		if err != nil {
			searchErr = err
			return true
		}
		if isNull {
			// parent_id is never null; treat as smaller than any target so
			// the search keeps advancing rather than getting stuck.
			return false
		}
		return v >= target
	})
	if searchErr != nil {
		return 0, searchErr
	}
	return from + idx, nil
}
