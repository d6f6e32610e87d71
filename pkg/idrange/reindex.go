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

// OptionalID is one row of a nullable id column: a value plus whether the
// row is null. Non-null parent_id columns simply never set Null.
type OptionalID struct {
	Value uint32
	Null  bool
}

// MaxForBits returns the largest value representable by an unsigned integer
// of the given bit width (16 or 32), used to detect reindex overflow against
// the column's declared output width.
func MaxForBits(bits int) uint64 {
	switch bits {
	case 16:
		return 0xFFFF
	case 32:
		return 0xFFFFFFFF
	default:
		return 0xFFFFFFFF
	}
}

// Reindex replaces ids (sorted ascending, nulls first, possibly with gaps and
// duplicates) with a dense gap-free sequence starting at nextStartingID. The
// equivalence relation over non-null values is preserved: equal old values
// map to equal new values, and since the input is sorted, adjacent distinct
// groups become adjacent output integers. Null positions pass through
// unchanged. outBits (16 or 32) bounds the output column's integer width;
// overflow is detected and reported before any output is returned.
//
// When the non-null values already form a gap-free run (duplicates aside),
// the fast path is a single vectorized offset add (newId = oldId - min +
// nextStartingID). Otherwise an order-preserving dedup-then-map pass is used.
func Reindex(ids []OptionalID, nextStartingID uint32, outBits int) ([]OptionalID, uint32, error) {
	if len(ids) == 0 {
		return nil, nextStartingID, nil
	}

	distinct, isGapFree, min := scan(ids)
	if distinct == 0 {
		// every row is null
		out := make([]OptionalID, len(ids))
		copy(out, ids)
		return out, nextStartingID, nil
	}

	maxOut := uint64(nextStartingID) + uint64(distinct) - 1
	if maxOut > MaxForBits(outBits) {
		return nil, 0, ErrOverflow
	}

	out := make([]OptionalID, len(ids))

	if isGapFree {
		offset := nextStartingID - min
		for i, id := range ids {
			if id.Null {
				out[i] = OptionalID{Null: true}
				continue
			}
			out[i] = OptionalID{Value: id.Value + offset}
		}
		return out, nextStartingID + uint32(distinct), nil
	}

	counter := nextStartingID
	haveLast := false
	var last uint32
	for i, id := range ids {
		if id.Null {
			out[i] = OptionalID{Null: true}
			continue
		}
		if !haveLast || id.Value != last {
			if haveLast {
				counter++
			}
			last = id.Value
			haveLast = true
		}
		out[i] = OptionalID{Value: counter}
	}

	return out, counter + 1, nil
}

// scan makes a single pass computing: the number of distinct non-null
// values, whether those distinct values form a contiguous gap-free run
// (duplicates don't break gap-freedom), and the minimum non-null value.
func scan(ids []OptionalID) (distinct int, gapFree bool, min uint32) {
	haveLast := false
	var last, max uint32
	for _, id := range ids {
		if id.Null {
			continue
		}
		if !haveLast {
			min, max = id.Value, id.Value
			distinct = 1
			last = id.Value
			haveLast = true
			continue
		}
		if id.Value != last {
			distinct++
			last = id.Value
		}
		if id.Value > max {
			max = id.Value
		}
	}
	if !haveLast {
		return 0, true, 0
	}
	gapFree = uint64(max-min)+1 == uint64(distinct)
	return distinct, gapFree, min
}
