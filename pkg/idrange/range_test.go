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
	"testing"

	"github.com/apache/arrow/go/v12/arrow/array"
	"github.com/apache/arrow/go/v12/arrow/memory"
	"github.com/stretchr/testify/require"
)

func TestExtractRangeAllNonNull(t *testing.T) {
	b := array.NewUint32Builder(memory.NewGoAllocator())
	defer b.Release()
	for _, v := range []uint32{0, 1, 2, 3} {
		b.Append(v)
	}
	arr := b.NewArray()
	defer arr.Release()

	r, err := ExtractRange(arr, 0, 4)
	require.NoError(t, err)
	require.Equal(t, &Range{Min: 0, Max: 3}, r)
}

func TestExtractRangeAllNull(t *testing.T) {
	b := array.NewUint32Builder(memory.NewGoAllocator())
	defer b.Release()
	b.AppendNull()
	b.AppendNull()
	arr := b.NewArray()
	defer arr.Release()

	r, err := ExtractRange(arr, 0, 2)
	require.NoError(t, err)
	require.Nil(t, r)
}

func TestExtractRangeNullsFirst(t *testing.T) {
	b := array.NewUint32Builder(memory.NewGoAllocator())
	defer b.Release()
	b.AppendNull()
	b.Append(5)
	b.Append(7)
	arr := b.NewArray()
	defer arr.Release()

	r, err := ExtractRange(arr, 0, 3)
	require.NoError(t, err)
	require.Equal(t, &Range{Min: 5, Max: 7}, r)
}

func TestPartitionCarriesLeftover(t *testing.T) {
	windows := Partition(10, 4, 2)
	require.Equal(t, []Window{{0, 2}, {2, 6}, {6, 10}}, windows)
}

func TestChildSlicesByParentRange(t *testing.T) {
	b := array.NewUint32Builder(memory.NewGoAllocator())
	defer b.Release()
	for _, v := range []uint32{0, 0, 1, 3, 3, 3} {
		b.Append(v)
	}
	parentIDs := b.NewArray()
	defer parentIDs.Release()

	ranges := []*Range{{Min: 0, Max: 1}, {Min: 2, Max: 2}, {Min: 3, Max: 3}}
	windows, err := ChildSlicesByParentRange(parentIDs, ranges)
	require.NoError(t, err)
	require.Equal(t, []Window{{0, 3}, {3, 3}, {3, 6}}, windows)
}

func TestReindexGapFreeFastPath(t *testing.T) {
	ids := []OptionalID{{Value: 5}, {Value: 5}, {Value: 6}, {Value: 7}}
	out, next, err := Reindex(ids, 0, 16)
	require.NoError(t, err)
	require.Equal(t, []OptionalID{{Value: 0}, {Value: 0}, {Value: 1}, {Value: 2}}, out)
	require.Equal(t, uint32(3), next)
}

func TestReindexWithGapsDedupMap(t *testing.T) {
	ids := []OptionalID{{Value: 10}, {Value: 10}, {Value: 15}, {Value: 100}}
	out, next, err := Reindex(ids, 5, 16)
	require.NoError(t, err)
	require.Equal(t, []OptionalID{{Value: 5}, {Value: 5}, {Value: 6}, {Value: 7}}, out)
	require.Equal(t, uint32(8), next)
}

func TestReindexPreservesNullPositions(t *testing.T) {
	ids := []OptionalID{{Null: true}, {Value: 2}, {Value: 2}, {Null: true}, {Value: 9}}
	out, next, err := Reindex(ids, 0, 16)
	require.NoError(t, err)
	require.True(t, out[0].Null)
	require.True(t, out[3].Null)
	require.Equal(t, uint32(0), out[1].Value)
	require.Equal(t, uint32(0), out[2].Value)
	require.Equal(t, uint32(1), out[4].Value)
	require.Equal(t, uint32(2), next)
}

func TestReindexOverflowDetected(t *testing.T) {
	ids := []OptionalID{{Value: 0}, {Value: 1}, {Value: 2}}
	_, _, err := Reindex(ids, 0xFFFE, 16)
	require.ErrorIs(t, err, ErrOverflow)
}

func TestReindexAllNull(t *testing.T) {
	ids := []OptionalID{{Null: true}, {Null: true}}
	out, next, err := Reindex(ids, 7, 16)
	require.NoError(t, err)
	require.Equal(t, uint32(7), next)
	require.True(t, out[0].Null)
	require.True(t, out[1].Null)
}
