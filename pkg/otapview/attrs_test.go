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

package otapview

import (
	"testing"

	"github.com/apache/arrow/go/v12/arrow"
	"github.com/apache/arrow/go/v12/arrow/array"
	"github.com/apache/arrow/go/v12/arrow/memory"
	"github.com/stretchr/testify/require"

	"github.com/open-telemetry/otap-dataflow/pkg/otap"
)

var attrSchema = arrow.NewSchema([]arrow.Field{
	{Name: otap.ColParentID, Type: arrow.PrimitiveTypes.Uint16},
	{Name: otap.ColAttrKey, Type: arrow.BinaryTypes.String, Nullable: true},
	{Name: otap.ColAttrType, Type: arrow.PrimitiveTypes.Uint8},
	{Name: otap.ColAttrStr, Type: arrow.BinaryTypes.String, Nullable: true},
}, nil)

func buildAttrRecord(t *testing.T, parentIDs []uint16, keys []*string, values []string) arrow.Record {
	t.Helper()
	mem := memory.NewGoAllocator()
	b := array.NewRecordBuilder(mem, attrSchema)
	defer b.Release()

	pidB := b.Field(0).(*array.Uint16Builder)
	keyB := b.Field(1).(*array.StringBuilder)
	typeB := b.Field(2).(*array.Uint8Builder)
	strB := b.Field(3).(*array.StringBuilder)

	for i := range parentIDs {
		pidB.Append(parentIDs[i])
		if keys[i] == nil {
			keyB.AppendNull()
		} else {
			keyB.Append(*keys[i])
		}
		typeB.Append(uint8(ValueString))
		strB.Append(values[i])
	}

	return b.NewRecord()
}

func strp(s string) *string { return &s }

func TestForEachAttributeSkipsNullKey(t *testing.T) {
	rec := buildAttrRecord(t,
		[]uint16{1, 1, 1},
		[]*string{strp("service.name"), nil, strp("env")},
		[]string{"checkout", "ignored", "prod"},
	)
	defer rec.Release()

	idx, err := BuildAttrIndex(rec)
	require.NoError(t, err)

	var got []Attribute
	err = ForEachAttribute(rec, idx.Rows(1), func(a Attribute) {
		got = append(got, a)
	})
	require.NoError(t, err)
	require.Len(t, got, 2)
	require.Equal(t, "service.name", got[0].Key)
	require.Equal(t, "env", got[1].Key)

	str, ok := got[0].Value.AsString()
	require.True(t, ok)
	require.Equal(t, "checkout", str)
}

func TestAttrIndexGroupsByParent(t *testing.T) {
	rec := buildAttrRecord(t,
		[]uint16{1, 2, 1},
		[]*string{strp("a"), strp("b"), strp("c")},
		[]string{"1", "2", "3"},
	)
	defer rec.Release()

	idx, err := BuildAttrIndex(rec)
	require.NoError(t, err)

	g1 := idx.Rows(1)
	require.Equal(t, 2, g1.Len())
	require.False(t, g1.IsContiguous())

	g2 := idx.Rows(2)
	require.Equal(t, 1, g2.Len())
	require.True(t, g2.IsContiguous())

	g3 := idx.Rows(99)
	require.Equal(t, 0, g3.Len())
}
