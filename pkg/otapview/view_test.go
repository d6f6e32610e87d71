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

var resScopeStruct = arrow.StructOf(
	arrow.Field{Name: otap.ColID, Type: arrow.PrimitiveTypes.Uint16, Nullable: true},
	arrow.Field{Name: otap.ColSchemaURL, Type: arrow.BinaryTypes.String, Nullable: true},
)

var logsSchema = arrow.NewSchema([]arrow.Field{
	{Name: otap.ColID, Type: arrow.PrimitiveTypes.Uint16, Nullable: true},
	{Name: otap.ColResource, Type: resScopeStruct},
	{Name: otap.ColScope, Type: resScopeStruct},
}, nil)

func buildLogsRecord(t *testing.T, ids []uint16, resIDs, scopeIDs []uint16) arrow.Record {
	t.Helper()
	mem := memory.NewGoAllocator()
	b := array.NewRecordBuilder(mem, logsSchema)
	defer b.Release()

	idB := b.Field(0).(*array.Uint16Builder)
	resB := b.Field(1).(*array.StructBuilder)
	scopeB := b.Field(2).(*array.StructBuilder)

	for i := range ids {
		idB.Append(ids[i])

		resB.Append(true)
		resB.FieldBuilder(0).(*array.Uint16Builder).Append(resIDs[i])
		resB.FieldBuilder(1).(*array.StringBuilder).AppendNull()

		scopeB.Append(true)
		scopeB.FieldBuilder(0).(*array.Uint16Builder).Append(scopeIDs[i])
		scopeB.FieldBuilder(1).(*array.StringBuilder).AppendNull()
	}

	return b.NewRecord()
}

func TestViewGroupsResourcesAndScopesContiguous(t *testing.T) {
	rec := buildLogsRecord(t,
		[]uint16{0, 1, 2, 3},
		[]uint16{10, 10, 20, 20},
		[]uint16{100, 100, 200, 300},
	)
	defer rec.Release()

	payload := &otap.TelemetryPayload{
		Signal:  otap.SignalLogs,
		Records: map[otap.PayloadType]arrow.Record{otap.PayloadLogs: rec},
	}

	v, err := NewLogsView(payload)
	require.NoError(t, err)

	resources := v.Resources()
	require.Len(t, resources, 2)
	require.Equal(t, uint32(10), resources[0].ResourceID)
	require.True(t, resources[0].Rows.IsContiguous())
	start, end := resources[0].Rows.Range()
	require.Equal(t, 0, start)
	require.Equal(t, 2, end)

	require.Equal(t, uint32(20), resources[1].ResourceID)
	require.True(t, resources[1].Rows.IsContiguous())

	scopes := v.Scopes(20)
	require.Len(t, scopes, 2)
	require.Equal(t, uint32(200), scopes[0].ScopeID)
	require.Equal(t, uint32(300), scopes[1].ScopeID)
}

func TestViewGroupsScatteredWhenInterleaved(t *testing.T) {
	// Resource 10 appears at rows 0 and 2, resource 20 at row 1: not
	// contiguous, must fall back to a Scattered RowGroup.
	rec := buildLogsRecord(t,
		[]uint16{0, 1, 2},
		[]uint16{10, 20, 10},
		[]uint16{100, 200, 100},
	)
	defer rec.Release()

	payload := &otap.TelemetryPayload{
		Signal:  otap.SignalLogs,
		Records: map[otap.PayloadType]arrow.Record{otap.PayloadLogs: rec},
	}

	v, err := NewLogsView(payload)
	require.NoError(t, err)

	resources := v.Resources()
	require.Len(t, resources, 2)
	require.Equal(t, uint32(10), resources[0].ResourceID)
	require.False(t, resources[0].Rows.IsContiguous())
	require.Equal(t, 2, resources[0].Rows.Len())
	require.Equal(t, 0, resources[0].Rows.At(0))
	require.Equal(t, 2, resources[0].Rows.At(1))
}

func TestViewMissingPrimaryErrors(t *testing.T) {
	payload := &otap.TelemetryPayload{Signal: otap.SignalLogs, Records: map[otap.PayloadType]arrow.Record{}}
	_, err := NewLogsView(payload)
	require.ErrorIs(t, err, ErrMissingPrimary)
}
