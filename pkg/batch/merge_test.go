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

package batch

import (
	"testing"

	"github.com/apache/arrow/go/v12/arrow"
	"github.com/apache/arrow/go/v12/arrow/array"
	"github.com/apache/arrow/go/v12/arrow/memory"
	"github.com/stretchr/testify/require"

	"github.com/open-telemetry/otap-dataflow/pkg/arrowutil"
	"github.com/open-telemetry/otap-dataflow/pkg/otap"
)

// TestMergeReindexesIDsAcrossInputs is spec.md §8.2 scenario 6's id half:
// two independently-numbered logs batches get concatenated with the
// second's ids starting after the first's highwater mark.
func TestMergeReindexesIDsAcrossInputs(t *testing.T) {
	logsX := buildTestLogsRecord(t, []uint16{0, 1})
	defer logsX.Release()
	logsY := buildTestLogsRecord(t, []uint16{0, 1, 2})
	defer logsY.Release()

	px := &otap.TelemetryPayload{Signal: otap.SignalLogs, Records: map[otap.PayloadType]arrow.Record{otap.PayloadLogs: logsX}}
	py := &otap.TelemetryPayload{Signal: otap.SignalLogs, Records: map[otap.PayloadType]arrow.Record{otap.PayloadLogs: logsY}}

	out, err := Merge([]*otap.TelemetryPayload{px, py}, nil)
	require.NoError(t, err)
	require.Len(t, out, 1)

	ids := idColumnValues(t, out[0].Records[otap.PayloadLogs], otap.ColID)
	require.Equal(t, []uint32{0, 1, 2, 3, 4}, ids)
}

// TestMergeUnifiesOptionalColumns is spec.md §8.2 scenario 6: batch X has
// {id, severity}, batch Y has {id, body}; the merged output has both
// columns, with the appropriate side null for each input's rows.
func TestMergeUnifiesOptionalColumns(t *testing.T) {
	m := memory.NewGoAllocator()

	schemaX := arrow.NewSchema([]arrow.Field{
		{Name: otap.ColID, Type: arrow.PrimitiveTypes.Uint16, Nullable: true},
		{Name: otap.ColResource, Type: testResScopeStruct},
		{Name: otap.ColScope, Type: testResScopeStruct},
		{Name: otap.ColSeverityNumber, Type: arrow.PrimitiveTypes.Int32, Nullable: true},
	}, nil)
	schemaY := arrow.NewSchema([]arrow.Field{
		{Name: otap.ColID, Type: arrow.PrimitiveTypes.Uint16, Nullable: true},
		{Name: otap.ColResource, Type: testResScopeStruct},
		{Name: otap.ColScope, Type: testResScopeStruct},
		{Name: otap.ColBody, Type: arrow.BinaryTypes.String, Nullable: true},
	}, nil)

	build := func(schema *arrow.Schema, ids []uint16, extraCol int, fill func(b array.Builder, i int)) arrow.Record {
		rb := array.NewRecordBuilder(m, schema)
		defer rb.Release()
		idB := rb.Field(0).(*array.Uint16Builder)
		resB := rb.Field(1).(*array.StructBuilder)
		scopeB := rb.Field(2).(*array.StructBuilder)
		for i, id := range ids {
			idB.Append(id)
			resB.Append(true)
			resB.FieldBuilder(0).(*array.Uint16Builder).Append(0)
			resB.FieldBuilder(1).(*array.StringBuilder).AppendNull()
			scopeB.Append(true)
			scopeB.FieldBuilder(0).(*array.Uint16Builder).Append(0)
			scopeB.FieldBuilder(1).(*array.StringBuilder).AppendNull()
			fill(rb.Field(extraCol), i)
		}
		return rb.NewRecord()
	}

	recX := build(schemaX, []uint16{0, 1}, 3, func(b array.Builder, i int) {
		b.(*array.Int32Builder).Append(int32(5))
	})
	defer recX.Release()
	recY := build(schemaY, []uint16{0, 1}, 3, func(b array.Builder, i int) {
		b.(*array.StringBuilder).Append("hello")
	})
	defer recY.Release()

	px := &otap.TelemetryPayload{Signal: otap.SignalLogs, Records: map[otap.PayloadType]arrow.Record{otap.PayloadLogs: recX}}
	py := &otap.TelemetryPayload{Signal: otap.SignalLogs, Records: map[otap.PayloadType]arrow.Record{otap.PayloadLogs: recY}}

	out, err := Merge([]*otap.TelemetryPayload{px, py}, nil)
	require.NoError(t, err)
	require.Len(t, out, 1)

	merged := out[0].Records[otap.PayloadLogs]
	require.True(t, arrowutil.HasField(merged.Schema(), otap.ColSeverityNumber))
	require.True(t, arrowutil.HasField(merged.Schema(), otap.ColBody))
	require.Equal(t, int64(4), merged.NumRows())

	sevArr, err := arrowutil.ColumnByName(merged, otap.ColSeverityNumber)
	require.NoError(t, err)
	require.False(t, sevArr.IsNull(0))
	require.False(t, sevArr.IsNull(1))
	require.True(t, sevArr.IsNull(2))
	require.True(t, sevArr.IsNull(3))

	bodyArr, err := arrowutil.ColumnByName(merged, otap.ColBody)
	require.NoError(t, err)
	require.True(t, bodyArr.IsNull(0))
	require.True(t, bodyArr.IsNull(1))
	require.False(t, bodyArr.IsNull(2))
	require.False(t, bodyArr.IsNull(3))

	ids := idColumnValues(t, merged, otap.ColID)
	require.Equal(t, []uint32{0, 1, 2, 3}, ids)
}

func TestMergeThenSplitRespectsMaxRows(t *testing.T) {
	logsX := buildTestLogsRecord(t, []uint16{0, 1})
	defer logsX.Release()
	logsY := buildTestLogsRecord(t, []uint16{0, 1})
	defer logsY.Release()

	px := &otap.TelemetryPayload{Signal: otap.SignalLogs, Records: map[otap.PayloadType]arrow.Record{otap.PayloadLogs: logsX}}
	py := &otap.TelemetryPayload{Signal: otap.SignalLogs, Records: map[otap.PayloadType]arrow.Record{otap.PayloadLogs: logsY}}

	maxRows := uint64(3)
	out, err := Merge([]*otap.TelemetryPayload{px, py}, &maxRows)
	require.NoError(t, err)
	require.Len(t, out, 2)
	require.LessOrEqual(t, out[0].RowCount(), int64(3))
	require.LessOrEqual(t, out[1].RowCount(), int64(3))
}

func TestMergeEmptyInputReturnsNil(t *testing.T) {
	out, err := Merge(nil, nil)
	require.NoError(t, err)
	require.Nil(t, out)
}

func TestMergeRejectsMixedSignals(t *testing.T) {
	logs := buildTestLogsRecord(t, []uint16{0})
	defer logs.Release()
	px := &otap.TelemetryPayload{Signal: otap.SignalLogs, Records: map[otap.PayloadType]arrow.Record{otap.PayloadLogs: logs}}
	py := &otap.TelemetryPayload{Signal: otap.SignalTraces, Records: map[otap.PayloadType]arrow.Record{}}
	py.Records[otap.PayloadSpans] = logs

	_, err := Merge([]*otap.TelemetryPayload{px, py}, nil)
	require.ErrorIs(t, err, ErrUnsupportedSignal)
}
