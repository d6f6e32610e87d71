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
	"github.com/apache/arrow/go/v12/arrow"
	"github.com/apache/arrow/go/v12/arrow/memory"

	"github.com/open-telemetry/otap-dataflow/pkg/arrowutil"
	"github.com/open-telemetry/otap-dataflow/pkg/otap"
)

var mem = memory.NewGoAllocator()

// structFieldArray returns the named field of a top-level struct column
// (e.g. resource.id, scope.id), or nil if either the column or field is
// absent.
func structFieldArray(record arrow.Record, structCol, fieldName string) (arrow.Array, error) {
	st, arr, ok := arrowutil.StructFromRecord(record, structCol)
	if !ok {
		return nil, nil
	}
	idx, ok := arrowutil.FieldOfStruct(st, fieldName)
	if !ok {
		return nil, nil
	}
	return arr.Field(idx), nil
}

// clonePayload shallow-copies a TelemetryPayload's record map so a result
// batch can be built up independently of the input's map.
func clonePayload(signal otap.SignalType) *otap.TelemetryPayload {
	return &otap.TelemetryPayload{
		Signal:  signal,
		Records: make(map[otap.PayloadType]arrow.Record),
	}
}
