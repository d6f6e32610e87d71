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
	"github.com/apache/arrow/go/v12/arrow"
	"github.com/apache/arrow/go/v12/arrow/array"
	"github.com/apache/arrow/go/v12/arrow/memory"

	"github.com/open-telemetry/otap-dataflow/pkg/arrowutil"
)

// ReadColumn materializes an id column as a slice of OptionalID, suitable
// for feeding to Reindex. Used by the batch merger, which must rewrite
// whole columns rather than stream row-by-row.
func ReadColumn(arr arrow.Array) ([]OptionalID, error) {
	out := make([]OptionalID, arr.Len())
	for i := range out {
		v, isNull, err := arrowutil.IDFromArray(arr, i)
		if err != nil {
			return nil, err
		}
		out[i] = OptionalID{Value: v, Null: isNull}
	}
	return out, nil
}

// BuildU32Array materializes a plain (non-dictionary) Uint32 array from
// reindexed OptionalIDs, used when writing the merger's rewritten id columns.
func BuildU32Array(mem memory.Allocator, ids []OptionalID) arrow.Array {
	b := array.NewUint32Builder(mem)
	defer b.Release()
	for _, id := range ids {
		if id.Null {
			b.AppendNull()
			continue
		}
		b.Append(id.Value)
	}
	return b.NewArray()
}
