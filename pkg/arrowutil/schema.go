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

package arrowutil

import (
	"github.com/apache/arrow/go/v12/arrow"
	"github.com/apache/arrow/go/v12/arrow/array"
)

// StructField returns the field index and type of a struct-typed column,
// or ok=false if absent.
func StructField(schema *arrow.Schema, name string) (idx int, st *arrow.StructType, ok bool) {
	idxs := schema.FieldIndices(name)
	if len(idxs) != 1 {
		return 0, nil, false
	}
	st, ok = schema.Field(idxs[0]).Type.(*arrow.StructType)
	return idxs[0], st, ok
}

// StructFromRecord returns the struct array for a named column.
func StructFromRecord(record arrow.Record, name string) (*arrow.StructType, *array.Struct, bool) {
	idx, st, ok := StructField(record.Schema(), name)
	if !ok {
		return nil, nil, false
	}
	arr, isStruct := record.Column(idx).(*array.Struct)
	if !isStruct {
		return nil, nil, false
	}
	return st, arr, true
}

// FieldOfStruct returns the field index of name within a struct type.
func FieldOfStruct(dt *arrow.StructType, name string) (int, bool) {
	return dt.FieldIdx(name)
}

// IsDictionary reports whether dt is a dictionary-encoded type, and if so
// returns its value (payload) type.
func IsDictionary(dt arrow.DataType) (value arrow.DataType, ok bool) {
	d, ok := dt.(*arrow.DictionaryType)
	if !ok {
		return nil, false
	}
	return d.ValueType, true
}

// UnderlyingType returns dt's dictionary value type if dt is
// dictionary-encoded, else dt itself.
func UnderlyingType(dt arrow.DataType) arrow.DataType {
	if v, ok := IsDictionary(dt); ok {
		return v
	}
	return dt
}

// FieldNames returns the top-level column names of a schema, in order.
func FieldNames(schema *arrow.Schema) []string {
	fields := schema.Fields()
	names := make([]string, len(fields))
	for i, f := range fields {
		names[i] = f.Name
	}
	return names
}

// HasField reports whether schema declares a top-level field named name.
func HasField(schema *arrow.Schema, name string) bool {
	return len(schema.FieldIndices(name)) == 1
}
