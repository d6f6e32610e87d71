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

	"github.com/open-telemetry/otap-dataflow/pkg/werror"
)

// Every accessor below treats a nil array or a null value at the requested
// row identically: it returns the zero value and a nil error. Callers that
// must tell a null from a zero value use IDFromArray's isNull result or
// IsNullAt; neither tells an absent column apart from a null value.

// U8FromArray returns the uint8 value at row, transparently unwrapping
// dictionary encoding.
func U8FromArray(arr arrow.Array, row int) (uint8, error) {
	if arr == nil || arr.IsNull(row) {
		return 0, nil
	}
	switch a := arr.(type) {
	case *array.Uint8:
		return a.Value(row), nil
	case *array.Dictionary:
		v, err := U8FromArray(a.Dictionary(), a.GetValueIndex(row))
		return v, err
	default:
		return 0, werror.WrapWithMsg(ErrInvalidArrayType, "not a uint8 array")
	}
}

// U16FromArray returns the uint16 value at row, transparently unwrapping
// dictionary encoding (Dict<UInt8, UInt16> per the OTAP id-column spec).
func U16FromArray(arr arrow.Array, row int) (uint16, error) {
	if arr == nil || arr.IsNull(row) {
		return 0, nil
	}
	switch a := arr.(type) {
	case *array.Uint16:
		return a.Value(row), nil
	case *array.Dictionary:
		v, err := U16FromArray(a.Dictionary(), a.GetValueIndex(row))
		return v, err
	default:
		return 0, werror.WrapWithMsg(ErrInvalidArrayType, "not a uint16 array")
	}
}

// U32FromArray returns the uint32 value at row, transparently unwrapping
// dictionary encoding (Dict<UInt16, UInt32> per the OTAP id-column spec).
func U32FromArray(arr arrow.Array, row int) (uint32, error) {
	if arr == nil || arr.IsNull(row) {
		return 0, nil
	}
	switch a := arr.(type) {
	case *array.Uint32:
		return a.Value(row), nil
	case *array.Dictionary:
		v, err := U32FromArray(a.Dictionary(), a.GetValueIndex(row))
		return v, err
	default:
		return 0, werror.WrapWithMsg(ErrInvalidArrayType, "not a uint32 array")
	}
}

func U64FromArray(arr arrow.Array, row int) (uint64, error) {
	if arr == nil || arr.IsNull(row) {
		return 0, nil
	}
	switch a := arr.(type) {
	case *array.Uint64:
		return a.Value(row), nil
	case *array.Dictionary:
		return U64FromArray(a.Dictionary(), a.GetValueIndex(row))
	default:
		return 0, werror.WrapWithMsg(ErrInvalidArrayType, "not a uint64 array")
	}
}

func I32FromArray(arr arrow.Array, row int) (int32, error) {
	if arr == nil || arr.IsNull(row) {
		return 0, nil
	}
	switch a := arr.(type) {
	case *array.Int32:
		return a.Value(row), nil
	case *array.Dictionary:
		return I32FromArray(a.Dictionary(), a.GetValueIndex(row))
	default:
		return 0, werror.WrapWithMsg(ErrInvalidArrayType, "not an int32 array")
	}
}

func I64FromArray(arr arrow.Array, row int) (int64, error) {
	if arr == nil || arr.IsNull(row) {
		return 0, nil
	}
	switch a := arr.(type) {
	case *array.Int64:
		return a.Value(row), nil
	case *array.Dictionary:
		return I64FromArray(a.Dictionary(), a.GetValueIndex(row))
	default:
		return 0, werror.WrapWithMsg(ErrInvalidArrayType, "not an int64 array")
	}
}

func F64FromArray(arr arrow.Array, row int) (float64, error) {
	if arr == nil || arr.IsNull(row) {
		return 0, nil
	}
	switch a := arr.(type) {
	case *array.Float64:
		return a.Value(row), nil
	case *array.Dictionary:
		return F64FromArray(a.Dictionary(), a.GetValueIndex(row))
	default:
		return 0, werror.WrapWithMsg(ErrInvalidArrayType, "not a float64 array")
	}
}

func BoolFromArray(arr arrow.Array, row int) (bool, error) {
	if arr == nil || arr.IsNull(row) {
		return false, nil
	}
	switch a := arr.(type) {
	case *array.Boolean:
		return a.Value(row), nil
	case *array.Dictionary:
		return BoolFromArray(a.Dictionary(), a.GetValueIndex(row))
	default:
		return false, werror.WrapWithMsg(ErrInvalidArrayType, "not a bool array")
	}
}

// StringFromArray returns the string value at row, transparently unwrapping
// dictionary encoding. Returns "" for a nil array or a null value.
func StringFromArray(arr arrow.Array, row int) (string, error) {
	if arr == nil || arr.IsNull(row) {
		return "", nil
	}
	switch a := arr.(type) {
	case *array.String:
		return a.Value(row), nil
	case *array.Dictionary:
		return StringFromArray(a.Dictionary(), a.GetValueIndex(row))
	default:
		return "", werror.WrapWithMsg(ErrInvalidArrayType, "not a string array")
	}
}

// BinaryFromArray returns the raw bytes at row, transparently unwrapping
// dictionary encoding.
func BinaryFromArray(arr arrow.Array, row int) ([]byte, error) {
	if arr == nil || arr.IsNull(row) {
		return nil, nil
	}
	switch a := arr.(type) {
	case *array.Binary:
		return a.Value(row), nil
	case *array.Dictionary:
		return BinaryFromArray(a.Dictionary(), a.GetValueIndex(row))
	default:
		return nil, werror.WrapWithMsg(ErrInvalidArrayType, "not a binary array")
	}
}

// IDFromArray reads a primary-table or parent-id column value, accepting
// either a plain Uint16/Uint32 array or a dictionary-encoded one, and
// returns it widened to uint32 along with whether the value is null. A null
// id (only legal on primary-table id columns, never on parent_id) means
// "this row has no children referring to it".
func IDFromArray(arr arrow.Array, row int) (id uint32, isNull bool, err error) {
	if arr == nil || arr.IsNull(row) {
		return 0, true, nil
	}
	switch a := arr.(type) {
	case *array.Uint16:
		return uint32(a.Value(row)), false, nil
	case *array.Uint32:
		return a.Value(row), false, nil
	case *array.Dictionary:
		id, isNull, err = IDFromArray(a.Dictionary(), a.GetValueIndex(row))
		return id, isNull, err
	default:
		return 0, false, werror.WrapWithMsg(ErrInvalidArrayType, "not an id column")
	}
}

// -- record-level convenience wrappers, field looked up by schema name --

// ColumnByName returns the named top-level column, or nil if the record's
// schema has no such field (an optional table simply absent from this
// payload). An error is returned only if the schema is malformed enough to
// declare the same name twice.
func ColumnByName(record arrow.Record, name string) (arrow.Array, error) {
	return columnByName(record, name)
}

func columnByName(record arrow.Record, name string) (arrow.Array, error) {
	idxs := record.Schema().FieldIndices(name)
	switch len(idxs) {
	case 0:
		return nil, nil
	case 1:
		return record.Column(idxs[0]), nil
	default:
		return nil, werror.WrapWithMsg(ErrAmbiguousField, name)
	}
}

func U8FromRecord(record arrow.Record, name string, row int) (uint8, error) {
	arr, err := columnByName(record, name)
	if err != nil || arr == nil {
		return 0, err
	}
	return U8FromArray(arr, row)
}

func U16FromRecord(record arrow.Record, name string, row int) (uint16, error) {
	arr, err := columnByName(record, name)
	if err != nil || arr == nil {
		return 0, err
	}
	return U16FromArray(arr, row)
}

func U32FromRecord(record arrow.Record, name string, row int) (uint32, error) {
	arr, err := columnByName(record, name)
	if err != nil || arr == nil {
		return 0, err
	}
	return U32FromArray(arr, row)
}

func U64FromRecord(record arrow.Record, name string, row int) (uint64, error) {
	arr, err := columnByName(record, name)
	if err != nil || arr == nil {
		return 0, err
	}
	return U64FromArray(arr, row)
}

func I64FromRecord(record arrow.Record, name string, row int) (int64, error) {
	arr, err := columnByName(record, name)
	if err != nil || arr == nil {
		return 0, err
	}
	return I64FromArray(arr, row)
}

func F64FromRecord(record arrow.Record, name string, row int) (float64, error) {
	arr, err := columnByName(record, name)
	if err != nil || arr == nil {
		return 0, err
	}
	return F64FromArray(arr, row)
}

func BoolFromRecord(record arrow.Record, name string, row int) (bool, error) {
	arr, err := columnByName(record, name)
	if err != nil || arr == nil {
		return false, err
	}
	return BoolFromArray(arr, row)
}

func StringFromRecord(record arrow.Record, name string, row int) (string, error) {
	arr, err := columnByName(record, name)
	if err != nil || arr == nil {
		return "", err
	}
	return StringFromArray(arr, row)
}

func BinaryFromRecord(record arrow.Record, name string, row int) ([]byte, error) {
	arr, err := columnByName(record, name)
	if err != nil || arr == nil {
		return nil, err
	}
	return BinaryFromArray(arr, row)
}

// IDFromRecord reads the named id/parent_id column for row. See
// IDFromArray.
func IDFromRecord(record arrow.Record, name string, row int) (id uint32, isNull bool, err error) {
	arr, err := columnByName(record, name)
	if err != nil || arr == nil {
		return 0, true, err
	}
	return IDFromArray(arr, row)
}

// IsNullAt reports whether the named column is absent from the record, or
// present but null at row. Unlike the typed accessors above (which collapse
// "absent" and "null" to the type's zero value), this distinguishes neither
// -- it answers true for both, which is exactly what callers that must skip
// a row on a null key (rather than treat null as the empty string) need.
func IsNullAt(record arrow.Record, name string, row int) (bool, error) {
	arr, err := columnByName(record, name)
	if err != nil {
		return false, err
	}
	if arr == nil {
		return true, nil
	}
	return arr.IsNull(row), nil
}
