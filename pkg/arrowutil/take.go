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
	"fmt"

	"github.com/apache/arrow/go/v12/arrow"
	"github.com/apache/arrow/go/v12/arrow/array"
	"github.com/apache/arrow/go/v12/arrow/memory"
)

// FlattenType returns dt with every dictionary-encoded type (at any nesting
// depth within a struct) replaced by its underlying value type. The batch
// merger flattens dictionaries on write -- re-encoding a dictionary across
// an independent concatenation is not meaningful, since the dictionary
// itself isn't preserved -- so every Take path materializes plain arrays and
// this is the schema-level counterpart. (The splitter slices records as they
// are and does not flatten.)
func FlattenType(dt arrow.DataType) arrow.DataType {
	switch t := dt.(type) {
	case *arrow.DictionaryType:
		return FlattenType(t.ValueType)
	case *arrow.StructType:
		fields := make([]arrow.Field, t.NumFields())
		for i, f := range t.Fields() {
			f.Type = FlattenType(f.Type)
			fields[i] = f
		}
		return arrow.StructOf(fields...)
	default:
		return dt
	}
}

// FlattenSchema returns schema with every field's type passed through
// FlattenType.
func FlattenSchema(schema *arrow.Schema) *arrow.Schema {
	fields := make([]arrow.Field, len(schema.Fields()))
	for i, f := range schema.Fields() {
		f.Type = FlattenType(f.Type)
		fields[i] = f
	}
	return arrow.NewSchema(fields, nil)
}

// TakeArray builds a new array of arr's flattened (dictionary-free) type,
// containing arr's values at the given row indices, in order. A negative
// index is not accepted -- callers that need a null output row pass the
// row's own index and rely on arr.IsNull, or pre-filter.
func TakeArray(mem memory.Allocator, arr arrow.Array, indices []int) (arrow.Array, error) {
	underlying := FlattenType(arr.DataType())
	b := array.NewBuilder(mem, underlying)
	defer b.Release()
	b.Reserve(len(indices))

	for _, idx := range indices {
		if err := appendValue(b, arr, idx); err != nil {
			return nil, err
		}
	}
	return b.NewArray(), nil
}

// TakeRecord builds a new record over record's flattened schema, containing
// record's rows at the given indices, in order. Used by the merger to
// flatten dictionary columns prior to concatenation.
func TakeRecord(mem memory.Allocator, record arrow.Record, indices []int) (arrow.Record, error) {
	schema := FlattenSchema(record.Schema())
	cols := make([]arrow.Array, record.NumCols())
	for i := 0; i < int(record.NumCols()); i++ {
		arr, err := TakeArray(mem, record.Column(i), indices)
		if err != nil {
			return nil, err
		}
		cols[i] = arr
	}
	defer func() {
		for _, c := range cols {
			c.Release()
		}
	}()
	return array.NewRecord(schema, cols, int64(len(indices))), nil
}

// AppendValue appends the value of src at row (or null) to builder, whose
// type must match src's flattened type. Exported for components outside
// this package (the batch merger) that build composite arrays field by
// field -- e.g. rewriting one field of a struct column while copying every
// other field unchanged.
func AppendValue(builder array.Builder, src arrow.Array, row int) error {
	return appendValue(builder, src, row)
}

// appendValue appends the value of src at row (or null) to builder, whose
// type must be src's flattened type. Dictionary-encoded src is resolved
// through its dictionary transparently; struct src recurses field by field.
func appendValue(builder array.Builder, src arrow.Array, row int) error {
	if d, ok := src.(*array.Dictionary); ok {
		if d.IsNull(row) {
			builder.AppendNull()
			return nil
		}
		return appendValue(builder, d.Dictionary(), d.GetValueIndex(row))
	}

	if src.IsNull(row) {
		builder.AppendNull()
		return nil
	}

	switch b := builder.(type) {
	case *array.Uint8Builder:
		b.Append(src.(*array.Uint8).Value(row))
	case *array.Uint16Builder:
		b.Append(src.(*array.Uint16).Value(row))
	case *array.Uint32Builder:
		b.Append(src.(*array.Uint32).Value(row))
	case *array.Uint64Builder:
		b.Append(src.(*array.Uint64).Value(row))
	case *array.Int8Builder:
		b.Append(src.(*array.Int8).Value(row))
	case *array.Int16Builder:
		b.Append(src.(*array.Int16).Value(row))
	case *array.Int32Builder:
		b.Append(src.(*array.Int32).Value(row))
	case *array.Int64Builder:
		b.Append(src.(*array.Int64).Value(row))
	case *array.Float32Builder:
		b.Append(src.(*array.Float32).Value(row))
	case *array.Float64Builder:
		b.Append(src.(*array.Float64).Value(row))
	case *array.BooleanBuilder:
		b.Append(src.(*array.Boolean).Value(row))
	case *array.StringBuilder:
		b.Append(src.(*array.String).Value(row))
	case *array.BinaryBuilder:
		b.Append(src.(*array.Binary).Value(row))
	case *array.FixedSizeBinaryBuilder:
		b.Append(src.(*array.FixedSizeBinary).Value(row))
	case *array.TimestampBuilder:
		b.Append(src.(*array.Timestamp).Value(row))
	case *array.StructBuilder:
		srcStruct, ok := src.(*array.Struct)
		if !ok {
			return fmt.Errorf("arrowutil: take: %w: expected struct source", ErrInvalidArrayType)
		}
		b.Append(true)
		for f := 0; f < srcStruct.NumField(); f++ {
			if err := appendValue(b.FieldBuilder(f), srcStruct.Field(f), row); err != nil {
				return err
			}
		}
	default:
		return fmt.Errorf("arrowutil: take: %w: %T", ErrInvalidArrayType, builder)
	}
	return nil
}
