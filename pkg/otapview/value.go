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
	"github.com/fxamacker/cbor/v2"
)

// ValueType discriminates the shape carried by a Value, mirroring the
// attribute row's type column.
type ValueType int8

const (
	ValueEmpty ValueType = iota
	ValueString
	ValueInt64
	ValueDouble
	ValueBool
	ValueBytes
	ValueMap
	ValueArray
)

func (t ValueType) String() string {
	switch t {
	case ValueString:
		return "string"
	case ValueInt64:
		return "int64"
	case ValueDouble:
		return "double"
	case ValueBool:
		return "bool"
	case ValueBytes:
		return "bytes"
	case ValueMap:
		return "map"
	case ValueArray:
		return "array"
	default:
		return "empty"
	}
}

// Value is an attribute's decoded value. Scalar forms (String, Bytes) hold
// slices that reference the underlying Arrow buffer directly -- no copy.
// Composite forms (Map, Array) hold the raw CBOR payload and decode lazily
// on first access, since a map/slice necessarily requires allocation; that
// allocation happens only if the caller actually asks for it.
type Value struct {
	typ    ValueType
	str    string
	i64    int64
	f64    float64
	b      bool
	bytes  []byte
	cbor   []byte
}

// EmptyValue is the zero Value, returned for an attribute with no payload.
var EmptyValue = Value{typ: ValueEmpty}

func StringValue(s string) Value  { return Value{typ: ValueString, str: s} }
func Int64Value(v int64) Value    { return Value{typ: ValueInt64, i64: v} }
func DoubleValue(v float64) Value { return Value{typ: ValueDouble, f64: v} }
func BoolValue(v bool) Value      { return Value{typ: ValueBool, b: v} }
func BytesValue(b []byte) Value   { return Value{typ: ValueBytes, bytes: b} }
func MapValue(raw []byte) Value   { return Value{typ: ValueMap, cbor: raw} }
func ArrayValue(raw []byte) Value { return Value{typ: ValueArray, cbor: raw} }

// Type returns the value's discriminant.
func (v Value) Type() ValueType { return v.typ }

func (v Value) AsString() (string, bool) {
	if v.typ != ValueString {
		return "", false
	}
	return v.str, true
}

func (v Value) AsInt64() (int64, bool) {
	if v.typ != ValueInt64 {
		return 0, false
	}
	return v.i64, true
}

func (v Value) AsDouble() (float64, bool) {
	if v.typ != ValueDouble {
		return 0, false
	}
	return v.f64, true
}

func (v Value) AsBool() (bool, bool) {
	if v.typ != ValueBool {
		return false, false
	}
	return v.b, true
}

func (v Value) AsBytes() ([]byte, bool) {
	if v.typ != ValueBytes {
		return nil, false
	}
	return v.bytes, true
}

// AsMap decodes the CBOR-encoded composite map. Returns ok=false if the
// value is not a Map, or a decode error if the bytes are malformed.
func (v Value) AsMap() (map[string]interface{}, bool, error) {
	if v.typ != ValueMap {
		return nil, false, nil
	}
	var m map[string]interface{}
	if err := cbor.Unmarshal(v.cbor, &m); err != nil {
		return nil, true, err
	}
	return m, true, nil
}

// AsArray decodes the CBOR-encoded composite array.
func (v Value) AsArray() ([]interface{}, bool, error) {
	if v.typ != ValueArray {
		return nil, false, nil
	}
	var s []interface{}
	if err := cbor.Unmarshal(v.cbor, &s); err != nil {
		return nil, true, err
	}
	return s, true, nil
}
