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

package router

import (
	"testing"

	"github.com/apache/arrow/go/v12/arrow"
	"github.com/apache/arrow/go/v12/arrow/array"
	"github.com/apache/arrow/go/v12/arrow/memory"
	"github.com/gogo/protobuf/proto"
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

var resAttrsSchema = arrow.NewSchema([]arrow.Field{
	{Name: otap.ColParentID, Type: arrow.PrimitiveTypes.Uint16},
	{Name: otap.ColAttrKey, Type: arrow.BinaryTypes.String, Nullable: true},
	{Name: otap.ColAttrType, Type: arrow.PrimitiveTypes.Uint8},
	{Name: otap.ColAttrStr, Type: arrow.BinaryTypes.String, Nullable: true},
}, nil)

// buildPayload constructs a Logs payload with one resource per entry in
// resourceIDs (each carrying a distinct log record so otapview.NewView can
// build a resource group) and, for each resource, at most one string
// attribute named key (attrVal == "" means "no attribute row at all", i.e.
// MissingKey).
func buildPayload(t *testing.T, key string, resourceIDs []uint16, attrVals []string) *otap.TelemetryPayload {
	t.Helper()
	require.Equal(t, len(resourceIDs), len(attrVals))
	m := memory.NewGoAllocator()

	lb := array.NewRecordBuilder(m, logsSchema)
	defer lb.Release()
	idB := lb.Field(0).(*array.Uint16Builder)
	resB := lb.Field(1).(*array.StructBuilder)
	scopeB := lb.Field(2).(*array.StructBuilder)

	ab := array.NewRecordBuilder(m, resAttrsSchema)
	defer ab.Release()
	pB := ab.Field(0).(*array.Uint16Builder)
	keyB := ab.Field(1).(*array.StringBuilder)
	typeB := ab.Field(2).(*array.Uint8Builder)
	strB := ab.Field(3).(*array.StringBuilder)

	for i, rid := range resourceIDs {
		idB.Append(uint16(i))
		resB.Append(true)
		resB.FieldBuilder(0).(*array.Uint16Builder).Append(rid)
		resB.FieldBuilder(1).(*array.StringBuilder).AppendNull()
		scopeB.Append(true)
		scopeB.FieldBuilder(0).(*array.Uint16Builder).Append(0)
		scopeB.FieldBuilder(1).(*array.StringBuilder).AppendNull()

		if attrVals[i] != "" {
			pB.Append(rid)
			keyB.Append(key)
			typeB.Append(1) // ValueString
			strB.Append(attrVals[i])
		}
	}

	logs := lb.NewRecord()
	attrs := ab.NewRecord()

	return &otap.TelemetryPayload{
		Signal: otap.SignalLogs,
		Records: map[otap.PayloadType]arrow.Record{
			otap.PayloadLogs:         logs,
			otap.PayloadResourceAttrs: attrs,
		},
	}
}

func mustRouter(t *testing.T, cfg Config) *Router {
	t.Helper()
	r, err := New(cfg, nil)
	require.NoError(t, err)
	return r
}

func TestConfigValidation(t *testing.T) {
	_, err := New(Config{Key: ""}, nil)
	require.ErrorIs(t, err, ErrEmptyRoutingKey)

	_, err = New(Config{Key: "tenant", Routes: map[string]string{"a": "portX"}, DeclaredPorts: []string{"portA"}}, nil)
	require.ErrorIs(t, err, ErrUndeclaredPort)

	_, err = New(Config{Key: "tenant", DefaultOutput: "portX", DeclaredPorts: []string{"portA"}}, nil)
	require.ErrorIs(t, err, ErrUndeclaredPort)

	_, err = New(Config{Key: "tenant", Routes: map[string]string{"A": "portA", "a": "portA"}}, nil)
	require.ErrorIs(t, err, ErrDuplicateRouteValue)

	r, err := New(Config{Key: "tenant", Routes: map[string]string{"A": "portA"}}, nil)
	require.NoError(t, err)
	require.NotNil(t, r)
}

// TestUniformMatch is spec.md §8.1's "no-mixed on uniform" invariant.
func TestUniformMatch(t *testing.T) {
	r := mustRouter(t, Config{Key: "tenant", Routes: map[string]string{"a": "portA"}})
	payload := buildPayload(t, "tenant", []uint16{0, 1, 2}, []string{"A", "a", "A"})
	res, err := r.ResolveRoute(payload)
	require.NoError(t, err)
	require.Equal(t, Matched, res.Kind)
	require.Equal(t, "portA", res.Port)
}

// TestMixedBatchNACK is spec.md §8.2 scenario 2.
func TestMixedBatchNACK(t *testing.T) {
	r := mustRouter(t, Config{Key: "tenant", Routes: map[string]string{"a": "portA", "b": "portB"}})
	payload := buildPayload(t, "tenant", []uint16{0, 1}, []string{"A", "B"})
	res, err := r.ResolveRoute(payload)
	require.NoError(t, err)
	require.Equal(t, MixedBatch, res.Kind)
	require.Contains(t, res.Reason, "tenant")
}

// TestMissingKeyDominatesNoMatch is spec.md §8.2 scenario 5.
func TestMissingKeyDominatesNoMatch(t *testing.T) {
	r := mustRouter(t, Config{Key: "tenant", Routes: map[string]string{"a": "portA"}})
	payload := buildPayload(t, "tenant", []uint16{0, 1}, []string{"", "zzz"})
	res, err := r.ResolveRoute(payload)
	require.NoError(t, err)
	require.Equal(t, MissingKey, res.Kind)
}

func TestAllMissingKey(t *testing.T) {
	r := mustRouter(t, Config{Key: "tenant", Routes: map[string]string{"a": "portA"}})
	payload := buildPayload(t, "tenant", []uint16{0, 1}, []string{"", ""})
	res, err := r.ResolveRoute(payload)
	require.NoError(t, err)
	require.Equal(t, MissingKey, res.Kind)
}

func TestAllNoMatch(t *testing.T) {
	r := mustRouter(t, Config{Key: "tenant", Routes: map[string]string{"a": "portA"}})
	payload := buildPayload(t, "tenant", []uint16{0, 1}, []string{"zzz", "yyy"})
	res, err := r.ResolveRoute(payload)
	require.NoError(t, err)
	require.Equal(t, NoMatch, res.Kind)
}

// --- ProtocolBytes path ---

func encodeTag(fieldNum int, wire uint8) []byte {
	return proto.EncodeVarint(uint64(fieldNum)<<3 | uint64(wire))
}

func encodeLenDelim(fieldNum int, content []byte) []byte {
	out := append([]byte{}, encodeTag(fieldNum, wireBytes)...)
	out = append(out, proto.EncodeVarint(uint64(len(content)))...)
	out = append(out, content...)
	return out
}

func encodeAnyValueString(s string) []byte {
	return encodeLenDelim(fieldAnyValueStr, []byte(s))
}

func encodeKeyValue(key, val string) []byte {
	var kv []byte
	kv = append(kv, encodeLenDelim(fieldKVKey, []byte(key))...)
	kv = append(kv, encodeLenDelim(fieldKVValue, encodeAnyValueString(val))...)
	return kv
}

func encodeResource(attrs map[string]string) []byte {
	var resourceMsg []byte
	for k, v := range attrs {
		resourceMsg = append(resourceMsg, encodeLenDelim(fieldAttributes, encodeKeyValue(k, v))...)
	}
	return encodeLenDelim(fieldResource, resourceMsg)
}

func encodeRequest(resources []map[string]string) []byte {
	var out []byte
	for _, r := range resources {
		out = append(out, encodeLenDelim(fieldResourceList, encodeResource(r))...)
	}
	return out
}

func TestResolveRouteBytesMatched(t *testing.T) {
	r := mustRouter(t, Config{Key: "tenant", Routes: map[string]string{"a": "portA"}})
	data := encodeRequest([]map[string]string{
		{"tenant": "A"},
		{"tenant": "a"},
	})
	res, err := r.ResolveRouteBytes(data)
	require.NoError(t, err)
	require.Equal(t, Matched, res.Kind)
	require.Equal(t, "portA", res.Port)
}

func TestResolveRouteBytesMixedBatch(t *testing.T) {
	r := mustRouter(t, Config{Key: "tenant", Routes: map[string]string{"a": "portA", "b": "portB"}})
	data := encodeRequest([]map[string]string{
		{"tenant": "A"},
		{"tenant": "B"},
	})
	res, err := r.ResolveRouteBytes(data)
	require.NoError(t, err)
	require.Equal(t, MixedBatch, res.Kind)
}

func TestResolveRouteBytesMissingKey(t *testing.T) {
	r := mustRouter(t, Config{Key: "tenant", Routes: map[string]string{"a": "portA"}})
	data := encodeRequest([]map[string]string{
		{"other": "x"},
	})
	res, err := r.ResolveRouteBytes(data)
	require.NoError(t, err)
	require.Equal(t, MissingKey, res.Kind)
}
