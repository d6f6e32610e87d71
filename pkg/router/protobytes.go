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
	"strings"

	"github.com/gogo/protobuf/proto"
)

// This file implements the "protobuf view over bytes" path named in
// spec §4.4 for the ProtocolBytes message form: a minimal, hand-written
// partial decode of the wire format that extracts only the resource
// attribute list, without generating or linking full OTLP message types
// (those bindings are not part of this module's dependency surface).
//
// Wire layout assumed, matching the stable OTLP proto field numbering:
//
//	ExportXxxServiceRequest { repeated ResourceXxx = 1; }
//	ResourceXxx             { Resource resource = 1; ... }
//	Resource                { repeated KeyValue attributes = 1; ... }
//	KeyValue                { string key = 1; AnyValue value = 2; }
//	AnyValue                { string string_value = 1; ... }  (oneof)
//
// A field of a different wire type than expected is skipped as if absent.
// A resource with no Resource message or no attribute named by the key
// folds into MissingKey; a matching KeyValue whose value is absent or not a
// string-typed AnyValue folds into NoMatch, the same as a non-string
// attribute value found via the Arrow path.

const (
	fieldResourceList = 1
	fieldResource      = 1
	fieldAttributes    = 1
	fieldKVKey         = 1
	fieldKVValue       = 2
	fieldAnyValueStr   = 1
)

const wireVarint = 0
const wireBytes = 2

// protoField is one decoded top-level field: its number, wire type, and
// raw content (for wireBytes, the length-delimited payload with no copy
// beyond what DecodeRawBytes(false) aliases into the source buffer).
type protoField struct {
	num  uint64
	wire uint8
	raw  []byte
}

// iterateFields walks every top-level field in buf in order, stopping
// early if fn returns false. Malformed input (a truncated varint or
// length) stops iteration silently -- the caller treats "nothing found" as
// the result, which folds into NoMatch/MissingKey rather than a decode
// panic. Varint decoding is done with proto.DecodeVarint, the same
// low-level primitive the teacher's generated marshal/unmarshal code is
// built on; everything else (fixed-width skip, length-delimited slicing)
// is a direct slice operation, since gogo/protobuf does not expose a
// schema-free field walker.
func iterateFields(buf []byte, fn func(protoField) bool) {
	for len(buf) > 0 {
		tag, n := proto.DecodeVarint(buf)
		if n == 0 {
			return
		}
		buf = buf[n:]

		num := tag >> 3
		wire := uint8(tag & 0x7)
		var f protoField
		f.num = num
		f.wire = wire

		switch wire {
		case wireVarint:
			_, n := proto.DecodeVarint(buf)
			if n == 0 {
				return
			}
			buf = buf[n:]
		case 1: // 64-bit fixed
			if len(buf) < 8 {
				return
			}
			buf = buf[8:]
		case wireBytes:
			length, n := proto.DecodeVarint(buf)
			if n == 0 {
				return
			}
			buf = buf[n:]
			if uint64(len(buf)) < length {
				return
			}
			f.raw = buf[:length]
			buf = buf[length:]
		case 5: // 32-bit fixed
			if len(buf) < 4 {
				return
			}
			buf = buf[4:]
		default:
			return // unknown wire type: can't safely skip, stop here
		}

		if !fn(f) {
			return
		}
	}
}

// findAttributeValue decodes resourceBytes (one ResourceXxx message's raw
// bytes) looking for an attribute named key, returning its string value if
// present as a string-typed AnyValue.
func findAttributeValue(resourceBytes []byte, key string) (value string, found, isString bool) {
	var resourceMsg []byte
	iterateFields(resourceBytes, func(f protoField) bool {
		if f.num == fieldResource && f.wire == wireBytes {
			resourceMsg = f.raw
			return false
		}
		return true
	})
	if resourceMsg == nil {
		return "", false, false
	}

	var result string
	var haveResult, haveString bool
	iterateFields(resourceMsg, func(f protoField) bool {
		if f.num != fieldAttributes || f.wire != wireBytes {
			return true
		}
		kv := f.raw
		var kvKey string
		var kvValueMsg []byte
		iterateFields(kv, func(kf protoField) bool {
			switch {
			case kf.num == fieldKVKey && kf.wire == wireBytes:
				kvKey = string(kf.raw)
			case kf.num == fieldKVValue && kf.wire == wireBytes:
				kvValueMsg = kf.raw
			}
			return true
		})
		if kvKey != key {
			return true
		}
		haveResult = true
		if kvValueMsg != nil {
			iterateFields(kvValueMsg, func(vf protoField) bool {
				if vf.num == fieldAnyValueStr && vf.wire == wireBytes {
					result = string(vf.raw)
					haveString = true
					return false
				}
				return true
			})
		}
		return false // first match wins, matching the Arrow path's behavior
	})

	return result, haveResult, haveString
}

// ResolveRouteBytes resolves the destination for a ProtocolBytes payload:
// a sequence of ResourceXxx messages (field fieldResourceList of the outer
// request message), each inspected for the configured resource attribute.
func (r *Router) ResolveRouteBytes(data []byte) (Resolution, error) {
	var resources [][]byte
	iterateFields(data, func(f protoField) bool {
		if f.num == fieldResourceList && f.wire == wireBytes {
			resources = append(resources, f.raw)
		}
		return true
	})

	leaves := make([]leaf, len(resources))
	ports := make([]string, len(resources))
	for i, res := range resources {
		value, found, isString := findAttributeValue(res, r.key)
		if !found {
			leaves[i] = leafMissingKey
			continue
		}
		if !isString {
			leaves[i] = leafNoMatch
			continue
		}
		port, ok := r.routes[strings.ToLower(value)]
		if !ok {
			leaves[i] = leafNoMatch
			continue
		}
		leaves[i] = leafMatched
		ports[i] = port
	}

	return r.fold(leaves, ports), nil
}
