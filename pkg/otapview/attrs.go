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
	"github.com/apache/arrow/go/v12/arrow"

	"github.com/open-telemetry/otap-dataflow/pkg/arrowutil"
	"github.com/open-telemetry/otap-dataflow/pkg/otap"
)

// AttrIndex is the inverted index from a parent id to the rows of an
// attribute table referring to it, built once per attribute table and
// shared by every accessor that walks that table's parents (resource,
// scope, or record).
type AttrIndex struct {
	record arrow.Record
	byID   map[uint32]RowGroup
}

// BuildAttrIndex scans record's parent_id column once and groups row
// indices by parent id, using the Contiguous/Scattered optimization.
// record may be nil (the payload simply lacks this attribute table), in
// which case every lookup returns a zero-length group.
func BuildAttrIndex(record arrow.Record) (*AttrIndex, error) {
	idx := &AttrIndex{record: record}
	if record == nil {
		return idx, nil
	}

	arr, err := columnArray(record, otap.ColParentID)
	if err != nil {
		return nil, err
	}
	if arr == nil {
		return idx, nil
	}

	builders := make(map[uint32]*rowGroupBuilder)
	order := make([]uint32, 0)

	rows := int(record.NumRows())
	for i := 0; i < rows; i++ {
		pid, isNull, err := arrowutil.IDFromArray(arr, i)
		if err != nil {
			return nil, err
		}
		if isNull {
			// parent_id is never null by invariant; tolerate it defensively
			// by skipping the row rather than aborting the whole batch.
			continue
		}
		b, ok := builders[pid]
		if !ok {
			b = newRowGroupBuilder(i)
			builders[pid] = b
			order = append(order, pid)
		} else {
			b.add(i)
		}
	}

	idx.byID = make(map[uint32]RowGroup, len(builders))
	for _, pid := range order {
		idx.byID[pid] = builders[pid].build()
	}

	return idx, nil
}

// Rows returns the RowGroup of attribute rows belonging to parentID, or a
// zero-length group if none.
func (idx *AttrIndex) Rows(parentID uint32) RowGroup {
	if idx == nil {
		return RowGroup{}
	}
	return idx.byID[parentID]
}

// Attribute is one decoded, skip-tolerant (key, value) pair.
type Attribute struct {
	Key   string
	Value Value
}

// ForEachAttribute decodes every attribute row in group from record and
// invokes fn(key, value) for each valid row. A row whose key is null
// advances past silently without being yielded, per the tolerant-ingestion
// rule: malformed input degrades the attribute set, it does not abort
// iteration.
func ForEachAttribute(record arrow.Record, group RowGroup, fn func(Attribute)) error {
	if record == nil {
		return nil
	}
	var rangeErr error
	group.ForEach(func(row int) {
		if rangeErr != nil {
			return
		}
		attr, ok, err := decodeAttrRow(record, row)
		if err != nil {
			rangeErr = err
			return
		}
		if !ok {
			return
		}
		fn(attr)
	})
	return rangeErr
}

func decodeAttrRow(record arrow.Record, row int) (Attribute, bool, error) {
	keyNull, err := arrowutil.IsNullAt(record, otap.ColAttrKey, row)
	if err != nil {
		return Attribute{}, false, err
	}
	if keyNull {
		return Attribute{}, false, nil
	}
	key, err := arrowutil.StringFromRecord(record, otap.ColAttrKey, row)
	if err != nil {
		return Attribute{}, false, err
	}

	vtype, err := arrowutil.U8FromRecord(record, otap.ColAttrType, row)
	if err != nil {
		return Attribute{}, false, err
	}

	val, err := decodeAttrValue(record, ValueType(vtype), row)
	if err != nil {
		return Attribute{}, false, err
	}

	return Attribute{Key: key, Value: val}, true, nil
}

func decodeAttrValue(record arrow.Record, vt ValueType, row int) (Value, error) {
	switch vt {
	case ValueString:
		s, err := arrowutil.StringFromRecord(record, otap.ColAttrStr, row)
		return StringValue(s), err
	case ValueInt64:
		i, err := arrowutil.I64FromRecord(record, otap.ColAttrInt, row)
		return Int64Value(i), err
	case ValueDouble:
		f, err := arrowutil.F64FromRecord(record, otap.ColAttrDouble, row)
		return DoubleValue(f), err
	case ValueBool:
		b, err := arrowutil.BoolFromRecord(record, otap.ColAttrBool, row)
		return BoolValue(b), err
	case ValueBytes:
		b, err := arrowutil.BinaryFromRecord(record, otap.ColAttrBytes, row)
		return BytesValue(b), err
	case ValueMap:
		b, err := arrowutil.BinaryFromRecord(record, otap.ColAttrCbor, row)
		return MapValue(b), err
	case ValueArray:
		b, err := arrowutil.BinaryFromRecord(record, otap.ColAttrCbor, row)
		return ArrayValue(b), err
	default:
		return EmptyValue, nil
	}
}

// columnArray looks up a top-level column by name, returning nil if absent
// (the caller treats a missing column as "no rows match", not an error).
func columnArray(record arrow.Record, name string) (arrow.Array, error) {
	idxs := record.Schema().FieldIndices(name)
	switch len(idxs) {
	case 0:
		return nil, nil
	case 1:
		return record.Column(idxs[0]), nil
	default:
		return nil, arrowutil.ErrAmbiguousField
	}
}
