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
	"github.com/apache/arrow/go/v12/arrow/array"
	"github.com/apache/arrow/go/v12/arrow/memory"

	"github.com/open-telemetry/otap-dataflow/pkg/arrowutil"
	"github.com/open-telemetry/otap-dataflow/pkg/idrange"
	"github.com/open-telemetry/otap-dataflow/pkg/otap"
)

// Merge concatenates payloads (all of the same signal, in input order) into
// one or more batch-trees, each with primary-table row count (or, for
// metrics, datapoint count) at most maxRows if non-nil, or a single
// unbounded batch-tree if maxRows is nil. Concatenation is implemented as
// reindex-then-concatenate-then-Split: id collisions across independent
// inputs are resolved first (§4.3 "ID rewriting"), schemas are unified
// (§4.3 "Schema unification"), and the single resulting oversized tree is
// handed to Split to enforce the row budget -- the same slicing logic that
// keeps a freshly-split tree referentially intact keeps a freshly-merged
// one so.
func Merge(payloads []*otap.TelemetryPayload, maxRows *uint64) ([]*otap.TelemetryPayload, error) {
	live := make([]*otap.TelemetryPayload, 0, len(payloads))
	for _, p := range payloads {
		if p != nil && p.Primary() != nil {
			live = append(live, p)
		}
	}
	if len(live) == 0 {
		return nil, nil
	}

	signal := live[0].Signal
	for _, p := range live[1:] {
		if p.Signal != signal {
			return nil, ErrUnsupportedSignal
		}
	}

	root := topologyFor(signal)
	counters := newCounters(root)
	resourceCounter := new(uint32)
	scopeCounter := new(uint32)
	primaryTable := otap.PrimaryTableFor(signal)

	flattened := make([]map[otap.PayloadType]arrow.Record, len(live))
	for i, p := range live {
		f, err := flattenRecords(p.Records)
		if err != nil {
			return nil, err
		}
		if err := reindexTree(f, root, counters); err != nil {
			return nil, err
		}
		if err := reindexEmbedded(f, primaryTable, resourceIDSpec, resourceCounter); err != nil {
			return nil, err
		}
		if err := reindexEmbedded(f, primaryTable, scopeIDSpec, scopeCounter); err != nil {
			return nil, err
		}
		flattened[i] = f
	}

	allTypes := map[otap.PayloadType]bool{}
	for _, f := range flattened {
		for pt := range f {
			allTypes[pt] = true
		}
	}

	outRecords := make(map[otap.PayloadType]arrow.Record, len(allTypes))
	for pt := range allTypes {
		recs := make([]arrow.Record, len(flattened))
		for i, f := range flattened {
			recs[i] = f[pt]
		}
		merged, err := unifyAndConcat(mem, recs)
		if err != nil {
			return nil, err
		}
		if merged != nil {
			outRecords[pt] = merged
		}
	}

	result := &otap.TelemetryPayload{Signal: signal, Records: outRecords}

	if maxRows == nil {
		return []*otap.TelemetryPayload{result}, nil
	}
	return Split(result, *maxRows)
}

// topologyFor returns the id/parent_id node tree for a signal's primary
// table, the same tree Split walks.
func topologyFor(signal otap.SignalType) node {
	switch signal {
	case otap.SignalLogs:
		return logsTopology()
	case otap.SignalTraces:
		return tracesTopology()
	case otap.SignalMetrics:
		return node{
			table:       otap.PayloadMetrics,
			ownIDColumn: otap.ColID,
			children:    metricsDatapointTables(),
		}
	default:
		return node{}
	}
}

// newCounters allocates one highwater-mark counter per table in root that
// owns an id column, shared across every payload being merged so ids stay
// dense and collision-free across the whole sequence (not just within one
// input).
func newCounters(root node) map[otap.PayloadType]*uint32 {
	counters := map[otap.PayloadType]*uint32{}
	var walk func(n node)
	walk = func(n node) {
		if n.ownIDColumn != "" {
			v := uint32(0)
			counters[n.table] = &v
		}
		for _, c := range n.children {
			walk(c)
		}
	}
	walk(root)
	return counters
}

// flattenRecords returns a copy of records with every dictionary column
// (at any nesting depth) replaced by its underlying value array, per
// §4.3's "flatten dictionary columns" schema-unification rule --
// re-encoding a dictionary across independently-encoded inputs would not
// be meaningful, since the dictionaries themselves aren't shared.
func flattenRecords(records map[otap.PayloadType]arrow.Record) (map[otap.PayloadType]arrow.Record, error) {
	out := make(map[otap.PayloadType]arrow.Record, len(records))
	for pt, rec := range records {
		if rec == nil {
			continue
		}
		flat, err := arrowutil.TakeRecord(mem, rec, identityIndices(int(rec.NumRows())))
		if err != nil {
			return nil, err
		}
		out[pt] = flat
	}
	return out, nil
}

func identityIndices(n int) []int {
	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	return idx
}

// reindexTree walks the node tree within one payload's (already flattened)
// records, reindexing every table's own id column to a dense, collision-free
// range starting at its shared counter, and rewriting every descendant's
// parent_id by the same old-value-to-new-value substitution (not a fresh
// Reindex -- a child's parent id space is exactly its parent's own id
// space, already made dense by the parent's reindex).
func reindexTree(records map[otap.PayloadType]arrow.Record, n node, counters map[otap.PayloadType]*uint32) error {
	rec, ok := records[n.table]
	if !ok || rec == nil {
		return nil
	}

	var oldToNew map[uint32]uint32
	if n.ownIDColumn != "" {
		idArr, err := arrowutil.ColumnByName(rec, n.ownIDColumn)
		if err != nil {
			return err
		}
		if idArr != nil {
			ids, err := idrange.ReadColumn(idArr)
			if err != nil {
				return err
			}
			counter := counters[n.table]
			newIDs, next, err := idrange.Reindex(ids, *counter, 32)
			if err != nil {
				return err
			}
			*counter = next

			oldToNew = make(map[uint32]uint32, len(ids))
			for i, old := range ids {
				if !old.Null {
					oldToNew[old.Value] = newIDs[i].Value
				}
			}

			newArr := idrange.BuildU32Array(mem, newIDs)
			records[n.table] = replaceColumn(records[n.table], n.ownIDColumn, newArr)
		}
	}

	for _, child := range n.children {
		if oldToNew != nil {
			if err := remapParentID(records, child, oldToNew); err != nil {
				return err
			}
		}
		if err := reindexTree(records, child, counters); err != nil {
			return err
		}
	}
	return nil
}

// remapParentID substitutes each value of n's parent column through
// oldToNew in place, preserving row order and null positions. A parent_id
// with no entry in oldToNew (should not occur under the hierarchy
// invariants) is left unchanged rather than dropped, so a malformed input
// degrades gracefully instead of losing rows.
func remapParentID(records map[otap.PayloadType]arrow.Record, n node, oldToNew map[uint32]uint32) error {
	rec, ok := records[n.table]
	if !ok || rec == nil {
		return nil
	}
	parentArr, err := arrowutil.ColumnByName(rec, n.parentColumn)
	if err != nil || parentArr == nil {
		return err
	}
	ids, err := idrange.ReadColumn(parentArr)
	if err != nil {
		return err
	}
	out := make([]idrange.OptionalID, len(ids))
	for i, id := range ids {
		if id.Null {
			out[i] = id
			continue
		}
		nv, ok := oldToNew[id.Value]
		if !ok {
			nv = id.Value
		}
		out[i] = idrange.OptionalID{Value: nv}
	}
	newArr := idrange.BuildU32Array(mem, out)
	records[n.table] = replaceColumn(rec, n.parentColumn, newArr)
	return nil
}

// embeddedIDSpec names one of the resource/scope id spaces: a struct column
// embedded in the primary table holding the id, and the attribute table
// whose parent_id refers to it. Unlike the node tree (a real top-level
// id/parent_id column pair), these ids live inside a struct field, so
// rewriting them means rebuilding the struct array one field at a time.
type embeddedIDSpec struct {
	structCol string
	idField   string
	attrTable otap.PayloadType
}

var resourceIDSpec = embeddedIDSpec{structCol: otap.ColResource, idField: otap.ColID, attrTable: otap.PayloadResourceAttrs}
var scopeIDSpec = embeddedIDSpec{structCol: otap.ColScope, idField: otap.ColID, attrTable: otap.PayloadScopeAttrs}

// reindexEmbedded reindexes the resource.id or scope.id struct field of the
// primary table and remaps the corresponding attribute table's parent_id to
// match, exactly mirroring reindexTree's node-based rewrite but for an id
// that lives inside a struct column instead of a top-level one. Without
// this, two independently-encoded inputs that both number their resources
// starting at 0 would collide after concatenation and the view layer would
// merge unrelated resources' attributes.
func reindexEmbedded(records map[otap.PayloadType]arrow.Record, primaryTable otap.PayloadType, spec embeddedIDSpec, counter *uint32) error {
	rec, ok := records[primaryTable]
	if !ok || rec == nil {
		return nil
	}
	st, structArr, ok := arrowutil.StructFromRecord(rec, spec.structCol)
	if !ok {
		return nil
	}
	fieldIdx, ok := arrowutil.FieldOfStruct(st, spec.idField)
	if !ok {
		return nil
	}
	idArr := structArr.Field(fieldIdx)

	ids, err := idrange.ReadColumn(idArr)
	if err != nil {
		return err
	}
	newIDs, next, err := idrange.Reindex(ids, *counter, 32)
	if err != nil {
		return err
	}
	*counter = next

	oldToNew := make(map[uint32]uint32, len(ids))
	for i, old := range ids {
		if !old.Null {
			oldToNew[old.Value] = newIDs[i].Value
		}
	}

	newFieldArr := idrange.BuildU32Array(mem, newIDs)
	newStructArr, err := replaceStructField(structArr, st, fieldIdx, newFieldArr)
	if err != nil {
		return err
	}
	records[primaryTable] = replaceColumn(rec, spec.structCol, newStructArr)

	attrRec, ok := records[spec.attrTable]
	if !ok || attrRec == nil {
		return nil
	}
	parentArr, err := arrowutil.ColumnByName(attrRec, otap.ColParentID)
	if err != nil || parentArr == nil {
		return err
	}
	pids, err := idrange.ReadColumn(parentArr)
	if err != nil {
		return err
	}
	out := make([]idrange.OptionalID, len(pids))
	for i, id := range pids {
		if id.Null {
			out[i] = id
			continue
		}
		nv, ok := oldToNew[id.Value]
		if !ok {
			nv = id.Value
		}
		out[i] = idrange.OptionalID{Value: nv}
	}
	newArr := idrange.BuildU32Array(mem, out)
	records[spec.attrTable] = replaceColumn(attrRec, otap.ColParentID, newArr)
	return nil
}

// replaceStructField rebuilds src's struct array with field fieldIdx
// replaced by newField, copying every other field and every row's
// top-level validity unchanged.
func replaceStructField(src *array.Struct, st *arrow.StructType, fieldIdx int, newField arrow.Array) (arrow.Array, error) {
	fields := make([]arrow.Field, st.NumFields())
	copy(fields, st.Fields())
	fields[fieldIdx].Type = newField.DataType()
	newType := arrow.StructOf(fields...)

	b, ok := array.NewBuilder(mem, newType).(*array.StructBuilder)
	if !ok {
		return nil, ErrSchemaMismatch
	}
	defer b.Release()

	n := src.Len()
	for row := 0; row < n; row++ {
		b.Append(!src.IsNull(row))
		for f := 0; f < st.NumFields(); f++ {
			fb := b.FieldBuilder(f)
			if f == fieldIdx {
				if err := arrowutil.AppendValue(fb, newField, row); err != nil {
					return nil, err
				}
				continue
			}
			if err := arrowutil.AppendValue(fb, src.Field(f), row); err != nil {
				return nil, err
			}
		}
	}
	return b.NewArray(), nil
}

// replaceColumn rebuilds record with the named top-level field's array (and
// declared type) swapped for newArr, leaving every other column untouched.
// Used both for top-level id/parent_id columns and for the resource/scope
// struct columns (replaceStructField produces the new struct array; this
// splices it back into the record).
func replaceColumn(rec arrow.Record, name string, newArr arrow.Array) arrow.Record {
	schema := rec.Schema()
	idxs := schema.FieldIndices(name)
	if len(idxs) != 1 {
		return rec
	}
	idx := idxs[0]

	fields := make([]arrow.Field, len(schema.Fields()))
	copy(fields, schema.Fields())
	fields[idx].Type = newArr.DataType()
	newSchema := arrow.NewSchema(fields, nil)

	cols := make([]arrow.Array, rec.NumCols())
	for i := 0; i < int(rec.NumCols()); i++ {
		if i == idx {
			cols[i] = newArr
		} else {
			cols[i] = rec.Column(i)
		}
	}
	return array.NewRecord(newSchema, cols, rec.NumRows())
}

// unifyAndConcat unifies the schemas of every present (non-nil) record in
// recs and concatenates them in order, implementing §4.3's "Schema
// unification": optional columns missing from some inputs become all-null
// columns, and struct field sets are unioned with field-level nulls filling
// the gaps. Returns nil if every record is nil (the table is absent from
// every input).
func unifyAndConcat(mem memory.Allocator, recs []arrow.Record) (arrow.Record, error) {
	present := make([]arrow.Record, 0, len(recs))
	for _, r := range recs {
		if r != nil {
			present = append(present, r)
		}
	}
	if len(present) == 0 {
		return nil, nil
	}

	schema, err := unifySchema(present)
	if err != nil {
		return nil, err
	}
	fields := schema.Fields()

	perCol := make([][]arrow.Array, len(fields))
	var totalRows int64
	for _, rec := range present {
		nrows := int(rec.NumRows())
		totalRows += rec.NumRows()
		for i, f := range fields {
			arr, err := arrowutil.ColumnByName(rec, f.Name)
			if err != nil {
				return nil, err
			}
			proj, err := projectColumn(mem, arr, f.Type, nrows)
			if err != nil {
				return nil, err
			}
			perCol[i] = append(perCol[i], proj)
		}
	}

	cols := make([]arrow.Array, len(fields))
	for i := range fields {
		c, err := array.Concatenate(perCol[i], mem)
		if err != nil {
			return nil, err
		}
		cols[i] = c
	}
	return array.NewRecord(schema, cols, totalRows), nil
}

// unifySchema computes the union schema across records: top-level fields in
// first-encountered order, with struct-typed fields recursively unioned by
// subfield name (resource/scope/attribute struct columns), and any field
// absent from some inputs marked nullable.
func unifySchema(records []arrow.Record) (*arrow.Schema, error) {
	var fields []arrow.Field
	seen := map[string]int{}
	presentIn := map[string]int{}

	for _, rec := range records {
		flat := arrowutil.FlattenSchema(rec.Schema())
		for _, f := range flat.Fields() {
			presentIn[f.Name]++
			idx, ok := seen[f.Name]
			if !ok {
				seen[f.Name] = len(fields)
				fields = append(fields, f)
				continue
			}
			merged, err := unionField(fields[idx], f)
			if err != nil {
				return nil, err
			}
			fields[idx] = merged
		}
	}
	for i := range fields {
		if presentIn[fields[i].Name] < len(records) {
			fields[i].Nullable = true
		}
	}
	return arrow.NewSchema(fields, nil), nil
}

func unionField(a, b arrow.Field) (arrow.Field, error) {
	aSt, aOk := a.Type.(*arrow.StructType)
	bSt, bOk := b.Type.(*arrow.StructType)
	switch {
	case aOk && bOk:
		a.Type = unionStructType(aSt, bSt)
	case aOk != bOk:
		return a, ErrSchemaMismatch
	case !arrow.TypeEqual(a.Type, b.Type):
		return a, ErrSchemaMismatch
	}
	a.Nullable = a.Nullable || b.Nullable
	return a, nil
}

func unionStructType(a, b *arrow.StructType) *arrow.StructType {
	var fields []arrow.Field
	seen := map[string]int{}
	add := func(fs []arrow.Field) {
		for _, f := range fs {
			idx, ok := seen[f.Name]
			if !ok {
				seen[f.Name] = len(fields)
				fields = append(fields, f)
				continue
			}
			fields[idx].Nullable = fields[idx].Nullable || f.Nullable
		}
	}
	add(a.Fields())
	add(b.Fields())
	return arrow.StructOf(fields...)
}

// projectColumn adapts arr (possibly nil, meaning the field is entirely
// absent from this input) to canonical's unified type and numRows length:
// a missing scalar column becomes all-null, a missing or partial struct
// column is padded field-by-field (see projectStructColumn), and a present
// column whose type already matches is passed through unchanged.
func projectColumn(mem memory.Allocator, arr arrow.Array, canonical arrow.DataType, numRows int) (arrow.Array, error) {
	if st, ok := canonical.(*arrow.StructType); ok {
		return projectStructColumn(mem, arr, st, numRows)
	}
	if arr == nil {
		b := array.NewBuilder(mem, canonical)
		defer b.Release()
		for i := 0; i < numRows; i++ {
			b.AppendNull()
		}
		return b.NewArray(), nil
	}
	if !arrow.TypeEqual(arr.DataType(), canonical) {
		return nil, ErrSchemaMismatch
	}
	return arr, nil
}

// projectStructColumn builds an array of canonical struct type from arr
// (nil or a *array.Struct possibly missing some of canonical's fields),
// implementing §4.3's nullability rules: a nil (entirely absent) struct
// column becomes fully null; a present struct missing some fields keeps its
// own row-level nullability and gets field-level nulls for the fields it
// lacks.
func projectStructColumn(mem memory.Allocator, arr arrow.Array, canonical *arrow.StructType, numRows int) (arrow.Array, error) {
	b, ok := array.NewBuilder(mem, canonical).(*array.StructBuilder)
	if !ok {
		return nil, ErrSchemaMismatch
	}
	defer b.Release()

	var src *array.Struct
	if arr != nil {
		src, _ = arr.(*array.Struct)
	}
	var srcType *arrow.StructType
	if src != nil {
		srcType, _ = src.DataType().(*arrow.StructType)
	}

	for row := 0; row < numRows; row++ {
		rowNull := src == nil || src.IsNull(row)
		b.Append(!rowNull)
		for f := 0; f < canonical.NumFields(); f++ {
			fb := b.FieldBuilder(f)
			if src == nil {
				fb.AppendNull()
				continue
			}
			name := canonical.Field(f).Name
			var srcIdx int
			var ok bool
			if srcType != nil {
				srcIdx, ok = srcType.FieldIdx(name)
			}
			if !ok {
				fb.AppendNull()
				continue
			}
			if rowNull {
				fb.AppendNull()
				continue
			}
			if err := arrowutil.AppendValue(fb, src.Field(srcIdx), row); err != nil {
				return nil, err
			}
		}
	}
	return b.NewArray(), nil
}
