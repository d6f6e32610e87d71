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

// ResourceGroup is one resource id and the RowGroup of primary-table rows
// belonging to it.
type ResourceGroup struct {
	ResourceID uint32
	Rows       RowGroup
}

// ScopeGroup is one scope id, nested under a resource, and the RowGroup of
// primary-table rows belonging to it.
type ScopeGroup struct {
	ScopeID uint32
	Rows    RowGroup
}

// View is the zero-copy hierarchical view over one signal's primary table
// plus whatever child tables accompanied it: LogsData/MetricsData/TracesData
// -> Resource -> Scope -> Record -> Attribute, built once from a
// *otap.TelemetryPayload without copying any column or row out of the
// underlying Arrow records. Only small index structures (RowGroup,
// AttrIndex) are materialized.
type View struct {
	payload *otap.TelemetryPayload
	primary arrow.Record

	resourceOrder []uint32
	resources     map[uint32]*resourceEntry

	resourceAttrs *AttrIndex
	scopeAttrs    *AttrIndex
	recordAttrs   *AttrIndex // keyed by the primary table's own `id` column

	// childIndexes holds additional parent-id-keyed indices for signals with
	// nested child tables beyond the record-attribute table (traces'
	// SpanEvents/SpanLinks; metrics' datapoint tables). Keyed by PayloadType.
	childIndexes map[otap.PayloadType]*AttrIndex
}

type resourceEntry struct {
	builder       *rowGroupBuilder
	scopeOrder    []uint32
	scopeBuilders map[uint32]*rowGroupBuilder
}

// recordAttrTableFor returns the PayloadType of the per-record attribute
// table for a signal (LogAttrs, SpanAttrs; metrics has no per-row attribute
// table on the primary table itself -- its attributes live on the metric's
// datapoint rows -- so metrics returns PayloadUnknown and callers use the
// datapoint child indices instead).
func recordAttrTableFor(s otap.SignalType) otap.PayloadType {
	switch s {
	case otap.SignalLogs:
		return otap.PayloadLogAttrs
	case otap.SignalTraces:
		return otap.PayloadSpanAttrs
	default:
		return otap.PayloadUnknown
	}
}

// NewView builds a hierarchical view over payload. extraChildTables lists
// additional PayloadType child tables (besides the record-attribute table)
// that should get a parent-id index -- e.g. PayloadSpanEvents,
// PayloadSpanLinks for traces, or the datapoint tables for metrics.
func NewView(payload *otap.TelemetryPayload, extraChildTables ...otap.PayloadType) (*View, error) {
	primary := payload.Primary()
	if primary == nil {
		return nil, ErrMissingPrimary
	}

	v := &View{
		payload:      payload,
		primary:      primary,
		resources:    make(map[uint32]*resourceEntry),
		childIndexes: make(map[otap.PayloadType]*AttrIndex, len(extraChildTables)),
	}

	if err := v.buildResourceScopeGroups(); err != nil {
		return nil, err
	}

	resAttrs, err := BuildAttrIndex(payload.Records[otap.PayloadResourceAttrs])
	if err != nil {
		return nil, err
	}
	v.resourceAttrs = resAttrs

	scopeAttrs, err := BuildAttrIndex(payload.Records[otap.PayloadScopeAttrs])
	if err != nil {
		return nil, err
	}
	v.scopeAttrs = scopeAttrs

	if pt := recordAttrTableFor(payload.Signal); pt != otap.PayloadUnknown {
		recAttrs, err := BuildAttrIndex(payload.Records[pt])
		if err != nil {
			return nil, err
		}
		v.recordAttrs = recAttrs
	}

	for _, pt := range extraChildTables {
		idx, err := BuildAttrIndex(payload.Records[pt])
		if err != nil {
			return nil, err
		}
		v.childIndexes[pt] = idx
	}

	return v, nil
}

func (v *View) buildResourceScopeGroups() error {
	n := int(v.primary.NumRows())

	resIDArr, err := structFieldArray(v.primary, otap.ColResource, otap.ColID)
	if err != nil {
		return err
	}
	scopeIDArr, err := structFieldArray(v.primary, otap.ColScope, otap.ColID)
	if err != nil {
		return err
	}

	for i := 0; i < n; i++ {
		rid, err := idOrZero(resIDArr, i)
		if err != nil {
			return err
		}
		sid, err := idOrZero(scopeIDArr, i)
		if err != nil {
			return err
		}

		entry, ok := v.resources[rid]
		if !ok {
			entry = &resourceEntry{
				builder:       newRowGroupBuilder(i),
				scopeBuilders: make(map[uint32]*rowGroupBuilder),
			}
			v.resources[rid] = entry
			v.resourceOrder = append(v.resourceOrder, rid)
		} else {
			entry.builder.add(i)
		}

		sb, ok := entry.scopeBuilders[sid]
		if !ok {
			sb = newRowGroupBuilder(i)
			entry.scopeBuilders[sid] = sb
			entry.scopeOrder = append(entry.scopeOrder, sid)
		} else {
			sb.add(i)
		}
	}

	return nil
}

// Resources returns every resource group in first-encountered order.
func (v *View) Resources() []ResourceGroup {
	out := make([]ResourceGroup, 0, len(v.resourceOrder))
	for _, rid := range v.resourceOrder {
		out = append(out, ResourceGroup{ResourceID: rid, Rows: v.resources[rid].builder.build()})
	}
	return out
}

// Scopes returns the scope groups nested under resourceID, in
// first-encountered order.
func (v *View) Scopes(resourceID uint32) []ScopeGroup {
	entry, ok := v.resources[resourceID]
	if !ok {
		return nil
	}
	out := make([]ScopeGroup, 0, len(entry.scopeOrder))
	for _, sid := range entry.scopeOrder {
		out = append(out, ScopeGroup{ScopeID: sid, Rows: entry.scopeBuilders[sid].build()})
	}
	return out
}

// ResourceAttributes decodes the resource-attribute table rows for
// resourceID.
func (v *View) ResourceAttributes(resourceID uint32, fn func(Attribute)) error {
	return ForEachAttribute(v.payload.Records[otap.PayloadResourceAttrs], v.resourceAttrs.Rows(resourceID), fn)
}

// ScopeAttributes decodes the scope-attribute table rows for scopeID.
func (v *View) ScopeAttributes(scopeID uint32, fn func(Attribute)) error {
	return ForEachAttribute(v.payload.Records[otap.PayloadScopeAttrs], v.scopeAttrs.Rows(scopeID), fn)
}

// RecordAttributes decodes the per-record attribute table rows (LogAttrs or
// SpanAttrs) for the primary-table row's own id. Returns an empty iteration
// for metrics, which has no primary-row attribute table.
func (v *View) RecordAttributes(recordID uint32, fn func(Attribute)) error {
	if v.recordAttrs == nil {
		return nil
	}
	table := v.payload.Records[recordAttrTableFor(v.payload.Signal)]
	return ForEachAttribute(table, v.recordAttrs.Rows(recordID), fn)
}

// ChildRows returns the RowGroup of rows in child table pt whose parent_id
// equals parentID. Used for signal-specific nested tables (SpanEvents,
// SpanLinks, metric datapoint tables) registered via NewView's
// extraChildTables.
func (v *View) ChildRows(pt otap.PayloadType, parentID uint32) RowGroup {
	idx, ok := v.childIndexes[pt]
	if !ok {
		return RowGroup{}
	}
	return idx.Rows(parentID)
}

// RecordID returns the primary table's own id column value at row, or
// (0, true) if null (a record with no children referring to it).
func (v *View) RecordID(row int) (id uint32, isNull bool, err error) {
	return arrowutil.IDFromRecord(v.primary, otap.ColID, row)
}

// Primary returns the underlying primary-table record, for callers that
// need direct column access (e.g. to read severity/body/name fields the
// view does not itself interpret).
func (v *View) Primary() arrow.Record {
	return v.primary
}

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

func idOrZero(arr arrow.Array, row int) (uint32, error) {
	if arr == nil {
		return 0, nil
	}
	id, isNull, err := arrowutil.IDFromArray(arr, row)
	if err != nil || isNull {
		return 0, err
	}
	return id, nil
}
