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

	"github.com/open-telemetry/otap-dataflow/pkg/arrowutil"
	"github.com/open-telemetry/otap-dataflow/pkg/idrange"
	"github.com/open-telemetry/otap-dataflow/pkg/otap"
)

// Split divides payload into a sequence of batch-trees where no output's
// primary table exceeds maxRows rows (logs/traces) or maxRows total
// datapoints (metrics), preserving referential integrity among every child
// table. Inputs are assumed already sorted by (parent_id, id) per the
// hierarchy invariants; Split restores that order in its outputs (slicing a
// sorted table produces sorted slices, so no re-sort is needed on the way
// out).
func Split(payload *otap.TelemetryPayload, maxRows uint64) ([]*otap.TelemetryPayload, error) {
	if maxRows == 0 {
		return nil, ErrInvalidMaxRows
	}
	primary := payload.Primary()
	if primary == nil {
		return nil, ErrMissingPrimary
	}

	switch payload.Signal {
	case otap.SignalLogs:
		return splitByRowCount(payload, logsTopology(), maxRows)
	case otap.SignalTraces:
		return splitByRowCount(payload, tracesTopology(), maxRows)
	case otap.SignalMetrics:
		return splitMetrics(payload, maxRows)
	default:
		return nil, ErrUnsupportedSignal
	}
}

// splitByRowCount implements the logs/traces branch of §4.3: contiguous
// chunking of the primary table by row count, with every descendant table
// sliced by the propagated id range.
func splitByRowCount(payload *otap.TelemetryPayload, root node, maxRows uint64) ([]*otap.TelemetryPayload, error) {
	primary := payload.Records[root.table]
	n := int(primary.NumRows())
	windows := idrange.Partition(n, int(maxRows), 0)

	out := make([]*otap.TelemetryPayload, 0, len(windows))
	for _, w := range windows {
		result := clonePayload(payload.Signal)
		if err := collect(payload.Records, root, w, result.Records); err != nil {
			return nil, err
		}
		if err := sliceResourceScopeAttrs(payload.Records, primary, w, result.Records); err != nil {
			return nil, err
		}
		out = append(out, result)
	}
	return out, nil
}

// collect recursively slices node's table over window (expressed in the
// original full-table row-index space) and every descendant whose
// parent_id falls within node's own id range across that window, writing
// results into out.
func collect(records map[otap.PayloadType]arrow.Record, n node, window idrange.Window, out map[otap.PayloadType]arrow.Record) error {
	rec, ok := records[n.table]
	if !ok || rec == nil {
		return nil
	}

	out[n.table] = rec.NewSlice(int64(window.Start), int64(window.End))

	if len(n.children) == 0 {
		return nil
	}

	ownIDArr, err := arrowutil.ColumnByName(rec, n.ownIDColumn)
	if err != nil {
		return err
	}
	if ownIDArr == nil {
		return nil
	}
	ownRange, err := idrange.ExtractRange(ownIDArr, window.Start, window.End)
	if err != nil {
		return err
	}

	for _, child := range n.children {
		childRec, ok := records[child.table]
		if !ok || childRec == nil {
			continue
		}
		childWindow, err := parentWindow(childRec, child.parentColumn, ownRange)
		if err != nil {
			return err
		}
		if err := collect(records, child, childWindow, out); err != nil {
			return err
		}
	}
	return nil
}

// parentWindow locates the slice of childRec whose parent column falls
// within parentRange (nil range -> empty slice).
func parentWindow(childRec arrow.Record, parentColumn string, parentRange *idrange.Range) (idrange.Window, error) {
	if parentRange == nil {
		return idrange.Window{}, nil
	}
	parentArr, err := arrowutil.ColumnByName(childRec, parentColumn)
	if err != nil || parentArr == nil {
		return idrange.Window{}, err
	}
	windows, err := idrange.ChildSlicesByParentRange(parentArr, []*idrange.Range{parentRange})
	if err != nil {
		return idrange.Window{}, err
	}
	return windows[0], nil
}

// sliceResourceScopeAttrs slices the resource- and scope-attribute tables,
// whose parent id space is the resource.id/scope.id struct fields embedded
// in the primary table rather than the primary table's own id column.
func sliceResourceScopeAttrs(records map[otap.PayloadType]arrow.Record, primary arrow.Record, window idrange.Window, out map[otap.PayloadType]arrow.Record) error {
	if err := sliceByEmbeddedRange(records, primary, otap.ColResource, resourceAndScopeAttrs.resource, window, out); err != nil {
		return err
	}
	return sliceByEmbeddedRange(records, primary, otap.ColScope, resourceAndScopeAttrs.scope, window, out)
}

func sliceByEmbeddedRange(records map[otap.PayloadType]arrow.Record, primary arrow.Record, structCol string, attrTable otap.PayloadType, window idrange.Window, out map[otap.PayloadType]arrow.Record) error {
	attrRec, ok := records[attrTable]
	if !ok || attrRec == nil {
		return nil
	}
	idArr, err := structFieldArray(primary, structCol, otap.ColID)
	if err != nil || idArr == nil {
		return err
	}
	r, err := idrange.ExtractRange(idArr, window.Start, window.End)
	if err != nil {
		return err
	}
	w, err := parentWindow(attrRec, otap.ColParentID, r)
	if err != nil {
		return err
	}
	out[attrTable] = attrRec.NewSlice(int64(w.Start), int64(w.End))
	return nil
}
