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

import "github.com/open-telemetry/otap-dataflow/pkg/otap"

// node describes one table in a signal's parent/child topology: which
// PayloadType it is, which column on it holds the parent_id referring to
// the enclosing node's own id (ignored for the tree root), and the child
// nodes whose parent_id refers to THIS node's own id column.
//
// Resource and scope attribute tables are handled separately from this tree
// (see resourceAndScopeAttrs) because their parent id space is the
// resource/scope id embedded in the primary table's struct columns, not the
// primary table's own id column that every node below is keyed against.
type node struct {
	table        otap.PayloadType
	parentColumn string
	ownIDColumn  string
	children     []node
}

func logsTopology() node {
	return node{
		table:       otap.PayloadLogs,
		ownIDColumn: "id",
		children: []node{
			{table: otap.PayloadLogAttrs, parentColumn: "parent_id"},
		},
	}
}

// tracesTopology implements the Open Question in spec.md: traces splitting
// follows the same (parent_id, id)-sorted chunking as logs, with SpanEvents,
// SpanLinks, and their attribute tables as additional child nodes.
func tracesTopology() node {
	return node{
		table:       otap.PayloadSpans,
		ownIDColumn: "id",
		children: []node{
			{table: otap.PayloadSpanAttrs, parentColumn: "parent_id"},
			{
				table:        otap.PayloadSpanEvents,
				parentColumn: "parent_id",
				ownIDColumn:  "id",
				children: []node{
					{table: otap.PayloadSpanEventAttrs, parentColumn: "parent_id"},
				},
			},
			{
				table:        otap.PayloadSpanLinks,
				parentColumn: "parent_id",
				ownIDColumn:  "id",
				children: []node{
					{table: otap.PayloadSpanLinkAttrs, parentColumn: "parent_id"},
				},
			},
		},
	}
}

// metricsDatapointTables lists the four datapoint table PayloadTypes whose
// combined row count is the budget metrics splitting measures against (see
// splitMetrics), each keyed by the metric's own id, with their own
// per-datapoint attribute table as a nested child.
func metricsDatapointTables() []node {
	mk := func(dp, attrs otap.PayloadType) node {
		return node{
			table:        dp,
			parentColumn: "parent_id",
			ownIDColumn:  "id",
			children: []node{
				{table: attrs, parentColumn: "parent_id"},
			},
		}
	}
	return []node{
		mk(otap.PayloadNumberDP, otap.PayloadNumberDpAttrs),
		mk(otap.PayloadHistogramDP, otap.PayloadHistogramDpAttrs),
		mk(otap.PayloadExpHistogramDP, otap.PayloadExpHistogramDpAttrs),
		mk(otap.PayloadSummaryDP, otap.PayloadSummaryDpAttrs),
	}
}

// resourceAndScopeAttrs are always present for every signal: their
// parent id space is the resource.id / scope.id struct fields embedded in
// the primary table, not the primary table's own id column.
var resourceAndScopeAttrs = struct {
	resource otap.PayloadType
	scope    otap.PayloadType
}{
	resource: otap.PayloadResourceAttrs,
	scope:    otap.PayloadScopeAttrs,
}
