// Copyright The OpenTelemetry Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//       http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package otap

// Column names shared by every primary and child table, per the hierarchy
// invariants in the data model (resource/scope struct columns, id/parent_id
// linkage, and the attribute-row shape).
const (
	ColID       = "id"
	ColParentID = "parent_id"

	ColResource  = "resource"
	ColScope     = "scope"
	ColSchemaURL = "schema_url"

	ColAttrKey    = "key"
	ColAttrType   = "type"
	ColAttrStr    = "str"
	ColAttrInt    = "int"
	ColAttrDouble = "double"
	ColAttrBool   = "bool"
	ColAttrBytes  = "bytes"
	ColAttrCbor   = "cbor"

	ColLogsTable  = "logs"
	ColSpansTable = "spans"

	ColSeverityNumber         = "severity_number"
	ColSeverityText           = "severity_text"
	ColBody                   = "body"
	ColTimeUnixNano           = "time_unix_nano"
	ColObservedTimeUnixNano   = "observed_time_unix_nano"
	ColDroppedAttributesCount = "dropped_attributes_count"
	ColFlags                  = "flags"
	ColTraceID                = "trace_id"
	ColSpanID                 = "span_id"

	ColName               = "name"
	ColKind               = "kind"
	ColStartTimeUnixNano  = "start_time_unix_nano"
	ColEndTimeUnixNano    = "end_time_unix_nano"
	ColParentSpanID       = "parent_span_id"
	ColDroppedEventsCount = "dropped_events_count"
	ColDroppedLinksCount  = "dropped_links_count"

	ColMetricName = "name"
	ColUnit       = "unit"

	ColDatapointCount = "datapoint_count"
)
