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

import "github.com/open-telemetry/otap-dataflow/pkg/otap"

// NewLogsView builds a view over a Logs payload: Resource -> Scope ->
// LogRecord -> Attribute.
func NewLogsView(payload *otap.TelemetryPayload) (*View, error) {
	if payload.Signal != otap.SignalLogs {
		return nil, ErrUnsupportedSignal
	}
	return NewView(payload)
}

// NewMetricsView builds a view over a Metrics payload: Resource -> Scope ->
// Metric -> {Number,Histogram,ExpHistogram,Summary}Dp -> Attribute. The
// datapoint tables are exposed as child indices keyed by the metric's id.
func NewMetricsView(payload *otap.TelemetryPayload) (*View, error) {
	if payload.Signal != otap.SignalMetrics {
		return nil, ErrUnsupportedSignal
	}
	return NewView(payload,
		otap.PayloadNumberDP,
		otap.PayloadHistogramDP,
		otap.PayloadExpHistogramDP,
		otap.PayloadSummaryDP,
	)
}

// NewTracesView builds a view over a Traces payload: Resource -> Scope ->
// Span -> Attribute, with SpanEvents and SpanLinks exposed as child indices
// keyed by the span's id, and their own attribute tables accessible via
// SpanEventAttributes and SpanLinkAttributes (keyed by the event/link's own
// id column).
func NewTracesView(payload *otap.TelemetryPayload) (*View, error) {
	if payload.Signal != otap.SignalTraces {
		return nil, ErrUnsupportedSignal
	}
	return NewView(payload,
		otap.PayloadSpanEvents,
		otap.PayloadSpanLinks,
	)
}

// NumberDpAttributes, HistogramDpAttributes, etc. are all the same shape:
// an attribute table keyed by the datapoint's own parent_id. Rather than one
// function per table, DatapointAttributes takes the attribute PayloadType
// directly.
func DatapointAttributes(v *View, attrTable otap.PayloadType, datapointID uint32, fn func(Attribute)) error {
	idx, err := BuildAttrIndex(v.payload.Records[attrTable])
	if err != nil {
		return err
	}
	return ForEachAttribute(v.payload.Records[attrTable], idx.Rows(datapointID), fn)
}

// SpanEventAttributes decodes the attribute rows for one span event, keyed
// by the event's own id (SpanEvents rows carry both an id, for their own
// attributes, and a parent_id referring to the owning span).
func SpanEventAttributes(v *View, eventID uint32, fn func(Attribute)) error {
	return DatapointAttributes(v, otap.PayloadSpanEventAttrs, eventID, fn)
}

// SpanLinkAttributes decodes the attribute rows for one span link.
func SpanLinkAttributes(v *View, linkID uint32, fn func(Attribute)) error {
	return DatapointAttributes(v, otap.PayloadSpanLinkAttrs, linkID, fn)
}
