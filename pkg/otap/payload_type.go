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

package otap

// PayloadType identifies the role a single Arrow record batch plays within
// an OTAP message: which primary or child table it encodes.
type PayloadType int32

const (
	PayloadUnknown PayloadType = iota

	// Logs.
	PayloadLogs
	PayloadLogAttrs

	// Shared by every signal's primary table.
	PayloadResourceAttrs
	PayloadScopeAttrs

	// Metrics.
	PayloadMetrics
	PayloadNumberDP
	PayloadNumberDpAttrs
	PayloadHistogramDP
	PayloadHistogramDpAttrs
	PayloadSummaryDP
	PayloadSummaryDpAttrs
	PayloadExpHistogramDP
	PayloadExpHistogramDpAttrs

	// Traces.
	PayloadSpans
	PayloadSpanAttrs
	PayloadSpanEvents
	PayloadSpanEventAttrs
	PayloadSpanLinks
	PayloadSpanLinkAttrs

	// Exemplars, shared by the metric datapoint tables.
	PayloadExemplars
	PayloadExemplarAttrs

	// Reserved for forward-compatible additions; readers must not fail on
	// an unrecognized PayloadType found in a map key (see
	// TelemetryPayload.Records).
	payloadTypeSentinel
)

var payloadTypeNames = map[PayloadType]string{
	PayloadUnknown:              "Unknown",
	PayloadLogs:                 "Logs",
	PayloadLogAttrs:             "LogAttrs",
	PayloadResourceAttrs:        "ResourceAttrs",
	PayloadScopeAttrs:           "ScopeAttrs",
	PayloadMetrics:              "Metrics",
	PayloadNumberDP:             "NumberDP",
	PayloadNumberDpAttrs:        "NumberDpAttrs",
	PayloadHistogramDP:          "HistogramDP",
	PayloadHistogramDpAttrs:     "HistogramDpAttrs",
	PayloadSummaryDP:            "SummaryDP",
	PayloadSummaryDpAttrs:       "SummaryDpAttrs",
	PayloadExpHistogramDP:       "ExpHistogramDP",
	PayloadExpHistogramDpAttrs:  "ExpHistogramDpAttrs",
	PayloadSpans:                "Spans",
	PayloadSpanAttrs:            "SpanAttrs",
	PayloadSpanEvents:           "SpanEvents",
	PayloadSpanEventAttrs:       "SpanEventAttrs",
	PayloadSpanLinks:            "SpanLinks",
	PayloadSpanLinkAttrs:        "SpanLinkAttrs",
	PayloadExemplars:            "Exemplars",
	PayloadExemplarAttrs:        "ExemplarAttrs",
}

func (p PayloadType) String() string {
	if name, ok := payloadTypeNames[p]; ok {
		return name
	}
	return "Unrecognized"
}

// IsValid reports whether p is a known variant. Readers encountering an
// unrecognized PayloadType (e.g. written by a newer producer) should skip
// that table rather than fail, per the forward-compatibility rule applied
// throughout this data model (same rule as the ack log's unknown entry
// types).
func (p PayloadType) IsValid() bool {
	_, ok := payloadTypeNames[p]
	return ok
}

// PrimaryTableFor returns the PayloadType of the primary table for a
// signal.
func PrimaryTableFor(s SignalType) PayloadType {
	switch s {
	case SignalLogs:
		return PayloadLogs
	case SignalMetrics:
		return PayloadMetrics
	case SignalTraces:
		return PayloadSpans
	default:
		return PayloadUnknown
	}
}
