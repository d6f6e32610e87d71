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

// Package otap defines the data model shared by every OTAP dataflow
// component: the telemetry payload union, the 22-variant Arrow payload-type
// enum, and the subscriber/bundle identifiers used by the durable buffer and
// ack log.
package otap

// SignalType distinguishes the three OpenTelemetry signal kinds carried by
// a TelemetryPayload.
type SignalType int8

const (
	SignalLogs SignalType = iota
	SignalMetrics
	SignalTraces
)

func (s SignalType) String() string {
	switch s {
	case SignalLogs:
		return "logs"
	case SignalMetrics:
		return "metrics"
	case SignalTraces:
		return "traces"
	default:
		return "unknown"
	}
}
