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

import (
	"github.com/apache/arrow/go/v12/arrow"
)

// TelemetryPayload is one OTAP message: a signal's primary table plus
// however many of its child tables were present, keyed by PayloadType.
// This is the unit ingested by the durable buffer, routed by the content
// router, and split or merged by the batch component.
//
// Records is never mutated in place; every transform (split, merge,
// reindex) returns a new TelemetryPayload referencing new or sliced Arrow
// records. A zero-copy view (see package otapview) borrows Records without
// copying.
type TelemetryPayload struct {
	Signal  SignalType
	Records map[PayloadType]arrow.Record
}

// Primary returns the payload's primary table (Logs, Metrics, or Spans),
// or nil if absent.
func (p *TelemetryPayload) Primary() arrow.Record {
	return p.Records[PrimaryTableFor(p.Signal)]
}

// RowCount returns the row count of the primary table, or 0 if the payload
// carries no primary table.
func (p *TelemetryPayload) RowCount() int64 {
	rec := p.Primary()
	if rec == nil {
		return 0
	}
	return rec.NumRows()
}

// Release drops this payload's reference to every record it holds. Callers
// that retain a record elsewhere (e.g. a zero-copy view) must Retain it
// first.
func (p *TelemetryPayload) Release() {
	for _, rec := range p.Records {
		if rec != nil {
			rec.Release()
		}
	}
}

// Retain increments the reference count of every record this payload
// holds, mirroring Arrow's retain/release discipline so a payload can
// safely outlive the batch it was sliced from.
func (p *TelemetryPayload) Retain() {
	for _, rec := range p.Records {
		if rec != nil {
			rec.Retain()
		}
	}
}

// Clone returns a shallow copy of p: a new Records map pointing at the same
// underlying arrow.Record values, each retained. Use this when a component
// needs to hand off a payload to two independent consumers (e.g. the
// router fanning a batch out to more than one destination).
func (p *TelemetryPayload) Clone() *TelemetryPayload {
	out := &TelemetryPayload{
		Signal:  p.Signal,
		Records: make(map[PayloadType]arrow.Record, len(p.Records)),
	}
	for pt, rec := range p.Records {
		if rec != nil {
			rec.Retain()
		}
		out.Records[pt] = rec
	}
	return out
}
