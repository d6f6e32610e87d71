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

// SubscriberId names one registered consumer of the durable buffer. A
// subscriber's position (which bundles it has acked) is tracked
// independently of every other subscriber's position.
type SubscriberId string

// BundleRef identifies one delivered bundle within a subscriber's ack
// stream: the WAL segment it was drained from, and its index within that
// segment's bundle sequence. It is deliberately two machine words so it
// can travel as opaque callback data through a channel or a C-style
// callback boundary without allocation.
type BundleRef struct {
	SegmentSeq  uint64
	BundleIndex uint32
}

// Encode packs the ref into the two-word form used as ack-callback data:
// the segment sequence unchanged, and the bundle index widened into the
// second word. Decode reverses it.
func (r BundleRef) Encode() (hi uint64, lo uint64) {
	return r.SegmentSeq, uint64(r.BundleIndex)
}

// DecodeBundleRef reverses Encode.
func DecodeBundleRef(hi, lo uint64) BundleRef {
	return BundleRef{SegmentSeq: hi, BundleIndex: uint32(lo)}
}

// AckOutcome is the terminal disposition of a delivered bundle.
type AckOutcome int8

const (
	// Acked means the subscriber processed the bundle; it is eligible for
	// purge once every subscriber has acked it.
	Acked AckOutcome = iota
	// Nacked means the subscriber rejected the bundle; it is rescheduled
	// for redelivery after a backoff delay.
	Nacked
	// Dropped means the bundle was discarded without delivery, e.g. because
	// it exceeded the retry budget or the buffer is shutting down.
	Dropped
)

func (o AckOutcome) String() string {
	switch o {
	case Acked:
		return "acked"
	case Nacked:
		return "nacked"
	case Dropped:
		return "dropped"
	default:
		return "unknown"
	}
}
