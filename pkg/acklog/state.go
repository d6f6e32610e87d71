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

package acklog

// BundleKey identifies one bundle within one subscriber's stream: the
// segment it came from and its index within that segment.
type BundleKey struct {
	SegmentSeq  uint64
	BundleIndex uint32
}

// SubscriberState is the rebuild-on-start reconstruction of one subscriber's
// progress, per the design note in spec §9: never written in place, always
// derived by folding the ack log from the beginning.
type SubscriberState struct {
	// Registered is false once an unregister entry is the most recent
	// lifecycle entry seen for this subscriber.
	Registered bool
	// Outcomes maps a delivered bundle to its terminal disposition. A
	// bundle with no entry here has not yet reached a terminal outcome
	// and is still deliverable.
	Outcomes map[BundleKey]Outcome
}

func newSubscriberState() *SubscriberState {
	return &SubscriberState{Outcomes: make(map[BundleKey]Outcome)}
}

// Fold replays entries in order and returns the resulting state for every
// subscriber mentioned. Entries of an unknown EntryType are skipped, as
// required by the forward-compatibility rule in §4.5.
func Fold(entries []Entry) map[string]*SubscriberState {
	states := make(map[string]*SubscriberState)

	get := func(id string) *SubscriberState {
		s, ok := states[id]
		if !ok {
			s = newSubscriberState()
			states[id] = s
		}
		return s
	}

	for _, e := range entries {
		switch e.Type {
		case EntryRegister:
			get(e.SubscriberID).Registered = true
		case EntryUnregister:
			get(e.SubscriberID).Registered = false
		case EntryAck:
			s := get(e.SubscriberID)
			s.Outcomes[BundleKey{SegmentSeq: e.SegmentSeq, BundleIndex: e.BundleIndex}] = e.Outcome
		default:
			// Unknown type: skip.
		}
	}

	return states
}

// IsTerminal reports whether key has reached a terminal (Acked or Dropped)
// outcome in s.
func (s *SubscriberState) IsTerminal(key BundleKey) bool {
	_, ok := s.Outcomes[key]
	return ok
}
