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

// Package acklog implements the subscriber ack log: a durable, append-only,
// rotating record of bundle delivery outcomes and subscriber lifecycle
// events, per spec §4.5. The log is never written in place -- every state
// change is an appended entry, and a subscriber's current state is always
// the fold of every entry replayed in file order.
package acklog

import "errors"

var (
	// ErrBadMagic is returned when a file's header does not start with the
	// expected 8-byte magic.
	ErrBadMagic = errors.New("acklog: bad header magic")
	// ErrUnsupportedVersion is returned when a file's header version is
	// higher than this reader understands how to parse (the header_size
	// field lets newer writers add fields future readers can still skip,
	// but a version bump signals a structural change this reader cannot
	// safely interpret).
	ErrUnsupportedVersion = errors.New("acklog: unsupported header version")
	// ErrCorrupt is returned when an entry's CRC does not match its body --
	// fatal corruption mid-file, per §4.5.
	ErrCorrupt = errors.New("acklog: entry CRC mismatch")
	// ErrSubscriberIDTooLong is returned when a SubscriberId exceeds 255
	// bytes (the sub_id_len field is one byte).
	ErrSubscriberIDTooLong = errors.New("acklog: subscriber id exceeds 255 bytes")
	// ErrEmptySubscriberID is returned when a SubscriberId is empty.
	ErrEmptySubscriberID = errors.New("acklog: subscriber id must not be empty")
)
