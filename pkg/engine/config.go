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

package engine

import "time"

// SizeCapPolicy selects what happens to ingest once a core's hard cap is
// reached, per spec §6.5's `size_cap_policy` key.
type SizeCapPolicy int8

const (
	// Backpressure NACKs ingest once the hard cap is reached.
	Backpressure SizeCapPolicy = iota
	// DropOldest forcibly reclaims the oldest segment (evicting any bundle
	// not yet acked by every subscriber) to make room for new ingest.
	DropOldest
)

// Config configures one core's storage engine instance.
type Config struct {
	// DataDir is this core's data directory, {path}/core_{core_id}/.
	DataDir string

	// WALMaxBytes is the size at which the active WAL segment is finalized
	// on the next Flush.
	WALMaxBytes uint64

	// SegmentTargetBytes is used only in the minimum-budget computation
	// (§3.4). Segment size is not checked against it: the WAL is finalized
	// into a segment once it reaches WALMaxBytes or SegmentMaxAge.
	SegmentTargetBytes uint64

	// SegmentMaxAge finalizes the active WAL segment on the next Flush once
	// it has been open this long, even if under WALMaxBytes.
	SegmentMaxAge time.Duration

	// HardCapBytes is this core's share of the total disk budget. Must be
	// at least WALMaxBytes + 2*SegmentTargetBytes.
	HardCapBytes uint64

	// SizeCapPolicy governs ingest behavior once HardCapBytes is reached.
	SizeCapPolicy SizeCapPolicy

	// AckLogRotationBytes and AckLogMaxRotatedFiles configure the
	// subscriber ack log (pkg/acklog) this engine owns.
	AckLogRotationBytes   uint64
	AckLogMaxRotatedFiles int
}

// minBudget returns the minimum hard cap spec §3.4 requires for this
// configuration.
func (c Config) minBudget() uint64 {
	return c.WALMaxBytes + 2*c.SegmentTargetBytes
}

func (c Config) validate() error {
	if c.DataDir == "" {
		return ErrMissingDataDir
	}
	if c.HardCapBytes < c.minBudget() {
		return ErrBudgetTooSmall
	}
	return nil
}
