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

import "sync/atomic"

// Budget tracks one core's disk usage against its hard cap, and the
// telemetry counters named in spec §6.3.
type Budget struct {
	hardCap uint64

	used                 atomic.Int64
	forceDroppedSegments atomic.Int64
	forceDroppedBundles  atomic.Int64
}

func newBudget(hardCap uint64) *Budget {
	return &Budget{hardCap: hardCap}
}

// Used returns current estimated on-disk usage (WAL + finalized segments).
func (b *Budget) Used() int64 { return b.used.Load() }

// HardCap returns the configured per-core budget.
func (b *Budget) HardCap() uint64 { return b.hardCap }

// ForceDroppedSegments counts segments evicted under DropOldest pressure.
func (b *Budget) ForceDroppedSegments() int64 { return b.forceDroppedSegments.Load() }

// ForceDroppedBundles counts bundles recorded Dropped by forced eviction
// (as opposed to a subscriber-driven reject()).
func (b *Budget) ForceDroppedBundles() int64 { return b.forceDroppedBundles.Load() }

func (b *Budget) addUsed(delta int64) { b.used.Add(delta) }

func (b *Budget) wouldExceed(additional int64) bool {
	return b.used.Load()+additional > int64(b.hardCap)
}
