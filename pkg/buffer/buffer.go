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

package buffer

import (
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/open-telemetry/otap-dataflow/pkg/engine"
	"github.com/open-telemetry/otap-dataflow/pkg/otap"
)

// Buffer is the Durable Buffer (Component F): one node-level instance
// sharding its state across NumCores independent cores, each with its own
// storage engine and drain-loop goroutine (spec §5's per-CPU-core
// scheduling model). There is no cross-core coordination in the hot path;
// a dispatcher routing into Ingest must send each message to exactly one
// core (spec §5's dispatch-strategy constraint: never broadcast).
type Buffer struct {
	cfg    Config
	logger *zap.Logger
	cores  []*core
}

// Open validates cfg and opens one engine per core. On a failure partway
// through, every already-opened core is shut down before the error is
// returned.
func Open(cfg Config, logger *zap.Logger) (*Buffer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	cores := make([]*core, cfg.NumCores)
	for i := range cores {
		c, err := newCore(i, cfg, logger)
		if err != nil {
			for j := 0; j < i; j++ {
				_ = cores[j].requestShutdown(time.Now())
			}
			return nil, err
		}
		cores[i] = c
	}

	return &Buffer{cfg: cfg, logger: logger, cores: cores}, nil
}

// NumCores returns the number of shards this buffer was opened with.
func (b *Buffer) NumCores() int { return len(b.cores) }

// Deliveries returns the channel downstream reads delivered bundles from
// for one core. Reads should be non-blocking from the caller's perspective
// (e.g. a select with a default or its own timeout) since a slow downstream
// must never stall this buffer's drain loop.
func (b *Buffer) Deliveries(coreID int) <-chan *Delivery {
	return b.cores[coreID].deliveries
}

// Ingest appends bundle to coreID's WAL, per spec §4.6's Ingest steps. The
// caller ACKs/NACKs its own upstream based on the returned error: nil means
// durably committed (ACK upstream); non-nil means NACK upstream with the
// original payload intact.
func (b *Buffer) Ingest(coreID int, bundle *engine.Bundle) error {
	return b.cores[coreID].ingest(bundle)
}

// Ack records a downstream ACK for ref, delivered on coreID.
func (b *Buffer) Ack(coreID int, ref otap.BundleRef) {
	c := b.cores[coreID]
	select {
	case c.ackCh <- ackRequest{ref: ref}:
	case <-c.done:
	}
}

// Nack records a downstream NACK for ref, delivered on coreID, scheduling a
// backoff retry.
func (b *Buffer) Nack(coreID int, ref otap.BundleRef) {
	c := b.cores[coreID]
	select {
	case c.ackCh <- ackRequest{ref: ref, nack: true}:
	case <-c.done:
	}
}

// DroppedBundles returns coreID's count of bundles discarded after a failed
// retry claim (the bundle was reclaimed by retention before the retry
// fired).
func (b *Buffer) DroppedBundles(coreID int) int64 {
	return b.cores[coreID].droppedBundles.Load()
}

// RetriesScheduled returns coreID's count of NACK-triggered retry tickets
// scheduled over this buffer's lifetime.
func (b *Buffer) RetriesScheduled(coreID int) int64 {
	return b.cores[coreID].retriesScheduled.Load()
}

// Budget exposes coreID's engine disk-budget telemetry (spec §6.3).
func (b *Buffer) Budget(coreID int) *engine.Budget {
	return b.cores[coreID].eng.Budget()
}

// Shutdown stops every core, each bounded by deadline (spec §4.6's
// Shutdown: flush, bounded drain, then unconditional engine shutdown), and
// returns an aggregate of any errors via go.uber.org/multierr, the same
// multi-error convention the teacher uses for shutdown paths.
func (b *Buffer) Shutdown(deadline time.Time) error {
	var err error
	for _, c := range b.cores {
		err = multierr.Append(err, c.requestShutdown(deadline))
	}
	return err
}
