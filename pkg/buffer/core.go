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
	"errors"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/open-telemetry/otap-dataflow/pkg/engine"
	"github.com/open-telemetry/otap-dataflow/pkg/otap"
)

// downstreamSubscriber is the subscriber id the buffer itself registers
// with its engine to receive bundles for delivery. One buffer owns exactly
// one logical downstream consumer per core.
const downstreamSubscriber otap.SubscriberId = "buffer-downstream"

// Delivery is one bundle handed to downstream: its data, plus the ref a
// caller echoes back through Ack/Nack.
type Delivery struct {
	Ref    otap.BundleRef
	Bundle *engine.Bundle
}

type ingestRequest struct {
	bundle *engine.Bundle
	result chan error
}

type ackRequest struct {
	ref  otap.BundleRef
	nack bool
}

type shutdownRequest struct {
	deadline time.Time
	result   chan error
}

// pendingEntry is one in-flight claim: the handle the engine gave us, and
// the retry attempt number this delivery represents (0 for a bundle's first
// delivery), carried forward into scheduleRetry's backoff exponent.
type pendingEntry struct {
	handle     *engine.BundleHandle
	retryCount uint32
}

// core is one per-CPU-core shard of the Durable Buffer: its own storage
// engine instance, its own drain-loop goroutine, and its own in-flight and
// retry-scheduled bookkeeping -- matching spec §5's single-threaded-
// cooperative-per-core model. Modeled on concurrentbatchprocessor/
// batch_processor.go's shard/timer idiom: one goroutine owns all of this
// core's mutable state and serializes access to it by receiving everything
// -- ingest requests, acks, retry tickets, and the poll timer -- over
// channels into one select loop.
type core struct {
	id     int
	cfg    Config
	logger *zap.Logger
	eng    *engine.Engine

	deliveries chan *Delivery

	ingestCh   chan ingestRequest
	ackCh      chan ackRequest
	retryCh    chan retryTicket
	shutdownCh chan shutdownRequest
	done       chan struct{}

	// pending and retryScheduled are owned exclusively by loop() -- no
	// lock needed.
	pending        map[otap.BundleRef]*pendingEntry
	retryScheduled map[otap.BundleRef]struct{}
	inFlight       int

	droppedBundles   atomic.Int64
	retriesScheduled atomic.Int64
}

func newCore(id int, cfg Config, logger *zap.Logger) (*core, error) {
	eng, err := engine.Open(cfg.engineConfig(id), logger)
	if err != nil {
		return nil, err
	}
	if err := eng.RegisterSubscriber(downstreamSubscriber); err != nil {
		return nil, err
	}
	if err := eng.ActivateSubscriber(downstreamSubscriber); err != nil {
		return nil, err
	}

	c := &core{
		id:             id,
		cfg:            cfg,
		logger:         logger,
		eng:            eng,
		deliveries:     make(chan *Delivery, cfg.MaxInFlight),
		ingestCh:       make(chan ingestRequest),
		ackCh:          make(chan ackRequest, cfg.MaxInFlight),
		retryCh:        make(chan retryTicket, cfg.MaxInFlight),
		shutdownCh:     make(chan shutdownRequest),
		done:           make(chan struct{}),
		pending:        make(map[otap.BundleRef]*pendingEntry),
		retryScheduled: make(map[otap.BundleRef]struct{}),
	}
	go c.loop()
	return c, nil
}

func (c *core) loop() {
	defer close(c.done)

	ticker := time.NewTicker(c.cfg.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case req := <-c.shutdownCh:
			req.result <- c.doShutdown(req.deadline)
			return
		case req := <-c.ingestCh:
			req.result <- c.ingestLocked(req.bundle)
		case ack := <-c.ackCh:
			c.handleAck(ack)
		case t := <-c.retryCh:
			c.handleRetry(t)
		case <-ticker.C:
			c.tick()
		}
	}
}

// ingest hands bundle to the core's loop goroutine and waits for the
// ingest result.
func (c *core) ingest(b *engine.Bundle) error {
	result := make(chan error, 1)
	select {
	case c.ingestCh <- ingestRequest{bundle: b, result: result}:
	case <-c.done:
		return ErrClosed
	}
	select {
	case err := <-result:
		return err
	case <-c.done:
		return ErrClosed
	}
}

// ingestLocked implements spec §4.6's Ingest steps 4-5: WAL-append and
// ACK/NACK upstream, distinguishing soft at-capacity backpressure from hard
// errors. Called only from loop().
func (c *core) ingestLocked(b *engine.Bundle) error {
	err := c.eng.Ingest(b)
	if err == nil {
		return nil
	}
	if errors.Is(err, engine.ErrAtCapacity) {
		c.logger.Warn("buffer: core at capacity, nacking ingest", zap.Int("core", c.id))
	} else {
		c.logger.Error("buffer: ingest failed", zap.Int("core", c.id), zap.Error(err))
	}
	return err
}

// tick implements spec §4.6's Delivery steps: flush, time-budgeted drain,
// then unconditional maintenance.
func (c *core) tick() {
	if err := c.eng.Flush(); err != nil {
		c.logger.Warn("buffer: flush failed", zap.Int("core", c.id), zap.Error(err))
	}

	deadline := time.Now().Add(c.cfg.PollInterval / 2)
	c.drain(deadline)

	if err := c.eng.Maintain(); err != nil {
		c.logger.Warn("buffer: maintain failed", zap.Int("core", c.id), zap.Error(err))
	}
}

// drain implements spec §4.6's drain loop: poll_next_bundle, skipping any
// ref already in flight or scheduled for retry (breaking once the iterator
// cycles back to the first such skip without progress, since this engine's
// cursor does not advance past a non-terminal bundle), and attempting a
// non-blocking send to downstream for everything else.
func (c *core) drain(deadline time.Time) {
	var firstSkipped *otap.BundleRef

	for {
		if !deadline.IsZero() && time.Now().After(deadline) {
			return
		}
		if c.inFlight >= c.cfg.MaxInFlight {
			return
		}

		h, err := c.eng.PollNextBundle(downstreamSubscriber)
		if err != nil {
			c.logger.Error("buffer: poll failed", zap.Int("core", c.id), zap.Error(err))
			return
		}
		if h == nil {
			return
		}

		ref := h.Ref()
		if _, inFlight := c.pending[ref]; inFlight || c.isRetryScheduled(ref) {
			h.Release()
			if firstSkipped == nil {
				firstSkipped = &ref
				continue
			}
			if *firstSkipped == ref {
				return // cycled back with no progress
			}
			continue
		}
		firstSkipped = nil

		delivery := &Delivery{Ref: ref, Bundle: h.Bundle()}
		select {
		case c.deliveries <- delivery:
			c.pending[ref] = &pendingEntry{handle: h}
			c.inFlight++
		default:
			h.Release() // channel full: retry this bundle next tick
			return
		}
	}
}

func (c *core) isRetryScheduled(ref otap.BundleRef) bool {
	_, ok := c.retryScheduled[ref]
	return ok
}

// handleAck implements spec §4.6's Acknowledgement handling for both ACK
// and NACK, called only from loop().
func (c *core) handleAck(req ackRequest) {
	entry, ok := c.pending[req.ref]
	if !ok {
		c.logger.Warn("buffer: ack/nack for unknown ref", zap.Int("core", c.id))
		return
	}
	delete(c.pending, req.ref)
	c.inFlight--

	if !req.nack {
		if err := entry.handle.Ack(); err != nil {
			c.logger.Error("buffer: ack commit failed", zap.Int("core", c.id), zap.Error(err))
		}
		return
	}

	entry.handle.Release()
	c.scheduleRetry(req.ref, entry.retryCount+1)
}

// scheduleRetry implements the delayed-retry primitive: a time.AfterFunc
// posting a retryTicket back onto retryCh, mirroring batch_processor.go's
// shard.timer pattern but one-shot per bundle instead of periodic.
func (c *core) scheduleRetry(ref otap.BundleRef, retryCount uint32) {
	c.retryScheduled[ref] = struct{}{}
	c.retriesScheduled.Add(1)

	delay := retryDelay(c.cfg, retryCount)
	t := retryTicket{ref: ref, retryCount: retryCount}
	time.AfterFunc(delay, func() {
		select {
		case c.retryCh <- t:
		case <-c.done:
		}
	})
}

// handleRetry implements spec §4.6's "Delayed retry fires" handling.
func (c *core) handleRetry(t retryTicket) {
	delete(c.retryScheduled, t.ref)

	if c.inFlight >= c.cfg.MaxInFlight {
		c.rescheduleShort(t)
		return
	}

	h, err := c.eng.ClaimBundle(downstreamSubscriber, t.ref)
	if err != nil {
		c.logger.Info("buffer: retry claim failed, bundle no longer available",
			zap.Int("core", c.id), zap.Error(err))
		c.droppedBundles.Add(1)
		return
	}

	delivery := &Delivery{Ref: t.ref, Bundle: h.Bundle()}
	select {
	case c.deliveries <- delivery:
		c.pending[t.ref] = &pendingEntry{handle: h, retryCount: t.retryCount}
		c.inFlight++
	default:
		h.Release()
		c.rescheduleShort(t)
	}
}

// rescheduleShort re-posts a retry ticket after poll_interval, per spec
// §4.6's "re-schedule with poll_interval delay" rule for both the
// max_in_flight and channel-full retry cases.
func (c *core) rescheduleShort(t retryTicket) {
	c.retryScheduled[t.ref] = struct{}{}
	time.AfterFunc(c.cfg.PollInterval, func() {
		select {
		case c.retryCh <- t:
		case <-c.done:
		}
	})
}

// doShutdown implements spec §4.6's Shutdown: flush, bounded best-effort
// drain, then unconditionally shut down the engine even past deadline.
// Called only from loop(), immediately before it returns.
func (c *core) doShutdown(deadline time.Time) error {
	if err := c.eng.Flush(); err != nil {
		c.logger.Warn("buffer: shutdown flush failed", zap.Int("core", c.id), zap.Error(err))
	}
	c.drain(deadline)
	return c.eng.Shutdown()
}

// requestShutdown asks the loop goroutine to shut down, bounded by
// deadline, and waits for it to finish.
func (c *core) requestShutdown(deadline time.Time) error {
	result := make(chan error, 1)
	select {
	case c.shutdownCh <- shutdownRequest{deadline: deadline, result: result}:
	case <-c.done:
		return nil
	}
	return <-result
}
