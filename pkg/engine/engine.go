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

import (
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/apache/arrow/go/v12/arrow/memory"
	"go.uber.org/zap"

	"github.com/open-telemetry/otap-dataflow/pkg/acklog"
	"github.com/open-telemetry/otap-dataflow/pkg/otap"
	"github.com/open-telemetry/otap-dataflow/pkg/werror"
)

type cursorPos struct {
	segmentSeq  uint64
	bundleIndex uint32
}

// Engine is the reference storage engine for one core, implementing the
// contract of spec §6.3 on top of a flat-file WAL, finalized segments, and
// pkg/acklog for durable subscriber state.
type Engine struct {
	cfg    Config
	logger *zap.Logger
	alloc  memory.Allocator

	mu             sync.Mutex
	wal            *walWriter
	nextSegmentSeq uint64
	segments       []segmentInfo // finalized, ascending by Seq
	budget         *Budget
	ackWriter      *acklog.Writer
	subscribers    map[otap.SubscriberId]*acklog.SubscriberState
	active         map[otap.SubscriberId]bool
	cursors        map[otap.SubscriberId]cursorPos
	shuttingDown   bool
}

func walDir(dataDir string) string         { return filepath.Join(dataDir, "wal") }
func segmentsDir(dataDir string) string    { return filepath.Join(dataDir, "segments") }
func subscribersDir(dataDir string) string { return filepath.Join(dataDir, "subscribers") }

// Open creates (idempotently) the core's directory layout, recovers
// finalized segments and subscriber state, and opens the active WAL for
// ingest. Per spec §7, configuration failures (budget too small, missing
// data dir) fail here rather than at first use.
func Open(cfg Config, logger *zap.Logger) (*Engine, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	for _, d := range []string{cfg.DataDir, walDir(cfg.DataDir), segmentsDir(cfg.DataDir), subscribersDir(cfg.DataDir)} {
		if err := os.MkdirAll(d, 0o755); err != nil {
			return nil, werror.Wrap(err)
		}
	}

	segs, err := listSegments(segmentsDir(cfg.DataDir))
	if err != nil {
		return nil, werror.Wrap(err)
	}

	var nextSeq uint64 = 1
	var usedBytes int64
	for _, s := range segs {
		usedBytes += s.Size
		if s.Seq >= nextSeq {
			nextSeq = s.Seq + 1
		}
	}

	wal, err := openWAL(walDir(cfg.DataDir), time.Now().UnixNano())
	if err != nil {
		return nil, werror.Wrap(err)
	}
	usedBytes += int64(wal.size)

	ackWriter, err := acklog.OpenWriter(subscribersDir(cfg.DataDir), acklog.WriterConfig{
		RotationTargetBytes: cfg.AckLogRotationBytes,
		MaxRotatedFiles:     cfg.AckLogMaxRotatedFiles,
	}, logger)
	if err != nil {
		return nil, err
	}

	entries, err := acklog.ReadAll(subscribersDir(cfg.DataDir))
	if err != nil {
		return nil, err
	}
	folded := acklog.Fold(entries)

	subs := make(map[otap.SubscriberId]*acklog.SubscriberState, len(folded))
	for id, st := range folded {
		subs[otap.SubscriberId(id)] = st
	}

	b := newBudget(cfg.HardCapBytes)
	b.addUsed(usedBytes)

	return &Engine{
		cfg:            cfg,
		logger:         logger,
		alloc:          memory.NewGoAllocator(),
		wal:            wal,
		nextSegmentSeq: nextSeq,
		segments:       segs,
		budget:         b,
		ackWriter:      ackWriter,
		subscribers:    subs,
		active:         make(map[otap.SubscriberId]bool),
		cursors:        make(map[otap.SubscriberId]cursorPos),
	}, nil
}

// Budget exposes the telemetry accessors named in spec §6.3.
func (e *Engine) Budget() *Budget { return e.budget }

// Ingest appends bundle to the active WAL. On success the caller (pkg/buffer)
// ACKs upstream; on ErrAtCapacity or any other error it NACKs with the
// original payload intact, per spec §4.6 step 4.
func (e *Engine) Ingest(b *Bundle) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.shuttingDown {
		return ErrShuttingDown
	}

	payload, err := encodeBundle(b)
	if err != nil {
		return werror.Wrap(err)
	}

	// Budget by the entry's on-disk size (len | crc32c | bundle_index framing
	// plus payload), the same unit Open and segment eviction account in.
	size := int64(12 + len(payload))
	if e.budget.wouldExceed(size) {
		if e.cfg.SizeCapPolicy == DropOldest {
			e.evictOldestLocked()
		}
		if e.budget.wouldExceed(size) {
			return ErrAtCapacity
		}
	}

	if _, err := e.wal.append(payload); err != nil {
		return werror.Wrap(err)
	}
	e.budget.addUsed(size)
	return nil
}

// Flush finalizes the active WAL segment if it is stale (by size or age),
// making its bundles visible to PollNextBundle. Flush is a no-op when the
// WAL is empty, so idle cores do not accumulate empty segment files.
func (e *Engine) Flush() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.flushLocked()
}

func (e *Engine) flushLocked() error {
	if e.wal.nextIndex == 0 {
		return nil
	}
	stale := e.wal.size >= e.cfg.WALMaxBytes
	if e.cfg.SegmentMaxAge > 0 {
		age := time.Duration(time.Now().UnixNano()-e.wal.openedAt) * time.Nanosecond
		stale = stale || age >= e.cfg.SegmentMaxAge
	}
	if !stale {
		return nil
	}
	return e.finalizeActiveLocked()
}

func (e *Engine) finalizeActiveLocked() error {
	info, err := e.wal.finalize(segmentsDir(e.cfg.DataDir), e.nextSegmentSeq)
	if err != nil {
		return werror.Wrap(err)
	}
	e.segments = append(e.segments, info)
	e.nextSegmentSeq++

	newWAL, err := openWAL(walDir(e.cfg.DataDir), time.Now().UnixNano())
	if err != nil {
		return werror.Wrap(err)
	}
	e.wal = newWAL
	return nil
}

// Maintain reclaims fully-consumed segments, purges the ack log of rotated
// files no longer needed to recover any live subscriber's progress, and,
// under the DropOldest policy, forcibly evicts the oldest segment if the
// hard cap is still exceeded.
func (e *Engine) Maintain() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	kept := e.segments[:0:0]
	for _, s := range e.segments {
		if e.fullyConsumedLocked(s) {
			if err := os.Remove(s.Path); err != nil && !os.IsNotExist(err) {
				return werror.Wrap(err)
			}
			e.budget.addUsed(-s.Size)
			continue
		}
		kept = append(kept, s)
	}
	e.segments = kept

	oldestIncomplete := e.nextSegmentSeq
	if len(e.segments) > 0 {
		oldestIncomplete = e.segments[0].Seq
	}
	if err := e.ackWriter.PurgeBefore(oldestIncomplete); err != nil {
		return err
	}

	if e.cfg.SizeCapPolicy == DropOldest {
		for e.budget.wouldExceed(0) && len(e.segments) > 0 {
			e.evictOldestLocked()
		}
	}

	return nil
}

func (e *Engine) fullyConsumedLocked(s segmentInfo) bool {
	if len(e.subscribers) == 0 {
		return false // nothing to wait on is not the same as "everyone acked"
	}
	for _, st := range e.subscribers {
		if !st.Registered {
			continue
		}
		for idx := uint32(0); idx < uint32(s.NumBundle); idx++ {
			if !st.IsTerminal(acklog.BundleKey{SegmentSeq: s.Seq, BundleIndex: idx}) {
				return false
			}
		}
	}
	return true
}

// evictOldestLocked forces retention eviction of the single oldest
// finalized segment, recording a Dropped outcome for every registered
// subscriber's not-yet-terminal bundles in it (the "Available
// --retention-evict--> Dropped" transition of spec §4.6's state machine).
// Called with e.mu held.
func (e *Engine) evictOldestLocked() {
	if len(e.segments) == 0 {
		return
	}
	s := e.segments[0]

	droppedBundles := int64(0)
	now := time.Now().UnixMilli()
	for sub, st := range e.subscribers {
		if !st.Registered {
			continue
		}
		for idx := uint32(0); idx < uint32(s.NumBundle); idx++ {
			key := acklog.BundleKey{SegmentSeq: s.Seq, BundleIndex: idx}
			if st.IsTerminal(key) {
				continue
			}
			entry := acklog.Entry{
				Type:         acklog.EntryAck,
				TimestampMS:  now,
				SubscriberID: string(sub),
				Outcome:      acklog.OutcomeDropped,
				SegmentSeq:   s.Seq,
				BundleIndex:  idx,
			}
			if err := e.ackWriter.Append(entry); err != nil {
				e.logger.Warn("engine: failed to record forced-drop outcome", zap.Error(err))
				continue
			}
			st.Outcomes[key] = acklog.OutcomeDropped
			droppedBundles++
		}
	}

	if err := os.Remove(s.Path); err != nil && !os.IsNotExist(err) {
		e.logger.Warn("engine: failed to remove evicted segment", zap.String("path", s.Path), zap.Error(err))
		return
	}
	e.segments = e.segments[1:]
	e.budget.addUsed(-s.Size)
	e.budget.forceDroppedSegments.Add(1)
	e.budget.forceDroppedBundles.Add(droppedBundles)
}

// RegisterSubscriber records a durable Registered lifecycle event.
func (e *Engine) RegisterSubscriber(id otap.SubscriberId) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.ackWriter.Append(acklog.Entry{
		Type:         acklog.EntryRegister,
		TimestampMS:  time.Now().UnixMilli(),
		SubscriberID: string(id),
	}); err != nil {
		return err
	}
	if st, ok := e.subscribers[id]; ok {
		st.Registered = true
	} else {
		e.subscribers[id] = &acklog.SubscriberState{Registered: true, Outcomes: make(map[acklog.BundleKey]acklog.Outcome)}
	}
	return nil
}

// ActivateSubscriber marks a registered subscriber eligible for
// PollNextBundle.
func (e *Engine) ActivateSubscriber(id otap.SubscriberId) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, ok := e.subscribers[id]; !ok {
		return ErrUnknownSubscriber
	}
	e.active[id] = true
	return nil
}

// PollNextBundle returns the next undelivered bundle for sub, scanning
// forward from its cursor in segment-sequence then bundle-index order
// (spec §5's ordering rule). A bundle already terminal for sub is skipped
// and the cursor advances past it; a deferred (non-terminal) bundle is
// returned immediately, without advancing the cursor, so it is offered
// again on the next call until it becomes terminal. Returns (nil, nil)
// when there is currently nothing left to deliver.
func (e *Engine) PollNextBundle(sub otap.SubscriberId) (*BundleHandle, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	st, ok := e.subscribers[sub]
	if !ok {
		return nil, ErrUnknownSubscriber
	}
	if !e.active[sub] {
		return nil, nil
	}

	cur := e.cursors[sub]
	for i, seg := range e.segments {
		if seg.Seq < cur.segmentSeq {
			continue
		}
		start := uint32(0)
		if seg.Seq == cur.segmentSeq {
			start = cur.bundleIndex
		}
		for idx := start; idx < uint32(seg.NumBundle); idx++ {
			key := acklog.BundleKey{SegmentSeq: seg.Seq, BundleIndex: idx}
			if st.IsTerminal(key) {
				cur = cursorPos{segmentSeq: seg.Seq, bundleIndex: idx + 1}
				e.cursors[sub] = cur
				continue
			}
			handle, err := e.readHandleLocked(sub, seg.Path, otap.BundleRef{SegmentSeq: seg.Seq, BundleIndex: idx})
			if err != nil {
				return nil, err
			}
			return handle, nil
		}
		// Exhausted this segment; advance cursor into the next one.
		if i+1 < len(e.segments) {
			cur = cursorPos{segmentSeq: e.segments[i+1].Seq, bundleIndex: 0}
			e.cursors[sub] = cur
		}
	}
	return nil, nil
}

// ClaimBundle claims a specific bundle ref, used by the durable buffer's
// retry path. Returns ErrBundleNotFound if the ref's segment has been
// reclaimed or evicted, or if it is already terminal for sub.
func (e *Engine) ClaimBundle(sub otap.SubscriberId, ref otap.BundleRef) (*BundleHandle, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	st, ok := e.subscribers[sub]
	if !ok {
		return nil, ErrUnknownSubscriber
	}
	if st.IsTerminal(acklog.BundleKey{SegmentSeq: ref.SegmentSeq, BundleIndex: ref.BundleIndex}) {
		return nil, ErrBundleNotFound
	}

	for _, seg := range e.segments {
		if seg.Seq == ref.SegmentSeq {
			return e.readHandleLocked(sub, seg.Path, ref)
		}
	}
	return nil, ErrBundleNotFound
}

func (e *Engine) readHandleLocked(sub otap.SubscriberId, path string, ref otap.BundleRef) (*BundleHandle, error) {
	raw, err := readSegmentBundle(path, ref.BundleIndex)
	if err != nil {
		return nil, err
	}
	b, err := decodeBundle(raw, e.alloc)
	if err != nil {
		return nil, werror.Wrap(err)
	}
	return &BundleHandle{engine: e, sub: sub, ref: ref, bundle: b}, nil
}

// commitOutcome is called by BundleHandle.Ack/Reject.
func (e *Engine) commitOutcome(sub otap.SubscriberId, ref otap.BundleRef, outcome otap.AckOutcome) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	var ao acklog.Outcome
	switch outcome {
	case otap.Acked:
		ao = acklog.OutcomeAcked
	case otap.Dropped:
		ao = acklog.OutcomeDropped
	default:
		return ErrNonTerminalOutcome
	}

	if err := e.ackWriter.Append(acklog.Entry{
		Type:         acklog.EntryAck,
		TimestampMS:  time.Now().UnixMilli(),
		SubscriberID: string(sub),
		Outcome:      ao,
		SegmentSeq:   ref.SegmentSeq,
		BundleIndex:  ref.BundleIndex,
	}); err != nil {
		return err
	}

	if st, ok := e.subscribers[sub]; ok {
		st.Outcomes[acklog.BundleKey{SegmentSeq: ref.SegmentSeq, BundleIndex: ref.BundleIndex}] = ao
	}
	return nil
}

// releaseClaim is called by BundleHandle.Release (spec's "implicit defer").
// The engine tracks no separate claim state -- a released bundle is simply
// still non-terminal, so the next PollNextBundle/ClaimBundle offers it
// again -- so there is nothing to undo here.
func (e *Engine) releaseClaim(_ otap.SubscriberId, _ otap.BundleRef) {}

// Shutdown finalizes the open segment for durability (even past whatever
// deadline the caller is tracking -- spec §4.6's shutdown step 3) and
// closes the ack log writer.
func (e *Engine) Shutdown() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.shuttingDown = true
	if e.wal.nextIndex > 0 {
		if err := e.finalizeActiveLocked(); err != nil {
			return err
		}
	} else if err := e.wal.close(); err != nil {
		return werror.Wrap(err)
	}
	return e.ackWriter.Close()
}
