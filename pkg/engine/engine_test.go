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
	"path/filepath"
	"testing"

	"github.com/apache/arrow/go/v12/arrow"
	"github.com/apache/arrow/go/v12/arrow/array"
	"github.com/apache/arrow/go/v12/arrow/memory"
	"github.com/stretchr/testify/require"

	"github.com/open-telemetry/otap-dataflow/pkg/otap"
)

var logsSchema = arrow.NewSchema([]arrow.Field{
	{Name: "id", Type: arrow.PrimitiveTypes.Uint16},
}, nil)

func rawBundle(n int) *Bundle {
	return &Bundle{Signal: otap.SignalLogs, RawBytes: make([]byte, n)}
}

func arrowBundle(t *testing.T, rows int) *Bundle {
	t.Helper()
	m := memory.NewGoAllocator()
	b := array.NewRecordBuilder(m, logsSchema)
	defer b.Release()
	idB := b.Field(0).(*array.Uint16Builder)
	for i := 0; i < rows; i++ {
		idB.Append(uint16(i))
	}
	rec := b.NewRecord()
	return &Bundle{
		Signal: otap.SignalLogs,
		Payload: &otap.TelemetryPayload{
			Signal:  otap.SignalLogs,
			Records: map[otap.PayloadType]arrow.Record{otap.PayloadLogs: rec},
		},
	}
}

func testConfig(dir string) Config {
	return Config{
		DataDir:            dir,
		WALMaxBytes:         1 << 20,
		SegmentTargetBytes:  1 << 20,
		HardCapBytes:        4 << 20,
		SizeCapPolicy:       Backpressure,
		AckLogRotationBytes: 1 << 20,
		AckLogMaxRotatedFiles: 4,
	}
}

func openTestEngine(t *testing.T, dir string) *Engine {
	t.Helper()
	e, err := Open(testConfig(dir), nil)
	require.NoError(t, err)
	return e
}

func TestOpenCreatesLayout(t *testing.T) {
	dir := t.TempDir()
	e := openTestEngine(t, dir)
	defer e.Shutdown()

	require.DirExists(t, filepath.Join(dir, "wal"))
	require.DirExists(t, filepath.Join(dir, "segments"))
	require.DirExists(t, filepath.Join(dir, "subscribers"))
}

func TestOpenRejectsBudgetTooSmall(t *testing.T) {
	dir := t.TempDir()
	cfg := testConfig(dir)
	cfg.HardCapBytes = 1
	_, err := Open(cfg, nil)
	require.ErrorIs(t, err, ErrBudgetTooSmall)
}

func TestOpenRejectsMissingDataDir(t *testing.T) {
	cfg := testConfig("")
	_, err := Open(cfg, nil)
	require.ErrorIs(t, err, ErrMissingDataDir)
}

func TestIngestFlushPollAck(t *testing.T) {
	dir := t.TempDir()
	e := openTestEngine(t, dir)
	defer e.Shutdown()

	require.NoError(t, e.RegisterSubscriber("sub-a"))
	require.NoError(t, e.ActivateSubscriber("sub-a"))

	require.NoError(t, e.Ingest(rawBundle(16)))
	require.NoError(t, e.Ingest(arrowBundle(t, 3)))

	// Nothing to poll before a segment is finalized.
	h, err := e.PollNextBundle("sub-a")
	require.NoError(t, err)
	require.Nil(t, h)

	require.NoError(t, e.finalizeActiveLocked0())

	h, err = e.PollNextBundle("sub-a")
	require.NoError(t, err)
	require.NotNil(t, h)
	require.Equal(t, uint32(0), h.Ref().BundleIndex)
	require.NoError(t, h.Ack())

	h2, err := e.PollNextBundle("sub-a")
	require.NoError(t, err)
	require.NotNil(t, h2)
	require.Equal(t, uint32(1), h2.Ref().BundleIndex)
	require.NoError(t, h2.Ack())

	h3, err := e.PollNextBundle("sub-a")
	require.NoError(t, err)
	require.Nil(t, h3)
}

func TestDeferredBundleRedelivered(t *testing.T) {
	dir := t.TempDir()
	e := openTestEngine(t, dir)
	defer e.Shutdown()

	require.NoError(t, e.RegisterSubscriber("sub-a"))
	require.NoError(t, e.ActivateSubscriber("sub-a"))
	require.NoError(t, e.Ingest(rawBundle(8)))
	require.NoError(t, e.finalizeActiveLocked0())

	h1, err := e.PollNextBundle("sub-a")
	require.NoError(t, err)
	require.NotNil(t, h1)
	h1.Release()

	// Released without a terminal outcome: polled again immediately.
	h2, err := e.PollNextBundle("sub-a")
	require.NoError(t, err)
	require.NotNil(t, h2)
	require.Equal(t, h1.Ref(), h2.Ref())
	require.NoError(t, h2.Ack())

	h3, err := e.PollNextBundle("sub-a")
	require.NoError(t, err)
	require.Nil(t, h3)
}

func TestIngestAtCapacityBackpressure(t *testing.T) {
	dir := t.TempDir()
	cfg := testConfig(dir)
	cfg.WALMaxBytes = 64
	cfg.SegmentTargetBytes = 64
	cfg.HardCapBytes = cfg.minBudget() // exactly the minimum: little headroom
	cfg.SizeCapPolicy = Backpressure
	e, err := Open(cfg, nil)
	require.NoError(t, err)
	defer e.Shutdown()

	var lastErr error
	for i := 0; i < 64; i++ {
		lastErr = e.Ingest(rawBundle(64))
		if lastErr != nil {
			break
		}
	}
	require.ErrorIs(t, lastErr, ErrAtCapacity)
}

func TestMaintainReclaimsFullyAckedSegment(t *testing.T) {
	dir := t.TempDir()
	e := openTestEngine(t, dir)
	defer e.Shutdown()

	require.NoError(t, e.RegisterSubscriber("sub-a"))
	require.NoError(t, e.ActivateSubscriber("sub-a"))
	require.NoError(t, e.Ingest(rawBundle(8)))
	require.NoError(t, e.finalizeActiveLocked0())
	require.Len(t, e.segments, 1)

	h, err := e.PollNextBundle("sub-a")
	require.NoError(t, err)
	require.NoError(t, h.Ack())

	require.NoError(t, e.Maintain())
	require.Len(t, e.segments, 0)
}

func TestMaintainDropOldestEviction(t *testing.T) {
	dir := t.TempDir()
	cfg := testConfig(dir)
	cfg.WALMaxBytes = 32
	cfg.SegmentTargetBytes = 32
	cfg.HardCapBytes = cfg.minBudget()
	cfg.SizeCapPolicy = DropOldest
	e, err := Open(cfg, nil)
	require.NoError(t, err)
	defer e.Shutdown()

	require.NoError(t, e.RegisterSubscriber("sub-a"))
	require.NoError(t, e.ActivateSubscriber("sub-a"))

	require.NoError(t, e.Ingest(rawBundle(16)))
	require.NoError(t, e.finalizeActiveLocked0())
	require.NoError(t, e.Ingest(rawBundle(16)))
	require.NoError(t, e.finalizeActiveLocked0())

	// Never acked by sub-a. A third ingest forces eviction of the oldest
	// segment under DropOldest.
	require.NoError(t, e.Ingest(rawBundle(16)))

	require.Equal(t, int64(1), e.Budget().ForceDroppedSegments())
	require.Equal(t, int64(1), e.Budget().ForceDroppedBundles())
}

func TestClaimBundleAfterRelease(t *testing.T) {
	dir := t.TempDir()
	e := openTestEngine(t, dir)
	defer e.Shutdown()

	require.NoError(t, e.RegisterSubscriber("sub-a"))
	require.NoError(t, e.ActivateSubscriber("sub-a"))
	require.NoError(t, e.Ingest(rawBundle(8)))
	require.NoError(t, e.finalizeActiveLocked0())

	h, err := e.PollNextBundle("sub-a")
	require.NoError(t, err)
	ref := h.Ref()
	h.Release()

	claimed, err := e.ClaimBundle("sub-a", ref)
	require.NoError(t, err)
	require.NotNil(t, claimed)
	require.NoError(t, claimed.Reject())

	_, err = e.ClaimBundle("sub-a", ref)
	require.ErrorIs(t, err, ErrBundleNotFound)
}

func TestShutdownFinalizesOpenSegment(t *testing.T) {
	dir := t.TempDir()
	e := openTestEngine(t, dir)
	require.NoError(t, e.RegisterSubscriber("sub-a"))
	require.NoError(t, e.ActivateSubscriber("sub-a"))
	require.NoError(t, e.Ingest(rawBundle(8)))

	require.NoError(t, e.Shutdown())
	require.Len(t, e.segments, 1)

	err := e.Ingest(rawBundle(8))
	require.ErrorIs(t, err, ErrShuttingDown)
}

func TestReopenRecoversSubscriberStateAndSegments(t *testing.T) {
	dir := t.TempDir()
	e := openTestEngine(t, dir)

	require.NoError(t, e.RegisterSubscriber("sub-a"))
	require.NoError(t, e.ActivateSubscriber("sub-a"))
	require.NoError(t, e.Ingest(rawBundle(8)))
	require.NoError(t, e.Ingest(rawBundle(8)))
	require.NoError(t, e.finalizeActiveLocked0())

	h, err := e.PollNextBundle("sub-a")
	require.NoError(t, err)
	require.NoError(t, h.Ack())

	require.NoError(t, e.Shutdown())

	e2, err := Open(testConfig(dir), nil)
	require.NoError(t, err)
	defer e2.Shutdown()

	require.NoError(t, e2.ActivateSubscriber("sub-a"))
	h2, err := e2.PollNextBundle("sub-a")
	require.NoError(t, err)
	require.NotNil(t, h2)
	require.Equal(t, uint32(1), h2.Ref().BundleIndex)
	require.NoError(t, h2.Ack())

	h3, err := e2.PollNextBundle("sub-a")
	require.NoError(t, err)
	require.Nil(t, h3)
}

// finalizeActiveLocked0 is a test-only helper that takes the engine lock and
// finalizes the active WAL unconditionally, bypassing the staleness check in
// Flush so tests can control segment boundaries precisely.
func (e *Engine) finalizeActiveLocked0() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.finalizeActiveLocked()
}
