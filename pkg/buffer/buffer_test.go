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
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/open-telemetry/otap-dataflow/pkg/engine"
	"github.com/open-telemetry/otap-dataflow/pkg/otap"
)

func testConfig(dir string) Config {
	return Config{
		Path:                   dir,
		RetentionSizeCap:       4 << 20,
		SizeCapPolicy:          engine.Backpressure,
		PollInterval:           20 * time.Millisecond,
		MaxSegmentOpenDuration: time.Millisecond,
		InitialRetryInterval:   30 * time.Millisecond,
		MaxRetryInterval:       200 * time.Millisecond,
		RetryMultiplier:        2,
		MaxInFlight:            4,
		NumCores:               1,
	}
}

func rawBundle(n int) *engine.Bundle {
	return &engine.Bundle{Signal: otap.SignalLogs, RawBytes: make([]byte, n)}
}

func recvDelivery(t *testing.T, b *Buffer, core int, timeout time.Duration) *Delivery {
	t.Helper()
	select {
	case d := <-b.Deliveries(core):
		return d
	case <-time.After(timeout):
		t.Fatal("timed out waiting for delivery")
		return nil
	}
}

func requireNoDelivery(t *testing.T, b *Buffer, core int, wait time.Duration) {
	t.Helper()
	select {
	case d := <-b.Deliveries(core):
		t.Fatalf("unexpected delivery: %+v", d.Ref)
	case <-time.After(wait):
	}
}

func TestValidateRejectsMissingPath(t *testing.T) {
	cfg := testConfig("")
	require.ErrorIs(t, cfg.Validate(), ErrMissingPath)
}

func TestValidateRejectsBadRetryMultiplier(t *testing.T) {
	cfg := testConfig(t.TempDir())
	cfg.RetryMultiplier = 1
	require.ErrorIs(t, cfg.Validate(), ErrInvalidRetryMultiplier)
}

func TestIngestDeliverAck(t *testing.T) {
	dir := t.TempDir()
	b, err := Open(testConfig(dir), nil)
	require.NoError(t, err)
	defer b.Shutdown(time.Now().Add(time.Second))

	require.NoError(t, b.Ingest(0, rawBundle(16)))

	d := recvDelivery(t, b, 0, time.Second)
	require.Equal(t, uint32(0), d.Ref.BundleIndex)
	b.Ack(0, d.Ref)

	// No redelivery after ack.
	requireNoDelivery(t, b, 0, 150*time.Millisecond)
}

func TestNackSchedulesRetryAndRedelivers(t *testing.T) {
	dir := t.TempDir()
	b, err := Open(testConfig(dir), nil)
	require.NoError(t, err)
	defer b.Shutdown(time.Now().Add(time.Second))

	require.NoError(t, b.Ingest(0, rawBundle(8)))

	d1 := recvDelivery(t, b, 0, time.Second)
	b.Nack(0, d1.Ref)

	d2 := recvDelivery(t, b, 0, time.Second)
	require.Equal(t, d1.Ref, d2.Ref)
	b.Ack(0, d2.Ref)

	require.Equal(t, int64(1), b.RetriesScheduled(0))
}

func TestMaxInFlightBackpressure(t *testing.T) {
	dir := t.TempDir()
	cfg := testConfig(dir)
	cfg.MaxInFlight = 1
	b, err := Open(cfg, nil)
	require.NoError(t, err)
	defer b.Shutdown(time.Now().Add(time.Second))

	require.NoError(t, b.Ingest(0, rawBundle(8)))
	require.NoError(t, b.Ingest(0, rawBundle(8)))

	d1 := recvDelivery(t, b, 0, time.Second)

	// Second bundle withheld: max_in_flight == 1 already in use.
	requireNoDelivery(t, b, 0, 100*time.Millisecond)

	b.Ack(0, d1.Ref)

	d2 := recvDelivery(t, b, 0, time.Second)
	require.NotEqual(t, d1.Ref, d2.Ref)
	b.Ack(0, d2.Ref)
}

func TestShutdownAndReopenRedeliversUnacked(t *testing.T) {
	dir := t.TempDir()
	b, err := Open(testConfig(dir), nil)
	require.NoError(t, err)

	require.NoError(t, b.Ingest(0, rawBundle(8)))
	require.NoError(t, b.Ingest(0, rawBundle(8)))

	d1 := recvDelivery(t, b, 0, time.Second)
	b.Ack(0, d1.Ref)
	// Give the loop goroutine a tick to commit the ack before shutdown.
	time.Sleep(30 * time.Millisecond)

	require.NoError(t, b.Shutdown(time.Now().Add(time.Second)))

	b2, err := Open(testConfig(dir), nil)
	require.NoError(t, err)
	defer b2.Shutdown(time.Now().Add(time.Second))

	d2 := recvDelivery(t, b2, 0, time.Second)
	require.NotEqual(t, d1.Ref, d2.Ref)
	b2.Ack(0, d2.Ref)
}
