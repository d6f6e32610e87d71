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

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func newTestDir(t *testing.T) string {
	t.Helper()
	dir, err := os.MkdirTemp("", "acklog-test-*")
	require.NoError(t, err)
	t.Cleanup(func() { os.RemoveAll(dir) })
	return dir
}

func ackEntry(sub string, seq uint64, idx uint32, outcome Outcome) Entry {
	return Entry{
		Type:         EntryAck,
		TimestampMS:  1,
		SubscriberID: sub,
		Outcome:      outcome,
		SegmentSeq:   seq,
		BundleIndex:  idx,
	}
}

// TestRoundtrip is spec.md §8.1's ack log roundtrip invariant.
func TestRoundtrip(t *testing.T) {
	dir := newTestDir(t)
	w, err := OpenWriter(dir, WriterConfig{}, nil)
	require.NoError(t, err)

	entries := []Entry{
		{Type: EntryRegister, TimestampMS: 1, SubscriberID: "sub1"},
		ackEntry("sub1", 1, 0, OutcomeAcked),
		ackEntry("sub1", 1, 1, OutcomeDropped),
		{Type: EntryUnregister, TimestampMS: 2, SubscriberID: "sub1"},
	}
	for _, e := range entries {
		require.NoError(t, w.Append(e))
	}
	require.NoError(t, w.Close())

	got, err := ReadAll(dir)
	require.NoError(t, err)
	require.Equal(t, entries, got)
}

// TestCRCCorruption is spec.md §8.1's CRC invariant: flipping a single bit
// anywhere in an entry body must surface as a corruption error.
func TestCRCCorruption(t *testing.T) {
	dir := newTestDir(t)
	w, err := OpenWriter(dir, WriterConfig{}, nil)
	require.NoError(t, err)
	require.NoError(t, w.Append(ackEntry("sub1", 1, 0, OutcomeAcked)))
	require.NoError(t, w.Close())

	path := filepath.Join(dir, activeFileName)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	// Flip one bit well inside the entry body (past header + len + crc).
	data[int(HeaderSize)+9] ^= 0x01
	require.NoError(t, os.WriteFile(path, data, 0o644))

	_, err = ReadAll(dir)
	require.ErrorIs(t, err, ErrCorrupt)
}

// TestForwardCompatSkipsUnknownType is spec.md §8.1's forward-compat
// invariant: an unknown entry type does not error the reader.
func TestForwardCompatSkipsUnknownType(t *testing.T) {
	dir := newTestDir(t)
	w, err := OpenWriter(dir, WriterConfig{}, nil)
	require.NoError(t, err)

	unknown := Entry{Type: EntryType(99), TimestampMS: 5, SubscriberID: "sub1"}
	require.NoError(t, w.Append(unknown))
	require.NoError(t, w.Append(ackEntry("sub1", 1, 0, OutcomeAcked)))
	require.NoError(t, w.Close())

	got, err := ReadAll(dir)
	require.NoError(t, err)
	require.Len(t, got, 2)

	states := Fold(got)
	// The unknown entry must not have been applied to any state transition
	// beyond what Fold's default case (skip) does -- sub1 still only has
	// one outcome recorded, from the ack entry.
	require.Len(t, states["sub1"].Outcomes, 1)
}

// TestPartialTailTruncated verifies a torn final write is silently dropped
// rather than treated as corruption.
func TestPartialTailTruncated(t *testing.T) {
	dir := newTestDir(t)
	w, err := OpenWriter(dir, WriterConfig{}, nil)
	require.NoError(t, err)
	require.NoError(t, w.Append(ackEntry("sub1", 1, 0, OutcomeAcked)))
	require.NoError(t, w.Close())

	path := filepath.Join(dir, activeFileName)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, data[:len(data)-3], 0o644))

	got, err := ReadAll(dir)
	require.NoError(t, err)
	require.Len(t, got, 0)
}

// TestRotationAndPurge is spec.md §8.2 scenario 1: rotation_target_bytes=100,
// max_rotated_files=4, 30 entries referring to segments 1..=5 round-robin.
// A 20-byte subscriber id makes each entry 52 bytes on the wire, which rotates
// every 2 entries until the 4-rotated-file cap is hit, then appends to the
// ever-growing active file. With that grouping, exactly one rotated file
// (the first, segments {1,2}) has max_segment_seq < 3.
func TestRotationAndPurge(t *testing.T) {
	dir := newTestDir(t)
	w, err := OpenWriter(dir, WriterConfig{RotationTargetBytes: 100, MaxRotatedFiles: 4}, nil)
	require.NoError(t, err)

	subID := "aaaaaaaaaaaaaaaaaaaa" // 20 bytes
	var all []Entry
	for i := 0; i < 30; i++ {
		seq := uint64(i%5) + 1 // segments 1..=5
		e := ackEntry(subID, seq, uint32(i), OutcomeAcked)
		require.NoError(t, w.Append(e))
		all = append(all, e)
	}

	rotatedBefore, err := listRotatedFiles(dir)
	require.NoError(t, err)
	require.Len(t, rotatedBefore, 4)

	require.NoError(t, w.PurgeBefore(3))

	rotatedAfter, err := listRotatedFiles(dir)
	require.NoError(t, err)
	require.Len(t, rotatedAfter, 3)

	want := all[2:]
	got, err := ReadAll(dir)
	require.NoError(t, err)
	require.Equal(t, want, got)
}

func TestEmptySubscriberIDRejected(t *testing.T) {
	dir := newTestDir(t)
	w, err := OpenWriter(dir, WriterConfig{}, nil)
	require.NoError(t, err)
	err = w.Append(Entry{Type: EntryRegister})
	require.ErrorIs(t, err, ErrEmptySubscriberID)
}
