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
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
)

const walFileName = "wal.active"

var segmentFileRE = regexp.MustCompile(`^segment-(\d+)\.bin$`)

func segmentFileName(seq uint64) string {
	return fmt.Sprintf("segment-%d.bin", seq)
}

// segmentInfo describes one finalized, on-disk segment.
type segmentInfo struct {
	Seq       uint64
	Path      string
	Size      int64
	NumBundle int
}

// listSegments scans segmentsDir for finalized segment files, ascending by
// sequence number.
func listSegments(segmentsDir string) ([]segmentInfo, error) {
	entries, err := os.ReadDir(segmentsDir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var out []segmentInfo
	for _, e := range entries {
		m := segmentFileRE.FindStringSubmatch(e.Name())
		if m == nil {
			continue
		}
		seq, err := strconv.ParseUint(m[1], 10, 64)
		if err != nil {
			continue
		}
		path := filepath.Join(segmentsDir, e.Name())
		info, err := e.Info()
		if err != nil {
			return nil, err
		}
		n, err := countSegmentEntries(path)
		if err != nil {
			return nil, err
		}
		out = append(out, segmentInfo{Seq: seq, Path: path, Size: info.Size(), NumBundle: n})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Seq < out[j].Seq })
	return out, nil
}

func countSegmentEntries(path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	n := 0
	for {
		_, err := readSegmentEntry(f)
		if err == io.EOF {
			break
		}
		if err != nil {
			return 0, err
		}
		n++
	}
	return n, nil
}

// readSegmentBundle reads the payload bytes for one bundle index from a
// finalized segment file by scanning from the start. Segments are small
// (the WAL is finalized once it reaches WALMaxBytes) so a linear scan is
// adequate; there is no
// separate offset index.
func readSegmentBundle(path string, bundleIndex uint32) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	for {
		e, err := readSegmentEntry(f)
		if err == io.EOF {
			return nil, ErrBundleNotFound
		}
		if err != nil {
			return nil, err
		}
		if e.BundleIndex == bundleIndex {
			return e.Payload, nil
		}
	}
}

// walWriter is the currently-open (not yet finalized) segment: the active
// WAL file bundles are appended to until Flush finalizes it.
type walWriter struct {
	file      *os.File
	size      uint64
	nextIndex uint32
	// openedAt is the unix-nanos timestamp this WAL was opened or last
	// rotated, passed in by the engine (which owns the clock) rather than
	// read here, so age-based finalization is deterministic under test.
	openedAt int64
}

func openWAL(dir string, now int64) (*walWriter, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	path := filepath.Join(dir, walFileName)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return nil, err
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, err
	}
	nextIndex, err := countEntriesFrom(f)
	if err != nil {
		f.Close()
		return nil, err
	}
	if _, err := f.Seek(0, io.SeekEnd); err != nil {
		f.Close()
		return nil, err
	}
	return &walWriter{file: f, size: uint64(info.Size()), nextIndex: uint32(nextIndex), openedAt: now}, nil
}

func countEntriesFrom(f *os.File) (int, error) {
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return 0, err
	}
	n := 0
	for {
		_, err := readSegmentEntry(f)
		if err == io.EOF {
			break
		}
		if err != nil {
			return 0, err
		}
		n++
	}
	return n, nil
}

// append writes payload as the next bundle in this WAL, fsyncs, and returns
// its assigned bundle index.
func (w *walWriter) append(payload []byte) (uint32, error) {
	idx := w.nextIndex
	entry := segmentEntry{BundleIndex: idx, Payload: payload}
	buf := entry.encode()
	if _, err := w.file.Write(buf); err != nil {
		return 0, err
	}
	if err := w.file.Sync(); err != nil {
		return 0, err
	}
	w.size += uint64(len(buf))
	w.nextIndex++
	return idx, nil
}

func (w *walWriter) close() error {
	return w.file.Close()
}

// finalize closes the WAL file, renames it into segmentsDir under seq, and
// returns its final size. Grounded on lumberjack's rename-to-rotate
// lifecycle (gopkg.in/natefinch/lumberjack.v2), applied here to segment
// finalization rather than log rotation — see DESIGN.md.
func (w *walWriter) finalize(segmentsDir string, seq uint64) (segmentInfo, error) {
	if err := w.file.Sync(); err != nil {
		return segmentInfo{}, err
	}
	path := w.file.Name()
	if err := w.file.Close(); err != nil {
		return segmentInfo{}, err
	}
	if err := os.MkdirAll(segmentsDir, 0o755); err != nil {
		return segmentInfo{}, err
	}
	dst := filepath.Join(segmentsDir, segmentFileName(seq))
	if err := os.Rename(path, dst); err != nil {
		return segmentInfo{}, err
	}
	return segmentInfo{Seq: seq, Path: dst, Size: int64(w.size), NumBundle: int(w.nextIndex)}, nil
}
