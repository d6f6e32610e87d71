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
	"io"
	"os"
	"path/filepath"
	"strconv"
	"sync"

	"go.uber.org/zap"

	"github.com/open-telemetry/otap-dataflow/pkg/werror"
)

// WriterConfig controls rotation behavior. Zero-value RotationTargetBytes
// means never rotate; zero-value MaxRotatedFiles means the number of
// rotated files is not limited (rotation is never skipped).
type WriterConfig struct {
	RotationTargetBytes uint64
	MaxRotatedFiles     int
}

// Writer is the durable, append-only, rotating ack log writer described in
// spec §4.5. One Writer owns one subscriber directory; it is not safe for
// concurrent use from multiple goroutines without external synchronization,
// matching the single-writer assumption of the append-only design.
type Writer struct {
	mu     sync.Mutex
	dir    string
	cfg    WriterConfig
	logger *zap.Logger

	active         *os.File
	activeSize     uint64
	nextRotationID int
}

// OpenWriter opens (or creates) the active ack log file in dir, which must
// already exist as the subscriber directory for one core (see §6.2). If an
// active file already exists its header is validated but its prior contents
// are left untouched -- new entries are appended.
func OpenWriter(dir string, cfg WriterConfig, logger *zap.Logger) (*Writer, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	rotated, err := listRotatedFiles(dir)
	if err != nil {
		return nil, err
	}
	nextID := 1
	for _, f := range rotated {
		if f.id >= nextID {
			nextID = f.id + 1
		}
	}

	path := filepath.Join(dir, activeFileName)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return nil, werror.Wrap(err)
	}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, werror.Wrap(err)
	}

	w := &Writer{
		dir:            dir,
		cfg:            cfg,
		logger:         logger,
		active:         f,
		nextRotationID: nextID,
	}

	if info.Size() == 0 {
		if err := w.writeHeader(); err != nil {
			f.Close()
			return nil, err
		}
	} else {
		header := make([]byte, HeaderSize)
		if _, err := f.ReadAt(header, 0); err != nil {
			f.Close()
			return nil, werror.Wrap(err)
		}
		if err := decodeHeader(header); err != nil {
			f.Close()
			return nil, err
		}
		w.activeSize = uint64(info.Size())
	}

	if _, err := f.Seek(0, io.SeekEnd); err != nil {
		f.Close()
		return nil, werror.Wrap(err)
	}

	return w, nil
}

func (w *Writer) writeHeader() error {
	h := encodeHeader()
	if _, err := w.active.Write(h); err != nil {
		return werror.Wrap(err)
	}
	if err := w.active.Sync(); err != nil {
		return werror.Wrap(err)
	}
	w.activeSize = uint64(len(h))
	return nil
}

// Append encodes entry and writes it to the active file, fsyncing before
// returning -- the durability guarantee every other invariant in §4.5
// builds on. Rotation is considered first: if the active file already
// exceeds RotationTargetBytes and fewer than MaxRotatedFiles rotated files
// exist, the active file is rotated out before the new entry is written.
func (w *Writer) Append(entry Entry) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	encoded, err := entry.encode(nil)
	if err != nil {
		return err
	}

	if w.cfg.RotationTargetBytes > 0 && w.activeSize > uint64(HeaderSize) &&
		w.activeSize >= w.cfg.RotationTargetBytes {
		if err := w.rotateLocked(); err != nil {
			return err
		}
	}

	if _, err := w.active.Write(encoded); err != nil {
		return werror.Wrap(err)
	}
	if err := w.active.Sync(); err != nil {
		return werror.Wrap(err)
	}
	w.activeSize += uint64(len(encoded))
	return nil
}

// rotateLocked renames the active file to quiver.ack.N and opens a fresh
// active file. Called with w.mu held. If MaxRotatedFiles has already been
// reached, rotation is skipped silently -- the active file keeps growing
// until the operator purges more aggressively, per §4.5.
func (w *Writer) rotateLocked() error {
	rotated, err := listRotatedFiles(w.dir)
	if err != nil {
		return err
	}
	if w.cfg.MaxRotatedFiles > 0 && len(rotated) >= w.cfg.MaxRotatedFiles {
		w.logger.Warn("acklog: rotation skipped, max_rotated_files reached",
			zap.Int("max_rotated_files", w.cfg.MaxRotatedFiles))
		return nil
	}

	if err := w.active.Close(); err != nil {
		return werror.Wrap(err)
	}

	activePath := filepath.Join(w.dir, activeFileName)
	rotatedPath := filepath.Join(w.dir, rotatedName(w.nextRotationID))
	if err := os.Rename(activePath, rotatedPath); err != nil {
		return werror.Wrap(err)
	}
	w.nextRotationID++

	f, err := os.OpenFile(activePath, os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return werror.Wrap(err)
	}
	w.active = f
	return w.writeHeader()
}

func rotatedName(id int) string {
	return activeFileName + "." + strconv.Itoa(id)
}

// Close closes the active file without rotating it.
func (w *Writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.active.Close()
}
