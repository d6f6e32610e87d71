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
	"encoding/binary"
	"hash/crc32"
	"os"
	"path/filepath"

	"github.com/open-telemetry/otap-dataflow/pkg/werror"
)

// ReadAll replays dir's entire ack log -- every rotated file in rotation-id
// order, then the active file -- and returns every entry in file order,
// including entries of an unknown type (the caller's fold decides whether
// to apply or skip those; see Fold). A corrupt entry body (CRC mismatch) on
// any complete entry, including the last one, is a fatal error; a partial
// entry at the very end of a file is silently truncated.
func ReadAll(dir string) ([]Entry, error) {
	rotated, err := listRotatedFiles(dir)
	if err != nil {
		return nil, err
	}

	var all []Entry
	for _, f := range rotated {
		entries, _, err := readEntriesFromFile(f.path)
		if err != nil {
			return nil, err
		}
		all = append(all, entries...)
	}

	activePath := filepath.Join(dir, activeFileName)
	if _, err := os.Stat(activePath); err == nil {
		entries, _, err := readEntriesFromFile(activePath)
		if err != nil {
			return nil, err
		}
		all = append(all, entries...)
	} else if !os.IsNotExist(err) {
		return nil, werror.Wrap(err)
	}

	return all, nil
}

// readEntriesFromFile decodes every entry in path and also returns the
// maximum SegmentSeq referenced by any EntryAck in the file, which rotation
// purge decisions key on.
func readEntriesFromFile(path string) ([]Entry, uint64, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, 0, werror.Wrap(err)
	}

	if len(data) < int(HeaderSize) {
		// A header that never finished writing is the same as an empty
		// file: nothing to replay.
		return nil, 0, nil
	}
	if err := decodeHeader(data[:HeaderSize]); err != nil {
		return nil, 0, err
	}
	// Entries start after the header length the file itself declares, so
	// header fields added by a newer writer are skipped.
	hdrLen := int(binary.LittleEndian.Uint16(data[10:12]))
	if hdrLen < int(HeaderSize) {
		return nil, 0, werror.WrapWithMsg(ErrCorrupt, "acklog: header_size smaller than fixed header")
	}
	if len(data) < hdrLen {
		return nil, 0, nil
	}

	var entries []Entry
	var maxSeq uint64
	buf := data[hdrLen:]
	for len(buf) > 0 {
		if len(buf) < 4 {
			break // partial tail: truncated silently
		}
		entryLen := binary.LittleEndian.Uint32(buf[0:4])
		if entryLen < 4 || uint64(len(buf)-4) < uint64(entryLen) {
			break // partial tail: truncated silently
		}
		rest := buf[4 : 4+entryLen]
		crc := binary.LittleEndian.Uint32(rest[0:4])
		body := rest[4:]
		if crc32.Checksum(body, crcTable) != crc {
			return nil, 0, ErrCorrupt
		}

		e, err := decodeEntry(body)
		if err != nil {
			return nil, 0, err
		}
		entries = append(entries, e)
		if e.Type == EntryAck && e.SegmentSeq > maxSeq {
			maxSeq = e.SegmentSeq
		}

		buf = buf[4+entryLen:]
	}

	return entries, maxSeq, nil
}
