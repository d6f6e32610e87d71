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

// Segment and WAL files use the same length-prefixed, CRC32C-checked entry
// framing as pkg/acklog (see that package's format.go): a segment is "the
// same kind of file" as an ack log, holding bundle records instead of ack
// outcomes.
//
//	Entry: len (4 LE) | crc32c (4 LE) | bundle_index (4 LE) | payload

import (
	"bytes"
	"encoding/binary"
	"errors"
	"hash/crc32"
	"io"
)

var crcTable = crc32.MakeTable(crc32.Castagnoli)

// ErrCorruptSegment is returned by a segment reader on a mid-file CRC
// mismatch, mirroring pkg/acklog's fatal-corruption behavior.
var ErrCorruptSegment = errors.New("engine: corrupt segment entry")

type segmentEntry struct {
	BundleIndex uint32
	Payload     []byte
}

func (e segmentEntry) encode() []byte {
	var body bytes.Buffer
	writeUint32(&body, e.BundleIndex)
	body.Write(e.Payload)

	sum := crc32.Checksum(body.Bytes(), crcTable)

	var out bytes.Buffer
	writeUint32(&out, uint32(body.Len()))
	writeUint32(&out, sum)
	out.Write(body.Bytes())
	return out.Bytes()
}

// readSegmentEntry reads one framed entry from r. It returns io.EOF when no
// more complete entries remain (including a truncated trailing entry,
// which is silently dropped per the same forward/partial-tail tolerance as
// pkg/acklog).
func readSegmentEntry(r io.Reader) (segmentEntry, error) {
	lenBuf := make([]byte, 4)
	if _, err := io.ReadFull(r, lenBuf); err != nil {
		return segmentEntry{}, io.EOF
	}
	length := binary.LittleEndian.Uint32(lenBuf)

	crcBuf := make([]byte, 4)
	if _, err := io.ReadFull(r, crcBuf); err != nil {
		return segmentEntry{}, io.EOF
	}
	wantCRC := binary.LittleEndian.Uint32(crcBuf)

	body := make([]byte, length)
	if _, err := io.ReadFull(r, body); err != nil {
		return segmentEntry{}, io.EOF
	}

	if crc32.Checksum(body, crcTable) != wantCRC {
		return segmentEntry{}, ErrCorruptSegment
	}

	idx := binary.LittleEndian.Uint32(body[:4])
	return segmentEntry{BundleIndex: idx, Payload: body[4:]}, nil
}

func writeUint32(buf *bytes.Buffer, v uint32) {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	buf.Write(b[:])
}

func readUint32(r io.Reader) (uint32, error) {
	var b [4]byte
	if _, err := io.ReadFull(r, b[:]); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b[:]), nil
}

func readFull(r io.Reader, buf []byte) (int, error) {
	return io.ReadFull(r, buf)
}
