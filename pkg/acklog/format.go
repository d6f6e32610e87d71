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
	"bytes"
	"encoding/binary"
	"hash/crc32"

	"github.com/open-telemetry/otap-dataflow/pkg/werror"
)

// Magic identifies an ack log file. Version 1, little-endian throughout.
var Magic = [8]byte{'Q', 'U', 'I', 'V', 'E', 'R', 0, 'A'}

const (
	// Version is the only header version this writer emits and this reader
	// understands.
	Version = uint16(1)
	// HeaderSize is the byte length of the fixed header: magic(8) +
	// version(2) + header_size(2).
	HeaderSize = uint16(12)
)

// EntryType identifies the kind of a logged event. Unknown values are
// skipped by the reader for forward compatibility -- a future writer may
// introduce new types this reader has never heard of.
type EntryType uint8

const (
	EntryAck        EntryType = 0
	EntryRegister   EntryType = 1
	EntryUnregister EntryType = 2
)

// Outcome is the terminal disposition recorded by an EntryAck.
type Outcome uint8

const (
	OutcomeAcked   Outcome = 0
	OutcomeDropped Outcome = 1
)

var crcTable = crc32.MakeTable(crc32.Castagnoli)

// Entry is one logged event: a subscriber lifecycle change or bundle
// delivery outcome. SubscriberID, TimestampMS and Type are common to every
// entry; the ack-specific fields are zero for register/unregister entries.
type Entry struct {
	Type         EntryType
	Flags        uint8
	TimestampMS  int64
	SubscriberID string

	// Ack-only payload (Type == EntryAck).
	Outcome      Outcome
	SegmentSeq   uint64
	BundleIndex  uint32
}

// encode appends e's on-the-wire form (len | crc32c | body) to dst and
// returns the result.
func (e Entry) encode(dst []byte) ([]byte, error) {
	if len(e.SubscriberID) == 0 {
		return nil, ErrEmptySubscriberID
	}
	if len(e.SubscriberID) > 255 {
		return nil, ErrSubscriberIDTooLong
	}

	var body bytes.Buffer
	body.WriteByte(byte(e.Type))
	body.WriteByte(e.Flags)
	var ts [8]byte
	binary.LittleEndian.PutUint64(ts[:], uint64(e.TimestampMS))
	body.Write(ts[:])
	body.WriteByte(byte(len(e.SubscriberID)))
	body.WriteString(e.SubscriberID)

	if e.Type == EntryAck {
		body.WriteByte(byte(e.Outcome))
		var seq [8]byte
		binary.LittleEndian.PutUint64(seq[:], e.SegmentSeq)
		body.Write(seq[:])
		var idx [4]byte
		binary.LittleEndian.PutUint32(idx[:], e.BundleIndex)
		body.Write(idx[:])
	}

	bodyBytes := body.Bytes()
	crc := crc32.Checksum(bodyBytes, crcTable)

	var lenCRC [8]byte
	binary.LittleEndian.PutUint32(lenCRC[0:4], uint32(4+len(bodyBytes)))
	binary.LittleEndian.PutUint32(lenCRC[4:8], crc)

	dst = append(dst, lenCRC[:]...)
	dst = append(dst, bodyBytes...)
	return dst, nil
}

// decodeEntry parses one entry's body (the bytes after the len and crc32c
// fields -- the caller has already verified the CRC). Unknown entry types
// decode successfully with only the common fields populated; the caller
// decides whether to apply or skip them.
func decodeEntry(body []byte) (Entry, error) {
	if len(body) < 11 {
		return Entry{}, werror.WrapWithMsg(ErrCorrupt, "acklog: entry body too short")
	}
	e := Entry{
		Type:        EntryType(body[0]),
		Flags:       body[1],
		TimestampMS: int64(binary.LittleEndian.Uint64(body[2:10])),
	}
	subIDLen := int(body[10])
	if len(body) < 11+subIDLen {
		return Entry{}, werror.WrapWithMsg(ErrCorrupt, "acklog: truncated subscriber id")
	}
	e.SubscriberID = string(body[11 : 11+subIDLen])
	rest := body[11+subIDLen:]

	if e.Type == EntryAck {
		if len(rest) < 13 {
			return Entry{}, werror.WrapWithMsg(ErrCorrupt, "acklog: truncated ack payload")
		}
		e.Outcome = Outcome(rest[0])
		e.SegmentSeq = binary.LittleEndian.Uint64(rest[1:9])
		e.BundleIndex = binary.LittleEndian.Uint32(rest[9:13])
	}
	// Trailing bytes past a known payload, or the whole payload for an
	// unknown type, are ignored per the forward-compatibility rule.
	return e, nil
}

func encodeHeader() []byte {
	h := make([]byte, HeaderSize)
	copy(h[0:8], Magic[:])
	binary.LittleEndian.PutUint16(h[8:10], Version)
	binary.LittleEndian.PutUint16(h[10:12], HeaderSize)
	return h
}

func decodeHeader(h []byte) error {
	if len(h) < 12 || !bytes.Equal(h[0:8], Magic[:]) {
		return ErrBadMagic
	}
	version := binary.LittleEndian.Uint16(h[8:10])
	if version > Version {
		return ErrUnsupportedVersion
	}
	return nil
}
