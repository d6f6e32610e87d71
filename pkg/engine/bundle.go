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
	"bytes"

	"github.com/apache/arrow/go/v12/arrow"
	"github.com/apache/arrow/go/v12/arrow/ipc"
	"github.com/apache/arrow/go/v12/arrow/memory"

	"github.com/open-telemetry/otap-dataflow/pkg/otap"
)

// Bundle is one unit of WAL-durable data, per spec §3.4/§4.6. It is either
// an Arrow-encoded TelemetryPayload (queryable mode) or a verbatim
// ProtocolBytes blob (pass-through mode).
type Bundle struct {
	Signal otap.SignalType

	// Payload is set for an Arrow-encoded bundle.
	Payload *otap.TelemetryPayload

	// RawBytes is set for a pass-through ProtocolBytes bundle.
	RawBytes []byte
}

// NumRows counts items cheaply for telemetry, per spec §4.6 step 3: a
// ProtocolBytes bundle counts as one item since it has not been parsed.
func (b *Bundle) NumRows() int64 {
	if b.Payload != nil {
		return b.Payload.RowCount()
	}
	return 1
}

// encodeBundle serializes a Bundle to bytes for framing into a segment
// entry. Arrow records are each written as an independent IPC stream
// (grounded on pkg/otel/batch_event/producer.go's stream-per-record
// idiom), length-prefixed so multiple tables can be concatenated in one
// entry; ProtocolBytes bundles are stored verbatim behind a marker byte.
func encodeBundle(b *Bundle) ([]byte, error) {
	var buf bytes.Buffer
	if b.RawBytes != nil {
		buf.WriteByte(bundleKindRawBytes)
		writeUint32(&buf, uint32(b.Signal))
		writeUint32(&buf, uint32(len(b.RawBytes)))
		buf.Write(b.RawBytes)
		return buf.Bytes(), nil
	}

	buf.WriteByte(bundleKindArrow)
	writeUint32(&buf, uint32(b.Signal))
	writeUint32(&buf, uint32(len(b.Payload.Records)))
	for pt, rec := range b.Payload.Records {
		writeUint32(&buf, uint32(pt))
		var streamBuf bytes.Buffer
		w := ipc.NewWriter(&streamBuf, ipc.WithSchema(rec.Schema()))
		if err := w.Write(rec); err != nil {
			return nil, err
		}
		if err := w.Close(); err != nil {
			return nil, err
		}
		writeUint32(&buf, uint32(streamBuf.Len()))
		buf.Write(streamBuf.Bytes())
	}
	return buf.Bytes(), nil
}

const (
	bundleKindArrow    = 0
	bundleKindRawBytes = 1
)

// decodeBundle reverses encodeBundle. alloc is the Arrow allocator used to
// read back IPC streams.
func decodeBundle(data []byte, alloc memory.Allocator) (*Bundle, error) {
	r := bytes.NewReader(data)
	kind, err := r.ReadByte()
	if err != nil {
		return nil, err
	}
	signal, err := readUint32(r)
	if err != nil {
		return nil, err
	}

	switch kind {
	case bundleKindRawBytes:
		n, err := readUint32(r)
		if err != nil {
			return nil, err
		}
		raw := make([]byte, n)
		if _, err := readFull(r, raw); err != nil {
			return nil, err
		}
		return &Bundle{Signal: otap.SignalType(signal), RawBytes: raw}, nil

	case bundleKindArrow:
		count, err := readUint32(r)
		if err != nil {
			return nil, err
		}
		records := make(map[otap.PayloadType]arrow.Record, count)
		for i := uint32(0); i < count; i++ {
			pt, err := readUint32(r)
			if err != nil {
				return nil, err
			}
			n, err := readUint32(r)
			if err != nil {
				return nil, err
			}
			streamBytes := make([]byte, n)
			if _, err := readFull(r, streamBytes); err != nil {
				return nil, err
			}
			ipcReader, err := ipc.NewReader(bytes.NewReader(streamBytes), ipc.WithAllocator(alloc))
			if err != nil {
				return nil, err
			}
			if !ipcReader.Next() {
				ipcReader.Release()
				continue
			}
			rec := ipcReader.Record()
			rec.Retain()
			records[otap.PayloadType(pt)] = rec
			ipcReader.Release()
		}
		return &Bundle{
			Signal:  otap.SignalType(signal),
			Payload: &otap.TelemetryPayload{Signal: otap.SignalType(signal), Records: records},
		}, nil

	default:
		return nil, ErrBundleNotFound
	}
}
