package snapshot

import (
	"encoding/binary"
	"fmt"

	"github.com/pierrec/lz4"
	"github.com/ugorji/go/codec"
)

var cborHandle codec.CborHandle

// Format tags for the stored payload. Incompressible payloads are
// stored raw: lz4 reports those with a zero compressed size.
const (
	formatRaw byte = iota
	formatLZ4
)

// encode serializes v as CBOR and lz4-compresses the result. The
// payload is prefixed with a format tag and the uncompressed length so
// decode can allocate exactly.
func encode(v interface{}) ([]byte, error) {
	var raw []byte
	if err := codec.NewEncoderBytes(&raw, &cborHandle).Encode(v); err != nil {
		return nil, fmt.Errorf("encode snapshot: %w", err)
	}

	compressed := make([]byte, lz4.CompressBlockBound(len(raw)))
	n, err := lz4.CompressBlock(raw, compressed, nil)
	if err != nil {
		return nil, fmt.Errorf("compress snapshot: %w", err)
	}

	payload := compressed[:n]
	format := formatLZ4
	if n == 0 || n >= len(raw) {
		payload = raw
		format = formatRaw
	}

	out := make([]byte, 5+len(payload))
	out[0] = format
	binary.BigEndian.PutUint32(out[1:], uint32(len(raw)))
	copy(out[5:], payload)
	return out, nil
}

// decode reverses encode.
func decode(data []byte, v interface{}) error {
	if len(data) < 5 {
		return fmt.Errorf("snapshot truncated: %d bytes", len(data))
	}
	format := data[0]
	rawLen := binary.BigEndian.Uint32(data[1:])
	payload := data[5:]

	var raw []byte
	switch format {
	case formatRaw:
		raw = payload
	case formatLZ4:
		raw = make([]byte, rawLen)
		n, err := lz4.UncompressBlock(payload, raw)
		if err != nil {
			return fmt.Errorf("decompress snapshot: %w", err)
		}
		if uint32(n) != rawLen {
			return fmt.Errorf("decompress snapshot: got %d bytes, header says %d", n, rawLen)
		}
	default:
		return fmt.Errorf("unknown snapshot format %d", format)
	}

	if err := codec.NewDecoderBytes(raw, &cborHandle).Decode(v); err != nil {
		return fmt.Errorf("decode snapshot: %w", err)
	}
	return nil
}
