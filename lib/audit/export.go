// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package audit

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"

	"github.com/bureau-foundation/ap2/lib/codec"
	"github.com/bureau-foundation/ap2/lib/mandate"
)

// Compression selects how an export body is compressed. The values are
// written into the export header.
type Compression uint8

const (
	CompressionNone Compression = 0
	CompressionLZ4  Compression = 1
	CompressionZstd Compression = 2
)

func (c Compression) String() string {
	switch c {
	case CompressionNone:
		return "none"
	case CompressionLZ4:
		return "lz4"
	case CompressionZstd:
		return "zstd"
	default:
		return fmt.Sprintf("unknown(%d)", c)
	}
}

// ParseCompression parses "none", "lz4", or "zstd".
func ParseCompression(name string) (Compression, error) {
	switch name {
	case "none":
		return CompressionNone, nil
	case "lz4":
		return CompressionLZ4, nil
	case "zstd":
		return CompressionZstd, nil
	default:
		return 0, fmt.Errorf("unknown compression %q", name)
	}
}

// Export header: magic, version, compression, uncompressed length.
var exportMagic = [4]byte{'A', 'P', '2', 'A'}

const (
	exportVersion    = 1
	exportHeaderSize = 4 + 1 + 1 + 8

	// maxExportSize bounds the uncompressed body accepted by Import.
	maxExportSize = 256 << 20
)

var errIncompressible = errors.New("data is incompressible")

var (
	zstdEncoder *zstd.Encoder
	zstdDecoder *zstd.Decoder
)

func init() {
	var err error
	zstdEncoder, err = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		panic("audit: zstd encoder initialization failed: " + err.Error())
	}
	zstdDecoder, err = zstd.NewReader(nil)
	if err != nil {
		panic("audit: zstd decoder initialization failed: " + err.Error())
	}
}

// Export writes entries to w as a CBOR array behind a small header.
// When the requested compression does not shrink the body it is
// stored uncompressed and the header says so.
func Export(w io.Writer, entries []mandate.AuditEntry, compression Compression) error {
	if entries == nil {
		entries = []mandate.AuditEntry{}
	}
	body, err := codec.Marshal(entries)
	if err != nil {
		return fmt.Errorf("audit: encoding entries: %w", err)
	}

	stored, tag, err := compress(body, compression)
	if err != nil {
		return err
	}

	var header [exportHeaderSize]byte
	copy(header[:4], exportMagic[:])
	header[4] = exportVersion
	header[5] = byte(tag)
	binary.BigEndian.PutUint64(header[6:], uint64(len(body)))

	if _, err := w.Write(header[:]); err != nil {
		return fmt.Errorf("audit: writing header: %w", err)
	}
	if _, err := w.Write(stored); err != nil {
		return fmt.Errorf("audit: writing body: %w", err)
	}
	return nil
}

// Import reads an export produced by Export.
func Import(r io.Reader) ([]mandate.AuditEntry, Compression, error) {
	var header [exportHeaderSize]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		return nil, 0, fmt.Errorf("audit: reading header: %w", err)
	}
	if !bytes.Equal(header[:4], exportMagic[:]) {
		return nil, 0, fmt.Errorf("audit: not an audit export")
	}
	if header[4] != exportVersion {
		return nil, 0, fmt.Errorf("audit: unsupported export version %d", header[4])
	}
	tag := Compression(header[5])
	size := binary.BigEndian.Uint64(header[6:])
	if size > maxExportSize {
		return nil, 0, fmt.Errorf("audit: export body of %d bytes exceeds limit", size)
	}

	stored, err := io.ReadAll(io.LimitReader(r, maxExportSize))
	if err != nil {
		return nil, 0, fmt.Errorf("audit: reading body: %w", err)
	}
	body, err := decompress(stored, tag, int(size))
	if err != nil {
		return nil, 0, err
	}

	var entries []mandate.AuditEntry
	if err := codec.Unmarshal(body, &entries); err != nil {
		return nil, 0, fmt.Errorf("audit: decoding entries: %w", err)
	}
	return entries, tag, nil
}

func compress(body []byte, compression Compression) ([]byte, Compression, error) {
	var (
		stored []byte
		err    error
	)
	switch compression {
	case CompressionNone:
		return body, CompressionNone, nil
	case CompressionLZ4:
		stored, err = compressLZ4(body)
	case CompressionZstd:
		stored = zstdEncoder.EncodeAll(body, nil)
		if len(stored) >= len(body) {
			err = errIncompressible
		}
	default:
		return nil, 0, fmt.Errorf("audit: unsupported compression %s", compression)
	}
	if errors.Is(err, errIncompressible) {
		return body, CompressionNone, nil
	}
	if err != nil {
		return nil, 0, err
	}
	return stored, compression, nil
}

func compressLZ4(data []byte) ([]byte, error) {
	destination := make([]byte, lz4.CompressBlockBound(len(data)))
	written, err := lz4.CompressBlock(data, destination, nil)
	if err != nil {
		return nil, fmt.Errorf("audit: lz4 compress: %w", err)
	}
	if written == 0 || written >= len(data) {
		return nil, errIncompressible
	}
	return destination[:written], nil
}

func decompress(stored []byte, tag Compression, size int) ([]byte, error) {
	switch tag {
	case CompressionNone:
		if len(stored) != size {
			return nil, fmt.Errorf("audit: body is %d bytes, header says %d", len(stored), size)
		}
		return stored, nil
	case CompressionLZ4:
		destination := make([]byte, size)
		read, err := lz4.UncompressBlock(stored, destination)
		if err != nil {
			return nil, fmt.Errorf("audit: lz4 decompress: %w", err)
		}
		if read != size {
			return nil, fmt.Errorf("audit: lz4 decompress: got %d bytes, expected %d", read, size)
		}
		return destination, nil
	case CompressionZstd:
		body, err := zstdDecoder.DecodeAll(stored, make([]byte, 0, size))
		if err != nil {
			return nil, fmt.Errorf("audit: zstd decompress: %w", err)
		}
		if len(body) != size {
			return nil, fmt.Errorf("audit: zstd decompress: got %d bytes, expected %d", len(body), size)
		}
		return body, nil
	default:
		return nil, fmt.Errorf("audit: unsupported compression %s", tag)
	}
}
