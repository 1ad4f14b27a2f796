package format

import (
	"bytes"
	"fmt"
	"io"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/s2"
	"github.com/klauspost/compress/zstd"
)

// Compression identifies the compression transform applied to an encoded block.
type Compression uint8

const (
	// CompressionNone indicates no compression (default).
	CompressionNone Compression = 0

	// CompressionGzip indicates GZIP compression.
	CompressionGzip Compression = 1

	// CompressionZstd indicates Zstandard compression.
	CompressionZstd Compression = 2

	// CompressionS2 indicates S2 (Snappy-compatible) compression.
	CompressionS2 Compression = 3
)

// MaxDecompressedSize is the maximum size allowed for a decompressed block,
// guarding against decompression bombs.
const MaxDecompressedSize = 100 * 1024 * 1024 // 100 MB

// String returns the string representation of the compression type.
func (c Compression) String() string {
	switch c {
	case CompressionNone:
		return "none"
	case CompressionGzip:
		return "gzip"
	case CompressionZstd:
		return "zstd"
	case CompressionS2:
		return "s2"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(c))
	}
}

// ParseCompression maps a codec name to its Compression value.
func ParseCompression(name string) (Compression, error) {
	switch name {
	case "", "none":
		return CompressionNone, nil
	case "gzip":
		return CompressionGzip, nil
	case "zstd":
		return CompressionZstd, nil
	case "s2":
		return CompressionS2, nil
	default:
		return CompressionNone, fmt.Errorf("unknown compression codec: %q", name)
	}
}

// Compress applies the given compression transform to payload.
// level is codec-specific; 0 selects the codec's default.
func Compress(payload []byte, compression Compression, level int) ([]byte, error) {
	switch compression {
	case CompressionNone:
		return payload, nil
	case CompressionGzip:
		return compressGzip(payload, level)
	case CompressionZstd:
		return compressZstd(payload, level)
	case CompressionS2:
		return s2.Encode(nil, payload), nil
	default:
		return nil, fmt.Errorf("unsupported compression type: %s", compression)
	}
}

// Decompress reverses the given compression transform.
func Decompress(payload []byte, compression Compression) ([]byte, error) {
	switch compression {
	case CompressionNone:
		return payload, nil
	case CompressionGzip:
		return decompressGzip(payload)
	case CompressionZstd:
		return decompressZstd(payload)
	case CompressionS2:
		return decompressS2(payload)
	default:
		return nil, fmt.Errorf("unsupported compression type: %s", compression)
	}
}

func compressGzip(payload []byte, level int) ([]byte, error) {
	if level == 0 {
		level = gzip.DefaultCompression
	}
	if level < gzip.HuffmanOnly || level > gzip.BestCompression {
		return nil, fmt.Errorf("invalid gzip compression level: %d", level)
	}

	var buf bytes.Buffer
	w, err := gzip.NewWriterLevel(&buf, level)
	if err != nil {
		return nil, fmt.Errorf("failed to create gzip writer: %w", err)
	}
	if _, err := w.Write(payload); err != nil {
		_ = w.Close()
		return nil, fmt.Errorf("failed to compress payload: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("failed to close gzip writer: %w", err)
	}
	return buf.Bytes(), nil
}

func decompressGzip(payload []byte) ([]byte, error) {
	r, err := gzip.NewReader(bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create gzip reader: %w", err)
	}
	defer func() { _ = r.Close() }()

	var buf bytes.Buffer
	n, err := io.Copy(&buf, io.LimitReader(r, MaxDecompressedSize+1))
	if err != nil {
		return nil, fmt.Errorf("failed to decompress payload: %w", err)
	}
	if n > MaxDecompressedSize {
		return nil, fmt.Errorf("decompressed payload exceeds maximum size of %d bytes", MaxDecompressedSize)
	}
	return buf.Bytes(), nil
}

func compressZstd(payload []byte, level int) ([]byte, error) {
	encLevel := zstd.SpeedDefault
	if level != 0 {
		encLevel = zstd.EncoderLevelFromZstd(level)
	}
	enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(encLevel))
	if err != nil {
		return nil, fmt.Errorf("failed to create zstd encoder: %w", err)
	}
	out := enc.EncodeAll(payload, nil)
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("failed to close zstd encoder: %w", err)
	}
	return out, nil
}

func decompressZstd(payload []byte) ([]byte, error) {
	dec, err := zstd.NewReader(nil, zstd.WithDecoderMaxMemory(MaxDecompressedSize))
	if err != nil {
		return nil, fmt.Errorf("failed to create zstd decoder: %w", err)
	}
	defer dec.Close()

	out, err := dec.DecodeAll(payload, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to decompress payload: %w", err)
	}
	return out, nil
}

func decompressS2(payload []byte) ([]byte, error) {
	n, err := s2.DecodedLen(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to read s2 length: %w", err)
	}
	if n > MaxDecompressedSize {
		return nil, fmt.Errorf("decompressed payload exceeds maximum size of %d bytes", MaxDecompressedSize)
	}
	out, err := s2.Decode(nil, payload)
	if err != nil {
		return nil, fmt.Errorf("failed to decompress payload: %w", err)
	}
	return out, nil
}
