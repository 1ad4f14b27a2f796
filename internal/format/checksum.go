// Package format provides binary encoding/decoding for tailq file formats.
//
// This package implements:
//   - Block format: a single queued message (body + headers) framed with a
//     magic number, explicit field lengths, and a CRC32C trailer
//   - Index record format: fixed-width 8-byte big-endian block lengths
//   - Compression codecs: gzip, zstd, and s2 payload transforms
//   - Checksum utilities: CRC32C (Castagnoli) computation and verification
package format

import "hash/crc32"

// CRC32C table using the Castagnoli polynomial.
// Hardware-accelerated on modern Intel (SSE 4.2) and ARM processors.
var crc32cTable = crc32.MakeTable(crc32.Castagnoli)

// ComputeCRC32C computes a CRC32C checksum over the given data.
func ComputeCRC32C(data []byte) uint32 {
	return crc32.Checksum(data, crc32cTable)
}

// VerifyCRC32C verifies that the computed CRC matches the expected value.
func VerifyCRC32C(data []byte, expected uint32) bool {
	return ComputeCRC32C(data) == expected
}
