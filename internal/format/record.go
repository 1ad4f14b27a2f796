package format

import (
	"encoding/binary"
	"fmt"
)

// IndexRecordSize is the fixed width of one index record in bytes.
//
// An index record is an unsigned 64-bit integer in big-endian (network)
// byte order holding the physical length of the corresponding encoded block
// in the data file. The fixed width is what lets the store locate and remove
// the last-written block without scanning: the trailing 8 bytes of the index
// file always describe the trailing record of the data file.
const IndexRecordSize = 8

// MarshalIndexRecord encodes a block length as an 8-byte big-endian record.
func MarshalIndexRecord(length uint64) []byte {
	buf := make([]byte, IndexRecordSize)
	binary.BigEndian.PutUint64(buf, length)
	return buf
}

// UnmarshalIndexRecord decodes an 8-byte big-endian index record.
func UnmarshalIndexRecord(data []byte) (uint64, error) {
	if len(data) != IndexRecordSize {
		return 0, fmt.Errorf("invalid index record size: %d bytes (want %d)", len(data), IndexRecordSize)
	}
	return binary.BigEndian.Uint64(data), nil
}
