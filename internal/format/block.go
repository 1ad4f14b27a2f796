package format

import (
	"encoding/binary"
	"errors"
	"fmt"
	"sort"
)

// ErrDecode indicates that a byte sequence does not decode to a valid block.
// By the time a read path reports it the bytes have already been removed from
// the data file, so the record is lost.
var ErrDecode = errors.New("tailq: block decode failed")

// BlockMagic identifies the block format ("TQB1").
const BlockMagic uint32 = 0x54514231

// BlockVersion is the current block format version.
const BlockVersion uint8 = 1

// Field size limits imposed by the wire format.
const (
	MaxHeaderCount    = 1<<16 - 1
	MaxHeaderKeySize  = 1<<16 - 1
	MaxHeaderValSize  = 1<<32 - 1
	MaxBodySize       = 1<<32 - 1
	blockChecksumSize = 4
)

// MinBlockSize is the marshaled size of an empty block:
// magic(4) + version(1) + header count(2) + body length(4) + crc(4).
const MinBlockSize = 4 + 1 + 2 + 4 + blockChecksumSize

// Block is one queued message: an opaque body plus string headers.
//
// Binary format (big-endian):
//
//	[Magic:4][Version:1][HeaderCount:2]
//	repeated: [KeyLen:2][Key][ValLen:4][Val]
//	[BodyLen:4][Body][CRC32C:4]
//
// Every field carries an explicit length, so bodies containing arbitrary
// bytes never collide with field boundaries. Headers are written in sorted
// key order to keep the encoding deterministic.
type Block struct {
	// Body is the message payload.
	Body []byte

	// Headers holds the message headers. Keys are unique; order is not
	// significant.
	Headers map[string]string
}

// Marshal encodes the block into its binary format with a CRC32C trailer.
func (b *Block) Marshal() ([]byte, error) {
	if len(b.Headers) > MaxHeaderCount {
		return nil, fmt.Errorf("too many headers: %d (max %d)", len(b.Headers), MaxHeaderCount)
	}
	if uint64(len(b.Body)) > MaxBodySize {
		return nil, fmt.Errorf("body too large: %d bytes (max %d)", len(b.Body), uint64(MaxBodySize))
	}

	keys := make([]string, 0, len(b.Headers))
	size := MinBlockSize + len(b.Body)
	for k, v := range b.Headers {
		if len(k) == 0 {
			return nil, errors.New("empty header key")
		}
		if len(k) > MaxHeaderKeySize {
			return nil, fmt.Errorf("header key too long: %d bytes (max %d)", len(k), MaxHeaderKeySize)
		}
		if uint64(len(v)) > MaxHeaderValSize {
			return nil, fmt.Errorf("header value too long: %d bytes", len(v))
		}
		keys = append(keys, k)
		size += 2 + len(k) + 4 + len(v)
	}
	sort.Strings(keys)

	buf := make([]byte, size)
	offset := 0

	binary.BigEndian.PutUint32(buf[offset:], BlockMagic)
	offset += 4
	buf[offset] = BlockVersion
	offset++
	binary.BigEndian.PutUint16(buf[offset:], uint16(len(keys)))
	offset += 2

	for _, k := range keys {
		v := b.Headers[k]
		binary.BigEndian.PutUint16(buf[offset:], uint16(len(k)))
		offset += 2
		offset += copy(buf[offset:], k)
		binary.BigEndian.PutUint32(buf[offset:], uint32(len(v)))
		offset += 4
		offset += copy(buf[offset:], v)
	}

	binary.BigEndian.PutUint32(buf[offset:], uint32(len(b.Body)))
	offset += 4
	offset += copy(buf[offset:], b.Body)

	crc := ComputeCRC32C(buf[:offset])
	binary.BigEndian.PutUint32(buf[offset:], crc)

	return buf, nil
}

// UnmarshalBlock decodes a block from its binary format.
//
// The decoder only reconstructs the Block shape: magic, version, and CRC are
// validated up front and every field boundary is bounds-checked, so arbitrary
// or truncated byte sequences fail with ErrDecode rather than producing a
// partially populated block.
func UnmarshalBlock(data []byte) (*Block, error) {
	if len(data) < MinBlockSize {
		return nil, fmt.Errorf("%w: %d bytes, need at least %d", ErrDecode, len(data), MinBlockSize)
	}

	stored := binary.BigEndian.Uint32(data[len(data)-blockChecksumSize:])
	if !VerifyCRC32C(data[:len(data)-blockChecksumSize], stored) {
		return nil, fmt.Errorf("%w: CRC mismatch: stored=%08x computed=%08x",
			ErrDecode, stored, ComputeCRC32C(data[:len(data)-blockChecksumSize]))
	}

	offset := 0
	if magic := binary.BigEndian.Uint32(data[offset:]); magic != BlockMagic {
		return nil, fmt.Errorf("%w: invalid magic: got=%08x want=%08x", ErrDecode, magic, BlockMagic)
	}
	offset += 4
	if version := data[offset]; version != BlockVersion {
		return nil, fmt.Errorf("%w: unsupported version: %d (current=%d)", ErrDecode, version, BlockVersion)
	}
	offset++

	headerCount := int(binary.BigEndian.Uint16(data[offset:]))
	offset += 2

	end := len(data) - blockChecksumSize
	block := &Block{}
	if headerCount > 0 {
		block.Headers = make(map[string]string, headerCount)
	}

	for i := 0; i < headerCount; i++ {
		if offset+2 > end {
			return nil, fmt.Errorf("%w: truncated header key length at %d", ErrDecode, offset)
		}
		klen := int(binary.BigEndian.Uint16(data[offset:]))
		offset += 2
		if klen == 0 || offset+klen > end {
			return nil, fmt.Errorf("%w: truncated header key at %d", ErrDecode, offset)
		}
		key := string(data[offset : offset+klen])
		offset += klen

		if offset+4 > end {
			return nil, fmt.Errorf("%w: truncated header value length at %d", ErrDecode, offset)
		}
		vlen := int(binary.BigEndian.Uint32(data[offset:]))
		offset += 4
		if offset+vlen > end {
			return nil, fmt.Errorf("%w: truncated header value at %d", ErrDecode, offset)
		}
		if _, dup := block.Headers[key]; dup {
			return nil, fmt.Errorf("%w: duplicate header key %q", ErrDecode, key)
		}
		block.Headers[key] = string(data[offset : offset+vlen])
		offset += vlen
	}

	if offset+4 > end {
		return nil, fmt.Errorf("%w: truncated body length at %d", ErrDecode, offset)
	}
	bodyLen := int(binary.BigEndian.Uint32(data[offset:]))
	offset += 4
	if offset+bodyLen != end {
		return nil, fmt.Errorf("%w: body length %d does not match remaining %d bytes",
			ErrDecode, bodyLen, end-offset)
	}
	if bodyLen > 0 {
		block.Body = make([]byte, bodyLen)
		copy(block.Body, data[offset:end])
	}

	return block, nil
}
