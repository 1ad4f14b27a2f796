package format

import "fmt"

// BlockCodec converts blocks to and from their physical on-disk
// representation, applying a configured compression transform.
//
// Encode and Decode are pure functions of their input and the codec
// configuration; the same codec configuration must be used for a queue's
// whole lifetime, since the on-disk bytes do not record which transform was
// applied.
type BlockCodec struct {
	compression Compression
	level       int
}

// NewBlockCodec creates a codec with the given compression transform.
// level is codec-specific; 0 selects the codec's default.
func NewBlockCodec(compression Compression, level int) *BlockCodec {
	return &BlockCodec{compression: compression, level: level}
}

// Compression returns the configured compression transform.
func (c *BlockCodec) Compression() Compression {
	return c.compression
}

// Encode serializes the block and applies the configured compression.
// The returned bytes are exactly what is written to the data file; their
// length is what the paired index record must hold.
func (c *BlockCodec) Encode(b *Block) ([]byte, error) {
	data, err := b.Marshal()
	if err != nil {
		return nil, fmt.Errorf("failed to marshal block: %w", err)
	}
	out, err := Compress(data, c.compression, c.level)
	if err != nil {
		return nil, fmt.Errorf("failed to compress block: %w", err)
	}
	return out, nil
}

// Decode reverses Encode: decompresses (when configured) and deserializes.
// All failures wrap ErrDecode, including corrupted compression streams.
func (c *BlockCodec) Decode(data []byte) (*Block, error) {
	raw, err := Decompress(data, c.compression)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	return UnmarshalBlock(raw)
}
