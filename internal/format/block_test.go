package format

import (
	"bytes"
	"encoding/binary"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBlock_Marshal_Unmarshal_Roundtrip(t *testing.T) {
	tests := []struct {
		name  string
		block *Block
	}{
		{
			name:  "body and headers",
			block: &Block{Body: []byte("hello, world!"), Headers: map[string]string{"kind": "greeting", "seq": "1"}},
		},
		{
			name:  "empty block",
			block: &Block{},
		},
		{
			name:  "body only",
			block: &Block{Body: []byte("no headers here")},
		},
		{
			name:  "headers only",
			block: &Block{Headers: map[string]string{"a": "b"}},
		},
		{
			name:  "empty header value",
			block: &Block{Headers: map[string]string{"empty": ""}},
		},
		{
			name:  "binary body with embedded length-like bytes",
			block: &Block{Body: []byte{0, 0, 0, 5, 0xff, 'T', 'Q', 'B', '1', 0}, Headers: map[string]string{"enc": "raw"}},
		},
		{
			name:  "unicode keys and values",
			block: &Block{Body: []byte("päyload"), Headers: map[string]string{"über": "größe"}},
		},
		{
			name:  "large body",
			block: &Block{Body: bytes.Repeat([]byte("x"), 1<<20)},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := tt.block.Marshal()
			require.NoError(t, err)

			got, err := UnmarshalBlock(data)
			require.NoError(t, err)

			assert.Equal(t, tt.block.Body, got.Body)
			if len(tt.block.Headers) == 0 {
				assert.Empty(t, got.Headers)
			} else {
				assert.Equal(t, tt.block.Headers, got.Headers)
			}
		})
	}
}

func TestBlock_Marshal_Deterministic(t *testing.T) {
	block := &Block{
		Body:    []byte("payload"),
		Headers: map[string]string{"b": "2", "a": "1", "c": "3"},
	}

	first, err := block.Marshal()
	require.NoError(t, err)
	for i := 0; i < 10; i++ {
		again, err := block.Marshal()
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}

func TestBlock_Marshal_Limits(t *testing.T) {
	t.Run("empty header key", func(t *testing.T) {
		_, err := (&Block{Headers: map[string]string{"": "v"}}).Marshal()
		assert.Error(t, err)
	})

	t.Run("oversize header key", func(t *testing.T) {
		key := strings.Repeat("k", MaxHeaderKeySize+1)
		_, err := (&Block{Headers: map[string]string{key: "v"}}).Marshal()
		assert.Error(t, err)
	})
}

func TestUnmarshalBlock_Invalid(t *testing.T) {
	valid, err := (&Block{Body: []byte("payload"), Headers: map[string]string{"k": "v"}}).Marshal()
	require.NoError(t, err)

	corrupt := func(mutate func([]byte)) []byte {
		data := bytes.Clone(valid)
		mutate(data)
		return data
	}

	recrc := func(data []byte) {
		binary.BigEndian.PutUint32(data[len(data)-4:], ComputeCRC32C(data[:len(data)-4]))
	}

	tests := []struct {
		name string
		data []byte
	}{
		{"empty", nil},
		{"too short", valid[:MinBlockSize-1]},
		{"flipped payload byte", corrupt(func(d []byte) { d[len(d)-6] ^= 0xff })},
		{"flipped crc", corrupt(func(d []byte) { d[len(d)-1] ^= 0xff })},
		{"bad magic", corrupt(func(d []byte) {
			binary.BigEndian.PutUint32(d, 0xdeadbeef)
			recrc(d)
		})},
		{"bad version", corrupt(func(d []byte) {
			d[4] = 99
			recrc(d)
		})},
		{"header count overruns data", corrupt(func(d []byte) {
			binary.BigEndian.PutUint16(d[5:], 500)
			recrc(d)
		})},
		{"arbitrary non-block bytes", []byte(strings.Repeat("not a block", 10))},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := UnmarshalBlock(tt.data)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrDecode)
			assert.Nil(t, got)
		})
	}
}

func TestUnmarshalBlock_TrailingGarbage(t *testing.T) {
	valid, err := (&Block{Body: []byte("payload")}).Marshal()
	require.NoError(t, err)

	// Extending past the body makes the body length disagree with the
	// remaining bytes; the decoder must refuse rather than silently
	// truncate.
	extended := append(bytes.Clone(valid[:len(valid)-4]), []byte("junk")...)
	crc := ComputeCRC32C(extended)
	extended = binary.BigEndian.AppendUint32(extended, crc)

	_, err = UnmarshalBlock(extended)
	assert.ErrorIs(t, err, ErrDecode)
}
