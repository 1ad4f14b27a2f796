package tailq

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDSN(t *testing.T) {
	tests := []struct {
		name     string
		dsn      string
		wantDir  string
		wantOpts ConnectionOptions
		wantErr  bool
	}{
		{
			name:     "defaults",
			dsn:      "file:///var/queues/orders",
			wantDir:  "/var/queues/orders",
			wantOpts: ConnectionOptions{Compress: false, Codec: "gzip", LoopSleep: 500000},
		},
		{
			name:     "host and path concatenate",
			dsn:      "file://var/queues/orders",
			wantDir:  "var/queues/orders",
			wantOpts: ConnectionOptions{Compress: false, Codec: "gzip", LoopSleep: 500000},
		},
		{
			name:     "compress boolean",
			dsn:      "file:///q?compress=true",
			wantDir:  "/q",
			wantOpts: ConnectionOptions{Compress: true, Codec: "gzip", LoopSleep: 500000},
		},
		{
			name:     "compress numeric boolean",
			dsn:      "file:///q?compress=1",
			wantDir:  "/q",
			wantOpts: ConnectionOptions{Compress: true, Codec: "gzip", LoopSleep: 500000},
		},
		{
			name:     "explicit codec",
			dsn:      "file:///q?compress=true&compression=zstd",
			wantDir:  "/q",
			wantOpts: ConnectionOptions{Compress: true, Codec: "zstd", LoopSleep: 500000},
		},
		{
			name:     "loop sleep",
			dsn:      "file:///q?loop_sleep=250000",
			wantDir:  "/q",
			wantOpts: ConnectionOptions{Compress: false, Codec: "gzip", LoopSleep: 250000},
		},
		{
			name:     "unknown params ignored",
			dsn:      "file:///q?nonsense=1",
			wantDir:  "/q",
			wantOpts: ConnectionOptions{Compress: false, Codec: "gzip", LoopSleep: 500000},
		},
		{
			name:    "missing path",
			dsn:     "file://",
			wantErr: true,
		},
		{
			name:    "bad compress value",
			dsn:     "file:///q?compress=maybe",
			wantErr: true,
		},
		{
			name:    "bad codec",
			dsn:     "file:///q?compression=lz4",
			wantErr: true,
		},
		{
			name:    "bad loop sleep",
			dsn:     "file:///q?loop_sleep=soon",
			wantErr: true,
		},
		{
			name:    "negative loop sleep",
			dsn:     "file:///q?loop_sleep=-5",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir, opts, err := ParseDSN(tt.dsn)
			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, ErrInvalidDSN)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantDir, dir)
			assert.Equal(t, tt.wantOpts, opts)
		})
	}
}
