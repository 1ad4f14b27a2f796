package tailq

import (
	"fmt"
	"net/url"
	"strconv"

	"github.com/vnykmshr/tailq/internal/format"
)

// ParseDSN parses a queue connection string of the form
//
//	file://<host>/<path>?compress=<bool>&compression=<codec>&loop_sleep=<microseconds>
//
// The host and path components are concatenated to form the storage
// directory: file:///var/queues/orders names the absolute directory
// /var/queues/orders, while file://var/queues/orders puts "var" in the host
// component and names the relative directory var/queues/orders. Query
// parameters are merged over the defaults; unrecognized parameters are
// ignored.
func ParseDSN(dsn string) (string, ConnectionOptions, error) {
	opts := DefaultConnectionOptions()

	u, err := url.Parse(dsn)
	if err != nil {
		return "", opts, fmt.Errorf("%w: %v", ErrInvalidDSN, err)
	}

	dir := u.Host + u.Path
	if dir == "" {
		return "", opts, fmt.Errorf("%w: missing storage path in %q", ErrInvalidDSN, dsn)
	}

	q := u.Query()
	if v := q.Get("compress"); v != "" {
		compress, err := strconv.ParseBool(v)
		if err != nil {
			return "", opts, fmt.Errorf("%w: compress=%q is not a boolean", ErrInvalidDSN, v)
		}
		opts.Compress = compress
	}
	if v := q.Get("compression"); v != "" {
		if _, err := format.ParseCompression(v); err != nil {
			return "", opts, fmt.Errorf("%w: %v", ErrInvalidDSN, err)
		}
		opts.Codec = v
	}
	if v := q.Get("loop_sleep"); v != "" {
		sleep, err := strconv.Atoi(v)
		if err != nil || sleep <= 0 {
			return "", opts, fmt.Errorf("%w: loop_sleep=%q is not a positive integer", ErrInvalidDSN, v)
		}
		opts.LoopSleep = sleep
	}

	return dir, opts, nil
}
