package memcached

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"strconv"
	"strings"
	"time"
)

// ErrProtocol is returned for malformed or error responses from a server.
var ErrProtocol = errors.New("memcached: protocol error")

// StoreMode selects the storage command.
type StoreMode int

const (
	// StoreSet writes unconditionally.
	StoreSet StoreMode = iota
	// StoreAdd writes only when the key is absent.
	StoreAdd
	// StoreReplace writes only when the key is present.
	StoreReplace
)

func (m StoreMode) verb() string {
	switch m {
	case StoreAdd:
		return "add"
	case StoreReplace:
		return "replace"
	default:
		return "set"
	}
}

var crlf = []byte("\r\n")

// conn is one text-protocol connection. It is used by a single goroutine at
// a time; the pool hands it out exclusively.
type conn struct {
	addr    string
	nc      net.Conn
	rw      *bufio.ReadWriter
	timeout time.Duration
}

func newConn(addr string, nc net.Conn, timeout time.Duration) *conn {
	return &conn{
		addr:    addr,
		nc:      nc,
		rw:      bufio.NewReadWriter(bufio.NewReader(nc), bufio.NewWriter(nc)),
		timeout: timeout,
	}
}

// begin sets the deadline of the next exchange: ReceiveTimeout from now, or
// the context deadline when it is sooner.
func (c *conn) begin(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	deadline := time.Now().Add(c.timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	return c.nc.SetDeadline(deadline)
}

func (c *conn) close() error { return c.nc.Close() }

func (c *conn) readLine() (string, error) {
	line, err := c.rw.ReadSlice('\n')
	if err != nil {
		return "", err
	}
	return string(bytes.TrimRight(line, "\r\n")), nil
}

// get returns the item stored under key. healthy is false when the
// connection can no longer be trusted.
func (c *conn) get(ctx context.Context, key string) (it Item, found bool, healthy bool, err error) {
	if err := c.begin(ctx); err != nil {
		return Item{}, false, false, err
	}
	if _, err := fmt.Fprintf(c.rw, "get %s\r\n", key); err != nil {
		return Item{}, false, false, err
	}
	if err := c.rw.Flush(); err != nil {
		return Item{}, false, false, err
	}
	for {
		line, err := c.readLine()
		if err != nil {
			return Item{}, false, false, err
		}
		if line == "END" {
			return it, found, true, nil
		}
		if err := responseError(line); err != nil {
			return Item{}, false, false, err
		}
		v, err := c.readValue(line)
		if err != nil {
			return Item{}, false, false, err
		}
		if v.key == key {
			it, found = v.item, true
		}
	}
}

type value struct {
	key  string
	item Item
}

// readValue reads the data block announced by a VALUE line:
// VALUE <key> <flags> <bytes> [<cas>]
func (c *conn) readValue(line string) (value, error) {
	fields := strings.Fields(line)
	if len(fields) < 4 || fields[0] != "VALUE" {
		return value{}, fmt.Errorf("%w: unexpected response %q", ErrProtocol, line)
	}
	flags, err := strconv.ParseUint(fields[2], 10, 32)
	if err != nil {
		return value{}, fmt.Errorf("%w: flags in %q", ErrProtocol, line)
	}
	n, err := strconv.Atoi(fields[3])
	if err != nil || n < 0 {
		return value{}, fmt.Errorf("%w: length in %q", ErrProtocol, line)
	}
	buf := make([]byte, n+2)
	if _, err := io.ReadFull(c.rw, buf); err != nil {
		return value{}, err
	}
	if !bytes.HasSuffix(buf, crlf) {
		return value{}, fmt.Errorf("%w: missing data terminator", ErrProtocol)
	}
	return value{key: fields[1], item: Item{Flags: uint32(flags), Data: buf[:n]}}, nil
}

// store runs set, add or replace. stored is false when the server declined
// the write (NOT_STORED).
func (c *conn) store(ctx context.Context, mode StoreMode, key string, it Item, exptime int64) (stored bool, healthy bool, err error) {
	if err := c.begin(ctx); err != nil {
		return false, false, err
	}
	if _, err := fmt.Fprintf(c.rw, "%s %s %d %d %d\r\n", mode.verb(), key, it.Flags, exptime, len(it.Data)); err != nil {
		return false, false, err
	}
	if _, err := c.rw.Write(it.Data); err != nil {
		return false, false, err
	}
	if _, err := c.rw.Write(crlf); err != nil {
		return false, false, err
	}
	if err := c.rw.Flush(); err != nil {
		return false, false, err
	}
	line, err := c.readLine()
	if err != nil {
		return false, false, err
	}
	switch line {
	case "STORED":
		return true, true, nil
	case "NOT_STORED", "EXISTS", "NOT_FOUND":
		return false, true, nil
	}
	if err := responseError(line); err != nil {
		return false, false, err
	}
	return false, false, fmt.Errorf("%w: %s: unexpected response %q", ErrProtocol, mode.verb(), line)
}

// delete reports whether key existed.
func (c *conn) delete(ctx context.Context, key string) (deleted bool, healthy bool, err error) {
	if err := c.begin(ctx); err != nil {
		return false, false, err
	}
	if _, err := fmt.Fprintf(c.rw, "delete %s\r\n", key); err != nil {
		return false, false, err
	}
	if err := c.rw.Flush(); err != nil {
		return false, false, err
	}
	line, err := c.readLine()
	if err != nil {
		return false, false, err
	}
	switch line {
	case "DELETED":
		return true, true, nil
	case "NOT_FOUND":
		return false, true, nil
	}
	if err := responseError(line); err != nil {
		return false, false, err
	}
	return false, false, fmt.Errorf("%w: delete: unexpected response %q", ErrProtocol, line)
}

func (c *conn) flushAll(ctx context.Context) (healthy bool, err error) {
	if err := c.begin(ctx); err != nil {
		return false, err
	}
	if _, err := c.rw.WriteString("flush_all\r\n"); err != nil {
		return false, err
	}
	if err := c.rw.Flush(); err != nil {
		return false, err
	}
	line, err := c.readLine()
	if err != nil {
		return false, err
	}
	if line != "OK" {
		if err := responseError(line); err != nil {
			return false, err
		}
		return false, fmt.Errorf("%w: flush_all: unexpected response %q", ErrProtocol, line)
	}
	return true, nil
}

// stats returns the general-purpose statistics of the server.
func (c *conn) stats(ctx context.Context) (map[string]string, bool, error) {
	if err := c.begin(ctx); err != nil {
		return nil, false, err
	}
	if _, err := c.rw.WriteString("stats\r\n"); err != nil {
		return nil, false, err
	}
	if err := c.rw.Flush(); err != nil {
		return nil, false, err
	}
	out := make(map[string]string)
	for {
		line, err := c.readLine()
		if err != nil {
			return nil, false, err
		}
		if line == "END" {
			return out, true, nil
		}
		if err := responseError(line); err != nil {
			return nil, false, err
		}
		// STAT <name> <value>
		fields := strings.SplitN(line, " ", 3)
		if len(fields) != 3 || fields[0] != "STAT" {
			return nil, false, fmt.Errorf("%w: stats: unexpected response %q", ErrProtocol, line)
		}
		out[fields[1]] = fields[2]
	}
}

func responseError(line string) error {
	switch {
	case line == "ERROR":
		return fmt.Errorf("%w: unknown command", ErrProtocol)
	case strings.HasPrefix(line, "CLIENT_ERROR"), strings.HasPrefix(line, "SERVER_ERROR"):
		return fmt.Errorf("%w: %s", ErrProtocol, line)
	}
	return nil
}

// expiration converts ttl to the protocol's exptime: relative seconds up to
// 30 days, an absolute unix time beyond that.
func expiration(ttl time.Duration, now time.Time) int64 {
	const relativeLimit = 30 * 24 * time.Hour
	if ttl <= 0 {
		return 0
	}
	if ttl > relativeLimit {
		return now.Add(ttl).Unix()
	}
	secs := int64((ttl + time.Second - 1) / time.Second)
	if secs < 1 {
		secs = 1
	}
	return secs
}
