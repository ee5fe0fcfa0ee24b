package memcached

import (
	"bufio"
	"fmt"
	"io"
	"net"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
)

type fakeItem struct {
	flags uint32
	data  []byte
}

// fakeMemcached is a loopback text-protocol server covering the commands the
// client sends.
type fakeMemcached struct {
	ln       net.Listener
	mu       sync.Mutex
	data     map[string]fakeItem
	accepted atomic.Int64
	commands atomic.Int64
}

func startFakeMemcached(t *testing.T) *fakeMemcached {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	s := &fakeMemcached{ln: ln, data: make(map[string]fakeItem)}
	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			s.accepted.Add(1)
			go s.handle(conn)
		}
	}()
	t.Cleanup(func() { _ = ln.Close() })
	return s
}

func (s *fakeMemcached) addr() string { return s.ln.Addr().String() }

func (s *fakeMemcached) server() Server {
	host, port, _ := net.SplitHostPort(s.addr())
	p, _ := strconv.Atoi(port)
	return Server{Address: host, Port: p}
}

func (s *fakeMemcached) raw(key string) (fakeItem, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	it, ok := s.data[key]
	return it, ok
}

func (s *fakeMemcached) len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.data)
}

func (s *fakeMemcached) handle(conn net.Conn) {
	defer conn.Close()
	r := bufio.NewReader(conn)
	w := bufio.NewWriter(conn)
	for {
		line, err := r.ReadString('\n')
		if err != nil {
			return
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		s.commands.Add(1)
		parts := strings.Fields(line)
		switch parts[0] {
		case "get", "gets":
			s.mu.Lock()
			for _, key := range parts[1:] {
				if it, ok := s.data[key]; ok {
					fmt.Fprintf(w, "VALUE %s %d %d\r\n", key, it.flags, len(it.data))
					w.Write(it.data)
					w.WriteString("\r\n")
				}
			}
			s.mu.Unlock()
			w.WriteString("END\r\n")
		case "set", "add", "replace":
			// <cmd> <key> <flags> <exptime> <bytes>
			if len(parts) < 5 {
				w.WriteString("CLIENT_ERROR bad command line format\r\n")
				break
			}
			key := parts[1]
			flags, _ := strconv.ParseUint(parts[2], 10, 32)
			n, _ := strconv.Atoi(parts[4])
			buf := make([]byte, n+2)
			if _, err := io.ReadFull(r, buf); err != nil {
				return
			}
			s.mu.Lock()
			_, exists := s.data[key]
			switch {
			case parts[0] == "add" && exists, parts[0] == "replace" && !exists:
				w.WriteString("NOT_STORED\r\n")
			default:
				s.data[key] = fakeItem{flags: uint32(flags), data: buf[:n]}
				w.WriteString("STORED\r\n")
			}
			s.mu.Unlock()
		case "delete":
			if len(parts) < 2 {
				w.WriteString("ERROR\r\n")
				break
			}
			s.mu.Lock()
			if _, ok := s.data[parts[1]]; ok {
				delete(s.data, parts[1])
				w.WriteString("DELETED\r\n")
			} else {
				w.WriteString("NOT_FOUND\r\n")
			}
			s.mu.Unlock()
		case "flush_all":
			s.mu.Lock()
			s.data = make(map[string]fakeItem)
			s.mu.Unlock()
			w.WriteString("OK\r\n")
		case "stats":
			s.mu.Lock()
			fmt.Fprintf(w, "STAT curr_items %d\r\n", len(s.data))
			s.mu.Unlock()
			w.WriteString("STAT version 1.6.0-fake\r\n")
			w.WriteString("END\r\n")
		default:
			w.WriteString("ERROR\r\n")
		}
		if err := w.Flush(); err != nil {
			return
		}
	}
}

// closedAddr returns an address nothing listens on.
func closedAddr(t *testing.T) Server {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	host, port, _ := net.SplitHostPort(ln.Addr().String())
	_ = ln.Close()
	p, _ := strconv.Atoi(port)
	return Server{Address: host, Port: p}
}
