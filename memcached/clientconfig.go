package memcached

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"

	"go.uber.org/zap"

	"github.com/goforj/cachekit"
)

// DialFunc opens a connection to a server.
type DialFunc func(ctx context.Context, network, addr string) (net.Conn, error)

// ClientConfiguration is the validated, immutable input of NewClient.
type ClientConfiguration struct {
	Name           string
	Servers        []Server
	SocketPool     SocketPoolOptions
	Transcoder     Transcoder
	KeyTransformer KeyTransformer
	Logger         *zap.Logger

	// Dial overrides how connections are opened. Nil uses a net.Dialer
	// bounded by SocketPool.ConnectionTimeout.
	Dial DialFunc
}

// NewClientConfiguration validates opts and binds them with the collaborators
// of a client. It performs no network I/O.
func NewClientConfiguration(name string, opts ClientOptions, logger *zap.Logger, transcoder Transcoder, transformer KeyTransformer) (*ClientConfiguration, error) {
	if strings.TrimSpace(name) == "" {
		return nil, cachekit.NewArgumentError("name", "must not be blank")
	}
	if transcoder == nil {
		return nil, cachekit.NewArgumentError("transcoder", "must not be nil")
	}
	if transformer == nil {
		return nil, cachekit.NewArgumentError("keyTransformer", "must not be nil")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := validateServers(name, opts.Servers); err != nil {
		return nil, err
	}
	if err := validatePool(name, opts.SocketPool); err != nil {
		return nil, err
	}
	return &ClientConfiguration{
		Name:           name,
		Servers:        append([]Server(nil), opts.Servers...),
		SocketPool:     opts.SocketPool,
		Transcoder:     transcoder,
		KeyTransformer: transformer,
		Logger:         logger,
	}, nil
}

// Addrs returns the host:port of every server, in configuration order.
func (c *ClientConfiguration) Addrs() []string {
	out := make([]string, len(c.Servers))
	for i, s := range c.Servers {
		out[i] = s.Addr()
	}
	return out
}

func validateServers(name string, servers []Server) error {
	if len(servers) == 0 {
		return &cachekit.ConfigurationError{Provider: name, Field: "Servers", Err: errors.New("at least one server is required")}
	}
	for i, s := range servers {
		if strings.TrimSpace(s.Address) == "" {
			return &cachekit.ConfigurationError{Provider: name, Field: fmt.Sprintf("Servers[%d].Address", i), Err: errors.New("must not be empty")}
		}
		if s.Port < 0 || s.Port > 65535 {
			return &cachekit.ConfigurationError{Provider: name, Field: fmt.Sprintf("Servers[%d].Port", i), Err: fmt.Errorf("%d is out of range", s.Port)}
		}
	}
	return nil
}

func validatePool(name string, p SocketPoolOptions) error {
	bad := func(field string, err error) error {
		return &cachekit.ConfigurationError{Provider: name, Field: "SocketPool." + field, Err: err}
	}
	switch {
	case p.MinPoolSize < 0:
		return bad("MinPoolSize", fmt.Errorf("must not be negative, got %d", p.MinPoolSize))
	case p.MaxPoolSize <= 0:
		return bad("MaxPoolSize", fmt.Errorf("must be positive, got %d", p.MaxPoolSize))
	case p.MinPoolSize > p.MaxPoolSize:
		return bad("MinPoolSize", fmt.Errorf("%d exceeds MaxPoolSize %d", p.MinPoolSize, p.MaxPoolSize))
	case p.ConnectionTimeout <= 0:
		return bad("ConnectionTimeout", fmt.Errorf("must be positive, got %s", p.ConnectionTimeout))
	case p.ReceiveTimeout <= 0:
		return bad("ReceiveTimeout", fmt.Errorf("must be positive, got %s", p.ReceiveTimeout))
	case p.DeadTimeout <= 0:
		return bad("DeadTimeout", fmt.Errorf("must be positive, got %s", p.DeadTimeout))
	case p.QueueTimeout <= 0:
		return bad("QueueTimeout", fmt.Errorf("must be positive, got %s", p.QueueTimeout))
	}
	return nil
}
