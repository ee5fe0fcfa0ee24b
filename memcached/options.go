package memcached

import (
	"net"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/goforj/cachekit/cachecore"
	"github.com/goforj/cachekit/config"
)

// DefaultPort is used for servers configured without a port.
const DefaultPort = 11211

// Socket pool defaults.
const (
	DefaultMinPoolSize       = 10
	DefaultMaxPoolSize       = 20
	DefaultConnectionTimeout = 10 * time.Second
	DefaultReceiveTimeout    = 10 * time.Second
	DefaultDeadTimeout       = 10 * time.Second
	DefaultQueueTimeout      = 100 * time.Millisecond
)

// Options configures a memcached provider. It binds from a configuration
// section such as:
//
//	cachekit:
//	  memcached:
//	    MaxRdSecond: 120
//	    Order: 2
//	    dbconfig:
//	      Servers:
//	        - Address: memcached
//	          Port: 11211
//	      socketPool:
//	        minPoolSize: "5"
//	        maxPoolSize: "25"
//	        queueTimeout: "00:00:00.150"
type Options struct {
	cachecore.BaseOptions `yaml:",inline"`

	DBConfig ClientOptions `yaml:"dbconfig"`
}

// DefaultOptions returns Options populated with defaults and no servers.
func DefaultOptions() Options {
	return Options{
		BaseOptions: cachecore.DefaultBaseOptions(),
		DBConfig: ClientOptions{
			SocketPool: DefaultSocketPoolOptions(),
		},
	}
}

// ClientOptions holds the connection settings of a memcached client.
type ClientOptions struct {
	Servers    []Server          `yaml:"servers"`
	SocketPool SocketPoolOptions `yaml:"socketpool"`
}

// AddServer appends a server. A zero port means DefaultPort.
func (o *ClientOptions) AddServer(address string, port int) {
	o.Servers = append(o.Servers, Server{Address: address, Port: port})
}

// Server is a memcached endpoint.
type Server struct {
	Address string `yaml:"address"`
	Port    int    `yaml:"port"`
}

// Addr returns host:port, substituting DefaultPort for a zero port.
func (s Server) Addr() string {
	port := s.Port
	if port == 0 {
		port = DefaultPort
	}
	return net.JoinHostPort(s.Address, strconv.Itoa(port))
}

// SocketPoolOptions bounds the per-server connection pool.
type SocketPoolOptions struct {
	// MinPoolSize connections are opened per server by Client.Warm.
	MinPoolSize int
	// MaxPoolSize caps connections in use per server.
	MaxPoolSize int
	// ConnectionTimeout bounds dialing a server.
	ConnectionTimeout time.Duration
	// ReceiveTimeout bounds each request/response exchange.
	ReceiveTimeout time.Duration
	// DeadTimeout is how long a server that failed to connect is skipped.
	DeadTimeout time.Duration
	// QueueTimeout bounds waiting for a free connection when the pool is full.
	QueueTimeout time.Duration
}

// DefaultSocketPoolOptions returns the default pool settings.
func DefaultSocketPoolOptions() SocketPoolOptions {
	return SocketPoolOptions{
		MinPoolSize:       DefaultMinPoolSize,
		MaxPoolSize:       DefaultMaxPoolSize,
		ConnectionTimeout: DefaultConnectionTimeout,
		ReceiveTimeout:    DefaultReceiveTimeout,
		DeadTimeout:       DefaultDeadTimeout,
		QueueTimeout:      DefaultQueueTimeout,
	}
}

// UnmarshalYAML overlays only the keys present in n, so omitted settings keep
// their defaults. Durations accept time-span strings ("00:00:15").
func (o *SocketPoolOptions) UnmarshalYAML(n *yaml.Node) error {
	var aux struct {
		MinPoolSize       *int             `yaml:"minpoolsize"`
		MaxPoolSize       *int             `yaml:"maxpoolsize"`
		ConnectionTimeout *config.Duration `yaml:"connectiontimeout"`
		ReceiveTimeout    *config.Duration `yaml:"receivetimeout"`
		DeadTimeout       *config.Duration `yaml:"deadtimeout"`
		QueueTimeout      *config.Duration `yaml:"queuetimeout"`
	}
	if err := n.Decode(&aux); err != nil {
		return err
	}
	if aux.MinPoolSize != nil {
		o.MinPoolSize = *aux.MinPoolSize
	}
	if aux.MaxPoolSize != nil {
		o.MaxPoolSize = *aux.MaxPoolSize
	}
	setDuration(&o.ConnectionTimeout, aux.ConnectionTimeout)
	setDuration(&o.ReceiveTimeout, aux.ReceiveTimeout)
	setDuration(&o.DeadTimeout, aux.DeadTimeout)
	setDuration(&o.QueueTimeout, aux.QueueTimeout)
	return nil
}

func setDuration(dst *time.Duration, v *config.Duration) {
	if v != nil {
		*dst = v.Std()
	}
}
