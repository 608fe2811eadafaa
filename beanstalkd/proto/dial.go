package proto

import (
	"net"
	"time"

	"github.com/1xyz/coolbeans-client/beanstalkd/core"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

const (
	DefaultAddr           = "127.0.0.1:11300"
	DefaultConnectTimeout = 10 * time.Second
)

type Config struct {
	// Timeout for establishing the TCP connection, zero means no timeout
	ConnectTimeout time.Duration

	// Maximum put body size accepted locally, zero disables the check
	MaxJobSize int

	// When set and MaxJobSize is zero, Dial learns max-job-size from stats
	DiscoverMaxJobSize bool
}

func DefaultConfig() *Config {
	return &Config{
		ConnectTimeout: DefaultConnectTimeout,
	}
}

// Dial connects to the server at addr (host:port). cfg may be nil.
func Dial(addr string, cfg *Config) (*Conn, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}

	ctxLog := log.WithFields(log.Fields{"method": "Dial", "addr": addr})
	nc, err := net.DialTimeout("tcp", addr, cfg.ConnectTimeout)
	if err != nil {
		ctxLog.Debugf("net.DialTimeout err=%v", err)
		return nil, core.NewError("dial", core.KindTransport, errors.Wrapf(err, "dial %s", addr))
	}

	c := NewConn(nc, cfg)
	ctxLog.WithField("connID", c.id).Debugf("connected")
	if cfg.DiscoverMaxJobSize && cfg.MaxJobSize == 0 {
		if err := c.discoverMaxJobSize(); err != nil {
			c.Close()
			return nil, err
		}
	}

	return c, nil
}

// discoverMaxJobSize sets maxJobSize from the server's stats. A server
// that refuses stats or does not report max-job-size leaves the check
// disabled; only errors that closed the connection are returned.
func (c *Conn) discoverMaxJobSize() error {
	ctxLog := log.WithFields(log.Fields{"method": "Conn.discoverMaxJobSize", "connID": c.id})
	s, err := c.Stats()
	if err != nil {
		if core.KindOf(err).Fatal() {
			return err
		}
		ctxLog.Warnf("stats err=%v, max-job-size check disabled", err)
		return nil
	}

	n, ok := s.Uint("max-job-size")
	if !ok || n == 0 {
		ctxLog.Warnf("max-job-size not reported, check disabled")
		return nil
	}

	c.maxJobSize = int(n)
	ctxLog.Debugf("max-job-size=%d", n)
	return nil
}
