// Package transport drains the outbound queue to a CoT destination. It is the
// external collaborator of the conversion core: the dispatch loops only ever
// see the queue.
package transport

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"net/url"
	"time"

	"github.com/go-pkgz/lgr"
	"github.com/go-pkgz/repeater/v2"
)

// Sender writes serialized events to a udp://, tcp:// or tls:// destination.
// Connection loss drops the in-flight event and reconnects on the next one,
// delivery is best effort by design.
type Sender struct {
	scheme string
	addr   string

	dialAttempts int
	dialDelay    time.Duration
	tlsConf      *tls.Config
}

// New creates a sender for the given destination URL, e.g. tcp://takserver:8087
func New(rawURL string) (*Sender, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parse cot url: %w", err)
	}

	switch u.Scheme {
	case "udp", "tcp", "tls":
	default:
		return nil, fmt.Errorf("unsupported cot url scheme %q", u.Scheme)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("cot url %q has no host", rawURL)
	}

	return &Sender{
		scheme:       u.Scheme,
		addr:         u.Host,
		dialAttempts: 3,
		dialDelay:    time.Second,
	}, nil
}

// Run drains the queue until the context is cancelled. Always returns nil on
// shutdown, send failures are logged and absorbed.
func (s *Sender) Run(ctx context.Context, queue <-chan []byte) error {
	lgr.Printf("[INFO] transport started, destination %s://%s", s.scheme, s.addr)

	var conn net.Conn
	defer func() {
		if conn != nil {
			_ = conn.Close()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			lgr.Printf("[INFO] transport stopped")
			return nil
		case data := <-queue:
			if conn == nil {
				c, err := s.dial(ctx)
				if err != nil {
					lgr.Printf("[WARN] connect to %s failed, dropping event: %v", s.addr, err)
					continue
				}
				conn = c
			}

			if _, err := conn.Write(append(data, '\n')); err != nil {
				lgr.Printf("[WARN] send to %s failed: %v", s.addr, err)
				_ = conn.Close()
				conn = nil
			}
		}
	}
}

// dial connects to the destination with a few fixed-delay attempts
func (s *Sender) dial(ctx context.Context) (net.Conn, error) {
	var conn net.Conn
	retrier := repeater.NewFixed(s.dialAttempts, s.dialDelay)
	err := retrier.Do(ctx, func() error {
		var e error
		conn, e = s.dialOnce(ctx)
		return e
	})
	if err != nil {
		return nil, fmt.Errorf("dial %s://%s: %w", s.scheme, s.addr, err)
	}
	return conn, nil
}

func (s *Sender) dialOnce(ctx context.Context) (net.Conn, error) {
	dialer := &net.Dialer{Timeout: 10 * time.Second}

	switch s.scheme {
	case "udp":
		return dialer.DialContext(ctx, "udp", s.addr)
	case "tcp":
		return dialer.DialContext(ctx, "tcp", s.addr)
	case "tls":
		return tls.DialWithDialer(dialer, "tcp", s.addr, s.tlsConf)
	}
	return nil, fmt.Errorf("unsupported scheme %q", s.scheme)
}
