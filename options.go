package rendezvous

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"time"

	"github.com/hashicorp/go-metrics"
)

// Dialer opens the TCP connections used by the barrier and signal
// channels. `*net.Dialer` satisfies it.
type Dialer interface {
	DialContext(ctx context.Context, network, address string) (net.Conn, error)
}

type config struct {
	logHandler   slog.Handler
	logger       *slog.Logger
	msink        metrics.MetricSink
	metricLabels []metrics.Label
	resolver     Resolver
	dialer       Dialer
	dialTimeout  time.Duration
}

// Option to pass to the constructors of this package.
type Option func(*config) error

func newConfig(opts []Option) (*config, error) {
	c := &config{}
	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidCfg, err)
		}
	}

	if c.logHandler != nil {
		c.logger = slog.New(c.logHandler)
	} else {
		c.logger = slog.Default()
	}

	if c.msink == nil {
		c.msink = metrics.Default()
	}

	if c.resolver == nil {
		c.resolver = net.DefaultResolver
	}

	if c.dialer == nil {
		c.dialer = &net.Dialer{}
	}

	return c, nil
}

// WithLog specifies which `slog.Handler` to use.
func WithLog(handler slog.Handler) Option {
	return func(c *config) error {
		c.logHandler = handler
		return nil
	}
}

// WithMetricSink allows you to chose how to collect the metrics emitted
// during rendezvous.
func WithMetricSink(ms metrics.MetricSink) Option {
	return func(c *config) error {
		if ms == nil {
			ms = &metrics.BlackholeSink{}
		}
		c.msink = ms
		return nil
	}
}

// WithMetricLabels adds static labels to all metrics produced.
func WithMetricLabels(labels []metrics.Label) Option {
	return func(c *config) error {
		c.metricLabels = labels
		return nil
	}
}

// WithResolver replaces `net.DefaultResolver` for hostname lookups.
func WithResolver(r Resolver) Option {
	return func(c *config) error {
		if r == nil {
			return errors.New("resolver must not be nil")
		}
		c.resolver = r
		return nil
	}
}

// WithDialer replaces the dialer used to reach the coordinator.
func WithDialer(d Dialer) Option {
	return func(c *config) error {
		if d == nil {
			return errors.New("dialer must not be nil")
		}
		c.dialer = d
		return nil
	}
}

// WithDialTimeout bounds connection establishment to the coordinator.
// The default, 0, waits as long as the kernel does. Waiting for the
// release pulse is only bounded by the context given to `Barrier.Wait`.
func WithDialTimeout(timeout time.Duration) Option {
	return func(c *config) error {
		if timeout < 0 {
			return fmt.Errorf("negative dial timeout %s", timeout)
		}
		c.dialTimeout = timeout
		return nil
	}
}
