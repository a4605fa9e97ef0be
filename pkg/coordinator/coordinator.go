// Package coordinator implements the coordinator side of the rendezvous
// protocol: the barrier which releases every worker at once, and the
// finished signal which records when each worker is done broadcasting.
package coordinator

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"time"

	"github.com/hashicorp/go-metrics"
	"github.com/raskyld/rendezvous"
)

const defaultAnnounceTimeout = 10 * time.Second

var (
	ErrInvalidCfg = errors.New("coordinator: invalid options")
	ErrListen     = errors.New("coordinator: could not listen")
	ErrAccept     = errors.New("coordinator: could not accept workers")
	ErrAnnounce   = errors.New("coordinator: worker did not announce its ID")
)

var (
	MetricWorkersAnnounced   = []string{"rendezvous", "coordinator", "announced", "count"}
	MetricAnnounceErrorCount = []string{"rendezvous", "coordinator", "announce", "error", "count"}
	MetricWorkersReleased    = []string{"rendezvous", "coordinator", "released", "count"}
	MetricWorkersFinished    = []string{"rendezvous", "coordinator", "finished", "count"}
)

type config struct {
	logHandler      slog.Handler
	msink           metrics.MetricSink
	metricLabels    []metrics.Label
	announceTimeout time.Duration
}

// Option to pass to `ListenBarrier` and `ListenSignal`.
type Option func(*config) error

// WithLog specifies which `slog.Handler` to use.
func WithLog(handler slog.Handler) Option {
	return func(c *config) error {
		c.logHandler = handler
		return nil
	}
}

// WithMetricSink allows you to chose how to collect the metrics emitted
// by the servers.
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

// WithAnnounceTimeout controls how long the barrier waits for a freshly
// connected worker to send its ID before dropping it.
func WithAnnounceTimeout(timeout time.Duration) Option {
	return func(c *config) error {
		if timeout <= 0 {
			timeout = defaultAnnounceTimeout
		}
		c.announceTimeout = timeout
		return nil
	}
}

// server is the listener shared by both coordinator channels.
type server struct {
	ln       *net.TCPListener
	expected int
	cfg      config
	logger   *slog.Logger
}

func listen(addr string, expected int, channel string, opts []Option) (*server, error) {
	srv := &server{
		expected: expected,
		cfg: config{
			announceTimeout: defaultAnnounceTimeout,
		},
	}

	for _, opt := range opts {
		if err := opt(&srv.cfg); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidCfg, err)
		}
	}

	if expected <= 0 {
		return nil, fmt.Errorf("%w: must wait for at least one worker, got %d", ErrInvalidCfg, expected)
	}

	if srv.cfg.logHandler != nil {
		srv.logger = slog.New(srv.cfg.logHandler)
	} else {
		srv.logger = slog.Default()
	}
	srv.logger = srv.logger.With(rendezvous.LabelChannel.L(channel))

	if srv.cfg.msink == nil {
		srv.cfg.msink = metrics.Default()
	}
	srv.cfg.metricLabels = append(
		append([]metrics.Label(nil), srv.cfg.metricLabels...),
		rendezvous.LabelChannel.M(channel),
	)

	ln, err := net.Listen("tcp4", addr)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrListen, err)
	}
	srv.ln = ln.(*net.TCPListener)
	return srv, nil
}

// Addr is the address the server is bound to.
func (srv *server) Addr() net.Addr {
	return srv.ln.Addr()
}

// Close stops listening. Connections of workers are owned by the
// `Wait` call which accepted them.
func (srv *server) Close() error {
	return srv.ln.Close()
}

// readID reads the process ID a worker sends right after connecting.
func readID(conn net.Conn) (uint64, error) {
	var raw [rendezvous.IDSize]byte
	if _, err := io.ReadFull(conn, raw[:]); err != nil {
		return 0, fmt.Errorf("%w: %w", ErrAnnounce, err)
	}
	return rendezvous.DecodeID(raw[:])
}
