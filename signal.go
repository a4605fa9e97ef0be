package rendezvous

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"sync"

	"github.com/hashicorp/go-metrics"
)

// Signal holds the connection of the finished-signal channel.
//
// The connection is opened when the Signal is created and kept idle
// until `Signal.Finish`: the coordinator treats its closure as the
// notification that we are done broadcasting.
type Signal struct {
	id     uint64
	cfg    *config
	logger *slog.Logger
	labels []metrics.Label

	finished bool
	conn     net.Conn
	lk       sync.Mutex
}

// DialSignal connects to the signal endpoint and announces id.
func DialSignal(ctx context.Context, id uint64, ep Endpoint, opts ...Option) (*Signal, error) {
	if id == 0 {
		return nil, ErrInvalidID
	}

	cfg, err := newConfig(opts)
	if err != nil {
		return nil, err
	}

	conn, err := cfg.handshake(ctx, id, ep, channelSignal)
	if err != nil {
		return nil, err
	}

	return &Signal{
		id:     id,
		cfg:    cfg,
		conn:   conn,
		logger: cfg.logger.With(LabelChannel.L(channelSignal), LabelSelfID.L(id)),
		labels: withLabels(cfg.metricLabels, LabelChannel.M(channelSignal)),
	}, nil
}

// Finish closes the connection, which is the signal itself.
// It can only be done once, later calls return `ErrAlreadyFinished`.
func (s *Signal) Finish() error {
	s.lk.Lock()
	defer s.lk.Unlock()
	if s.finished {
		return ErrAlreadyFinished
	}

	s.finished = true
	err := s.conn.Close()
	s.conn = nil
	if err != nil {
		return fmt.Errorf("%w: could not close the signal socket: %w", ErrIO, err)
	}

	s.cfg.msink.IncrCounterWithLabels(MetricSignalFinished, 1.0, s.labels)
	s.logger.Debug("finished signal sent")
	return nil
}

// Finished reports whether `Signal.Finish` was called.
func (s *Signal) Finished() bool {
	s.lk.Lock()
	defer s.lk.Unlock()
	return s.finished
}
