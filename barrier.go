package rendezvous

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/hashicorp/go-metrics"
)

// Barrier is the client side of the barrier channel.
//
// Every call to `Barrier.Wait` opens its own connection, so a Barrier can
// be reused for as many synchronisation phases as needed. It is not
// safe for concurrent use.
type Barrier struct {
	id     uint64
	ep     Endpoint
	cfg    *config
	logger *slog.Logger
	labels []metrics.Label
}

// NewBarrier prepares a client of the barrier listening on ep.
// Nothing is dialed until `Barrier.Wait`.
func NewBarrier(id uint64, ep Endpoint, opts ...Option) (*Barrier, error) {
	if id == 0 {
		return nil, ErrInvalidID
	}

	cfg, err := newConfig(opts)
	if err != nil {
		return nil, err
	}

	return &Barrier{
		id:     id,
		ep:     ep,
		cfg:    cfg,
		logger: cfg.logger.With(LabelChannel.L(channelBarrier), LabelSelfID.L(id)),
		labels: withLabels(cfg.metricLabels, LabelChannel.M(channelBarrier)),
	}, nil
}

// Wait connects to the barrier, announces our ID and blocks until the
// coordinator sends the release pulse.
//
// There is no deadline unless ctx carries one. The connection is closed
// before Wait returns, whatever the outcome.
func (b *Barrier) Wait(ctx context.Context) error {
	start := time.Now()
	err := b.wait(ctx)
	if err != nil {
		b.cfg.msink.IncrCounterWithLabels(MetricBarrierErrorCount, 1.0, b.labels)
		return err
	}

	b.cfg.msink.AddSampleWithLabels(MetricBarrierWait, float32(time.Since(start).Milliseconds()), b.labels)
	b.cfg.msink.IncrCounterWithLabels(MetricBarrierReleased, 1.0, b.labels)
	b.logger.Debug("released from barrier", "waited", time.Since(start))
	return nil
}

func (b *Barrier) wait(ctx context.Context) error {
	conn, err := b.cfg.handshake(ctx, b.id, b.ep, channelBarrier)
	if err != nil {
		return err
	}
	defer conn.Close()

	stop := watchContext(ctx, conn)
	defer stop()

	b.logger.Debug("waiting for the release pulse")
	var pulse [1]byte
	n, err := conn.Read(pulse[:])
	if n > 0 {
		return nil
	}

	if ctx.Err() != nil {
		return fmt.Errorf("%w: waiting on the barrier was interrupted: %w", ErrIO, context.Cause(ctx))
	}
	if err == nil || errors.Is(err, io.EOF) {
		return fmt.Errorf("%w: the barrier closed the connection without releasing us: %w", ErrIO, io.ErrUnexpectedEOF)
	}
	return fmt.Errorf("%w: could not read from the barrier socket: %w", ErrIO, err)
}
