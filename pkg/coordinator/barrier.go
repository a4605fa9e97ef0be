package coordinator

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/raskyld/rendezvous"
)

// releasePulse is what unblocks a waiting worker. Its content is not
// interpreted.
var releasePulse = []byte{1}

// BarrierServer blocks workers until a given number of them reached it.
type BarrierServer struct {
	*server
}

// ListenBarrier listens on addr for `expected` workers.
func ListenBarrier(addr string, expected int, opts ...Option) (*BarrierServer, error) {
	srv, err := listen(addr, expected, "barrier", opts)
	if err != nil {
		return nil, err
	}
	return &BarrierServer{srv}, nil
}

type waiter struct {
	id   uint64
	conn net.Conn
}

// Wait accepts workers until the expected number of them announced
// their ID, then releases them all. It returns the IDs in order of
// arrival.
//
// Wait can be called again for the next synchronisation phase.
func (bs *BarrierServer) Wait(ctx context.Context) ([]uint64, error) {
	stop := context.AfterFunc(ctx, func() {
		bs.ln.SetDeadline(time.Now())
	})
	defer func() {
		stop()
		bs.ln.SetDeadline(time.Time{})
	}()

	waiters := make([]waiter, 0, bs.expected)
	abort := func(err error) ([]uint64, error) {
		for _, w := range waiters {
			w.conn.Close()
		}
		if ctx.Err() != nil {
			return nil, fmt.Errorf("%w: %w", ErrAccept, context.Cause(ctx))
		}
		return nil, fmt.Errorf("%w: %w", ErrAccept, err)
	}

	for len(waiters) < bs.expected {
		conn, err := bs.ln.Accept()
		if err != nil {
			return abort(err)
		}

		logger := bs.logger.With(rendezvous.LabelPeerAddr.L(conn.RemoteAddr().String()))
		conn.SetReadDeadline(time.Now().Add(bs.cfg.announceTimeout))
		stopRead := context.AfterFunc(ctx, func() {
			conn.SetReadDeadline(time.Now())
		})
		id, err := readID(conn)
		if !stopRead() {
			conn.Close()
			return abort(err)
		}
		if err != nil {
			logger.Warn("dropping worker", rendezvous.LabelError.L(err))
			bs.cfg.msink.IncrCounterWithLabels(MetricAnnounceErrorCount, 1.0, bs.cfg.metricLabels)
			conn.Close()
			continue
		}
		conn.SetReadDeadline(time.Time{})

		logger.Info("worker reached the barrier", rendezvous.LabelPeerID.L(id))
		bs.cfg.msink.IncrCounterWithLabels(MetricWorkersAnnounced, 1.0, bs.cfg.metricLabels)
		waiters = append(waiters, waiter{id: id, conn: conn})
	}

	ids := make([]uint64, len(waiters))
	for i, w := range waiters {
		ids[i] = w.id
		if err := rendezvous.WriteAll(w.conn, releasePulse); err != nil {
			bs.logger.Warn("could not release worker", rendezvous.LabelPeerID.L(w.id), rendezvous.LabelError.L(err))
		} else {
			bs.cfg.msink.IncrCounterWithLabels(MetricWorkersReleased, 1.0, bs.cfg.metricLabels)
		}
		w.conn.Close()
	}

	bs.logger.Info("barrier released", "workers", len(ids))
	return ids, nil
}
