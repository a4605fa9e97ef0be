package coordinator

import (
	"cmp"
	"context"
	"fmt"
	"io"
	"net"
	"slices"
	"sync"
	"time"

	"github.com/raskyld/rendezvous"
)

// SignalServer records when each worker closes its signal connection,
// that is, when it finished broadcasting.
type SignalServer struct {
	*server
}

// ListenSignal listens on addr for `expected` workers.
func ListenSignal(addr string, expected int, opts ...Option) (*SignalServer, error) {
	srv, err := listen(addr, expected, "signal", opts)
	if err != nil {
		return nil, err
	}
	return &SignalServer{srv}, nil
}

// FinishTime is the moment a process closed its signal connection.
type FinishTime struct {
	ID uint64
	At time.Time
}

type finish struct {
	FinishTime
	err error
}

// Wait returns once `expected` distinct workers announced themselves and
// closed their connection.
func (ss *SignalServer) Wait(ctx context.Context) (map[uint64]time.Time, error) {
	results := make(chan finish)
	done := make(chan struct{})
	conns := make(map[net.Conn]struct{})
	var (
		lk sync.Mutex
		wg sync.WaitGroup
	)

	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			conn, err := ss.ln.Accept()
			if err != nil {
				select {
				case <-done:
				default:
					ss.logger.Error("could not accept worker", rendezvous.LabelError.L(err))
				}
				return
			}

			lk.Lock()
			select {
			case <-done:
				lk.Unlock()
				conn.Close()
				return
			default:
			}
			conns[conn] = struct{}{}
			lk.Unlock()

			wg.Add(1)
			go func() {
				defer wg.Done()
				f := ss.track(conn)

				lk.Lock()
				delete(conns, conn)
				lk.Unlock()
				conn.Close()

				select {
				case <-done:
				case results <- f:
				}
			}()
		}
	}()

	defer func() {
		lk.Lock()
		close(done)
		for conn := range conns {
			conn.Close()
		}
		lk.Unlock()
		ss.ln.SetDeadline(time.Now())
		wg.Wait()
		ss.ln.SetDeadline(time.Time{})
	}()

	ends := make(map[uint64]time.Time, ss.expected)
	for len(ends) < ss.expected {
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("%w: %d/%d workers finished: %w", ErrAccept, len(ends), ss.expected, context.Cause(ctx))
		case f := <-results:
			if f.err != nil {
				ss.logger.Warn("dropping worker", rendezvous.LabelError.L(f.err))
				continue
			}
			if _, ok := ends[f.ID]; ok {
				ss.logger.Warn("process finished more than once", rendezvous.LabelPeerID.L(f.ID))
			}
			ends[f.ID] = f.At
		}
	}
	return ends, nil
}

func (ss *SignalServer) track(conn net.Conn) finish {
	logger := ss.logger.With(rendezvous.LabelPeerAddr.L(conn.RemoteAddr().String()))

	id, err := readID(conn)
	if err != nil {
		ss.cfg.msink.IncrCounterWithLabels(MetricAnnounceErrorCount, 1.0, ss.cfg.metricLabels)
		return finish{err: err}
	}
	ss.cfg.msink.IncrCounterWithLabels(MetricWorkersAnnounced, 1.0, ss.cfg.metricLabels)
	logger = logger.With(rendezvous.LabelPeerID.L(id))
	logger.Info("connection from worker")

	n, err := io.Copy(io.Discard, conn)
	at := time.Now()
	if err != nil {
		return finish{FinishTime: FinishTime{ID: id}, err: fmt.Errorf("process %d: %w", id, err)}
	}
	if n > 0 {
		logger.Warn("worker sent unexpected bytes on the signal channel", "bytes", n)
	}

	ss.cfg.msink.IncrCounterWithLabels(MetricWorkersFinished, 1.0, ss.cfg.metricLabels)
	logger.Info("worker finished broadcasting")
	return finish{FinishTime: FinishTime{ID: id, At: at}}
}

// SortedFinishTimes orders the result of `SignalServer.Wait` by PID.
func SortedFinishTimes(ends map[uint64]time.Time) []FinishTime {
	out := make([]FinishTime, 0, len(ends))
	for id, at := range ends {
		out = append(out, FinishTime{ID: id, At: at})
	}
	slices.SortFunc(out, func(a, b FinishTime) int {
		return cmp.Compare(a.ID, b.ID)
	})
	return out
}
