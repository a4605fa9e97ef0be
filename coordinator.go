package rendezvous

import "context"

// Coordinator gathers both channels a worker keeps with the coordinator
// of a run.
type Coordinator struct {
	id      uint64
	barrier *Barrier
	signal  *Signal
}

// NewCoordinator eagerly connects the signal channel. The barrier is
// only reached on `Coordinator.WaitOnBarrier`.
func NewCoordinator(ctx context.Context, id uint64, barrier, signal Endpoint, opts ...Option) (*Coordinator, error) {
	b, err := NewBarrier(id, barrier, opts...)
	if err != nil {
		return nil, err
	}

	s, err := DialSignal(ctx, id, signal, opts...)
	if err != nil {
		return nil, err
	}

	return &Coordinator{
		id:      id,
		barrier: b,
		signal:  s,
	}, nil
}

// ID is our own process ID.
func (co *Coordinator) ID() uint64 {
	return co.id
}

// WaitOnBarrier blocks until every process reached the barrier.
// See `Barrier.Wait`.
func (co *Coordinator) WaitOnBarrier(ctx context.Context) error {
	return co.barrier.Wait(ctx)
}

// FinishedBroadcasting tells the coordinator we are done.
func (co *Coordinator) FinishedBroadcasting() error {
	return co.signal.Finish()
}
