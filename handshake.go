package rendezvous

import (
	"context"
	"fmt"
	"net"
	"time"
)

const (
	channelBarrier = "barrier"
	channelSignal  = "signal"
)

// handshake connects to ep and announces self.
func (c *config) handshake(ctx context.Context, self uint64, ep Endpoint, channel string) (net.Conn, error) {
	labels := withLabels(c.metricLabels, LabelChannel.M(channel), LabelPeerAddr.M(ep.String()))
	logger := c.logger.With(LabelChannel.L(channel), LabelPeerAddr.L(ep.String()))

	dialCtx := ctx
	if c.dialTimeout > 0 {
		var cancel context.CancelFunc
		dialCtx, cancel = context.WithTimeout(ctx, c.dialTimeout)
		defer cancel()
	}

	c.msink.IncrCounterWithLabels(MetricDialCount, 1.0, labels)
	conn, err := c.dialer.DialContext(dialCtx, "tcp4", ep.String())
	if err != nil {
		c.msink.IncrCounterWithLabels(MetricDialErrorCount, 1.0, labels)
		return nil, fmt.Errorf("%w: could not connect to the %s: %w", ErrIO, channel, err)
	}
	logger.Debug("connected")

	stop := watchContext(ctx, conn)
	id := EncodeID(self)
	retries, err := writeAll(conn, id[:])
	if retries > 0 {
		c.msink.IncrCounterWithLabels(MetricWriteRetryCount, float32(retries), labels)
	}
	if !stop() {
		conn.Close()
		return nil, fmt.Errorf("%w: sending my process ID to the %s was interrupted: %w", ErrIO, channel, context.Cause(ctx))
	}
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("%w: could not send my process ID to the %s: %w", ErrIO, channel, err)
	}
	c.msink.IncrCounterWithLabels(MetricIDOutBytes, float32(len(id)), labels)

	logger.Debug("process ID sent", LabelSelfID.L(self))
	return conn, nil
}

// watchContext makes blocking I/O on conn return once ctx is done, so
// ctx.Err() is always set when such I/O fails because of it.
// The returned function reports false if ctx was already done.
func watchContext(ctx context.Context, conn net.Conn) func() bool {
	return context.AfterFunc(ctx, func() {
		conn.SetDeadline(time.Now())
	})
}
