package rendezvous

import (
	"context"
	"encoding/binary"
	"fmt"
	"log/slog"
	"net"
	"net/netip"
	"strconv"
)

// Resolver performs hostname lookups. `*net.Resolver` satisfies it.
type Resolver interface {
	LookupNetIP(ctx context.Context, network, host string) ([]netip.Addr, error)
}

// Endpoint is an IPv4 TCP endpoint owned by a logical process.
// The 0 ID is reserved for the barrier and signal endpoints.
type Endpoint struct {
	ID   uint64
	Addr netip.Addr
	Port uint16
}

// NewEndpoint resolves token and binds the result to id and port.
func NewEndpoint(ctx context.Context, id uint64, token string, port uint16, opts ...Option) (Endpoint, error) {
	cfg, err := newConfig(opts)
	if err != nil {
		return Endpoint{}, err
	}
	return cfg.endpoint(ctx, id, token, port)
}

// ParseEndpoint turns a `host:port` string into an infrastructure
// endpoint, that is, one with the 0 ID.
func ParseEndpoint(ctx context.Context, hostport string, opts ...Option) (Endpoint, error) {
	cfg, err := newConfig(opts)
	if err != nil {
		return Endpoint{}, err
	}

	host, rawPort, err := net.SplitHostPort(hostport)
	if err != nil {
		return Endpoint{}, fmt.Errorf("%w: `%s`: %w", ErrResolution, hostport, err)
	}

	port, err := strconv.ParseUint(rawPort, 10, 16)
	if err != nil {
		return Endpoint{}, fmt.Errorf("%w: `%s`: invalid port: %w", ErrResolution, hostport, err)
	}

	return cfg.endpoint(ctx, 0, host, uint16(port))
}

// Resolve returns the IPv4 address designated by token.
//
// Dotted-quad literals are parsed without any network access, anything
// else is looked up and the first IPv4 answer wins.
func Resolve(ctx context.Context, token string, opts ...Option) (netip.Addr, error) {
	cfg, err := newConfig(opts)
	if err != nil {
		return netip.Addr{}, err
	}
	return cfg.resolve(ctx, token)
}

func (c *config) endpoint(ctx context.Context, id uint64, token string, port uint16) (Endpoint, error) {
	addr, err := c.resolve(ctx, token)
	if err != nil {
		return Endpoint{}, err
	}
	return Endpoint{ID: id, Addr: addr, Port: port}, nil
}

func (c *config) resolve(ctx context.Context, token string) (netip.Addr, error) {
	if literal, err := netip.ParseAddr(token); err == nil {
		if literal.Is4() {
			return literal, nil
		}
		return netip.Addr{}, fmt.Errorf("%w: `%s` is not an IPv4 literal", ErrResolution, token)
	}

	c.msink.IncrCounterWithLabels(MetricResolveCount, 1.0, withLabels(c.metricLabels, LabelHost.M(token)))
	answers, err := c.resolver.LookupNetIP(ctx, "ip", token)
	if err != nil {
		return netip.Addr{}, fmt.Errorf("%w: could not resolve host `%s`: %w", ErrResolution, token, err)
	}

	for _, answer := range answers {
		answer = answer.Unmap()
		if answer.Is4() {
			c.logger.Debug("resolved host", LabelHost.L(token), LabelPeerAddr.L(answer.String()))
			return answer, nil
		}
	}

	return netip.Addr{}, fmt.Errorf("%w: no answer for `%s` is IPv4", ErrResolution, token)
}

// AddrPort joins the address and port of the endpoint.
func (ep Endpoint) AddrPort() netip.AddrPort {
	return netip.AddrPortFrom(ep.Addr, ep.Port)
}

// AddrBytes is the address in network byte order.
func (ep Endpoint) AddrBytes() [4]byte {
	return ep.Addr.As4()
}

// PortBytes is the port in network byte order.
func (ep Endpoint) PortBytes() [2]byte {
	var out [2]byte
	binary.BigEndian.PutUint16(out[:], ep.Port)
	return out
}

// String returns the `addr:port` form, suitable for dialing.
func (ep Endpoint) String() string {
	return ep.AddrPort().String()
}

// LogValue implements `slog.LogValuer`.
func (ep Endpoint) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Uint64("id", ep.ID),
		slog.String("addr", ep.Addr.String()),
		slog.Int("port", int(ep.Port)),
	)
}
