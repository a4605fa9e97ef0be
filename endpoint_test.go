package rendezvous

import (
	"context"
	"errors"
	"net/netip"
	"testing"
	"time"

	"github.com/hashicorp/go-metrics"
	"github.com/stretchr/testify/require"
)

func TestResolve_LiteralSkipsLookup(t *testing.T) {
	resolver := &MockResolver{}

	addr, err := Resolve(context.Background(), "127.0.0.1", WithResolver(resolver))
	require.NoError(t, err)
	require.Equal(t, netip.AddrFrom4([4]byte{127, 0, 0, 1}), addr)
	resolver.AssertNotCalled(t, "LookupNetIP", "ip", "127.0.0.1")
	resolver.AssertExpectations(t)
}

func TestResolve_FirstIPv4Answer(t *testing.T) {
	resolver := &MockResolver{}
	resolver.On("LookupNetIP", "ip", "coordinator").Return([]netip.Addr{
		netip.MustParseAddr("fe80::1"),
		netip.MustParseAddr("::ffff:10.1.1.1"),
		netip.MustParseAddr("10.2.2.2"),
	}, nil).Once()

	sink := metrics.NewInmemSink(time.Second, time.Minute)
	addr, err := Resolve(
		context.Background(),
		"coordinator",
		WithResolver(resolver),
		WithMetricSink(sink),
		WithLog(testLogHandler("resolver")),
	)
	require.NoError(t, err)
	require.Equal(t, netip.MustParseAddr("10.1.1.1"), addr, "mapped answers must be unmapped")
	require.True(t, addr.Is4())
	resolver.AssertExpectations(t)
}

func TestResolve_Failures(t *testing.T) {
	resolver := &MockResolver{}
	resolver.On("LookupNetIP", "ip", "v6-only").Return([]netip.Addr{netip.MustParseAddr("2001:db8::1")}, nil)
	resolver.On("LookupNetIP", "ip", "nowhere").Return(nil, errors.New("no such host"))
	resolver.On("LookupNetIP", "ip", "empty").Return([]netip.Addr{}, nil)

	for _, token := range []string{"v6-only", "nowhere", "empty", "::1"} {
		t.Run(token, func(t *testing.T) {
			_, err := Resolve(context.Background(), token, WithResolver(resolver))
			require.ErrorIs(t, err, ErrResolution)
		})
	}
	resolver.AssertNotCalled(t, "LookupNetIP", "ip", "::1")
}

func TestParseEndpoint(t *testing.T) {
	ep, err := ParseEndpoint(context.Background(), "127.0.0.1:11000")
	require.NoError(t, err)
	require.Equal(t, uint64(0), ep.ID, "infrastructure endpoints have the 0 ID")
	require.Equal(t, "127.0.0.1:11000", ep.String())

	for _, bad := range []string{"127.0.0.1", "127.0.0.1:port", "127.0.0.1:70000", "[::1]:11000"} {
		_, err := ParseEndpoint(context.Background(), bad)
		require.ErrorIs(t, err, ErrResolution, bad)
	}
}

func TestEndpoint_NetworkByteOrder(t *testing.T) {
	ep, err := NewEndpoint(context.Background(), 4, "10.20.30.40", 0x2AF8)
	require.NoError(t, err)

	require.Equal(t, [4]byte{10, 20, 30, 40}, ep.AddrBytes())
	require.Equal(t, [2]byte{0x2A, 0xF8}, ep.PortBytes())
	require.Equal(t, netip.MustParseAddrPort("10.20.30.40:11000"), ep.AddrPort())
}

func TestOptions_Invalid(t *testing.T) {
	_, err := Resolve(context.Background(), "127.0.0.1", WithResolver(nil))
	require.ErrorIs(t, err, ErrInvalidCfg)

	_, err = NewBarrier(1, Endpoint{}, WithDialTimeout(-time.Second))
	require.ErrorIs(t, err, ErrInvalidCfg)
}
