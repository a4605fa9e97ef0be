package rendezvous

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"net/netip"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseHosts_SortedPermutation(t *testing.T) {
	for _, n := range []int{2, 3, 7, 32} {
		t.Run(fmt.Sprintf("%d hosts", n), func(t *testing.T) {
			var content strings.Builder
			for _, i := range rand.Perm(n) {
				id := i + 1
				fmt.Fprintf(&content, "%d 127.0.0.%d %d\n", id, id, 11000+id)
			}

			table, err := ParseHosts(context.Background(), writeHostsFile(t, content.String()), WithLog(testLogHandler("hosts")))
			require.NoError(t, err)
			require.Equal(t, n, table.Len())

			for rank, host := range table.Hosts() {
				require.Equal(t, uint64(rank+1), host.ID, "table must be sorted by ID")
				require.Equal(t, netip.AddrFrom4([4]byte{127, 0, 0, byte(rank + 1)}), host.Addr)
				require.Equal(t, uint16(11001+rank), host.Port)
			}
		})
	}
}

func TestParseHosts_Whitespace(t *testing.T) {
	content := "\n   \n\t2   127.0.0.1\t11002  \n\n  1 127.0.0.1 11001\n\n"
	table, err := ParseHosts(context.Background(), writeHostsFile(t, content))
	require.NoError(t, err)
	require.Equal(t, 2, table.Len())

	first, err := table.Get(1)
	require.NoError(t, err)
	require.Equal(t, uint16(11001), first.Port)
}

func TestParseHosts_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{
			name:    "single record",
			content: "1 127.0.0.1 11001\n",
		},
		{
			name:    "blank lines do not count",
			content: "\n\n1 127.0.0.1 11001\n   \n",
		},
		{
			name:    "empty file",
			content: "",
		},
		{
			name:    "gap in IDs",
			content: "1 127.0.0.1 11001\n2 127.0.0.1 11002\n4 127.0.0.1 11004\n",
		},
		{
			name:    "max is not N",
			content: "1 127.0.0.1 11001\n3 127.0.0.1 11003\n",
		},
		{
			name:    "min is not 1",
			content: "2 127.0.0.1 11002\n3 127.0.0.1 11003\n",
		},
		{
			name:    "duplicate IDs",
			content: "1 127.0.0.1 11001\n1 127.0.0.1 11002\n3 127.0.0.1 11003\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseHosts(context.Background(), writeHostsFile(t, tt.content))
			require.ErrorIs(t, err, ErrConfig)
		})
	}
}

func TestParseHosts_LineErrors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		line    int
	}{
		{
			name:    "missing port",
			content: "1 127.0.0.1 11001\n\n2 127.0.0.1\n",
			line:    3,
		},
		{
			name:    "extra field",
			content: "1 127.0.0.1 11001 extra\n2 127.0.0.1 11002\n",
			line:    1,
		},
		{
			name:    "zero ID",
			content: "1 127.0.0.1 11001\n0 127.0.0.1 11002\n",
			line:    2,
		},
		{
			name:    "negative ID",
			content: "-1 127.0.0.1 11001\n2 127.0.0.1 11002\n",
			line:    1,
		},
		{
			name:    "port out of range",
			content: "1 127.0.0.1 11001\n2 127.0.0.1 65536\n",
			line:    2,
		},
		{
			name:    "port not a number",
			content: "1 127.0.0.1 http\n2 127.0.0.1 11002\n",
			line:    1,
		},
		{
			name:    "IPv6 literal",
			content: "1 127.0.0.1 11001\n\n\n2 ::1 11002\n",
			line:    4,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseHosts(context.Background(), writeHostsFile(t, tt.content))
			require.ErrorIs(t, err, ErrConfig)

			var lerr *LineError
			require.True(t, errors.As(err, &lerr), "expected a LineError, got %v", err)
			require.Equal(t, tt.line, lerr.Line)
			require.Contains(t, err.Error(), fmt.Sprintf("line %d", tt.line))
		})
	}
}

func TestParseHosts_MissingFile(t *testing.T) {
	_, err := ParseHosts(context.Background(), filepath.Join(t.TempDir(), "nope"))
	require.ErrorIs(t, err, ErrConfig)
}

func TestParseHosts_Hostnames(t *testing.T) {
	resolver := &MockResolver{}
	resolver.On("LookupNetIP", "ip", "node-a").Return([]netip.Addr{netip.MustParseAddr("10.0.0.1")}, nil)
	resolver.On("LookupNetIP", "ip", "node-b").Return([]netip.Addr{netip.MustParseAddr("10.0.0.2")}, nil)
	resolver.On("LookupNetIP", "ip", "ghost").Return(nil, errors.New("no such host"))

	table, err := ReadHosts(
		context.Background(),
		strings.NewReader("2 node-b 11002\n1 node-a 11001\n"),
		"inline",
		WithResolver(resolver),
	)
	require.NoError(t, err)
	require.Equal(t, []Endpoint{
		{ID: 1, Addr: netip.MustParseAddr("10.0.0.1"), Port: 11001},
		{ID: 2, Addr: netip.MustParseAddr("10.0.0.2"), Port: 11002},
	}, table.Hosts())

	_, err = ReadHosts(
		context.Background(),
		strings.NewReader("1 node-a 11001\n2 ghost 11002\n"),
		"inline",
		WithResolver(resolver),
	)
	require.ErrorIs(t, err, ErrConfig)
	require.ErrorIs(t, err, ErrResolution)
	resolver.AssertExpectations(t)
}

func TestPeerTable_Accessors(t *testing.T) {
	table, err := ReadHosts(
		context.Background(),
		strings.NewReader("3 127.0.0.3 3\n1 127.0.0.1 1\n2 127.0.0.2 2\n"),
		"inline",
	)
	require.NoError(t, err)

	require.True(t, table.Contains(1))
	require.True(t, table.Contains(3))
	require.False(t, table.Contains(0))
	require.False(t, table.Contains(4))

	rank, err := table.Rank(2)
	require.NoError(t, err)
	require.Equal(t, 1, rank)

	_, err = table.Get(4)
	require.ErrorIs(t, err, ErrUnknownID)
	_, err = table.Rank(0)
	require.ErrorIs(t, err, ErrUnknownID)

	others := table.Others(2)
	require.Len(t, others, 2)
	require.Equal(t, uint64(1), others[0].ID)
	require.Equal(t, uint64(3), others[1].ID)

	hosts := table.Hosts()
	hosts[0].Port = 9999
	first, err := table.Get(1)
	require.NoError(t, err)
	require.Equal(t, uint16(1), first.Port, "Hosts must return a copy")
}
