package rendezvous

import (
	"context"
	"log/slog"
	"net/netip"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/hashicorp/go-metrics"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func testLogHandler(emitter string) slog.Handler {
	return slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level:     slog.LevelDebug,
		AddSource: true,
	}).WithAttrs([]slog.Attr{
		{Key: "emitter", Value: slog.StringValue(emitter)},
	})
}

type MockResolver struct {
	mock.Mock
}

func (r *MockResolver) LookupNetIP(ctx context.Context, network, host string) ([]netip.Addr, error) {
	args := r.Called(network, host)
	addrs, _ := args.Get(0).([]netip.Addr)
	return addrs, args.Error(1)
}

func writeHostsFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "hosts")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

// counted sums what sink recorded under key, labels aside, and tells how
// many times it was recorded.
func counted(sink *metrics.InmemSink, key []string) (sum float64, count int) {
	name := strings.Join(key, ".")
	for _, interval := range sink.Data() {
		interval.RLock()
		for _, series := range []map[string]metrics.SampledValue{interval.Counters, interval.Samples} {
			for _, value := range series {
				if value.Name == name {
					sum += value.Sum
					count += value.Count
				}
			}
		}
		interval.RUnlock()
	}
	return sum, count
}
