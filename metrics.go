package rendezvous

import (
	"log/slog"

	"github.com/hashicorp/go-metrics"
)

var (
	MetricDialCount         = []string{"rendezvous", "dial", "count"}
	MetricDialErrorCount    = []string{"rendezvous", "dial", "error", "count"}
	MetricIDOutBytes        = []string{"rendezvous", "id", "out", "bytes"}
	MetricWriteRetryCount   = []string{"rendezvous", "write", "retry", "count"}
	MetricBarrierWait       = []string{"rendezvous", "barrier", "wait"}
	MetricBarrierReleased   = []string{"rendezvous", "barrier", "released", "count"}
	MetricBarrierErrorCount = []string{"rendezvous", "barrier", "error", "count"}
	MetricSignalFinished    = []string{"rendezvous", "signal", "finished", "count"}
	MetricResolveCount      = []string{"rendezvous", "resolve", "lookup", "count"}
)

type TelemetryLabel string

var (
	LabelError    TelemetryLabel = "error"
	LabelPeerAddr TelemetryLabel = "peer_addr"
	LabelPeerID   TelemetryLabel = "peer_id"
	LabelChannel  TelemetryLabel = "channel"
	LabelSelfID   TelemetryLabel = "self_id"
	LabelHost     TelemetryLabel = "host"
)

func (lab TelemetryLabel) M(val string) metrics.Label {
	return metrics.Label{Name: string(lab), Value: val}
}

func (lab TelemetryLabel) L(val any) slog.Attr {
	return slog.Attr{
		Key:   string(lab),
		Value: slog.AnyValue(val),
	}
}

// withLabels copies base before appending so shared label slices
// are never aliased between calls.
func withLabels(base []metrics.Label, extra ...metrics.Label) []metrics.Label {
	out := make([]metrics.Label, 0, len(base)+len(extra))
	out = append(out, base...)
	return append(out, extra...)
}
