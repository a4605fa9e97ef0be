package rendezvous

import (
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	leg_metrics "github.com/armon/go-metrics"
	"github.com/hashicorp/memberlist"
)

const gossipNamePrefix = "p"

// GossipConfig prepares the bootstrap of a `memberlist` cluster made of
// the processes of the table, once they went through the barrier.
//
// The returned config binds the local node on the endpoint of self and
// names every member after its process ID. The returned neighbours are
// the `host:port` of every other process, ready for `memberlist.Join`.
//
// If base is nil, `memberlist.DefaultLANConfig` is used. base is never
// mutated.
func (pt *PeerTable) GossipConfig(self uint64, base *memberlist.Config, opts ...Option) (*memberlist.Config, []string, error) {
	cfg, err := newConfig(opts)
	if err != nil {
		return nil, nil, err
	}

	local, err := pt.Get(self)
	if err != nil {
		return nil, nil, err
	}

	var mlCfg memberlist.Config
	if base == nil {
		mlCfg = *memberlist.DefaultLANConfig()
	} else {
		mlCfg = *base
	}

	mlCfg.Name = GossipName(self)
	mlCfg.BindAddr = local.Addr.String()
	mlCfg.BindPort = int(local.Port)
	mlCfg.AdvertiseAddr = local.Addr.String()
	mlCfg.AdvertisePort = int(local.Port)
	mlCfg.Events = &gossipEvents{logger: cfg.logger.With(LabelSelfID.L(self))}

	// TODO(raskyld): drop the translation once memberlist uses the
	// hashicorp labels.
	if len(cfg.metricLabels) > 0 {
		mlCfg.MetricLabels = make([]leg_metrics.Label, len(cfg.metricLabels))
		for i, label := range cfg.metricLabels {
			mlCfg.MetricLabels[i] = leg_metrics.Label{
				Name:  label.Name,
				Value: label.Value,
			}
		}
	}

	others := pt.Others(self)
	neighbours := make([]string, len(others))
	for i, host := range others {
		neighbours[i] = host.String()
	}

	return &mlCfg, neighbours, nil
}

// GossipName is the memberlist node name of a process.
func GossipName(id uint64) string {
	return gossipNamePrefix + strconv.FormatUint(id, 10)
}

// GossipID reverses `GossipName`.
func GossipID(name string) (uint64, error) {
	raw, ok := strings.CutPrefix(name, gossipNamePrefix)
	if !ok {
		return 0, fmt.Errorf("%w: `%s` is not a process name", ErrUnknownID, name)
	}
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: `%s` is not a process name", ErrUnknownID, name)
	}
	return id, nil
}

type gossipEvents struct {
	logger *slog.Logger
}

func (g *gossipEvents) NotifyJoin(node *memberlist.Node) {
	withLogNode(g.logger, node).Info("peer joined cluster")
}

func (g *gossipEvents) NotifyLeave(node *memberlist.Node) {
	withLogNode(g.logger, node).Info("peer left cluster")
}

func (g *gossipEvents) NotifyUpdate(node *memberlist.Node) {
	withLogNode(g.logger, node).Info("peer updated")
}

func withLogNode(logger *slog.Logger, node *memberlist.Node) *slog.Logger {
	attrs := []any{LabelPeerAddr.L(node.Address())}
	if id, err := GossipID(node.Name); err == nil {
		attrs = append(attrs, LabelPeerID.L(id))
	}
	return logger.With(attrs...)
}
