// Package collect turns appliance resources into flat report records. The
// collectors operate on narrow source interfaces so they can be tested
// against fakes.
package collect

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/doogleit/hpe-oneview-misc/oneview"
)

// interconnects with other model strings are invisible to the reports
const interconnectModelFilter = "FlexFabric"

// Options control scope and failure semantics shared by the collectors.
type Options struct {
	// Scope restricts the run to a single named entity, empty means all.
	Scope string
	// SkipErrors logs and skips a failing per-entity fetch instead of
	// aborting the run.
	SkipErrors bool
	// Mbps converts kilobit rates to megabits (statistics collector only).
	Mbps   bool
	Logger *zap.Logger
}

func (o Options) logger() *zap.Logger {
	if o.Logger == nil {
		return zap.NewNop()
	}
	return o.Logger
}

// Summary reports what a collector run visited and produced.
type Summary struct {
	Emitted int
	Skipped int
}

type interconnectSource interface {
	Interconnects(ctx context.Context) ([]oneview.Interconnect, error)
	InterconnectByName(ctx context.Context, name string) (oneview.Interconnect, error)
}

func wantInterconnect(ic oneview.Interconnect) bool {
	return strings.Contains(ic.Model, interconnectModelFilter)
}

func wantPort(p oneview.Port) bool {
	if p.PortType != "Uplink" || p.PortStatus != "Linked" {
		return false
	}
	for _, c := range p.Capability {
		if c == "Ethernet" {
			return true
		}
	}
	return false
}

// scopedInterconnects resolves the option scope to the set of interconnects
// to visit. Model filtering applies in both scoped and unscoped runs.
func scopedInterconnects(ctx context.Context, src interconnectSource, opts Options) ([]oneview.Interconnect, error) {
	if opts.Scope != "" {
		ic, err := src.InterconnectByName(ctx, opts.Scope)
		if err != nil {
			return nil, err
		}
		return []oneview.Interconnect{ic}, nil
	}
	return src.Interconnects(ctx)
}
