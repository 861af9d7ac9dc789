package collect

import (
	"context"

	"go.uber.org/zap"

	"github.com/doogleit/hpe-oneview-misc/oneview"
	"github.com/doogleit/hpe-oneview-misc/report"
)

// StatsSource is the slice of the appliance API the statistics collector needs.
type StatsSource interface {
	interconnectSource
	PortStatistics(ctx context.Context, interconnectURI, portName string) (oneview.PortStatistics, error)
}

// PortStats emits one record per linked Ethernet uplink port carrying the
// most recent sample of each rate metric. Kilobit rates are converted to
// megabits when Options.Mbps is set; packet rates always pass through raw.
func PortStats(ctx context.Context, src StatsSource, opts Options) ([]report.PortStats, Summary, error) {
	log := opts.logger()

	ics, err := scopedInterconnects(ctx, src, opts)
	if err != nil {
		return nil, Summary{}, err
	}

	var records []report.PortStats
	var sum Summary
	for _, ic := range ics {
		if !wantInterconnect(ic) {
			log.Debug("skipping interconnect", zap.String("name", ic.Name), zap.String("model", ic.Model))
			sum.Skipped++
			continue
		}
		for _, p := range ic.Ports {
			if !wantPort(p) {
				sum.Skipped++
				continue
			}

			ps, err := src.PortStatistics(ctx, ic.URI, p.PortName)
			if err != nil {
				if opts.SkipErrors {
					log.Warn("skipping port, statistics fetch failed",
						zap.String("port", p.PortName), zap.Error(err))
					sum.Skipped++
					continue
				}
				return records, sum, err
			}

			rec := report.PortStats{
				Enclosure:    ic.EnclosureName,
				Interconnect: ic.Name,
				Port:         p.PortName,
				RxRate:       report.FirstSample(ps.AdvancedStatistics.ReceiveKilobitsPerSecond),
				TxRate:       report.FirstSample(ps.AdvancedStatistics.TransmitKilobitsPerSecond),
				RxPackets:    report.FirstSample(ps.AdvancedStatistics.ReceivePacketsPerSecond),
				TxPackets:    report.FirstSample(ps.AdvancedStatistics.TransmitPacketsPerSecond),
			}

			if opts.Mbps {
				rec.RxRate, err = report.ToMbps(rec.RxRate)
				if err == nil {
					rec.TxRate, err = report.ToMbps(rec.TxRate)
				}
				if err != nil {
					if opts.SkipErrors {
						log.Warn("skipping port, rate conversion failed",
							zap.String("port", p.PortName), zap.Error(err))
						sum.Skipped++
						continue
					}
					return records, sum, err
				}
			}

			records = append(records, rec)
			sum.Emitted++
		}
	}
	return records, sum, nil
}
