package collect

import (
	"context"

	"go.uber.org/zap"

	"github.com/doogleit/hpe-oneview-misc/oneview"
	"github.com/doogleit/hpe-oneview-misc/report"
)

// WarrantySource is the slice of the appliance API the warranty collector needs.
type WarrantySource interface {
	Enclosures(ctx context.Context) ([]oneview.Enclosure, error)
	EnclosureByName(ctx context.Context, name string) (oneview.Enclosure, error)
	ServerHardware(ctx context.Context) ([]oneview.ServerHardware, error)
	ServerHardwareByName(ctx context.Context, name string) (oneview.ServerHardware, error)
	Entitlement(ctx context.Context, resourceURI string) (oneview.Entitlement, error)
}

// WarrantyScope restricts the warranty report to a single named object. Both
// fields empty means all servers and all enclosures.
type WarrantyScope struct {
	Enclosure string
	Server    string
}

// Warranty emits one entitlement record per matching server and enclosure.
func Warranty(ctx context.Context, src WarrantySource, scope WarrantyScope, opts Options) ([]report.Warranty, Summary, error) {
	log := opts.logger()

	var servers []oneview.ServerHardware
	var enclosures []oneview.Enclosure
	var err error

	switch {
	case scope.Server != "":
		var s oneview.ServerHardware
		if s, err = src.ServerHardwareByName(ctx, scope.Server); err != nil {
			return nil, Summary{}, err
		}
		servers = []oneview.ServerHardware{s}
	case scope.Enclosure != "":
		var e oneview.Enclosure
		if e, err = src.EnclosureByName(ctx, scope.Enclosure); err != nil {
			return nil, Summary{}, err
		}
		enclosures = []oneview.Enclosure{e}
	default:
		if servers, err = src.ServerHardware(ctx); err != nil {
			return nil, Summary{}, err
		}
		if enclosures, err = src.Enclosures(ctx); err != nil {
			return nil, Summary{}, err
		}
	}

	var records []report.Warranty
	var sum Summary

	for _, s := range servers {
		ent, err := src.Entitlement(ctx, s.URI)
		if err != nil {
			if opts.SkipErrors {
				log.Warn("skipping server, entitlement fetch failed",
					zap.String("server", s.Name), zap.Error(err))
				sum.Skipped++
				continue
			}
			return records, sum, err
		}

		model := s.Model
		if model == "" {
			model = s.EnclosureModel
		}
		records = append(records, report.Warranty{
			Name:              s.Name,
			Model:             model,
			PartNumber:        s.PartNumber,
			SerialNumber:      s.SerialNumber,
			ObligationID:      ent.ObligationID,
			ObligationEndDate: ent.ObligationEndDate,
			EntitlementStatus: ent.EntitlementStatus,
		})
		sum.Emitted++
	}

	for _, e := range enclosures {
		ent, err := src.Entitlement(ctx, e.URI)
		if err != nil {
			if opts.SkipErrors {
				log.Warn("skipping enclosure, entitlement fetch failed",
					zap.String("enclosure", e.Name), zap.Error(err))
				sum.Skipped++
				continue
			}
			return records, sum, err
		}

		records = append(records, report.Warranty{
			Name:              e.Name,
			Model:             e.Model,
			PartNumber:        e.PartNumber,
			SerialNumber:      e.SerialNumber,
			ObligationID:      ent.ObligationID,
			ObligationEndDate: ent.ObligationEndDate,
			EntitlementStatus: ent.EntitlementStatus,
		})
		sum.Emitted++
	}

	return records, sum, nil
}
