package provision

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"inet.af/netaddr"

	"github.com/doogleit/hpe-oneview-misc/oa"
)

// OAAPI is the slice of the Onboard Administrator client the configuration
// sequence drives.
type OAAPI interface {
	EnclosureInfo(ctx context.Context) (oa.EnclosureInfo, error)
	SetEnclosureName(ctx context.Context, name string) error
	SetAssetTag(ctx context.Context, tag string) error
	SetRackName(ctx context.Context, rack string) error
	SetAlertmail(ctx context.Context, cfg oa.AlertmailConfig) error
	SetPowerMode(ctx context.Context, mode string) error
	SetNTP(ctx context.Context, cfg oa.NTPConfig) error
	SetNetworkMode(ctx context.Context, mode string) error
	SetFailover(ctx context.Context, enabled bool) error
	SetSNMP(ctx context.Context, cfg oa.SNMPConfig) error
	SetInterconnectBayIP(ctx context.Context, ip oa.BayIP) error
	SetDeviceBayIP(ctx context.Context, ip oa.BayIP) error
	AddUser(ctx context.Context, u oa.User) error
	AddLDAPGroup(ctx context.Context, g oa.LDAPGroup) error
	ConfigDump(ctx context.Context) (string, error)
}

// OASettings is everything the OA configuration sequence needs besides the
// site parameters, which are derived from the OA address.
type OASettings struct {
	OAIP          netaddr.IP
	EnclosureName string
	RackName      string
	AssetTag      string
	LastSlot      int
	PowerMode     string
	Users         []oa.User
	LDAPGroups    []oa.LDAPGroup
	// AuditDir receives the post-configuration dump, default cwd.
	AuditDir string
}

// OAResult reports what the sequence produced.
type OAResult struct {
	Site      string
	Plan      IPPlan
	AuditFile string
}

// ConfigureOA runs the ordered configuration sequence against a freshly
// racked enclosure: identity, alerting, power, time, network, failover,
// SNMP, EBIPA addressing, access grants, then a config dump for audit.
// There is no rollback; the first failing call aborts the sequence.
func ConfigureOA(ctx context.Context, client OAAPI, set OASettings, logger *zap.Logger) (OAResult, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	site, err := SiteFor(set.OAIP)
	if err != nil {
		return OAResult{}, err
	}
	plan, err := NewIPPlan(set.OAIP, set.LastSlot)
	if err != nil {
		return OAResult{}, err
	}
	logger.Info("configuring enclosure",
		zap.String("enclosure", set.EnclosureName),
		zap.String("site", site.Name),
		zap.String("oa", set.OAIP.String()))

	info, err := client.EnclosureInfo(ctx)
	if err != nil {
		return OAResult{}, err
	}

	// identity calls only when the value actually differs
	if info.Name != set.EnclosureName {
		if err := client.SetEnclosureName(ctx, set.EnclosureName); err != nil {
			return OAResult{}, err
		}
	}
	if set.AssetTag != "" && info.AssetTag != set.AssetTag {
		if err := client.SetAssetTag(ctx, set.AssetTag); err != nil {
			return OAResult{}, err
		}
	}
	if set.RackName != "" && info.RackName != set.RackName {
		if err := client.SetRackName(ctx, set.RackName); err != nil {
			return OAResult{}, err
		}
	}

	if err := client.SetAlertmail(ctx, oa.AlertmailConfig{
		Recipient: site.AlertmailRecipient,
		Domain:    site.AlertmailDomain,
	}); err != nil {
		return OAResult{}, err
	}

	powerMode := set.PowerMode
	if powerMode == "" {
		powerMode = "redundant"
	}
	if err := client.SetPowerMode(ctx, powerMode); err != nil {
		return OAResult{}, err
	}

	ntp := oa.NTPConfig{Primary: site.NTP[0], Timezone: site.Timezone}
	if len(site.NTP) > 1 {
		ntp.Secondary = site.NTP[1]
	}
	if err := client.SetNTP(ctx, ntp); err != nil {
		return OAResult{}, err
	}

	if err := client.SetNetworkMode(ctx, "static"); err != nil {
		return OAResult{}, err
	}
	if err := client.SetFailover(ctx, true); err != nil {
		return OAResult{}, err
	}
	if err := client.SetSNMP(ctx, oa.SNMPConfig{
		Community: site.SNMPCommunity,
		TrapSink:  site.SNMPTrapSink,
		Contact:   site.AlertmailRecipient + "@" + site.AlertmailDomain,
	}); err != nil {
		return OAResult{}, err
	}

	for i, ip := range plan.Interconnects {
		err := client.SetInterconnectBayIP(ctx, oa.BayIP{
			Bay:     i + 1,
			Address: ip.String(),
			Netmask: site.Netmask,
			Gateway: site.Gateway,
		})
		if err != nil {
			return OAResult{}, err
		}
	}
	for i, ip := range plan.DeviceBays {
		err := client.SetDeviceBayIP(ctx, oa.BayIP{
			Bay:     i + 1,
			Address: ip.String(),
			Netmask: site.Netmask,
			Gateway: site.Gateway,
		})
		if err != nil {
			return OAResult{}, err
		}
	}

	for _, u := range set.Users {
		if err := client.AddUser(ctx, u); err != nil {
			return OAResult{}, err
		}
	}
	for _, g := range set.LDAPGroups {
		if err := client.AddLDAPGroup(ctx, g); err != nil {
			return OAResult{}, err
		}
	}

	dump, err := client.ConfigDump(ctx)
	if err != nil {
		return OAResult{}, err
	}
	audit := filepath.Join(set.AuditDir, auditFilename(set.EnclosureName, time.Now()))
	if err := os.WriteFile(audit, []byte(dump), 0o644); err != nil {
		return OAResult{}, errors.Wrap(err, "write audit dump")
	}
	logger.Info("enclosure configured", zap.String("audit", audit))

	return OAResult{Site: site.Name, Plan: plan, AuditFile: audit}, nil
}

func auditFilename(enclosure string, now time.Time) string {
	return "OAConfig_" + enclosure + "_" + now.Format("2006.01.02") + ".txt"
}
