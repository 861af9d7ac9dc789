package provision

import (
	"context"
	"sync"

	"github.com/gammazero/workerpool"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/doogleit/hpe-oneview-misc/ilo"
)

// HostState names a station in the per-host provisioning workflow.
type HostState string

const (
	StateUnconfigured      HostState = "Unconfigured"
	StateNetworkConfigured HostState = "NetworkConfigured"
	StateReachable         HostState = "Reachable"
	StateFirmwareCurrent   HostState = "FirmwareCurrent"
	StatePoweredOff        HostState = "PoweredOff"
	StateBootMediaMounted  HostState = "BootMediaMounted"
	StateBooting           HostState = "Booting"
	StateMediaEjected      HostState = "MediaEjected"
)

// ILOAPI is the slice of the iLO client the workflow drives.
type ILOAPI interface {
	Ping(ctx context.Context) error
	SetNetwork(ctx context.Context, cfg ilo.NetworkConfig) error
	FirmwareVersion(ctx context.Context) (string, error)
	UpdateFirmware(ctx context.Context, imageURI string) error
	PowerState(ctx context.Context) (string, error)
	SetPower(ctx context.Context, resetType string) error
	VirtualMediaInserted(ctx context.Context) (bool, error)
	InsertVirtualMedia(ctx context.Context, imageURL string) error
	EjectVirtualMedia(ctx context.Context) error
	SetOneTimeBoot(ctx context.Context, target string) error
	SetBootOrder(ctx context.Context, order []string) error
	SetBIOSAttributes(ctx context.Context, attrs map[string]interface{}) error
}

// Dialer opens a fresh connection to one host's iLO. Each target gets its
// own connection, there is no shared state between hosts.
type Dialer func(h Host) (ILOAPI, error)

// RackConfig is the run-wide configuration of the rack workflow.
type RackConfig struct {
	// FirmwareVersion is the version every host must run; hosts behind it
	// are flashed from FirmwareImage.
	FirmwareVersion string
	FirmwareImage   string
	// InstallISO boots in pass 1, BootISO in pass 2.
	InstallISO string
	BootISO    string
	Netmask    string
	Gateway    string
	DNS        []string
	// BootOrder is the persistent order applied before the first boot.
	BootOrder []string
	// BIOSAttributes are staged alongside the boot order (power policy).
	BIOSAttributes map[string]interface{}
	Wait           WaitConfig
	// Workers bounds how many hosts a pass touches concurrently. The
	// default of 1 preserves the strictly sequential legacy behavior.
	Workers int
	Logger  *zap.Logger
}

func (c *RackConfig) defaults() {
	if c.Wait.Interval == 0 || c.Wait.Timeout == 0 {
		c.Wait = DefaultWait()
	}
	if c.Workers < 1 {
		c.Workers = 1
	}
	if len(c.BootOrder) == 0 {
		c.BootOrder = []string{"Cd", "Hdd", "Pxe"}
	}
	if c.Logger == nil {
		c.Logger = zap.NewNop()
	}
}

// HostResult reports how far one host got.
type HostResult struct {
	Host  string
	State HostState
	Err   error
}

type rackHost struct {
	host  Host
	ilo   ILOAPI
	cfg   *RackConfig
	state HostState
	log   *zap.Logger
}

func (r *rackHost) to(s HostState) {
	r.state = s
	r.log.Info("host state", zap.String("state", string(s)))
}

// configureNetwork applies static addressing and the DNS name from the CSV.
func (r *rackHost) configureNetwork(ctx context.Context) error {
	err := r.ilo.SetNetwork(ctx, ilo.NetworkConfig{
		Hostname: r.host.Hostname,
		Address:  r.host.ILOIP,
		Netmask:  r.cfg.Netmask,
		Gateway:  r.cfg.Gateway,
		DNS:      r.cfg.DNS,
	})
	if err != nil {
		return err
	}
	r.to(StateNetworkConfigured)
	return nil
}

// waitReachable polls the service root until the controller answers again
// after its network stack reset. Probe errors mean "not yet", not failure.
func (r *rackHost) waitReachable(ctx context.Context) error {
	err := WaitFor(ctx, "ilo reachable", r.cfg.Wait, func(ctx context.Context) (bool, error) {
		return r.ilo.Ping(ctx) == nil, nil
	})
	if err != nil {
		return err
	}
	r.to(StateReachable)
	return nil
}

// ensureFirmware flashes the controller when it runs an older version and
// waits for the reported version to converge on the target.
func (r *rackHost) ensureFirmware(ctx context.Context) error {
	if r.cfg.FirmwareVersion == "" {
		r.to(StateFirmwareCurrent)
		return nil
	}
	v, err := r.ilo.FirmwareVersion(ctx)
	if err != nil {
		return err
	}
	if v != r.cfg.FirmwareVersion {
		if r.cfg.FirmwareImage == "" {
			return errors.Errorf("firmware %q does not match required %q and no image configured", v, r.cfg.FirmwareVersion)
		}
		r.log.Info("flashing firmware", zap.String("have", v), zap.String("want", r.cfg.FirmwareVersion))
		if err := r.ilo.UpdateFirmware(ctx, r.cfg.FirmwareImage); err != nil {
			return err
		}
		// the controller resets mid-flash, treat fetch errors as "not yet"
		err = WaitFor(ctx, "firmware version", r.cfg.Wait, func(ctx context.Context) (bool, error) {
			v, err := r.ilo.FirmwareVersion(ctx)
			if err != nil {
				return false, nil
			}
			return v == r.cfg.FirmwareVersion, nil
		})
		if err != nil {
			return err
		}
	}
	r.to(StateFirmwareCurrent)
	return nil
}

// powerOff forces the server off and confirms the state.
func (r *rackHost) powerOff(ctx context.Context) error {
	state, err := r.ilo.PowerState(ctx)
	if err != nil {
		return err
	}
	if state != "Off" {
		if err := r.ilo.SetPower(ctx, ilo.PowerForceOff); err != nil {
			return err
		}
		err = WaitFor(ctx, "power off", r.cfg.Wait, func(ctx context.Context) (bool, error) {
			s, err := r.ilo.PowerState(ctx)
			if err != nil {
				return false, err
			}
			return s == "Off", nil
		})
		if err != nil {
			return err
		}
	}
	r.to(StatePoweredOff)
	return nil
}

// configureBoot applies the persistent boot order and BIOS settings.
func (r *rackHost) configureBoot(ctx context.Context) error {
	if err := r.ilo.SetBootOrder(ctx, r.cfg.BootOrder); err != nil {
		return err
	}
	if len(r.cfg.BIOSAttributes) > 0 {
		if err := r.ilo.SetBIOSAttributes(ctx, r.cfg.BIOSAttributes); err != nil {
			return err
		}
	}
	return nil
}

// mountAndBoot inserts an ISO, points the next boot at it, powers the server
// on and confirms the power state.
func (r *rackHost) mountAndBoot(ctx context.Context, iso string) error {
	if err := r.ilo.InsertVirtualMedia(ctx, iso); err != nil {
		return err
	}
	r.to(StateBootMediaMounted)

	if err := r.ilo.SetOneTimeBoot(ctx, "Cd"); err != nil {
		return err
	}
	if err := r.ilo.SetPower(ctx, ilo.PowerOn); err != nil {
		return err
	}
	err := WaitFor(ctx, "power on", r.cfg.Wait, func(ctx context.Context) (bool, error) {
		s, err := r.ilo.PowerState(ctx)
		if err != nil {
			return false, err
		}
		return s == "On", nil
	})
	if err != nil {
		return err
	}
	r.to(StateBooting)
	return nil
}

// waitMediaEjected blocks until the virtual media reports not-inserted,
// which is how the first boot signals completion.
func (r *rackHost) waitMediaEjected(ctx context.Context) error {
	err := WaitFor(ctx, "virtual media ejected", r.cfg.Wait, func(ctx context.Context) (bool, error) {
		inserted, err := r.ilo.VirtualMediaInserted(ctx)
		if err != nil {
			return false, err
		}
		return !inserted, nil
	})
	if err != nil {
		return err
	}
	r.to(StateMediaEjected)
	return nil
}

// pass1 drives a host from factory state through the first installer boot.
func (r *rackHost) pass1(ctx context.Context) error {
	steps := []func(context.Context) error{
		r.configureNetwork,
		r.waitReachable,
		r.ensureFirmware,
		r.powerOff,
		r.configureBoot,
	}
	for _, step := range steps {
		if err := step(ctx); err != nil {
			return err
		}
	}
	return r.mountAndBoot(ctx, r.cfg.InstallISO)
}

// pass2 waits out the installer and boots the second image.
func (r *rackHost) pass2(ctx context.Context) error {
	if err := r.waitMediaEjected(ctx); err != nil {
		return err
	}
	if err := r.ilo.SetPower(ctx, ilo.PowerForceOff); err != nil {
		return err
	}
	// clear any stale image mapping before the second mount
	if err := r.ilo.EjectVirtualMedia(ctx); err != nil {
		return err
	}
	return r.mountAndBoot(ctx, r.cfg.BootISO)
}

// ProvisionRack runs both passes across all hosts. Hosts never interact;
// each host's failure is isolated to its own result and pass 2 skips hosts
// that failed pass 1. Results come back in input order.
func ProvisionRack(ctx context.Context, hosts []Host, dial Dialer, cfg RackConfig) []HostResult {
	cfg.defaults()

	runID := uuid.New().String()
	log := cfg.Logger.With(zap.String("run", runID))
	log.Info("rack provisioning starting",
		zap.Int("hosts", len(hosts)), zap.Int("workers", cfg.Workers))

	runs := make([]*rackHost, len(hosts))
	results := make([]HostResult, len(hosts))
	for i, h := range hosts {
		results[i] = HostResult{Host: h.Hostname, State: StateUnconfigured}

		api, err := dial(h)
		if err != nil {
			results[i].Err = errors.Wrapf(err, "connect to %s", h.Hostname)
			continue
		}
		runs[i] = &rackHost{
			host:  h,
			ilo:   api,
			cfg:   &cfg,
			state: StateUnconfigured,
			log:   log.With(zap.String("host", h.Hostname)),
		}
	}

	runPass := func(pass string, fn func(*rackHost) error) {
		var mu sync.Mutex
		pool := workerpool.New(cfg.Workers)
		for i, r := range runs {
			if r == nil {
				continue
			}
			i, r := i, r

			mu.Lock()
			skip := results[i].Err != nil
			mu.Unlock()
			if skip {
				continue
			}

			pool.Submit(func() {
				err := fn(r)
				hostProvisionTotal.WithLabelValues(pass, passResult(err)).Inc()
				mu.Lock()
				results[i].State = r.state
				results[i].Err = err
				mu.Unlock()
				if err != nil {
					r.log.Error("pass failed", zap.String("pass", pass), zap.Error(err))
				}
			})
		}
		pool.StopWait()
	}

	runPass("pass1", func(r *rackHost) error { return r.pass1(ctx) })
	runPass("pass2", func(r *rackHost) error { return r.pass2(ctx) })

	failed := 0
	for _, res := range results {
		if res.Err != nil {
			failed++
		}
	}
	log.Info("rack provisioning done",
		zap.Int("hosts", len(hosts)), zap.Int("failed", failed))
	return results
}

func passResult(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
