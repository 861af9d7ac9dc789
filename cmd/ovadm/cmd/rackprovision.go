package cmd

import (
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/doogleit/hpe-oneview-misc/ilo"
	"github.com/doogleit/hpe-oneview-misc/pkg/debugserver"
	"github.com/doogleit/hpe-oneview-misc/provision"
)

// rackProvisionCmd represents the rack-provision command
var rackProvisionCmd = &cobra.Command{
	Use:   "rack-provision",
	Short: "Provision rack servers from a CSV of iLO targets",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		flags := cmd.Flags()

		csvPath, _ := flags.GetString("csv")
		firmwareVersion, _ := flags.GetString("firmware-version")
		firmwareImage, _ := flags.GetString("firmware-image")
		installISO, _ := flags.GetString("install-iso")
		bootISO, _ := flags.GetString("boot-iso")
		netmask, _ := flags.GetString("netmask")
		gateway, _ := flags.GetString("gateway")
		dns, _ := flags.GetStringSlice("dns")
		biosSpecs, _ := flags.GetStringArray("bios-attr")
		workers, _ := flags.GetInt("workers")
		pollInterval, _ := flags.GetDuration("poll-interval")
		pollTimeout, _ := flags.GetDuration("poll-timeout")
		debugListen, _ := flags.GetString("debug-listen")

		hosts, err := provision.ReadHostsFile(csvPath)
		if err != nil {
			return err
		}
		biosAttrs, err := parseBIOSAttrs(biosSpecs)
		if err != nil {
			return err
		}

		if debugListen != "" {
			debugserver.Serve(ctx, debugListen, logger)
		}

		dial := func(h provision.Host) (provision.ILOAPI, error) {
			return ilo.NewClient(h.ILOIP, h.Username, h.Password, ilo.Logger(logger))
		}

		results := provision.ProvisionRack(ctx, hosts, dial, provision.RackConfig{
			FirmwareVersion: firmwareVersion,
			FirmwareImage:   firmwareImage,
			InstallISO:      installISO,
			BootISO:         bootISO,
			Netmask:         netmask,
			Gateway:         gateway,
			DNS:             dns,
			BIOSAttributes:  biosAttrs,
			Wait: provision.WaitConfig{
				Interval: pollInterval,
				Timeout:  pollTimeout,
			},
			Workers: workers,
			Logger:  logger,
		})

		failed := 0
		for _, res := range results {
			if res.Err != nil {
				failed++
				logger.Error("host failed",
					zap.String("host", res.Host),
					zap.String("state", string(res.State)),
					zap.Error(res.Err))
				continue
			}
			logger.Info("host provisioned", zap.String("host", res.Host))
		}
		if failed > 0 {
			return errors.Errorf("%d of %d hosts failed", failed, len(results))
		}
		return nil
	},
}

// parseBIOSAttrs decodes repeated key=value flags into staged BIOS settings.
func parseBIOSAttrs(specs []string) (map[string]interface{}, error) {
	if len(specs) == 0 {
		return nil, nil
	}
	attrs := make(map[string]interface{}, len(specs))
	for _, s := range specs {
		parts := strings.SplitN(s, "=", 2)
		if len(parts) != 2 || parts[0] == "" {
			return nil, errors.Errorf("invalid --bios-attr %q, want key=value", s)
		}
		attrs[parts[0]] = parts[1]
	}
	return attrs, nil
}

func init() {
	rackProvisionCmd.Flags().String("csv", "", "input CSV (Hostname,iLOIP,Username,Password)")
	rackProvisionCmd.Flags().String("firmware-version", "", "required iLO firmware version")
	rackProvisionCmd.Flags().String("firmware-image", "", "firmware image URL used when a host is behind")
	rackProvisionCmd.Flags().String("install-iso", "", "installer image booted in pass 1")
	rackProvisionCmd.Flags().String("boot-iso", "", "image booted in pass 2 after the installer finishes")
	rackProvisionCmd.Flags().String("netmask", "255.255.255.0", "iLO subnet mask")
	rackProvisionCmd.Flags().String("gateway", "", "iLO default gateway")
	rackProvisionCmd.Flags().StringSlice("dns", nil, "iLO name servers")
	rackProvisionCmd.Flags().StringArray("bios-attr", nil, "BIOS setting to stage with the boot order, key=value (repeatable, e.g. PowerProfile=MaxPerf)")
	rackProvisionCmd.Flags().Int("workers", 1, "hosts to drive concurrently per pass")
	rackProvisionCmd.Flags().Duration("poll-interval", 10*time.Second, "device state poll interval")
	rackProvisionCmd.Flags().Duration("poll-timeout", 45*time.Minute, "per-wait timeout before a host is failed")
	rackProvisionCmd.Flags().String("debug-listen", "", "serve /metrics and /healthcheck on this address while running")
	rackProvisionCmd.MarkFlagRequired("csv")
	rackProvisionCmd.MarkFlagRequired("install-iso")
	rackProvisionCmd.MarkFlagRequired("boot-iso")
	rootCmd.AddCommand(rackProvisionCmd)
}
