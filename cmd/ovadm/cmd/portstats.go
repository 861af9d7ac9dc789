package cmd

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/doogleit/hpe-oneview-misc/collect"
	"github.com/doogleit/hpe-oneview-misc/report"
)

// portStatsCmd represents the port-stats command
var portStatsCmd = &cobra.Command{
	Use:   "port-stats",
	Short: "Report the most recent traffic sample per uplink port",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		name, _ := cmd.Flags().GetString("name")
		toStdout, _ := cmd.Flags().GetBool("stdout")
		skipErrors, _ := cmd.Flags().GetBool("skip-errors")
		mbps, _ := cmd.Flags().GetBool("mbps")

		client, err := connectAppliance(ctx)
		if err != nil {
			return err
		}
		defer client.Logout(ctx)

		records, sum, err := collect.PortStats(ctx, client, collect.Options{
			Scope:      name,
			SkipErrors: skipErrors,
			Mbps:       mbps,
			Logger:     logger,
		})
		if err != nil {
			return err
		}

		rows := make([][]string, 0, len(records))
		for _, r := range records {
			rows = append(rows, r.Row())
		}
		dest, err := writeReport("UplinkPortStatistics", scopeName(name), report.PortStatsHeader(mbps), rows, toStdout)
		if err != nil {
			return err
		}
		logger.Info("report written",
			zap.String("file", dest), zap.Int("records", sum.Emitted), zap.Int("skipped", sum.Skipped))
		return nil
	},
}

func init() {
	portStatsCmd.Flags().String("name", "", "restrict to a single interconnect")
	portStatsCmd.Flags().Bool("stdout", false, "print CSV to stdout instead of a file")
	portStatsCmd.Flags().Bool("skip-errors", false, "skip entities whose fetch fails instead of aborting")
	portStatsCmd.Flags().Bool("mbps", false, "convert kilobit rates to megabits (1 decimal place)")
	rootCmd.AddCommand(portStatsCmd)
}
