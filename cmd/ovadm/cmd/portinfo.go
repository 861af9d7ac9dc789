package cmd

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/doogleit/hpe-oneview-misc/collect"
	"github.com/doogleit/hpe-oneview-misc/report"
)

// portInfoCmd represents the port-info command
var portInfoCmd = &cobra.Command{
	Use:   "port-info",
	Short: "Report linked Ethernet uplink ports of FlexFabric interconnects",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		name, _ := cmd.Flags().GetString("name")
		toStdout, _ := cmd.Flags().GetBool("stdout")
		skipErrors, _ := cmd.Flags().GetBool("skip-errors")

		client, err := connectAppliance(ctx)
		if err != nil {
			return err
		}
		defer client.Logout(ctx)

		records, sum, err := collect.PortInfo(ctx, client, collect.Options{
			Scope:      name,
			SkipErrors: skipErrors,
			Logger:     logger,
		})
		if err != nil {
			return err
		}

		rows := make([][]string, 0, len(records))
		for _, r := range records {
			rows = append(rows, r.Row())
		}
		dest, err := writeReport("UplinkPortInfo", scopeName(name), report.PortInfoHeader(), rows, toStdout)
		if err != nil {
			return err
		}
		logger.Info("report written",
			zap.String("file", dest), zap.Int("records", sum.Emitted), zap.Int("skipped", sum.Skipped))
		return nil
	},
}

func init() {
	portInfoCmd.Flags().String("name", "", "restrict to a single interconnect")
	portInfoCmd.Flags().Bool("stdout", false, "print CSV to stdout instead of a file")
	portInfoCmd.Flags().Bool("skip-errors", false, "skip entities whose fetch fails instead of aborting")
	rootCmd.AddCommand(portInfoCmd)
}
