package cmd

import (
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/doogleit/hpe-oneview-misc/collect"
	"github.com/doogleit/hpe-oneview-misc/report"
)

// warrantyCmd represents the warranty command
var warrantyCmd = &cobra.Command{
	Use:   "warranty",
	Short: "Report remote support entitlement for servers and enclosures",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		enclosure, _ := cmd.Flags().GetString("enclosure")
		server, _ := cmd.Flags().GetString("server")
		toStdout, _ := cmd.Flags().GetBool("stdout")
		skipErrors, _ := cmd.Flags().GetBool("skip-errors")

		if enclosure != "" && server != "" {
			return errors.New("--enclosure and --server are mutually exclusive")
		}

		client, err := connectAppliance(ctx)
		if err != nil {
			return err
		}
		defer client.Logout(ctx)

		scope := collect.WarrantyScope{Enclosure: enclosure, Server: server}
		records, sum, err := collect.Warranty(ctx, client, scope, collect.Options{
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
		dest, err := writeReport("WarrantyReport", scopeName(enclosure+server), report.WarrantyHeader(), rows, toStdout)
		if err != nil {
			return err
		}
		logger.Info("report written",
			zap.String("file", dest), zap.Int("records", sum.Emitted), zap.Int("skipped", sum.Skipped))
		return nil
	},
}

func init() {
	warrantyCmd.Flags().String("enclosure", "", "restrict to a single enclosure")
	warrantyCmd.Flags().String("server", "", "restrict to a single server")
	warrantyCmd.Flags().Bool("stdout", false, "print CSV to stdout instead of a file")
	warrantyCmd.Flags().Bool("skip-errors", false, "skip entities whose fetch fails instead of aborting")
	rootCmd.AddCommand(warrantyCmd)
}
