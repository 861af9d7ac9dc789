package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/doogleit/hpe-oneview-misc/oneview"
	"github.com/doogleit/hpe-oneview-misc/report"
)

var (
	logger  *zap.Logger
	nowFunc = time.Now
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "ovadm",
	Short: "HPE OneView / OA / iLO reporting and provisioning tools",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		logger, err = newLogger(viper.GetBool("debug"))
		return err
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			logger.Sync()
		}
	},
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("appliance", "", "OneView appliance address")
	rootCmd.PersistentFlags().String("username", "", "appliance username")
	rootCmd.PersistentFlags().String("password", "", "appliance password (or OVADM_PASSWORD)")
	rootCmd.PersistentFlags().Bool("debug", false, "enable debug logging")
	viper.BindPFlags(rootCmd.PersistentFlags())
}

// initConfig reads in environment variables prefixed OVADM_.
func initConfig() {
	viper.SetEnvPrefix("ovadm")
	viper.AutomaticEnv()
}

func newLogger(debug bool) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Encoding = "console"
	cfg.EncoderConfig = zap.NewDevelopmentEncoderConfig()
	if debug {
		cfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	}
	l, err := cfg.Build()
	return l, errors.Wrap(err, "build logger")
}

// connectAppliance opens an authenticated OneView session from the
// persistent flags. Connection failure is fatal before any work starts.
func connectAppliance(ctx context.Context) (*oneview.Client, error) {
	appliance := viper.GetString("appliance")
	if appliance == "" {
		return nil, errors.New("--appliance (or OVADM_APPLIANCE) is required")
	}

	client, err := oneview.NewClient(appliance, oneview.Logger(logger))
	if err != nil {
		return nil, err
	}
	if err := client.Login(ctx, viper.GetString("username"), viper.GetString("password")); err != nil {
		return nil, err
	}
	return client, nil
}

// writeReport sends the rows to stdout or a generated timestamped file and
// returns the destination name.
func writeReport(kind, scope string, header []string, rows [][]string, toStdout bool) (string, error) {
	if toStdout {
		return "stdout", report.WriteCSV(os.Stdout, header, rows)
	}

	name := report.Filename(kind, scope, nowFunc())
	f, err := os.Create(name)
	if err != nil {
		return "", errors.Wrap(err, "create report file")
	}
	defer f.Close()

	if err := report.WriteCSV(f, header, rows); err != nil {
		return "", err
	}
	return name, nil
}

func scopeName(scope string) string {
	if scope == "" {
		return "All"
	}
	return scope
}
