/*
Copyright © 2026 Michael Putera Wardana <michaelputeraw@gmail.com>
*/
package cmd

import (
	"os"
	"time"

	"github.com/krobus00/satoshi/internal/bootstrap"
	"github.com/krobus00/satoshi/internal/config"
	"github.com/krobus00/satoshi/internal/infrastructure"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var (
	configPath      string
	ledgerDir       string
	pollInterval    time.Duration
	maxPollAttempts uint64
	maxPollDuration time.Duration
)

// rootCmd places one market buy and records the fill
var rootCmd = &cobra.Command{
	Use:   "satoshi <symbol> <currency> <cost>",
	Short: "Buy crypto on Mercado Bitcoin with a market order sized in fiat",
	Long: `Buy crypto on Mercado Bitcoin with a market order sized in fiat.

The order is followed until it is filled or canceled. A fill is appended to
{ledger-dir}/{SYMBOL}-{CURRENCY}-orders.json and printed to stdout.

Credentials are read from TAPI_ID and TAPI_SECRET. With ENVIRONMENT unset or
"development" a local .env file is loaded first.

Example:
  satoshi BTC BRL 100`,
	Args: bootstrap.ValidateBuyArgs,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		dotEnvLoaded, err := config.LoadDotEnv()
		if err != nil {
			return err
		}

		err = config.LoadConfig(configPath)
		if err != nil {
			return err
		}

		applyFlagOverrides(cmd)

		err = infrastructure.ConfigureLogger(config.Env.Log, config.Env.Env)
		if err != nil {
			return err
		}

		if dotEnvLoaded {
			logrus.Debug("loaded environment variables from .env file")
		}

		return nil
	},
	Run: bootstrap.StartBuy,
}

func applyFlagOverrides(cmd *cobra.Command) {
	flags := cmd.Flags()
	if flags.Changed("ledger-dir") {
		config.Env.Ledger.Dir = ledgerDir
	}
	if flags.Changed("poll-interval") {
		config.Env.Order.PollInterval = pollInterval
	}
	if flags.Changed("max-poll-attempts") {
		config.Env.Order.MaxPollAttempts = maxPollAttempts
	}
	if flags.Changed("max-poll-duration") {
		config.Env.Order.MaxPollDuration = maxPollDuration
	}
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file path (default: ./config.yml)")
	rootCmd.Flags().StringVar(&ledgerDir, "ledger-dir", "orders", "directory holding the per pair ledger files")
	rootCmd.Flags().DurationVar(&pollInterval, "poll-interval", 5*time.Second, "delay between order status reads")
	rootCmd.Flags().Uint64Var(&maxPollAttempts, "max-poll-attempts", 0, "give up after this many status reads (0 = until terminal)")
	rootCmd.Flags().DurationVar(&maxPollDuration, "max-poll-duration", 0, "give up polling after this long (0 = until terminal)")
}
