package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/WinPooh32/klinedump/config"
	"github.com/WinPooh32/klinedump/download"
	"github.com/WinPooh32/klinedump/logger"
)

func NewRootCmd() *cobra.Command {
	var (
		v          = viper.New()
		configFile string
	)

	cmd := &cobra.Command{
		Use:   "klinedump",
		Short: "Download historical klines into a CSV file",
		Long: `klinedump pages through the kline REST endpoint for one symbol and interval
over an inclusive UTC date range and writes the candles, ordered by open time, to
{symbol}_{interval}_{start}_to_{end}.csv.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDownload(cmd, v, configFile)
		},
	}

	defaults := viper.New()
	config.SetDefaults(defaults)

	flags := cmd.Flags()
	flags.StringVarP(&configFile, "config", "c", "", "yaml config file")
	flags.StringP("symbol", "s", defaults.GetString("symbol"), "trading pair symbol")
	flags.StringP("interval", "i", defaults.GetString("interval"), "kline interval: 1s 1m 3m 5m 15m 30m 1h 2h 4h 6h 8h 12h 1d 3d 1w 1M")
	flags.String("start", defaults.GetString("start"), "first day, YYYY-MM-DD (UTC)")
	flags.String("end", defaults.GetString("end"), "last day, YYYY-MM-DD (UTC), inclusive")
	flags.String("base-url", defaults.GetString("base-url"), "REST API base URL")
	flags.String("source", defaults.GetString("source"), "kline source: rest, sdk or file")
	flags.String("source-file", defaults.GetString("source-file"), "CSV dump read by the file source")
	flags.StringP("output-dir", "o", defaults.GetString("output-dir"), "directory for the CSV file")
	flags.Int("limit", defaults.GetInt("limit"), "klines per request")
	flags.Int("batch-size", defaults.GetInt("batch-size"), "klines per batch handed to the writer")
	flags.Int("buffer", defaults.GetInt("buffer"), "batches buffered between fetcher and writer")
	flags.Duration("min-request-interval", defaults.GetDuration("min-request-interval"), "minimum time between requests, 0 for none")
	flags.Duration("http-timeout", defaults.GetDuration("http-timeout"), "per request timeout, 0 for none")
	flags.Bool("progress", defaults.GetBool("progress"), "show a progress bar")
	flags.String("log-level", defaults.GetString("log-level"), "log level")

	if err := v.BindPFlags(flags); err != nil {
		panic(fmt.Sprintf("bind flags: %s", err))
	}

	cmd.AddCommand(newVerifyCmd())

	return cmd
}

func runDownload(cmd *cobra.Command, v *viper.Viper, configFile string) error {
	cfg, err := config.Load(v, configFile)
	if err != nil {
		return err
	}

	log, err := logger.New(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	opt := cfg.Options()
	if cfg.Progress {
		opt.ProgressWriter = os.Stderr
	}

	source, err := cfg.History()
	if err != nil {
		return err
	}

	result, err := download.NewRunner(source, log).Run(cmd.Context(), opt)
	if err != nil {
		if result.Path != "" {
			log.Warn("download aborted, output may be partial",
				zap.String("path", result.Path),
				zap.Int64("klines", result.Klines),
			)
		}
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "saved %d klines to %s\n", result.Klines, result.Path)
	return nil
}
