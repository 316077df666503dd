// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/mockexam/internal/watch"
	"github.com/pdiddy/mockexam/pkg/types"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Convert PDFs as they are dropped into the upload folder",
	Long: `Watch observes the upload folder and converts each new PDF once its
writes have settled for the debounce period. Conversions run one at a
time. Existing uploads are converted at start-up, and --sweep rescans the
folder on a cron schedule (for example "@every 10m").

Watch runs until interrupted.`,
	RunE: runWatch,
}

func runWatch(cmd *cobra.Command, args []string) error {
	if err := bindConversionFlags(cmd); err != nil {
		return err
	}
	if err := bindFlags(cmd, map[string]string{
		"debounce":       "debounce",
		"sweep_schedule": "sweep",
	}); err != nil {
		return err
	}

	var cfg types.WatchConfig
	if err := viper.Unmarshal(&cfg); err != nil {
		return fmt.Errorf("reading watch config: %w", err)
	}

	log, err := newLogger()
	if err != nil {
		return fmt.Errorf("creating logger: %w", err)
	}
	defer log.Sync()

	conv, err := newConverter(cmd.Context(), cfg.ConversionConfig)
	if err != nil {
		return err
	}
	// Sweeps revisit kept uploads; do not redo unchanged ones.
	conv.SkipUnchanged = true

	return watch.New(conv, cfg, log).Run(cmd.Context())
}

func init() {
	addConversionFlags(watchCmd)
	watchCmd.Flags().Duration("debounce", watch.DefaultDebounce, "quiet period after the last write before converting")
	watchCmd.Flags().String("sweep", "", "cron schedule for periodic rescans of the upload folder")

	rootCmd.AddCommand(watchCmd)
}
