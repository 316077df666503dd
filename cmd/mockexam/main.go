// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the mockexam CLI, which converts
// mock exam question papers (PDF) into the JSON question files served by
// the practice page.
package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/pdiddy/mockexam/internal/logger"
)

// version is set at build time via ldflags.
var version = "dev"

// rootCmd is the base command for the mockexam CLI.
var rootCmd = &cobra.Command{
	Use:   "mockexam",
	Short: "Convert mock exam question papers into JSON tests",
	Long: `mockexam turns question-paper PDFs dropped into an upload folder into
JSON files of multiple-choice questions, one file per paper, and keeps the
test manifest used by the practice page up to date.

Run "mockexam convert" for a one-off conversion, or "mockexam watch" to
convert uploads as they arrive. "fetch" downloads papers into the upload
folder and "bank" indexes every converted question for search.`,
	SilenceUsage: true,
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("config", "", "config file (default: ./mockexam.yaml or ~/.config/mockexam/mockexam.yaml)")
	rootCmd.PersistentFlags().String("log-env", "", "logger mode: production (JSON) or development")
}

// setDefaults registers the built-in value of every config key.
func setDefaults(v *viper.Viper) {
	v.SetDefault("backend", "native")
	v.SetDefault("upload_dir", "uploads")
	v.SetDefault("output_dir", "tests")
	v.SetDefault("manifest_file", "test_manifest.json")
	v.SetDefault("remove_processed", true)
	v.SetDefault("debounce", 2*time.Second)
	v.SetDefault("timeout", 60*time.Second)
	v.SetDefault("user_agent", "mockexam/"+version)
	v.SetDefault("max_retries", 5)
	v.SetDefault("download_delay", time.Second)
	v.SetDefault("bank_dir", "bank")
	v.SetDefault("max_results", 20)
	v.SetDefault("log_env", "development")
}

func initConfig() {
	// A missing .env is normal; anything else is worth a warning.
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		fmt.Fprintln(os.Stderr, "warning: loading .env:", err)
	}

	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("mockexam")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "mockexam"))
		}
	}

	setDefaults(viper.GetViper())
	viper.SetEnvPrefix("MOCKEXAM")
	viper.AutomaticEnv()
	_ = viper.BindPFlag("log_env", rootCmd.PersistentFlags().Lookup("log-env"))

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

// bindFlags binds config keys to the running command's flags, so flag,
// environment, config file and default resolve in that order. Binding
// happens at run time because several commands share keys.
func bindFlags(cmd *cobra.Command, keys map[string]string) error {
	for key, flag := range keys {
		f := cmd.Flags().Lookup(flag)
		if f == nil {
			return fmt.Errorf("unknown flag %q for key %q", flag, key)
		}
		if err := viper.BindPFlag(key, f); err != nil {
			return fmt.Errorf("binding flag %s: %w", flag, err)
		}
	}
	return nil
}

// flagChanged reports whether any of the named flags was set explicitly.
func flagChanged(flags *pflag.FlagSet, names ...string) bool {
	for _, n := range names {
		if flags.Changed(n) {
			return true
		}
	}
	return false
}

// newLogger builds the zap logger selected by log_env.
func newLogger() (*zap.Logger, error) {
	return logger.New(viper.GetString("log_env"))
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}
