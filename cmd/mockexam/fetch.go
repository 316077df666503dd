// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/mockexam/internal/fetch"
	"github.com/pdiddy/mockexam/internal/httputil"
	"github.com/pdiddy/mockexam/pkg/types"
)

var fetchCmd = &cobra.Command{
	Use:   "fetch [url...]",
	Short: "Download question-paper PDFs into the upload folder",
	Long: `Fetch downloads each URL into the upload folder, where watch or
convert --batch picks it up. Responses that are not PDFs are rejected,
files already present are skipped, and rate-limited requests are retried
with exponential backoff.

URLs may also be read from a file, one per line, with --from.`,
	RunE: runFetch,
}

func runFetch(cmd *cobra.Command, args []string) error {
	urls := args
	if from, _ := cmd.Flags().GetString("from"); from != "" {
		more, err := readURLs(from)
		if err != nil {
			return err
		}
		urls = append(urls, more...)
	}
	if len(urls) == 0 {
		return fmt.Errorf("at least one URL is required")
	}

	if err := bindFlags(cmd, map[string]string{
		"timeout":        "timeout",
		"download_delay": "delay",
		"upload_dir":     "upload-dir",
		"max_retries":    "max-retries",
	}); err != nil {
		return err
	}

	var cfg types.FetchConfig
	if err := viper.Unmarshal(&cfg); err != nil {
		return fmt.Errorf("reading fetch config: %w", err)
	}

	log, err := newLogger()
	if err != nil {
		return fmt.Errorf("creating logger: %w", err)
	}
	defer log.Sync()

	client := httputil.NewClient(cfg.Timeout, cfg.MaxRetries, log)
	result := fetch.New(client, cfg, log).FetchBatch(cmd.Context(), urls, cmd.OutOrStdout())
	if result.HasFailures() {
		return fmt.Errorf("%d download(s) failed", result.Failed)
	}
	return nil
}

// readURLs reads one URL per line, skipping blanks and # comments.
func readURLs(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening URL list: %w", err)
	}
	defer f.Close()

	var urls []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		urls = append(urls, line)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("reading URL list: %w", err)
	}
	return urls, nil
}

func init() {
	fetchCmd.Flags().Duration("timeout", 0, "HTTP request timeout (default 60s)")
	fetchCmd.Flags().Duration("delay", 0, "delay between consecutive downloads (default 1s)")
	fetchCmd.Flags().Int("max-retries", 0, "retries on HTTP 429/503 (default 5)")
	fetchCmd.Flags().String("upload-dir", "uploads", "folder the PDFs are written to")
	fetchCmd.Flags().String("from", "", "file with one URL per line")

	rootCmd.AddCommand(fetchCmd)
}
