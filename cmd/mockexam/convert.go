// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/mockexam/internal/convert"
	"github.com/pdiddy/mockexam/internal/paper"
	"github.com/pdiddy/mockexam/internal/pdftext"
	"github.com/pdiddy/mockexam/pkg/types"
)

var convertCmd = &cobra.Command{
	Use:   "convert [pdf...]",
	Short: "Convert question-paper PDFs into JSON tests",
	Long: `Convert extracts the questions of each PDF and writes them as a JSON
array to <output-dir>/<name>.json, replacing any earlier output for the same
paper, then records the test in the manifest.

A paper that does not follow the expected layout, has a question without an
answer, or is not a PDF at all fails with a parse error; nothing is written
for it and the upload is kept. With --batch every PDF in the upload folder is
converted and processed uploads are removed.`,
	RunE: runConvert,
}

func runConvert(cmd *cobra.Command, args []string) error {
	batch, _ := cmd.Flags().GetBool("batch")
	switch {
	case batch && len(args) > 0:
		return fmt.Errorf("--batch converts the whole upload folder; do not pass PDF paths")
	case !batch && len(args) == 0:
		return fmt.Errorf("provide PDF paths or use --batch")
	}

	if err := bindConversionFlags(cmd); err != nil {
		return err
	}
	cfg, err := conversionConfig()
	if err != nil {
		return err
	}
	// Single files are kept unless removal was asked for explicitly.
	if !batch && !flagChanged(cmd.Flags(), "remove-processed") {
		cfg.RemoveProcessed = false
	}

	conv, err := newConverter(cmd.Context(), cfg)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	var result convert.BatchResult
	if batch {
		result, err = conv.ConvertDir(cmd.Context(), out)
		if err != nil {
			return err
		}
	} else {
		result = conv.ConvertBatch(cmd.Context(), args, out)
	}

	if result.HasFailures() {
		return fmt.Errorf("%d paper(s) failed conversion", result.Failed)
	}
	return nil
}

// conversionFlags maps config keys to the flags shared by convert and watch.
var conversionFlags = map[string]string{
	"backend":          "backend",
	"upload_dir":       "upload-dir",
	"output_dir":       "output-dir",
	"layout_file":      "layout",
	"remove_processed": "remove-processed",
}

func addConversionFlags(cmd *cobra.Command) {
	cmd.Flags().String("backend", "native", "text extraction backend: native, pdftotext, or markitdown")
	cmd.Flags().String("upload-dir", "uploads", "folder where source PDFs are dropped")
	cmd.Flags().String("output-dir", "tests", "folder receiving the JSON tests and the manifest")
	cmd.Flags().String("layout", "", "YAML file overriding the built-in paper layout")
	cmd.Flags().Bool("remove-processed", true, "delete an upload after it converted successfully")
}

func bindConversionFlags(cmd *cobra.Command) error {
	return bindFlags(cmd, conversionFlags)
}

func conversionConfig() (types.ConversionConfig, error) {
	var cfg types.ConversionConfig
	if err := viper.Unmarshal(&cfg); err != nil {
		return cfg, fmt.Errorf("reading conversion config: %w", err)
	}
	return cfg, nil
}

// newConverter wires the text backend and the paper parser for cfg.
func newConverter(ctx context.Context, cfg types.ConversionConfig) (*convert.Converter, error) {
	layout := paper.DefaultLayout()
	if cfg.LayoutFile != "" {
		l, err := paper.LoadLayout(cfg.LayoutFile)
		if err != nil {
			return nil, err
		}
		layout = l
	}
	parser, err := paper.NewParser(layout)
	if err != nil {
		return nil, err
	}

	ext, err := pdftext.New(ctx, cfg.Backend)
	if err != nil {
		return nil, err
	}
	return convert.New(ext, parser, cfg), nil
}

func init() {
	addConversionFlags(convertCmd)
	convertCmd.Flags().Bool("batch", false, "convert every PDF in the upload folder")

	rootCmd.AddCommand(convertCmd)
}
