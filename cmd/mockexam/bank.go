// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/mockexam/internal/bank"
	"github.com/pdiddy/mockexam/pkg/types"
)

var bankCmd = &cobra.Command{
	Use:   "bank",
	Short: "Index and search every converted question (store, search, export)",
	Long: `Bank keeps a local SQLite database of all questions from the converted
tests. Use subcommands to index the tests folder, search it, or export.`,
}

// --- store subcommand ---

var bankStoreCmd = &cobra.Command{
	Use:   "store",
	Short: "Index the converted tests into the question bank",
	Long: `Store reads every question file in the tests folder into a SQLite
database with FTS5 indexing and writes bank/export.yaml. Unchanged tests
are skipped on later runs and deleted tests are dropped.`,
	RunE: runBankStore,
}

func runBankStore(cmd *cobra.Command, args []string) error {
	store, err := openBank(cmd)
	if err != nil {
		return err
	}
	defer store.Close()

	summary, err := store.Ingest(cmd.Context(), cmd.OutOrStdout())
	if err != nil {
		return err
	}
	if summary.Failed > 0 {
		return fmt.Errorf("%d test(s) failed indexing", summary.Failed)
	}
	return nil
}

// --- search subcommand ---

var bankSearchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Search the question bank with full-text search and filters",
	Long: `Search matches the query against question text, options and
explanations, optionally narrowed by --subject, --topic and --set.
Without a query, filters alone list matching questions in paper order.`,
	RunE: runBankSearch,
}

func runBankSearch(cmd *cobra.Command, args []string) error {
	store, err := openBank(cmd)
	if err != nil {
		return err
	}
	defer store.Close()

	opts := queryOptsFromFlags(cmd, args)
	if opts.IsEmpty() {
		return fmt.Errorf("query or filter required: provide a search query, --subject, --topic, or --set")
	}

	results, err := store.Retrieve(cmd.Context(), opts)
	if err != nil {
		return err
	}

	jsonOutput, _ := cmd.Flags().GetBool("json")
	return formatSearchOutput(cmd.OutOrStdout(), results, jsonOutput)
}

func formatSearchOutput(w io.Writer, results []bank.QueryResult, jsonOutput bool) error {
	if jsonOutput {
		enc := json.NewEncoder(w)
		enc.SetEscapeHTML(false)
		enc.SetIndent("", "  ")
		return enc.Encode(results)
	}

	if len(results) == 0 {
		fmt.Fprintln(w, "No results found.")
		return nil
	}

	fmt.Fprintf(w, "%-4s  %-20s  %-4s  %-50s  %-12s  %s\n",
		"Rank", "Set", "Q", "Question", "Subject", "Answer")
	fmt.Fprintln(w, strings.Repeat("-", 104))

	for i, r := range results {
		fmt.Fprintf(w, "%-4d  %-20s  %-4d  %-50s  %-12s  %s) %s\n",
			i+1, truncate(r.SourceSet, 20), r.ID, truncate(oneLine(r.Text), 50),
			truncate(r.Subject, 12), r.CorrectLabel(), truncate(r.Options[r.CorrectOption], 30))
	}

	fmt.Fprintf(w, "\n%d results\n", len(results))
	return nil
}

// --- sets subcommand ---

var bankSetsCmd = &cobra.Command{
	Use:   "sets",
	Short: "List the indexed tests",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openBank(cmd)
		if err != nil {
			return err
		}
		defer store.Close()

		sets, err := store.Sets(cmd.Context())
		if err != nil {
			return err
		}
		w := cmd.OutOrStdout()
		for _, s := range sets {
			fmt.Fprintf(w, "%-30s  %4d  %s\n", s.ID, s.QuestionCount, s.Name)
		}
		fmt.Fprintf(w, "\n%d sets\n", len(sets))
		return nil
	},
}

// --- export subcommand ---

var bankExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export the question bank to YAML or JSON",
	Long: `Export writes the whole bank (or a filtered subset) to
bank/export.yaml or bank/export.json. Supports the same filter flags as
search for partial exports.`,
	RunE: runBankExport,
}

func runBankExport(cmd *cobra.Command, args []string) error {
	format, _ := cmd.Flags().GetString("format")

	store, err := openBank(cmd)
	if err != nil {
		return err
	}
	defer store.Close()

	opts := queryOptsFromFlags(cmd, args)

	var path string
	switch format {
	case "yaml", "":
		path, err = store.ExportYAML(cmd.Context(), opts)
	case "json":
		path, err = store.ExportJSON(cmd.Context(), opts)
	default:
		return fmt.Errorf("unsupported format %q: use yaml or json", format)
	}
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), "Exported to", path)
	return nil
}

// --- shared helpers ---

func openBank(cmd *cobra.Command) (*bank.Store, error) {
	if err := bindFlags(cmd, map[string]string{
		"bank_dir":    "bank-dir",
		"output_dir":  "tests-dir",
		"max_results": "max-results",
	}); err != nil {
		return nil, err
	}

	var cfg types.BankConfig
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("reading bank config: %w", err)
	}
	cfg.TestsDir = viper.GetString("output_dir")
	return bank.NewStore(cfg)
}

func queryOptsFromFlags(cmd *cobra.Command, args []string) bank.QueryOptions {
	queryText, _ := cmd.Flags().GetString("query")
	if queryText == "" && len(args) > 0 {
		queryText = strings.Join(args, " ")
	}

	subject, _ := cmd.Flags().GetString("subject")
	topic, _ := cmd.Flags().GetString("topic")
	set, _ := cmd.Flags().GetString("set")
	limit, _ := cmd.Flags().GetInt("limit")

	return bank.QueryOptions{
		Query:      queryText,
		Subject:    subject,
		Topic:      topic,
		SetID:      set,
		MaxResults: limit,
	}
}

func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return string(r[:n-3]) + "..."
}

func addFilterFlags(cmd *cobra.Command, purpose string) {
	cmd.Flags().String("query", "", "full-text search query"+purpose)
	cmd.Flags().String("subject", "", "filter by subject"+purpose)
	cmd.Flags().String("topic", "", "filter by topic"+purpose)
	cmd.Flags().String("set", "", "filter by source set"+purpose)
}

func init() {
	// Shared flags on the parent command, inherited by subcommands.
	bankCmd.PersistentFlags().String("bank-dir", "bank", "directory holding the bank database and exports")
	bankCmd.PersistentFlags().String("tests-dir", "tests", "folder of converted JSON tests to index")
	bankCmd.PersistentFlags().Int("max-results", 20, "maximum number of search results")

	addFilterFlags(bankSearchCmd, "")
	bankSearchCmd.Flags().Int("limit", 0, "maximum results (0 = use default)")
	bankSearchCmd.Flags().Bool("json", false, "output results as JSON")

	bankExportCmd.Flags().String("format", "yaml", "export format: yaml or json")
	addFilterFlags(bankExportCmd, " for partial export")

	bankCmd.AddCommand(bankStoreCmd)
	bankCmd.AddCommand(bankSearchCmd)
	bankCmd.AddCommand(bankSetsCmd)
	bankCmd.AddCommand(bankExportCmd)

	rootCmd.AddCommand(bankCmd)
}
