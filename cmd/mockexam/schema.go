package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pdiddy/mockexam/internal/paper"
)

var schemaCmd = &cobra.Command{
	Use:   "schema",
	Short: "Print the JSON Schema of a converted test file",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprint(cmd.OutOrStdout(), paper.Schema)
	},
}

func init() {
	rootCmd.AddCommand(schemaCmd)
}
