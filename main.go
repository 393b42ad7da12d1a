// Command sheetmap maps spreadsheet rows to JSON records and back, driven by
// a YAML schema definition.
package main

import (
	"fmt"
	"os"

	// lookup queries in schema definitions
	_ "github.com/go-sql-driver/mysql"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

func main() {
	cfg, err := loadConfig()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if err := cfg.setupLogging(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if err := newRootCmd(cfg).Execute(); err != nil {
		log.Debugf("command failed: %v", err)
		os.Exit(1)
	}
}

func newRootCmd(cfg *Config) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "sheetmap",
		Short: "Map spreadsheet rows to records",
		Long: `sheetmap reads the rows of an xlsx or xls sheet into JSON records using a
YAML schema of named, typed columns, and writes records back to xlsx.`,
		SilenceUsage: true,
	}
	rootCmd.AddCommand(
		newReadCmd(cfg),
		newWriteCmd(cfg),
		newRowsCmd(cfg),
		newSheetsCmd(cfg),
	)
	return rootCmd
}
