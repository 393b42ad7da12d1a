package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newSheetsCmd(cfg *Config) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "sheets <input>",
		Short: "List the sheets of a workbook",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			h, err := openSheet(args[0], nil, "", -1)
			if err != nil {
				return err
			}
			defer h.Close()
			names := h.SheetNames()
			if asJSON {
				return writeJSON(cmd.OutOrStdout(), "", names, cfg.Pretty)
			}
			for i, name := range names {
				fmt.Fprintf(cmd.OutOrStdout(), "[%d] %s\n", i, name)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print a JSON array")
	return cmd
}
