package main

import (
	"github.com/spf13/cobra"
)

func newRowsCmd(cfg *Config) *cobra.Command {
	var (
		columns    map[string]int
		sheet      string
		sheetIndex int
		startRow   int
		maxRows    int
		output     string
	)

	cmd := &cobra.Command{
		Use:     "rows <input>",
		Short:   "Read raw cell text of named columns",
		Example: `  sheetmap rows data.xlsx --col name=0 --col score=2 --start 1`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			h, err := openSheet(args[0], nil, sheet, sheetIndex)
			if err != nil {
				return err
			}
			defer h.Close()
			records, err := h.ReadColumns(columns, startRow, maxRows)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), output, records, cfg.Pretty)
		},
	}

	cmd.Flags().StringToIntVar(&columns, "col", nil, "key=column pairs, columns 0-based (required)")
	cmd.Flags().StringVar(&sheet, "sheet", "", `sheet name, or "[n]" for the sheet at index n`)
	cmd.Flags().IntVar(&sheetIndex, "sheet-index", -1, "0-based sheet index")
	cmd.Flags().IntVar(&startRow, "start", 0, "first 0-based row")
	cmd.Flags().IntVar(&maxRows, "max", -1, "maximum rows (-1 = all)")
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default stdout)")
	_ = cmd.MarkFlagRequired("col")
	cmd.MarkFlagsMutuallyExclusive("sheet", "sheet-index")

	return cmd
}
