package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/santiaoqiao/sheetmap/excel"
)

type readResult struct {
	Sheet   string         `json:"sheet"`
	Records []excel.Record `json:"records"`
	Errors  []rowErrorJSON `json:"errors,omitempty"`
}

type rowErrorJSON struct {
	Row   int    `json:"row"`
	Field string `json:"field,omitempty"`
	Error string `json:"error"`
}

func newReadCmd(cfg *Config) *cobra.Command {
	var (
		schemaPath string
		sheet      string
		sheetIndex int
		skipTitles bool
		failFast   bool
		keepBlank  bool
		rowIndex   bool
		trim       bool
		startRow   int
		maxRows    int
		output     string
		pretty     bool
	)

	cmd := &cobra.Command{
		Use:   "read <input>",
		Short: "Read sheet rows into JSON records",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			def, err := excel.LoadDefinition(schemaPath)
			if err != nil {
				return err
			}
			schema, err := def.Schema()
			if err != nil {
				return err
			}
			if sheet == "" && sheetIndex < 0 {
				sheet = def.Sheet
			}
			h, err := openSheet(args[0], schema, sheet, sheetIndex)
			if err != nil {
				return err
			}
			defer h.Close()

			var opts []excel.ReadOption
			if skipTitles {
				opts = append(opts, excel.SkipTitles())
			}
			if failFast {
				opts = append(opts, excel.FailFast())
			}
			if keepBlank {
				opts = append(opts, excel.KeepBlankRows())
			}
			if rowIndex {
				opts = append(opts, excel.IncludeRowIndex())
			}
			if trim {
				opts = append(opts, excel.TrimStrings())
			}
			if startRow > 0 {
				opts = append(opts, excel.StartRow(startRow))
			}
			if maxRows > 0 {
				opts = append(opts, excel.MaxRows(maxRows))
			}

			records, rowErrs, err := h.Read(opts...)
			var rowErr excel.RowError
			if err != nil && !errors.As(err, &rowErr) {
				return err
			}
			result := readResult{Sheet: h.SheetName(), Records: records}
			for _, re := range rowErrs {
				result.Errors = append(result.Errors, rowErrorJSON{Row: re.Row, Field: re.Field, Error: re.Err.Error()})
			}
			if werr := writeJSON(cmd.OutOrStdout(), output, result, pretty || cfg.Pretty); werr != nil {
				return werr
			}
			if err != nil {
				return fmt.Errorf("stopped at the first bad row: %w", err)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&schemaPath, "schema", "s", "", "YAML schema definition (required)")
	cmd.Flags().StringVar(&sheet, "sheet", "", `sheet name, or "[n]" for the sheet at index n`)
	cmd.Flags().IntVar(&sheetIndex, "sheet-index", -1, "0-based sheet index")
	cmd.Flags().BoolVar(&skipTitles, "skip-titles", false, "skip the title row")
	cmd.Flags().BoolVar(&failFast, "failfast", false, "stop at the first row that cannot be read")
	cmd.Flags().BoolVar(&keepBlank, "keep-blank", false, "keep blank rows")
	cmd.Flags().BoolVar(&rowIndex, "row-index", false, "add the sheet row to every record as "+excel.RowIndexKey)
	cmd.Flags().BoolVar(&trim, "trim", false, "strip spaces around string cells")
	cmd.Flags().IntVar(&startRow, "start-row", 0, "first 1-based row to read")
	cmd.Flags().IntVar(&maxRows, "max-rows", 0, "maximum rows to read (0 = all)")
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default stdout)")
	cmd.Flags().BoolVar(&pretty, "pretty", false, "indent JSON output")
	_ = cmd.MarkFlagRequired("schema")
	cmd.MarkFlagsMutuallyExclusive("sheet", "sheet-index")

	return cmd
}
