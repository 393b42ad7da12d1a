package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/santiaoqiao/sheetmap/excel"
)

func newWriteCmd(cfg *Config) *cobra.Command {
	var (
		schemaPath string
		dataPath   string
		sheet      string
		titles     bool
		autoFit    bool
	)

	cmd := &cobra.Command{
		Use:   "write <output.xlsx>",
		Short: "Write JSON records to a new xlsx workbook",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if format, err := excel.FormatFromPath(args[0]); err != nil {
				return err
			} else if format != excel.FormatXLSX {
				return fmt.Errorf("%w: only xlsx can be written", excel.ErrUnsupportedFormat)
			}
			def, err := excel.LoadDefinition(schemaPath)
			if err != nil {
				return err
			}
			schema, err := def.Schema()
			if err != nil {
				return err
			}
			records, err := readRecords(cmd.InOrStdin(), dataPath)
			if err != nil {
				return err
			}
			if sheet == "" {
				sheet = def.Sheet
			}

			h := excel.Create(args[0], schema)
			defer h.Close()
			if sheet != "" {
				if err := h.AddSheet(sheet); err != nil {
					return err
				}
			}
			h.AutoFit(autoFit)
			if err := h.Write(records, titles); err != nil {
				return err
			}
			if err := h.Save(); err != nil {
				return err
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "%d records written to %s\n", len(records), args[0])
			return nil
		},
	}

	cmd.Flags().StringVarP(&schemaPath, "schema", "s", "", "YAML schema definition (required)")
	cmd.Flags().StringVarP(&dataPath, "data", "d", "-", `JSON array of records, "-" for stdin`)
	cmd.Flags().StringVar(&sheet, "sheet", "", "sheet name (default from the schema)")
	cmd.Flags().BoolVar(&titles, "titles", true, "write field labels in the first row")
	cmd.Flags().BoolVar(&autoFit, "autofit", false, "fit column widths to the values written")
	_ = cmd.MarkFlagRequired("schema")

	return cmd
}

func readRecords(stdin io.Reader, path string) ([]excel.Record, error) {
	r := stdin
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("file opening failed. %s: %w", path, err)
		}
		defer f.Close()
		r = f
	}
	var records []excel.Record
	if err := json.NewDecoder(r).Decode(&records); err != nil {
		return nil, fmt.Errorf("decode records: %w", err)
	}
	return records, nil
}
