package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/santiaoqiao/sheetmap/excel"
)

// writeJSON writes v to path, or to stdout when path is empty.
func writeJSON(stdout io.Writer, path string, v any, pretty bool) error {
	var (
		data []byte
		err  error
	)
	if pretty {
		data, err = json.MarshalIndent(v, "", "  ")
	} else {
		data, err = json.Marshal(v)
	}
	if err != nil {
		return fmt.Errorf("serialization failed: %w", err)
	}
	if path == "" {
		_, err = fmt.Fprintln(stdout, string(data))
		return err
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

// openSheet opens input and activates the sheet given by name, or by index
// when name is empty and index is not negative.
func openSheet(input string, schema *excel.Schema, name string, index int) (*excel.Handler, error) {
	if _, err := os.Stat(input); os.IsNotExist(err) {
		return nil, fmt.Errorf("file not found: %s", input)
	}
	h, err := excel.Open(input, schema)
	if err != nil {
		return nil, err
	}
	switch {
	case name != "":
		err = h.SetSheetByName(name)
	case index >= 0:
		err = h.SetSheet(index)
	}
	if err != nil {
		h.Close()
		return nil, err
	}
	return h, nil
}
