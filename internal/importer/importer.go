package importer

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/autotally/tallybridge/internal/normalize"
)

// ReadFile dispatches on the file extension: .xlsx (and .xlsm) through
// excelize, .csv through the CSV reader.
func ReadFile(path string) ([]normalize.RawRow, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening input file: %w", err)
	}
	defer f.Close()
	return Read(filepath.Base(path), f)
}

// Read reads rows from r, using name's extension to pick the format.
func Read(name string, r io.Reader) ([]normalize.RawRow, error) {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".xlsx", ".xlsm":
		return ReadXLSX(r)
	case ".csv":
		return ReadCSV(r)
	default:
		return nil, fmt.Errorf("unsupported input format %q (want .xlsx or .csv)", filepath.Ext(name))
	}
}

// ReadXLSX reads the first sheet of a workbook. The first row is the header
// row; every following row becomes a RawRow keyed by canonical field names.
func ReadXLSX(r io.Reader) ([]normalize.RawRow, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("opening workbook: %w", err)
	}
	defer f.Close()

	sheet := f.GetSheetName(0)
	if sheet == "" {
		return nil, fmt.Errorf("workbook has no sheets")
	}
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("reading sheet %q: %w", sheet, err)
	}
	return rowsFromTable(rows)
}

// ReadCSV reads comma-separated rows, header row first.
func ReadCSV(r io.Reader) ([]normalize.RawRow, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading csv: %w", err)
	}
	return rowsFromTable(records)
}

func rowsFromTable(table [][]string) ([]normalize.RawRow, error) {
	if len(table) == 0 {
		return nil, fmt.Errorf("input has no rows")
	}
	fields := mapHeaders(table[0])
	if len(fields) == 0 {
		return nil, fmt.Errorf("no recognizable columns in header row %v", table[0])
	}

	rows := make([]normalize.RawRow, 0, len(table)-1)
	for _, cells := range table[1:] {
		if emptyRow(cells) {
			continue
		}
		rows = append(rows, rowFromCells(cells, fields))
	}
	return rows, nil
}

func emptyRow(cells []string) bool {
	for _, c := range cells {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
