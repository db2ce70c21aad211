package parsers

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"github.com/username/playerstatements/backend/src/models"
	"github.com/username/playerstatements/backend/src/security/validation"
	"github.com/xuri/excelize/v2"
)

// ReadRows reads an uploaded spreadsheet into header-keyed rows. The format
// is chosen by filename extension: .xlsx goes through excelize, everything
// else is treated as CSV. The first row is the header; short rows are padded
// with empty cells.
func ReadRows(file io.Reader, filename string) ([]models.Row, error) {
	if strings.HasSuffix(strings.ToLower(filename), ".xlsx") {
		return readXLSXRows(file)
	}
	return readCSVRows(file)
}

func readCSVRows(file io.Reader) ([]models.Row, error) {
	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV header: %w", err)
	}

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read all CSV records: %w", err)
	}

	return recordsToRows(header, records), nil
}

func readXLSXRows(file io.Reader) ([]models.Row, error) {
	f, err := excelize.OpenReader(file)
	if err != nil {
		return nil, fmt.Errorf("failed to open xlsx file: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("xlsx file contains no sheets")
	}

	records, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("failed to read xlsx rows: %w", err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("xlsx sheet %q is empty", sheets[0])
	}

	return recordsToRows(records[0], records[1:]), nil
}

func recordsToRows(header []string, records [][]string) []models.Row {
	columns := make([]string, len(header))
	for i, name := range header {
		columns[i] = strings.TrimSpace(validation.StripUnprintable(name))
	}

	rows := make([]models.Row, 0, len(records))
	for _, record := range records {
		row := make(models.Row, len(columns))
		for i, name := range columns {
			if name == "" {
				continue
			}
			if i < len(record) {
				row[name] = validation.StripUnprintable(record[i])
			} else {
				row[name] = ""
			}
		}
		rows = append(rows, row)
	}
	return rows
}
