package reconcile

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"
)

// Sheet is an imported table: ordered headers plus ordered records.
type Sheet struct {
	Headers []string
	Records []Record
}

// ReadFile dispatches on the file extension.
func ReadFile(name string, r io.Reader) (Sheet, error) {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".xlsx", ".xlsm", ".xltx":
		return ReadWorkbook(r)
	case ".csv":
		return ReadCSV(r)
	default:
		return Sheet{}, fmt.Errorf("%w: %q", ErrUnsupportedFormat, filepath.Ext(name))
	}
}

// ReadWorkbook reads the first worksheet of an xlsx workbook.
func ReadWorkbook(r io.Reader) (Sheet, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return Sheet{}, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return Sheet{}, ErrEmptySheet
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return Sheet{}, fmt.Errorf("read rows: %w", err)
	}
	return buildSheet(rows)
}

// ReadCSV reads a comma separated file with a header row.
func ReadCSV(r io.Reader) (Sheet, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true
	var rows [][]string
	for {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return Sheet{}, fmt.Errorf("read csv: %w", err)
		}
		rows = append(rows, row)
	}
	return buildSheet(rows)
}

func buildSheet(rows [][]string) (Sheet, error) {
	start := 0
	for start < len(rows) && blank(rows[start]) {
		start++
	}
	if start == len(rows) {
		return Sheet{}, ErrEmptySheet
	}

	headers := uniqueHeaders(rows[start])
	sheet := Sheet{Headers: headers}
	for _, row := range rows[start+1:] {
		if blank(row) {
			continue
		}
		rec := make(Record, len(headers))
		for idx, header := range headers {
			if header == "" {
				continue
			}
			if idx < len(row) {
				rec[header] = strings.TrimSpace(row[idx])
			} else {
				rec[header] = ""
			}
		}
		sheet.Records = append(sheet.Records, rec)
	}
	return sheet, nil
}

// uniqueHeaders trims headers and suffixes repeated names with their occurrence number.
func uniqueHeaders(raw []string) []string {
	seen := make(map[string]int, len(raw))
	out := make([]string, len(raw))
	for idx, h := range raw {
		name := strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
		if name == "" {
			continue
		}
		seen[name]++
		if n := seen[name]; n > 1 {
			name = fmt.Sprintf("%s (%d)", name, n)
		}
		out[idx] = name
	}
	return out
}

func blank(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
