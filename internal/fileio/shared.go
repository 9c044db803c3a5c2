package fileio

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	excelize "github.com/xuri/excelize/v2"
)

// ErrUnsupported is returned for uploads whose extension has no reader.
var ErrUnsupported = errors.New("unsupported file type")

// Record is one sheet row keyed by column letter ("A", "B", ... "AA").
type Record map[string]string

// Get returns the trimmed cell of a column; missing columns read as "".
func (r Record) Get(col string) string {
	return strings.TrimSpace(r[col])
}

// ReadColumns picks a reader by extension and returns every non-empty row at or
// after startRow (0-based) of the first sheet that has data.
func ReadColumns(r io.Reader, filename string, startRow int) ([]Record, error) {
	if startRow < 0 {
		startRow = 0
	}
	ext := strings.ToLower(filepath.Ext(filename))
	var (
		rows [][]string
		err  error
	)
	switch ext {
	case ".xlsx", ".xlsm":
		rows, err = readXLSX(r)
	case ".xls":
		rows, err = readXLS(r)
	case ".csv":
		rows, err = readCSV(r)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupported, filename)
	}
	if err != nil {
		return nil, err
	}
	return rowsToRecords(rows, startRow), nil
}

// Supported reports whether ReadColumns knows the file's extension.
func Supported(filename string) bool {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".xlsx", ".xlsm", ".xls", ".csv":
		return true
	}
	return false
}

// rowsToRecords turns AoA into column-letter records, skipping fully empty rows.
func rowsToRecords(rows [][]string, startRow int) []Record {
	var out []Record
	for i := startRow; i < len(rows); i++ {
		rec := Record{}
		empty := true
		for c, v := range rows[i] {
			v = normalizeCell(v)
			if v == "" {
				continue
			}
			name, err := excelize.ColumnNumberToName(c + 1)
			if err != nil {
				break
			}
			rec[name] = v
			empty = false
		}
		if !empty {
			out = append(out, rec)
		}
	}
	return out
}

// normalizeCell trims the cell and folds non-breaking spaces that Excel exports
// tend to carry.
func normalizeCell(s string) string {
	s = strings.NewReplacer("\u00a0", " ", "\u202f", " ", "\r", "").Replace(s)
	return strings.TrimSpace(s)
}
