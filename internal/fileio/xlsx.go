package fileio

import (
	"io"

	excelize "github.com/xuri/excelize/v2"
)

// readXLSX streams the first sheet that has any rows. Ministry exports
// sometimes lead with an empty cover sheet.
func readXLSX(r io.Reader) ([][]string, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	for _, sheet := range f.GetSheetList() {
		rows, err := sheetRows(f, sheet)
		if err != nil {
			return nil, err
		}
		if len(rows) > 0 {
			return rows, nil
		}
	}
	return nil, nil
}

func sheetRows(f *excelize.File, sheet string) ([][]string, error) {
	it, err := f.Rows(sheet)
	if err != nil {
		return nil, err
	}
	defer it.Close()

	var out [][]string
	for it.Next() {
		cols, err := it.Columns()
		if err != nil {
			return nil, err
		}
		out = append(out, cols)
	}
	if err := it.Error(); err != nil {
		return nil, err
	}
	// trailing blank rows are still yielded by the iterator
	for len(out) > 0 && blank(out[len(out)-1]) {
		out = out[:len(out)-1]
	}
	return out, nil
}

func blank(row []string) bool {
	for _, c := range row {
		if c != "" {
			return false
		}
	}
	return true
}
