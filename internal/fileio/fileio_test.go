package fileio

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	excelize "github.com/xuri/excelize/v2"
)

func buildXLSX(t *testing.T, rows [][]any) *bytes.Buffer {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	sheet := f.GetSheetName(0)
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow(sheet, cell, &row))
	}
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	return buf
}

func TestReadColumnsXLSX(t *testing.T) {
	buf := buildXLSX(t, [][]any{
		{"SENARAI SEKOLAH"},
		{"BIL", "NEGERI", "PPD", "PERINGKAT", "JENIS", "KODSEKOLAH", "NAMASEKOLAH"},
		{1, "Selangor", "PPD Petaling", "Rendah", "SK", "BBA1234", "SK Taman Megah"},
		{},
		{2, " WP Labuan ", "", "", "", "WAA0001", "SK Labuan"},
	})

	recs, err := ReadColumns(buf, "sekolah.xlsx", 2)
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, "Selangor", recs[0].Get("B"))
	assert.Equal(t, "BBA1234", recs[0].Get("F"))
	assert.Equal(t, "SK Taman Megah", recs[0].Get("G"))
	assert.Equal(t, "WP Labuan", recs[1].Get("B"))
	assert.Equal(t, "", recs[1].Get("C"))
	assert.Equal(t, "", recs[1].Get("Z"))
}

func TestReadColumnsCSV(t *testing.T) {
	in := "h1,h2\nx,y\n,,\n\"Kuala Lumpur\",\"SK Bangsar, KL\"\n"
	recs, err := ReadColumns(strings.NewReader(in), "data.CSV", 1)
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, Record{"A": "x", "B": "y"}, recs[0])
	assert.Equal(t, "SK Bangsar, KL", recs[1].Get("B"))
}

func TestReadColumnsUnsupported(t *testing.T) {
	_, err := ReadColumns(strings.NewReader(""), "data.pdf", 0)
	assert.True(t, errors.Is(err, ErrUnsupported))
	assert.False(t, Supported("data.pdf"))
	assert.True(t, Supported("DATA.XLSX"))
}

func TestRowsToRecordsWideColumns(t *testing.T) {
	row := make([]string, 28)
	row[26] = "aa"
	row[27] = "ab"
	recs := rowsToRecords([][]string{row}, 0)
	require.Len(t, recs, 1)
	assert.Equal(t, Record{"AA": "aa", "AB": "ab"}, recs[0])
}

func TestReadColumnsXLSXSkipsEmptyCoverSheet(t *testing.T) {
	f := excelize.NewFile()
	defer f.Close()
	_, err := f.NewSheet("Data")
	require.NoError(t, err)
	rows := [][]any{
		{"BIL", "NEGERI"},
		{1, "Kedah"},
	}
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow("Data", cell, &row))
	}
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)

	recs, err := ReadColumns(buf, "sekolah.xlsx", 1)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, "Kedah", recs[0].Get("B"))
}

func TestReadColumnsCSVSemicolonAndCP1252(t *testing.T) {
	// "Pérlis" in windows-1252
	in := []byte("NEGERI;BANDAR\nP\xe9rlis;Kangar\n")
	recs, err := ReadColumns(bytes.NewReader(in), "export.csv", 1)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, "Kangar", recs[0].Get("B"))
	assert.True(t, strings.HasPrefix(recs[0].Get("A"), "P"))
	assert.True(t, strings.HasSuffix(recs[0].Get("A"), "rlis"))
}

func TestSniffDelimiter(t *testing.T) {
	assert.Equal(t, ';', sniffDelimiter([]byte("a;b;c\n1,5;2;3")))
	assert.Equal(t, ',', sniffDelimiter([]byte("a,b;c\n")))
	assert.Equal(t, ',', sniffDelimiter(nil))
}
