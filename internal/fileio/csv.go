package fileio

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"errors"
	"io"
	"strings"

	"github.com/saintfish/chardet"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

const sniffBytes = 4096

// Charsets chardet reports for spreadsheet CSV exports. Anything else is read
// as UTF-8 with an optional BOM.
var csvDecoders = map[string]encoding.Encoding{
	"windows-1252": charmap.Windows1252,
	"iso-8859-1":   charmap.ISO8859_1,
	"utf-16le":     unicode.UTF16(unicode.LittleEndian, unicode.UseBOM),
	"utf-16be":     unicode.UTF16(unicode.BigEndian, unicode.UseBOM),
}

func detectCharset(sample []byte) string {
	if len(sample) == 0 {
		return "utf-8"
	}
	det, err := chardet.NewTextDetector().DetectBest(sample)
	if err != nil || det == nil {
		return "utf-8"
	}
	return strings.ToLower(det.Charset)
}

// sniffDelimiter picks ';' when the first line has more of them than commas,
// which is what Excel writes under a Malay or European locale.
func sniffDelimiter(sample []byte) rune {
	line := sample
	if i := bytes.IndexByte(sample, '\n'); i >= 0 {
		line = sample[:i]
	}
	if bytes.Count(line, []byte{';'}) > bytes.Count(line, []byte{','}) {
		return ';'
	}
	return ','
}

func readCSV(r io.Reader) ([][]string, error) {
	br := bufio.NewReaderSize(r, sniffBytes)
	sample, _ := br.Peek(sniffBytes)

	var src io.Reader
	if enc, ok := csvDecoders[detectCharset(sample)]; ok {
		src = transform.NewReader(br, enc.NewDecoder())
	} else {
		src = transform.NewReader(br, unicode.BOMOverride(transform.Nop))
	}

	cr := csv.NewReader(src)
	cr.Comma = sniffDelimiter(sample)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	var rows [][]string
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			return rows, nil
		}
		if err != nil {
			return nil, err
		}
		rows = append(rows, rec)
	}
}
