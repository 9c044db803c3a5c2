package backup

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"sekolah-service/internal/schoolimport/model"
	"sekolah-service/internal/store"
)

const recordsHeader = "-- Total Records:"

// WriteScript renders rows as a self-contained replay script: header comments,
// then one transaction that defers constraints, clears and re-inserts. Deferral
// needs no superuser; referencing foreign keys must be DEFERRABLE.
func WriteScript(w io.Writer, rows []model.School, generated time.Time) error {
	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "-- Schools Table Backup\n")
	fmt.Fprintf(bw, "-- Generated: %s\n", generated.UTC().Format("2006-01-02T15:04:05.000Z"))
	fmt.Fprintf(bw, "%s %d\n\n", recordsHeader, len(rows))
	fmt.Fprintf(bw, "BEGIN;\n")
	fmt.Fprintf(bw, "SET CONSTRAINTS ALL DEFERRED;\n\n")
	fmt.Fprintf(bw, "DELETE FROM schools;\n\n")

	if len(rows) > 0 {
		fmt.Fprintf(bw, "INSERT INTO schools (%s) VALUES\n", strings.Join(store.SchoolColumns, ", "))
		for i, s := range rows {
			end := ","
			if i == len(rows)-1 {
				end = ";"
			}
			fmt.Fprintf(bw, "(%s)%s\n", strings.Join(scriptValues(s), ", "), end)
		}
		bw.WriteString("\n")
	}

	fmt.Fprintf(bw, "COMMIT;\n")
	return bw.Flush()
}

func scriptValues(s model.School) []string {
	status := s.StatusClaim
	if status == "" {
		status = "UNCLAIMED"
	}
	return []string{
		quote(s.KodSekolah), quote(s.NamaSekolah), quote(s.Negeri), quote(s.PPD),
		quote(s.Peringkat), quote(s.Jenis), quote(s.AlamatSurat), quote(s.Poskod),
		quote(s.Bandar), quote(s.NoTelefon), quote(s.NoFaks), quote(s.Email),
		quote(s.Lokasi), coord(s.KoordinatX), coord(s.KoordinatY),
		strconv.Itoa(s.JumlahMurid), strconv.Itoa(s.JumlahGuru),
		quote(s.Prasekolah), quote(s.Integrasi), quote(s.Bantuan),
		quote(status), quote(s.ImportBatch),
	}
}

// quote makes a postgres string literal. Values with a backslash use the E''
// form so the backslash survives regardless of standard_conforming_strings.
func quote(s string) string {
	s = strings.ReplaceAll(s, "\x00", "")
	s = strings.ReplaceAll(s, "'", "''")
	if strings.Contains(s, `\`) {
		return "E'" + strings.ReplaceAll(s, `\`, `\\`) + "'"
	}
	return "'" + s + "'"
}

func coord(f *float64) string {
	if f == nil {
		return "NULL"
	}
	return strconv.FormatFloat(*f, 'f', -1, 64)
}

// SplitStatements cuts a script on semicolons outside string literals and
// drops "--" comments.
func SplitStatements(script string) []string {
	var (
		out     []string
		cur     strings.Builder
		inQuote bool
	)
	flush := func() {
		if s := strings.TrimSpace(cur.String()); s != "" {
			out = append(out, s)
		}
		cur.Reset()
	}
	for i := 0; i < len(script); i++ {
		c := script[i]
		switch {
		case c == '\'':
			inQuote = !inQuote
			cur.WriteByte(c)
		case inQuote:
			cur.WriteByte(c)
		case c == '-' && i+1 < len(script) && script[i+1] == '-':
			for i < len(script) && script[i] != '\n' {
				i++
			}
			cur.WriteByte('\n')
		case c == ';':
			flush()
		default:
			cur.WriteByte(c)
		}
	}
	flush()
	return out
}

// ReadRecordCount finds the "-- Total Records: N" header line.
func ReadRecordCount(r io.Reader) (int, bool) {
	sc := bufio.NewScanner(r)
	for i := 0; i < 10 && sc.Scan(); i++ {
		line := sc.Text()
		if strings.HasPrefix(line, recordsHeader) {
			n, err := strconv.Atoi(strings.TrimSpace(strings.TrimPrefix(line, recordsHeader)))
			return n, err == nil
		}
	}
	return 0, false
}

// replayable drops the superuser-only session_replication_role switches that
// snapshots from older releases carry.
func replayable(stmts []string) []string {
	out := stmts[:0:0]
	for _, s := range stmts {
		if strings.HasPrefix(strings.ToLower(s), "set session_replication_role") {
			continue
		}
		out = append(out, s)
	}
	return out
}
