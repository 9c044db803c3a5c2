package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"sekolah-service/internal/schoolimport/model"
)

// SchoolColumns is the column order shared by inserts, dumps and backup scripts.
var SchoolColumns = []string{
	"kod_sekolah", "nama_sekolah", "negeri", "ppd", "peringkat", "jenis",
	"alamat_surat", "poskod", "bandar", "no_telefon", "no_faks", "email", "lokasi",
	"koordinat_x", "koordinat_y", "jumlah_murid", "jumlah_guru", "prasekolah",
	"integrasi", "bantuan", "status_claim", "import_batch",
}

func (p *Postgres) CountSchools(ctx context.Context) (int, error) {
	var n int
	if err := p.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM schools`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count schools: %w", err)
	}
	return n, nil
}

func (p *Postgres) SchoolExists(ctx context.Context, kod string) (bool, error) {
	var ok bool
	err := p.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM schools WHERE kod_sekolah = $1)`, kod).Scan(&ok)
	if err != nil {
		return false, fmt.Errorf("failed to look up %s: %w", kod, err)
	}
	return ok, nil
}

func (p *Postgres) InsertSchool(ctx context.Context, s model.School) error {
	if s.StatusClaim == "" {
		s.StatusClaim = "UNCLAIMED"
	}
	_, err := p.db.ExecContext(ctx, insertSchoolSQL, schoolArgs(s)...)
	if err != nil {
		return fmt.Errorf("insert %s: %w", s.KodSekolah, err)
	}
	return nil
}

// UpdateSchool rewrites every imported field of an existing row; status_claim
// is owned by the claim flow and left alone.
func (p *Postgres) UpdateSchool(ctx context.Context, s model.School) error {
	res, err := p.db.ExecContext(ctx, `
		UPDATE schools SET
			nama_sekolah = $2, negeri = $3, ppd = $4, peringkat = $5, jenis = $6,
			alamat_surat = $7, poskod = $8, bandar = $9, no_telefon = $10, no_faks = $11,
			email = $12, lokasi = $13, koordinat_x = $14, koordinat_y = $15,
			jumlah_murid = $16, jumlah_guru = $17, prasekolah = $18, integrasi = $19,
			bantuan = $20, import_batch = $21, imported_at = NOW()
		WHERE kod_sekolah = $1`,
		s.KodSekolah, s.NamaSekolah, s.Negeri, s.PPD, s.Peringkat, s.Jenis,
		s.AlamatSurat, s.Poskod, s.Bandar, s.NoTelefon, s.NoFaks,
		s.Email, s.Lokasi, s.KoordinatX, s.KoordinatY,
		s.JumlahMurid, s.JumlahGuru, s.Prasekolah, s.Integrasi,
		s.Bantuan, s.ImportBatch,
	)
	if err != nil {
		return fmt.Errorf("update %s: %w", s.KodSekolah, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("update %s: no such school", s.KodSekolah)
	}
	return nil
}

// ClearSchools empties the table with deferrable constraints postponed to
// commit, so a role without superuser can run it.
func (p *Postgres) ClearSchools(ctx context.Context) error {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin clear: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `SET CONSTRAINTS ALL DEFERRED`); err != nil {
		return fmt.Errorf("failed to relax constraints: %w", err)
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM schools`)
	if err != nil {
		return fmt.Errorf("failed to clear schools: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit clear: %w", err)
	}
	n, _ := res.RowsAffected()
	p.logger.Warn().Int64("rows", n).Msg("schools table cleared")
	return nil
}

// DumpSchools reads the whole table in backup order.
func (p *Postgres) DumpSchools(ctx context.Context) ([]model.School, error) {
	rows, err := p.db.QueryContext(ctx, fmt.Sprintf(
		`SELECT %s FROM schools ORDER BY negeri, bandar, nama_sekolah`,
		strings.Join(SchoolColumns, ", ")))
	if err != nil {
		return nil, fmt.Errorf("failed to read schools: %w", err)
	}
	defer rows.Close()

	var out []model.School
	for rows.Next() {
		s, err := scanSchool(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to read schools: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// ExecStatements replays a script one statement at a time on a single
// connection. The first failure stops the replay; a transaction the script
// opened is rolled back.
func (p *Postgres) ExecStatements(ctx context.Context, stmts []string) (err error) {
	conn, err := p.db.Conn(ctx)
	if err != nil {
		return fmt.Errorf("failed to acquire connection: %w", err)
	}
	defer func() {
		if err != nil {
			// outside a transaction postgres only warns
			if _, rbErr := conn.ExecContext(context.WithoutCancel(ctx), `ROLLBACK`); rbErr != nil {
				p.logger.Error().Err(rbErr).Msg("rollback after failed replay")
			}
		}
		conn.Close()
	}()

	for i, stmt := range stmts {
		if _, err := conn.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("statement %d of %d: %w", i+1, len(stmts), err)
		}
	}
	return nil
}

var insertSchoolSQL = fmt.Sprintf(`INSERT INTO schools (%s) VALUES (%s)`,
	strings.Join(SchoolColumns, ", "), placeholders(len(SchoolColumns)))

func placeholders(n int) string {
	ph := make([]string, n)
	for i := range ph {
		ph[i] = fmt.Sprintf("$%d", i+1)
	}
	return strings.Join(ph, ", ")
}

func schoolArgs(s model.School) []any {
	return []any{
		s.KodSekolah, s.NamaSekolah, s.Negeri, s.PPD, s.Peringkat, s.Jenis,
		s.AlamatSurat, s.Poskod, s.Bandar, s.NoTelefon, s.NoFaks, s.Email, s.Lokasi,
		s.KoordinatX, s.KoordinatY, s.JumlahMurid, s.JumlahGuru, s.Prasekolah,
		s.Integrasi, s.Bantuan, s.StatusClaim, s.ImportBatch,
	}
}

func scanSchool(rows *sql.Rows) (model.School, error) {
	var (
		s    model.School
		str  [16]sql.NullString
		x, y sql.NullFloat64
		m, g sql.NullInt64
	)
	err := rows.Scan(
		&s.KodSekolah, &s.NamaSekolah, &str[0], &str[1], &str[2], &str[3],
		&str[4], &str[5], &str[6], &str[7], &str[8], &str[9], &str[10],
		&x, &y, &m, &g, &str[11],
		&str[12], &str[13], &str[14], &str[15],
	)
	if err != nil {
		return s, err
	}
	s.Negeri, s.PPD, s.Peringkat, s.Jenis = str[0].String, str[1].String, str[2].String, str[3].String
	s.AlamatSurat, s.Poskod, s.Bandar = str[4].String, str[5].String, str[6].String
	s.NoTelefon, s.NoFaks, s.Email, s.Lokasi = str[7].String, str[8].String, str[9].String, str[10].String
	s.Prasekolah, s.Integrasi, s.Bantuan = str[11].String, str[12].String, str[13].String
	s.StatusClaim, s.ImportBatch = str[14].String, str[15].String
	if x.Valid {
		s.KoordinatX = &x.Float64
	}
	if y.Valid {
		s.KoordinatY = &y.Float64
	}
	s.JumlahMurid, s.JumlahGuru = int(m.Int64), int(g.Int64)
	return s, nil
}
