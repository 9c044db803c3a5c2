package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"sekolah-service/internal/schoolimport/model"
)

// OpenBatch writes the start of an audit record and sets b.ID. Without an
// audit table it does nothing and leaves b.ID at zero.
func (p *Postgres) OpenBatch(ctx context.Context, b *model.ImportBatch) error {
	if !p.caps.ImportLogs {
		p.logger.Debug().Str("batch", b.BatchID).Msg("no school_import_logs table, audit skipped")
		return nil
	}
	args := []any{b.BatchID, b.Filename, b.Total, b.ActorID}
	if p.caps.StrategyColumn {
		args = append(args, string(b.Strategy))
	}
	if err := p.db.QueryRowContext(ctx, openBatchSQL(p.caps), args...).Scan(&b.ID); err != nil {
		return fmt.Errorf("failed to open import batch: %w", err)
	}
	return nil
}

// FinishBatch stamps counts, errors and completed_at on the audit record.
func (p *Postgres) FinishBatch(ctx context.Context, b model.ImportBatch) error {
	if b.ID == 0 {
		return nil
	}
	args := []any{b.Imported, b.Updated, b.Failed, strings.Join(b.Errors, "\n")}
	if p.caps.NormalizationLog {
		raw, err := json.Marshal(b.Log)
		if err != nil {
			return fmt.Errorf("failed to encode normalization log: %w", err)
		}
		args = append(args, string(raw))
	}
	args = append(args, b.ID)
	if _, err := p.db.ExecContext(ctx, finishBatchSQL(p.caps), args...); err != nil {
		return fmt.Errorf("failed to finish import batch: %w", err)
	}
	return nil
}

func openBatchSQL(c Capabilities) string {
	cols := "batch_id, filename, total_records, imported_by, started_at"
	vals := "$1, $2, $3, $4, NOW()"
	if c.StrategyColumn {
		cols += ", strategy"
		vals += ", $5"
	}
	return fmt.Sprintf(`INSERT INTO school_import_logs (%s) VALUES (%s) RETURNING id`, cols, vals)
}

func finishBatchSQL(c Capabilities) string {
	set := "imported_records = $1, updated_records = $2, failed_records = $3, errors = $4, completed_at = NOW()"
	where := "$5"
	if c.NormalizationLog {
		set += ", normalization_log = $5"
		where = "$6"
	}
	return fmt.Sprintf(`UPDATE school_import_logs SET %s WHERE id = %s`, set, where)
}

// ListBatches reads the newest audit records. Without an audit table the
// history is empty; missing optional columns read as zero values.
func (p *Postgres) ListBatches(ctx context.Context, limit int) ([]model.ImportBatch, error) {
	out := []model.ImportBatch{}
	if !p.caps.ImportLogs {
		return out, nil
	}
	rows, err := p.db.QueryContext(ctx, listBatchesSQL(p.caps), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list import batches: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			b        model.ImportBatch
			actor    sql.NullInt64
			errs     string
			strategy string
			rawLog   []byte
			done     sql.NullTime
		)
		dest := []any{&b.ID, &b.BatchID, &b.Filename, &b.Total, &b.Imported, &b.Updated, &b.Failed,
			&errs, &actor, &b.StartedAt, &done}
		if p.caps.StrategyColumn {
			dest = append(dest, &strategy)
		}
		if p.caps.NormalizationLog {
			dest = append(dest, &rawLog)
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("failed to scan import batch: %w", err)
		}
		b.Strategy = model.Strategy(strategy)
		if actor.Valid {
			b.ActorID = &actor.Int64
		}
		if done.Valid {
			b.CompletedAt = &done.Time
		}
		if errs != "" {
			b.Errors = strings.Split(errs, "\n")
		}
		if len(rawLog) > 0 {
			if err := json.Unmarshal(rawLog, &b.Log); err != nil {
				p.logger.Warn().Err(err).Str("batch", b.BatchID).Msg("unreadable normalization log")
			}
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

func listBatchesSQL(c Capabilities) string {
	cols := []string{
		"id", "batch_id", "COALESCE(filename, '')", "COALESCE(total_records, 0)",
		"COALESCE(imported_records, 0)", "COALESCE(updated_records, 0)", "COALESCE(failed_records, 0)",
		"COALESCE(errors, '')", "imported_by", "COALESCE(started_at, NOW())", "completed_at",
	}
	if c.StrategyColumn {
		cols = append(cols, "COALESCE(strategy, '')")
	}
	if c.NormalizationLog {
		cols = append(cols, "normalization_log")
	}
	return fmt.Sprintf(`SELECT %s FROM school_import_logs ORDER BY started_at DESC, id DESC LIMIT $1`,
		strings.Join(cols, ", "))
}
