// Package store is the postgres side of the school import: the schools table,
// the school_import_logs audit table and the cross-process import lock.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"
	"github.com/rs/zerolog"
)

type Options struct {
	DSN          string
	MaxOpenConns int
	MaxIdleConns int
}

// Capabilities records which optional audit columns the connected schema has.
// Older deployments predate strategy and normalization_log.
type Capabilities struct {
	ImportLogs       bool `json:"importLogs"`
	StrategyColumn   bool `json:"strategyColumn"`
	NormalizationLog bool `json:"normalizationLog"`
}

type Postgres struct {
	db     *sql.DB
	caps   Capabilities
	logger zerolog.Logger
}

// Open connects, pings and probes the audit schema once.
func Open(ctx context.Context, opts Options, logger zerolog.Logger) (*Postgres, error) {
	db, err := sql.Open("postgres", opts.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if opts.MaxOpenConns > 0 {
		db.SetMaxOpenConns(opts.MaxOpenConns)
	}
	if opts.MaxIdleConns > 0 {
		db.SetMaxIdleConns(opts.MaxIdleConns)
	}
	db.SetConnMaxIdleTime(5 * time.Minute)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	p := &Postgres{db: db, logger: logger.With().Str("component", "store").Logger()}
	if err := p.Probe(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return p, nil
}

// Probe re-reads the audit table shape. Open calls it; migrate calls it again
// after creating the schema.
func (p *Postgres) Probe(ctx context.Context) error {
	rows, err := p.db.QueryContext(ctx, `
		SELECT column_name FROM information_schema.columns
		WHERE table_schema = current_schema() AND table_name = 'school_import_logs'`)
	if err != nil {
		return fmt.Errorf("failed to probe schema: %w", err)
	}
	defer rows.Close()

	var cols []string
	for rows.Next() {
		var c string
		if err := rows.Scan(&c); err != nil {
			return fmt.Errorf("failed to probe schema: %w", err)
		}
		cols = append(cols, c)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("failed to probe schema: %w", err)
	}
	p.caps = capabilitiesFrom(cols)
	p.logger.Info().
		Bool("import_logs", p.caps.ImportLogs).
		Bool("strategy_column", p.caps.StrategyColumn).
		Bool("normalization_log", p.caps.NormalizationLog).
		Msg("schema probed")
	return nil
}

func capabilitiesFrom(columns []string) Capabilities {
	var c Capabilities
	for _, col := range columns {
		c.ImportLogs = true
		switch col {
		case "strategy":
			c.StrategyColumn = true
		case "normalization_log":
			c.NormalizationLog = true
		}
	}
	return c
}

func (p *Postgres) Capabilities() Capabilities { return p.caps }

func (p *Postgres) DB() *sql.DB { return p.db }

func (p *Postgres) Close() error { return p.db.Close() }
