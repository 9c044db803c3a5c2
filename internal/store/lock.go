package store

import (
	"context"
	"fmt"
)

// importLockKey is the pg_advisory_lock key for the schools table import.
const importLockKey int64 = 0x5343484f4f4c53

// LockImports blocks until no other process is importing. The lock lives on a
// dedicated connection and is released by the returned func.
func (p *Postgres) LockImports(ctx context.Context) (func(), error) {
	conn, err := p.db.Conn(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to acquire lock connection: %w", err)
	}
	if _, err := conn.ExecContext(ctx, `SELECT pg_advisory_lock($1)`, importLockKey); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to take import lock: %w", err)
	}
	return func() {
		if _, err := conn.ExecContext(context.Background(), `SELECT pg_advisory_unlock($1)`, importLockKey); err != nil {
			p.logger.Error().Err(err).Msg("failed to release import lock")
		}
		conn.Close()
	}, nil
}
