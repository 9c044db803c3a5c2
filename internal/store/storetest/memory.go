// Package storetest has an in-memory stand-in for the postgres store.
package storetest

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"sekolah-service/internal/schoolimport/model"
)

type Memory struct {
	mu      sync.Mutex
	schools map[string]model.School
	nextID  int64

	Opened     []model.ImportBatch
	Finished   []model.ImportBatch
	Statements [][]string
	Writes     int
	Clears     int
	Locks      int

	// failure injection
	InsertErr    map[string]error
	CountErr     error
	OpenBatchErr error
	ClearErr     error
}

func NewMemory(seed ...model.School) *Memory {
	m := &Memory{schools: map[string]model.School{}, InsertErr: map[string]error{}}
	for _, s := range seed {
		m.schools[s.KodSekolah] = s
	}
	return m
}

func (m *Memory) Get(kod string) (model.School, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.schools[kod]
	return s, ok
}

func (m *Memory) CountSchools(context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.CountErr != nil {
		return 0, m.CountErr
	}
	return len(m.schools), nil
}

func (m *Memory) SchoolExists(_ context.Context, kod string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.schools[kod]
	return ok, nil
}

func (m *Memory) InsertSchool(_ context.Context, s model.School) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.InsertErr[s.KodSekolah]; err != nil {
		return err
	}
	if _, dup := m.schools[s.KodSekolah]; dup {
		return fmt.Errorf("insert %s: duplicate key value violates unique constraint", s.KodSekolah)
	}
	if s.StatusClaim == "" {
		s.StatusClaim = "UNCLAIMED"
	}
	m.schools[s.KodSekolah] = s
	m.Writes++
	return nil
}

func (m *Memory) UpdateSchool(_ context.Context, s model.School) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	old, ok := m.schools[s.KodSekolah]
	if !ok {
		return fmt.Errorf("update %s: no such school", s.KodSekolah)
	}
	s.StatusClaim = old.StatusClaim
	m.schools[s.KodSekolah] = s
	m.Writes++
	return nil
}

func (m *Memory) ClearSchools(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ClearErr != nil {
		return m.ClearErr
	}
	m.schools = map[string]model.School{}
	m.Writes++
	m.Clears++
	return nil
}

func (m *Memory) OpenBatch(_ context.Context, b *model.ImportBatch) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.OpenBatchErr != nil {
		return m.OpenBatchErr
	}
	m.nextID++
	b.ID = m.nextID
	b.StartedAt = time.Now()
	m.Opened = append(m.Opened, *b)
	return nil
}

func (m *Memory) FinishBatch(_ context.Context, b model.ImportBatch) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if b.ID == 0 {
		return nil
	}
	now := time.Now()
	b.CompletedAt = &now
	m.Finished = append(m.Finished, b)
	return nil
}

func (m *Memory) LockImports(context.Context) (func(), error) {
	m.mu.Lock()
	m.Locks++
	m.mu.Unlock()
	return func() {}, nil
}

// DumpSchools returns rows in backup order.
func (m *Memory) DumpSchools(context.Context) ([]model.School, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]model.School, 0, len(m.schools))
	for _, s := range m.schools {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Negeri != b.Negeri {
			return a.Negeri < b.Negeri
		}
		if a.Bandar != b.Bandar {
			return a.Bandar < b.Bandar
		}
		return a.NamaSekolah < b.NamaSekolah
	})
	return out, nil
}

// ExecStatements records the replay; a table clear empties the map.
func (m *Memory) ExecStatements(_ context.Context, stmts []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Statements = append(m.Statements, stmts)
	for _, s := range stmts {
		if strings.HasPrefix(s, "DELETE FROM schools") {
			m.schools = map[string]model.School{}
		}
	}
	return nil
}

// ListBatches returns audit records newest first; finished ones carry their
// final counts and completion time.
func (m *Memory) ListBatches(_ context.Context, limit int) ([]model.ImportBatch, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	final := map[int64]model.ImportBatch{}
	for _, b := range m.Finished {
		final[b.ID] = b
	}
	out := make([]model.ImportBatch, 0, len(m.Opened))
	for i := len(m.Opened) - 1; i >= 0 && len(out) < limit; i-- {
		b := m.Opened[i]
		if f, ok := final[b.ID]; ok {
			b = f
		}
		out = append(out, b)
	}
	return out, nil
}
