// Package backup snapshots the schools table to replayable SQL scripts and
// manages their retention.
package backup

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"sekolah-service/internal/schoolimport/model"
)

var (
	ErrInvalidFilename = errors.New("invalid backup filename")
	ErrBackupNotFound  = errors.New("backup file not found")
)

const filePrefix = "schools_backup_"

var (
	reSnapshot = regexp.MustCompile(`^schools_backup_(\d{4}-\d{2}-\d{2}T\d{2}-\d{2}-\d{2})-(\d{3})Z(?:_[a-z0-9-]+)?\.sql$`)
	reLabel    = regexp.MustCompile(`[^a-z0-9-]+`)
)

// Source is the table being snapshotted and restored.
type Source interface {
	DumpSchools(ctx context.Context) ([]model.School, error)
	ExecStatements(ctx context.Context, stmts []string) error
	CountSchools(ctx context.Context) (int, error)
}

// Mirror keeps an offsite copy of every snapshot.
type Mirror interface {
	Put(ctx context.Context, name, path string) error
	Delete(ctx context.Context, name string) error
}

type Snapshot struct {
	Path          string    `json:"path"`
	Filename      string    `json:"filename"`
	Created       time.Time `json:"created"`
	RecordCount   int       `json:"recordCount"`
	Size          int64     `json:"size"`
	SizeFormatted string    `json:"sizeFormatted"`
}

type Manager struct {
	dir    string
	src    Source
	mirror Mirror
	logger zerolog.Logger
	now    func() time.Time
}

type Option func(*Manager)

func WithMirror(m Mirror) Option { return func(b *Manager) { b.mirror = m } }

func WithLogger(l zerolog.Logger) Option { return func(b *Manager) { b.logger = l } }

func WithClock(now func() time.Time) Option { return func(b *Manager) { b.now = now } }

func NewManager(dir string, src Source, opts ...Option) *Manager {
	m := &Manager{dir: dir, src: src, logger: zerolog.Nop(), now: time.Now}
	for _, o := range opts {
		o(m)
	}
	return m
}

func (m *Manager) Dir() string { return m.dir }

// Snapshot dumps the table into a new timestamped script. label, if given, is
// appended to the filename in sanitized form.
func (m *Manager) Snapshot(ctx context.Context, label string) (Snapshot, error) {
	rows, err := m.src.DumpSchools(ctx)
	if err != nil {
		return Snapshot{}, fmt.Errorf("failed to create backup: %w", err)
	}
	if err := os.MkdirAll(m.dir, 0o755); err != nil {
		return Snapshot{}, fmt.Errorf("failed to create backup dir: %w", err)
	}

	now := m.now().UTC()
	name := SnapshotName(now, label)
	path := filepath.Join(m.dir, name)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return Snapshot{}, fmt.Errorf("failed to create backup: %w", err)
	}
	if err := WriteScript(f, rows, now); err != nil {
		f.Close()
		os.Remove(path)
		return Snapshot{}, fmt.Errorf("failed to write backup: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(path)
		return Snapshot{}, fmt.Errorf("failed to write backup: %w", err)
	}
	st, err := os.Stat(path)
	if err != nil {
		return Snapshot{}, fmt.Errorf("failed to stat backup: %w", err)
	}

	snap := Snapshot{
		Path:          path,
		Filename:      name,
		Created:       now,
		RecordCount:   len(rows),
		Size:          st.Size(),
		SizeFormatted: FormatBytes(st.Size()),
	}
	m.logger.Info().Str("file", name).Int("records", snap.RecordCount).Int64("bytes", snap.Size).Msg("backup created")

	if m.mirror != nil {
		if err := m.mirror.Put(ctx, name, path); err != nil {
			m.logger.Warn().Err(err).Str("file", name).Msg("offsite mirror upload failed")
		}
	}
	return snap, nil
}

// SnapshotName builds schools_backup_<ISO time with - for : and .>Z[_label].sql.
func SnapshotName(t time.Time, label string) string {
	t = t.UTC()
	name := fmt.Sprintf("%s%s-%03dZ", filePrefix, t.Format("2006-01-02T15-04-05"), t.Nanosecond()/int(time.Millisecond))
	if l := sanitizeLabel(label); l != "" {
		name += "_" + l
	}
	return name + ".sql"
}

func sanitizeLabel(s string) string {
	s = strings.TrimSuffix(strings.ToLower(strings.TrimSpace(s)), ".sql")
	s = strings.Trim(reLabel.ReplaceAllString(s, "-"), "-")
	if len(s) > 40 {
		s = strings.TrimRight(s[:40], "-")
	}
	return s
}

func parseSnapshotTime(name string) (time.Time, bool) {
	mm := reSnapshot.FindStringSubmatch(name)
	if mm == nil {
		return time.Time{}, false
	}
	t, err := time.Parse("2006-01-02T15-04-05", mm[1])
	if err != nil {
		return time.Time{}, false
	}
	ms, _ := strconv.Atoi(mm[2])
	return t.Add(time.Duration(ms) * time.Millisecond), true
}

// ValidateFilename rejects anything that could leave the backup directory,
// then anything not named like a snapshot.
func ValidateFilename(name string) error {
	if name == "" || strings.ContainsAny(name, `/\`+"\x00") || strings.Contains(name, "..") ||
		filepath.Base(name) != name {
		return fmt.Errorf("%w: %q", ErrInvalidFilename, name)
	}
	if !reSnapshot.MatchString(name) {
		return fmt.Errorf("%w: %q", ErrInvalidFilename, name)
	}
	return nil
}

// List returns snapshots newest first.
func (m *Manager) List() ([]Snapshot, error) {
	entries, err := os.ReadDir(m.dir)
	if errors.Is(err, fs.ErrNotExist) {
		return []Snapshot{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to list backups: %w", err)
	}

	out := []Snapshot{}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		created, ok := parseSnapshotTime(e.Name())
		if !ok {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		snap := Snapshot{
			Path:          filepath.Join(m.dir, e.Name()),
			Filename:      e.Name(),
			Created:       created,
			Size:          info.Size(),
			SizeFormatted: FormatBytes(info.Size()),
			RecordCount:   -1,
		}
		if f, err := os.Open(snap.Path); err == nil {
			if n, ok := ReadRecordCount(f); ok {
				snap.RecordCount = n
			}
			f.Close()
		}
		out = append(out, snap)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Created.Equal(out[j].Created) {
			return out[i].Filename > out[j].Filename
		}
		return out[i].Created.After(out[j].Created)
	})
	return out, nil
}

func (m *Manager) lookup(name string) (Snapshot, error) {
	if err := ValidateFilename(name); err != nil {
		return Snapshot{}, err
	}
	path := filepath.Join(m.dir, name)
	st, err := os.Stat(path)
	if errors.Is(err, fs.ErrNotExist) {
		return Snapshot{}, fmt.Errorf("%w: %s", ErrBackupNotFound, name)
	}
	if err != nil {
		return Snapshot{}, err
	}
	created, _ := parseSnapshotTime(name)
	return Snapshot{
		Path:          path,
		Filename:      name,
		Created:       created,
		Size:          st.Size(),
		SizeFormatted: FormatBytes(st.Size()),
		RecordCount:   -1,
	}, nil
}

// Open returns a snapshot for download; the caller closes the file.
func (m *Manager) Open(name string) (*os.File, Snapshot, error) {
	snap, err := m.lookup(name)
	if err != nil {
		return nil, Snapshot{}, err
	}
	f, err := os.Open(snap.Path)
	if err != nil {
		return nil, Snapshot{}, fmt.Errorf("failed to open backup: %w", err)
	}
	return f, snap, nil
}

type RestoreResult struct {
	Filename     string    `json:"backup"`
	Statements   int       `json:"statements"`
	CurrentCount int       `json:"currentSchoolCount"`
	RestoredAt   time.Time `json:"restoredAt"`
}

// Restore replays a snapshot statement by statement. Current snapshots wrap
// the clear and insert in one transaction, so a failing statement leaves the
// table as it was.
func (m *Manager) Restore(ctx context.Context, name string) (RestoreResult, error) {
	snap, err := m.lookup(name)
	if err != nil {
		return RestoreResult{}, err
	}
	raw, err := os.ReadFile(snap.Path)
	if err != nil {
		return RestoreResult{}, fmt.Errorf("failed to read backup: %w", err)
	}
	stmts := replayable(SplitStatements(string(raw)))

	log := m.logger.With().Str("file", name).Int("statements", len(stmts)).Logger()
	log.Warn().Msg("restore started")
	if err := m.src.ExecStatements(ctx, stmts); err != nil {
		log.Error().Err(err).Msg("restore failed, table may be partially restored")
		return RestoreResult{}, fmt.Errorf("failed to restore backup: %w", err)
	}

	res := RestoreResult{Filename: name, Statements: len(stmts), RestoredAt: m.now().UTC()}
	if res.CurrentCount, err = m.src.CountSchools(ctx); err != nil {
		log.Warn().Err(err).Msg("count after restore failed")
		res.CurrentCount = -1
	}
	log.Info().Int("schools", res.CurrentCount).Msg("restore done")
	return res, nil
}

// Delete removes one snapshot locally and from the mirror.
func (m *Manager) Delete(ctx context.Context, name string) (Snapshot, error) {
	snap, err := m.lookup(name)
	if err != nil {
		return Snapshot{}, err
	}
	if err := os.Remove(snap.Path); err != nil {
		return Snapshot{}, fmt.Errorf("failed to delete backup: %w", err)
	}
	m.dropMirror(ctx, name)
	m.logger.Info().Str("file", name).Msg("backup deleted")
	return snap, nil
}

func (m *Manager) dropMirror(ctx context.Context, name string) {
	if m.mirror == nil {
		return
	}
	if err := m.mirror.Delete(ctx, name); err != nil {
		m.logger.Warn().Err(err).Str("file", name).Msg("offsite mirror delete failed")
	}
}

type DeletedFile struct {
	Filename string `json:"filename"`
	Size     string `json:"size"`
	Bytes    int64  `json:"bytes"`
	AgeDays  int    `json:"age"`
}

type CleanupReport struct {
	Deleted    []DeletedFile `json:"deletedFiles"`
	FreedBytes int64         `json:"freedBytes"`
	Freed      string        `json:"freedSpace"`
	Remaining  int           `json:"remainingBackups"`
	MaxAgeDays int           `json:"maxAgeDays"`
	MaxCount   int           `json:"maxCount"`
}

// Cleanup deletes every snapshot older than keepDays and every snapshot beyond
// the newest keepCount. Either rule alone is enough.
func (m *Manager) Cleanup(ctx context.Context, keepDays, keepCount int) (CleanupReport, error) {
	all, err := m.List()
	if err != nil {
		return CleanupReport{}, err
	}
	// List is newest first; the sweep runs oldest first
	for i, j := 0, len(all)-1; i < j; i, j = i+1, j-1 {
		all[i], all[j] = all[j], all[i]
	}

	rep := CleanupReport{Deleted: []DeletedFile{}, MaxAgeDays: keepDays, MaxCount: keepCount}
	now := m.now()
	maxAge := time.Duration(keepDays) * 24 * time.Hour
	for i, s := range all {
		age := now.Sub(s.Created)
		isOld := age > maxAge
		overCount := len(all)-i > keepCount
		if !isOld && !overCount {
			continue
		}
		if err := os.Remove(s.Path); err != nil {
			m.logger.Error().Err(err).Str("file", s.Filename).Msg("cleanup: delete failed")
			continue
		}
		m.dropMirror(ctx, s.Filename)
		rep.Deleted = append(rep.Deleted, DeletedFile{
			Filename: s.Filename,
			Size:     s.SizeFormatted,
			Bytes:    s.Size,
			AgeDays:  int(math.Round(age.Hours() / 24)),
		})
		rep.FreedBytes += s.Size
	}
	rep.Freed = FormatBytes(rep.FreedBytes)
	rep.Remaining = len(all) - len(rep.Deleted)
	m.logger.Info().Int("deleted", len(rep.Deleted)).Int("remaining", rep.Remaining).
		Int("keep_days", keepDays).Int("keep_count", keepCount).Msg("backup cleanup done")
	return rep, nil
}

type Ref struct {
	Filename string    `json:"filename"`
	Date     time.Time `json:"date"`
}

type Stats struct {
	TotalBackups int    `json:"totalBackups"`
	TotalBytes   int64  `json:"totalBytes"`
	TotalSize    string `json:"totalSize"`
	Oldest       *Ref   `json:"oldestBackup"`
	Newest       *Ref   `json:"newestBackup"`
	AverageSize  string `json:"averageBackupSize"`
}

func (m *Manager) Stats() (Stats, error) {
	all, err := m.List()
	if err != nil {
		return Stats{}, err
	}
	st := Stats{TotalBackups: len(all), AverageSize: FormatBytes(0)}
	for _, s := range all {
		st.TotalBytes += s.Size
	}
	st.TotalSize = FormatBytes(st.TotalBytes)
	if len(all) > 0 {
		st.Newest = &Ref{Filename: all[0].Filename, Date: all[0].Created}
		last := all[len(all)-1]
		st.Oldest = &Ref{Filename: last.Filename, Date: last.Created}
		st.AverageSize = FormatBytes(st.TotalBytes / int64(len(all)))
	}
	return st, nil
}

var sizeUnits = []string{"Bytes", "KB", "MB", "GB"}

// FormatBytes renders a size with up to two decimals: 1536 -> "1.5 KB".
func FormatBytes(n int64) string {
	if n <= 0 {
		return "0 Bytes"
	}
	v, i := float64(n), 0
	for v >= 1024 && i < len(sizeUnits)-1 {
		v /= 1024
		i++
	}
	v = math.Round(v*100) / 100
	return strconv.FormatFloat(v, 'f', -1, 64) + " " + sizeUnits[i]
}
