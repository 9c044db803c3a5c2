// Package service runs school imports: parse, optional backup, optional
// clear, then a sequential normalize-and-upsert pass with an audit record.
package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"sekolah-service/internal/backup"
	"sekolah-service/internal/fileio"
	"sekolah-service/internal/middleware"
	"sekolah-service/internal/normalize"
	"sekolah-service/internal/schoolimport/model"
)

var (
	ErrNoFile          = errors.New("no file uploaded")
	ErrUnreadableFile  = errors.New("unreadable file")
	ErrInvalidStrategy = errors.New("invalid strategy. Use: merge, drop_and_import, or backup_and_drop")
	ErrBackupFailed    = errors.New("failed to create backup. Import aborted for safety")
	ErrClearFailed     = errors.New("failed to clear existing data")
	ErrMissingRequired = errors.New("missing required fields: kod_sekolah or nama_sekolah")
	ErrCancelled       = errors.New("import cancelled before all rows were written")
)

const (
	sampleSize       = 5
	maxStoredErrors  = 50
	maxResultErrors  = 10
	maxPreviewErrors = 10
	historyLimit     = 50
)

// Store is the storage the orchestrator needs. Each call is its own unit of
// work; nothing wraps a whole batch.
type Store interface {
	CountSchools(ctx context.Context) (int, error)
	SchoolExists(ctx context.Context, kod string) (bool, error)
	InsertSchool(ctx context.Context, s model.School) error
	UpdateSchool(ctx context.Context, s model.School) error
	ClearSchools(ctx context.Context) error
	OpenBatch(ctx context.Context, b *model.ImportBatch) error
	FinishBatch(ctx context.Context, b model.ImportBatch) error
	LockImports(ctx context.Context) (func(), error)
	ListBatches(ctx context.Context, limit int) ([]model.ImportBatch, error)
}

type Backuper interface {
	Snapshot(ctx context.Context, label string) (backup.Snapshot, error)
}

type Upload struct {
	Filename string
	Body     io.Reader
}

type ExecuteRequest struct {
	Strategy    model.Strategy
	BackupLabel string
	ActorID     *int64
}

type Options struct {
	StartRow int
}

type Service struct {
	store    Store
	backups  Backuper
	norm     *normalize.Normalizer
	logger   zerolog.Logger
	startRow int
	now      func() time.Time

	// one execute at a time in this process; LockImports covers the rest
	mu sync.Mutex
}

func New(store Store, backups Backuper, norm *normalize.Normalizer, logger zerolog.Logger, opts Options) *Service {
	return &Service{
		store:    store,
		backups:  backups,
		norm:     norm,
		logger:   logger.With().Str("component", "schoolimport").Logger(),
		startRow: opts.StartRow,
		now:      time.Now,
	}
}

func (s *Service) Normalizer() *normalize.Normalizer { return s.norm }

// parse reads the upload into mapped schools with raw location values.
func (s *Service) parse(up Upload) ([]model.School, error) {
	if up.Body == nil {
		return nil, ErrNoFile
	}
	recs, err := fileio.ReadColumns(up.Body, up.Filename, s.startRow)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnreadableFile, err)
	}
	recs = filterRecords(recs)
	out := make([]model.School, len(recs))
	for i, rec := range recs {
		out[i] = toSchool(rec)
	}
	return out, nil
}

func missingRequired(sc model.School) bool {
	return sc.KodSekolah == "" || sc.NamaSekolah == ""
}

// Validate parses and normalizes without writing anything.
func (s *Service) Validate(ctx context.Context, up Upload) (model.Preview, error) {
	schools, err := s.parse(up)
	if err != nil {
		return model.Preview{}, err
	}

	p := model.Preview{TotalRows: len(schools), Sample: []model.SampleRow{}, Errors: []string{}}
	locs := make([]normalize.Location, len(schools))
	for i, sc := range schools {
		locs[i] = normalize.Location{Negeri: sc.Negeri, Bandar: sc.Bandar}
		if missingRequired(sc) && len(p.Errors) < maxPreviewErrors {
			p.Errors = append(p.Errors, fmt.Sprintf("Row %d: %v", i+1, ErrMissingRequired))
		}
		if i < sampleSize {
			row := model.SampleRow{School: sc, OriginalNegeri: sc.Negeri, OriginalBandar: sc.Bandar}
			row.Negeri = s.norm.NormalizeNegeri(sc.Negeri)
			row.Bandar = s.norm.NormalizeBandar(sc.Bandar)
			p.Sample = append(p.Sample, row)
		}
	}
	p.NormalizationStats = s.norm.BuildReport(locs)

	if n, err := s.store.CountSchools(ctx); err != nil {
		s.logger.Warn().Err(err).Msg("count for preview failed")
	} else {
		p.CurrentDatabaseTotal = n
	}
	return p, nil
}

// Execute imports an upload. Input errors and backup failure abort before any
// write; row errors are counted and the run continues. HTTP callers pass a
// context detached from the client connection; cancelling ctx stops the run
// between rows and returns ErrCancelled with the partial counts.
func (s *Service) Execute(ctx context.Context, up Upload, req ExecuteRequest) (model.Result, error) {
	if up.Body == nil {
		return model.Result{}, ErrNoFile
	}
	if req.Strategy == "" {
		req.Strategy = model.StrategyMerge
	}
	if !req.Strategy.Valid() {
		return model.Result{}, fmt.Errorf("%w (got %q)", ErrInvalidStrategy, req.Strategy)
	}
	schools, err := s.parse(up)
	if err != nil {
		return model.Result{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	unlock, err := s.store.LockImports(ctx)
	if err != nil {
		return model.Result{}, err
	}
	defer unlock()

	start := s.now()
	log := s.logger.With().
		Str("rid", middleware.RequestIDFrom(ctx)).
		Str("strategy", string(req.Strategy)).
		Str("file", up.Filename).
		Logger()
	log.Info().Int("rows", len(schools)).Msg("import started")

	res := model.Result{
		Strategy:      req.Strategy,
		Total:         len(schools),
		Normalization: model.NewNormalizationLog(),
		Errors:        []string{},
	}

	if req.Strategy.RequiresBackup() || req.BackupLabel != "" {
		if s.backups == nil {
			return res, fmt.Errorf("%w: no backup directory configured", ErrBackupFailed)
		}
		snap, err := s.backups.Snapshot(ctx, req.BackupLabel)
		if err != nil {
			log.Error().Err(err).Msg("backup failed, import aborted")
			return res, fmt.Errorf("%w: %v", ErrBackupFailed, err)
		}
		res.Backup = &model.BackupInfo{Path: snap.Path, Filename: snap.Filename, RecordCount: snap.RecordCount, Size: snap.Size}
		log.Info().Str("backup", snap.Filename).Msg("backup created")
	}

	if req.Strategy.Destructive() {
		if err := s.store.ClearSchools(ctx); err != nil {
			log.Error().Err(err).Msg("clear failed")
			return res, fmt.Errorf("%w: %v", ErrClearFailed, err)
		}
	}

	res.BatchID = fmt.Sprintf("BATCH_%d", start.UnixMilli())
	batch := model.ImportBatch{
		BatchID:  res.BatchID,
		ActorID:  req.ActorID,
		Filename: up.Filename,
		Strategy: req.Strategy,
		Total:    len(schools),
	}
	if err := s.store.OpenBatch(ctx, &batch); err != nil {
		log.Warn().Err(err).Msg("audit record not opened, continuing without it")
		batch.ID = 0
	}

	var errs []string
	for i, sc := range schools {
		if ctx.Err() != nil {
			res.Cancelled = true
			log.Warn().Int("processed", i).Msg("import cancelled")
			break
		}
		updated, err := s.importRow(ctx, sc, res.BatchID, req.Strategy, &res.Normalization)
		switch {
		case err != nil:
			res.Failed++
			msg := fmt.Sprintf("Row %d: %v", i+1, err)
			errs = append(errs, msg)
			log.Debug().Msg(msg)
		case updated:
			res.Updated++
		default:
			res.Imported++
		}
	}

	if e := head(errs, maxResultErrors); e != nil {
		res.Errors = e
	}
	// a cancelled run keeps completed_at empty so its audit row reads as incomplete
	if res.Cancelled {
		log.Error().
			Str("batch", res.BatchID).
			Int("imported", res.Imported).
			Int("updated", res.Updated).
			Int("failed", res.Failed).
			Msg("import cancelled, audit record left incomplete")
		return res, fmt.Errorf("%w: %d of %d rows processed", ErrCancelled,
			res.Imported+res.Updated+res.Failed, res.Total)
	}

	batch.Imported, batch.Updated, batch.Failed = res.Imported, res.Updated, res.Failed
	batch.Errors = head(errs, maxStoredErrors)
	batch.Log = res.Normalization
	// every row was attempted; a cancel that landed after the last one must not lose the record
	if err := s.store.FinishBatch(context.WithoutCancel(ctx), batch); err != nil {
		log.Error().Err(err).Str("batch", res.BatchID).Msg("audit record not finalized")
	}

	log.Info().
		Str("batch", res.BatchID).
		Int("imported", res.Imported).
		Int("updated", res.Updated).
		Int("failed", res.Failed).
		Dur("elapsed", time.Since(start)).
		Msg("import completed")
	return res, nil
}

// importRow normalizes and writes one school. It reports whether an existing
// row was updated.
func (s *Service) importRow(ctx context.Context, sc model.School, batchID string, st model.Strategy, nlog *model.NormalizationLog) (bool, error) {
	rawNegeri, rawBandar := sc.Negeri, sc.Bandar
	sc.Negeri = s.norm.NormalizeNegeri(rawNegeri)
	sc.Bandar = s.norm.NormalizeBandar(rawBandar)
	if rawNegeri != "" && rawNegeri != sc.Negeri {
		nlog.Negeri[rawNegeri] = sc.Negeri
	}
	if rawBandar != "" && rawBandar != sc.Bandar {
		nlog.Bandar[rawBandar] = sc.Bandar
	}
	sc.ImportBatch = batchID

	if missingRequired(sc) {
		return false, ErrMissingRequired
	}

	if st == model.StrategyMerge {
		exists, err := s.store.SchoolExists(ctx, sc.KodSekolah)
		if err != nil {
			return false, err
		}
		if exists {
			return true, s.store.UpdateSchool(ctx, sc)
		}
	}
	return false, s.store.InsertSchool(ctx, sc)
}

func head(s []string, n int) []string {
	if len(s) > n {
		return s[:n]
	}
	return s
}

// History returns the newest audit records, at most historyLimit.
func (s *Service) History(ctx context.Context, limit int) ([]model.ImportBatch, error) {
	if limit <= 0 || limit > historyLimit {
		limit = historyLimit
	}
	return s.store.ListBatches(ctx, limit)
}
