package main

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"sekolah-service/internal/backup"
	"sekolah-service/internal/config"
	"sekolah-service/internal/normalize"
	"sekolah-service/internal/schoolimport/service"
	"sekolah-service/internal/store"
)

// app holds the wired collaborators shared by every subcommand.
type app struct {
	cfg     config.Config
	logger  zerolog.Logger
	store   *store.Postgres
	backups *backup.Manager
	svc     *service.Service
}

func newApp(ctx context.Context) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	logger := config.SetupLogger(cfg)

	st, err := store.Open(ctx, store.Options{
		DSN:          cfg.DatabaseURL,
		MaxOpenConns: cfg.DBMaxOpenConns,
		MaxIdleConns: cfg.DBMaxIdleConns,
	}, logger)
	if err != nil {
		return nil, err
	}

	opts := []backup.Option{backup.WithLogger(logger.With().Str("component", "backup").Logger())}
	if cfg.BackupS3Bucket != "" {
		mirror, err := backup.NewS3Mirror(ctx, backup.S3Options{
			Bucket:   cfg.BackupS3Bucket,
			Prefix:   cfg.BackupS3Prefix,
			Region:   cfg.BackupS3Region,
			Endpoint: cfg.BackupS3Endpoint,
		})
		if err != nil {
			st.Close()
			return nil, fmt.Errorf("offsite mirror: %w", err)
		}
		opts = append(opts, backup.WithMirror(mirror))
		logger.Info().Str("bucket", cfg.BackupS3Bucket).Msg("offsite backup mirror enabled")
	}
	mgr := backup.NewManager(cfg.BackupDir, st, opts...)

	norm, err := normalize.New(normalize.Options{
		ExtensionFile: cfg.DictionaryFile,
		CacheSize:     cfg.ResolverCacheSize,
	})
	if err != nil {
		st.Close()
		return nil, err
	}

	svc := service.New(st, mgr, norm, logger.With().Str("component", "import").Logger(),
		service.Options{StartRow: cfg.ImportStartRow})

	return &app{cfg: cfg, logger: logger, store: st, backups: mgr, svc: svc}, nil
}

func (a *app) Close() { _ = a.store.Close() }
