package serverhttp

import (
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"sekolah-service/internal/backup"
	"sekolah-service/internal/config"
	"sekolah-service/internal/middleware"
	imp "sekolah-service/internal/schoolimport/handler"
	"sekolah-service/internal/schoolimport/service"
	"sekolah-service/server/http/handlers"
)

func NewRouter(cfg config.Config, svc *service.Service, backups *backup.Manager, logger zerolog.Logger) *chi.Mux {
	r := chi.NewRouter()

	// order matters: recover -> requestID -> principal -> logging -> cors -> limit
	r.Use(middleware.Recover(logger))
	r.Use(middleware.RequestID())
	r.Use(middleware.Principal())
	r.Use(middleware.Logging(logger))
	r.Use(middleware.CORS(cfg.AllowOrigins))
	r.Use(middleware.LimitBytes(cfg.MaxUploadBytes()))

	r.Get("/health", handlers.Health)

	r.Route("/schools/import", func(r chi.Router) {
		r.Get("/dictionary", imp.Dictionary(svc.Normalizer()))
		r.Post("/validate", imp.Validate(cfg, svc, logger))
		r.Post("/execute", imp.Execute(cfg, svc, logger))
	})

	r.Get("/schools/admin/import/history", imp.ImportHistory(svc, logger))

	r.Route("/schools/admin/import/backups", func(r chi.Router) {
		r.Get("/list", imp.ListBackups(backups, logger))
		r.Get("/stats", imp.BackupStats(backups, logger))
		r.Delete("/cleanup", imp.CleanupBackups(cfg, backups, logger))
		r.Get("/{filename}", imp.DownloadBackup(backups, logger))
		r.Post("/{filename}/restore", imp.RestoreBackup(backups, logger))
		r.Delete("/{filename}", imp.DeleteBackup(backups, logger))
	})

	return r
}
