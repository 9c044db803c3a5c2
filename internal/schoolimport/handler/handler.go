package handler

import (
	"context"
	"errors"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"sekolah-service/internal/config"
	"sekolah-service/internal/middleware"
	"sekolah-service/internal/normalize"
	"sekolah-service/internal/schoolimport/model"
	"sekolah-service/internal/schoolimport/service"
)

// readUpload parses the multipart form and opens its "file" part.
func readUpload(r *http.Request, maxBytes int64) (service.Upload, func(), error) {
	if err := r.ParseMultipartForm(maxBytes); err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			return service.Upload{}, nil, err
		}
		if errors.Is(err, multipart.ErrMessageTooLarge) {
			return service.Upload{}, nil, &http.MaxBytesError{Limit: maxBytes}
		}
		if errors.Is(err, http.ErrNotMultipart) {
			return service.Upload{}, nil, service.ErrNoFile
		}
		return service.Upload{}, nil, err
	}
	f, hdr, err := r.FormFile("file")
	if err != nil {
		return service.Upload{}, nil, service.ErrNoFile
	}
	return service.Upload{Filename: hdr.Filename, Body: f}, func() { f.Close() }, nil
}

// Validate previews an upload: row count, a normalized sample and the
// normalization report. Nothing is written.
func Validate(cfg config.Config, svc *service.Service, logger zerolog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		log := reqLogger(r, logger)

		up, done, err := readUpload(r, cfg.MaxUploadBytes())
		if err != nil {
			writeError(w, log, "Failed to validate import data", err)
			return
		}
		defer done()

		p, err := svc.Validate(r.Context(), up)
		if err != nil {
			writeError(w, log, "Failed to validate import data", err)
			return
		}
		writeJSON(w, http.StatusOK, struct {
			Success bool          `json:"success"`
			Preview model.Preview `json:"preview"`
		}{true, p})

		log.Info().
			Str("file", up.Filename).
			Int("rows", p.TotalRows).
			Int("negeri_unrecognized", len(p.NormalizationStats.Negeri.Unrecognized)).
			Int("bandar_unrecognized", len(p.NormalizationStats.Bandar.Unrecognized)).
			Dur("elapsed", time.Since(start)).
			Msg("validate done")
	}
}

// Execute runs an import with the strategy from the form.
func Execute(cfg config.Config, svc *service.Service, logger zerolog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log := reqLogger(r, logger)

		up, done, err := readUpload(r, cfg.MaxUploadBytes())
		if err != nil {
			writeError(w, log, "Failed to import schools", err)
			return
		}
		defer done()

		req := service.ExecuteRequest{
			Strategy:    model.Strategy(strings.TrimSpace(r.FormValue("strategy"))),
			BackupLabel: strings.TrimSpace(r.FormValue("backupFilename")),
			ActorID:     middleware.ActorID(r),
		}
		// the run outlives a dropped connection; a half-applied destructive
		// import is worse than a response nobody reads
		res, err := svc.Execute(context.WithoutCancel(r.Context()), up, req)
		if err != nil {
			if errors.Is(err, service.ErrClearFailed) && res.Backup != nil {
				log.Error().Err(err).Msg("clear failed")
				writeJSON(w, http.StatusInternalServerError, errorBody{
					Message: "Failed to clear existing data",
					Error:   err.Error(),
					Backup:  res.Backup,
				})
				return
			}
			writeError(w, log, "Failed to import schools", err)
			return
		}
		writeJSON(w, http.StatusOK, struct {
			Success bool `json:"success"`
			model.Result
		}{true, res})
	}
}

// Dictionary lists the canonical negeri and bandar names.
func Dictionary(norm *normalize.Normalizer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"success": true,
			"negeri":  norm.StandardStates(),
			"bandar":  norm.StandardCities(),
		})
	}
}

type historyEntry struct {
	ID          int64                  `json:"id"`
	BatchID     string                 `json:"batchId"`
	Filename    string                 `json:"filename"`
	Strategy    model.Strategy         `json:"strategy,omitempty"`
	Status      string                 `json:"status"`
	Total       int                    `json:"totalRecords"`
	Imported    int                    `json:"importedRecords"`
	Updated     int                    `json:"updatedRecords"`
	Failed      int                    `json:"failedRecords"`
	Errors      []string               `json:"errors"`
	ImportedBy  *int64                 `json:"importedBy"`
	StartedAt   time.Time              `json:"startedAt"`
	CompletedAt *time.Time             `json:"completedAt"`
	Log         model.NormalizationLog `json:"normalizationLog"`
}

// batchStatus reads a missing completion time as a run that never finished.
func batchStatus(b model.ImportBatch) string {
	if b.Complete() {
		return "completed"
	}
	return "incomplete"
}

// ImportHistory lists the newest import runs, ?limit= up to 50.
func ImportHistory(svc *service.Service, logger zerolog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		batches, err := svc.History(r.Context(), queryInt(r, "limit", 50))
		if err != nil {
			writeError(w, reqLogger(r, logger), "Failed to fetch import history", err)
			return
		}
		logs := make([]historyEntry, 0, len(batches))
		for _, b := range batches {
			errs := b.Errors
			if errs == nil {
				errs = []string{}
			}
			logs = append(logs, historyEntry{
				ID: b.ID, BatchID: b.BatchID, Filename: b.Filename, Strategy: b.Strategy,
				Status: batchStatus(b), Total: b.Total, Imported: b.Imported, Updated: b.Updated,
				Failed: b.Failed, Errors: errs, ImportedBy: b.ActorID,
				StartedAt: b.StartedAt, CompletedAt: b.CompletedAt, Log: b.Log,
			})
		}
		writeJSON(w, http.StatusOK, map[string]any{"success": true, "logs": logs})
	}
}
