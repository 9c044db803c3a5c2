package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"sekolah-service/internal/backup"
	"sekolah-service/internal/middleware"
	"sekolah-service/internal/schoolimport/service"
)

func reqLogger(r *http.Request, logger zerolog.Logger) zerolog.Logger {
	if rid := middleware.GetRequestID(r); rid != "" {
		return logger.With().Str("rid", rid).Logger()
	}
	return logger
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(v)
}

type errorBody struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Error   string `json:"error,omitempty"`
	Backup  any    `json:"backup,omitempty"`
}

// statusFor maps the error taxonomy to HTTP: input errors 400, missing
// snapshots 404, everything else 500.
func statusFor(err error) int {
	var tooBig *http.MaxBytesError
	switch {
	case errors.As(err, &tooBig):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, service.ErrNoFile),
		errors.Is(err, service.ErrInvalidStrategy),
		errors.Is(err, service.ErrUnreadableFile),
		errors.Is(err, backup.ErrInvalidFilename):
		return http.StatusBadRequest
	case errors.Is(err, backup.ErrBackupNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, log zerolog.Logger, fallback string, err error) {
	status := statusFor(err)
	msg := fallback
	switch {
	case errors.Is(err, service.ErrNoFile):
		msg = "No file uploaded"
	case errors.Is(err, service.ErrInvalidStrategy):
		msg = "Invalid strategy. Use: merge, drop_and_import, or backup_and_drop"
	case errors.Is(err, service.ErrBackupFailed):
		msg = "Failed to create backup. Import aborted for safety."
	case errors.Is(err, service.ErrClearFailed):
		msg = "Failed to clear existing data"
	case errors.Is(err, service.ErrCancelled):
		msg = "Import cancelled before completion"
	case errors.Is(err, backup.ErrInvalidFilename):
		msg = "Invalid filename"
	case errors.Is(err, backup.ErrBackupNotFound):
		msg = "Backup file not found"
	case status == http.StatusRequestEntityTooLarge:
		msg = "Upload too large"
	}
	if status >= 500 {
		log.Error().Err(err).Msg(fallback)
	} else {
		log.Warn().Err(err).Int("status", status).Msg(msg)
	}
	writeJSON(w, status, errorBody{Message: msg, Error: err.Error()})
}

// queryInt reads a positive int, falling back like the admin UI expects.
func queryInt(r *http.Request, key string, def int) int {
	s := strings.TrimSpace(r.URL.Query().Get(key))
	if s == "" {
		return def
	}
	i, err := strconv.Atoi(s)
	if err != nil || i <= 0 {
		return def
	}
	return i
}
