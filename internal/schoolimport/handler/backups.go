package handler

import (
	"fmt"
	"net/http"
	"path/filepath"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"sekolah-service/internal/backup"
	"sekolah-service/internal/config"
)

type backupItem struct {
	Filename    string    `json:"filename"`
	Created     time.Time `json:"created"`
	Size        string    `json:"size"`
	RecordCount any       `json:"recordCount"`
}

func ListBackups(mgr *backup.Manager, logger zerolog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log := reqLogger(r, logger)
		list, err := mgr.List()
		if err != nil {
			writeError(w, log, "Failed to list backups", err)
			return
		}
		items := make([]backupItem, 0, len(list))
		var total int64
		for _, b := range list {
			var count any = b.RecordCount
			if b.RecordCount < 0 {
				count = "Unknown"
			}
			items = append(items, backupItem{Filename: b.Filename, Created: b.Created, Size: b.SizeFormatted, RecordCount: count})
			total += b.Size
		}
		dir, _ := filepath.Abs(mgr.Dir())
		writeJSON(w, http.StatusOK, map[string]any{
			"success":         true,
			"backups":         items,
			"totalBackups":    len(items),
			"totalSize":       backup.FormatBytes(total),
			"backupDirectory": dir,
		})
	}
}

func BackupStats(mgr *backup.Manager, logger zerolog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		st, err := mgr.Stats()
		if err != nil {
			writeError(w, reqLogger(r, logger), "Failed to get backup stats", err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"success": true, "stats": st})
	}
}

// CleanupBackups applies ?keepDays=&keepCount=, defaulting to config.
func CleanupBackups(cfg config.Config, mgr *backup.Manager, logger zerolog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log := reqLogger(r, logger)
		keepDays := queryInt(r, "keepDays", cfg.BackupKeepDays)
		keepCount := queryInt(r, "keepCount", cfg.BackupKeepCount)

		rep, err := mgr.Cleanup(r.Context(), keepDays, keepCount)
		if err != nil {
			writeError(w, log, "Failed to cleanup backups", err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"success":          true,
			"message":          fmt.Sprintf("Cleanup completed: %d backups deleted", len(rep.Deleted)),
			"deletedFiles":     rep.Deleted,
			"freedSpace":       rep.Freed,
			"remainingBackups": rep.Remaining,
			"cleanupRules": map[string]int{
				"maxAgeDays": rep.MaxAgeDays,
				"maxCount":   rep.MaxCount,
			},
		})
	}
}

func RestoreBackup(mgr *backup.Manager, logger zerolog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log := reqLogger(r, logger)
		res, err := mgr.Restore(r.Context(), chi.URLParam(r, "filename"))
		if err != nil {
			writeError(w, log, "Failed to restore backup", err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"success":            true,
			"message":            "Database restored successfully",
			"backup":             res.Filename,
			"statements":         res.Statements,
			"currentSchoolCount": res.CurrentCount,
			"restoredAt":         res.RestoredAt,
		})
	}
}

func DeleteBackup(mgr *backup.Manager, logger zerolog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log := reqLogger(r, logger)
		snap, err := mgr.Delete(r.Context(), chi.URLParam(r, "filename"))
		if err != nil {
			writeError(w, log, "Failed to delete backup", err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"success": true,
			"message": fmt.Sprintf("Backup %s deleted successfully", snap.Filename),
			"deletedFile": map[string]any{
				"filename":  snap.Filename,
				"size":      snap.SizeFormatted,
				"deletedAt": time.Now().UTC(),
			},
		})
	}
}

func DownloadBackup(mgr *backup.Manager, logger zerolog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		f, snap, err := mgr.Open(chi.URLParam(r, "filename"))
		if err != nil {
			writeError(w, reqLogger(r, logger), "Failed to download backup", err)
			return
		}
		defer f.Close()
		w.Header().Set("Content-Type", "application/sql; charset=utf-8")
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", snap.Filename))
		http.ServeContent(w, r, snap.Filename, snap.Created, f)
	}
}
