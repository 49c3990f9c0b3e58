package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/dukerupert/choretracker/internal/backup"
	"github.com/dukerupert/choretracker/internal/problem"
)

type BackupHandler struct {
	manager *backup.Manager
	logger  *slog.Logger
}

func NewBackupHandler(m *backup.Manager, logger *slog.Logger) *BackupHandler {
	return &BackupHandler{manager: m, logger: logger}
}

// Run handles POST /backups
func (h *BackupHandler) Run(w http.ResponseWriter, r *http.Request) {
	if h.manager == nil || !h.manager.Enabled() {
		problem.Write(w, http.StatusServiceUnavailable, "Backups are not configured")
		return
	}

	rec, err := h.manager.RunNow(r.Context())
	if errors.Is(err, backup.ErrDisabled) {
		problem.Write(w, http.StatusServiceUnavailable, "Backups are not configured")
		return
	}
	if err != nil {
		serverError(w, h.logger, "run backup", err)
		return
	}
	writeJSON(w, http.StatusCreated, rec)
}

// Status handles GET /backups/status
func (h *BackupHandler) Status(w http.ResponseWriter, r *http.Request) {
	if h.manager == nil {
		writeJSON(w, http.StatusOK, backup.Status{State: backup.StateDisabled})
		return
	}
	writeJSON(w, http.StatusOK, h.manager.Status())
}
