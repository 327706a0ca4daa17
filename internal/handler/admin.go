package handler

import (
	"log/slog"
	"net/http"

	"curiocity/internal/domain/services"
	"curiocity/internal/httputil"
)

// AdminHandler serves operational endpoints.
type AdminHandler struct {
	documents services.DocumentService
	logger    *slog.Logger
}

// NewAdminHandler creates the handler.
func NewAdminHandler(documents services.DocumentService, logger *slog.Logger) *AdminHandler {
	return &AdminHandler{documents: documents, logger: logger}
}

// Repair handles POST /admin/repair: finish cascade deletes that were
// interrupted mid-walk.
func (h *AdminHandler) Repair(w http.ResponseWriter, r *http.Request) {
	repaired, err := h.documents.RepairPendingDeletes(r.Context())
	if err != nil {
		handleError(w, h.logger, err)
		return
	}
	if repaired == nil {
		repaired = []string{}
	}
	httputil.RespondJSON(w, http.StatusOK, map[string]any{"repaired": repaired})
}
