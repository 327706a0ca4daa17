package handler

import (
	"log/slog"
	"net/http"
	"time"

	"curiocity/internal/domain/repositories"
	"curiocity/internal/httputil"
)

// defaultPresignTTL matches the original deployment's one-hour links.
const defaultPresignTTL = time.Hour

// StorageHandler serves presigned-URL issuance for direct blob access.
type StorageHandler struct {
	blob   repositories.BlobStore // nil when blob storage is disabled
	logger *slog.Logger
}

// NewStorageHandler creates the handler.
func NewStorageHandler(blob repositories.BlobStore, logger *slog.Logger) *StorageHandler {
	return &StorageHandler{blob: blob, logger: logger}
}

// Presign handles POST /api/storage/presign
func (h *StorageHandler) Presign(w http.ResponseWriter, r *http.Request) {
	if h.blob == nil {
		httputil.RespondError(w, http.StatusNotFound, "blob storage is not configured")
		return
	}

	var body struct {
		Key       string `json:"key"`
		Operation string `json:"operation"`
		ExpiresIn int    `json:"expiresIn,omitempty"` // seconds
	}
	if err := httputil.ParseJSON(w, r, &body); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if body.Key == "" {
		httputil.RespondError(w, http.StatusBadRequest, "key is required")
		return
	}

	var op repositories.PresignOp
	switch body.Operation {
	case "get", "":
		op = repositories.PresignGet
	case "put":
		op = repositories.PresignPut
	default:
		httputil.RespondError(w, http.StatusBadRequest, "operation must be get or put")
		return
	}

	ttl := defaultPresignTTL
	if body.ExpiresIn > 0 {
		ttl = time.Duration(body.ExpiresIn) * time.Second
	}

	result, err := h.blob.Presign(r.Context(), body.Key, op, ttl)
	if err != nil {
		h.logger.Error("presign failed on every backend", "key", body.Key, "error", err)
		httputil.RespondError(w, http.StatusInternalServerError, "failed to presign url")
		return
	}
	httputil.RespondJSON(w, http.StatusOK, result)
}
