package handler

import (
	"encoding/base64"
	"errors"
	"log/slog"
	"net/http"

	"curiocity/internal/domain"
	"curiocity/internal/domain/models"
	"curiocity/internal/domain/services"
	"curiocity/internal/httputil"
)

// ResourceHandler serves the /api/resources surface.
type ResourceHandler struct {
	service services.ResourceService
	logger  *slog.Logger
}

// NewResourceHandler creates the handler.
func NewResourceHandler(service services.ResourceService, logger *slog.Logger) *ResourceHandler {
	return &ResourceHandler{service: service, logger: logger}
}

// uploadBody is the POST /api/resources payload; file bytes arrive
// base64-encoded.
type uploadBody struct {
	DocumentID string   `json:"documentId"`
	FolderName string   `json:"folderName"`
	Name       string   `json:"name"`
	Content    string   `json:"content,omitempty"`
	URL        string   `json:"url,omitempty"`
	FileType   string   `json:"fileType,omitempty"`
	Notes      string   `json:"notes,omitempty"`
	Summary    string   `json:"summary,omitempty"`
	Tags       []string `json:"tags,omitempty"`
}

// uploadResponse flattens the blob flags next to the created rows, the
// shape the clients expect on partial blob success.
type uploadResponse struct {
	Meta         *models.ResourceMeta `json:"meta"`
	Document     *models.Document     `json:"document"`
	Deduped      bool                 `json:"deduped"`
	GCSSuccess   bool                 `json:"gcsSuccess"`
	DriveSuccess bool                 `json:"driveSuccess"`
}

// Upload handles POST /api/resources
func (h *ResourceHandler) Upload(w http.ResponseWriter, r *http.Request) {
	var body uploadBody
	if err := httputil.ParseJSON(w, r, &body); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}

	var content []byte
	if body.Content != "" {
		decoded, err := base64.StdEncoding.DecodeString(body.Content)
		if err != nil {
			httputil.RespondError(w, http.StatusBadRequest, "content is not valid base64")
			return
		}
		content = decoded
	}

	result, err := h.service.Upload(r.Context(), &services.UploadResourceRequest{
		DocumentID: body.DocumentID,
		FolderName: body.FolderName,
		Name:       body.Name,
		Content:    content,
		URL:        body.URL,
		FileType:   body.FileType,
		Notes:      body.Notes,
		Summary:    body.Summary,
		Tags:       body.Tags,
	})
	if err != nil {
		handleError(w, h.logger, err)
		return
	}

	resp := uploadResponse{
		Meta:     result.Meta,
		Document: result.Document,
		Deduped:  result.Deduped,
		// No blob write happened (dedup hit or storage disabled): both
		// flags report success, nothing failed.
		GCSSuccess:   true,
		DriveSuccess: true,
	}
	if result.Blob != nil {
		resp.GCSSuccess = result.Blob.GCSSuccess
		resp.DriveSuccess = result.Blob.DriveSuccess
	}
	httputil.RespondJSON(w, http.StatusCreated, resp)
}

// CheckHash handles GET /api/resources/check/{hash}: reports whether the
// content-addressed row already exists, so clients can skip re-uploading
// bytes the server has seen.
func (h *ResourceHandler) CheckHash(w http.ResponseWriter, r *http.Request) {
	res, err := h.service.GetResource(r.Context(), r.PathValue("hash"))
	if err != nil {
		var nf *domain.NotFoundError
		if errors.As(err, &nf) {
			httputil.RespondJSON(w, http.StatusOK, map[string]any{"exists": false})
			return
		}
		handleError(w, h.logger, err)
		return
	}
	httputil.RespondJSON(w, http.StatusOK, map[string]any{"exists": true, "url": res.URL})
}

// Get handles GET /api/resources/{id}?withMarkdown=
func (h *ResourceHandler) Get(w http.ResponseWriter, r *http.Request) {
	meta, err := h.service.GetMeta(r.Context(), r.PathValue("id"))
	if err != nil {
		handleError(w, h.logger, err)
		return
	}

	if r.URL.Query().Get("withMarkdown") != "true" {
		httputil.RespondJSON(w, http.StatusOK, meta)
		return
	}

	res, err := h.service.GetResource(r.Context(), meta.Hash)
	if err != nil {
		handleError(w, h.logger, err)
		return
	}
	httputil.RespondJSON(w, http.StatusOK, struct {
		*models.ResourceMeta
		Markdown string `json:"markdown"`
		URL      string `json:"url"`
	}{meta, res.Markdown, res.URL})
}

// Update handles PUT /api/resources/{id}
func (h *ResourceHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req services.UpdateResourceMetaRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}

	meta, err := h.service.UpdateMeta(r.Context(), r.PathValue("id"), &req)
	if err != nil {
		handleError(w, h.logger, err)
		return
	}
	httputil.RespondJSON(w, http.StatusOK, meta)
}

// Rename handles PUT /api/resources/{id}/name
func (h *ResourceHandler) Rename(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Name string `json:"name"`
	}
	if err := httputil.ParseJSON(w, r, &body); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.service.Rename(r.Context(), r.PathValue("id"), body.Name); err != nil {
		handleError(w, h.logger, err)
		return
	}
	httputil.RespondJSON(w, http.StatusOK, msgSuccess)
}

// TouchLastOpened handles PUT /api/resources/{id}/last-opened
func (h *ResourceHandler) TouchLastOpened(w http.ResponseWriter, r *http.Request) {
	var body struct {
		FolderName string `json:"folderName"`
	}
	if err := httputil.ParseJSON(w, r, &body); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.service.TouchLastOpened(r.Context(), r.PathValue("id"), body.FolderName); err != nil {
		handleError(w, h.logger, err)
		return
	}
	httputil.RespondJSON(w, http.StatusOK, msgSuccess)
}

// Move handles PUT /api/resources/move
func (h *ResourceHandler) Move(w http.ResponseWriter, r *http.Request) {
	var req services.MoveResourceRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.service.Move(r.Context(), &req); err != nil {
		handleError(w, h.logger, err)
		return
	}
	httputil.RespondJSON(w, http.StatusOK, msgSuccess)
}

// Delete handles DELETE /api/resources/{id}
func (h *ResourceHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Delete(r.Context(), r.PathValue("id")); err != nil {
		handleError(w, h.logger, err)
		return
	}
	httputil.RespondJSON(w, http.StatusOK, msgSuccess)
}

// GetNotes handles GET /api/resources/{id}/notes
func (h *ResourceHandler) GetNotes(w http.ResponseWriter, r *http.Request) {
	notes, err := h.service.GetNotes(r.Context(), r.PathValue("id"))
	if err != nil {
		handleError(w, h.logger, err)
		return
	}
	httputil.RespondJSON(w, http.StatusOK, map[string]string{"notes": notes})
}

// SetNotes handles PUT /api/resources/{id}/notes
func (h *ResourceHandler) SetNotes(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Notes string `json:"notes"`
	}
	if err := httputil.ParseJSON(w, r, &body); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.service.SetNotes(r.Context(), r.PathValue("id"), body.Notes); err != nil {
		handleError(w, h.logger, err)
		return
	}
	httputil.RespondJSON(w, http.StatusOK, msgSuccess)
}

// ClearNotes handles DELETE /api/resources/{id}/notes
func (h *ResourceHandler) ClearNotes(w http.ResponseWriter, r *http.Request) {
	if err := h.service.ClearNotes(r.Context(), r.PathValue("id")); err != nil {
		handleError(w, h.logger, err)
		return
	}
	httputil.RespondJSON(w, http.StatusOK, msgSuccess)
}
