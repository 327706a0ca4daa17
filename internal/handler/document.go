package handler

import (
	"log/slog"
	"net/http"

	"curiocity/internal/domain/models"
	"curiocity/internal/domain/services"
	"curiocity/internal/httputil"
)

// DocumentHandler serves the /api/documents surface.
type DocumentHandler struct {
	service services.DocumentService
	logger  *slog.Logger
}

// NewDocumentHandler creates the handler.
func NewDocumentHandler(service services.DocumentService, logger *slog.Logger) *DocumentHandler {
	return &DocumentHandler{service: service, logger: logger}
}

// List handles GET /api/documents?ownerID=&sortBy=lastOpened
func (h *DocumentHandler) List(w http.ResponseWriter, r *http.Request) {
	ownerID := r.URL.Query().Get("ownerID")
	if ownerID == "" {
		ownerID = httputil.GetUserID(r)
	}

	var docs []models.Document
	var err error
	if r.URL.Query().Get("sortBy") == "lastOpened" {
		docs, err = h.service.ListDocumentsByLastOpened(r.Context(), ownerID)
	} else {
		docs, err = h.service.ListDocuments(r.Context(), ownerID)
	}
	if err != nil {
		handleError(w, h.logger, err)
		return
	}
	httputil.RespondJSON(w, http.StatusOK, docs)
}

// Get handles GET /api/documents/{id}?updateLastOpened=
func (h *DocumentHandler) Get(w http.ResponseWriter, r *http.Request) {
	touch := r.URL.Query().Get("updateLastOpened") == "true"

	doc, err := h.service.GetDocument(r.Context(), r.PathValue("id"), touch)
	if err != nil {
		handleError(w, h.logger, err)
		return
	}
	httputil.RespondJSON(w, http.StatusOK, doc)
}

// Create handles POST /api/documents
func (h *DocumentHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req services.CreateDocumentRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.OwnerID == "" {
		req.OwnerID = httputil.GetUserID(r)
	}

	doc, err := h.service.CreateDocument(r.Context(), &req)
	if err != nil {
		handleError(w, h.logger, err)
		return
	}
	httputil.RespondJSON(w, http.StatusCreated, doc)
}

// updateDocumentBody is the PUT /api/documents payload: the id travels in
// the body, as the original clients send it.
type updateDocumentBody struct {
	ID string `json:"id"`
	services.UpdateDocumentRequest
}

// Update handles PUT /api/documents
func (h *DocumentHandler) Update(w http.ResponseWriter, r *http.Request) {
	var body updateDocumentBody
	if err := httputil.ParseJSON(w, r, &body); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}

	doc, err := h.service.UpdateDocument(r.Context(), body.ID, &body.UpdateDocumentRequest)
	if err != nil {
		handleError(w, h.logger, err)
		return
	}
	httputil.RespondJSON(w, http.StatusOK, doc)
}

// Delete handles DELETE /api/documents
func (h *DocumentHandler) Delete(w http.ResponseWriter, r *http.Request) {
	var body struct {
		ID string `json:"id"`
	}
	if err := httputil.ParseJSON(w, r, &body); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.service.DeleteDocument(r.Context(), body.ID); err != nil {
		handleError(w, h.logger, err)
		return
	}
	httputil.RespondJSON(w, http.StatusOK, msgSuccess)
}

// AddFolder handles POST /api/documents/{id}/folders
func (h *DocumentHandler) AddFolder(w http.ResponseWriter, r *http.Request) {
	var body struct {
		FolderName string `json:"folderName"`
	}
	if err := httputil.ParseJSON(w, r, &body); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}

	doc, err := h.service.AddFolder(r.Context(), r.PathValue("id"), body.FolderName)
	if err != nil {
		handleError(w, h.logger, err)
		return
	}
	httputil.RespondJSON(w, http.StatusOK, doc)
}

// RenameFolder handles POST /api/documents/{id}/folders/rename
func (h *DocumentHandler) RenameFolder(w http.ResponseWriter, r *http.Request) {
	var body struct {
		OldFolderName string `json:"oldFolderName"`
		NewFolderName string `json:"newFolderName"`
	}
	if err := httputil.ParseJSON(w, r, &body); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}

	doc, err := h.service.RenameFolder(r.Context(), r.PathValue("id"), body.OldFolderName, body.NewFolderName)
	if err != nil {
		handleError(w, h.logger, err)
		return
	}
	httputil.RespondJSON(w, http.StatusOK, doc)
}

// DeleteFolder handles DELETE /api/documents/{id}/folders
func (h *DocumentHandler) DeleteFolder(w http.ResponseWriter, r *http.Request) {
	var body struct {
		FolderName string `json:"folderName"`
	}
	if err := httputil.ParseJSON(w, r, &body); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}

	doc, err := h.service.DeleteFolder(r.Context(), r.PathValue("id"), body.FolderName)
	if err != nil {
		handleError(w, h.logger, err)
		return
	}
	httputil.RespondJSON(w, http.StatusOK, doc)
}

// TouchLastOpened handles PUT /api/documents/{id}/last-opened
func (h *DocumentHandler) TouchLastOpened(w http.ResponseWriter, r *http.Request) {
	if err := h.service.TouchLastOpened(r.Context(), r.PathValue("id")); err != nil {
		handleError(w, h.logger, err)
		return
	}
	httputil.RespondJSON(w, http.StatusOK, msgSuccess)
}

// AddTag handles POST /api/documents/{id}/tags
func (h *DocumentHandler) AddTag(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Tag string `json:"tag"`
	}
	if err := httputil.ParseJSON(w, r, &body); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}

	doc, err := h.service.AddTag(r.Context(), r.PathValue("id"), body.Tag)
	if err != nil {
		handleError(w, h.logger, err)
		return
	}
	httputil.RespondJSON(w, http.StatusOK, doc)
}

// RemoveTag handles DELETE /api/documents/{id}/tags
func (h *DocumentHandler) RemoveTag(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Tag string `json:"tag"`
	}
	if err := httputil.ParseJSON(w, r, &body); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}

	doc, err := h.service.RemoveTag(r.Context(), r.PathValue("id"), body.Tag)
	if err != nil {
		handleError(w, h.logger, err)
		return
	}
	httputil.RespondJSON(w, http.StatusOK, doc)
}
