package handler

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"curiocity/internal/analytics"
	"curiocity/internal/domain/models"
	"curiocity/internal/extract"
	"curiocity/internal/repository/memory"
	"curiocity/internal/service"
)

// newTestServer wires the full route table over in-memory stores, the
// same shape the binary serves.
func newTestServer(t *testing.T) (*httptest.Server, *memory.Store) {
	t.Helper()
	logger := slog.New(slog.DiscardHandler)
	store := memory.NewStore()
	blobStore := memory.NewBlobStore()

	replicator := service.NewReplicator(memory.NewMirror(), store.Documents(), store.Metas(), logger)
	docService := service.NewDocumentService(store.Documents(), store.Metas(), replicator, analytics.Noop{}, logger)
	resourceService := service.NewResourceService(
		store.Documents(),
		store.Metas(),
		store.Resources(),
		blobStore,
		extract.New(),
		350*1024,
		replicator,
		analytics.Noop{},
		logger,
	)

	docHandler := NewDocumentHandler(docService, logger)
	resourceHandler := NewResourceHandler(resourceService, logger)
	storageHandler := NewStorageHandler(blobStore, logger)
	adminHandler := NewAdminHandler(docService, logger)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", Health)
	mux.HandleFunc("GET /api/documents", docHandler.List)
	mux.HandleFunc("POST /api/documents", docHandler.Create)
	mux.HandleFunc("PUT /api/documents", docHandler.Update)
	mux.HandleFunc("DELETE /api/documents", docHandler.Delete)
	mux.HandleFunc("GET /api/documents/{id}", docHandler.Get)
	mux.HandleFunc("PUT /api/documents/{id}/last-opened", docHandler.TouchLastOpened)
	mux.HandleFunc("POST /api/documents/{id}/folders", docHandler.AddFolder)
	mux.HandleFunc("POST /api/documents/{id}/folders/rename", docHandler.RenameFolder)
	mux.HandleFunc("DELETE /api/documents/{id}/folders", docHandler.DeleteFolder)
	mux.HandleFunc("POST /api/documents/{id}/tags", docHandler.AddTag)
	mux.HandleFunc("DELETE /api/documents/{id}/tags", docHandler.RemoveTag)
	mux.HandleFunc("POST /api/resources", resourceHandler.Upload)
	mux.HandleFunc("PUT /api/resources/move", resourceHandler.Move)
	mux.HandleFunc("GET /api/resources/check/{hash}", resourceHandler.CheckHash)
	mux.HandleFunc("GET /api/resources/{id}", resourceHandler.Get)
	mux.HandleFunc("PUT /api/resources/{id}", resourceHandler.Update)
	mux.HandleFunc("DELETE /api/resources/{id}", resourceHandler.Delete)
	mux.HandleFunc("PUT /api/resources/{id}/name", resourceHandler.Rename)
	mux.HandleFunc("PUT /api/resources/{id}/last-opened", resourceHandler.TouchLastOpened)
	mux.HandleFunc("GET /api/resources/{id}/notes", resourceHandler.GetNotes)
	mux.HandleFunc("PUT /api/resources/{id}/notes", resourceHandler.SetNotes)
	mux.HandleFunc("DELETE /api/resources/{id}/notes", resourceHandler.ClearNotes)
	mux.HandleFunc("POST /api/storage/presign", storageHandler.Presign)
	mux.HandleFunc("POST /admin/repair", adminHandler.Repair)

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server, store
}

func doJSON(t *testing.T, method, url string, body any) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req, err := http.NewRequest(method, url, &buf)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, url, err)
	}
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	defer resp.Body.Close()
	var out T
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return out
}

func createTestDocument(t *testing.T, server *httptest.Server) models.Document {
	t.Helper()
	resp := doJSON(t, http.MethodPost, server.URL+"/api/documents", map[string]string{
		"name":    "research",
		"ownerID": "user-1",
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create document: status %d", resp.StatusCode)
	}
	return decode[models.Document](t, resp)
}

func TestHealthEndpoint(t *testing.T) {
	server, _ := newTestServer(t)

	resp, err := http.Get(server.URL + "/health")
	if err != nil {
		t.Fatalf("GET /health: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d", resp.StatusCode)
	}
}

func TestDocumentLifecycle(t *testing.T) {
	server, _ := newTestServer(t)
	doc := createTestDocument(t, server)

	if _, ok := doc.Folders[models.GeneralFolder]; !ok {
		t.Error("created document missing General folder")
	}

	// Fetch without touching.
	resp := doJSON(t, http.MethodGet, server.URL+"/api/documents/"+doc.ID, nil)
	fetched := decode[models.Document](t, resp)
	if fetched.LastOpened != doc.LastOpened {
		t.Error("plain get touched lastOpened")
	}

	// List by owner.
	resp = doJSON(t, http.MethodGet, server.URL+"/api/documents?ownerID=user-1", nil)
	docs := decode[[]models.Document](t, resp)
	if len(docs) != 1 {
		t.Errorf("list returned %d documents", len(docs))
	}

	// Update through the body-id route.
	resp = doJSON(t, http.MethodPut, server.URL+"/api/documents", map[string]any{
		"id":   doc.ID,
		"name": "renamed",
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("update: status %d", resp.StatusCode)
	}
	updated := decode[models.Document](t, resp)
	if updated.Name != "renamed" {
		t.Errorf("name = %q", updated.Name)
	}

	// Delete through the body-id route.
	resp = doJSON(t, http.MethodDelete, server.URL+"/api/documents", map[string]string{"id": doc.ID})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("delete: status %d", resp.StatusCode)
	}
	msg := decode[map[string]string](t, resp)
	if msg["msg"] != "success" {
		t.Errorf("body = %v", msg)
	}

	resp = doJSON(t, http.MethodGet, server.URL+"/api/documents/"+doc.ID, nil)
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("get after delete: status %d", resp.StatusCode)
	}
}

func TestListSortedByLastOpened(t *testing.T) {
	server, store := newTestServer(t)
	createTestDocument(t, server)
	createTestDocument(t, server)

	// Stagger lastOpened so the order is deterministic.
	docs, err := store.Documents().ListByOwner(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("ListByOwner: %v", err)
	}
	for i := range docs {
		doc := docs[i].Clone()
		doc.LastOpened = fmt.Sprintf("2024-01-0%dT00:00:00Z", i+1)
		if err := store.Documents().Put(context.Background(), doc); err != nil {
			t.Fatalf("Put: %v", err)
		}
	}

	resp := doJSON(t, http.MethodGet, server.URL+"/api/documents?ownerID=user-1&sortBy=lastOpened", nil)
	sorted := decode[[]models.Document](t, resp)
	if len(sorted) != 2 {
		t.Fatalf("expected 2 documents, got %d", len(sorted))
	}
	if sorted[0].LastOpened < sorted[1].LastOpened {
		t.Errorf("not sorted descending: %s < %s", sorted[0].LastOpened, sorted[1].LastOpened)
	}
}

func TestResourceCheckEndpoint(t *testing.T) {
	server, _ := newTestServer(t)
	doc := createTestDocument(t, server)

	content := base64.StdEncoding.EncodeToString([]byte("check me"))
	resp := doJSON(t, http.MethodPost, server.URL+"/api/resources", map[string]any{
		"documentId": doc.ID,
		"folderName": models.GeneralFolder,
		"name":       "a.txt",
		"content":    content,
	})
	uploaded := decode[uploadResponse](t, resp)

	resp = doJSON(t, http.MethodGet, server.URL+"/api/resources/check/"+uploaded.Meta.Hash, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("check: status %d", resp.StatusCode)
	}
	result := decode[map[string]any](t, resp)
	if exists, _ := result["exists"].(bool); !exists {
		t.Error("uploaded hash reported as absent")
	}

	resp = doJSON(t, http.MethodGet, server.URL+"/api/resources/check/unseen-hash", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("check unseen: status %d", resp.StatusCode)
	}
	result = decode[map[string]any](t, resp)
	if exists, _ := result["exists"].(bool); exists {
		t.Error("unseen hash reported as present")
	}
}

func TestDocumentTouchEndpoint(t *testing.T) {
	server, _ := newTestServer(t)
	doc := createTestDocument(t, server)

	resp := doJSON(t, http.MethodPut, server.URL+"/api/documents/"+doc.ID+"/last-opened", nil)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("touch: status %d", resp.StatusCode)
	}

	resp = doJSON(t, http.MethodGet, server.URL+"/api/documents/"+doc.ID, nil)
	current := decode[models.Document](t, resp)
	if current.LastOpened < doc.LastOpened {
		t.Errorf("lastOpened went backwards: %s -> %s", doc.LastOpened, current.LastOpened)
	}
}

func TestUpdateMissingDocument(t *testing.T) {
	server, _ := newTestServer(t)

	resp := doJSON(t, http.MethodPut, server.URL+"/api/documents", map[string]any{
		"id":   "ghost",
		"name": "x",
	})
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("status = %d", resp.StatusCode)
	}
}

func TestFolderEndpoints(t *testing.T) {
	server, _ := newTestServer(t)
	doc := createTestDocument(t, server)
	base := server.URL + "/api/documents/" + doc.ID

	resp := doJSON(t, http.MethodPost, base+"/folders", map[string]string{"folderName": "papers"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("add folder: status %d", resp.StatusCode)
	}
	resp.Body.Close()

	// Duplicate add fails with 400 and leaves the folder map unchanged.
	resp = doJSON(t, http.MethodPost, base+"/folders", map[string]string{"folderName": "papers"})
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("duplicate folder: status %d", resp.StatusCode)
	}
	resp = doJSON(t, http.MethodGet, base, nil)
	current := decode[models.Document](t, resp)
	if len(current.Folders) != 2 {
		t.Errorf("folder count after rejected add: %d", len(current.Folders))
	}

	// Rename.
	resp = doJSON(t, http.MethodPost, base+"/folders/rename", map[string]string{
		"oldFolderName": "papers",
		"newFolderName": "articles",
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("rename folder: status %d", resp.StatusCode)
	}
	renamed := decode[models.Document](t, resp)
	if _, ok := renamed.Folders["articles"]; !ok {
		t.Error("renamed folder missing")
	}

	// General is protected.
	resp = doJSON(t, http.MethodDelete, base+"/folders", map[string]string{"folderName": models.GeneralFolder})
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("delete General: status %d", resp.StatusCode)
	}

	resp = doJSON(t, http.MethodDelete, base+"/folders", map[string]string{"folderName": "articles"})
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("delete folder: status %d", resp.StatusCode)
	}
}

func TestTagEndpoints(t *testing.T) {
	server, _ := newTestServer(t)
	doc := createTestDocument(t, server)
	base := server.URL + "/api/documents/" + doc.ID + "/tags"

	resp := doJSON(t, http.MethodPost, base, map[string]string{"tag": "biology"})
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("add tag: status %d", resp.StatusCode)
	}

	resp = doJSON(t, http.MethodPost, base, map[string]string{"tag": "biology"})
	resp.Body.Close()
	if resp.StatusCode != http.StatusConflict {
		t.Errorf("duplicate tag: status %d", resp.StatusCode)
	}

	resp = doJSON(t, http.MethodDelete, base, map[string]string{"tag": "chemistry"})
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("remove absent tag: status %d", resp.StatusCode)
	}

	resp = doJSON(t, http.MethodDelete, base, map[string]string{"tag": "biology"})
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("remove tag: status %d", resp.StatusCode)
	}
}

func TestResourceUploadAndFetch(t *testing.T) {
	server, _ := newTestServer(t)
	doc := createTestDocument(t, server)

	content := base64.StdEncoding.EncodeToString([]byte("<h1>Paper</h1>"))
	resp := doJSON(t, http.MethodPost, server.URL+"/api/resources", map[string]any{
		"documentId": doc.ID,
		"folderName": "sources",
		"name":       "paper.html",
		"content":    content,
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("upload: status %d", resp.StatusCode)
	}
	uploaded := decode[uploadResponse](t, resp)
	if !uploaded.GCSSuccess || !uploaded.DriveSuccess {
		t.Errorf("blob flags = %v/%v", uploaded.GCSSuccess, uploaded.DriveSuccess)
	}
	if uploaded.Meta.FileType != "HTML" {
		t.Errorf("fileType = %q", uploaded.Meta.FileType)
	}
	if _, ok := uploaded.Document.Folders["sources"]; !ok {
		t.Error("upload did not create target folder")
	}

	// Fetch the meta row, then join in the markdown.
	resp = doJSON(t, http.MethodGet, server.URL+"/api/resources/"+uploaded.Meta.ID, nil)
	meta := decode[models.ResourceMeta](t, resp)
	if meta.Hash != uploaded.Meta.Hash {
		t.Errorf("hash mismatch: %q vs %q", meta.Hash, uploaded.Meta.Hash)
	}

	resp = doJSON(t, http.MethodGet, server.URL+"/api/resources/"+uploaded.Meta.ID+"?withMarkdown=true", nil)
	joined := decode[map[string]any](t, resp)
	markdown, _ := joined["markdown"].(string)
	if markdown == "" {
		t.Error("withMarkdown response missing markdown")
	}
}

func TestResourceMoveRenameDelete(t *testing.T) {
	server, _ := newTestServer(t)
	doc := createTestDocument(t, server)

	content := base64.StdEncoding.EncodeToString([]byte("bytes"))
	resp := doJSON(t, http.MethodPost, server.URL+"/api/resources", map[string]any{
		"documentId": doc.ID,
		"folderName": models.GeneralFolder,
		"name":       "a.pdf",
		"content":    content,
	})
	uploaded := decode[uploadResponse](t, resp)
	id := uploaded.Meta.ID

	doJSON(t, http.MethodPost, server.URL+"/api/documents/"+doc.ID+"/folders",
		map[string]string{"folderName": "papers"}).Body.Close()

	resp = doJSON(t, http.MethodPut, server.URL+"/api/resources/move", map[string]string{
		"documentId":       doc.ID,
		"resourceId":       id,
		"sourceFolderName": models.GeneralFolder,
		"targetFolderName": "papers",
	})
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("move: status %d", resp.StatusCode)
	}

	resp = doJSON(t, http.MethodPut, server.URL+"/api/resources/"+id+"/name", map[string]string{"name": "b.pdf"})
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("rename: status %d", resp.StatusCode)
	}

	resp = doJSON(t, http.MethodGet, server.URL+"/api/documents/"+doc.ID, nil)
	current := decode[models.Document](t, resp)
	papers := current.Folders["papers"]
	if len(papers.Resources) != 1 || papers.Resources[0].Name != "b.pdf" {
		t.Errorf("projection after move+rename: %+v", papers.Resources)
	}

	resp = doJSON(t, http.MethodDelete, server.URL+"/api/resources/"+id, nil)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("delete: status %d", resp.StatusCode)
	}
	resp = doJSON(t, http.MethodDelete, server.URL+"/api/resources/"+id, nil)
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("second delete: status %d", resp.StatusCode)
	}
}

func TestNotesEndpoints(t *testing.T) {
	server, _ := newTestServer(t)
	doc := createTestDocument(t, server)

	content := base64.StdEncoding.EncodeToString([]byte("bytes"))
	resp := doJSON(t, http.MethodPost, server.URL+"/api/resources", map[string]any{
		"documentId": doc.ID,
		"folderName": models.GeneralFolder,
		"name":       "a.pdf",
		"content":    content,
	})
	uploaded := decode[uploadResponse](t, resp)
	base := fmt.Sprintf("%s/api/resources/%s/notes", server.URL, uploaded.Meta.ID)

	resp = doJSON(t, http.MethodPut, base, map[string]string{"notes": "read later"})
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("set notes: status %d", resp.StatusCode)
	}

	resp = doJSON(t, http.MethodGet, base, nil)
	notes := decode[map[string]string](t, resp)
	if notes["notes"] != "read later" {
		t.Errorf("notes = %q", notes["notes"])
	}

	resp = doJSON(t, http.MethodDelete, base, nil)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("clear notes: status %d", resp.StatusCode)
	}
	resp = doJSON(t, http.MethodGet, base, nil)
	notes = decode[map[string]string](t, resp)
	if notes["notes"] != "" {
		t.Errorf("notes after clear = %q", notes["notes"])
	}
}

func TestPresignEndpoint(t *testing.T) {
	server, _ := newTestServer(t)

	resp := doJSON(t, http.MethodPost, server.URL+"/api/storage/presign", map[string]any{
		"key":       "somehash",
		"operation": "get",
		"expiresIn": 600,
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("presign: status %d", resp.StatusCode)
	}
	result := decode[map[string]any](t, resp)
	if url, _ := result["url"].(string); url == "" {
		t.Error("presign response missing url")
	}

	resp = doJSON(t, http.MethodPost, server.URL+"/api/storage/presign", map[string]any{
		"key":       "somehash",
		"operation": "append",
	})
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("bad operation: status %d", resp.StatusCode)
	}
}

func TestRepairEndpoint(t *testing.T) {
	server, store := newTestServer(t)
	doc := createTestDocument(t, server)

	// Stage an interrupted cascade.
	if err := store.Documents().MarkDeletePending(context.Background(), doc.ID, models.Now()); err != nil {
		t.Fatalf("MarkDeletePending: %v", err)
	}

	resp := doJSON(t, http.MethodPost, server.URL+"/admin/repair", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("repair: status %d", resp.StatusCode)
	}
	result := decode[map[string][]string](t, resp)
	if len(result["repaired"]) != 1 || result["repaired"][0] != doc.ID {
		t.Errorf("repaired = %v", result["repaired"])
	}
}

func TestInvalidJSONBody(t *testing.T) {
	server, _ := newTestServer(t)

	resp, err := http.Post(server.URL+"/api/documents", "application/json", bytes.NewBufferString("{nope"))
	if err != nil {
		t.Fatalf("POST: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "application/problem+json" {
		t.Errorf("content type = %q", ct)
	}
}
