package postgres

import (
	"testing"

	"curiocity/internal/domain/models"
	"curiocity/internal/domain/repositories"
)

func validDocument() *models.Document {
	return models.NewDocument("doc-1", "user-1", "research", "", "2024-01-01T00:00:00Z")
}

func TestValidateRecord_Document(t *testing.T) {
	if err := ValidateRecord(repositories.TableDocuments, validDocument()); err != nil {
		t.Fatalf("valid document rejected: %v", err)
	}

	tests := []struct {
		name   string
		mutate func(*models.Document)
	}{
		{"missing id", func(d *models.Document) { d.ID = "" }},
		{"missing owner", func(d *models.Document) { d.OwnerID = "" }},
		{"missing name", func(d *models.Document) { d.Name = "" }},
		{"nil folders", func(d *models.Document) { d.Folders = nil }},
		{"missing dateAdded", func(d *models.Document) { d.DateAdded = "" }},
		{"nil tags", func(d *models.Document) { d.Tags = nil }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := validDocument()
			tt.mutate(doc)
			if err := ValidateRecord(repositories.TableDocuments, doc); err == nil {
				t.Error("invalid document accepted")
			}
		})
	}
}

func TestValidateRecord_Resource(t *testing.T) {
	res := &models.Resource{ID: "hash", Markdown: "# x", URL: "https://example.com"}
	if err := ValidateRecord(repositories.TableResources, res); err != nil {
		t.Fatalf("valid resource rejected: %v", err)
	}

	if err := ValidateRecord(repositories.TableResources, &models.Resource{ID: "hash", Markdown: "# x"}); err == nil {
		t.Error("resource without url accepted")
	}
}

func TestValidateRecord_ResourceMeta(t *testing.T) {
	meta := &models.ResourceMeta{
		ID:         "meta-1",
		Hash:       "hash",
		Name:       "a.pdf",
		Tags:       []string{},
		DateAdded:  "2024-01-01T00:00:00Z",
		LastOpened: "2024-01-01T00:00:00Z",
	}
	if err := ValidateRecord(repositories.TableResourceMeta, meta); err != nil {
		t.Fatalf("valid meta rejected: %v", err)
	}

	meta.Tags = nil
	if err := ValidateRecord(repositories.TableResourceMeta, meta); err == nil {
		t.Error("meta with nil tags accepted")
	}
}

func TestValidateRecord_WrongShape(t *testing.T) {
	if err := ValidateRecord(repositories.TableDocuments, &models.Resource{}); err == nil {
		t.Error("wrong record type accepted")
	}
	if err := ValidateRecord("Mystery", validDocument()); err == nil {
		t.Error("unknown table accepted")
	}
}
