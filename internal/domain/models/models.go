package models

import "time"

// Timestamps are stored in their ISO-8601 string form, exactly as the
// clients send and render them.
const TimeFormat = time.RFC3339

// Now returns the current time in stored string form.
func Now() string {
	return time.Now().UTC().Format(TimeFormat)
}

// Document is the top-level user-owned container. The folder tree is
// embedded: the document row is the unit of mutation for every folder and
// resource-list change.
type Document struct {
	ID         string            `json:"id" bson:"_id"`
	OwnerID    string            `json:"ownerID" bson:"ownerID"`
	Name       string            `json:"name" bson:"name"`
	Text       string            `json:"text" bson:"text"`
	Folders    map[string]Folder `json:"folders" bson:"folders"`
	DateAdded  string            `json:"dateAdded" bson:"dateAdded"`
	LastOpened string            `json:"lastOpened" bson:"lastOpened"`
	Tags       []string          `json:"tags" bson:"tags"`

	// Version supports conditional whole-document writes: every write is
	// compared against the version that was read, and a mismatch is a
	// conflict the client must retry.
	Version int64 `json:"version" bson:"version"`

	// DeletePending is set (RFC3339) before the cascade-delete walk starts
	// so a crash mid-cascade can be found and resumed by the repair sweep.
	DeletePending string `json:"deletePending,omitempty" bson:"deletePending,omitempty"`
}

// Folder is embedded in a Document. Name must equal its key in the parent
// folders map; every rename changes both together.
type Folder struct {
	Name      string               `json:"name" bson:"name"`
	Resources []ResourceCompressed `json:"resources" bson:"resources"`
}

// ResourceCompressed is the denormalized projection of a ResourceMeta that
// folders carry for listing. Kept in sync with the canonical row on rename
// and last-opened touch.
type ResourceCompressed struct {
	ID         string `json:"id" bson:"id"`
	Name       string `json:"name" bson:"name"`
	FileType   string `json:"fileType" bson:"fileType"`
	DateAdded  string `json:"dateAdded" bson:"dateAdded"`
	LastOpened string `json:"lastOpened" bson:"lastOpened"`
}

// ResourceMeta is the canonical per-document-folder record for one
// uploaded resource. A meta belongs to exactly one document and, within
// it, one folder at a time.
type ResourceMeta struct {
	ID         string   `json:"id" bson:"_id"`
	Hash       string   `json:"hash" bson:"hash"`
	DocumentID string   `json:"documentId" bson:"documentId"`
	Name       string   `json:"name" bson:"name"`
	FileType   string   `json:"fileType" bson:"fileType"`
	Notes      string   `json:"notes" bson:"notes"`
	Summary    string   `json:"summary" bson:"summary"`
	Tags       []string `json:"tags" bson:"tags"`
	DateAdded  string   `json:"dateAdded" bson:"dateAdded"`
	LastOpened string   `json:"lastOpened" bson:"lastOpened"`
}

// Resource is content-addressed blob metadata: the primary key is the
// content hash, so uploading identical bytes twice produces one row. Never
// updated after creation.
type Resource struct {
	ID       string `json:"id" bson:"_id"` // content hash
	Markdown string `json:"markdown" bson:"markdown"`
	URL      string `json:"url" bson:"url"`
}

// NewDocument seeds the invariant starting shape: exactly one folder,
// "General", with an empty resource list.
func NewDocument(id, ownerID, name, text, dateAdded string) *Document {
	if dateAdded == "" {
		dateAdded = Now()
	}
	return &Document{
		ID:      id,
		OwnerID: ownerID,
		Name:    name,
		Text:    text,
		Folders: map[string]Folder{
			GeneralFolder: {Name: GeneralFolder, Resources: []ResourceCompressed{}},
		},
		DateAdded:  dateAdded,
		LastOpened: dateAdded,
		Tags:       []string{},
	}
}

// GeneralFolder is created with every document and cannot be renamed or
// deleted through the folder operations.
const GeneralFolder = "General"

// Compressed returns the folder projection of the canonical row.
func (m *ResourceMeta) Compressed() ResourceCompressed {
	return ResourceCompressed{
		ID:         m.ID,
		Name:       m.Name,
		FileType:   m.FileType,
		DateAdded:  m.DateAdded,
		LastOpened: m.LastOpened,
	}
}

// Clone returns a deep copy of the document, used as the pre-image for
// mirror compensation.
func (d *Document) Clone() *Document {
	cp := *d
	cp.Tags = append([]string(nil), d.Tags...)
	cp.Folders = make(map[string]Folder, len(d.Folders))
	for name, f := range d.Folders {
		fc := Folder{Name: f.Name, Resources: append([]ResourceCompressed(nil), f.Resources...)}
		cp.Folders[name] = fc
	}
	return &cp
}

// ResourceCount is the total number of folder entries across the document.
func (d *Document) ResourceCount() int {
	n := 0
	for _, f := range d.Folders {
		n += len(f.Resources)
	}
	return n
}
