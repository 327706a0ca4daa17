package postgres

import (
	"fmt"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"curiocity/internal/domain/models"
	"curiocity/internal/domain/repositories"
)

// ValidateRecord is the mirror's schema gate: required-field presence
// only, checked before any write reaches the database. A failure
// short-circuits the write without raising further.
func ValidateRecord(table string, record any) error {
	switch table {
	case repositories.TableDocuments:
		doc, ok := record.(*models.Document)
		if !ok {
			return fmt.Errorf("record for table %s must be a document", table)
		}
		return validation.ValidateStruct(doc,
			validation.Field(&doc.ID, validation.Required),
			validation.Field(&doc.OwnerID, validation.Required),
			validation.Field(&doc.Name, validation.Required),
			validation.Field(&doc.Folders, validation.Required),
			validation.Field(&doc.DateAdded, validation.Required),
			validation.Field(&doc.LastOpened, validation.Required),
			validation.Field(&doc.Tags, validation.NotNil),
		)
	case repositories.TableResources:
		res, ok := record.(*models.Resource)
		if !ok {
			return fmt.Errorf("record for table %s must be a resource", table)
		}
		return validation.ValidateStruct(res,
			validation.Field(&res.ID, validation.Required),
			validation.Field(&res.Markdown, validation.Required),
			validation.Field(&res.URL, validation.Required),
		)
	case repositories.TableResourceMeta:
		meta, ok := record.(*models.ResourceMeta)
		if !ok {
			return fmt.Errorf("record for table %s must be a resource meta", table)
		}
		return validation.ValidateStruct(meta,
			validation.Field(&meta.ID, validation.Required),
			validation.Field(&meta.Hash, validation.Required),
			validation.Field(&meta.Name, validation.Required),
			validation.Field(&meta.DateAdded, validation.Required),
			validation.Field(&meta.LastOpened, validation.Required),
			validation.Field(&meta.Tags, validation.NotNil),
		)
	default:
		return fmt.Errorf("unknown table: %s", table)
	}
}
