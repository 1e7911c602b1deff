package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/formr/engine/pkg/utils"
)

// FormTemplate is a named, versioned form design owned by a tenant.
type FormTemplate struct {
	ID             uuid.UUID     `gorm:"type:uuid;primaryKey" json:"id"`
	Name           string        `gorm:"type:varchar(200);not null" json:"name" validate:"required,max=200"`
	Description    *string       `gorm:"type:varchar(1000)" json:"description,omitempty" validate:"omitempty,max=1000"`
	Version        int           `gorm:"not null;default:1" json:"version" validate:"gt=0"`
	BaseTemplateID *uuid.UUID    `gorm:"type:uuid;index" json:"base_template_id,omitempty"`
	TenantID       uuid.UUID     `gorm:"type:uuid;not null;index" json:"tenant_id" validate:"required"`
	CreatedDate    time.Time     `gorm:"not null" json:"created_date"`
	ModifiedDate   time.Time     `gorm:"not null;index" json:"modified_date"`
	IsDeleted      bool          `gorm:"not null;default:false;index" json:"-"`
	Controls       []FormControl `gorm:"foreignKey:TemplateID" json:"controls" validate:"required"`
	BaseTemplate   *FormTemplate `gorm:"foreignKey:BaseTemplateID" json:"base_template,omitempty" validate:"-"`
}

func (t *FormTemplate) BeforeCreate(tx *gorm.DB) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	return nil
}

// Revision identifies the stored state of the template for conditional writes.
func (t *FormTemplate) Revision() string {
	return utils.ETag([]byte(t.ID.String() + "|" + t.ModifiedDate.UTC().Format(time.RFC3339Nano)))
}
