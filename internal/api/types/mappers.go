package types

import (
	"encoding/json"

	"github.com/google/uuid"

	"github.com/formr/engine/internal/library"
	"github.com/formr/engine/internal/models"
)

func NewTemplateSummary(t *models.FormTemplate) TemplateSummary {
	return TemplateSummary{
		ID:             t.ID,
		Name:           t.Name,
		Description:    t.Description,
		Version:        t.Version,
		BaseTemplateID: t.BaseTemplateID,
		ControlCount:   len(t.Controls),
		CreatedDate:    t.CreatedDate,
		ModifiedDate:   t.ModifiedDate,
	}
}

func NewTemplateResponse(t *models.FormTemplate) TemplateResponse {
	out := TemplateResponse{
		ID:             t.ID,
		Name:           t.Name,
		Description:    t.Description,
		Version:        t.Version,
		BaseTemplateID: t.BaseTemplateID,
		TenantID:       t.TenantID,
		CreatedDate:    t.CreatedDate,
		ModifiedDate:   t.ModifiedDate,
		Revision:       t.Revision(),
		Controls:       make([]ControlResponse, len(t.Controls)),
	}
	if b := t.BaseTemplate; b != nil {
		out.BaseTemplate = &BaseTemplateRef{ID: b.ID, Name: b.Name, Version: b.Version}
	}
	for i := range t.Controls {
		out.Controls[i] = NewControlResponse(&t.Controls[i])
	}
	return out
}

func NewControlResponse(c *models.FormControl) ControlResponse {
	out := ControlResponse{
		ID:              c.ID,
		Type:            string(c.Type),
		Label:           c.Label,
		Placeholder:     c.Placeholder,
		DefaultValue:    c.DefaultValue,
		IsRequired:      c.IsRequired,
		ValidationRules: json.RawMessage(c.ValidationRules),
		Position:        json.RawMessage(c.Position),
		Properties:      json.RawMessage(c.Properties),
		ParentControlID: c.ParentControlID,
		Order:           c.Order,
	}
	if c.TemplateID != uuid.Nil {
		id := c.TemplateID
		out.TemplateID = &id
	}
	return out
}

func NewLibraryEntryResponse(e *models.ControlLibraryEntry) LibraryEntryResponse {
	return LibraryEntryResponse{
		Type:         string(e.Type),
		DisplayName:  library.DisplayName(e.Type),
		Category:     e.Category.String(),
		Icon:         e.Icon,
		ConfigSchema: json.RawMessage(e.ConfigSchema),
		DefaultProps: json.RawMessage(e.DefaultProps),
	}
}
