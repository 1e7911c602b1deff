package types

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	appErr "github.com/formr/engine/pkg/errors"
)

type APIResponse struct {
	Success bool      `json:"success"`
	Data    any       `json:"data,omitempty"`
	Error   *APIError `json:"error,omitempty"`
	Meta    *Meta     `json:"meta,omitempty"`
}

type APIError struct {
	Code    string              `json:"code"`
	Message string              `json:"message"`
	Fields  []appErr.FieldError `json:"fields,omitempty"`
}

type Meta struct {
	RequestID string `json:"request_id,omitempty"`
	Page      int    `json:"page,omitempty"`
	PageSize  int    `json:"page_size,omitempty"`
	Total     int64  `json:"total,omitempty"`
}

// TemplateSummary is a list row; controls are counted, not embedded.
type TemplateSummary struct {
	ID             uuid.UUID  `json:"id"`
	Name           string     `json:"name"`
	Description    *string    `json:"description,omitempty"`
	Version        int        `json:"version"`
	BaseTemplateID *uuid.UUID `json:"base_template_id,omitempty"`
	ControlCount   int        `json:"control_count"`
	CreatedDate    time.Time  `json:"created_date"`
	ModifiedDate   time.Time  `json:"modified_date"`
}

type BaseTemplateRef struct {
	ID      uuid.UUID `json:"id"`
	Name    string    `json:"name"`
	Version int       `json:"version"`
}

type TemplateResponse struct {
	ID             uuid.UUID         `json:"id"`
	Name           string            `json:"name"`
	Description    *string           `json:"description,omitempty"`
	Version        int               `json:"version"`
	BaseTemplateID *uuid.UUID        `json:"base_template_id,omitempty"`
	BaseTemplate   *BaseTemplateRef  `json:"base_template,omitempty"`
	TenantID       uuid.UUID         `json:"tenant_id"`
	CreatedDate    time.Time         `json:"created_date"`
	ModifiedDate   time.Time         `json:"modified_date"`
	Revision       string            `json:"revision"`
	Controls       []ControlResponse `json:"controls"`
}

type ControlResponse struct {
	ID              uuid.UUID       `json:"id"`
	TemplateID      *uuid.UUID      `json:"template_id,omitempty"`
	Type            string          `json:"type"`
	Label           string          `json:"label"`
	Placeholder     *string         `json:"placeholder,omitempty"`
	DefaultValue    *string         `json:"default_value,omitempty"`
	IsRequired      bool            `json:"is_required"`
	ValidationRules json.RawMessage `json:"validation_rules,omitempty"`
	Position        json.RawMessage `json:"position"`
	Properties      json.RawMessage `json:"properties,omitempty"`
	ParentControlID *uuid.UUID      `json:"parent_control_id,omitempty"`
	Order           int             `json:"order"`
}

type LibraryEntryResponse struct {
	Type         string          `json:"type"`
	DisplayName  string          `json:"display_name"`
	Category     string          `json:"category"`
	Icon         string          `json:"icon"`
	ConfigSchema json.RawMessage `json:"config_schema"`
	DefaultProps json.RawMessage `json:"default_props"`
}
