package types

import (
	"encoding/json"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/formr/engine/internal/models"
)

// TemplateRequest is the body of template create and update calls.
// base_template_id is ignored on update.
type TemplateRequest struct {
	Name           string           `json:"name"`
	Description    *string          `json:"description"`
	Version        int              `json:"version"`
	BaseTemplateID *uuid.UUID       `json:"base_template_id"`
	Controls       []ControlRequest `json:"controls"`
}

type ControlRequest struct {
	ID              uuid.UUID       `json:"id"`
	Type            string          `json:"type"`
	Label           string          `json:"label"`
	Placeholder     *string         `json:"placeholder"`
	DefaultValue    *string         `json:"default_value"`
	IsRequired      bool            `json:"is_required"`
	ValidationRules json.RawMessage `json:"validation_rules"`
	Position        json.RawMessage `json:"position"`
	Properties      json.RawMessage `json:"properties"`
	ParentControlID *uuid.UUID      `json:"parent_control_id"`
	Order           int             `json:"order"`
}

type InstantiateRequest struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// ToModels converts the request controls. A nil slice stays nil so a missing
// collection can be told apart from an empty one.
func (r *TemplateRequest) ToModels() []models.FormControl {
	if r.Controls == nil {
		return nil
	}
	out := make([]models.FormControl, len(r.Controls))
	for i, c := range r.Controls {
		out[i] = models.FormControl{
			ID:              c.ID,
			Type:            models.ControlType(c.Type),
			Label:           c.Label,
			Placeholder:     c.Placeholder,
			DefaultValue:    c.DefaultValue,
			IsRequired:      c.IsRequired,
			ValidationRules: jsonOrNil(c.ValidationRules),
			Position:        jsonOrNil(c.Position),
			Properties:      jsonOrNil(c.Properties),
			ParentControlID: c.ParentControlID,
			Order:           c.Order,
		}
	}
	return out
}

func jsonOrNil(raw json.RawMessage) datatypes.JSON {
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}
	return datatypes.JSON(raw)
}
