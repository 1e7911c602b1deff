// Package validation holds the structural rules for templates and their controls.
package validation

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/formr/engine/internal/models"
	appErr "github.com/formr/engine/pkg/errors"
)

var messages = map[string]string{
	"FormTemplate.name|required":       "Template name is required",
	"FormTemplate.name|max":            "Template name cannot exceed 200 characters",
	"FormTemplate.description|max":     "Description cannot exceed 1000 characters",
	"FormTemplate.version|gt":          "Version must be greater than 0",
	"FormTemplate.tenant_id|required":  "TenantId is required",
	"FormTemplate.controls|required":   "Controls collection cannot be null",
	"FormControl.template_id|required": "TemplateId is required",
	"FormControl.type|controltype":     "Invalid control type",
	"FormControl.label|required":       "Control label is required",
	"FormControl.label|max":            "Label cannot exceed 200 characters",
	"FormControl.placeholder|max":      "Placeholder cannot exceed 200 characters",
	"FormControl.position|required":    "Position is required",
	"FormControl.position|position":    "Position must contain x, y, width, and height properties",
	"FormControl.order|gte":            "Order must be non-negative",
}

const (
	msgDuplicateControlID = "Control id appears more than once"
	msgForeignParent      = "Parent control must belong to the same template"
	msgParentCycle        = "Control hierarchy cannot contain cycles"
	msgSelfParent         = "Control cannot be its own parent"
	msgSelfBase           = "Template cannot be its own base template"
)

// Validator checks templates and controls, collecting every failed rule.
type Validator struct {
	v *validator.Validate
}

// New returns a Validator with the control-specific tags registered.
func New() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return f.Name
		}
		return name
	})
	_ = v.RegisterValidation("controltype", func(fl validator.FieldLevel) bool {
		ct, ok := fl.Field().Interface().(models.ControlType)
		return ok && ct.IsValid()
	})
	_ = v.RegisterValidation("position", func(fl validator.FieldLevel) bool {
		doc, ok := fl.Field().Interface().(datatypes.JSON)
		if !ok {
			return false
		}
		_, err := models.ParsePosition(doc)
		return err == nil
	})
	return &Validator{v: v}
}

var std = New()

// ValidateTemplate runs ValidateTemplate on the package validator.
func ValidateTemplate(t *models.FormTemplate) error { return std.ValidateTemplate(t) }

// ValidateControl runs ValidateControl on the package validator.
func ValidateControl(c *models.FormControl) []appErr.FieldError { return std.ValidateControl(c) }

// ValidateTemplate checks the template, each of its controls and the control hierarchy.
// It returns nil or an invalid AppError listing every failure.
func (v *Validator) ValidateTemplate(t *models.FormTemplate) error {
	fields := v.collect(t, "")
	if t.BaseTemplateID != nil && *t.BaseTemplateID == t.ID {
		fields = append(fields, appErr.FieldError{Field: "base_template_id", Message: msgSelfBase})
	}
	for i := range t.Controls {
		fields = append(fields, v.collect(&t.Controls[i], fmt.Sprintf("controls[%d].", i))...)
	}
	fields = append(fields, hierarchy(t.Controls)...)
	if len(fields) == 0 {
		return nil
	}
	return appErr.Validation(fields)
}

// ValidateControl checks a single control in isolation.
func (v *Validator) ValidateControl(c *models.FormControl) []appErr.FieldError {
	fields := v.collect(c, "")
	if selfParented(c) {
		fields = append(fields, appErr.FieldError{Field: "parent_control_id", Message: msgSelfParent})
	}
	return fields
}

func selfParented(c *models.FormControl) bool {
	return c.ID != uuid.Nil && c.ParentControlID != nil && *c.ParentControlID == c.ID
}

func (v *Validator) collect(s any, prefix string) []appErr.FieldError {
	err := v.v.Struct(s)
	if err == nil {
		return nil
	}
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return []appErr.FieldError{{Field: strings.TrimSuffix(prefix, "."), Message: err.Error()}}
	}
	out := make([]appErr.FieldError, 0, len(verrs))
	for _, fe := range verrs {
		out = append(out, appErr.FieldError{Field: prefix + fe.Field(), Message: message(fe)})
	}
	return out
}

func message(fe validator.FieldError) string {
	if m, ok := messages[fe.Namespace()+"|"+fe.Tag()]; ok {
		return m
	}
	return fmt.Sprintf("%s failed the %s rule", fe.Field(), fe.Tag())
}

// hierarchy enforces the tree rules that span controls: unique ids,
// parents drawn from the same set other than the control itself, and no cycles.
func hierarchy(controls []models.FormControl) []appErr.FieldError {
	var out []appErr.FieldError
	parents := make(map[uuid.UUID]uuid.UUID, len(controls))
	seen := make(map[uuid.UUID]bool, len(controls))
	for i, c := range controls {
		if c.ID == uuid.Nil {
			continue
		}
		if seen[c.ID] {
			out = append(out, appErr.FieldError{Field: fmt.Sprintf("controls[%d].id", i), Message: msgDuplicateControlID})
			continue
		}
		seen[c.ID] = true
		if c.ParentControlID != nil {
			parents[c.ID] = *c.ParentControlID
		}
	}

	for i, c := range controls {
		if c.ParentControlID == nil {
			continue
		}
		field := fmt.Sprintf("controls[%d].parent_control_id", i)
		if selfParented(&c) {
			out = append(out, appErr.FieldError{Field: field, Message: msgSelfParent})
			continue
		}
		if !seen[*c.ParentControlID] {
			out = append(out, appErr.FieldError{Field: field, Message: msgForeignParent})
			continue
		}
		if c.ID != uuid.Nil && inCycle(c.ID, parents) {
			out = append(out, appErr.FieldError{Field: field, Message: msgParentCycle})
		}
	}
	return out
}

func inCycle(start uuid.UUID, parents map[uuid.UUID]uuid.UUID) bool {
	cur := start
	for steps := 0; steps <= len(parents); steps++ {
		p, ok := parents[cur]
		if !ok || p == cur {
			return false
		}
		if p == start {
			return true
		}
		cur = p
	}
	return false
}
