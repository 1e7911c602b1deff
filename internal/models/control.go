package models

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// ControlType is the closed set of control kinds a template may contain.
type ControlType string

const (
	ControlTextInput       ControlType = "TextInput"
	ControlMultilineText   ControlType = "MultilineText"
	ControlNumberInput     ControlType = "NumberInput"
	ControlEmailInput      ControlType = "EmailInput"
	ControlPhoneInput      ControlType = "PhoneInput"
	ControlDropdown        ControlType = "Dropdown"
	ControlCheckbox        ControlType = "Checkbox"
	ControlRadioGroup      ControlType = "RadioGroup"
	ControlMultiSelect     ControlType = "MultiSelect"
	ControlDatePicker      ControlType = "DatePicker"
	ControlTimePicker      ControlType = "TimePicker"
	ControlDateRangePicker ControlType = "DateRangePicker"
	ControlFileUpload      ControlType = "FileUpload"
	ControlRichTextEditor  ControlType = "RichTextEditor"
	ControlRatingScale     ControlType = "RatingScale"
	ControlSlider          ControlType = "Slider"
	ControlSignaturePad    ControlType = "SignaturePad"
	ControlSection         ControlType = "Section"
	ControlColumnContainer ControlType = "ColumnContainer"
	ControlTabPanel        ControlType = "TabPanel"
	ControlAccordion       ControlType = "Accordion"
)

// ControlTypes lists every known control type.
var ControlTypes = []ControlType{
	ControlTextInput, ControlMultilineText, ControlNumberInput, ControlEmailInput, ControlPhoneInput,
	ControlDropdown, ControlCheckbox, ControlRadioGroup, ControlMultiSelect,
	ControlDatePicker, ControlTimePicker, ControlDateRangePicker,
	ControlFileUpload, ControlRichTextEditor, ControlRatingScale, ControlSlider, ControlSignaturePad,
	ControlSection, ControlColumnContainer, ControlTabPanel, ControlAccordion,
}

var knownControlTypes = func() map[ControlType]struct{} {
	m := make(map[ControlType]struct{}, len(ControlTypes))
	for _, ct := range ControlTypes {
		m[ct] = struct{}{}
	}
	return m
}()

func (c ControlType) IsValid() bool {
	_, ok := knownControlTypes[c]
	return ok
}

// FormControl is one positioned, typed element of a template.
// Parent links are ids into the same template's control set.
type FormControl struct {
	ID              uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	TemplateID      uuid.UUID      `gorm:"type:uuid;not null;index" json:"template_id" validate:"required"`
	Type            ControlType    `gorm:"type:varchar(50);not null" json:"type" validate:"controltype"`
	Label           string         `gorm:"type:varchar(200);not null" json:"label" validate:"required,max=200"`
	Placeholder     *string        `gorm:"type:varchar(200)" json:"placeholder,omitempty" validate:"omitempty,max=200"`
	DefaultValue    *string        `gorm:"type:text" json:"default_value,omitempty"`
	IsRequired      bool           `gorm:"not null;default:false" json:"is_required"`
	ValidationRules datatypes.JSON `json:"validation_rules,omitempty"`
	Position        datatypes.JSON `gorm:"not null" json:"position" validate:"required,position"`
	Properties      datatypes.JSON `json:"properties,omitempty"`
	ParentControlID *uuid.UUID     `gorm:"type:uuid;index" json:"parent_control_id,omitempty"`
	Order           int            `gorm:"column:sort_order;not null;default:0" json:"order" validate:"gte=0"`
}

func (c *FormControl) BeforeCreate(tx *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}

// Position is the decoded placement of a control on the designer canvas.
type Position struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
	ZIndex *int    `json:"zIndex,omitempty"`
}

var positionKeys = []string{"x", "y", "width", "height"}

// ErrPositionShape is returned when a position document lacks a numeric x, y, width or height.
var ErrPositionShape = errors.New("position must contain x, y, width, and height properties")

// ParsePosition decodes a position document, requiring the four numeric keys.
func ParsePosition(doc datatypes.JSON) (Position, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(doc, &raw); err != nil || raw == nil {
		return Position{}, ErrPositionShape
	}
	for _, k := range positionKeys {
		v, ok := raw[k]
		if !ok || string(v) == "null" {
			return Position{}, ErrPositionShape
		}
		var n float64
		if err := json.Unmarshal(v, &n); err != nil {
			return Position{}, ErrPositionShape
		}
	}
	var p Position
	if err := json.Unmarshal(doc, &p); err != nil {
		return Position{}, fmt.Errorf("%w: %v", ErrPositionShape, err)
	}
	return p, nil
}

// JSON encodes the position as a control document.
func (p Position) JSON() datatypes.JSON {
	b, _ := json.Marshal(p)
	return datatypes.JSON(b)
}
