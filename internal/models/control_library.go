package models

import (
	"encoding/json"
	"fmt"

	"gorm.io/datatypes"
)

// ControlCategory groups library entries. The numeric order is the listing order.
type ControlCategory int

const (
	CategoryBasicInputs ControlCategory = iota
	CategorySelection
	CategoryDateTime
	CategoryAdvanced
	CategoryLayout
)

var categoryNames = [...]string{"basic_inputs", "selection", "date_time", "advanced", "layout"}

func (c ControlCategory) String() string {
	if c < 0 || int(c) >= len(categoryNames) {
		return fmt.Sprintf("category(%d)", int(c))
	}
	return categoryNames[c]
}

// ParseControlCategory maps a category name to its value.
func ParseControlCategory(s string) (ControlCategory, error) {
	for i, n := range categoryNames {
		if n == s {
			return ControlCategory(i), nil
		}
	}
	return 0, fmt.Errorf("unknown control category %q", s)
}

func (c ControlCategory) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.String())
}

func (c *ControlCategory) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	v, err := ParseControlCategory(s)
	if err != nil {
		return err
	}
	*c = v
	return nil
}

// ControlLibraryEntry describes a control type available in the designer palette.
type ControlLibraryEntry struct {
	Type         ControlType     `gorm:"type:varchar(50);primaryKey" json:"type"`
	Category     ControlCategory `gorm:"not null;index" json:"category"`
	Icon         string          `gorm:"type:varchar(50);not null" json:"icon"`
	ConfigSchema datatypes.JSON  `gorm:"not null" json:"config_schema"`
	DefaultProps datatypes.JSON  `gorm:"not null" json:"default_props"`
}

func (ControlLibraryEntry) TableName() string { return "control_library" }
