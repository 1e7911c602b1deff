// Package migrations owns the schema and the control library seed.
package migrations

import (
	"context"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/formr/engine/internal/models"
	"github.com/formr/engine/pkg/database"
)

// registerModels returns all models that need migration
func registerModels() []interface{} {
	return []interface{}{
		&models.FormTemplate{},
		&models.FormControl{},
		&models.ControlLibraryEntry{},
	}
}

// Run executes AutoMigrate followed by the hand-written migrations.
func Run(ctx context.Context, db *gorm.DB) error {
	db = db.WithContext(ctx)
	if err := db.AutoMigrate(registerModels()...); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	return runCustomMigrations(db)
}

// runCustomMigrations handles schema changes AutoMigrate can't handle
func runCustomMigrations(db *gorm.DB) error {
	migrations := []struct {
		name string
		fn   func(*gorm.DB) error
	}{
		{"template unique key", addTemplateUniqueKey},
		{"template listing index", addTemplateListingIndex},
		{"foreign keys", addForeignKeys},
	}

	for _, m := range migrations {
		if err := m.fn(db); err != nil {
			return fmt.Errorf("migration %q: %w", m.name, err)
		}
	}
	return nil
}

// addTemplateUniqueKey enforces (name, version, tenant) uniqueness among live templates.
func addTemplateUniqueKey(db *gorm.DB) error {
	return db.Exec(`
		CREATE UNIQUE INDEX IF NOT EXISTS idx_form_templates_name_version_tenant
		ON form_templates(name, version, tenant_id)
		WHERE is_deleted = false
	`).Error
}

func addTemplateListingIndex(db *gorm.DB) error {
	return db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_form_templates_tenant_modified
		ON form_templates(tenant_id, modified_date DESC)
		WHERE is_deleted = false
	`).Error
}

var foreignKeys = []struct {
	name, table, column, ref, onDelete string
}{
	{"fk_form_controls_template", "form_controls", "template_id", "form_templates", "CASCADE"},
	{"fk_form_controls_parent", "form_controls", "parent_control_id", "form_controls", "RESTRICT"},
	{"fk_form_templates_base", "form_templates", "base_template_id", "form_templates", "RESTRICT"},
}

// addForeignKeys creates the aggregate's foreign keys. SQLite cannot add
// constraints to existing tables, so they are PostgreSQL only.
func addForeignKeys(db *gorm.DB) error {
	if !database.IsPostgres(db) {
		return nil
	}
	for _, fk := range foreignKeys {
		stmt := fmt.Sprintf(`
			DO $$ BEGIN
				IF NOT EXISTS (SELECT 1 FROM pg_constraint WHERE conname = '%[1]s') THEN
					ALTER TABLE %[2]s ADD CONSTRAINT %[1]s
					FOREIGN KEY (%[3]s) REFERENCES %[4]s(id) ON DELETE %[5]s;
				END IF;
			END $$`, fk.name, fk.table, fk.column, fk.ref, fk.onDelete)
		if err := db.Exec(stmt).Error; err != nil {
			return err
		}
	}
	return nil
}

// Seed upserts the control library entries keyed by type.
func Seed(ctx context.Context, db *gorm.DB, entries []models.ControlLibraryEntry) error {
	if len(entries) == 0 {
		return nil
	}
	err := db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "type"}}, UpdateAll: true}).
		Create(&entries).Error
	if err != nil {
		return fmt.Errorf("seed control library: %w", err)
	}
	return nil
}
