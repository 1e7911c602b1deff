package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/formr/engine/internal/models"
	"github.com/formr/engine/pkg/database"
	appErr "github.com/formr/engine/pkg/errors"
	"github.com/formr/engine/pkg/metrics"
)

// TemplateRepository persists template aggregates. Every read and write is
// scoped to a tenant and ignores soft-deleted templates.
type TemplateRepository interface {
	Create(ctx context.Context, t *models.FormTemplate) (*models.FormTemplate, error)
	FetchByID(ctx context.Context, tenantID, id uuid.UUID) (*models.FormTemplate, error)
	FetchAllForTenant(ctx context.Context, tenantID uuid.UUID) ([]models.FormTemplate, error)
	// Update reconciles the stored aggregate with t. A non-empty
	// expectedRevision must match the stored template's Revision.
	Update(ctx context.Context, t *models.FormTemplate, expectedRevision string) (*models.FormTemplate, error)
	SoftDelete(ctx context.Context, tenantID, id uuid.UUID) error
}

type templateRepository struct {
	db    *gorm.DB
	now   func() time.Time
	newID func() uuid.UUID
}

type TemplateRepositoryOption func(*templateRepository)

// WithClock overrides the clock used for created and modified dates.
func WithClock(now func() time.Time) TemplateRepositoryOption {
	return func(r *templateRepository) { r.now = now }
}

func NewTemplateRepository(db *gorm.DB, opts ...TemplateRepositoryOption) TemplateRepository {
	r := &templateRepository{db: db, now: time.Now, newID: uuid.New}
	for _, o := range opts {
		o(r)
	}
	return r
}

var _ TemplateRepository = (*templateRepository)(nil)

func (r *templateRepository) timestamp() time.Time {
	return r.now().UTC().Truncate(time.Microsecond)
}

func orderedControls(db *gorm.DB) *gorm.DB {
	return db.Order("sort_order ASC").Order("id ASC")
}

func (r *templateRepository) Create(ctx context.Context, t *models.FormTemplate) (*models.FormTemplate, error) {
	now := r.timestamp()
	rec := *t
	rec.ID = r.newID()
	rec.CreatedDate = now
	rec.ModifiedDate = now
	rec.IsDeleted = false
	rec.BaseTemplate = nil
	rec.Controls = nil
	controls := remapControlIDs(t.Controls, rec.ID, r.newID)

	tx := r.db.WithContext(ctx).Begin()
	if tx.Error != nil {
		return nil, appErr.Wrap(tx.Error, appErr.CodeInternal, "begin transaction failed")
	}

	if err := tx.Omit(clause.Associations).Create(&rec).Error; err != nil {
		tx.Rollback()
		return nil, writeFailure(err, "create template failed")
	}
	if len(controls) > 0 {
		if err := tx.Omit(clause.Associations).Create(&controls).Error; err != nil {
			tx.Rollback()
			return nil, writeFailure(err, "create controls failed")
		}
	}

	if err := tx.Commit().Error; err != nil {
		return nil, writeFailure(err, "commit transaction failed")
	}
	metrics.ControlsReconciled.WithLabelValues("insert").Add(float64(len(controls)))

	return r.FetchByID(ctx, rec.TenantID, rec.ID)
}

func (r *templateRepository) FetchByID(ctx context.Context, tenantID, id uuid.UUID) (*models.FormTemplate, error) {
	var t models.FormTemplate
	err := r.db.WithContext(ctx).
		Preload("Controls", orderedControls).
		Preload("BaseTemplate", "tenant_id = ? AND is_deleted = ?", tenantID, false).
		Where("id = ? AND tenant_id = ? AND is_deleted = ?", id, tenantID, false).
		First(&t).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, appErr.New(appErr.CodeNotFound, "template not found").WithMeta("template_id", id.String())
		}
		return nil, appErr.Wrap(err, appErr.CodeInternal, "get template failed")
	}
	return &t, nil
}

func (r *templateRepository) FetchAllForTenant(ctx context.Context, tenantID uuid.UUID) ([]models.FormTemplate, error) {
	var out []models.FormTemplate
	err := r.db.WithContext(ctx).
		Preload("Controls", orderedControls).
		Where("tenant_id = ? AND is_deleted = ?", tenantID, false).
		Order("modified_date DESC").
		Find(&out).Error
	if err != nil {
		return nil, appErr.Wrap(err, appErr.CodeInternal, "list templates failed")
	}
	return out, nil
}

// Update loads the stored aggregate, overwrites its scalar fields and
// reconciles its controls against t.Controls in one transaction.
func (r *templateRepository) Update(ctx context.Context, t *models.FormTemplate, expectedRevision string) (*models.FormTemplate, error) {
	tx := r.db.WithContext(ctx).Begin()
	if tx.Error != nil {
		return nil, appErr.Wrap(tx.Error, appErr.CodeInternal, "begin transaction failed")
	}

	q := tx.Preload("Controls").Where("id = ? AND tenant_id = ? AND is_deleted = ?", t.ID, t.TenantID, false)
	if database.IsPostgres(tx) {
		q = q.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	var existing models.FormTemplate
	if err := q.First(&existing).Error; err != nil {
		tx.Rollback()
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, appErr.New(appErr.CodeNotFound, "template not found").WithMeta("template_id", t.ID.String())
		}
		return nil, appErr.Wrap(err, appErr.CodeInternal, "load template failed")
	}
	if expectedRevision != "" && existing.Revision() != expectedRevision {
		tx.Rollback()
		return nil, appErr.New(appErr.CodePreconditionFailed, "template was modified by another request").
			WithMeta("template_id", t.ID.String())
	}

	res := tx.Model(&models.FormTemplate{}).Where("id = ?", existing.ID).Updates(map[string]any{
		"name":          t.Name,
		"description":   t.Description,
		"version":       t.Version,
		"modified_date": r.timestamp(),
	})
	if res.Error != nil {
		tx.Rollback()
		return nil, writeFailure(res.Error, "update template failed")
	}

	plan := planControls(existing.ID, existing.Controls, t.Controls, r.newID)
	if len(plan.inserts) > 0 {
		if err := tx.Omit(clause.Associations).Create(&plan.inserts).Error; err != nil {
			tx.Rollback()
			return nil, writeFailure(err, "insert controls failed")
		}
	}
	for i := range plan.updates {
		if err := tx.Omit(clause.Associations).Save(&plan.updates[i]).Error; err != nil {
			tx.Rollback()
			return nil, writeFailure(err, "update control failed")
		}
	}
	for _, c := range plan.deletes {
		if err := tx.Where("id = ? AND template_id = ?", c.ID, existing.ID).Delete(&models.FormControl{}).Error; err != nil {
			tx.Rollback()
			return nil, appErr.Wrap(err, appErr.CodeInternal, "delete control failed")
		}
	}

	if err := tx.Commit().Error; err != nil {
		return nil, writeFailure(err, "commit transaction failed")
	}
	metrics.ControlsReconciled.WithLabelValues("insert").Add(float64(len(plan.inserts)))
	metrics.ControlsReconciled.WithLabelValues("update").Add(float64(len(plan.updates)))
	metrics.ControlsReconciled.WithLabelValues("delete").Add(float64(len(plan.deletes)))

	return r.FetchByID(ctx, existing.TenantID, existing.ID)
}

func (r *templateRepository) SoftDelete(ctx context.Context, tenantID, id uuid.UUID) error {
	res := r.db.WithContext(ctx).
		Model(&models.FormTemplate{}).
		Where("id = ? AND tenant_id = ? AND is_deleted = ?", id, tenantID, false).
		Updates(map[string]any{"is_deleted": true, "modified_date": r.timestamp()})
	if res.Error != nil {
		return appErr.Wrap(res.Error, appErr.CodeInternal, "delete template failed")
	}
	if res.RowsAffected == 0 {
		return appErr.New(appErr.CodeNotFound, "template not found").WithMeta("template_id", id.String())
	}
	return nil
}

func writeFailure(err error, msg string) error {
	if database.IsUniqueViolation(err) {
		return appErr.Wrap(err, appErr.CodeConflict, "a template with this name and version already exists")
	}
	return appErr.Wrap(err, appErr.CodeInternal, msg)
}
