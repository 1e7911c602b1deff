package services

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"go.uber.org/zap"

	appErr "github.com/formr/engine/pkg/errors"
	"github.com/formr/engine/pkg/logger"
)

// InstanceService covers filled-in form submissions. None of the operations
// are built yet; each reports not_implemented so callers can tell them apart
// from missing data.
type InstanceService interface {
	CreateInstance(ctx context.Context, tenantID, templateID uuid.UUID, data json.RawMessage) (json.RawMessage, error)
	GetInstance(ctx context.Context, tenantID, id uuid.UUID) (json.RawMessage, error)
	ListInstances(ctx context.Context, tenantID, templateID uuid.UUID) ([]json.RawMessage, error)
	UpdateInstance(ctx context.Context, tenantID, id uuid.UUID, data json.RawMessage) (json.RawMessage, error)
}

type instanceService struct{}

func NewInstanceService() InstanceService { return instanceService{} }

var _ InstanceService = instanceService{}

func notBuilt(op string, fields ...zap.Field) error {
	logger.L().Info(op+" requested", fields...)
	return appErr.NotImplemented(op)
}

func (instanceService) CreateInstance(ctx context.Context, tenantID, templateID uuid.UUID, data json.RawMessage) (json.RawMessage, error) {
	return nil, notBuilt("create instance", zap.String("tenant_id", tenantID.String()), zap.String("template_id", templateID.String()))
}

func (instanceService) GetInstance(ctx context.Context, tenantID, id uuid.UUID) (json.RawMessage, error) {
	return nil, notBuilt("get instance", zap.String("tenant_id", tenantID.String()), zap.String("instance_id", id.String()))
}

func (instanceService) ListInstances(ctx context.Context, tenantID, templateID uuid.UUID) ([]json.RawMessage, error) {
	return nil, notBuilt("list instances", zap.String("tenant_id", tenantID.String()), zap.String("template_id", templateID.String()))
}

func (instanceService) UpdateInstance(ctx context.Context, tenantID, id uuid.UUID, data json.RawMessage) (json.RawMessage, error) {
	return nil, notBuilt("update instance", zap.String("tenant_id", tenantID.String()), zap.String("instance_id", id.String()))
}
