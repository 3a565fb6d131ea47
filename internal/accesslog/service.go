package accesslog

import (
	"context"
	"fmt"

	"github.com/equipcare/stockroom-backend/pkg/db/models"
	"github.com/equipcare/stockroom-backend/pkg/enums"
	pkgerrors "github.com/equipcare/stockroom-backend/pkg/errors"
)

type Service interface {
	Record(ctx context.Context, actorID string, action enums.AccessAction) (*models.AccessLog, error)
	List(ctx context.Context, limit int) ([]models.AccessLog, error)
}

type service struct {
	repo Repository
}

func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("access log repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) Record(ctx context.Context, actorID string, action enums.AccessAction) (*models.AccessLog, error) {
	if actorID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "actor id is required")
	}
	if !action.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unknown door action: "+string(action))
	}

	entry := &models.AccessLog{ActorID: actorID, Action: action}
	if err := s.repo.Create(ctx, entry); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record door event")
	}
	return entry, nil
}

func (s *service) List(ctx context.Context, limit int) ([]models.AccessLog, error) {
	entries, err := s.repo.List(ctx, limit)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list door events")
	}
	return entries, nil
}
