package accesslog

import (
	"context"
	"testing"

	"github.com/equipcare/stockroom-backend/pkg/db/models"
	"github.com/equipcare/stockroom-backend/pkg/enums"
	pkgerrors "github.com/equipcare/stockroom-backend/pkg/errors"
	"github.com/equipcare/stockroom-backend/pkg/ids"
)

type fakeRepo struct {
	entries []models.AccessLog
}

func (f *fakeRepo) Create(_ context.Context, entry *models.AccessLog) error {
	entry.ID = ids.New(ids.PrefixAccessLog)
	f.entries = append(f.entries, *entry)
	return nil
}

func (f *fakeRepo) List(_ context.Context, limit int) ([]models.AccessLog, error) {
	if limit > len(f.entries) {
		limit = len(f.entries)
	}
	return f.entries[:limit], nil
}

func TestRecordAppends(t *testing.T) {
	repo := &fakeRepo{}
	svc, err := NewService(repo)
	if err != nil {
		t.Fatalf("build service: %v", err)
	}

	entry, err := svc.Record(context.Background(), "tech-01", enums.AccessActionOpen)
	if err != nil {
		t.Fatalf("record: %v", err)
	}
	if entry.ID == "" {
		t.Fatal("expected generated id")
	}
	if len(repo.entries) != 1 || repo.entries[0].Action != enums.AccessActionOpen {
		t.Fatalf("unexpected entries: %+v", repo.entries)
	}
}

func TestRecordValidation(t *testing.T) {
	svc, err := NewService(&fakeRepo{})
	if err != nil {
		t.Fatalf("build service: %v", err)
	}

	_, err = svc.Record(context.Background(), "", enums.AccessActionOpen)
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected VALIDATION_ERROR for empty actor, got %v", err)
	}

	_, err = svc.Record(context.Background(), "tech-01", enums.AccessAction("kick"))
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected VALIDATION_ERROR for bad action, got %v", err)
	}
}
