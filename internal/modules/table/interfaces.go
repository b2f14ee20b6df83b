package table

import (
	"context"

	"restobook/internal/domain"
	"restobook/internal/repository"
)

type TableRepository interface {
	Create(ctx context.Context, t *domain.Table) error
	CreateMissing(ctx context.Context, tables []domain.Table) (int64, error)
	Update(ctx context.Context, t *domain.Table) error
	GetByID(ctx context.Context, id string) (*domain.Table, error)
	List(ctx context.Context, f repository.TableFilter) ([]domain.Table, error)
	FindActiveByCodes(ctx context.Context, branchID string, codes []string) ([]domain.Table, error)
	Deactivate(ctx context.Context, id string) (*domain.Table, error)
	CountActive(ctx context.Context) (int64, error)
}
