package repository

import (
	"context"
	"testing"

	"restobook/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleTable(branch string, floor int, code string) *domain.Table {
	return &domain.Table{
		BranchID: branch,
		FloorID:  floor,
		Code:     code,
		Capacity: 4,
		MinPrice: 300000,
		Type:     domain.TableNormal,
		Status:   domain.TableActive,
	}
}

func TestTableRepository_UniqueAmongActive(t *testing.T) {
	repo := NewTableRepository(setupTestDB(t))
	ctx := context.Background()

	b01 := sampleTable("branch-q1", 1, "B01")
	require.NoError(t, repo.Create(ctx, b01))

	err := repo.Create(ctx, sampleTable("branch-q1", 1, "B01"))
	assert.ErrorIs(t, err, ErrDuplicateTable)

	require.NoError(t, repo.Create(ctx, sampleTable("branch-q7", 1, "B01")), "codes are scoped per branch")

	_, err = repo.Deactivate(ctx, b01.ID)
	require.NoError(t, err)
	require.NoError(t, repo.Create(ctx, sampleTable("branch-q1", 1, "B01")), "inactive rows do not block the code")
}

func TestTableRepository_ListAndFind(t *testing.T) {
	repo := NewTableRepository(setupTestDB(t))
	ctx := context.Background()

	for _, tbl := range []*domain.Table{
		sampleTable("branch-q1", 1, "B01"),
		sampleTable("branch-q1", 1, "B02"),
		sampleTable("branch-q1", 2, "C01"),
		sampleTable("branch-q7", 1, "B01"),
	} {
		require.NoError(t, repo.Create(ctx, tbl))
	}

	floor1, err := repo.List(ctx, TableFilter{BranchID: "branch-q1", FloorID: 1})
	require.NoError(t, err)
	assert.Len(t, floor1, 2)

	found, err := repo.FindActiveByCodes(ctx, "branch-q1", []string{"B02", "C01", "Z99"})
	require.NoError(t, err)
	require.Len(t, found, 2)
	assert.Equal(t, "B02", found[0].Code)
	assert.Equal(t, "C01", found[1].Code)

	_, err = repo.Deactivate(ctx, found[0].ID)
	require.NoError(t, err)
	active, err := repo.List(ctx, TableFilter{BranchID: "branch-q1"})
	require.NoError(t, err)
	assert.Len(t, active, 2)
	all, err := repo.List(ctx, TableFilter{BranchID: "branch-q1", IncludeInactive: true})
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestTableRepository_UpdateAndSeed(t *testing.T) {
	repo := NewTableRepository(setupTestDB(t))
	ctx := context.Background()

	tbl := sampleTable("branch-q1", 1, "B01")
	require.NoError(t, repo.Create(ctx, tbl))

	tbl.MinPrice = 500000
	tbl.Type = domain.TableVIP
	require.NoError(t, repo.Update(ctx, tbl))
	assert.Equal(t, int64(500000), tbl.MinPrice)
	assert.Equal(t, domain.TableVIP, tbl.Type)

	missing := &domain.Table{ID: "nope", BranchID: "x", FloorID: 1, Code: "X", Capacity: 1, Type: domain.TableNormal, Status: domain.TableActive}
	assert.ErrorIs(t, repo.Update(ctx, missing), ErrNotFound)

	inserted, err := repo.CreateMissing(ctx, []domain.Table{*sampleTable("branch-q1", 1, "B01"), *sampleTable("branch-q1", 1, "B02")})
	require.NoError(t, err)
	assert.Equal(t, int64(1), inserted)

	n, err := repo.CountActive(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
}
