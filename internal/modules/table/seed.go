package table

import (
	"context"
	"fmt"
	"log"

	"restobook/internal/domain"
)

// seedThreshold: a registry with at least this many active tables is
// considered already seeded.
const seedThreshold = 50

type branchSeed struct {
	ID   string
	Name string
}

var seedBranches = []branchSeed{
	{ID: "branch-q1", Name: "Nhà hàng Ratatouille - Quận 1"},
	{ID: "branch-q7", Name: "Nhà hàng Ratatouille - Quận 7"},
}

type floorSeed struct {
	ID       int
	Name     string
	Prefix   string
	Count    int
	VIPEvery int
}

var seedFloors = []floorSeed{
	{ID: 1, Name: "Tầng 1", Prefix: "B", Count: 36, VIPEvery: 12},
	{ID: 2, Name: "Tầng 2", Prefix: "C", Count: 18, VIPEvery: 9},
}

// DefaultLayout is the reference floor plan of both branches.
func DefaultLayout() []domain.Table {
	var out []domain.Table
	for _, b := range seedBranches {
		for _, f := range seedFloors {
			for i := 1; i <= f.Count; i++ {
				t := domain.Table{
					BranchID:   b.ID,
					BranchName: b.Name,
					FloorID:    f.ID,
					FloorName:  f.Name,
					Code:       fmt.Sprintf("%s%02d", f.Prefix, i),
					Capacity:   seatsFor(i),
					MinPrice:   minPriceFor(i),
					Type:       domain.TableNormal,
					Status:     domain.TableActive,
				}
				if i%f.VIPEvery == 0 {
					t.Type = domain.TableVIP
				}
				out = append(out, t)
			}
		}
	}
	return out
}

func seatsFor(i int) int {
	switch {
	case i%3 == 0:
		return 6
	case i%2 == 0:
		return 4
	default:
		return 2
	}
}

func minPriceFor(i int) int64 {
	switch {
	case i%3 == 0:
		return 800000
	case i%2 == 0:
		return 500000
	default:
		return 300000
	}
}

// Seed inserts the default layout unless the registry is already populated.
// Existing codes are left untouched.
func (s *Service) Seed(ctx context.Context) (int64, error) {
	n, err := s.tables.CountActive(ctx)
	if err != nil {
		return 0, err
	}
	if n >= seedThreshold {
		log.Printf("table seed skipped: active=%d", n)
		return 0, nil
	}
	inserted, err := s.tables.CreateMissing(ctx, DefaultLayout())
	if err != nil {
		return 0, err
	}
	log.Printf("table seed done: inserted=%d", inserted)
	return inserted, nil
}
