package table

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"restobook/internal/domain"
	"restobook/internal/pkg/validator"
	"restobook/internal/repository"
)

type Service struct {
	tables TableRepository
}

func NewService(tables TableRepository) *Service {
	return &Service{tables: tables}
}

func (s *Service) List(ctx context.Context, q ListQuery) ([]domain.Table, error) {
	return s.tables.List(ctx, repository.TableFilter{
		BranchID:        q.BranchID,
		FloorID:         q.FloorID,
		IncludeInactive: q.IncludeInactive,
	})
}

func (s *Service) Get(ctx context.Context, id string) (*domain.Table, error) {
	t, err := s.tables.GetByID(ctx, id)
	if err != nil {
		return nil, mapRepoErr(err)
	}
	return t, nil
}

func (s *Service) Create(ctx context.Context, req CreateTableRequest) (*domain.Table, error) {
	t := &domain.Table{
		BranchID:   strings.TrimSpace(req.BranchID),
		BranchName: strings.TrimSpace(req.BranchName),
		FloorID:    req.FloorID,
		FloorName:  strings.TrimSpace(req.FloorName),
		Code:       normalizeCode(req.Code),
		Capacity:   req.Capacity,
		MinPrice:   req.MinPrice,
		Type:       domain.TableType(strings.ToLower(strings.TrimSpace(req.Type))),
		Status:     domain.TableActive,
		Note:       req.Note,
	}
	if t.Type == "" {
		t.Type = domain.TableNormal
	}
	if errs := validator.Validate(t); errs != nil {
		return nil, fmt.Errorf("%w: %s", ErrValidation, validator.Summary(errs))
	}
	if err := s.tables.Create(ctx, t); err != nil {
		return nil, mapRepoErr(err)
	}
	return t, nil
}

func (s *Service) Update(ctx context.Context, id string, req UpdateTableRequest) (*domain.Table, error) {
	t, err := s.tables.GetByID(ctx, id)
	if err != nil {
		return nil, mapRepoErr(err)
	}
	if req.BranchName != nil {
		t.BranchName = strings.TrimSpace(*req.BranchName)
	}
	if req.FloorName != nil {
		t.FloorName = strings.TrimSpace(*req.FloorName)
	}
	if req.Code != nil {
		t.Code = normalizeCode(*req.Code)
	}
	if req.Capacity != nil {
		t.Capacity = *req.Capacity
	}
	if req.MinPrice != nil {
		t.MinPrice = *req.MinPrice
	}
	if req.Type != nil {
		t.Type = domain.TableType(strings.ToLower(strings.TrimSpace(*req.Type)))
	}
	if req.Status != nil {
		t.Status = domain.TableStatus(strings.ToLower(strings.TrimSpace(*req.Status)))
	}
	if req.Note != nil {
		t.Note = *req.Note
	}
	if errs := validator.Validate(t); errs != nil {
		return nil, fmt.Errorf("%w: %s", ErrValidation, validator.Summary(errs))
	}
	if err := s.tables.Update(ctx, t); err != nil {
		return nil, mapRepoErr(err)
	}
	return t, nil
}

// Delete is a soft delete: the table goes inactive and its code becomes
// reusable on that floor.
func (s *Service) Delete(ctx context.Context, id string) (*domain.Table, error) {
	t, err := s.tables.Deactivate(ctx, id)
	if err != nil {
		return nil, mapRepoErr(err)
	}
	return t, nil
}

// Resolve looks up the active tables behind codes in a branch. Every code
// must resolve; the result keeps the order of codes.
func (s *Service) Resolve(ctx context.Context, branchID string, codes []string) ([]domain.Table, error) {
	if len(codes) == 0 {
		return nil, nil
	}
	seen := make(map[string]bool, len(codes))
	wanted := make([]string, 0, len(codes))
	for _, c := range codes {
		c = normalizeCode(c)
		if c == "" {
			return nil, fmt.Errorf("%w: empty table code", ErrValidation)
		}
		if seen[c] {
			return nil, fmt.Errorf("%w: table %s listed twice", ErrValidation, c)
		}
		seen[c] = true
		wanted = append(wanted, c)
	}

	found, err := s.tables.FindActiveByCodes(ctx, branchID, wanted)
	if err != nil {
		return nil, err
	}
	byCode := make(map[string]domain.Table, len(found))
	for _, t := range found {
		byCode[t.Code] = t
	}

	var missing []string
	out := make([]domain.Table, 0, len(wanted))
	for _, c := range wanted {
		t, ok := byCode[c]
		if !ok {
			missing = append(missing, c)
			continue
		}
		out = append(out, t)
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return nil, fmt.Errorf("%w: unknown or inactive tables in branch %s: %s", ErrValidation, branchID, strings.Join(missing, ", "))
	}
	return out, nil
}

func normalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

func mapRepoErr(err error) error {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return ErrNotFound
	case errors.Is(err, repository.ErrDuplicateTable):
		return ErrDuplicate
	default:
		return err
	}
}
