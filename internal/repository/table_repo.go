package repository

import (
	"context"
	"time"

	"restobook/internal/domain"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type TableRepository struct {
	db *gorm.DB
}

func NewTableRepository(db *gorm.DB) *TableRepository {
	return &TableRepository{db: db}
}

// tableModel keeps (branch, floor, code) unique only among active rows so a
// soft-deleted table does not block re-creating its code.
type tableModel struct {
	ID         string    `gorm:"column:id;primaryKey;type:varchar(36)"`
	BranchID   string    `gorm:"column:branch_id;type:varchar(64);not null;uniqueIndex:idx_tables_active_code,where:status = 'active'"`
	BranchName string    `gorm:"column:branch_name;type:varchar(255)"`
	FloorID    int       `gorm:"column:floor_id;not null;uniqueIndex:idx_tables_active_code"`
	FloorName  string    `gorm:"column:floor_name;type:varchar(255)"`
	Code       string    `gorm:"column:code;type:varchar(16);not null;uniqueIndex:idx_tables_active_code"`
	Capacity   int       `gorm:"column:capacity;not null"`
	MinPrice   int64     `gorm:"column:min_price;not null;default:0"`
	Type       string    `gorm:"column:type;type:varchar(16);not null;default:'normal'"`
	Status     string    `gorm:"column:status;type:varchar(16);not null;default:'active';index"`
	Note       string    `gorm:"column:note;type:text"`
	CreatedAt  time.Time `gorm:"column:created_at"`
	UpdatedAt  time.Time `gorm:"column:updated_at"`
}

func (tableModel) TableName() string { return "restaurant_tables" }

func toDomainTable(m tableModel) *domain.Table {
	return &domain.Table{
		ID:         m.ID,
		BranchID:   m.BranchID,
		BranchName: m.BranchName,
		FloorID:    m.FloorID,
		FloorName:  m.FloorName,
		Code:       m.Code,
		Capacity:   m.Capacity,
		MinPrice:   m.MinPrice,
		Type:       domain.TableType(m.Type),
		Status:     domain.TableStatus(m.Status),
		Note:       m.Note,
		CreatedAt:  m.CreatedAt,
		UpdatedAt:  m.UpdatedAt,
	}
}

func toTableModel(t *domain.Table) tableModel {
	return tableModel{
		ID:         t.ID,
		BranchID:   t.BranchID,
		BranchName: t.BranchName,
		FloorID:    t.FloorID,
		FloorName:  t.FloorName,
		Code:       t.Code,
		Capacity:   t.Capacity,
		MinPrice:   t.MinPrice,
		Type:       string(t.Type),
		Status:     string(t.Status),
		Note:       t.Note,
		CreatedAt:  t.CreatedAt,
		UpdatedAt:  t.UpdatedAt,
	}
}

type TableFilter struct {
	BranchID        string
	FloorID         int
	IncludeInactive bool
}

func (r *TableRepository) Create(ctx context.Context, t *domain.Table) error {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	m := toTableModel(t)
	if err := r.db.WithContext(ctx).Create(&m).Error; err != nil {
		if isUniqueConstraintError(err) {
			return ErrDuplicateTable
		}
		return err
	}
	*t = *toDomainTable(m)
	return nil
}

// CreateMissing inserts the given tables, skipping any that collide with an
// existing active code. It returns how many rows were inserted.
func (r *TableRepository) CreateMissing(ctx context.Context, tables []domain.Table) (int64, error) {
	if len(tables) == 0 {
		return 0, nil
	}
	models := make([]tableModel, 0, len(tables))
	for i := range tables {
		if tables[i].ID == "" {
			tables[i].ID = uuid.NewString()
		}
		models = append(models, toTableModel(&tables[i]))
	}
	res := r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).CreateInBatches(&models, 100)
	return res.RowsAffected, res.Error
}

func (r *TableRepository) Update(ctx context.Context, t *domain.Table) error {
	m := toTableModel(t)
	res := r.db.WithContext(ctx).Model(&tableModel{}).Where("id = ?", t.ID).Updates(map[string]interface{}{
		"branch_id":   m.BranchID,
		"branch_name": m.BranchName,
		"floor_id":    m.FloorID,
		"floor_name":  m.FloorName,
		"code":        m.Code,
		"capacity":    m.Capacity,
		"min_price":   m.MinPrice,
		"type":        m.Type,
		"status":      m.Status,
		"note":        m.Note,
		"updated_at":  time.Now().UTC(),
	})
	if res.Error != nil {
		if isUniqueConstraintError(res.Error) {
			return ErrDuplicateTable
		}
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	updated, err := r.GetByID(ctx, t.ID)
	if err != nil {
		return err
	}
	*t = *updated
	return nil
}

func (r *TableRepository) GetByID(ctx context.Context, id string) (*domain.Table, error) {
	var m tableModel
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&m).Error; err != nil {
		return nil, notFound(err)
	}
	return toDomainTable(m), nil
}

func (r *TableRepository) List(ctx context.Context, f TableFilter) ([]domain.Table, error) {
	q := r.db.WithContext(ctx).Model(&tableModel{})
	if f.BranchID != "" {
		q = q.Where("branch_id = ?", f.BranchID)
	}
	if f.FloorID > 0 {
		q = q.Where("floor_id = ?", f.FloorID)
	}
	if !f.IncludeInactive {
		q = q.Where("status = ?", string(domain.TableActive))
	}

	var rows []tableModel
	if err := q.Order("branch_id, floor_id, code").Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]domain.Table, 0, len(rows))
	for _, m := range rows {
		out = append(out, *toDomainTable(m))
	}
	return out, nil
}

// FindActiveByCodes returns the active tables of a branch whose code is in codes.
func (r *TableRepository) FindActiveByCodes(ctx context.Context, branchID string, codes []string) ([]domain.Table, error) {
	if len(codes) == 0 {
		return []domain.Table{}, nil
	}
	var rows []tableModel
	err := r.db.WithContext(ctx).
		Where("branch_id = ? AND code IN ? AND status = ?", branchID, codes, string(domain.TableActive)).
		Order("floor_id, code").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make([]domain.Table, 0, len(rows))
	for _, m := range rows {
		out = append(out, *toDomainTable(m))
	}
	return out, nil
}

// Deactivate soft-deletes a table; historical bookings keep referencing its code.
func (r *TableRepository) Deactivate(ctx context.Context, id string) (*domain.Table, error) {
	res := r.db.WithContext(ctx).Model(&tableModel{}).Where("id = ?", id).Updates(map[string]interface{}{
		"status":     string(domain.TableInactive),
		"updated_at": time.Now().UTC(),
	})
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, ErrNotFound
	}
	return r.GetByID(ctx, id)
}

func (r *TableRepository) CountActive(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&tableModel{}).Where("status = ?", string(domain.TableActive)).Count(&n).Error
	return n, err
}
