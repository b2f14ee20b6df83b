package repository

import (
	"context"
	"time"

	"restobook/internal/domain"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// CartRepository keeps carts in the relational store. It backs the cart
// service when no Redis is configured.
type CartRepository struct {
	db *gorm.DB
}

func NewCartRepository(db *gorm.DB) *CartRepository {
	return &CartRepository{db: db}
}

type cartItemModel struct {
	BookingID string    `gorm:"column:booking_id;primaryKey;type:varchar(36)"`
	ProductID string    `gorm:"column:product_id;primaryKey;type:varchar(64)"`
	UserID    string    `gorm:"column:user_id;type:varchar(64)"`
	Name      string    `gorm:"column:name;type:varchar(255);not null"`
	Price     int64     `gorm:"column:price;not null"`
	Quantity  int       `gorm:"column:quantity;not null"`
	Note      string    `gorm:"column:note;type:text"`
	CreatedAt time.Time `gorm:"column:created_at"`
	UpdatedAt time.Time `gorm:"column:updated_at"`
}

func (cartItemModel) TableName() string { return "cart_items" }

func (r *CartRepository) Get(ctx context.Context, bookingID string) (*domain.Cart, error) {
	var rows []cartItemModel
	err := r.db.WithContext(ctx).
		Where("booking_id = ?", bookingID).
		Order("created_at, product_id").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	cart := &domain.Cart{BookingID: bookingID, Items: make([]domain.CartItem, 0, len(rows))}
	for _, m := range rows {
		if cart.UserID == "" {
			cart.UserID = m.UserID
		}
		cart.Items = append(cart.Items, domain.CartItem{
			ProductID: m.ProductID,
			Name:      m.Name,
			Price:     m.Price,
			Quantity:  m.Quantity,
			Note:      m.Note,
		})
	}
	return cart, nil
}

// SetItem upserts a line with the given quantity. It does not add to an
// existing quantity.
func (r *CartRepository) SetItem(ctx context.Context, bookingID, userID string, item domain.CartItem) error {
	m := cartItemModel{
		BookingID: bookingID,
		ProductID: item.ProductID,
		UserID:    userID,
		Name:      item.Name,
		Price:     item.Price,
		Quantity:  item.Quantity,
		Note:      item.Note,
	}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "booking_id"}, {Name: "product_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"user_id", "name", "price", "quantity", "note", "updated_at"}),
	}).Create(&m).Error
}

func (r *CartRepository) RemoveItem(ctx context.Context, bookingID, productID string) error {
	return r.db.WithContext(ctx).
		Where("booking_id = ? AND product_id = ?", bookingID, productID).
		Delete(&cartItemModel{}).Error
}

func (r *CartRepository) Clear(ctx context.Context, bookingID string) error {
	return r.db.WithContext(ctx).Where("booking_id = ?", bookingID).Delete(&cartItemModel{}).Error
}
