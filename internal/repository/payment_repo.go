package repository

import (
	"context"
	"errors"
	"time"

	"restobook/internal/domain"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type PaymentRepository struct {
	db *gorm.DB
}

func NewPaymentRepository(db *gorm.DB) *PaymentRepository {
	return &PaymentRepository{db: db}
}

func (r *PaymentRepository) Create(ctx context.Context, p *domain.Payment) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	return r.db.WithContext(ctx).Create(p).Error
}

func (r *PaymentRepository) GetByID(ctx context.Context, id string) (*domain.Payment, error) {
	var p domain.Payment
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&p).Error; err != nil {
		return nil, notFound(err)
	}
	return &p, nil
}

func (r *PaymentRepository) ListByBooking(ctx context.Context, bookingID string) ([]domain.Payment, error) {
	var out []domain.Payment
	err := r.db.WithContext(ctx).Where("booking_id = ?", bookingID).Order("created_at DESC").Find(&out).Error
	return out, err
}

func (r *PaymentRepository) ListByUser(ctx context.Context, userID string) ([]domain.Payment, error) {
	var out []domain.Payment
	err := r.db.WithContext(ctx).Where("user_id = ?", userID).Order("created_at DESC").Find(&out).Error
	return out, err
}

// FindSuccessByBooking returns the successful payment of a booking, or nil.
func (r *PaymentRepository) FindSuccessByBooking(ctx context.Context, bookingID string) (*domain.Payment, error) {
	return r.findOne(ctx, "booking_id = ? AND status = ?", bookingID, domain.PaymentRecordSuccess)
}

// FindLatestPending returns the newest PENDING attempt of a booking, or nil.
func (r *PaymentRepository) FindLatestPending(ctx context.Context, bookingID string) (*domain.Payment, error) {
	return r.findOne(ctx, "booking_id = ? AND status = ?", bookingID, domain.PaymentRecordPending)
}

func (r *PaymentRepository) findOne(ctx context.Context, query string, args ...interface{}) (*domain.Payment, error) {
	var p domain.Payment
	err := r.db.WithContext(ctx).Where(query, args...).Order("created_at DESC").First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *PaymentRepository) SetGatewayResult(ctx context.Context, id, transactionID, payURL string) error {
	updates := map[string]interface{}{"pay_url": payURL}
	if transactionID != "" {
		updates["transaction_id"] = transactionID
	}
	return r.db.WithContext(ctx).Model(&domain.Payment{}).Where("id = ?", id).Updates(updates).Error
}

// UpdateStatusIfPending moves a PENDING attempt to status. It reports false
// when the attempt had already left PENDING.
func (r *PaymentRepository) UpdateStatusIfPending(ctx context.Context, id string, status domain.PaymentRecordStatus, reason string) (bool, error) {
	res := r.db.WithContext(ctx).Model(&domain.Payment{}).
		Where("id = ? AND status = ?", id, domain.PaymentRecordPending).
		Updates(map[string]interface{}{
			"status":         status,
			"failure_reason": reason,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// MarkSuccessIdempotent sets SUCCESS under a row lock; changed is false when
// the payment already succeeded.
func (r *PaymentRepository) MarkSuccessIdempotent(ctx context.Context, id string, paidAt time.Time) (bool, error) {
	var changed bool
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var p domain.Payment
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).Where("id = ?", id).First(&p).Error; err != nil {
			return notFound(err)
		}
		if p.Status == domain.PaymentRecordSuccess {
			changed = false
			return nil
		}
		res := tx.Model(&domain.Payment{}).Where("id = ?", id).Updates(map[string]interface{}{
			"status":         domain.PaymentRecordSuccess,
			"failure_reason": "",
			"paid_at":        paidAt,
		})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return errors.New("payment row not updated")
		}
		changed = true
		return nil
	})
	return changed, err
}
