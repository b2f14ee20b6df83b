package repository

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"time"

	"restobook/internal/domain"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type BookingRepository struct {
	db *gorm.DB
}

func NewBookingRepository(db *gorm.DB) *BookingRepository {
	return &BookingRepository{db: db}
}

type bookingModel struct {
	ID               string     `gorm:"column:id;primaryKey;type:varchar(36)"`
	UserID           string     `gorm:"column:user_id;type:varchar(64);not null;index"`
	BranchID         string     `gorm:"column:branch_id;type:varchar(64);not null;index:idx_bookings_slot"`
	BranchName       string     `gorm:"column:branch_name;type:varchar(255)"`
	Date             string     `gorm:"column:booking_date;type:varchar(10);not null;index:idx_bookings_slot"`
	Time             string     `gorm:"column:booking_time;type:varchar(5);not null;index:idx_bookings_slot"`
	NumberOfGuests   int        `gorm:"column:number_of_guests;not null"`
	Tables           string     `gorm:"column:tables;type:text"`
	TableType        string     `gorm:"column:table_type;type:varchar(64)"`
	BasePrice        int64      `gorm:"column:base_price;not null;default:0"`
	Items            string     `gorm:"column:items;type:text"`
	TotalFoodPrice   int64      `gorm:"column:total_food_price;not null;default:0"`
	TotalPrice       int64      `gorm:"column:total_price;not null;default:0"`
	Status           string     `gorm:"column:status;type:varchar(20);not null;index"`
	PaymentStatus    string     `gorm:"column:payment_status;type:varchar(20);not null"`
	PaymentExpiresAt *time.Time `gorm:"column:payment_expires_at;index"`
	CancelRequested  bool       `gorm:"column:cancel_requested;not null;default:false"`
	PaidPaymentID    string     `gorm:"column:paid_payment_id;type:varchar(36)"`
	Note             string     `gorm:"column:note;type:text"`
	CreatedAt        time.Time  `gorm:"column:created_at"`
	UpdatedAt        time.Time  `gorm:"column:updated_at"`
}

func (bookingModel) TableName() string { return "bookings" }

// tableClaimModel is one claimed table of a live booking. The unique index is
// what makes two bookings for the same table and slot impossible.
type tableClaimModel struct {
	ID        int64     `gorm:"column:id;primaryKey;autoIncrement"`
	BookingID string    `gorm:"column:booking_id;type:varchar(36);not null;index"`
	BranchID  string    `gorm:"column:branch_id;type:varchar(64);not null;uniqueIndex:idx_claims_slot_table"`
	Date      string    `gorm:"column:slot_date;type:varchar(10);not null;uniqueIndex:idx_claims_slot_table"`
	Time      string    `gorm:"column:slot_time;type:varchar(5);not null;uniqueIndex:idx_claims_slot_table"`
	TableCode string    `gorm:"column:table_code;type:varchar(16);not null;uniqueIndex:idx_claims_slot_table"`
	FloorID   int       `gorm:"column:floor_id"`
	CreatedAt time.Time `gorm:"column:created_at"`
}

func (tableClaimModel) TableName() string { return "booking_table_claims" }

func toDomainBooking(m bookingModel) *domain.Booking {
	b := &domain.Booking{
		ID:               m.ID,
		UserID:           m.UserID,
		BranchID:         m.BranchID,
		BranchName:       m.BranchName,
		Date:             m.Date,
		Time:             m.Time,
		NumberOfGuests:   m.NumberOfGuests,
		TableType:        m.TableType,
		BasePrice:        m.BasePrice,
		TotalFoodPrice:   m.TotalFoodPrice,
		TotalPrice:       m.TotalPrice,
		Status:           domain.BookingStatus(m.Status),
		PaymentStatus:    domain.PaymentStatus(m.PaymentStatus),
		PaymentExpiresAt: m.PaymentExpiresAt,
		CancelRequested:  m.CancelRequested,
		PaidPaymentID:    m.PaidPaymentID,
		Note:             m.Note,
		CreatedAt:        m.CreatedAt,
		UpdatedAt:        m.UpdatedAt,
	}
	b.Tables = []domain.BookingTable{}
	if m.Tables != "" {
		_ = json.Unmarshal([]byte(m.Tables), &b.Tables)
	}
	b.Items = []domain.BookingItem{}
	if m.Items != "" {
		_ = json.Unmarshal([]byte(m.Items), &b.Items)
	}
	return b
}

func toBookingModel(b *domain.Booking) bookingModel {
	return bookingModel{
		ID:               b.ID,
		UserID:           b.UserID,
		BranchID:         b.BranchID,
		BranchName:       b.BranchName,
		Date:             b.Date,
		Time:             b.Time,
		NumberOfGuests:   b.NumberOfGuests,
		Tables:           mustJSON(b.Tables),
		TableType:        b.TableType,
		BasePrice:        b.BasePrice,
		Items:            mustJSON(b.Items),
		TotalFoodPrice:   b.TotalFoodPrice,
		TotalPrice:       b.TotalPrice,
		Status:           string(b.Status),
		PaymentStatus:    string(b.PaymentStatus),
		PaymentExpiresAt: b.PaymentExpiresAt,
		CancelRequested:  b.CancelRequested,
		PaidPaymentID:    b.PaidPaymentID,
		Note:             b.Note,
		CreatedAt:        b.CreatedAt,
		UpdatedAt:        b.UpdatedAt,
	}
}

func mustJSON(v interface{}) string {
	raw, err := json.Marshal(v)
	if err != nil || string(raw) == "null" {
		return "[]"
	}
	return string(raw)
}

func activeStatuses() []string {
	out := make([]string, 0, len(domain.ActiveBookingStatuses))
	for _, s := range domain.ActiveBookingStatuses {
		out = append(out, string(s))
	}
	return out
}

// Create persists a booking together with its table claims in one transaction.
func (r *BookingRepository) Create(ctx context.Context, b *domain.Booking) error {
	if b.ID == "" {
		b.ID = uuid.NewString()
	}
	m := toBookingModel(b)
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		taken, err := conflictingCodes(tx, "", b.BranchID, b.Date, b.Time, b.TableCodes())
		if err != nil {
			return err
		}
		if len(taken) > 0 {
			return claimedError(taken)
		}
		if err := tx.Create(&m).Error; err != nil {
			return err
		}
		return insertClaims(tx, m.ID, b.BranchID, b.Date, b.Time, b.Tables)
	})
	if err != nil {
		if isUniqueConstraintError(err) {
			return claimedError(b.TableCodes())
		}
		return err
	}
	*b = *toDomainBooking(m)
	return nil
}

func (r *BookingRepository) GetByID(ctx context.Context, id string) (*domain.Booking, error) {
	return getBooking(r.db.WithContext(ctx), id)
}

func getBooking(tx *gorm.DB, id string) (*domain.Booking, error) {
	var m bookingModel
	if err := tx.Where("id = ?", id).First(&m).Error; err != nil {
		return nil, notFound(err)
	}
	return toDomainBooking(m), nil
}

type BookingFilter struct {
	Status   domain.BookingStatus
	BranchID string
	Date     string
	FromDate string
	UserID   string
}

func (r *BookingRepository) List(ctx context.Context, f BookingFilter) ([]domain.Booking, error) {
	q := r.db.WithContext(ctx).Model(&bookingModel{})
	if f.Status != "" {
		q = q.Where("status = ?", string(f.Status))
	}
	if f.BranchID != "" {
		q = q.Where("branch_id = ?", f.BranchID)
	}
	if f.Date != "" {
		q = q.Where("booking_date = ?", f.Date)
	}
	if f.FromDate != "" {
		q = q.Where("booking_date >= ?", f.FromDate)
	}
	if f.UserID != "" {
		q = q.Where("user_id = ?", f.UserID)
	}

	var rows []bookingModel
	if err := q.Order("created_at DESC").Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]domain.Booking, 0, len(rows))
	for _, m := range rows {
		out = append(out, *toDomainBooking(m))
	}
	return out, nil
}

// HasConflict lists the codes among tableCodes already claimed by another
// live booking in the same slot.
func (r *BookingRepository) HasConflict(ctx context.Context, excludeBookingID, branchID, date, slot string, tableCodes []string) ([]string, error) {
	return conflictingCodes(r.db.WithContext(ctx), excludeBookingID, branchID, date, slot, tableCodes)
}

func conflictingCodes(tx *gorm.DB, excludeBookingID, branchID, date, slot string, tableCodes []string) ([]string, error) {
	if len(tableCodes) == 0 {
		return nil, nil
	}
	q := `
SELECT DISTINCT c.table_code
FROM booking_table_claims c
JOIN bookings b ON b.id = c.booking_id
WHERE c.branch_id = ?
  AND c.slot_date = ?
  AND c.slot_time = ?
  AND c.table_code IN ?
  AND b.status <> ?
  AND c.booking_id <> ?
`
	var codes []string
	err := tx.Raw(q, branchID, date, slot, tableCodes, string(domain.BookingCancelled), excludeBookingID).Scan(&codes).Error
	if err != nil {
		return nil, err
	}
	sort.Strings(codes)
	return codes, nil
}

func insertClaims(tx *gorm.DB, bookingID, branchID, date, slot string, tables []domain.BookingTable) error {
	if len(tables) == 0 {
		return nil
	}
	claims := make([]tableClaimModel, 0, len(tables))
	for _, t := range tables {
		claims = append(claims, tableClaimModel{
			BookingID: bookingID,
			BranchID:  branchID,
			Date:      date,
			Time:      slot,
			TableCode: t.Code,
			FloorID:   t.FloorID,
		})
	}
	return tx.Create(&claims).Error
}

func releaseClaims(tx *gorm.DB, bookingID string) error {
	return tx.Where("booking_id = ?", bookingID).Delete(&tableClaimModel{}).Error
}

// ReplaceTables swaps the claimed tables of a live booking. On ErrStateChanged
// the returned booking carries the status that blocked the swap.
func (r *BookingRepository) ReplaceTables(ctx context.Context, id string, tables []domain.BookingTable, tableType *string, basePrice int64) (*domain.Booking, error) {
	var current *domain.Booking
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var m bookingModel
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).Where("id = ?", id).First(&m).Error; err != nil {
			return notFound(err)
		}
		current = toDomainBooking(m)
		if current.IsTerminal() {
			return ErrStateChanged
		}

		codes := domain.TableCodes(tables)
		taken, err := conflictingCodes(tx, id, m.BranchID, m.Date, m.Time, codes)
		if err != nil {
			return err
		}
		if len(taken) > 0 {
			return claimedError(taken)
		}
		if err := releaseClaims(tx, id); err != nil {
			return err
		}
		if err := insertClaims(tx, id, m.BranchID, m.Date, m.Time, tables); err != nil {
			if isUniqueConstraintError(err) {
				return claimedError(codes)
			}
			return err
		}

		updates := map[string]interface{}{
			"tables":     mustJSON(tables),
			"base_price": basePrice,
			"updated_at": time.Now().UTC(),
		}
		if tableType != nil {
			updates["table_type"] = *tableType
		}
		if current.Status == domain.BookingPendingPayment {
			updates["total_price"] = basePrice + m.TotalFoodPrice
		}
		res := tx.Model(&bookingModel{}).
			Where("id = ? AND status IN ?", id, activeStatuses()).
			Updates(updates)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrStateChanged
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrStateChanged) {
			return current, err
		}
		if isUniqueConstraintError(err) {
			return nil, claimedError(domain.TableCodes(tables))
		}
		return nil, err
	}
	return r.GetByID(ctx, id)
}

// ConfirmMenu moves a PENDING_MENU booking to PENDING_PAYMENT. Only one caller
// can win the transition, so the payment deadline is written exactly once.
func (r *BookingRepository) ConfirmMenu(ctx context.Context, id string, items []domain.BookingItem, totalFood, total int64, expiresAt time.Time) (*domain.Booking, error) {
	res := r.db.WithContext(ctx).Model(&bookingModel{}).
		Where("id = ? AND status = ?", id, string(domain.BookingPendingMenu)).
		Updates(map[string]interface{}{
			"items":              mustJSON(items),
			"total_food_price":   totalFood,
			"total_price":        total,
			"status":             string(domain.BookingPendingPayment),
			"payment_status":     string(domain.PaymentPending),
			"payment_expires_at": expiresAt,
			"updated_at":         time.Now().UTC(),
		})
	return r.afterTransition(ctx, id, res)
}

// MarkPaid moves PENDING_PAYMENT to PAID and records paymentID as the
// settling attempt. A positive amount must equal total_price. changed is
// false when the booking was already PAID; a status or amount that does not
// match yields ErrStateChanged with the current booking.
func (r *BookingRepository) MarkPaid(ctx context.Context, id, paymentID string, amount int64) (*domain.Booking, bool, error) {
	q := r.db.WithContext(ctx).Model(&bookingModel{}).
		Where("id = ? AND status = ?", id, string(domain.BookingPendingPayment))
	if amount > 0 {
		q = q.Where("total_price = ?", amount)
	}
	res := q.Updates(map[string]interface{}{
		"status":          string(domain.BookingPaid),
		"payment_status":  string(domain.PaymentPaid),
		"paid_payment_id": paymentID,
		"updated_at":      time.Now().UTC(),
	})
	b, err := r.afterTransition(ctx, id, res)
	if errors.Is(err, ErrStateChanged) && b != nil && b.Status == domain.BookingPaid {
		return b, false, nil
	}
	if err != nil {
		return b, false, err
	}
	return b, true, nil
}

func (r *BookingRepository) RequestCancel(ctx context.Context, id string) (*domain.Booking, error) {
	res := r.db.WithContext(ctx).Model(&bookingModel{}).
		Where("id = ? AND status IN ?", id, activeStatuses()).
		Updates(map[string]interface{}{
			"cancel_requested": true,
			"updated_at":       time.Now().UTC(),
		})
	return r.afterTransition(ctx, id, res)
}

// Cancel moves a live booking to CANCELLED and releases its tables. changed is
// false when it was already CANCELLED.
func (r *BookingRepository) Cancel(ctx context.Context, id string) (*domain.Booking, bool, error) {
	var rows int64
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&bookingModel{}).
			Where("id = ? AND status IN ?", id, activeStatuses()).
			Updates(map[string]interface{}{
				"status":           string(domain.BookingCancelled),
				"cancel_requested": false,
				"updated_at":       time.Now().UTC(),
			})
		if res.Error != nil {
			return res.Error
		}
		rows = res.RowsAffected
		if rows == 0 {
			return nil
		}
		return releaseClaims(tx, id)
	})
	if err != nil {
		return nil, false, err
	}
	b, err := r.GetByID(ctx, id)
	if err != nil {
		return nil, false, err
	}
	if rows == 1 {
		return b, true, nil
	}
	if b.Status == domain.BookingCancelled {
		return b, false, nil
	}
	return b, false, ErrStateChanged
}

// Expire cancels a booking whose payment hold ended at or before deadline.
// changed is false when the booking no longer qualifies, e.g. it was paid.
func (r *BookingRepository) Expire(ctx context.Context, id string, deadline time.Time) (*domain.Booking, bool, error) {
	var rows int64
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&bookingModel{}).
			Where("id = ? AND status = ? AND payment_status = ? AND payment_expires_at IS NOT NULL AND payment_expires_at <= ?",
				id, string(domain.BookingPendingPayment), string(domain.PaymentPending), deadline).
			Updates(map[string]interface{}{
				"status":           string(domain.BookingCancelled),
				"payment_status":   string(domain.PaymentExpired),
				"cancel_requested": false,
				"updated_at":       time.Now().UTC(),
			})
		if res.Error != nil {
			return res.Error
		}
		rows = res.RowsAffected
		if rows == 0 {
			return nil
		}
		return releaseClaims(tx, id)
	})
	if err != nil {
		return nil, false, err
	}
	b, err := r.GetByID(ctx, id)
	if err != nil {
		return nil, false, err
	}
	return b, rows == 1, nil
}

// ListExpired returns bookings still waiting for payment whose hold ended at
// or before deadline.
func (r *BookingRepository) ListExpired(ctx context.Context, deadline time.Time) ([]domain.Booking, error) {
	var rows []bookingModel
	err := r.db.WithContext(ctx).
		Where("status = ? AND payment_status = ? AND payment_expires_at IS NOT NULL AND payment_expires_at <= ?",
			string(domain.BookingPendingPayment), string(domain.PaymentPending), deadline).
		Order("payment_expires_at").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make([]domain.Booking, 0, len(rows))
	for _, m := range rows {
		out = append(out, *toDomainBooking(m))
	}
	return out, nil
}

func (r *BookingRepository) Delete(ctx context.Context, id string) (*domain.Booking, error) {
	var deleted *domain.Booking
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		b, err := getBooking(tx, id)
		if err != nil {
			return err
		}
		deleted = b
		if err := releaseClaims(tx, id); err != nil {
			return err
		}
		return tx.Where("id = ?", id).Delete(&bookingModel{}).Error
	})
	if err != nil {
		return nil, err
	}
	return deleted, nil
}

// afterTransition turns a conditional update result into the current booking,
// reporting ErrStateChanged when the guard did not match.
func (r *BookingRepository) afterTransition(ctx context.Context, id string, res *gorm.DB) (*domain.Booking, error) {
	if res.Error != nil {
		return nil, res.Error
	}
	b, err := r.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if res.RowsAffected == 0 {
		return b, ErrStateChanged
	}
	return b, nil
}
