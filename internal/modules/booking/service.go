package booking

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"restobook/internal/clients"
	"restobook/internal/domain"
	"restobook/internal/events"
	"restobook/internal/modules/table"
	"restobook/internal/repository"
)

const DefaultPaymentHold = 15 * time.Minute

type Options struct {
	Location    *time.Location
	PaymentHold time.Duration
	Now         func() time.Time
	Loggerf     func(format string, args ...interface{})
}

type Service struct {
	bookings  BookingRepository
	tables    TableResolver
	cart      CartReader
	publisher events.Publisher
	stream    Broadcaster

	loc     *time.Location
	hold    time.Duration
	now     func() time.Time
	loggerf func(format string, args ...interface{})
}

func NewService(
	bookings BookingRepository,
	tables TableResolver,
	cart CartReader,
	publisher events.Publisher,
	stream Broadcaster,
	opts Options,
) *Service {
	s := &Service{
		bookings:  bookings,
		tables:    tables,
		cart:      cart,
		publisher: publisher,
		stream:    stream,
		loc:       opts.Location,
		hold:      opts.PaymentHold,
		now:       opts.Now,
		loggerf:   opts.Loggerf,
	}
	if s.loc == nil {
		s.loc = time.UTC
	}
	if s.hold <= 0 {
		s.hold = DefaultPaymentHold
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.loggerf == nil {
		s.loggerf = func(string, ...interface{}) {}
	}
	return s
}

// Create validates the request, resolves the tables and persists the booking
// with its table claims in one transaction.
func (s *Service) Create(ctx context.Context, req CreateBookingRequest) (*domain.Booking, error) {
	req.UserID = strings.TrimSpace(req.UserID)
	req.BranchID = strings.TrimSpace(req.BranchID)
	switch {
	case req.UserID == "":
		return nil, fmt.Errorf("%w: userId is required", ErrValidation)
	case req.BranchID == "":
		return nil, fmt.Errorf("%w: branchId is required", ErrValidation)
	case req.NumberOfGuests < 1:
		return nil, fmt.Errorf("%w: numberOfGuests must be at least 1", ErrValidation)
	case req.BasePrice < 0:
		return nil, fmt.Errorf("%w: basePrice must not be negative", ErrValidation)
	}
	if _, err := domain.SlotStart(req.Date, req.Time, s.loc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}

	refs, tables, err := s.resolveTables(ctx, req.BranchID, req.Tables)
	if err != nil {
		return nil, err
	}

	basePrice := req.BasePrice
	if len(tables) > 0 {
		basePrice = sumMinPrice(tables)
	}
	branchName := strings.TrimSpace(req.BranchName)
	if branchName == "" && len(tables) > 0 {
		branchName = tables[0].BranchName
	}

	b := &domain.Booking{
		UserID:         req.UserID,
		BranchID:       req.BranchID,
		BranchName:     branchName,
		Date:           req.Date,
		Time:           req.Time,
		NumberOfGuests: req.NumberOfGuests,
		Tables:         refs,
		TableType:      req.TableType,
		BasePrice:      basePrice,
		Items:          []domain.BookingItem{},
		Status:         domain.BookingPendingMenu,
		PaymentStatus:  domain.PaymentPending,
		Note:           req.Note,
	}

	if err := s.bookings.Create(ctx, b); err != nil {
		if errors.Is(err, repository.ErrTableClaimed) {
			return nil, conflictErr(err)
		}
		return nil, err
	}

	s.loggerf("level=info msg=\"booking created\" booking_id=%s user_id=%s branch=%s date=%s time=%s tables=%s",
		b.ID, b.UserID, b.BranchID, b.Date, b.Time, strings.Join(b.TableCodes(), ","))
	s.emit(ctx, events.BookingCreated, b)
	return b, nil
}

func (s *Service) Get(ctx context.Context, id string) (*domain.Booking, error) {
	b, err := s.bookings.GetByID(ctx, id)
	if err != nil {
		return nil, mapRepoErr(err)
	}
	return b, nil
}

func (s *Service) List(ctx context.Context, q ListQuery) ([]domain.Booking, error) {
	f := repository.BookingFilter{
		Status:   domain.BookingStatus(strings.ToUpper(strings.TrimSpace(q.Status))),
		BranchID: q.BranchID,
		Date:     q.Date,
	}
	if q.Upcoming {
		f.FromDate = domain.Today(s.now().In(s.loc))
	}
	list, err := s.bookings.List(ctx, f)
	if err != nil || !q.Upcoming {
		return list, err
	}
	return domain.Upcoming(list, s.now(), s.loc), nil
}

func (s *Service) ListByUser(ctx context.Context, userID string) ([]domain.Booking, error) {
	return s.bookings.List(ctx, repository.BookingFilter{UserID: userID})
}

// Conflicts reports which of codes are already claimed for the slot.
func (s *Service) Conflicts(ctx context.Context, branchID, date, slot string, codes []string, excludeBookingID string) ([]string, error) {
	if _, err := domain.SlotStart(date, slot, s.loc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}
	return s.bookings.HasConflict(ctx, excludeBookingID, branchID, date, slot, codes)
}

// UpdateTables swaps the table set of a live booking. basePrice follows the
// request when given, else the registry minimums of the new tables.
func (s *Service) UpdateTables(ctx context.Context, id string, req UpdateTablesRequest) (*domain.Booking, error) {
	if len(req.Tables) == 0 {
		return nil, fmt.Errorf("%w: tables must not be empty", ErrValidation)
	}
	if req.BasePrice != nil && *req.BasePrice < 0 {
		return nil, fmt.Errorf("%w: basePrice must not be negative", ErrValidation)
	}

	current, err := s.bookings.GetByID(ctx, id)
	if err != nil {
		return nil, mapRepoErr(err)
	}
	if current.IsTerminal() {
		return nil, terminalErr(current)
	}

	refs, tables, err := s.resolveTables(ctx, current.BranchID, req.Tables)
	if err != nil {
		return nil, err
	}
	basePrice := sumMinPrice(tables)
	if req.BasePrice != nil {
		basePrice = *req.BasePrice
	}

	b, err := s.bookings.ReplaceTables(ctx, id, refs, req.TableType, basePrice)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrStateChanged) && b != nil:
			return nil, terminalErr(b)
		case errors.Is(err, repository.ErrTableClaimed):
			return nil, conflictErr(err)
		default:
			return nil, mapRepoErr(err)
		}
	}

	s.loggerf("level=info msg=\"booking tables replaced\" booking_id=%s tables=%s base_price=%d", b.ID, strings.Join(b.TableCodes(), ","), b.BasePrice)
	s.broadcast(b)
	return b, nil
}

// ConfirmMenu snapshots the cart into the booking and starts the payment hold.
// The cart is read exactly once.
func (s *Service) ConfirmMenu(ctx context.Context, id string) (*domain.Booking, error) {
	current, err := s.bookings.GetByID(ctx, id)
	if err != nil {
		return nil, mapRepoErr(err)
	}
	if current.Status != domain.BookingPendingMenu {
		return nil, transitionErr(current, "confirm-menu")
	}

	cart, err := s.cart.GetCart(ctx, id)
	if err != nil {
		if errors.Is(err, clients.ErrUnavailable) {
			return nil, fmt.Errorf("%w: cart: %v", ErrUpstreamUnavailable, err)
		}
		if errors.Is(err, clients.ErrNotFound) {
			return nil, ErrEmptyCart
		}
		return nil, err
	}
	if cart.IsEmpty() {
		return nil, ErrEmptyCart
	}

	items := cart.Snapshot()
	for _, it := range items {
		if it.Quantity <= 0 || it.Price < 0 {
			return nil, fmt.Errorf("%w: invalid cart line %s", ErrValidation, it.ProductID)
		}
	}
	food := domain.FoodTotal(items)
	total := current.BasePrice + food
	expiresAt := s.now().Add(s.hold).UTC()

	b, err := s.bookings.ConfirmMenu(ctx, id, items, food, total, expiresAt)
	if err != nil {
		if errors.Is(err, repository.ErrStateChanged) && b != nil {
			return nil, transitionErr(b, "confirm-menu")
		}
		return nil, mapRepoErr(err)
	}

	s.loggerf("level=info msg=\"menu confirmed\" booking_id=%s food=%d total=%d expires_at=%s", b.ID, food, total, expiresAt.Format(time.RFC3339))
	s.broadcast(b)
	return b, nil
}

// MarkPaid settles a booking awaiting payment with the given attempt. A
// booking that is already PAID is reported with alreadyPaid=true and no
// error; b.PaidPaymentID tells the caller which attempt won. Payment is
// accepted as long as the booking still awaits it, even a moment past the
// deadline: whichever of payment and expiry commits first wins. A positive
// amount must match the current total, which table changes may have moved.
func (s *Service) MarkPaid(ctx context.Context, id, paymentID string, amount int64) (*domain.Booking, bool, error) {
	if amount < 0 {
		return nil, false, fmt.Errorf("%w: amount must not be negative", ErrValidation)
	}
	b, changed, err := s.bookings.MarkPaid(ctx, id, strings.TrimSpace(paymentID), amount)
	if err != nil {
		if errors.Is(err, repository.ErrStateChanged) && b != nil {
			if b.Status == domain.BookingPendingPayment && amount > 0 && b.TotalPrice != amount {
				s.loggerf("level=warn msg=\"mark-paid amount mismatch\" booking_id=%s payment_id=%s amount=%d total=%d", b.ID, paymentID, amount, b.TotalPrice)
				return nil, false, fmt.Errorf("%w: paid %d, booking total is %d", ErrAmountMismatch, amount, b.TotalPrice)
			}
			return nil, false, transitionErr(b, "mark-paid")
		}
		return nil, false, mapRepoErr(err)
	}
	if !changed {
		return b, true, nil
	}

	s.loggerf("level=info msg=\"booking paid\" booking_id=%s payment_id=%s total=%d", b.ID, b.PaidPaymentID, b.TotalPrice)
	s.emit(ctx, events.BookingPaid, b)
	return b, false, nil
}

func (s *Service) RequestCancel(ctx context.Context, id string) (*domain.Booking, error) {
	b, err := s.bookings.RequestCancel(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrStateChanged) && b != nil {
			return nil, terminalErr(b)
		}
		return nil, mapRepoErr(err)
	}
	s.loggerf("level=info msg=\"cancel requested\" booking_id=%s", b.ID)
	s.broadcast(b)
	return b, nil
}

// Cancel is the staff cancellation. Cancelling twice is harmless.
func (s *Service) Cancel(ctx context.Context, id string) (*domain.Booking, error) {
	b, changed, err := s.bookings.Cancel(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrStateChanged) && b != nil {
			return nil, terminalErr(b)
		}
		return nil, mapRepoErr(err)
	}
	if changed {
		s.loggerf("level=info msg=\"booking cancelled\" booking_id=%s", b.ID)
		s.emit(ctx, events.BookingCancelled, b)
	}
	return b, nil
}

func (s *Service) Delete(ctx context.Context, id string) (*domain.Booking, error) {
	b, err := s.bookings.Delete(ctx, id)
	if err != nil {
		return nil, mapRepoErr(err)
	}
	s.loggerf("level=info msg=\"booking deleted\" booking_id=%s status=%s", b.ID, b.Status)
	return b, nil
}

func (s *Service) resolveTables(ctx context.Context, branchID string, sel []TableSelection) ([]domain.BookingTable, []domain.Table, error) {
	if len(sel) == 0 {
		return []domain.BookingTable{}, nil, nil
	}
	codes := make([]string, 0, len(sel))
	for _, t := range sel {
		codes = append(codes, t.Code)
	}
	tables, err := s.tables.Resolve(ctx, branchID, codes)
	if err != nil {
		if errors.Is(err, table.ErrValidation) {
			return nil, nil, fmt.Errorf("%w: %v", ErrValidation, err)
		}
		return nil, nil, err
	}
	refs := make([]domain.BookingTable, 0, len(tables))
	for i, t := range tables {
		if sel[i].FloorID != 0 && sel[i].FloorID != t.FloorID {
			return nil, nil, fmt.Errorf("%w: table %s is on floor %d", ErrValidation, t.Code, t.FloorID)
		}
		refs = append(refs, t.Ref())
	}
	return refs, tables, nil
}

func (s *Service) emit(ctx context.Context, key string, b *domain.Booking) {
	s.broadcast(b)
	if s.publisher == nil {
		return
	}
	ev := events.BookingEvent{
		BookingID:  b.ID,
		UserID:     b.UserID,
		TotalPrice: b.AmountDue(),
		Date:       b.Date,
		Time:       b.Time,
		BranchName: b.BranchName,
		Status:     string(b.Status),
		OccurredAt: s.now().UTC(),
	}
	if err := s.publisher.Publish(ctx, key, ev); err != nil {
		s.loggerf("level=warn msg=\"publish failed\" key=%s booking_id=%s err=%v", key, b.ID, err)
	}
}

func (s *Service) broadcast(b *domain.Booking) {
	if s.stream != nil {
		s.stream.Broadcast(b)
	}
}

func sumMinPrice(tables []domain.Table) int64 {
	var total int64
	for _, t := range tables {
		total += t.MinPrice
	}
	return total
}

func conflictErr(err error) error {
	codes := strings.TrimPrefix(err.Error(), repository.ErrTableClaimed.Error())
	codes = strings.TrimPrefix(codes, ": ")
	if codes == "" {
		return ErrTableConflict
	}
	return fmt.Errorf("%w: %s", ErrTableConflict, codes)
}

// terminalErr explains why a PAID or CANCELLED booking refused a change.
func terminalErr(b *domain.Booking) error {
	switch b.Status {
	case domain.BookingCancelled:
		return ErrBookingCancelled
	case domain.BookingPaid:
		return ErrBookingPaid
	default:
		return fmt.Errorf("%w: booking is %s", ErrInvalidTransition, b.Status)
	}
}

func transitionErr(b *domain.Booking, event string) error {
	if b.IsTerminal() {
		return terminalErr(b)
	}
	return fmt.Errorf("%w: %s not allowed from %s", ErrInvalidTransition, event, b.Status)
}

func mapRepoErr(err error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return ErrNotFound
	}
	return err
}
