package payment

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"restobook/internal/clients"
	"restobook/internal/domain"
	"restobook/internal/pkg/response"
	"restobook/internal/repository"

	"github.com/google/uuid"
)

const (
	reasonBookingExpired = "booking expired before payment completed"
	reasonAmountMismatch = "booking total changed after the payment was created"
)

type Options struct {
	Gateways []Gateway
	// IPN verifies MoMo notifications; nil accepts them unsigned.
	IPN     IPNVerifier
	Now     func() time.Time
	Loggerf func(format string, args ...interface{})
}

type Service struct {
	payments PaymentRepository
	bookings BookingClient
	gateways map[domain.PaymentMethod]Gateway
	ipn      IPNVerifier
	now      func() time.Time
	loggerf  func(format string, args ...interface{})
}

func NewService(payments PaymentRepository, bookings BookingClient, opts Options) *Service {
	s := &Service{
		payments: payments,
		bookings: bookings,
		gateways: make(map[domain.PaymentMethod]Gateway),
		ipn:      opts.IPN,
		now:      opts.Now,
		loggerf:  opts.Loggerf,
	}
	for _, g := range opts.Gateways {
		s.gateways[g.Method()] = g
	}
	if s.now == nil {
		s.now = func() time.Time { return time.Now().UTC() }
	}
	if s.loggerf == nil {
		s.loggerf = func(string, ...interface{}) {}
	}
	return s
}

// CreatePayment opens a payment attempt for a booking. The amount always
// comes from the order service, never from the caller.
func (s *Service) CreatePayment(ctx context.Context, actor Actor, req CreatePaymentRequest) (*CreatePaymentResult, error) {
	bookingID := strings.TrimSpace(req.BookingID)
	if bookingID == "" {
		return nil, fmt.Errorf("%w: bookingId is required", ErrValidation)
	}
	method := domain.PaymentMethod(strings.ToUpper(strings.TrimSpace(string(req.Method))))
	if method == "" {
		method = domain.MethodMock
	}
	gw, ok := s.gateways[method]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedMethod, method)
	}

	b, err := s.bookings.GetBooking(ctx, bookingID)
	if err != nil {
		return nil, mapClientErr(err)
	}
	if !actor.Privileged && b.UserID != actor.UserID {
		return nil, ErrForbidden
	}
	if err := s.checkPayable(b); err != nil {
		return nil, err
	}

	existing, err := s.payments.FindSuccessByBooking(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, ErrDuplicatePayment
	}

	amount := b.AmountDue()
	if amount <= 0 {
		return nil, fmt.Errorf("%w: booking has nothing to pay", ErrValidation)
	}

	p := &domain.Payment{
		ID:            uuid.NewString(),
		BookingID:     b.ID,
		UserID:        b.UserID,
		Amount:        amount,
		Method:        method,
		Status:        domain.PaymentRecordPending,
		TransactionID: string(method) + "_" + strings.ReplaceAll(uuid.NewString(), "-", ""),
	}
	if err := s.payments.Create(ctx, p); err != nil {
		return nil, err
	}
	s.loggerf("level=info msg=\"payment created\" payment_id=%s booking_id=%s method=%s amount=%d", p.ID, b.ID, method, amount)

	res, err := gw.Create(ctx, GatewayRequest{
		PaymentID:     p.ID,
		BookingID:     b.ID,
		TransactionID: p.TransactionID,
		Amount:        amount,
		OrderInfo:     orderInfo(b),
	})
	if err != nil {
		s.loggerf("level=error msg=\"gateway rejected payment\" payment_id=%s method=%s err=%v", p.ID, method, err)
		if _, uerr := s.payments.UpdateStatusIfPending(ctx, p.ID, domain.PaymentRecordFailed, err.Error()); uerr != nil {
			s.loggerf("level=error msg=\"mark payment failed\" payment_id=%s err=%v", p.ID, uerr)
		}
		return nil, ErrGatewayUnavailable
	}
	if err := s.payments.SetGatewayResult(ctx, p.ID, res.TransactionID, res.PayURL); err != nil {
		return nil, err
	}

	if res.Completed {
		done, err := s.CompletePayment(ctx, CompleteInput{BookingID: b.ID, PaymentID: p.ID, ResultCode: 0})
		if err != nil {
			return nil, err
		}
		return &CreatePaymentResult{Payment: done}, nil
	}

	p, err = s.payments.GetByID(ctx, p.ID)
	if err != nil {
		return nil, err
	}
	return &CreatePaymentResult{Payment: p, PayURL: res.PayURL}, nil
}

func (s *Service) checkPayable(b *domain.Booking) error {
	switch {
	case b.Status == domain.BookingPaid:
		return ErrAlreadyPaid
	case b.PaymentStatus == domain.PaymentExpired, b.PaymentWindowElapsed(s.now()):
		return ErrPaymentExpired
	case b.Status == domain.BookingCancelled:
		return ErrBookingCancelled
	case b.Status != domain.BookingPendingPayment:
		return ErrMenuNotConfirmed
	}
	return nil
}

// CompleteInput is a gateway outcome to reconcile. Actor is nil when the
// gateway itself reports.
type CompleteInput struct {
	BookingID  string
	PaymentID  string
	ResultCode int
	Actor      *Actor
}

// CompletePayment applies a gateway outcome. Completing an already successful
// payment returns it unchanged.
func (s *Service) CompletePayment(ctx context.Context, in CompleteInput) (*domain.Payment, error) {
	p, err := s.locate(ctx, in.BookingID, in.PaymentID)
	if err != nil {
		return nil, err
	}
	if in.Actor != nil && !in.Actor.Privileged {
		if p.UserID != in.Actor.UserID {
			return nil, ErrForbidden
		}
		// MoMo success is only trusted from the signed notification.
		if p.Method == domain.MethodMomo && in.ResultCode == 0 && p.Status == domain.PaymentRecordPending {
			return nil, fmt.Errorf("%w: MoMo payments are confirmed by the gateway", ErrForbidden)
		}
	}

	switch p.Status {
	case domain.PaymentRecordSuccess:
		return p, nil
	case domain.PaymentRecordPending:
	default:
		return nil, fmt.Errorf("%w: payment is %s", ErrPaymentClosed, p.Status)
	}

	if in.ResultCode != 0 {
		if _, err := s.payments.UpdateStatusIfPending(ctx, p.ID, domain.PaymentRecordFailed, fmt.Sprintf("gateway result code %d", in.ResultCode)); err != nil {
			return nil, err
		}
		s.loggerf("level=info msg=\"payment failed at gateway\" payment_id=%s result_code=%d", p.ID, in.ResultCode)
		return s.payments.GetByID(ctx, p.ID)
	}

	res, err := s.bookings.MarkPaid(ctx, p.BookingID, p.ID, p.Amount)
	if err != nil {
		if clients.HasCode(err, response.CodeBookingCancelled) {
			s.loggerf("level=warn msg=\"payment lost to expiry\" payment_id=%s booking_id=%s", p.ID, p.BookingID)
			if _, uerr := s.payments.UpdateStatusIfPending(ctx, p.ID, domain.PaymentRecordFailed, reasonBookingExpired); uerr != nil {
				return nil, uerr
			}
			return nil, ErrBookingCancelled
		}
		if clients.HasCode(err, response.CodeAmountMismatch) {
			s.loggerf("level=warn msg=\"payment amount no longer matches booking\" payment_id=%s booking_id=%s amount=%d", p.ID, p.BookingID, p.Amount)
			if _, uerr := s.payments.UpdateStatusIfPending(ctx, p.ID, domain.PaymentRecordFailed, reasonAmountMismatch); uerr != nil {
				return nil, uerr
			}
			return nil, ErrAmountMismatch
		}
		// the booking may or may not have been marked; the payment stays
		// PENDING so a retry can finish it
		s.loggerf("level=error msg=\"mark-paid failed\" payment_id=%s booking_id=%s err=%v", p.ID, p.BookingID, err)
		return nil, mapClientErr(err)
	}

	// Only the attempt the order service recorded may become SUCCESS.
	winner := res.Winner()
	if winner == "" && res.AlreadyPaid {
		other, err := s.payments.FindSuccessByBooking(ctx, p.BookingID)
		if err != nil {
			return nil, err
		}
		if other != nil {
			winner = other.ID
		}
	}
	if winner != "" && winner != p.ID {
		s.loggerf("level=warn msg=\"booking settled by another payment\" payment_id=%s winner=%s booking_id=%s", p.ID, winner, p.BookingID)
		if _, err := s.payments.UpdateStatusIfPending(ctx, p.ID, domain.PaymentRecordFailed, "booking already paid by "+winner); err != nil {
			return nil, err
		}
		return nil, ErrDuplicatePayment
	}

	changed, err := s.payments.MarkSuccessIdempotent(ctx, p.ID, s.now())
	if err != nil {
		return nil, err
	}
	if changed {
		s.loggerf("level=info msg=\"payment succeeded\" payment_id=%s booking_id=%s amount=%d", p.ID, p.BookingID, p.Amount)
	}
	return s.payments.GetByID(ctx, p.ID)
}

// locate finds the attempt a completion refers to: the named payment, else
// the newest pending one, else the one that already succeeded.
func (s *Service) locate(ctx context.Context, bookingID, paymentID string) (*domain.Payment, error) {
	if paymentID != "" {
		p, err := s.payments.GetByID(ctx, paymentID)
		if err != nil {
			return nil, mapRepoErr(err)
		}
		if bookingID != "" && p.BookingID != bookingID {
			return nil, fmt.Errorf("%w: payment %s does not belong to booking %s", ErrValidation, paymentID, bookingID)
		}
		return p, nil
	}
	if bookingID == "" {
		return nil, fmt.Errorf("%w: bookingId or paymentId is required", ErrValidation)
	}

	p, err := s.payments.FindLatestPending(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if p != nil {
		return p, nil
	}
	p, err = s.payments.FindSuccessByBooking(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, ErrNotFound
	}
	return p, nil
}

// HandleMomoIPN reconciles a MoMo notification. Booking and payment ids
// travel in extraData.
func (s *Service) HandleMomoIPN(ctx context.Context, n MomoIPN) (*domain.Payment, error) {
	if s.ipn != nil {
		if err := s.ipn.VerifyIPN(n); err != nil {
			s.loggerf("level=warn msg=\"momo ipn rejected\" order_id=%s err=%v", n.OrderID, err)
			return nil, err
		}
	}
	ed, err := decodeExtraData(n.ExtraData)
	if err != nil {
		return nil, err
	}
	s.loggerf("level=info msg=\"momo ipn\" order_id=%s booking_id=%s payment_id=%s result_code=%d", n.OrderID, ed.BookingID, ed.PaymentID, n.ResultCode)
	return s.CompletePayment(ctx, CompleteInput{BookingID: ed.BookingID, PaymentID: ed.PaymentID, ResultCode: n.ResultCode})
}

// RecordExpired writes the audit record for a booking whose hold ran out and
// closes any attempt still pending for it.
func (s *Service) RecordExpired(ctx context.Context, req ExpiredRequest) (*domain.Payment, error) {
	if strings.TrimSpace(req.BookingID) == "" {
		return nil, fmt.Errorf("%w: bookingId is required", ErrValidation)
	}
	method := domain.PaymentMethod(strings.ToUpper(strings.TrimSpace(string(req.Method))))
	if method == "" {
		method = domain.MethodMock
	}

	for i := 0; i < 10; i++ {
		pending, err := s.payments.FindLatestPending(ctx, req.BookingID)
		if err != nil {
			return nil, err
		}
		if pending == nil {
			break
		}
		if _, err := s.payments.UpdateStatusIfPending(ctx, pending.ID, domain.PaymentRecordExpired, reasonBookingExpired); err != nil {
			return nil, err
		}
	}

	p := &domain.Payment{
		ID:            uuid.NewString(),
		BookingID:     req.BookingID,
		UserID:        req.UserID,
		Amount:        req.Amount,
		Method:        method,
		Status:        domain.PaymentRecordExpired,
		TransactionID: "EXPIRED_" + strings.ReplaceAll(uuid.NewString(), "-", ""),
		FailureReason: "payment window elapsed",
	}
	if err := s.payments.Create(ctx, p); err != nil {
		return nil, err
	}
	s.loggerf("level=info msg=\"expired payment recorded\" booking_id=%s amount=%d", p.BookingID, p.Amount)
	return p, nil
}

func (s *Service) ListByBooking(ctx context.Context, bookingID string) ([]domain.Payment, error) {
	return s.payments.ListByBooking(ctx, bookingID)
}

func (s *Service) ListByUser(ctx context.Context, userID string) ([]domain.Payment, error) {
	return s.payments.ListByUser(ctx, userID)
}

func orderInfo(b *domain.Booking) string {
	name := b.BranchName
	if name == "" {
		name = b.BranchID
	}
	return fmt.Sprintf("Dat ban %s %s %s", name, b.Date, b.Time)
}

func mapClientErr(err error) error {
	switch {
	case errors.Is(err, clients.ErrNotFound):
		return fmt.Errorf("%w: booking", ErrNotFound)
	case errors.Is(err, clients.ErrUnavailable):
		return fmt.Errorf("%w: %v", ErrUpstreamUnavailable, err)
	case clients.HasCode(err, response.CodeBookingPaid):
		return ErrAlreadyPaid
	}
	return err
}

func mapRepoErr(err error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return ErrNotFound
	}
	return err
}
