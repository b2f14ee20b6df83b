package cart

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"restobook/internal/clients"
	"restobook/internal/domain"
)

type Service struct {
	store    Store
	bookings BookingReader
	loggerf  func(format string, args ...interface{})
}

// NewService builds the cart service. With a nil bookings reader the first
// writer owns the cart without a lookup.
func NewService(store Store, bookings BookingReader, loggerf func(format string, args ...interface{})) *Service {
	if loggerf == nil {
		loggerf = func(string, ...interface{}) {}
	}
	return &Service{store: store, bookings: bookings, loggerf: loggerf}
}

// Get never fails for an unknown booking; it returns an empty cart instead.
func (s *Service) Get(ctx context.Context, bookingID string) (*domain.Cart, error) {
	c, err := s.store.Get(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if c == nil {
		c = &domain.Cart{BookingID: bookingID}
	}
	if c.Items == nil {
		c.Items = []domain.CartItem{}
	}
	return c, nil
}

func (s *Service) SetItem(ctx context.Context, bookingID string, req SetItemRequest) (*domain.Cart, error) {
	req.UserID = strings.TrimSpace(req.UserID)
	req.ProductID = strings.TrimSpace(req.ProductID)
	req.Name = strings.TrimSpace(req.Name)
	switch {
	case strings.TrimSpace(bookingID) == "":
		return nil, fmt.Errorf("%w: bookingId is required", ErrValidation)
	case req.ProductID == "" || req.Name == "":
		return nil, fmt.Errorf("%w: productId and name are required", ErrValidation)
	case req.Price == nil || req.Quantity == nil:
		return nil, fmt.Errorf("%w: price and quantity are required", ErrValidation)
	case *req.Price < 0:
		return nil, fmt.Errorf("%w: price must not be negative", ErrValidation)
	}

	current, err := s.Get(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	owner := current.UserID
	if owner == "" {
		// an empty cart is claimed for the booking's owner, not its first writer
		if owner, err = s.bookingOwner(ctx, bookingID); err != nil {
			return nil, err
		}
	}
	if req.UserID == "" {
		req.UserID = owner
	}
	if req.UserID == "" {
		return nil, fmt.Errorf("%w: userId is required", ErrValidation)
	}
	if owner != "" && owner != req.UserID {
		s.loggerf("level=warn msg=\"cart write by non-owner\" booking_id=%s user_id=%s", bookingID, req.UserID)
		return nil, ErrForbidden
	}

	if *req.Quantity <= 0 {
		if err := s.store.RemoveItem(ctx, bookingID, req.ProductID); err != nil {
			return nil, err
		}
		s.loggerf("level=info msg=\"cart item removed\" booking_id=%s product_id=%s", bookingID, req.ProductID)
		return s.Get(ctx, bookingID)
	}

	item := domain.CartItem{
		ProductID: req.ProductID,
		Name:      req.Name,
		Price:     *req.Price,
		Quantity:  *req.Quantity,
		Note:      strings.TrimSpace(req.Note),
	}
	// an update without a note keeps the one already on the line
	if item.Note == "" {
		for _, it := range current.Items {
			if it.ProductID == item.ProductID {
				item.Note = it.Note
				break
			}
		}
	}
	if err := s.store.SetItem(ctx, bookingID, req.UserID, item); err != nil {
		return nil, err
	}
	s.loggerf("level=info msg=\"cart item set\" booking_id=%s product_id=%s qty=%d", bookingID, item.ProductID, item.Quantity)
	return s.Get(ctx, bookingID)
}

func (s *Service) bookingOwner(ctx context.Context, bookingID string) (string, error) {
	if s.bookings == nil {
		return "", nil
	}
	b, err := s.bookings.GetBooking(ctx, bookingID)
	switch {
	case errors.Is(err, clients.ErrNotFound):
		return "", ErrBookingNotFound
	case err != nil:
		s.loggerf("level=error msg=\"booking lookup failed\" booking_id=%s err=%v", bookingID, err)
		return "", fmt.Errorf("%w: %v", ErrUpstreamUnavailable, err)
	}
	return b.UserID, nil
}

func (s *Service) RemoveItem(ctx context.Context, bookingID, productID string) (*domain.Cart, error) {
	if err := s.store.RemoveItem(ctx, bookingID, productID); err != nil {
		return nil, err
	}
	return s.Get(ctx, bookingID)
}

func (s *Service) Clear(ctx context.Context, bookingID string) error {
	if err := s.store.Clear(ctx, bookingID); err != nil {
		return err
	}
	s.loggerf("level=info msg=\"cart cleared\" booking_id=%s", bookingID)
	return nil
}
