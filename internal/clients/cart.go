package clients

import (
	"context"
	"net/url"

	"restobook/internal/domain"
)

// CartClient reads carts from the cart service.
type CartClient struct {
	c *caller
}

func NewCartClient(o Options) *CartClient {
	return &CartClient{c: newCaller(o)}
}

// GetCart returns the cart for a booking. A missing cart comes back empty.
func (cc *CartClient) GetCart(ctx context.Context, bookingID string) (*domain.Cart, error) {
	var cart domain.Cart
	if err := cc.c.read(ctx, "/api/cart/"+url.PathEscape(bookingID), &cart); err != nil {
		return nil, err
	}
	if cart.BookingID == "" {
		cart.BookingID = bookingID
	}
	return &cart, nil
}
