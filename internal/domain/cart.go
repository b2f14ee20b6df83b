package domain

type CartItem struct {
	ProductID string `json:"productId"`
	Name      string `json:"name"`
	Price     int64  `json:"price"`
	Quantity  int    `json:"quantity"`
	Note      string `json:"note,omitempty"`
}

// Cart is the per-booking basket owned by the cart service.
type Cart struct {
	BookingID string     `json:"bookingId"`
	UserID    string     `json:"userId,omitempty"`
	Items     []CartItem `json:"items"`
}

func (c *Cart) IsEmpty() bool { return c == nil || len(c.Items) == 0 }

// Snapshot converts cart lines into booking lines.
func (c *Cart) Snapshot() []BookingItem {
	if c == nil {
		return nil
	}
	out := make([]BookingItem, 0, len(c.Items))
	for _, it := range c.Items {
		out = append(out, BookingItem{
			ProductID: it.ProductID,
			Name:      it.Name,
			Price:     it.Price,
			Quantity:  it.Quantity,
			Note:      it.Note,
		})
	}
	return out
}
