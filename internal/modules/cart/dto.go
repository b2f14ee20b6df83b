package cart

// SetItemRequest sets the quantity of one product. Quantity is absolute, not
// added to what is already in the cart; zero or less removes the line.
type SetItemRequest struct {
	UserID    string `json:"userId"`
	ProductID string `json:"productId" binding:"required"`
	Name      string `json:"name" binding:"required"`
	Price     *int64 `json:"price" binding:"required"`
	Quantity  *int   `json:"quantity" binding:"required"`
	Note      string `json:"note"`
}
