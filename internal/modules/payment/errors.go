package payment

import "errors"

var (
	ErrValidation          = errors.New("validation error")
	ErrNotFound            = errors.New("not found")
	ErrForbidden           = errors.New("payment belongs to another user")
	ErrAlreadyPaid         = errors.New("Đơn đặt bàn này đã được thanh toán")
	ErrBookingCancelled    = errors.New("Đơn đặt bàn này đã bị hủy, không thể thanh toán")
	ErrPaymentExpired      = errors.New("Đơn đặt bàn này đã quá hạn thanh toán")
	ErrMenuNotConfirmed    = errors.New("booking menu is not confirmed yet")
	ErrDuplicatePayment    = errors.New("Đơn đặt bàn này đã có giao dịch thanh toán thành công")
	ErrAmountMismatch      = errors.New("booking total changed, create a new payment")
	ErrGatewayUnavailable  = errors.New("Thanh toán không thành công. Vui lòng thử lại")
	ErrUnsupportedMethod   = errors.New("unsupported payment method")
	ErrPaymentClosed       = errors.New("payment is no longer pending")
	ErrInvalidSignature    = errors.New("invalid signature")
	ErrUpstreamUnavailable = errors.New("order service unavailable")
)
