package response

import "github.com/gin-gonic/gin"

// Error codes shared between services; clients match on them.
const (
	CodeValidation          = "VALIDATION_ERROR"
	CodeNotFound            = "NOT_FOUND"
	CodeTableConflict       = "TABLE_CONFLICT"
	CodeInvalidTransition   = "INVALID_STATE_TRANSITION"
	CodeBookingCancelled    = "BOOKING_CANCELLED"
	CodeBookingPaid         = "BOOKING_ALREADY_PAID"
	CodePaymentExpired      = "PAYMENT_EXPIRED"
	CodeDuplicatePayment    = "DUPLICATE_PAYMENT"
	CodeAmountMismatch      = "AMOUNT_MISMATCH"
	CodeGatewayError        = "PAYMENT_GATEWAY_ERROR"
	CodeUpstreamUnavailable = "UPSTREAM_UNAVAILABLE"
	CodeUnauthorized        = "UNAUTHORIZED"
	CodeForbidden           = "FORBIDDEN"
	CodeInternal            = "INTERNAL_ERROR"
)

func Success(c *gin.Context, statusCode int, data interface{}) {
	c.JSON(statusCode, gin.H{
		"success": true,
		"data":    data,
	})
}

func Error(c *gin.Context, statusCode int, code string, message string) {
	c.JSON(statusCode, gin.H{
		"success": false,
		"error": gin.H{
			"code":    code,
			"message": message,
		},
	})
}

func ErrorWithDetails(c *gin.Context, statusCode int, code string, message string, details any) {
	c.JSON(statusCode, gin.H{
		"success": false,
		"error": gin.H{
			"code":    code,
			"message": message,
			"details": details,
		},
	})
}

// ServerError hides the cause behind an opaque message and records it on the
// context so ErrorLogger prints it.
func ServerError(c *gin.Context, err error) {
	if err != nil {
		_ = c.Error(err)
	}
	Error(c, 500, CodeInternal, "server error")
}
