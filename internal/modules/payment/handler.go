package payment

import (
	"errors"
	"net/http"

	"restobook/internal/clients"
	"restobook/internal/domain"
	"restobook/internal/middleware"
	"restobook/internal/pkg/response"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	service *Service
	loggerf func(format string, args ...interface{})
}

func NewHandler(service *Service, loggerf func(format string, args ...interface{})) *Handler {
	if loggerf == nil {
		loggerf = func(string, ...interface{}) {}
	}
	return &Handler{service: service, loggerf: loggerf}
}

type Routes struct {
	Public   *gin.RouterGroup
	Authed   *gin.RouterGroup
	Internal *gin.RouterGroup
}

func (h *Handler) RegisterRoutes(r Routes) {
	r.Public.POST("/payments/momo-ipn", h.MomoIPN)

	r.Authed.POST("/payments", h.Create)
	r.Authed.POST("/payments/complete", h.Complete)
	r.Authed.GET("/payments/booking/:bookingId", h.ListByBooking)
	r.Authed.GET("/payments/user/:userId", middleware.SelfOrRole("userId", middleware.RoleStaff, middleware.RoleAdmin, middleware.RoleService), h.ListByUser)

	r.Internal.POST("/payments/expired", h.RecordExpired)
}

func (h *Handler) Create(c *gin.Context) {
	var req CreatePaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeValidation, "Missing bookingId")
		return
	}
	res, err := h.service.CreatePayment(c.Request.Context(), actorOf(c), req)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, http.StatusCreated, res)
}

// Complete is hit when the customer returns from the gateway.
func (h *Handler) Complete(c *gin.Context) {
	var req CompleteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeValidation, "bookingId and resultCode are required")
		return
	}
	actor := actorOf(c)
	p, err := h.service.CompletePayment(c.Request.Context(), CompleteInput{
		BookingID:  req.BookingID,
		PaymentID:  req.PaymentID,
		ResultCode: *req.ResultCode,
		Actor:      &actor,
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, p)
}

// MomoIPN answers 204 once a notification is handled for good. Signature and
// payload errors get 400; infrastructure errors 5xx so MoMo retries.
func (h *Handler) MomoIPN(c *gin.Context) {
	var n MomoIPN
	if err := c.ShouldBindJSON(&n); err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeValidation, "Invalid IPN payload")
		return
	}
	_, err := h.service.HandleMomoIPN(c.Request.Context(), n)
	switch {
	case err == nil:
	case errors.Is(err, ErrInvalidSignature):
		response.Error(c, http.StatusBadRequest, "INVALID_SIGNATURE", err.Error())
		return
	case errors.Is(err, ErrValidation), errors.Is(err, ErrNotFound):
		h.fail(c, err)
		return
	case errors.Is(err, ErrBookingCancelled), errors.Is(err, ErrDuplicatePayment), errors.Is(err, ErrAmountMismatch), errors.Is(err, ErrPaymentClosed):
		// final outcome, already recorded on the payment
		h.loggerf("level=warn msg=\"momo ipn settled without payment\" order_id=%s err=%v", n.OrderID, err)
	default:
		h.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) RecordExpired(c *gin.Context) {
	var req ExpiredRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeValidation, "Missing bookingId")
		return
	}
	p, err := h.service.RecordExpired(c.Request.Context(), req)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, http.StatusCreated, p)
}

func (h *Handler) ListByBooking(c *gin.Context) {
	list, err := h.service.ListByBooking(c.Request.Context(), c.Param("bookingId"))
	if err != nil {
		response.ServerError(c, err)
		return
	}
	actor := actorOf(c)
	if !actor.Privileged {
		own := list[:0]
		for _, p := range list {
			if p.UserID == actor.UserID {
				own = append(own, p)
			}
		}
		list = own
	}
	if list == nil {
		list = []domain.Payment{}
	}
	response.Success(c, http.StatusOK, gin.H{"payments": list, "count": len(list)})
}

func (h *Handler) ListByUser(c *gin.Context) {
	list, err := h.service.ListByUser(c.Request.Context(), c.Param("userId"))
	if err != nil {
		response.ServerError(c, err)
		return
	}
	if list == nil {
		list = []domain.Payment{}
	}
	response.Success(c, http.StatusOK, gin.H{"payments": list, "count": len(list)})
}

func actorOf(c *gin.Context) Actor {
	a := Actor{UserID: c.GetString(middleware.ContextUserID)}
	switch c.GetString(middleware.ContextRole) {
	case middleware.RoleStaff, middleware.RoleAdmin, middleware.RoleService:
		a.Privileged = true
	}
	return a
}

func (h *Handler) fail(c *gin.Context, err error) {
	var remote *clients.RemoteError
	switch {
	case errors.Is(err, ErrValidation), errors.Is(err, ErrUnsupportedMethod):
		response.Error(c, http.StatusBadRequest, response.CodeValidation, err.Error())
	case errors.Is(err, ErrNotFound):
		response.Error(c, http.StatusNotFound, response.CodeNotFound, err.Error())
	case errors.Is(err, ErrForbidden):
		response.Error(c, http.StatusForbidden, response.CodeForbidden, err.Error())
	case errors.Is(err, ErrAlreadyPaid):
		response.Error(c, http.StatusConflict, response.CodeBookingPaid, err.Error())
	case errors.Is(err, ErrPaymentExpired):
		response.Error(c, http.StatusConflict, response.CodePaymentExpired, err.Error())
	case errors.Is(err, ErrBookingCancelled):
		response.Error(c, http.StatusConflict, response.CodeBookingCancelled, err.Error())
	case errors.Is(err, ErrDuplicatePayment):
		response.Error(c, http.StatusConflict, response.CodeDuplicatePayment, err.Error())
	case errors.Is(err, ErrAmountMismatch):
		response.Error(c, http.StatusConflict, response.CodeAmountMismatch, err.Error())
	case errors.Is(err, ErrMenuNotConfirmed), errors.Is(err, ErrPaymentClosed):
		response.Error(c, http.StatusConflict, response.CodeInvalidTransition, err.Error())
	case errors.Is(err, ErrGatewayUnavailable):
		response.Error(c, http.StatusBadGateway, response.CodeGatewayError, err.Error())
	case errors.Is(err, ErrUpstreamUnavailable):
		_ = c.Error(err)
		response.Error(c, http.StatusServiceUnavailable, response.CodeUpstreamUnavailable, "Dịch vụ tạm thời không khả dụng, vui lòng thử lại")
	case errors.As(err, &remote):
		response.Error(c, http.StatusConflict, remote.Code, remote.Message)
	default:
		response.ServerError(c, err)
	}
}
