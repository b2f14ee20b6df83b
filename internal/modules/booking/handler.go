package booking

import (
	"errors"
	"log"
	"net/http"
	"strings"

	"restobook/internal/domain"
	"restobook/internal/middleware"
	"restobook/internal/pkg/response"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	service *Service
	hub     *Hub
}

func NewHandler(service *Service, hub *Hub) *Handler {
	return &Handler{service: service, hub: hub}
}

// Routes groups the middleware stacks the booking endpoints sit behind.
type Routes struct {
	Public   *gin.RouterGroup
	Authed   *gin.RouterGroup
	Staff    *gin.RouterGroup
	Internal *gin.RouterGroup
}

func (h *Handler) RegisterRoutes(r Routes) {
	r.Public.GET("/slots", h.Slots)

	r.Authed.POST("/bookings", h.Create)
	r.Authed.GET("/bookings/availability", h.Availability)
	r.Authed.GET("/bookings/user/:userId", middleware.SelfOrRole("userId", middleware.RoleStaff, middleware.RoleAdmin), h.ListByUser)
	r.Authed.GET("/bookings/:id", h.Get)
	r.Authed.GET("/bookings/:id/ws", h.Stream)
	r.Authed.PATCH("/bookings/:id/table", h.UpdateTables)
	r.Authed.POST("/bookings/:id/confirm-menu", h.ConfirmMenu)
	r.Authed.POST("/bookings/:id/request-cancel", h.RequestCancel)

	r.Staff.GET("/bookings", h.List)
	r.Staff.PATCH("/bookings/:id/cancel", h.Cancel)
	r.Staff.DELETE("/bookings/:id", h.Delete)

	r.Internal.POST("/bookings/:id/mark-paid", h.MarkPaid)
}

func (h *Handler) Slots(c *gin.Context) {
	response.Success(c, http.StatusOK, gin.H{"slots": domain.TimeSlots})
}

func (h *Handler) Create(c *gin.Context) {
	var req CreateBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeValidation, "Invalid request body")
		return
	}

	caller := c.GetString(middleware.ContextUserID)
	if isPrivileged(c) {
		if strings.TrimSpace(req.UserID) == "" && c.GetString(middleware.ContextRole) != middleware.RoleService {
			req.UserID = caller
		}
	} else {
		if req.UserID != "" && req.UserID != caller {
			response.Error(c, http.StatusForbidden, response.CodeForbidden, "Cannot book on behalf of another user")
			return
		}
		req.UserID = caller
	}

	b, err := h.service.Create(c.Request.Context(), req)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, http.StatusCreated, b)
}

func (h *Handler) Availability(c *gin.Context) {
	var codes []string
	for _, code := range strings.Split(c.Query("tables"), ",") {
		if code = strings.ToUpper(strings.TrimSpace(code)); code != "" {
			codes = append(codes, code)
		}
	}
	taken, err := h.service.Conflicts(c.Request.Context(), c.Query("branchId"), c.Query("date"), c.Query("time"), codes, c.Query("excludeBookingId"))
	if err != nil {
		h.fail(c, err)
		return
	}
	if taken == nil {
		taken = []string{}
	}
	response.Success(c, http.StatusOK, gin.H{"available": len(taken) == 0, "conflicts": taken})
}

func (h *Handler) Get(c *gin.Context) {
	b, ok := h.loadOwned(c)
	if !ok {
		return
	}
	response.Success(c, http.StatusOK, b)
}

func (h *Handler) List(c *gin.Context) {
	var q ListQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeValidation, "Invalid query parameters")
		return
	}
	list, err := h.service.List(c.Request.Context(), q)
	if err != nil {
		response.ServerError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"bookings": list, "count": len(list)})
}

func (h *Handler) ListByUser(c *gin.Context) {
	list, err := h.service.ListByUser(c.Request.Context(), c.Param("userId"))
	if err != nil {
		response.ServerError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"bookings": list, "count": len(list)})
}

func (h *Handler) UpdateTables(c *gin.Context) {
	var req UpdateTablesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeValidation, "Invalid request body")
		return
	}
	if req.BasePrice != nil && !isPrivileged(c) {
		response.Error(c, http.StatusForbidden, response.CodeForbidden, "only staff can override the table price")
		return
	}
	if _, ok := h.loadOwned(c); !ok {
		return
	}
	b, err := h.service.UpdateTables(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, b)
}

func (h *Handler) ConfirmMenu(c *gin.Context) {
	if _, ok := h.loadOwned(c); !ok {
		return
	}
	b, err := h.service.ConfirmMenu(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, b)
}

func (h *Handler) RequestCancel(c *gin.Context) {
	if _, ok := h.loadOwned(c); !ok {
		return
	}
	b, err := h.service.RequestCancel(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, b)
}

func (h *Handler) Cancel(c *gin.Context) {
	b, err := h.service.Cancel(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, b)
}

func (h *Handler) Delete(c *gin.Context) {
	b, err := h.service.Delete(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"deleted": true, "id": b.ID})
}

// MarkPaid is called by the payment service once a gateway confirms.
func (h *Handler) MarkPaid(c *gin.Context) {
	var req MarkPaidRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			response.Error(c, http.StatusBadRequest, response.CodeValidation, "Invalid request body")
			return
		}
	}
	b, alreadyPaid, err := h.service.MarkPaid(c.Request.Context(), c.Param("id"), req.PaymentID, req.Amount)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, MarkPaidResponse{Booking: b, AlreadyPaid: alreadyPaid, PaidPaymentID: b.PaidPaymentID})
}

func (h *Handler) Stream(c *gin.Context) {
	b, ok := h.loadOwned(c)
	if !ok {
		return
	}
	if err := h.hub.Serve(c.Writer, c.Request, b); err != nil {
		log.Printf("booking stream upgrade failed booking_id=%s err=%v", b.ID, err)
	}
}

// loadOwned fetches :id and checks the caller may see it.
func (h *Handler) loadOwned(c *gin.Context) (*domain.Booking, bool) {
	b, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return nil, false
	}
	if !isPrivileged(c) && b.UserID != c.GetString(middleware.ContextUserID) {
		h.fail(c, ErrForbidden)
		return nil, false
	}
	return b, true
}

func isPrivileged(c *gin.Context) bool {
	switch c.GetString(middleware.ContextRole) {
	case middleware.RoleStaff, middleware.RoleAdmin, middleware.RoleService:
		return true
	}
	return false
}

func (h *Handler) fail(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ErrValidation):
		response.Error(c, http.StatusBadRequest, response.CodeValidation, err.Error())
	case errors.Is(err, ErrEmptyCart):
		response.Error(c, http.StatusBadRequest, "EMPTY_CART", err.Error())
	case errors.Is(err, ErrNotFound):
		response.Error(c, http.StatusNotFound, response.CodeNotFound, "Booking not found")
	case errors.Is(err, ErrForbidden):
		response.Error(c, http.StatusForbidden, response.CodeForbidden, err.Error())
	case errors.Is(err, ErrTableConflict):
		response.Error(c, http.StatusConflict, response.CodeTableConflict, err.Error())
	case errors.Is(err, ErrBookingCancelled):
		response.Error(c, http.StatusConflict, response.CodeBookingCancelled, err.Error())
	case errors.Is(err, ErrBookingPaid):
		response.Error(c, http.StatusConflict, response.CodeBookingPaid, err.Error())
	case errors.Is(err, ErrAmountMismatch):
		response.Error(c, http.StatusConflict, response.CodeAmountMismatch, err.Error())
	case errors.Is(err, ErrInvalidTransition):
		response.Error(c, http.StatusConflict, response.CodeInvalidTransition, err.Error())
	case errors.Is(err, ErrUpstreamUnavailable):
		_ = c.Error(err)
		response.Error(c, http.StatusServiceUnavailable, response.CodeUpstreamUnavailable, "Dịch vụ tạm thời không khả dụng, vui lòng thử lại")
	default:
		response.ServerError(c, err)
	}
}
