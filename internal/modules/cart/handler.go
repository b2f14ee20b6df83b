package cart

import (
	"errors"
	"net/http"

	"restobook/internal/middleware"
	"restobook/internal/pkg/response"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	cart := rg.Group("/cart/:bookingId")
	{
		cart.GET("", h.Get)
		cart.POST("/items", h.SetItem)
		cart.DELETE("/items/:productId", h.RemoveItem)
		cart.DELETE("", h.Clear)
	}
}

func (h *Handler) Get(c *gin.Context) {
	cart, err := h.service.Get(c.Request.Context(), c.Param("bookingId"))
	if err != nil {
		response.ServerError(c, err)
		return
	}
	if !canAccess(c, cart.UserID) {
		response.Error(c, http.StatusForbidden, response.CodeForbidden, ErrForbidden.Error())
		return
	}
	response.Success(c, http.StatusOK, cart)
}

func (h *Handler) SetItem(c *gin.Context) {
	var req SetItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeValidation, "Missing required fields (productId, name, price, quantity)")
		return
	}
	// staff may leave userId empty and write for the booking's owner
	if !privileged(c) {
		req.UserID = c.GetString(middleware.ContextUserID)
	}

	cart, err := h.service.SetItem(c.Request.Context(), c.Param("bookingId"), req)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, cart)
}

func (h *Handler) RemoveItem(c *gin.Context) {
	if !h.owns(c) {
		return
	}
	cart, err := h.service.RemoveItem(c.Request.Context(), c.Param("bookingId"), c.Param("productId"))
	if err != nil {
		response.ServerError(c, err)
		return
	}
	response.Success(c, http.StatusOK, cart)
}

func (h *Handler) Clear(c *gin.Context) {
	if !h.owns(c) {
		return
	}
	if err := h.service.Clear(c.Request.Context(), c.Param("bookingId")); err != nil {
		response.ServerError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"cleared": true, "bookingId": c.Param("bookingId")})
}

func (h *Handler) owns(c *gin.Context) bool {
	cart, err := h.service.Get(c.Request.Context(), c.Param("bookingId"))
	if err != nil {
		response.ServerError(c, err)
		return false
	}
	if !canAccess(c, cart.UserID) {
		response.Error(c, http.StatusForbidden, response.CodeForbidden, ErrForbidden.Error())
		return false
	}
	return true
}

// canAccess admits the cart owner, staff and other services. An empty cart has
// no owner yet.
func canAccess(c *gin.Context, owner string) bool {
	return owner == "" || privileged(c) || owner == c.GetString(middleware.ContextUserID)
}

func privileged(c *gin.Context) bool {
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
	case errors.Is(err, ErrForbidden):
		response.Error(c, http.StatusForbidden, response.CodeForbidden, err.Error())
	case errors.Is(err, ErrBookingNotFound):
		response.Error(c, http.StatusNotFound, response.CodeNotFound, err.Error())
	case errors.Is(err, ErrUpstreamUnavailable):
		_ = c.Error(err)
		response.Error(c, http.StatusServiceUnavailable, response.CodeUpstreamUnavailable, "Dịch vụ tạm thời không khả dụng, vui lòng thử lại")
	default:
		response.ServerError(c, err)
	}
}
