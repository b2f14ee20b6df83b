package table

import (
	"errors"
	"net/http"

	"restobook/internal/pkg/response"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes mounts reads on public and writes on staff.
func (h *Handler) RegisterRoutes(public, staff *gin.RouterGroup) {
	public.GET("/tables", h.List)
	public.GET("/tables/:id", h.Get)

	staff.POST("/tables", h.Create)
	staff.PUT("/tables/:id", h.Update)
	staff.DELETE("/tables/:id", h.Delete)
}

func (h *Handler) List(c *gin.Context) {
	var q ListQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeValidation, "Invalid query parameters")
		return
	}
	tables, err := h.service.List(c.Request.Context(), q)
	if err != nil {
		response.ServerError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"tables": tables, "count": len(tables)})
}

func (h *Handler) Get(c *gin.Context) {
	t, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, t)
}

func (h *Handler) Create(c *gin.Context) {
	var req CreateTableRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeValidation, "Invalid request body")
		return
	}
	t, err := h.service.Create(c.Request.Context(), req)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, http.StatusCreated, t)
}

func (h *Handler) Update(c *gin.Context) {
	var req UpdateTableRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeValidation, "Invalid request body")
		return
	}
	t, err := h.service.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, t)
}

func (h *Handler) Delete(c *gin.Context) {
	t, err := h.service.Delete(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, t)
}

func (h *Handler) fail(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ErrValidation):
		response.Error(c, http.StatusBadRequest, response.CodeValidation, err.Error())
	case errors.Is(err, ErrNotFound):
		response.Error(c, http.StatusNotFound, response.CodeNotFound, "Table not found")
	case errors.Is(err, ErrDuplicate):
		response.Error(c, http.StatusConflict, "TABLE_CODE_TAKEN", err.Error())
	default:
		response.ServerError(c, err)
	}
}
