package cart

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"restobook/internal/domain"
	"restobook/internal/middleware"
	"restobook/internal/pkg/jwt"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const internalToken = "internal-secret"

func setupRouter(t *testing.T) (*gin.Engine, *jwt.Service) {
	return setupRouterWith(t, newTestService(t))
}

func setupRouterWith(t *testing.T, svc *Service) (*gin.Engine, *jwt.Service) {
	gin.SetMode(gin.TestMode)
	jwtSvc := jwt.New("test-secret", time.Hour)
	r := gin.New()
	api := r.Group("/api", middleware.JWTOrInternal(jwtSvc, internalToken))
	NewHandler(svc).RegisterRoutes(api)
	return r, jwtSvc
}

func call(r *gin.Engine, method, path, token string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestHandler_CartLifecycle(t *testing.T) {
	r, jwtSvc := setupRouter(t)
	owner, err := jwtSvc.GenerateToken("user-1", middleware.RoleCustomer)
	require.NoError(t, err)
	stranger, err := jwtSvc.GenerateToken("user-2", middleware.RoleCustomer)
	require.NoError(t, err)

	w := call(r, http.MethodGet, "/api/cart/b1", owner, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"items":[]`)

	body := map[string]any{"productId": "p1", "name": "Soup", "price": 50000, "quantity": 2}
	w = call(r, http.MethodPost, "/api/cart/b1/items", owner, body)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = call(r, http.MethodPost, "/api/cart/b1/items", stranger, body)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, http.StatusForbidden, call(r, http.MethodGet, "/api/cart/b1", stranger, nil).Code)

	// the order service reads carts with the internal token
	w = call(r, http.MethodGet, "/api/cart/b1", internalToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var env struct {
		Data domain.Cart `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	require.Len(t, env.Data.Items, 1)
	assert.Equal(t, int64(50000), env.Data.Items[0].Price)
	assert.Equal(t, "user-1", env.Data.UserID)

	w = call(r, http.MethodDelete, "/api/cart/b1/items/p1", owner, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"items":[]`)

	assert.Equal(t, http.StatusOK, call(r, http.MethodDelete, "/api/cart/b1", owner, nil).Code)
}

func TestHandler_SetItemRejectsBadBody(t *testing.T) {
	r, jwtSvc := setupRouter(t)
	owner, err := jwtSvc.GenerateToken("user-1", middleware.RoleCustomer)
	require.NoError(t, err)

	w := call(r, http.MethodPost, "/api/cart/b1/items", owner, map[string]any{"productId": "p1"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = call(r, http.MethodPost, "/api/cart/b1/items", "", map[string]any{"productId": "p1"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestHandler_StrangerCannotClaimCart(t *testing.T) {
	bookings := new(MockBookingReader)
	bookings.On("GetBooking", mock.Anything, "b1").Return(&domain.Booking{ID: "b1", UserID: "user-1"}, nil)
	r, jwtSvc := setupRouterWith(t, newServiceWith(t, bookings))
	owner, err := jwtSvc.GenerateToken("user-1", middleware.RoleCustomer)
	require.NoError(t, err)
	stranger, err := jwtSvc.GenerateToken("user-2", middleware.RoleCustomer)
	require.NoError(t, err)

	body := map[string]any{"productId": "p1", "name": "Soup", "price": 50000, "quantity": 2}
	w := call(r, http.MethodPost, "/api/cart/b1/items", stranger, body)
	assert.Equal(t, http.StatusForbidden, w.Code)

	// a customer cannot name someone else as the owner either
	body["userId"] = "user-2"
	w = call(r, http.MethodPost, "/api/cart/b1/items", owner, body)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Contains(t, w.Body.String(), `"userId":"user-1"`)

	w = call(r, http.MethodPost, "/api/cart/b1/items", internalToken, map[string]any{"productId": "p2", "name": "Tea", "price": 10000, "quantity": 1})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
}
