package app

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"restobook/internal/clients"
	"restobook/internal/database"
	"restobook/internal/domain"
	"restobook/internal/events"
	"restobook/internal/middleware"
	"restobook/internal/modules/booking"
	"restobook/internal/modules/cart"
	"restobook/internal/modules/payment"
	"restobook/internal/modules/table"
	"restobook/internal/pkg/jwt"
	"restobook/internal/repository"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

const internalToken = "internal-secret"

type clock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

// swappable lets the three servers know each other's URLs before their
// handlers exist.
type swappable struct{ h http.Handler }

func (s *swappable) ServeHTTP(w http.ResponseWriter, r *http.Request) { s.h.ServeHTTP(w, r) }

type system struct {
	order, cart, payment *httptest.Server
	sweeper              *booking.Sweeper
	clock                *clock
	jwt                  *jwt.Service
}

func openDB(t *testing.T, service string) *gorm.DB {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	db, err := database.OpenSQLite(fmt.Sprintf("file:app_%s_%s?mode=memory&cache=shared", service, name))
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	return db
}

func startSystem(t *testing.T) *system {
	t.Helper()
	gin.SetMode(gin.TestMode)

	sys := &system{
		clock: &clock{t: time.Date(2024, 1, 1, 3, 0, 0, 0, time.UTC)},
		jwt:   jwt.New("test-secret", time.Hour),
	}
	orderH, cartH, paymentH := &swappable{}, &swappable{}, &swappable{}
	sys.order = httptest.NewServer(orderH)
	sys.cart = httptest.NewServer(cartH)
	sys.payment = httptest.NewServer(paymentH)
	t.Cleanup(func() {
		sys.order.Close()
		sys.cart.Close()
		sys.payment.Close()
	})
	auth := Auth{JWT: sys.jwt, InternalToken: internalToken}
	callOpts := func(url string) clients.Options {
		return clients.Options{BaseURL: url, Timeout: 2 * time.Second, ReadRetries: 1, Backoff: 10 * time.Millisecond, Token: internalToken, Loggerf: t.Logf}
	}

	// order
	orderDB := openDB(t, "order")
	require.NoError(t, repository.MigrateOrder(orderDB))
	tables := table.NewService(repository.NewTableRepository(orderDB))
	_, err := tables.Seed(context.Background())
	require.NoError(t, err)
	hub := booking.NewHub()
	bookings := booking.NewService(repository.NewBookingRepository(orderDB), tables,
		clients.NewCartClient(callOpts(sys.cart.URL)), events.LogPublisher{Loggerf: t.Logf}, hub,
		booking.Options{Now: sys.clock.Now, Loggerf: t.Logf})
	sys.sweeper = booking.NewSweeper(bookings, clients.NewPaymentClient(callOpts(sys.payment.URL)), booking.SweeperConfig{})
	orderH.h = NewOrderRouter(OrderServer{Auth: auth, Bookings: bookings, Hub: hub, Tables: tables})

	// cart
	cartDB := openDB(t, "cart")
	require.NoError(t, repository.MigrateCart(cartDB))
	carts := cart.NewService(repository.NewCartRepository(cartDB), clients.NewBookingClient(callOpts(sys.order.URL)), t.Logf)
	cartH.h = NewCartRouter(CartServer{Auth: auth, Carts: carts})

	// payment
	paymentDB := openDB(t, "payment")
	require.NoError(t, repository.MigratePayment(paymentDB))
	health, err := database.FromGorm(paymentDB, time.Second)
	require.NoError(t, err)
	payments := payment.NewService(repository.NewPaymentRepository(paymentDB), clients.NewBookingClient(callOpts(sys.order.URL)), payment.Options{
		Gateways: []payment.Gateway{payment.MockGateway{}, redirectGateway{}},
		Now:      sys.clock.Now,
		Loggerf:  t.Logf,
	})
	paymentH.h = NewPaymentRouter(PaymentServer{Auth: auth, Payments: payments, Health: health, Loggerf: t.Logf})
	return sys
}

// redirectGateway leaves payments open, like a hosted checkout page.
type redirectGateway struct{}

func (redirectGateway) Method() domain.PaymentMethod { return domain.MethodMomo }

func (redirectGateway) Create(_ context.Context, req payment.GatewayRequest) (*payment.GatewayResult, error) {
	return &payment.GatewayResult{TransactionID: req.TransactionID, PayURL: "https://pay.example/" + req.PaymentID}, nil
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func (s *system) call(t *testing.T, method, url, token string, body any) (int, envelope) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, url, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var env envelope
	if resp.StatusCode != http.StatusNoContent {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&env))
	}
	return resp.StatusCode, env
}

func (s *system) customer(t *testing.T) string {
	return s.token(t, "user-1", middleware.RoleCustomer)
}

func (s *system) token(t *testing.T, userID, role string) string {
	t.Helper()
	tok, err := s.jwt.GenerateToken(userID, role)
	require.NoError(t, err)
	return tok
}

func decode[T any](t *testing.T, env envelope) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(env.Data, &v))
	return v
}

func bookingBody(codes ...string) map[string]any {
	tables := make([]map[string]any, 0, len(codes))
	for _, c := range codes {
		tables = append(tables, map[string]any{"code": c})
	}
	return map[string]any{
		"branchId":       "branch-q1",
		"date":           "2024-01-01",
		"time":           "18:00",
		"numberOfGuests": 4,
		"tables":         tables,
	}
}

// confirmedBooking books codes, fills the cart with two soups and confirms.
func (s *system) confirmedBooking(t *testing.T, token string, codes ...string) domain.Booking {
	t.Helper()
	status, env := s.call(t, http.MethodPost, s.order.URL+"/api/bookings", token, bookingBody(codes...))
	require.Equal(t, http.StatusCreated, status, env.Error.Message)
	b := decode[domain.Booking](t, env)

	status, env = s.call(t, http.MethodPost, s.cart.URL+"/api/cart/"+b.ID+"/items", token,
		map[string]any{"productId": "p1", "name": "Soup", "price": 50000, "quantity": 2})
	require.Equal(t, http.StatusOK, status, env.Error.Message)

	status, env = s.call(t, http.MethodPost, s.order.URL+"/api/bookings/"+b.ID+"/confirm-menu", token, nil)
	require.Equal(t, http.StatusOK, status, env.Error.Message)
	return decode[domain.Booking](t, env)
}

func TestScenario_HappyPath(t *testing.T) {
	sys := startSystem(t)
	token := sys.customer(t)

	b := sys.confirmedBooking(t, token, "B01")
	assert.Equal(t, domain.BookingPendingPayment, b.Status)
	assert.Equal(t, int64(300000), b.BasePrice)
	assert.Equal(t, int64(100000), b.TotalFoodPrice)
	assert.Equal(t, int64(400000), b.TotalPrice)
	require.NotNil(t, b.PaymentExpiresAt)
	assert.Equal(t, sys.clock.Now().Add(15*time.Minute), b.PaymentExpiresAt.UTC())

	status, env := sys.call(t, http.MethodPost, sys.payment.URL+"/api/payments", token, map[string]any{"bookingId": b.ID, "method": "MOCK"})
	require.Equal(t, http.StatusCreated, status, env.Error.Message)
	res := decode[payment.CreatePaymentResult](t, env)
	assert.Equal(t, domain.PaymentRecordSuccess, res.Payment.Status)
	assert.Equal(t, int64(400000), res.Payment.Amount)

	status, env = sys.call(t, http.MethodGet, sys.order.URL+"/api/bookings/"+b.ID, token, nil)
	require.Equal(t, http.StatusOK, status)
	paid := decode[domain.Booking](t, env)
	assert.Equal(t, domain.BookingPaid, paid.Status)
	assert.Equal(t, domain.PaymentPaid, paid.PaymentStatus)

	// a second payment for the same booking is refused
	status, env = sys.call(t, http.MethodPost, sys.payment.URL+"/api/payments", token, map[string]any{"bookingId": b.ID})
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, "BOOKING_ALREADY_PAID", env.Error.Code)
}

func TestScenario_TableConflict(t *testing.T) {
	sys := startSystem(t)
	token := sys.customer(t)

	status, _ := sys.call(t, http.MethodPost, sys.order.URL+"/api/bookings", token, bookingBody("B01"))
	require.Equal(t, http.StatusCreated, status)

	status, env := sys.call(t, http.MethodPost, sys.order.URL+"/api/bookings", token, bookingBody("B01"))
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, "TABLE_CONFLICT", env.Error.Code)

	status, _ = sys.call(t, http.MethodPost, sys.order.URL+"/api/bookings", token, bookingBody("B02"))
	assert.Equal(t, http.StatusCreated, status)
}

func TestScenario_Expiry(t *testing.T) {
	sys := startSystem(t)
	token := sys.customer(t)

	b := sys.confirmedBooking(t, token, "B01")
	sys.clock.Advance(16 * time.Minute)

	res, err := sys.sweeper.SweepOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{b.ID}, res.Expired)

	status, env := sys.call(t, http.MethodGet, sys.order.URL+"/api/bookings/"+b.ID, token, nil)
	require.Equal(t, http.StatusOK, status)
	expired := decode[domain.Booking](t, env)
	assert.Equal(t, domain.BookingCancelled, expired.Status)
	assert.Equal(t, domain.PaymentExpired, expired.PaymentStatus)

	status, env = sys.call(t, http.MethodGet, sys.payment.URL+"/api/payments/booking/"+b.ID, token, nil)
	require.Equal(t, http.StatusOK, status)
	listing := decode[struct {
		Payments []domain.Payment `json:"payments"`
	}](t, env)
	require.Len(t, listing.Payments, 1)
	assert.Equal(t, domain.PaymentRecordExpired, listing.Payments[0].Status)
	assert.Equal(t, int64(400000), listing.Payments[0].Amount)

	status, env = sys.call(t, http.MethodPost, sys.payment.URL+"/api/payments", token, map[string]any{"bookingId": b.ID})
	assert.Equal(t, http.StatusConflict, status)
	assert.Contains(t, env.Error.Message, "quá hạn")

	// the table is free again
	status, _ = sys.call(t, http.MethodPost, sys.order.URL+"/api/bookings", token, bookingBody("B01"))
	assert.Equal(t, http.StatusCreated, status)
}

func TestScenario_TablesChangedAfterPaymentOpened(t *testing.T) {
	sys := startSystem(t)
	token := sys.customer(t)
	staff := sys.token(t, "staff-1", middleware.RoleStaff)
	b := sys.confirmedBooking(t, token, "B01")

	status, env := sys.call(t, http.MethodPost, sys.payment.URL+"/api/payments", token, map[string]any{"bookingId": b.ID, "method": "MOMO"})
	require.Equal(t, http.StatusCreated, status, env.Error.Message)
	opened := decode[payment.CreatePaymentResult](t, env)
	assert.Equal(t, domain.PaymentRecordPending, opened.Payment.Status)
	assert.Equal(t, int64(400000), opened.Payment.Amount)

	status, env = sys.call(t, http.MethodPatch, sys.order.URL+"/api/bookings/"+b.ID+"/table", token, map[string]any{"tables": []map[string]any{{"code": "B02"}}})
	require.Equal(t, http.StatusOK, status, env.Error.Message)
	assert.Equal(t, int64(600000), decode[domain.Booking](t, env).TotalPrice)

	status, env = sys.call(t, http.MethodPost, sys.payment.URL+"/api/payments/complete", staff,
		map[string]any{"bookingId": b.ID, "paymentId": opened.Payment.ID, "resultCode": 0})
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, "AMOUNT_MISMATCH", env.Error.Code)

	status, env = sys.call(t, http.MethodGet, sys.order.URL+"/api/bookings/"+b.ID, token, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, domain.BookingPendingPayment, decode[domain.Booking](t, env).Status)

	// a fresh payment at the new total settles the booking
	status, env = sys.call(t, http.MethodPost, sys.payment.URL+"/api/payments", token, map[string]any{"bookingId": b.ID, "method": "MOCK"})
	require.Equal(t, http.StatusCreated, status, env.Error.Message)
	res := decode[payment.CreatePaymentResult](t, env)
	assert.Equal(t, domain.PaymentRecordSuccess, res.Payment.Status)
	assert.Equal(t, int64(600000), res.Payment.Amount)

	status, env = sys.call(t, http.MethodGet, sys.payment.URL+"/api/payments/booking/"+b.ID, token, nil)
	require.Equal(t, http.StatusOK, status)
	listing := decode[struct {
		Payments []domain.Payment `json:"payments"`
	}](t, env)
	byID := map[string]domain.Payment{}
	for _, p := range listing.Payments {
		byID[p.ID] = p
	}
	assert.Equal(t, domain.PaymentRecordFailed, byID[opened.Payment.ID].Status)
	assert.Equal(t, domain.PaymentRecordSuccess, byID[res.Payment.ID].Status)

	status, env = sys.call(t, http.MethodGet, sys.order.URL+"/api/bookings/"+b.ID, token, nil)
	require.Equal(t, http.StatusOK, status)
	paid := decode[domain.Booking](t, env)
	assert.Equal(t, domain.BookingPaid, paid.Status)
	assert.Equal(t, res.Payment.ID, paid.PaidPaymentID)
}

func TestScenario_StrangerCannotFillAnotherCart(t *testing.T) {
	sys := startSystem(t)
	owner := sys.customer(t)
	stranger := sys.token(t, "user-2", middleware.RoleCustomer)

	status, env := sys.call(t, http.MethodPost, sys.order.URL+"/api/bookings", owner, bookingBody("B01"))
	require.Equal(t, http.StatusCreated, status, env.Error.Message)
	b := decode[domain.Booking](t, env)

	item := map[string]any{"productId": "p1", "name": "Soup", "price": 50000, "quantity": 2}
	status, env = sys.call(t, http.MethodPost, sys.cart.URL+"/api/cart/"+b.ID+"/items", stranger, item)
	assert.Equal(t, http.StatusForbidden, status)
	assert.Equal(t, "FORBIDDEN", env.Error.Code)

	status, env = sys.call(t, http.MethodPost, sys.cart.URL+"/api/cart/missing/items", owner, item)
	assert.Equal(t, http.StatusNotFound, status)

	status, env = sys.call(t, http.MethodPost, sys.cart.URL+"/api/cart/"+b.ID+"/items", owner, item)
	require.Equal(t, http.StatusOK, status, env.Error.Message)
	assert.Equal(t, "user-1", decode[domain.Cart](t, env).UserID)
}

func TestHealthEndpoints(t *testing.T) {
	sys := startSystem(t)
	for _, url := range []string{sys.order.URL, sys.cart.URL, sys.payment.URL} {
		status, env := sys.call(t, http.MethodGet, url+"/api/health", "", nil)
		assert.Equal(t, http.StatusOK, status)
		assert.True(t, env.Success)
	}
}
