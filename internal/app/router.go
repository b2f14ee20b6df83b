// Package app assembles the gin engines of the three services.
package app

import (
	"net/http"

	"restobook/internal/database"
	"restobook/internal/middleware"
	"restobook/internal/modules/booking"
	"restobook/internal/modules/cart"
	"restobook/internal/modules/payment"
	"restobook/internal/modules/table"
	"restobook/internal/pkg/jwt"
	"restobook/internal/pkg/response"

	"github.com/gin-gonic/gin"
)

// Auth is the identity setup shared by every service.
type Auth struct {
	JWT           *jwt.Service
	InternalToken string
}

type OrderServer struct {
	Auth
	Bookings    *booking.Service
	Hub         *booking.Hub
	Tables      *table.Service
	Health      *database.HealthCheck
	CORSOrigins []string
}

type CartServer struct {
	Auth
	Carts       *cart.Service
	Health      *database.HealthCheck
	CORSOrigins []string
}

type PaymentServer struct {
	Auth
	Payments    *payment.Service
	Health      *database.HealthCheck
	CORSOrigins []string
	Loggerf     func(format string, args ...interface{})
}

func NewOrderRouter(s OrderServer) *gin.Engine {
	r := newEngine(s.CORSOrigins)
	api := r.Group("/api")
	api.GET("/health", healthHandler("order", s.Health))

	authed := api.Group("", middleware.JWTOrInternal(s.JWT, s.InternalToken))
	staff := authed.Group("", middleware.StaffOnly())
	internal := api.Group("", middleware.InternalTokenAuth(s.InternalToken))

	booking.NewHandler(s.Bookings, s.Hub).RegisterRoutes(booking.Routes{
		Public:   api,
		Authed:   authed,
		Staff:    staff,
		Internal: internal,
	})
	table.NewHandler(s.Tables).RegisterRoutes(api, staff)
	return r
}

func NewCartRouter(s CartServer) *gin.Engine {
	r := newEngine(s.CORSOrigins)
	api := r.Group("/api")
	api.GET("/health", healthHandler("cart", s.Health))

	authed := api.Group("", middleware.JWTOrInternal(s.JWT, s.InternalToken))
	cart.NewHandler(s.Carts).RegisterRoutes(authed)
	return r
}

func NewPaymentRouter(s PaymentServer) *gin.Engine {
	r := newEngine(s.CORSOrigins)
	api := r.Group("/api")
	api.GET("/health", healthHandler("payment", s.Health))

	payment.NewHandler(s.Payments, s.Loggerf).RegisterRoutes(payment.Routes{
		Public:   api,
		Authed:   api.Group("", middleware.JWTOrInternal(s.JWT, s.InternalToken)),
		Internal: api.Group("", middleware.InternalTokenAuth(s.InternalToken)),
	})
	return r
}

func newEngine(origins []string) *gin.Engine {
	r := gin.New()
	r.Use(middleware.RequestID())
	if gin.Mode() != gin.TestMode {
		r.Use(gin.Logger())
	}
	r.Use(middleware.ErrorLogger())
	r.Use(middleware.CORS(origins))
	return r
}

func healthHandler(service string, hc *database.HealthCheck) gin.HandlerFunc {
	return func(c *gin.Context) {
		if hc != nil {
			if err := hc.Check(c.Request.Context()); err != nil {
				_ = c.Error(err)
				response.Error(c, http.StatusServiceUnavailable, response.CodeUpstreamUnavailable, "database unreachable")
				return
			}
		}
		response.Success(c, http.StatusOK, gin.H{"service": service, "status": "ok"})
	}
}
