package main

import (
	"context"
	"errors"
	"log"
	"time"

	"restobook/internal/app"
	"restobook/internal/clients"
	"restobook/internal/config"
	"restobook/internal/database"
	"restobook/internal/events"
	"restobook/internal/modules/payment"
	"restobook/internal/pkg/jwt"
	"restobook/internal/repository"

	"github.com/joho/godotenv"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.LoadPaymentConfig()
	if err != nil {
		log.Fatal(err)
	}

	db, err := database.Connect(cfg.DatabaseURL)
	if err != nil {
		log.Fatal("DB connection failed: ", err)
	}
	if err := repository.MigratePayment(db); err != nil {
		log.Fatal("migration failed: ", err)
	}
	health, err := database.FromGorm(db, 2*time.Second)
	if err != nil {
		log.Fatal(err)
	}

	opts := payment.Options{
		Gateways: []payment.Gateway{payment.MockGateway{}},
		Loggerf:  log.Printf,
	}
	if cfg.Momo.Enabled() {
		momo := payment.NewMomoGateway(payment.MomoOptions{
			Endpoint:    cfg.Momo.Endpoint,
			PartnerCode: cfg.Momo.PartnerCode,
			AccessKey:   cfg.Momo.AccessKey,
			SecretKey:   cfg.Momo.SecretKey,
			RedirectURL: cfg.Momo.RedirectURL,
			IPNURL:      cfg.Momo.IPNURL,
			Timeout:     cfg.Momo.Timeout,
		})
		opts.Gateways = append(opts.Gateways, momo)
		opts.IPN = momo
	}

	bookingClient := clients.NewBookingClient(clients.Options{
		BaseURL:     cfg.Order.BaseURL,
		Timeout:     cfg.Order.Timeout,
		ReadRetries: cfg.Order.ReadRetries,
		Token:       cfg.InternalToken,
		Loggerf:     log.Printf,
	})
	svc := payment.NewService(repository.NewPaymentRepository(db), bookingClient, opts)

	ctx, cancel := context.WithCancel(context.Background())
	if cfg.RabbitMQURL != "" {
		consumer := events.NewConsumer(cfg.RabbitMQURL, events.PaymentQueue, svc.BookingCreatedHandler())
		go func() {
			if err := consumer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				log.Printf("booking consumer stopped: %v", err)
			}
		}()
	}

	router := app.NewPaymentRouter(app.PaymentServer{
		Auth:        app.Auth{JWT: jwt.New(cfg.JWTSecret, 24*time.Hour), InternalToken: cfg.InternalToken},
		Payments:    svc,
		Health:      health,
		CORSOrigins: cfg.CORSOrigins,
		Loggerf:     log.Printf,
	})
	app.Serve("payment", ":"+cfg.Port, router, cancel)
}
