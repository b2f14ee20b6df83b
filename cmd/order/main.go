package main

import (
	"context"
	"log"
	"time"

	"restobook/internal/app"
	"restobook/internal/clients"
	"restobook/internal/config"
	"restobook/internal/database"
	"restobook/internal/events"
	"restobook/internal/modules/booking"
	"restobook/internal/modules/table"
	"restobook/internal/pkg/jwt"
	"restobook/internal/repository"

	"github.com/joho/godotenv"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.LoadOrderConfig()
	if err != nil {
		log.Fatal(err)
	}

	db, err := database.Connect(cfg.DatabaseURL)
	if err != nil {
		log.Fatal("DB connection failed: ", err)
	}
	if err := repository.MigrateOrder(db); err != nil {
		log.Fatal("migration failed: ", err)
	}
	health, err := database.FromGorm(db, 2*time.Second)
	if err != nil {
		log.Fatal(err)
	}

	tables := table.NewService(repository.NewTableRepository(db))
	if cfg.SeedTables {
		if _, err := tables.Seed(context.Background()); err != nil {
			log.Fatal("table seed failed: ", err)
		}
	}

	var publisher events.Publisher = events.LogPublisher{Loggerf: log.Printf}
	var cleanup []func()
	if cfg.RabbitMQURL != "" {
		amqpPub, err := events.NewAMQPPublisher(cfg.RabbitMQURL)
		if err != nil {
			log.Printf("level=warn msg=\"rabbitmq unavailable, events go to the log\" err=%v", err)
		} else {
			publisher = amqpPub
			cleanup = append(cleanup, func() { _ = amqpPub.Close() })
		}
	}

	cartClient := clients.NewCartClient(clients.Options{
		BaseURL:     cfg.Cart.BaseURL,
		Timeout:     cfg.Cart.Timeout,
		ReadRetries: cfg.Cart.ReadRetries,
		Token:       cfg.InternalToken,
		Loggerf:     log.Printf,
	})
	paymentClient := clients.NewPaymentClient(clients.Options{
		BaseURL:     cfg.Payment.BaseURL,
		Timeout:     cfg.Payment.Timeout,
		ReadRetries: cfg.Payment.ReadRetries,
		Token:       cfg.InternalToken,
		Loggerf:     log.Printf,
	})

	hub := booking.NewHub()
	bookings := booking.NewService(repository.NewBookingRepository(db), tables, cartClient, publisher, hub, booking.Options{
		Location:    cfg.Location,
		PaymentHold: cfg.PaymentHold,
		Loggerf:     log.Printf,
	})

	if cfg.SweepEnabled {
		sweeper := booking.NewSweeper(bookings, paymentClient, booking.SweeperConfig{
			Interval: cfg.SweepInterval,
			Grace:    cfg.SweepGrace,
		})
		stop := sweeper.Start(context.Background())
		cleanup = append([]func(){func() { close(stop) }}, cleanup...)
	}

	router := app.NewOrderRouter(app.OrderServer{
		Auth:        app.Auth{JWT: jwt.New(cfg.JWTSecret, 24*time.Hour), InternalToken: cfg.InternalToken},
		Bookings:    bookings,
		Hub:         hub,
		Tables:      tables,
		Health:      health,
		CORSOrigins: cfg.CORSOrigins,
	})
	app.Serve("order", ":"+cfg.Port, router, cleanup...)
}
