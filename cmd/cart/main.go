package main

import (
	"context"
	"log"
	"time"

	"restobook/internal/app"
	"restobook/internal/clients"
	"restobook/internal/config"
	"restobook/internal/database"
	"restobook/internal/modules/cart"
	"restobook/internal/pkg/jwt"
	"restobook/internal/repository"

	"github.com/joho/godotenv"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.LoadCartConfig()
	if err != nil {
		log.Fatal(err)
	}

	var (
		store   cart.Store
		health  *database.HealthCheck
		cleanup []func()
	)
	if cfg.RedisAddr != "" {
		rdb, err := database.NewRedis(context.Background(), database.RedisOptions{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err != nil {
			log.Fatal("redis connection failed: ", err)
		}
		store = repository.NewCartRedisRepository(rdb, "cart:", cfg.CartTTL)
		health = database.NewHealthCheck(database.PingFunc(func(ctx context.Context) error {
			return rdb.Ping(ctx).Err()
		}), 2*time.Second)
		cleanup = append(cleanup, func() { _ = rdb.Close() })
	} else {
		db, err := database.Connect(cfg.DatabaseURL)
		if err != nil {
			log.Fatal("DB connection failed: ", err)
		}
		if err := repository.MigrateCart(db); err != nil {
			log.Fatal("migration failed: ", err)
		}
		if health, err = database.FromGorm(db, 2*time.Second); err != nil {
			log.Fatal(err)
		}
		store = repository.NewCartRepository(db)
	}

	bookings := clients.NewBookingClient(clients.Options{
		BaseURL:     cfg.Order.BaseURL,
		Timeout:     cfg.Order.Timeout,
		ReadRetries: cfg.Order.ReadRetries,
		Token:       cfg.InternalToken,
		Loggerf:     log.Printf,
	})
	router := app.NewCartRouter(app.CartServer{
		Auth:        app.Auth{JWT: jwt.New(cfg.JWTSecret, 24*time.Hour), InternalToken: cfg.InternalToken},
		Carts:       cart.NewService(store, bookings, log.Printf),
		Health:      health,
		CORSOrigins: cfg.CORSOrigins,
	})
	app.Serve("cart", ":"+cfg.Port, router, cleanup...)
}
