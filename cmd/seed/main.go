package main

import (
	"context"
	"flag"
	"log"
	"time"

	"restobook/internal/config"
	"restobook/internal/database"
	"restobook/internal/middleware"
	"restobook/internal/modules/table"
	"restobook/internal/pkg/jwt"
	"restobook/internal/repository"

	"github.com/joho/godotenv"
)

func main() {
	reset := flag.Bool("reset", false, "delete bookings and tables before seeding")
	tokens := flag.Bool("tokens", true, "print demo JWTs for a customer and a staff member")
	flag.Parse()

	_ = godotenv.Load()

	cfg, err := config.LoadOrderConfig()
	if err != nil {
		log.Fatal(err)
	}
	db, err := database.Connect(cfg.DatabaseURL)
	if err != nil {
		log.Fatal("DB connection failed: ", err)
	}
	log.Println("Running migrations...")
	if err := repository.MigrateOrder(db); err != nil {
		log.Fatal("migration failed: ", err)
	}

	if *reset {
		// claims first, they reference bookings
		log.Println("Cleaning old data...")
		for _, stmt := range []string{
			"DELETE FROM booking_table_claims",
			"DELETE FROM bookings",
			"DELETE FROM restaurant_tables",
		} {
			if err := db.Exec(stmt).Error; err != nil {
				log.Fatalf("%s: %v", stmt, err)
			}
		}
	}

	tables := table.NewService(repository.NewTableRepository(db))
	n, err := tables.Seed(context.Background())
	if err != nil {
		log.Fatal("table seed failed: ", err)
	}
	log.Printf("Seed done: %d tables inserted, layout has %d", n, len(table.DefaultLayout()))

	if !*tokens {
		return
	}
	j := jwt.New(cfg.JWTSecret, 7*24*time.Hour)
	for _, demo := range []struct{ user, role string }{
		{"demo-customer", middleware.RoleCustomer},
		{"demo-staff", middleware.RoleStaff},
	} {
		tok, err := j.GenerateToken(demo.user, demo.role)
		if err != nil {
			log.Fatal(err)
		}
		log.Printf("%s (%s): %s", demo.user, demo.role, tok)
	}
}
