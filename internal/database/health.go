package database

import (
	"context"
	"database/sql"
	"time"

	"gorm.io/gorm"
)

// Pinger is satisfied by *sql.DB.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// PingFunc adapts a plain ping, such as a redis client's, to Pinger.
type PingFunc func(ctx context.Context) error

func (f PingFunc) PingContext(ctx context.Context) error { return f(ctx) }

// HealthCheck pings the underlying pool with a short deadline.
type HealthCheck struct {
	db      Pinger
	timeout time.Duration
}

func NewHealthCheck(db Pinger, timeout time.Duration) *HealthCheck {
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	return &HealthCheck{db: db, timeout: timeout}
}

// FromGorm unwraps the pool behind a gorm handle.
func FromGorm(db *gorm.DB, timeout time.Duration) (*HealthCheck, error) {
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	return NewHealthCheck(sqlDB, timeout), nil
}

func (h *HealthCheck) Check(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()
	return h.db.PingContext(ctx)
}

var _ Pinger = (*sql.DB)(nil)
