package repository

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

var (
	ErrNotFound       = errors.New("record not found")
	ErrTableClaimed   = errors.New("table already claimed for this slot")
	ErrStateChanged   = errors.New("state changed concurrently")
	ErrDuplicateTable = errors.New("table code already exists on this floor")
)

func claimedError(codes []string) error {
	sorted := append([]string(nil), codes...)
	sort.Strings(sorted)
	return fmt.Errorf("%w: %s", ErrTableClaimed, strings.Join(sorted, ", "))
}

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}

func isUniqueConstraintError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return true
	}

	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "duplicate") || strings.Contains(msg, "unique constraint") || strings.Contains(msg, "unique failed")
}
