package repository

import (
	"restobook/internal/domain"

	"gorm.io/gorm"
)

func MigrateOrder(db *gorm.DB) error {
	return db.AutoMigrate(&tableModel{}, &bookingModel{}, &tableClaimModel{})
}

func MigratePayment(db *gorm.DB) error {
	return db.AutoMigrate(&domain.Payment{})
}

func MigrateCart(db *gorm.DB) error {
	return db.AutoMigrate(&cartItemModel{})
}
