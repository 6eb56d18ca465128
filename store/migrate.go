package store

import (
	"homecook-api/models"

	"gorm.io/gorm"
)

// AutoMigrate creates or updates every table the API uses
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.User{},
		&models.CustomerProfile{},
		&models.CookProfile{},
		&models.CookSpot{},
		&models.Review{},
		&models.MenuItem{},
		&models.Order{},
		&models.OrderItem{},
		&models.OrderStatusHistory{},
	)
}
