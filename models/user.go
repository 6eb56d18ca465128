package models

import (
	"time"
)

// UserRole defines allowed roles in the system
type UserRole string

const (
	RoleCustomer UserRole = "customer"
	RoleCook     UserRole = "cook"
)

// Valid reports whether r is one of the known roles
func (r UserRole) Valid() bool {
	return r == RoleCustomer || r == RoleCook
}

type User struct {
	ID           uint      `json:"id" gorm:"primaryKey"`
	Email        string    `json:"email" gorm:"uniqueIndex;not null"`
	PasswordHash string    `json:"-" gorm:"not null"`
	Role         UserRole  `json:"role" gorm:"not null;default:'customer'"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// CustomerProfile lives in the customer partition of the profile store
type CustomerProfile struct {
	UserID    uint      `json:"user_id" gorm:"primaryKey"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	Address   string    `json:"address"`
	Phone     string    `json:"phone"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// CookProfile lives in the cook partition of the profile store
type CookProfile struct {
	UserID     uint      `json:"user_id" gorm:"primaryKey"`
	Email      string    `json:"email"`
	CookerName string    `json:"cooker_name" gorm:"not null"`
	Cuisine    string    `json:"cuisine" gorm:"not null"`
	Address    string    `json:"address"`
	Phone      string    `json:"phone"`
	CookSpotID *string   `json:"cook_spot_id"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}
