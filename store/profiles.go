package store

import (
	"context"
	"errors"
	"fmt"

	"homecook-api/models"

	"gorm.io/gorm"
)

// Prefill is what the checkout form is pre-populated with
type Prefill struct {
	Name    string `json:"name"`
	Address string `json:"address"`
	Contact string `json:"contact"`
}

// ProfileStore keeps role-partitioned user profiles
type ProfileStore struct {
	db *gorm.DB
}

func NewProfileStore(db *gorm.DB) *ProfileStore {
	return &ProfileStore{db: db}
}

func (s *ProfileStore) CreateCustomer(ctx context.Context, tx *gorm.DB, p *models.CustomerProfile) error {
	if err := s.conn(ctx, tx).Create(p).Error; err != nil {
		return fmt.Errorf("create customer profile: %w", err)
	}
	return nil
}

func (s *ProfileStore) CreateCook(ctx context.Context, tx *gorm.DB, p *models.CookProfile) error {
	if err := s.conn(ctx, tx).Create(p).Error; err != nil {
		return fmt.Errorf("create cook profile: %w", err)
	}
	return nil
}

func (s *ProfileStore) Customer(ctx context.Context, userID uint) (*models.CustomerProfile, error) {
	var p models.CustomerProfile
	if err := s.db.WithContext(ctx).First(&p, "user_id = ?", userID).Error; err != nil {
		return nil, notFound(err, "customer profile %d", userID)
	}
	return &p, nil
}

func (s *ProfileStore) Cook(ctx context.Context, userID uint) (*models.CookProfile, error) {
	var p models.CookProfile
	if err := s.db.WithContext(ctx).First(&p, "user_id = ?", userID).Error; err != nil {
		return nil, notFound(err, "cook profile %d", userID)
	}
	return &p, nil
}

// Prefill reads the profile from the role's table. A missing profile is
// not an error: found is false and the form stays empty.
func (s *ProfileStore) Prefill(ctx context.Context, userID uint, role models.UserRole) (Prefill, bool, error) {
	var (
		p   Prefill
		err error
	)
	switch role {
	case models.RoleCustomer:
		var c *models.CustomerProfile
		if c, err = s.Customer(ctx, userID); err == nil {
			p = Prefill{Name: c.Name, Address: c.Address, Contact: c.Phone}
		}
	case models.RoleCook:
		var c *models.CookProfile
		if c, err = s.Cook(ctx, userID); err == nil {
			p = Prefill{Name: c.CookerName, Address: c.Address, Contact: c.Phone}
		}
	default:
		return Prefill{}, false, nil
	}
	if errors.Is(err, ErrNotFound) {
		return Prefill{}, false, nil
	}
	if err != nil {
		return Prefill{}, false, err
	}
	return p, true, nil
}

// LinkCookSpot records which spot a cook runs
func (s *ProfileStore) LinkCookSpot(ctx context.Context, userID uint, spotID string) error {
	res := s.db.WithContext(ctx).Model(&models.CookProfile{}).Where("user_id = ?", userID).Update("cook_spot_id", spotID)
	if res.Error != nil {
		return fmt.Errorf("link cook spot: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("cook profile %d: %w", userID, ErrNotFound)
	}
	return nil
}

func (s *ProfileStore) conn(ctx context.Context, tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx.WithContext(ctx)
	}
	return s.db.WithContext(ctx)
}
