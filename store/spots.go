// Package store persists the marketplace in a SQL database through gorm
// and publishes change signals for the realtime cook spot feed.
package store

import (
	"context"
	"errors"
	"fmt"
	"math"

	"homecook-api/catalog"
	"homecook-api/models"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

var (
	ErrNotFound          = errors.New("record not found")
	ErrUnknownCollection = errors.New("unknown collection")
)

// SpotRepository reads and writes cook spots, their reviews and menus.
// Every write signals the cook spot collection as changed.
type SpotRepository struct {
	db       *gorm.DB
	notifier Notifier
	log      logrus.FieldLogger
}

func NewSpotRepository(db *gorm.DB, notifier Notifier, log logrus.FieldLogger) *SpotRepository {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &SpotRepository{db: db, notifier: notifier, log: log}
}

func withReviews(db *gorm.DB) *gorm.DB {
	return db.Order("created_at asc")
}

// List returns every cook spot with its reviews and menu
func (r *SpotRepository) List(ctx context.Context) ([]models.CookSpot, error) {
	var spots []models.CookSpot
	err := r.db.WithContext(ctx).
		Preload("Reviews", withReviews).
		Preload("MenuItems", withReviews).
		Order("created_at asc").
		Find(&spots).Error
	if err != nil {
		return nil, fmt.Errorf("list cook spots: %w", err)
	}
	return spots, nil
}

func (r *SpotRepository) Get(ctx context.Context, id string) (*models.CookSpot, error) {
	var spot models.CookSpot
	err := r.db.WithContext(ctx).
		Preload("Reviews", withReviews).
		Preload("MenuItems", withReviews).
		First(&spot, "id = ?", id).Error
	if err != nil {
		return nil, notFound(err, "cook spot %s", id)
	}
	return &spot, nil
}

// GetByOwner returns the cook spot run by a cook account
func (r *SpotRepository) GetByOwner(ctx context.Context, ownerID uint) (*models.CookSpot, error) {
	var spot models.CookSpot
	err := r.db.WithContext(ctx).Preload("MenuItems").Where("owner_id = ?", ownerID).First(&spot).Error
	if err != nil {
		return nil, notFound(err, "cook spot of user %d", ownerID)
	}
	return &spot, nil
}

func (r *SpotRepository) Create(ctx context.Context, spot *models.CookSpot) error {
	if spot.ID == "" {
		spot.ID = uuid.NewString()
	}
	for i := range spot.Reviews {
		prepareReview(spot.ID, &spot.Reviews[i])
	}
	for i := range spot.MenuItems {
		prepareMenuItem(spot.ID, &spot.MenuItems[i])
	}
	if err := r.db.WithContext(ctx).Create(spot).Error; err != nil {
		return fmt.Errorf("create cook spot: %w", err)
	}
	r.changed(ctx)
	return nil
}

// Update applies the whitelisted fields to a cook spot
func (r *SpotRepository) Update(ctx context.Context, id string, fields map[string]interface{}) (*models.CookSpot, error) {
	allowed := map[string]bool{
		"name": true, "chef": true, "cuisine": true, "description": true,
		"price_range": true, "latitude": true, "longitude": true,
	}
	update := map[string]interface{}{}
	for k, v := range fields {
		if allowed[k] {
			update[k] = v
		}
	}

	spot, err := r.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if len(update) > 0 {
		if err := r.db.WithContext(ctx).Model(spot).Updates(update).Error; err != nil {
			return nil, fmt.Errorf("update cook spot %s: %w", id, err)
		}
		r.changed(ctx)
	}
	return r.Get(ctx, id)
}

// AddReview stores a review and refreshes the spot's average rating
func (r *SpotRepository) AddReview(ctx context.Context, spotID string, review *models.Review) error {
	prepareReview(spotID, review)
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var spot models.CookSpot
		if err := tx.First(&spot, "id = ?", spotID).Error; err != nil {
			return notFound(err, "cook spot %s", spotID)
		}
		if err := tx.Create(review).Error; err != nil {
			return err
		}
		var avg float64
		if err := tx.Model(&models.Review{}).
			Where("cook_spot_id = ?", spotID).
			Select("COALESCE(AVG(rating), 0)").
			Scan(&avg).Error; err != nil {
			return err
		}
		return tx.Model(&spot).Update("rating", math.Round(avg*10)/10).Error
	})
	if err != nil {
		return fmt.Errorf("add review: %w", err)
	}
	r.changed(ctx)
	return nil
}

func (r *SpotRepository) AddMenuItem(ctx context.Context, spotID string, item *models.MenuItem) error {
	prepareMenuItem(spotID, item)
	if err := r.db.WithContext(ctx).Create(item).Error; err != nil {
		return fmt.Errorf("add menu item: %w", err)
	}
	r.changed(ctx)
	return nil
}

// Menu returns a cook spot's menu, optionally only what is available today
func (r *SpotRepository) Menu(ctx context.Context, spotID string, availableOnly bool) ([]models.MenuItem, error) {
	var items []models.MenuItem
	query := r.db.WithContext(ctx).Where("cook_spot_id = ?", spotID)
	if availableOnly {
		query = query.Where("is_available = ?", true)
	}
	if err := query.Order("created_at asc").Find(&items).Error; err != nil {
		return nil, fmt.Errorf("menu of %s: %w", spotID, err)
	}
	return items, nil
}

func (r *SpotRepository) MenuItem(ctx context.Context, id string) (*models.MenuItem, error) {
	var item models.MenuItem
	if err := r.db.WithContext(ctx).First(&item, "id = ?", id).Error; err != nil {
		return nil, notFound(err, "menu item %s", id)
	}
	return &item, nil
}

// changed signals subscribers. A lost signal only delays freshness, so it
// is logged rather than failing the write that already committed.
func (r *SpotRepository) changed(ctx context.Context) {
	if r.notifier == nil {
		return
	}
	if err := r.notifier.Notify(ctx, catalog.DefaultCollection); err != nil {
		r.log.WithError(err).Warn("Change notification failed")
	}
}

func prepareReview(spotID string, review *models.Review) {
	if review.ID == "" {
		review.ID = uuid.NewString()
	}
	review.CookSpotID = spotID
}

func prepareMenuItem(spotID string, item *models.MenuItem) {
	if item.ID == "" {
		item.ID = uuid.NewString()
	}
	item.CookSpotID = spotID
}

func notFound(err error, format string, args ...interface{}) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf(format+": %w", append(args, ErrNotFound)...)
	}
	return fmt.Errorf(format+": %w", append(args, err)...)
}
