package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"homecook-api/catalog"
	"homecook-api/models"
	"homecook-api/statemachine"

	"github.com/glebarez/sqlite"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "homecook.db")), &gorm.Config{
		Logger: logger.Discard,
	})
	require.NoError(t, err)
	require.NoError(t, AutoMigrate(db))
	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })
	return db
}

func newTestRepo(t *testing.T) (*SpotRepository, *LocalNotifier) {
	t.Helper()
	log, _ := test.NewNullLogger()
	n := NewLocalNotifier()
	return NewSpotRepository(newTestDB(t), n, log), n
}

func waitSignal(t *testing.T, ch <-chan struct{}) {
	t.Helper()
	select {
	case <-ch:
	case <-time.After(2 * time.Second):
		t.Fatal("no change signal")
	}
}

func TestSeedWritesSampleSpotsOnce(t *testing.T) {
	repo, _ := newTestRepo(t)
	ctx := context.Background()

	n, err := Seed(ctx, repo)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	n, err = Seed(ctx, repo)
	require.NoError(t, err)
	assert.Zero(t, n)

	spots, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, spots, 3)
	for _, s := range spots {
		assert.NotEmpty(t, s.ID)
		assert.Len(t, s.Reviews, 3)
		require.Len(t, s.MenuItems, 4)
	}

	menu, err := repo.Menu(ctx, spots[0].ID, false)
	require.NoError(t, err)
	unavailable := 0
	for _, m := range menu {
		if !m.IsAvailable {
			unavailable++
			assert.Nil(t, m.ImageURL)
		}
	}
	assert.Equal(t, 1, unavailable)

	available, err := repo.Menu(ctx, spots[0].ID, true)
	require.NoError(t, err)
	assert.Len(t, available, 3)
}

func TestSpotWritesNotify(t *testing.T) {
	repo, n := newTestRepo(t)
	ctx := context.Background()
	signals, stop, err := n.Listen(ctx, catalog.DefaultCollection)
	require.NoError(t, err)
	defer stop()

	spot := &models.CookSpot{Name: "Test Kitchen", Latitude: 25, Longitude: 121.5}
	require.NoError(t, repo.Create(ctx, spot))
	assert.NotEmpty(t, spot.ID)
	waitSignal(t, signals)

	require.NoError(t, repo.AddMenuItem(ctx, spot.ID, &models.MenuItem{Name: "Dumplings", Price: 90, IsAvailable: true}))
	waitSignal(t, signals)

	updated, err := repo.Update(ctx, spot.ID, map[string]interface{}{"name": "Renamed", "rating": 5.0})
	require.NoError(t, err)
	assert.Equal(t, "Renamed", updated.Name)
	assert.Zero(t, updated.Rating, "rating is not directly writable")
	waitSignal(t, signals)
}

func TestAddReviewRecomputesRating(t *testing.T) {
	repo, _ := newTestRepo(t)
	ctx := context.Background()
	spot := &models.CookSpot{Name: "Test Kitchen", Latitude: 25, Longitude: 121.5}
	require.NoError(t, repo.Create(ctx, spot))

	require.NoError(t, repo.AddReview(ctx, spot.ID, &models.Review{UserName: "a", Rating: 5}))
	require.NoError(t, repo.AddReview(ctx, spot.ID, &models.Review{UserName: "b", Rating: 4}))
	require.NoError(t, repo.AddReview(ctx, spot.ID, &models.Review{UserName: "c", Rating: 4}))

	got, err := repo.Get(ctx, spot.ID)
	require.NoError(t, err)
	assert.Equal(t, 4.3, got.Rating)
	assert.Len(t, got.Reviews, 3)

	err = repo.AddReview(ctx, "missing", &models.Review{UserName: "d", Rating: 1})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestGetMissingSpot(t *testing.T) {
	repo, _ := newTestRepo(t)
	_, err := repo.Get(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = repo.MenuItem(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrNotFound)
}

func sampleOrder(customerID uint, spotID string) *models.Order {
	return &models.Order{
		CustomerID:    customerID,
		TotalPrice:    560,
		DeliveryFee:   60,
		FinalAmount:   620,
		Address:       "No. 7, Xinyi Rd",
		Contact:       "0912",
		PaymentMethod: models.PaymentCashOnDelivery,
		Status:        models.StatusPending,
		Items: []models.OrderItem{
			{MenuItemID: "m1", CookSpotID: spotID, Name: "Braised pork", Price: 280, Quantity: 2, Total: 560},
		},
	}
}

func TestSubmitOrderAssignsIdentityAndHistory(t *testing.T) {
	db := newTestDB(t)
	log, _ := test.NewNullLogger()
	orders := NewOrderStore(db, log)
	ctx := context.Background()

	order := sampleOrder(7, "spot-a")
	require.NoError(t, orders.SubmitOrder(ctx, order))
	assert.NotEmpty(t, order.ID)
	assert.False(t, order.Timestamp.IsZero())

	got, err := orders.GetForCustomer(ctx, 7, order.ID)
	require.NoError(t, err)
	assert.Equal(t, 620.0, got.FinalAmount)
	require.Len(t, got.Items, 1)
	assert.Equal(t, 2, got.Items[0].Quantity)
	require.Len(t, got.StatusHistory, 1)
	assert.Equal(t, models.StatusPending, got.StatusHistory[0].ToStatus)

	_, err = orders.GetForCustomer(ctx, 8, order.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	list, err := orders.ListForCustomer(ctx, 7)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestOrdersForCookSpotAndTransitions(t *testing.T) {
	db := newTestDB(t)
	log, _ := test.NewNullLogger()
	orders := NewOrderStore(db, log)
	ctx := context.Background()

	mine := sampleOrder(1, "spot-a")
	other := sampleOrder(1, "spot-b")
	require.NoError(t, orders.SubmitOrder(ctx, mine))
	require.NoError(t, orders.SubmitOrder(ctx, other))

	list, err := orders.ListForCookSpot(ctx, "spot-a", "")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, mine.ID, list[0].ID)

	_, err = orders.GetForCookSpot(ctx, "spot-a", other.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	order, err := orders.GetForCookSpot(ctx, "spot-a", mine.ID)
	require.NoError(t, err)

	_, err = orders.Transition(ctx, order, models.StatusDelivered, statemachine.ActorCook, 99, "")
	assert.ErrorIs(t, err, ErrInvalidTransition)

	from, err := orders.Transition(ctx, order, models.StatusAccepted, statemachine.ActorCook, 99, "on it")
	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, from)
	assert.Equal(t, models.StatusAccepted, order.Status)

	stale := *order
	stale.Status = models.StatusPending
	_, err = orders.Transition(ctx, &stale, models.StatusCancelled, statemachine.ActorCustomer, 1, "")
	assert.ErrorIs(t, err, ErrStatusChanged)

	accepted, err := orders.ListForCookSpot(ctx, "spot-a", models.StatusAccepted)
	require.NoError(t, err)
	assert.Len(t, accepted, 1)

	detail, err := orders.GetForCustomer(ctx, 1, mine.ID)
	require.NoError(t, err)
	require.Len(t, detail.StatusHistory, 2)
	assert.Equal(t, "on it", detail.StatusHistory[1].Note)
}

func TestPrefill(t *testing.T) {
	db := newTestDB(t)
	profiles := NewProfileStore(db)
	ctx := context.Background()

	_, found, err := profiles.Prefill(ctx, 1, models.RoleCustomer)
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, profiles.CreateCustomer(ctx, nil, &models.CustomerProfile{
		UserID: 1, Name: "Mei", Address: "Xinyi Rd", Phone: "0912",
	}))
	p, found, err := profiles.Prefill(ctx, 1, models.RoleCustomer)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, Prefill{Name: "Mei", Address: "Xinyi Rd", Contact: "0912"}, p)

	// profiles are partitioned by role
	_, found, err = profiles.Prefill(ctx, 1, models.RoleCook)
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, profiles.CreateCook(ctx, nil, &models.CookProfile{UserID: 2, CookerName: "Lin", Cuisine: "Taiwanese"}))
	require.NoError(t, profiles.LinkCookSpot(ctx, 2, "spot-a"))
	cook, err := profiles.Cook(ctx, 2)
	require.NoError(t, err)
	require.NotNil(t, cook.CookSpotID)
	assert.Equal(t, "spot-a", *cook.CookSpotID)

	assert.ErrorIs(t, profiles.LinkCookSpot(ctx, 3, "spot-a"), ErrNotFound)
}
