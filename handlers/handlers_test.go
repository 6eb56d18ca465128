package handlers_test

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"homecook-api/auth"
	"homecook-api/catalog"
	"homecook-api/handlers"
	"homecook-api/models"
	"homecook-api/routes"
	"homecook-api/session"
	"homecook-api/store"

	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type testAPI struct {
	t        *testing.T
	router   *gin.Engine
	spots    *store.SpotRepository
	catalog  *catalog.Sync
	sessions *session.Registry
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "api.db")), &gorm.Config{Logger: logger.Discard})
	require.NoError(t, err)
	require.NoError(t, store.AutoMigrate(db))
	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	log, _ := test.NewNullLogger()
	notifier := store.NewLocalNotifier()
	spots := store.NewSpotRepository(db, notifier, log)
	_, err = store.Seed(context.Background(), spots)
	require.NoError(t, err)
	orders := store.NewOrderStore(db, log)
	profiles := store.NewProfileStore(db)

	cs := catalog.NewSync(store.NewSpotFeed(spots, notifier, log), catalog.Options{Logger: log})
	require.NoError(t, cs.Start(context.Background()))
	t.Cleanup(cs.Close)
	require.Eventually(t, func() bool { return cs.State().Phase == catalog.PhaseReady }, 2*time.Second, 10*time.Millisecond)

	authService := auth.NewService(db, profiles, auth.Options{
		Secret:     []byte("handler-test-secret"),
		BcryptCost: bcrypt.MinCost,
		Logger:     log,
	})
	sessions := session.NewRegistry(cs, orders, session.Options{Logger: log})
	sessions.Watch(authService)
	t.Cleanup(sessions.Close)

	h := handlers.New(handlers.Deps{
		Auth:     authService,
		Profiles: profiles,
		Spots:    spots,
		Orders:   orders,
		Catalog:  cs,
		Sessions: sessions,
		Logger:   log,
	})
	r := gin.New()
	routes.SetupRoutes(r, h, authService)
	return &testAPI{t: t, router: r, spots: spots, catalog: cs, sessions: sessions}
}

func (a *testAPI) do(method, path, token string, body interface{}) (int, map[string]interface{}) {
	a.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(a.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)

	out := map[string]interface{}{}
	if w.Body.Len() > 0 {
		require.NoError(a.t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	}
	return w.Code, out
}

func (a *testAPI) register(email string, role models.UserRole, extra map[string]interface{}) (string, uint) {
	a.t.Helper()
	body := map[string]interface{}{"email": email, "password": "secret1", "role": role}
	for k, v := range extra {
		body[k] = v
	}
	code, out := a.do(http.MethodPost, "/api/auth/register", "", body)
	require.Equal(a.t, http.StatusCreated, code, out)
	user := out["user"].(map[string]interface{})
	return out["token"].(string), uint(user["id"].(float64))
}

// menuItem returns a seeded dish with the given price
func (a *testAPI) menuItem(price float64, available bool) models.MenuItem {
	a.t.Helper()
	spots, err := a.spots.List(context.Background())
	require.NoError(a.t, err)
	for _, m := range spots[0].MenuItems {
		if m.Price == price && m.IsAvailable == available {
			return m
		}
	}
	a.t.Fatalf("no seeded menu item priced %v", price)
	return models.MenuItem{}
}

func cartTotals(t *testing.T, out map[string]interface{}) (float64, float64) {
	t.Helper()
	c := out["cart"].(map[string]interface{})
	return c["total_quantity"].(float64), c["total_price"].(float64)
}

func TestPublicCatalog(t *testing.T) {
	api := newTestAPI(t)

	code, out := api.do(http.MethodGet, "/api/cookspots", "", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "ready", out["phase"])
	assert.Equal(t, 3.0, out["count"])

	code, out = api.do(http.MethodGet, "/api/cookspots?cuisine=sichuan", "", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, 1.0, out["count"])

	spot := api.catalog.Spots()[0]
	code, out = api.do(http.MethodGet, "/api/cookspots/"+spot.ID, "", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Len(t, out["positive_reviews"], 2)

	code, out = api.do(http.MethodGet, "/api/cookspots/"+spot.ID+"/menu?available=true", "", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, 3.0, out["count"])

	code, _ = api.do(http.MethodGet, "/api/cookspots/missing", "", nil)
	assert.Equal(t, http.StatusNotFound, code)

	code, out = api.do(http.MethodGet, "/api/state-machine", "", nil)
	require.Equal(t, http.StatusOK, code)
	assert.ElementsMatch(t, []interface{}{"Delivered", "Cancelled"}, out["terminal_states"])
}

func TestCartAndCheckout(t *testing.T) {
	api := newTestAPI(t)
	token, _ := api.register("mei@example.com", models.RoleCustomer, map[string]interface{}{
		"name": "Mei", "address": "No. 7, Xinyi Rd", "phone": "0912",
	})
	pork := api.menuItem(280, true)
	greens := api.menuItem(120, false)

	code, out := api.do(http.MethodGet, "/api/checkout/prefill", token, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, true, out["found"])
	assert.Equal(t, "No. 7, Xinyi Rd", out["prefill"].(map[string]interface{})["address"])

	code, out = api.do(http.MethodPost, "/api/checkout", token, map[string]string{"address": "X", "contact": "Y"})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "Your cart is empty", out["error"])

	code, _ = api.do(http.MethodPost, "/api/cart/items", token, map[string]interface{}{"menu_item_id": greens.ID})
	assert.Equal(t, http.StatusBadRequest, code, "unavailable dish")
	code, _ = api.do(http.MethodPost, "/api/cart/items", token, map[string]interface{}{"menu_item_id": pork.ID, "quantity": 0})
	assert.Equal(t, http.StatusBadRequest, code)
	code, _ = api.do(http.MethodPost, "/api/cart/items", token, map[string]interface{}{"menu_item_id": "missing"})
	assert.Equal(t, http.StatusNotFound, code)

	code, out = api.do(http.MethodPost, "/api/cart/items", token, map[string]interface{}{"menu_item_id": pork.ID, "quantity": 2})
	require.Equal(t, http.StatusOK, code)
	qty, total := cartTotals(t, out)
	assert.Equal(t, 2.0, qty)
	assert.Equal(t, 560.0, total)

	code, out = api.do(http.MethodPost, "/api/checkout", token, map[string]string{"address": "  ", "contact": "0912"})
	require.Equal(t, http.StatusBadRequest, code)
	assert.NotEmpty(t, out["fields"])

	code, out = api.do(http.MethodPost, "/api/checkout", token, map[string]string{
		"address": "No. 7, Xinyi Rd", "contact": "0912", "paymentMethod": "line_pay",
	})
	require.Equal(t, http.StatusCreated, code, out)
	assert.NotEmpty(t, out["order_id"])
	order := out["order"].(map[string]interface{})
	assert.Equal(t, 560.0, order["totalPrice"])
	assert.Equal(t, 60.0, order["deliveryFee"])
	assert.Equal(t, 620.0, order["finalAmount"])
	assert.Equal(t, "line_pay", order["paymentMethod"])
	assert.Equal(t, "Pending", order["status"])

	code, out = api.do(http.MethodGet, "/api/cart", token, nil)
	require.Equal(t, http.StatusOK, code)
	qty, total = cartTotals(t, out)
	assert.Zero(t, qty)
	assert.Zero(t, total)

	code, out = api.do(http.MethodGet, "/api/checkout/state", token, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "succeeded", out["checkout"].(map[string]interface{})["state"])

	code, out = api.do(http.MethodGet, "/api/customer/orders", token, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, 1.0, out["count"])
}

func TestCartLineEdits(t *testing.T) {
	api := newTestAPI(t)
	token, _ := api.register("mei@example.com", models.RoleCustomer, nil)
	pork := api.menuItem(280, true)
	soup := api.menuItem(320, true)

	api.do(http.MethodPost, "/api/cart/items", token, map[string]interface{}{"menu_item_id": pork.ID})
	_, out := api.do(http.MethodPost, "/api/cart/items", token, map[string]interface{}{"menu_item_id": soup.ID})
	lines := out["cart"].(map[string]interface{})["lines"].([]interface{})
	require.Len(t, lines, 2)
	porkLine := lines[0].(map[string]interface{})["id"].(string)

	code, out := api.do(http.MethodPut, "/api/cart/lines/"+porkLine, token, map[string]int{"quantity": 3})
	require.Equal(t, http.StatusOK, code)
	_, total := cartTotals(t, out)
	assert.Equal(t, 1160.0, total)

	code, out = api.do(http.MethodPut, "/api/cart/lines/"+porkLine, token, map[string]int{"quantity": 0})
	require.Equal(t, http.StatusOK, code)
	_, total = cartTotals(t, out)
	assert.Equal(t, 320.0, total)

	code, out = api.do(http.MethodDelete, "/api/cart", token, nil)
	require.Equal(t, http.StatusOK, code)
	_, total = cartTotals(t, out)
	assert.Zero(t, total)
}

func TestCookOrderLifecycle(t *testing.T) {
	api := newTestAPI(t)
	cookToken, _ := api.register("lin@example.com", models.RoleCook, map[string]interface{}{
		"cooker_name": "Lin", "cuisine": "Taiwanese",
	})
	customerToken, _ := api.register("mei@example.com", models.RoleCustomer, nil)

	code, _ := api.do(http.MethodPost, "/api/cook/menu", cookToken, map[string]interface{}{"name": "Rice", "price": 20})
	assert.Equal(t, http.StatusNotFound, code, "menu needs a spot first")

	code, _ = api.do(http.MethodPost, "/api/cook/spot", cookToken, map[string]interface{}{
		"name": "   ", "latitude": 25.04, "longitude": 121.56,
	})
	assert.Equal(t, http.StatusBadRequest, code, "blank spot name")

	code, out := api.do(http.MethodPost, "/api/cook/spot", cookToken, map[string]interface{}{
		"name": "Lin's Kitchen", "latitude": 25.04, "longitude": 121.56,
	})
	require.Equal(t, http.StatusCreated, code, out)
	assert.Equal(t, "Lin", out["cookspot"].(map[string]interface{})["chef"])

	code, _ = api.do(http.MethodPost, "/api/cook/spot", cookToken, map[string]interface{}{
		"name": "Second", "latitude": 25.04, "longitude": 121.56,
	})
	assert.Equal(t, http.StatusConflict, code)

	code, out = api.do(http.MethodPost, "/api/cook/menu", cookToken, map[string]interface{}{"name": "Beef noodles", "price": 150})
	require.Equal(t, http.StatusCreated, code, out)
	itemID := out["item"].(map[string]interface{})["id"].(string)

	code, _ = api.do(http.MethodGet, "/api/cart", cookToken, nil)
	assert.Equal(t, http.StatusForbidden, code, "cooks have no cart")

	api.do(http.MethodPost, "/api/cart/items", customerToken, map[string]interface{}{"menu_item_id": itemID, "quantity": 2})
	code, out = api.do(http.MethodPost, "/api/checkout", customerToken, map[string]string{"address": "X", "contact": "Y"})
	require.Equal(t, http.StatusCreated, code, out)
	orderID := out["order_id"].(string)

	code, out = api.do(http.MethodGet, "/api/cook/orders", cookToken, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, 1.0, out["count"])

	code, out = api.do(http.MethodPut, "/api/cook/orders/"+orderID+"/status", cookToken, map[string]string{"status": "Delivered"})
	assert.Equal(t, http.StatusUnprocessableEntity, code)
	assert.Equal(t, []interface{}{"Accepted", "Cancelled"}, out["valid_next_states"])

	code, out = api.do(http.MethodPut, "/api/cook/orders/"+orderID+"/status", cookToken, map[string]string{"status": "Accepted"})
	require.Equal(t, http.StatusOK, code, out)
	assert.Equal(t, "Pending", out["previous_status"])

	code, _ = api.do(http.MethodPut, "/api/customer/orders/"+orderID+"/cancel", customerToken, nil)
	require.Equal(t, http.StatusOK, code)

	code, _ = api.do(http.MethodPut, "/api/cook/orders/"+orderID+"/status", cookToken, map[string]string{"status": "Preparing"})
	assert.Equal(t, http.StatusUnprocessableEntity, code)

	code, out = api.do(http.MethodGet, "/api/customer/orders/"+orderID, customerToken, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Len(t, out["order"].(map[string]interface{})["statusHistory"], 3)
}

func TestNearbyFollowsLocation(t *testing.T) {
	api := newTestAPI(t)
	token, _ := api.register("mei@example.com", models.RoleCustomer, nil)

	code, out := api.do(http.MethodGet, "/api/nearby", token, nil)
	require.Equal(t, http.StatusOK, code)
	nearby := out["nearby"].(map[string]interface{})
	assert.Equal(t, false, nearby["has_fix"])
	assert.Empty(t, nearby["spots"])

	fix := map[string]float64{"latitude": 25.033964, "longitude": 121.564468}
	code, _ = api.do(http.MethodPost, "/api/location/fix", token, fix)
	assert.Equal(t, http.StatusConflict, code, "no permission yet")

	code, out = api.do(http.MethodPut, "/api/location/authorization", token, map[string]string{"status": "authorized_when_in_use"})
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, true, out["updating"])

	code, _ = api.do(http.MethodPost, "/api/location/fix", token, map[string]float64{"latitude": 95, "longitude": 0})
	assert.Equal(t, http.StatusBadRequest, code)

	code, out = api.do(http.MethodPost, "/api/location/fix", token, fix)
	require.Equal(t, http.StatusOK, code)
	nearby = out["nearby"].(map[string]interface{})
	assert.Equal(t, true, nearby["has_fix"])
	assert.Len(t, nearby["spots"], 2)

	code, out = api.do(http.MethodPut, "/api/nearby/radius", token, map[string]float64{"radius_meters": 1000})
	require.Equal(t, http.StatusOK, code)
	assert.Len(t, out["nearby"].(map[string]interface{})["spots"], 1)

	code, out = api.do(http.MethodPut, "/api/location/authorization", token, map[string]string{"status": "denied"})
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, true, out["permission_blocked"])
	assert.Equal(t, false, out["updating"])

	code, out = api.do(http.MethodPost, "/api/location/request", token, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, 2.0, out["permission_requests"])

	code, _ = api.do(http.MethodPut, "/api/location/authorization", token, map[string]string{"status": "maybe"})
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestLogoutEndsSession(t *testing.T) {
	api := newTestAPI(t)
	token, userID := api.register("mei@example.com", models.RoleCustomer, nil)

	api.do(http.MethodPost, "/api/cart/items", token, map[string]interface{}{"menu_item_id": api.menuItem(280, true).ID})
	_, ok := api.sessions.Lookup(userID)
	require.True(t, ok)

	code, _ := api.do(http.MethodPost, "/api/auth/logout", token, nil)
	require.Equal(t, http.StatusOK, code)
	_, ok = api.sessions.Lookup(userID)
	assert.False(t, ok)

	code, _ = api.do(http.MethodGet, "/api/cart", token, nil)
	assert.Equal(t, http.StatusUnauthorized, code)

	code, out := api.do(http.MethodPost, "/api/auth/login", "", map[string]string{"email": "mei@example.com", "password": "secret1"})
	require.Equal(t, http.StatusOK, code)
	code, out = api.do(http.MethodGet, "/api/cart", out["token"].(string), nil)
	require.Equal(t, http.StatusOK, code)
	qty, _ := cartTotals(t, out)
	assert.Zero(t, qty, "a new session starts with an empty cart")
}

func TestNearbyStream(t *testing.T) {
	api := newTestAPI(t)
	token, _ := api.register("mei@example.com", models.RoleCustomer, nil)
	api.do(http.MethodPut, "/api/location/authorization", token, map[string]string{"status": "authorized_always"})

	srv := httptest.NewServer(api.router)
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/api/nearby/stream", nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Contains(t, resp.Header.Get("Content-Type"), "text/event-stream")

	events := make(chan string, 8)
	go func() {
		scanner := bufio.NewScanner(resp.Body)
		scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
		for scanner.Scan() {
			if line := scanner.Text(); strings.HasPrefix(line, "data:") {
				events <- line
			}
		}
		close(events)
	}()

	first := <-events
	assert.Contains(t, first, `"has_fix":false`)

	api.do(http.MethodPost, "/api/location/fix", token, map[string]float64{"latitude": 25.033964, "longitude": 121.564468})
	second := <-events
	assert.Contains(t, second, `"has_fix":true`)
	cancel()
}
