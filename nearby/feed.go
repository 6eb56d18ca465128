// Package nearby joins a user's location with the live catalog and keeps
// the list of cook spots within the search radius up to date.
package nearby

import (
	"sync"
	"time"

	"homecook-api/catalog"
	"homecook-api/geo"
	"homecook-api/location"
	"homecook-api/observable"
)

// Catalog is the part of catalog.Sync the feed reads
type Catalog interface {
	State() catalog.State
	Subscribe(fn func(catalog.State)) (unsubscribe func())
}

// Result is one rendering of the nearby list, closest first
type Result struct {
	Spots         []geo.Nearby           `json:"spots"`
	Loading       bool                   `json:"loading"`
	HasFix        bool                   `json:"has_fix"`
	Origin        *geo.Point             `json:"origin,omitempty"`
	Authorization location.Authorization `json:"authorization"`
	Radius        float64                `json:"radius_meters"`
	UpdatedAt     time.Time              `json:"updated_at"`
}

// Feed recomputes the nearby list whenever the position, the radius, the
// permission state or the catalog changes.
type Feed struct {
	tracker *location.Tracker
	catalog Catalog
	result  *observable.Value[Result]

	mu     sync.Mutex
	state  catalog.State
	closed bool
	unsubs []func()
}

func NewFeed(tracker *location.Tracker, cat Catalog) *Feed {
	f := &Feed{
		tracker: tracker,
		catalog: cat,
		state:   cat.State(),
		result:  observable.NewValue(Result{Spots: []geo.Nearby{}}),
	}
	f.unsubs = []func(){
		tracker.SubscribePosition(func(*location.Fix) { f.recompute(nil) }),
		tracker.SubscribeRadius(func(float64) { f.recompute(nil) }),
		tracker.SubscribeAuthorization(func(location.Authorization) { f.recompute(nil) }),
		cat.Subscribe(func(s catalog.State) { f.recompute(&s) }),
	}
	f.recompute(nil)
	return f
}

func (f *Feed) Result() Result { return f.result.Get() }

func (f *Feed) Subscribe(fn func(Result)) (unsubscribe func()) {
	return f.result.Subscribe(fn)
}

// SetRadius changes the search radius and recomputes the list
func (f *Feed) SetRadius(meters float64) {
	f.tracker.SetSearchRadius(meters)
}

// Close detaches the feed from the tracker and the catalog. No subscriber
// is called after Close returns.
func (f *Feed) Close() {
	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return
	}
	f.closed = true
	unsubs := f.unsubs
	f.unsubs = nil
	f.mu.Unlock()

	for _, unsubscribe := range unsubs {
		unsubscribe()
	}
}

func (f *Feed) recompute(next *catalog.State) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return
	}
	if next != nil {
		f.state = *next
	}

	origin := f.tracker.Origin()
	radius := f.tracker.SearchRadius()
	spots := geo.FilterNearby(origin, radius, f.state.Spots)
	geo.SortByDistance(spots)

	f.result.Set(Result{
		Spots:         spots,
		Loading:       f.state.Loading,
		HasFix:        origin != nil,
		Origin:        origin,
		Authorization: f.tracker.Authorization(),
		Radius:        radius,
		UpdatedAt:     time.Now(),
	})
}
