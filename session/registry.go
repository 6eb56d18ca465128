// Package session keeps the per-user state of signed-in users: cart,
// location, order submission and the nearby list.
package session

import (
	"sync"
	"time"

	"homecook-api/auth"
	"homecook-api/cart"
	"homecook-api/checkout"
	"homecook-api/location"
	"homecook-api/models"
	"homecook-api/nearby"

	"github.com/sirupsen/logrus"
)

type Session struct {
	UserID    uint
	Role      models.UserRole
	Cart      *cart.Store
	Provider  *location.ReportedProvider
	Location  *location.Tracker
	Checkout  *checkout.Submitter
	Nearby    *nearby.Feed
	CreatedAt time.Time
}

func (s *Session) close() {
	s.Nearby.Close()
	s.Provider.StopUpdates()
}

// AuthEvents is the sign-in/sign-out stream of the auth provider
type AuthEvents interface {
	Subscribe(fn func(auth.Event)) (unsubscribe func())
}

type Options struct {
	SearchRadius float64
	Logger       logrus.FieldLogger
}

// Registry creates sessions on first use and drops them on sign-out. All
// sessions share one catalog.
type Registry struct {
	catalog nearby.Catalog
	sink    checkout.Sink
	radius  float64
	log     logrus.FieldLogger

	mu       sync.Mutex
	sessions map[uint]*Session
	unwatch  []func()
}

func NewRegistry(cat nearby.Catalog, sink checkout.Sink, opts Options) *Registry {
	if opts.SearchRadius == 0 {
		opts.SearchRadius = location.DefaultSearchRadius
	}
	if opts.Logger == nil {
		opts.Logger = logrus.StandardLogger()
	}
	return &Registry{
		catalog:  cat,
		sink:     sink,
		radius:   opts.SearchRadius,
		log:      opts.Logger,
		sessions: make(map[uint]*Session),
	}
}

// Watch ends a user's session when they sign out
func (r *Registry) Watch(events AuthEvents) {
	unsubscribe := events.Subscribe(func(e auth.Event) {
		if e.Kind == auth.EventSignedOut {
			r.End(e.UserID)
		}
	})
	r.mu.Lock()
	r.unwatch = append(r.unwatch, unsubscribe)
	r.mu.Unlock()
}

// Get returns the user's session, creating it on first use
func (r *Registry) Get(userID uint, role models.UserRole) *Session {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.sessions[userID]; ok {
		return s
	}

	log := r.log.WithField("user_id", userID)
	provider := &location.ReportedProvider{}
	tracker := location.NewTracker(provider, log)
	tracker.SetSearchRadius(r.radius)
	tracker.Activate()
	c := cart.NewStore()

	s := &Session{
		UserID:    userID,
		Role:      role,
		Cart:      c,
		Provider:  provider,
		Location:  tracker,
		Checkout:  checkout.NewSubmitter(c, r.sink, log),
		Nearby:    nearby.NewFeed(tracker, r.catalog),
		CreatedAt: time.Now(),
	}
	r.sessions[userID] = s
	log.Debug("Session started")
	return s
}

func (r *Registry) Lookup(userID uint) (*Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[userID]
	return s, ok
}

// End discards a user's session and its cart
func (r *Registry) End(userID uint) {
	r.mu.Lock()
	s, ok := r.sessions[userID]
	delete(r.sessions, userID)
	r.mu.Unlock()

	if ok {
		s.close()
		r.log.WithField("user_id", userID).Debug("Session ended")
	}
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// Close ends every session and stops watching auth events
func (r *Registry) Close() {
	r.mu.Lock()
	sessions := r.sessions
	r.sessions = make(map[uint]*Session)
	unwatch := r.unwatch
	r.unwatch = nil
	r.mu.Unlock()

	for _, fn := range unwatch {
		fn()
	}
	for _, s := range sessions {
		s.close()
	}
}
