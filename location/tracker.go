// Package location tracks a device's location permission and latest fix.
package location

import (
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"homecook-api/geo"
	"homecook-api/observable"

	"github.com/sirupsen/logrus"
)

// DefaultSearchRadius is the radius the nearby list starts with, in meters
const DefaultSearchRadius = 5000.0

var ErrInvalidFix = errors.New("fix coordinates out of range")

// Authorization mirrors the device permission states
type Authorization string

const (
	NotDetermined       Authorization = "not_determined"
	Denied              Authorization = "denied"
	Restricted          Authorization = "restricted"
	AuthorizedWhenInUse Authorization = "authorized_when_in_use"
	AuthorizedAlways    Authorization = "authorized_always"
)

func ParseAuthorization(s string) (Authorization, error) {
	switch a := Authorization(s); a {
	case NotDetermined, Denied, Restricted, AuthorizedWhenInUse, AuthorizedAlways:
		return a, nil
	}
	return "", fmt.Errorf("unknown authorization state %q", s)
}

// Authorized reports whether position updates may run
func (a Authorization) Authorized() bool {
	return a == AuthorizedWhenInUse || a == AuthorizedAlways
}

// Blocked reports a permission the user has to fix in settings
func (a Authorization) Blocked() bool {
	return a == Denied || a == Restricted
}

// Fix is a single reading of the device position
type Fix struct {
	Latitude   float64   `json:"latitude"`
	Longitude  float64   `json:"longitude"`
	Accuracy   float64   `json:"accuracy,omitempty"`
	RecordedAt time.Time `json:"recorded_at"`
}

func (f Fix) Point() geo.Point {
	return geo.Point{Latitude: f.Latitude, Longitude: f.Longitude}
}

// Provider is the device side of location services
type Provider interface {
	RequestWhenInUseAuthorization()
	StartUpdates()
	StopUpdates()
}

// Tracker owns permission state and the most recent fix. Authorization and
// position are separate observables so each can be watched on its own.
type Tracker struct {
	provider Provider
	log      logrus.FieldLogger

	mu            sync.Mutex
	authorization *observable.Value[Authorization]
	position      *observable.Value[*Fix]
	radius        *observable.Value[float64]
	lastErr       error
}

func NewTracker(provider Provider, log logrus.FieldLogger) *Tracker {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Tracker{
		provider:      provider,
		log:           log,
		authorization: observable.NewValue(NotDetermined),
		position:      observable.NewValue[*Fix](nil),
		radius:        observable.NewValue(DefaultSearchRadius),
	}
}

// Activate asks for permission once, then starts updates if already granted.
func (t *Tracker) Activate() {
	t.provider.RequestWhenInUseAuthorization()
	if t.authorization.Get().Authorized() {
		t.provider.StartUpdates()
	}
}

// RequestAuthorization re-asks for permission, the recovery path after a denial.
func (t *Tracker) RequestAuthorization() {
	t.provider.RequestWhenInUseAuthorization()
}

// HandleAuthorization records a permission change and starts or stops
// position updates to match.
func (t *Tracker) HandleAuthorization(a Authorization) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.log.WithField("authorization", a).Info("Location authorization changed")
	if a.Authorized() {
		t.provider.StartUpdates()
	} else {
		t.provider.StopUpdates()
	}
	t.authorization.Set(a)
}

// HandleFix overwrites the current position. Fixes without permission are
// dropped; out-of-range coordinates are rejected.
func (t *Tracker) HandleFix(f Fix) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.authorization.Get().Authorized() {
		t.log.Debug("Ignoring fix without location permission")
		return nil
	}
	if !f.Point().Valid() {
		return ErrInvalidFix
	}
	if f.RecordedAt.IsZero() {
		f.RecordedAt = time.Now()
	}
	t.lastErr = nil
	t.position.Set(&f)
	return nil
}

// HandleError logs a provider failure. The last fix is kept.
func (t *Tracker) HandleError(err error) {
	t.mu.Lock()
	t.lastErr = err
	t.mu.Unlock()
	t.log.WithError(err).Warn("Location update failed")
}

func (t *Tracker) LastError() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.lastErr
}

func (t *Tracker) Authorization() Authorization { return t.authorization.Get() }

// Position returns the latest fix or nil when there is none yet
func (t *Tracker) Position() *Fix { return t.position.Get() }

// Origin returns the latest fix as a point, nil when there is no fix
func (t *Tracker) Origin() *geo.Point {
	f := t.position.Get()
	if f == nil {
		return nil
	}
	p := f.Point()
	return &p
}

func (t *Tracker) SearchRadius() float64 { return t.radius.Get() }

// SetSearchRadius changes the nearby radius. A negative radius is kept as
// given and simply matches nothing.
func (t *Tracker) SetSearchRadius(meters float64) {
	if math.IsNaN(meters) {
		meters = -1
	}
	t.radius.Set(meters)
}

func (t *Tracker) SubscribeAuthorization(fn func(Authorization)) func() {
	return t.authorization.Subscribe(fn)
}

func (t *Tracker) SubscribePosition(fn func(*Fix)) func() {
	return t.position.Subscribe(fn)
}

func (t *Tracker) SubscribeRadius(fn func(float64)) func() {
	return t.radius.Subscribe(fn)
}
