// Package catalog keeps an in-process copy of the live cook spot
// collection and republishes every snapshot to subscribers.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"homecook-api/models"
	"homecook-api/observable"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// DefaultCollection is the collection name cook spots are published under
const DefaultCollection = "cookSpots"

var ErrClosed = errors.New("catalog sync closed")

// Phase is the lifecycle position of a Sync
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseLoading
	PhaseReady
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseLoading:
		return "loading"
	case PhaseReady:
		return "ready"
	}
	return fmt.Sprintf("phase(%d)", int(p))
}

func (p Phase) MarshalText() ([]byte, error) { return []byte(p.String()), nil }

// Mode selects how a Sync is fed
type Mode string

const (
	ModePush Mode = "push" // snapshot listener, falls back to pull if it cannot subscribe
	ModePull Mode = "pull" // one-shot fetch, repeated every PollInterval when set
)

// State is what subscribers observe. Spots is replaced wholesale on every
// snapshot and must not be mutated by readers.
type State struct {
	Phase     Phase             `json:"phase"`
	Loading   bool              `json:"loading"`
	Spots     []models.CookSpot `json:"spots"`
	Seq       uint64            `json:"seq"`
	LastError error             `json:"-"`
	UpdatedAt time.Time         `json:"updated_at"`
}

type Options struct {
	Collection   string
	Mode         Mode
	PollInterval time.Duration
	Logger       logrus.FieldLogger
}

// Sync bridges a Source into an observable State. All subscriber
// callbacks run on a single delivery goroutine owned by the Sync.
type Sync struct {
	source Source
	opts   Options
	log    logrus.FieldLogger
	state  *observable.Value[State]

	applyMu sync.Mutex // held across check-and-publish so Close can wait out a delivery

	mu      sync.Mutex
	gen     uint64 // bumped on every Start and on Close; stale deliveries carry an older value
	closed  bool
	reg     Registration
	cancel  context.CancelFunc
	workers *sync.WaitGroup
}

func NewSync(source Source, opts Options) *Sync {
	if opts.Collection == "" {
		opts.Collection = DefaultCollection
	}
	if opts.Mode == "" {
		opts.Mode = ModePush
	}
	log := opts.Logger
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Sync{
		source: source,
		opts:   opts,
		log:    log.WithField("collection", opts.Collection),
		state:  observable.NewValue(State{Phase: PhaseIdle, Spots: []models.CookSpot{}}),
	}
}

// Start (re)subscribes to the source. Any earlier subscription is
// detached first so a restart never double-delivers. The subscription
// lives until ctx is done or Close is called.
func (s *Sync) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	prevReg, prevCancel, prevWorkers := s.detachLocked()
	s.gen++
	gen := s.gen
	runCtx, cancel := context.WithCancel(ctx)
	workers := &sync.WaitGroup{}
	s.cancel = cancel
	s.workers = workers
	s.mu.Unlock()

	stopWorkers(prevReg, prevCancel, prevWorkers)

	s.state.Update(func(st State) State {
		st.Phase = PhaseLoading
		st.Loading = true
		st.Seq = 0
		return st
	})

	inbox := make(chan Delivery, 16)
	deliver := func(d Delivery) {
		select {
		case inbox <- d:
		case <-runCtx.Done():
		}
	}

	workers.Add(1)
	go func() {
		defer workers.Done()
		s.run(runCtx, gen, inbox)
	}()

	if s.opts.Mode == ModePush {
		reg, err := s.source.Subscribe(runCtx, s.opts.Collection, deliver)
		if err == nil {
			s.mu.Lock()
			if s.gen != gen {
				// a Close or another Start overtook us
				s.mu.Unlock()
				reg.Remove()
				return nil
			}
			s.reg = reg
			s.mu.Unlock()
			s.log.Info("Subscribed to realtime collection")
			return nil
		}
		s.log.WithError(err).Warn("Realtime subscribe failed, falling back to fetch")
	}

	workers.Add(1)
	go func() {
		defer workers.Done()
		s.poll(runCtx, deliver)
	}()
	return nil
}

// Refresh performs a one-shot fetch and feeds the result through the
// normal delivery path.
func (s *Sync) Refresh(ctx context.Context) error {
	spots, err := s.source.Fetch(ctx, s.opts.Collection)
	if err != nil {
		s.log.WithError(err).Warn("Catalog refresh failed")
		return err
	}
	s.mu.Lock()
	gen, closed := s.gen, s.closed
	s.mu.Unlock()
	if closed {
		return ErrClosed
	}
	s.apply(gen, Delivery{Spots: spots})
	return nil
}

// Fetch is a pull pass-through that does not touch the published state.
func (s *Sync) Fetch(ctx context.Context) ([]models.CookSpot, error) {
	spots, err := s.source.Fetch(ctx, s.opts.Collection)
	if err != nil {
		return nil, err
	}
	return ensureIdentity(spots), nil
}

// Close cancels the subscription. Once Close returns no subscriber is
// called again. Close must not be called from a subscriber callback.
func (s *Sync) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.gen++
	reg, cancel, workers := s.detachLocked()
	s.mu.Unlock()

	stopWorkers(reg, cancel, workers)
	s.applyMu.Lock()
	s.applyMu.Unlock()
	s.log.Info("Catalog sync closed")
}

func (s *Sync) State() State { return s.state.Get() }

func (s *Sync) Spots() []models.CookSpot { return s.state.Get().Spots }

func (s *Sync) Loading() bool { return s.state.Get().Loading }

// Subscribe registers fn for every published State
func (s *Sync) Subscribe(fn func(State)) (unsubscribe func()) {
	return s.state.Subscribe(fn)
}

func (s *Sync) detachLocked() (Registration, context.CancelFunc, *sync.WaitGroup) {
	reg, cancel, workers := s.reg, s.cancel, s.workers
	s.reg, s.cancel, s.workers = nil, nil, nil
	return reg, cancel, workers
}

func stopWorkers(reg Registration, cancel context.CancelFunc, workers *sync.WaitGroup) {
	if reg != nil {
		reg.Remove()
	}
	if cancel != nil {
		cancel()
	}
	if workers != nil {
		workers.Wait()
	}
}

func (s *Sync) run(ctx context.Context, gen uint64, inbox <-chan Delivery) {
	for {
		select {
		case <-ctx.Done():
			return
		case d := <-inbox:
			if ctx.Err() != nil {
				return
			}
			s.apply(gen, d)
		}
	}
}

func (s *Sync) poll(ctx context.Context, deliver func(Delivery)) {
	fetch := func() {
		spots, err := s.source.Fetch(ctx, s.opts.Collection)
		if ctx.Err() != nil {
			return
		}
		deliver(Delivery{Spots: spots, Err: err})
	}
	fetch()
	if s.opts.PollInterval <= 0 {
		return
	}
	ticker := time.NewTicker(s.opts.PollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			fetch()
		}
	}
}

func (s *Sync) apply(gen uint64, d Delivery) {
	s.applyMu.Lock()
	defer s.applyMu.Unlock()

	s.mu.Lock()
	stale := s.gen != gen || s.closed
	s.mu.Unlock()
	if stale {
		return
	}

	if d.Err != nil {
		// keep the last good snapshot; an error must never blank the list
		s.log.WithError(d.Err).Error("Realtime collection delivered an error")
		s.state.Update(func(st State) State {
			st.Phase = PhaseReady
			st.Loading = false
			st.LastError = d.Err
			return st
		})
		return
	}

	cur := s.state.Get()
	if d.Seq != 0 && d.Seq <= cur.Seq {
		s.log.WithFields(logrus.Fields{"seq": d.Seq, "applied": cur.Seq}).Debug("Dropping stale snapshot")
		return
	}

	spots := ensureIdentity(d.Spots)
	s.state.Update(func(st State) State {
		st.Phase = PhaseReady
		st.Loading = false
		st.Spots = spots
		if d.Seq != 0 {
			st.Seq = d.Seq
		}
		st.LastError = nil
		st.UpdatedAt = time.Now()
		return st
	})
	s.log.WithField("count", len(spots)).Debug("Received cook spot snapshot")
}

// ensureIdentity copies spots and gives every record without an ID a
// fresh one for the lifetime of this snapshot.
func ensureIdentity(spots []models.CookSpot) []models.CookSpot {
	out := make([]models.CookSpot, len(spots))
	copy(out, spots)
	for i := range out {
		if out[i].ID == "" {
			out[i].ID = uuid.NewString()
			out[i].IDSynthesized = true
		}
	}
	return out
}
