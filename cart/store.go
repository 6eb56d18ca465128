// Package cart holds a customer's shopping cart: one line per menu item,
// each with a positive quantity, and totals derived from the lines.
package cart

import (
	"errors"
	"sync"

	"homecook-api/models"
	"homecook-api/observable"

	"github.com/google/uuid"
)

var (
	ErrInvalidQuantity    = errors.New("quantity must be positive")
	ErrItemUnavailable    = errors.New("menu item is not available today")
	ErrCheckoutInProgress = errors.New("cart is locked while an order is being submitted")
)

// Line is one distinct menu item and how many of it the customer wants
type Line struct {
	ID       string          `json:"id"`
	Item     models.MenuItem `json:"item"`
	Quantity int             `json:"quantity"`
}

// Total is unit price times quantity
func (l Line) Total() float64 {
	return l.Item.Price * float64(l.Quantity)
}

// Summary is a consistent view of the cart at one instant
type Summary struct {
	Lines         []Line  `json:"lines"`
	TotalQuantity int     `json:"total_quantity"`
	TotalPrice    float64 `json:"total_price"`
	CheckingOut   bool    `json:"checking_out"`
}

func (s Summary) IsEmpty() bool { return len(s.Lines) == 0 }

// Store is safe for concurrent use; every operation is atomic.
type Store struct {
	mu          sync.Mutex
	lines       []Line
	checkingOut bool
	changes     *observable.Value[Summary]
}

func NewStore() *Store {
	return &Store{changes: observable.NewValue(Summary{Lines: []Line{}})}
}

// AddItem merges quantity into the line for item, creating it if needed.
func (s *Store) AddItem(item models.MenuItem, quantity int) error {
	if quantity <= 0 {
		return ErrInvalidQuantity
	}
	if !item.IsAvailable {
		return ErrItemUnavailable
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.checkingOut {
		return ErrCheckoutInProgress
	}

	if i := s.indexOfItem(item.ID); i >= 0 {
		s.lines[i].Quantity += quantity
	} else {
		s.lines = append(s.lines, Line{ID: uuid.NewString(), Item: item, Quantity: quantity})
	}
	s.publishLocked()
	return nil
}

// UpdateQuantity sets a line's quantity exactly. Zero or less removes the
// line. Unknown line IDs are ignored.
func (s *Store) UpdateQuantity(lineID string, quantity int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.checkingOut {
		return ErrCheckoutInProgress
	}

	i := s.indexOfLine(lineID)
	if i < 0 {
		return nil
	}
	if quantity > 0 {
		s.lines[i].Quantity = quantity
	} else {
		s.lines = append(s.lines[:i], s.lines[i+1:]...)
	}
	s.publishLocked()
	return nil
}

// RemoveItem drops a line; unknown line IDs are ignored.
func (s *Store) RemoveItem(lineID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.checkingOut {
		return ErrCheckoutInProgress
	}

	i := s.indexOfLine(lineID)
	if i < 0 {
		return nil
	}
	s.lines = append(s.lines[:i], s.lines[i+1:]...)
	s.publishLocked()
	return nil
}

// Clear empties the cart. It is refused while a checkout holds the cart.
func (s *Store) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.checkingOut {
		return ErrCheckoutInProgress
	}
	s.clearLocked()
	return nil
}

// BeginCheckout snapshots the cart and holds it so that nothing changes
// between the snapshot and the outcome of the submission.
func (s *Store) BeginCheckout() (Summary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.checkingOut {
		return Summary{}, ErrCheckoutInProgress
	}
	s.checkingOut = true
	s.publishLocked()
	return s.summaryLocked(), nil
}

// CompleteCheckout clears the held cart after a confirmed submission and
// releases the hold.
func (s *Store) CompleteCheckout() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clearLocked()
}

// AbortCheckout releases the hold and leaves every line in place.
func (s *Store) AbortCheckout() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.checkingOut {
		return
	}
	s.checkingOut = false
	s.publishLocked()
}

func (s *Store) Summary() Summary {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.summaryLocked()
}

func (s *Store) Lines() []Line { return s.Summary().Lines }

func (s *Store) TotalQuantity() int { return s.Summary().TotalQuantity }

func (s *Store) TotalPrice() float64 { return s.Summary().TotalPrice }

// Line returns the line with the given ID
func (s *Store) Line(lineID string) (Line, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i := s.indexOfLine(lineID); i >= 0 {
		return s.lines[i], true
	}
	return Line{}, false
}

// Subscribe is notified with a fresh Summary after every mutation. fn runs
// with the cart locked and must not call back into the Store.
func (s *Store) Subscribe(fn func(Summary)) (unsubscribe func()) {
	return s.changes.Subscribe(fn)
}

func (s *Store) summaryLocked() Summary {
	sum := Summary{Lines: make([]Line, len(s.lines)), CheckingOut: s.checkingOut}
	copy(sum.Lines, s.lines)
	for _, l := range s.lines {
		sum.TotalQuantity += l.Quantity
		sum.TotalPrice += l.Total()
	}
	return sum
}

func (s *Store) clearLocked() {
	s.lines = nil
	s.checkingOut = false
	s.publishLocked()
}

func (s *Store) publishLocked() {
	s.changes.Set(s.summaryLocked())
}

func (s *Store) indexOfItem(itemID string) int {
	for i, l := range s.lines {
		if l.Item.ID == itemID {
			return i
		}
	}
	return -1
}

func (s *Store) indexOfLine(lineID string) int {
	for i, l := range s.lines {
		if l.ID == lineID {
			return i
		}
	}
	return -1
}
