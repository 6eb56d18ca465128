package checkout

import (
	"context"
	"errors"
	"sync"
	"time"

	"homecook-api/cart"
	"homecook-api/models"
	"homecook-api/observable"

	"github.com/sirupsen/logrus"
)

var (
	ErrSubmissionInFlight = errors.New("an order submission is already in progress")
	ErrSubmissionFailed   = errors.New("order submission failed")
)

// UserMessage is what the customer sees when the order could not be stored
const UserMessage = "Your order could not be submitted. Please try again."

// SubmissionError wraps a sink failure behind a generic retryable message
type SubmissionError struct {
	Err error
}

func (e *SubmissionError) Error() string { return UserMessage }

func (e *SubmissionError) Unwrap() []error { return []error{ErrSubmissionFailed, e.Err} }

// Sink persists an order. On success it must have assigned the order's ID
// and timestamp.
type Sink interface {
	SubmitOrder(ctx context.Context, order *models.Order) error
}

// State is the submission control state
type State string

const (
	StateIdle       State = "idle"
	StateSubmitting State = "submitting"
	StateSucceeded  State = "succeeded"
)

// Status is what an observer of the submit control sees
type Status struct {
	State       State  `json:"state"`
	LastError   string `json:"last_error,omitempty"`
	LastOrderID string `json:"last_order_id,omitempty"`
}

// Confirmation is returned once the sink has accepted the order
type Confirmation struct {
	OrderID   string        `json:"order_id"`
	Timestamp time.Time     `json:"timestamp"`
	Order     *models.Order `json:"order"`
}

// Submitter runs one submission at a time against a cart.
type Submitter struct {
	cart *cart.Store
	sink Sink
	log  logrus.FieldLogger

	mu     sync.Mutex
	status *observable.Value[Status]
}

func NewSubmitter(c *cart.Store, sink Sink, log logrus.FieldLogger) *Submitter {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Submitter{
		cart:   c,
		sink:   sink,
		log:    log,
		status: observable.NewValue(Status{State: StateIdle}),
	}
}

func (s *Submitter) Status() Status { return s.status.Get() }

func (s *Submitter) Subscribe(fn func(Status)) (unsubscribe func()) {
	return s.status.Subscribe(fn)
}

// Submit validates req, snapshots the cart, and hands the order to the
// sink. The cart is cleared only after the sink confirms; on failure it is
// left exactly as it was and the control returns to idle.
func (s *Submitter) Submit(ctx context.Context, customerID uint, req Request) (*Confirmation, error) {
	req, err := req.Validate()
	if err != nil {
		return nil, err
	}
	if s.cart.Summary().IsEmpty() {
		return nil, ErrEmptyCart
	}

	s.mu.Lock()
	prev := s.status.Get()
	if prev.State == StateSubmitting {
		s.mu.Unlock()
		return nil, ErrSubmissionInFlight
	}
	s.status.Set(Status{State: StateSubmitting, LastOrderID: prev.LastOrderID})
	s.mu.Unlock()

	snapshot, err := s.cart.BeginCheckout()
	if err != nil {
		s.finish(prev)
		return nil, ErrSubmissionInFlight
	}
	order, err := BuildOrder(snapshot, req)
	if err != nil {
		s.cart.AbortCheckout()
		s.finish(prev)
		return nil, err
	}
	order.CustomerID = customerID

	log := s.log.WithFields(logrus.Fields{"customer_id": customerID, "lines": len(order.Items)})
	if err := s.sink.SubmitOrder(ctx, order); err != nil {
		s.cart.AbortCheckout()
		s.finish(Status{State: StateIdle, LastError: UserMessage, LastOrderID: prev.LastOrderID})
		log.WithError(err).Error("Order submission failed")
		return nil, &SubmissionError{Err: err}
	}

	s.cart.CompleteCheckout()
	s.finish(Status{State: StateSucceeded, LastOrderID: order.ID})
	log.WithFields(logrus.Fields{"order_id": order.ID, "final_amount": order.FinalAmount}).Info("Order submitted")
	return &Confirmation{OrderID: order.ID, Timestamp: order.Timestamp, Order: order}, nil
}

func (s *Submitter) finish(st Status) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status.Set(st)
}
