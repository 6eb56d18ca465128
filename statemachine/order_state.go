package statemachine

import (
	"fmt"
	"strings"

	"homecook-api/models"
)

// Actor names who may drive a transition
const (
	ActorCook     = "cook"
	ActorCustomer = "customer"
)

// Transition defines a valid state change and who can perform it
type Transition struct {
	From  models.OrderStatus `json:"from"`
	To    models.OrderStatus `json:"to"`
	Actor string             `json:"actor"`
}

// validTransitions is the authoritative lifecycle of a submitted order
var validTransitions = []Transition{
	// Cook accepts or turns down a new order
	{From: models.StatusPending, To: models.StatusAccepted, Actor: ActorCook},
	{From: models.StatusPending, To: models.StatusCancelled, Actor: ActorCook},
	{From: models.StatusPending, To: models.StatusCancelled, Actor: ActorCustomer},
	// Accepted orders can still be cancelled by either side
	{From: models.StatusAccepted, To: models.StatusPreparing, Actor: ActorCook},
	{From: models.StatusAccepted, To: models.StatusCancelled, Actor: ActorCook},
	{From: models.StatusAccepted, To: models.StatusCancelled, Actor: ActorCustomer},
	{From: models.StatusPreparing, To: models.StatusOutForDelivery, Actor: ActorCook},
	{From: models.StatusOutForDelivery, To: models.StatusDelivered, Actor: ActorCook},
}

type transitionKey struct {
	From  models.OrderStatus
	To    models.OrderStatus
	Actor string
}

var transitionMap = func() map[transitionKey]bool {
	m := make(map[transitionKey]bool)
	for _, t := range validTransitions {
		m[transitionKey{t.From, t.To, t.Actor}] = true
	}
	return m
}()

// ValidTransitionsFrom returns all valid next states from a given state
func ValidTransitionsFrom(status models.OrderStatus) []models.OrderStatus {
	var nexts []models.OrderStatus
	seen := map[models.OrderStatus]bool{}
	for _, t := range validTransitions {
		if t.From == status && !seen[t.To] {
			nexts = append(nexts, t.To)
			seen[t.To] = true
		}
	}
	return nexts
}

// CanTransition checks if a given actor can move from one state to another
func CanTransition(from, to models.OrderStatus, actor string) error {
	if transitionMap[transitionKey{From: from, To: to, Actor: actor}] {
		return nil
	}
	return fmt.Errorf("invalid transition: %s → %s is not allowed for actor '%s'. Valid transitions from %s are: %s",
		from, to, actor, from, describeValidFrom(from))
}

// IsTerminal reports whether no transition leaves status
func IsTerminal(status models.OrderStatus) bool {
	return len(ValidTransitionsFrom(status)) == 0
}

func describeValidFrom(status models.OrderStatus) string {
	nexts := ValidTransitionsFrom(status)
	if len(nexts) == 0 {
		return "none (terminal state)"
	}
	names := make([]string, len(nexts))
	for i, s := range nexts {
		names[i] = string(s)
	}
	return strings.Join(names, ", ")
}

// GetAllTransitions returns the full state machine for documentation
func GetAllTransitions() []Transition {
	return validTransitions
}
