package statemachine

import (
	"testing"

	"homecook-api/models"

	"github.com/stretchr/testify/assert"
)

func TestCanTransition(t *testing.T) {
	assert.NoError(t, CanTransition(models.StatusPending, models.StatusAccepted, ActorCook))
	assert.NoError(t, CanTransition(models.StatusPending, models.StatusCancelled, ActorCustomer))

	err := CanTransition(models.StatusPending, models.StatusAccepted, ActorCustomer)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "Accepted, Cancelled")

	err = CanTransition(models.StatusPreparing, models.StatusCancelled, ActorCustomer)
	assert.Error(t, err, "customers cannot cancel once cooking started")
}

func TestTerminalStates(t *testing.T) {
	assert.True(t, IsTerminal(models.StatusDelivered))
	assert.True(t, IsTerminal(models.StatusCancelled))
	assert.False(t, IsTerminal(models.StatusPending))

	err := CanTransition(models.StatusDelivered, models.StatusPending, ActorCook)
	assert.ErrorContains(t, err, "none (terminal state)")
}

func TestValidTransitionsFromDeduplicates(t *testing.T) {
	nexts := ValidTransitionsFrom(models.StatusAccepted)
	assert.Equal(t, []models.OrderStatus{models.StatusPreparing, models.StatusCancelled}, nexts)
}
