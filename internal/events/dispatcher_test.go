package events

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestDispatcher_DeliversToSubscribersOfType(t *testing.T) {
	d := NewInMemoryDispatcher(zap.NewNop())

	var created, escalated int
	d.Subscribe(EventTicketCreated, func(context.Context, Event) error {
		created++
		return nil
	})
	d.Subscribe(EventTicketEscalated, func(context.Context, Event) error {
		escalated++
		return nil
	})

	require.NoError(t, d.Publish(context.Background(), NewEvent(EventTicketCreated, "t1", SystemActor, nil)))
	assert.Equal(t, 1, created)
	assert.Equal(t, 0, escalated)
}

func TestDispatcher_HandlerErrorDoesNotStopOthers(t *testing.T) {
	d := NewInMemoryDispatcher(zap.NewNop())

	var calls int
	d.Subscribe(EventTicketAssigned, func(context.Context, Event) error {
		calls++
		return errors.New("smtp down")
	})
	d.Subscribe(EventTicketAssigned, func(context.Context, Event) error {
		calls++
		return nil
	})

	err := d.Publish(context.Background(), NewEvent(EventTicketAssigned, "t1", SystemActor, TicketAssignedPayload{AssigneeID: "u1"}))
	assert.NoError(t, err)
	assert.Equal(t, 2, calls)
}

func TestNewEvent_StampsIDAndTime(t *testing.T) {
	e := NewEvent(EventApprovalRequested, "t1", Actor{}, nil)
	assert.NotEmpty(t, e.ID)
	assert.False(t, e.Timestamp.IsZero())
	assert.Equal(t, "t1", e.TicketID)
}
