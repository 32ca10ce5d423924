package events

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

type other struct{}

func (other) EventName() string { return "other" }

func TestBusDelivery(t *testing.T) {
	bus := NewBus()

	var got []string
	bus.Subscribe(UserRegisteredEvent, func(ctx context.Context, e Event) error {
		got = append(got, "first:"+e.(UserRegistered).UserID)
		return errors.New("mail relay down")
	})
	bus.Subscribe(UserRegisteredEvent, func(ctx context.Context, e Event) error {
		got = append(got, "second:"+e.(UserRegistered).UserID)
		return nil
	})

	bus.Publish(context.Background(), UserRegistered{UserID: "u1"})
	bus.Publish(context.Background(), other{})

	require.Equal(t, []string{"first:u1", "second:u1"}, got, "a failing handler does not stop the others")
}
