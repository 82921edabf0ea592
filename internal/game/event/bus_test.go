package event_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
	"pgregory.net/rapid"

	"github.com/marcaocj/R1/internal/game/event"
)

func TestBus_PublishRunsHandlersInOrder(t *testing.T) {
	bus := event.NewBus(nil)
	var order []int
	bus.Subscribe(event.GoldChanged, func(event.Event) { order = append(order, 1) })
	bus.Subscribe(event.GoldChanged, func(event.Event) { order = append(order, 2) })
	bus.Subscribe(event.PlayerDeath, func(event.Event) { order = append(order, 99) })

	evt := bus.Publish(event.GoldChanged, event.AmountPayload{Amount: 10})

	assert.Equal(t, []int{1, 2}, order)
	assert.Equal(t, event.GoldChanged, evt.Channel)
	assert.NotZero(t, evt.ID)
}

func TestBus_Unsubscribe(t *testing.T) {
	bus := event.NewBus(nil)
	calls := 0
	sub := bus.Subscribe(event.PlayerDeath, func(event.Event) { calls++ })

	require.True(t, bus.Unsubscribe(sub))
	assert.False(t, bus.Unsubscribe(sub))
	bus.Publish(event.PlayerDeath, nil)

	assert.Zero(t, calls)
	assert.Zero(t, bus.HandlerCount(event.PlayerDeath))
}

func TestBus_UnsubscribeDuringDispatchSkipsLaterHandler(t *testing.T) {
	bus := event.NewBus(nil)
	var second event.Subscription
	secondCalls := 0
	bus.Subscribe(event.EnemyDeath, func(event.Event) { bus.Unsubscribe(second) })
	second = bus.Subscribe(event.EnemyDeath, func(event.Event) { secondCalls++ })

	bus.Publish(event.EnemyDeath, event.EnemyDeathPayload{})

	assert.Zero(t, secondCalls)
}

func TestBus_SubscribeDuringDispatchNotInvokedUntilNextPublish(t *testing.T) {
	bus := event.NewBus(nil)
	late := 0
	bus.Subscribe(event.GamePaused, func(event.Event) {
		bus.Subscribe(event.GamePaused, func(event.Event) { late++ })
	})

	bus.Publish(event.GamePaused, nil)
	assert.Zero(t, late)
	bus.Publish(event.GamePaused, nil)
	assert.Equal(t, 1, late)
}

func TestBus_PanickingHandlerIsLogged(t *testing.T) {
	core, logs := observer.New(zap.ErrorLevel)
	bus := event.NewBus(zap.New(core))
	reached := false
	bus.Subscribe(event.GoldChanged, func(event.Event) { panic("boom") })
	bus.Subscribe(event.GoldChanged, func(event.Event) { reached = true })

	bus.Publish(event.GoldChanged, event.AmountPayload{Amount: 1})

	assert.True(t, reached)
	assert.Equal(t, 1, logs.FilterMessage("event handler panicked").Len())
}

func TestOn_TypedPayload(t *testing.T) {
	bus := event.NewBus(nil)
	total := 0
	event.On(bus, event.PlayerExperienceGained, func(p event.AmountPayload) { total += p.Amount })

	bus.Publish(event.PlayerExperienceGained, event.AmountPayload{Amount: 25})
	bus.Publish(event.PlayerExperienceGained, "not a payload")

	assert.Equal(t, 25, total)
}

func TestSubscriptions_Close(t *testing.T) {
	bus := event.NewBus(nil)
	subs := event.NewSubscriptions(bus)
	subs.Add(bus.Subscribe(event.GamePaused, func(event.Event) {}))
	subs.Add(bus.Subscribe(event.GameResumed, func(event.Event) {}))

	subs.Close()
	subs.Close()

	assert.Zero(t, bus.HandlerCount(event.GamePaused))
	assert.Zero(t, bus.HandlerCount(event.GameResumed))
}

func TestProperty_EveryLiveHandlerCalledOnce(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		n := rapid.IntRange(0, 20).Draw(rt, "handlers")
		bus := event.NewBus(nil)
		counts := make([]int, n)
		subs := make([]event.Subscription, n)
		for i := range n {
			subs[i] = bus.Subscribe(event.DamageDealt, func(event.Event) { counts[i]++ })
		}
		removed := make(map[int]bool)
		for i := range n {
			if rapid.Bool().Draw(rt, "remove") {
				bus.Unsubscribe(subs[i])
				removed[i] = true
			}
		}

		bus.Publish(event.DamageDealt, event.DamageDealtPayload{Amount: 1})

		for i, c := range counts {
			if removed[i] {
				assert.Zero(rt, c)
			} else {
				assert.Equal(rt, 1, c)
			}
		}
	})
}
