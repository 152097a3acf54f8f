package events

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blockberries/lottoberry/pkg/abi"
)

func prizeAwarded(account string) abi.Event {
	return abi.NewEvent(abi.EventPrizeAwarded).AddStringAttribute(abi.AttributeKeyAccount, account)
}

func TestBus_StartStop(t *testing.T) {
	bus := NewBus()
	assert.False(t, bus.IsRunning())
	assert.Equal(t, "eventbus", bus.Name())

	require.NoError(t, bus.Start())
	assert.True(t, bus.IsRunning())
	require.NoError(t, bus.Start())

	require.NoError(t, bus.Stop())
	assert.False(t, bus.IsRunning())
	require.NoError(t, bus.Stop())
}

func TestBus_NotRunning(t *testing.T) {
	bus := NewBus()

	_, err := bus.Subscribe(context.Background(), "test", abi.QueryAll{})
	assert.ErrorIs(t, err, ErrBusNotRunning)

	err = bus.Publish(context.Background(), abi.NewEvent(abi.EventNoParticipants))
	assert.ErrorIs(t, err, ErrBusNotRunning)

	err = bus.PublishWithTimeout(context.Background(), abi.NewEvent(abi.EventNoParticipants), time.Millisecond)
	assert.ErrorIs(t, err, ErrBusNotRunning)
}

func TestBus_SubscribeAndPublish(t *testing.T) {
	bus := NewBus()
	require.NoError(t, bus.Start())
	defer bus.Stop()

	ch, err := bus.Subscribe(context.Background(), "sub1", abi.QueryAll{})
	require.NoError(t, err)

	require.NoError(t, bus.Publish(context.Background(), prizeAwarded("alice")))

	select {
	case received := <-ch:
		assert.Equal(t, abi.EventPrizeAwarded, received.Type)
		account, ok := received.Attribute(abi.AttributeKeyAccount)
		assert.True(t, ok)
		assert.Equal(t, "alice", account)
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for event")
	}
}

func TestBus_QueryFiltering(t *testing.T) {
	bus := NewBus()
	require.NoError(t, bus.Start())
	defer bus.Stop()

	ch, err := bus.Subscribe(context.Background(), "winners", abi.QueryEventType{EventType: abi.EventPrizeAwarded})
	require.NoError(t, err)

	require.NoError(t, bus.Publish(context.Background(), abi.NewEvent(abi.EventTicketBought)))
	require.NoError(t, bus.Publish(context.Background(), prizeAwarded("bob")))

	select {
	case received := <-ch:
		assert.Equal(t, abi.EventPrizeAwarded, received.Type)
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for event")
	}

	select {
	case e := <-ch:
		t.Fatalf("unexpected event %s", e.Type)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestBus_Unsubscribe(t *testing.T) {
	bus := NewBus()
	require.NoError(t, bus.Start())
	defer bus.Stop()

	query := abi.QueryEventType{EventType: abi.EventTicketBought}
	ch, err := bus.Subscribe(context.Background(), "sub1", query)
	require.NoError(t, err)

	require.NoError(t, bus.Unsubscribe(context.Background(), "sub1", query))
	_, ok := <-ch
	assert.False(t, ok)
	assert.Equal(t, 0, bus.NumSubscribers())

	err = bus.Unsubscribe(context.Background(), "sub1", query)
	assert.ErrorIs(t, err, ErrSubscriberNotFound)
}

func TestBus_UnsubscribeAll(t *testing.T) {
	bus := NewBus()
	require.NoError(t, bus.Start())
	defer bus.Stop()

	_, err := bus.Subscribe(context.Background(), "sub1", abi.QueryEventType{EventType: abi.EventTicketBought})
	require.NoError(t, err)
	_, err = bus.Subscribe(context.Background(), "sub1", abi.QueryEventType{EventType: abi.EventPrizeAwarded})
	require.NoError(t, err)
	_, err = bus.Subscribe(context.Background(), "sub2", abi.QueryAll{})
	require.NoError(t, err)

	require.NoError(t, bus.UnsubscribeAll(context.Background(), "sub1"))
	assert.Equal(t, 1, bus.NumSubscribers())
}

func TestBus_Limits(t *testing.T) {
	bus := NewBusWithConfig(abi.EventBusConfig{MaxSubscribers: 2})
	require.NoError(t, bus.Start())
	defer bus.Stop()

	_, err := bus.Subscribe(context.Background(), "sub1", abi.QueryAll{})
	require.NoError(t, err)

	_, err = bus.Subscribe(context.Background(), "sub1", abi.QueryAll{})
	assert.ErrorIs(t, err, ErrSubscriberExists)

	_, err = bus.Subscribe(context.Background(), "sub2", abi.QueryAll{})
	require.NoError(t, err)

	_, err = bus.Subscribe(context.Background(), "sub3", abi.QueryAll{})
	assert.ErrorIs(t, err, ErrTooManySubscribers)
}

func TestBus_DropsWhenFull(t *testing.T) {
	bus := NewBusWithConfig(abi.EventBusConfig{BufferSize: 1})
	require.NoError(t, bus.Start())
	defer bus.Stop()

	ch, err := bus.Subscribe(context.Background(), "slow", abi.QueryAll{})
	require.NoError(t, err)

	require.NoError(t, bus.Publish(context.Background(), prizeAwarded("a")))
	require.NoError(t, bus.Publish(context.Background(), prizeAwarded("b")))
	assert.Equal(t, uint64(1), bus.Dropped())

	start := time.Now()
	require.NoError(t, bus.PublishWithTimeout(context.Background(), prizeAwarded("c"), 30*time.Millisecond))
	assert.GreaterOrEqual(t, time.Since(start), 30*time.Millisecond)
	assert.Equal(t, uint64(2), bus.Dropped())

	received := <-ch
	account, _ := received.Attribute(abi.AttributeKeyAccount)
	assert.Equal(t, "a", account)
}

func TestBus_PublishAllPreservesOrder(t *testing.T) {
	bus := NewBus()
	require.NoError(t, bus.Start())
	defer bus.Stop()

	ch, err := bus.Subscribe(context.Background(), "sub1", abi.QueryAll{})
	require.NoError(t, err)

	events := []abi.Event{
		abi.NewEvent(abi.EventTicketBought),
		abi.NewEvent(abi.EventTicketBought),
		prizeAwarded("x"),
	}
	require.NoError(t, bus.PublishAll(context.Background(), events))

	for _, want := range events {
		got := <-ch
		assert.Equal(t, want.Type, got.Type)
	}
}

func TestBus_PublishWithTimeoutCancelled(t *testing.T) {
	bus := NewBusWithConfig(abi.EventBusConfig{BufferSize: 1})
	require.NoError(t, bus.Start())
	defer bus.Stop()

	_, err := bus.Subscribe(context.Background(), "slow", abi.QueryAll{})
	require.NoError(t, err)
	require.NoError(t, bus.Publish(context.Background(), prizeAwarded("a")))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err = bus.PublishWithTimeout(ctx, prizeAwarded("b"), time.Second)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestBus_ConcurrentPublish(t *testing.T) {
	bus := NewBus()
	require.NoError(t, bus.Start())

	ch, err := bus.Subscribe(context.Background(), "sub1", abi.QueryAll{})
	require.NoError(t, err)

	received := 0
	done := make(chan struct{})
	go func() {
		for range ch {
			received++
		}
		close(done)
	}()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				_ = bus.Publish(context.Background(), abi.NewEvent(abi.EventTicketBought))
			}
		}()
	}
	wg.Wait()

	require.NoError(t, bus.Stop())
	<-done
	assert.Equal(t, uint64(500), uint64(received)+bus.Dropped())
}

func TestBus_StopClosesChannels(t *testing.T) {
	bus := NewBus()
	require.NoError(t, bus.Start())

	ch, err := bus.Subscribe(context.Background(), "sub1", abi.QueryAll{})
	require.NoError(t, err)

	require.NoError(t, bus.Stop())
	_, ok := <-ch
	assert.False(t, ok)
}

func TestBus_ContextCancellation(t *testing.T) {
	bus := NewBus()
	require.NoError(t, bus.Start())
	defer bus.Stop()

	ctx, cancel := context.WithCancel(context.Background())
	ch, err := bus.Subscribe(ctx, "sub1", abi.QueryAll{})
	require.NoError(t, err)
	assert.Equal(t, 1, bus.NumSubscribers())

	cancel()

	require.Eventually(t, func() bool { return bus.NumSubscribers() == 0 }, time.Second, 10*time.Millisecond)
	_, ok := <-ch
	assert.False(t, ok)
}

func TestBus_NumSubscribersForQuery(t *testing.T) {
	bus := NewBus()
	require.NoError(t, bus.Start())
	defer bus.Stop()

	query := abi.QueryEventType{EventType: abi.EventPrizeAwarded}
	_, err := bus.Subscribe(context.Background(), "sub1", query)
	require.NoError(t, err)
	_, err = bus.Subscribe(context.Background(), "sub2", query)
	require.NoError(t, err)
	_, err = bus.Subscribe(context.Background(), "sub3", abi.QueryAll{})
	require.NoError(t, err)

	assert.Equal(t, 3, bus.NumSubscribers())
	assert.Equal(t, 2, bus.NumSubscribersForQuery(query))
}
