package userstate

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pressing_chatbot_backend/internal/orders"
	"pressing_chatbot_backend/platform/apperr"
)

func newRedisUnderTest(t *testing.T) Store {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisStore(client)
}

func newFileUnderTest(t *testing.T) Store {
	t.Helper()
	return NewFileStore(t.TempDir())
}

func stores(t *testing.T) map[string]Store {
	return map[string]Store{
		"redis": newRedisUnderTest(t),
		"file":  newFileUnderTest(t),
	}
}

func conv(c Conversation) *Conversation { return &c }

func TestGet_UnknownPhoneReturnsDefault(t *testing.T) {
	for name, store := range stores(t) {
		state, err := store.Get(context.Background(), "22670000001")
		require.NoError(t, err, name)
		assert.Equal(t, StateNew, state.Conversation, name)
		assert.Nil(t, state.LastMessageAt, name)
		assert.Nil(t, state.PendingOrder, name)
	}
}

func TestSave_MergesPartialUpdates(t *testing.T) {
	for name, store := range stores(t) {
		ctx := context.Background()
		now := time.Date(2024, 5, 10, 9, 0, 0, 0, time.UTC)

		require.NoError(t, store.Save(ctx, "22670000002", Update{
			LastMessageAt: &now,
			Conversation:  conv(StateMenu),
		}), name)

		// A later update touching only the conversation must keep the timestamp.
		require.NoError(t, store.Save(ctx, "22670000002", Update{
			Conversation: conv(Service(3)),
		}), name)

		state, err := store.Get(ctx, "22670000002")
		require.NoError(t, err, name)
		assert.Equal(t, Service(3), state.Conversation, name)
		require.NotNil(t, state.LastMessageAt, name)
		assert.True(t, state.LastMessageAt.Equal(now), name)
	}
}

func TestSave_PendingOrderRoundTripAndClear(t *testing.T) {
	for name, store := range stores(t) {
		ctx := context.Background()
		draft := &orders.Draft{
			ID:          "ord-1",
			ClientPhone: "22670000003",
			TotalAmount: 2000,
			Status:      orders.StatusPending,
			Lines: []orders.Line{
				{Designation: "Chemise", Variant: "NE", Quantity: 2, UnitPrice: 1000, Total: 2000},
			},
		}

		require.NoError(t, store.Save(ctx, "22670000003", Update{
			Conversation: conv(StateAwaitingConfirmation),
			PendingOrder: draft,
		}), name)

		state, err := store.Get(ctx, "22670000003")
		require.NoError(t, err, name)
		require.NotNil(t, state.PendingOrder, name)
		assert.Equal(t, 2000, state.PendingOrder.TotalAmount, name)

		require.NoError(t, store.Save(ctx, "22670000003", Update{
			Conversation:      conv(StateOrderConfirmed),
			ClearPendingOrder: true,
		}), name)

		state, err = store.Get(ctx, "22670000003")
		require.NoError(t, err, name)
		assert.Nil(t, state.PendingOrder, name)
		assert.Equal(t, StateOrderConfirmed, state.Conversation, name)
	}
}

func TestClear_ResetsToDefault(t *testing.T) {
	for name, store := range stores(t) {
		ctx := context.Background()
		require.NoError(t, store.Save(ctx, "22670000004", Update{Conversation: conv(StateWaitAgent)}), name)
		require.NoError(t, store.Clear(ctx, "22670000004"), name)

		state, err := store.Get(ctx, "22670000004")
		require.NoError(t, err, name)
		assert.Equal(t, StateNew, state.Conversation, name)
	}
}

func TestEmptyPhoneIsRejected(t *testing.T) {
	for name, store := range stores(t) {
		_, err := store.Get(context.Background(), " ")
		assert.True(t, apperr.Is(err, apperr.KindValidation), name)
		err = store.Save(context.Background(), "", Update{})
		assert.True(t, apperr.Is(err, apperr.KindValidation), name)
		err = store.Clear(context.Background(), "")
		assert.True(t, apperr.Is(err, apperr.KindValidation), name)
	}
}

func TestConcurrentSavesDoNotCorruptState(t *testing.T) {
	for name, store := range stores(t) {
		ctx := context.Background()
		var wg sync.WaitGroup
		for i := 0; i < 20; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				ts := time.Now().UTC()
				_ = store.Save(ctx, "22670000005", Update{
					LastMessageAt: &ts,
					Conversation:  conv(StateMenu),
				})
			}(i)
		}
		wg.Wait()

		state, err := store.Get(ctx, "22670000005")
		require.NoError(t, err, name)
		assert.Equal(t, StateMenu, state.Conversation, name)
		assert.NotNil(t, state.LastMessageAt, name)
	}
}

func TestConversationTags(t *testing.T) {
	assert.Equal(t, Conversation("service_4"), Service(4))
	assert.Equal(t, 4, Service(4).ServiceNumber())
	assert.Equal(t, 0, StateMenu.ServiceNumber())
	assert.True(t, StateAwaitingConfirmation.Valid())
	assert.True(t, Service(2).Valid())
	assert.False(t, Conversation("bogus").Valid())
}
