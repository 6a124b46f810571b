package memstore

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"instant-chat/internal/ports"
)

func upsert(collection, id string, fields map[string]interface{}) ports.Upsert {
	return ports.Upsert{Collection: collection, ID: id, Fields: fields}
}

func waitSnapshot(t *testing.T, ch <-chan []ports.Record) []ports.Record {
	t.Helper()
	select {
	case snap, ok := <-ch:
		require.True(t, ok, "snapshot channel closed unexpectedly")
		return snap
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for snapshot")
		return nil
	}
}

func TestStore(t *testing.T) {
	ctx := context.Background()

	t.Run("QueryOnceEmptyCollection", func(t *testing.T) {
		s := New()
		recs, err := s.QueryOnce(ctx, ports.Query{Collection: "chats"})
		require.NoError(t, err)
		assert.Empty(t, recs)
	})

	t.Run("QueryOnceRequiresCollection", func(t *testing.T) {
		s := New()
		_, err := s.QueryOnce(ctx, ports.Query{})
		assert.Error(t, err)
	})

	t.Run("UpsertMergesFields", func(t *testing.T) {
		s := New()
		require.NoError(t, s.Transact(ctx, []ports.Upsert{
			upsert("chats", "c1", map[string]interface{}{"name": "General", "createdAt": 100}),
		}))
		require.NoError(t, s.Transact(ctx, []ports.Upsert{
			upsert("chats", "c1", map[string]interface{}{"lastMessageAt": 200}),
		}))

		recs, err := s.QueryOnce(ctx, ports.Query{Collection: "chats"})
		require.NoError(t, err)
		require.Len(t, recs, 1)
		// Поля, не входившие во вторую запись, сохраняются
		assert.Equal(t, "General", recs[0]["name"])
		assert.Equal(t, float64(100), recs[0]["createdAt"])
		assert.Equal(t, float64(200), recs[0]["lastMessageAt"])
	})

	t.Run("WhereFilterAndLimit", func(t *testing.T) {
		s := New()
		require.NoError(t, s.Transact(ctx, []ports.Upsert{
			upsert("messages", "m1", map[string]interface{}{"chatId": "c1", "content": "one"}),
			upsert("messages", "m2", map[string]interface{}{"chatId": "c2", "content": "two"}),
			upsert("messages", "m3", map[string]interface{}{"chatId": "c1", "content": "three"}),
		}))

		recs, err := s.QueryOnce(ctx, ports.Query{
			Collection: "messages",
			Where:      map[string]interface{}{"chatId": "c1"},
		})
		require.NoError(t, err)
		assert.Len(t, recs, 2)

		recs, err = s.QueryOnce(ctx, ports.Query{
			Collection: "messages",
			Where:      map[string]interface{}{"chatId": "c1"},
			Limit:      1,
		})
		require.NoError(t, err)
		assert.Len(t, recs, 1)
	})

	t.Run("NumericFilterMatchesAcrossTypes", func(t *testing.T) {
		s := New()
		require.NoError(t, s.Transact(ctx, []ports.Upsert{
			upsert("messages", "m1", map[string]interface{}{"createdAt": int64(42)}),
		}))

		// После нормализации число хранится как float64, фильтр задан int
		recs, err := s.QueryOnce(ctx, ports.Query{
			Collection: "messages",
			Where:      map[string]interface{}{"createdAt": 42},
		})
		require.NoError(t, err)
		assert.Len(t, recs, 1)
	})

	t.Run("TransactRejectsInvalidUpsertWithoutApplyingAnything", func(t *testing.T) {
		s := New()
		err := s.Transact(ctx, []ports.Upsert{
			upsert("chats", "c1", map[string]interface{}{"name": "General"}),
			upsert("chats", "", map[string]interface{}{"name": "Broken"}),
		})
		require.Error(t, err)

		// Первая операция пакета тоже не применилась
		recs, err := s.QueryOnce(ctx, ports.Query{Collection: "chats"})
		require.NoError(t, err)
		assert.Empty(t, recs)
	})

	t.Run("TransactRejectsUnserializableFields", func(t *testing.T) {
		s := New()
		err := s.Transact(ctx, []ports.Upsert{
			upsert("chats", "c1", map[string]interface{}{"bad": make(chan int)}),
		})
		assert.Error(t, err)
	})

	t.Run("RecordsDoNotShareStateWithCaller", func(t *testing.T) {
		s := New()
		fields := map[string]interface{}{"name": "General"}
		require.NoError(t, s.Transact(ctx, []ports.Upsert{upsert("chats", "c1", fields)}))

		// Изменение исходной карты после записи не влияет на хранилище
		fields["name"] = "Mutated"

		recs, err := s.QueryOnce(ctx, ports.Query{Collection: "chats"})
		require.NoError(t, err)
		require.Len(t, recs, 1)
		assert.Equal(t, "General", recs[0]["name"])
	})
}

func TestSubscription(t *testing.T) {
	ctx := context.Background()

	t.Run("InitialSnapshotDeliveredImmediately", func(t *testing.T) {
		s := New()
		require.NoError(t, s.Transact(ctx, []ports.Upsert{
			upsert("chats", "c1", map[string]interface{}{"name": "General"}),
		}))

		sub, err := s.Subscribe(ctx, ports.Query{Collection: "chats"})
		require.NoError(t, err)
		defer sub.Close()

		snap := waitSnapshot(t, sub.Snapshots())
		require.Len(t, snap, 1)
		assert.Equal(t, "General", snap[0]["name"])
	})

	t.Run("TransactTriggersNewSnapshot", func(t *testing.T) {
		s := New()
		sub, err := s.Subscribe(ctx, ports.Query{Collection: "chats"})
		require.NoError(t, err)
		defer sub.Close()

		snap := waitSnapshot(t, sub.Snapshots())
		assert.Empty(t, snap)

		require.NoError(t, s.Transact(ctx, []ports.Upsert{
			upsert("chats", "c1", map[string]interface{}{"name": "General"}),
		}))

		snap = waitSnapshot(t, sub.Snapshots())
		require.Len(t, snap, 1)
		assert.Equal(t, "General", snap[0]["name"])
	})

	t.Run("SnapshotsRespectSubscriptionFilter", func(t *testing.T) {
		s := New()
		sub, err := s.Subscribe(ctx, ports.Query{
			Collection: "messages",
			Where:      map[string]interface{}{"chatId": "c1"},
		})
		require.NoError(t, err)
		defer sub.Close()

		waitSnapshot(t, sub.Snapshots())

		require.NoError(t, s.Transact(ctx, []ports.Upsert{
			upsert("messages", "m1", map[string]interface{}{"chatId": "c1"}),
			upsert("messages", "m2", map[string]interface{}{"chatId": "c2"}),
		}))

		snap := waitSnapshot(t, sub.Snapshots())
		require.Len(t, snap, 1)
		assert.Equal(t, "c1", snap[0]["chatId"])
	})

	t.Run("CloseStopsDelivery", func(t *testing.T) {
		s := New()
		sub, err := s.Subscribe(ctx, ports.Query{Collection: "chats"})
		require.NoError(t, err)

		waitSnapshot(t, sub.Snapshots())
		sub.Close()

		select {
		case _, ok := <-sub.Snapshots():
			assert.False(t, ok, "channel should be closed")
		case <-time.After(time.Second):
			t.Fatal("timed out waiting for channel close")
		}
	})

	t.Run("ContextCancelStopsDelivery", func(t *testing.T) {
		s := New()
		subCtx, cancel := context.WithCancel(ctx)
		sub, err := s.Subscribe(subCtx, ports.Query{Collection: "chats"})
		require.NoError(t, err)

		waitSnapshot(t, sub.Snapshots())
		cancel()

		select {
		case _, ok := <-sub.Snapshots():
			assert.False(t, ok, "channel should be closed")
		case <-time.After(time.Second):
			t.Fatal("timed out waiting for channel close")
		}
	})
}
