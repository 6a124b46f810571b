package remote

import (
	"bytes"
	"context"
	"log/slog"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"instant-chat/internal/identity"
	"instant-chat/internal/pkg/config"
	"instant-chat/internal/ports"
	"instant-chat/internal/server"
	"instant-chat/internal/store/memstore"
	"instant-chat/internal/uploads"
)

func newBackend(t *testing.T) *httptest.Server {
	t.Helper()

	cfg := &config.Config{
		Server:   config.Server{Host: "localhost", Port: 8080, ShutdownTimeoutSeconds: 15},
		Uploads:  config.Uploads{MaxFileSizeMB: 5},
		Identity: config.Identity{MagicCodeTTLMinutes: 10},
		Logging:  config.Logging{Level: "info"},
	}
	logger := slog.New(slog.NewTextHandler(bytes.NewBuffer(nil), nil))
	srv, err := server.New(cfg,
		memstore.New(),
		uploads.NewUploader(uploads.NewInlineStrategy(), cfg.MaxFileSizeBytes(), logger),
		identity.NewDevIssuer(10*time.Minute, logger),
		logger,
	)
	require.NoError(t, err)

	ts := httptest.NewServer(srv.HTTPServer.Handler)
	t.Cleanup(ts.Close)
	return ts
}

func TestRemoteStore(t *testing.T) {
	ctx := context.Background()

	t.Run("TransactAndQueryRoundtrip", func(t *testing.T) {
		store := New(newBackend(t).URL)

		require.NoError(t, store.Transact(ctx, []ports.Upsert{{
			Collection: "chats",
			ID:         "c1",
			Fields:     map[string]interface{}{"name": "General", "createdAt": 100},
		}}))

		recs, err := store.QueryOnce(ctx, ports.Query{
			Collection: "chats",
			Where:      map[string]interface{}{"name": "General"},
		})
		require.NoError(t, err)
		require.Len(t, recs, 1)
		assert.Equal(t, "General", recs[0]["name"])
		assert.Equal(t, float64(100), recs[0]["createdAt"])
	})

	t.Run("TransactRejectionIsReported", func(t *testing.T) {
		store := New(newBackend(t).URL)
		err := store.Transact(ctx, []ports.Upsert{{Collection: "chats", ID: ""}})
		assert.Error(t, err)
	})

	t.Run("SubscribeDeliversSnapshots", func(t *testing.T) {
		store := New(newBackend(t).URL)

		sub, err := store.Subscribe(ctx, ports.Query{Collection: "messages"})
		require.NoError(t, err)
		defer sub.Close()

		select {
		case snap := <-sub.Snapshots():
			assert.Empty(t, snap)
		case <-time.After(2 * time.Second):
			t.Fatal("timed out waiting for initial snapshot")
		}

		require.NoError(t, store.Transact(ctx, []ports.Upsert{{
			Collection: "messages",
			ID:         "m1",
			Fields:     map[string]interface{}{"content": "hello"},
		}}))

		select {
		case snap := <-sub.Snapshots():
			require.Len(t, snap, 1)
			assert.Equal(t, "hello", snap[0]["content"])
		case <-time.After(2 * time.Second):
			t.Fatal("timed out waiting for updated snapshot")
		}
	})

	t.Run("CloseEndsDelivery", func(t *testing.T) {
		store := New(newBackend(t).URL)

		sub, err := store.Subscribe(ctx, ports.Query{Collection: "messages"})
		require.NoError(t, err)

		<-sub.Snapshots()
		sub.Close()

		select {
		case _, ok := <-sub.Snapshots():
			assert.False(t, ok, "channel should be closed")
		case <-time.After(2 * time.Second):
			t.Fatal("timed out waiting for channel close")
		}
	})
}
