package live

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"permisconnect/internal/events"
	"permisconnect/internal/models"
)

func TestURL(t *testing.T) {
	assert.Equal(t, "ws://h/ws/auto-ecoles/3", URL("ws://h/ws/", 3))
}

func TestHub_DeliversToWatchers(t *testing.T) {
	hub := NewHub(nil)
	r := chi.NewRouter()
	r.Mount("/ws", hub.Routes())
	srv := httptest.NewServer(r)
	defer srv.Close()

	base := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	got := make(chan events.SlotStatusChanged, 1)
	done := make(chan error, 1)
	go func() {
		done <- Watch(ctx, URL(base, 1), "", func(ev events.SlotStatusChanged) { got <- ev })
	}()

	require.Eventually(t, func() bool { return hub.Subscribers(1) == 1 }, 2*time.Second, 10*time.Millisecond)

	hub.Broadcast(events.SlotStatusChanged{SlotID: 9, AutoEcoleID: 2, To: models.SlotBooked})
	hub.Broadcast(events.SlotStatusChanged{SlotID: 7, AutoEcoleID: 1, To: models.SlotBooked})

	select {
	case ev := <-got:
		assert.Equal(t, int64(7), ev.SlotID, "only events of the watched auto-école")
	case <-time.After(2 * time.Second):
		t.Fatal("no event received")
	}

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("watch did not stop")
	}
	require.Eventually(t, func() bool { return hub.Subscribers(1) == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestWatch_DialError(t *testing.T) {
	err := Watch(context.Background(), "ws://127.0.0.1:1/ws/auto-ecoles/1", "", func(events.SlotStatusChanged) {})
	assert.Error(t, err)
}
