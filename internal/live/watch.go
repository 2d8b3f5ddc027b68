package live

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/gorilla/websocket"
	"github.com/pkg/errors"

	"permisconnect/internal/events"
)

// URL builds the feed address of an auto-école from the websocket base
// (e.g. ws://localhost:8080/ws).
func URL(base string, autoEcoleID int64) string {
	return fmt.Sprintf("%s/auto-ecoles/%d", strings.TrimRight(base, "/"), autoEcoleID)
}

// Watch reads slot events from url and calls fn for each one until ctx is
// done or the connection drops. A token, when set, is sent as a bearer.
func Watch(ctx context.Context, url, token string, fn func(events.SlotStatusChanged)) error {
	header := http.Header{}
	if token != "" {
		header.Set("Authorization", "Bearer "+token)
	}
	ws, _, err := websocket.DefaultDialer.DialContext(ctx, url, header)
	if err != nil {
		return errors.Wrapf(err, "dial %s", url)
	}
	defer ws.Close()

	stop := context.AfterFunc(ctx, func() { ws.Close() })
	defer stop()

	for {
		var ev events.SlotStatusChanged
		if err := ws.ReadJSON(&ev); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return errors.Wrap(err, "read slot event")
		}
		fn(ev)
	}
}
