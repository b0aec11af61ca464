package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/shaiso/Deck/internal/telemetry"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

// pingInterval — период ping-сообщений websocket-потока.
const pingInterval = 30 * time.Second

// GetState возвращает текущее состояние runtime.
// GET /api/v1/state
func (h *Handler) GetState(w http.ResponseWriter, r *http.Request) {
	Success(w, h.deck.State())
}

// StreamState отправляет переходы состояния по websocket.
// GET /api/v1/state/stream
//
// Первое сообщение — текущее состояние, дальше каждый переход.
func (h *Handler) StreamState(w http.ResponseWriter, r *http.Request) {
	l := telemetry.FromContext(r.Context()).With("handler", "StreamState")

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		l.Error("websocket upgrade failed", "err", err)
		return
	}
	defer func() {
		_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, "shutting down"), time.Now().Add(time.Second))
		conn.Close()
	}()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	// клиент закрыл соединение
	go func() {
		for {
			if _, _, err := conn.NextReader(); err != nil {
				l.Debug("stream client disconnected", "err", err)
				cancel()
				return
			}
		}
	}()

	// первым приходит текущее состояние
	states := h.deck.Watch(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case st, ok := <-states:
			if !ok {
				return
			}
			if err := conn.WriteJSON(st); err != nil {
				l.Debug("failed to write state", "err", err)
				return
			}
		case <-time.After(pingInterval):
			if err := conn.WriteControl(websocket.PingMessage, []byte{}, time.Now().Add(time.Second)); err != nil {
				l.Debug("ping failed", "err", err)
				return
			}
		}
	}
}
