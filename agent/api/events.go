package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"
	contractx "github.com/tanpawarit/Chative-Voice-Agents/agent/contract"
)

const eventWriteTimeout = 5 * time.Second

// handleEvents streams the session's state events as JSON frames until the
// session ends or the client goes away.
func handleEvents(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if deps.Events == nil {
			httpError(w, http.StatusNotFound, "not_found_error", "event stream is disabled")
			return
		}
		view, err := deps.Service.Session(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			writeServiceError(w, err)
			return
		}

		events, cancel := deps.Events.Subscribe(view.SessionID)
		defer cancel()

		ws, err := websocket.Accept(w, r, &websocket.AcceptOptions{InsecureSkipVerify: true})
		if err != nil {
			log.Warn().Err(err).Str("session_id", view.SessionID).Msg("api: websocket accept failed")
			return
		}
		defer ws.CloseNow()

		// Reads are discarded; the returned context ends when the peer closes.
		ctx := ws.CloseRead(r.Context())

		if err := writeEvent(ctx, ws, contractx.Event{
			SessionID: view.SessionID,
			Agent:     view.Agent,
			Kind:      contractx.EventStateUpdated,
			Payload:   view.State,
			At:        view.UpdatedAt,
		}); err != nil {
			return
		}

		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-events:
				if !ok {
					ws.Close(websocket.StatusNormalClosure, "stream closed")
					return
				}
				if err := writeEvent(ctx, ws, ev); err != nil {
					return
				}
				if ev.Kind == contractx.EventSessionEnded {
					ws.Close(websocket.StatusNormalClosure, "session ended")
					return
				}
			}
		}
	}
}

func writeEvent(ctx context.Context, ws *websocket.Conn, ev contractx.Event) error {
	ctx, cancel := context.WithTimeout(ctx, eventWriteTimeout)
	defer cancel()
	err := wsjson.Write(ctx, ws, ev)
	if err != nil && !errors.Is(err, context.Canceled) {
		log.Debug().Err(err).Str("session_id", ev.SessionID).Msg("api: websocket write failed")
	}
	return err
}
