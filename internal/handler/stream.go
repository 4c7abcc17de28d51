package handler

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/dharmasatrya/fareengine/internal/events"
)

// Events streams a search's progress as server-sent events until the search
// reaches a terminal state or the client goes away.
func (h *SearchHandler) Events(c echo.Context) error {
	id := c.Param("id")
	ctx := c.Request().Context()

	// Subscribe before reading state so no terminal event is missed.
	ch, unsubscribe := h.hub.Subscribe(id)
	defer unsubscribe()

	progress, running := h.base.GetProgress(id)
	if !running {
		sess, err := h.base.Session(ctx, id)
		if err != nil {
			return sessionError(c, err)
		}
		progress = finishedProgress(sess)
	}

	w := c.Response()
	w.Header().Set(echo.HeaderContentType, "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	if err := writeEvent(w, "progress", progress); err != nil {
		return nil
	}
	if progress.Status.IsTerminal() {
		return nil
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-ch:
			if !ok {
				return nil
			}
			if err := writeEvent(w, string(ev.Type), ev); err != nil {
				return nil
			}
			if events.Terminal(ev.Type) {
				return nil
			}
		}
	}
}

func writeEvent(w *echo.Response, name string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", name, data); err != nil {
		return err
	}
	w.Flush()
	return nil
}
