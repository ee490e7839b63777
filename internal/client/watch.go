package client

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"path"

	"github.com/coder/websocket"

	"taskdeck/internal/api"
)

// EventsURL derives the websocket change feed from the API base URL:
// http://host/api/Task becomes ws://host/api/events.
func (c *Client) EventsURL() (string, error) {
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return "", err
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}
	u.Path = path.Join(path.Dir(u.Path), "events")
	u.RawQuery = ""
	return u.String(), nil
}

// Watch subscribes to the server's change feed. The channel is closed when
// ctx ends or the connection drops.
func (c *Client) Watch(ctx context.Context) (<-chan api.ChangeEvent, error) {
	wsURL, err := c.EventsURL()
	if err != nil {
		return nil, err
	}
	conn, _, err := websocket.Dial(ctx, wsURL, nil)
	if err != nil {
		return nil, fmt.Errorf("ws dial: %w", err)
	}

	events := make(chan api.ChangeEvent, 16)
	go func() {
		defer close(events)
		defer conn.Close(websocket.StatusNormalClosure, "bye")
		for {
			_, data, err := conn.Read(ctx)
			if err != nil {
				if websocket.CloseStatus(err) == -1 && ctx.Err() == nil {
					slog.Debug("ws read error", "error", err)
				}
				return
			}
			var ev api.ChangeEvent
			if err := json.Unmarshal(data, &ev); err != nil {
				slog.Debug("ws unmarshal change event", "error", err)
				continue
			}
			select {
			case events <- ev:
			case <-ctx.Done():
				return
			}
		}
	}()
	return events, nil
}
