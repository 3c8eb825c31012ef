// pkg/posclient/socket.go
package posclient

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strings"

	"github.com/gorilla/websocket"
	"github.com/juju/errors"

	"github.com/mahabubulhasibshawon/coffeeshop-pos/internal/application"
)

// Frame is one message of the shift stream. Type is "state" for the first
// frame, "tick" every second, or a supervisor event such as "warning" or
// "expired".
type Frame struct {
	Type             string                  `json:"type"`
	IsActive         bool                    `json:"isActive"`
	RemainingSeconds int64                   `json:"remainingSeconds"`
	ElapsedSeconds   int64                   `json:"elapsedSeconds"`
	Remaining        string                  `json:"remaining"`
	Shift            *application.ShiftState `json:"shift,omitempty"`
}

// Final reports whether the server closes the stream after this frame.
func (f Frame) Final() bool { return f.Type == "expired" || f.Type == "ended" }

func (c *Client) socketURL() (string, error) {
	u, err := url.Parse(c.base + "/shifts/ws")
	if err != nil {
		return "", errors.Trace(err)
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}
	q := u.Query()
	q.Set("token", c.Token())
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// WatchShift streams the caller's shift to fn until the shift ends, fn
// returns an error or ctx is done.
func (c *Client) WatchShift(ctx context.Context, fn func(Frame) error) error {
	target, err := c.socketURL()
	if err != nil {
		return err
	}
	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, target, nil)
	if err != nil {
		if resp != nil {
			defer resp.Body.Close()
			if resp.StatusCode == http.StatusUnauthorized {
				c.unauthorized()
			}
			var env envelope
			if json.NewDecoder(resp.Body).Decode(&env) == nil {
				return errorFor(resp.StatusCode, env)
			}
			if resp.StatusCode == http.StatusUnauthorized {
				return errors.NewUnauthorized(err, http.StatusText(resp.StatusCode))
			}
		}
		return errors.Annotate(err, "opening shift stream")
	}
	defer conn.Close()

	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-stop:
		}
	}()

	for {
		var f Frame
		if err := conn.ReadJSON(&f); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if websocket.IsCloseError(err, websocket.CloseNormalClosure) || strings.Contains(err.Error(), "EOF") {
				return nil
			}
			return errors.Annotate(err, "reading shift stream")
		}
		if err := fn(f); err != nil {
			return err
		}
		if f.Final() {
			return nil
		}
	}
}
