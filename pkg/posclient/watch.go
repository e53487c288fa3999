package posclient

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/gorilla/websocket"
)

// Watch keeps the mirror in sync with cart changes made by other sessions of
// the same user. It blocks until ctx is done or the connection fails. The
// first event is the current cart.
func (c *Client) Watch(ctx context.Context) error {
	wsURL, err := c.socketURL()
	if err != nil {
		return err
	}

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, wsURL, nil)
	if err != nil {
		return fmt.Errorf("failed to open cart socket: %w", err)
	}
	defer conn.Close()

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			conn.Close()
		case <-done:
		}
	}()

	for {
		var event Event
		if err := conn.ReadJSON(&event); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			var closeErr *websocket.CloseError
			if errors.As(err, &closeErr) && closeErr.Code == websocket.CloseNormalClosure {
				return nil
			}
			return fmt.Errorf("cart socket read failed: %w", err)
		}

		if event.Type == EventCartUpdated && event.Cart != nil {
			if event.Cart.Items == nil {
				event.Cart.Items = []CartLine{}
			}
			c.mirror.applyPush(event.Cart)
		}
	}
}

func (c *Client) socketURL() (string, error) {
	u, err := url.Parse(c.baseURL + "/cart/ws")
	if err != nil {
		return "", fmt.Errorf("invalid base URL: %w", err)
	}
	switch strings.ToLower(u.Scheme) {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}
	q := u.Query()
	q.Set("token", c.token)
	u.RawQuery = q.Encode()
	return u.String(), nil
}
