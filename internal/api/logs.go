package api

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/websocket"
)

const websocketHandshakeTimeout = 10 * time.Second

// TailLogs streams the backend's live log feed to dst until the context
// is cancelled or the connection closes. This is a display-only channel;
// no console state flows through it.
func (c *Client) TailLogs(ctx context.Context, dst io.Writer) error {
	wsURL, err := makeWebsocketURL(c.base.BaseURL())
	if err != nil {
		return err
	}

	dialer := &websocket.Dialer{
		Proxy:             http.ProxyFromEnvironment,
		HandshakeTimeout:  websocketHandshakeTimeout,
		EnableCompression: true,
	}
	header := http.Header{}
	header.Set("Authorization", c.creds.Token())

	conn, _, err := dialer.DialContext(ctx, wsURL, header)
	if err != nil {
		return fmt.Errorf("api: websocket dial: %w", err)
	}
	defer conn.Close()

	go func() {
		<-ctx.Done()
		conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(2*time.Second))
		conn.Close()
	}()

	for {
		messageType, payload, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if isNormalClose(err) {
				return nil
			}
			return fmt.Errorf("api: read log stream: %w", err)
		}
		if messageType != websocket.TextMessage || len(payload) == 0 {
			continue
		}
		if _, err := dst.Write(payload); err != nil {
			return err
		}
	}
}

// makeWebsocketURL derives the /ws/log endpoint from the API base
// address, which carries an /api suffix the websocket route lives above.
func makeWebsocketURL(base string) (string, error) {
	u, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("api: parse base url: %w", err)
	}
	switch strings.ToLower(u.Scheme) {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}
	u.Path = strings.TrimSuffix(strings.TrimSuffix(u.Path, "/"), "/api") + "/ws/log"
	u.RawQuery = ""
	return u.String(), nil
}

func isNormalClose(err error) bool {
	if err == nil {
		return true
	}
	if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
		return true
	}
	return errors.Is(err, io.EOF)
}
