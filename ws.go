package tably

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/gorilla/websocket"
	"github.com/pkg/errors"
)

// WebsocketTransport dials the backend's per-table push endpoint at
// /ws/table/{id}. It carries the bearer token of the session, when
// one is configured.
type WebsocketTransport struct {
	BaseURL string
	Token   string
	Dialer  *websocket.Dialer
}

func NewWebsocketTransport(baseURL, token string) *WebsocketTransport {
	return &WebsocketTransport{
		BaseURL: baseURL,
		Token:   token,
		Dialer:  websocket.DefaultDialer,
	}
}

func (t *WebsocketTransport) endpoint(tableID int64) (string, error) {
	u, err := url.Parse(t.BaseURL)
	if err != nil {
		return "", errors.Wrapf(err, "invalid base url %q", t.BaseURL)
	}

	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	case "ws", "wss":
	default:
		return "", errors.Errorf("unsupported scheme %q in base url", u.Scheme)
	}

	u.Path = strings.TrimRight(u.Path, "/") + fmt.Sprintf("/ws/table/%d", tableID)

	return u.String(), nil
}

func (t *WebsocketTransport) Connect(ctx context.Context, tableID int64) (MessageSource, error) {
	endpoint, err := t.endpoint(tableID)
	if err != nil {
		return nil, err
	}

	header := http.Header{}
	if t.Token != "" {
		header.Set("Authorization", "Bearer "+t.Token)
	}

	dialer := t.Dialer
	if dialer == nil {
		dialer = websocket.DefaultDialer
	}

	conn, resp, err := dialer.DialContext(ctx, endpoint, header)
	if err != nil {
		if resp != nil {
			return nil, errors.Wrapf(err, "websocket dial failed with status %d", resp.StatusCode)
		}
		return nil, errors.Wrap(err, "websocket dial failed")
	}

	return &wsSource{conn: conn}, nil
}

type wsSource struct {
	conn *websocket.Conn
}

func (s *wsSource) Next() ([]byte, error) {
	_, data, err := s.conn.ReadMessage()
	if err != nil {
		return nil, errors.Wrap(ErrChannelClosed, err.Error())
	}

	return data, nil
}

func (s *wsSource) Close() error {
	// best effort close frame; the read loop unblocks on conn close
	_ = s.conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))

	return s.conn.Close()
}
