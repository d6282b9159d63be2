package push

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync"

	"ordersync/internal/models"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// wsJoinFrame is the hub's group-join invocation. The hub does not persist
// membership across connections, which is why the channel re-sends these on
// every connect.
type wsJoinFrame struct {
	Invocation string `json:"invocation"`
	UserID     int64  `json:"userId,omitempty"`
}

// WebsocketTransport speaks the order hub's frame protocol: join invocations
// out, JSON push events in.
type WebsocketTransport struct {
	url    string
	token  string
	logger *zap.Logger

	mu   sync.Mutex
	conn *websocket.Conn
}

func NewWebsocketTransport(url, token string, logger *zap.Logger) *WebsocketTransport {
	return &WebsocketTransport{url: url, token: token, logger: logger}
}

// Connect dials the hub, joins the groups and starts the read loop.
func (t *WebsocketTransport) Connect(ctx context.Context, groups []string) (<-chan models.PushEvent, error) {
	header := http.Header{}
	if t.token != "" {
		header.Set("Authorization", "Bearer "+t.token)
	}

	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, t.url, header)
	if err != nil {
		return nil, fmt.Errorf("hub dial failed: %w", err)
	}
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}

	for _, group := range groups {
		frame, err := joinFrameFor(group)
		if err != nil {
			_ = conn.Close()
			return nil, err
		}
		if err := conn.WriteJSON(frame); err != nil {
			_ = conn.Close()
			return nil, fmt.Errorf("group join failed for %q: %w", group, err)
		}
	}

	t.mu.Lock()
	if t.conn != nil {
		_ = t.conn.Close()
	}
	t.conn = conn
	t.mu.Unlock()

	out := make(chan models.PushEvent)
	go func() {
		defer close(out)
		for {
			var ev models.PushEvent
			if err := conn.ReadJSON(&ev); err != nil {
				if ctx.Err() == nil && !websocket.IsCloseError(err, websocket.CloseNormalClosure) {
					t.logger.Warn("Hub read failed", zap.Error(err))
				}
				return
			}
			select {
			case out <- ev:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}

// joinFrameFor maps a group name onto the hub's two join operations.
func joinFrameFor(group string) (wsJoinFrame, error) {
	if group == GroupAdmin {
		return wsJoinFrame{Invocation: "JoinAdminGroup"}, nil
	}
	if rest, ok := strings.CutPrefix(group, "orders.user."); ok {
		userID, err := strconv.ParseInt(rest, 10, 64)
		if err != nil {
			return wsJoinFrame{}, fmt.Errorf("malformed user group %q", group)
		}
		return wsJoinFrame{Invocation: "JoinUserGroup", UserID: userID}, nil
	}
	return wsJoinFrame{}, fmt.Errorf("unknown group %q", group)
}

// Close drops the current connection.
func (t *WebsocketTransport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.conn != nil {
		err := t.conn.Close()
		t.conn = nil
		return err
	}
	return nil
}
