package relay

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/bytedance/sonic"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/formfill/internal/infrastructure/logging"
	"github.com/GriffinCanCode/formfill/internal/shared/types"
)

// PageConn is a page's websocket connection to the relay.
type PageConn struct {
	ws     *websocket.Conn
	page   *Page
	origin Origin
	logger *logging.Logger

	writeMu   sync.Mutex
	closeOnce sync.Once
	closed    atomic.Bool
}

// DialPage connects page to the relay at relayURL (http or ws scheme) as
// origin and wires the page's reports to the connection. Call Run to start
// handling messages.
func DialPage(ctx context.Context, relayURL string, origin Origin, page *Page, logger *logging.Logger) (*PageConn, error) {
	if logger == nil {
		logger = logging.NewNop()
	}

	u, err := url.Parse(relayURL)
	if err != nil {
		return nil, fmt.Errorf("invalid relay url: %w", err)
	}
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	}
	u.Path = "/pages/ws"
	q := u.Query()
	q.Set("tab", strconv.Itoa(origin.TabID))
	q.Set("frame", strconv.Itoa(origin.FrameID))
	u.RawQuery = q.Encode()

	ws, _, err := websocket.DefaultDialer.DialContext(ctx, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("connect to relay: %w", err)
	}
	ws.SetReadLimit(maxMessageSize)

	pc := &PageConn{ws: ws, page: page, origin: origin, logger: logger.Named("page-conn")}
	page.Connect(pc)
	return pc, nil
}

// Report sends a page message to the relay.
func (pc *PageConn) Report(ctx context.Context, msg types.RelayMessage) error {
	data, err := sonic.Marshal(msg)
	if err != nil {
		return err
	}

	deadline := time.Now().Add(writeWait)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}

	pc.writeMu.Lock()
	defer pc.writeMu.Unlock()
	if err := pc.ws.SetWriteDeadline(deadline); err != nil {
		return err
	}
	return pc.ws.WriteMessage(websocket.TextMessage, data)
}

// Run handles relay messages until the connection closes or ctx is done.
// A normal close by either side returns nil.
func (pc *PageConn) Run(ctx context.Context) error {
	stop := context.AfterFunc(ctx, func() { _ = pc.Close() })
	defer stop()

	for {
		_, data, err := pc.ws.ReadMessage()
		if err != nil {
			if ctx.Err() != nil || pc.closed.Load() || websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) ||
				errors.Is(err, websocket.ErrCloseSent) {
				return nil
			}
			return fmt.Errorf("relay connection: %w", err)
		}

		var msg types.RelayMessage
		if err := sonic.Unmarshal(data, &msg); err != nil {
			pc.logger.Warn("dropping malformed relay message", zap.Error(err))
			continue
		}
		if err := pc.page.Handle(ctx, msg); err != nil {
			pc.logger.Warn("page failed to handle message",
				zap.Stringer("origin", pc.origin),
				zap.String("kind", kindOf(msg)),
				zap.Error(err),
			)
		}
	}
}

// Close sends a close frame and closes the connection.
func (pc *PageConn) Close() error {
	var err error
	pc.closeOnce.Do(func() {
		pc.closed.Store(true)
		pc.writeMu.Lock()
		_ = pc.ws.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second))
		pc.writeMu.Unlock()
		err = pc.ws.Close()
	})
	return err
}
