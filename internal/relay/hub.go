package relay

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/bytedance/sonic"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/formfill/internal/infrastructure/logging"
	"github.com/GriffinCanCode/formfill/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/formfill/internal/shared/types"
)

const (
	writeWait      = 10 * time.Second
	maxMessageSize = 1 << 20
)

// PageHandler receives messages reported by pages.
type PageHandler func(ctx context.Context, origin Origin, msg types.RelayMessage) error

// pageConn is one connected page. Writes are serialized by writeMu.
type pageConn struct {
	id      string
	origin  Origin
	ws      *websocket.Conn
	writeMu sync.Mutex
}

func (pc *pageConn) write(ctx context.Context, msg types.RelayMessage) error {
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

// Hub holds the websocket connections of pages and implements PageTransport.
type Hub struct {
	upgrader websocket.Upgrader
	handler  PageHandler
	logger   *logging.Logger
	metrics  *monitoring.Metrics

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu     sync.RWMutex
	conns  map[Origin]*pageConn
	closed bool
}

// NewHub creates a hub. Messages from pages go to handler, each on its own
// goroutine so a slow proxy call never stalls a page's connection.
func NewHub(handler PageHandler, logger *logging.Logger) *Hub {
	if logger == nil {
		logger = logging.NewNop()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Hub{
		upgrader: websocket.Upgrader{
			// Pages connect from arbitrary origins; the relay listens on
			// loopback only.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		handler: handler,
		logger:  logger.Named("hub"),
		ctx:     ctx,
		cancel:  cancel,
		conns:   make(map[Origin]*pageConn),
	}
}

// WithMetrics adds metrics tracking to the hub
func (h *Hub) WithMetrics(metrics *monitoring.Metrics) *Hub {
	h.metrics = metrics
	return h
}

// SetHandler replaces the page message handler.
func (h *Hub) SetHandler(handler PageHandler) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.handler = handler
}

// Send delivers msg to the page at origin.
func (h *Hub) Send(ctx context.Context, origin Origin, msg types.RelayMessage) error {
	h.mu.RLock()
	pc, ok := h.conns[origin]
	h.mu.RUnlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrNoPage, origin)
	}
	if err := pc.write(ctx, msg); err != nil {
		return fmt.Errorf("write to %s: %w", origin, err)
	}
	return nil
}

// Pages lists connected origins in order.
func (h *Hub) Pages() []Origin {
	h.mu.RLock()
	defer h.mu.RUnlock()
	origins := make([]Origin, 0, len(h.conns))
	for o := range h.conns {
		origins = append(origins, o)
	}
	sort.Slice(origins, func(i, j int) bool {
		if origins[i].TabID != origins[j].TabID {
			return origins[i].TabID < origins[j].TabID
		}
		return origins[i].FrameID < origins[j].FrameID
	})
	return origins
}

// HandleConnection upgrades a page connection. The query parameters tab and
// frame name the origin; frame defaults to 0, the top frame.
func (h *Hub) HandleConnection(c *gin.Context) {
	origin, err := parseOrigin(c.Query("tab"), c.DefaultQuery("frame", "0"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": err.Error()})
		return
	}

	h.mu.RLock()
	closed := h.closed
	h.mu.RUnlock()
	if closed {
		c.JSON(http.StatusServiceUnavailable, gin.H{"success": false, "error": "relay shutting down"})
		return
	}

	ws, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warn("WebSocket upgrade failed", zap.Error(err))
		return
	}
	ws.SetReadLimit(maxMessageSize)

	pc := &pageConn{id: uuid.NewString(), origin: origin, ws: ws}
	h.register(pc)
	defer h.unregister(pc)

	h.readLoop(pc)
}

func (h *Hub) readLoop(pc *pageConn) {
	for {
		_, data, err := pc.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				h.logger.Warn("page connection lost", zap.String("conn_id", pc.id), zap.Error(err))
			}
			return
		}

		var msg types.RelayMessage
		if err := sonic.Unmarshal(data, &msg); err != nil {
			h.logger.Warn("dropping malformed page message", zap.String("conn_id", pc.id), zap.Error(err))
			continue
		}

		h.mu.RLock()
		handler := h.handler
		accept := handler != nil && !h.closed
		if accept {
			h.wg.Add(1)
		}
		h.mu.RUnlock()
		if !accept {
			continue
		}

		go func() {
			defer h.wg.Done()
			if err := handler(h.ctx, pc.origin, msg); err != nil {
				h.logger.Warn("page message failed",
					zap.Stringer("origin", pc.origin),
					zap.String("kind", kindOf(msg)),
					zap.Error(err),
				)
			}
		}()
	}
}

func (h *Hub) register(pc *pageConn) {
	h.mu.Lock()
	old := h.conns[pc.origin]
	h.conns[pc.origin] = pc
	h.mu.Unlock()

	if old != nil {
		h.logger.Info("page reconnected, closing previous connection", zap.Stringer("origin", pc.origin))
		_ = old.ws.Close()
	} else {
		h.metrics.IncPages()
	}
	h.logger.Info("page connected", zap.Stringer("origin", pc.origin), zap.String("conn_id", pc.id))
}

func (h *Hub) unregister(pc *pageConn) {
	h.mu.Lock()
	current := h.conns[pc.origin] == pc
	if current {
		delete(h.conns, pc.origin)
	}
	h.mu.Unlock()

	_ = pc.ws.Close()
	if current {
		h.metrics.DecPages()
		h.logger.Info("page disconnected", zap.Stringer("origin", pc.origin), zap.String("conn_id", pc.id))
	}
}

// Close disconnects every page and waits for in-flight messages.
func (h *Hub) Close() {
	h.cancel()

	h.mu.Lock()
	h.closed = true
	conns := make([]*pageConn, 0, len(h.conns))
	for _, pc := range h.conns {
		conns = append(conns, pc)
	}
	h.mu.Unlock()

	for _, pc := range conns {
		pc.writeMu.Lock()
		_ = pc.ws.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "relay shutting down"),
			time.Now().Add(time.Second))
		pc.writeMu.Unlock()
		_ = pc.ws.Close()
	}
	h.wg.Wait()
}

func parseOrigin(tab, frame string) (Origin, error) {
	tabID, err := strconv.Atoi(tab)
	if err != nil {
		return Origin{}, fmt.Errorf("invalid tab %q", tab)
	}
	frameID, err := strconv.Atoi(frame)
	if err != nil {
		return Origin{}, fmt.Errorf("invalid frame %q", frame)
	}
	return Origin{TabID: tabID, FrameID: frameID}, nil
}
