package terminal

import (
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/uwscloud/fabric/pkg/log"
	"github.com/uwscloud/fabric/pkg/metrics"
	"github.com/uwscloud/fabric/pkg/storage"
)

const dialTimeout = 10 * time.Second

// Proxy bridges client WebSocket connections to container terminals on
// worker nodes.
type Proxy struct {
	store    storage.Store
	upgrader websocket.Upgrader
	logger   zerolog.Logger
}

// NewProxy creates a terminal proxy.
func NewProxy(store storage.Store) *Proxy {
	return &Proxy{
		store: store,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			// The front door is the trust boundary; terminals are
			// reachable from any origin that can reach the API.
			CheckOrigin: func(*http.Request) bool { return true },
		},
		logger: log.WithComponent("terminal"),
	}
}

// Handle upgrades the request and bridges it to the container's
// terminal endpoint on the node. Either side disconnecting tears down
// both halves.
func (p *Proxy) Handle(w http.ResponseWriter, r *http.Request, nodeID, containerID string) {
	client, err := p.upgrader.Upgrade(w, r, nil)
	if err != nil {
		p.logger.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}
	defer client.Close()

	metrics.WebSocketConnections.Inc()
	defer metrics.WebSocketConnections.Dec()

	p.logger.Info().
		Str("node_id", nodeID).
		Str("container_id", containerID).
		Msg("terminal connection established")

	node, err := p.store.GetNode(nodeID)
	if err != nil {
		p.closeWith(client, websocket.ClosePolicyViolation, "Node not found")
		return
	}

	nodeWS := wsURL(node.URL) + "/ws/terminal/" + containerID

	dialer := websocket.Dialer{HandshakeTimeout: dialTimeout}
	upstream, resp, err := dialer.Dial(nodeWS, nil)
	if err != nil {
		if resp != nil {
			resp.Body.Close()
		}
		p.logger.Error().Err(err).
			Str("node_id", nodeID).
			Str("container_id", containerID).
			Msg("failed to reach node terminal")
		p.closeWith(client, websocket.CloseInternalServerErr, "Failed to reach node terminal")
		return
	}
	defer upstream.Close()

	p.logger.Info().
		Str("node_id", nodeID).
		Str("container_id", containerID).
		Msg("connected to node terminal")

	// Two copy halves; the first to fail unblocks the other by closing
	// both connections.
	errCh := make(chan error, 2)
	go pump(client, upstream, errCh)
	go pump(upstream, client, errCh)

	err = <-errCh
	if err != nil && !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
		p.logger.Debug().Err(err).
			Str("container_id", containerID).
			Msg("terminal stream ended")
	}

	p.logger.Info().
		Str("node_id", nodeID).
		Str("container_id", containerID).
		Msg("terminal connection closed")
}

// pump copies messages from src to dst until either side fails.
func pump(src, dst *websocket.Conn, errCh chan<- error) {
	for {
		msgType, data, err := src.ReadMessage()
		if err != nil {
			dst.Close()
			errCh <- err
			return
		}
		if err := dst.WriteMessage(msgType, data); err != nil {
			src.Close()
			errCh <- err
			return
		}
	}
}

func (p *Proxy) closeWith(conn *websocket.Conn, code int, reason string) {
	deadline := time.Now().Add(time.Second)
	conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(code, reason), deadline)
}

// wsURL swaps an http(s) node URL to its ws(s) equivalent.
func wsURL(nodeURL string) string {
	switch {
	case strings.HasPrefix(nodeURL, "https://"):
		return "wss://" + strings.TrimPrefix(nodeURL, "https://")
	case strings.HasPrefix(nodeURL, "http://"):
		return "ws://" + strings.TrimPrefix(nodeURL, "http://")
	}
	return "ws://" + nodeURL
}
