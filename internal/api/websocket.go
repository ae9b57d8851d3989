package api

import (
	"errors"
	"time"

	"lanchat/internal/metrics"
	"lanchat/internal/relay"
	"lanchat/internal/websocket"
	"lanchat/pkg/chat"
	"lanchat/pkg/logger"

	"github.com/gin-gonic/gin"
	nanoid "github.com/matoous/go-nanoid/v2"
)

type WebSocketHandler struct {
	service         *relay.Service
	maxPayloadBytes int64
	log             logger.Logger
}

func NewWebSocketHandler(service *relay.Service, maxPayloadBytes int, log logger.Logger) *WebSocketHandler {
	return &WebSocketHandler{
		service:         service,
		maxPayloadBytes: int64(maxPayloadBytes),
		log:             log,
	}
}

// HandleWebSocket upgrades the request and serves the connection as a relay peer
// @Summary WebSocket relay peer
// @Description Upgrade to WebSocket. Text frames carry the same JSON payloads as the TCP relay.
// @Tags websocket
// @Success 101 {string} string "Switching Protocols"
// @Failure 400 {object} StatusResponse "Bad Request"
// @Router /ws [get]
func (h *WebSocketHandler) HandleWebSocket(c *gin.Context) {
	conn, err := websocket.Upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// Upgrade has already written the error response.
		h.log.Debug("WebSocket upgrade failed", "client", c.ClientIP(), "error", err.Error())
		return
	}

	id, err := nanoid.New(8)
	if err != nil {
		h.log.Error("Failed to generate peer id", err)
		_ = conn.Close()
		return
	}

	client := websocket.NewClient(conn, id, conn.RemoteAddr().String())
	h.service.Attach(client)
	go client.WritePump()

	h.handleClientConnection(client)
}

func (h *WebSocketHandler) handleClientConnection(client *websocket.Client) {
	defer h.handleClientDisconnection(client)

	err := client.ReadPump(h.maxPayloadBytes, func(frame []byte) {
		if _, err := h.service.Ingest(client, frame, metrics.SourceWebSocket); err != nil {
			if errors.Is(err, chat.ErrInvalidPayload) {
				h.log.Debug("Dropped malformed payload", "peer", client.ID(), "error", err.Error())
				return
			}
			h.log.Warn("Failed to relay payload", "peer", client.ID(), "error", err.Error())
		}
	})
	if err != nil {
		h.log.Debug("WebSocket read ended", "peer", client.ID(), "error", err.Error())
	}
}

func (h *WebSocketHandler) handleClientDisconnection(client *websocket.Client) {
	h.service.Detach(client)
	_ = client.Close()
	h.log.Info("WebSocket peer disconnected",
		"peer", client.ID(),
		"addr", client.Addr(),
		"connected_for", time.Since(client.ConnectedAt()).Round(time.Second).String(),
	)
}
