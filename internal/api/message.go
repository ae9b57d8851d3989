package api

import (
	"errors"
	"net/http"
	"strconv"

	"lanchat/internal/message"
	"lanchat/internal/relay"
	"lanchat/pkg/chat"
	"lanchat/pkg/logger"

	"github.com/gin-gonic/gin"
)

const emptyMessageError = "Empty message"

type MessageHandlers struct {
	service         *relay.Service
	maxPayloadBytes int64
	log             logger.Logger
}

func NewMessageHandlers(service *relay.Service, maxPayloadBytes int, log logger.Logger) *MessageHandlers {
	return &MessageHandlers{
		service:         service,
		maxPayloadBytes: int64(maxPayloadBytes),
		log:             log,
	}
}

type SendMessageInput struct {
	Username *string `json:"username" example:"alice"`
	Message  string  `json:"message" example:"hello"`
}

type StatusResponse struct {
	Status  string `json:"status" example:"success"`
	Message string `json:"message,omitempty" example:"Empty message"`
}

type MessagesResponse struct {
	Messages []chat.Message `json:"messages"`
	LastID   int            `json:"last_id"`
}

// GetMessagesHandler returns every message newer than last_id
// @Summary Poll for new messages
// @Description Long-poll read of the message log. Pass the last_id from the previous response to get only newer messages.
// @Tags Messages
// @Produce json
// @Param last_id query int false "Index of the newest message already seen (default: -1)"
// @Success 200 {object} MessagesResponse "Messages retrieved successfully"
// @Router /api/messages [get]
func (h *MessageHandlers) GetMessagesHandler(c *gin.Context) {
	lastID, err := strconv.Atoi(c.DefaultQuery("last_id", "-1"))
	if err != nil {
		lastID = -1
	}

	messages, newLastID := h.service.ReadSince(lastID)

	c.JSON(http.StatusOK, MessagesResponse{
		Messages: messages,
		LastID:   newLastID,
	})
}

// SendMessageHandler appends a message and relays it to every socket peer
// @Summary Send a message
// @Description Append a message to the log and broadcast it to all connected peers
// @Tags Messages
// @Accept json
// @Produce json
// @Param request body SendMessageInput true "Message to send"
// @Success 200 {object} StatusResponse "Message accepted"
// @Failure 400 {object} StatusResponse "Invalid body or empty message"
// @Failure 429 {object} StatusResponse "Rate limit exceeded"
// @Router /api/send [post]
func (h *MessageHandlers) SendMessageHandler(c *gin.Context) {
	if h.maxPayloadBytes > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxPayloadBytes)
	}

	var input SendMessageInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, StatusResponse{Status: "error", Message: err.Error()})
		return
	}

	username := chat.DefaultUsername
	if input.Username != nil {
		username = *input.Username
	}

	msg, err := h.service.Submit(username, input.Message)
	if err != nil {
		if errors.Is(err, message.ErrEmptyMessage) {
			c.JSON(http.StatusBadRequest, StatusResponse{Status: "error", Message: emptyMessageError})
			return
		}
		// The message is already in the log; only the fan-out failed.
		h.log.Error("Failed to relay message", err, "id", msg.ID)
	}

	c.JSON(http.StatusOK, StatusResponse{Status: "success"})
}
