package api

import (
	"net/http"

	"lanchat/internal/relay"
	"lanchat/internal/web"

	"github.com/gin-gonic/gin"
)

type InfoHandlers struct {
	service *relay.Service
}

func NewInfoHandlers(service *relay.Service) *InfoHandlers {
	return &InfoHandlers{service: service}
}

// GetInfoHandler returns the address snapshot taken at startup
// @Summary Server addresses
// @Description Host IP and ports that LAN devices use to reach the server
// @Tags Info
// @Produce json
// @Success 200 {object} chat.ServerInfo
// @Router /api/info [get]
func (h *InfoHandlers) GetInfoHandler(c *gin.Context) {
	c.JSON(http.StatusOK, h.service.Info())
}

func IndexHandler(c *gin.Context) {
	c.Data(http.StatusOK, "text/html; charset=utf-8", web.Page())
}

func HealthCheckHandler(c *gin.Context) {
	c.String(http.StatusOK, "Running")
}
