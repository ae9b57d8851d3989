package api

import (
	"lanchat/internal/middleware"
	"lanchat/internal/relay"
	"lanchat/pkg/logger"

	"github.com/gin-contrib/pprof"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type RouterConfig struct {
	MaxPayloadBytes int
	RateLimit       middleware.RateLimitConfig
	Debug           bool
}

type Router struct {
	mh      *MessageHandlers
	ih      *InfoHandlers
	wh      *WebSocketHandler
	limiter *middleware.IPRateLimiter
	log     logger.Logger
	debug   bool
}

func NewRouter(service *relay.Service, cfg RouterConfig, log logger.Logger) *Router {
	return &Router{
		mh:      NewMessageHandlers(service, cfg.MaxPayloadBytes, log),
		ih:      NewInfoHandlers(service),
		wh:      NewWebSocketHandler(service, cfg.MaxPayloadBytes, log),
		limiter: middleware.NewIPRateLimiter(cfg.RateLimit),
		log:     log,
		debug:   cfg.Debug,
	}
}

func (r *Router) RegisterRoutes(router *gin.Engine) {
	router.Use(
		gin.Recovery(),
		middleware.RequestLogger(r.log),
		middleware.NoCache(),
		middleware.CORS(),
	)

	{
		root := router.Group("/")
		root.GET("/", IndexHandler)
		root.GET("/hc", HealthCheckHandler)
		root.GET("/ws", r.wh.HandleWebSocket)
		root.GET("/metrics", gin.WrapH(promhttp.Handler()))
	}

	{
		api := router.Group("/api")
		api.GET("/messages", r.mh.GetMessagesHandler)
		api.GET("/info", r.ih.GetInfoHandler)
		api.POST("/send", middleware.RateLimitMiddleware(r.limiter), r.mh.SendMessageHandler)
	}

	if r.debug {
		pprof.Register(router)
	}
}
