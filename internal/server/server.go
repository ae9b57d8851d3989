// Package server wires the message log, the TCP relay and the HTTP gateway
// into one running process.
package server

import (
	"context"
	"net"
	"net/http"

	"lanchat/internal/api"
	"lanchat/internal/config"
	"lanchat/internal/hub"
	"lanchat/internal/message"
	"lanchat/internal/middleware"
	"lanchat/internal/netutil"
	"lanchat/internal/relay"
	"lanchat/pkg/chat"
	"lanchat/pkg/logger"
)

type App struct {
	cfg     *config.Config
	log     logger.Logger
	service *relay.Service
	relay   *relay.Server
	http    *http.Server
	httpLn  net.Listener
}

func New(cfg *config.Config, log logger.Logger) *App {
	info := chat.ServerInfo{
		HostIP:     advertiseIP(cfg),
		HTTPPort:   cfg.HTTPPort,
		SocketPort: cfg.SocketPort,
	}

	relayLog := logger.WithComponent(log, "relay")
	httpLog := logger.WithComponent(log, "http")

	service := relay.NewService(message.NewMessageService(), hub.NewHub(relayLog), info, relayLog)

	router := api.NewRouter(service, api.RouterConfig{
		MaxPayloadBytes: cfg.MaxPayloadBytes,
		RateLimit: middleware.RateLimitConfig{
			RequestsPerSecond: cfg.RateLimit.RequestsPerSecond,
			BurstSize:         cfg.RateLimit.Burst,
		},
		Debug: cfg.Debug,
	}, httpLog)

	return &App{
		cfg:     cfg,
		log:     log,
		service: service,
		relay: relay.NewServer(relay.Config{
			Addr:            cfg.SocketAddr(),
			MaxPayloadBytes: cfg.MaxPayloadBytes,
			WriteTimeout:    cfg.WriteTimeout,
		}, service, relayLog),
		http: api.NewServer(cfg.HTTPAddr(), api.NewEngine(router)),
	}
}

// Start binds the relay and gateway listeners. Nothing is served until Run.
func (a *App) Start() error {
	if err := a.relay.Listen(); err != nil {
		return err
	}

	ln, err := api.Listen(a.cfg.HTTPAddr())
	if err != nil {
		_ = a.relay.Close()
		return err
	}
	a.httpLn = ln
	return nil
}

// Run serves until ctx is cancelled or one of the servers fails, then shuts
// both down and disconnects every peer. Start is called if it has not been.
func (a *App) Run(ctx context.Context) error {
	if a.httpLn == nil {
		if err := a.Start(); err != nil {
			return err
		}
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	relayErr := make(chan error, 1)
	go func() { relayErr <- a.relay.Serve(ctx) }()
	httpErr := api.Serve(a.http, a.httpLn, a.log)

	info := a.service.Info()
	a.log.Info("Chat relay running",
		"host_ip", info.HostIP,
		"http_port", info.HTTPPort,
		"socket_port", info.SocketPort,
	)

	var runErr error
	relayDone := false
	select {
	case <-ctx.Done():
	case err := <-httpErr:
		runErr = err
	case err := <-relayErr:
		runErr = err
		relayDone = true
	}
	cancel()

	if err := api.Shutdown(a.http, a.cfg.ShutdownTimeout, a.log); err != nil && runErr == nil {
		runErr = err
	}
	_ = a.relay.Close()
	if !relayDone {
		if err := <-relayErr; err != nil && runErr == nil {
			runErr = err
		}
	}

	a.log.Info("Disconnecting peers", "peers", a.service.Peers())
	closed := a.service.Shutdown()
	a.relay.Wait()
	a.log.Info("Server stopped", "peers_closed", closed)
	return runErr
}

// HTTPAddr is the bound gateway address, nil before Start.
func (a *App) HTTPAddr() net.Addr {
	if a.httpLn == nil {
		return nil
	}
	return a.httpLn.Addr()
}

// SocketAddr is the bound relay address, nil before Start.
func (a *App) SocketAddr() net.Addr {
	return a.relay.Addr()
}

func (a *App) Info() chat.ServerInfo {
	return a.service.Info()
}

func advertiseIP(cfg *config.Config) string {
	if cfg.AdvertiseIP != "" {
		return cfg.AdvertiseIP
	}
	return netutil.LocalIP()
}
