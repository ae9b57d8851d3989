package api

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"lanchat/pkg/logger"

	"github.com/gin-gonic/gin"
)

// NewEngine builds the gin engine with every gateway route registered.
// Forwarding headers are ignored, so the client IP is always the peer
// address of the connection.
func NewEngine(router *Router) *gin.Engine {
	r := gin.New()
	_ = r.SetTrustedProxies(nil)
	router.RegisterRoutes(r)
	return r
}

// NewServer wraps the engine in an http.Server. There is no write timeout:
// hijacked WebSocket connections manage their own deadlines.
func NewServer(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
}

// Listen binds addr for the gateway. A bind failure is returned before any
// request is accepted.
func Listen(addr string) (net.Listener, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("http listen on %s: %w", addr, err)
	}
	return ln, nil
}

// Serve runs srv on ln until Shutdown. The returned channel yields at most
// one unexpected serve error and is closed when serving stops.
func Serve(srv *http.Server, ln net.Listener, log logger.Logger) <-chan error {
	log.Info("HTTP server listening", "addr", ln.Addr().String())

	errc := make(chan error, 1)
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
		close(errc)
	}()
	return errc
}

// Shutdown stops accepting requests and waits for active ones up to timeout.
func Shutdown(srv *http.Server, timeout time.Duration, log logger.Logger) error {
	log.Info("Shutting down HTTP server...")

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error("HTTP server shutdown error", err)
		return err
	}

	log.Info("HTTP server shutdown completed")
	return nil
}
