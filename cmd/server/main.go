package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"lanchat/internal/config"
	"lanchat/internal/server"
	"lanchat/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/urfave/cli/v2"
)

func main() {
	app := &cli.App{
		Name:  "lanchat-server",
		Usage: "relay chat messages between TCP peers and a browser gateway on the local network",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config", Aliases: []string{"c"}, Usage: "path to a JSON config file", EnvVars: []string{"LANCHAT_CONFIG"}},
			&cli.StringFlag{Name: "host", Usage: "interface to bind", EnvVars: []string{"LANCHAT_HOST"}},
			&cli.StringFlag{Name: "advertise-ip", Usage: "address reported by /api/info", EnvVars: []string{"LANCHAT_ADVERTISE_IP"}},
			&cli.IntFlag{Name: "http-port", Usage: "HTTP gateway port", EnvVars: []string{"LANCHAT_HTTP_PORT"}},
			&cli.IntFlag{Name: "socket-port", Usage: "TCP relay port", EnvVars: []string{"LANCHAT_SOCKET_PORT"}},
			&cli.StringFlag{Name: "log-level", Usage: "trace, debug, info, warn, error or fatal", EnvVars: []string{"LANCHAT_LOG_LEVEL"}},
			&cli.StringFlag{Name: "log-file", Usage: "rotated JSON log file, empty to disable", EnvVars: []string{"LANCHAT_LOG_FILE"}},
			&cli.BoolFlag{Name: "debug", Usage: "enable gin debug mode and /debug/pprof", EnvVars: []string{"LANCHAT_DEBUG"}},
		},
		Action: run,
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(c *cli.Context) error {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return err
	}
	applyFlags(c, cfg)
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	log := logger.New(logger.Options{Level: cfg.LogLevel, File: cfg.LogFile})
	gin.SetMode(cfg.GinMode)

	app := server.New(cfg, log)
	if err := app.Start(); err != nil {
		log.Fatal("Failed to start servers", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := app.Run(ctx); err != nil {
		log.Error("Server exited with error", err)
		return err
	}
	return nil
}

// applyFlags overrides config values with flags or environment variables
// that were set explicitly.
func applyFlags(c *cli.Context, cfg *config.Config) {
	if c.IsSet("host") {
		cfg.Host = c.String("host")
	}
	if c.IsSet("advertise-ip") {
		cfg.AdvertiseIP = c.String("advertise-ip")
	}
	if c.IsSet("http-port") {
		cfg.HTTPPort = c.Int("http-port")
	}
	if c.IsSet("socket-port") {
		cfg.SocketPort = c.Int("socket-port")
	}
	if c.IsSet("log-level") {
		cfg.LogLevel = c.String("log-level")
	}
	if c.IsSet("log-file") {
		cfg.LogFile = c.String("log-file")
	}
	if c.IsSet("debug") {
		cfg.Debug = c.Bool("debug")
		if cfg.Debug {
			cfg.GinMode = gin.DebugMode
		}
	}
}
