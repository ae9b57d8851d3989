package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"os"
	"strconv"
	"time"
)

// minTimeout rejects values that were almost certainly meant as seconds.
const minTimeout = 100 * time.Millisecond

// Duration reads a JSON duration. Strings use time.ParseDuration syntax
// ("5s", "250ms"); a bare number is a count of seconds.
type Duration time.Duration

func (d *Duration) UnmarshalJSON(data []byte) error {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	switch v := raw.(type) {
	case float64:
		*d = Duration(v * float64(time.Second))
	case string:
		parsed, err := time.ParseDuration(v)
		if err != nil {
			return err
		}
		*d = Duration(parsed)
	default:
		return fmt.Errorf("duration must be a string or a number of seconds, got %s", data)
	}
	return nil
}

type RateLimit struct {
	RequestsPerSecond float64 `json:"requests_per_second"`
	Burst             int     `json:"burst"`
}

type Config struct {
	Host            string        `json:"host"`
	AdvertiseIP     string        `json:"advertise_ip"`
	HTTPPort        int           `json:"http_port"`
	SocketPort      int           `json:"socket_port"`
	MaxPayloadBytes int           `json:"max_payload_bytes"`
	WriteTimeout    time.Duration `json:"-"`
	ShutdownTimeout time.Duration `json:"-"`
	RateLimit       RateLimit     `json:"rate_limit"`
	LogLevel        string        `json:"log_level"`
	LogFile         string        `json:"log_file"`
	GinMode         string        `json:"gin_mode"`
	Debug           bool          `json:"debug"`
}

// UnmarshalJSON decodes the timeouts through Duration and leaves every other
// field to the default decoder.
func (c *Config) UnmarshalJSON(data []byte) error {
	type plain Config
	aux := struct {
		*plain
		WriteTimeout    *Duration `json:"write_timeout"`
		ShutdownTimeout *Duration `json:"shutdown_timeout"`
	}{plain: (*plain)(c)}

	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	if aux.WriteTimeout != nil {
		c.WriteTimeout = time.Duration(*aux.WriteTimeout)
	}
	if aux.ShutdownTimeout != nil {
		c.ShutdownTimeout = time.Duration(*aux.ShutdownTimeout)
	}
	return nil
}

func Default() *Config {
	return &Config{
		Host:            "0.0.0.0",
		HTTPPort:        8000,
		SocketPort:      9000,
		MaxPayloadBytes: 64 * 1024,
		WriteTimeout:    5 * time.Second,
		ShutdownTimeout: 5 * time.Second,
		RateLimit: RateLimit{
			RequestsPerSecond: 20,
			Burst:             40,
		},
		LogLevel: "info",
		LogFile:  "logs/lanchat.log",
		GinMode:  "release",
	}
}

// Load reads path over the defaults. An empty path or a missing file yields
// the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, cfg.Validate()
	}

	raw, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return cfg, cfg.Validate()
	}
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	if err := json.Unmarshal(raw, cfg); err != nil {
		return nil, fmt.Errorf("parse json: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if err := validatePort("http_port", c.HTTPPort); err != nil {
		return err
	}
	if err := validatePort("socket_port", c.SocketPort); err != nil {
		return err
	}
	if c.HTTPPort == c.SocketPort {
		return fmt.Errorf("http_port and socket_port must differ, both are %d", c.HTTPPort)
	}
	if c.Host != "" && net.ParseIP(c.Host) == nil && c.Host != "localhost" {
		return fmt.Errorf("host %q is not an IP address", c.Host)
	}
	if c.AdvertiseIP != "" && net.ParseIP(c.AdvertiseIP) == nil {
		return fmt.Errorf("advertise_ip %q is not an IP address", c.AdvertiseIP)
	}
	if c.MaxPayloadBytes <= 0 {
		return errors.New("max_payload_bytes must be positive")
	}
	if c.WriteTimeout < minTimeout {
		return fmt.Errorf("write_timeout %s is below %s", c.WriteTimeout, minTimeout)
	}
	if c.ShutdownTimeout < minTimeout {
		return fmt.Errorf("shutdown_timeout %s is below %s", c.ShutdownTimeout, minTimeout)
	}
	if c.RateLimit.RequestsPerSecond < 0 || c.RateLimit.Burst < 0 {
		return errors.New("rate_limit values must not be negative")
	}

	switch c.LogLevel {
	case "trace", "debug", "info", "warn", "error", "fatal":
	default:
		return fmt.Errorf("unknown log_level %q", c.LogLevel)
	}

	switch c.GinMode {
	case "debug", "release", "test":
	default:
		return fmt.Errorf("unknown gin_mode %q", c.GinMode)
	}
	return nil
}

func (c *Config) HTTPAddr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.HTTPPort))
}

func (c *Config) SocketAddr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.SocketPort))
}

func validatePort(name string, port int) error {
	if port < 1 || port > 65535 {
		return fmt.Errorf("%s %d out of range", name, port)
	}
	return nil
}
