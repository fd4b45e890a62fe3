package api

import "time"

// ServerConfig represents the control API configuration.
type ServerConfig struct {
	Addr              string        `help:"API server listen address" default:"127.0.0.1:3243" env:"BLEMOUSE_API_ADDR"`
	RequireAuth       bool          `help:"Require the key file handshake from API clients" default:"true" env:"BLEMOUSE_API_REQUIRE_AUTH"`
	StreamIdleTimeout time.Duration `help:"Close an input stream after this long without frames, 0 disables" default:"0s" env:"BLEMOUSE_API_STREAM_IDLE_TIMEOUT"`
	Password          string        `kong:"-"`
	ConnectionTimeout time.Duration `kong:"-"`
}
