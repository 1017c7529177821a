package main

import (
	"fmt"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/lightforgemedia/go-sockline/pkg/client"
)

// fileConfig is the TOML shape of a sockline client profile.
//
//	name = "ticker"
//	address = "ws://localhost:8081/ws"
//	reconnect_seconds = 5
//	queueing = true
//	max_queue_seconds = 60
//	subprotocols = ["sockline.v1"]
type fileConfig struct {
	Name             string   `toml:"name"`
	Address          string   `toml:"address"`
	ReconnectSeconds int      `toml:"reconnect_seconds"`
	Queueing         bool     `toml:"queueing"`
	MaxQueueSeconds  int      `toml:"max_queue_seconds"`
	Subprotocols     []string `toml:"subprotocols"`
}

func loadConfig(path string) (*fileConfig, error) {
	var cfg fileConfig
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return nil, fmt.Errorf("load config %s: %w", path, err)
	}
	if cfg.Address == "" {
		return nil, fmt.Errorf("config %s: address is required", path)
	}
	return &cfg, nil
}

// options translates the profile into client options.
func (cfg *fileConfig) options() []client.Option {
	opts := []client.Option{client.WithName(cfg.Name)}
	if cfg.ReconnectSeconds > 0 {
		opts = append(opts, client.WithReconnectInterval(time.Duration(cfg.ReconnectSeconds)*time.Second))
	}
	if cfg.Queueing {
		opts = append(opts, client.WithQueueing())
	}
	if cfg.MaxQueueSeconds > 0 {
		opts = append(opts, client.WithMaxQueueAge(time.Duration(cfg.MaxQueueSeconds)*time.Second))
	}
	if len(cfg.Subprotocols) > 0 {
		opts = append(opts, client.WithSubprotocols(cfg.Subprotocols...))
	}
	return opts
}
