// sockline is a line-oriented demo client: it connects to a relay, sends
// each stdin line as a frame, and prints every inbound frame. The
// connection profile comes from a TOML file or flags.
package main

import (
	"bufio"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/lightforgemedia/go-sockline/pkg/client"
	"github.com/lightforgemedia/go-sockline/pkg/wire"
)

func main() {
	configPath := flag.String("config", "", "TOML config file (overrides the other flags)")
	addr := flag.String("addr", "ws://localhost:8081/ws", "server address")
	name := flag.String("name", "sockline", "client scope name")
	reconnect := flag.Duration("reconnect", 30*time.Second, "reconnect interval")
	queueing := flag.Bool("queue", false, "buffer messages while disconnected")
	maxAge := flag.Duration("max-queue-age", 0, "max age for queued messages (0 = unlimited)")
	verbose := flag.Bool("v", false, "debug logging")
	flag.Parse()

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	var target string
	opts := []client.Option{client.WithLogger(logger)}
	if *configPath != "" {
		cfg, err := loadConfig(*configPath)
		if err != nil {
			logger.Error("bad config", "error", err)
			os.Exit(1)
		}
		target = cfg.Address
		opts = append(opts, cfg.options()...)
	} else {
		target = *addr
		opts = append(opts, client.WithName(*name), client.WithReconnectInterval(*reconnect))
		if *queueing {
			opts = append(opts, client.WithQueueing())
		}
		if *maxAge > 0 {
			opts = append(opts, client.WithMaxQueueAge(*maxAge))
		}
	}

	opts = append(opts,
		client.OnOpen(func() { logger.Info("connected", "addr", target) }),
		client.OnClose(func() { logger.Warn("connection lost") }),
		client.OnMessage(func(payload []byte) { fmt.Printf("<< %s\n", payload) }),
		client.OnError(func(info wire.ErrorInfo) {
			logger.Warn("transport error", "code", info.Code, "message", info.Message)
		}),
	)

	c := client.New(target, opts...)
	c.Start()
	defer c.Close()

	go func() {
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			line := scanner.Text()
			if line == "" {
				continue
			}
			if err := c.Send(line); err != nil {
				logger.Error("send failed", "error", err)
			}
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan
	logger.Info("shutting down", "queued", c.QueuedMessages(), "pending", c.PendingReplies())
}
