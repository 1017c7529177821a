// Dev server for sockline: a broadcast relay endpoint, optionally coupled
// to a directory watcher that announces file changes to every connected
// client.
package main

import (
	"encoding/json"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/lightforgemedia/go-sockline/pkg/relay"
	"github.com/lightforgemedia/go-sockline/pkg/watch"
)

func main() {
	addr := flag.String("addr", ":8081", "listen address")
	watchDirs := flag.String("watch", "", "comma-separated directories to watch (optional)")
	patterns := flag.String("patterns", "*", "comma-separated filename patterns for -watch")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))

	r := relay.New(relay.WithLogger(logger))
	defer r.Shutdown()

	if *watchDirs != "" {
		w, err := watch.New(func(path string) {
			notice, _ := json.Marshal(map[string]string{"event": "change", "path": path})
			logger.Info("broadcasting change notice", "path", path)
			r.Broadcast(notice)
		}, strings.Split(*watchDirs, ","),
			watch.WithLogger(logger),
			watch.WithPatterns(strings.Split(*patterns, ",")...),
		)
		if err != nil {
			logger.Error("failed to create watcher", "error", err)
			os.Exit(1)
		}
		if err := w.Start(); err != nil {
			logger.Error("failed to start watcher", "error", err)
			os.Exit(1)
		}
		defer w.Stop()
	}

	mux := http.NewServeMux()
	mux.Handle("/ws", r)

	srv := &http.Server{
		Addr:        *addr,
		Handler:     mux,
		ReadTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("dev server listening", "addr", *addr, "endpoint", "/ws")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan
	logger.Info("shutting down")
	srv.Close()
}
