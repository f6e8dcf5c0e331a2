package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kuldeep921997/peerline/internal/logging"
	"github.com/kuldeep921997/peerline/internal/server"
	"github.com/kuldeep921997/peerline/internal/signaling"
)

func main() {
	addr := flag.String("addr", ":8080", "listen address")
	flag.Parse()

	logging.Init()

	hub := signaling.NewHub()
	go hub.Run()

	srv := &http.Server{
		Addr:    *addr,
		Handler: server.NewMux(hub),
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		slog.Info("starting rendezvous service", "addr", *addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server error", "err", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	slog.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown error", "err", err)
	}
	hub.Stop()
}
