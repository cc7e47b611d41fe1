package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/ZaguanLabs/gotmt"
	"github.com/ZaguanLabs/gotmt/server"
)

const shutdownTimeout = 10 * time.Second

func serveCmd(st *rootState) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and event stream",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := st.cfg.Validate(); err != nil {
				return fmt.Errorf("invalid configuration: %w", err)
			}
			if addr == "" {
				addr = st.cfg.Addr()
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			ln, err := net.Listen("tcp", addr)
			if err != nil {
				return err
			}
			return serve(ctx, st, ln)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default :$PORT)")
	return cmd
}

// serve runs the server on ln until ctx is done, then drains in-flight
// requests.
func serve(ctx context.Context, st *rootState, ln net.Listener) error {
	a, err := st.open(ctx)
	if err != nil {
		ln.Close()
		return err
	}
	defer a.Close()

	if err := a.service.Bootstrap(ctx); err != nil {
		ln.Close()
		return err
	}
	a.loadSnapshot(ctx)
	defer a.saveSnapshot(context.WithoutCancel(ctx))

	api := server.New(a.service,
		server.WithEvents(a.events),
		server.WithPollInterval(st.cfg.StreamPollInterval),
		server.WithLogger(st.logger),
	)
	// Requests keep running through a shutdown; only event streams are cut.
	baseCtx := context.WithoutCancel(ctx)
	srv := &http.Server{
		Handler:           api.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return baseCtx },
	}
	srv.RegisterOnShutdown(api.Close)

	errCh := make(chan error, 1)
	go func() {
		st.logger.InfoContext(ctx, "server listening",
			slog.String("addr", ln.Addr().String()),
			slog.String("version", gotmt.FullVersion()),
			slog.String("provider", st.cfg.Provider),
		)
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	st.logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
