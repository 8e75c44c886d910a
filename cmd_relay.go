package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"duelarena/internal/dao"
	"duelarena/internal/handler"
	"duelarena/internal/relay"
	"duelarena/pkg/config"
)

var relayCmd = &cobra.Command{
	Use:   "relay",
	Short: "Run the peer relay (websocket, HTTP and admin gRPC)",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()
		return runRelay(ctx, config.AppConfig)
	},
}

func runRelay(ctx context.Context, cfg *config.Config) error {
	log := logrus.WithField("component", "main")
	gin.SetMode(cfg.Server.Mode)

	opts := relay.Options{}
	if cfg.Redis.Addr != "" {
		store, err := dao.NewPresenceStore(ctx, cfg.Redis)
		if err != nil {
			return err
		}
		defer store.Close()
		opts.Presence = store
		log.WithField("addr", cfg.Redis.Addr).Info("presence mirror enabled")
	}

	hub := relay.NewHub(opts)
	go hub.Run()
	defer hub.Stop()

	grpcSrv := handler.NewServer(hub)
	go func() {
		if err := handler.StartGRPC(grpcSrv, cfg.Server.GrpcPort); err != nil {
			log.WithError(err).Error("gRPC server stopped")
		}
	}()
	defer grpcSrv.GracefulStop()

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: relay.NewRouter(hub),
	}
	errc := make(chan error, 1)
	go func() {
		log.Infof("relay listening on %s", srv.Addr)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
