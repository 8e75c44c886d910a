package main

import (
	"context"
	"fmt"
	"io"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"duelarena/internal/dao"
	"duelarena/internal/handler"
	"duelarena/internal/mq"
	"duelarena/internal/protocol"
	"duelarena/pkg/config"
)

var (
	peersAddr   string
	peersSource string
)

var peersCmd = &cobra.Command{
	Use:   "peers",
	Short: "List the peers connected to a running relay",
	Long: `List the peers connected to a running relay, either live over the relay's
gRPC port or from the Redis presence mirror.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := context.WithTimeout(cmd.Context(), 5*time.Second)
		defer cancel()

		var (
			peers []protocol.PeerRecord
			err   error
		)
		switch peersSource {
		case "grpc":
			peers, err = grpcPeers(ctx, peersAddr)
		case "redis":
			peers, err = mirroredPeers(ctx, config.AppConfig.Redis)
		default:
			return fmt.Errorf("unknown source %q (want grpc or redis)", peersSource)
		}
		if err != nil {
			return err
		}
		printPeers(cmd.OutOrStdout(), peers)
		return nil
	},
}

func grpcPeers(ctx context.Context, addr string) ([]protocol.PeerRecord, error) {
	if addr == "" {
		addr = fmt.Sprintf("localhost:%d", config.AppConfig.Server.GrpcPort)
	}
	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("connect %s: %w", addr, err)
	}
	defer conn.Close()

	out, err := handler.NewPresenceClient(conn).ListPeers(ctx)
	if err != nil {
		return nil, err
	}
	return handler.PeersFromStruct(out), nil
}

func mirroredPeers(ctx context.Context, cfg config.RedisConfig) ([]protocol.PeerRecord, error) {
	if cfg.Addr == "" {
		return nil, fmt.Errorf("redis.addr is not configured")
	}
	store, err := dao.NewPresenceStore(ctx, cfg)
	if err != nil {
		return nil, err
	}
	defer store.Close()
	return store.Peers(ctx)
}

func printPeers(w io.Writer, peers []protocol.PeerRecord) {
	fmt.Fprintf(w, "%d peer(s)\n", len(peers))
	for _, p := range peers {
		fmt.Fprintf(w, "%-8s x=%7.1f y=%7.1f angle=%5.2f\n", p.ID, p.X, p.Y, p.Angle)
	}
}

var scoresCmd = &cobra.Command{
	Use:   "scores",
	Short: "Follow the score feed and log running standings",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.AppConfig
		if cfg.MQ.Url == "" {
			return fmt.Errorf("mq.url is not configured")
		}
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		c, err := mq.DialConsumer(cfg.MQ)
		if err != nil {
			return err
		}
		defer c.Close()

		tally := mq.NewTally()
		return c.Run(ctx, func(ev mq.ScoreEvent) error {
			if err := tally.Record(ev); err != nil {
				return err
			}
			logrus.WithFields(logrus.Fields{
				"client_id": ev.ClientID,
				"delta":     ev.Delta,
				"total":     ev.Total,
			}).Info("score event")
			for i, s := range tally.Standings() {
				logrus.Debugf("#%d %s %d", i+1, s.ClientID, s.Total)
			}
			return nil
		})
	},
}

func init() {
	peersCmd.Flags().StringVar(&peersAddr, "addr", "", "relay gRPC address (default localhost:<server.grpc_port>)")
	peersCmd.Flags().StringVar(&peersSource, "source", "grpc", "where to read peers from: grpc or redis")
	rootCmd.AddCommand(peersCmd, scoresCmd)
}
