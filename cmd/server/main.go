package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"rediscore/internal/config"
	"rediscore/internal/server"
)

func main() {
	cfg := config.Default()

	rootCmd := &cobra.Command{
		Use:   "rediscore",
		Short: "A Redis-protocol-compatible key-value server",
		Long:  "rediscore serves a subset of the Redis protocol over TCP, with RDB snapshot loading and leader/follower replication.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cfg)
		},
	}

	rootCmd.Flags().StringVar(&cfg.Dir, "dir", "", "directory holding the RDB snapshot file")
	rootCmd.Flags().StringVar(&cfg.DBFilename, "dbfilename", "", "RDB snapshot filename")
	rootCmd.Flags().IntVar(&cfg.Port, "port", 6379, "port to listen on")
	rootCmd.Flags().StringVar(&cfg.ReplicaOf, "replicaof", "", "master host and port to replicate from, e.g. \"localhost 6379\"")
	rootCmd.Flags().StringVar(&cfg.RemoteP2PPeer, "remote_p2p_peer", "", "remote peer address for experimental p2p discovery")

	if err := rootCmd.Execute(); err != nil {
		logrus.Fatalf("rediscore: %v", err)
	}
}

func run(cfg *config.Config) error {
	cfg.Host = "0.0.0.0"

	srv := server.New(cfg)

	if err := srv.LoadSnapshot(); err != nil {
		return fmt.Errorf("snapshot load failed: %w", err)
	}

	if err := srv.StartReplication(); err != nil {
		logrus.Warnf("server: continuing without replication: %v", err)
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		logrus.Info("server: shutting down")
		_ = srv.Shutdown()
	}()

	logrus.Infof("server: starting on port %d", cfg.Port)
	return srv.ListenAndServe()
}
