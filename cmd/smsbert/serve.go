package main

import (
	"log/slog"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/usaproje/go-smsbert/internal/server"
)

func newServeCmd() *cobra.Command {
	var warm bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the classification HTTP server",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := requireConfig()
			if err != nil {
				return err
			}

			clf, err := newClassifier(cfg)
			if err != nil {
				return err
			}
			defer func() { _ = clf.Close() }()

			if warm {
				if err := clf.Warm(); err != nil {
					return err
				}
			}

			srv := server.New(clf,
				server.WithMaxBodyBytes(cfg.Server.MaxBodyBytes),
				server.WithRequestTimeout(cfg.Server.RequestTimeout),
				server.WithLogger(slog.Default()),
			)

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			return srv.Start(ctx, cfg.Server.ListenAddr)
		},
	}

	cmd.Flags().BoolVar(&warm, "warm", true, "Create ONNX sessions before accepting requests")

	return cmd
}
