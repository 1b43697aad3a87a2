package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"github.com/wbrown/piecewise/metrics"
	"github.com/wbrown/piecewise/server"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP encoding server",
		RunE: func(cmd *cobra.Command, _ []string) error {
			lm, err := loadModel(activeCfg)
			if err != nil {
				return err
			}
			defer lm.Close()

			collectors := metrics.Collectors()
			if lm.cache != nil {
				collectors = append(collectors, metrics.CacheCollectors(lm.cache)...)
			}
			if err := metrics.Register(prometheus.DefaultRegisterer,
				collectors...); err != nil {
				return err
			}

			cfg := activeCfg.Server
			handler := server.NewHandler(lm.segmenter, lm.vocab,
				server.WithMaxBodyBytes(cfg.MaxBodyBytes),
				server.WithWorkers(cfg.MaxConcurrent),
				server.WithMaxLength(cfg.MaxLength),
				server.WithNormalizer(&activeCfg.Normalizer),
			)

			ctx, stop := signal.NotifyContext(context.Background(),
				syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return server.New(cfg.ListenAddr, handler).Start(ctx)
		},
	}
}
