package cmd

import (
	"FlowTagger/internal/api"
	"FlowTagger/internal/query"
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
)

func newServeCommand(a *app) *cobra.Command {
	var httpAddr, grpcAddr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the ClickHouse history over HTTP and gRPC",
		Long: `Expose the totals of previous runs stored by the ClickHouse sink.

HTTP:
  GET /history/tags    tag totals
  GET /history/ports   port/protocol totals
  Query parameters: since, until (RFC 3339), flowlog, limit.

gRPC:
  flowtagger.v1.HistoryService/TagTotals
  flowtagger.v1.HistoryService/PortProtocolTotals
  Requests and responses are google.protobuf.Struct messages.

Examples:
  flow-tagger serve --config configs/flow-tagger.yaml
  flow-tagger serve --http-addr :8080 --grpc-addr ""`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Flags().Changed("http-addr") {
				a.cfg.API.HTTPListenAddr = httpAddr
			}
			if cmd.Flags().Changed("grpc-addr") {
				a.cfg.API.GRPCListenAddr = grpcAddr
			}

			def, err := clickHouseSink(a.cfg)
			if err != nil {
				return err
			}
			timeout, err := time.ParseDuration(def.Timeout)
			if err != nil {
				return fmt.Errorf("invalid timeout %q for clickhouse sink: %w", def.Timeout, err)
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			dialCtx, cancel := context.WithTimeout(ctx, 2*timeout)
			q, err := query.NewClickHouseQuerier(dialCtx, def.ClickHouse, timeout)
			cancel()
			if err != nil {
				return err
			}
			defer q.Close()

			return api.Serve(ctx, api.NewService(q, a.logger), a.cfg.API.HTTPListenAddr, a.cfg.API.GRPCListenAddr, a.logger)
		},
	}

	cmd.Flags().StringVar(&httpAddr, "http-addr", "", "HTTP listen address, empty to disable (overrides config)")
	cmd.Flags().StringVar(&grpcAddr, "grpc-addr", "", "gRPC listen address, empty to disable (overrides config)")
	return cmd
}
