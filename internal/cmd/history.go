package cmd

import (
	"FlowTagger/internal/config"
	"FlowTagger/internal/model"
	"FlowTagger/internal/query"
	"FlowTagger/internal/report"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var errNoClickHouseSink = errors.New("no enabled clickhouse sink configured")

func newHistoryCommand(a *app) *cobra.Command {
	var since time.Duration
	var flowLogFile string
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Print counts summed over the runs exported to ClickHouse",
		Long: `Query the ClickHouse sink for the tag counts and port/protocol
combination counts of previous runs and print their totals in report format.

Examples:
  flow-tagger history --config configs/flow-tagger.yaml
  flow-tagger history --since 24h --flowlog flow_logs.txt`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			def, err := clickHouseSink(a.cfg)
			if err != nil {
				return err
			}
			timeout, err := time.ParseDuration(def.Timeout)
			if err != nil {
				return fmt.Errorf("invalid timeout %q for clickhouse sink: %w", def.Timeout, err)
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), 2*timeout)
			defer cancel()

			q, err := query.NewClickHouseQuerier(ctx, def.ClickHouse, timeout)
			if err != nil {
				return err
			}
			defer q.Close()

			filter := query.Filter{FlowLogFile: flowLogFile, Limit: limit}
			if since > 0 {
				filter.Since = time.Now().Add(-since)
			}

			tags, err := q.TagTotals(ctx, filter)
			if err != nil {
				return err
			}
			pairs, err := q.PortProtocolTotals(ctx, filter)
			if err != nil {
				return err
			}
			a.logger.Debug("History query finished", zap.Int("tags", len(tags)), zap.Int("pairs", len(pairs)))

			return report.Render(a.stdout, historyResult(tags, pairs))
		},
	}

	cmd.Flags().DurationVar(&since, "since", 0, "only include runs newer than this (e.g. 24h)")
	cmd.Flags().StringVar(&flowLogFile, "flowlog", "", "only include runs over this flow log file")
	cmd.Flags().IntVar(&limit, "limit", 0, "maximum rows per section (0 for all)")
	return cmd
}

// clickHouseSink returns the first enabled clickhouse sink.
func clickHouseSink(cfg *config.Config) (config.SinkDef, error) {
	for _, def := range cfg.Sinks {
		if def.Enabled && def.Type == "clickhouse" {
			return def, nil
		}
	}
	return config.SinkDef{}, errNoClickHouseSink
}

func historyResult(tags []report.TagCount, pairs []model.PortProtocolCount) *model.Result {
	res := &model.Result{
		TagCounts:          make(model.TagCounts, len(tags)),
		PortProtocolCounts: model.NewPortProtocolCounts(),
	}
	for _, t := range tags {
		res.TagCounts[t.Tag] = t.Count
	}
	for _, p := range pairs {
		res.PortProtocolCounts.Add(p.PortProtocol, p.Count)
		res.TotalValidLines += p.Count
	}
	return res
}
