package main

import (
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/commission-cli/internal/model"
	"github.com/sells-group/commission-cli/internal/refresh"
)

var watchFacets facetFlags

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Refresh metrics periodically and log a summary after each update",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate("compute"); err != nil {
			return err
		}
		filters, err := watchFacets.filters()
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		st, err := initStore(ctx, cfg)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		orch := refresh.New(st, newAggregator(cfg.Commission, watchFacets.view),
			refresh.WithInterval(time.Duration(cfg.Refresh.IntervalSecs)*time.Second),
			refresh.WithFilters(filters),
			refresh.OnUpdate(logSummary),
		)
		stopLoop := orch.Start(ctx)
		defer stopLoop()

		<-ctx.Done()
		zap.L().Info("watch stopped")
		return nil
	},
}

// logSummary logs the headline numbers and every anomaly flag.
func logSummary(m *model.Metrics) {
	log := zap.L().With(zap.String("component", "watch"))
	log.Info("metrics updated",
		zap.Int("contracts", m.TotalContracts),
		zap.Int("projects", m.TotalProjects),
		zap.Float64("commission_year1", m.TotalCommissionYear1),
		zap.Float64("commission_recurring", m.TotalCommissionRecurring),
		zap.Float64("avg_monthly_commission", m.AverageMonthlyCommission),
		zap.Float64("conversion_rate", m.GlobalConversionRate),
	)
	for _, a := range m.Anomalies {
		log.Warn(a.Message,
			zap.String("type", a.Category),
			zap.String("severity", string(a.Severity)),
			zap.String("origin", string(a.Origin)),
		)
	}
}

func init() {
	watchFacets.register(watchCmd)
	rootCmd.AddCommand(watchCmd)
}
