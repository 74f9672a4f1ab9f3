package main

import (
	"encoding/json"
	"io"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/commission-cli/internal/model"
	"github.com/sells-group/commission-cli/internal/store"
)

// facetFlags holds the filter flags shared by metrics and watch.
type facetFlags struct {
	salesperson string
	month       string
	origin      string
	department  string
	view        string
}

func (f *facetFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.salesperson, "commercial", model.FilterAll, "salesperson filter")
	cmd.Flags().StringVar(&f.month, "mois", model.FilterAll, "month filter (YYYY-MM)")
	cmd.Flags().StringVar(&f.origin, "origine", model.FilterAll, "origin filter (Facebook, TikTok, Prescription, Backoffice)")
	cmd.Flags().StringVar(&f.department, "departement", model.FilterAll, "department filter")
	cmd.Flags().StringVar(&f.view, "view", "", "metric set: marketing, commission or all (default from config)")
}

func (f *facetFlags) filters() (model.Filters, error) {
	out := model.Filters{
		Salesperson: f.salesperson,
		Month:       f.month,
		Origin:      f.origin,
		Department:  f.department,
	}
	if err := validateFilters(out); err != nil {
		return out, err
	}
	switch f.view {
	case "", string(model.ViewAll), string(model.ViewMarketing), string(model.ViewCommission):
	default:
		return out, eris.Errorf("invalid --view %q", f.view)
	}
	return out, nil
}

var (
	metricsFacets facetFlags
	metricsOutput string
)

var metricsCmd = &cobra.Command{
	Use:   "metrics",
	Short: "Fetch rows once and print commission and funnel metrics",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate("compute"); err != nil {
			return err
		}
		filters, err := metricsFacets.filters()
		if err != nil {
			return err
		}

		ctx := cmd.Context()

		st, err := initStore(ctx, cfg)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		snap, err := store.FetchAll(ctx, st)
		if err != nil {
			return eris.Wrap(err, "metrics: data load failed")
		}

		agg := newAggregator(cfg.Commission, metricsFacets.view)
		m := agg.ComputeMetrics(classify(snap), filters)
		m.ComputedAt = time.Now().UTC()

		zap.L().Debug("metrics computed",
			zap.Int("contracts", m.TotalContracts),
			zap.Int("projects", m.TotalProjects),
			zap.Int("anomalies", len(m.Anomalies)),
		)
		return writeMetrics(cmd.OutOrStdout(), m, metricsOutput)
	},
}

// writeMetrics renders metrics as indented JSON or YAML.
func writeMetrics(w io.Writer, m *model.Metrics, format string) error {
	switch format {
	case "", "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return eris.Wrap(enc.Encode(m), "metrics: encode json")
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(m); err != nil {
			return eris.Wrap(err, "metrics: encode yaml")
		}
		return eris.Wrap(enc.Close(), "metrics: flush yaml")
	default:
		return eris.Errorf("metrics: unsupported output format %q", format)
	}
}

func init() {
	metricsFacets.register(metricsCmd)
	metricsCmd.Flags().StringVarP(&metricsOutput, "output", "o", "json", "output format: json or yaml")
	rootCmd.AddCommand(metricsCmd)
}
