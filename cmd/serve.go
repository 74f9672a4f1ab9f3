package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/commission-cli/internal/model"
	"github.com/sells-group/commission-cli/internal/refresh"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve live metrics over HTTP, refreshed in the background",
	RunE: func(cmd *cobra.Command, args []string) error {
		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}
		cfg.Server.Port = port
		if err := cfg.Validate("serve"); err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		st, err := initStore(ctx, cfg)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		orch := refresh.New(st, newAggregator(cfg.Commission, ""),
			refresh.WithInterval(time.Duration(cfg.Refresh.IntervalSecs)*time.Second),
		)
		stopLoop := orch.Start(ctx)
		defer stopLoop()

		srv := &http.Server{
			Addr:              fmt.Sprintf(":%d", port),
			Handler:           newRouter(orch, cfg.Server.AllowedOrigins),
			ReadHeaderTimeout: 10 * time.Second,
		}

		// Graceful shutdown
		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()

		zap.L().Info("starting server", zap.Int("port", port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return eris.Wrap(err, "server listen")
		}
		return nil
	},
}

// metricsSource is the part of the orchestrator the HTTP API reads from.
type metricsSource interface {
	Metrics() *model.Metrics
	Compute(f model.Filters) *model.Metrics
	SetFilters(f model.Filters) *model.Metrics
	Refresh(ctx context.Context) (*model.Metrics, error)
	Status() refresh.Status
}

type api struct {
	src metricsSource
}

func newRouter(src metricsSource, allowedOrigins []string) http.Handler {
	a := &api{src: src}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/health", a.health)
	r.Get("/metrics", a.metrics)
	r.Put("/filters", a.setFilters)
	r.Post("/refresh", a.refresh)
	r.Get("/status", a.status)
	return r
}

func (a *api) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// metrics returns the current metrics. Facet query parameters compute an
// ad hoc view over the resident rows without changing the shared filters.
func (a *api) metrics(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	if !q.Has("commercial") && !q.Has("mois") && !q.Has("origine") && !q.Has("departement") {
		writeJSON(w, http.StatusOK, a.src.Metrics())
		return
	}

	f := model.AllFilters()
	for key, dst := range map[string]*string{
		"commercial":  &f.Salesperson,
		"mois":        &f.Month,
		"origine":     &f.Origin,
		"departement": &f.Department,
	} {
		if v := q.Get(key); v != "" {
			*dst = v
		}
	}
	if err := validateFilters(f); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, a.src.Compute(f))
}

func (a *api) setFilters(w http.ResponseWriter, r *http.Request) {
	f := model.AllFilters()
	if err := json.NewDecoder(r.Body).Decode(&f); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := validateFilters(f); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, a.src.SetFilters(f))
}

func (a *api) refresh(w http.ResponseWriter, r *http.Request) {
	m, err := a.src.Refresh(r.Context())
	if err != nil {
		zap.L().Warn("manual refresh failed", zap.Error(err))
		writeError(w, http.StatusBadGateway, refresh.ErrLoadFailed.Error())
		return
	}
	writeJSON(w, http.StatusOK, m)
}

func (a *api) status(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, a.src.Status())
}

func validateFilters(f model.Filters) error {
	if model.IsAll(f.Month) {
		return nil
	}
	if _, err := time.Parse("2006-01", f.Month); err != nil {
		return eris.Errorf("invalid mois %q: expected YYYY-MM", f.Month)
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Debug("write response", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}
