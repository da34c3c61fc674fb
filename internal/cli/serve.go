package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/Swind/go-coop/core"
	obs "github.com/Swind/go-coop/observability/prometheus"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
)

func newServeCmd() *cobra.Command {
	var (
		addr         string
		pollInterval time.Duration
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Tick a runtime and expose it over HTTP",
		Long:  "Runs the runtime loop in the background and serves /metrics, /stats, /tasks and POST /spawn until interrupted.",
		RunE: func(cmd *cobra.Command, args []string) error {
			reg := prom.NewRegistry()
			exporter, err := obs.NewMetricsExporter("coop", reg, obs.ExporterOptions{})
			if err != nil {
				return fmt.Errorf("create exporter: %w", err)
			}
			poller, err := obs.NewSnapshotPoller(reg, pollInterval)
			if err != nil {
				return fmt.Errorf("create poller: %w", err)
			}

			rt, opts, err := newRuntime(exporter)
			if err != nil {
				return err
			}
			defer rt.Close()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			poller.AddRuntime(rt.Name(), rt)
			poller.Start(ctx)
			defer poller.Stop()

			loopDone := make(chan error, 1)
			go func() { loopDone <- rt.Run(ctx, opts.TickInterval) }()

			server := &http.Server{
				Addr:              addr,
				Handler:           newRouter(rt, reg),
				ReadHeaderTimeout: 5 * time.Second,
			}
			serveErr := make(chan error, 1)
			go func() { serveErr <- server.ListenAndServe() }()
			fmt.Fprintf(cmd.OutOrStdout(), "serving runtime %q on %s\n", rt.Name(), addr)

			select {
			case <-ctx.Done():
			case err := <-serveErr:
				if !errors.Is(err, http.ErrServerClosed) {
					stop()
					<-loopDone
					return fmt.Errorf("listen: %w", err)
				}
			}

			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := server.Shutdown(shutdownCtx); err != nil {
				return fmt.Errorf("shutdown: %w", err)
			}
			<-loopDone
			return nil
		},
	}

	cmd.Flags().StringVar(&addr, "addr", ":2112", "HTTP listen address")
	cmd.Flags().DurationVar(&pollInterval, "poll-interval", time.Second, "Snapshot poller interval")

	return cmd
}

// newRouter exposes rt over HTTP. Handlers only use the concurrency-safe
// surface of the runtime: Spawn, Stats and RecentTasks.
func newRouter(rt *core.Runtime, reg *prom.Registry) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	r.Get("/stats", func(w http.ResponseWriter, req *http.Request) {
		writeJSON(w, http.StatusOK, rt.Stats())
	})
	r.Get("/tasks", func(w http.ResponseWriter, req *http.Request) {
		limit := 20
		if v := req.URL.Query().Get("limit"); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil || n <= 0 {
				writeJSON(w, http.StatusBadRequest, map[string]string{"error": "limit must be a positive integer"})
				return
			}
			limit = n
		}
		writeJSON(w, http.StatusOK, rt.RecentTasks(limit))
	})
	r.Post("/spawn", func(w http.ResponseWriter, req *http.Request) {
		var sleep time.Duration
		if v := req.URL.Query().Get("sleep"); v != "" {
			d, err := time.ParseDuration(v)
			if err != nil || d < 0 {
				writeJSON(w, http.StatusBadRequest, map[string]string{"error": "sleep must be a non-negative duration"})
				return
			}
			sleep = d
		}
		name := req.URL.Query().Get("name")
		if name == "" {
			name = "http-" + middleware.GetReqID(req.Context())
		}

		err := rt.SpawnNamed(name, core.Sleep(sleep))
		if errors.Is(err, core.ErrChannelClosed) {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": err.Error()})
			return
		}
		if err != nil {
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
			return
		}
		writeJSON(w, http.StatusAccepted, map[string]string{"name": name})
	})

	return r
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
