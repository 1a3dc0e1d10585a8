package commands

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"github.com/vsinha/fieldflow/pkg/infrastructure/events"
	"github.com/vsinha/fieldflow/pkg/infrastructure/metrics"
	"github.com/vsinha/fieldflow/pkg/interfaces/httpapi"
)

func newServeCommand(e *env) *cobra.Command {
	var shutdownTimeout time.Duration

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API",
		Long: `Start the JSON API on http.addr with /health and, when metrics.enabled is
set, Prometheus metrics on /metrics.

The server drains connections on SIGINT or SIGTERM.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return e.serve(cmd.Context(), shutdownTimeout)
		},
	}
	cmd.Flags().DurationVar(&shutdownTimeout, "shutdown-timeout", 5*time.Second, "maximum time to drain connections on shutdown")
	return cmd
}

func (e *env) serve(ctx context.Context, shutdownTimeout time.Duration) error {
	uow, closeStore, err := e.openStore(ctx)
	if err != nil {
		return err
	}
	defer closeStore()

	locker, closeLocker, err := e.openLocker(ctx)
	if err != nil {
		return err
	}
	defer closeLocker()

	m := metrics.NewNop()
	var gatherer prometheus.Gatherer
	if e.cfg.Metrics.Enabled {
		reg := prometheus.NewRegistry()
		reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
		m = metrics.NewMetrics(reg)
		gatherer = reg
	}

	store := events.NewBoundedEventStore(e.log, e.cfg.Events.PerStream, e.cfg.Events.Total)
	auditLog := e.log.With("component", "audit")
	if err := store.Subscribe(events.WorkflowEventTypes, &events.HandlerFunc{
		Types: events.WorkflowEventTypes,
		Fn: func(ev events.Event) error {
			auditLog.Info("workflow event", "event", ev.Type(), "stream", ev.StreamID(), "version", ev.Version())
			return nil
		},
	}); err != nil {
		return err
	}

	svcs := e.services(uow, locker, m, store)
	rc := svcs.RouterConfig()
	rc.Log = e.log.With("component", "http")
	rc.Gatherer = gatherer

	srv := httpapi.NewServer(e.cfg.HTTP.Addr, httpapi.NewRouter(rc))
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()
	e.log.Info("HTTP server started", "addr", e.cfg.HTTP.Addr, "store", e.cfg.Store.Driver, "locking", e.cfg.Locking.Driver)

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	e.log.Info("graceful shutdown complete")
	return nil
}
