// Listen command: consume owner-removed events and serve metrics.
package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/mesh-intelligence/daybook/internal/errs"
	"github.com/mesh-intelligence/daybook/internal/events"
)

const shutdownTimeout = 10 * time.Second

func (c *cli) newListenCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "listen",
		Short: "Purge owners as owner-removed events arrive",
		Long: `Listen subscribes to events.subject on NATS and purges every owner
named in an owner-removed event. When metrics.addr is set, Prometheus
metrics are served at /metrics. Stops on SIGINT or SIGTERM.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withApp(cmd, func(ctx context.Context, a *app) error {
				ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
				defer stop()
				return a.listen(ctx)
			})
		},
	}
}

// listen blocks until ctx is done.
func (a *app) listen(ctx context.Context) error {
	url := a.cfg.Events.NATSURL
	if url == "" {
		url = nats.DefaultURL
	}
	nc, err := events.Connect(url, a.log)
	if err != nil {
		return errs.Internalf("connect events", err)
	}
	defer nc.Close()

	sub := events.NewSubscriber(nc, a.cfg.Events, a.cascade, a.log)
	// Handlers outlive the signal so that a drain finishes in-flight purges.
	if err := sub.Start(context.WithoutCancel(ctx)); err != nil {
		return errs.Internalf("start subscriber", err)
	}

	var srv *http.Server
	serveErr := make(chan error, 1)
	if a.cfg.Metrics.Addr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(a.reg, promhttp.HandlerOpts{}))
		srv = &http.Server{Addr: a.cfg.Metrics.Addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
		go func() {
			a.log.Info(ctx, "serving metrics", zap.String("addr", srv.Addr))
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				serveErr <- err
			}
		}()
	}

	var runErr error
	select {
	case <-ctx.Done():
		a.log.Info(context.WithoutCancel(ctx), "shutting down")
	case err := <-serveErr:
		runErr = errs.Internalf("serve metrics", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	if err := sub.Stop(shutdownCtx); err != nil {
		a.log.Warn(shutdownCtx, "drain subscription", zap.Error(err))
	}
	if srv != nil {
		if err := srv.Shutdown(shutdownCtx); err != nil {
			a.log.Warn(shutdownCtx, "stop metrics server", zap.Error(err))
		}
	}
	return runErr
}
