package cli

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/matzehuels/clustermap/pkg/model"
	"github.com/matzehuels/clustermap/pkg/observability"
	"github.com/matzehuels/clustermap/pkg/server"
	"github.com/matzehuels/clustermap/pkg/source"
)

const shutdownTimeout = 5 * time.Second

// serveCommand runs the HTTP API for browser renderers.
func (c *CLI) serveCommand() *cobra.Command {
	var (
		addr    string
		watch   bool
		noState bool
	)

	cmd := &cobra.Command{
		Use:   "serve [dataset]",
		Short: "Serve map sessions over HTTP",
		Long: `Serve map sessions over HTTP.

A browser opens a session with POST /api/sessions and then drives it:
toggling branches, searching, teleporting and reporting pan and zoom.
Prometheus metrics are exposed on /metrics. With --watch a dataset file is
reloaded into every open session when it changes.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runServe(cmd.Context(), firstArg(args), addr, watch, noState)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default from config, :8080)")
	cmd.Flags().BoolVarP(&watch, "watch", "w", false, "reload the dataset file when it changes")
	cmd.Flags().BoolVar(&noState, "no-state", false, "do not persist session state")
	return cmd
}

func (c *CLI) runServe(ctx context.Context, input, addr string, watch, noState bool) error {
	cfg, err := c.config()
	if err != nil {
		return err
	}
	if addr == "" {
		addr = cfg.Server.Addr
	}

	ds, err := c.loadDataset(ctx, input)
	if err != nil {
		return err
	}
	st, err := c.openStore(noState)
	if err != nil {
		return err
	}
	defer st.Close()

	collector := observability.NewCollector(appName)
	observability.SetMapHooks(collector)
	observability.SetStoreHooks(collector)
	observability.SetHTTPHooks(collector)
	defer observability.Reset()

	sessionOpts := cfg.SessionOptions(nil, c.Logger)
	srv, err := server.New(ds, server.Options{
		Store:          st,
		Session:        sessionOpts,
		AllowedOrigins: cfg.Server.AllowedOrigins,
		MaxSessions:    cfg.Server.MaxSessions,
		IdleTimeout:    cfg.Server.IdleTimeout.Std(),
		Metrics:        collector.Handler(),
		Logger:         c.Logger,
	})
	if err != nil {
		return err
	}
	defer srv.Close()

	sweepCtx, stopSweep := context.WithCancel(ctx)
	defer stopSweep()
	go c.sweepSessions(sweepCtx, srv, cfg.Server.IdleTimeout.Std())

	if watch || cfg.Source.Watch {
		w, err := c.watchDataset(ctx, input, func(ds *model.Dataset) {
			if err := srv.SetDataset(ctx, ds); err != nil {
				c.Logger.Error("apply reloaded dataset", "err", err)
			}
		})
		if err != nil {
			return err
		}
		if w != nil {
			defer w.Close()
		}
	}

	httpSrv := &http.Server{
		Addr:              addr,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() { errCh <- httpSrv.ListenAndServe() }()
	c.Logger.Info("serving", "addr", addr, "clusters", len(ds.Clusters), "store", cfg.Store.Backend)

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	c.Logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return httpSrv.Shutdown(shutdownCtx)
}

// sweepSessions closes idle sessions every half idle timeout until ctx ends.
func (c *CLI) sweepSessions(ctx context.Context, srv *server.Server, idle time.Duration) {
	if idle <= 0 {
		return
	}
	ticker := time.NewTicker(idle / 2)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := srv.Sweep(); n > 0 {
				c.Logger.Debug("closed idle sessions", "count", n, "open", srv.Len())
			}
		}
	}
}

// watchDataset starts a file watcher for the dataset. It returns nil when
// the dataset does not come from a file.
func (c *CLI) watchDataset(ctx context.Context, input string, onLoad func(*model.Dataset)) (*source.Watcher, error) {
	src, closeFn, err := c.openSource(ctx, input)
	if err != nil {
		return nil, err
	}
	fileSrc, ok := src.(*source.FileSource)
	if !ok {
		closeFn()
		c.Logger.Warn("dataset watching needs a file source; ignoring --watch")
		return nil, nil
	}
	return source.Watch(ctx, fileSrc, source.WatchOptions{
		Logger: c.Logger,
		OnLoad: onLoad,
	})
}
