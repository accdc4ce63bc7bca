// Wiring shared by the commands that touch the store.
package main

import (
	"context"
	"path/filepath"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/mesh-intelligence/daybook/internal/associations"
	"github.com/mesh-intelligence/daybook/internal/attachments"
	"github.com/mesh-intelligence/daybook/internal/blob"
	"github.com/mesh-intelligence/daybook/internal/cascade"
	"github.com/mesh-intelligence/daybook/internal/errs"
	"github.com/mesh-intelligence/daybook/internal/journal"
	"github.com/mesh-intelligence/daybook/internal/logging"
	"github.com/mesh-intelligence/daybook/internal/metrics"
	"github.com/mesh-intelligence/daybook/internal/sqlite"
	"github.com/mesh-intelligence/daybook/pkg/types"
)

// blobDirName is the fs blob root under the data directory when
// blob.root is unset.
const blobDirName = "blobs"

// app is the attached store and the services built on it.
type app struct {
	cfg     types.Config
	log     *logging.Logger
	reg     *prometheus.Registry
	metrics *metrics.Metrics

	backend *sqlite.Backend
	blobs   blob.Store

	assoc   *associations.Engine
	files   *attachments.Store
	cascade *cascade.Coordinator
	journal *journal.Service
}

// openApp attaches the database and blob store described by cfg. The
// caller must Close the app.
func openApp(ctx context.Context, cfg types.Config) (*app, error) {
	log, err := logging.New(logging.Config{Level: cfg.Log.Level, Format: cfg.Log.Format})
	if err != nil {
		return nil, errs.Wrap(errs.InvalidArgument, "invalid log settings", err)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	blobs, err := openBlobStore(ctx, cfg)
	if err != nil {
		log.Error(ctx, "open blob store", zap.String("backend", cfg.Blob.Backend), zap.Error(err))
		return nil, errs.Internalf("open blob store", err)
	}

	backend := sqlite.NewBackend()
	if err := backend.Attach(ctx, cfg.DataDir); err != nil {
		log.Error(ctx, "attach database", zap.String("data_dir", cfg.DataDir), zap.Error(err))
		return nil, errs.Internalf("attach database", err)
	}

	a := &app{cfg: cfg, log: log, reg: reg, metrics: m, backend: backend, blobs: blobs}
	a.assoc = associations.New(backend.Terms(), backend.Links(), log, m)
	a.files = attachments.New(backend.Attachments(), backend.Entries(), blobs, attachments.Options{
		AppFolder: cfg.AppFolder,
		Logger:    log,
		Metrics:   m,
	})
	a.cascade = cascade.New(cascade.Deps{
		Entries:      backend.Entries(),
		Associations: a.assoc,
		Attachments:  a.files,
		Links:        backend.Links(),
		Terms:        backend.Terms(),
		Logger:       log,
		Metrics:      m,
	})
	a.journal = journal.New(backend.Entries(), a.assoc, a.files, a.cascade, log)
	return a, nil
}

// openBlobStore returns the configured blob backend.
func openBlobStore(ctx context.Context, cfg types.Config) (blob.Store, error) {
	if cfg.Blob.Backend == types.BlobBackendS3 {
		s, err := blob.NewS3(ctx, cfg.Blob.S3)
		if err != nil {
			return nil, err
		}
		return s, nil
	}
	root := cfg.Blob.Root
	if root == "" {
		root = filepath.Join(cfg.DataDir, blobDirName)
	}
	fs, err := blob.NewOSFS(root)
	if err != nil {
		return nil, err
	}
	return fs, nil
}

// Close detaches the database and flushes the logger.
func (a *app) Close() error {
	err := a.backend.Detach()
	_ = a.log.Sync()
	return err
}

// withApp opens the app for the duration of fn. Internal failures are
// logged with their cause before the generic message reaches the user.
func (c *cli) withApp(cmd *cobra.Command, fn func(ctx context.Context, a *app) error) error {
	ctx := logging.WithFields(cmd.Context(), logging.Op(cmd.CommandPath()))
	a, err := openApp(ctx, c.cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	err = fn(ctx, a)
	if err != nil && errs.Is(err, errs.Internal) {
		a.log.Error(ctx, "command failed", zap.Error(err))
	}
	return err
}
