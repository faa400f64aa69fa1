package cli

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/matzehuels/clustermap/pkg/buildinfo"
	"github.com/matzehuels/clustermap/pkg/config"
	"github.com/matzehuels/clustermap/pkg/layout"
	"github.com/matzehuels/clustermap/pkg/mapview"
	"github.com/matzehuels/clustermap/pkg/model"
	"github.com/matzehuels/clustermap/pkg/source"
	"github.com/matzehuels/clustermap/pkg/store"
)

const appName = config.AppName

// Log levels exported for use in main.go.
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
)

// CLI holds shared state for all commands.
type CLI struct {
	Logger *log.Logger

	// Out receives command output. Tests replace it.
	Out io.Writer

	configPath string
	cfg        *config.Config
}

// New creates a new CLI instance with a default logger.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{
		Logger: newLogger(w, level),
		Out:    os.Stdout,
	}
}

// SetLogLevel updates the logger's level.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
}

// RootCommand creates the root cobra command with all subcommands registered.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:          appName,
		Short:        "clustermap lays out search clusters as a zoomable map",
		Long:         `clustermap turns a cluster → subcluster → models/filters/results tree into a map of boxes you can pan, zoom, search and teleport around, in the terminal or in a browser.`,
		Version:      buildinfo.Version,
		SilenceUsage: true,
	}

	root.SetVersionTemplate(buildinfo.Template())
	root.PersistentFlags().StringVar(&c.configPath, "config", "", "config file (default: "+config.Path()+")")

	root.AddCommand(c.layoutCommand())
	root.AddCommand(c.searchCommand())
	root.AddCommand(c.viewCommand())
	root.AddCommand(c.serveCommand())
	root.AddCommand(c.dotCommand())
	root.AddCommand(c.renderCommand())
	root.AddCommand(c.stateCommand())
	root.AddCommand(c.completionCommand())
	completeDatasets(root)

	return root
}

// config loads the configuration once.
func (c *CLI) config() (*config.Config, error) {
	if c.cfg != nil {
		return c.cfg, nil
	}
	path := c.configPath
	if path == "" {
		path = config.Path()
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	c.Logger.Debug("config loaded", "path", path, "store", cfg.Store.Backend)
	c.cfg = cfg
	return cfg, nil
}

// openStore opens the configured state store, or a null store with
// --no-state.
func (c *CLI) openStore(noState bool) (store.Store, error) {
	if noState {
		return store.NewNullStore(), nil
	}
	cfg, err := c.config()
	if err != nil {
		return nil, err
	}
	return store.Open(cfg.StoreOptions(c.Logger))
}

// loadDataset reads the dataset from path, or from the configured source
// when path is empty.
func (c *CLI) loadDataset(ctx context.Context, path string) (*model.Dataset, error) {
	src, closeFn, err := c.openSource(ctx, path)
	if err != nil {
		return nil, err
	}
	defer closeFn()

	p := newProgress(c.Logger)
	ds, err := src.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load dataset: %w", err)
	}
	p.done(fmt.Sprintf("Loaded %d clusters, %d subclusters", len(ds.Clusters), ds.SubclusterCount()))
	return ds, nil
}

func (c *CLI) openSource(ctx context.Context, path string) (source.Source, func(), error) {
	noop := func() {}
	if path != "" {
		src, err := source.NewFileSource(path)
		return src, noop, err
	}
	cfg, err := c.config()
	if err != nil {
		return nil, noop, err
	}
	switch cfg.Source.Kind {
	case "mongo":
		src, err := source.ConnectMongo(ctx, cfg.Source.MongoURI, cfg.Source.MongoDatabase)
		if err != nil {
			return nil, noop, err
		}
		return src, func() { _ = src.Close(context.Background()) }, nil
	default:
		if cfg.Source.Path == "" {
			return nil, noop, fmt.Errorf("no dataset given: pass a file or set [source] path in %s", config.Path())
		}
		src, err := source.NewFileSource(cfg.Source.Path)
		return src, noop, err
	}
}

// newSession opens a map session with the configured timings.
func (c *CLI) newSession(ctx context.Context, ds *model.Dataset, st store.Store) (*mapview.Session, error) {
	cfg, err := c.config()
	if err != nil {
		return nil, err
	}
	sess, err := mapview.New(ds, cfg.SessionOptions(st, c.Logger))
	if err != nil {
		return nil, err
	}
	sess.Open(ctx)
	return sess, nil
}

// expandFlags selects the expand state a one-shot command lays out with.
type expandFlags struct {
	all     bool
	persist bool
}

func (f *expandFlags) register(cmd *cobra.Command) {
	cmd.Flags().BoolVarP(&f.all, "expand-all", "a", false, "expand every cluster and subcluster")
	cmd.Flags().BoolVar(&f.persist, "state", false, "use the persisted expand state (ignored with --expand-all)")
}

// graph computes the layout of ds for one-shot commands.
func (c *CLI) graph(ctx context.Context, ds *model.Dataset, f expandFlags) (*layout.Graph, error) {
	st := store.Store(store.NewMemoryStore())
	if f.persist && !f.all {
		var err error
		if st, err = c.openStore(false); err != nil {
			return nil, err
		}
	}
	defer st.Close()

	sess, err := c.newSession(ctx, ds, st)
	if err != nil {
		return nil, err
	}
	defer sess.Close()
	if f.all {
		sess.ExpandAll(ctx)
	}
	return sess.Graph(), nil
}
