package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/gin-gonic/gin"
	_ "github.com/joho/godotenv/autoload"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/sync/errgroup"

	"github.com/Zachkp/folio/internal/asset"
	"github.com/Zachkp/folio/internal/carousel"
	"github.com/Zachkp/folio/internal/config"
	"github.com/Zachkp/folio/internal/content"
	"github.com/Zachkp/folio/internal/preview"
	"github.com/Zachkp/folio/internal/site"
	"github.com/Zachkp/folio/internal/store"
)

// imagesMount is where the images directory is served.
const imagesMount = "/images"

var (
	v       = config.New()
	verbose bool
	logger  *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:           "folio",
	Short:         "Portfolio server with resilient images and carousels",
	Long:          RootLong,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		zc := zap.NewProductionConfig()
		if verbose {
			zc.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		var err error
		logger, err = zc.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
	RunE: runServe,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the portfolio over HTTP",
	RunE:  runServe,
}

var resolveCmd = &cobra.Command{
	Use:   "resolve REFERENCE",
	Short: "Resolve an image reference against the images directory",
	Long:  ResolveLong,
	Args:  cobra.ExactArgs(1),
	RunE:  runResolve,
}

var previewCmd = &cobra.Command{
	Use:   "preview GALLERY",
	Short: "Preview a gallery carousel in the terminal",
	Long:  PreviewLong,
	Args:  cobra.ExactArgs(1),
	RunE:  runPreview,
}

var resolveExts []string

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
	if err := config.BindFlags(v, rootCmd.PersistentFlags()); err != nil {
		panic(err)
	}
	resolveCmd.Flags().StringSliceVar(&resolveExts, "ext", nil, "candidate extensions in priority order (default png,svg,jpg,jpeg,webp)")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(resolveCmd)
	rootCmd.AddCommand(previewCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newResolver(cfg config.Config, opts ...asset.ResolverOption) (*asset.Resolver, error) {
	loader := asset.FSLoader{FS: os.DirFS(cfg.ImagesDir), Prefix: cfg.PublicURL + imagesMount}
	opts = append([]asset.ResolverOption{
		asset.WithResolverPublicURL(cfg.PublicURL + imagesMount),
		asset.WithLogger(logger),
	}, opts...)
	return asset.NewResolver(loader, cfg.CacheSize, opts...)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(v)
	if err != nil {
		return err
	}
	if !cfg.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	c, err := content.Load(cfg.ContentPath)
	if err != nil {
		return err
	}

	st, err := store.Open(ctx, cfg.DBPath)
	if err != nil {
		return err
	}
	defer st.Close()

	resolver, err := newResolver(cfg,
		asset.WithMetrics(asset.DefaultMetrics()),
		asset.WithReporter(st))
	if err != nil {
		return err
	}

	if cfg.UsingDefaultAdmin() {
		logger.Warn("using default admin credentials; set FOLIO_ADMIN_USERNAME and FOLIO_ADMIN_PASSWORD")
	}
	adm, err := newAdmin(st, resolver, cfg.AdminUsername, cfg.AdminPassword, logger)
	if err != nil {
		return err
	}

	srv := site.New(site.Options{
		Content:    c,
		Resolver:   resolver,
		Logger:     logger,
		ImagesDir:  cfg.ImagesDir,
		StaticDir:  cfg.StaticDir,
		Gatherer:   prometheus.DefaultGatherer,
		Middleware: []gin.HandlerFunc{adm.trackingMiddleware()},
	})
	adm.register(srv.Engine())

	httpSrv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           srv,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("server listening", zap.String("addr", cfg.Addr))
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return httpSrv.Shutdown(shutdownCtx)
	})
	g.Go(func() error {
		return adm.runCleanup(gctx)
	})

	if w, err := asset.NewWatcher(cfg.ImagesDir, resolver, logger); err != nil {
		logger.Warn("image watcher disabled", zap.String("dir", cfg.ImagesDir), zap.Error(err))
	} else {
		g.Go(func() error { return w.Run(gctx) })
	}

	err = g.Wait()
	logger.Info("server stopped")
	return err
}

func runResolve(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(v)
	if err != nil {
		return err
	}
	resolver, err := newResolver(cfg)
	if err != nil {
		return err
	}
	res, err := resolver.RenderImage(cmd.Context(), args[0], resolveExts)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	if res.Source == "" {
		fmt.Fprintf(out, "%s: nothing to render\n", args[0])
		return nil
	}
	fmt.Fprintf(out, "source:    %s\n", res.Source)
	fmt.Fprintf(out, "tried:     %s\n", strings.Join(res.Tried, ", "))
	fmt.Fprintf(out, "exhausted: %t\n", res.Exhausted)
	return nil
}

func runPreview(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(v)
	if err != nil {
		return err
	}
	c, err := content.Load(cfg.ContentPath)
	if err != nil {
		return err
	}
	g, err := c.Gallery(args[0])
	if err != nil {
		return err
	}
	resolver, err := newResolver(cfg)
	if err != nil {
		return err
	}
	car := carousel.New(g.Items, g.Label,
		carousel.WithExtensions(g.Extensions),
		carousel.WithImageFactory(resolver.NewImage))

	_, err = tea.NewProgram(preview.New(cmd.Context(), car, resolver)).Run()
	return err
}
