package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/xerrors"

	"github.com/sauerbraten/linkshortener"
	"github.com/sauerbraten/linkshortener/internal/config"
	"github.com/sauerbraten/linkshortener/internal/logger"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdin, os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// flags override individual config file settings. Empty values leave the
// config untouched.
type flags struct {
	configPath string
	dataPath   string
	dsn        string
	backend    string
	baseURL    string
	httpAddr   string
	noMenu     bool
}

func parseFlags(args []string) (*flags, error) {
	var f flags

	fs := flag.NewFlagSet("linkshortener", flag.ContinueOnError)
	fs.StringVar(&f.configPath, "config", os.Getenv("CONFIG_PATH"), "path to YAML config file")
	fs.StringVar(&f.dataPath, "data", "", "mappings file for the text backend")
	fs.StringVar(&f.dsn, "dsn", "", "database DSN for the sqlite backend")
	fs.StringVar(&f.backend, "backend", "", "storage backend: text or sqlite")
	fs.StringVar(&f.baseURL, "base", "", "prefix shown in front of short keys")
	fs.StringVar(&f.httpAddr, "http", "", "address to serve HTTP on, e.g. :5656")
	fs.BoolVar(&f.noMenu, "no-menu", false, "do not run the interactive menu")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	return &f, nil
}

func (f *flags) apply(cfg *config.Config) {
	if f.dataPath != "" {
		cfg.Storage.Path = f.dataPath
	}
	if f.dsn != "" {
		cfg.Storage.DSN = f.dsn
	}
	if f.backend != "" {
		cfg.Storage.Backend = f.backend
	}
	if f.baseURL != "" {
		cfg.BaseURL = f.baseURL
	}
	if f.httpAddr != "" {
		cfg.HTTPServer.Addr = f.httpAddr
	}
}

func run(ctx context.Context, args []string, stdin io.Reader, stdout io.Writer) error {
	f, err := parseFlags(args)
	if err != nil {
		return err
	}

	cfg, err := config.Load(f.configPath)
	if err != nil {
		return err
	}
	f.apply(cfg)
	if err := cfg.Validate(); err != nil {
		return err
	}

	log, err := logger.New(cfg.LogLevel)
	if err != nil {
		return xerrors.Errorf("could not build logger: %w", err)
	}
	defer log.Sync()

	store := linkshortener.NewStore(
		linkshortener.WithPrefix(cfg.BaseURL),
		linkshortener.WithMaxRetries(cfg.MaxRetries),
	)

	snap, closeSnap, err := openSnapshot(cfg.Storage)
	if err != nil {
		return err
	}
	defer closeSnap()

	if err := snap.Load(store); err != nil {
		log.Warn("could not load mappings, continuing", zap.Error(err), zap.Int("entries", store.Len()))
	} else {
		log.Info("mappings loaded", zap.String("backend", cfg.Storage.Backend), zap.Int("entries", store.Len()))
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	g, ctx := errgroup.WithContext(ctx)

	if !f.noMenu {
		m := &menu{store: store, snap: snap, in: stdin, out: stdout, logger: log}
		g.Go(func() error {
			defer cancel() // leaving the menu stops everything else
			return m.run(ctx)
		})
	}

	if cfg.HTTPServer.Addr != "" {
		serve(ctx, g, cfg.HTTPServer, store, log)
	}

	if cfg.Storage.AutosaveInterval > 0 {
		g.Go(func() error {
			return linkshortener.Autosave(ctx, store, snap, cfg.Storage.AutosaveInterval, log)
		})
	}

	err = g.Wait()

	save(store, snap, stdout, log)
	if !f.noMenu {
		fmt.Fprintln(stdout, "Exiting... Goodbye!")
	}

	return err
}

// openSnapshot returns the configured Snapshotter and a func releasing it.
func openSnapshot(cfg config.Storage) (linkshortener.Snapshotter, func(), error) {
	switch cfg.Backend {
	case config.BackendSQLite:
		snap, err := linkshortener.NewSQLiteSnapshot(cfg.DSN)
		if err != nil {
			return nil, nil, err
		}
		return snap, func() { snap.Close() }, nil
	default:
		return linkshortener.TextFile{Path: cfg.Path}, func() {}, nil
	}
}

// serve runs the HTTP front end in g until ctx is done.
func serve(ctx context.Context, g *errgroup.Group, cfg config.HTTPServer, index linkshortener.Index, log *zap.Logger) {
	r := chi.NewRouter()
	linkshortener.NewServer(index, log).SetupRoutes(r)

	server := &http.Server{
		Addr:           cfg.Addr,
		Handler:        r,
		ReadTimeout:    cfg.ReadTimeout,
		WriteTimeout:   cfg.WriteTimeout,
		IdleTimeout:    cfg.IdleTimeout,
		MaxHeaderBytes: 1 << 20,
		BaseContext: func(_ net.Listener) context.Context {
			return ctx
		},
	}

	g.Go(func() error {
		log.Info("server running", zap.String("addr", cfg.Addr))
		err := server.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return xerrors.Errorf("server error: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		return server.Shutdown(context.Background())
	})
}
