package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/Strob0t/ScriptForge/internal/adapter/fscript"
	"github.com/Strob0t/ScriptForge/internal/adapter/host"
	sfhttp "github.com/Strob0t/ScriptForge/internal/adapter/http"
	sfnats "github.com/Strob0t/ScriptForge/internal/adapter/nats"
	sfotel "github.com/Strob0t/ScriptForge/internal/adapter/otel"
	"github.com/Strob0t/ScriptForge/internal/adapter/ristretto"
	"github.com/Strob0t/ScriptForge/internal/adapter/ws"
	"github.com/Strob0t/ScriptForge/internal/config"
	"github.com/Strob0t/ScriptForge/internal/logger"
	"github.com/Strob0t/ScriptForge/internal/port/eventstream"
	"github.com/Strob0t/ScriptForge/internal/service"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		slog.Error("fatal", "error", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	flags, err := config.ParseFlags(args)
	if err != nil {
		return fmt.Errorf("flags: %w", err)
	}

	cfg, cfgPath, err := config.LoadWithCLI(flags)
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}

	log, logLevel, logCloser := logger.New(cfg.Logging)
	slog.SetDefault(log)
	defer logCloser.Close()

	holder := config.NewHolder(cfg, cfgPath, flags)

	slog.Info("config loaded",
		"path", cfgPath,
		"port", cfg.Server.Port,
		"log_level", cfg.Logging.Level,
		"spec", cfg.Spec.Path,
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// --- Telemetry ---

	shutdownMetrics, err := sfotel.InitMeter(ctx, cfg.Logging.Service, cfg.Telemetry.Endpoint)
	if err != nil {
		return fmt.Errorf("telemetry: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownMetrics(shutdownCtx); err != nil {
			slog.Warn("metrics shutdown failed", "error", err)
		}
	}()

	metrics, err := sfotel.NewMetrics()
	if err != nil {
		return fmt.Errorf("metrics: %w", err)
	}

	// --- Infrastructure ---

	specs, err := service.NewSpecStore(cfg.Spec.Path)
	if err != nil {
		return fmt.Errorf("spec: %w", err)
	}
	specs.SetMetrics(metrics)
	slog.Info("spec loaded", "path", cfg.Spec.Path)

	var events eventstream.Publisher
	if cfg.NATS.Enabled {
		pub, err := sfnats.Connect(ctx, cfg.NATS)
		if err != nil {
			return fmt.Errorf("nats: %w", err)
		}
		defer func() { _ = pub.Close() }()
		events = pub
	}

	listings, err := ristretto.New(cfg.Cache.ListingMaxBytes)
	if err != nil {
		return fmt.Errorf("listing cache: %w", err)
	}
	defer listings.Close()

	// --- Analysis pipeline ---

	cache := service.NewAnalysisCache(fscript.New(), service.AnalysisCacheConfig{
		TimeoutFloor:  cfg.Parse.TimeoutFloor,
		TimeoutPerKB:  cfg.Parse.TimeoutPerKB,
		TimeoutMax:    cfg.Parse.TimeoutMax,
		SweepInterval: cfg.Cache.SweepInterval,
		IdleTTL:       cfg.Cache.IdleTTL,
	})
	cache.SetParseObserver(func(d time.Duration) {
		metrics.Parses.Add(context.Background(), 1)
		metrics.ParseDuration.Record(context.Background(), d.Seconds())
	})
	if err := sfotel.RegisterCacheGauges(cache); err != nil {
		return fmt.Errorf("cache gauges: %w", err)
	}

	guard := service.NewSessionGuard(cfg.Rate.Capacity, cfg.Rate.Interval)

	analysisHost := host.New()
	docs := service.NewDocumentService(service.DocumentServiceConfig{
		DebounceDelay:    cfg.Parse.DebounceDelay,
		MaxDocumentBytes: cfg.Parse.MaxDocumentBytes,
	}, cache, specs, guard, analysisHost, events)
	docs.SetMetrics(metrics)
	service.RegisterHostHandlers(analysisHost, docs, guard)

	triggers := service.NewTriggerService(docs, specs, guard, cache)
	triggers.SetMetrics(metrics)

	paths := service.NewPathService(service.PathServiceConfig{
		Roots:      cfg.Paths.Roots,
		MaxResults: cfg.Paths.MaxResults,
		ListTTL:    cfg.Paths.ListTTL,
	}, specs, listings)

	// --- Transport ---

	hub := ws.NewHub(nil, triggers, guard)
	bridge := service.NewBridge(hub)
	hub.SetBridge(bridge)
	if err := bridge.Initialize(analysisHost); err != nil {
		return fmt.Errorf("bridge: %w", err)
	}

	handlers := sfhttp.NewHandlers(specs, paths, cache, hub)

	r := chi.NewRouter()
	r.Use(sfhttp.CORS(cfg.Server.CORSOrigin))
	r.Use(sfhttp.RequestID)
	r.Use(sfhttp.Logger)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	r.Use(sfotel.HTTPMiddleware(cfg.Logging.Service))

	sfhttp.MountRoutes(r, handlers, hub.HandleWS)

	addr := ":" + cfg.Server.Port
	srv := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	// --- Lifecycle ---

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error { return analysisHost.Run(gctx) })
	g.Go(func() error { return bridge.Run(gctx) })
	g.Go(func() error { return cache.RunSweeper(gctx) })

	// SIGHUP re-reads the config file and applies the hot-swappable parts:
	// log verbosity and the API spec.
	g.Go(func() error {
		hup := make(chan os.Signal, 1)
		signal.Notify(hup, syscall.SIGHUP)
		defer signal.Stop(hup)
		for {
			select {
			case <-gctx.Done():
				return nil
			case <-hup:
				if err := holder.Reload(); err != nil {
					slog.Warn("config reload failed", "path", cfgPath, "error", err)
					continue
				}
				next := holder.Get()
				logLevel.Set(logger.ParseLevel(next.Logging.Level))
				if err := specs.Reload(); err != nil {
					slog.Warn("spec reload failed", "path", next.Spec.Path, "error", err)
				}
				slog.Info("config reloaded", "path", cfgPath, "log_level", next.Logging.Level)
			}
		}
	})

	g.Go(func() error {
		slog.Info("starting server", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		slog.Info("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
