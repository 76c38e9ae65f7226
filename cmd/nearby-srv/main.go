package main

import (
	"context"
	"fmt"
	"net/http"
	_ "net/http/pprof"
	"os"

	"contrib.go.opencensus.io/exporter/prometheus"
	"github.com/go-nearby/nearby/internal/buildinfo"
	"github.com/go-nearby/nearby/internal/collect"
	nearby "github.com/go-nearby/nearby/internal/config"
	"github.com/go-nearby/nearby/internal/index"
	"github.com/go-nearby/nearby/internal/logging"
	"github.com/go-nearby/nearby/internal/query"
	"github.com/go-nearby/nearby/internal/server"
	"github.com/go-nearby/nearby/internal/setup"
	"github.com/go-nearby/nearby/internal/shutdown"
	"go.opencensus.io/stats/view"
)

func main() {
	_, _ = fmt.Fprint(os.Stdout, buildinfo.Graffiti)
	_, _ = fmt.Fprintf(
		os.Stdout,
		"%s: %s, %s\n",
		buildinfo.Info.Name(),
		buildinfo.Info.Time(),
		buildinfo.Info.Tag(),
	)

	ctx, done := shutdown.New()
	logger := logging.FromContext(ctx)
	if err := run(ctx, done); err != nil {
		logger.Fatal(err)
	}

	defer done()
}

func run(ctx context.Context, cancel func()) error {
	var (
		shutdownCh    chan error
		shutdownCount = 2
	)
	config := nearby.Config{}
	env, err := setup.Setup(ctx, &config)
	if err != nil {
		return fmt.Errorf("setup.Setup: %w", err)
	}

	if config.SvcModeType == nearby.SvcModeTypeScrape {
		shutdownCount++
	}

	shutdownCh = make(chan error, shutdownCount)
	notifier, err := env.ProvideNotifier()(shutdownCh)
	if err != nil {
		return fmt.Errorf("notifier provider function error: %w", err)
	}
	indexManager, err := env.ProvideIndex()(notifier, shutdownCh)
	if err != nil {
		return fmt.Errorf("index provider function error: %w", err)
	}

	if config.SvcModeType == nearby.SvcModeTypeScrape {
		scrapper, err := env.ProvideScrapper()(indexManager, shutdownCh)
		if err != nil {
			return fmt.Errorf("scrapperCaller: %w", err)
		}
		if err := scrapper.Run(ctx); err != nil {
			return fmt.Errorf("scrapperRun: %w", err)
		}
	} else if err := indexManager.Run(ctx); err != nil {
		return fmt.Errorf("index.Run: %w", err)
	}

	srv, err := server.New(config.SrvAddr)
	if err != nil {
		return fmt.Errorf("server.New: %w", err)
	}

	if err := view.Register(index.Views...); err != nil {
		return fmt.Errorf("view.Register: %w", err)
	}
	metricsExporter, err := prometheus.NewExporter(prometheus.Options{Namespace: "nearby"})
	if err != nil {
		return fmt.Errorf("prometheus.NewExporter: %w", err)
	}
	view.RegisterExporter(metricsExporter)

	mux := http.NewServeMux()

	queryHandler, err := query.NewHandler(&config.Query, indexManager)
	if err != nil {
		return fmt.Errorf("query.NewHandler: %w", err)
	}

	mux.Handle("/nearest", queryHandler)
	mux.Handle("/health", server.HandleHealth(ctx))
	mux.Handle("/metrics", metricsExporter)

	if config.SvcModeType == nearby.SvcModeTypeCollect {
		collectHandler, err := collect.NewHandler(&config.Collect, indexManager)
		if err != nil {
			return fmt.Errorf("collect.NewHandler: %w", err)
		}
		mux.Handle("/collect", collectHandler)
	}

	go func() {
		if err := srv.ServeHTTPHandler(ctx, mux); err != nil {
			cancel()
		}
	}()

	go func() {
		if err := http.ListenAndServe("0.0.0.0:8080", nil); err != nil {
			cancel()
		}
	}()

	return <-shutdownCh
}
