package setup

import (
	"context"
	"fmt"

	"github.com/go-nearby/nearby/internal/database"
	"github.com/go-nearby/nearby/internal/index"
	"github.com/go-nearby/nearby/internal/logging"
	"github.com/go-nearby/nearby/internal/notify"
	"github.com/go-nearby/nearby/internal/scrape"
	"github.com/go-nearby/nearby/internal/srvenv"
	"github.com/kelseyhightower/envconfig"
)

const (
	SvcModeScrape  string = "SCRAPE"
	SvcModeCollect string = "COLLECT"
)

type SvcModeConfigProvider interface {
	SvcMode() string
}

type IndexConfigProvider interface {
	IndexConfig() *index.Config
}

type NotifierConfigProvider interface {
	NotifyConfig() *notify.Config
}

type ScrapeConfigProvider interface {
	ScrapeConfig() *scrape.Config
}

type DatabaseConfigProvider interface {
	DatabaseConfig() *database.Config
}

func Setup(ctx context.Context, config interface{}) (*srvenv.SrvEnv, error) {
	logger := logging.FromContext(ctx)
	var serverEnvOpts []srvenv.Option
	if err := envconfig.Process("", config); err != nil {
		return nil, fmt.Errorf("error loading environment variables: %w", err)
	}

	var db *database.DB
	if dbConfigProvider, ok := config.(DatabaseConfigProvider); ok {
		logger.Info("Configuring db")
		dbFromEnv, err := database.NewFromEnv(ctx, dbConfigProvider.DatabaseConfig())
		if err != nil {
			return nil, fmt.Errorf("unable to connect to database: %v", err)
		}
		db = dbFromEnv
		serverEnvOpts = append(serverEnvOpts, srvenv.WithDatabase(db))
	}

	if notifyConfigProvider, ok := config.(NotifierConfigProvider); ok {
		logger.Info("Configuring notifier")

		provideFn, err := ProvideNotifierFor(notifyConfigProvider, db)
		if err != nil {
			return nil, fmt.Errorf("unable create notifier provide function: %v", err)
		}
		serverEnvOpts = append(serverEnvOpts, srvenv.WithNotifier(provideFn))
	}

	if indexConfigProvider, ok := config.(IndexConfigProvider); ok {
		logger.Info("Configuring index")
		provideFn, err := ProvideIndexFor(indexConfigProvider, db)
		if err != nil {
			return nil, fmt.Errorf("unable create index provide function: %v", err)
		}
		serverEnvOpts = append(serverEnvOpts, srvenv.WithIndex(provideFn))
	}

	if svcModeConfigProvider, ok := config.(SvcModeConfigProvider); ok && svcModeConfigProvider.SvcMode() == SvcModeScrape {
		if scrapeConfigProvider, ok := config.(ScrapeConfigProvider); ok {
			logger.Info("Configuring scrapper")
			provideFn, err := ProvideScrapperFor(scrapeConfigProvider)
			if err != nil {
				return nil, fmt.Errorf("unable create scrapper provide function: %v", err)
			}
			serverEnvOpts = append(serverEnvOpts, srvenv.WithScrapper(provideFn))
		}
	}
	return srvenv.New(serverEnvOpts...), nil
}

func ProvideScrapperFor(provider ScrapeConfigProvider) (scrape.ProvideFn, error) {
	cfg := provider.ScrapeConfig()
	return func(indexManager index.Manager, shutdownCh chan<- error) (scrape.Manager, error) {
		return scrape.New(
			indexManager,
			shutdownCh,
			scrape.WithInterval(cfg.Interval),
			scrape.WithMaxConcurrentRequest(cfg.MaxConcurrentRequest),
			scrape.WithTargetUrls(cfg.Targets),
		)
	}, nil
}

func ProvideNotifierFor(provider NotifierConfigProvider, db *database.DB) (notify.ProvideFn, error) {
	cfg := provider.NotifyConfig()
	return func(shutdownCh chan<- error) (notify.Manager, error) {
		return notify.New(
			db,
			shutdownCh,
			notify.WithAllowNotify(cfg.AllowNotify),
			notify.WithMaxConcurrentRequest(cfg.MaxConcurrentRequest),
			notify.WithInterval(cfg.Interval),
			notify.WithTargets(cfg.Targets),
		)
	}, nil
}

func ProvideIndexFor(provider IndexConfigProvider, db *database.DB) (index.ProvideFn, error) {
	cfg := provider.IndexConfig()
	specs, err := index.LoadLayerSpecs(cfg.LayersFile)
	if err != nil {
		return nil, fmt.Errorf("unable load layer specs: %v", err)
	}
	return func(notifier notify.Manager, shutdownCh chan<- error) (index.Manager, error) {
		return index.New(
			db,
			specs,
			notifier,
			shutdownCh,
			index.WithRebuildDBTime(cfg.RebuildDBTime),
			index.WithMaxItemsStored(cfg.MaxItemsStored),
			index.WithMaxStorageTime(cfg.MaxStorageTime),
			index.WithDBFlushSize(cfg.DBFlushSize),
			index.WithDBFlushTime(cfg.DBFlushTime),
		)
	}, nil
}
