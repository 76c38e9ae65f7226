package nearby

import (
	"github.com/go-nearby/nearby/internal/collect"
	"github.com/go-nearby/nearby/internal/database"
	"github.com/go-nearby/nearby/internal/index"
	"github.com/go-nearby/nearby/internal/notify"
	"github.com/go-nearby/nearby/internal/query"
	"github.com/go-nearby/nearby/internal/scrape"
	"github.com/go-nearby/nearby/internal/setup"
)

var (
	_ setup.SvcModeConfigProvider  = (*Config)(nil)
	_ setup.IndexConfigProvider    = (*Config)(nil)
	_ setup.DatabaseConfigProvider = (*Config)(nil)
	_ setup.NotifierConfigProvider = (*Config)(nil)
	_ setup.ScrapeConfigProvider   = (*Config)(nil)
)

const (
	SvcModeTypeCollect = "COLLECT"
	SvcModeTypeScrape  = "SCRAPE"
)

type Config struct {
	SvcModeType string `envconfig:"NEARBY_SVC_MODE" default:"COLLECT"`
	SrvAddr     string `envconfig:"NEARBY_ADDR" default:":8787"`
	Index       index.Config
	Collect     collect.Config
	Query       query.Config
	Database    database.Config
	Scrape      scrape.Config
	Notify      notify.Config
}

func (c Config) SvcMode() string {
	return c.SvcModeType
}

func (c Config) IndexConfig() *index.Config {
	return &c.Index
}

func (c Config) NotifyConfig() *notify.Config {
	return &c.Notify
}

func (c Config) ScrapeConfig() *scrape.Config {
	return &c.Scrape
}

func (c Config) DatabaseConfig() *database.Config {
	return &c.Database
}
