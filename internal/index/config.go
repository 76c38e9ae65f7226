package index

import "time"

type Config struct {
	// Path to the TOML file with layer bounds and thresholds
	LayersFile string `envconfig:"NEARBY_INDEX_LAYERS_FILE"`
	// Interval for checking the amount of data in the persistent storage
	RebuildDBTime time.Duration `envconfig:"NEARBY_INDEX_REBUILD_DB_TIME" default:"15s"`
	// Maximum number of points stored per layer
	MaxItemsStored int `envconfig:"NEARBY_INDEX_MAX_ITEMS_STORED" default:"1000000"`
	// Maximum point lifetime. If 0, the lifetime is unlimited
	MaxStorageTime time.Duration `envconfig:"NEARBY_INDEX_MAX_STORAGE_TIME" default:"0s"`
	// Buffer size for bulk insertion into storage
	DBFlushSize int `envconfig:"NEARBY_DB_FLUSH_SIZE" default:"10"`
	// Interval for forced buffer flushing to storage
	DBFlushTime time.Duration `envconfig:"NEARBY_DB_FLUSH_TIME" default:"5s"`
}
