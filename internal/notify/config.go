package notify

import (
	"encoding/json"
	"time"

	"github.com/go-nearby/nearby/internal/httputil"
)

type Config struct {
	AllowNotify          bool          `envconfig:"NEARBY_ALLOW_NOTIFY" default:"true"`
	Targets              Targets       `envconfig:"NEARBY_NOTIFY_TARGETS"`
	Interval             time.Duration `envconfig:"NEARBY_NOTIFY_INTERVAL" default:"5s"`
	MaxConcurrentRequest int           `envconfig:"NEARBY_NOTIFY_MAX_CONCURRENT_REQUEST" default:"64"`
}

type Targets []Target

func (ts *Targets) Decode(value string) error {
	targets := []Target{}
	if err := json.Unmarshal([]byte(value), &targets); err != nil {
		return err
	}
	*ts = targets
	return nil
}

type Target struct {
	URL        string                    `json:"url"`
	LayerID    string                    `json:"layerId"`
	HTTPConfig httputil.HTTPClientConfig `json:"httpConfig"`
}
