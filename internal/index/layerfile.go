package index

import (
	"fmt"

	"github.com/BurntSushi/toml"
)

// World-sized lon/lat bounds. MaxX and MaxY are nudged past the edge so
// that points lying exactly on the antimeridian or pole stay insertable
// with half-open bounds.
const (
	defaultMinX = -180.0
	defaultMinY = -90.0
	defaultMaxX = 180.001
	defaultMaxY = 90.001
)

type LayerSpec struct {
	MinX           float64 `toml:"min_x"`
	MinY           float64 `toml:"min_y"`
	MaxX           float64 `toml:"max_x"`
	MaxY           float64 `toml:"max_y"`
	UpperThreshold int     `toml:"upper_threshold"`
	LowerThreshold int     `toml:"lower_threshold"`
	MaxDepth       int     `toml:"max_depth"`
}

type layerFile struct {
	Default LayerSpec            `toml:"default"`
	Layers  map[string]LayerSpec `toml:"layers"`
}

func defaultLayerSpec() LayerSpec {
	return LayerSpec{
		MinX: defaultMinX,
		MinY: defaultMinY,
		MaxX: defaultMaxX,
		MaxY: defaultMaxY,
	}
}

// LayerSpecs resolves per-layer quadtree parameters. Layers without an
// explicit entry fall back to the default spec.
type LayerSpecs struct {
	def    LayerSpec
	layers map[string]LayerSpec
}

func NewLayerSpecs() *LayerSpecs {
	return &LayerSpecs{def: defaultLayerSpec(), layers: map[string]LayerSpec{}}
}

func (s *LayerSpecs) For(layerID string) LayerSpec {
	if spec, ok := s.layers[layerID]; ok {
		return spec
	}
	return s.def
}

// LoadLayerSpecs reads layer definitions from a TOML file. An empty
// fileName yields specs with the built-in defaults only. Zero fields of
// a layer entry inherit from the default spec.
func LoadLayerSpecs(fileName string) (*LayerSpecs, error) {
	specs := NewLayerSpecs()
	if fileName == "" {
		return specs, nil
	}

	var file layerFile
	if _, err := toml.DecodeFile(fileName, &file); err != nil {
		return nil, fmt.Errorf("unable decode layers file %s: %w", fileName, err)
	}

	specs.def = mergeSpec(specs.def, file.Default)
	for id, spec := range file.Layers {
		specs.layers[id] = mergeSpec(specs.def, spec)
	}

	return specs, nil
}

func mergeSpec(base, override LayerSpec) LayerSpec {
	merged := base
	if override.MinX != 0 || override.MaxX != 0 {
		merged.MinX, merged.MaxX = override.MinX, override.MaxX
	}
	if override.MinY != 0 || override.MaxY != 0 {
		merged.MinY, merged.MaxY = override.MinY, override.MaxY
	}
	if override.UpperThreshold != 0 {
		merged.UpperThreshold = override.UpperThreshold
	}
	if override.LowerThreshold != 0 {
		merged.LowerThreshold = override.LowerThreshold
	}
	if override.MaxDepth != 0 {
		merged.MaxDepth = override.MaxDepth
	}
	return merged
}
