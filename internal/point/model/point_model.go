package model

import (
	"time"

	"github.com/go-nearby/nearby/internal/geom"
	"github.com/go-nearby/nearby/pkg/container/quadtree"
	"github.com/google/uuid"
)

type Status uint8

const (
	StatusNew Status = iota
	StatusIndexed
)

func NewPoint(layerID string, coord geom.Point, createdAt time.Time, extra interface{}) Point {
	return Point{
		ID:        uuid.New(),
		LayerID:   layerID,
		Status:    StatusNew,
		Coord:     coord,
		CreatedAt: createdAt,
		Extra:     extra,
	}
}

var _ quadtree.XY = (*Point)(nil)

type Point struct {
	ID        uuid.UUID   `json:"id"`
	LayerID   string      `json:"layerId"`
	Coord     geom.Point  `json:"coord"`
	Status    Status      `json:"status"`
	CreatedAt time.Time   `json:"createdAt"`
	Extra     interface{} `json:"extra"`
}

func (p Point) IsIndexed() bool {
	return p.Status == StatusIndexed
}

func (p Point) IsNew() bool {
	return p.Status == StatusNew
}

func (p Point) X() float64 {
	return p.Coord.X
}

func (p Point) Y() float64 {
	return p.Coord.Y
}

func (p Point) Time() time.Time {
	return p.CreatedAt
}
