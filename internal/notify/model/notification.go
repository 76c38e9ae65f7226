package model

import (
	"time"

	pointModel "github.com/go-nearby/nearby/internal/point/model"
	"github.com/google/uuid"
)

func NewNotification(layerID string, points []pointModel.Point) Notification {
	return Notification{
		ID:        uuid.New(),
		LayerID:   layerID,
		Points:    points,
		CreatedAt: time.Now(),
	}
}

type Notification struct {
	ID        uuid.UUID          `json:"id"`
	LayerID   string             `json:"layerId"`
	Points    []pointModel.Point `json:"points"`
	CreatedAt time.Time          `json:"createdAt"`
}
