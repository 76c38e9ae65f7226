package index

import (
	"time"

	"github.com/go-nearby/nearby/internal/point/model"
	"github.com/go-nearby/nearby/pkg/container/avltree"
)

type timeNode struct {
	K time.Time
	V *model.Point
}

func (i timeNode) Key() interface{} {
	return i.K
}

func (i timeNode) Value() interface{} {
	return i.V
}

func (i timeNode) Subtraction(item avltree.Item) int {
	if i.K.Equal(item.(timeNode).K) {
		return 0
	}

	if i.K.Before(item.(timeNode).K) {
		return -1
	}
	return 1
}
