package index

import (
	"go.opencensus.io/stats"
	"go.opencensus.io/stats/view"
	"go.opencensus.io/tag"
)

var KeyLayer = tag.MustNewKey("layer")

var (
	MPointsCollected = stats.Int64(
		"nearby/index/points_collected",
		"Number of points accepted for indexing",
		stats.UnitDimensionless,
	)
	MQueries = stats.Int64(
		"nearby/index/queries",
		"Number of nearest point queries",
		stats.UnitDimensionless,
	)
	MExamined = stats.Int64(
		"nearby/index/points_examined",
		"Number of candidate points examined by queries",
		stats.UnitDimensionless,
	)
	MQueryLatency = stats.Float64(
		"nearby/index/query_latency",
		"Latency of nearest point queries",
		stats.UnitMilliseconds,
	)
)

var Views = []*view.View{
	{
		Name:        "nearby/index/points_collected",
		Description: "Total points accepted for indexing",
		Measure:     MPointsCollected,
		TagKeys:     []tag.Key{KeyLayer},
		Aggregation: view.Count(),
	},
	{
		Name:        "nearby/index/queries",
		Description: "Total nearest point queries",
		Measure:     MQueries,
		TagKeys:     []tag.Key{KeyLayer},
		Aggregation: view.Count(),
	},
	{
		Name:        "nearby/index/points_examined",
		Description: "Distribution of candidates examined per query",
		Measure:     MExamined,
		TagKeys:     []tag.Key{KeyLayer},
		Aggregation: view.Distribution(0, 1, 2, 4, 8, 16, 32, 64, 128, 256, 512, 1024),
	},
	{
		Name:        "nearby/index/query_latency",
		Description: "Distribution of query latency in milliseconds",
		Measure:     MQueryLatency,
		TagKeys:     []tag.Key{KeyLayer},
		Aggregation: view.Distribution(0.01, 0.05, 0.1, 0.5, 1, 5, 10, 50, 100, 500),
	},
}
