package coap

import (
	"time"

	"go.opencensus.io/stats"
	"go.opencensus.io/stats/view"
	"go.opencensus.io/tag"
)

var (
	MLatencyMs = stats.Float64("gateway/coap/latency", "The latency in milliseconds per request", "ms")

	MRequests = stats.Int64("gateway/coap/requests", "Number of requests", stats.UnitDimensionless)

	MMessageBytes = stats.Int64("gateway/coap/bytes", "Telemetry payload bytes received", stats.UnitBytes)
)

var (
	LatencyView = &view.View{
		Name:        "gateway/coap/latency",
		Measure:     MLatencyMs,
		Description: "The distribution of the latencies",

		Aggregation: view.Distribution(0, 5, 10, 25, 50, 100, 250, 500, 1000, 2000),
		TagKeys:     []tag.Key{KeyMethod},
	}

	RequestsCountView = &view.View{
		Name:        "gateway/coap/requests",
		Measure:     MRequests,
		Description: "Number of requests",
		Aggregation: view.Count(),
		TagKeys:     []tag.Key{KeyMethod},
	}

	MessageSizeView = &view.View{
		Name:        "gateway/coap/bytes",
		Measure:     MMessageBytes,
		Description: "Telemetry bytes received by content format",
		Aggregation: view.Sum(),
		TagKeys:     []tag.Key{KeyFormat},
	}
)

var (
	KeyMethod, _ = tag.NewKey("method")
	KeyFormat, _ = tag.NewKey("format")
)

func RegisterViews() error {
	return view.Register(LatencyView, RequestsCountView, MessageSizeView)
}

func sinceInMilliseconds(startTime time.Time) float64 {
	return float64(time.Since(startTime).Nanoseconds()) / 1e6
}
