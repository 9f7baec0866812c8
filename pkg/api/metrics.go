package api

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber"
	"go.opencensus.io/stats"
	"go.opencensus.io/stats/view"
	"go.opencensus.io/tag"
)

var (
	MLatencyMs = stats.Float64("api/latency", "The latency in milliseconds per request", "ms")

	MRequests = stats.Int64("api/requests", "Number of requests", stats.UnitDimensionless)
)

var (
	KeyMethod, _ = tag.NewKey("method")
	KeyPath, _   = tag.NewKey("path")
	KeyStatus, _ = tag.NewKey("status")
)

var (
	LatencyView = &view.View{
		Name:        "api/latency",
		Measure:     MLatencyMs,
		Description: "The distribution of the latencies",
		Aggregation: view.Distribution(0, 5, 10, 25, 50, 100, 250, 500, 1000, 3000, 6000),
		TagKeys:     []tag.Key{KeyMethod, KeyPath},
	}

	RequestsCountView = &view.View{
		Name:        "api/requests",
		Measure:     MRequests,
		Description: "Number of requests by status",
		Aggregation: view.Count(),
		TagKeys:     []tag.Key{KeyMethod, KeyPath, KeyStatus},
	}
)

func RegisterViews() error {
	return view.Register(LatencyView, RequestsCountView)
}

func (as *ApiServer) requestMetrics(ctx *fiber.Ctx) {
	startTime := time.Now()
	ctx.Next()

	status := ctx.Fasthttp.Response.StatusCode()
	// fasthttp reuses request buffers once the handler returns.
	tagCtx, err := tag.New(context.Background(),
		tag.Insert(KeyMethod, strings.Clone(ctx.Method())),
		tag.Insert(KeyPath, strings.Clone(ctx.Path())),
		tag.Insert(KeyStatus, strconv.Itoa(status)),
	)
	if err != nil {
		as.logger.Errorf("err creating metric for request %v", err)
		return
	}
	stats.Record(tagCtx,
		MLatencyMs.M(float64(time.Since(startTime).Nanoseconds())/1e6),
		MRequests.M(1),
	)
}
