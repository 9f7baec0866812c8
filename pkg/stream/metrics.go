package stream

import (
	"context"

	"go.opencensus.io/stats"
	"go.opencensus.io/stats/view"
	"go.opencensus.io/tag"
)

var (
	MKeepAlives = stats.Int64("stream/keepalives", "Keep-alive datagrams sent to the camera", stats.UnitDimensionless)

	MSessions = stats.Int64("stream/sessions", "Stream session transitions", stats.UnitDimensionless)
)

var (
	KeyResult, _ = tag.NewKey("result")
	KeyEvent, _  = tag.NewKey("event")
)

var (
	KeepAlivesView = &view.View{
		Name:        "stream/keepalives",
		Measure:     MKeepAlives,
		Description: "Keep-alive datagrams by result",
		Aggregation: view.Count(),
		TagKeys:     []tag.Key{KeyResult},
	}

	SessionsView = &view.View{
		Name:        "stream/sessions",
		Measure:     MSessions,
		Description: "Stream sessions started and stopped",
		Aggregation: view.Count(),
		TagKeys:     []tag.Key{KeyEvent},
	}
)

// RegisterViews registers the stream views with the opencensus exporter.
func RegisterViews() error {
	return view.Register(KeepAlivesView, SessionsView)
}

func recordKeepAlive(err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	stats.RecordWithTags(context.Background(), []tag.Mutator{tag.Upsert(KeyResult, result)}, MKeepAlives.M(1))
}

func recordSession(event string) {
	stats.RecordWithTags(context.Background(), []tag.Mutator{tag.Upsert(KeyEvent, event)}, MSessions.M(1))
}
