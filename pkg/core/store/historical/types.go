package historical

import (
	"context"
	"time"
)

// TimeSeriesStore keeps the event history of a vehicle, partitioned by
// datatype ("sensor", "command").
type TimeSeriesStore interface {
	InsertDataPoint(ctx context.Context, datatype string, id string, time time.Time, data map[string]interface{}) error
	GetDataPointsInRange(ctx context.Context, datatype string, id string, start time.Time, end time.Time) ([]*DataPoint, error)
}

type DataPoint struct {
	Time time.Time              `json:"time"`
	Data map[string]interface{} `json:"data"`
}

// timeKeyLayout is fixed width so keys sort in time order.
const timeKeyLayout = "2006-01-02T15:04:05.000000000Z"

func timeKey(t time.Time) string {
	return t.UTC().Format(timeKeyLayout)
}
