package historical

import (
	"context"
	"io"
	"time"

	"github.com/google/uuid"
	"gocloud.dev/docstore"
)

type historicalDocStore struct {
	coll *docstore.Collection
}

// NewHistoricalDocStore create a historical store using a gocloud.dev/docstore
// collection keyed by "id".
func NewHistoricalDocStore(coll *docstore.Collection) TimeSeriesStore {
	return &historicalDocStore{
		coll: coll,
	}
}

func (s *historicalDocStore) InsertDataPoint(ctx context.Context, datatype string, id string, reportedTime time.Time, data map[string]interface{}) error {
	doc := make(map[string]interface{}, len(data)+4)
	for k, v := range data {
		doc[k] = v
	}
	doc["id"] = uuid.NewString()
	doc["vehicleID"] = id
	doc["type"] = datatype
	doc["time"] = timeKey(reportedTime)
	return s.coll.Actions().Create(doc).Do(ctx)
}

func (s *historicalDocStore) GetDataPointsInRange(ctx context.Context, datatype string, id string, start time.Time, end time.Time) ([]*DataPoint, error) {
	iter := s.coll.
		Query().
		Where("vehicleID", "=", id).
		Where("type", "=", datatype).
		Where("time", ">=", timeKey(start)).
		Where("time", "<=", timeKey(end)).
		OrderBy("time", docstore.Ascending).
		Get(ctx)

	defer iter.Stop()

	points := make([]*DataPoint, 0)
	for {
		data := make(map[string]interface{})
		err := iter.Next(ctx, data)
		if err == io.EOF {
			break
		} else if err != nil {
			return nil, err
		}

		timeStr, _ := data["time"].(string)
		t, err := time.Parse(timeKeyLayout, timeStr)
		if err != nil {
			continue
		}

		for _, k := range []string{"id", "vehicleID", "type", "time", docstore.DefaultRevisionField} {
			delete(data, k)
		}
		points = append(points, &DataPoint{
			Time: t,
			Data: data,
		})
	}

	return points, nil
}
