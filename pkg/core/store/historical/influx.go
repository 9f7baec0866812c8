package historical

import (
	"context"
	"fmt"
	"sort"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
)

type influxTimeSeriesStore struct {
	client influxdb2.Client
	org    string
	bucket string
}

// NewTimeSeriesInfluxStore writes one point per event into the measurement
// named after the datatype, tagged with the vehicle id.
func NewTimeSeriesInfluxStore(client influxdb2.Client, org, bucket string) TimeSeriesStore {
	return &influxTimeSeriesStore{
		client: client,
		org:    org,
		bucket: bucket,
	}
}

func (s *influxTimeSeriesStore) InsertDataPoint(ctx context.Context, datatype string, id string, reportedTime time.Time, data map[string]interface{}) error {
	fields := make(map[string]interface{}, len(data))
	for k, v := range data {
		switch v.(type) {
		case map[string]interface{}, []interface{}, nil:
			fields[k] = fmt.Sprintf("%v", v)
		default:
			fields[k] = v
		}
	}

	p := influxdb2.NewPoint(
		datatype,
		map[string]string{"vehicle_id": id},
		fields,
		reportedTime,
	)

	writeAPI := s.client.WriteAPIBlocking(s.org, s.bucket)
	if err := writeAPI.WritePoint(ctx, p); err != nil {
		return fmt.Errorf("error writing to InfluxDB: %w", err)
	}
	return nil
}

func (s *influxTimeSeriesStore) GetDataPointsInRange(ctx context.Context, datatype string, id string, start time.Time, end time.Time) ([]*DataPoint, error) {
	query := fmt.Sprintf(`from(bucket: %q)
  |> range(start: %s, stop: %s)
  |> filter(fn: (r) => r._measurement == %q and r.vehicle_id == %q)`,
		s.bucket,
		start.UTC().Format(time.RFC3339Nano),
		end.UTC().Format(time.RFC3339Nano),
		datatype,
		id,
	)

	result, err := s.client.QueryAPI(s.org).Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("error querying InfluxDB: %w", err)
	}
	defer result.Close()

	byTime := make(map[time.Time]*DataPoint)
	for result.Next() {
		record := result.Record()
		t := record.Time()
		point, ok := byTime[t]
		if !ok {
			point = &DataPoint{Time: t, Data: make(map[string]interface{})}
			byTime[t] = point
		}
		point.Data[record.Field()] = record.Value()
	}
	if result.Err() != nil {
		return nil, fmt.Errorf("error reading InfluxDB result: %w", result.Err())
	}

	points := make([]*DataPoint, 0, len(byTime))
	for _, point := range byTime {
		points = append(points, point)
	}
	sort.Slice(points, func(i, j int) bool {
		return points[i].Time.Before(points[j].Time)
	})
	return points, nil
}
