package sensors

import (
	"context"
	"io"

	"github.com/google/uuid"
	"gocloud.dev/docstore"
)

type sensorDocStore struct {
	coll *docstore.Collection
}

// NewSensorDocStore create a sensor store using a goacloud.dev/docstore collection
func NewSensorDocStore(coll *docstore.Collection) SensorStore {
	return &sensorDocStore{
		coll: coll,
	}
}

func (s *sensorDocStore) InsertSensorData(ctx context.Context, data SensorData) (*SensorData, error) {
	stored := data
	stored.ID = uuid.NewString()
	if err := s.coll.Create(ctx, &stored); err != nil {
		return nil, err
	}
	return &stored, nil
}

func (s *sensorDocStore) ListSensorData(ctx context.Context) ([]*SensorData, error) {
	iter := s.coll.Query().Get(ctx)
	defer iter.Stop()

	list := make([]*SensorData, 0)
	for {
		data := &SensorData{}
		err := iter.Next(ctx, data)
		if err == io.EOF {
			break
		} else if err != nil {
			return nil, err
		}
		list = append(list, data)
	}
	return list, nil
}
