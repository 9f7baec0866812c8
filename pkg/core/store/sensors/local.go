package sensors

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"strconv"

	bolt "go.etcd.io/bbolt"
)

type sensorLocalStore struct {
	db *bolt.DB
}

var sensorBucket = []byte("sensor_data")

func NewSensorLocalStore(db *bolt.DB) SensorStore {
	return &sensorLocalStore{
		db: db,
	}
}

func (s *sensorLocalStore) InsertSensorData(ctx context.Context, data SensorData) (*SensorData, error) {
	stored := data
	err := s.db.Update(func(tx *bolt.Tx) error {
		buck, err := tx.CreateBucketIfNotExists(sensorBucket)
		if err != nil {
			return err
		}

		seq, err := buck.NextSequence()
		if err != nil {
			return err
		}
		stored.ID = strconv.FormatUint(seq, 10)

		value, err := json.Marshal(stored)
		if err != nil {
			return err
		}

		key := make([]byte, 8)
		binary.BigEndian.PutUint64(key, seq)
		return buck.Put(key, value)
	})
	if err != nil {
		return nil, err
	}

	return &stored, nil
}

func (s *sensorLocalStore) ListSensorData(ctx context.Context) ([]*SensorData, error) {
	list := make([]*SensorData, 0)
	err := s.db.View(func(tx *bolt.Tx) error {
		buck := tx.Bucket(sensorBucket)
		if buck == nil {
			return nil
		}

		return buck.ForEach(func(k, v []byte) error {
			data := &SensorData{}
			if err := json.Unmarshal(v, data); err != nil {
				return err
			}
			list = append(list, data)
			return nil
		})
	})

	return list, err
}
