package vehicle

import (
	"context"
	"fmt"
	"time"

	"github.com/apex/log"
	"github.com/jeremywohl/flatten"
	"github.com/nqd/flat"
	bolt "go.etcd.io/bbolt"
)

// stateLocalStore saves vehicle state locally on filesystem, one bucket per
// vehicle with flattened "a/b" keys. Values are stored as strings.
type stateLocalStore struct {
	db     *bolt.DB
	logger *log.Entry
}

const vehicleBucketPrefix = "vehicle_"

func NewStateLocalStore(db *bolt.DB) StateStore {
	return &stateLocalStore{
		db:     db,
		logger: log.WithField("module", "vehicle-store"),
	}
}

func (s *stateLocalStore) GetState(ctx context.Context, id string) (*State, error) {
	state := &State{}
	err := s.db.View(func(tx *bolt.Tx) error {
		buck := tx.Bucket([]byte(vehicleBucketPrefix + id))
		if buck == nil {
			state = nil
			return nil
		}

		data := make(map[string]interface{})
		cur := buck.Cursor()
		for k, v := cur.First(); k != nil; k, v = cur.Next() {
			data[string(k)] = string(v)
		}

		nestedData, err := flat.Unflatten(data, &flat.Options{
			Delimiter: "/",
		})
		if err != nil {
			return err
		}

		state.ID = id
		state.Data = nestedData
		return nil
	})

	return state, err
}

func (s *stateLocalStore) UpsertState(ctx context.Context, id string, updated time.Time, updates map[string]interface{}) error {
	tx, err := s.db.Begin(true)
	if err != nil {
		return err
	}

	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				s.logger.Errorf("err rollback: %v", rbErr)
			}
		}
	}()

	data := make(map[string]interface{}, len(updates)+2)
	for k, v := range updates {
		data[k] = v
	}

	buck := tx.Bucket([]byte(vehicleBucketPrefix + id))
	if buck == nil {
		data["created"] = updated.Format(time.RFC3339)
		data["vehicleID"] = id
		buck, err = tx.CreateBucketIfNotExists([]byte(vehicleBucketPrefix + id))
		if err != nil {
			return err
		}
	}

	data["updated"] = updated.Format(time.RFC3339)
	var flattenData map[string]interface{}
	flattenData, err = flatten.Flatten(data, "", flatten.PathStyle)
	if err != nil {
		return err
	}

	for k, v := range flattenData {
		value := fmt.Sprintf("%v", v)
		err = buck.Put([]byte(k), []byte(value))
		if err != nil {
			return err
		}
	}

	err = tx.Commit()
	return err
}
