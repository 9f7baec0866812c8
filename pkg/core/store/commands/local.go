package commands

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"strconv"

	bolt "go.etcd.io/bbolt"
)

type commandLocalStore struct {
	db *bolt.DB
}

var commandBucket = []byte("commands")

// NewCommandLocalStore keeps commands in a bbolt bucket keyed by the
// bucket sequence, so ids are assigned by the store and never reused.
func NewCommandLocalStore(db *bolt.DB) CommandStore {
	return &commandLocalStore{
		db: db,
	}
}

func (s *commandLocalStore) InsertCommand(ctx context.Context, direction string, speed int) (*Command, error) {
	command := &Command{
		Direction: direction,
		Speed:     speed,
	}

	err := s.db.Update(func(tx *bolt.Tx) error {
		buck, err := tx.CreateBucketIfNotExists(commandBucket)
		if err != nil {
			return err
		}

		seq, err := buck.NextSequence()
		if err != nil {
			return err
		}
		command.ID = strconv.FormatUint(seq, 10)

		value, err := json.Marshal(command)
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

	return command, nil
}

func (s *commandLocalStore) ListCommands(ctx context.Context) ([]*Command, error) {
	list := make([]*Command, 0)
	err := s.db.View(func(tx *bolt.Tx) error {
		buck := tx.Bucket(commandBucket)
		if buck == nil {
			return nil
		}

		return buck.ForEach(func(k, v []byte) error {
			command := &Command{}
			if err := json.Unmarshal(v, command); err != nil {
				return err
			}
			list = append(list, command)
			return nil
		})
	})

	return list, err
}
