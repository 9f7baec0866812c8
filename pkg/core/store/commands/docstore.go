package commands

import (
	"context"
	"io"

	"github.com/google/uuid"
	"gocloud.dev/docstore"
)

type commandDocStore struct {
	coll *docstore.Collection
}

// NewCommandDocStore create a command store using a goacloud.dev/docstore collection
// whose key field is "id".
func NewCommandDocStore(coll *docstore.Collection) CommandStore {
	return &commandDocStore{
		coll: coll,
	}
}

func (s *commandDocStore) InsertCommand(ctx context.Context, direction string, speed int) (*Command, error) {
	command := &Command{
		ID:        uuid.NewString(),
		Direction: direction,
		Speed:     speed,
	}

	if err := s.coll.Create(ctx, command); err != nil {
		return nil, err
	}

	return command, nil
}

func (s *commandDocStore) ListCommands(ctx context.Context) ([]*Command, error) {
	iter := s.coll.Query().Get(ctx)
	defer iter.Stop()

	list := make([]*Command, 0)
	for {
		command := &Command{}
		err := iter.Next(ctx, command)
		if err == io.EOF {
			break
		} else if err != nil {
			return nil, err
		}
		list = append(list, command)
	}
	return list, nil
}
