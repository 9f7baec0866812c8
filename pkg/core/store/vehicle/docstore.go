package vehicle

import (
	"context"
	"time"

	"github.com/jeremywohl/flatten"
	"gocloud.dev/docstore"
	"gocloud.dev/gcerrors"
)

type stateDocStore struct {
	coll *docstore.Collection
}

// NewStateDocStore create a vehicle state store using a gocloud.dev/docstore
// collection keyed by "vehicleID".
func NewStateDocStore(coll *docstore.Collection) StateStore {
	return &stateDocStore{
		coll: coll,
	}
}

func (s *stateDocStore) GetState(ctx context.Context, id string) (*State, error) {
	doc := map[string]interface{}{"vehicleID": id}
	err := s.coll.Get(ctx, doc)
	if err != nil {
		if gcerrors.Code(err) == gcerrors.NotFound {
			return nil, nil
		}
		return nil, err
	}

	return &State{
		ID:   id,
		Data: doc,
	}, nil
}

func (s *stateDocStore) UpsertState(ctx context.Context, id string, updated time.Time, updates map[string]interface{}) error {
	state, err := s.GetState(ctx, id)
	if err != nil {
		return err
	}

	if state == nil {
		doc := map[string]interface{}{
			"vehicleID": id,
			"created":   updated.Format(time.RFC3339),
		}
		if err := s.coll.Create(ctx, doc); err != nil {
			return err
		}
	}

	nestedUpdates, err := flatten.Flatten(updates, "", flatten.DotStyle)
	if err != nil {
		return err
	}

	nestedUpdates["updated"] = updated.Format(time.RFC3339)
	mods := docstore.Mods{}
	for k, v := range nestedUpdates {
		mods[docstore.FieldPath(k)] = v
	}

	key := map[string]interface{}{"vehicleID": id}
	return s.coll.Actions().Update(key, mods).Do(ctx)
}
