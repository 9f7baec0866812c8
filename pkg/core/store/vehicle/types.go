package vehicle

import (
	"context"
	"time"
)

// StateStore keeps the latest known snapshot of a vehicle: last telemetry
// fields and last command, merged key by key.
type StateStore interface {
	GetState(ctx context.Context, id string) (*State, error)
	UpsertState(ctx context.Context, id string, updated time.Time, updates map[string]interface{}) error
}

type State struct {
	ID   string                 `json:"id"`
	Data map[string]interface{} `json:"data"`
}
