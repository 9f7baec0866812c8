package commands

import (
	"context"
)

// CommandStore is the append-only log of movement commands.
type CommandStore interface {
	InsertCommand(ctx context.Context, direction string, speed int) (*Command, error)
	ListCommands(ctx context.Context) ([]*Command, error)
}

type Command struct {
	ID        string `json:"id" docstore:"id"`
	Direction string `json:"direction" docstore:"direction"`
	Speed     int    `json:"speed" docstore:"speed"`
}
