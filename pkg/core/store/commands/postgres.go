package commands

import (
	"context"
	"database/sql"
	"errors"
	"strconv"
)

const commandsSchema = `
CREATE TABLE IF NOT EXISTS commands (
	id BIGSERIAL PRIMARY KEY,
	direction TEXT NOT NULL,
	speed INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS ix_commands_direction ON commands (direction);`

type commandPostgresStore struct {
	db *sql.DB
}

// NewCommandPostgresStore stores commands in the "commands" table. The db is
// expected to be opened with the pgx driver.
func NewCommandPostgresStore(db *sql.DB) CommandStore {
	return &commandPostgresStore{db: db}
}

// EnsureCommandSchema creates the commands table and its direction index.
func EnsureCommandSchema(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, commandsSchema)
	return err
}

func (s *commandPostgresStore) InsertCommand(ctx context.Context, direction string, speed int) (*Command, error) {
	if s.db == nil {
		return nil, errors.New("command store: nil db")
	}

	var id int64
	err := s.db.QueryRowContext(ctx, `
INSERT INTO commands (direction, speed)
VALUES ($1, $2)
RETURNING id`, direction, speed).Scan(&id)
	if err != nil {
		return nil, err
	}

	return &Command{
		ID:        strconv.FormatInt(id, 10),
		Direction: direction,
		Speed:     speed,
	}, nil
}

func (s *commandPostgresStore) ListCommands(ctx context.Context) ([]*Command, error) {
	if s.db == nil {
		return nil, errors.New("command store: nil db")
	}

	rows, err := s.db.QueryContext(ctx, `SELECT id, direction, speed FROM commands ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	list := make([]*Command, 0)
	for rows.Next() {
		var id int64
		command := &Command{}
		if err := rows.Scan(&id, &command.Direction, &command.Speed); err != nil {
			return nil, err
		}
		command.ID = strconv.FormatInt(id, 10)
		list = append(list, command)
	}
	return list, rows.Err()
}
