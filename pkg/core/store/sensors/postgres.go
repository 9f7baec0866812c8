package sensors

import (
	"context"
	"database/sql"
	"errors"
	"strconv"
)

const sensorSchema = `
CREATE TABLE IF NOT EXISTS sensor_data (
	id BIGSERIAL PRIMARY KEY,
	battery_temperature DOUBLE PRECISION NOT NULL,
	current_position TEXT NOT NULL,
	battery_status TEXT NOT NULL,
	lights_on BOOLEAN NOT NULL
);`

type sensorPostgresStore struct {
	db *sql.DB
}

func NewSensorPostgresStore(db *sql.DB) SensorStore {
	return &sensorPostgresStore{db: db}
}

// EnsureSensorSchema creates the sensor_data table.
func EnsureSensorSchema(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, sensorSchema)
	return err
}

func (s *sensorPostgresStore) InsertSensorData(ctx context.Context, data SensorData) (*SensorData, error) {
	if s.db == nil {
		return nil, errors.New("sensor store: nil db")
	}

	var id int64
	err := s.db.QueryRowContext(ctx, `
INSERT INTO sensor_data (battery_temperature, current_position, battery_status, lights_on)
VALUES ($1, $2, $3, $4)
RETURNING id`, data.BatteryTemperature, data.CurrentPosition, data.BatteryStatus, data.LightsOn).Scan(&id)
	if err != nil {
		return nil, err
	}

	stored := data
	stored.ID = strconv.FormatInt(id, 10)
	return &stored, nil
}

func (s *sensorPostgresStore) ListSensorData(ctx context.Context) ([]*SensorData, error) {
	if s.db == nil {
		return nil, errors.New("sensor store: nil db")
	}

	rows, err := s.db.QueryContext(ctx, `
SELECT id, battery_temperature, current_position, battery_status, lights_on
FROM sensor_data
ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	list := make([]*SensorData, 0)
	for rows.Next() {
		var id int64
		data := &SensorData{}
		if err := rows.Scan(&id, &data.BatteryTemperature, &data.CurrentPosition, &data.BatteryStatus, &data.LightsOn); err != nil {
			return nil, err
		}
		data.ID = strconv.FormatInt(id, 10)
		list = append(list, data)
	}
	return list, rows.Err()
}
