package sensors

import (
	"context"
)

// SensorStore is the append-only log of telemetry reports.
type SensorStore interface {
	InsertSensorData(ctx context.Context, data SensorData) (*SensorData, error)
	ListSensorData(ctx context.Context) ([]*SensorData, error)
}

type SensorData struct {
	ID                 string  `json:"id,omitempty" docstore:"id" cbor:"id,omitempty"`
	BatteryTemperature float64 `json:"battery_temperature" docstore:"battery_temperature" cbor:"battery_temperature"`
	CurrentPosition    string  `json:"current_position" docstore:"current_position" cbor:"current_position"`
	BatteryStatus      string  `json:"battery_status" docstore:"battery_status" cbor:"battery_status"`
	LightsOn           bool    `json:"lights_on" docstore:"lights_on" cbor:"lights_on"`
}
