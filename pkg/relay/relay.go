// Package relay records movement commands and telemetry and forwards
// commands to the vehicle controller.
package relay

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"com.aiac.relay/pkg/core/store/commands"
	"com.aiac.relay/pkg/core/store/sensors"
	"github.com/apex/log"
	"gocloud.dev/pubsub"
)

const (
	KindCommand = "command"
	KindSensor  = "sensor"
)

// Event metadata keys.
const (
	MetaVehicleID = "vehicleID"
	MetaKind      = "kind"
	MetaTime      = "time"
)

var ErrInvalidCommand = errors.New("invalid command")

// PersistenceError reports a failed store operation.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

// Controller delivers a move to the vehicle.
type Controller interface {
	SendMove(ctx context.Context, direction string, speed int) (interface{}, error)
}

type Relay struct {
	commandStore commands.CommandStore
	sensorStore  sensors.SensorStore
	controller   Controller
	eventTopic   *pubsub.Topic
	vehicleID    string
	logger       *log.Entry
}

// NewRelay builds a Relay. eventTopic may be nil, in which case nothing is
// published.
func NewRelay(
	commandStore commands.CommandStore,
	sensorStore sensors.SensorStore,
	controller Controller,
	eventTopic *pubsub.Topic,
	vehicleID string,
) *Relay {
	return &Relay{
		commandStore: commandStore,
		sensorStore:  sensorStore,
		controller:   controller,
		eventTopic:   eventTopic,
		vehicleID:    vehicleID,
		logger:       log.WithField("module", "relay"),
	}
}

func (r *Relay) RecordCommand(ctx context.Context, direction string, speed int) (*commands.Command, error) {
	if strings.TrimSpace(direction) == "" {
		return nil, fmt.Errorf("%w: direction is required", ErrInvalidCommand)
	}

	command, err := r.commandStore.InsertCommand(ctx, direction, speed)
	if err != nil {
		return nil, &PersistenceError{Op: "insert command", Err: err}
	}

	r.publish(ctx, KindCommand, command)
	return command, nil
}

func (r *Relay) RecordSensorData(ctx context.Context, data sensors.SensorData) (*sensors.SensorData, error) {
	stored, err := r.sensorStore.InsertSensorData(ctx, data)
	if err != nil {
		return nil, &PersistenceError{Op: "insert sensor data", Err: err}
	}

	r.publish(ctx, KindSensor, stored)
	return stored, nil
}

func (r *Relay) ListCommands(ctx context.Context) ([]*commands.Command, error) {
	list, err := r.commandStore.ListCommands(ctx)
	if err != nil {
		return nil, &PersistenceError{Op: "list commands", Err: err}
	}
	if list == nil {
		list = make([]*commands.Command, 0)
	}
	return list, nil
}

// Move persists the command and then forwards it to the controller. The
// command stays recorded when the controller fails; the stored command is
// returned together with the controller error.
func (r *Relay) Move(ctx context.Context, direction string, speed int) (*commands.Command, interface{}, error) {
	command, err := r.RecordCommand(ctx, direction, speed)
	if err != nil {
		return nil, nil, err
	}

	response, err := r.controller.SendMove(ctx, command.Direction, command.Speed)
	if err != nil {
		r.logger.WithField("command", command.ID).Warnf("controller did not accept move: %v", err)
		return command, nil, err
	}

	return command, response, nil
}

func (r *Relay) publish(ctx context.Context, kind string, record interface{}) {
	if r.eventTopic == nil {
		return
	}

	body, err := json.Marshal(record)
	if err != nil {
		r.logger.Errorf("cannot encode %s event: %v", kind, err)
		return
	}

	err = r.eventTopic.Send(ctx, &pubsub.Message{
		Body: body,
		Metadata: map[string]string{
			MetaVehicleID: r.vehicleID,
			MetaKind:      kind,
			MetaTime:      strconv.FormatInt(time.Now().UnixNano(), 10),
		},
	})
	if err != nil {
		r.logger.Errorf("err publishing %s event: %v", kind, err)
	}
}

// EventTime reads the publish time of an event, falling back to now.
func EventTime(metadata map[string]string) time.Time {
	n, err := strconv.ParseInt(metadata[MetaTime], 10, 64)
	if err != nil {
		return time.Now()
	}
	return time.Unix(0, n)
}
