package realtime

import (
	"context"
	"encoding/json"

	"com.aiac.relay/pkg/core/store/vehicle"
	"com.aiac.relay/pkg/relay"
	"github.com/apex/log"
	"gocloud.dev/pubsub"
)

// RealtimeDataIngestor keeps the vehicle state store in sync with the
// latest telemetry reading and the last command sent.
type RealtimeDataIngestor struct {
	dataSub    *pubsub.Subscription
	stateStore vehicle.StateStore
	logger     *log.Entry
}

func NewIngestor(dataSub *pubsub.Subscription, stateStore vehicle.StateStore) *RealtimeDataIngestor {
	logger := log.WithField("module", "realtime-ingestor")
	return &RealtimeDataIngestor{
		dataSub:    dataSub,
		stateStore: stateStore,
		logger:     logger,
	}
}

// Start consumes events until the subscription is shut down or ctx ends.
func (rti *RealtimeDataIngestor) Start(ctx context.Context) {
	for {
		msg, err := rti.dataSub.Receive(ctx)
		if err != nil {
			rti.logger.Infof("stop receiving: %v", err)
			return
		}

		vehicleID := msg.Metadata[relay.MetaVehicleID]
		kind := msg.Metadata[relay.MetaKind]
		reportedTime := relay.EventTime(msg.Metadata)

		rti.logger.Debugf("Got %s event: %s - %v - %q", kind, vehicleID, reportedTime, msg.Body)

		var event map[string]interface{}
		err = json.Unmarshal(msg.Body, &event)
		if err != nil {
			rti.logger.Warnf("Invalid msg format :%v", err)
			// Drop msg
			msg.Ack()
			continue
		}

		updates := StateUpdates(kind, event)
		if len(updates) == 0 {
			msg.Ack()
			continue
		}

		err = rti.stateStore.UpsertState(ctx, vehicleID, reportedTime, updates)
		if err != nil {
			rti.logger.Errorf("err update vehicle state :%v", err)
			msg.Nack()
			continue
		}

		msg.Ack()
	}
}

// StateUpdates maps an event to flat state keys. Sensor readings overwrite
// the telemetry fields; commands land under last_*.
func StateUpdates(kind string, event map[string]interface{}) map[string]interface{} {
	updates := make(map[string]interface{})
	switch kind {
	case relay.KindSensor:
		for k, v := range event {
			if k == "id" {
				updates["last_sensor_id"] = v
				continue
			}
			updates[k] = v
		}
	case relay.KindCommand:
		for k, v := range event {
			updates["last_"+k] = v
		}
		if id, ok := updates["last_id"]; ok {
			delete(updates, "last_id")
			updates["last_command_id"] = id
		}
	}
	return updates
}
