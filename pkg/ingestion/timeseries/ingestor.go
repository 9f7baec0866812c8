package timeseries

import (
	"context"
	"encoding/json"

	"com.aiac.relay/pkg/core/store/historical"
	"com.aiac.relay/pkg/relay"
	"github.com/apex/log"
	"gocloud.dev/pubsub"
)

// TimeseriesDataIngestor appends every event to the history, using the
// event kind as the datatype.
type TimeseriesDataIngestor struct {
	dataSub *pubsub.Subscription
	tsStore historical.TimeSeriesStore
	logger  *log.Entry
}

func NewIngestor(dataSub *pubsub.Subscription, tsStore historical.TimeSeriesStore) *TimeseriesDataIngestor {
	logger := log.WithField("module", "timeseries-ingestor")
	return &TimeseriesDataIngestor{
		dataSub: dataSub,
		tsStore: tsStore,
		logger:  logger,
	}
}

func (tsi *TimeseriesDataIngestor) Start(ctx context.Context) {
	for {
		msg, err := tsi.dataSub.Receive(ctx)
		if err != nil {
			tsi.logger.Infof("stop receiving: %v", err)
			return
		}

		vehicleID := msg.Metadata[relay.MetaVehicleID]
		kind := msg.Metadata[relay.MetaKind]
		reportedTime := relay.EventTime(msg.Metadata)

		var datapoint map[string]interface{}
		err = json.Unmarshal(msg.Body, &datapoint)
		if err != nil || kind == "" {
			tsi.logger.Warnf("Invalid msg format (kind %q): %v", kind, err)
			// Drop msg
			msg.Ack()
			continue
		}
		delete(datapoint, "id")

		err = tsi.tsStore.InsertDataPoint(ctx, kind, vehicleID, reportedTime, datapoint)
		if err != nil {
			tsi.logger.Errorf("err insert %s history :%v", kind, err)
			msg.Nack()
			continue
		}

		msg.Ack()
	}
}
