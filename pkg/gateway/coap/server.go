package coap

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/ioutil"
	"strconv"
	"time"

	"com.aiac.relay/pkg/config"
	"com.aiac.relay/pkg/core/store/sensors"
	"github.com/apex/log"
	"github.com/fxamacker/cbor/v2"
	"github.com/plgd-dev/go-coap/v2/message"
	"github.com/plgd-dev/go-coap/v2/message/codes"
	"github.com/plgd-dev/go-coap/v2/mux"
	coapNet "github.com/plgd-dev/go-coap/v2/net"
	"github.com/plgd-dev/go-coap/v2/udp"
	"go.opencensus.io/stats"
	"go.opencensus.io/tag"
)

const SensorPath = "/sensor"

var errEmptyPayload = errors.New("empty payload")

// SensorRecorder stores a telemetry reading.
type SensorRecorder interface {
	RecordSensorData(ctx context.Context, data sensors.SensorData) (*sensors.SensorData, error)
}

// CoAPGateway lets the vehicle firmware report telemetry over CoAP.
type CoAPGateway struct {
	router   *mux.Router
	server   *udp.Server
	recorder SensorRecorder
	logger   *log.Entry
	port     int
}

func NewGateway(recorder SensorRecorder, config config.GatewayConfig) *CoAPGateway {
	router := mux.NewRouter()
	logger := log.WithField("module", "coap-gateway")
	return &CoAPGateway{
		logger:   logger,
		port:     config.Port,
		router:   router,
		recorder: recorder,
	}
}

// Middleware function, which will be called for each request.
func (cg *CoAPGateway) routerMiddleware(next mux.Handler) mux.Handler {
	return mux.HandlerFunc(func(w mux.ResponseWriter, r *mux.Message) {
		startTime := time.Now()
		ctx, err := tag.New(context.Background(), tag.Insert(KeyMethod, r.Code.String()))
		if err != nil {
			cg.logger.Errorf("err creating metric for request %v", err)
		}
		defer func() {
			stats.Record(ctx, MLatencyMs.M(sinceInMilliseconds(startTime)))
			stats.Record(ctx, MRequests.M(1))
		}()

		cg.logger.Debugf("%v %v from %v", r.Code, r.Options, w.Client().RemoteAddr())
		next.ServeCOAP(w, r)
	})
}

func (cg *CoAPGateway) handleSensor(w mux.ResponseWriter, req *mux.Message) {
	if req.Code != codes.POST {
		cg.respond(w, codes.MethodNotAllowed, "")
		return
	}

	if req.Body == nil {
		cg.respond(w, codes.BadRequest, errEmptyPayload.Error())
		return
	}

	data, err := ioutil.ReadAll(req.Body)
	if err != nil {
		cg.logger.Warnf("cannot read request: %v", err)
		cg.respond(w, codes.BadRequest, "")
		return
	}

	format, err := req.Options.ContentFormat()
	if err != nil {
		format = message.AppJSON
	}

	ctx, err := tag.New(req.Context, tag.Insert(KeyFormat, format.String()))
	if err != nil {
		cg.logger.Errorf("err creating metric for request %v", err)
	}
	stats.Record(ctx, MMessageBytes.M(int64(len(data))))

	reading, err := DecodeSensorData(format, data)
	if err != nil {
		cg.logger.Infof("invalid sensor payload (%v): %v", format, err)
		cg.respond(w, codes.BadRequest, err.Error())
		return
	}

	stored, err := cg.recorder.RecordSensorData(req.Context, *reading)
	if err != nil {
		cg.logger.Errorf("cannot record sensor data: %v", err)
		cg.respond(w, codes.InternalServerError, "")
		return
	}

	cg.logger.Infof("sensor data %s recorded", stored.ID)
	cg.respond(w, codes.Created, stored.ID)
}

func (cg *CoAPGateway) respond(w mux.ResponseWriter, code codes.Code, body string) {
	err := w.SetResponse(code, message.TextPlain, bytes.NewReader([]byte(body)))
	if err != nil {
		cg.logger.Errorf("cannot set response: %v", err)
	}
}

// sensorPayload uses pointers so absent and null fields are told apart
// from zero values.
type sensorPayload struct {
	BatteryTemperature *float64 `json:"battery_temperature" cbor:"battery_temperature"`
	CurrentPosition    *string  `json:"current_position" cbor:"current_position"`
	BatteryStatus      *string  `json:"battery_status" cbor:"battery_status"`
	LightsOn           *bool    `json:"lights_on" cbor:"lights_on"`
}

// DecodeSensorData parses a CBOR or JSON telemetry payload. Missing or null
// fields are rejected.
func DecodeSensorData(format message.MediaType, data []byte) (*sensors.SensorData, error) {
	if len(data) == 0 {
		return nil, errEmptyPayload
	}

	payload := &sensorPayload{}
	var err error
	switch format {
	case message.AppCBOR:
		err = cbor.Unmarshal(data, payload)
	case message.AppJSON, message.TextPlain:
		err = json.Unmarshal(data, payload)
	default:
		return nil, fmt.Errorf("unsupported content format %v", format)
	}
	if err != nil {
		return nil, err
	}

	switch {
	case payload.BatteryTemperature == nil:
		return nil, fmt.Errorf("missing field %q", "battery_temperature")
	case payload.CurrentPosition == nil:
		return nil, fmt.Errorf("missing field %q", "current_position")
	case payload.BatteryStatus == nil:
		return nil, fmt.Errorf("missing field %q", "battery_status")
	case payload.LightsOn == nil:
		return nil, fmt.Errorf("missing field %q", "lights_on")
	}

	return &sensors.SensorData{
		BatteryTemperature: *payload.BatteryTemperature,
		CurrentPosition:    *payload.CurrentPosition,
		BatteryStatus:      *payload.BatteryStatus,
		LightsOn:           *payload.LightsOn,
	}, nil
}

// Start registers the routes and serves UDP CoAP in the background until
// Stop is called.
func (cg *CoAPGateway) Start() error {
	cg.router.Use(cg.routerMiddleware)
	if err := cg.router.Handle(SensorPath, mux.HandlerFunc(cg.handleSensor)); err != nil {
		return err
	}

	if err := RegisterViews(); err != nil {
		return err
	}

	l, err := coapNet.NewListenUDP("udp", ":"+strconv.Itoa(cg.port))
	if err != nil {
		return err
	}

	cg.server = udp.NewServer(udp.WithMux(cg.router))
	cg.logger.Infof("Starting CoAP Gateway on udp :%d", cg.port)
	go func() {
		defer l.Close()
		if err := cg.server.Serve(l); err != nil {
			cg.logger.Errorf("coap listener stopped: %v", err)
		}
	}()
	return nil
}

func (cg *CoAPGateway) Stop() {
	if cg.server != nil {
		cg.server.Stop()
	}
}
