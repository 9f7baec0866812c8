package api

import (
	"context"
	"strconv"

	"com.aiac.relay/pkg/config"
	"com.aiac.relay/pkg/core/store/commands"
	"com.aiac.relay/pkg/core/store/historical"
	"com.aiac.relay/pkg/core/store/sensors"
	"com.aiac.relay/pkg/core/store/vehicle"
	"com.aiac.relay/pkg/stream"
	"github.com/apex/log"
	"github.com/gofiber/fiber"
)

// Recorder is the command/telemetry side of the relay.
type Recorder interface {
	Move(ctx context.Context, direction string, speed int) (*commands.Command, interface{}, error)
	RecordSensorData(ctx context.Context, data sensors.SensorData) (*sensors.SensorData, error)
	ListCommands(ctx context.Context) ([]*commands.Command, error)
}

// StreamSupervisor controls the camera relay.
type StreamSupervisor interface {
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
	Status() stream.Status
}

type ApiServer struct {
	recorder        Recorder
	supervisor      StreamSupervisor
	stateStore      vehicle.StateStore
	timeseriesStore historical.TimeSeriesStore
	vehicleID       string
	config          config.APIServerConfig
	app             *fiber.App
	logger          *log.Entry
}

func NewServer(
	recorder Recorder,
	supervisor StreamSupervisor,
	stateStore vehicle.StateStore,
	timeseriesStore historical.TimeSeriesStore,
	vehicleID string,
	config config.APIServerConfig,
) *ApiServer {
	as := &ApiServer{
		recorder:        recorder,
		supervisor:      supervisor,
		stateStore:      stateStore,
		timeseriesStore: timeseriesStore,
		vehicleID:       vehicleID,
		config:          config,
		logger:          log.WithField("module", "api"),
	}
	as.app = as.routes()
	return as
}

func (as *ApiServer) routes() *fiber.App {
	app := fiber.New()

	app.Use(as.requestMetrics)

	app.Get("/start-stream/", as.startStream)
	app.Get("/stop-stream/", as.stopStream)

	app.Post("/move/", as.move)
	app.Post("/sensor/", as.receiveSensorData)
	app.Get("/commands/", as.listCommands)

	app.Get("/status/", as.getVehicleStatus)
	app.Get("/sensor/history/", as.getSensorHistory)
	app.Get("/health/", as.health)

	return app
}

// App exposes the router, mainly for app.Test.
func (as *ApiServer) App() *fiber.App {
	return as.app
}

func (as *ApiServer) Start() error {
	as.logger.Infof("Starting API on :%d", as.config.Port)
	return as.app.Listen(":" + strconv.Itoa(as.config.Port))
}

func (as *ApiServer) Shutdown() error {
	return as.app.Shutdown()
}

func fail(ctx *fiber.Ctx, status int, detail string) {
	ctx.Status(status)
	ctx.JSON(fiber.Map{"status": "error", "detail": detail})
}
