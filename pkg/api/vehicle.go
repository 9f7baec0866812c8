package api

import (
	"encoding/json"
	"errors"
	"strings"

	"com.aiac.relay/pkg/controller"
	"com.aiac.relay/pkg/core/store/commands"
	"com.aiac.relay/pkg/core/store/sensors"
	"com.aiac.relay/pkg/relay"
	"github.com/fxamacker/cbor/v2"
	"github.com/gofiber/fiber"
)

// Pointer fields tell a missing field apart from a zero value.
type moveRequest struct {
	Direction *string `json:"direction" cbor:"direction"`
	Speed     *int    `json:"speed" cbor:"speed"`
}

type sensorRequest struct {
	BatteryTemperature *float64 `json:"battery_temperature" cbor:"battery_temperature"`
	CurrentPosition    *string  `json:"current_position" cbor:"current_position"`
	BatteryStatus      *string  `json:"battery_status" cbor:"battery_status"`
	LightsOn           *bool    `json:"lights_on" cbor:"lights_on"`
}

var errMissingField = errors.New("field required")

func decodeBody(ctx *fiber.Ctx, v interface{}) error {
	body := []byte(ctx.Body())
	if strings.HasPrefix(ctx.Get("Content-Type"), "application/cbor") {
		return cbor.Unmarshal(body, v)
	}
	return json.Unmarshal(body, v)
}

func (as *ApiServer) move(ctx *fiber.Ctx) {
	req := &moveRequest{}
	if err := decodeBody(ctx, req); err != nil {
		fail(ctx, fiber.StatusUnprocessableEntity, err.Error())
		return
	}
	if req.Direction == nil || req.Speed == nil {
		fail(ctx, fiber.StatusUnprocessableEntity, "direction, speed: "+errMissingField.Error())
		return
	}

	command, response, err := as.recorder.Move(ctx.Context(), *req.Direction, *req.Speed)
	if err != nil {
		var perr *relay.PersistenceError
		switch {
		case errors.Is(err, relay.ErrInvalidCommand):
			fail(ctx, fiber.StatusUnprocessableEntity, err.Error())
		case errors.As(err, &perr):
			fail(ctx, fiber.StatusInternalServerError, "Erro ao registrar o comando: "+perr.Err.Error())
		case errors.Is(err, controller.ErrControllerRejected):
			fail(ctx, fiber.StatusInternalServerError, "Falha ao enviar comando para o controlador: "+err.Error())
		default:
			fail(ctx, fiber.StatusInternalServerError, "Erro de conexão com o controlador: "+err.Error())
		}
		return
	}

	ctx.JSON(fiber.Map{
		"status":              "success",
		"command":             command,
		"controller_response": response,
	})
}

func (as *ApiServer) receiveSensorData(ctx *fiber.Ctx) {
	req := &sensorRequest{}
	if err := decodeBody(ctx, req); err != nil {
		fail(ctx, fiber.StatusUnprocessableEntity, err.Error())
		return
	}

	var missing []string
	if req.BatteryTemperature == nil {
		missing = append(missing, "battery_temperature")
	}
	if req.CurrentPosition == nil {
		missing = append(missing, "current_position")
	}
	if req.BatteryStatus == nil {
		missing = append(missing, "battery_status")
	}
	if req.LightsOn == nil {
		missing = append(missing, "lights_on")
	}
	if len(missing) > 0 {
		fail(ctx, fiber.StatusUnprocessableEntity, strings.Join(missing, ", ")+": "+errMissingField.Error())
		return
	}

	stored, err := as.recorder.RecordSensorData(ctx.Context(), sensors.SensorData{
		BatteryTemperature: *req.BatteryTemperature,
		CurrentPosition:    *req.CurrentPosition,
		BatteryStatus:      *req.BatteryStatus,
		LightsOn:           *req.LightsOn,
	})
	if err != nil {
		as.logger.Errorf("record sensor data: %v", err)
		fail(ctx, fiber.StatusInternalServerError, "Erro ao registrar os dados do sensor: "+err.Error())
		return
	}

	ctx.JSON(fiber.Map{"status": "success", "sensor_data": stored})
}

func (as *ApiServer) listCommands(ctx *fiber.Ctx) {
	list, err := as.recorder.ListCommands(ctx.Context())
	if err != nil {
		fail(ctx, fiber.StatusInternalServerError, err.Error())
		return
	}

	if list == nil {
		list = make([]*commands.Command, 0)
	}

	ctx.JSON(list)
}
