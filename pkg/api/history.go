package api

import (
	"strconv"
	"time"

	"com.aiac.relay/pkg/relay"
	"com.aiac.relay/pkg/stream"
	"github.com/gofiber/fiber"
)

const defaultHistoryHours = 24

func (as *ApiServer) getSensorHistory(ctx *fiber.Ctx) {
	hours := defaultHistoryHours
	if q := ctx.Query("hours"); q != "" {
		n, err := strconv.Atoi(q)
		if err != nil || n <= 0 {
			fail(ctx, fiber.StatusUnprocessableEntity, "hours must be a positive integer")
			return
		}
		hours = n
	}

	end := time.Now()
	start := end.Add(time.Duration(-hours) * time.Hour)

	points, err := as.timeseriesStore.GetDataPointsInRange(
		ctx.Context(),
		relay.KindSensor,
		as.vehicleID,
		start,
		end,
	)

	if err != nil {
		fail(ctx, fiber.StatusInternalServerError, err.Error())
		return
	}

	ctx.JSON(points)
}

func (as *ApiServer) getVehicleStatus(ctx *fiber.Ctx) {
	state, err := as.stateStore.GetState(ctx.Context(), as.vehicleID)
	if err != nil {
		fail(ctx, fiber.StatusInternalServerError, err.Error())
		return
	}

	if state == nil {
		fail(ctx, fiber.StatusNotFound, "no telemetry received yet")
		return
	}

	ctx.JSON(state)
}

func (as *ApiServer) health(ctx *fiber.Ctx) {
	status := as.supervisor.Status()
	resp := fiber.Map{"status": "ok", "stream": status.State.String()}
	if status.State == stream.Streaming {
		resp["viewer_pid"] = status.ViewerPID
		resp["started_at"] = status.StartedAt
	}
	ctx.JSON(resp)
}
