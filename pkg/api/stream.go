package api

import (
	"github.com/gofiber/fiber"
)

func (as *ApiServer) startStream(ctx *fiber.Ctx) {
	if err := as.supervisor.Start(ctx.Context()); err != nil {
		as.logger.Errorf("start stream: %v", err)
		fail(ctx, fiber.StatusInternalServerError, "Erro ao iniciar a transmissão: "+err.Error())
		return
	}

	ctx.JSON(fiber.Map{"status": "success", "message": "Transmissão iniciada"})
}

func (as *ApiServer) stopStream(ctx *fiber.Ctx) {
	if err := as.supervisor.Stop(ctx.Context()); err != nil {
		as.logger.Errorf("stop stream: %v", err)
		fail(ctx, fiber.StatusInternalServerError, "Erro ao interromper a transmissão")
		return
	}

	ctx.JSON(fiber.Map{"status": "success", "message": "Transmissão interrompida"})
}
