package rest

import (
	"github.com/gofiber/fiber/v2"

	"github.com/pressgen/pressgen/domains/health"
	"github.com/pressgen/pressgen/pkg/utils"
)

type Health struct {
	Service health.IHealthUsecase
}

func InitRestHealth(app fiber.Router, service health.IHealthUsecase) Health {
	rest := Health{Service: service}
	app.Get("/health", rest.Status)
	app.Post("/health/check", rest.Check)
	return rest
}

// Status returns the last known state of every collaborator.
func (controller *Health) Status(c *fiber.Ctx) error {
	records, err := controller.Service.GetStatus(c.UserContext())
	utils.PanicIfNeeded(err)

	return c.JSON(utils.ResponseData{
		Status:  200,
		Code:    "SUCCESS",
		Message: "Success fetch health status",
		Results: records,
	})
}

// Check runs every collaborator check right now.
func (controller *Health) Check(c *fiber.Ctx) error {
	records, err := controller.Service.CheckAll(c.UserContext())
	utils.PanicIfNeeded(err)

	return c.JSON(utils.ResponseData{
		Status:  200,
		Code:    "SUCCESS",
		Message: "Success run health checks",
		Results: records,
	})
}
