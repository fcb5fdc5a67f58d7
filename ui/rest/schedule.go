package rest

import (
	"github.com/gofiber/fiber/v2"

	domainSchedule "github.com/pressgen/pressgen/domains/schedule"
	"github.com/pressgen/pressgen/pkg/utils"
)

type Schedule struct {
	Service domainSchedule.IScheduleUsecase
}

func InitRestSchedule(app fiber.Router, service domainSchedule.IScheduleUsecase) Schedule {
	rest := Schedule{Service: service}
	app.Post("/schedules", rest.Save)
	app.Get("/schedules", rest.List)
	app.Delete("/schedules/:id", rest.Delete)
	app.Delete("/schedules", rest.Clear)
	app.Post("/schedules/:id/run", rest.RunNow)
	return rest
}

func (controller *Schedule) Save(c *fiber.Ctx) error {
	var request domainSchedule.SaveScheduleRequest
	err := c.BodyParser(&request)
	utils.PanicIfNeeded(err)

	sched, err := controller.Service.SaveSchedule(c.UserContext(), request)
	utils.PanicIfNeeded(err)

	return c.JSON(utils.ResponseData{
		Status:  200,
		Code:    "SUCCESS",
		Message: "Success save schedule",
		Results: sched,
	})
}

func (controller *Schedule) List(c *fiber.Ctx) error {
	schedules, err := controller.Service.ListSchedules(c.UserContext())
	utils.PanicIfNeeded(err)

	return c.JSON(utils.ResponseData{
		Status:  200,
		Code:    "SUCCESS",
		Message: "Success fetch schedules",
		Results: schedules,
	})
}

func (controller *Schedule) Delete(c *fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return c.Status(400).JSON(utils.ResponseData{
			Status:  400,
			Code:    "BAD_REQUEST",
			Message: "id is required",
		})
	}

	err := controller.Service.DeleteSchedule(c.UserContext(), id)
	utils.PanicIfNeeded(err)

	return c.JSON(utils.ResponseData{
		Status:  200,
		Code:    "SUCCESS",
		Message: "Success delete schedule",
	})
}

func (controller *Schedule) Clear(c *fiber.Ctx) error {
	err := controller.Service.ClearSchedules(c.UserContext())
	utils.PanicIfNeeded(err)

	return c.JSON(utils.ResponseData{
		Status:  200,
		Code:    "SUCCESS",
		Message: "Success clear schedules",
	})
}

func (controller *Schedule) RunNow(c *fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return c.Status(400).JSON(utils.ResponseData{
			Status:  400,
			Code:    "BAD_REQUEST",
			Message: "id is required",
		})
	}

	err := controller.Service.RunScheduleNow(c.UserContext(), id)
	utils.PanicIfNeeded(err)

	return c.JSON(utils.ResponseData{
		Status:  200,
		Code:    "SUCCESS",
		Message: "Schedule run started",
	})
}
