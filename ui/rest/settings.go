package rest

import (
	"github.com/gofiber/fiber/v2"

	settingsApp "github.com/pressgen/pressgen/core/settings/application"
	"github.com/pressgen/pressgen/pkg/utils"
)

type Settings struct {
	Service *settingsApp.SettingsService
}

func InitRestSettings(app fiber.Router, service *settingsApp.SettingsService) Settings {
	rest := Settings{Service: service}
	app.Get("/settings", rest.Get)
	app.Post("/settings", rest.Update)
	return rest
}

type updateSettingsRequest struct {
	AIGlobalSystemPrompt string `json:"ai_global_system_prompt"`
}

func (controller *Settings) Get(c *fiber.Ctx) error {
	settings, err := controller.Service.GetDynamicSettings(c.UserContext())
	utils.PanicIfNeeded(err)

	return c.JSON(utils.ResponseData{
		Status:  200,
		Code:    "SUCCESS",
		Message: "Success fetch settings",
		Results: settings,
	})
}

func (controller *Settings) Update(c *fiber.Ctx) error {
	var request updateSettingsRequest
	err := c.BodyParser(&request)
	utils.PanicIfNeeded(err)

	err = controller.Service.SetSystemPrompt(c.UserContext(), request.AIGlobalSystemPrompt)
	utils.PanicIfNeeded(err)

	return c.JSON(utils.ResponseData{
		Status:  200,
		Code:    "SUCCESS",
		Message: "Success update settings",
	})
}
