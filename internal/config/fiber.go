package config

import (
	"os"
	"strconv"

	"github.com/gofiber/fiber/v2"
	jsoniter "github.com/json-iterator/go"
	"github.com/sirupsen/logrus"
)

// json sorts map keys, so identical reports encode to identical bytes.
var json = jsoniter.ConfigCompatibleWithStandardLibrary

func NewFiber(logger *logrus.Logger) *fiber.App {
	bodyLimitMB, err := strconv.Atoi(os.Getenv("BODY_LIMIT_MB"))
	if err != nil || bodyLimitMB <= 0 {
		bodyLimitMB = 50
	}

	app := fiber.New(
		fiber.Config{
			AppName:           "Engagement Service",
			BodyLimit:         bodyLimitMB * 1024 * 1024,
			DisableKeepalive:  false,
			StrictRouting:     true,
			CaseSensitive:     true,
			EnablePrintRoutes: os.Getenv("APP_ENV") == "development",
			JSONEncoder:       json.Marshal,
			JSONDecoder:       json.Unmarshal,
			ErrorHandler: func(c *fiber.Ctx, err error) error {
				code := fiber.StatusInternalServerError
				if e, ok := err.(*fiber.Error); ok {
					code = e.Code
				}
				logger.WithField("path", c.Path()).Warnf("Unhandled error: %v", err)
				return c.Status(code).JSON(fiber.Map{"error": err.Error()})
			},
		})

	return app
}
