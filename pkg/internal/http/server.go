package http

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	jsoniter "github.com/json-iterator/go"
	pkg "github.com/reflectus-app/reflectus/pkg/internal"
	"github.com/reflectus-app/reflectus/pkg/internal/http/api"
	"github.com/reflectus-app/reflectus/pkg/internal/services"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

type App struct {
	app *fiber.App
}

func NewServer() *App {
	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
		EnableIPValidation:    true,
		ServerHeader:          "Reflectus",
		AppName:               "Reflectus v" + pkg.AppVersion,
		ProxyHeader:           fiber.HeaderXForwardedFor,
		JSONEncoder:           jsoniter.ConfigCompatibleWithStandardLibrary.Marshal,
		JSONDecoder:           jsoniter.ConfigCompatibleWithStandardLibrary.Unmarshal,
		BodyLimit:             2 * 1024 * 1024,
	})

	app.Use(sessionMiddleware)

	api.MapAPIs(app, "/api")

	return &App{app}
}

// sessionMiddleware resolves the bearer token into an account and leaves it
// in the request locals. Endpoints decide on their own whether a session is
// required.
func sessionMiddleware(c *fiber.Ctx) error {
	raw := c.Get(fiber.HeaderAuthorization)
	if token, found := strings.CutPrefix(raw, "Bearer "); found && len(token) > 0 {
		if account, err := services.VerifySessionToken(token); err == nil {
			c.Locals("user", account)
		}
	}

	return c.Next()
}

func (v *App) Listen() {
	if err := v.app.Listen(viper.GetString("bind")); err != nil {
		log.Fatal().Err(err).Msg("An error occurred when starting http server.")
	}
}
