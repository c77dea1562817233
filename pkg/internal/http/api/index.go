package api

import (
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v2"
	"github.com/reflectus-app/reflectus/pkg/internal/services"
)

func MapAPIs(app *fiber.App, baseURL string) {
	api := app.Group(baseURL).Name("API")
	{
		auth := api.Group("/auth").Name("Auth API")
		{
			auth.Post("/register", register)
			auth.Post("/login", login)
		}

		api.Get("/users/me", getUserinfo)

		groups := api.Group("/groups").Name("Groups API")
		{
			groups.Get("/", listGroups)
			groups.Post("/", createGroup)
			groups.Post("/join", joinGroup)
		}

		activities := api.Group("/activities").Name("Activities API")
		{
			activities.Get("/", listActivities)
			activities.Post("/", createActivity)
			activities.Get("/shared/:slug", getSharedActivity)
			activities.Get("/:activityId", getActivity)
			activities.Put("/:activityId", updateActivity)
			activities.Delete("/:activityId", deleteActivity)
			activities.Post("/:activityId/publish", publishActivity)
			activities.Post("/:activityId/close", closeActivity)

			activities.Get("/:activityId/questions", listQuestions)
			activities.Post("/:activityId/questions", createQuestion)
			activities.Put("/:activityId/questions/:questionId", updateQuestion)
			activities.Delete("/:activityId/questions/:questionId", deleteQuestion)

			activities.Post("/:activityId/responses", submitResponse)
			activities.Get("/:activityId/responses", listResponses)

			activities.Get("/:activityId/analytics", getAnalytics)
			activities.Get("/:activityId/export", exportResponses)
		}
	}
}

// remapServiceError translates the service error taxonomy onto HTTP. The
// privacy guard carries its counts in the body so clients can render the
// threshold instead of a bare refusal.
func remapServiceError(c *fiber.Ctx, err error) error {
	var (
		validationErr *services.ValidationError
		stateErr      *services.StateError
		privacyErr    *services.PrivacyGuardError
		rateErr       *services.RateLimitError
	)

	switch {
	case errors.Is(err, services.ErrDuplicateSubmission):
		return fiber.NewError(fiber.StatusConflict, err.Error())
	case errors.As(err, &validationErr):
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	case errors.As(err, &stateErr):
		return fiber.NewError(fiber.StatusForbidden, err.Error())
	case errors.As(err, &privacyErr):
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"error":         "Not enough responses to show results for an anonymous activity",
			"min_count":     privacyErr.MinCount,
			"current_count": privacyErr.CurrentCount,
		})
	case errors.As(err, &rateErr):
		c.Set(fiber.HeaderRetryAfter, fmt.Sprintf("%d", int(rateErr.RetryAfter.Seconds())+1))
		return fiber.NewError(fiber.StatusTooManyRequests, err.Error())
	default:
		return fiber.NewError(fiber.StatusInternalServerError, err.Error())
	}
}
