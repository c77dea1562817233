package api

import (
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/reflectus-app/reflectus/pkg/internal/http/exts"
	"github.com/reflectus-app/reflectus/pkg/internal/models"
	"github.com/reflectus-app/reflectus/pkg/internal/services"
	"github.com/spf13/viper"
)

func submitResponse(c *fiber.Ctx) error {
	activityId, _ := c.ParamsInt("activityId")
	activity, err := services.GetActivityWithID(uint(activityId))
	if err != nil {
		return fiber.NewError(fiber.StatusNotFound, err.Error())
	}

	var account *models.Account
	if user, ok := c.Locals("user").(models.Account); ok {
		account = &user
	}

	// Named activities only accept members of the owning group.
	if activity.PrivacyMode == models.ActivityPrivacyNamed {
		if err := exts.EnsureAuthenticated(c); err != nil {
			return err
		}
		if member, err := services.GetMembership(*account, activity.GroupID); err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, err.Error())
		} else if member == nil {
			return fiber.NewError(fiber.StatusForbidden, "you are not a member of this group")
		}
	}

	var data struct {
		SessionID string                   `json:"session_id"`
		Answers   []services.InboundAnswer `json:"answers" validate:"required,min=1"`
	}

	if err := exts.BindAndValidate(c, &data); err != nil {
		return err
	}

	limitKey := fmt.Sprintf("submit#%s", c.IP())
	limit := viper.GetInt("ratelimit.submissions_per_minute")
	if ok, retryAfter := services.Limiter.Check(limitKey, limit, time.Minute); !ok {
		return remapServiceError(c, &services.RateLimitError{RetryAfter: retryAfter})
	}

	response, err := services.SubmitResponse(activity, account, data.SessionID, data.Answers)
	if err != nil {
		return remapServiceError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"response_id": response.ID,
	})
}

func listResponses(c *fiber.Ctx) error {
	if err := exts.EnsureAuthenticated(c); err != nil {
		return err
	}
	user := c.Locals("user").(models.Account)

	activityId, _ := c.ParamsInt("activityId")
	activity, err := services.GetActivityWithID(uint(activityId))
	if err != nil {
		return fiber.NewError(fiber.StatusNotFound, err.Error())
	}

	if _, err := services.EnsureFacilitator(user, activity.GroupID); err != nil {
		return fiber.NewError(fiber.StatusForbidden, err.Error())
	}

	responses, err := services.ListResponses(activity)
	if err != nil {
		return remapServiceError(c, err)
	}

	return c.JSON(fiber.Map{
		"responses":    responses,
		"privacy_mode": activity.PrivacyMode,
	})
}
