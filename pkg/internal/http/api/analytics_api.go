package api

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/reflectus-app/reflectus/pkg/internal/http/exts"
	"github.com/reflectus-app/reflectus/pkg/internal/models"
	"github.com/reflectus-app/reflectus/pkg/internal/services"
)

func getAnalytics(c *fiber.Ctx) error {
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

	from, err := parseDateQuery(c, "from", false)
	if err != nil {
		return err
	}
	to, err := parseDateQuery(c, "to", true)
	if err != nil {
		return err
	}

	if c.QueryBool("refresh") && from == nil && to == nil {
		summary, err := services.RecomputeActivityAnalytics(activity)
		if err != nil {
			return remapServiceError(c, err)
		}
		return c.JSON(summary)
	}

	summary, err := services.GetActivityAnalytics(activity, from, to)
	if err != nil {
		return remapServiceError(c, err)
	}

	return c.JSON(summary)
}

// parseDateQuery reads an ISO calendar date; the end bound is stretched to
// the last instant of its day so both bounds stay inclusive.
func parseDateQuery(c *fiber.Ctx, name string, endOfDay bool) (*time.Time, error) {
	raw := c.Query(name)
	if len(raw) == 0 {
		return nil, nil
	}

	parsed, err := time.Parse("2006-01-02", raw)
	if err != nil {
		return nil, fiber.NewError(fiber.StatusBadRequest, "dates must look like 2006-01-02")
	}

	if endOfDay {
		parsed = parsed.Add(24*time.Hour - time.Nanosecond)
	}
	return &parsed, nil
}
