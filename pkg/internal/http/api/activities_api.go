package api

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/reflectus-app/reflectus/pkg/internal/http/exts"
	"github.com/reflectus-app/reflectus/pkg/internal/models"
	"github.com/reflectus-app/reflectus/pkg/internal/services"
	"github.com/samber/lo"
)

func createActivity(c *fiber.Ctx) error {
	if err := exts.EnsureAuthenticated(c); err != nil {
		return err
	}
	user := c.Locals("user").(models.Account)

	var data struct {
		Group       uint       `json:"group" validate:"required"`
		Title       string     `json:"title" validate:"required,max=256"`
		Description string     `json:"description" validate:"max=4096"`
		PrivacyMode string     `json:"privacy_mode" validate:"omitempty,oneof=named anonymous"`
		OpensAt     *time.Time `json:"opens_at"`
		ClosesAt    *time.Time `json:"closes_at"`
	}

	if err := exts.BindAndValidate(c, &data); err != nil {
		return err
	}

	member, err := services.EnsureFacilitator(user, data.Group)
	if err != nil {
		return fiber.NewError(fiber.StatusForbidden, err.Error())
	}

	activity := models.Activity{
		Title:       data.Title,
		Description: data.Description,
		PrivacyMode: lo.Ternary(len(data.PrivacyMode) > 0, data.PrivacyMode, models.ActivityPrivacyNamed),
		OpensAt:     data.OpensAt,
		ClosesAt:    data.ClosesAt,
	}

	if activity, err = services.NewActivity(*member, activity); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}

	services.RecordAudit("activities.new", "activity", activity.ID, lo.ToPtr(user.ID), map[string]any{
		"title": activity.Title,
	})

	return c.Status(fiber.StatusCreated).JSON(activity)
}

func listActivities(c *fiber.Ctx) error {
	if err := exts.EnsureAuthenticated(c); err != nil {
		return err
	}
	user := c.Locals("user").(models.Account)

	groupId := uint(c.QueryInt("group"))
	member, err := services.GetMembership(user, groupId)
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, err.Error())
	} else if member == nil {
		return fiber.NewError(fiber.StatusForbidden, "you are not a member of this group")
	}

	activities, err := services.ListActivities(groupId)
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, err.Error())
	}

	return c.JSON(activities)
}

func getActivity(c *fiber.Ctx) error {
	if err := exts.EnsureAuthenticated(c); err != nil {
		return err
	}
	user := c.Locals("user").(models.Account)

	activityId, _ := c.ParamsInt("activityId")
	activity, err := services.GetActivityWithID(uint(activityId))
	if err != nil {
		return fiber.NewError(fiber.StatusNotFound, err.Error())
	}

	member, err := services.GetMembership(user, activity.GroupID)
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, err.Error())
	} else if member == nil {
		return fiber.NewError(fiber.StatusForbidden, "you are not a member of this group")
	}

	if member.Role == models.MemberRoleFacilitator {
		participants, _ := services.CountParticipants(activity.GroupID)
		responses, _ := services.CountResponses(activity.ID)
		rate := float64(0)
		if participants > 0 {
			rate = min(1, float64(responses)/float64(participants))
		}
		activity.Metric = &models.ActivityMetric{
			TotalParticipants: int(participants),
			TotalResponses:    int(responses),
			CompletionRate:    rate,
		}
	}

	return c.JSON(activity)
}

// getSharedActivity is the participant entry point for anonymous links; no
// session is required, but only published activities resolve.
func getSharedActivity(c *fiber.Ctx) error {
	activity, err := services.GetActivityWithSlug(c.Params("slug"))
	if err != nil {
		return fiber.NewError(fiber.StatusNotFound, err.Error())
	}

	if activity.Status != models.ActivityStatusPublished {
		return fiber.NewError(fiber.StatusForbidden, "activity is not accepting responses")
	}

	return c.JSON(activity)
}

func updateActivity(c *fiber.Ctx) error {
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

	var data struct {
		Title       string     `json:"title" validate:"required,max=256"`
		Description string     `json:"description" validate:"max=4096"`
		OpensAt     *time.Time `json:"opens_at"`
		ClosesAt    *time.Time `json:"closes_at"`
	}

	if err := exts.BindAndValidate(c, &data); err != nil {
		return err
	}

	activity.Title = data.Title
	activity.Description = data.Description
	activity.OpensAt = data.OpensAt
	activity.ClosesAt = data.ClosesAt

	if activity, err = services.UpdateActivity(activity); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}

	return c.JSON(activity)
}

func deleteActivity(c *fiber.Ctx) error {
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

	if err := services.DeleteActivity(activity); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}

	services.RecordAudit("activities.delete", "activity", activity.ID, lo.ToPtr(user.ID), nil)

	return c.JSON(activity)
}

func publishActivity(c *fiber.Ctx) error {
	return transitionActivity(c, services.PublishActivity, "activities.publish")
}

func closeActivity(c *fiber.Ctx) error {
	return transitionActivity(c, services.CloseActivity, "activities.close")
}

func transitionActivity(c *fiber.Ctx, transition func(models.Activity) (models.Activity, error), action string) error {
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

	if activity, err = transition(activity); err != nil {
		return remapServiceError(c, err)
	}

	services.RecordAudit(action, "activity", activity.ID, lo.ToPtr(user.ID), nil)

	return c.JSON(activity)
}
