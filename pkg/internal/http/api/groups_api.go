package api

import (
	"github.com/gofiber/fiber/v2"
	"github.com/reflectus-app/reflectus/pkg/internal/http/exts"
	"github.com/reflectus-app/reflectus/pkg/internal/models"
	"github.com/reflectus-app/reflectus/pkg/internal/services"
)

func createGroup(c *fiber.Ctx) error {
	if err := exts.EnsureAuthenticated(c); err != nil {
		return err
	}
	user := c.Locals("user").(models.Account)

	var data struct {
		Name        string `json:"name" validate:"required,max=128"`
		Description string `json:"description" validate:"max=1024"`
	}

	if err := exts.BindAndValidate(c, &data); err != nil {
		return err
	}

	group, err := services.NewGroup(user, data.Name, data.Description)
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}

	return c.Status(fiber.StatusCreated).JSON(group)
}

func listGroups(c *fiber.Ctx) error {
	if err := exts.EnsureAuthenticated(c); err != nil {
		return err
	}
	user := c.Locals("user").(models.Account)

	groups, err := services.ListGroups(user)
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, err.Error())
	}

	return c.JSON(groups)
}

func joinGroup(c *fiber.Ctx) error {
	if err := exts.EnsureAuthenticated(c); err != nil {
		return err
	}
	user := c.Locals("user").(models.Account)

	var data struct {
		InviteCode string `json:"invite_code" validate:"required"`
	}

	if err := exts.BindAndValidate(c, &data); err != nil {
		return err
	}

	member, err := services.JoinGroupWithCode(user, data.InviteCode)
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}

	return c.Status(fiber.StatusCreated).JSON(member)
}
