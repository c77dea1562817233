package api

import (
	"github.com/gofiber/fiber/v2"
	"github.com/reflectus-app/reflectus/pkg/internal/http/exts"
	"github.com/reflectus-app/reflectus/pkg/internal/models"
	"github.com/reflectus-app/reflectus/pkg/internal/services"
)

func register(c *fiber.Ctx) error {
	var data struct {
		Name     string `json:"name" validate:"required,min=3,max=32"`
		Nick     string `json:"nick" validate:"max=64"`
		Email    string `json:"email" validate:"required,email"`
		Password string `json:"password" validate:"required,min=8,max=72"`
	}

	if err := exts.BindAndValidate(c, &data); err != nil {
		return err
	}

	account, err := services.NewAccount(data.Name, data.Nick, data.Email, data.Password)
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}

	return c.Status(fiber.StatusCreated).JSON(account)
}

func login(c *fiber.Ctx) error {
	var data struct {
		Name     string `json:"name" validate:"required"`
		Password string `json:"password" validate:"required"`
	}

	if err := exts.BindAndValidate(c, &data); err != nil {
		return err
	}

	account, token, err := services.AuthenticateAccount(data.Name, data.Password)
	if err != nil {
		return fiber.NewError(fiber.StatusUnauthorized, err.Error())
	}

	return c.JSON(fiber.Map{
		"token":   token,
		"account": account,
	})
}

func getUserinfo(c *fiber.Ctx) error {
	if err := exts.EnsureAuthenticated(c); err != nil {
		return err
	}
	user := c.Locals("user").(models.Account)

	return c.JSON(user)
}
