package api

import (
	"github.com/gofiber/fiber/v2"
	"github.com/reflectus-app/reflectus/pkg/internal/http/exts"
	"github.com/reflectus-app/reflectus/pkg/internal/models"
	"github.com/reflectus-app/reflectus/pkg/internal/services"
	"gorm.io/datatypes"
)

type questionPayload struct {
	Prompt     string                    `json:"prompt" validate:"required,max=1024"`
	HelperText string                    `json:"helper_text" validate:"max=1024"`
	Type       string                    `json:"type" validate:"required"`
	Required   bool                      `json:"required"`
	Order      int                       `json:"order"`
	Config     map[string]any            `json:"config"`
	FollowUp   []models.FollowUpQuestion `json:"follow_up" validate:"max=5,dive"`
}

// activityQuestionnaire guards against activity rows that predate the
// automatic questionnaire creation.
func activityQuestionnaire(activity models.Activity) (models.Questionnaire, error) {
	if activity.Questionnaire == nil {
		return models.Questionnaire{}, fiber.NewError(fiber.StatusNotFound, "activity has no questionnaire")
	}
	return *activity.Questionnaire, nil
}

func loadFacilitatedActivity(c *fiber.Ctx) (models.Activity, error) {
	var activity models.Activity
	if err := exts.EnsureAuthenticated(c); err != nil {
		return activity, err
	}
	user := c.Locals("user").(models.Account)

	activityId, _ := c.ParamsInt("activityId")
	activity, err := services.GetActivityWithID(uint(activityId))
	if err != nil {
		return activity, fiber.NewError(fiber.StatusNotFound, err.Error())
	}

	if _, err := services.EnsureFacilitator(user, activity.GroupID); err != nil {
		return activity, fiber.NewError(fiber.StatusForbidden, err.Error())
	}

	return activity, nil
}

func listQuestions(c *fiber.Ctx) error {
	if err := exts.EnsureAuthenticated(c); err != nil {
		return err
	}
	user := c.Locals("user").(models.Account)

	activityId, _ := c.ParamsInt("activityId")
	activity, err := services.GetActivityWithID(uint(activityId))
	if err != nil {
		return fiber.NewError(fiber.StatusNotFound, err.Error())
	}

	if member, err := services.GetMembership(user, activity.GroupID); err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, err.Error())
	} else if member == nil {
		return fiber.NewError(fiber.StatusForbidden, "you are not a member of this group")
	}

	questionnaire, err := activityQuestionnaire(activity)
	if err != nil {
		return err
	}

	questions, err := services.ListQuestions(questionnaire.ID)
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, err.Error())
	}

	return c.JSON(questions)
}

func createQuestion(c *fiber.Ctx) error {
	activity, err := loadFacilitatedActivity(c)
	if err != nil {
		return err
	}

	var data questionPayload
	if err := exts.BindAndValidate(c, &data); err != nil {
		return err
	}

	questionnaire, err := activityQuestionnaire(activity)
	if err != nil {
		return err
	}

	question := models.Question{
		Prompt:     data.Prompt,
		HelperText: data.HelperText,
		Type:       data.Type,
		Required:   data.Required,
		Order:      data.Order,
		Config:     datatypes.JSONMap(data.Config),
		FollowUp:   data.FollowUp,
	}

	if question, err = services.NewQuestion(questionnaire, question); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}

	return c.Status(fiber.StatusCreated).JSON(questionWithWarning(question))
}

func updateQuestion(c *fiber.Ctx) error {
	activity, err := loadFacilitatedActivity(c)
	if err != nil {
		return err
	}

	questionnaire, err := activityQuestionnaire(activity)
	if err != nil {
		return err
	}

	questionId, _ := c.ParamsInt("questionId")
	question, err := services.GetQuestionWithID(uint(questionId))
	if err != nil {
		return fiber.NewError(fiber.StatusNotFound, err.Error())
	} else if question.QuestionnaireID != questionnaire.ID {
		return fiber.NewError(fiber.StatusNotFound, "question does not belong to this activity")
	}

	var data questionPayload
	if err := exts.BindAndValidate(c, &data); err != nil {
		return err
	}

	question.Prompt = data.Prompt
	question.HelperText = data.HelperText
	question.Type = data.Type
	question.Required = data.Required
	if data.Order > 0 {
		question.Order = data.Order
	}
	question.Config = datatypes.JSONMap(data.Config)
	question.FollowUp = data.FollowUp

	if question, err = services.UpdateQuestion(question); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}

	return c.JSON(questionWithWarning(question))
}

func deleteQuestion(c *fiber.Ctx) error {
	activity, err := loadFacilitatedActivity(c)
	if err != nil {
		return err
	}

	questionnaire, err := activityQuestionnaire(activity)
	if err != nil {
		return err
	}

	questionId, _ := c.ParamsInt("questionId")
	question, err := services.GetQuestionWithID(uint(questionId))
	if err != nil {
		return fiber.NewError(fiber.StatusNotFound, err.Error())
	} else if question.QuestionnaireID != questionnaire.ID {
		return fiber.NewError(fiber.StatusNotFound, "question does not belong to this activity")
	}

	if err := services.DeleteQuestion(question); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}

	return c.JSON(question)
}

// questionWithWarning annotates the saved question with its config check
// result, so the authoring UI can flag a question that will degrade.
func questionWithWarning(question models.Question) fiber.Map {
	out := fiber.Map{"question": question}
	if err := services.CheckQuestionConfig(question); err != nil {
		out["config_warning"] = err.Error()
	}
	return out
}
