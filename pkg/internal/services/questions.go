package services

import (
	"fmt"

	"github.com/reflectus-app/reflectus/pkg/internal/database"
	"github.com/reflectus-app/reflectus/pkg/internal/models"
	"github.com/reflectus-app/reflectus/pkg/internal/services/qtype"
	"github.com/rs/zerolog/log"
)

const maxFollowUpQuestions = 5

// CheckQuestionConfig runs the question's raw config through the type
// registry. A non-nil warning means the question will be skipped by
// validation and degraded in analytics, it never blocks the write.
func CheckQuestionConfig(question models.Question) error {
	_, err := qtype.ParseConfig(question.Type, question.Config)
	return err
}

func NewQuestion(questionnaire models.Questionnaire, question models.Question) (models.Question, error) {
	if _, ok := qtype.For(question.Type); !ok {
		return question, fmt.Errorf("unknown question type %q", question.Type)
	}
	if len(question.FollowUp) > maxFollowUpQuestions {
		return question, fmt.Errorf("a question may carry at most %d follow up questions", maxFollowUpQuestions)
	}

	question.QuestionnaireID = questionnaire.ID
	if question.Order == 0 {
		var count int64
		database.C.Model(&models.Question{}).
			Where("questionnaire_id = ?", questionnaire.ID).
			Count(&count)
		question.Order = int(count) + 1
	}

	if err := CheckQuestionConfig(question); err != nil {
		log.Warn().Err(err).Str("prompt", question.Prompt).Msg("Question saved with a malformed config.")
	}

	err := database.C.Create(&question).Error
	return question, err
}

func GetQuestionWithID(id uint) (models.Question, error) {
	var question models.Question
	if err := database.C.Where("id = ?", id).First(&question).Error; err != nil {
		return question, err
	}
	return question, nil
}

func ListQuestions(questionnaireId uint) ([]models.Question, error) {
	var questions []models.Question
	err := database.C.Where("questionnaire_id = ?", questionnaireId).
		Order(`"order" ASC`).
		Find(&questions).Error
	return questions, err
}

func UpdateQuestion(question models.Question) (models.Question, error) {
	if len(question.FollowUp) > maxFollowUpQuestions {
		return question, fmt.Errorf("a question may carry at most %d follow up questions", maxFollowUpQuestions)
	}
	if err := CheckQuestionConfig(question); err != nil {
		log.Warn().Err(err).Str("prompt", question.Prompt).Msg("Question saved with a malformed config.")
	}

	err := database.C.Save(&question).Error
	return question, err
}

func DeleteQuestion(question models.Question) error {
	return database.C.Delete(&question).Error
}
