package services

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/reflectus-app/reflectus/pkg/internal/database"
	"github.com/reflectus-app/reflectus/pkg/internal/models"
	"github.com/reflectus-app/reflectus/pkg/internal/services/qtype"
	"github.com/samber/lo"
	"github.com/spf13/viper"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// InboundAnswer is one submitted answer before validation.
type InboundAnswer struct {
	QuestionID      uint                    `json:"question_id"`
	Status          string                  `json:"status"`
	Value           any                     `json:"value"`
	FollowUpAnswers []models.FollowUpAnswer `json:"follow_up_answers"`
}

// BuildIdentityKey resolves the submitter into the key the uniqueness
// constraint is built on. Named activities key on the account; anonymous
// ones on a keyed hash so the identity never lands in the database in
// cleartext. An anonymous submission must carry a membership or a session
// id, otherwise every submitter of the activity would collapse onto one key.
func BuildIdentityKey(activity models.Activity, account *models.Account, sessionId string) (string, error) {
	if activity.PrivacyMode != models.ActivityPrivacyAnonymous {
		if account == nil {
			return "", &StateError{Reason: "this activity requires a signed in participant"}
		}
		return fmt.Sprintf("account:%d", account.ID), nil
	}

	var identity string
	switch {
	case account != nil:
		identity = fmt.Sprintf("account:%d", account.ID)
	case len(sessionId) > 0:
		identity = fmt.Sprintf("session:%s", sessionId)
	default:
		return "", &ValidationError{Reason: "anonymous submissions require a session id"}
	}

	mac := hmac.New(sha256.New, []byte(viper.GetString("security.identity_secret")))
	fmt.Fprintf(mac, "%d:%s", activity.ID, identity)
	return hex.EncodeToString(mac.Sum(nil)), nil
}

// ValidateAnswers runs the required check and the per type value contracts
// over one full submission. The first failing question aborts the whole
// submission; a question whose config fails to parse is skipped instead of
// failing it.
func ValidateAnswers(questions []models.Question, answers []InboundAnswer) error {
	byQuestion := make(map[uint]InboundAnswer, len(answers))
	known := make(map[uint]bool, len(questions))
	for _, question := range questions {
		known[question.ID] = true
	}
	for _, answer := range answers {
		if !known[answer.QuestionID] {
			return &ValidationError{Reason: fmt.Sprintf("answer references unknown question #%d", answer.QuestionID)}
		}
		if _, seen := byQuestion[answer.QuestionID]; seen {
			return &ValidationError{Reason: fmt.Sprintf("question #%d was answered twice", answer.QuestionID)}
		}
		byQuestion[answer.QuestionID] = answer
	}

	for _, question := range questions {
		answer, present := byQuestion[question.ID]
		if !present {
			if question.Required {
				return &ValidationError{Prompt: question.Prompt, Reason: "an answer is required"}
			}
			continue
		}

		switch answer.Status {
		case models.AnswerStatusDeclined:
			if answer.Value != nil {
				return &ValidationError{Prompt: question.Prompt, Reason: "a declined answer cannot carry a value"}
			}
		case models.AnswerStatusUnknown:
			if len(answer.FollowUpAnswers) < 1 || len(answer.FollowUpAnswers) > maxFollowUpQuestions {
				return &ValidationError{
					Prompt: question.Prompt,
					Reason: fmt.Sprintf("an unknown answer needs between 1 and %d follow up answers", maxFollowUpQuestions),
				}
			}
		case models.AnswerStatusAnswered:
			handler, ok := qtype.For(question.Type)
			if !ok {
				return &ValidationError{Prompt: question.Prompt, Reason: fmt.Sprintf("unknown question type %q", question.Type)}
			}
			cfg, err := handler.ParseConfig(question.Config)
			if err != nil {
				// Unusable config degrades the question instead of
				// sinking everyone else's answers.
				continue
			}
			if err := handler.Validate(cfg, answer.Value); err != nil {
				return &ValidationError{Prompt: question.Prompt, Reason: err.Error()}
			}
		default:
			return &ValidationError{Prompt: question.Prompt, Reason: fmt.Sprintf("unknown answer status %q", answer.Status)}
		}
	}

	return nil
}

// SubmitResponse runs the whole submission pipeline: window gating, the
// duplicate guard, validation and the atomic write. The unique index on
// (activity, identity key) settles submission races; a violation surfaces
// as the same duplicate error the pre-check raises.
func SubmitResponse(activity models.Activity, account *models.Account, sessionId string, answers []InboundAnswer) (models.Response, error) {
	var response models.Response

	if err := EnsureAcceptsSubmissions(activity, time.Now()); err != nil {
		return response, err
	}

	identityKey, err := BuildIdentityKey(activity, account, sessionId)
	if err != nil {
		return response, err
	}

	var existing models.Response
	if err := database.C.Where("activity_id = ? AND identity_key = ?", activity.ID, identityKey).
		First(&existing).Error; err == nil {
		return response, ErrDuplicateSubmission
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return response, err
	}

	questions := activity.Questionnaire.Questions
	if err := ValidateAnswers(questions, answers); err != nil {
		return response, err
	}

	rows := make([]models.Answer, 0, len(answers))
	var freeText []string
	byQuestion := lo.SliceToMap(questions, func(q models.Question) (uint, models.Question) { return q.ID, q })
	for _, answer := range answers {
		var value datatypes.JSON
		if answer.Value != nil {
			raw, err := jsoniter.Marshal(answer.Value)
			if err != nil {
				return response, &ValidationError{Reason: fmt.Sprintf("answer for question #%d is not serializable", answer.QuestionID)}
			}
			value = raw
		}

		if question, ok := byQuestion[answer.QuestionID]; ok && answer.Status == models.AnswerStatusAnswered {
			switch question.Type {
			case models.QuestionTypeFreeText, models.QuestionTypeSentenceCompletion:
				if text, ok := answer.Value.(string); ok {
					freeText = append(freeText, text)
				}
			}
		}

		rows = append(rows, models.Answer{
			QuestionID:      answer.QuestionID,
			Status:          answer.Status,
			Value:           value,
			FollowUpAnswers: answer.FollowUpAnswers,
		})
	}

	response = models.Response{
		ActivityID:  activity.ID,
		IdentityKey: identityKey,
		Answers:     rows,
	}
	if activity.PrivacyMode == models.ActivityPrivacyNamed && account != nil {
		response.AccountID = lo.ToPtr(account.ID)
	}
	if len(freeText) > 0 {
		response.Language = DetectLanguage(freeText...)
	}

	if err := database.C.Create(&response).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return response, ErrDuplicateSubmission
		}
		return response, err
	}

	var actor *uint
	if activity.PrivacyMode == models.ActivityPrivacyNamed && account != nil {
		actor = lo.ToPtr(account.ID)
	}
	RecordAudit("responses.submit", "activity", activity.ID, actor, map[string]any{
		"response_id": response.ID,
	})

	return response, nil
}

func CountResponses(activityId uint) (int64, error) {
	var count int64
	err := database.C.Model(&models.Response{}).
		Where("activity_id = ?", activityId).
		Count(&count).Error
	return count, err
}

// EnsurePrivacyThreshold refuses every response level read on an anonymous
// activity until the cohort is large enough. Each read path calls it on its
// own, one forgotten gate must not leak through another endpoint.
func EnsurePrivacyThreshold(activity models.Activity) error {
	if activity.PrivacyMode != models.ActivityPrivacyAnonymous {
		return nil
	}

	count, err := CountResponses(activity.ID)
	if err != nil {
		return err
	}

	min := viper.GetInt("analytics.min_anonymous_cohort")
	if int(count) < min {
		return &PrivacyGuardError{MinCount: min, CurrentCount: int(count)}
	}
	return nil
}

// ListResponses is the facilitator view over a single activity. The privacy
// gate applies before anything is loaded.
func ListResponses(activity models.Activity) ([]models.Response, error) {
	if err := EnsurePrivacyThreshold(activity); err != nil {
		return nil, err
	}

	var responses []models.Response
	err := database.C.Where("activity_id = ?", activity.ID).
		Preload("Answers").
		Order("created_at ASC").
		Find(&responses).Error
	return responses, err
}
