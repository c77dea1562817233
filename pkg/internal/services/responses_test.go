package services

import (
	"testing"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/reflectus-app/reflectus/pkg/internal/database"
	"github.com/reflectus-app/reflectus/pkg/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSubmitResponseDuplicateGuard(t *testing.T) {
	useTestDatabase(t)
	activity, group := seedActivity(t, models.ActivityPrivacyNamed)
	participant := seedParticipant(t, group, "pupil")
	scale := questionByPrompt(t, activity, "How was your week?")

	answers := []InboundAnswer{
		{QuestionID: scale.ID, Status: models.AnswerStatusAnswered, Value: float64(4)},
	}

	response, err := SubmitResponse(activity, &participant, "", answers)
	require.NoError(t, err)
	assert.NotZero(t, response.ID)

	_, err = SubmitResponse(activity, &participant, "", answers)
	assert.ErrorIs(t, err, ErrDuplicateSubmission)

	count, err := CountResponses(activity.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 1, count, "the second attempt must not leave a row behind")
}

func TestSubmitResponseRequiredQuestionMissing(t *testing.T) {
	useTestDatabase(t)
	activity, group := seedActivity(t, models.ActivityPrivacyNamed)
	participant := seedParticipant(t, group, "pupil")
	text := questionByPrompt(t, activity, "Anything else to share?")

	_, err := SubmitResponse(activity, &participant, "", []InboundAnswer{
		{QuestionID: text.ID, Status: models.AnswerStatusAnswered, Value: "all good"},
	})

	var validationErr *ValidationError
	require.ErrorAs(t, err, &validationErr)
	assert.Equal(t, "How was your week?", validationErr.Prompt)
}

func TestSubmitResponseValueOutOfRange(t *testing.T) {
	useTestDatabase(t)
	activity, group := seedActivity(t, models.ActivityPrivacyNamed)
	participant := seedParticipant(t, group, "pupil")
	scale := questionByPrompt(t, activity, "How was your week?")

	_, err := SubmitResponse(activity, &participant, "", []InboundAnswer{
		{QuestionID: scale.ID, Status: models.AnswerStatusAnswered, Value: float64(6)},
	})

	var validationErr *ValidationError
	require.ErrorAs(t, err, &validationErr)
	assert.Contains(t, validationErr.Reason, "out of range")

	count, _ := CountResponses(activity.ID)
	assert.Zero(t, count, "validation is all or nothing")
}

func TestSubmitResponseDeclinedCannotCarryValue(t *testing.T) {
	useTestDatabase(t)
	activity, group := seedActivity(t, models.ActivityPrivacyNamed)
	participant := seedParticipant(t, group, "pupil")
	scale := questionByPrompt(t, activity, "How was your week?")

	_, err := SubmitResponse(activity, &participant, "", []InboundAnswer{
		{QuestionID: scale.ID, Status: models.AnswerStatusDeclined, Value: float64(3)},
	})

	var validationErr *ValidationError
	assert.ErrorAs(t, err, &validationErr)
}

func TestSubmitResponseUnknownNeedsFollowUps(t *testing.T) {
	useTestDatabase(t)
	activity, group := seedActivity(t, models.ActivityPrivacyNamed)
	participant := seedParticipant(t, group, "pupil")
	scale := questionByPrompt(t, activity, "How was your week?")

	_, err := SubmitResponse(activity, &participant, "", []InboundAnswer{
		{QuestionID: scale.ID, Status: models.AnswerStatusUnknown},
	})
	var validationErr *ValidationError
	assert.ErrorAs(t, err, &validationErr, "unknown without follow ups is rejected")

	tooMany := make([]models.FollowUpAnswer, 6)
	_, err = SubmitResponse(activity, &participant, "", []InboundAnswer{
		{QuestionID: scale.ID, Status: models.AnswerStatusUnknown, FollowUpAnswers: tooMany},
	})
	assert.ErrorAs(t, err, &validationErr, "more than five follow ups is rejected")
}

func TestSubmitResponseUnknownRoundTrip(t *testing.T) {
	useTestDatabase(t)
	activity, group := seedActivity(t, models.ActivityPrivacyNamed)
	participant := seedParticipant(t, group, "pupil")
	scale := questionByPrompt(t, activity, "How was your week?")

	followUps := []models.FollowUpAnswer{
		{ID: "f1", Prompt: "What made it hard to say?", Value: "Too much going on"},
		{ID: "f2", Prompt: "Who could you ask for help?", Value: "My mentor"},
	}

	_, err := SubmitResponse(activity, &participant, "", []InboundAnswer{
		{QuestionID: scale.ID, Status: models.AnswerStatusUnknown, FollowUpAnswers: followUps},
	})
	require.NoError(t, err)

	responses, err := ListResponses(activity)
	require.NoError(t, err)
	require.Len(t, responses, 1)
	require.Len(t, responses[0].Answers, 1)

	answer := responses[0].Answers[0]
	assert.Equal(t, models.AnswerStatusUnknown, answer.Status)
	require.Len(t, answer.FollowUpAnswers, 2)
	assert.Equal(t, "What made it hard to say?", answer.FollowUpAnswers[0].Prompt)
	assert.Equal(t, "Too much going on", answer.FollowUpAnswers[0].Value)
	assert.Equal(t, "My mentor", answer.FollowUpAnswers[1].Value)
}

func TestSubmitResponseScalarValueRoundTrip(t *testing.T) {
	useTestDatabase(t)
	activity, group := seedActivity(t, models.ActivityPrivacyNamed)
	participant := seedParticipant(t, group, "pupil")
	scale := questionByPrompt(t, activity, "How was your week?")

	_, err := SubmitResponse(activity, &participant, "", []InboundAnswer{
		{QuestionID: scale.ID, Status: models.AnswerStatusAnswered, Value: float64(4)},
	})
	require.NoError(t, err)

	// A bare JSON number must come back out of the value column intact
	responses, err := ListResponses(activity)
	require.NoError(t, err)
	require.Len(t, responses, 1)
	require.Len(t, responses[0].Answers, 1)

	var value float64
	require.NoError(t, jsoniter.Unmarshal(responses[0].Answers[0].Value, &value))
	assert.Equal(t, float64(4), value)
}

func TestSubmitResponseLifecycleAndWindowGate(t *testing.T) {
	useTestDatabase(t)
	activity, group := seedActivity(t, models.ActivityPrivacyNamed)
	participant := seedParticipant(t, group, "pupil")
	scale := questionByPrompt(t, activity, "How was your week?")
	answers := []InboundAnswer{
		{QuestionID: scale.ID, Status: models.AnswerStatusAnswered, Value: float64(2)},
	}

	var stateErr *StateError

	closed, err := CloseActivity(activity)
	require.NoError(t, err)
	_, err = SubmitResponse(closed, &participant, "", answers)
	assert.ErrorAs(t, err, &stateErr, "closed activities reject submissions")

	require.NoError(t, database.C.Model(&models.Activity{}).
		Where("id = ?", activity.ID).
		Updates(map[string]any{
			"status":    models.ActivityStatusPublished,
			"closes_at": time.Now().Add(-time.Hour),
		}).Error)
	expired, err := GetActivityWithID(activity.ID)
	require.NoError(t, err)
	_, err = SubmitResponse(expired, &participant, "", answers)
	assert.ErrorAs(t, err, &stateErr, "past the close bound rejects submissions")
}

func TestSubmitResponseAnonymousIdentities(t *testing.T) {
	useTestDatabase(t)
	activity, _ := seedActivity(t, models.ActivityPrivacyAnonymous)
	scale := questionByPrompt(t, activity, "How was your week?")
	answers := []InboundAnswer{
		{QuestionID: scale.ID, Status: models.AnswerStatusAnswered, Value: float64(3)},
	}

	_, err := SubmitResponse(activity, nil, "session-aaa", answers)
	require.NoError(t, err)
	_, err = SubmitResponse(activity, nil, "session-bbb", answers)
	require.NoError(t, err)

	_, err = SubmitResponse(activity, nil, "session-aaa", answers)
	assert.ErrorIs(t, err, ErrDuplicateSubmission)

	_, err = SubmitResponse(activity, nil, "", answers)
	var validationErr *ValidationError
	assert.ErrorAs(t, err, &validationErr, "anonymous submitters must carry a session id")

	var stored []models.Response
	require.NoError(t, database.C.Where("activity_id = ?", activity.ID).Find(&stored).Error)
	require.Len(t, stored, 2)
	for _, response := range stored {
		assert.Nil(t, response.AccountID, "anonymous responses never keep the account")
		assert.NotContains(t, response.IdentityKey, "session", "the identity never lands in cleartext")
	}
}

func TestBuildIdentityKeyIsDeterministicPerActivity(t *testing.T) {
	first := models.Activity{BaseModel: models.BaseModel{ID: 1}, PrivacyMode: models.ActivityPrivacyAnonymous}
	second := models.Activity{BaseModel: models.BaseModel{ID: 2}, PrivacyMode: models.ActivityPrivacyAnonymous}

	keyA, err := BuildIdentityKey(first, nil, "session-xyz")
	require.NoError(t, err)
	keyB, err := BuildIdentityKey(first, nil, "session-xyz")
	require.NoError(t, err)
	keyC, err := BuildIdentityKey(second, nil, "session-xyz")
	require.NoError(t, err)

	assert.Equal(t, keyA, keyB)
	assert.NotEqual(t, keyA, keyC, "the same person may answer different activities")

	named := models.Activity{BaseModel: models.BaseModel{ID: 3}, PrivacyMode: models.ActivityPrivacyNamed}
	account := models.Account{BaseModel: models.BaseModel{ID: 9}}
	key, err := BuildIdentityKey(named, &account, "")
	require.NoError(t, err)
	assert.Equal(t, "account:9", key)

	_, err = BuildIdentityKey(named, nil, "whatever")
	assert.Error(t, err, "named activities require a signed in participant")
}
