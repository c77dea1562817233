package services

import (
	"fmt"
	"testing"
	"time"

	"github.com/reflectus-app/reflectus/pkg/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
)

func submitScaleAnswer(t *testing.T, activity models.Activity, account *models.Account, session string, value float64) {
	t.Helper()

	scale := questionByPrompt(t, activity, "How was your week?")
	_, err := SubmitResponse(activity, account, session, []InboundAnswer{
		{QuestionID: scale.ID, Status: models.AnswerStatusAnswered, Value: value},
	})
	require.NoError(t, err)
}

func TestAnalyticsPrivacyGate(t *testing.T) {
	useTestDatabase(t)
	activity, _ := seedActivity(t, models.ActivityPrivacyAnonymous)

	for i := 0; i < 4; i++ {
		submitScaleAnswer(t, activity, nil, fmt.Sprintf("session-%d", i), 3)
	}

	_, err := GetActivityAnalytics(activity, nil, nil)
	var privacyErr *PrivacyGuardError
	require.ErrorAs(t, err, &privacyErr)
	assert.Equal(t, 5, privacyErr.MinCount)
	assert.Equal(t, 4, privacyErr.CurrentCount)

	// Every response shaped read path re-checks on its own
	_, err = ListResponses(activity)
	assert.ErrorAs(t, err, &privacyErr)

	submitScaleAnswer(t, activity, nil, "session-late", 4)

	summary, err := GetActivityAnalytics(activity, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, 5, summary.TotalResponses)

	_, err = ListResponses(activity)
	assert.NoError(t, err)
}

func TestAnalyticsRecomputeHonorsPrivacyGate(t *testing.T) {
	useTestDatabase(t)
	activity, _ := seedActivity(t, models.ActivityPrivacyAnonymous)

	for i := 0; i < 4; i++ {
		submitScaleAnswer(t, activity, nil, fmt.Sprintf("session-%d", i), 3)
	}

	// A forced refresh must not reveal what the regular read withholds
	_, err := RecomputeActivityAnalytics(activity)
	var privacyErr *PrivacyGuardError
	require.ErrorAs(t, err, &privacyErr)
	assert.Equal(t, 4, privacyErr.CurrentCount)

	submitScaleAnswer(t, activity, nil, "session-late", 4)

	summary, err := RecomputeActivityAnalytics(activity)
	require.NoError(t, err)
	assert.Equal(t, 5, summary.TotalResponses)
}

func TestAnalyticsCompletionRateWithoutParticipants(t *testing.T) {
	useTestDatabase(t)
	activity, _ := seedActivity(t, models.ActivityPrivacyNamed)

	summary, err := GetActivityAnalytics(activity, nil, nil)
	require.NoError(t, err)

	assert.Zero(t, summary.TotalParticipants)
	assert.Zero(t, summary.TotalResponses)
	assert.Equal(t, float64(0), summary.CompletionRate, "an empty roster is not a full one")
}

func TestAnalyticsMalformedConfigDegradesAlone(t *testing.T) {
	useTestDatabase(t)
	activity, group := seedActivity(t, models.ActivityPrivacyNamed)
	participant := seedParticipant(t, group, "pupil")

	broken, err := NewQuestion(*activity.Questionnaire, models.Question{
		Prompt: "Rate the workload",
		Type:   models.QuestionTypeThermometer,
		Config: datatypes.JSONMap{"min": float64(10), "max": float64(1)},
	})
	require.NoError(t, err, "a malformed config never blocks the write")

	activity, err = GetActivityWithID(activity.ID)
	require.NoError(t, err)

	scale := questionByPrompt(t, activity, "How was your week?")
	text := questionByPrompt(t, activity, "Anything else to share?")
	_, err = SubmitResponse(activity, &participant, "", []InboundAnswer{
		{QuestionID: scale.ID, Status: models.AnswerStatusAnswered, Value: float64(5)},
		{QuestionID: text.ID, Status: models.AnswerStatusAnswered, Value: "more reading time please"},
		{QuestionID: broken.ID, Status: models.AnswerStatusAnswered, Value: float64(7)},
	})
	require.NoError(t, err, "the broken question is skipped, not fatal")

	summary, err := GetActivityAnalytics(activity, nil, nil)
	require.NoError(t, err)
	require.Len(t, summary.PerQuestion, 3, "siblings of a broken question still aggregate")

	byPrompt := make(map[string]QuestionSummary)
	for _, entry := range summary.PerQuestion {
		byPrompt[entry.Prompt] = entry
	}

	assert.NotEmpty(t, byPrompt["Rate the workload"].Warning)
	assert.Empty(t, byPrompt["Rate the workload"].Distribution)

	assert.Empty(t, byPrompt["How was your week?"].Warning)
	assert.Equal(t, float64(1), byPrompt["How was your week?"].Distribution["5"])
	assert.Equal(t, float64(1), byPrompt["Anything else to share?"].Distribution["more reading time please"])
}

func TestAnalyticsSnapshotReuseAndRecompute(t *testing.T) {
	useTestDatabase(t)
	activity, group := seedActivity(t, models.ActivityPrivacyNamed)
	first := seedParticipant(t, group, "pupil-one")
	second := seedParticipant(t, group, "pupil-two")

	submitScaleAnswer(t, activity, &first, "", 4)

	summary, err := GetActivityAnalytics(activity, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Version)
	assert.Equal(t, 1, summary.TotalResponses)

	submitScaleAnswer(t, activity, &second, "", 2)

	// Unfiltered reads keep serving the snapshot until a recompute
	stale, err := GetActivityAnalytics(activity, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, stale.TotalResponses)

	fresh, err := RecomputeActivityAnalytics(activity)
	require.NoError(t, err)
	assert.Equal(t, 2, fresh.Version)
	assert.Equal(t, 2, fresh.TotalResponses)
	assert.Equal(t, 2, fresh.TotalParticipants)
	assert.Equal(t, float64(1), fresh.CompletionRate)
}

func TestAnalyticsTrendOnlyWithDateFilter(t *testing.T) {
	useTestDatabase(t)
	activity, group := seedActivity(t, models.ActivityPrivacyNamed)
	first := seedParticipant(t, group, "pupil-one")
	second := seedParticipant(t, group, "pupil-two")

	submitScaleAnswer(t, activity, &first, "", 4)
	submitScaleAnswer(t, activity, &second, "", 5)

	unfiltered, err := GetActivityAnalytics(activity, nil, nil)
	require.NoError(t, err)
	assert.Empty(t, unfiltered.Trend)

	from := time.Now().Add(-24 * time.Hour)
	to := time.Now().Add(24 * time.Hour)
	filtered, err := GetActivityAnalytics(activity, &from, &to)
	require.NoError(t, err)

	require.Len(t, filtered.Trend, 1)
	assert.Equal(t, time.Now().UTC().Format("2006-01-02"), filtered.Trend[0].Date)
	assert.Equal(t, 2, filtered.Trend[0].Responses)
	assert.Equal(t, float64(1), filtered.Trend[0].CompletionRate)

	scaleEntry := filtered.PerQuestion[0]
	require.NotNil(t, scaleEntry.Average)
	assert.InDelta(t, 4.5, *scaleEntry.Average, 1e-9)
}
