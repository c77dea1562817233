package api

import (
	"errors"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/reflectus-app/reflectus/pkg/internal/models"
	"github.com/reflectus-app/reflectus/pkg/internal/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRemapServiceErrorStatuses(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
	}{
		{"duplicate", services.ErrDuplicateSubmission, fiber.StatusConflict},
		{"validation", &services.ValidationError{Reason: "bad"}, fiber.StatusBadRequest},
		{"state", &services.StateError{Reason: "closed"}, fiber.StatusForbidden},
		{"privacy", &services.PrivacyGuardError{MinCount: 5, CurrentCount: 4}, fiber.StatusForbidden},
		{"rate limit", &services.RateLimitError{RetryAfter: 30 * time.Second}, fiber.StatusTooManyRequests},
		{"anything else", errors.New("database gone"), fiber.StatusInternalServerError},
	}

	for _, tt := range cases {
		t.Run(tt.name, func(t *testing.T) {
			app := fiber.New()
			app.Get("/", func(c *fiber.Ctx) error {
				return remapServiceError(c, tt.err)
			})

			resp, err := app.Test(httptest.NewRequest("GET", "/", nil))
			require.NoError(t, err)
			assert.Equal(t, tt.status, resp.StatusCode)
			if tt.name == "rate limit" {
				assert.Equal(t, "31", resp.Header.Get(fiber.HeaderRetryAfter))
			}
		})
	}
}

func TestActivityQuestionnaireGuard(t *testing.T) {
	_, err := activityQuestionnaire(models.Activity{})
	var fiberErr *fiber.Error
	require.ErrorAs(t, err, &fiberErr)
	assert.Equal(t, fiber.StatusNotFound, fiberErr.Code)

	questionnaire, err := activityQuestionnaire(models.Activity{
		Questionnaire: &models.Questionnaire{ActivityID: 7},
	})
	require.NoError(t, err)
	assert.EqualValues(t, 7, questionnaire.ActivityID)
}
