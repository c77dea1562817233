package api

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strings"

	"github.com/gofiber/fiber/v2"
	jsoniter "github.com/json-iterator/go"
	"github.com/reflectus-app/reflectus/pkg/internal/http/exts"
	"github.com/reflectus-app/reflectus/pkg/internal/models"
	"github.com/reflectus-app/reflectus/pkg/internal/services"
	"github.com/samber/lo"
)

func exportResponses(c *fiber.Ctx) error {
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

	// The export path re-checks the anonymity threshold on its own through
	// the listing, it must never be reachable around the analytics gate.
	responses, err := services.ListResponses(activity)
	if err != nil {
		return remapServiceError(c, err)
	}

	questionnaire, err := activityQuestionnaire(activity)
	if err != nil {
		return err
	}

	questions, err := services.ListQuestions(questionnaire.ID)
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, err.Error())
	}

	rows := flattenResponses(activity, questions, responses)

	switch format := c.Query("format", "csv"); format {
	case "json":
		return c.JSON(rows)
	case "csv":
		buffer, err := renderCsv(questions, rows, activity.PrivacyMode == models.ActivityPrivacyNamed)
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, err.Error())
		}
		c.Set(fiber.HeaderContentType, "text/csv; charset=utf-8")
		c.Set(fiber.HeaderContentDisposition, fmt.Sprintf(`attachment; filename="activity-%d.csv"`, activity.ID))
		return c.Send(buffer.Bytes())
	case "xlsx", "pdf":
		return fiber.NewError(fiber.StatusNotImplemented, fmt.Sprintf("%s export is not available yet", format))
	default:
		return fiber.NewError(fiber.StatusBadRequest, fmt.Sprintf("unknown export format %q", format))
	}
}

type exportRow struct {
	ResponseID  uint              `json:"response_id"`
	SubmittedAt string            `json:"submitted_at"`
	Participant string            `json:"participant,omitempty"`
	Cells       map[string]string `json:"cells"`
}

// flattenResponses turns each response into one row keyed by question
// prompt. Participant identity only appears on named activities.
func flattenResponses(activity models.Activity, questions []models.Question, responses []models.Response) []exportRow {
	rows := make([]exportRow, 0, len(responses))
	for _, response := range responses {
		row := exportRow{
			ResponseID:  response.ID,
			SubmittedAt: response.CreatedAt.UTC().Format("2006-01-02 15:04:05"),
			Cells:       make(map[string]string, len(questions)),
		}

		if activity.PrivacyMode == models.ActivityPrivacyNamed && response.AccountID != nil {
			if account, err := services.GetAccountWithID(*response.AccountID); err == nil {
				row.Participant = account.Name
			}
		}

		byQuestion := lo.SliceToMap(response.Answers, func(a models.Answer) (uint, models.Answer) {
			return a.QuestionID, a
		})
		for _, question := range questions {
			answer, ok := byQuestion[question.ID]
			if !ok {
				continue
			}
			row.Cells[question.Prompt] = renderAnswerCell(answer)
		}

		rows = append(rows, row)
	}
	return rows
}

func renderAnswerCell(answer models.Answer) string {
	switch answer.Status {
	case models.AnswerStatusDeclined:
		return "(declined)"
	case models.AnswerStatusUnknown:
		parts := lo.Map(answer.FollowUpAnswers, func(f models.FollowUpAnswer, _ int) string {
			return fmt.Sprintf("%s: %s", f.Prompt, f.Value)
		})
		return "(unknown) " + strings.Join(parts, "; ")
	}

	var value any
	if err := jsoniter.Unmarshal(answer.Value, &value); err != nil {
		return string(answer.Value)
	}

	switch v := value.(type) {
	case string:
		return v
	case []any:
		return strings.Join(lo.Map(v, func(item any, _ int) string {
			return fmt.Sprintf("%v", item)
		}), ", ")
	case map[string]any:
		parts := make([]string, 0, len(v))
		for key, share := range v {
			parts = append(parts, fmt.Sprintf("%s=%v", key, share))
		}
		return strings.Join(parts, ", ")
	default:
		return fmt.Sprintf("%v", v)
	}
}

func renderCsv(questions []models.Question, rows []exportRow, named bool) (*bytes.Buffer, error) {
	buffer := new(bytes.Buffer)
	writer := csv.NewWriter(buffer)

	header := []string{"response_id", "submitted_at"}
	if named {
		header = append(header, "participant")
	}
	for _, question := range questions {
		header = append(header, question.Prompt)
	}
	if err := writer.Write(header); err != nil {
		return nil, err
	}

	for _, row := range rows {
		record := []string{fmt.Sprintf("%d", row.ResponseID), row.SubmittedAt}
		if named {
			record = append(record, row.Participant)
		}
		for _, question := range questions {
			record = append(record, row.Cells[question.Prompt])
		}
		if err := writer.Write(record); err != nil {
			return nil, err
		}
	}

	writer.Flush()
	return buffer, writer.Error()
}
