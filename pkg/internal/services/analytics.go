package services

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/eko/gocache/lib/v4/cache"
	"github.com/eko/gocache/lib/v4/marshaler"
	"github.com/eko/gocache/lib/v4/store"
	jsoniter "github.com/json-iterator/go"
	localCache "github.com/reflectus-app/reflectus/pkg/internal/cache"
	"github.com/reflectus-app/reflectus/pkg/internal/database"
	"github.com/reflectus-app/reflectus/pkg/internal/models"
	"github.com/reflectus-app/reflectus/pkg/internal/services/qtype"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

type QuestionSummary struct {
	QuestionID    uint               `json:"question_id"`
	Prompt        string             `json:"prompt"`
	Type          string             `json:"type"`
	AnsweredCount int                `json:"answered_count"`
	UnknownCount  int                `json:"unknown_count"`
	DeclinedCount int                `json:"declined_count"`
	Average       *float64           `json:"average,omitempty"`
	Distribution  map[string]float64 `json:"distribution"`
	Warning       string             `json:"warning,omitempty"`
}

type TrendPoint struct {
	Date           string  `json:"date"`
	Responses      int     `json:"responses"`
	CompletionRate float64 `json:"completion_rate"`
}

type ActivitySummary struct {
	ActivityID        uint              `json:"activity_id"`
	Version           int               `json:"version"`
	TotalParticipants int               `json:"total_participants"`
	TotalResponses    int               `json:"total_responses"`
	CompletionRate    float64           `json:"completion_rate"`
	PerQuestion       []QuestionSummary `json:"per_question"`
	Trend             []TrendPoint      `json:"trend,omitempty"`
	ComputedAt        time.Time         `json:"computed_at"`
}

func GetAnalyticsCacheKey(activityId uint) string {
	return fmt.Sprintf("activity-analytics#%d", activityId)
}

// GetActivityAnalytics serves the facilitator's aggregation view. Unfiltered
// reads reuse the latest snapshot; supplying either date bound always
// recomputes and leaves the snapshot untouched.
func GetActivityAnalytics(activity models.Activity, from, to *time.Time) (ActivitySummary, error) {
	if err := EnsurePrivacyThreshold(activity); err != nil {
		return ActivitySummary{}, err
	}

	if from == nil && to == nil {
		if summary, ok := loadAnalyticsSnapshot(activity); ok {
			return summary, nil
		}
		return RecomputeActivityAnalytics(activity)
	}

	return computeActivitySummary(activity, from, to)
}

// RecomputeActivityAnalytics rebuilds and stores the unfiltered snapshot.
// The cohort threshold applies here too, so a forced refresh cannot reveal
// what the regular read path withholds.
func RecomputeActivityAnalytics(activity models.Activity) (ActivitySummary, error) {
	if err := EnsurePrivacyThreshold(activity); err != nil {
		return ActivitySummary{}, err
	}

	summary, err := computeActivitySummary(activity, nil, nil)
	if err != nil {
		return summary, err
	}

	var snapshot models.AnalyticsSnapshot
	if err := database.C.Where("activity_id = ?", activity.ID).First(&snapshot).Error; err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return summary, err
		}
		snapshot = models.AnalyticsSnapshot{ActivityID: activity.ID}
	}

	snapshot.Version++
	snapshot.ComputedAt = summary.ComputedAt
	summary.Version = snapshot.Version

	payload, err := jsoniter.Marshal(summary)
	if err != nil {
		return summary, err
	}
	snapshot.Payload = payload

	if err := database.C.Save(&snapshot).Error; err != nil {
		return summary, err
	}

	cacheManager := cache.New[any](localCache.S)
	marshal := marshaler.New(cacheManager)
	if err := marshal.Set(
		context.Background(),
		GetAnalyticsCacheKey(activity.ID),
		summary,
		store.WithTags([]string{"activity-analytics", fmt.Sprintf("activity#%d", activity.ID)}),
	); err != nil {
		log.Warn().Err(err).Uint("activity", activity.ID).Msg("An error occurred when caching analytics snapshot...")
	}

	return summary, nil
}

func loadAnalyticsSnapshot(activity models.Activity) (ActivitySummary, bool) {
	cacheManager := cache.New[any](localCache.S)
	marshal := marshaler.New(cacheManager)

	if cached, err := marshal.Get(
		context.Background(),
		GetAnalyticsCacheKey(activity.ID),
		new(ActivitySummary),
	); err == nil {
		return *cached.(*ActivitySummary), true
	}

	var snapshot models.AnalyticsSnapshot
	if err := database.C.Where("activity_id = ?", activity.ID).First(&snapshot).Error; err != nil {
		return ActivitySummary{}, false
	}

	var summary ActivitySummary
	if err := jsoniter.Unmarshal(snapshot.Payload, &summary); err != nil {
		log.Warn().Err(err).Uint("activity", activity.ID).Msg("An error occurred when decoding analytics snapshot...")
		return ActivitySummary{}, false
	}

	return summary, true
}

func computeActivitySummary(activity models.Activity, from, to *time.Time) (ActivitySummary, error) {
	summary := ActivitySummary{
		ActivityID: activity.ID,
		ComputedAt: time.Now(),
	}

	questions, err := listActivityQuestions(activity)
	if err != nil {
		return summary, err
	}

	tx := database.C.Where("activity_id = ?", activity.ID).Preload("Answers")
	if from != nil {
		tx = tx.Where("created_at >= ?", *from)
	}
	if to != nil {
		tx = tx.Where("created_at <= ?", *to)
	}

	var responses []models.Response
	if err := tx.Find(&responses).Error; err != nil {
		return summary, err
	}

	participants, err := CountParticipants(activity.GroupID)
	if err != nil {
		return summary, err
	}

	summary.TotalParticipants = int(participants)
	summary.TotalResponses = len(responses)
	summary.CompletionRate = completionRate(len(responses), int(participants))
	summary.PerQuestion = summarizeQuestions(questions, responses)

	if from != nil || to != nil {
		summary.Trend = buildTrend(responses, int(participants))
	}

	return summary, nil
}

func listActivityQuestions(activity models.Activity) ([]models.Question, error) {
	if activity.Questionnaire != nil && len(activity.Questionnaire.Questions) > 0 {
		return activity.Questionnaire.Questions, nil
	}

	var questionnaire models.Questionnaire
	if err := database.C.Where("activity_id = ?", activity.ID).
		Preload("Questions", func(tx *gorm.DB) *gorm.DB {
			return tx.Order(`questions."order" ASC`)
		}).
		First(&questionnaire).Error; err != nil {
		return nil, err
	}
	return questionnaire.Questions, nil
}

func summarizeQuestions(questions []models.Question, responses []models.Response) []QuestionSummary {
	out := make([]QuestionSummary, 0, len(questions))

	for _, question := range questions {
		entry := QuestionSummary{
			QuestionID:   question.ID,
			Prompt:       question.Prompt,
			Type:         question.Type,
			Distribution: map[string]float64{},
		}

		var values []any
		for _, response := range responses {
			for _, answer := range response.Answers {
				if answer.QuestionID != question.ID {
					continue
				}
				switch answer.Status {
				case models.AnswerStatusUnknown:
					entry.UnknownCount++
				case models.AnswerStatusDeclined:
					entry.DeclinedCount++
				case models.AnswerStatusAnswered:
					entry.AnsweredCount++
					if len(answer.Value) > 0 {
						var value any
						if err := jsoniter.Unmarshal(answer.Value, &value); err == nil {
							values = append(values, value)
						}
					}
				}
			}
		}

		handler, ok := qtype.For(question.Type)
		if !ok {
			entry.Warning = fmt.Sprintf("unknown question type %q", question.Type)
			out = append(out, entry)
			continue
		}

		cfg, err := handler.ParseConfig(question.Config)
		if err != nil {
			// One broken question degrades on its own, the siblings
			// still aggregate.
			entry.Warning = err.Error()
			out = append(out, entry)
			continue
		}

		aggregate := handler.Aggregate(cfg, values)
		entry.Average = aggregate.Average
		entry.Distribution = aggregate.Distribution
		out = append(out, entry)
	}

	return out
}

func completionRate(responses, participants int) float64 {
	if participants <= 0 {
		return 0
	}
	return math.Min(1, float64(responses)/float64(participants))
}

func buildTrend(responses []models.Response, participants int) []TrendPoint {
	byDay := make(map[string]int)
	for _, response := range responses {
		day := response.CreatedAt.UTC().Format("2006-01-02")
		byDay[day]++
	}

	days := make([]string, 0, len(byDay))
	for day := range byDay {
		days = append(days, day)
	}
	sort.Strings(days)

	out := make([]TrendPoint, 0, len(days))
	for _, day := range days {
		out = append(out, TrendPoint{
			Date:           day,
			Responses:      byDay[day],
			CompletionRate: completionRate(byDay[day], participants),
		})
	}
	return out
}
