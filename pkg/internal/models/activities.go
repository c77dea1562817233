package models

import "time"

const (
	ActivityStatusDraft     = "draft"
	ActivityStatusPublished = "published"
	ActivityStatusClosed    = "closed"
)

const (
	ActivityPrivacyNamed     = "named"
	ActivityPrivacyAnonymous = "anonymous"
)

type Activity struct {
	BaseModel

	Title       string `json:"title"`
	Description string `json:"description"`
	Status      string `json:"status"`
	PrivacyMode string `json:"privacy_mode"`
	ShareSlug   string `json:"share_slug" gorm:"uniqueIndex"`

	OpensAt  *time.Time `json:"opens_at"`
	ClosesAt *time.Time `json:"closes_at"`

	GroupID   uint  `json:"group_id"`
	Group     Group `json:"group"`
	CreatorID uint  `json:"creator_id"`

	Questionnaire *Questionnaire `json:"questionnaire"`
	Responses     []Response     `json:"responses"`

	Metric *ActivityMetric `json:"metric,omitempty" gorm:"-"`
}

type Questionnaire struct {
	BaseModel

	Title       string `json:"title"`
	Description string `json:"description"`

	ActivityID uint       `json:"activity_id" gorm:"uniqueIndex"`
	Questions  []Question `json:"questions"`
}

// ActivityMetric is computed on read, never persisted.
type ActivityMetric struct {
	TotalParticipants int     `json:"total_participants"`
	TotalResponses    int     `json:"total_responses"`
	CompletionRate    float64 `json:"completion_rate"`
}
