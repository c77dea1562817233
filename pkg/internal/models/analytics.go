package models

import (
	"time"

	"gorm.io/datatypes"
)

// AnalyticsSnapshot caches the unfiltered aggregation result of one
// activity. Date-filtered queries always recompute and bypass this row.
type AnalyticsSnapshot struct {
	BaseModel

	ActivityID uint           `json:"activity_id" gorm:"uniqueIndex"`
	Version    int            `json:"version"`
	Payload    datatypes.JSON `json:"payload"`
	ComputedAt time.Time      `json:"computed_at"`
}
