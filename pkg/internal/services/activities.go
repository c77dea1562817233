package services

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/reflectus-app/reflectus/pkg/internal/database"
	"github.com/reflectus-app/reflectus/pkg/internal/models"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

func NewActivity(creator models.GroupMember, activity models.Activity) (models.Activity, error) {
	activity.Status = models.ActivityStatusDraft
	activity.ShareSlug = uuid.NewString()
	activity.GroupID = creator.GroupID
	activity.CreatorID = creator.AccountID

	if activity.Questionnaire == nil {
		activity.Questionnaire = &models.Questionnaire{Title: activity.Title}
	}

	if err := database.C.Create(&activity).Error; err != nil {
		return activity, err
	}
	return activity, nil
}

func GetActivityWithID(id uint) (models.Activity, error) {
	var activity models.Activity
	if err := database.C.Where("id = ?", id).
		Preload("Questionnaire").
		Preload("Questionnaire.Questions", func(tx *gorm.DB) *gorm.DB {
			return tx.Order(`questions."order" ASC`)
		}).
		First(&activity).Error; err != nil {
		return activity, err
	}
	return activity, nil
}

func GetActivityWithSlug(slug string) (models.Activity, error) {
	var activity models.Activity
	if err := database.C.Where("share_slug = ?", slug).
		Preload("Questionnaire").
		Preload("Questionnaire.Questions").
		First(&activity).Error; err != nil {
		return activity, err
	}
	return activity, nil
}

func ListActivities(groupId uint) ([]models.Activity, error) {
	var activities []models.Activity
	err := database.C.Where("group_id = ?", groupId).
		Order("created_at DESC").
		Find(&activities).Error
	return activities, err
}

func UpdateActivity(activity models.Activity) (models.Activity, error) {
	err := database.C.Save(&activity).Error
	return activity, err
}

func DeleteActivity(activity models.Activity) error {
	return database.C.Delete(&activity).Error
}

func PublishActivity(activity models.Activity) (models.Activity, error) {
	if activity.Status != models.ActivityStatusDraft {
		return activity, &StateError{Reason: fmt.Sprintf("only a draft can be published, activity is %s", activity.Status)}
	}

	activity.Status = models.ActivityStatusPublished
	err := database.C.Model(&activity).Update("status", activity.Status).Error
	return activity, err
}

func CloseActivity(activity models.Activity) (models.Activity, error) {
	if activity.Status != models.ActivityStatusPublished {
		return activity, &StateError{Reason: fmt.Sprintf("only a published activity can be closed, activity is %s", activity.Status)}
	}

	activity.Status = models.ActivityStatusClosed
	err := database.C.Model(&activity).Update("status", activity.Status).Error
	return activity, err
}

// EnsureAcceptsSubmissions gates the submission pipeline on lifecycle state
// and on the activity's open window.
func EnsureAcceptsSubmissions(activity models.Activity, now time.Time) error {
	if activity.Status != models.ActivityStatusPublished {
		return &StateError{Reason: "activity is not accepting responses"}
	}
	if activity.OpensAt != nil && now.Before(*activity.OpensAt) {
		return &StateError{Reason: "activity has not opened yet"}
	}
	if activity.ClosesAt != nil && now.After(*activity.ClosesAt) {
		return &StateError{Reason: "activity is already closed"}
	}
	return nil
}

// AutoCloseActivities flips published activities whose window has passed.
// Ran periodically by the scheduler.
func AutoCloseActivities() {
	tx := database.C.Model(&models.Activity{}).
		Where("status = ? AND closes_at IS NOT NULL AND closes_at < ?", models.ActivityStatusPublished, time.Now()).
		Update("status", models.ActivityStatusClosed)
	if tx.Error != nil {
		log.Error().Err(tx.Error).Msg("An error occurred when auto closing activities...")
	} else if tx.RowsAffected > 0 {
		log.Info().Int64("count", tx.RowsAffected).Msg("Auto closed activities past their window.")
	}
}
