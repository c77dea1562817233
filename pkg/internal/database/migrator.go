package database

import (
	"github.com/reflectus-app/reflectus/pkg/internal/models"
	"gorm.io/gorm"
)

var AutoMaintainRange = []any{
	&models.Account{},
	&models.Group{},
	&models.GroupMember{},
	&models.Activity{},
	&models.Questionnaire{},
	&models.Question{},
	&models.Response{},
	&models.Answer{},
}

func RunMigration(source *gorm.DB) error {
	if err := source.AutoMigrate(
		append(
			AutoMaintainRange,
			&models.AnalyticsSnapshot{},
			&models.AuditLog{},
		)...,
	); err != nil {
		return err
	}

	return nil
}
