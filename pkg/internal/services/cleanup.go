package services

import (
	"time"

	"github.com/reflectus-app/reflectus/pkg/internal/database"
	"github.com/reflectus-app/reflectus/pkg/internal/models"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

// DoAutoDatabaseCleanup prunes soft-deleted rows and analytics snapshots of
// activities that saw no recomputation within the retention period.
func DoAutoDatabaseCleanup() {
	deadline := time.Now().Add(-30 * 24 * time.Hour)
	log.Debug().Time("deadline", deadline).Msg("Now cleaning up entire database...")

	var count int64
	for _, model := range database.AutoMaintainRange {
		tx := database.C.Unscoped().
			Where("deleted_at IS NOT NULL AND deleted_at <= ?", deadline).
			Delete(model)
		if tx.Error != nil {
			log.Error().Err(tx.Error).Msg("An error occurred when running auto maintenance...")
		}
		count += tx.RowsAffected
	}

	retention := viper.GetDuration("analytics.snapshot_retention")
	if retention > 0 {
		tx := database.C.
			Where("computed_at <= ?", time.Now().Add(-retention)).
			Delete(&models.AnalyticsSnapshot{})
		if tx.Error != nil {
			log.Error().Err(tx.Error).Msg("An error occurred when pruning stale analytics snapshots...")
		}
		count += tx.RowsAffected
	}

	log.Debug().Int64("affected", count).Msg("Clean up entire database accomplished.")
}
