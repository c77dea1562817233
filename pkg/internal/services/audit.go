package services

import (
	"github.com/reflectus-app/reflectus/pkg/internal/database"
	"github.com/reflectus-app/reflectus/pkg/internal/models"
	"github.com/rs/zerolog/log"
)

// RecordAudit writes one audit trail entry. It is fire and forget, a failed
// write is logged and never bubbles into the caller's request.
func RecordAudit(action, targetType string, targetId uint, actorId *uint, metadata map[string]any) {
	entry := models.AuditLog{
		Action:     action,
		TargetType: targetType,
		TargetID:   targetId,
		ActorID:    actorId,
		Metadata:   metadata,
	}

	if err := database.C.Create(&entry).Error; err != nil {
		log.Warn().Err(err).Str("action", action).Msg("An error occurred when recording audit log...")
	}
}
