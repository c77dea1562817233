package models

import "gorm.io/datatypes"

type AuditLog struct {
	BaseModel

	Action     string            `json:"action"`
	TargetType string            `json:"target_type"`
	TargetID   uint              `json:"target_id"`
	ActorID    *uint             `json:"actor_id,omitempty"`
	Metadata   datatypes.JSONMap `json:"metadata"`
}
