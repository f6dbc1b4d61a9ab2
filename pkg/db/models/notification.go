package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/tutorhub/tutorhub-backend/pkg/enums"
)

// Notification stores in-app notification payloads scoped to a user.
type Notification struct {
	ID              uuid.UUID              `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	RecipientUserID uuid.UUID              `gorm:"column:recipient_user_id;type:uuid;not null;index" json:"recipientUserId"`
	Type            enums.NotificationType `gorm:"column:type;size:32;not null" json:"type"`
	Title           string                 `gorm:"column:title;not null" json:"title"`
	Message         string                 `gorm:"column:message;not null" json:"message"`
	RedirectPath    *string                `gorm:"column:redirect_path" json:"redirectPath,omitempty"`
	RedirectParams  datatypes.JSON         `gorm:"column:redirect_params" json:"redirectParams,omitempty"`
	ReadAt          *time.Time             `gorm:"column:read_at" json:"readAt,omitempty"`
	CreatedAt       time.Time              `gorm:"column:created_at;autoCreateTime" json:"createdAt"`
}

func (n *Notification) BeforeCreate(*gorm.DB) error {
	ensureID(&n.ID)
	return nil
}
