package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ChannelType string

const (
	ChannelSlack   ChannelType = "slack"
	ChannelDiscord ChannelType = "discord"
	ChannelEmail   ChannelType = "email"
)

// Config keys understood by the senders.
const (
	ConfigWebhookURL = "webhook_url"
	ConfigEmail      = "email"
)

type NotificationChannel struct {
	ID        string    `gorm:"primaryKey;type:varchar(36)" json:"id"`
	UserID    string    `gorm:"index" json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Name     string      `json:"name"`
	Type     ChannelType `json:"type"`
	Config   StringMap   `json:"config"`
	IsActive bool        `json:"is_active"`
}

func (c *NotificationChannel) BeforeCreate(tx *gorm.DB) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	return nil
}

type AlertRule struct {
	ID        string    `gorm:"primaryKey;type:varchar(36)" json:"id"`
	CreatedAt time.Time `json:"created_at"`

	MonitorID            string `gorm:"type:varchar(36);index" json:"monitor_id"`
	ChannelID            string `gorm:"type:varchar(36)" json:"channel_id"`
	TriggerAfterFailures int    `json:"trigger_after_failures" gorm:"default:1"`
	NotifyOnRecovery     bool   `json:"notify_on_recovery"`

	Channel *NotificationChannel `json:"channel,omitempty" gorm:"foreignKey:ChannelID"`
}

func (r *AlertRule) BeforeCreate(tx *gorm.DB) error {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	return nil
}

type AlertLogStatus string

const (
	AlertSent   AlertLogStatus = "sent"
	AlertFailed AlertLogStatus = "failed"
)

type AlertLog struct {
	ID        string         `gorm:"primaryKey;type:varchar(36)" json:"id"`
	MonitorID string         `gorm:"type:varchar(36);index" json:"monitor_id"`
	ChannelID string         `gorm:"type:varchar(36)" json:"channel_id"`
	Status    AlertLogStatus `json:"status"`
	Message   string         `json:"message"`
	SentAt    time.Time      `json:"sent_at"`
}

func (l *AlertLog) BeforeCreate(tx *gorm.DB) error {
	if l.ID == "" {
		l.ID = uuid.NewString()
	}
	return nil
}
