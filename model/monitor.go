package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/guregu/null/v5"
	"gorm.io/gorm"
)

type MonitorStatus string

const (
	StatusUp      MonitorStatus = "up"
	StatusDown    MonitorStatus = "down"
	StatusUnknown MonitorStatus = "unknown"
)

type MonitorMethod string

const (
	MethodGet  MonitorMethod = "GET"
	MethodPost MonitorMethod = "POST"
	MethodHead MonitorMethod = "HEAD"
)

type Monitor struct {
	ID        string    `gorm:"primaryKey;type:varchar(36)" json:"id"`
	UserID    string    `gorm:"index" json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Name            string        `json:"name"`
	URL             string        `json:"url"`
	Method          MonitorMethod `json:"method" gorm:"default:'GET'"`
	IntervalSeconds int           `json:"interval_seconds" gorm:"default:300"`
	CurrentStatus   MonitorStatus `json:"current_status" gorm:"default:'unknown'"`
	LastCheckedAt   *time.Time    `json:"last_checked_at"`
	AuthProfileID   *string       `json:"auth_profile_id" gorm:"type:varchar(36);index"`
	SkipSSLVerify   bool          `json:"skip_ssl_verify"`
	IsPublic        bool          `json:"is_public"`

	AuthProfile *AuthProfile `json:"auth_profile,omitempty" gorm:"foreignKey:AuthProfileID"`
}

func (m *Monitor) BeforeCreate(tx *gorm.DB) error {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	return nil
}

// HealthCheck is one probe attempt. Rows are only ever inserted.
type HealthCheck struct {
	ID             string        `gorm:"primaryKey;type:varchar(36)" json:"id"`
	MonitorID      string        `gorm:"type:varchar(36);index:idx_health_monitor_time" json:"monitor_id"`
	Status         MonitorStatus `json:"status"`
	ResponseTimeMs null.Int      `json:"response_time_ms"`
	StatusCode     null.Int      `json:"status_code"`
	ErrorMessage   null.String   `json:"error_message"`
	CheckedAt      time.Time     `gorm:"index:idx_health_monitor_time" json:"checked_at"`
}

func (h *HealthCheck) BeforeCreate(tx *gorm.DB) error {
	if h.ID == "" {
		h.ID = uuid.NewString()
	}
	return nil
}
