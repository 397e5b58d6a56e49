package monitor

import (
	"context"
	"time"

	"api-monitor/model"
)

// Repository is the datastore the cycle reads from and writes to.
// Lookups that find nothing return model.ErrNotFound.
type Repository interface {
	ListMonitors(ctx context.Context) ([]model.Monitor, error)
	ListAuthProfiles(ctx context.Context) ([]model.AuthProfile, error)
	GetAuthProfile(ctx context.Context, id string) (*model.AuthProfile, error)
	GetAuthProfiles(ctx context.Context, ids []string) ([]model.AuthProfile, error)
	GetChannel(ctx context.Context, id string) (*model.NotificationChannel, error)

	InsertHealthCheck(ctx context.Context, hc *model.HealthCheck) error
	RecentHealthChecks(ctx context.Context, monitorID string, limit int) ([]model.HealthCheck, error)
	UpdateMonitorStatus(ctx context.Context, monitorID string, status model.MonitorStatus, checkedAt time.Time) error

	// FindOpenIncident returns nil, nil when the monitor has no unresolved incident.
	FindOpenIncident(ctx context.Context, monitorID string) (*model.Incident, error)
	CreateIncident(ctx context.Context, incident *model.Incident, update *model.IncidentUpdate) error
	ResolveIncident(ctx context.Context, incident *model.Incident, resolvedAt time.Time, update *model.IncidentUpdate) error

	ListAlertRules(ctx context.Context, monitorID string, recoveryOnly bool) ([]model.AlertRule, error)
	InsertAlertLog(ctx context.Context, log *model.AlertLog) error
}

// Notifier delivers one alert message to one channel.
type Notifier interface {
	Send(ctx context.Context, channel *model.NotificationChannel, m *model.Monitor, status model.MonitorStatus, message string) error
}

// TokenStore caches login tokens by auth profile id. Implementations
// swallow their own backend errors; a failed Load is a miss.
type TokenStore interface {
	Load(ctx context.Context, profileID string) (model.TokenCacheEntry, bool)
	Save(ctx context.Context, profileID string, entry model.TokenCacheEntry)
	Clear(ctx context.Context)
}
