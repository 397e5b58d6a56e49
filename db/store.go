package db

import (
	"context"
	"time"

	"api-monitor/model"

	"github.com/pkg/errors"
	"gorm.io/gorm"
)

func (s *Store) ListMonitors(ctx context.Context) ([]model.Monitor, error) {
	var monitors []model.Monitor
	if err := s.db.WithContext(ctx).Order("created_at").Find(&monitors).Error; err != nil {
		return nil, errors.Wrap(err, "list monitors")
	}
	return monitors, nil
}

func (s *Store) ListAuthProfiles(ctx context.Context) ([]model.AuthProfile, error) {
	var profiles []model.AuthProfile
	if err := s.db.WithContext(ctx).Order("name").Find(&profiles).Error; err != nil {
		return nil, errors.Wrap(err, "list auth profiles")
	}
	return profiles, nil
}

func (s *Store) GetAuthProfile(ctx context.Context, id string) (*model.AuthProfile, error) {
	var profile model.AuthProfile
	if err := first(s.db.WithContext(ctx).Where("id = ?", id), &profile); err != nil {
		return nil, errors.Wrapf(err, "get auth profile %s", id)
	}
	return &profile, nil
}

func (s *Store) GetAuthProfiles(ctx context.Context, ids []string) ([]model.AuthProfile, error) {
	var profiles []model.AuthProfile
	if len(ids) == 0 {
		return profiles, nil
	}
	if err := s.db.WithContext(ctx).Where("id IN ?", ids).Find(&profiles).Error; err != nil {
		return nil, errors.Wrap(err, "get auth profiles")
	}
	return profiles, nil
}

func (s *Store) GetChannel(ctx context.Context, id string) (*model.NotificationChannel, error) {
	var channel model.NotificationChannel
	if err := first(s.db.WithContext(ctx).Where("id = ?", id), &channel); err != nil {
		return nil, errors.Wrapf(err, "get channel %s", id)
	}
	return &channel, nil
}

func (s *Store) InsertHealthCheck(ctx context.Context, hc *model.HealthCheck) error {
	return errors.Wrap(s.db.WithContext(ctx).Create(hc).Error, "insert health check")
}

// RecentHealthChecks returns up to limit records, newest first.
func (s *Store) RecentHealthChecks(ctx context.Context, monitorID string, limit int) ([]model.HealthCheck, error) {
	var checks []model.HealthCheck
	err := s.db.WithContext(ctx).
		Where("monitor_id = ?", monitorID).
		Order("checked_at DESC").
		Limit(limit).
		Find(&checks).Error
	if err != nil {
		return nil, errors.Wrap(err, "recent health checks")
	}
	return checks, nil
}

func (s *Store) UpdateMonitorStatus(ctx context.Context, monitorID string, status model.MonitorStatus, checkedAt time.Time) error {
	res := s.db.WithContext(ctx).
		Model(&model.Monitor{}).
		Where("id = ?", monitorID).
		Updates(map[string]any{
			"current_status":  status,
			"last_checked_at": checkedAt,
		})
	if res.Error != nil {
		return errors.Wrap(res.Error, "update monitor status")
	}
	if res.RowsAffected == 0 {
		return errors.Wrapf(model.ErrNotFound, "monitor %s", monitorID)
	}
	return nil
}

func (s *Store) FindOpenIncident(ctx context.Context, monitorID string) (*model.Incident, error) {
	var incident model.Incident
	err := first(s.db.WithContext(ctx).
		Where("monitor_id = ? AND status <> ?", monitorID, model.IncidentResolved).
		Order("started_at DESC"), &incident)
	if errors.Is(err, model.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "find open incident")
	}
	return &incident, nil
}

// CreateIncident inserts the incident and its first update in one transaction.
func (s *Store) CreateIncident(ctx context.Context, incident *model.Incident, update *model.IncidentUpdate) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit("Updates").Create(incident).Error; err != nil {
			return err
		}
		update.IncidentID = incident.ID
		return tx.Create(update).Error
	})
	return errors.Wrap(err, "create incident")
}

func (s *Store) ResolveIncident(ctx context.Context, incident *model.Incident, resolvedAt time.Time, update *model.IncidentUpdate) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Model(&model.Incident{}).
			Where("id = ?", incident.ID).
			Updates(map[string]any{
				"status":      model.IncidentResolved,
				"resolved_at": resolvedAt,
			}).Error
		if err != nil {
			return err
		}
		update.IncidentID = incident.ID
		return tx.Create(update).Error
	})
	if err != nil {
		return errors.Wrap(err, "resolve incident")
	}
	incident.Status = model.IncidentResolved
	incident.ResolvedAt = &resolvedAt
	return nil
}

// ListIncidentUpdates returns an incident's updates, oldest first.
func (s *Store) ListIncidentUpdates(ctx context.Context, incidentID string) ([]model.IncidentUpdate, error) {
	var updates []model.IncidentUpdate
	err := s.db.WithContext(ctx).
		Where("incident_id = ?", incidentID).
		Order("created_at").
		Find(&updates).Error
	return updates, errors.Wrap(err, "list incident updates")
}

// ListAlertRules returns the monitor's rules with their channels loaded.
func (s *Store) ListAlertRules(ctx context.Context, monitorID string, recoveryOnly bool) ([]model.AlertRule, error) {
	q := s.db.WithContext(ctx).Preload("Channel").Where("monitor_id = ?", monitorID)
	if recoveryOnly {
		q = q.Where("notify_on_recovery = ?", true)
	}
	var rules []model.AlertRule
	if err := q.Order("created_at").Find(&rules).Error; err != nil {
		return nil, errors.Wrap(err, "list alert rules")
	}
	return rules, nil
}

func (s *Store) InsertAlertLog(ctx context.Context, log *model.AlertLog) error {
	return errors.Wrap(s.db.WithContext(ctx).Create(log).Error, "insert alert log")
}

// first loads one row into dest, mapping a miss to model.ErrNotFound.
func first(q *gorm.DB, dest any) error {
	res := q.Limit(1).Find(dest)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return model.ErrNotFound
	}
	return nil
}
