package monitor

import (
	"context"
	"fmt"
	"time"

	"api-monitor/model"
	"api-monitor/pkg/logger"

	"go.uber.org/zap"
)

const (
	msgNotResponding = "Monitor is not responding"
	msgRecovered     = "Monitor has recovered and is responding normally"
)

// Transition records what Handle did for one probe result.
type Transition struct {
	From             model.MonitorStatus `json:"from"`
	To               model.MonitorStatus `json:"to"`
	HealthCheck      *model.HealthCheck  `json:"health_check"`
	IncidentOpened   bool                `json:"incident_opened"`
	IncidentResolved bool                `json:"incident_resolved"`
	AlertsSent       int                 `json:"alerts_sent"`
	AlertsFailed     int                 `json:"alerts_failed"`
}

// IncidentManager persists probe results and drives incidents and alerts from them.
type IncidentManager struct {
	repo     Repository
	notifier Notifier
	now      func() time.Time
}

func NewIncidentManager(repo Repository, notifier Notifier) *IncidentManager {
	return &IncidentManager{repo: repo, notifier: notifier, now: utcNow}
}

// Handle writes the health check, updates the monitor, then fires alerts and
// opens or resolves the incident. Writes for one monitor happen in that order.
func (im *IncidentManager) Handle(ctx context.Context, m *model.Monitor, res CheckResult, checkedAt time.Time) (*Transition, error) {
	hc := &model.HealthCheck{
		MonitorID:      m.ID,
		Status:         res.Status,
		ResponseTimeMs: res.ResponseTimeMs,
		StatusCode:     res.StatusCode,
		ErrorMessage:   res.ErrorMessage,
		CheckedAt:      checkedAt,
	}
	if err := im.repo.InsertHealthCheck(ctx, hc); err != nil {
		return nil, fmt.Errorf("insert health check: %w", err)
	}

	prev := m.CurrentStatus
	if prev == "" {
		prev = model.StatusUnknown
	}
	if err := im.repo.UpdateMonitorStatus(ctx, m.ID, res.Status, checkedAt); err != nil {
		return nil, fmt.Errorf("update monitor status: %w", err)
	}

	tr := &Transition{From: prev, To: res.Status, HealthCheck: hc}

	switch {
	case res.Status == model.StatusDown:
		im.fireDownAlerts(ctx, m, res, tr)
		if prev != model.StatusDown {
			opened, err := im.openIncident(ctx, m, res, checkedAt)
			if err != nil {
				return tr, err
			}
			tr.IncidentOpened = opened
		}

	case res.Status == model.StatusUp && prev == model.StatusDown:
		im.fireRecoveryAlerts(ctx, m, tr)
		resolved, err := im.resolveIncident(ctx, m, checkedAt)
		if err != nil {
			return tr, err
		}
		tr.IncidentResolved = resolved
	}

	return tr, nil
}

func downAlertMessage(m *model.Monitor, res CheckResult) string {
	detail := "Unknown error"
	if res.ErrorMessage.Valid && res.ErrorMessage.String != "" {
		detail = res.ErrorMessage.String
	}
	return fmt.Sprintf("Monitor \"%s\" is DOWN: %s", m.Name, detail)
}

func recoveryAlertMessage(m *model.Monitor) string {
	return fmt.Sprintf("Monitor \"%s\" is now UP and running", m.Name)
}

func (im *IncidentManager) fireDownAlerts(ctx context.Context, m *model.Monitor, res CheckResult, tr *Transition) {
	rules, err := im.repo.ListAlertRules(ctx, m.ID, false)
	if err != nil {
		logger.Error("Failed to load alert rules", zap.String("monitor", m.Name), zap.Error(err))
		return
	}
	if len(rules) == 0 {
		return
	}

	message := downAlertMessage(m, res)
	reached := make(map[int]bool)
	for i := range rules {
		rule := &rules[i]
		threshold := rule.TriggerAfterFailures
		if threshold <= 0 {
			threshold = 1
		}

		fire, seen := reached[threshold]
		if !seen {
			recent, err := im.repo.RecentHealthChecks(ctx, m.ID, threshold+1)
			if err != nil {
				logger.Error("Failed to count recent failures", zap.String("monitor", m.Name), zap.Error(err))
				continue
			}
			fire = thresholdReached(recent, threshold)
			reached[threshold] = fire
		}
		if fire {
			im.dispatch(ctx, m, rule, model.StatusDown, message, tr)
		}
	}
}

// thresholdReached reports whether the newest n records are down and the
// run started exactly n records ago. recent is ordered newest first.
func thresholdReached(recent []model.HealthCheck, n int) bool {
	if len(recent) < n {
		return false
	}
	for i := 0; i < n; i++ {
		if recent[i].Status != model.StatusDown {
			return false
		}
	}
	return len(recent) == n || recent[n].Status != model.StatusDown
}

func (im *IncidentManager) fireRecoveryAlerts(ctx context.Context, m *model.Monitor, tr *Transition) {
	rules, err := im.repo.ListAlertRules(ctx, m.ID, true)
	if err != nil {
		logger.Error("Failed to load recovery alert rules", zap.String("monitor", m.Name), zap.Error(err))
		return
	}
	message := recoveryAlertMessage(m)
	for i := range rules {
		im.dispatch(ctx, m, &rules[i], model.StatusUp, message, tr)
	}
}

// dispatch sends one alert and records the attempt. Failures never propagate.
func (im *IncidentManager) dispatch(ctx context.Context, m *model.Monitor, rule *model.AlertRule, status model.MonitorStatus, message string, tr *Transition) {
	var err error
	if rule.Channel == nil {
		err = fmt.Errorf("notification channel %s not found", rule.ChannelID)
	} else {
		err = im.notifier.Send(ctx, rule.Channel, m, status, message)
	}

	entry := &model.AlertLog{
		MonitorID: m.ID,
		ChannelID: rule.ChannelID,
		Status:    model.AlertSent,
		Message:   message,
		SentAt:    im.now(),
	}
	if err != nil {
		entry.Status = model.AlertFailed
		entry.Message = fmt.Sprintf("%s (error: %s)", message, err.Error())
		tr.AlertsFailed++
		logger.Warn("Alert dispatch failed",
			zap.String("monitor", m.Name),
			zap.String("channel", rule.ChannelID),
			zap.Error(err))
	} else {
		tr.AlertsSent++
	}

	if err := im.repo.InsertAlertLog(ctx, entry); err != nil {
		logger.Error("Failed to write alert log", zap.String("monitor", m.Name), zap.Error(err))
	}
}

func (im *IncidentManager) openIncident(ctx context.Context, m *model.Monitor, res CheckResult, startedAt time.Time) (bool, error) {
	existing, err := im.repo.FindOpenIncident(ctx, m.ID)
	if err != nil {
		return false, fmt.Errorf("find open incident: %w", err)
	}
	if existing != nil {
		return false, nil
	}

	message := msgNotResponding
	if res.ErrorMessage.Valid && res.ErrorMessage.String != "" {
		message = res.ErrorMessage.String
	}
	monitorID := m.ID
	incident := &model.Incident{
		UserID:    m.UserID,
		MonitorID: &monitorID,
		Title:     fmt.Sprintf("%s is down", m.Name),
		Status:    model.IncidentInvestigating,
		Severity:  model.SeverityMajor,
		StartedAt: startedAt,
	}
	update := &model.IncidentUpdate{
		Status:  model.IncidentInvestigating,
		Message: message,
	}
	if err := im.repo.CreateIncident(ctx, incident, update); err != nil {
		return false, fmt.Errorf("create incident: %w", err)
	}
	logger.Info("Incident opened", zap.String("monitor", m.Name), zap.String("incident", incident.ID))
	return true, nil
}

func (im *IncidentManager) resolveIncident(ctx context.Context, m *model.Monitor, resolvedAt time.Time) (bool, error) {
	existing, err := im.repo.FindOpenIncident(ctx, m.ID)
	if err != nil {
		return false, fmt.Errorf("find open incident: %w", err)
	}
	if existing == nil {
		return false, nil
	}
	update := &model.IncidentUpdate{
		Status:  model.IncidentResolved,
		Message: msgRecovered,
	}
	if err := im.repo.ResolveIncident(ctx, existing, resolvedAt, update); err != nil {
		return false, fmt.Errorf("resolve incident: %w", err)
	}
	logger.Info("Incident resolved", zap.String("monitor", m.Name), zap.String("incident", existing.ID))
	return true, nil
}
