package db

import (
	"context"
	"time"

	"api-monitor/model"

	"github.com/pkg/errors"
	"gorm.io/gorm"
)

const MaxHistoryLimit = 1000

// UptimeStats summarises a monitor's health checks over a window.
type UptimeStats struct {
	Total         int64   `json:"total"`
	Up            int64   `json:"up"`
	UptimePercent float64 `json:"uptime_percent"`
	AvgResponseMs float64 `json:"avg_response_ms"`
}

// ListHealthChecks returns the monitor's records since the given time, newest first.
func (s *Store) ListHealthChecks(ctx context.Context, monitorID string, since time.Time, limit int) ([]model.HealthCheck, error) {
	if limit <= 0 || limit > MaxHistoryLimit {
		limit = MaxHistoryLimit
	}
	var checks []model.HealthCheck
	err := s.db.WithContext(ctx).
		Where("monitor_id = ? AND checked_at >= ?", monitorID, since).
		Order("checked_at DESC").
		Limit(limit).
		Find(&checks).Error
	if err != nil {
		return nil, errors.Wrap(err, "list health checks")
	}
	return checks, nil
}

// GetUptimeStats 统计时间窗口内的可用率和平均响应时间
// 无数据时可用率按 100% 计算，平均响应只统计 up 记录
func (s *Store) GetUptimeStats(ctx context.Context, monitorID string, since time.Time) (UptimeStats, error) {
	var stats UptimeStats
	base := s.db.WithContext(ctx).Model(&model.HealthCheck{}).
		Where("monitor_id = ? AND checked_at >= ?", monitorID, since)

	if err := base.Session(&gorm.Session{}).Count(&stats.Total).Error; err != nil {
		return stats, errors.Wrap(err, "count health checks")
	}
	if stats.Total == 0 {
		stats.UptimePercent = 100.0
		return stats, nil
	}

	if err := base.Session(&gorm.Session{}).Where("status = ?", model.StatusUp).Count(&stats.Up).Error; err != nil {
		return stats, errors.Wrap(err, "count up checks")
	}
	stats.UptimePercent = float64(stats.Up) / float64(stats.Total) * 100.0

	err := base.Session(&gorm.Session{}).
		Where("status = ? AND response_time_ms IS NOT NULL", model.StatusUp).
		Select("COALESCE(AVG(response_time_ms), 0)").
		Row().Scan(&stats.AvgResponseMs)
	if err != nil {
		return stats, errors.Wrap(err, "average response time")
	}
	return stats, nil
}
