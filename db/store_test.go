package db

import (
	"context"
	"fmt"
	"testing"
	"time"

	"api-monitor/config"
	"api-monitor/model"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/guregu/null/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	store, err := Open(dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func seedMonitor(t *testing.T, store *Store, name string) *model.Monitor {
	t.Helper()
	m := &model.Monitor{Name: name, URL: "https://" + name + ".example.com", IntervalSeconds: 60}
	require.NoError(t, store.DB().Create(m).Error)
	return m
}

func TestMonitorDefaults(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	seedMonitor(t, store, "api")

	monitors, err := store.ListMonitors(ctx)
	require.NoError(t, err)
	require.Len(t, monitors, 1)
	assert.NotEmpty(t, monitors[0].ID)
	assert.Equal(t, model.StatusUnknown, monitors[0].CurrentStatus)
	assert.Equal(t, model.MethodGet, monitors[0].Method)
	assert.Nil(t, monitors[0].LastCheckedAt)
}

func TestUpdateMonitorStatus(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	m := seedMonitor(t, store, "api")

	at := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, store.UpdateMonitorStatus(ctx, m.ID, model.StatusDown, at))

	var got model.Monitor
	require.NoError(t, store.DB().First(&got, "id = ?", m.ID).Error)
	assert.Equal(t, model.StatusDown, got.CurrentStatus)
	require.NotNil(t, got.LastCheckedAt)
	assert.True(t, at.Equal(*got.LastCheckedAt))

	err := store.UpdateMonitorStatus(ctx, "missing", model.StatusUp, at)
	assert.ErrorIs(t, err, model.ErrNotFound)
}

func TestRecentHealthChecksNewestFirst(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	m := seedMonitor(t, store, "api")

	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	statuses := []model.MonitorStatus{model.StatusUp, model.StatusDown, model.StatusDown}
	for i, st := range statuses {
		require.NoError(t, store.InsertHealthCheck(ctx, &model.HealthCheck{
			MonitorID:      m.ID,
			Status:         st,
			ResponseTimeMs: null.IntFrom(int64(100 * (i + 1))),
			CheckedAt:      base.Add(time.Duration(i) * time.Minute),
		}))
	}

	recent, err := store.RecentHealthChecks(ctx, m.ID, 2)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.True(t, recent[0].CheckedAt.Equal(base.Add(2*time.Minute)))
	assert.True(t, recent[1].CheckedAt.Equal(base.Add(time.Minute)))
	assert.Equal(t, int64(300), recent[0].ResponseTimeMs.Int64)
	assert.False(t, recent[0].StatusCode.Valid)
}

func TestIncidentLifecycle(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	m := seedMonitor(t, store, "api")

	open, err := store.FindOpenIncident(ctx, m.ID)
	require.NoError(t, err)
	assert.Nil(t, open)

	monitorID := m.ID
	incident := &model.Incident{
		MonitorID: &monitorID,
		Title:     "api is down",
		Status:    model.IncidentInvestigating,
		Severity:  model.SeverityMajor,
		StartedAt: time.Now().UTC(),
	}
	require.NoError(t, store.CreateIncident(ctx, incident, &model.IncidentUpdate{
		Status:  model.IncidentInvestigating,
		Message: "HTTP 500: Internal Server Error",
	}))

	open, err = store.FindOpenIncident(ctx, m.ID)
	require.NoError(t, err)
	require.NotNil(t, open)
	assert.Equal(t, incident.ID, open.ID)

	resolvedAt := time.Now().UTC()
	require.NoError(t, store.ResolveIncident(ctx, open, resolvedAt, &model.IncidentUpdate{
		Status:  model.IncidentResolved,
		Message: "Monitor has recovered and is responding normally",
	}))
	assert.Equal(t, model.IncidentResolved, open.Status)

	open, err = store.FindOpenIncident(ctx, m.ID)
	require.NoError(t, err)
	assert.Nil(t, open)

	updates, err := store.ListIncidentUpdates(ctx, incident.ID)
	require.NoError(t, err)
	require.Len(t, updates, 2)
	assert.Equal(t, model.IncidentInvestigating, updates[0].Status)
	assert.Equal(t, model.IncidentResolved, updates[1].Status)

	var stored model.Incident
	require.NoError(t, store.DB().First(&stored, "id = ?", incident.ID).Error)
	assert.Equal(t, model.IncidentResolved, stored.Status)
	assert.NotNil(t, stored.ResolvedAt)
}

func TestListAlertRulesPreloadsChannel(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	m := seedMonitor(t, store, "api")

	channel := &model.NotificationChannel{
		Name:     "ops",
		Type:     model.ChannelSlack,
		Config:   model.StringMap{model.ConfigWebhookURL: "https://hooks.slack.test/x"},
		IsActive: true,
	}
	require.NoError(t, store.DB().Create(channel).Error)
	require.NoError(t, store.DB().Create(&model.AlertRule{MonitorID: m.ID, ChannelID: channel.ID, TriggerAfterFailures: 3}).Error)
	require.NoError(t, store.DB().Create(&model.AlertRule{MonitorID: m.ID, ChannelID: channel.ID, TriggerAfterFailures: 1, NotifyOnRecovery: true}).Error)

	rules, err := store.ListAlertRules(ctx, m.ID, false)
	require.NoError(t, err)
	require.Len(t, rules, 2)
	require.NotNil(t, rules[0].Channel)
	assert.Equal(t, "https://hooks.slack.test/x", rules[0].Channel.Config[model.ConfigWebhookURL])

	recovery, err := store.ListAlertRules(ctx, m.ID, true)
	require.NoError(t, err)
	require.Len(t, recovery, 1)
	assert.True(t, recovery[0].NotifyOnRecovery)
}

func TestInactiveChannelRoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	channel := &model.NotificationChannel{Name: "muted", Type: model.ChannelDiscord, IsActive: false}
	require.NoError(t, store.DB().Create(channel).Error)

	got, err := store.GetChannel(ctx, channel.ID)
	require.NoError(t, err)
	assert.False(t, got.IsActive)
	assert.NotNil(t, got.Config)

	_, err = store.GetChannel(ctx, "missing")
	assert.ErrorIs(t, err, model.ErrNotFound)
}

func TestAuthProfiles(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	a := &model.AuthProfile{Name: "a", LoginURL: "https://a.test/login", TokenPath: "token", LoginBody: model.StringMap{"user": "u"}}
	b := &model.AuthProfile{Name: "b", LoginURL: "https://b.test/login", TokenPath: "data.token"}
	require.NoError(t, store.DB().Create(a).Error)
	require.NoError(t, store.DB().Create(b).Error)

	got, err := store.GetAuthProfile(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, "u", got.LoginBody["user"])
	assert.Equal(t, model.TokenTypeBearer, got.TokenType)
	assert.Equal(t, "Authorization", got.HeaderName)

	many, err := store.GetAuthProfiles(ctx, []string{a.ID, b.ID, "missing"})
	require.NoError(t, err)
	assert.Len(t, many, 2)

	_, err = store.GetAuthProfile(ctx, "missing")
	assert.ErrorIs(t, err, model.ErrNotFound)
}

func TestUptimeStats(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	m := seedMonitor(t, store, "api")
	now := time.Now().UTC()

	stats, err := store.GetUptimeStats(ctx, m.ID, now.Add(-time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 100.0, stats.UptimePercent)

	checks := []model.HealthCheck{
		{MonitorID: m.ID, Status: model.StatusUp, ResponseTimeMs: null.IntFrom(100), CheckedAt: now.Add(-30 * time.Minute)},
		{MonitorID: m.ID, Status: model.StatusUp, ResponseTimeMs: null.IntFrom(300), CheckedAt: now.Add(-20 * time.Minute)},
		{MonitorID: m.ID, Status: model.StatusDown, CheckedAt: now.Add(-10 * time.Minute)},
		{MonitorID: m.ID, Status: model.StatusDown, CheckedAt: now.Add(-10 * time.Minute)},
		{MonitorID: m.ID, Status: model.StatusUp, ResponseTimeMs: null.IntFrom(999), CheckedAt: now.Add(-3 * time.Hour)},
	}
	for i := range checks {
		require.NoError(t, store.InsertHealthCheck(ctx, &checks[i]))
	}

	stats, err = store.GetUptimeStats(ctx, m.ID, now.Add(-time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(4), stats.Total)
	assert.Equal(t, int64(2), stats.Up)
	assert.InDelta(t, 50.0, stats.UptimePercent, 0.001)
	assert.InDelta(t, 200.0, stats.AvgResponseMs, 0.001)

	history, err := store.ListHealthChecks(ctx, m.ID, now.Add(-time.Hour), 0)
	require.NoError(t, err)
	assert.Len(t, history, 4)
}

func newTestRedisStore(t *testing.T) (*RedisTokenStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	store, err := NewRedisTokenStore(context.Background(), config.TokenCacheConfig{
		RedisAddr: mr.Addr(),
		KeyPrefix: "api-monitor:token:",
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store, mr
}

func TestRedisTokenStore(t *testing.T) {
	store, mr := newTestRedisStore(t)
	ctx := context.Background()

	_, ok := store.Load(ctx, "p1")
	assert.False(t, ok)

	entry := model.TokenCacheEntry{Token: "abc", ExpiresAt: time.Now().Add(time.Hour).UTC()}
	store.Save(ctx, "p1", entry)
	got, ok := store.Load(ctx, "p1")
	require.True(t, ok)
	assert.Equal(t, "abc", got.Token)
	assert.True(t, entry.ExpiresAt.Equal(got.ExpiresAt))

	ttl := mr.TTL("api-monitor:token:p1")
	assert.Greater(t, ttl, 59*time.Minute)
	assert.LessOrEqual(t, ttl, time.Hour)

	store.Save(ctx, "expired", model.TokenCacheEntry{Token: "old", ExpiresAt: time.Now().Add(-time.Minute)})
	assert.False(t, mr.Exists("api-monitor:token:expired"))

	mr.FastForward(2 * time.Hour)
	_, ok = store.Load(ctx, "p1")
	assert.False(t, ok)
}

func TestRedisTokenStoreCorruptEntry(t *testing.T) {
	store, mr := newTestRedisStore(t)

	require.NoError(t, mr.Set("api-monitor:token:bad", "{not json"))
	_, ok := store.Load(context.Background(), "bad")
	assert.False(t, ok)
}

func TestRedisTokenStoreClearKeepsOtherKeys(t *testing.T) {
	store, mr := newTestRedisStore(t)
	ctx := context.Background()

	for i := 0; i < 250; i++ {
		store.Save(ctx, fmt.Sprintf("p%d", i), model.TokenCacheEntry{Token: "t", ExpiresAt: time.Now().Add(time.Hour)})
	}
	require.NoError(t, mr.Set("other:key", "v"))

	store.Clear(ctx)

	_, ok := store.Load(ctx, "p0")
	assert.False(t, ok)
	assert.Len(t, mr.Keys(), 1)
	assert.True(t, mr.Exists("other:key"))
}

func TestNewRedisTokenStoreUnreachable(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	_, err := NewRedisTokenStore(context.Background(), config.TokenCacheConfig{RedisAddr: addr})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connect redis")
}
