package monitor

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"api-monitor/model"
	"api-monitor/pkg/logger"

	"github.com/guregu/null/v5"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var (
	ErrAuthProfileNotFound = errors.New("auth profile not found")
	ErrChannelNotFound     = errors.New("channel not found")
)

const (
	MsgNoMonitors        = "No monitors to check"
	MsgNoMonitorsDue     = "No monitors due for check"
	MsgHealthCheckDone   = "Health check completed"
	testChannelMessage   = "This is a test notification from API Monitor. If you see this, your notification channel is configured correctly!"
	tokenPreviewLength   = 20
	defaultCycleDeadline = 5 * time.Minute
)

type Options struct {
	ProbeTimeout   time.Duration
	LoginTimeout   time.Duration
	SSLTimeout     time.Duration
	MaxConcurrency int
	// CycleInterval enables the in-process trigger when positive.
	CycleInterval time.Duration
}

type CycleSummary struct {
	Message    string `json:"message"`
	Checked    int    `json:"checked"`
	Successful int    `json:"successful"`
	Failed     int    `json:"failed"`
	Up         int    `json:"up"`
	Down       int    `json:"down"`
}

// Service runs health-check cycles and the ad-hoc test operations.
type Service struct {
	repo      Repository
	notifier  Notifier
	auth      *Authenticator
	checker   *Checker
	ssl       *SSLInspector
	incidents *IncidentManager
	opts      Options
	now       func() time.Time

	// OnHealthCheck is called after every persisted health check.
	OnHealthCheck func(hc *model.HealthCheck)

	cycleMu sync.Mutex

	mu        sync.Mutex
	lastCycle *CycleSummary
	lastRunAt time.Time

	stopCh   chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

func NewService(repo Repository, notifier Notifier, tokens TokenStore, opts Options) *Service {
	return &Service{
		repo:      repo,
		notifier:  notifier,
		auth:      NewAuthenticator(tokens, opts.LoginTimeout),
		checker:   NewChecker(opts.ProbeTimeout),
		ssl:       NewSSLInspector(opts.SSLTimeout),
		incidents: NewIncidentManager(repo, notifier),
		opts:      opts,
		now:       utcNow,
		stopCh:    make(chan struct{}),
	}
}

// Start runs cycles on a ticker when a cycle interval is configured.
func (s *Service) Start() {
	if s.opts.CycleInterval <= 0 {
		logger.Info("In-process scheduler disabled, waiting for external trigger")
		return
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(s.opts.CycleInterval)
		defer ticker.Stop()
		logger.Info("Scheduler started", zap.Duration("interval", s.opts.CycleInterval))

		for {
			select {
			case <-ticker.C:
				ctx, cancel := context.WithTimeout(context.Background(), defaultCycleDeadline)
				summary, err := s.RunCycle(ctx, false)
				cancel()
				if err != nil {
					logger.Error("Scheduled cycle failed", zap.Error(err))
					continue
				}
				logger.Debug("Scheduled cycle finished", zap.Int("checked", summary.Checked))
			case <-s.stopCh:
				logger.Info("Scheduler stopped")
				return
			}
		}
	}()
}

// Stop halts the scheduler and waits for a running cycle to finish.
func (s *Service) Stop() {
	s.stopOnce.Do(func() { close(s.stopCh) })
	s.wg.Wait()
}

func (s *Service) HealthCheck() map[string]any {
	s.mu.Lock()
	defer s.mu.Unlock()

	status := map[string]any{
		"status":    "healthy",
		"scheduler": s.opts.CycleInterval > 0,
	}
	if s.lastCycle != nil {
		status["last_cycle"] = s.lastCycle
		status["last_cycle_at"] = s.lastRunAt.UTC().Format(time.RFC3339)
	}
	return status
}

// tokenOutcome is the resolved login for one auth profile within a cycle.
type tokenOutcome struct {
	profile *model.AuthProfile
	token   string
	err     error
}

// RunCycle probes every due monitor (all of them when force is set) and
// returns once every monitor has been fully processed.
func (s *Service) RunCycle(ctx context.Context, force bool) (*CycleSummary, error) {
	s.cycleMu.Lock()
	defer s.cycleMu.Unlock()

	s.auth.ClearTokenCache(ctx)

	monitors, err := s.repo.ListMonitors(ctx)
	if err != nil {
		return nil, fmt.Errorf("list monitors: %w", err)
	}
	if len(monitors) == 0 {
		return s.record(&CycleSummary{Message: MsgNoMonitors}), nil
	}

	now := s.now()
	due := FilterDue(monitors, now, force)
	if len(due) == 0 {
		return s.record(&CycleSummary{Message: MsgNoMonitorsDue}), nil
	}

	tokens := s.resolveTokens(ctx, due)

	summary := &CycleSummary{Message: MsgHealthCheckDone, Checked: len(due)}
	var mu sync.Mutex

	var g errgroup.Group
	if s.opts.MaxConcurrency > 0 {
		g.SetLimit(s.opts.MaxConcurrency)
	}
	for i := range due {
		m := &due[i]
		g.Go(func() error {
			status, ok := s.checkMonitor(ctx, m, tokens, now)
			mu.Lock()
			defer mu.Unlock()
			if !ok {
				summary.Failed++
				return nil
			}
			summary.Successful++
			if status == model.StatusUp {
				summary.Up++
			} else {
				summary.Down++
			}
			return nil
		})
	}
	_ = g.Wait()

	logger.Info("Health check cycle completed",
		zap.Int("checked", summary.Checked),
		zap.Int("up", summary.Up),
		zap.Int("down", summary.Down),
		zap.Int("failed", summary.Failed))
	return s.record(summary), nil
}

func (s *Service) record(summary *CycleSummary) *CycleSummary {
	s.mu.Lock()
	s.lastCycle = summary
	s.lastRunAt = s.now()
	s.mu.Unlock()
	return summary
}

// resolveTokens logs in once per distinct auth profile used by monitors.
func (s *Service) resolveTokens(ctx context.Context, monitors []model.Monitor) map[string]*tokenOutcome {
	var ids []string
	seen := make(map[string]bool)
	for _, m := range monitors {
		if m.AuthProfileID == nil || seen[*m.AuthProfileID] {
			continue
		}
		seen[*m.AuthProfileID] = true
		ids = append(ids, *m.AuthProfileID)
	}

	out := make(map[string]*tokenOutcome, len(ids))
	if len(ids) == 0 {
		return out
	}

	profiles, err := s.repo.GetAuthProfiles(ctx, ids)
	if err != nil {
		logger.Error("Failed to load auth profiles", zap.Error(err))
		for _, id := range ids {
			out[id] = &tokenOutcome{err: fmt.Errorf("load auth profile: %w", err)}
		}
		return out
	}
	byID := make(map[string]*model.AuthProfile, len(profiles))
	for i := range profiles {
		byID[profiles[i].ID] = &profiles[i]
	}

	var mu sync.Mutex
	var g errgroup.Group
	for _, id := range ids {
		profile, ok := byID[id]
		if !ok {
			out[id] = &tokenOutcome{err: ErrAuthProfileNotFound}
			continue
		}
		g.Go(func() error {
			token, err := s.auth.GetToken(ctx, profile)
			if err != nil {
				logger.Warn("Auth profile login failed", zap.String("profile", profile.Name), zap.Error(err))
			}
			mu.Lock()
			out[id] = &tokenOutcome{profile: profile, token: token, err: err}
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()
	return out
}

func authFailedResult(err error) CheckResult {
	return CheckResult{
		Status:       model.StatusDown,
		ErrorMessage: null.StringFrom("Auth failed: " + err.Error()),
	}
}

// checkMonitor probes one monitor and persists the outcome. ok is false
// when persistence failed.
func (s *Service) checkMonitor(ctx context.Context, m *model.Monitor, tokens map[string]*tokenOutcome, now time.Time) (model.MonitorStatus, bool) {
	var res CheckResult
	if m.AuthProfileID != nil {
		t := tokens[*m.AuthProfileID]
		if t.err != nil {
			res = authFailedResult(t.err)
		} else {
			res = s.checker.Check(ctx, m, CheckOptions{AuthToken: t.token, AuthProfile: t.profile})
		}
	} else {
		res = s.checker.Check(ctx, m, CheckOptions{})
	}

	tr, err := s.incidents.Handle(ctx, m, res, now)
	if err != nil {
		logger.Error("Failed to process health check", zap.String("monitor", m.Name), zap.Error(err))
		return res.Status, false
	}
	if tr.From != tr.To {
		logger.Info("Monitor status changed",
			zap.String("monitor", m.Name),
			zap.String("from", string(tr.From)),
			zap.String("to", string(tr.To)))
	}
	if s.OnHealthCheck != nil {
		s.OnHealthCheck(tr.HealthCheck)
	}
	return res.Status, true
}

type URLTestRequest struct {
	URL           string
	Method        model.MonitorMethod
	SkipSSLVerify bool
	AuthProfileID *string
}

type SuggestedSettings struct {
	SkipSSLVerify *bool `json:"skip_ssl_verify,omitempty"`
}

type URLTestResult struct {
	Success           bool              `json:"success"`
	StatusCode        null.Int          `json:"status_code"`
	ResponseTimeMs    int64             `json:"response_time_ms"`
	SSLInfo           *SSLInfo          `json:"ssl_info"`
	ErrorMessage      string            `json:"error_message,omitempty"`
	SuggestedSettings SuggestedSettings `json:"suggested_settings"`
}

// TestURL probes a URL without persisting anything.
func (s *Service) TestURL(ctx context.Context, req URLTestRequest) (*URLTestResult, error) {
	var opts CheckOptions
	if req.AuthProfileID != nil && *req.AuthProfileID != "" {
		profile, err := s.repo.GetAuthProfile(ctx, *req.AuthProfileID)
		if err != nil {
			if errors.Is(err, model.ErrNotFound) {
				return nil, ErrAuthProfileNotFound
			}
			return nil, err
		}
		token, err := s.auth.GetToken(ctx, profile)
		if err != nil {
			return &URLTestResult{Success: false, ErrorMessage: "Auth failed: " + err.Error()}, nil
		}
		opts = CheckOptions{AuthToken: token, AuthProfile: profile}
	}

	method := req.Method
	if method == "" {
		method = model.MethodGet
	}
	probe := &model.Monitor{
		Name:          "Test",
		URL:           req.URL,
		Method:        method,
		SkipSSLVerify: req.SkipSSLVerify,
		CurrentStatus: model.StatusUnknown,
	}
	res := s.checker.Check(ctx, probe, opts)

	result := &URLTestResult{
		Success:        res.Status == model.StatusUp,
		StatusCode:     res.StatusCode,
		ResponseTimeMs: res.ResponseTimeMs.ValueOrZero(),
		ErrorMessage:   res.ErrorMessage.ValueOrZero(),
	}
	if strings.HasPrefix(req.URL, "https://") {
		info := s.ssl.CheckCertificate(ctx, req.URL)
		result.SSLInfo = &info
	}
	if !req.SkipSSLVerify && res.ErrorMessage.Valid && IsSSLError(res.ErrorMessage.String) {
		skip := true
		result.SuggestedSettings.SkipSSLVerify = &skip
	}
	return result, nil
}

// TestAuthProfile performs a fresh login and returns a token preview.
func (s *Service) TestAuthProfile(ctx context.Context, id string) (string, error) {
	profile, err := s.repo.GetAuthProfile(ctx, id)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return "", ErrAuthProfileNotFound
		}
		return "", err
	}
	token, err := s.auth.FetchToken(ctx, profile)
	if err != nil {
		return "", err
	}
	return truncate(token, tokenPreviewLength) + "...", nil
}

// TestChannel sends a fixed message through a channel for a placeholder monitor.
func (s *Service) TestChannel(ctx context.Context, id string) error {
	channel, err := s.repo.GetChannel(ctx, id)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return ErrChannelNotFound
		}
		return err
	}
	now := s.now()
	placeholder := &model.Monitor{
		ID:              "test-monitor",
		Name:            "Test Monitor",
		URL:             "https://example.com",
		Method:          model.MethodGet,
		IntervalSeconds: 300,
		CurrentStatus:   model.StatusUp,
		LastCheckedAt:   &now,
	}
	return s.notifier.Send(ctx, channel, placeholder, model.StatusUp, testChannelMessage)
}

// SmartDefaults suggests settings for a new monitor on rawURL.
func (s *Service) SmartDefaults(ctx context.Context, rawURL string) SmartDefaults {
	profiles, err := s.repo.ListAuthProfiles(ctx)
	if err != nil {
		// suggestions still work without profile matches
		logger.Warn("Failed to load auth profiles for smart defaults", zap.Error(err))
		profiles = nil
	}
	return GenerateSmartDefaults(rawURL, profiles)
}
