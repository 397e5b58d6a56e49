package monitor

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"api-monitor/model"

	"github.com/guregu/null/v5"
)

const (
	DefaultProbeTimeout = 30 * time.Second
	UserAgent           = "API-Monitor/1.0"

	// maxDrainBytes caps how much of a response body is read before closing.
	maxDrainBytes = 1 << 20
)

// CheckResult is the outcome of a single probe.
type CheckResult struct {
	Status         model.MonitorStatus `json:"status"`
	ResponseTimeMs null.Int            `json:"response_time_ms"`
	StatusCode     null.Int            `json:"status_code"`
	ErrorMessage   null.String         `json:"error_message"`
}

type CheckOptions struct {
	AuthToken   string
	AuthProfile *model.AuthProfile
}

func newTransport(insecure bool) *http.Transport {
	return &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     90 * time.Second,
		// no dial or handshake caps: the per-request context deadline governs
		DialContext: (&net.Dialer{
			Timeout:   0,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSClientConfig: &tls.Config{InsecureSkipVerify: insecure},
	}
}

// httpClients holds one verifying and one non-verifying client, both shared.
type httpClients struct {
	verify   *http.Client
	insecure *http.Client
}

func newHTTPClients() httpClients {
	return httpClients{
		verify:   &http.Client{Transport: newTransport(false)},
		insecure: &http.Client{Transport: newTransport(true)},
	}
}

func (c httpClients) pick(skipVerify bool) *http.Client {
	if skipVerify {
		return c.insecure
	}
	return c.verify
}

// Checker probes monitor URLs.
type Checker struct {
	timeout time.Duration
	clients httpClients
}

func NewChecker(timeout time.Duration) *Checker {
	if timeout <= 0 {
		timeout = DefaultProbeTimeout
	}
	return &Checker{timeout: timeout, clients: newHTTPClients()}
}

// Check issues one request for m and classifies the outcome. It never
// returns an error; every failure is a down result.
func (c *Checker) Check(ctx context.Context, m *model.Monitor, opts CheckOptions) CheckResult {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	method := string(m.Method)
	if method == "" {
		method = string(model.MethodGet)
	}

	start := time.Now()
	req, err := http.NewRequestWithContext(ctx, method, m.URL, nil)
	if err != nil {
		return downResult(time.Since(start), err.Error())
	}
	req.Header.Set("User-Agent", UserAgent)
	if opts.AuthToken != "" && opts.AuthProfile != nil {
		name, value := BuildAuthHeader(opts.AuthProfile, opts.AuthToken)
		req.Header.Set(name, value)
	}

	resp, err := c.clients.pick(m.SkipSSLVerify).Do(req)
	if err != nil {
		return downResult(time.Since(start), requestErrorMessage(ctx, err, c.timeout))
	}
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxDrainBytes))
	resp.Body.Close()
	elapsed := time.Since(start)

	result := CheckResult{
		ResponseTimeMs: null.IntFrom(elapsed.Milliseconds()),
		StatusCode:     null.IntFrom(int64(resp.StatusCode)),
	}
	if resp.StatusCode >= 200 && resp.StatusCode < 400 {
		result.Status = model.StatusUp
		return result
	}
	result.Status = model.StatusDown
	result.ErrorMessage = null.StringFrom(fmt.Sprintf("HTTP %d: %s", resp.StatusCode, reasonPhrase(resp)))
	return result
}

func downResult(elapsed time.Duration, msg string) CheckResult {
	return CheckResult{
		Status:         model.StatusDown,
		ResponseTimeMs: null.IntFrom(elapsed.Milliseconds()),
		ErrorMessage:   null.StringFrom(msg),
	}
}

func reasonPhrase(resp *http.Response) string {
	// resp.Status is "404 Not Found"
	if _, reason, ok := strings.Cut(resp.Status, " "); ok && reason != "" {
		return reason
	}
	return http.StatusText(resp.StatusCode)
}

func timeoutMessage(timeout time.Duration) string {
	return fmt.Sprintf("Request timeout after %dms", timeout.Milliseconds())
}

// requestErrorMessage reports the configured timeout only when the request's
// own deadline fired. Timeouts raised by other layers keep their error text.
func requestErrorMessage(ctx context.Context, err error, timeout time.Duration) string {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return timeoutMessage(timeout)
	}
	return err.Error()
}
