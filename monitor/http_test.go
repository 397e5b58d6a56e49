package monitor

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"api-monitor/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckClassifiesStatusCodes(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/ok":
			_, _ = io.WriteString(w, strings.Repeat("x", 64*1024))
		case "/redirect-final":
			w.WriteHeader(http.StatusNotModified)
		case "/missing":
			http.NotFound(w, r)
		default:
			w.WriteHeader(http.StatusServiceUnavailable)
		}
	}))
	defer srv.Close()

	c := NewChecker(time.Second)
	ctx := context.Background()

	res := c.Check(ctx, &model.Monitor{URL: srv.URL + "/ok"}, CheckOptions{})
	assert.Equal(t, model.StatusUp, res.Status)
	assert.Equal(t, int64(200), res.StatusCode.Int64)
	assert.True(t, res.ResponseTimeMs.Valid)
	assert.False(t, res.ErrorMessage.Valid)

	res = c.Check(ctx, &model.Monitor{URL: srv.URL + "/redirect-final"}, CheckOptions{})
	assert.Equal(t, model.StatusUp, res.Status)
	assert.Equal(t, int64(304), res.StatusCode.Int64)

	res = c.Check(ctx, &model.Monitor{URL: srv.URL + "/missing"}, CheckOptions{})
	assert.Equal(t, model.StatusDown, res.Status)
	assert.Equal(t, int64(404), res.StatusCode.Int64)
	assert.Equal(t, "HTTP 404: Not Found", res.ErrorMessage.String)

	res = c.Check(ctx, &model.Monitor{URL: srv.URL + "/busy"}, CheckOptions{})
	assert.Equal(t, "HTTP 503: Service Unavailable", res.ErrorMessage.String)
}

func TestCheckSendsHeaders(t *testing.T) {
	var gotAuth, gotUA, gotMethod string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("X-API-Key")
		gotUA = r.Header.Get("User-Agent")
		gotMethod = r.Method
	}))
	defer srv.Close()

	c := NewChecker(time.Second)
	profile := &model.AuthProfile{TokenType: model.TokenTypeAPIKey, HeaderName: "X-API-Key"}
	res := c.Check(context.Background(), &model.Monitor{URL: srv.URL, Method: model.MethodHead}, CheckOptions{AuthToken: "k1", AuthProfile: profile})

	assert.Equal(t, model.StatusUp, res.Status)
	assert.Equal(t, "k1", gotAuth)
	assert.Equal(t, UserAgent, gotUA)
	assert.Equal(t, http.MethodHead, gotMethod)
}

func TestCheckTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer srv.Close()

	c := NewChecker(150 * time.Millisecond)
	res := c.Check(context.Background(), &model.Monitor{URL: srv.URL}, CheckOptions{})

	assert.Equal(t, model.StatusDown, res.Status)
	assert.False(t, res.StatusCode.Valid)
	assert.Equal(t, "Request timeout after 150ms", res.ErrorMessage.String)
	assert.GreaterOrEqual(t, res.ResponseTimeMs.Int64, int64(150))
}

func TestCheckUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c := NewChecker(time.Second)
	res := c.Check(context.Background(), &model.Monitor{URL: url}, CheckOptions{})

	assert.Equal(t, model.StatusDown, res.Status)
	assert.False(t, res.StatusCode.Valid)
	require.True(t, res.ErrorMessage.Valid)
	assert.NotEmpty(t, res.ErrorMessage.String)
	assert.True(t, res.ResponseTimeMs.Valid)
}

func TestCheckSkipSSLVerify(t *testing.T) {
	srv := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer srv.Close()

	c := NewChecker(time.Second)
	ctx := context.Background()

	res := c.Check(ctx, &model.Monitor{URL: srv.URL}, CheckOptions{})
	assert.Equal(t, model.StatusDown, res.Status)
	assert.False(t, res.StatusCode.Valid)
	assert.True(t, IsSSLError(res.ErrorMessage.String), res.ErrorMessage.String)

	res = c.Check(ctx, &model.Monitor{URL: srv.URL, SkipSSLVerify: true}, CheckOptions{})
	assert.Equal(t, model.StatusUp, res.Status)
	assert.Equal(t, int64(200), res.StatusCode.Int64)

	// The verifying client is unaffected by the insecure one.
	res = c.Check(ctx, &model.Monitor{URL: srv.URL}, CheckOptions{})
	assert.Equal(t, model.StatusDown, res.Status)
}

func TestCheckInvalidURL(t *testing.T) {
	c := NewChecker(time.Second)
	res := c.Check(context.Background(), &model.Monitor{URL: "://bad"}, CheckOptions{})
	assert.Equal(t, model.StatusDown, res.Status)
	assert.True(t, res.ErrorMessage.Valid)
}

// newStalledTLSListener accepts TCP connections and never answers the TLS handshake.
func newStalledTLSListener(t *testing.T) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	var mu sync.Mutex
	var conns []net.Conn
	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			mu.Lock()
			conns = append(conns, conn)
			mu.Unlock()
		}
	}()
	t.Cleanup(func() {
		_ = ln.Close()
		mu.Lock()
		defer mu.Unlock()
		for _, c := range conns {
			_ = c.Close()
		}
	})
	return "https://" + ln.Addr().String()
}

func TestCheckStalledHandshakeUsesProbeTimeout(t *testing.T) {
	url := newStalledTLSListener(t)

	c := NewChecker(400 * time.Millisecond)
	start := time.Now()
	res := c.Check(context.Background(), &model.Monitor{URL: url}, CheckOptions{})
	elapsed := time.Since(start)

	assert.Equal(t, model.StatusDown, res.Status)
	assert.Equal(t, "Request timeout after 400ms", res.ErrorMessage.String)
	assert.GreaterOrEqual(t, elapsed, 400*time.Millisecond)
	assert.Less(t, elapsed, 3*time.Second)
}

func TestTransportHasNoHandshakeCap(t *testing.T) {
	for _, insecure := range []bool{false, true} {
		tr := newTransport(insecure)
		assert.Zero(t, tr.TLSHandshakeTimeout)
		assert.Zero(t, tr.ResponseHeaderTimeout)
	}
}

type layerTimeout struct{}

func (layerTimeout) Error() string   { return "proxyconnect tcp: i/o timeout" }
func (layerTimeout) Timeout() bool   { return true }
func (layerTimeout) Temporary() bool { return true }

func TestRequestErrorMessage(t *testing.T) {
	expired, cancel := context.WithTimeout(context.Background(), time.Nanosecond)
	defer cancel()
	<-expired.Done()

	assert.Equal(t, "Request timeout after 30000ms", requestErrorMessage(expired, context.DeadlineExceeded, 30*time.Second))
	assert.Equal(t, "proxyconnect tcp: i/o timeout", requestErrorMessage(context.Background(), layerTimeout{}, 30*time.Second))
	assert.Equal(t, "connection refused", requestErrorMessage(context.Background(), errors.New("connection refused"), time.Second))
}
