package monitor

import (
	"context"
	"crypto/x509"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckCertificateNonHTTPS(t *testing.T) {
	info := NewSSLInspector(time.Second).CheckCertificate(context.Background(), "http://example.com")
	assert.True(t, info.Valid)
	assert.Equal(t, "Not an HTTPS URL - no SSL certificate to check", info.Error)
	assert.Nil(t, info.DaysUntilExpiry)
}

func TestCheckCertificateTrusted(t *testing.T) {
	srv := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer srv.Close()

	pool := x509.NewCertPool()
	pool.AddCert(srv.Certificate())

	inspector := NewSSLInspector(time.Second)
	inspector.RootCAs = pool
	info := inspector.CheckCertificate(context.Background(), srv.URL)

	require.True(t, info.Valid, info.Error)
	assert.Equal(t, "Acme Co", info.Issuer)
	assert.Equal(t, "127.0.0.1", info.Subject)
	require.NotNil(t, info.DaysUntilExpiry)
	assert.Greater(t, *info.DaysUntilExpiry, 0)
	assert.Empty(t, info.Warning)

	expires, err := time.Parse(time.RFC3339, info.ExpiresAt)
	require.NoError(t, err)
	assert.True(t, expires.Equal(srv.Certificate().NotAfter.Truncate(time.Second)))
}

func TestCheckCertificateExpiryDays(t *testing.T) {
	srv := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer srv.Close()

	pool := x509.NewCertPool()
	pool.AddCert(srv.Certificate())
	notAfter := srv.Certificate().NotAfter

	inspector := NewSSLInspector(time.Second)
	inspector.RootCAs = pool
	inspector.now = func() time.Time { return notAfter.Add(-36 * time.Hour) }

	info := inspector.CheckCertificate(context.Background(), srv.URL)
	require.True(t, info.Valid, info.Error)
	assert.Equal(t, 1, *info.DaysUntilExpiry)
	assert.Equal(t, "SSL certificate expires in 1 day", info.Warning)

	inspector.now = func() time.Time { return notAfter.Add(time.Hour) }
	info = inspector.CheckCertificate(context.Background(), srv.URL)
	assert.Equal(t, "SSL certificate has expired", info.Warning)
}

func TestCheckCertificateUntrusted(t *testing.T) {
	srv := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer srv.Close()

	info := NewSSLInspector(time.Second).CheckCertificate(context.Background(), srv.URL)
	assert.False(t, info.Valid)
	assert.True(t, IsSSLError(info.Error), info.Error)
}

func TestCheckCertificateUnreachable(t *testing.T) {
	srv := httptest.NewTLSServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	info := NewSSLInspector(time.Second).CheckCertificate(context.Background(), url)
	assert.False(t, info.Valid)
	assert.NotEmpty(t, info.Error)
}

func TestIsSSLError(t *testing.T) {
	positives := []string{
		"self-signed certificate in certificate chain",
		"Error: CERT_HAS_EXPIRED",
		"unable to get local issuer certificate",
		`Get "https://x": tls: failed to verify certificate: x509: certificate signed by unknown authority`,
		"x509: certificate is valid for a.example.com, not b.example.com",
		"x509: certificate has expired or is not yet valid",
	}
	for _, msg := range positives {
		assert.True(t, IsSSLError(msg), msg)
	}

	negatives := []string{"connection refused", "HTTP 500: Internal Server Error", "Request timeout after 30000ms"}
	for _, msg := range negatives {
		assert.False(t, IsSSLError(msg), msg)
	}
}

func TestSSLExpiryWarning(t *testing.T) {
	assert.Equal(t, "SSL certificate has expired", SSLExpiryWarning(-1))
	assert.Equal(t, "SSL certificate expires in 0 days", SSLExpiryWarning(0))
	assert.Equal(t, "SSL certificate expires in 1 day", SSLExpiryWarning(1))
	assert.Equal(t, "SSL certificate expires in 7 days", SSLExpiryWarning(7))
	assert.Equal(t, "SSL certificate expires in 30 days", SSLExpiryWarning(30))
	assert.Equal(t, "", SSLExpiryWarning(31))
}

func TestCheckCertificateStalledHandshake(t *testing.T) {
	url := newStalledTLSListener(t)

	info := NewSSLInspector(300*time.Millisecond).CheckCertificate(context.Background(), url)
	assert.False(t, info.Valid)
	assert.Equal(t, "SSL check timeout after 300ms", info.Error)
}
