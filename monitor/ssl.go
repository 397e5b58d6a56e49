package monitor

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"math"
	"net"
	"net/url"
	"strings"
	"time"
)

const DefaultSSLTimeout = 10 * time.Second

// sslErrorPatterns are matched case-insensitively against probe errors.
var sslErrorPatterns = []string{
	"self-signed certificate",
	"DEPTH_ZERO_SELF_SIGNED_CERT",
	"SELF_SIGNED_CERT_IN_CHAIN",
	"UNABLE_TO_VERIFY_LEAF_SIGNATURE",
	"certificate has expired",
	"CERT_HAS_EXPIRED",
	"unable to get local issuer certificate",
	"UNABLE_TO_GET_ISSUER_CERT_LOCALLY",
	"ERR_TLS_CERT_ALTNAME_INVALID",
	"hostname/IP does not match",
	// crypto/x509 and crypto/tls
	"x509:",
	"certificate signed by unknown authority",
	"certificate is valid for",
	"expired or is not yet valid",
	"tls: failed to verify certificate",
}

// IsSSLError reports whether msg describes a certificate problem.
func IsSSLError(msg string) bool {
	lower := strings.ToLower(msg)
	for _, p := range sslErrorPatterns {
		if strings.Contains(lower, strings.ToLower(p)) {
			return true
		}
	}
	return false
}

type SSLInfo struct {
	Valid           bool   `json:"valid"`
	Error           string `json:"error,omitempty"`
	ExpiresAt       string `json:"expires_at,omitempty"`
	DaysUntilExpiry *int   `json:"days_until_expiry,omitempty"`
	Issuer          string `json:"issuer,omitempty"`
	Subject         string `json:"subject,omitempty"`
	Warning         string `json:"warning,omitempty"`
}

// SSLInspector reads the leaf certificate presented by an HTTPS endpoint.
type SSLInspector struct {
	Timeout time.Duration
	// RootCAs overrides the system pool when set.
	RootCAs *x509.CertPool

	now func() time.Time
}

func NewSSLInspector(timeout time.Duration) *SSLInspector {
	if timeout <= 0 {
		timeout = DefaultSSLTimeout
	}
	return &SSLInspector{Timeout: timeout, now: time.Now}
}

// CheckCertificate never fails; problems are reported in the returned SSLInfo.
func (i *SSLInspector) CheckCertificate(ctx context.Context, rawURL string) SSLInfo {
	u, err := url.Parse(rawURL)
	if err != nil {
		return SSLInfo{Valid: false, Error: err.Error()}
	}
	if u.Scheme != "https" {
		return SSLInfo{Valid: true, Error: "Not an HTTPS URL - no SSL certificate to check"}
	}
	host := u.Hostname()
	if host == "" {
		return SSLInfo{Valid: false, Error: "URL has no host"}
	}
	port := u.Port()
	if port == "" {
		port = "443"
	}

	timeout := i.Timeout
	if timeout <= 0 {
		timeout = DefaultSSLTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	dialer := &tls.Dialer{
		NetDialer: &net.Dialer{},
		Config: &tls.Config{
			ServerName: host,
			RootCAs:    i.RootCAs,
		},
	}
	conn, err := dialer.DialContext(ctx, "tcp", net.JoinHostPort(host, port))
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return SSLInfo{Valid: false, Error: fmt.Sprintf("SSL check timeout after %dms", timeout.Milliseconds())}
		}
		return SSLInfo{Valid: false, Error: err.Error()}
	}
	defer conn.Close()

	certs := conn.(*tls.Conn).ConnectionState().PeerCertificates
	if len(certs) == 0 {
		return SSLInfo{Valid: false, Error: "No certificate provided"}
	}
	leaf := certs[0]

	now := time.Now
	if i.now != nil {
		now = i.now
	}
	days := int(math.Floor(leaf.NotAfter.Sub(now()).Hours() / 24))

	issuer := "Unknown"
	if len(leaf.Issuer.Organization) > 0 && leaf.Issuer.Organization[0] != "" {
		issuer = leaf.Issuer.Organization[0]
	} else if leaf.Issuer.CommonName != "" {
		issuer = leaf.Issuer.CommonName
	}
	subject := leaf.Subject.CommonName
	if subject == "" {
		subject = host
	}

	return SSLInfo{
		Valid:           true,
		ExpiresAt:       leaf.NotAfter.UTC().Format(time.RFC3339),
		DaysUntilExpiry: &days,
		Issuer:          issuer,
		Subject:         subject,
		Warning:         SSLExpiryWarning(days),
	}
}

// SSLExpiryWarning returns a human warning for certificates close to expiry, or "".
func SSLExpiryWarning(days int) string {
	switch {
	case days < 0:
		return "SSL certificate has expired"
	case days <= 7:
		suffix := "s"
		if days == 1 {
			suffix = ""
		}
		return fmt.Sprintf("SSL certificate expires in %d day%s", days, suffix)
	case days <= 30:
		return fmt.Sprintf("SSL certificate expires in %d days", days)
	}
	return ""
}
