package probe

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"net/url"
	"time"

	"github.com/pulsegarden/pulsegarden/internal/domain"
)

// checkSSL opens a raw TLS connection to the monitor's host, retrieves the
// peer certificate, and treats it as valid iff its notAfter is in the
// future. Any socket or certificate error makes the check invalid and forces
// the result down.
func (e *HTTPExecutor) checkSSL(ctx context.Context, m *domain.Monitor, res *domain.CheckResult) {
	valid, expiresAt, err := e.certificateExpiry(ctx, m.URL)
	res.SSLValid = &valid
	res.SSLExpiresAt = expiresAt

	if valid {
		return
	}
	if err != nil {
		fail(res, fmt.Sprintf("SSL check failed: %v", err))
		return
	}
	msg := "SSL certificate is expired"
	if expiresAt != nil {
		msg = fmt.Sprintf("SSL certificate expired on %s", expiresAt.UTC().Format(time.RFC3339))
	}
	fail(res, msg)
}

func (e *HTTPExecutor) certificateExpiry(ctx context.Context, rawURL string) (bool, *time.Time, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false, nil, err
	}
	host := u.Hostname()
	port := u.Port()
	if port == "" {
		port = "443"
	}

	dialCtx, cancel := context.WithTimeout(ctx, e.cfg.SSLTimeout)
	defer cancel()

	dialer := &tls.Dialer{
		NetDialer: &net.Dialer{Timeout: e.cfg.SSLTimeout},
		// Expiry is the property under test; let the handshake complete
		// even for certificates a browser would reject.
		Config: &tls.Config{ServerName: host, InsecureSkipVerify: true},
	}

	conn, err := dialer.DialContext(dialCtx, "tcp", net.JoinHostPort(host, port))
	if err != nil {
		return false, nil, err
	}
	defer conn.Close()

	state := conn.(*tls.Conn).ConnectionState()
	if len(state.PeerCertificates) == 0 {
		return false, nil, errors.New("no peer certificate presented")
	}

	notAfter := state.PeerCertificates[0].NotAfter
	return notAfter.After(time.Now()), &notAfter, nil
}
