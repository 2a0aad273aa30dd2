package probe

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/pulsegarden/pulsegarden/internal/domain"
)

// Config contains HTTP executor configuration.
type Config struct {
	UserAgent    string
	SSLTimeout   time.Duration
	MaxBodyBytes int64
}

// HTTPExecutor checks monitors over HTTP and HTTPS.
type HTTPExecutor struct {
	cfg    Config
	client *http.Client
	now    func() time.Time
}

// NewHTTPExecutor creates an executor with its own HTTP client. The client
// carries no global timeout; each check is bounded by the monitor's own
// timeout via context.
func NewHTTPExecutor(cfg Config) *HTTPExecutor {
	if cfg.UserAgent == "" {
		cfg.UserAgent = "pulsegarden-monitor/1.0"
	}
	if cfg.SSLTimeout <= 0 {
		cfg.SSLTimeout = 10 * time.Second
	}
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = 512 << 10
	}

	return &HTTPExecutor{
		cfg: cfg,
		client: &http.Client{
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 2,
				IdleConnTimeout:     90 * time.Second,
				TLSHandshakeTimeout: 10 * time.Second,
			},
		},
		now: time.Now,
	}
}

// Check runs one probe against the monitor. See Executor.
func (e *HTTPExecutor) Check(ctx context.Context, m *domain.Monitor) (*domain.CheckResult, error) {
	switch m.Kind {
	case domain.ProbeKindHTTP, domain.ProbeKindHTTPS:
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedKind, m.Kind)
	}
	return e.checkHTTP(ctx, m), nil
}

func (e *HTTPExecutor) checkHTTP(ctx context.Context, m *domain.Monitor) *domain.CheckResult {
	res := &domain.CheckResult{
		MonitorID:     m.ID,
		Status:        domain.CheckStatusSuccess,
		MonitorStatus: domain.MonitorStatusUp,
		CheckedAt:     e.now().UTC(),
	}

	reqCtx, cancel := context.WithTimeout(ctx, m.Timeout())
	defer cancel()

	req, err := e.buildRequest(reqCtx, m)
	if err != nil {
		// The URL was validated when the monitor was registered; a build
		// failure here is unexpected, not a target problem.
		res.Status = domain.CheckStatusError
		res.MonitorStatus = domain.MonitorStatusDown
		res.ErrorMessage = err.Error()
		return res
	}

	start := time.Now()
	resp, err := e.client.Do(req)
	elapsed := time.Since(start).Milliseconds()
	if err != nil {
		e.classifyTransportError(res, err)
		return res
	}
	defer resp.Body.Close()

	// The request completed, so name resolution necessarily worked.
	res.DNSResolved = true
	res.ResponseTimeMS = &elapsed
	code := resp.StatusCode
	res.StatusCode = &code

	if code != m.ExpectedStatus {
		fail(res, fmt.Sprintf("Expected status %d, got %d", m.ExpectedStatus, code))
	}

	if m.Keyword != "" {
		body, readErr := io.ReadAll(io.LimitReader(resp.Body, e.cfg.MaxBodyBytes))
		if readErr != nil {
			fail(res, fmt.Sprintf("failed to read response body: %v", readErr))
		} else {
			found := strings.Contains(string(body), m.Keyword)
			res.KeywordFound = &found
			if !found {
				fail(res, fmt.Sprintf("Keyword %q not found in response body", m.Keyword))
			}
		}
	} else {
		// Drain so the connection can be reused.
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, e.cfg.MaxBodyBytes))
	}

	// The TLS check runs against the parent context: it is bounded by its
	// own timeout, not by the monitor's probe timeout.
	if m.CheckSSL && strings.HasPrefix(strings.ToLower(m.URL), "https://") {
		e.checkSSL(ctx, m, res)
	}

	return res
}

func (e *HTTPExecutor) buildRequest(ctx context.Context, m *domain.Monitor) (*http.Request, error) {
	method := strings.ToUpper(m.Method)
	if method == "" {
		method = http.MethodGet
	}

	var body io.Reader
	if method == http.MethodPost && m.Body != "" {
		body = strings.NewReader(m.Body)
	}

	req, err := http.NewRequestWithContext(ctx, method, m.URL, body)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}

	req.Header.Set("User-Agent", e.cfg.UserAgent)
	for name, value := range m.Headers {
		req.Header.Set(name, value)
	}

	return req, nil
}

// classifyTransportError converts a failed request into the check taxonomy:
// transport timeouts become timeout, resolvable network problems become
// failure, anything else becomes error. All of them derive status down.
func (e *HTTPExecutor) classifyTransportError(res *domain.CheckResult, err error) {
	res.MonitorStatus = domain.MonitorStatusDown
	res.ErrorMessage = err.Error()

	var netErr net.Error
	var dnsErr *net.DNSError
	var opErr *net.OpError

	switch {
	case errors.Is(err, context.DeadlineExceeded):
		res.Status = domain.CheckStatusTimeout
	case errors.As(err, &netErr) && netErr.Timeout():
		res.Status = domain.CheckStatusTimeout
	case errors.As(err, &dnsErr), errors.As(err, &opErr):
		res.Status = domain.CheckStatusFailure
	default:
		res.Status = domain.CheckStatusError
	}
}

func fail(res *domain.CheckResult, message string) {
	res.Status = domain.CheckStatusFailure
	res.MonitorStatus = domain.MonitorStatusDown
	if res.ErrorMessage == "" {
		res.ErrorMessage = message
	}
}
