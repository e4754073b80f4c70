package runner

import (
	"bytes"
	"context"
	"crypto/tls"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/pkg/errors"

	"vuload/internal/stats"
)

// Requester executes one request and reports it as a sample. Failures are part of the
// sample and are never returned as errors.
type Requester interface {
	Do(ctx context.Context) stats.Sample
}

// HTTPRequester issues the configured request with a shared client.
//
// Latency runs from just before the request is dispatched until the response body has
// been fully read. When no idle keep-alive connection is available, that includes dialing
// and the TLS handshake.
type HTTPRequester struct {
	method       string
	url          string
	headers      http.Header
	body         []byte
	failOnStatus bool
	client       *http.Client
}

func NewHTTPRequester(cfg Config) *HTTPRequester {
	h := make(http.Header, len(cfg.Headers))
	for k, v := range cfg.Headers {
		h.Set(k, v)
	}
	var body []byte
	if cfg.Body != "" {
		body = []byte(cfg.Body)
	}
	return &HTTPRequester{
		method:       strings.ToUpper(cfg.Method),
		url:          cfg.URL,
		headers:      h,
		body:         body,
		failOnStatus: cfg.FailOnStatus,
		client:       newHTTPClient(cfg),
	}
}

func newHTTPClient(cfg Config) *http.Client {
	conns := cfg.VUs
	if conns < 1 {
		conns = 1
	}
	t := http.DefaultTransport.(*http.Transport).Clone()
	t.MaxIdleConns = conns
	t.MaxConnsPerHost = conns
	t.MaxIdleConnsPerHost = conns
	t.DisableKeepAlives = cfg.NoConnectionReuse
	t.DialContext = (&net.Dialer{
		Timeout:   10 * time.Second,
		KeepAlive: 30 * time.Second,
	}).DialContext
	if cfg.InsecureSkipTLSVerify {
		t.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}
	}

	return &http.Client{
		Timeout:   cfg.Timeout,
		Transport: t,
	}
}

func (r *HTTPRequester) Do(ctx context.Context) stats.Sample {
	var body io.Reader
	if len(r.body) > 0 {
		body = bytes.NewReader(r.body)
	}
	req, err := http.NewRequestWithContext(ctx, r.method, r.url, body)
	if err != nil {
		return stats.Sample{Timestamp: time.Now(), Outcome: stats.OutcomeNetwork, Err: errors.Wrap(err, "building request")}
	}
	for k, v := range r.headers {
		req.Header[k] = v
	}

	start := time.Now()
	resp, err := r.client.Do(req)
	if err != nil {
		return stats.Sample{Timestamp: start, Latency: time.Since(start), Outcome: classify(err), Err: err}
	}
	n, err := io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
	latency := time.Since(start)

	s := stats.Sample{
		Timestamp: start,
		Latency:   latency,
		Status:    resp.StatusCode,
		Bytes:     n,
	}
	switch {
	case err != nil:
		s.Outcome, s.Err = classify(err), errors.Wrap(err, "reading response body")
	case r.failOnStatus && (resp.StatusCode < 200 || resp.StatusCode >= 400):
		s.Outcome, s.Err = stats.OutcomeStatus, errors.Errorf("unexpected status %d", resp.StatusCode)
	default:
		s.Outcome = stats.OutcomeSuccess
	}
	return s
}

// classify maps a transport error to timeout or network.
func classify(err error) stats.Outcome {
	if errors.Is(err, context.DeadlineExceeded) {
		return stats.OutcomeTimeout
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return stats.OutcomeTimeout
	}
	return stats.OutcomeNetwork
}
