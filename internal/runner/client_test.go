package runner

import (
	"context"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vuload/internal/dummy"
	"vuload/internal/stats"
)

func newTarget(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(dummy.NewHandler(dummy.ServerConfig{}))
	t.Cleanup(srv.Close)
	return srv
}

func requesterFor(url string, mutate ...func(*Config)) *HTTPRequester {
	cfg := Config{URL: url, VUs: 1, Duration: time.Second}
	for _, m := range mutate {
		m(&cfg)
	}
	return NewHTTPRequester(cfg.WithDefaults())
}

func TestHTTPRequester_Success(t *testing.T) {
	srv := newTarget(t)
	s := requesterFor(srv.URL + "/hello").Do(context.Background())

	assert.Equal(t, stats.OutcomeSuccess, s.Outcome)
	assert.Equal(t, http.StatusOK, s.Status)
	assert.EqualValues(t, len("Hello, world!"), s.Bytes)
	assert.Positive(t, s.Latency)
	assert.NoError(t, s.Err)
	assert.False(t, s.Timestamp.IsZero())
}

func TestHTTPRequester_StatusIsSuccessByDefault(t *testing.T) {
	srv := newTarget(t)
	s := requesterFor(srv.URL + "/status/500").Do(context.Background())

	assert.Equal(t, stats.OutcomeSuccess, s.Outcome)
	assert.Equal(t, http.StatusInternalServerError, s.Status)
}

func TestHTTPRequester_FailOnStatus(t *testing.T) {
	srv := newTarget(t)
	failing := func(c *Config) { c.FailOnStatus = true }

	s := requesterFor(srv.URL+"/status/500", failing).Do(context.Background())
	assert.Equal(t, stats.OutcomeStatus, s.Outcome)
	assert.Error(t, s.Err)

	s = requesterFor(srv.URL+"/status/404", failing).Do(context.Background())
	assert.Equal(t, stats.OutcomeStatus, s.Outcome)

	s = requesterFor(srv.URL+"/status/204", failing).Do(context.Background())
	assert.Equal(t, stats.OutcomeSuccess, s.Outcome)

	s = requesterFor(srv.URL+"/status/302", failing).Do(context.Background())
	assert.Equal(t, stats.OutcomeSuccess, s.Outcome, "3xx without Location is returned as-is")
}

func TestHTTPRequester_Timeout(t *testing.T) {
	srv := newTarget(t)
	r := requesterFor(srv.URL+"/slow?ms=2000", func(c *Config) { c.Timeout = 50 * time.Millisecond })

	s := r.Do(context.Background())
	assert.Equal(t, stats.OutcomeTimeout, s.Outcome)
	assert.Error(t, s.Err)
	assert.Less(t, s.Latency, time.Second)
}

func TestHTTPRequester_NetworkFailure(t *testing.T) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := l.Addr().String()
	require.NoError(t, l.Close())

	s := requesterFor("http://" + addr + "/").Do(context.Background())
	assert.Equal(t, stats.OutcomeNetwork, s.Outcome)
	assert.Error(t, s.Err)
}

func TestHTTPRequester_MethodHeadersBody(t *testing.T) {
	var gotMethod, gotHeader, gotBody string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotHeader = r.Header.Get("X-Test")
		b, _ := io.ReadAll(r.Body)
		gotBody = string(b)
	}))
	defer srv.Close()

	r := requesterFor(srv.URL, func(c *Config) {
		c.Method = "post"
		c.Headers = map[string]string{"x-test": "yes"}
		c.Body = `{"a":1}`
	})
	for i := 0; i < 2; i++ {
		s := r.Do(context.Background())
		require.Equal(t, stats.OutcomeSuccess, s.Outcome)
		assert.Equal(t, http.MethodPost, gotMethod)
		assert.Equal(t, "yes", gotHeader)
		assert.Equal(t, `{"a":1}`, gotBody, "body is re-sent on every request")
	}
}

func TestNewHTTPClient_Transport(t *testing.T) {
	c := newHTTPClient(Config{VUs: 4, Timeout: 3 * time.Second, NoConnectionReuse: true})
	assert.Equal(t, 3*time.Second, c.Timeout)
	tr, ok := c.Transport.(*http.Transport)
	require.True(t, ok)
	assert.True(t, tr.DisableKeepAlives)
	assert.Equal(t, 4, tr.MaxIdleConnsPerHost)
	assert.True(t, tr.TLSClientConfig == nil || !tr.TLSClientConfig.InsecureSkipVerify)

	c = newHTTPClient(Config{VUs: 1, InsecureSkipTLSVerify: true})
	tr = c.Transport.(*http.Transport)
	assert.True(t, tr.TLSClientConfig.InsecureSkipVerify)
	assert.False(t, tr.DisableKeepAlives)
}
