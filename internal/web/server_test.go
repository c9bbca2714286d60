package web

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"codeberg.org/mutker/fanctl/internal/fan"
	"codeberg.org/mutker/fanctl/internal/gpio"
	"codeberg.org/mutker/fanctl/internal/sensor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T, mode fan.Mode) (*httptest.Server, *Server, *fan.Controller) {
	t.Helper()

	cfg := fan.DefaultConfig()
	cfg.InitialMode = mode
	cfg.DefaultFrequency = 5
	ctrl, err := fan.New(sensor.NewFake(30000), gpio.NewFake(), cfg)
	require.NoError(t, err)

	reg := prometheus.NewRegistry()
	reg.MustRegister(prometheus.NewGauge(prometheus.GaugeOpts{Name: "fanctl_test_gauge", Help: "test"}))

	srv := New(":0", ctrl, reg)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)

	return ts, srv, ctrl
}

func do(t *testing.T, method, url, body string) (*http.Response, string) {
	t.Helper()

	req, err := http.NewRequest(method, url, strings.NewReader(body))
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	return resp, string(data)
}

func decodeError(t *testing.T, body string) JSONError {
	t.Helper()
	var e JSONError
	require.NoError(t, json.Unmarshal([]byte(body), &e))
	return e
}

func TestReadWriteFrequency(t *testing.T) {
	ts, _, ctrl := newTestServer(t, fan.ModeManual)

	resp, body := do(t, http.MethodGet, ts.URL+"/api/attributes/frequency", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "5\n", body)
	assert.Equal(t, "0", resp.Header.Get(versionHeader))

	resp, _ = do(t, http.MethodPut, ts.URL+"/api/attributes/frequency", "9\n")
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.Equal(t, fan.Frequency(9), ctrl.Frequency())

	resp, body = do(t, http.MethodGet, ts.URL+"/api/attributes/frequency", "")
	assert.Equal(t, "9\n", body)
	assert.Equal(t, "1", resp.Header.Get(versionHeader))
}

func TestWriteErrors(t *testing.T) {
	ts, _, _ := newTestServer(t, fan.ModeAutomatic)

	resp, body := do(t, http.MethodPut, ts.URL+"/api/attributes/frequency", "7")
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, "mode_conflict", decodeError(t, body).Error)

	resp, body = do(t, http.MethodPut, ts.URL+"/api/attributes/mode", "turbo")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "invalid_argument", decodeError(t, body).Error)

	resp, body = do(t, http.MethodGet, ts.URL+"/api/attributes/speed", "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "unknown_attribute", decodeError(t, body).Error)

	resp, _ = do(t, http.MethodGet, ts.URL+"/api/attributes/mode?wait=x", "")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestBlockingRead(t *testing.T) {
	ts, _, ctrl := newTestServer(t, fan.ModeAutomatic)

	type result struct {
		body    string
		version string
	}
	results := make(chan result, 1)
	go func() {
		resp, err := http.Get(ts.URL + "/api/attributes/mode?wait=0")
		if err != nil {
			results <- result{}
			return
		}
		defer resp.Body.Close()
		data, _ := io.ReadAll(resp.Body)
		results <- result{string(data), resp.Header.Get(versionHeader)}
	}()

	time.Sleep(50 * time.Millisecond)
	require.NoError(t, ctrl.SetMode(fan.ModeManual))

	select {
	case r := <-results:
		assert.Equal(t, "manual\n", r.body)
		assert.Equal(t, "1", r.version)
	case <-time.After(2 * time.Second):
		t.Fatal("blocking read did not return")
	}
}

func TestBlockingReadTimeout(t *testing.T) {
	ts, srv, _ := newTestServer(t, fan.ModeManual)
	srv.pollTimeout = 50 * time.Millisecond

	resp, body := do(t, http.MethodGet, ts.URL+"/api/attributes/frequency?wait=0", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "5\n", body)
	assert.Equal(t, "0", resp.Header.Get(versionHeader))
}

func TestStatus(t *testing.T) {
	ts, _, _ := newTestServer(t, fan.ModeManual)

	resp, body := do(t, http.MethodGet, ts.URL+"/api/status", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))

	var st Status
	require.NoError(t, json.Unmarshal([]byte(body), &st))
	assert.Equal(t, Status{Frequency: 5, Mode: "manual", Running: false, PeriodMS: 100}, st)
}

func TestMetricsEndpoint(t *testing.T) {
	ts, _, _ := newTestServer(t, fan.ModeManual)

	resp, body := do(t, http.MethodGet, ts.URL+"/metrics", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "fanctl_test_gauge")
}

func TestServeShutsDown(t *testing.T) {
	_, srv, _ := newTestServer(t, fan.ModeManual)
	srv.httpServer.Addr = "127.0.0.1:0"

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Run(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("server did not shut down")
	}
}
