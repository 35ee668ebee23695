package relay

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/GriffinCanCode/formfill/internal/extractor"
	"github.com/GriffinCanCode/formfill/internal/infrastructure/config"
)

func startRelay(t *testing.T, sessions SessionSource, proxy GenerationClient) (*Server, *httptest.Server) {
	t.Helper()
	srv := NewServer(config.Default(), sessions, proxy, nil)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(func() {
		_ = srv.Shutdown(context.Background())
		ts.Close()
		_ = srv.Close()
	})
	return srv, ts
}

func postTrigger(t *testing.T, ts *httptest.Server, body string) (int, string) {
	t.Helper()
	resp, err := http.Post(ts.URL+"/trigger", "application/json", strings.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, string(data)
}

func TestRelayOverWebsocket(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	srv, ts := startRelay(t, loggedIn(), succeed("Written over the wire."))

	doc, err := extractor.LoadString(pageHTML)
	require.NoError(t, err)
	n := &notices{}
	page := NewPage(doc, n.notify, nil)

	ctx, cancel := context.WithCancel(context.Background())
	conn, err := DialPage(ctx, ts.URL, Origin{TabID: 7}, page, nil)
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() { done <- conn.Run(ctx) }()

	require.Eventually(t, func() bool {
		return len(srv.Hub().Pages()) == 1
	}, 2*time.Second, 10*time.Millisecond)

	status, body := postTrigger(t, ts, `{"tabId":7,"frameId":0,"targetElementId":"bio"}`)
	assert.Equal(t, http.StatusAccepted, status, body)

	require.Eventually(t, func() bool {
		fc, ok := doc.Extract("bio")
		return ok && fc.CurrentValue != nil && *fc.CurrentValue == "Written over the wire."
	}, 2*time.Second, 10*time.Millisecond)

	status, body = postTrigger(t, ts, `{"tabId":7,"targetElementId":"agree"}`)
	assert.Equal(t, http.StatusAccepted, status, body)
	require.Eventually(t, func() bool { return len(n.all()) == 1 }, 2*time.Second, 10*time.Millisecond)

	cancel()
	require.NoError(t, <-done)
	require.NoError(t, srv.Shutdown(context.Background()))
	require.NoError(t, srv.Close())
	ts.Close()
	http.DefaultClient.CloseIdleConnections()
}

func TestTriggerValidation(t *testing.T) {
	_, ts := startRelay(t, loggedIn(), succeed("unused"))

	status, body := postTrigger(t, ts, `{"tabId":1}`)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Contains(t, body, "Invalid request")

	status, body = postTrigger(t, ts, `{"tabId":99,"targetElementId":"bio"}`)
	assert.Equal(t, http.StatusNotFound, status)
	assert.Contains(t, body, "no page connected")
}

func TestHealthReportsProxyBreaker(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer upstream.Close()

	_, ts := startRelay(t, loggedIn(), NewProxyClient(upstream.URL, time.Second))

	resp, err := http.Get(ts.URL + "/health")
	require.NoError(t, err)
	data, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"status":"healthy","pages":0,"proxy":"closed"}`, string(data))
}

func TestHealthAndPages(t *testing.T) {
	_, ts := startRelay(t, loggedIn(), succeed("unused"))

	resp, err := http.Get(ts.URL + "/health")
	require.NoError(t, err)
	data, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.JSONEq(t, `{"status":"healthy","pages":0}`, string(data))

	resp, err = http.Get(ts.URL + "/pages")
	require.NoError(t, err)
	data, _ = io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.JSONEq(t, `{"pages":[]}`, string(data))

	resp, err = http.Get(ts.URL + "/pages/ws?tab=abc")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestParseOrigin(t *testing.T) {
	o, err := parseOrigin("4", "2")
	require.NoError(t, err)
	assert.Equal(t, Origin{TabID: 4, FrameID: 2}, o)

	_, err = parseOrigin("", "0")
	assert.Error(t, err)
	_, err = parseOrigin("1", "top")
	assert.Error(t, err)
}
