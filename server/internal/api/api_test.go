package api_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	dto "github.com/prometheus/client_model/go"
	"github.com/prometheus/common/expfmt"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alertcore/alertcore/pkg/types"
	"github.com/alertcore/alertcore/server/internal/alerts"
	"github.com/alertcore/alertcore/server/internal/api"
	"github.com/alertcore/alertcore/server/internal/notify"
	"github.com/alertcore/alertcore/server/internal/store"
)

// --- test helpers -----------------------------------------------------------

type testClock struct{ t time.Time }

func (c *testClock) Now() time.Time { return c.t }

func (c *testClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

func newManager(t *testing.T, clock *testClock) *alerts.Manager {
	t.Helper()
	opts := alerts.Options{Executor: notify.Direct{}, Logger: zerolog.Nop()}
	if clock != nil {
		opts.Store = store.New(store.WithClock(clock.Now))
	}
	mgr := alerts.New(opts)
	t.Cleanup(mgr.Close)
	return mgr
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func get(t *testing.T, h http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	return do(t, h, http.MethodGet, path, "")
}

func decode(t *testing.T, rr *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.NoError(t, json.NewDecoder(rr.Body).Decode(v), "body: %s", rr.Body.String())
}

// --- health -----------------------------------------------------------------

func TestHealth_Empty(t *testing.T) {
	h := api.New(newManager(t, nil))
	rr := get(t, h, "/api/v1/health")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))

	var resp api.HealthResponse
	decode(t, rr, &resp)
	assert.Equal(t, "ok", resp.State)
	assert.Zero(t, resp.AlertCount)
	assert.Zero(t, resp.PendingCount)
	assert.NotEmpty(t, resp.GeneratedAt)
}

func TestHealth_Counts(t *testing.T) {
	mgr := newManager(t, nil)
	a := mgr.Create("disk", types.LevelMajor, "disk full", "")
	mgr.Create("cpu", types.LevelWarn, "cpu hot", "")
	_, err := mgr.ChangeState(a, types.StateHandled, "freed")
	require.NoError(t, err)

	var resp api.HealthResponse
	decode(t, get(t, api.New(mgr), "/api/v1/health"), &resp)
	assert.Equal(t, "attention", resp.State)
	assert.Equal(t, 2, resp.AlertCount)
	assert.Equal(t, 1, resp.PendingCount)
	assert.Equal(t, 1, resp.ByState["HANDLED"])
	assert.Equal(t, 1, resp.ByState["UNHANDLED"])
	assert.Equal(t, 1, resp.ByLevel["MAJOR"])
	assert.Equal(t, 1, resp.ByLevel["WARN"])
}

func TestHealth_MethodNotAllowed(t *testing.T) {
	rr := do(t, api.New(newManager(t, nil)), http.MethodPost, "/api/v1/health", "")
	assert.Equal(t, http.StatusMethodNotAllowed, rr.Code)
}

// --- alerts collection ------------------------------------------------------

func TestAlerts_CreateAndList(t *testing.T) {
	h := api.New(newManager(t, nil))

	rr := do(t, h, http.MethodPost, "/api/v1/alerts",
		`{"type":"disk","level":"critical","description":"disk full","content":"/var"}`)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	var created types.Alert
	decode(t, rr, &created)
	assert.False(t, created.ID.IsZero())
	assert.Equal(t, types.LevelCritical, created.Level)
	require.Len(t, created.Events, 1)
	assert.Equal(t, types.StateUnhandled, created.State())

	do(t, h, http.MethodPost, "/api/v1/alerts", `{"type":"cpu"}`)

	rr = get(t, h, "/api/v1/alerts")
	require.Equal(t, http.StatusOK, rr.Code)
	var list []types.Alert
	decode(t, rr, &list)
	require.Len(t, list, 2)
	assert.Equal(t, created.ID, list[0].ID)
	assert.Equal(t, "cpu", list[1].Type)
	assert.Equal(t, types.LevelInfo, list[1].Level, "empty level defaults to INFO")
}

func TestAlerts_EmptyListIsArray(t *testing.T) {
	rr := get(t, api.New(newManager(t, nil)), "/api/v1/alerts")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, "[]", rr.Body.String())
}

func TestAlerts_CreateValidation(t *testing.T) {
	h := api.New(newManager(t, nil))
	cases := map[string]string{
		"bad json":      `{"type":`,
		"missing type":  `{"level":"info"}`,
		"unknown level": `{"type":"x","level":"loud"}`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			rr := do(t, h, http.MethodPost, "/api/v1/alerts", body)
			assert.Equal(t, http.StatusBadRequest, rr.Code)
			var e map[string]string
			decode(t, rr, &e)
			assert.NotEmpty(t, e["error"])
		})
	}
}

func TestAlerts_Since(t *testing.T) {
	clock := &testClock{t: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
	mgr := newManager(t, clock)
	mgr.Create("a", types.LevelInfo, "", "")
	cut := clock.Now()
	clock.Advance(time.Second)
	b := mgr.Create("b", types.LevelInfo, "", "")

	rr := get(t, api.New(mgr), "/api/v1/alerts?since="+cut.Format(time.RFC3339Nano))
	require.Equal(t, http.StatusOK, rr.Code)
	var list []types.Alert
	decode(t, rr, &list)
	require.Len(t, list, 1)
	assert.Equal(t, b.ID, list[0].ID)
}

func TestAlerts_After(t *testing.T) {
	mgr := newManager(t, nil)
	a := mgr.Create("a", types.LevelInfo, "", "")
	b := mgr.Create("b", types.LevelInfo, "", "")
	c := mgr.Create("c", types.LevelInfo, "", "")
	h := api.New(mgr)

	var list []types.Alert
	decode(t, get(t, h, "/api/v1/alerts?after="+a.ID.String()), &list)
	require.Len(t, list, 2)
	assert.Equal(t, b.ID, list[0].ID)
	assert.Equal(t, c.ID, list[1].ID)

	_, err := mgr.Remove(a.ID)
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, get(t, h, "/api/v1/alerts?after="+a.ID.String()).Code)
	assert.Equal(t, http.StatusBadRequest, get(t, h, "/api/v1/alerts?after=nope").Code)
}

func TestAlerts_QueryErrors(t *testing.T) {
	h := api.New(newManager(t, nil))
	assert.Equal(t, http.StatusBadRequest, get(t, h, "/api/v1/alerts?since=yesterday").Code)
	assert.Equal(t, http.StatusBadRequest,
		get(t, h, "/api/v1/alerts?since=2024-01-01T00:00:00Z&after="+types.NewAlertID().String()).Code)
	assert.Equal(t, http.StatusMethodNotAllowed, do(t, h, http.MethodPut, "/api/v1/alerts", "").Code)
}

// --- single alert -----------------------------------------------------------

func TestAlert_GetAndDelete(t *testing.T) {
	mgr := newManager(t, nil)
	a := mgr.Create("disk", types.LevelMajor, "disk full", "")
	h := api.New(mgr)
	path := "/api/v1/alerts/" + a.ID.String()

	rr := get(t, h, path)
	require.Equal(t, http.StatusOK, rr.Code)
	var got types.Alert
	decode(t, rr, &got)
	assert.Equal(t, a.ID, got.ID)
	assert.Equal(t, "disk full", got.Description)

	rr = do(t, h, http.MethodDelete, path, "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Zero(t, mgr.Summary().Total)

	assert.Equal(t, http.StatusNotFound, get(t, h, path).Code)
	assert.Equal(t, http.StatusNotFound, do(t, h, http.MethodDelete, path, "").Code)
}

func TestAlert_MalformedAndUnknownID(t *testing.T) {
	h := api.New(newManager(t, nil))
	assert.Equal(t, http.StatusBadRequest, get(t, h, "/api/v1/alerts/not-an-id").Code)
	assert.Equal(t, http.StatusNotFound, get(t, h, "/api/v1/alerts/"+types.NewAlertID().String()).Code)
}

func TestAlert_ChangeState(t *testing.T) {
	mgr := newManager(t, nil)
	a := mgr.Create("disk", types.LevelMajor, "", "")
	h := api.New(mgr)
	path := "/api/v1/alerts/" + a.ID.String() + "/state"

	rr := do(t, h, http.MethodPost, path, `{"state":"in_progress","message":"looking"}`)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	var updated types.Alert
	decode(t, rr, &updated)
	require.Len(t, updated.Events, 2)
	assert.Equal(t, types.StateInProgress, updated.State())
	assert.Equal(t, "looking", updated.Latest().Message)

	assert.Equal(t, http.StatusBadRequest, do(t, h, http.MethodPost, path, `{"state":"done"}`).Code)
	assert.Equal(t, http.StatusMethodNotAllowed, get(t, h, path).Code)

	missing := "/api/v1/alerts/" + types.NewAlertID().String() + "/state"
	assert.Equal(t, http.StatusNotFound, do(t, h, http.MethodPost, missing, `{"state":"cleared"}`).Code)
}

func TestAlert_UnknownSubresource(t *testing.T) {
	mgr := newManager(t, nil)
	a := mgr.Create("disk", types.LevelMajor, "", "")
	rr := get(t, api.New(mgr), "/api/v1/alerts/"+a.ID.String()+"/history")
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

// --- descriptors ------------------------------------------------------------

func TestDescriptors_AddAndList(t *testing.T) {
	mgr := newManager(t, nil)
	h := api.New(mgr)
	body := `{"alert_type":"disk","content_type":"text/plain","description":"disk alerts",` +
		`"respondable":true,"state_content_types":{"HANDLED":"application/json"}}`

	rr := do(t, h, http.MethodPost, "/api/v1/descriptors", body)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())

	d, ok := mgr.Descriptor("disk")
	require.True(t, ok)
	assert.True(t, d.Respondable())
	ct, ok := d.StateContentType(types.StateHandled)
	assert.True(t, ok)
	assert.Equal(t, "application/json", ct)

	assert.Equal(t, http.StatusConflict, do(t, h, http.MethodPost, "/api/v1/descriptors", body).Code)

	rr = get(t, h, "/api/v1/descriptors")
	require.Equal(t, http.StatusOK, rr.Code)
	var list []map[string]interface{}
	decode(t, rr, &list)
	require.Len(t, list, 1)
	assert.Equal(t, "disk", list[0]["alert_type"])
}

func TestDescriptors_Validation(t *testing.T) {
	h := api.New(newManager(t, nil))
	assert.Equal(t, http.StatusBadRequest, do(t, h, http.MethodPost, "/api/v1/descriptors", `{"description":"x"}`).Code)
	assert.Equal(t, http.StatusBadRequest, do(t, h, http.MethodPost, "/api/v1/descriptors", `[`).Code)
	assert.Equal(t, http.StatusMethodNotAllowed, do(t, h, http.MethodDelete, "/api/v1/descriptors", "").Code)
}

// --- metrics ----------------------------------------------------------------

func scrape(t *testing.T, mgr *alerts.Manager) map[string]*dto.MetricFamily {
	t.Helper()
	rr := get(t, api.MetricsHandler(mgr), "/metrics")
	require.Equal(t, http.StatusOK, rr.Code)
	var parser expfmt.TextParser
	mfs, err := parser.TextToMetricFamilies(rr.Body)
	require.NoError(t, err)
	return mfs
}

func labeled(t *testing.T, mf *dto.MetricFamily, name, value string) *dto.Metric {
	t.Helper()
	require.NotNil(t, mf)
	for _, m := range mf.GetMetric() {
		for _, l := range m.GetLabel() {
			if l.GetName() == name && l.GetValue() == value {
				return m
			}
		}
	}
	t.Fatalf("no %s series with %s=%q", mf.GetName(), name, value)
	return nil
}

func TestMetrics_Exposition(t *testing.T) {
	mgr := newManager(t, nil)
	mgr.AddDescriptor(types.NewDescriptor("disk", "text/plain", "", false, nil))
	mgr.AddReceiver(notify.ReceiverFunc(func(int) {}))
	a := mgr.Create("disk", types.LevelFatal, "", "")
	mgr.Create("disk", types.LevelInfo, "", "")
	_, err := mgr.ChangeState(a, types.StateCleared, "")
	require.NoError(t, err)

	mfs := scrape(t, mgr)

	assert.Equal(t, 1.0, labeled(t, mfs["alertcore_alerts"], "state", "UNHANDLED").GetGauge().GetValue())
	assert.Equal(t, 1.0, labeled(t, mfs["alertcore_alerts"], "state", "CLEARED").GetGauge().GetValue())
	assert.Equal(t, 0.0, labeled(t, mfs["alertcore_alerts"], "state", "HANDLED").GetGauge().GetValue())
	assert.Equal(t, 1.0, labeled(t, mfs["alertcore_alerts_by_level"], "level", "FATAL").GetGauge().GetValue())

	require.Contains(t, mfs, "alertcore_alerts_pending")
	assert.Equal(t, 1.0, mfs["alertcore_alerts_pending"].GetMetric()[0].GetGauge().GetValue())
	require.Contains(t, mfs, "alertcore_descriptors")
	assert.Equal(t, 1.0, mfs["alertcore_descriptors"].GetMetric()[0].GetGauge().GetValue())

	delivered := labeled(t, mfs["alertcore_notifications_total"], "result", "delivered")
	assert.Equal(t, 3.0, delivered.GetCounter().GetValue())
	dropped := labeled(t, mfs["alertcore_notifications_total"], "result", "dropped")
	assert.Equal(t, 0.0, dropped.GetCounter().GetValue())
	assert.Contains(t, mfs, "go_goroutines")
	assert.Contains(t, mfs, "go_gc_duration_seconds")
}
