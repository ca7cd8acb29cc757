package api

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/open-rover/controller/domain/hazard"
	"github.com/open-rover/controller/domain/rover"
	customlog "github.com/open-rover/controller/pkg/log"
)

// fakeRoverControl records API calls without running the controller loop.
type fakeRoverControl struct {
	snap          rover.Snapshot
	thresholdErr  error
	gotThreshold  float64
	gotOverride   bool
	overrideCalls int
	stopCalls     int
	commands      [][3]float64
}

func (f *fakeRoverControl) Snapshot() rover.Snapshot { return f.snap }

func (f *fakeRoverControl) OnOperatorCommand(forward, turn, speed float64) {
	f.commands = append(f.commands, [3]float64{forward, turn, speed})
}

func (f *fakeRoverControl) OnOverrideToggle(enabled bool) {
	f.gotOverride = enabled
	f.overrideCalls++
}

func (f *fakeRoverControl) OnThresholdChange(meters float64) error {
	if f.thresholdErr != nil {
		return f.thresholdErr
	}
	f.gotThreshold = meters
	return nil
}

func (f *fakeRoverControl) EmergencyStop() { f.stopCalls++ }

func newTestApp(t *testing.T, ctrl RoverControl) *fiber.App {
	t.Helper()
	logger, err := customlog.NewLogrusLogger("error", "")
	require.NoError(t, err)

	app := fiber.New()
	RegisterSafetyRoutes(app, ctrl, logger)
	return app
}

func doJSON(t *testing.T, app *fiber.App, method, path string, body interface{}) (*http.Response, map[string]interface{}) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := app.Test(req)
	require.NoError(t, err)

	var parsed map[string]interface{}
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(raw, &parsed))
	return resp, parsed
}

func TestGetSafetyState(t *testing.T) {
	ctrl := &fakeRoverControl{snap: rover.Snapshot{
		Distance:        3.2,
		Threshold:       5.0,
		Status:          hazard.StatusHazard,
		StatusText:      "HAZARD",
		SafeModeEnabled: true,
	}}
	app := newTestApp(t, ctrl)

	resp, body := doJSON(t, app, http.MethodGet, "/api/v1/safety", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 3.2, body["distance_m"])
	assert.Equal(t, 5.0, body["threshold_m"])
	assert.Equal(t, "HAZARD", body["status"])
	assert.Equal(t, true, body["safe_mode_enabled"])
	assert.Equal(t, false, body["override"])
}

func TestUpdateThreshold(t *testing.T) {
	ctrl := &fakeRoverControl{}
	app := newTestApp(t, ctrl)

	resp, body := doJSON(t, app, http.MethodPut, "/api/v1/safety/threshold",
		ThresholdRequest{ThresholdM: 3.5})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 3.5, body["threshold_m"])
	assert.Equal(t, 3.5, ctrl.gotThreshold)
}

func TestUpdateThresholdOutOfRange(t *testing.T) {
	tests := []struct {
		name  string
		value float64
	}{
		{"below minimum", 0.5},
		{"above maximum", 12.0},
		{"zero", 0.0},
		{"negative", -3.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := &fakeRoverControl{}
			app := newTestApp(t, ctrl)

			resp, body := doJSON(t, app, http.MethodPut, "/api/v1/safety/threshold",
				ThresholdRequest{ThresholdM: tt.value})
			assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
			assert.Contains(t, body["error"], "Threshold must be between")
			assert.Zero(t, ctrl.gotThreshold, "controller must not see a rejected threshold")
		})
	}
}

func TestUpdateThresholdBadBody(t *testing.T) {
	app := newTestApp(t, &fakeRoverControl{})

	req := httptest.NewRequest(http.MethodPut, "/api/v1/safety/threshold",
		bytes.NewReader([]byte("not json")))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestSetOverride(t *testing.T) {
	ctrl := &fakeRoverControl{}
	app := newTestApp(t, ctrl)

	resp, body := doJSON(t, app, http.MethodPut, "/api/v1/safety/override",
		OverrideRequest{Enabled: true})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, true, body["override"])
	assert.True(t, ctrl.gotOverride)

	resp, body = doJSON(t, app, http.MethodPut, "/api/v1/safety/override",
		OverrideRequest{Enabled: false})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, false, body["override"])
	assert.False(t, ctrl.gotOverride)
	assert.Equal(t, 2, ctrl.overrideCalls)
}

func TestEmergencyStopEndpoint(t *testing.T) {
	ctrl := &fakeRoverControl{}
	app := newTestApp(t, ctrl)

	resp, _ := doJSON(t, app, http.MethodPost, "/api/v1/control/stop", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 1, ctrl.stopCalls)
}
