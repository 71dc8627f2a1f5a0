package http

import (
	"bytes"
	"encoding/json"
	"image"
	"image/png"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/cmlabs-hris/hris-timekeeping/internal/domain/attendance"
	"github.com/cmlabs-hris/hris-timekeeping/internal/domain/user"
	"github.com/cmlabs-hris/hris-timekeeping/internal/handler/http/response"
	"github.com/cmlabs-hris/hris-timekeeping/internal/pkg/clock"
	"github.com/cmlabs-hris/hris-timekeeping/internal/pkg/geo"
	"github.com/cmlabs-hris/hris-timekeeping/internal/pkg/jwt"
	"github.com/cmlabs-hris/hris-timekeeping/internal/pkg/storage"
	"github.com/cmlabs-hris/hris-timekeeping/internal/repository/memory"
	attendanceService "github.com/cmlabs-hris/hris-timekeeping/internal/service/attendance"
	"github.com/cmlabs-hris/hris-timekeeping/internal/service/file"
	sessionService "github.com/cmlabs-hris/hris-timekeeping/internal/service/worksession"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	employeeA = "0190a1b2-0000-7000-8000-00000000000a"
	managerID = "0190a1b2-0000-7000-8000-00000000000c"
)

type apiFixture struct {
	t      *testing.T
	server *httptest.Server
	tokens *jwt.JWTService
	clock  *clock.Fixed
}

func newAPIFixture(t *testing.T) *apiFixture {
	t.Helper()

	clk := clock.NewFixed(time.Date(2024, 1, 1, 8, 30, 0, 0, time.UTC))
	attSvc := attendanceService.NewAttendanceService(memory.NewAttendanceRepository(), clk, attendanceService.Config{
		Policy:     attendance.DefaultShiftPolicy(),
		Classifier: geo.NewClassifier(geo.Point{Latitude: -6.2, Longitude: 106.816666}, geo.DefaultRemoteThresholdMeters),
		Location:   time.UTC,
	})
	local, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	fileSvc := file.NewFileService(local, file.Config{})
	sessSvc := sessionService.NewWorkSessionService(memory.NewWorkSessionRepository(), fileSvc, clk, sessionService.Config{})

	tokens := jwt.NewJWTService("handler-test-secret", time.Hour)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	router := NewRouter(RouterConfig{}, logger, tokens.JWTAuth(), NewAttendanceHandler(attSvc), NewWorkSessionHandler(sessSvc), NewFileHandler(fileSvc))

	server := httptest.NewServer(router)
	t.Cleanup(server.Close)
	return &apiFixture{t: t, server: server, tokens: tokens, clock: clk}
}

func (f *apiFixture) token(employeeID string, role user.Role) string {
	f.t.Helper()
	token, _, err := f.tokens.GenerateAccessToken("user-"+employeeID, employeeID, role)
	require.NoError(f.t, err)
	return token
}

func (f *apiFixture) do(method, path, token, contentType string, body io.Reader) *http.Response {
	f.t.Helper()
	req, err := http.NewRequest(method, f.server.URL+path, body)
	require.NoError(f.t, err)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(f.t, err)
	f.t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func (f *apiFixture) doJSON(method, path, token string, payload interface{}) *http.Response {
	f.t.Helper()
	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		require.NoError(f.t, err)
		body = bytes.NewReader(raw)
	}
	return f.do(method, path, token, "application/json", body)
}

// envelope decodes the response body, with Data left raw for the caller.
func envelope(t *testing.T, resp *http.Response, data interface{}) response.Response {
	t.Helper()
	var raw struct {
		response.Response
		Data json.RawMessage `json:"data"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&raw))
	if data != nil && len(raw.Data) > 0 {
		require.NoError(t, json.Unmarshal(raw.Data, data))
	}
	return raw.Response
}

func TestAuthentication(t *testing.T) {
	f := newAPIFixture(t)

	t.Run("missing token", func(t *testing.T) {
		resp := f.doJSON(http.MethodGet, "/api/v1/attendance", "", nil)
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})

	t.Run("token signed with another key", func(t *testing.T) {
		foreign, _, err := jwt.NewJWTService("other", time.Hour).GenerateAccessToken("u", employeeA, user.RoleEmployee)
		require.NoError(t, err)
		resp := f.doJSON(http.MethodGet, "/api/v1/attendance", foreign, nil)
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})

	t.Run("unknown role", func(t *testing.T) {
		resp := f.doJSON(http.MethodGet, "/api/v1/attendance", f.token(employeeA, user.Role("pending")), nil)
		assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	})

	t.Run("health check is public", func(t *testing.T) {
		resp := f.do(http.MethodGet, "/health", "", "", nil)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
	})
}

func TestAttendanceRoutes(t *testing.T) {
	f := newAPIFixture(t)
	employee := f.token(employeeA, user.RoleEmployee)
	manager := f.token(managerID, user.RoleManager)

	resp := f.doJSON(http.MethodPost, "/api/v1/attendance/check-in", employee, map[string]interface{}{"shift": "morning"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var entry attendance.EntryResponse
	env := envelope(t, resp, &entry)
	assert.True(t, env.Success)
	assert.Equal(t, "present", entry.Status)

	t.Run("malformed json", func(t *testing.T) {
		resp := f.do(http.MethodPost, "/api/v1/attendance/check-in", employee, "application/json", strings.NewReader("{"))
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		assert.Equal(t, "BAD_REQUEST", envelope(t, resp, nil).Error.Code)
	})

	t.Run("invalid shift", func(t *testing.T) {
		resp := f.doJSON(http.MethodPost, "/api/v1/attendance/check-in", employee, map[string]interface{}{"shift": "lunch"})
		assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
		assert.Equal(t, "VALIDATION_ERROR", envelope(t, resp, nil).Error.Code)
	})

	t.Run("break lifecycle", func(t *testing.T) {
		path := "/api/v1/attendance/" + entry.ID + "/breaks/"
		resp := f.doJSON(http.MethodPost, path+"start", employee, map[string]interface{}{"category": "meal"})
		require.Equal(t, http.StatusOK, resp.StatusCode)

		resp = f.doJSON(http.MethodPost, path+"start", employee, map[string]interface{}{"category": "meal"})
		assert.Equal(t, http.StatusConflict, resp.StatusCode)

		f.clock.Advance(30 * time.Minute)
		resp = f.doJSON(http.MethodPost, path+"end", employee, nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)

		resp = f.doJSON(http.MethodPost, path+"end", employee, nil)
		assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	})

	t.Run("other employee cannot read", func(t *testing.T) {
		other := f.token("0190a1b2-0000-7000-8000-00000000000b", user.RoleEmployee)
		resp := f.doJSON(http.MethodGet, "/api/v1/attendance/"+entry.ID, other, nil)
		assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	})

	t.Run("check out", func(t *testing.T) {
		f.clock.Advance(6 * time.Hour)
		resp := f.doJSON(http.MethodPost, "/api/v1/attendance/check-out", employee, map[string]interface{}{
			"entry_id": entry.ID,
			"tasks":    []map[string]string{{"task": "Reviewed pull requests"}},
		})
		require.Equal(t, http.StatusOK, resp.StatusCode)
		var closed attendance.EntryResponse
		envelope(t, resp, &closed)
		require.NotNil(t, closed.TotalHours)
		assert.InDelta(t, 6.0, *closed.TotalHours, 0.01)
	})

	t.Run("list is paginated", func(t *testing.T) {
		resp := f.doJSON(http.MethodGet, "/api/v1/attendance?page=1&limit=10", employee, nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		var entries []attendance.EntryResponse
		env := envelope(t, resp, &entries)
		assert.Len(t, entries, 1)
		require.NotNil(t, env.Meta)
		assert.Equal(t, int64(1), env.Meta.TotalItems)
	})

	t.Run("export requires manager", func(t *testing.T) {
		resp := f.doJSON(http.MethodGet, "/api/v1/attendance/export", employee, nil)
		assert.Equal(t, http.StatusForbidden, resp.StatusCode)

		resp = f.doJSON(http.MethodGet, "/api/v1/attendance/export?date=2024-01-01", manager, nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, xlsxContentType, resp.Header.Get("Content-Type"))
		assert.Contains(t, resp.Header.Get("Content-Disposition"), "attendance_2024-01-01.xlsx")
	})

	t.Run("owner deletes same-day entry", func(t *testing.T) {
		other := f.token("0190a1b2-0000-7000-8000-00000000000b", user.RoleEmployee)
		resp := f.doJSON(http.MethodDelete, "/api/v1/attendance/"+entry.ID, other, nil)
		assert.Equal(t, http.StatusForbidden, resp.StatusCode)

		resp = f.doJSON(http.MethodDelete, "/api/v1/attendance/"+entry.ID, employee, nil)
		assert.Equal(t, http.StatusOK, resp.StatusCode)

		resp = f.doJSON(http.MethodGet, "/api/v1/attendance/"+entry.ID, employee, nil)
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})

	t.Run("older entries need a manager", func(t *testing.T) {
		resp := f.doJSON(http.MethodPost, "/api/v1/attendance/check-in", employee, map[string]interface{}{
			"shift":  "morning",
			"reason": "Client visit",
		})
		require.Equal(t, http.StatusCreated, resp.StatusCode)
		var older attendance.EntryResponse
		envelope(t, resp, &older)

		f.clock.Advance(24 * time.Hour)
		resp = f.doJSON(http.MethodDelete, "/api/v1/attendance/"+older.ID, employee, nil)
		assert.Equal(t, http.StatusForbidden, resp.StatusCode)

		resp = f.doJSON(http.MethodDelete, "/api/v1/attendance/"+older.ID, manager, nil)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
	})
}

func TestSessionRoutes(t *testing.T) {
	f := newAPIFixture(t)
	employee := f.token(employeeA, user.RoleEmployee)

	resp := f.doJSON(http.MethodPost, "/api/v1/sessions", employee, map[string]interface{}{"title": "Billing API", "timezone": "UTC"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var session struct {
		ID     string `json:"id"`
		Status string `json:"status"`
	}
	envelope(t, resp, &session)
	assert.Equal(t, "running", session.Status)
	base := "/api/v1/sessions/" + session.ID

	t.Run("sample", func(t *testing.T) {
		resp := f.doJSON(http.MethodPost, base+"/samples", employee, map[string]interface{}{
			"keystrokes":       150,
			"mouse_clicks":     30,
			"interval_minutes": 5,
		})
		assert.Equal(t, http.StatusCreated, resp.StatusCode)
	})

	t.Run("multipart screenshot without image", func(t *testing.T) {
		start := f.clock.Now()
		data, err := json.Marshal(map[string]interface{}{
			"interval_start": start,
			"interval_end":   start.Add(10 * time.Minute),
			"activity_level": 42,
		})
		require.NoError(t, err)

		var body bytes.Buffer
		mw := multipart.NewWriter(&body)
		require.NoError(t, mw.WriteField("data", string(data)))
		require.NoError(t, mw.Close())

		resp := f.do(http.MethodPost, base+"/screenshots", employee, mw.FormDataContentType(), &body)
		require.Equal(t, http.StatusCreated, resp.StatusCode)

		var shot struct {
			ID  string `json:"id"`
			Seq int    `json:"seq"`
		}
		envelope(t, resp, &shot)
		assert.Equal(t, 1, shot.Seq)

		resp = f.doJSON(http.MethodDelete, base+"/screenshots/"+shot.ID, employee, nil)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		resp = f.doJSON(http.MethodDelete, base+"/screenshots/"+shot.ID, employee, nil)
		assert.Equal(t, http.StatusConflict, resp.StatusCode)
	})

	t.Run("screenshot image is served to its owner", func(t *testing.T) {
		start := f.clock.Now()
		data, err := json.Marshal(map[string]interface{}{
			"interval_start": start,
			"interval_end":   start.Add(10 * time.Minute),
		})
		require.NoError(t, err)

		var body bytes.Buffer
		mw := multipart.NewWriter(&body)
		require.NoError(t, mw.WriteField("data", string(data)))
		part, err := mw.CreateFormFile("image", "screen.png")
		require.NoError(t, err)
		require.NoError(t, png.Encode(part, image.NewRGBA(image.Rect(0, 0, 64, 32))))
		require.NoError(t, mw.Close())

		resp := f.do(http.MethodPost, base+"/screenshots", employee, mw.FormDataContentType(), &body)
		require.Equal(t, http.StatusCreated, resp.StatusCode)
		var shot struct {
			ImageURL *string `json:"image_url"`
		}
		envelope(t, resp, &shot)
		require.NotNil(t, shot.ImageURL)

		resp = f.doJSON(http.MethodGet, "/api/v1/files/"+*shot.ImageURL, employee, nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, "image/jpeg", resp.Header.Get("Content-Type"))

		other := f.token("0190a1b2-0000-7000-8000-00000000000b", user.RoleEmployee)
		resp = f.doJSON(http.MethodGet, "/api/v1/files/"+*shot.ImageURL, other, nil)
		assert.Equal(t, http.StatusForbidden, resp.StatusCode)

		resp = f.doJSON(http.MethodGet, "/api/v1/files/screenshots/"+employeeA+"/x/missing.jpg", employee, nil)
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})

	t.Run("stop twice conflicts", func(t *testing.T) {
		f.clock.Advance(time.Hour)
		resp := f.doJSON(http.MethodPost, base+"/stop", employee, nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)

		resp = f.doJSON(http.MethodPost, base+"/stop", employee, nil)
		assert.Equal(t, http.StatusConflict, resp.StatusCode)
	})

	t.Run("daily stats", func(t *testing.T) {
		resp := f.doJSON(http.MethodGet, "/api/v1/sessions/stats/daily", employee, nil)
		assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)

		resp = f.doJSON(http.MethodGet, "/api/v1/sessions/stats/daily?date=2024-01-01", employee, nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		var stats struct {
			SessionCount int `json:"session_count"`
		}
		envelope(t, resp, &stats)
		assert.Equal(t, 1, stats.SessionCount)
	})

	t.Run("monthly stats validates month", func(t *testing.T) {
		resp := f.doJSON(http.MethodGet, "/api/v1/sessions/stats/monthly?month=13&year=2024", employee, nil)
		assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)

		resp = f.doJSON(http.MethodGet, "/api/v1/sessions/stats/monthly?year=2024", employee, nil)
		assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	})

	t.Run("unknown session", func(t *testing.T) {
		resp := f.doJSON(http.MethodGet, "/api/v1/sessions/0190a1b2-0000-7000-8000-0000000000ff", employee, nil)
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})
}
