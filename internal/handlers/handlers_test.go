package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/sensacare/vitals/internal/logging"
	"github.com/sensacare/vitals/internal/models"
	"github.com/sensacare/vitals/internal/queue"
	"github.com/sensacare/vitals/internal/repository"
	"github.com/sensacare/vitals/internal/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testServer struct {
	app       *fiber.App
	store     *repository.MemoryStore
	publisher *queue.MemoryPublisher
	now       time.Time
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	logger := logging.Nop()
	store := repository.NewMemoryStore()
	pub := queue.NewMemoryPublisher()
	t.Cleanup(func() { _ = pub.Close() })

	alerts := services.NewAlertPublisher(logger, pub, "vitals.alerts")
	h := New(logger,
		services.NewReadingService(logger, store, 0),
		services.NewProfileService(logger, store),
		services.NewAnalyticsService(logger, store, store, nil, alerts),
		Options{Lookback: 24 * time.Hour, Version: "test"},
	)
	now := time.Now().UTC().Truncate(time.Second)
	h.now = func() time.Time { return now }

	app := fiber.New()
	app.Get("/v1/zones", h.Zones)
	users := app.Group("/v1/users/:user_id")
	users.Post("/readings", h.WriteReadings)
	users.Get("/readings", h.GetReadings)
	users.Delete("/readings", h.DeleteReadings)
	users.Get("/profile", h.GetProfile)
	users.Put("/profile", h.PutProfile)
	users.Get("/zones", h.UserZones)
	users.Get("/stats", h.Stats)
	users.Get("/hrv", h.HRV)
	users.Get("/trends", h.Trends)
	users.Get("/abnormalities", h.Abnormalities)
	users.Get("/outliers", h.Outliers)
	users.Get("/report", h.Report)

	return &testServer{app: app, store: store, publisher: pub, now: now}
}

func (s *testServer) do(t *testing.T, method, path string, body interface{}) (int, []byte) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.app.Test(req, 10000)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, data
}

func (s *testServer) errorCode(t *testing.T, data []byte) string {
	t.Helper()
	var errResp models.ErrorResponse
	require.NoError(t, json.Unmarshal(data, &errResp), string(data))
	return errResp.Error.Code
}

func (s *testServer) seed(t *testing.T, userID string, n, bpm int) {
	t.Helper()
	readings := make([]models.VitalReading, n)
	for i := range readings {
		readings[i] = models.VitalReading{
			ID:            fmt.Sprintf("%s-%d", userID, i),
			UserID:        userID,
			Timestamp:     s.now.Add(-time.Duration(n-i) * 5 * time.Minute),
			Value:         bpm,
			ActivityLevel: models.ActivityRest,
		}
	}
	_, err := s.store.SaveReadings(context.Background(), readings)
	require.NoError(t, err)
}

func readingAt(ts time.Time, bpm int) models.VitalReading {
	return models.VitalReading{Timestamp: ts, Value: bpm}
}

func TestWriteReadingsStatuses(t *testing.T) {
	s := newTestServer(t)
	path := "/v1/users/u1/readings"
	ts := s.now.Add(-time.Minute)

	status, data := s.do(t, "POST", path, models.WriteReadingsRequest{Readings: []models.VitalReading{
		readingAt(ts, 70), readingAt(ts.Add(-time.Minute), 72),
	}})
	assert.Equal(t, fiber.StatusOK, status, string(data))

	var resp models.WriteReadingsResponse
	require.NoError(t, json.Unmarshal(data, &resp))
	assert.Equal(t, 2, resp.Accepted)
	assert.Equal(t, 2, resp.Stored)
	assert.Equal(t, 0, resp.Rejected)

	status, data = s.do(t, "POST", path, models.WriteReadingsRequest{Readings: []models.VitalReading{
		readingAt(ts, 70), readingAt(ts, 400),
	}})
	assert.Equal(t, fiber.StatusMultiStatus, status)
	require.NoError(t, json.Unmarshal(data, &resp))
	assert.Equal(t, 1, resp.Rejected)
	require.Len(t, resp.Errors, 1)
	assert.Equal(t, 1, resp.Errors[0].Index)
	assert.Contains(t, resp.Errors[0].Message, "value")

	status, _ = s.do(t, "POST", path, models.WriteReadingsRequest{Readings: []models.VitalReading{
		readingAt(s.now.Add(time.Hour), 70),
	}})
	assert.Equal(t, fiber.StatusUnprocessableEntity, status)
}

func TestWriteReadingsBadRequests(t *testing.T) {
	s := newTestServer(t)

	req := httptest.NewRequest("POST", "/v1/users/u1/readings", bytes.NewBufferString("{not json"))
	req.Header.Set("Content-Type", "application/json")
	resp, err := s.app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

	status, data := s.do(t, "POST", "/v1/users/u1/readings", models.WriteReadingsRequest{})
	assert.Equal(t, fiber.StatusBadRequest, status)
	assert.Equal(t, services.CodeInvalidArgument, s.errorCode(t, data))
}

func TestGetAndDeleteReadings(t *testing.T) {
	s := newTestServer(t)
	s.seed(t, "u1", 6, 70)

	status, data := s.do(t, "GET", "/v1/users/u1/readings", nil)
	require.Equal(t, fiber.StatusOK, status)
	var resp models.ReadingsResponse
	require.NoError(t, json.Unmarshal(data, &resp))
	assert.Equal(t, 6, resp.Count)
	assert.Equal(t, s.now.Format(time.RFC3339), resp.EndTime)

	start := s.now.Add(-12 * time.Minute).Format(time.RFC3339)
	status, data = s.do(t, "DELETE", "/v1/users/u1/readings?start_time="+start, nil)
	require.Equal(t, fiber.StatusOK, status)
	var del models.DeleteResponse
	require.NoError(t, json.Unmarshal(data, &del))
	assert.Equal(t, 2, del.Deleted)

	status, data = s.do(t, "GET", "/v1/users/u1/readings?start_time=yesterday", nil)
	assert.Equal(t, fiber.StatusBadRequest, status)
	assert.Equal(t, services.CodeInvalidArgument, s.errorCode(t, data))

	end := s.now.Add(-time.Hour).Format(time.RFC3339)
	status, _ = s.do(t, "GET", "/v1/users/u1/readings?start_time="+start+"&end_time="+end, nil)
	assert.Equal(t, fiber.StatusBadRequest, status)
}

func TestGetReadingsDownsampled(t *testing.T) {
	s := newTestServer(t)
	s.seed(t, "u1", 60, 70)

	status, data := s.do(t, "GET", "/v1/users/u1/readings?downsample=lttb&max_points=10", nil)
	require.Equal(t, fiber.StatusOK, status)
	var resp models.ReadingsResponse
	require.NoError(t, json.Unmarshal(data, &resp))
	assert.Equal(t, 10, resp.Count)
	assert.Equal(t, 60, resp.Total)
	assert.True(t, resp.Downsampled)
	assert.Equal(t, "u1-0", resp.Readings[0].ID)
	assert.Equal(t, "u1-59", resp.Readings[9].ID)

	status, data = s.do(t, "GET", "/v1/users/u1/readings?downsample=auto", nil)
	require.Equal(t, fiber.StatusOK, status)
	resp = models.ReadingsResponse{}
	require.NoError(t, json.Unmarshal(data, &resp))
	assert.Equal(t, 60, resp.Count)
	assert.False(t, resp.Downsampled)

	status, data = s.do(t, "GET", "/v1/users/u1/readings?downsample=avg", nil)
	assert.Equal(t, fiber.StatusBadRequest, status)
	assert.Equal(t, "INVALID_DOWNSAMPLE", s.errorCode(t, data))

	status, data = s.do(t, "GET", "/v1/users/u1/readings?downsample=m4&max_points=zero", nil)
	assert.Equal(t, fiber.StatusBadRequest, status)
	assert.Equal(t, "INVALID_MAX_POINTS", s.errorCode(t, data))
}

func TestProfileEndpoints(t *testing.T) {
	s := newTestServer(t)

	status, data := s.do(t, "GET", "/v1/users/u1/profile", nil)
	assert.Equal(t, fiber.StatusNotFound, status)
	assert.Equal(t, services.CodeProfileNotFound, s.errorCode(t, data))

	status, _ = s.do(t, "PUT", "/v1/users/u1/profile", models.ProfileRequest{Age: models.IntPtr(200)})
	assert.Equal(t, fiber.StatusBadRequest, status)

	status, data = s.do(t, "PUT", "/v1/users/u1/profile", models.ProfileRequest{Age: models.IntPtr(45), RestingHeartRate: models.IntPtr(58)})
	require.Equal(t, fiber.StatusOK, status, string(data))

	status, data = s.do(t, "GET", "/v1/users/u1/profile", nil)
	require.Equal(t, fiber.StatusOK, status)
	var profile models.UserProfile
	require.NoError(t, json.Unmarshal(data, &profile))
	assert.Equal(t, 45, *profile.Age)
	assert.Equal(t, 58, *profile.RestingHeartRate)
}

func TestZonesEndpoints(t *testing.T) {
	s := newTestServer(t)

	status, data := s.do(t, "GET", "/v1/zones?age=30", nil)
	require.Equal(t, fiber.StatusOK, status)
	var zones map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &zones))
	assert.Equal(t, "standard", zones["method"])

	status, data = s.do(t, "GET", "/v1/zones?age=30&resting_heart_rate=60", nil)
	require.Equal(t, fiber.StatusOK, status)
	require.NoError(t, json.Unmarshal(data, &zones))
	assert.Equal(t, "karvonen", zones["method"])

	status, _ = s.do(t, "GET", "/v1/zones", nil)
	assert.Equal(t, fiber.StatusBadRequest, status)
	status, _ = s.do(t, "GET", "/v1/zones?age=30&resting_heart_rate=abc", nil)
	assert.Equal(t, fiber.StatusBadRequest, status)
	status, _ = s.do(t, "GET", "/v1/zones?age=500", nil)
	assert.Equal(t, fiber.StatusBadRequest, status)

	status, data = s.do(t, "GET", "/v1/users/u1/zones", nil)
	assert.Equal(t, fiber.StatusNotFound, status)

	require.NoError(t, s.store.SaveProfile(context.Background(), models.UserProfile{UserID: "u1", Age: models.IntPtr(30)}))
	status, data = s.do(t, "GET", "/v1/users/u1/zones?method=karvonen", nil)
	assert.Equal(t, fiber.StatusUnprocessableEntity, status)
	assert.Equal(t, services.CodeMissingProfileField, s.errorCode(t, data))
}

func TestAnalyticsEndpoints(t *testing.T) {
	s := newTestServer(t)
	s.seed(t, "u1", 12, 130)

	status, data := s.do(t, "GET", "/v1/users/u1/stats", nil)
	require.Equal(t, fiber.StatusOK, status, string(data))
	var stats map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &stats))
	assert.Equal(t, float64(12), stats["readings_count"])

	status, _ = s.do(t, "GET", "/v1/users/u1/trends", nil)
	assert.Equal(t, fiber.StatusOK, status)

	status, data = s.do(t, "GET", "/v1/users/u1/hrv", nil)
	assert.Equal(t, fiber.StatusUnprocessableEntity, status)
	assert.Equal(t, services.CodeInsufficientData, s.errorCode(t, data))

	status, data = s.do(t, "GET", "/v1/users/u1/outliers?method=zscore", nil)
	require.Equal(t, fiber.StatusOK, status, string(data))
	var outliers services.OutlierReport
	require.NoError(t, json.Unmarshal(data, &outliers))
	require.Len(t, outliers.Outliers, 12)
	assert.Equal(t, "flatline", string(outliers.Outliers[0].Kind))

	status, data = s.do(t, "GET", "/v1/users/u1/outliers?method=arima", nil)
	assert.Equal(t, fiber.StatusBadRequest, status)
	assert.Equal(t, services.CodeInvalidArgument, s.errorCode(t, data))

	status, _ = s.do(t, "GET", "/v1/users/u1/outliers?threshold=high", nil)
	assert.Equal(t, fiber.StatusBadRequest, status)

	status, data = s.do(t, "GET", "/v1/users/u1/abnormalities", nil)
	assert.Equal(t, fiber.StatusNotFound, status)

	require.NoError(t, s.store.SaveProfile(context.Background(), models.UserProfile{UserID: "u1", Age: models.IntPtr(40)}))
	status, data = s.do(t, "GET", "/v1/users/u1/abnormalities", nil)
	require.Equal(t, fiber.StatusOK, status, string(data))
	var detection map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &detection))
	assert.Equal(t, true, detection["requires_medical_attention"])
	assert.Equal(t, 1, s.publisher.Pending("vitals.alerts.u1"))
}

func TestReportEndpoint(t *testing.T) {
	s := newTestServer(t)
	s.seed(t, "u2", 4, 72)

	status, data := s.do(t, "GET", "/v1/users/u2/report", nil)
	require.Equal(t, http.StatusOK, status, string(data))

	var report services.Report
	require.NoError(t, json.Unmarshal(data, &report))
	assert.Equal(t, 4, report.ReadingsCount)
	assert.NotNil(t, report.Stats)
	assert.Equal(t, services.CodeMissingAge, report.Errors[services.SectionZones].Code)
	assert.Equal(t, services.CodeInsufficientData, report.Errors[services.SectionHRV].Code)
}
