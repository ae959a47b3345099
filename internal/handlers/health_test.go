package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/sensacare/vitals/internal/logging"
	"github.com/sensacare/vitals/internal/models"
)

func TestHandler_Health(t *testing.T) {
	handler := &Handler{
		logger:  logging.NewDevelopment(),
		version: "1.4.2",
	}

	app := fiber.New()
	app.Get("/health", handler.Health)

	req := httptest.NewRequest("GET", "/health", nil)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("Failed to perform request: %v", err)
	}

	if resp.StatusCode != fiber.StatusOK {
		t.Errorf("Expected status %d, got %d", fiber.StatusOK, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("Failed to read response body: %v", err)
	}

	var healthResp models.HealthResponse
	if err := json.Unmarshal(body, &healthResp); err != nil {
		t.Fatalf("Failed to unmarshal response: %v", err)
	}

	if healthResp.Status != "healthy" {
		t.Errorf("Expected status 'healthy', got '%s'", healthResp.Status)
	}
	if healthResp.Version != "1.4.2" {
		t.Errorf("Expected version '1.4.2', got '%s'", healthResp.Version)
	}
	if healthResp.Timestamp == "" {
		t.Error("Expected non-empty timestamp")
	}
}

type stubPinger struct{ err error }

func (p stubPinger) Ping(context.Context) error { return p.err }

func TestHandler_HealthStorage(t *testing.T) {
	tests := []struct {
		name       string
		pinger     stubPinger
		wantStatus int
		wantHealth string
		wantStore  string
	}{
		{"reachable", stubPinger{}, fiber.StatusOK, "healthy", "ok"},
		{"unreachable", stubPinger{err: errors.New("connection refused")}, fiber.StatusServiceUnavailable, "degraded", "unreachable"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := &Handler{logger: logging.Nop(), version: "test", storage: tt.pinger}
			app := fiber.New()
			app.Get("/health", handler.Health)

			resp, err := app.Test(httptest.NewRequest("GET", "/health", nil))
			if err != nil {
				t.Fatalf("Failed to perform request: %v", err)
			}
			if resp.StatusCode != tt.wantStatus {
				t.Errorf("Expected status %d, got %d", tt.wantStatus, resp.StatusCode)
			}

			var healthResp models.HealthResponse
			body, _ := io.ReadAll(resp.Body)
			if err := json.Unmarshal(body, &healthResp); err != nil {
				t.Fatalf("Failed to unmarshal response: %v", err)
			}
			if healthResp.Status != tt.wantHealth || healthResp.Storage != tt.wantStore {
				t.Errorf("Expected %s/%s, got %s/%s", tt.wantHealth, tt.wantStore, healthResp.Status, healthResp.Storage)
			}
		})
	}
}

func TestHandler_NotFound(t *testing.T) {
	handler := &Handler{logger: logging.NewDevelopment()}

	app := fiber.New()
	app.Use(handler.NotFound)

	req := httptest.NewRequest("GET", "/v1/users/u1/nonexistent", nil)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("Failed to perform request: %v", err)
	}

	if resp.StatusCode != fiber.StatusNotFound {
		t.Errorf("Expected status %d, got %d", fiber.StatusNotFound, resp.StatusCode)
	}

	var errResp models.ErrorResponse
	body, _ := io.ReadAll(resp.Body)
	if err := json.Unmarshal(body, &errResp); err != nil {
		t.Fatalf("Failed to unmarshal response: %v", err)
	}
	if errResp.Error.Code != "NOT_FOUND" {
		t.Errorf("Expected code 'NOT_FOUND', got '%s'", errResp.Error.Code)
	}
	if errResp.Error.Path != "/v1/users/u1/nonexistent" {
		t.Errorf("Expected path in error, got '%s'", errResp.Error.Path)
	}
}
