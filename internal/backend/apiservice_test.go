package backend

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"slices"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/jo-hoe/imagingagent/internal/backend/session"
	"github.com/jo-hoe/imagingagent/internal/common"
	"github.com/jo-hoe/imagingagent/internal/core"
)

func newTestServer(t *testing.T) *echo.Echo {
	t.Helper()
	config := core.DefaultConfig()
	coreService, err := core.NewCoreService(config, nil, session.NewMemoryStore(0))
	if err != nil {
		t.Fatalf("NewCoreService error: %v", err)
	}
	t.Cleanup(func() { _ = coreService.Close() })

	apiService, err := NewAPIService(config, coreService)
	if err != nil {
		t.Fatalf("NewAPIService error: %v", err)
	}
	e := echo.New()
	e.Validator = &common.GenericEchoValidator{}
	apiService.SetRoutes(e)
	return e
}

func serve(e *echo.Echo, method, target string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestAPIService_Probe(t *testing.T) {
	rec := serve(newTestServer(t), http.MethodGet, "/probe")
	if rec.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", rec.Code)
	}
}

func TestAPIService_Status(t *testing.T) {
	rec := serve(newTestServer(t), http.MethodGet, "/api/status")
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", rec.Code)
	}

	var status StatusResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &status); err != nil {
		t.Fatalf("failed to decode status: %v", err)
	}
	if status.AnalysisAvailable {
		t.Error("Expected analysis to be unavailable without analyzer")
	}
	if status.Prompt != "medical-imaging-analysis@v1" || status.DisplayWidth != 500 {
		t.Errorf("Unexpected status %+v", status)
	}
	for _, name := range []string{"GrayscaleCommand", "NormalizeCommand", "PixelScaleCommand"} {
		if !slices.Contains(status.Commands, name) {
			t.Errorf("Expected %s in registered commands, got %v", name, status.Commands)
		}
	}
}

func TestAPIService_Prompt(t *testing.T) {
	e := newTestServer(t)

	tests := []struct {
		name       string
		target     string
		wantStatus int
		wantID     string
	}{
		{"latest", "/api/prompts/medical-imaging-analysis", http.StatusOK, "medical-imaging-analysis@v1"},
		{"explicit version", "/api/prompts/medical-imaging-analysis?version=1", http.StatusOK, "medical-imaging-analysis@v1"},
		{"unknown version", "/api/prompts/medical-imaging-analysis?version=7", http.StatusNotFound, ""},
		{"unknown name", "/api/prompts/other", http.StatusNotFound, ""},
		{"negative version", "/api/prompts/medical-imaging-analysis?version=-1", http.StatusBadRequest, ""},
		{"non-numeric version", "/api/prompts/medical-imaging-analysis?version=abc", http.StatusBadRequest, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := serve(e, http.MethodGet, tt.target)
			if rec.Code != tt.wantStatus {
				t.Fatalf("Expected status %d, got %d (%s)", tt.wantStatus, rec.Code, rec.Body.String())
			}
			if tt.wantID == "" {
				return
			}
			var response PromptResponse
			if err := json.Unmarshal(rec.Body.Bytes(), &response); err != nil {
				t.Fatalf("failed to decode prompt: %v", err)
			}
			if response.ID != tt.wantID || len(response.Headings) != 4 {
				t.Errorf("Unexpected prompt response %+v", response)
			}
		})
	}
}
