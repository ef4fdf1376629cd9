package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/quantgems/marketbreadth/internal/domain/dto"
	"github.com/quantgems/marketbreadth/internal/domain/models"
)

func TestNewRouter_WiringAndMiddlewares(t *testing.T) {
	gin.SetMode(gin.TestMode)

	svc := &mockBreadthService{
		stats: &dto.StatisticsResponse{
			Data:     models.BreadthSnapshot{Advancers: 7, Decliners: 3, TotalCount: 12},
			AsOfDate: "2025-07-04",
		},
	}
	r := NewRouter(NewHandler(svc, false))

	// Hit the statistics route through the router created by NewRouter
	req := httptest.NewRequest(http.MethodGet, "/api/returns/statistics?period=daily", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}

	// Ensure RequestID middleware injected header
	if w.Header().Get("X-Request-ID") == "" {
		t.Fatalf("expected X-Request-ID header to be set")
	}

	var out dto.StatisticsResponse
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
		t.Fatalf("invalid json response: %v", err)
	}
	if out.Data.Advancers != 7 || out.AsOfDate != "2025-07-04" {
		t.Fatalf("unexpected body: %+v", out)
	}
}

func TestNewRouter_MetricsEndpoint(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := NewRouter(NewHandler(&mockBreadthService{}, false))

	// Drive one request through the middlewares so counters exist.
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/health", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("health: expected 200, got %d", w.Code)
	}

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("metrics: expected 200, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "http_requests_total") {
		t.Fatalf("metrics output missing request counter")
	}
}
