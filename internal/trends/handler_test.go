package trends

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"budget-backend/internal/shared/server/middleware"
	"budget-backend/internal/statements"
)

func TestHandlerGet(t *testing.T) {
	gin.SetMode(gin.TestMode)
	svc := NewService(NewMemoryRepo())
	r := gin.New()
	r.Use(middleware.Identity(middleware.IdentityConfig{AllowHeader: true}))
	NewHandler(svc).RegisterRoutes(r.Group("/api/v1"))

	get := func() OverallAnalysis {
		t.Helper()
		req := httptest.NewRequest(http.MethodGet, "/api/v1/trends", nil)
		req.Header.Set("X-User-Id", "user-1")
		resp := httptest.NewRecorder()
		r.ServeHTTP(resp, req)
		if resp.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", resp.Code, resp.Body.String())
		}
		var oa OverallAnalysis
		if err := json.Unmarshal(resp.Body.Bytes(), &oa); err != nil {
			t.Fatalf("decode: %v", err)
		}
		return oa
	}

	if oa := get(); len(oa.SpendingTrends) != 0 {
		t.Fatalf("expected no trends before any statement, got %+v", oa.SpendingTrends)
	}

	items := []statements.StatementAnalysis{statement("aug", "August 2024", "Rent", "1000")}
	if err := svc.Refresh(context.Background(), "user-1", items, dec("4000")); err != nil {
		t.Fatalf("refresh: %v", err)
	}
	oa := get()
	if len(oa.SpendingTrends) != 1 || !oa.SpendingTrends[0].PercentageOfIncome.Equal(dec("25")) {
		t.Fatalf("unexpected trends %+v", oa.SpendingTrends)
	}
}

func TestHandlerRequiresIdentity(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(middleware.Identity(middleware.IdentityConfig{}))
	NewHandler(NewService(NewMemoryRepo())).RegisterRoutes(r.Group("/api/v1"))

	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/api/v1/trends", nil))
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.Code)
	}
}
