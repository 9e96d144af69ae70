package server

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/0-FoxHunt-0/Chatty/internal/config"
	"github.com/0-FoxHunt-0/Chatty/internal/db"
	"github.com/0-FoxHunt-0/Chatty/internal/upload"
	"github.com/0-FoxHunt-0/Chatty/internal/ws"

	"github.com/gin-gonic/gin"
)

func TestHealthz(t *testing.T) {
	gin.SetMode(gin.TestMode)
	cfg := config.Load()
	gdb, err := db.Connect(cfg.DatabaseDSN)
	if err != nil {
		t.Skipf("skip: db not available: %v", err)
	}
	if err := db.Migrate(gdb); err != nil {
		t.Skipf("skip: migrate failed: %v", err)
	}
	uploader, err := upload.NewLocalStore(t.TempDir(), "/uploads")
	if err != nil {
		t.Fatalf("upload store: %v", err)
	}
	engine := SetupRouter(cfg, gdb, ws.NewHub(), uploader)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
}

func TestProtectedRoutesRequireAuth(t *testing.T) {
	gin.SetMode(gin.TestMode)
	cfg := config.Load()
	gdb, err := db.Connect(cfg.DatabaseDSN)
	if err != nil {
		t.Skipf("skip: db not available: %v", err)
	}
	if err := db.Migrate(gdb); err != nil {
		t.Skipf("skip: migrate failed: %v", err)
	}
	uploader, err := upload.NewLocalStore(t.TempDir(), "/uploads")
	if err != nil {
		t.Fatalf("upload store: %v", err)
	}
	engine := SetupRouter(cfg, gdb, ws.NewHub(), uploader)

	paths := []string{"/api/v1/auth/me", "/api/v1/users", "/api/v1/users/1/messages"}
	for _, p := range paths {
		req := httptest.NewRequest(http.MethodGet, p, nil)
		w := httptest.NewRecorder()
		engine.ServeHTTP(w, req)
		if w.Code != http.StatusUnauthorized {
			t.Errorf("GET %s without token = %d, want 401", p, w.Code)
		}
	}
}
