package handlers

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"telemetry_dashboard/internal/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestRequestLogger_LevelsByStatus(t *testing.T) {
	gin.SetMode(gin.TestMode)
	core, logs := observer.New(zapcore.DebugLevel)
	h := NewHandler(newMockServices(), nil, &logger.Logger{SugaredLogger: zap.New(core).Sugar()}, nil)

	r := gin.New()
	r.Use(h.requestLogger)
	r.GET("/ok", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.GET("/bad", func(c *gin.Context) { c.Status(http.StatusBadRequest) })
	r.GET("/boom", func(c *gin.Context) { c.Status(http.StatusInternalServerError) })

	for _, p := range []string{"/ok", "/bad", "/boom"} {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, p, nil))
	}

	entries := logs.FilterMessage("http_request").All()
	if len(entries) != 3 {
		t.Fatalf("expected 3 request logs, got %d", len(entries))
	}
	want := []zapcore.Level{zapcore.DebugLevel, zapcore.WarnLevel, zapcore.ErrorLevel}
	for i, e := range entries {
		if e.Level != want[i] {
			t.Fatalf("entry %d: level %v, want %v", i, e.Level, want[i])
		}
		if e.ContextMap()["path"] == "" {
			t.Fatalf("entry %d: missing path", i)
		}
	}
}

func TestRoutes_NoMetricsWithoutGatherer(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := NewHandler(newMockServices(), nil, nil, nil).InitRoutes()

	if w := get(t, r, "/metrics"); w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}
	if w := get(t, r, "/events"); w.Code != http.StatusNotFound {
		t.Fatalf("expected 404 without hub, got %d", w.Code)
	}
}
