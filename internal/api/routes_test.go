package api

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/onnwee/reddit-pulse/internal/api/handlers"
)

func TestRouterServesHealth(t *testing.T) {
	router := NewRouter(handlers.Deps{})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
}

func TestRouterServesMetrics(t *testing.T) {
	router := NewRouter(handlers.Deps{})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
}

func TestRouterUnknownRoute(t *testing.T) {
	router := NewRouter(handlers.Deps{})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/nope", nil))

	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", w.Code)
	}
}

func TestRouterMethodNotAllowed(t *testing.T) {
	router := NewRouter(handlers.Deps{})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodDelete, "/api/posts", nil))

	if w.Code != http.StatusMethodNotAllowed {
		t.Fatalf("status = %d, want 405", w.Code)
	}
}
