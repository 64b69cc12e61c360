package web

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestDashboardRenders(t *testing.T) {
	mux := http.NewServeMux()
	New(Options{AuthMode: "jwt"}).RegisterRoutes(mux)

	for _, path := range []string{"/", "/dashboard"} {
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		if rec.Code != http.StatusOK {
			t.Fatalf("%s: status = %d", path, rec.Code)
		}
		body := rec.Body.String()
		for _, want := range []string{`data-kind="text"`, `data-kind="excel"`, `data-kind="search"`, `data-kind="json"`, `data-max-upload="5242880"`, `/static/app.js`} {
			if !strings.Contains(body, want) {
				t.Errorf("%s: missing %s", path, want)
			}
		}
	}
}

func TestUnknownPathIsNotFound(t *testing.T) {
	mux := http.NewServeMux()
	New(Options{}).RegisterRoutes(mux)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/nope", nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestStaticAssets(t *testing.T) {
	mux := http.NewServeMux()
	New(Options{}).RegisterRoutes(mux)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/static/app.js", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "userCredits") {
		t.Fatal("app.js missing credits handling")
	}
}
