package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestFromEnvDefaults(t *testing.T) {
	for _, k := range []string{"BACKEND_URL", "EXPRESS_SERVER_URL", "RELAY_TIMEOUT", "MAX_UPLOAD_BYTES", "AUTH_MODE", "PORT", "SEARCH_PARTIAL", "PDF_JPEG_QUALITY"} {
		t.Setenv(k, "")
	}
	cfg := FromEnv()
	if cfg.Relay.BackendURL != "http://localhost:3000" {
		t.Errorf("backend url = %q", cfg.Relay.BackendURL)
	}
	if cfg.Relay.Timeout != 30*time.Second {
		t.Errorf("relay timeout = %v", cfg.Relay.Timeout)
	}
	if cfg.Server.MaxUploadBytes != 10<<20 {
		t.Errorf("max upload = %d", cfg.Server.MaxUploadBytes)
	}
	if cfg.Auth.Mode != "firebase" {
		t.Errorf("auth mode = %q", cfg.Auth.Mode)
	}
	if !cfg.Vision.SearchPartial || cfg.Vision.SearchLimit != 10 {
		t.Errorf("search = %+v", cfg.Vision)
	}
	if cfg.PDF.Quality != 85 || cfg.PDF.DPI != 150 {
		t.Errorf("pdf = %+v", cfg.PDF)
	}
}

func TestFromEnvOverrides(t *testing.T) {
	t.Setenv("BACKEND_URL", "")
	t.Setenv("EXPRESS_SERVER_URL", "https://backend.example.com/")
	t.Setenv("RELAY_TIMEOUT", "5s")
	t.Setenv("AUTH_MODE", "JWT")
	t.Setenv("FIREBASE_PRIVATE_KEY", `line1\nline2`)
	t.Setenv("PDF_JPEG_QUALITY", "400")
	t.Setenv("ARCHIVE_PREFIX", "/out/")
	t.Setenv("PORT", "9999")

	cfg := FromEnv()
	if cfg.Relay.BackendURL != "https://backend.example.com" {
		t.Errorf("backend url = %q", cfg.Relay.BackendURL)
	}
	if cfg.Relay.Timeout != 5*time.Second {
		t.Errorf("relay timeout = %v", cfg.Relay.Timeout)
	}
	if cfg.Auth.Mode != "jwt" {
		t.Errorf("auth mode = %q", cfg.Auth.Mode)
	}
	if cfg.Auth.PrivateKey != "line1\nline2" {
		t.Errorf("private key = %q", cfg.Auth.PrivateKey)
	}
	if cfg.PDF.Quality != 85 {
		t.Errorf("quality = %d", cfg.PDF.Quality)
	}
	if cfg.Archive.Prefix != "out" {
		t.Errorf("prefix = %q", cfg.Archive.Prefix)
	}
	if cfg.Server.BackendPort != "9999" || cfg.Server.RelayPort != "9999" {
		t.Errorf("ports = %s/%s", cfg.Server.BackendPort, cfg.Server.RelayPort)
	}
}

func TestParseHelpers(t *testing.T) {
	if parseInt("x", 7) != 7 || parseInt("", 7) != 7 || parseInt("3", 7) != 3 {
		t.Error("parseInt")
	}
	for _, s := range []string{"1", "true", "YES", " on "} {
		if !parseBool(s) {
			t.Errorf("parseBool(%q) = false", s)
		}
	}
	if parseBool("0") || parseBool("") {
		t.Error("parseBool false cases")
	}
	if parseDuration("bogus", time.Minute) != time.Minute {
		t.Error("parseDuration fallback")
	}
}

func TestLoadDotEnvKeepsExisting(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	if err := os.WriteFile(path, []byte("IMAGEAI_TEST_A=fromfile\nIMAGEAI_TEST_B=fromfile\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("IMAGEAI_TEST_A", "fromenv")
	t.Setenv("IMAGEAI_TEST_B", "")
	os.Unsetenv("IMAGEAI_TEST_B")

	LoadDotEnv(path, filepath.Join(dir, "missing.env"))
	if got := os.Getenv("IMAGEAI_TEST_A"); got != "fromenv" {
		t.Errorf("A = %q", got)
	}
	if got := os.Getenv("IMAGEAI_TEST_B"); got != "fromfile" {
		t.Errorf("B = %q", got)
	}
}

func TestIsDev(t *testing.T) {
	if !(Config{Server: ServerConfig{Environment: "Development"}}).IsDev() {
		t.Error("development should be dev")
	}
	if (Config{Server: ServerConfig{Environment: "production"}}).IsDev() {
		t.Error("production is not dev")
	}
}
