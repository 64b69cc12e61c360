package logger

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"

	"github.com/axiomhq/axiom-go/axiom/ingest"
	"github.com/rs/zerolog/log"
)

func TestInitStampsServiceAndLevel(t *testing.T) {
	var buf bytes.Buffer
	err := Init(Options{
		Service: "imageai-test",
		Level:   "warn",
		File:    filepath.Join(t.TempDir(), "logs", "test.log"),
		Stdout:  &buf,
	})
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(Close)

	log.Info().Msg("dropped")
	log.Warn().Str("kind", "text").Msg("kept")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 1 {
		t.Fatalf("got %d lines: %q", len(lines), buf.String())
	}
	var ev map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &ev); err != nil {
		t.Fatal(err)
	}
	if ev["service"] != "imageai-test" || ev["message"] != "kept" || ev["kind"] != "text" {
		t.Fatalf("unexpected event %v", ev)
	}
}

func TestToEventRedacts(t *testing.T) {
	ev, ok := toEvent([]byte(`{"level":"info","time":"2026-01-02T03:04:05Z","Authorization":"Bearer x","jwt_token":"y","kind":"excel"}`))
	if !ok {
		t.Fatal("not decoded")
	}
	if ev["Authorization"] != "[redacted]" || ev["jwt_token"] != "[redacted]" {
		t.Fatalf("secrets leaked: %v", ev)
	}
	if ev["kind"] != "excel" {
		t.Fatalf("kind = %v", ev["kind"])
	}
	if ev[ingest.TimestampField] != "2026-01-02T03:04:05Z" {
		t.Fatalf("timestamp = %v", ev[ingest.TimestampField])
	}
	if _, ok := toEvent([]byte("not json")); ok {
		t.Fatal("non-JSON line accepted")
	}
}
