package main

import (
	"bytes"
	"path/filepath"
	"testing"
)

func runSettings(t *testing.T, args ...string) string {
	t.Helper()
	cmd := settingsCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs(args)
	if err := cmd.Execute(); err != nil {
		t.Fatalf("settings %v: %v", args, err)
	}
	return out.String()
}

func TestSettingsCommand(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.json")

	if got := runSettings(t, "--settings", path); got != "credits: 10\ntheme: light\n" {
		t.Fatalf("defaults = %q", got)
	}
	if got := runSettings(t, "--settings", path, "--toggle-theme"); got != "credits: 10\ntheme: dark\n" {
		t.Fatalf("after toggle = %q", got)
	}
	if got := runSettings(t, "--settings", path); got != "credits: 10\ntheme: dark\n" {
		t.Fatalf("theme not persisted: %q", got)
	}
}
