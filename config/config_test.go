package config

import (
	"os"
	"testing"
	"time"
)

func setRequired(t *testing.T) {
	t.Helper()
	t.Setenv("DATABASE_URL", "postgres://localhost/trialflow")
	t.Setenv("SMTP_HOST", "smtp.example.com")
	t.Setenv("SMTP_FROM", "no-reply@trialflow.example")
	t.Setenv("JOIN_TOKEN_SECRET", "test-secret")
}

func TestLoad_Defaults(t *testing.T) {
	setRequired(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}

	if cfg.AccessWindowMinutes != 30 || cfg.NotifyWindowMinutes != 30 || cfg.GraceWindowMinutes != 60 {
		t.Errorf("unexpected window defaults: %+v", cfg)
	}
	if cfg.ReminderAnchorHour != 9 {
		t.Errorf("expected anchor hour 9, got %d", cfg.ReminderAnchorHour)
	}
	if cfg.TransitionInterval != time.Minute {
		t.Errorf("expected 60s interval, got %s", cfg.TransitionInterval)
	}
	want := []int{4, 3, 2, 1}
	if len(cfg.ReminderOffsets) != len(want) {
		t.Fatalf("expected offsets %v, got %v", want, cfg.ReminderOffsets)
	}
	for i := range want {
		if cfg.ReminderOffsets[i] != want[i] {
			t.Fatalf("expected offsets %v, got %v", want, cfg.ReminderOffsets)
		}
	}
}

func TestLoad_MissingDatabaseURL(t *testing.T) {
	// t.Setenv registers the restore; unset so "required" trips even
	// when the test environment carries a real DATABASE_URL.
	t.Setenv("DATABASE_URL", "")
	os.Unsetenv("DATABASE_URL")
	t.Setenv("SMTP_HOST", "smtp.example.com")
	t.Setenv("SMTP_FROM", "no-reply@trialflow.example")
	t.Setenv("JOIN_TOKEN_SECRET", "test-secret")

	if _, err := Load(); err == nil {
		t.Fatalf("expected error when DATABASE_URL is unset")
	}
}

func TestLoad_RejectsBadValues(t *testing.T) {
	cases := []struct{ key, value string }{
		{"REMINDER_ANCHOR_HOUR", "24"},
		{"TRANSITION_INTERVAL", "100ms"},
		{"REMINDER_OFFSETS", "7,1"},
		{"ACCESS_WINDOW_MINUTES", "-5"},
	}
	for _, tc := range cases {
		t.Run(tc.key, func(t *testing.T) {
			setRequired(t)
			t.Setenv(tc.key, tc.value)
			if _, err := Load(); err == nil {
				t.Fatalf("expected %s=%s to be rejected", tc.key, tc.value)
			}
		})
	}
}
