package config

import (
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("RIDEMATCH_TRAVEL_MOCK", "true")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.HTTP.Addr != ":8080" {
		t.Errorf("http addr = %q", cfg.HTTP.Addr)
	}
	if cfg.Dispatch.IdleThreshold != 30*time.Minute {
		t.Errorf("idle threshold = %v, want 30m", cfg.Dispatch.IdleThreshold)
	}
	if cfg.Dispatch.CarpoolRadiusKm != 1.0 {
		t.Errorf("carpool radius = %v, want 1.0", cfg.Dispatch.CarpoolRadiusKm)
	}
	if cfg.Dispatch.CarpoolDelay != 10*time.Minute {
		t.Errorf("carpool delay = %v, want 10m", cfg.Dispatch.CarpoolDelay)
	}
	if cfg.TravelTime.MaxCoordinates != 25 {
		t.Errorf("max coords = %d, want 25", cfg.TravelTime.MaxCoordinates)
	}
	if cfg.Dispatch.Location != time.UTC {
		t.Errorf("location = %v, want UTC", cfg.Dispatch.Location)
	}
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("RIDEMATCH_TRAVEL_MOCK", "1")
	t.Setenv("RIDEMATCH_IDLE_THRESHOLD_MIN", "45")
	t.Setenv("RIDEMATCH_TRAVEL_DAILY_QUOTA", "500")
	t.Setenv("RIDEMATCH_TARGET_DATE", "2026-03-01")
	t.Setenv("RIDEMATCH_TIMEZONE", "Asia/Taipei")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Dispatch.IdleThreshold != 45*time.Minute {
		t.Errorf("idle threshold = %v", cfg.Dispatch.IdleThreshold)
	}
	if cfg.TravelTime.DailyQuota != 500 {
		t.Errorf("daily quota = %d", cfg.TravelTime.DailyQuota)
	}
	if cfg.Dispatch.TargetDate != "2026-03-01" {
		t.Errorf("target date = %q", cfg.Dispatch.TargetDate)
	}
	if cfg.Dispatch.Location.String() != "Asia/Taipei" {
		t.Errorf("location = %v", cfg.Dispatch.Location)
	}
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"live mode without key", map[string]string{"RIDEMATCH_TRAVEL_MOCK": "false"}},
		{"bad int", map[string]string{"RIDEMATCH_TRAVEL_MOCK": "true", "RIDEMATCH_TRAVEL_BURST": "lots"}},
		{"bad date", map[string]string{"RIDEMATCH_TRAVEL_MOCK": "true", "RIDEMATCH_TARGET_DATE": "tomorrow"}},
		{"bad zone", map[string]string{"RIDEMATCH_TRAVEL_MOCK": "true", "RIDEMATCH_TIMEZONE": "Mars/Olympus"}},
		{"too few coords", map[string]string{"RIDEMATCH_TRAVEL_MOCK": "true", "RIDEMATCH_TRAVEL_MAX_COORDS": "1"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("RIDEMATCH_MAPS_API_KEY", "")
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			if _, err := Load(); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

func TestResolveTargetDate(t *testing.T) {
	now := time.Date(2026, 10, 18, 23, 30, 0, 0, time.UTC)

	got, err := ResolveTargetDate("", now, time.UTC)
	if err != nil {
		t.Fatal(err)
	}
	want := time.Date(2026, 10, 19, 0, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Errorf("default date = %v, want %v", got, want)
	}

	got, err = ResolveTargetDate("2026-12-31", now, time.UTC)
	if err != nil {
		t.Fatal(err)
	}
	if got.Day() != 31 || got.Month() != time.December {
		t.Errorf("explicit date = %v", got)
	}

	if _, err := ResolveTargetDate("31/12/2026", now, time.UTC); err == nil {
		t.Error("expected parse error")
	}
}
