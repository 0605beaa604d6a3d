package config

import (
	"strings"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost:5432/healthd")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Port != "8000" {
		t.Errorf("Port = %q, want 8000", cfg.Port)
	}
	if !cfg.IsDev() {
		t.Error("default ENV should be development")
	}
	if cfg.DBMaxConns != 20 || cfg.DBMinConns != 5 {
		t.Errorf("pool defaults = %d/%d, want 20/5", cfg.DBMaxConns, cfg.DBMinConns)
	}
	if cfg.EventLookbackDays != 7 {
		t.Errorf("EventLookbackDays = %d, want 7", cfg.EventLookbackDays)
	}
	if cfg.ReserveMaxRetries != 3 {
		t.Errorf("ReserveMaxRetries = %d, want 3", cfg.ReserveMaxRetries)
	}
	if !cfg.ConsentAllowRevision {
		t.Error("ConsentAllowRevision should default to true")
	}
}

func TestLoadRequiresDatabaseURL(t *testing.T) {
	t.Setenv("DATABASE_URL", "")

	if _, err := Load(); err == nil {
		t.Fatal("expected error when DATABASE_URL is missing")
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost:5432/healthd")
	t.Setenv("PORT", "9090")
	t.Setenv("ENV", "production")
	t.Setenv("EVENT_LOOKBACK_DAYS", "14")
	t.Setenv("CONSENT_ALLOW_REVISION", "false")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Port != "9090" {
		t.Errorf("Port = %q, want 9090", cfg.Port)
	}
	if !cfg.IsProduction() {
		t.Error("ENV override not applied")
	}
	if cfg.EventLookbackDays != 14 {
		t.Errorf("EventLookbackDays = %d, want 14", cfg.EventLookbackDays)
	}
	if cfg.ConsentAllowRevision {
		t.Error("CONSENT_ALLOW_REVISION override not applied")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr string
	}{
		{
			name: "dev without secret",
			cfg:  Config{Env: "development", EventLookbackDays: 7},
		},
		{
			name:    "production without secret",
			cfg:     Config{Env: "production", EventLookbackDays: 7},
			wantErr: "JWT_SECRET",
		},
		{
			name: "production with secret",
			cfg:  Config{Env: "production", JWTSecret: "s3cret", EventLookbackDays: 7},
		},
		{
			name:    "lookback too small",
			cfg:     Config{Env: "development", EventLookbackDays: 0},
			wantErr: "EVENT_LOOKBACK_DAYS",
		},
		{
			name:    "negative retries",
			cfg:     Config{Env: "development", EventLookbackDays: 7, ReserveMaxRetries: -1},
			wantErr: "RESERVE_MAX_RETRIES",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("error = %v, want mention of %s", err, tt.wantErr)
			}
		})
	}
}
