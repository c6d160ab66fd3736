package internal

import (
	"strings"
	"testing"
	"time"
)

func TestDefaultConfig_Valid(t *testing.T) {
	cfg := NewDefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config should validate: %v", err)
	}
	if !cfg.Remote.Offline {
		t.Error("default config should run offline")
	}
}

func TestSyncConfig_IntervalBelowMinimum(t *testing.T) {
	cfg := SyncConfig{IntervalSeconds: 5, MinimumIntervalSeconds: 10, RebuildThreshold: 0.5}
	if err := cfg.Validate(); err == nil {
		t.Fatal("interval below 10s should fail validation")
	}
}

func TestSyncConfig_Durations(t *testing.T) {
	cfg := SyncConfig{IntervalSeconds: 120, MinimumIntervalSeconds: 10}
	if got := cfg.Interval(); got != 2*time.Minute {
		t.Errorf("interval = %v, want 2m", got)
	}
	if got := cfg.MinimumInterval(); got != 10*time.Second {
		t.Errorf("minimum interval = %v, want 10s", got)
	}
}

func TestCacheConfig_MaxBelowPageSize(t *testing.T) {
	cfg := CacheConfig{DefaultPageSize: 100, MaxResults: 50, InitTimeoutSeconds: 60}
	err := cfg.Validate()
	if err == nil {
		t.Fatal("max_results below default_page_size should fail")
	}
	if !strings.Contains(err.Error(), "max_results") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestRemoteConfig_OfflineSkipsCredentials(t *testing.T) {
	cfg := RemoteConfig{Offline: true}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("offline mode should not require credentials: %v", err)
	}
}

func TestRemoteConfig_OnlineRequiresCredentials(t *testing.T) {
	cfg := RemoteConfig{Offline: false, TimeoutSeconds: 30}
	if err := cfg.Validate(); err == nil {
		t.Fatal("online mode with no base_url and token should fail")
	}
}

func TestHTTPConfig_DisabledSkipsValidation(t *testing.T) {
	cfg := HTTPConfig{Enabled: false}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("disabled http should not require a listen address: %v", err)
	}
}

func TestHTTPAuthConfig_EnabledEmptyToken(t *testing.T) {
	cfg := HTTPAuthConfig{Enabled: true, Token: ""}
	err := cfg.Validate()
	if err == nil {
		t.Fatal("enabled auth with empty token should fail")
	}
	if !strings.Contains(err.Error(), "token is empty") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestFullConfig_SectionValidationCalled(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Remote.Offline = false
	cfg.Remote.BaseURL = ""
	if err := cfg.Validate(); err == nil {
		t.Fatal("full config validate should catch the remote section error")
	}
}
