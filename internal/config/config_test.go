package config

import (
	"log/slog"
	"os"
	"reflect"
	"testing"
)

func TestDefaults(t *testing.T) {
	// Clear any env vars that might interfere.
	for _, env := range []string{
		"PARTYLINE_DATA_DIR", "PARTYLINE_HTTP_PORT", "PARTYLINE_LOG_LEVEL",
		"PARTYLINE_PERSONAS", "PARTYLINE_TWILIO_AUTH_TOKEN",
		"PARTYLINE_DISABLE_AUTH", "PARTYLINE_RETENTION_DAYS",
	} {
		t.Setenv(env, "")
		os.Unsetenv(env)
	}

	os.Args = []string{"partyline", "--disable-auth"}
	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.DataDir != defaultDataDir {
		t.Errorf("DataDir = %q, want %q", cfg.DataDir, defaultDataDir)
	}
	if cfg.HTTPPort != defaultHTTPPort {
		t.Errorf("HTTPPort = %d, want %d", cfg.HTTPPort, defaultHTTPPort)
	}
	if cfg.LogLevel != defaultLogLevel {
		t.Errorf("LogLevel = %q, want %q", cfg.LogLevel, defaultLogLevel)
	}
	if cfg.Personas != defaultPersonas {
		t.Errorf("Personas = %q, want %q", cfg.Personas, defaultPersonas)
	}
	if cfg.SettingsID != defaultSettingsID {
		t.Errorf("SettingsID = %q, want %q", cfg.SettingsID, defaultSettingsID)
	}
	if cfg.RetentionDays != defaultRetentionDays {
		t.Errorf("RetentionDays = %d, want %d", cfg.RetentionDays, defaultRetentionDays)
	}
}

func TestEnvVarOverride(t *testing.T) {
	os.Args = []string{"partyline"}
	t.Setenv("PARTYLINE_HTTP_PORT", "9090")
	t.Setenv("PARTYLINE_DATA_DIR", "/tmp/partyline-test")
	t.Setenv("PARTYLINE_LOG_LEVEL", "debug")
	t.Setenv("PARTYLINE_PERSONAS", "marvin, greta ,ziggy")
	t.Setenv("PARTYLINE_TWILIO_AUTH_TOKEN", "tok")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.HTTPPort != 9090 {
		t.Errorf("HTTPPort = %d, want 9090", cfg.HTTPPort)
	}
	if cfg.DataDir != "/tmp/partyline-test" {
		t.Errorf("DataDir = %q, want /tmp/partyline-test", cfg.DataDir)
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("LogLevel = %q, want debug", cfg.LogLevel)
	}
	want := []string{"marvin", "greta", "ziggy"}
	if got := cfg.PersonaList(); !reflect.DeepEqual(got, want) {
		t.Errorf("PersonaList() = %v, want %v", got, want)
	}
}

func TestCLIFlagsPrecedence(t *testing.T) {
	// CLI flags should override env vars.
	os.Args = []string{"partyline", "--http-port", "3000", "--log-level", "warn", "--disable-auth"}
	t.Setenv("PARTYLINE_HTTP_PORT", "9090")
	t.Setenv("PARTYLINE_LOG_LEVEL", "debug")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.HTTPPort != 3000 {
		t.Errorf("HTTPPort = %d, want 3000 (CLI should override env)", cfg.HTTPPort)
	}
	if cfg.LogLevel != "warn" {
		t.Errorf("LogLevel = %q, want warn (CLI should override env)", cfg.LogLevel)
	}
}

func TestValidateInvalidPort(t *testing.T) {
	os.Args = []string{"partyline", "--http-port", "99999", "--disable-auth"}
	if _, err := Load(); err == nil {
		t.Fatal("expected error for invalid port, got nil")
	}
}

func TestValidateInvalidLogLevel(t *testing.T) {
	os.Args = []string{"partyline", "--log-level", "verbose", "--disable-auth"}
	if _, err := Load(); err == nil {
		t.Fatal("expected error for invalid log level, got nil")
	}
}

func TestValidateEmptyPersonas(t *testing.T) {
	os.Args = []string{"partyline", "--personas", " , ", "--disable-auth"}
	if _, err := Load(); err == nil {
		t.Fatal("expected error for empty persona list, got nil")
	}
}

func TestValidateAuthTokenRequired(t *testing.T) {
	for _, env := range []string{"PARTYLINE_TWILIO_AUTH_TOKEN", "PARTYLINE_DISABLE_AUTH"} {
		t.Setenv(env, "")
		os.Unsetenv(env)
	}
	os.Args = []string{"partyline"}
	if _, err := Load(); err == nil {
		t.Fatal("expected error when twilio-auth-token is missing and auth is on")
	}
}

func TestValidateRetentionDays(t *testing.T) {
	os.Args = []string{"partyline", "--retention-days", "0", "--disable-auth"}
	if _, err := Load(); err == nil {
		t.Fatal("expected error for zero retention days, got nil")
	}
}

func TestListAccessors(t *testing.T) {
	cfg := &Config{
		SurpriseNumbers:  "+15550001, +15550002",
		HubitatDeviceIDs: "7,8, 9",
	}
	if got := cfg.SurpriseNumberList(); !reflect.DeepEqual(got, []string{"+15550001", "+15550002"}) {
		t.Errorf("SurpriseNumberList() = %v", got)
	}
	if got := cfg.HubitatDeviceIDList(); !reflect.DeepEqual(got, []string{"7", "8", "9"}) {
		t.Errorf("HubitatDeviceIDList() = %v", got)
	}
	empty := &Config{}
	if got := empty.SurpriseNumberList(); got != nil {
		t.Errorf("SurpriseNumberList() on empty config = %v, want nil", got)
	}
}

func TestSlogLevel(t *testing.T) {
	tests := []struct {
		level string
		want  slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"error", slog.LevelError},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			cfg := &Config{LogLevel: tt.level}
			if got := cfg.SlogLevel(); got != tt.want {
				t.Errorf("SlogLevel() = %v, want %v", got, tt.want)
			}
		})
	}
}
