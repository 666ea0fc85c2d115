package config

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
)

// Config holds all runtime configuration for the Partyline server.
// Precedence: CLI flags > env vars > defaults.
type Config struct {
	DataDir   string
	HTTPPort  int
	LogLevel  string
	LogFormat string // log output format: "text" or "json"

	Personas        string // comma-separated persona names, rotated per call
	SurpriseNumbers string // comma-separated fallback dial-out numbers
	AccessCode      string // DTMF code gating the dial-anywhere flow
	SettingsID      string // fixed id of the global settings record

	TwilioAuthToken string // webhook signature validation secret
	DisableAuth     bool   // skip webhook signature validation (local dev)

	SpotifyClientID     string
	SpotifyClientSecret string
	SpotifyRefreshToken string

	AWSRegion          string
	AWSAccessKeyID     string
	AWSSecretAccessKey string
	ClipBucket         string // S3 bucket holding the persona voice clips
	S3Endpoint         string // custom endpoint for S3-compatible storage

	HubitatURL         string // hub base URL including scheme
	HubitatAppID       string // Maker API app instance id
	HubitatAccessToken string
	HubitatDeviceIDs   string // comma-separated light device ids

	RetentionDays int // unpublished recordings older than this are swept
}

// defaults
const (
	defaultDataDir       = "./data"
	defaultHTTPPort      = 8080
	defaultLogLevel      = "info"
	defaultLogFormat     = "text"
	defaultPersonas      = "general"
	defaultSettingsID    = "00000000-0000-0000-0000-000000000001"
	defaultRetentionDays = 7
)

// envPrefix is the prefix for all Partyline environment variables.
const envPrefix = "PARTYLINE_"

// Load parses configuration from CLI flags and environment variables.
// Precedence: CLI flags > env vars > defaults.
func Load() (*Config, error) {
	cfg := &Config{}

	fs := flag.NewFlagSet("partyline", flag.ContinueOnError)

	fs.StringVar(&cfg.DataDir, "data-dir", defaultDataDir, "data directory for the database")
	fs.IntVar(&cfg.HTTPPort, "http-port", defaultHTTPPort, "HTTP server listen port")
	fs.StringVar(&cfg.LogLevel, "log-level", defaultLogLevel, "log level (debug, info, warn, error)")
	fs.StringVar(&cfg.LogFormat, "log-format", defaultLogFormat, "log output format (text, json)")
	fs.StringVar(&cfg.Personas, "personas", defaultPersonas, "comma-separated persona names rotated across calls")
	fs.StringVar(&cfg.SurpriseNumbers, "surprise-numbers", "", "comma-separated fallback numbers for the surprise dial-out")
	fs.StringVar(&cfg.AccessCode, "access-code", "", "DTMF access code for the dial-anywhere flow")
	fs.StringVar(&cfg.SettingsID, "settings-id", defaultSettingsID, "id of the global settings record")
	fs.StringVar(&cfg.TwilioAuthToken, "twilio-auth-token", "", "Twilio auth token for webhook signature validation")
	fs.BoolVar(&cfg.DisableAuth, "disable-auth", false, "disable webhook signature validation (local development only)")
	fs.StringVar(&cfg.SpotifyClientID, "spotify-client-id", "", "Spotify application client id")
	fs.StringVar(&cfg.SpotifyClientSecret, "spotify-client-secret", "", "Spotify application client secret")
	fs.StringVar(&cfg.SpotifyRefreshToken, "spotify-refresh-token", "", "Spotify refresh token for the shared player account")
	fs.StringVar(&cfg.AWSRegion, "aws-region", "us-east-1", "AWS region for the clip bucket")
	fs.StringVar(&cfg.AWSAccessKeyID, "aws-access-key-id", "", "AWS access key id (falls back to the default chain)")
	fs.StringVar(&cfg.AWSSecretAccessKey, "aws-secret-access-key", "", "AWS secret access key")
	fs.StringVar(&cfg.ClipBucket, "clip-bucket", "", "S3 bucket holding persona voice clips")
	fs.StringVar(&cfg.S3Endpoint, "s3-endpoint", "", "custom endpoint for S3-compatible clip storage")
	fs.StringVar(&cfg.HubitatURL, "hubitat-url", "", "Hubitat hub base URL including scheme")
	fs.StringVar(&cfg.HubitatAppID, "hubitat-app-id", "", "Hubitat Maker API app id")
	fs.StringVar(&cfg.HubitatAccessToken, "hubitat-access-token", "", "Hubitat Maker API access token")
	fs.StringVar(&cfg.HubitatDeviceIDs, "hubitat-device-ids", "", "comma-separated Hubitat light device ids")
	fs.IntVar(&cfg.RetentionDays, "retention-days", defaultRetentionDays, "days to keep unpublished recordings before sweeping")

	if err := fs.Parse(os.Args[1:]); err != nil {
		return nil, fmt.Errorf("parsing flags: %w", err)
	}

	// Apply env var overrides for any flags not explicitly set on the command line.
	// CLI flags take precedence over env vars.
	applyEnvOverrides(fs, cfg)

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// applyEnvOverrides checks environment variables for any flag that was not
// explicitly provided on the command line. This preserves the precedence:
// CLI flags > env vars > defaults.
func applyEnvOverrides(fs *flag.FlagSet, cfg *Config) {
	// Track which flags were explicitly set via CLI.
	set := make(map[string]bool)
	fs.Visit(func(f *flag.Flag) {
		set[f.Name] = true
	})

	// Map of flag name to env var name.
	envMap := map[string]string{
		"data-dir":              envPrefix + "DATA_DIR",
		"http-port":             envPrefix + "HTTP_PORT",
		"log-level":             envPrefix + "LOG_LEVEL",
		"log-format":            envPrefix + "LOG_FORMAT",
		"personas":              envPrefix + "PERSONAS",
		"surprise-numbers":      envPrefix + "SURPRISE_NUMBERS",
		"access-code":           envPrefix + "ACCESS_CODE",
		"settings-id":           envPrefix + "SETTINGS_ID",
		"twilio-auth-token":     envPrefix + "TWILIO_AUTH_TOKEN",
		"disable-auth":          envPrefix + "DISABLE_AUTH",
		"spotify-client-id":     envPrefix + "SPOTIFY_CLIENT_ID",
		"spotify-client-secret": envPrefix + "SPOTIFY_CLIENT_SECRET",
		"spotify-refresh-token": envPrefix + "SPOTIFY_REFRESH_TOKEN",
		"aws-region":            envPrefix + "AWS_REGION",
		"aws-access-key-id":     envPrefix + "AWS_ACCESS_KEY_ID",
		"aws-secret-access-key": envPrefix + "AWS_SECRET_ACCESS_KEY",
		"clip-bucket":           envPrefix + "CLIP_BUCKET",
		"s3-endpoint":           envPrefix + "S3_ENDPOINT",
		"hubitat-url":           envPrefix + "HUBITAT_URL",
		"hubitat-app-id":        envPrefix + "HUBITAT_APP_ID",
		"hubitat-access-token":  envPrefix + "HUBITAT_ACCESS_TOKEN",
		"hubitat-device-ids":    envPrefix + "HUBITAT_DEVICE_IDS",
		"retention-days":        envPrefix + "RETENTION_DAYS",
	}

	for flagName, envVar := range envMap {
		if set[flagName] {
			continue
		}
		val, ok := os.LookupEnv(envVar)
		if !ok || val == "" {
			continue
		}
		switch flagName {
		case "data-dir":
			cfg.DataDir = val
		case "http-port":
			if v, err := strconv.Atoi(val); err == nil {
				cfg.HTTPPort = v
			}
		case "log-level":
			cfg.LogLevel = val
		case "log-format":
			cfg.LogFormat = val
		case "personas":
			cfg.Personas = val
		case "surprise-numbers":
			cfg.SurpriseNumbers = val
		case "access-code":
			cfg.AccessCode = val
		case "settings-id":
			cfg.SettingsID = val
		case "twilio-auth-token":
			cfg.TwilioAuthToken = val
		case "disable-auth":
			if v, err := strconv.ParseBool(val); err == nil {
				cfg.DisableAuth = v
			}
		case "spotify-client-id":
			cfg.SpotifyClientID = val
		case "spotify-client-secret":
			cfg.SpotifyClientSecret = val
		case "spotify-refresh-token":
			cfg.SpotifyRefreshToken = val
		case "aws-region":
			cfg.AWSRegion = val
		case "aws-access-key-id":
			cfg.AWSAccessKeyID = val
		case "aws-secret-access-key":
			cfg.AWSSecretAccessKey = val
		case "clip-bucket":
			cfg.ClipBucket = val
		case "s3-endpoint":
			cfg.S3Endpoint = val
		case "hubitat-url":
			cfg.HubitatURL = val
		case "hubitat-app-id":
			cfg.HubitatAppID = val
		case "hubitat-access-token":
			cfg.HubitatAccessToken = val
		case "hubitat-device-ids":
			cfg.HubitatDeviceIDs = val
		case "retention-days":
			if v, err := strconv.Atoi(val); err == nil {
				cfg.RetentionDays = v
			}
		}
	}
}

// validate checks that the config values are sane.
func (c *Config) validate() error {
	if c.HTTPPort < 1 || c.HTTPPort > 65535 {
		return fmt.Errorf("http-port must be between 1 and 65535, got %d", c.HTTPPort)
	}
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[strings.ToLower(c.LogLevel)] {
		return fmt.Errorf("log-level must be one of debug, info, warn, error; got %q", c.LogLevel)
	}
	c.LogLevel = strings.ToLower(c.LogLevel)

	validFormats := map[string]bool{"text": true, "json": true}
	if !validFormats[strings.ToLower(c.LogFormat)] {
		return fmt.Errorf("log-format must be one of text, json; got %q", c.LogFormat)
	}
	c.LogFormat = strings.ToLower(c.LogFormat)

	if len(c.PersonaList()) == 0 {
		return fmt.Errorf("personas must name at least one persona")
	}
	if c.SettingsID == "" {
		return fmt.Errorf("settings-id must not be empty")
	}
	if c.RetentionDays < 1 {
		return fmt.Errorf("retention-days must be at least 1, got %d", c.RetentionDays)
	}
	if !c.DisableAuth && c.TwilioAuthToken == "" {
		return fmt.Errorf("twilio-auth-token is required unless disable-auth is set")
	}
	return nil
}

// PersonaList returns the configured personas as a slice.
func (c *Config) PersonaList() []string {
	return splitCSV(c.Personas)
}

// SurpriseNumberList returns the fallback dial-out numbers as a slice.
func (c *Config) SurpriseNumberList() []string {
	return splitCSV(c.SurpriseNumbers)
}

// HubitatDeviceIDList returns the light device ids as a slice.
func (c *Config) HubitatDeviceIDList() []string {
	return splitCSV(c.HubitatDeviceIDs)
}

func splitCSV(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

// SlogHandler returns a slog.Handler configured with the appropriate format
// (text or json) and log level.
func (c *Config) SlogHandler(w *os.File) slog.Handler {
	opts := &slog.HandlerOptions{Level: c.SlogLevel()}
	if c.LogFormat == "json" {
		return slog.NewJSONHandler(w, opts)
	}
	return slog.NewTextHandler(w, opts)
}

// SlogLevel returns the slog.Level corresponding to the configured log level.
func (c *Config) SlogLevel() slog.Level {
	switch c.LogLevel {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
