package config

import (
	"errors"
	"os"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Auth type constants
const (
	AuthTypeNone   = "none"
	AuthTypeBearer = "bearer"
	AuthTypeAPIKey = "apikey"
)

// Report format constants
const (
	FormatHTML = "html"
	FormatJSON = "json"
)

// AuthSettings configuration for API authentication
type AuthSettings struct {
	Type        string   `mapstructure:"type"` // AuthTypeNone, AuthTypeBearer, or AuthTypeAPIKey
	BearerToken string   `mapstructure:"bearer_token"`
	APIKeys     []string `mapstructure:"api_keys"`
}

// UpstreamSettings configuration for the upstream search index
type UpstreamSettings struct {
	BaseURL string        `mapstructure:"base_url"`
	Indexes string        `mapstructure:"indexes"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// ScanSettings configuration for the search pipeline
type ScanSettings struct {
	Connections string `mapstructure:"connections"`
	Output      string `mapstructure:"output"`
	Format      string `mapstructure:"format"`
	DelayMS     int    `mapstructure:"delay_ms"`
	MaxHits     int    `mapstructure:"max_hits"`
	MaxContacts int    `mapstructure:"max_contacts"`
	IncludeHits bool   `mapstructure:"include_hits"`
	MaxFieldLen int    `mapstructure:"max_field_len"`
}

// ReportSettings configuration for report rendering
type ReportSettings struct {
	PDFBaseURL string `mapstructure:"pdf_base_url"`
	LogoPath   string `mapstructure:"logo_path"`
}

// ServerSettings configuration for the REST API server
type ServerSettings struct {
	Host        string   `mapstructure:"host"`
	Port        int      `mapstructure:"port"`
	CORSOrigins []string `mapstructure:"cors_origins"`
}

// Settings application settings
type Settings struct {
	Upstream UpstreamSettings `mapstructure:"upstream"`
	Scan     ScanSettings     `mapstructure:"scan"`
	Report   ReportSettings   `mapstructure:"report"`
	Server   ServerSettings   `mapstructure:"server"`
	Auth     AuthSettings     `mapstructure:"auth"`
}

// LoadSettings loads settings from environment variables and optional .env file
func LoadSettings() (*Settings, error) {
	return LoadSettingsWithFlags(nil)
}

// LoadSettingsWithFlags loads settings with optional CLI flag overrides.
// Priority: CLI flags > environment variables > .env file > defaults.
// If flags is nil, only env vars and defaults are used.
func LoadSettingsWithFlags(flags *pflag.FlagSet) (*Settings, error) {
	v := viper.New()

	// Default values
	v.SetDefault("upstream.base_url", "https://analytics.dugganusa.com/api/v1/search")
	v.SetDefault("upstream.indexes", "epstein_files")
	v.SetDefault("upstream.timeout", 30*time.Second)

	v.SetDefault("scan.output", "")
	v.SetDefault("scan.format", FormatHTML)
	v.SetDefault("scan.delay_ms", 250)
	v.SetDefault("scan.max_hits", 100)
	v.SetDefault("scan.max_contacts", 0)
	v.SetDefault("scan.include_hits", true)
	v.SetDefault("scan.max_field_len", 512)

	v.SetDefault("report.pdf_base_url", "https://www.justice.gov/epstein/files/")
	v.SetDefault("report.logo_path", "assets/logo.png")

	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("auth.type", AuthTypeNone)

	// Environment variables
	v.SetEnvPrefix("EPSTEIN_SCAN")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Bind specific env vars for nested config
	_ = v.BindEnv("upstream.base_url", "EPSTEIN_SCAN_UPSTREAM_BASE_URL")
	_ = v.BindEnv("upstream.indexes", "EPSTEIN_SCAN_UPSTREAM_INDEXES")
	_ = v.BindEnv("upstream.timeout", "EPSTEIN_SCAN_UPSTREAM_TIMEOUT")
	_ = v.BindEnv("scan.delay_ms", "EPSTEIN_SCAN_SCAN_DELAY_MS")
	_ = v.BindEnv("scan.max_hits", "EPSTEIN_SCAN_SCAN_MAX_HITS")
	_ = v.BindEnv("scan.max_contacts", "EPSTEIN_SCAN_SCAN_MAX_CONTACTS")
	_ = v.BindEnv("scan.include_hits", "EPSTEIN_SCAN_SCAN_INCLUDE_HITS")
	_ = v.BindEnv("scan.max_field_len", "EPSTEIN_SCAN_SCAN_MAX_FIELD_LEN")
	_ = v.BindEnv("report.pdf_base_url", "EPSTEIN_SCAN_REPORT_PDF_BASE_URL")
	_ = v.BindEnv("report.logo_path", "EPSTEIN_SCAN_REPORT_LOGO_PATH")
	_ = v.BindEnv("server.host", "EPSTEIN_SCAN_SERVER_HOST")
	_ = v.BindEnv("server.port", "EPSTEIN_SCAN_SERVER_PORT")
	_ = v.BindEnv("server.cors_origins", "EPSTEIN_SCAN_SERVER_CORS_ORIGINS")
	_ = v.BindEnv("auth.type", "EPSTEIN_SCAN_AUTH_TYPE")
	_ = v.BindEnv("auth.bearer_token", "EPSTEIN_SCAN_AUTH_BEARER_TOKEN")
	_ = v.BindEnv("auth.api_keys", "EPSTEIN_SCAN_AUTH_API_KEYS")

	// Bind CLI flags if provided (highest priority)
	if flags != nil {
		_ = v.BindPFlag("scan.connections", flags.Lookup("connections"))
		_ = v.BindPFlag("scan.output", flags.Lookup("output"))
		_ = v.BindPFlag("scan.format", flags.Lookup("format"))
		_ = v.BindPFlag("scan.delay_ms", flags.Lookup("delay-ms"))
		_ = v.BindPFlag("scan.max_hits", flags.Lookup("max-hits"))
		_ = v.BindPFlag("scan.max_contacts", flags.Lookup("max-contacts"))
		_ = v.BindPFlag("scan.include_hits", flags.Lookup("include-hits"))
		_ = v.BindPFlag("report.logo_path", flags.Lookup("logo"))
		_ = v.BindPFlag("server.host", flags.Lookup("host"))
		_ = v.BindPFlag("server.port", flags.Lookup("port"))
		_ = v.BindPFlag("server.cors_origins", flags.Lookup("cors-origins"))
		_ = v.BindPFlag("auth.type", flags.Lookup("auth-type"))
		_ = v.BindPFlag("auth.bearer_token", flags.Lookup("auth-bearer-token"))
		_ = v.BindPFlag("auth.api_keys", flags.Lookup("auth-api-keys"))
	}

	// Helper to look for .env file
	v.SetConfigName(".env")
	v.SetConfigType("env")
	v.AddConfigPath(".")
	_ = v.ReadInConfig() // Ignore error if .env doesn't exist

	var settings Settings
	if err := v.Unmarshal(&settings); err != nil {
		return nil, err
	}

	// Handle explicit parsing of API keys if provided via env var as comma-separated string
	apiKeysEnv := os.Getenv("EPSTEIN_SCAN_AUTH_API_KEYS")
	if apiKeysEnv != "" {
		if len(settings.Auth.APIKeys) == 0 || (len(settings.Auth.APIKeys) == 1 && strings.Contains(settings.Auth.APIKeys[0], ",")) {
			settings.Auth.APIKeys = strings.Split(apiKeysEnv, ",")
		}
	}
	for i := range settings.Auth.APIKeys {
		settings.Auth.APIKeys[i] = strings.TrimSpace(settings.Auth.APIKeys[i])
	}
	settings.Auth.APIKeys = filterEmptyStrings(settings.Auth.APIKeys)

	// Handle explicit parsing of CORS origins if provided via env var as comma-separated string
	corsEnv := os.Getenv("EPSTEIN_SCAN_SERVER_CORS_ORIGINS")
	if corsEnv != "" {
		if len(settings.Server.CORSOrigins) == 0 || (len(settings.Server.CORSOrigins) == 1 && strings.Contains(settings.Server.CORSOrigins[0], ",")) {
			settings.Server.CORSOrigins = strings.Split(corsEnv, ",")
		}
	}
	for i := range settings.Server.CORSOrigins {
		settings.Server.CORSOrigins[i] = strings.TrimSpace(settings.Server.CORSOrigins[i])
	}
	settings.Server.CORSOrigins = filterEmptyStrings(settings.Server.CORSOrigins)

	return &settings, nil
}

// filterEmptyStrings removes empty strings from a slice
func filterEmptyStrings(s []string) []string {
	var result []string
	for _, str := range s {
		if str != "" {
			result = append(result, str)
		}
	}
	return result
}

// ValidateSettings checks for conflicting or out-of-range configurations.
func ValidateSettings(s *Settings) error {
	switch s.Scan.Format {
	case FormatHTML, FormatJSON:
		// valid
	default:
		return errors.New("format must be 'html' or 'json', got: " + s.Scan.Format)
	}

	if s.Scan.DelayMS < 0 {
		return errors.New("delay-ms cannot be negative")
	}
	if s.Scan.MaxHits < 1 {
		return errors.New("max-hits must be at least 1")
	}
	if s.Scan.MaxContacts < 0 {
		return errors.New("max-contacts cannot be negative")
	}
	if s.Scan.MaxFieldLen < 0 {
		return errors.New("max-field-len cannot be negative")
	}
	if s.Upstream.BaseURL == "" {
		return errors.New("upstream base URL cannot be empty")
	}
	if s.Upstream.Indexes == "" {
		return errors.New("upstream index namespace cannot be empty")
	}
	if s.Upstream.Timeout <= 0 {
		return errors.New("upstream timeout must be positive")
	}
	if s.Report.PDFBaseURL == "" {
		return errors.New("pdf base URL cannot be empty")
	}

	return validateAuthSettings(&s.Auth)
}

// validateAuthSettings checks for mutually exclusive or incomplete auth config.
func validateAuthSettings(a *AuthSettings) error {
	hasToken := a.BearerToken != ""
	hasAPIKeys := len(a.APIKeys) > 0

	switch a.Type {
	case AuthTypeNone, "":
		if hasToken || hasAPIKeys {
			return errors.New("auth-type 'none' is incompatible with auth credentials")
		}
	case AuthTypeBearer:
		if hasAPIKeys {
			return errors.New("auth-type 'bearer' is mutually exclusive with auth-api-keys")
		}
		if !hasToken {
			return errors.New("auth-type 'bearer' requires a bearer token")
		}
	case AuthTypeAPIKey:
		if hasToken {
			return errors.New("auth-type 'apikey' is mutually exclusive with a bearer token")
		}
		if !hasAPIKeys {
			return errors.New("auth-type 'apikey' requires at least one API key")
		}
	default:
		return errors.New("unknown auth-type: " + a.Type)
	}
	return nil
}

// ValidateServeSettings validates the additional constraints of serve
// mode on top of ValidateSettings. Explicit CORS origins are required;
// the wildcard origin is rejected.
func ValidateServeSettings(s *Settings) error {
	if err := ValidateSettings(s); err != nil {
		return err
	}

	if s.Server.Port < 1 || s.Server.Port > 65535 {
		return errors.New("port must be between 1 and 65535")
	}
	if len(s.Server.CORSOrigins) == 0 {
		return errors.New("serve mode requires at least one explicit CORS origin (cors-origins)")
	}
	for _, origin := range s.Server.CORSOrigins {
		if origin == "*" {
			return errors.New("wildcard origin '*' is not allowed in cors-origins")
		}
	}
	return nil
}
