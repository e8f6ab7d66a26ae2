package config

import (
	"context"
	"log/slog"
	"strings"
)

// Log logs the resolved settings in a granular way, skipping irrelevant ones
func Log(s *Settings) {
	LogWithLogger(s, slog.Default())
}

// LogWithLogger logs the resolved settings using the provided logger
func LogWithLogger(s *Settings, logger *slog.Logger) {
	ctx := context.Background()
	logger.InfoContext(ctx, "Config: upstream.base_url", "value", s.Upstream.BaseURL)
	logger.InfoContext(ctx, "Config: upstream.indexes", "value", s.Upstream.Indexes)
	logger.InfoContext(ctx, "Config: upstream.timeout", "value", s.Upstream.Timeout)
	logger.InfoContext(ctx, "Config: scan.format", "value", s.Scan.Format)
	logger.InfoContext(ctx, "Config: scan.delay_ms", "value", s.Scan.DelayMS)
	logger.InfoContext(ctx, "Config: scan.max_hits", "value", s.Scan.MaxHits)
	if s.Scan.MaxContacts > 0 {
		logger.InfoContext(ctx, "Config: scan.max_contacts", "value", s.Scan.MaxContacts)
	}
	logger.InfoContext(ctx, "Config: scan.include_hits", "value", s.Scan.IncludeHits)

	logger.InfoContext(ctx, "Config: auth.type", "value", s.Auth.Type)
	switch s.Auth.Type {
	case AuthTypeBearer:
		logger.InfoContext(ctx, "Config: auth.bearer_token", "value", "****")
	case AuthTypeAPIKey:
		logger.InfoContext(ctx, "Config: auth.api_keys", "count", len(s.Auth.APIKeys))
	}
}

// LogServeWithLogger logs the serve-mode settings on top of the common ones
func LogServeWithLogger(s *Settings, logger *slog.Logger) {
	ctx := context.Background()
	LogWithLogger(s, logger)
	logger.InfoContext(ctx, "Config: server.host", "value", s.Server.Host)
	logger.InfoContext(ctx, "Config: server.port", "value", s.Server.Port)
	logger.InfoContext(ctx, "Config: server.cors_origins", "value", strings.Join(s.Server.CORSOrigins, ","))
}

// AuthSettingsLogValue returns a slog.Value for AuthSettings with masked data
func AuthSettingsLogValue(s AuthSettings) slog.Value {
	keys := make([]string, len(s.APIKeys))
	for i := range s.APIKeys {
		keys[i] = "****"
	}
	token := ""
	if s.BearerToken != "" {
		token = "****"
	}
	return slog.GroupValue(
		slog.String("type", s.Type),
		slog.String("bearer_token", token),
		slog.Any("api_keys", keys),
	)
}

// SettingsLogValue returns a slog.Value for Settings with masked data
func SettingsLogValue(s Settings) slog.Value {
	return slog.GroupValue(
		slog.String("upstream_base_url", s.Upstream.BaseURL),
		slog.String("upstream_indexes", s.Upstream.Indexes),
		slog.String("format", s.Scan.Format),
		slog.String("host", s.Server.Host),
		slog.Int("port", s.Server.Port),
		slog.Any("auth", AuthSettingsLogValue(s.Auth)),
	)
}
