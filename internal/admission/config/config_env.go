// Package config provides environment config overrides.
package config

import (
	"fmt"
	"strconv"
	"strings"
)

func applyEnvOverrides(cfg *Config, environ []string) error {
	if cfg == nil {
		return fmt.Errorf("config is required")
	}
	values := envMap(environ)
	if value, ok := values["ADMISSION_SERVICE"]; ok {
		cfg.Service = value
	}
	if value, ok := values["ADMISSION_LOG_LEVEL"]; ok {
		cfg.Logging.Level = value
	}
	if value, ok := values["ADMISSION_HTTP_ENABLED"]; ok {
		parsed, err := parseBoolEnv("ADMISSION_HTTP_ENABLED", value)
		if err != nil {
			return err
		}
		cfg.HTTP.Enabled = parsed
	}
	if value, ok := values["ADMISSION_HTTP_ADDR"]; ok {
		cfg.HTTP.Addr = value
	}
	if value, ok := values["ADMISSION_STORE_BACKEND"]; ok {
		cfg.Store.Backend = strings.ToLower(value)
	}
	if value, ok := values["ADMISSION_REDIS_ADDR"]; ok {
		cfg.Store.Redis.Addr = value
	}
	if value, ok := values["ADMISSION_REDIS_PASSWORD"]; ok {
		cfg.Store.Redis.Password = value
	}
	if value, ok := values["ADMISSION_REDIS_DB"]; ok {
		parsed, err := parseIntEnv("ADMISSION_REDIS_DB", value)
		if err != nil {
			return err
		}
		cfg.Store.Redis.DB = int(parsed)
	}
	if value, ok := values["ADMISSION_REDIS_KEY_PREFIX"]; ok {
		cfg.Store.Redis.KeyPrefix = value
	}
	if value, ok := values["ADMISSION_REDIS_TIMEOUT_MS"]; ok {
		parsed, err := parseIntEnv("ADMISSION_REDIS_TIMEOUT_MS", value)
		if err != nil {
			return err
		}
		cfg.Store.Redis.TimeoutMS = parsed
	}
	if value, ok := values["ADMISSION_ADMIN_AUTH_ENABLED"]; ok {
		parsed, err := parseBoolEnv("ADMISSION_ADMIN_AUTH_ENABLED", value)
		if err != nil {
			return err
		}
		cfg.Admin.AuthEnabled = parsed
	}
	if value, ok := values["ADMISSION_ADMIN_TOKEN"]; ok {
		cfg.Admin.Token = value
	}
	if value, ok := values["ADMISSION_BREAKER_FAILURE_THRESHOLD"]; ok {
		parsed, err := parseIntEnv("ADMISSION_BREAKER_FAILURE_THRESHOLD", value)
		if err != nil {
			return err
		}
		cfg.Breaker.FailureThreshold = parsed
	}
	if value, ok := values["ADMISSION_BREAKER_RESET_TIMEOUT_MS"]; ok {
		parsed, err := parseIntEnv("ADMISSION_BREAKER_RESET_TIMEOUT_MS", value)
		if err != nil {
			return err
		}
		cfg.Breaker.ResetTimeoutMS = parsed
	}
	if value, ok := values["ADMISSION_BREAKER_HALF_OPEN_PROBES"]; ok {
		parsed, err := parseIntEnv("ADMISSION_BREAKER_HALF_OPEN_PROBES", value)
		if err != nil {
			return err
		}
		cfg.Breaker.HalfOpenProbes = parsed
	}
	if value, ok := values["ADMISSION_BLOCK_SECONDS"]; ok {
		parsed, err := parseIntEnv("ADMISSION_BLOCK_SECONDS", value)
		if err != nil {
			return err
		}
		cfg.Limits.BlockSeconds = parsed
	}
	if value, ok := values["ADMISSION_BYPASS"]; ok {
		parsed, err := parseBoolEnv("ADMISSION_BYPASS", value)
		if err != nil {
			return err
		}
		cfg.Limits.Bypass = parsed
	}
	return nil
}

func envMap(environ []string) map[string]string {
	values := make(map[string]string, len(environ))
	for _, entry := range environ {
		key, value, ok := strings.Cut(entry, "=")
		if !ok {
			continue
		}
		values[key] = value
	}
	return values
}

func parseBoolEnv(name, value string) (bool, error) {
	parsed, err := strconv.ParseBool(strings.TrimSpace(value))
	if err != nil {
		return false, fmt.Errorf("%s must be a boolean: %w", name, err)
	}
	return parsed, nil
}

func parseIntEnv(name, value string) (int64, error) {
	parsed, err := strconv.ParseInt(strings.TrimSpace(value), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer: %w", name, err)
	}
	return parsed, nil
}
