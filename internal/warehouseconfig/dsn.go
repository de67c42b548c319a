package warehouseconfig

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
)

// Environment variable names for overrides, mirroring the teacher's
// env.go naming convention adapted to this driver (SQLWAREHOUSE_ prefix
// instead of ONEDRIVE_GO_).
const (
	EnvAccessToken  = "SQLWAREHOUSE_ACCESS_TOKEN"
	EnvClientID     = "SQLWAREHOUSE_CLIENT_ID"
	EnvClientSecret = "SQLWAREHOUSE_CLIENT_SECRET"
)

// ParseDSN parses a connection string of the form:
//
//	sqlwarehouse://token:<pat>@<host>:<port>/<http-path>?catalog=x&schema=y&backend=sea
//
// into a Config, applying DefaultConfig as the base layer. Unrecognized
// query parameters are ignored rather than rejected; they are not forwarded
// as session configuration.
func ParseDSN(dsn string) (*Config, error) {
	u, err := url.Parse(dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlwarehouse: parsing DSN: %w", err)
	}

	if u.Scheme != "sqlwarehouse" && u.Scheme != "https" {
		return nil, fmt.Errorf("sqlwarehouse: unsupported DSN scheme %q", u.Scheme)
	}

	cfg := DefaultConfig()
	cfg.Host = u.Hostname()
	cfg.HTTPPath = strings.TrimPrefix(u.Path, "/")

	if portStr := u.Port(); portStr != "" {
		port, convErr := strconv.Atoi(portStr)
		if convErr != nil {
			return nil, fmt.Errorf("sqlwarehouse: invalid port %q: %w", portStr, convErr)
		}

		cfg.Port = port
	} else {
		cfg.Port = 443
	}

	if u.User != nil {
		if pw, ok := u.User.Password(); ok {
			cfg.Token = pw
			cfg.Auth = AuthPAT
		}
	}

	q := u.Query()
	cfg.Catalog = q.Get("catalog")
	cfg.Schema = q.Get("schema")

	if b := q.Get("backend"); b != "" {
		cfg.Backend = Backend(b)
	}

	if style := q.Get("param_style"); style != "" {
		cfg.ParamStyle = style
	}

	applyEnvFallback(cfg)

	return cfg, nil
}

// applyEnvFallback fills Token/ClientID/ClientSecret from the environment
// when the DSN didn't set them, the same "env overrides the unset default,
// never the explicit value" precedence as the teacher's ReadEnvOverrides.
func applyEnvFallback(cfg *Config) {
	if cfg.Token == "" {
		if v := os.Getenv(EnvAccessToken); v != "" {
			cfg.Token = v
			cfg.Auth = AuthPAT
		}
	}

	if cfg.ClientID == "" {
		cfg.ClientID = os.Getenv(EnvClientID)
	}

	if cfg.ClientSecret == "" {
		cfg.ClientSecret = os.Getenv(EnvClientSecret)
	}
}
