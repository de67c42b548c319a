package warehouseconfig

import (
	"fmt"

	"go.uber.org/multierr"
)

// Validate reports every structural problem with cfg at once rather than
// stopping at the first one, the same posture as the teacher's
// internal/config validate.go (ValidateDrive collects every field error into
// one combined report instead of failing fast on the first).
func (c *Config) Validate() error {
	var err error

	if c.Host == "" {
		err = multierr.Append(err, fmt.Errorf("sqlwarehouse: host is required"))
	}

	if c.HTTPPath == "" {
		err = multierr.Append(err, fmt.Errorf("sqlwarehouse: http path is required"))
	}

	switch c.Backend {
	case BackendThrift, BackendSEA:
	default:
		err = multierr.Append(err, fmt.Errorf("sqlwarehouse: unknown backend %q", c.Backend))
	}

	switch c.ParamStyle {
	case "named", "positional", "inline", "":
	default:
		err = multierr.Append(err, fmt.Errorf("sqlwarehouse: unknown param_style %q", c.ParamStyle))
	}

	if c.MaxDownloadThreads <= 0 {
		err = multierr.Append(err, fmt.Errorf("sqlwarehouse: max_download_threads must be positive"))
	}

	return err
}
