package warehouseconfig

import "time"

// Default values, mirroring the teacher's defaults.go "layer 0" pattern:
// DefaultConfig is the base that a DSN's explicit fields and then functional
// Options override, never the other way around.
const (
	defaultSocketTimeout          = 900 * time.Second
	defaultRetryStopAfterAttempts = 5
	defaultRetryStopAfterDuration = 15 * time.Minute
	defaultMaxDownloadThreads     = 10
	defaultParamStyle             = "named"
)

// DefaultConfig returns a Config populated with all default values.
func DefaultConfig() *Config {
	return &Config{
		Backend:                BackendThrift,
		UseCloudFetch:          true,
		LZ4Compression:         true,
		MaxDownloadThreads:     defaultMaxDownloadThreads,
		ParamStyle:             defaultParamStyle,
		SocketTimeout:          defaultSocketTimeout,
		RetryStopAfterAttempts: defaultRetryStopAfterAttempts,
		RetryStopAfterDuration: defaultRetryStopAfterDuration,
		SessionConfig:          map[string]string{},
		QueryTags:              map[string]string{},
	}
}
