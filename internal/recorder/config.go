package recorder

import "github.com/harubonchi/heat-cycle-demo/internal/errors"

const (
	// File system permissions and paths
	defaultDirPerm = 0o755
	defaultDBPath  = "/var/lib/heatcycled/readings.db"

	defaultBatchSize    = 16
	defaultBatchTimeout = 5
)

type Config struct {
	DBPath  string
	Enabled bool
	// BatchSize readings are buffered before a flush; BatchTimeout (in
	// seconds) bounds how long a partial batch may sit.
	BatchSize    int
	BatchTimeout int
}

func DefaultConfig() Config {
	return Config{
		DBPath:       defaultDBPath,
		Enabled:      false, // Disabled by default
		BatchSize:    defaultBatchSize,
		BatchTimeout: defaultBatchTimeout,
	}
}

func (c Config) Validate() error {
	errFactory := errors.New()

	// Only validate DBPath if recording is enabled
	if c.Enabled && c.DBPath == "" {
		return errFactory.New(ErrInvalidDBPath)
	}

	return nil
}

func nullable(v Value) any {
	if !v.Valid {
		return nil
	}

	return v.V
}
