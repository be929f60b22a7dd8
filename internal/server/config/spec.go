package config

// ServerConfig is the root configuration for askgate-server.
type ServerConfig struct {
	Server  ServerSection  `koanf:"server"`
	Queue   QueueSection   `koanf:"queue"`
	Storage StorageSection `koanf:"storage"`
	Auth    AuthSection    `koanf:"auth"`
	Relay   RelaySection   `koanf:"relay"`
	Log     LogSection     `koanf:"log"`
}

// ServerSection configures the listener endpoints.
type ServerSection struct {
	// Addr is the WebSocket listen address.
	Addr string `koanf:"addr"`

	// MetricsAddr serves /metrics and /healthz. Empty disables the
	// metrics listener.
	MetricsAddr string `koanf:"metrics_addr"`

	// AllowedOrigins restricts WebSocket upgrades by Origin header.
	// Empty allows any origin.
	AllowedOrigins []string `koanf:"allowed_origins"`

	TLSCertFile string `koanf:"tls_cert_file"`
	TLSKeyFile  string `koanf:"tls_key_file"`
}

// QueueSection configures the message broker.
type QueueSection struct {
	// URL is the AMQP connection string.
	URL string `koanf:"url"`

	// InputQueue receives published request envelopes.
	InputQueue string `koanf:"input_queue"`

	// OutputQueue is consumed for worker responses.
	OutputQueue string `koanf:"output_queue"`

	// Prefetch bounds unacknowledged deliveries per consumer.
	Prefetch int `koanf:"prefetch"`
}

// StorageSection configures the token store.
type StorageSection struct {
	// Backend selects the token store engine: badger or memory.
	Backend string `koanf:"backend"`

	// DataDir is the badger data directory.
	DataDir string `koanf:"data_dir"`
}

// AuthSection configures the access control gate.
type AuthSection struct {
	// APIKeys is the static allow-list. Entries in $argon2id$ format
	// are verified as hashes, anything else as a plain key.
	APIKeys []string `koanf:"api_keys"`

	// APIKeysFile holds one key per line; watched for changes and
	// reloaded live. Merged with APIKeys.
	APIKeysFile string `koanf:"api_keys_file"`

	// RateLimit is the per-key request rate in requests/second
	// (0 disables rate limiting).
	RateLimit int `koanf:"rate_limit"`
}

// RelaySection configures the correlation engine.
type RelaySection struct {
	// RoutedWindowSize bounds the duplicate-detection window of
	// recently routed correlation IDs.
	RoutedWindowSize int `koanf:"routed_window_size"`
}

// LogSection configures logging.
type LogSection struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}
