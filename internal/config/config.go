package config

// Config is the full service configuration. Loaded once at startup; the
// watcher reloads it on file change and notifies registered callbacks.
type Config struct {
	Environment string `mapstructure:"environment"`
	Port        int    `mapstructure:"port"`
	LogLevel    string `mapstructure:"log_level"`

	Database  DatabaseConfig  `mapstructure:"database"`
	Cache     CacheConfig     `mapstructure:"cache"`
	CORS      CORSConfig      `mapstructure:"cors"`
	SMTP      SMTPConfig      `mapstructure:"smtp"`
	Alerting  AlertingConfig  `mapstructure:"alerting"`
	NATS      NATSConfig      `mapstructure:"nats"`
	Retention RetentionConfig `mapstructure:"retention"`
	WebSocket WebSocketConfig `mapstructure:"websocket"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`

	// Source is the config file the values came from, empty when the
	// configuration was assembled from defaults and environment only.
	Source string `mapstructure:"-"`
}

type DatabaseConfig struct {
	URL             string `mapstructure:"url"`
	MaxOpenConns    int    `mapstructure:"max_open_conns"`
	MaxIdleConns    int    `mapstructure:"max_idle_conns"`
	ConnMaxLifetime int    `mapstructure:"conn_max_lifetime"` // seconds
}

type CacheConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	TTL      int    `mapstructure:"ttl"` // seconds
}

type CORSConfig struct {
	AllowedOrigins   []string `mapstructure:"allowed_origins"`
	AllowedMethods   []string `mapstructure:"allowed_methods"`
	AllowedHeaders   []string `mapstructure:"allowed_headers"`
	AllowCredentials bool     `mapstructure:"allow_credentials"`
	MaxAge           int      `mapstructure:"max_age"` // seconds
}

type SMTPConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	From     string `mapstructure:"from"`
}

type AlertingConfig struct {
	CheckIntervalSeconds  int `mapstructure:"check_interval_seconds"`
	QueueSize             int `mapstructure:"queue_size"`
	Workers               int `mapstructure:"workers"`
	WebhookTimeoutSeconds int `mapstructure:"webhook_timeout_seconds"`
}

type NATSConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	URL     string `mapstructure:"url"`
	Subject string `mapstructure:"subject"`
}

// RetentionConfig controls the opt-in purge of old resolved events. Disabled
// by default: nothing is ever deleted unless an operator turns this on.
type RetentionConfig struct {
	Enabled       bool `mapstructure:"enabled"`
	Days          int  `mapstructure:"days"`
	IntervalHours int  `mapstructure:"interval_hours"`
}

type WebSocketConfig struct {
	ReadBufferSize  int `mapstructure:"read_buffer_size"`
	WriteBufferSize int `mapstructure:"write_buffer_size"`
	SendBufferSize  int `mapstructure:"send_buffer_size"`
}

type RateLimitConfig struct {
	Enabled           bool  `mapstructure:"enabled"`
	RequestsPerMinute int64 `mapstructure:"requests_per_minute"`
}
