package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Supported key-value store drivers
const (
	DriverMemory   = "memory"
	DriverPostgres = "postgres"
	DriverMongo    = "mongo"
)

// Config holds all application configuration
type Config struct {
	// Server configuration
	Server ServerConfig `json:"server"`

	// Key-value store configuration
	Store StoreConfig `json:"store"`

	// MQTT telemetry configuration
	MQTT MQTTConfig `json:"mqtt"`

	// Logging configuration
	Logging LoggingConfig `json:"logging"`

	// CORS configuration for the admin API
	CORS CORSConfig `json:"cors"`

	// Admin API configuration
	Admin AdminConfig `json:"admin"`

	// Terminal protocol configuration
	Protocol ProtocolConfig `json:"protocol"`

	// Synchronization engine configuration
	Sync SyncConfig `json:"sync"`
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	Port         string        `json:"port"`
	ReadTimeout  time.Duration `json:"read_timeout"`
	WriteTimeout time.Duration `json:"write_timeout"`
	IdleTimeout  time.Duration `json:"idle_timeout"`
}

// StoreConfig selects and configures the durable key-value store
type StoreConfig struct {
	Driver   string         `json:"driver"` // memory, postgres or mongo
	Postgres PostgresConfig `json:"postgres"`
	Mongo    MongoConfig    `json:"mongo"`
	Timeout  time.Duration  `json:"timeout"`
}

// PostgresConfig holds PostgreSQL connection settings
type PostgresConfig struct {
	Host     string `json:"host"`
	Port     int    `json:"port"`
	User     string `json:"user"`
	Password string `json:"password"`
	DBName   string `json:"db_name"`
	SSLMode  string `json:"ssl_mode"`
	MaxConns int    `json:"max_conns"`
	MinConns int    `json:"min_conns"`
}

// MongoConfig holds MongoDB connection settings
type MongoConfig struct {
	URI        string `json:"uri"`
	Database   string `json:"database"`
	Collection string `json:"collection"`
}

// MQTTConfig holds MQTT-related configuration
type MQTTConfig struct {
	BrokerHost  string        `json:"broker_host"`
	BrokerPort  int           `json:"broker_port"`
	BrokerUser  string        `json:"broker_user"`
	BrokerPass  string        `json:"broker_pass"`
	UseTLS      bool          `json:"use_tls"`
	CACertPath  string        `json:"ca_cert_path"`
	ClientID    string        `json:"client_id"`
	TopicPrefix string        `json:"topic_prefix"`
	KeepAlive   time.Duration `json:"keep_alive"`
	PingTimeout time.Duration `json:"ping_timeout"`
}

// LoggingConfig holds logging-related configuration
type LoggingConfig struct {
	Level        string `json:"level"`
	Format       string `json:"format"` // json or text
	Output       string `json:"output"` // stdout or stderr
	EnableCaller bool   `json:"enable_caller"`
}

// CORSConfig holds CORS-related configuration
type CORSConfig struct {
	AllowedOrigins   []string `json:"allowed_origins"`
	AllowedMethods   []string `json:"allowed_methods"`
	AllowedHeaders   []string `json:"allowed_headers"`
	ExposedHeaders   []string `json:"exposed_headers"`
	AllowCredentials bool     `json:"allow_credentials"`
	MaxAge           int      `json:"max_age"`
}

// AdminConfig holds admin API configuration
type AdminConfig struct {
	APISecret string `json:"api_secret"`
}

// ProtocolConfig holds the options returned to terminals on handshake
type ProtocolConfig struct {
	ATTLogStamp   string `json:"attlog_stamp"`
	OperLogStamp  string `json:"operlog_stamp"`
	ATTPhotoStamp string `json:"attphoto_stamp"`
	ErrorDelay    int    `json:"error_delay"`
	Delay         int    `json:"delay"`
	TransTimes    string `json:"trans_times"`
	TransInterval int    `json:"trans_interval"`
	TransFlag     string `json:"trans_flag"`
	TimeZone      int    `json:"time_zone"`
	Realtime      bool   `json:"realtime"`
	Encrypt       bool   `json:"encrypt"`
	ServerHeader  string `json:"server_header"`
}

// SyncConfig holds synchronization engine configuration
type SyncConfig struct {
	TimeZone string `json:"time_zone"` // IANA name used to compute "today"
}

// Load loads configuration from environment variables with fallback defaults
func Load() (*Config, error) {
	// Try to load .env file, but don't fail if it doesn't exist
	_ = godotenv.Load()

	env := &envReader{}

	config := &Config{
		Server: ServerConfig{
			Port:         env.getEnv("PORT", "8081"),
			ReadTimeout:  env.getDuration("READ_TIMEOUT", 30*time.Second),
			WriteTimeout: env.getDuration("WRITE_TIMEOUT", 30*time.Second),
			IdleTimeout:  env.getDuration("IDLE_TIMEOUT", 120*time.Second),
		},
		Store: StoreConfig{
			Driver: strings.ToLower(env.getEnv("STORE_DRIVER", DriverMemory)),
			Postgres: PostgresConfig{
				Host:     env.getEnv("POSTGRES_HOST", "localhost"),
				Port:     env.getInt("POSTGRES_PORT", 5432),
				User:     env.getEnv("POSTGRES_USER", ""),
				Password: env.getEnv("POSTGRES_PASSWORD", ""),
				DBName:   env.getEnv("POSTGRES_DB", "iclock"),
				SSLMode:  env.getEnv("POSTGRES_SSLMODE", "disable"),
				MaxConns: env.getInt("POSTGRES_MAX_CONNS", 25),
				MinConns: env.getInt("POSTGRES_MIN_CONNS", 5),
			},
			Mongo: MongoConfig{
				URI:        env.getEnv("MONGODB_URI", ""),
				Database:   env.getEnv("MONGODB_DB", "iclock"),
				Collection: env.getEnv("MONGODB_COLLECTION", "kv_store"),
			},
			Timeout: env.getDuration("STORE_TIMEOUT", 20*time.Second),
		},
		MQTT: MQTTConfig{
			BrokerHost:  env.getEnv("BROKER_HOST", ""),
			BrokerPort:  env.getInt("BROKER_PORT", 1883),
			BrokerUser:  env.getEnv("BROKER_USER", ""),
			BrokerPass:  env.getEnv("BROKER_PASS", ""),
			UseTLS:      env.getBool("BROKER_TLS", false),
			CACertPath:  env.getEnv("BROKER_CA_FILE", ""),
			ClientID:    env.getEnv("MQTT_CLIENT_ID", "iclock-server"),
			TopicPrefix: env.getEnv("MQTT_TOPIC_PREFIX", "iclock"),
			KeepAlive:   env.getDuration("MQTT_KEEP_ALIVE", 30*time.Second),
			PingTimeout: env.getDuration("MQTT_PING_TIMEOUT", 10*time.Second),
		},
		Logging: LoggingConfig{
			Level:        env.getEnv("LOG_LEVEL", "info"),
			Format:       env.getEnv("LOG_FORMAT", "text"),
			Output:       env.getEnv("LOG_OUTPUT", "stdout"),
			EnableCaller: env.getBool("LOG_ENABLE_CALLER", false),
		},
		CORS: CORSConfig{
			AllowedOrigins:   env.getStringSlice("CORS_ALLOWED_ORIGINS", []string{"http://localhost:3000"}),
			AllowedMethods:   env.getStringSlice("CORS_ALLOWED_METHODS", []string{"GET", "POST", "DELETE", "OPTIONS"}),
			AllowedHeaders:   env.getStringSlice("CORS_ALLOWED_HEADERS", []string{"Origin", "Content-Type", "Accept", "Authorization"}),
			ExposedHeaders:   env.getStringSlice("CORS_EXPOSED_HEADERS", []string{"Content-Length", "X-Request-ID"}),
			AllowCredentials: env.getBool("CORS_ALLOW_CREDENTIALS", true),
			MaxAge:           env.getInt("CORS_MAX_AGE", 43200), // 12 hours
		},
		Admin: AdminConfig{
			APISecret: env.getEnv("ADMIN_API_SECRET", ""),
		},
		Protocol: ProtocolConfig{
			ATTLogStamp:   env.getEnv("ICLOCK_ATTLOG_STAMP", "None"),
			OperLogStamp:  env.getEnv("ICLOCK_OPERLOG_STAMP", "9999"),
			ATTPhotoStamp: env.getEnv("ICLOCK_ATTPHOTO_STAMP", "None"),
			ErrorDelay:    env.getInt("ICLOCK_ERROR_DELAY", 30),
			Delay:         env.getInt("ICLOCK_DELAY", 10),
			TransTimes:    env.getEnv("ICLOCK_TRANS_TIMES", "00:00;14:05"),
			TransInterval: env.getInt("ICLOCK_TRANS_INTERVAL", 1),
			TransFlag:     env.getEnv("ICLOCK_TRANS_FLAG", "TransData AttLog OpLog AttPhoto EnrollUser ChgUser EnrollFP ChgFP UserPic"),
			TimeZone:      env.getInt("ICLOCK_TIMEZONE", 8),
			Realtime:      env.getBool("ICLOCK_REALTIME", false),
			Encrypt:       env.getBool("ICLOCK_ENCRYPT", false),
			ServerHeader:  env.getEnv("ICLOCK_SERVER_HEADER", "nginx/1.6.0"),
		},
		Sync: SyncConfig{
			TimeZone: env.getEnv("SYNC_TIMEZONE", "Local"),
		},
	}

	if env.err != nil {
		return nil, env.err
	}

	// Validate configuration
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	switch c.Store.Driver {
	case DriverMemory:
	case DriverPostgres:
		if c.Store.Postgres.User == "" {
			return errors.New("POSTGRES_USER is required")
		}
		if c.Store.Postgres.Password == "" {
			return errors.New("POSTGRES_PASSWORD is required")
		}
	case DriverMongo:
		if c.Store.Mongo.URI == "" {
			return errors.New("MONGODB_URI is required")
		}
	default:
		return fmt.Errorf("unknown STORE_DRIVER %q", c.Store.Driver)
	}
	if c.Logging.Format != "json" && c.Logging.Format != "text" {
		return fmt.Errorf("LOG_FORMAT must be json or text, got %q", c.Logging.Format)
	}
	if _, err := c.Location(); err != nil {
		return fmt.Errorf("invalid SYNC_TIMEZONE: %w", err)
	}
	if c.Admin.APISecret == "" {
		log.Println("WARNING: ADMIN_API_SECRET is empty, admin API will reject every request")
	}
	return nil
}

// Location returns the time zone in which calendar days are computed
func (c *Config) Location() (*time.Location, error) {
	return time.LoadLocation(c.Sync.TimeZone)
}

// GetDatabaseDSN returns the database connection string
func (c *Config) GetDatabaseDSN() string {
	pg := c.Store.Postgres
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		pg.Host, pg.Port, pg.User, pg.Password, pg.DBName, pg.SSLMode)
}

// GetMQTTBrokerURL returns the MQTT broker URL
func (c *Config) GetMQTTBrokerURL() string {
	scheme := "tcp"
	if c.MQTT.UseTLS {
		scheme = "tcps"
	}
	return fmt.Sprintf("%s://%s:%d", scheme, c.MQTT.BrokerHost, c.MQTT.BrokerPort)
}

// MQTTEnabled reports whether a broker has been configured
func (c *Config) MQTTEnabled() bool {
	return c.MQTT.BrokerHost != ""
}

// Helper functions for environment variable parsing.
// envReader keeps the first parse error so Load can report it.

type envReader struct {
	err error
}

func (e *envReader) fail(key string, err error) {
	if e.err == nil {
		e.err = fmt.Errorf("invalid %s: %w", key, err)
	}
}

func (e *envReader) getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func (e *envReader) getInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	intValue, err := strconv.Atoi(value)
	if err != nil {
		e.fail(key, err)
		return defaultValue
	}
	return intValue
}

func (e *envReader) getBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	switch value {
	case "1", "true", "TRUE":
		return true
	case "0", "false", "FALSE":
		return false
	}
	e.fail(key, fmt.Errorf("%q (expected true/false or 1/0)", value))
	return defaultValue
}

func (e *envReader) getDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	duration, err := time.ParseDuration(value)
	if err != nil {
		e.fail(key, err)
		return defaultValue
	}
	return duration
}

func (e *envReader) getStringSlice(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parts := make([]string, 0)
	for _, part := range strings.Split(value, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			parts = append(parts, trimmed)
		}
	}
	return parts
}
