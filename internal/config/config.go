package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the root application configuration, loaded Spring-Boot style:
// defaults, then application.yaml, then application-<profile>.yaml, then
// environment variables.
type Config struct {
	App        AppConfig        `mapstructure:"app"`
	Server     ServerConfig     `mapstructure:"server"`
	Operator   OperatorConfig   `mapstructure:"operator"`
	OCPP       OCPPConfig       `mapstructure:"ocpp"`
	Postgres   PostgresConfig   `mapstructure:"postgres"`
	Redis      RedisConfig      `mapstructure:"redis"`
	Kafka      KafkaConfig      `mapstructure:"kafka"`
	Cache      CacheConfig      `mapstructure:"cache"`
	Log        LogConfig        `mapstructure:"log"`
	Monitoring MonitoringConfig `mapstructure:"monitoring"`
}

type AppConfig struct {
	Name    string `mapstructure:"name"`
	Version string `mapstructure:"version"`
	Profile string `mapstructure:"profile"`
}

// ServerConfig is the charger-facing WebSocket listener.
type ServerConfig struct {
	Host              string        `mapstructure:"host"`
	Port              int           `mapstructure:"port"`
	Path              string        `mapstructure:"path"`
	ReadBufferSize    int           `mapstructure:"read_buffer_size"`
	WriteBufferSize   int           `mapstructure:"write_buffer_size"`
	HandshakeTimeout  time.Duration `mapstructure:"handshake_timeout"`
	MaxMessageSize    int64         `mapstructure:"max_message_size"`
	EnableCompression bool          `mapstructure:"enable_compression"`
}

// OperatorConfig is the supervisory-UI listener speaking the Flask: protocol.
type OperatorConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
	Path string `mapstructure:"path"`
}

// OCPPConfig holds the protocol-level compile-time constants from spec.md §6.
type OCPPConfig struct {
	NumConnectors                  int           `mapstructure:"num_connectors"`
	MaxChargers                    int           `mapstructure:"max_chargers"`
	HeartbeatInterval               time.Duration `mapstructure:"heartbeat_interval"`
	ResendBootNotificationInterval  time.Duration `mapstructure:"resend_boot_notification_interval"`
	OutboundTimeout                 time.Duration `mapstructure:"outbound_timeout"`
	OutboundPollInterval            time.Duration `mapstructure:"outbound_poll_interval"`
	IdTagLen                        int           `mapstructure:"id_tag_len"`
	AllowedIdTags                   []string      `mapstructure:"allowed_id_tags"`
	AllowedChargePointModels        []string      `mapstructure:"allowed_charge_point_models"`
	AllowedChargePointVendors       []string      `mapstructure:"allowed_charge_point_vendors"`
}

type PostgresConfig struct {
	DSN             string        `mapstructure:"dsn"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

type RedisConfig struct {
	Addr         string        `mapstructure:"addr"`
	Password     string        `mapstructure:"password"`
	DB           int           `mapstructure:"db"`
	DialTimeout  time.Duration `mapstructure:"dial_timeout"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	KeyPrefix    string        `mapstructure:"key_prefix"`
	TTL          time.Duration `mapstructure:"ttl"`
}

type KafkaConfig struct {
	Brokers         []string `mapstructure:"brokers"`
	TelemetryTopic  string   `mapstructure:"telemetry_topic"`
	Enabled         bool     `mapstructure:"enabled"`
}

type CacheConfig struct {
	ShardCount int           `mapstructure:"shard_count"`
	Capacity   int           `mapstructure:"capacity"`
	TTL        time.Duration `mapstructure:"ttl"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
	Async  bool   `mapstructure:"async"`
}

type MonitoringConfig struct {
	MetricsAddr string `mapstructure:"metrics_addr"`
}

// Load reads configuration the way the teacher's gateway does: defaults,
// base YAML, profile YAML, then environment variables, highest priority
// last.
func Load() (*Config, error) {
	setDefaults()

	profile := getProfile()
	fmt.Printf("loading configuration for profile: %s\n", profile)

	if err := loadConfigFile("application"); err != nil {
		fmt.Printf("warning: could not load default config file: %v\n", err)
	}
	if profile != "" {
		name := fmt.Sprintf("application-%s", profile)
		if err := loadConfigFile(name); err != nil {
			fmt.Printf("warning: could not load profile config file %s: %v\n", name, err)
		}
	}

	setupEnvironmentVariables()

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	cfg.App.Profile = profile
	return &cfg, nil
}

func getProfile() string {
	if profile := os.Getenv("APP_PROFILE"); profile != "" {
		return profile
	}
	if profile := viper.GetString("app.profile"); profile != "" {
		return profile
	}
	return "local"
}

func loadConfigFile(name string) error {
	viper.SetConfigName(name)
	viper.SetConfigType("yaml")
	viper.AddConfigPath("./configs")
	viper.AddConfigPath(".")
	return viper.MergeInConfig()
}

func setupEnvironmentVariables() {
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	viper.BindEnv("server.port", "SERVER_PORT")
	viper.BindEnv("operator.port", "OPERATOR_PORT")
	viper.BindEnv("postgres.dsn", "POSTGRES_DSN")
	viper.BindEnv("redis.addr", "REDIS_ADDR")
	viper.BindEnv("log.level", "LOG_LEVEL")
	viper.BindEnv("app.profile", "APP_PROFILE")

	if brokers := os.Getenv("KAFKA_BROKERS"); brokers != "" {
		list := strings.Split(brokers, ",")
		for i, b := range list {
			list[i] = strings.TrimSpace(b)
		}
		viper.Set("kafka.brokers", list)
	}
	if idTags := os.Getenv("OCPP_ALLOWED_ID_TAGS"); idTags != "" {
		list := strings.Split(idTags, ",")
		for i, t := range list {
			list[i] = strings.TrimSpace(t)
		}
		viper.Set("ocpp.allowed_id_tags", list)
	}
}

func setDefaults() {
	viper.SetDefault("app.name", "ocpp-central-system")
	viper.SetDefault("app.version", "1.0.0")
	viper.SetDefault("app.profile", "local")

	viper.SetDefault("server.host", "localhost")
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.path", "/ocpp")
	viper.SetDefault("server.read_buffer_size", 4096)
	viper.SetDefault("server.write_buffer_size", 4096)
	viper.SetDefault("server.handshake_timeout", "10s")
	viper.SetDefault("server.max_message_size", 1048576)
	viper.SetDefault("server.enable_compression", false)

	viper.SetDefault("operator.host", "localhost")
	viper.SetDefault("operator.port", 8081)
	viper.SetDefault("operator.path", "/operator")

	viper.SetDefault("ocpp.num_connectors", 2)
	viper.SetDefault("ocpp.max_chargers", 32)
	viper.SetDefault("ocpp.heartbeat_interval", "86400s")
	viper.SetDefault("ocpp.resend_boot_notification_interval", "300s")
	viper.SetDefault("ocpp.outbound_timeout", "10s")
	viper.SetDefault("ocpp.outbound_poll_interval", "10ms")
	viper.SetDefault("ocpp.id_tag_len", 20)
	viper.SetDefault("ocpp.allowed_id_tags", []string{})
	viper.SetDefault("ocpp.allowed_charge_point_models", []string{})
	viper.SetDefault("ocpp.allowed_charge_point_vendors", []string{})

	viper.SetDefault("postgres.dsn", "")
	viper.SetDefault("postgres.max_open_conns", 10)
	viper.SetDefault("postgres.max_idle_conns", 5)
	viper.SetDefault("postgres.conn_max_lifetime", "1h")

	viper.SetDefault("redis.addr", "localhost:6379")
	viper.SetDefault("redis.password", "")
	viper.SetDefault("redis.db", 0)
	viper.SetDefault("redis.dial_timeout", "5s")
	viper.SetDefault("redis.read_timeout", "3s")
	viper.SetDefault("redis.write_timeout", "3s")
	viper.SetDefault("redis.key_prefix", "ocpp-cs:")
	viper.SetDefault("redis.ttl", "1h")

	viper.SetDefault("kafka.brokers", []string{"localhost:9092"})
	viper.SetDefault("kafka.telemetry_topic", "ocpp-central-system-telemetry")
	viper.SetDefault("kafka.enabled", false)

	viper.SetDefault("cache.shard_count", 16)
	viper.SetDefault("cache.capacity", 4096)
	viper.SetDefault("cache.ttl", "1h")

	viper.SetDefault("log.level", "info")
	viper.SetDefault("log.format", "console")
	viper.SetDefault("log.output", "stdout")
	viper.SetDefault("log.async", false)

	viper.SetDefault("monitoring.metrics_addr", ":9090")
}

func (c *Config) GetServerAddr() string   { return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port) }
func (c *Config) GetOperatorAddr() string { return fmt.Sprintf("%s:%d", c.Operator.Host, c.Operator.Port) }
func (c *Config) IsProduction() bool      { return c.App.Profile == "prod" }
func (c *Config) IsDevelopment() bool     { return c.App.Profile == "dev" }
func (c *Config) IsTest() bool            { return c.App.Profile == "test" || c.App.Profile == "local" }
