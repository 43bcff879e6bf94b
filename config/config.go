// Package config loads process configuration from YCURVE_* environment
// variables and an optional config file.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/meenmo/ycurve/bootstrap"
	"github.com/meenmo/ycurve/curve"
	"github.com/meenmo/ycurve/utils"
)

// Config holds all application configuration.
type Config struct {
	Engine   EngineConfig
	Server   ServerConfig
	Postgres PostgresConfig
	Kafka    KafkaConfig
	Cache    CacheConfig
	Service  ServiceConfig
}

// EngineConfig mirrors bootstrap.Config in configuration-friendly types.
type EngineConfig struct {
	DayCount          string  `mapstructure:"day_count"`
	Trait             string  `mapstructure:"trait"`
	Interpolation     string  `mapstructure:"interpolation"`
	Domain            string  `mapstructure:"domain"`
	Pillar            string  `mapstructure:"pillar"`
	Extrapolate       bool    `mapstructure:"extrapolate"`
	NodeTolerance     float64 `mapstructure:"node_tolerance"`
	ResidualTolerance float64 `mapstructure:"residual_tolerance"`
	MaxPasses         int     `mapstructure:"max_passes"`
	Accuracy          float64 `mapstructure:"accuracy"`
	MaxIterations     int     `mapstructure:"max_iterations"`
	MaxExpansions     int     `mapstructure:"max_expansions"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port string `mapstructure:"port"`
}

// PostgresConfig holds PostgreSQL connection settings. Persistence is off
// unless Enabled is set.
type PostgresConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
	SSLMode  string `mapstructure:"sslmode"`
}

// DSN returns the PostgreSQL connection string.
func (p PostgresConfig) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		p.User, p.Password, p.Host, p.Port, p.DBName, p.SSLMode)
}

// KafkaConfig holds the quote feed settings.
type KafkaConfig struct {
	Enabled bool     `mapstructure:"enabled"`
	Brokers []string `mapstructure:"brokers"`
	Topic   string   `mapstructure:"topic"`
	GroupID string   `mapstructure:"group_id"`
}

// CacheConfig sizes the build memoization cache.
type CacheConfig struct {
	MaxCost int64         `mapstructure:"max_cost"`
	TTL     time.Duration `mapstructure:"ttl"`
}

// ServiceConfig holds curve registry settings.
type ServiceConfig struct {
	Parallel    int    `mapstructure:"parallel"`
	Definitions string `mapstructure:"definitions"`
}

// Load reads configuration from environment variables prefixed with YCURVE_.
// YCURVE_CONFIG names an optional YAML, JSON or TOML file read beneath the
// environment.
func Load() (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("YCURVE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	def := bootstrap.DefaultConfig
	v.SetDefault("engine.day_count", string(def.Curve.DayCount))
	v.SetDefault("engine.trait", def.Curve.Trait.String())
	v.SetDefault("engine.interpolation", def.Curve.Interpolation.String())
	v.SetDefault("engine.domain", "default")
	v.SetDefault("engine.pillar", def.Pillar.String())
	v.SetDefault("engine.extrapolate", def.Extrapolate)
	v.SetDefault("engine.node_tolerance", def.NodeTolerance)
	v.SetDefault("engine.residual_tolerance", def.ResidualTolerance)
	v.SetDefault("engine.max_passes", def.MaxPasses)
	v.SetDefault("engine.accuracy", def.Solver.Accuracy)
	v.SetDefault("engine.max_iterations", def.Solver.MaxIterations)
	v.SetDefault("engine.max_expansions", def.Solver.MaxExpansions)

	v.SetDefault("server.port", "8080")

	v.SetDefault("postgres.enabled", false)
	v.SetDefault("postgres.host", "localhost")
	v.SetDefault("postgres.port", 5432)
	v.SetDefault("postgres.user", "postgres")
	v.SetDefault("postgres.password", "postgres")
	v.SetDefault("postgres.dbname", "ycurve")
	v.SetDefault("postgres.sslmode", "disable")

	v.SetDefault("kafka.enabled", false)
	v.SetDefault("kafka.brokers", "localhost:9092")
	v.SetDefault("kafka.topic", "curve-quotes")
	v.SetDefault("kafka.group_id", "ycurve")

	v.SetDefault("cache.max_cost", 256)
	v.SetDefault("cache.ttl", "10m")

	v.SetDefault("service.parallel", 4)
	v.SetDefault("service.definitions", "")

	if path := v.GetString("config"); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	cfg := &Config{}
	cfg.Engine = EngineConfig{
		DayCount:          v.GetString("engine.day_count"),
		Trait:             v.GetString("engine.trait"),
		Interpolation:     v.GetString("engine.interpolation"),
		Domain:            v.GetString("engine.domain"),
		Pillar:            v.GetString("engine.pillar"),
		Extrapolate:       v.GetBool("engine.extrapolate"),
		NodeTolerance:     v.GetFloat64("engine.node_tolerance"),
		ResidualTolerance: v.GetFloat64("engine.residual_tolerance"),
		MaxPasses:         v.GetInt("engine.max_passes"),
		Accuracy:          v.GetFloat64("engine.accuracy"),
		MaxIterations:     v.GetInt("engine.max_iterations"),
		MaxExpansions:     v.GetInt("engine.max_expansions"),
	}
	cfg.Server = ServerConfig{Port: v.GetString("server.port")}
	cfg.Postgres = PostgresConfig{
		Enabled:  v.GetBool("postgres.enabled"),
		Host:     v.GetString("postgres.host"),
		Port:     v.GetInt("postgres.port"),
		User:     v.GetString("postgres.user"),
		Password: v.GetString("postgres.password"),
		DBName:   v.GetString("postgres.dbname"),
		SSLMode:  v.GetString("postgres.sslmode"),
	}
	cfg.Kafka = KafkaConfig{
		Enabled: v.GetBool("kafka.enabled"),
		Brokers: stringList(v, "kafka.brokers"),
		Topic:   v.GetString("kafka.topic"),
		GroupID: v.GetString("kafka.group_id"),
	}
	cfg.Cache = CacheConfig{
		MaxCost: v.GetInt64("cache.max_cost"),
		TTL:     v.GetDuration("cache.ttl"),
	}
	cfg.Service = ServiceConfig{
		Parallel:    v.GetInt("service.parallel"),
		Definitions: v.GetString("service.definitions"),
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// stringList accepts a comma-separated string from the environment or a list
// from a config file.
func stringList(v *viper.Viper, key string) []string {
	raw, ok := v.Get(key).(string)
	if !ok {
		return v.GetStringSlice(key)
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func (c *Config) validate() error {
	var missing []string
	if c.Server.Port == "" {
		missing = append(missing, "YCURVE_SERVER_PORT")
	}
	if c.Kafka.Enabled {
		if len(c.Kafka.Brokers) == 0 {
			missing = append(missing, "YCURVE_KAFKA_BROKERS")
		}
		if c.Kafka.Topic == "" {
			missing = append(missing, "YCURVE_KAFKA_TOPIC")
		}
	}
	if c.Postgres.Enabled && c.Postgres.Host == "" {
		missing = append(missing, "YCURVE_POSTGRES_HOST")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required configuration: %s", strings.Join(missing, ", "))
	}
	if _, err := c.Engine.Bootstrap(); err != nil {
		return err
	}
	return nil
}

// Bootstrap converts the engine section into a validated bootstrap.Config.
func (e EngineConfig) Bootstrap() (bootstrap.Config, error) {
	cfg := bootstrap.DefaultConfig

	dc, err := utils.ParseDayCount(e.DayCount)
	if err != nil {
		return cfg, fmt.Errorf("%w: engine.day_count: %v", curve.ErrInvalidInput, err)
	}
	trait, err := curve.ParseTrait(e.Trait)
	if err != nil {
		return cfg, err
	}
	interp, err := curve.ParseInterpolation(e.Interpolation)
	if err != nil {
		return cfg, err
	}
	domain, err := curve.ParseDomain(e.Domain)
	if err != nil {
		return cfg, err
	}
	pillar, err := bootstrap.ParsePillar(e.Pillar)
	if err != nil {
		return cfg, err
	}

	cfg.Curve = curve.Options{DayCount: dc, Trait: trait, Interpolation: interp, Domain: domain}
	cfg.Pillar = pillar
	cfg.Extrapolate = e.Extrapolate
	cfg.NodeTolerance = e.NodeTolerance
	cfg.ResidualTolerance = e.ResidualTolerance
	cfg.MaxPasses = e.MaxPasses
	if e.Accuracy > 0 {
		cfg.Solver.Accuracy = e.Accuracy
	}
	if e.MaxIterations > 0 {
		cfg.Solver.MaxIterations = e.MaxIterations
	}
	if e.MaxExpansions > 0 {
		cfg.Solver.MaxExpansions = e.MaxExpansions
	}

	// Surface unsupported trait and interpolation pairs at startup.
	if _, err := curve.New(utils.MustParseDate("2000-01-03"), cfg.Curve); err != nil {
		return cfg, err
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}
