// Package config assembles the service configuration from the environment,
// an optional .env file and an optional YAML file.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/omega-realm/scruffy/internal/auth"
	"github.com/omega-realm/scruffy/internal/combat"
	"github.com/omega-realm/scruffy/internal/database"
	"github.com/omega-realm/scruffy/internal/models"
	"github.com/omega-realm/scruffy/internal/redis"
)

const (
	CacheMemory = "memory"
	CacheRedis  = "redis"
)

// RoleConfig holds the starting stats and bounds of one combatant role.
type RoleConfig struct {
	Health      int `env:"HEALTH" yaml:"health"`
	Strength    int `env:"STRENGTH" yaml:"strength"`
	Hits        int `env:"HITS" yaml:"hits"`
	MaxHealth   int `env:"MAX_HEALTH" yaml:"max_health"`
	MaxStrength int `env:"MAX_STRENGTH" yaml:"max_strength"`
	MaxHits     int `env:"MAX_HITS" yaml:"max_hits"`
}

func (r RoleConfig) Rules() models.RoleRules {
	return models.RoleRules{
		Health:      r.Health,
		Strength:    r.Strength,
		Hits:        r.Hits,
		MaxHealth:   r.MaxHealth,
		MaxStrength: r.MaxStrength,
		MaxHits:     r.MaxHits,
	}
}

type UserConfig struct {
	RoleConfig `yaml:",inline"`
}

type MonsterConfig struct {
	Name       string `env:"NAME" envDefault:"scruffy" yaml:"name"`
	RoleConfig `yaml:",inline"`
}

// Template is the monster every new player is given.
func (m MonsterConfig) Template() models.Monster {
	return models.Monster{Name: m.Name, Health: m.Health, Strength: m.Strength, Hits: m.Hits}
}

type CombatConfig struct {
	Mode        string        `env:"COMBAT_MODE" envDefault:"vulnerable" yaml:"mode"`
	AttackDelay time.Duration `env:"ATTACK_DELAY" envDefault:"500ms" yaml:"attack_delay"`
}

type SessionConfig struct {
	JWTSecret    string        `env:"JWT_SECRET" envDefault:"change-me-in-production" yaml:"jwt_secret"`
	TTL          time.Duration `env:"SESSION_TTL" envDefault:"24h" yaml:"ttl"`
	PasswordMode string        `env:"PASSWORD_MODE" envDefault:"bcrypt" yaml:"password_mode"`
}

type LogConfig struct {
	Level  string `env:"LOG_LEVEL" envDefault:"info" yaml:"level"`
	Format string `env:"LOG_FORMAT" envDefault:"json" yaml:"format"`
}

// Config is the full service configuration.
type Config struct {
	HTTPAddr     string `env:"HTTP_ADDR" envDefault:":9000" yaml:"http_addr"`
	CacheBackend string `env:"CACHE_BACKEND" envDefault:"memory" yaml:"cache_backend"`
	OTelEndpoint string `env:"OTEL_ENDPOINT" yaml:"otel_endpoint"`

	Database database.Config `envPrefix:"DB_" yaml:"database"`
	Redis    redis.Config    `envPrefix:"REDIS_" yaml:"redis"`
	Combat   CombatConfig    `yaml:"combat"`
	Session  SessionConfig   `yaml:"session"`
	Log      LogConfig       `yaml:"log"`
	User     UserConfig      `envPrefix:"USER_" yaml:"user"`
	Monster  MonsterConfig   `envPrefix:"MONSTER_" yaml:"monster"`
}

func defaults() Config {
	return Config{
		User: UserConfig{RoleConfig{
			Health: 100, Strength: 20, Hits: 5,
			MaxHealth: 100, MaxStrength: 20, MaxHits: 5,
		}},
		Monster: MonsterConfig{RoleConfig: RoleConfig{
			Health: 100, Strength: 30, Hits: 9999,
			MaxHealth: 100, MaxStrength: 50, MaxHits: 9999,
		}},
	}
}

// Load reads .env (if present), then the environment, then the YAML file
// named by CONFIG_FILE, and validates the result. Values from the YAML file
// override the environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	cfg := defaults()
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := cfg.overlayFile(path); err != nil {
			return nil, err
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) overlayFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return nil
}

// Validate reports the first inconsistent setting.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.HTTPAddr) == "" {
		return errors.New("HTTP_ADDR is required")
	}
	switch c.CacheBackend {
	case CacheMemory, CacheRedis:
	default:
		return fmt.Errorf("unsupported cache backend %q", c.CacheBackend)
	}
	if err := c.Database.Validate(); err != nil {
		return err
	}
	if _, err := combat.ParseMode(c.Combat.Mode); err != nil {
		return err
	}
	if c.Combat.AttackDelay < 0 {
		return errors.New("ATTACK_DELAY must not be negative")
	}
	if _, err := auth.ParsePasswordMode(c.Session.PasswordMode); err != nil {
		return err
	}
	if c.Session.JWTSecret == "" {
		return errors.New("JWT_SECRET is required")
	}
	if c.Session.TTL <= 0 {
		return errors.New("SESSION_TTL must be positive")
	}
	if err := c.User.Rules().Validate(models.UserDomain); err != nil {
		return fmt.Errorf("user defaults: %w", err)
	}
	if err := c.Monster.Rules().Validate(models.MonsterDomain); err != nil {
		return fmt.Errorf("monster defaults: %w", err)
	}
	if c.Monster.Name == "" || len(c.Monster.Name) > 10 {
		return errors.New("monster name must be 1 to 10 characters")
	}
	return nil
}
