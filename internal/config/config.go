package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

// DevAuthSecret is the signing secret used when none is configured.
// Production deployments refuse to start with it.
const DevAuthSecret = "a3-dev-secret-change-me"

type Config struct {
	Server    ServerConfig    `toml:"server"`
	Database  DatabaseConfig  `toml:"database"`
	Network   NetworkConfig   `toml:"network"`
	Auth      AuthConfig      `toml:"auth"`
	RateLimit RateLimitConfig `toml:"rate_limit"`
	Gameplay  GameplayConfig  `toml:"gameplay"`
	Content   ContentConfig   `toml:"content"`
	Login     LoginConfig     `toml:"login"`
	Logging   LoggingConfig   `toml:"logging"`
}

type ServerConfig struct {
	Name      string `toml:"name"`
	Env       string `toml:"env"` // "dev" or "prod"
	StartTime int64  // set at boot, not from config
}

type DatabaseConfig struct {
	DSN             string        `toml:"dsn"` // empty = in-memory stores
	MaxOpenConns    int           `toml:"max_open_conns"`
	MaxIdleConns    int           `toml:"max_idle_conns"`
	ConnMaxLifetime time.Duration `toml:"conn_max_lifetime"`
}

type NetworkConfig struct {
	BindAddress    string        `toml:"bind_address"`
	WSAddress      string        `toml:"ws_address"` // empty = gateway disabled
	InQueueSize    int           `toml:"in_queue_size"`
	OutQueueSize   int           `toml:"out_queue_size"`
	EventQueueSize int           `toml:"event_queue_size"`
	MaxLineBytes   int           `toml:"max_line_bytes"`
	AuthTimeout    time.Duration `toml:"auth_timeout"`
	IdleTimeout    time.Duration `toml:"idle_timeout"`
	WriteTimeout   time.Duration `toml:"write_timeout"`
	OverflowPolicy string        `toml:"overflow_policy"` // "disconnect" or "drop_oldest"
	MaxMalformed   int           `toml:"max_malformed"`
}

type AuthConfig struct {
	Secret       string        `toml:"secret"`
	TokenTTL     time.Duration `toml:"token_ttl"`
	MaxFailures  int           `toml:"max_failures"`
	FailureDelay time.Duration `toml:"failure_delay"` // multiplied by the failure count
}

type RateLimitConfig struct {
	Enabled                 bool          `toml:"enabled"`
	CommandsPerSecondUnauth int           `toml:"commands_per_second_unauth"`
	CommandsPerSecond       int           `toml:"commands_per_second"`
	AuthAttemptsPerWindow   int           `toml:"auth_attempts_per_window"`
	AuthWindow              time.Duration `toml:"auth_window"`
	AuthBlock               time.Duration `toml:"auth_block"`
}

type GameplayConfig struct {
	DefaultClass     string        `toml:"default_class"`
	StartLevel       int           `toml:"start_level"`
	StartMaxHP       int           `toml:"start_max_hp"`
	StartSkillPoints int           `toml:"start_skill_points"`
	MaxMoveStep      float64       `toml:"max_move_step"`
	VisibilityRadius float64       `toml:"visibility_radius"`
	PvPMinLevel      int           `toml:"pvp_min_level"`
	PvPMaxLevelGap   int           `toml:"pvp_max_level_gap"`
	RecoverHPFloor   float64       `toml:"recover_hp_floor"` // fraction of MaxHP
	MobRespawn       string        `toml:"mob_respawn"`      // "timer" or "persist"
	MaxCraftQty      int           `toml:"max_craft_qty"`
	LegendaryOdds    int           `toml:"legendary_odds"` // 1 in N per kill
	AutosaveInterval time.Duration `toml:"autosave_interval"`
}

type ContentConfig struct {
	DataDir    string `toml:"data_dir"`
	ScriptsDir string `toml:"scripts_dir"`
}

type LoginConfig struct {
	BindAddress        string `toml:"bind_address"`
	AutoCreateAccounts bool   `toml:"auto_create_accounts"`
}

type LoggingConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"` // "json" or "console"
}

// IsProd reports whether the server runs in production mode.
func (c *Config) IsProd() bool {
	return strings.EqualFold(c.Server.Env, "prod") || strings.EqualFold(c.Server.Env, "production")
}

// Load reads the TOML file at path over the defaults. A missing file is not
// an error; the defaults are used as-is. The A3_AUTH_SECRET environment
// variable overrides auth.secret.
func Load(path string) (*Config, error) {
	cfg := defaults()
	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("read config %s: %w", path, err)
	default:
		if err := toml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	if secret := os.Getenv("A3_AUTH_SECRET"); secret != "" {
		cfg.Auth.Secret = secret
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	cfg.Server.StartTime = time.Now().Unix()
	return cfg, nil
}

// Validate rejects settings the server cannot run with.
func (c *Config) Validate() error {
	if c.Auth.Secret == "" {
		return errors.New("auth.secret is empty")
	}
	if c.IsProd() && c.Auth.Secret == DevAuthSecret {
		return errors.New("auth.secret must be set in production (A3_AUTH_SECRET)")
	}
	switch c.Network.OverflowPolicy {
	case "disconnect", "drop_oldest":
	default:
		return fmt.Errorf("network.overflow_policy %q: want disconnect or drop_oldest", c.Network.OverflowPolicy)
	}
	switch c.Gameplay.MobRespawn {
	case "timer", "persist":
	default:
		return fmt.Errorf("gameplay.mob_respawn %q: want timer or persist", c.Gameplay.MobRespawn)
	}
	if c.Network.OutQueueSize <= 0 || c.Network.InQueueSize <= 0 || c.Network.EventQueueSize <= 0 {
		return errors.New("network queue sizes must be positive")
	}
	if c.Gameplay.RecoverHPFloor <= 0 || c.Gameplay.RecoverHPFloor > 1 {
		return fmt.Errorf("gameplay.recover_hp_floor %v: want (0,1]", c.Gameplay.RecoverHPFloor)
	}
	return nil
}

// Defaults returns the built-in configuration.
func Defaults() *Config {
	return defaults()
}

func defaults() *Config {
	return &Config{
		Server: ServerConfig{
			Name: "A3 Zone",
			Env:  "dev",
		},
		Database: DatabaseConfig{
			MaxOpenConns:    20,
			MaxIdleConns:    5,
			ConnMaxLifetime: 30 * time.Minute,
		},
		Network: NetworkConfig{
			BindAddress:    "0.0.0.0:7777",
			InQueueSize:    64,
			OutQueueSize:   256,
			EventQueueSize: 32,
			MaxLineBytes:   64 * 1024,
			AuthTimeout:    15 * time.Second,
			IdleTimeout:    5 * time.Minute,
			WriteTimeout:   10 * time.Second,
			OverflowPolicy: "disconnect",
			MaxMalformed:   3,
		},
		Auth: AuthConfig{
			Secret:       DevAuthSecret,
			TokenTTL:     30 * time.Minute,
			MaxFailures:  3,
			FailureDelay: 150 * time.Millisecond,
		},
		RateLimit: RateLimitConfig{
			Enabled:                 true,
			CommandsPerSecondUnauth: 12,
			CommandsPerSecond:       60,
			AuthAttemptsPerWindow:   10,
			AuthWindow:              time.Minute,
			AuthBlock:               2 * time.Minute,
		},
		Gameplay: GameplayConfig{
			DefaultClass:     "Archer",
			StartLevel:       45,
			StartMaxHP:       120,
			StartSkillPoints: 3,
			MaxMoveStep:      10,
			VisibilityRadius: 50,
			PvPMinLevel:      10,
			PvPMaxLevelGap:   10,
			RecoverHPFloor:   0.5,
			MobRespawn:       "timer",
			MaxCraftQty:      20,
			LegendaryOdds:    1500,
			AutosaveInterval: time.Minute,
		},
		Content: ContentConfig{
			DataDir:    "data/yaml",
			ScriptsDir: "scripts",
		},
		Login: LoginConfig{
			BindAddress:        "0.0.0.0:5555",
			AutoCreateAccounts: true,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
	}
}
