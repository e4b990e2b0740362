package launcher

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
	cli "gopkg.in/urfave/cli.v1"

	"github.com/oraclesuite/go-oraclepool/feed"
	"github.com/oraclesuite/go-oraclepool/node"
	"github.com/oraclesuite/go-oraclepool/oracle"
	"github.com/oraclesuite/go-oraclepool/pool"
)

// Config aggregates every subsystem's configuration. Values are resolved
// in three layers: defaults, then the YAML config file, then CLI flags.
type Config struct {
	DataDir string        `mapstructure:"datadir"`
	Logging LoggingConfig `mapstructure:"logging"`
	Node    node.Config   `mapstructure:"node"`
	Oracle  OracleConfig  `mapstructure:"oracle"`
	Feed    feed.Config   `mapstructure:"feed"`
	API     APIConfig     `mapstructure:"api"`
	Sentry  SentryConfig  `mapstructure:"sentry"`
}

// LoggingConfig controls log verbosity and format.
type LoggingConfig struct {
	Verbosity int    `mapstructure:"verbosity"`
	Format    string `mapstructure:"format"`
	Color     bool   `mapstructure:"color"`
}

// OracleConfig identifies this participant and sets the loop cadence.
type OracleConfig struct {
	PubKey   string        `mapstructure:"pubkey"`
	Rules    string        `mapstructure:"rules"`
	Interval time.Duration `mapstructure:"interval"`
}

// APIConfig locates the status server. Port 0 disables it.
type APIConfig struct {
	Addr string `mapstructure:"addr"`
	Port int    `mapstructure:"port"`
}

// SentryConfig enables error reporting when a DSN is set.
type SentryConfig struct {
	DSN string `mapstructure:"dsn"`
}

// DefaultDataDir places operator state under the user's home directory.
func DefaultDataDir() string {
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, ".oraclepool")
	}
	return ".oraclepool"
}

func defaultConfig() Config {
	return Config{
		DataDir: DefaultDataDir(),
		Logging: LoggingConfig{
			Verbosity: 3,
			Format:    "text",
			Color:     true,
		},
		Node: node.DefaultConfig(),
		Oracle: OracleConfig{
			Rules:    pool.TestNetRules().Name,
			Interval: oracle.DefaultInterval,
		},
		Feed: feed.DefaultConfig(),
		API: APIConfig{
			Addr: "127.0.0.1",
			Port: 9010,
		},
	}
}

// MakeConfig merges defaults, the optional YAML file, and CLI overrides,
// in that order, and makes sure the datadir exists.
func MakeConfig(ctx *cli.Context) (Config, error) {
	cfg := defaultConfig()

	if file := ctx.String("config"); file != "" {
		if err := loadConfigFile(file, &cfg); err != nil {
			return Config{}, err
		}
	}
	applyFlags(ctx, &cfg)

	cfg.DataDir = resolvePath(cfg.DataDir)
	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return Config{}, fmt.Errorf("launcher: create datadir %s: %w", cfg.DataDir, err)
	}
	return cfg, nil
}

func loadConfigFile(path string, cfg *Config) error {
	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("launcher: read config %s: %w", path, err)
	}
	if err := v.Unmarshal(cfg); err != nil {
		return fmt.Errorf("launcher: parse config %s: %w", path, err)
	}
	return nil
}

func applyFlags(ctx *cli.Context, cfg *Config) {
	if ctx.IsSet("datadir") {
		cfg.DataDir = ctx.String("datadir")
	}
	if ctx.IsSet("log.verbosity") {
		cfg.Logging.Verbosity = ctx.Int("log.verbosity")
	}
	if ctx.IsSet("log.format") {
		cfg.Logging.Format = ctx.String("log.format")
	}
	if ctx.IsSet("log.color") {
		cfg.Logging.Color = ctx.Bool("log.color")
	}

	if ctx.IsSet("node.url") {
		cfg.Node.URL = ctx.String("node.url")
	}
	if ctx.IsSet("node.apikey") {
		cfg.Node.APIKey = ctx.String("node.apikey")
	}
	if ctx.IsSet("node.timeout") {
		cfg.Node.Timeout = ctx.Duration("node.timeout")
	}

	if ctx.IsSet("oracle.pubkey") {
		cfg.Oracle.PubKey = ctx.String("oracle.pubkey")
	}
	if ctx.IsSet("oracle.rules") {
		cfg.Oracle.Rules = ctx.String("oracle.rules")
	}
	if ctx.IsSet("oracle.interval") {
		cfg.Oracle.Interval = ctx.Duration("oracle.interval")
	}

	if ctx.IsSet("feed.kind") {
		cfg.Feed.Kind = ctx.String("feed.kind")
	}
	if ctx.IsSet("feed.url") {
		cfg.Feed.URL = ctx.String("feed.url")
	}
	if ctx.IsSet("feed.path") {
		cfg.Feed.JSONPath = ctx.String("feed.path")
	}
	if ctx.IsSet("feed.scale") {
		cfg.Feed.Scale = ctx.Float64("feed.scale")
	}
	if ctx.IsSet("feed.invert") {
		cfg.Feed.Invert = ctx.Bool("feed.invert")
	}
	if ctx.IsSet("feed.command") {
		cfg.Feed.Command = ctx.String("feed.command")
	}
	if ctx.IsSet("feed.maxprice") {
		cfg.Feed.MaxPrice = ctx.Int64("feed.maxprice")
	}
	if ctx.IsSet("feed.timeout") {
		cfg.Feed.Timeout = ctx.Duration("feed.timeout")
	}

	if ctx.IsSet("api.addr") {
		cfg.API.Addr = ctx.String("api.addr")
	}
	if ctx.IsSet("api.port") {
		cfg.API.Port = ctx.Int("api.port")
	}

	if ctx.IsSet("sentry.dsn") {
		cfg.Sentry.DSN = ctx.String("sentry.dsn")
	}
}

func resolvePath(p string) string {
	if p == "~" || strings.HasPrefix(p, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, strings.TrimPrefix(p, "~"))
		}
	}
	return p
}
