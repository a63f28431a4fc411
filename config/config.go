package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Config is the full service configuration. Defaults cover every knob; a
// YAML file, GAMEPULSE_* environment variables and command-line flags
// override them in that order.
type Config struct {
	Log     Log     `mapstructure:"log"`
	Backend Backend `mapstructure:"backend"`
	Channel Channel `mapstructure:"channel"`
	Refresh Refresh `mapstructure:"refresh"`
	Cache   Cache   `mapstructure:"cache"`
	HTTP    HTTP    `mapstructure:"http"`
}

type Log struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	// OTEL routes slog records through the OpenTelemetry log bridge.
	OTEL bool `mapstructure:"otel"`
}

type Backend struct {
	BaseURL         string        `mapstructure:"base_url"`
	Token           string        `mapstructure:"token"`
	Timeout         time.Duration `mapstructure:"timeout"`
	BreakerFailures uint32        `mapstructure:"breaker_failures"`
	BreakerCooldown time.Duration `mapstructure:"breaker_cooldown"`
}

type Channel struct {
	URL              string        `mapstructure:"url"`
	HandshakeTimeout time.Duration `mapstructure:"handshake_timeout"`
	ReconnectMin     time.Duration `mapstructure:"reconnect_min"`
	ReconnectMax     time.Duration `mapstructure:"reconnect_max"`
	MaxAttempts      uint          `mapstructure:"max_attempts"`
	BufferSize       int           `mapstructure:"buffer_size"`
	MailboxSize      int           `mapstructure:"mailbox_size"`
}

type Refresh struct {
	Realtime          time.Duration `mapstructure:"realtime"`
	AdminActions      time.Duration `mapstructure:"admin_actions"`
	DashboardStats    time.Duration `mapstructure:"dashboard_stats"`
	AdminActionsLimit int           `mapstructure:"admin_actions_limit"`
	ContentLimit      int           `mapstructure:"content_limit"`
	EngagementDays    int           `mapstructure:"engagement_days"`
}

type Cache struct {
	Size int           `mapstructure:"size"`
	TTL  time.Duration `mapstructure:"ttl"`
}

type HTTP struct {
	Addr string `mapstructure:"addr"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
	v.SetDefault("log.otel", false)

	v.SetDefault("backend.base_url", "http://localhost:3000/api")
	v.SetDefault("backend.timeout", 10*time.Second)
	v.SetDefault("backend.breaker_failures", 5)
	v.SetDefault("backend.breaker_cooldown", 15*time.Second)

	v.SetDefault("channel.url", "ws://localhost:3000/realtime/admin")
	v.SetDefault("channel.handshake_timeout", 10*time.Second)
	v.SetDefault("channel.reconnect_min", time.Second)
	v.SetDefault("channel.reconnect_max", 5*time.Second)
	v.SetDefault("channel.max_attempts", 5)
	v.SetDefault("channel.buffer_size", 64)
	v.SetDefault("channel.mailbox_size", 256)

	v.SetDefault("refresh.realtime", 30*time.Second)
	v.SetDefault("refresh.admin_actions", 60*time.Second)
	v.SetDefault("refresh.dashboard_stats", 120*time.Second)
	v.SetDefault("refresh.admin_actions_limit", 20)
	v.SetDefault("refresh.content_limit", 10)
	v.SetDefault("refresh.engagement_days", 7)

	v.SetDefault("cache.size", 32)
	v.SetDefault("cache.ttl", 30*time.Second)

	v.SetDefault("http.addr", ":8090")
}

// flagSet defines the command-line overrides. Unknown flags are ignored so
// the set coexists with the cli command parser.
func flagSet() *pflag.FlagSet {
	fs := pflag.NewFlagSet("gamepulse", pflag.ContinueOnError)
	fs.ParseErrorsWhitelist.UnknownFlags = true
	fs.String("log-level", "", "log level (debug|info|warn|error)")
	fs.String("backend-url", "", "backend REST base url")
	fs.String("realtime-url", "", "realtime websocket endpoint")
	fs.String("http-addr", "", "gateway listen address")
	fs.Usage = func() {}
	return fs
}

// LoadConfig assembles the configuration from defaults, an optional YAML
// file, environment and flags. The returned viper instance supports
// WatchConfig for hot reload.
func LoadConfig(file string) (*Config, *viper.Viper, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("GAMEPULSE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return nil, nil, fmt.Errorf("config: read %s: %w", file, err)
		}
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("/etc/gamepulse")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, nil, fmt.Errorf("config: %w", err)
			}
		}
	}

	fs := flagSet()
	_ = fs.Parse(os.Args[1:])
	bindFlag(v, fs, "log.level", "log-level")
	bindFlag(v, fs, "backend.base_url", "backend-url")
	bindFlag(v, fs, "channel.url", "realtime-url")
	bindFlag(v, fs, "http.addr", "http-addr")

	cfg := new(Config)
	if err := v.Unmarshal(cfg); err != nil {
		return nil, nil, fmt.Errorf("config: unmarshal: %w", err)
	}
	return cfg, v, nil
}

func bindFlag(v *viper.Viper, fs *pflag.FlagSet, key, flag string) {
	if f := fs.Lookup(flag); f != nil && f.Changed {
		_ = v.BindPFlag(key, f)
	}
}
