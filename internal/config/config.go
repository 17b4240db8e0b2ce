package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

type Config struct {
	Mode       string        `mapstructure:"mode"`
	Port       int           `mapstructure:"port"`
	StaticPath string        `mapstructure:"static_path"`
	ReadLimit  int64         `mapstructure:"read_limit"`
	PingPeriod time.Duration `mapstructure:"ping_period"`
	PongWait   time.Duration `mapstructure:"pong_wait"`
	WriteWait  time.Duration `mapstructure:"write_wait"`
	SendBuffer int           `mapstructure:"send_buffer"`
	Secret     string        `mapstructure:"secret"`

	Log        LogConfig        `mapstructure:"log"`
	RateLimit  RateLimitConfig  `mapstructure:"rate_limit"`
	Policy     PolicyConfig     `mapstructure:"policy"`
	Transcript TranscriptConfig `mapstructure:"transcript"`
	ICE        ICEConfig        `mapstructure:"ice"`
	Sink       SinkConfig       `mapstructure:"sink"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Pretty bool   `mapstructure:"pretty"`
}

// RateLimitConfig bounds start/join attempts per connection.
type RateLimitConfig struct {
	Attempts int           `mapstructure:"attempts"`
	Interval time.Duration `mapstructure:"interval"`
}

type PolicyConfig struct {
	OnBackpressure string `mapstructure:"on_backpressure"`
}

type TranscriptConfig struct {
	Separator string `mapstructure:"separator"`
}

type ICEServer struct {
	URLs       []string `mapstructure:"urls"`
	Username   string   `mapstructure:"username"`
	Credential string   `mapstructure:"credential"`
}

type ICEConfig struct {
	Servers []ICEServer `mapstructure:"servers"`
}

type SinkConfig struct {
	Driver string      `mapstructure:"driver"`
	Buffer int         `mapstructure:"buffer"`
	Kafka  KafkaConfig `mapstructure:"kafka"`
	Redis  RedisConfig `mapstructure:"redis"`
}

type KafkaConfig struct {
	Brokers string `mapstructure:"brokers"`
	Topic   string `mapstructure:"topic"`
}

type RedisConfig struct {
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	Channel  string `mapstructure:"channel"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("mode", "release")
	v.SetDefault("port", 8080)
	v.SetDefault("static_path", "./web")
	v.SetDefault("read_limit", 65536)
	v.SetDefault("ping_period", "54s")
	v.SetDefault("pong_wait", "60s")
	v.SetDefault("write_wait", "10s")
	v.SetDefault("send_buffer", 64)
	v.SetDefault("secret", "change-me")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.pretty", true)

	v.SetDefault("rate_limit.attempts", 5)
	v.SetDefault("rate_limit.interval", "10s")

	v.SetDefault("policy.on_backpressure", "drop")
	v.SetDefault("transcript.separator", " ")

	v.SetDefault("sink.driver", "log")
	v.SetDefault("sink.buffer", 256)
	v.SetDefault("sink.kafka.brokers", "localhost:9092")
	v.SetDefault("sink.kafka.topic", "fieldcast.sessions")
	v.SetDefault("sink.redis.address", "localhost:6379")
	v.SetDefault("sink.redis.channel", "fieldcast:sessions")
}

// Load reads config/config.<CONFIG_ENV>.yaml, then lets FOO_BAR env vars
// override foo.bar keys.
func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")

	env := os.Getenv("CONFIG_ENV")
	if env == "" {
		env = "dev"
	}
	fileName := fmt.Sprintf("config/config.%s.yaml", env)

	v.SetConfigFile(fileName)
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		log.Warn().Str("module", "config").Str("file", fileName).Msg("config file not found, using defaults")
	} else {
		log.Info().Str("module", "config").Str("file", fileName).Msg("loaded config")
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if cfg.SendBuffer <= 0 {
		cfg.SendBuffer = 64
	}
	log.Info().Str("module", "config").Str("mode", cfg.Mode).Int("port", cfg.Port).
		Str("sink", cfg.Sink.Driver).Msg("config ready")
	return &cfg, nil
}
