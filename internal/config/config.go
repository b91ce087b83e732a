package config

import (
	"os"
	"sort"
	"strings"

	"github.com/joho/godotenv"
	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config is the top-level configuration.
type Config struct {
	Feed        FeedConfig        `yaml:"feed" mapstructure:"feed"`
	Context     ContextConfig     `yaml:"context" mapstructure:"context"`
	HuggingFace HuggingFaceConfig `yaml:"huggingface" mapstructure:"huggingface"`
	Local       LocalConfig       `yaml:"local" mapstructure:"local"`
	Anthropic   AnthropicConfig   `yaml:"anthropic" mapstructure:"anthropic"`
	Breaker     BreakerConfig     `yaml:"breaker" mapstructure:"breaker"`
	Server      ServerConfig      `yaml:"server" mapstructure:"server"`
	Log         LogConfig         `yaml:"log" mapstructure:"log"`
}

// FeedConfig configures the member message source.
type FeedConfig struct {
	URL          string  `yaml:"url" mapstructure:"url"`
	TimeoutSecs  int     `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	RateLimitQPS float64 `yaml:"rate_limit_qps" mapstructure:"rate_limit_qps"`
}

// ContextConfig bounds the context handed to the answering strategies.
type ContextConfig struct {
	MaxLength   int `yaml:"max_length" mapstructure:"max_length"`
	MaxMessages int `yaml:"max_messages" mapstructure:"max_messages"`
}

// HuggingFaceConfig configures the hosted inference strategy. An empty Key
// disables the whole model-scoring family.
type HuggingFaceConfig struct {
	Key         string  `yaml:"key" mapstructure:"key"`
	BaseURL     string  `yaml:"base_url" mapstructure:"base_url"`
	Model       string  `yaml:"model" mapstructure:"model"`
	MinScore    float64 `yaml:"min_score" mapstructure:"min_score"`
	TimeoutSecs int     `yaml:"timeout_secs" mapstructure:"timeout_secs"`
}

// LocalConfig configures the OpenAI-compatible local model. An empty BaseURL
// disables it.
type LocalConfig struct {
	BaseURL               string  `yaml:"base_url" mapstructure:"base_url"`
	Model                 string  `yaml:"model" mapstructure:"model"`
	Token                 string  `yaml:"token" mapstructure:"token"`
	MinScore              float64 `yaml:"min_score" mapstructure:"min_score"`
	LowScore              float64 `yaml:"low_score" mapstructure:"low_score"`
	DisclaimLowConfidence bool    `yaml:"disclaim_low_confidence" mapstructure:"disclaim_low_confidence"`
}

type AnthropicConfig struct {
	Key         string `yaml:"key" mapstructure:"key"`
	Model       string `yaml:"model" mapstructure:"model"`
	MaxTokens   int64  `yaml:"max_tokens" mapstructure:"max_tokens"`
	TimeoutSecs int    `yaml:"timeout_secs" mapstructure:"timeout_secs"`
}

// BreakerConfig controls the circuit breaker around the hosted inference API.
type BreakerConfig struct {
	FailureThreshold int `yaml:"failure_threshold" mapstructure:"failure_threshold"`
	ResetTimeoutSecs int `yaml:"reset_timeout_secs" mapstructure:"reset_timeout_secs"`
}

type ServerConfig struct {
	Port                 int      `yaml:"port" mapstructure:"port"`
	RateLimitQPS         float64  `yaml:"rate_limit_qps" mapstructure:"rate_limit_qps"`
	RateLimitBurst       int      `yaml:"rate_limit_burst" mapstructure:"rate_limit_burst"`
	CORSOrigins          []string `yaml:"cors_origins" mapstructure:"cors_origins"`
	CORSAllowCredentials bool     `yaml:"cors_allow_credentials" mapstructure:"cors_allow_credentials"`
}

type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from a .env file, config.yaml and environment
// variables, in increasing order of precedence.
func Load() (*Config, error) {
	// A missing .env is the normal case outside local development.
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, eris.Wrap(err, "config: load .env")
	}

	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	v.SetEnvPrefix("MEMBERQA")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Conventional names used by hosting platforms and the HF tooling.
	if err := v.BindEnv("huggingface.key", "MEMBERQA_HUGGINGFACE_KEY", "HF_API_KEY"); err != nil {
		return nil, eris.Wrap(err, "config: bind huggingface key")
	}
	if err := v.BindEnv("server.port", "MEMBERQA_SERVER_PORT", "PORT"); err != nil {
		return nil, eris.Wrap(err, "config: bind server port")
	}
	if err := v.BindEnv("anthropic.key", "MEMBERQA_ANTHROPIC_KEY", "ANTHROPIC_API_KEY"); err != nil {
		return nil, eris.Wrap(err, "config: bind anthropic key")
	}

	v.SetDefault("feed.url", "https://november7-730026606190.europe-west1.run.app/messages")
	v.SetDefault("feed.timeout_secs", 30)
	v.SetDefault("feed.rate_limit_qps", 0)
	v.SetDefault("context.max_length", 4000)
	v.SetDefault("context.max_messages", 50)
	v.SetDefault("huggingface.base_url", "https://api-inference.huggingface.co")
	v.SetDefault("huggingface.model", "deepset/roberta-base-squad2")
	v.SetDefault("huggingface.min_score", 0.1)
	v.SetDefault("huggingface.timeout_secs", 30)
	v.SetDefault("local.base_url", "")
	v.SetDefault("local.model", "llama3.2")
	v.SetDefault("local.token", "")
	v.SetDefault("local.min_score", 0.1)
	v.SetDefault("local.low_score", 0.0)
	v.SetDefault("local.disclaim_low_confidence", true)
	v.SetDefault("anthropic.model", "claude-haiku-4-5-20251001")
	v.SetDefault("anthropic.max_tokens", 256)
	v.SetDefault("anthropic.timeout_secs", 30)
	v.SetDefault("breaker.failure_threshold", 5)
	v.SetDefault("breaker.reset_timeout_secs", 30)
	v.SetDefault("server.port", 8001)
	v.SetDefault("server.rate_limit_qps", 0)
	v.SetDefault("server.rate_limit_burst", 10)
	v.SetDefault("server.cors_origins", []string{"*"})
	v.SetDefault("server.cors_allow_credentials", false)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// ModelScoringEnabled reports whether the model-scoring strategies should
// run. They are gated on the Hugging Face key.
func (c *Config) ModelScoringEnabled() bool {
	return strings.TrimSpace(c.HuggingFace.Key) != ""
}

// Validate checks the settings the given command depends on. Mode is one of
// "serve", "ask" or "analyze".
func (c *Config) Validate(mode string) error {
	var problems []string

	if c.Feed.URL == "" {
		problems = append(problems, "feed.url is required")
	}
	if c.Feed.RateLimitQPS < 0 {
		problems = append(problems, "feed.rate_limit_qps must be >= 0")
	}

	switch mode {
	case "serve":
		if c.Server.Port <= 0 || c.Server.Port > 65535 {
			problems = append(problems, "server.port must be between 1 and 65535")
		}
		if c.Server.RateLimitQPS < 0 {
			problems = append(problems, "server.rate_limit_qps must be >= 0")
		}
		if c.Server.RateLimitQPS > 0 && c.Server.RateLimitBurst < 1 {
			problems = append(problems, "server.rate_limit_burst must be >= 1 when rate limiting is on")
		}
		fallthrough
	case "ask":
		if c.Context.MaxLength <= 0 {
			problems = append(problems, "context.max_length must be > 0")
		}
		if c.Context.MaxMessages <= 0 {
			problems = append(problems, "context.max_messages must be > 0")
		}
		for name, v := range map[string]float64{
			"huggingface.min_score": c.HuggingFace.MinScore,
			"local.min_score":       c.Local.MinScore,
			"local.low_score":       c.Local.LowScore,
		} {
			if v < 0 || v > 1 {
				problems = append(problems, name+" must be between 0 and 1")
			}
		}
	case "analyze":
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	if len(problems) > 0 {
		sort.Strings(problems)
		return eris.Errorf("config: %s", strings.Join(problems, "; "))
	}
	return nil
}

// InitLogger initializes the global zap logger based on config.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
