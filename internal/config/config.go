package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"boombot/pkg/boombot"
)

const (
	defaultHTTPAddr       = "127.0.0.1:8000"
	defaultWorkers        = 8
	defaultRatePerMinute  = 6
	defaultRateBurst      = 3
	defaultPollTimeout    = 60
	defaultRequestTimeout = 60 * time.Second
	defaultStocksPerReply = 2
	configFileName        = "config.yaml"
)

// Config is the resolved runtime configuration. Build it with Load.
type Config struct {
	DataDir   string          `yaml:"data_dir"`
	Telegram  TelegramConfig  `yaml:"telegram"`
	Generator GeneratorConfig `yaml:"generator"`
	HTTP      HTTPConfig      `yaml:"http"`
	Log       LogConfig       `yaml:"log"`
	Sectors   SectorsConfig   `yaml:"sectors"`

	// Path of the YAML file that was applied, empty when none.
	Source string `yaml:"-"`
}

type TelegramConfig struct {
	Token         string  `yaml:"token"`
	Workers       int     `yaml:"workers"`
	RatePerMinute float64 `yaml:"rate_per_minute"`
	RateBurst     int     `yaml:"rate_burst"`
	PollTimeout   int     `yaml:"poll_timeout"`
	Debug         bool    `yaml:"debug"`
}

type GeneratorConfig struct {
	Provider        string        `yaml:"provider"`
	Model           string        `yaml:"model"`
	BaseURL         string        `yaml:"base_url"`
	GeminiAPIKey    string        `yaml:"gemini_api_key"`
	OpenAIAPIKey    string        `yaml:"openai_api_key"`
	AnthropicAPIKey string        `yaml:"anthropic_api_key"`
	MaxOutputTokens int           `yaml:"max_output_tokens"`
	Temperature     float64       `yaml:"temperature"`
	MaxRetries      int           `yaml:"max_retries"`
	RequestTimeout  time.Duration `yaml:"request_timeout"`
	StocksPerReply  int           `yaml:"stocks_per_reply"`
}

type HTTPConfig struct {
	Enabled        bool     `yaml:"enabled"`
	Addr           string   `yaml:"addr"`
	AllowedOrigins []string `yaml:"allowed_origins"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Dir    string `yaml:"dir"`
}

// SectorsConfig extends the built-in vocabulary.
type SectorsConfig struct {
	Extra    []string          `yaml:"extra"`
	Synonyms []boombot.Synonym `yaml:"synonyms"`
}

// LoadOptions controls where Load looks for configuration.
type LoadOptions struct {
	// ConfigPath is an explicit YAML file; it must exist when set.
	ConfigPath string
	// EnvFiles are dotenv files read before the environment. Missing files are skipped.
	EnvFiles []string
	// LookupEnv defaults to os.LookupEnv.
	LookupEnv func(string) (string, bool)
}

func IsMacOS() bool {
	return runtime.GOOS == "darwin"
}

func IsWindows() bool {
	return runtime.GOOS == "windows"
}

func userHomeDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return home, nil
}

func appConfigDir() (string, error) {
	if IsMacOS() {
		home, err := userHomeDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(home, "Library", "Application Support", "BoomBot"), nil
	}
	if IsWindows() {
		appData := os.Getenv("APPDATA")
		if appData == "" {
			home, err := userHomeDir()
			if err != nil {
				return "", err
			}
			appData = home
		}
		return filepath.Join(appData, "BoomBot"), nil
	}
	configDir, err := os.UserConfigDir()
	if err != nil {
		home, err := userHomeDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(home, ".config", "boombot"), nil
	}
	return filepath.Join(configDir, "boombot"), nil
}

func defaults() Config {
	return Config{
		Telegram: TelegramConfig{
			Workers:       defaultWorkers,
			RatePerMinute: defaultRatePerMinute,
			RateBurst:     defaultRateBurst,
			PollTimeout:   defaultPollTimeout,
		},
		Generator: GeneratorConfig{
			Provider:       boombot.ProviderGemini,
			MaxRetries:     -1,
			RequestTimeout: defaultRequestTimeout,
			StocksPerReply: defaultStocksPerReply,
		},
		HTTP: HTTPConfig{
			Enabled: true,
			Addr:    defaultHTTPAddr,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load resolves configuration from defaults, dotenv files, an optional YAML
// file and environment variables, in that order.
func Load(opts LoadOptions) (*Config, error) {
	lookup, err := buildLookup(opts)
	if err != nil {
		return nil, err
	}

	cfg := defaults()

	path, explicit := opts.ConfigPath, opts.ConfigPath != ""
	if !explicit {
		if v, ok := lookup("BOOMBOT_CONFIG"); ok && strings.TrimSpace(v) != "" {
			path, explicit = strings.TrimSpace(v), true
		}
	}
	if !explicit {
		if dir, err := appConfigDir(); err == nil {
			candidate := filepath.Join(dir, configFileName)
			if _, err := os.Stat(candidate); err == nil {
				path = candidate
			}
		}
	}
	if path != "" {
		if err := readYAML(path, &cfg); err != nil {
			return nil, err
		}
		cfg.Source = path
	}

	applyEnv(&cfg, lookup)

	if cfg.DataDir == "" {
		dir, err := appConfigDir()
		if err != nil {
			return nil, fmt.Errorf("resolve data dir: %w", err)
		}
		cfg.DataDir = dir
	}
	if cfg.Log.Dir == "" {
		cfg.Log.Dir = filepath.Join(cfg.DataDir, "logs")
	}
	cfg.Generator.Provider = strings.ToLower(strings.TrimSpace(cfg.Generator.Provider))
	return &cfg, nil
}

// buildLookup layers dotenv values under the real environment.
func buildLookup(opts LoadOptions) (func(string) (string, bool), error) {
	base := opts.LookupEnv
	if base == nil {
		base = os.LookupEnv
	}
	fileValues := map[string]string{}
	for _, file := range opts.EnvFiles {
		if _, err := os.Stat(file); err != nil {
			continue
		}
		values, err := godotenv.Read(file)
		if err != nil {
			return nil, fmt.Errorf("read env file %s: %w", file, err)
		}
		for k, v := range values {
			if _, exists := fileValues[k]; !exists {
				fileValues[k] = v
			}
		}
	}
	return func(key string) (string, bool) {
		if v, ok := base(key); ok {
			return v, true
		}
		v, ok := fileValues[key]
		return v, ok
	}, nil
}

func readYAML(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

func applyEnv(cfg *Config, lookup func(string) (string, bool)) {
	set := func(key string, dst *string) {
		if v, ok := lookup(key); ok && strings.TrimSpace(v) != "" {
			*dst = strings.TrimSpace(v)
		}
	}
	set("TELEGRAM_BOT_TOKEN", &cfg.Telegram.Token)
	set("GEMINI_API_KEY", &cfg.Generator.GeminiAPIKey)
	set("OPENAI_API_KEY", &cfg.Generator.OpenAIAPIKey)
	set("ANTHROPIC_API_KEY", &cfg.Generator.AnthropicAPIKey)
	set("BOOMBOT_PROVIDER", &cfg.Generator.Provider)
	set("BOOMBOT_MODEL", &cfg.Generator.Model)
	set("BOOMBOT_BASE_URL", &cfg.Generator.BaseURL)
	set("BOOMBOT_HTTP_ADDR", &cfg.HTTP.Addr)
	set("BOOMBOT_DATA_DIR", &cfg.DataDir)
	set("BOOMBOT_LOG_LEVEL", &cfg.Log.Level)
	set("BOOMBOT_LOG_FORMAT", &cfg.Log.Format)
}

// APIKey returns the key for the selected provider.
func (c *Config) APIKey() string {
	switch c.Generator.Provider {
	case boombot.ProviderOpenAI:
		return c.Generator.OpenAIAPIKey
	case boombot.ProviderAnthropic:
		return c.Generator.AnthropicAPIKey
	default:
		return c.Generator.GeminiAPIKey
	}
}

// GeneratorConfig converts the generator section for boombot.NewGenerator.
func (c *Config) GeneratorConfig() boombot.GeneratorConfig {
	return boombot.GeneratorConfig{
		Provider:        c.Generator.Provider,
		APIKey:          c.APIKey(),
		BaseURL:         c.Generator.BaseURL,
		Model:           c.Generator.Model,
		MaxOutputTokens: c.Generator.MaxOutputTokens,
		Temperature:     c.Generator.Temperature,
		MaxRetries:      c.Generator.MaxRetries,
	}
}

// Vocabulary returns the built-in vocabulary extended with configured entries.
func (c *Config) Vocabulary() *boombot.Vocabulary {
	if len(c.Sectors.Extra) == 0 && len(c.Sectors.Synonyms) == 0 {
		return boombot.DefaultVocabulary()
	}
	return boombot.ExtendDefaultVocabulary(c.Sectors.Extra, c.Sectors.Synonyms)
}

// Validate checks the settings needed to serve requests.
func (c *Config) Validate() error {
	var errs []error
	switch c.Generator.Provider {
	case boombot.ProviderGemini, boombot.ProviderOpenAI, boombot.ProviderAnthropic:
		if strings.TrimSpace(c.APIKey()) == "" {
			errs = append(errs, fmt.Errorf("missing api key for provider %s", c.Generator.Provider))
		}
	default:
		errs = append(errs, fmt.Errorf("unsupported provider %q", c.Generator.Provider))
	}
	if c.Telegram.Token == "" && !c.HTTP.Enabled {
		errs = append(errs, errors.New("nothing to run: set TELEGRAM_BOT_TOKEN or enable the http api"))
	}
	if c.HTTP.Enabled && strings.TrimSpace(c.HTTP.Addr) == "" {
		errs = append(errs, errors.New("http addr is empty"))
	}
	if c.Telegram.Workers <= 0 {
		errs = append(errs, fmt.Errorf("telegram workers must be positive, got %d", c.Telegram.Workers))
	}
	if c.Telegram.RatePerMinute < 0 || c.Telegram.RateBurst < 0 {
		errs = append(errs, errors.New("telegram rate limits must not be negative"))
	}
	if c.Generator.RequestTimeout <= 0 {
		errs = append(errs, errors.New("generator request timeout must be positive"))
	}
	if c.Generator.StocksPerReply < 1 || c.Generator.StocksPerReply > boombot.MaxRecommendations {
		errs = append(errs, fmt.Errorf("stocks_per_reply must be between 1 and %d", boombot.MaxRecommendations))
	}
	switch strings.ToLower(c.Log.Format) {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("unsupported log format %q", c.Log.Format))
	}
	if len(errs) > 0 {
		return boombot.WrapError(boombot.ErrCodeConfig, "invalid configuration", errors.Join(errs...))
	}
	return nil
}

// EnsureDataDir creates the data and log directories.
func (c *Config) EnsureDataDir() error {
	if err := os.MkdirAll(c.DataDir, 0o755); err != nil {
		return err
	}
	return os.MkdirAll(c.Log.Dir, 0o755)
}

// Redacted returns a copy safe to log.
func (c Config) Redacted() Config {
	c.Telegram.Token = redact(c.Telegram.Token)
	c.Generator.GeminiAPIKey = redact(c.Generator.GeminiAPIKey)
	c.Generator.OpenAIAPIKey = redact(c.Generator.OpenAIAPIKey)
	c.Generator.AnthropicAPIKey = redact(c.Generator.AnthropicAPIKey)
	return c
}

func redact(secret string) string {
	if secret == "" {
		return ""
	}
	runes := []rune(secret)
	if len(runes) <= 8 {
		return "****"
	}
	return "****" + string(runes[len(runes)-4:])
}
