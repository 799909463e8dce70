package config

import (
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// Config holds the project config values
type Config struct {
	Url          string `mapstructure:"DB_URI"`
	DatabaseName string `mapstructure:"DB_NAME"`
	BaseUrl      string `mapstructure:"BASE_URL"`
	Port         string `mapstructure:"PORT"`
	Env          string `mapstructure:"ENV"`

	AnthropicAPIKey      string        `mapstructure:"ANTHROPIC_API_KEY"`
	GenerationModel      string        `mapstructure:"GENERATION_MODEL"`
	GenerationMaxTokens  int64         `mapstructure:"GENERATION_MAX_TOKENS"`
	GenerationTimeout    time.Duration `mapstructure:"GENERATION_TIMEOUT"`
	RequestTimeout       time.Duration `mapstructure:"REQUEST_TIMEOUT"`
	TokenTTL             time.Duration `mapstructure:"TOKEN_TTL"`
	RetrySchedule        string        `mapstructure:"EXTRACTION_RETRY_SCHEDULE"`
	ExtractionMaxAttempt int           `mapstructure:"EXTRACTION_MAX_ATTEMPTS"`
}

var keys = []string{
	"DB_URI", "DB_NAME", "BASE_URL", "PORT", "ENV",
	"ANTHROPIC_API_KEY", "GENERATION_MODEL", "GENERATION_MAX_TOKENS", "GENERATION_TIMEOUT",
	"REQUEST_TIMEOUT", "TOKEN_TTL", "EXTRACTION_RETRY_SCHEDULE", "EXTRACTION_MAX_ATTEMPTS",
}

// New sets up all config related services
func New() *Config {
	v := viper.New()
	v.SetConfigFile(".env")
	v.AutomaticEnv()

	v.SetDefault("DB_NAME", "healthcare_platform_db")
	v.SetDefault("PORT", "8080")
	v.SetDefault("ENV", "production")
	v.SetDefault("GENERATION_MAX_TOKENS", 2048)
	v.SetDefault("GENERATION_TIMEOUT", "60s")
	v.SetDefault("REQUEST_TIMEOUT", "90s")
	v.SetDefault("TOKEN_TTL", "10m")
	v.SetDefault("EXTRACTION_RETRY_SCHEDULE", "@every 10m")
	v.SetDefault("EXTRACTION_MAX_ATTEMPTS", 5)

	for _, k := range keys {
		_ = v.BindEnv(k)
	}

	// a missing .env file is fine, the environment wins anyway
	_ = v.ReadInConfig()

	conf := &Config{}
	if err := v.Unmarshal(conf); err != nil {
		fmt.Printf("failed to decode config, using defaults: %v\n", err)
		conf = &Config{
			DatabaseName:         "healthcare_platform_db",
			Port:                 "8080",
			Env:                  "production",
			GenerationMaxTokens:  2048,
			GenerationTimeout:    60 * time.Second,
			RequestTimeout:       90 * time.Second,
			TokenTTL:             10 * time.Minute,
			RetrySchedule:        "@every 10m",
			ExtractionMaxAttempt: 5,
		}
	}

	logger, err := setLogger(conf.Env)
	if err != nil {
		fmt.Printf("failed to build logger for env %q, falling back to example logger: %v\n", conf.Env, err)
		logger = zap.NewExample()
	}
	_ = zap.ReplaceGlobals(logger)

	return conf
}

// ErrorStatus is a useful function that will log, write http headers and body for a
// give message, status code and err
func ErrorStatus(message string, httpStatusCode int, w http.ResponseWriter, err error) {
	zap.S().With(err).Error(message)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(httpStatusCode)
	w.Write([]byte(fmt.Sprintf(`{"response": "%s, %v"}`, message, err)))
}
