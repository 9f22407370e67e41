package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Grouping holds the thresholds used to place students into performance groups.
type Grouping struct {
	AtRiskSubmissionRate float64
	DecliningTrend       float64
	HighPerformer        float64
	SolidPerformer       float64
	ImprovingTrend       float64
	Struggling           float64
	Variance             float64
}

// Config holds runtime configuration values for the API service.
type Config struct {
	AppName       string
	AppEnv        string
	AppPort       string
	LogLevel      string
	DBDriver      string
	DatabaseURL   string
	RedisURL      string
	NATSURL       string
	EventsSubject string
	JWTSecret     string

	AIProvider      string
	AIModel         string
	AIMaxTokens     int
	AITemperature   float32
	AITimeout       time.Duration
	AIBaseURL       string
	OpenAIAPIKey    string
	AnthropicAPIKey string

	EvaluationContentLimit int
	EvaluationBatchLimit   int
	TeachingContextFile    string

	Grouping Grouping

	CanvasBaseURL  string
	CanvasToken    string
	CanvasCourseID string

	CloudinaryCloudName    string
	CloudinaryAPIKey       string
	CloudinaryAPISecret    string
	CloudinaryUploadFolder string

	AnalyticsCacheTTL time.Duration
	EvaluateRateLimit int
	CORSAllowOrigins  string
}

// HTTPAddress returns the address the HTTP server should listen on.
func (c Config) HTTPAddress() string {
	if strings.HasPrefix(c.AppPort, ":") {
		return c.AppPort
	}

	return fmt.Sprintf(":%s", c.AppPort)
}

// AIAPIKey returns the key matching the configured provider.
func (c Config) AIAPIKey() string {
	if c.AIProvider == "anthropic" {
		return c.AnthropicAPIKey
	}
	return c.OpenAIAPIKey
}

// Load reads configuration values from environment variables and optional .env file.
func Load() (Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix("CLASS")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	return fromViper(v)
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "Class Assistant API")
	v.SetDefault("app.env", "development")
	v.SetDefault("app.port", "8080")
	v.SetDefault("log.level", "info")
	v.SetDefault("database.driver", "postgres")
	v.SetDefault("events.subject", "class.events")
	v.SetDefault("ai.provider", "openai")
	v.SetDefault("ai.max_tokens", 1500)
	v.SetDefault("ai.temperature", 0.3)
	v.SetDefault("ai.timeout", "60s")
	v.SetDefault("evaluation.content_limit", 10000)
	v.SetDefault("evaluation.batch_limit", 50)
	v.SetDefault("grouping.at_risk_submission_rate", 0.5)
	v.SetDefault("grouping.declining_trend", -10)
	v.SetDefault("grouping.high_performer", 90)
	v.SetDefault("grouping.solid_performer", 80)
	v.SetDefault("grouping.improving_trend", 10)
	v.SetDefault("grouping.struggling", 70)
	v.SetDefault("grouping.variance", 200)
	v.SetDefault("cloudinary.folder", "class/exports")
	v.SetDefault("analytics.cache_ttl", "5m")
	v.SetDefault("rate_limit.evaluate", 10)
	v.SetDefault("cors.allow_origins", "*")
}

func fromViper(v *viper.Viper) (Config, error) {
	setDefaults(v)

	aiTimeout, err := parseDuration(v, "ai.timeout")
	if err != nil {
		return Config{}, err
	}
	cacheTTL, err := parseDuration(v, "analytics.cache_ttl")
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		AppName:       v.GetString("app.name"),
		AppEnv:        v.GetString("app.env"),
		AppPort:       v.GetString("app.port"),
		LogLevel:      strings.ToLower(v.GetString("log.level")),
		DBDriver:      strings.ToLower(v.GetString("database.driver")),
		DatabaseURL:   v.GetString("database.url"),
		RedisURL:      v.GetString("redis.url"),
		NATSURL:       v.GetString("nats.url"),
		EventsSubject: v.GetString("events.subject"),
		JWTSecret:     v.GetString("jwt.secret"),

		AIProvider:      strings.ToLower(v.GetString("ai.provider")),
		AIModel:         v.GetString("ai.model"),
		AIMaxTokens:     v.GetInt("ai.max_tokens"),
		AITemperature:   float32(v.GetFloat64("ai.temperature")),
		AITimeout:       aiTimeout,
		AIBaseURL:       v.GetString("ai.base_url"),
		OpenAIAPIKey:    v.GetString("openai_api_key"),
		AnthropicAPIKey: v.GetString("anthropic_api_key"),

		EvaluationContentLimit: v.GetInt("evaluation.content_limit"),
		EvaluationBatchLimit:   v.GetInt("evaluation.batch_limit"),
		TeachingContextFile:    v.GetString("evaluation.context_file"),

		Grouping: Grouping{
			AtRiskSubmissionRate: v.GetFloat64("grouping.at_risk_submission_rate"),
			DecliningTrend:       v.GetFloat64("grouping.declining_trend"),
			HighPerformer:        v.GetFloat64("grouping.high_performer"),
			SolidPerformer:       v.GetFloat64("grouping.solid_performer"),
			ImprovingTrend:       v.GetFloat64("grouping.improving_trend"),
			Struggling:           v.GetFloat64("grouping.struggling"),
			Variance:             v.GetFloat64("grouping.variance"),
		},

		CanvasBaseURL:  v.GetString("canvas.base_url"),
		CanvasToken:    v.GetString("canvas.token"),
		CanvasCourseID: v.GetString("canvas.course_id"),

		CloudinaryCloudName:    v.GetString("cloudinary.cloud_name"),
		CloudinaryAPIKey:       v.GetString("cloudinary.api_key"),
		CloudinaryAPISecret:    v.GetString("cloudinary.api_secret"),
		CloudinaryUploadFolder: v.GetString("cloudinary.folder"),

		AnalyticsCacheTTL: cacheTTL,
		EvaluateRateLimit: v.GetInt("rate_limit.evaluate"),
		CORSAllowOrigins:  v.GetString("cors.allow_origins"),
	}

	if cfg.JWTSecret == "" {
		return Config{}, fmt.Errorf("jwt secret must be provided")
	}

	switch cfg.DBDriver {
	case "postgres", "sqlite":
	default:
		return Config{}, fmt.Errorf("unsupported database driver %q", cfg.DBDriver)
	}

	switch cfg.AIProvider {
	case "openai", "anthropic":
	default:
		return Config{}, fmt.Errorf("unsupported ai provider %q", cfg.AIProvider)
	}

	if cfg.EvaluationContentLimit <= 0 || cfg.EvaluationBatchLimit <= 0 {
		return Config{}, fmt.Errorf("evaluation limits must be positive")
	}

	if err := cfg.Grouping.validate(); err != nil {
		return Config{}, err
	}

	if cfg.EvaluateRateLimit <= 0 {
		cfg.EvaluateRateLimit = 10
	}

	return cfg, nil
}

func parseDuration(v *viper.Viper, key string) (time.Duration, error) {
	raw := strings.TrimSpace(v.GetString(key))
	duration, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	if duration <= 0 {
		return 0, fmt.Errorf("invalid %s: must be positive", key)
	}
	return duration, nil
}

func (g Grouping) validate() error {
	if g.AtRiskSubmissionRate < 0 || g.AtRiskSubmissionRate > 1 {
		return fmt.Errorf("grouping at_risk_submission_rate must be between 0 and 1")
	}
	for name, value := range map[string]float64{
		"high_performer":  g.HighPerformer,
		"solid_performer": g.SolidPerformer,
		"struggling":      g.Struggling,
	} {
		if value < 0 || value > 100 {
			return fmt.Errorf("grouping %s must be between 0 and 100", name)
		}
	}
	if g.SolidPerformer > g.HighPerformer {
		return fmt.Errorf("grouping solid_performer must not exceed high_performer")
	}
	if g.DecliningTrend >= 0 || g.ImprovingTrend <= 0 {
		return fmt.Errorf("grouping trends must be negative for declining and positive for improving")
	}
	if g.Variance <= 0 {
		return fmt.Errorf("grouping variance must be positive")
	}
	return nil
}
