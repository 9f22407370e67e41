package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/require"
)

func newViper(values map[string]interface{}) *viper.Viper {
	v := viper.New()
	for key, value := range values {
		v.Set(key, value)
	}
	return v
}

func TestFromViperAppliesDefaults(t *testing.T) {
	cfg, err := fromViper(newViper(map[string]interface{}{"jwt.secret": "secret"}))
	require.NoError(t, err)

	require.Equal(t, ":8080", cfg.HTTPAddress())
	require.Equal(t, "postgres", cfg.DBDriver)
	require.Equal(t, "openai", cfg.AIProvider)
	require.Equal(t, 60*time.Second, cfg.AITimeout)
	require.Equal(t, 5*time.Minute, cfg.AnalyticsCacheTTL)
	require.Equal(t, 10000, cfg.EvaluationContentLimit)
	require.Equal(t, 50, cfg.EvaluationBatchLimit)
	require.Equal(t, 10, cfg.EvaluateRateLimit)
	require.Equal(t, "*", cfg.CORSAllowOrigins)
	require.Equal(t, Grouping{
		AtRiskSubmissionRate: 0.5,
		DecliningTrend:       -10,
		HighPerformer:        90,
		SolidPerformer:       80,
		ImprovingTrend:       10,
		Struggling:           70,
		Variance:             200,
	}, cfg.Grouping)
}

func TestFromViperReadsOverrides(t *testing.T) {
	cfg, err := fromViper(newViper(map[string]interface{}{
		"jwt.secret":              "secret",
		"app.port":                ":9090",
		"database.driver":         "SQLite",
		"ai.provider":             "Anthropic",
		"anthropic_api_key":       "sk-ant",
		"openai_api_key":          "sk-oai",
		"grouping.high_performer": 95,
		"analytics.cache_ttl":     "30s",
	}))
	require.NoError(t, err)

	require.Equal(t, ":9090", cfg.HTTPAddress())
	require.Equal(t, "sqlite", cfg.DBDriver)
	require.Equal(t, "sk-ant", cfg.AIAPIKey())
	require.Equal(t, 95.0, cfg.Grouping.HighPerformer)
	require.Equal(t, 30*time.Second, cfg.AnalyticsCacheTTL)
}

func TestFromViperRejectsInvalidValues(t *testing.T) {
	cases := map[string]map[string]interface{}{
		"missing secret":   {},
		"bad duration":     {"jwt.secret": "s", "ai.timeout": "soon"},
		"negative ttl":     {"jwt.secret": "s", "analytics.cache_ttl": "-1m"},
		"bad driver":       {"jwt.secret": "s", "database.driver": "mysql"},
		"bad provider":     {"jwt.secret": "s", "ai.provider": "local"},
		"bad rate":         {"jwt.secret": "s", "grouping.at_risk_submission_rate": 1.5},
		"inverted tiers":   {"jwt.secret": "s", "grouping.solid_performer": 95},
		"positive decline": {"jwt.secret": "s", "grouping.declining_trend": 5},
		"zero limit":       {"jwt.secret": "s", "evaluation.content_limit": 0},
	}
	for name, values := range cases {
		_, err := fromViper(newViper(values))
		require.Error(t, err, name)
	}
}
