// README: Service configuration with defaults for HTTP, storage, matching, AI and alerts.
package config

import "time"

type HTTPConfig struct {
	Addr string `koanf:"addr"`
}

// DBConfig: an empty DSN runs every store in memory.
type DBConfig struct {
	DSN string `koanf:"dsn"`
	// Migrate applies migrations/0001_init.sql on start.
	Migrate bool `koanf:"migrate"`
}

// RedisConfig: an empty Addr disables dispatch records.
type RedisConfig struct {
	Addr string `koanf:"addr"`
}

type MatchingConfig struct {
	RadiusKm        float64 `koanf:"radius_km"`
	SmartMatchCount int     `koanf:"smart_match_count"`
}

type AIConfig struct {
	// Provider is gemini, openai or none.
	Provider       string `koanf:"provider"`
	GeminiKey      string `koanf:"gemini_key"`
	OpenAIKey      string `koanf:"openai_key"`
	OpenAIBaseURL  string `koanf:"openai_base_url"`
	TimeoutSeconds int    `koanf:"timeout_seconds"`
	MonthlyQuota   int    `koanf:"monthly_quota"`
}

func (c AIConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

type MapsConfig struct {
	APIKey string `koanf:"api_key"`
}

type FirebaseConfig struct {
	ProjectID       string `koanf:"project_id"`
	CredentialsFile string `koanf:"credentials_file"`
	DatabaseURL     string `koanf:"database_url"`
}

type SMTPConfig struct {
	Host     string `koanf:"host"`
	Port     int    `koanf:"port"`
	User     string `koanf:"user"`
	Password string `koanf:"password"`
	From     string `koanf:"from"`
}

type AuthConfig struct {
	// Mode is firebase or dev. dev accepts "role:uid" bearer tokens.
	Mode string `koanf:"mode"`
}

type LogConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

type Config struct {
	HTTP     HTTPConfig     `koanf:"http"`
	DB       DBConfig       `koanf:"db"`
	Redis    RedisConfig    `koanf:"redis"`
	Matching MatchingConfig `koanf:"matching"`
	AI       AIConfig       `koanf:"ai"`
	Maps     MapsConfig     `koanf:"maps"`
	Firebase FirebaseConfig `koanf:"firebase"`
	SMTP     SMTPConfig     `koanf:"smtp"`
	Auth     AuthConfig     `koanf:"auth"`
	Log      LogConfig      `koanf:"log"`
	// Seed loads the demo donors and hospitals into empty stores.
	Seed bool `koanf:"seed"`
}

// Default returns the configuration used when nothing overrides it.
func Default() Config {
	return Config{
		HTTP:     HTTPConfig{Addr: ":8080"},
		Matching: MatchingConfig{RadiusKm: 25, SmartMatchCount: 3},
		AI: AIConfig{
			Provider:       "none",
			TimeoutSeconds: 15,
			MonthlyQuota:   100,
		},
		SMTP: SMTPConfig{Port: 587},
		Auth: AuthConfig{Mode: "dev"},
		Log:  LogConfig{Level: "info", Format: "json"},
		Seed: true,
	}
}
