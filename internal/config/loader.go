package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

const (
	envPrefix  = "LIFELINK_"
	envFileVar = "LIFELINK_CONFIG"
)

// Load layers, from low to high precedence:
//  1. Default()
//  2. the YAML file named by LIFELINK_CONFIG, if set
//  3. LIFELINK_ environment variables, "__" separating sections
//     (LIFELINK_MATCHING__RADIUS_KM -> matching.radius_km)
func Load() (Config, error) {
	k := koanf.New(".")

	if path := os.Getenv(envFileVar); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return Config{}, fmt.Errorf("loading %s: %w", path, err)
		}
	}

	envProvider := env.Provider(envPrefix, ".", func(s string) string {
		if s == envFileVar {
			return ""
		}
		s = strings.ToLower(strings.TrimPrefix(s, envPrefix))
		return strings.ReplaceAll(s, "__", ".")
	})
	if err := k.Load(envProvider, nil); err != nil {
		return Config{}, fmt.Errorf("loading environment: %w", err)
	}

	cfg := Default()
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return Config{}, fmt.Errorf("decoding config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	var errs []error
	if c.HTTP.Addr == "" {
		errs = append(errs, errors.New("http.addr must not be empty"))
	}
	if c.Matching.RadiusKm <= 0 {
		errs = append(errs, errors.New("matching.radius_km must be positive"))
	}
	if c.Matching.SmartMatchCount <= 0 {
		errs = append(errs, errors.New("matching.smart_match_count must be positive"))
	}
	switch c.AI.Provider {
	case "none", "":
	case "gemini":
		if c.AI.GeminiKey == "" {
			errs = append(errs, errors.New("ai.gemini_key is required for the gemini provider"))
		}
	case "openai":
		if c.AI.OpenAIKey == "" {
			errs = append(errs, errors.New("ai.openai_key is required for the openai provider"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown ai.provider %q", c.AI.Provider))
	}
	switch c.Auth.Mode {
	case "dev":
	case "firebase":
		if c.Firebase.ProjectID == "" {
			errs = append(errs, errors.New("firebase.project_id is required for firebase auth"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown auth.mode %q", c.Auth.Mode))
	}
	return errors.Join(errs...)
}
