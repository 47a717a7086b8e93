package config

import (
	"bytes"
	_ "embed"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

//go:embed config.yml
var embeddedConfig []byte

type Config struct {
	Mode   string `mapstructure:"mode"`
	Dotenv string `mapstructure:"dotenv"`
	Server struct {
		HTTPPort string        `mapstructure:"HTTPPort"`
		Timeout  time.Duration `mapstructure:"HTTPTimeout"`
	} `mapstructure:"server"`
	Repositories struct {
		Postgres struct {
			Host              string `mapstructure:"host"`
			Password          string `mapstructure:"password"`
			Port              string `mapstructure:"port"`
			Username          string `mapstructure:"username"`
			DB                string `mapstructure:"db"`
			SSLMODE           string `mapstructure:"SSLMODE"`
			MAXCONWAITINGTIME int    `mapstructure:"MAXCONWAITINGTIME"`
			MaxConns          int32  `mapstructure:"maxConns"`
		} `mapstructure:"postgres"`
	} `mapstructure:"repositories"`
	Resolution    ResolutionConfig    `mapstructure:"resolution"`
	Cache         CacheConfig         `mapstructure:"cache"`
	Provider      ProviderConfig      `mapstructure:"provider"`
	Semantic      SemanticConfig      `mapstructure:"semantic"`
	Itinerary     ItineraryConfig     `mapstructure:"itinerary"`
	Batch         BatchConfig         `mapstructure:"batch"`
	Auth          AuthConfig          `mapstructure:"auth"`
	Observability ObservabilityConfig `mapstructure:"observability"`
}

// ResolutionConfig holds the empirically tuned thresholds of the resolution chain.
type ResolutionConfig struct {
	StructuredThreshold float64 `mapstructure:"structuredThreshold"`
	SemanticThreshold   float64 `mapstructure:"semanticThreshold"`
	SemanticTopK        int     `mapstructure:"semanticTopK"`
	FuzzyCandidates     int     `mapstructure:"fuzzyCandidates"`
	SynthesizeFallback  bool    `mapstructure:"synthesizeFallback"`
}

type CacheConfig struct {
	FreshFor        time.Duration `mapstructure:"freshFor"`
	MemoryTTL       time.Duration `mapstructure:"memoryTTL"`
	CleanupInterval time.Duration `mapstructure:"cleanupInterval"`
}

type ProviderConfig struct {
	// Kind selects the paid provider: google_places, gemini or none.
	Kind    string        `mapstructure:"kind"`
	Timeout time.Duration `mapstructure:"timeout"`
	BaseURL string        `mapstructure:"baseURL"`
	APIKey  string        `mapstructure:"apiKey"`
	Model   string        `mapstructure:"model"`
}

type SemanticConfig struct {
	// Embedder selects the embedding backend: gemini, openai or none.
	Embedder   string `mapstructure:"embedder"`
	Model      string `mapstructure:"model"`
	APIKey     string `mapstructure:"apiKey"`
	Dimensions int    `mapstructure:"dimensions"`
}

type ItineraryConfig struct {
	WalkingMaxKm  float64 `mapstructure:"walkingMaxKm"`
	TransitMaxKm  float64 `mapstructure:"transitMaxKm"`
	MaxStopsLimit int     `mapstructure:"maxStopsLimit"`
}

type BatchConfig struct {
	RadiusKm           float64       `mapstructure:"radiusKm"`
	CostPerCallUSD     float64       `mapstructure:"costPerCallUSD"`
	SessionOverheadUSD float64       `mapstructure:"sessionOverheadUSD"`
	LatencyPerCall     time.Duration `mapstructure:"latencyPerCall"`
	SessionSetup       time.Duration `mapstructure:"sessionSetup"`
	MaxConcurrency     int           `mapstructure:"maxConcurrency"`
	PlacesPerTarget    int           `mapstructure:"placesPerTarget"`
}

type AuthConfig struct {
	AdminJWTSecret string `mapstructure:"adminJWTSecret"`
}

type ObservabilityConfig struct {
	ServiceName    string `mapstructure:"serviceName"`
	PrometheusPort string `mapstructure:"prometheusPort"`
}

func InitConfig() (Config, error) {
	var config Config
	v := viper.New()

	// Add file-based config paths
	v.AddConfigPath(".")
	v.AddConfigPath("config")
	v.AddConfigPath("/app/config")
	v.AddConfigPath("/usr/local/bin")

	v.SetConfigName("config")
	v.SetConfigType("yml")

	// PROVIDER_APIKEY overrides provider.apiKey and so on
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Try to load file-based config
	err := v.ReadInConfig()
	if err != nil {
		fmt.Printf("Warning: Failed to find file-based config: %s. Falling back to embedded config.\n", err)
		if err = v.ReadConfig(bytes.NewReader(embeddedConfig)); err != nil {
			return Config{}, fmt.Errorf("failed to read embedded config: %w", err)
		}
	}

	if err = v.Unmarshal(&config); err != nil {
		return Config{}, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err = config.Validate(); err != nil {
		return Config{}, err
	}
	fmt.Println("Successfully loaded app configs...")
	return config, nil
}

// Validate rejects configurations the resolver cannot honour.
func (c Config) Validate() error {
	if c.Provider.Timeout <= 0 || c.Provider.Timeout > 30*time.Second {
		return fmt.Errorf("provider.timeout must be in (0s, 30s], got %s", c.Provider.Timeout)
	}
	if c.Resolution.StructuredThreshold <= 0 || c.Resolution.StructuredThreshold > 1 {
		return fmt.Errorf("resolution.structuredThreshold must be in (0, 1], got %v", c.Resolution.StructuredThreshold)
	}
	if c.Resolution.SemanticThreshold <= 0 || c.Resolution.SemanticThreshold > 1 {
		return fmt.Errorf("resolution.semanticThreshold must be in (0, 1], got %v", c.Resolution.SemanticThreshold)
	}
	if c.Itinerary.WalkingMaxKm <= 0 || c.Itinerary.TransitMaxKm < c.Itinerary.WalkingMaxKm {
		return fmt.Errorf("itinerary thresholds must satisfy 0 < walkingMaxKm <= transitMaxKm")
	}
	if c.Batch.RadiusKm <= 0 {
		return fmt.Errorf("batch.radiusKm must be positive")
	}
	return nil
}
