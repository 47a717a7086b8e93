package config

import (
	"bytes"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func embedded(t *testing.T) Config {
	t.Helper()
	v := viper.New()
	v.SetConfigType("yml")
	require.NoError(t, v.ReadConfig(bytes.NewReader(embeddedConfig)))
	var c Config
	require.NoError(t, v.Unmarshal(&c))
	return c
}

func TestEmbeddedConfigIsValid(t *testing.T) {
	c := embedded(t)
	require.NoError(t, c.Validate())

	assert.Equal(t, 20*time.Second, c.Provider.Timeout)
	assert.Equal(t, 0.8, c.Resolution.StructuredThreshold)
	assert.Equal(t, 1.0, c.Itinerary.WalkingMaxKm)
	assert.Equal(t, 3.0, c.Itinerary.TransitMaxKm)
	assert.Equal(t, 25, c.Itinerary.MaxStopsLimit)
	assert.Equal(t, 1500*time.Millisecond, c.Batch.LatencyPerCall)
	assert.Equal(t, 168*time.Hour, c.Cache.FreshFor)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *Config)
	}{
		{"provider timeout above cap", func(c *Config) { c.Provider.Timeout = 31 * time.Second }},
		{"provider timeout zero", func(c *Config) { c.Provider.Timeout = 0 }},
		{"structured threshold zero", func(c *Config) { c.Resolution.StructuredThreshold = 0 }},
		{"semantic threshold above one", func(c *Config) { c.Resolution.SemanticThreshold = 1.5 }},
		{"transit below walking", func(c *Config) { c.Itinerary.TransitMaxKm = 0.5 }},
		{"no batch radius", func(c *Config) { c.Batch.RadiusKm = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := embedded(t)
			tt.mutate(&c)
			assert.Error(t, c.Validate())
		})
	}
}
