package config

import (
	"bytes"
	"testing"
	"time"

	"github.com/Veraticus/the-glossary-must-flow/internal/common"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func viperFromYAML(t *testing.T, doc string) *viper.Viper {
	t.Helper()
	v := viper.New()
	v.SetConfigType("yaml")
	require.NoError(t, v.ReadConfig(bytes.NewBufferString(doc)))
	return v
}

func TestLoad(t *testing.T) {
	t.Run("full config", func(t *testing.T) {
		v := viperFromYAML(t, `
extract:
  concurrency: 4
  rpm: 120
  token_threshold: 512
  max_rounds: 8
  request_timeout: 30s
  source_language: JA
  target_language: en
active_platform: claude
platforms:
  - name: local
    format: sakura
    url: http://127.0.0.1:8080/v1/
    model: sakura-14b
  - name: claude
    format: anthropic
    model: claude-sonnet-4
    keys: [k1, k2]
    thinking: true
    sampling:
      temperature: 0.2
`)
		run, err := Load(v)
		require.NoError(t, err)

		assert.Equal(t, 4, run.Concurrency)
		assert.Equal(t, 120, run.RPM)
		assert.Equal(t, 512, run.TokenThreshold)
		assert.Equal(t, 8, run.MaxRounds)
		assert.Equal(t, 30*time.Second, run.RequestTimeout)
		assert.Equal(t, DefaultSaveInterval, run.SaveInterval)
		assert.Equal(t, "ja", run.SourceLanguage)

		p, ok := run.Platform.(*AnthropicPlatform)
		require.True(t, ok, "expected anthropic platform, got %T", run.Platform)
		assert.Equal(t, DefaultThinkingBudget, p.ThinkingBudget)
		assert.Equal(t, []string{"k1", "k2"}, p.Keys)
		require.NotNil(t, p.Sampling.Temperature)
		assert.InDelta(t, 0.2, *p.Sampling.Temperature, 1e-9)
	})

	t.Run("defaults and first platform", func(t *testing.T) {
		v := viperFromYAML(t, `
platforms:
  - format: openai
    url: https://api.openai.com/v1/
    model: gpt-4o-mini
`)
		run, err := Load(v)
		require.NoError(t, err)
		assert.Equal(t, DefaultTokenThreshold, run.TokenThreshold)
		assert.Equal(t, DefaultMaxRounds, run.MaxRounds)
		assert.Equal(t, VendorOpenAI, VendorOf(run.Platform))
		assert.Equal(t, "https://api.openai.com/v1", run.Platform.Base().URL)
		assert.Equal(t, "openai", run.Platform.Base().Name)
	})

	t.Run("no platform", func(t *testing.T) {
		_, err := Load(viper.New())
		assert.ErrorIs(t, err, common.ErrNoPlatform)
	})

	t.Run("unknown format", func(t *testing.T) {
		v := viperFromYAML(t, `
platforms:
  - format: carrier-pigeon
    model: x
`)
		_, err := Load(v)
		assert.ErrorIs(t, err, common.ErrInvalidConfig)
	})

	t.Run("missing active platform", func(t *testing.T) {
		v := viperFromYAML(t, `
active_platform: nope
platforms:
  - format: google
    model: gemini-2.5-flash
`)
		_, err := Load(v)
		assert.ErrorIs(t, err, common.ErrNoPlatform)
	})

	t.Run("openai requires url", func(t *testing.T) {
		v := viperFromYAML(t, `
platforms:
  - format: openai
    model: gpt-4o
`)
		_, err := Load(v)
		assert.ErrorIs(t, err, common.ErrInvalidConfig)
	})

	t.Run("invalid run values", func(t *testing.T) {
		v := viperFromYAML(t, `
extract:
  token_threshold: 0
  max_rounds: -1
platforms:
  - format: google
    model: gemini-2.5-flash
`)
		_, err := Load(v)
		require.Error(t, err)
		assert.ErrorIs(t, err, common.ErrInvalidConfig)
		assert.Contains(t, err.Error(), "token_threshold")
		assert.Contains(t, err.Error(), "max_rounds")
	})
}

func TestExpandPath(t *testing.T) {
	t.Setenv("GLOSSA_TEST_DIR", "/tmp/glossa")
	assert.Equal(t, "/tmp/glossa/out", ExpandPath("$GLOSSA_TEST_DIR/out"))
	assert.Equal(t, "", ExpandPath(""))
	assert.Equal(t, "/tmp/glossa/out/cache", CacheDir("/tmp/glossa/out"))
}

func TestExtractsTerms(t *testing.T) {
	base := PlatformBase{Name: "p", URL: "http://127.0.0.1:8080/v1", Model: "m"}
	tests := []struct {
		platform Platform
		name     string
		want     bool
	}{
		{name: "openai", platform: &OpenAIPlatform{PlatformBase: base}, want: true},
		{name: "google", platform: &GooglePlatform{PlatformBase: base}, want: true},
		{name: "anthropic", platform: &AnthropicPlatform{PlatformBase: base}, want: true},
		{name: "sakura", platform: &SakuraPlatform{PlatformBase: base}, want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExtractsTerms(tt.platform))
		})
	}
}
