package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Veraticus/the-glossary-must-flow/internal/common"
	"github.com/spf13/viper"
)

// Default run settings.
const (
	DefaultTokenThreshold = 384
	DefaultMaxRounds      = 16
	DefaultRequestTimeout = 120 * time.Second
	DefaultSaveInterval   = 15 * time.Second
	DefaultSourceLanguage = "ja"
	DefaultTargetLanguage = "zh"
	DefaultOutputDir      = "./output"
)

// Run holds everything a single extraction run needs.
type Run struct {
	Platform       Platform
	SourceLanguage string
	TargetLanguage string
	OutputDir      string
	RulesFile      string
	Concurrency    int
	RPM            int
	TokenThreshold int
	MaxRounds      int
	RequestTimeout time.Duration
	SaveInterval   time.Duration
}

// Validate checks the run configuration for errors that must abort a run before it starts.
func (r *Run) Validate() error {
	if r.Platform == nil {
		return common.ErrNoPlatform
	}
	if err := ValidatePlatform(r.Platform); err != nil {
		return err
	}

	var errs []error
	if r.Concurrency < 0 {
		errs = append(errs, fmt.Errorf("concurrency must be >= 0, got %d", r.Concurrency))
	}
	if r.RPM < 0 {
		errs = append(errs, fmt.Errorf("rpm must be >= 0, got %d", r.RPM))
	}
	if r.TokenThreshold <= 0 {
		errs = append(errs, fmt.Errorf("token_threshold must be > 0, got %d", r.TokenThreshold))
	}
	if r.MaxRounds <= 0 {
		errs = append(errs, fmt.Errorf("max_rounds must be > 0, got %d", r.MaxRounds))
	}
	if r.RequestTimeout <= 0 {
		errs = append(errs, fmt.Errorf("request_timeout must be > 0, got %s", r.RequestTimeout))
	}
	if r.SourceLanguage == "" || r.TargetLanguage == "" {
		errs = append(errs, errors.New("source_language and target_language are required"))
	}
	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", common.ErrInvalidConfig, errors.Join(errs...))
	}
	return nil
}

// SetDefaults registers default values for all run keys on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("extract.concurrency", 0)
	v.SetDefault("extract.rpm", 0)
	v.SetDefault("extract.token_threshold", DefaultTokenThreshold)
	v.SetDefault("extract.max_rounds", DefaultMaxRounds)
	v.SetDefault("extract.request_timeout", DefaultRequestTimeout)
	v.SetDefault("extract.save_interval", DefaultSaveInterval)
	v.SetDefault("extract.source_language", DefaultSourceLanguage)
	v.SetDefault("extract.target_language", DefaultTargetLanguage)
	v.SetDefault("extract.output_dir", DefaultOutputDir)
}

// rawPlatform is the on-disk shape of one platform entry.
type rawPlatform struct {
	Sampling       rawSampling `mapstructure:"sampling"`
	Name           string      `mapstructure:"name"`
	Format         string      `mapstructure:"format"`
	URL            string      `mapstructure:"url"`
	Model          string      `mapstructure:"model"`
	Keys           []string    `mapstructure:"keys"`
	ThinkingBudget int         `mapstructure:"thinking_budget"`
	Thinking       bool        `mapstructure:"thinking"`
}

type rawSampling struct {
	Temperature      *float64 `mapstructure:"temperature"`
	TopP             *float64 `mapstructure:"top_p"`
	FrequencyPenalty *float64 `mapstructure:"frequency_penalty"`
	MaxTokens        *int     `mapstructure:"max_tokens"`
}

// Load reads a validated Run from v. Missing keys fall back to defaults.
func Load(v *viper.Viper) (Run, error) {
	SetDefaults(v)

	run := Run{
		Concurrency:    v.GetInt("extract.concurrency"),
		RPM:            v.GetInt("extract.rpm"),
		TokenThreshold: v.GetInt("extract.token_threshold"),
		MaxRounds:      v.GetInt("extract.max_rounds"),
		RequestTimeout: v.GetDuration("extract.request_timeout"),
		SaveInterval:   v.GetDuration("extract.save_interval"),
		SourceLanguage: strings.ToLower(v.GetString("extract.source_language")),
		TargetLanguage: strings.ToLower(v.GetString("extract.target_language")),
		OutputDir:      ExpandPath(v.GetString("extract.output_dir")),
		RulesFile:      ExpandPath(v.GetString("extract.rules_file")),
	}

	platforms, err := LoadPlatforms(v)
	if err != nil {
		return Run{}, err
	}

	active := v.GetString("active_platform")
	run.Platform, err = SelectPlatform(platforms, active)
	if err != nil {
		return Run{}, err
	}

	if err := run.Validate(); err != nil {
		return Run{}, err
	}
	return run, nil
}

// LoadPlatforms decodes every configured platform.
func LoadPlatforms(v *viper.Viper) ([]Platform, error) {
	var raws []rawPlatform
	if err := v.UnmarshalKey("platforms", &raws); err != nil {
		return nil, fmt.Errorf("%w: decode platforms: %w", common.ErrInvalidConfig, err)
	}

	platforms := make([]Platform, 0, len(raws))
	for i, raw := range raws {
		p, err := raw.toPlatform()
		if err != nil {
			return nil, fmt.Errorf("platform %d (%s): %w", i, raw.Name, err)
		}
		platforms = append(platforms, p)
	}
	return platforms, nil
}

// SelectPlatform picks the platform named active, or the first one when active is empty.
func SelectPlatform(platforms []Platform, active string) (Platform, error) {
	if len(platforms) == 0 {
		return nil, common.ErrNoPlatform
	}
	if active == "" {
		return platforms[0], nil
	}
	for _, p := range platforms {
		if strings.EqualFold(p.Base().Name, active) {
			return p, nil
		}
	}
	return nil, fmt.Errorf("%w: active platform %q not found", common.ErrNoPlatform, active)
}

func (r rawPlatform) toPlatform() (Platform, error) {
	base := PlatformBase{
		Name:  r.Name,
		URL:   strings.TrimRight(r.URL, "/"),
		Model: r.Model,
		Keys:  r.Keys,
		Sampling: Sampling{
			Temperature:      r.Sampling.Temperature,
			TopP:             r.Sampling.TopP,
			FrequencyPenalty: r.Sampling.FrequencyPenalty,
			MaxTokens:        r.Sampling.MaxTokens,
		},
	}
	if base.Name == "" {
		base.Name = r.Format
	}

	budget := 0
	if r.Thinking {
		budget = r.ThinkingBudget
		if budget <= 0 {
			budget = DefaultThinkingBudget
		}
	}

	var p Platform
	switch Vendor(strings.ToLower(r.Format)) {
	case VendorOpenAI, "":
		p = &OpenAIPlatform{PlatformBase: base}
	case VendorGoogle:
		p = &GooglePlatform{PlatformBase: base, ThinkingBudget: budget}
	case VendorAnthropic:
		p = &AnthropicPlatform{PlatformBase: base, ThinkingBudget: budget}
	case VendorSakura:
		p = &SakuraPlatform{PlatformBase: base}
	default:
		return nil, fmt.Errorf("%w: unknown platform format %q", common.ErrInvalidConfig, r.Format)
	}

	if err := ValidatePlatform(p); err != nil {
		return nil, err
	}
	return p, nil
}
