package config

import (
	"fmt"

	"github.com/Veraticus/the-glossary-must-flow/internal/common"
)

// Vendor names an LLM API family.
type Vendor string

// Supported vendor families.
const (
	VendorOpenAI    Vendor = "openai"
	VendorGoogle    Vendor = "google"
	VendorAnthropic Vendor = "anthropic"
	VendorSakura    Vendor = "sakura"
)

// DefaultThinkingBudget is used when thinking is enabled without an explicit budget.
const DefaultThinkingBudget = 1024

// Sampling holds optional per-platform overrides of the sampling table.
type Sampling struct {
	Temperature      *float64
	TopP             *float64
	FrequencyPenalty *float64
	MaxTokens        *int
}

// PlatformBase carries the fields every vendor family shares.
type PlatformBase struct {
	Name     string
	URL      string
	Model    string
	Keys     []string
	Sampling Sampling
}

// Base returns the shared fields.
func (b PlatformBase) Base() PlatformBase { return b }

// Platform is implemented by exactly the four vendor structs below.
type Platform interface {
	Base() PlatformBase
	isPlatform()
}

// OpenAIPlatform is any OpenAI-compatible chat-completions endpoint.
type OpenAIPlatform struct {
	PlatformBase
}

// GooglePlatform is the Gemini API.
type GooglePlatform struct {
	PlatformBase
	ThinkingBudget int
}

// AnthropicPlatform is the Anthropic messages API.
type AnthropicPlatform struct {
	PlatformBase
	ThinkingBudget int
}

// SakuraPlatform is an OpenAI-wire endpoint serving a line-oriented translation model.
type SakuraPlatform struct {
	PlatformBase
}

func (*OpenAIPlatform) isPlatform()    {}
func (*GooglePlatform) isPlatform()    {}
func (*AnthropicPlatform) isPlatform() {}
func (*SakuraPlatform) isPlatform()    {}

// VendorOf returns the vendor family of p.
func VendorOf(p Platform) Vendor {
	switch p.(type) {
	case *OpenAIPlatform:
		return VendorOpenAI
	case *GooglePlatform:
		return VendorGoogle
	case *AnthropicPlatform:
		return VendorAnthropic
	case *SakuraPlatform:
		return VendorSakura
	default:
		return ""
	}
}

// ExtractsTerms reports whether p can answer glossary extraction prompts.
// Sakura models only translate line by line.
func ExtractsTerms(p Platform) bool {
	_, sakura := p.(*SakuraPlatform)
	return !sakura
}

// ValidatePlatform checks vendor-independent requirements.
func ValidatePlatform(p Platform) error {
	if p == nil {
		return common.ErrNoPlatform
	}
	b := p.Base()
	if b.Model == "" {
		return fmt.Errorf("%w: platform %q has no model", common.ErrInvalidConfig, b.Name)
	}
	switch VendorOf(p) {
	case VendorOpenAI, VendorSakura:
		if b.URL == "" {
			return fmt.Errorf("%w: platform %q has no url", common.ErrInvalidConfig, b.Name)
		}
	case VendorGoogle, VendorAnthropic:
	default:
		return fmt.Errorf("%w: unsupported platform type %T", common.ErrInvalidConfig, p)
	}
	if s := b.Sampling.MaxTokens; s != nil && *s <= 0 {
		return fmt.Errorf("%w: platform %q max_tokens must be > 0", common.ErrInvalidConfig, b.Name)
	}
	return nil
}
