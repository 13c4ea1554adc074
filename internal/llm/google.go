package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Veraticus/the-glossary-must-flow/internal/config"
	"google.golang.org/genai"
)

var permissiveSafety = []*genai.SafetySetting{
	{Category: genai.HarmCategoryHarassment, Threshold: genai.HarmBlockThresholdBlockNone},
	{Category: genai.HarmCategoryHateSpeech, Threshold: genai.HarmBlockThresholdBlockNone},
	{Category: genai.HarmCategorySexuallyExplicit, Threshold: genai.HarmBlockThresholdBlockNone},
	{Category: genai.HarmCategoryDangerousContent, Threshold: genai.HarmBlockThresholdBlockNone},
}

func (g *Gateway) googleClient(ctx context.Context, base config.PlatformBase, key string) (*genai.Client, error) {
	k := clientKey{url: base.URL, key: key, vendor: config.VendorGoogle, timeout: g.timeout}
	client, err := g.clients.getOrCreate(k, func() (any, error) {
		cfg := &genai.ClientConfig{
			APIKey:     key,
			Backend:    genai.BackendGeminiAPI,
			HTTPClient: g.httpClient,
		}
		if base.URL != "" {
			cfg.HTTPOptions = genai.HTTPOptions{BaseURL: base.URL}
		}
		return genai.NewClient(ctx, cfg)
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}
	return client.(*genai.Client), nil
}

// googleContents folds system turns into the next user turn; Gemini gets a
// single content list.
func googleContents(messages []Message) []*genai.Content {
	var (
		contents []*genai.Content
		pending  []string
	)
	for _, m := range messages {
		switch m.Role {
		case RoleSystem:
			pending = append(pending, m.Content)
		case RoleAssistant:
			contents = append(contents, genai.NewContentFromText(m.Content, genai.RoleModel))
		default:
			text := strings.Join(append(pending, m.Content), "\n\n")
			pending = nil
			contents = append(contents, genai.NewContentFromText(text, genai.RoleUser))
		}
	}
	if len(pending) > 0 {
		contents = append(contents, genai.NewContentFromText(strings.Join(pending, "\n\n"), genai.RoleUser))
	}
	return contents
}

func googleConfig(p *config.GooglePlatform, sp SamplingParams) *genai.GenerateContentConfig {
	cfg := &genai.GenerateContentConfig{
		Temperature:    genai.Ptr(float32(sp.Temperature)),
		TopP:           genai.Ptr(float32(sp.TopP)),
		SafetySettings: permissiveSafety,
	}
	if sp.MaxTokens > 0 {
		cfg.MaxOutputTokens = int32(sp.MaxTokens)
	}
	if sp.FrequencyPenalty != 0 {
		cfg.FrequencyPenalty = genai.Ptr(float32(sp.FrequencyPenalty))
	}
	if p.ThinkingBudget > 0 {
		cfg.ThinkingConfig = &genai.ThinkingConfig{
			IncludeThoughts: true,
			ThinkingBudget:  genai.Ptr(int32(p.ThinkingBudget)),
		}
	} else if strings.Contains(p.Model, "flash") {
		// Flash models think by default; a zero budget turns it off.
		cfg.ThinkingConfig = &genai.ThinkingConfig{ThinkingBudget: genai.Ptr[int32](0)}
	}
	return cfg
}

func (g *Gateway) sendGoogle(ctx context.Context, p *config.GooglePlatform, key string, messages []Message, sp SamplingParams) (Response, error) {
	client, err := g.googleClient(ctx, p.PlatformBase, key)
	if err != nil {
		return Response{}, err
	}

	result, err := client.Models.GenerateContent(ctx, p.Model, googleContents(messages), googleConfig(p, sp))
	if err != nil {
		return Response{}, fmt.Errorf("generate content: %w", err)
	}
	if len(result.Candidates) == 0 || result.Candidates[0].Content == nil {
		return Response{}, errors.New("no candidates returned")
	}

	candidate := result.Candidates[0]
	var text, reasoning strings.Builder
	for _, part := range candidate.Content.Parts {
		if part == nil {
			continue
		}
		if part.Thought {
			reasoning.WriteString(part.Text)
			continue
		}
		text.WriteString(part.Text)
	}

	resp := Response{
		Reasoning: strings.TrimSpace(reasoning.String()),
		Text:      strings.TrimSpace(text.String()),
		Degraded:  candidate.FinishReason == genai.FinishReasonMaxTokens,
	}
	if usage := result.UsageMetadata; usage != nil {
		resp.InputTokens = int(usage.PromptTokenCount)
		resp.OutputTokens = int(usage.CandidatesTokenCount + usage.ThoughtsTokenCount)
	}
	return resp, nil
}
