package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/Veraticus/the-glossary-must-flow/internal/config"
	"github.com/anthropics/anthropic-sdk-go"
	aoption "github.com/anthropics/anthropic-sdk-go/option"
)

func (g *Gateway) anthropicClient(base config.PlatformBase, key string) (*anthropic.Client, error) {
	k := clientKey{url: base.URL, key: key, vendor: config.VendorAnthropic, timeout: g.timeout}
	client, err := g.clients.getOrCreate(k, func() (any, error) {
		opts := []aoption.RequestOption{
			aoption.WithAPIKey(key),
			aoption.WithHTTPClient(g.httpClient),
			aoption.WithMaxRetries(0),
		}
		if base.URL != "" {
			opts = append(opts, aoption.WithBaseURL(base.URL))
		}
		c := anthropic.NewClient(opts...)
		return &c, nil
	})
	if err != nil {
		return nil, err
	}
	return client.(*anthropic.Client), nil
}

// anthropicParams builds a request. Frequency penalty has no Anthropic
// counterpart and is dropped; sampling knobs are dropped with thinking on.
func anthropicParams(p *config.AnthropicPlatform, messages []Message, sp SamplingParams) anthropic.MessageNewParams {
	system, turns := splitSystem(messages)

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(p.Model),
		MaxTokens: int64(sp.MaxTokens),
		Messages:  make([]anthropic.MessageParam, 0, len(turns)),
	}
	if system != "" {
		params.System = []anthropic.TextBlockParam{{Text: system}}
	}
	for _, m := range turns {
		if m.Role == RoleAssistant {
			params.Messages = append(params.Messages, anthropic.NewAssistantMessage(anthropic.NewTextBlock(m.Content)))
			continue
		}
		params.Messages = append(params.Messages, anthropic.NewUserMessage(anthropic.NewTextBlock(m.Content)))
	}

	if p.ThinkingBudget > 0 {
		params.Thinking = anthropic.ThinkingConfigParamOfEnabled(int64(p.ThinkingBudget))
		// The budget is counted inside max_tokens.
		params.MaxTokens += int64(p.ThinkingBudget)
		return params
	}
	params.Temperature = anthropic.Float(sp.Temperature)
	params.TopP = anthropic.Float(sp.TopP)
	return params
}

func (g *Gateway) sendAnthropic(ctx context.Context, p *config.AnthropicPlatform, key string, messages []Message, sp SamplingParams) (Response, error) {
	client, err := g.anthropicClient(p.PlatformBase, key)
	if err != nil {
		return Response{}, err
	}

	msg, err := client.Messages.New(ctx, anthropicParams(p, messages, sp))
	if err != nil {
		return Response{}, fmt.Errorf("anthropic messages: %w", err)
	}

	var text, reasoning strings.Builder
	for _, block := range msg.Content {
		switch block.Type {
		case "text":
			text.WriteString(block.Text)
		case "thinking":
			reasoning.WriteString(block.Thinking)
		}
	}

	return Response{
		Reasoning:    strings.TrimSpace(reasoning.String()),
		Text:         strings.TrimSpace(text.String()),
		InputTokens:  int(msg.Usage.InputTokens),
		OutputTokens: int(msg.Usage.OutputTokens),
		Degraded:     msg.StopReason == anthropic.StopReasonMaxTokens,
	}, nil
}
