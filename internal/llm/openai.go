package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Veraticus/the-glossary-must-flow/internal/config"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared"
	"github.com/tidwall/gjson"
)

// reasoningFamilies take max_completion_tokens and reject sampling knobs.
var reasoningFamilies = []string{"o1", "o3", "o4", "gpt-5"}

func isReasoningModel(model string) bool {
	m := strings.ToLower(model)
	if i := strings.LastIndex(m, "/"); i >= 0 {
		m = m[i+1:]
	}
	for _, family := range reasoningFamilies {
		if m == family || strings.HasPrefix(m, family+"-") || strings.HasPrefix(m, family+".") {
			return true
		}
	}
	return false
}

func (g *Gateway) openAIClient(base config.PlatformBase, key string, vendor config.Vendor) (*openai.Client, error) {
	k := clientKey{url: base.URL, key: key, vendor: vendor, timeout: g.timeout}
	client, err := g.clients.getOrCreate(k, func() (any, error) {
		c := openai.NewClient(
			option.WithAPIKey(key),
			option.WithBaseURL(base.URL),
			option.WithHTTPClient(g.httpClient),
			option.WithMaxRetries(0),
		)
		return &c, nil
	})
	if err != nil {
		return nil, err
	}
	return client.(*openai.Client), nil
}

func openAIMessages(messages []Message) []openai.ChatCompletionMessageParamUnion {
	out := make([]openai.ChatCompletionMessageParamUnion, 0, len(messages))
	for _, m := range messages {
		switch m.Role {
		case RoleSystem:
			out = append(out, openai.SystemMessage(m.Content))
		case RoleAssistant:
			out = append(out, openai.AssistantMessage(m.Content))
		default:
			out = append(out, openai.UserMessage(m.Content))
		}
	}
	return out
}

func openAIParams(model string, messages []Message, p SamplingParams) openai.ChatCompletionNewParams {
	params := openai.ChatCompletionNewParams{
		Model:    shared.ChatModel(model),
		Messages: openAIMessages(messages),
	}
	if isReasoningModel(model) {
		if p.MaxTokens > 0 {
			params.MaxCompletionTokens = openai.Int(int64(p.MaxTokens))
		}
		return params
	}

	params.Temperature = openai.Float(p.Temperature)
	params.TopP = openai.Float(p.TopP)
	if p.FrequencyPenalty != 0 {
		params.FrequencyPenalty = openai.Float(p.FrequencyPenalty)
	}
	if p.MaxTokens > 0 {
		params.MaxTokens = openai.Int(int64(p.MaxTokens))
	}
	return params
}

// chatCompletion runs one request and returns the raw first choice text.
func (g *Gateway) chatCompletion(ctx context.Context, base config.PlatformBase, key string, vendor config.Vendor, messages []Message, p SamplingParams) (Response, error) {
	client, err := g.openAIClient(base, key, vendor)
	if err != nil {
		return Response{}, err
	}

	completion, err := client.Chat.Completions.New(ctx, openAIParams(base.Model, messages, p))
	if err != nil {
		return Response{}, fmt.Errorf("chat completion: %w", err)
	}
	if len(completion.Choices) == 0 {
		return Response{}, errors.New("no completion choices returned")
	}

	choice := completion.Choices[0]
	reasoning, text := splitThink(choice.Message.Content)
	if rc := gjson.Get(choice.Message.RawJSON(), "reasoning_content"); rc.Exists() && rc.String() != "" {
		reasoning = strings.TrimSpace(rc.String())
	}

	return Response{
		Reasoning:    reasoning,
		Text:         text,
		InputTokens:  int(completion.Usage.PromptTokens),
		OutputTokens: int(completion.Usage.CompletionTokens),
		Degraded:     choice.FinishReason == "length",
	}, nil
}

func (g *Gateway) sendOpenAI(ctx context.Context, base config.PlatformBase, key string, messages []Message, p SamplingParams) (Response, error) {
	return g.chatCompletion(ctx, base, key, config.VendorOpenAI, messages, p)
}
