package llm

import (
	"context"
	"encoding/json"
	"strconv"
	"strings"

	"github.com/Veraticus/the-glossary-must-flow/internal/config"
)

// sendSakura talks to an OpenAI-wire server whose model answers with one bare
// line per input line. The lines are re-keyed into indexed JSON.
func (g *Gateway) sendSakura(ctx context.Context, base config.PlatformBase, key string, messages []Message, p SamplingParams) (Response, error) {
	resp, err := g.chatCompletion(ctx, base, key, config.VendorSakura, messages, p)
	if err != nil {
		return Response{}, err
	}
	resp.Text = indexLines(resp.Text)
	return resp, nil
}

// indexLines renders lines as {"0":"...","1":"..."} in input order.
func indexLines(text string) string {
	lines := strings.Split(strings.TrimSpace(text), "\n")

	var b strings.Builder
	b.WriteString("{")
	for i, line := range lines {
		if i > 0 {
			b.WriteString(",")
		}
		value, _ := json.Marshal(strings.TrimSpace(line))
		b.WriteString(strconv.Quote(strconv.Itoa(i)))
		b.WriteString(":")
		b.Write(value)
	}
	b.WriteString("}")
	return b.String()
}
