// Package text prepares source lines for the model: token counting, cleanup,
// placeholder protection, and the up-front exclusion filters.
package text

import (
	"log/slog"
	"sync"

	"github.com/pkoukk/tiktoken-go"
	tiktoken_loader "github.com/pkoukk/tiktoken-go-loader"
)

// Tokenizer counts model tokens in a string.
type Tokenizer interface {
	Count(s string) int
}

// TokenizerFunc adapts a function to Tokenizer.
type TokenizerFunc func(string) int

// Count implements Tokenizer.
func (f TokenizerFunc) Count(s string) int { return f(s) }

// defaultEncoding is a general-purpose BPE that ships with the offline loader.
const defaultEncoding = "cl100k_base"

var loaderOnce sync.Once

// BPETokenizer counts tokens with a tiktoken encoding.
type BPETokenizer struct {
	enc *tiktoken.Tiktoken
}

// NewBPETokenizer loads the default encoding from the embedded offline BPE files.
// When loading fails it falls back to the byte estimator so chunking still works.
func NewBPETokenizer(logger *slog.Logger) Tokenizer {
	loaderOnce.Do(func() {
		tiktoken.SetBpeLoader(tiktoken_loader.NewOfflineLoader())
	})
	enc, err := tiktoken.GetEncoding(defaultEncoding)
	if err != nil {
		if logger != nil {
			logger.Warn("Tokenizer unavailable, using byte estimate", "encoding", defaultEncoding, "error", err)
		}
		return EstimateTokenizer(0)
	}
	return &BPETokenizer{enc: enc}
}

// Count implements Tokenizer.
func (t *BPETokenizer) Count(s string) int {
	if s == "" {
		return 0
	}
	return len(t.enc.Encode(s, nil, nil))
}

// EstimateTokenizer approximates tokens as ceil(bytes/bytesPerToken); bytesPerToken<=0 means 4.
func EstimateTokenizer(bytesPerToken int) Tokenizer {
	if bytesPerToken <= 0 {
		bytesPerToken = 4
	}
	return TokenizerFunc(func(s string) int {
		n := len(s)
		if n == 0 {
			return 0
		}
		return (n + bytesPerToken - 1) / bytesPerToken
	})
}
