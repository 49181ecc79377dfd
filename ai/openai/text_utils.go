package openai

import (
	"strings"
	"sync"

	"github.com/pkoukk/tiktoken-go"
	tiktoken_loader "github.com/pkoukk/tiktoken-go-loader"
)

// tokenEncoding is used to count and cut embedding inputs. cl100k_base is the
// tokenizer of the OpenAI embedding models and a close estimate for others.
const tokenEncoding = "cl100k_base"

func init() {
	tiktoken.SetBpeLoader(tiktoken_loader.NewOfflineLoader())
}

var (
	encodingOnce sync.Once
	encoding     *tiktoken.Tiktoken
	encodingErr  error
)

func getEncoding() (*tiktoken.Tiktoken, error) {
	encodingOnce.Do(func() {
		encoding, encodingErr = tiktoken.GetEncoding(tokenEncoding)
	})
	return encoding, encodingErr
}

// tokenLimiter cuts texts to at most maxTokens tokens.
type tokenLimiter struct {
	enc       *tiktoken.Tiktoken
	maxTokens int
}

// newTokenLimiter returns nil when maxTokens is 0, meaning no cap.
func newTokenLimiter(maxTokens int) (*tokenLimiter, error) {
	if maxTokens <= 0 {
		return nil, nil
	}
	enc, err := getEncoding()
	if err != nil {
		return nil, err
	}
	return &tokenLimiter{enc: enc, maxTokens: maxTokens}, nil
}

// countTokens returns the number of tokens in text.
func (l *tokenLimiter) countTokens(text string) int {
	if text == "" {
		return 0
	}
	return len(l.enc.Encode(text, nil, nil))
}

// limit returns text unchanged if it fits, otherwise its first maxTokens tokens.
// The second result reports whether text was cut.
func (l *tokenLimiter) limit(text string) (string, bool) {
	if l == nil || text == "" {
		return text, false
	}
	tokens := l.enc.Encode(text, nil, nil)
	if len(tokens) <= l.maxTokens {
		return text, false
	}
	cut := l.enc.Decode(tokens[:l.maxTokens])
	// A cut can split a multi-byte rune; drop the partial tail.
	return strings.ToValidUTF8(cut, ""), true
}
