package chunkers

import (
	"strings"

	"github.com/code-sleuth/ike-tube/pkg/util"

	"github.com/rs/zerolog"
	"github.com/tiktoken-go/tokenizer"
)

// TokenChunker implements token-based chunking using tiktoken.
type TokenChunker struct {
	encoding tokenizer.Codec
	name     string
	logger   zerolog.Logger
}

// NewTokenChunker creates a new token-based chunker.
func NewTokenChunker() (*TokenChunker, error) {
	logger := util.NewLogger(util.LevelFromEnv("CHUNKER_LOG_LEVEL", zerolog.ErrorLevel))

	tokenizerName := util.GetStringFromEnv("CHUNKER_TOKENIZER", "cl100k_base")
	encoding, err := GetTokenizerEncoding(tokenizerName)
	if err != nil {
		logger.Error().Err(err).Str("tokenizer", tokenizerName).Msg("failed to get tokenizer")
		return nil, err
	}

	return &TokenChunker{
		encoding: encoding,
		name:     tokenizerName,
		logger:   logger,
	}, nil
}

// GetChunkingStrategy returns the strategy name used by this chunker.
func (t *TokenChunker) GetChunkingStrategy() string {
	return StrategyToken
}

// Chunk splits text into windows of at most window tokens overlapping by
// overlap tokens. Window edges are decoded back to text, so a multi-byte
// character split across two windows may render differently in each.
func (t *TokenChunker) Chunk(text string, window, overlap int) ([]string, error) {
	if err := ValidateWindow(window, overlap); err != nil {
		t.logger.Warn().Int("window", window).Int("overlap", overlap).Msg("invalid chunk window")
		return nil, err
	}

	if strings.TrimSpace(text) == "" {
		return nil, nil
	}

	tokens, _, err := t.encoding.Encode(text)
	if err != nil {
		t.logger.Err(err).Msg("failed to tokenize content")
		return nil, err
	}

	bounds := windows(len(tokens), window, overlap)
	chunks := make([]string, 0, len(bounds))
	for _, b := range bounds {
		chunkText, err := t.encoding.Decode(tokens[b[0]:b[1]])
		if err != nil {
			t.logger.Err(err).Msg("failed to decode chunk tokens")
			return nil, err
		}
		chunks = append(chunks, chunkText)
	}

	t.logger.Debug().
		Str("tokenizer", t.name).
		Int("tokens", len(tokens)).
		Int("chunks", len(chunks)).
		Msg("chunked text")
	return chunks, nil
}

// CountTokens returns the number of tokens in the given text.
func (t *TokenChunker) CountTokens(text string) (int, error) {
	tokens, _, err := t.encoding.Encode(text)
	if err != nil {
		t.logger.Err(err).Msg("failed to tokenize text")
		return 0, err
	}
	return len(tokens), nil
}

var encodings = map[string]tokenizer.Encoding{
	"cl100k_base": tokenizer.Cl100kBase,
	"p50k_base":   tokenizer.P50kBase,
	"r50k_base":   tokenizer.R50kBase,
}

// GetTokenizerEncoding returns the named tiktoken codec. Unknown names get cl100k_base.
func GetTokenizerEncoding(name string) (tokenizer.Codec, error) {
	encoding, ok := encodings[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		encoding = tokenizer.Cl100kBase
	}
	return tokenizer.Get(encoding)
}
