package chunkers

import (
	"strings"

	"github.com/code-sleuth/ike-tube/pkg/util"

	"github.com/rs/zerolog"
)

// WordChunker windows text by whitespace-separated words.
type WordChunker struct {
	logger zerolog.Logger
}

// NewWordChunker creates a word-based chunker.
func NewWordChunker() *WordChunker {
	return &WordChunker{logger: util.NewLogger(util.LevelFromEnv("CHUNKER_LOG_LEVEL", zerolog.ErrorLevel))}
}

// GetChunkingStrategy returns the strategy name used by this chunker.
func (w *WordChunker) GetChunkingStrategy() string {
	return StrategyWord
}

// Chunk splits text into windows of at most window words, each sharing its last
// overlap words with the start of the next. Empty text yields no chunks.
func (w *WordChunker) Chunk(text string, window, overlap int) ([]string, error) {
	if err := ValidateWindow(window, overlap); err != nil {
		w.logger.Warn().Int("window", window).Int("overlap", overlap).Msg("invalid chunk window")
		return nil, err
	}

	words := strings.Fields(text)
	if len(words) == 0 {
		return nil, nil
	}

	bounds := windows(len(words), window, overlap)
	chunks := make([]string, 0, len(bounds))
	for _, b := range bounds {
		chunks = append(chunks, strings.Join(words[b[0]:b[1]], " "))
	}

	w.logger.Debug().Int("words", len(words)).Int("chunks", len(chunks)).Msg("chunked text")
	return chunks, nil
}
