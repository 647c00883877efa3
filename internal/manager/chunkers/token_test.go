package chunkers

import (
	"errors"
	"strings"
	"testing"
)

const transcriptSample = `so today we are going to talk about why the sky is blue and honestly
it is one of those questions that sounds simple but the answer takes us through
scattering, the spectrum of sunlight, and how our eyes respond to color. let's
start with sunlight itself, which is a mix of every visible wavelength`

func TestNewTokenChunker(t *testing.T) {
	chunker, err := NewTokenChunker()
	if err != nil {
		t.Fatalf("Failed to create token chunker: %v", err)
	}

	if chunker.GetChunkingStrategy() != "token" {
		t.Errorf("Expected strategy 'token', got %s", chunker.GetChunkingStrategy())
	}
}

func TestTokenChunker_Chunk(t *testing.T) {
	chunker, err := NewTokenChunker()
	if err != nil {
		t.Fatalf("Failed to create token chunker: %v", err)
	}

	total, err := chunker.CountTokens(transcriptSample)
	if err != nil {
		t.Fatalf("Failed to count tokens: %v", err)
	}

	tests := []struct {
		name        string
		window      int
		overlap     int
		description string
	}{
		{name: "single window", window: total + 10, overlap: 5, description: "text shorter than the window stays whole"},
		{name: "small windows", window: 16, overlap: 4, description: "windows advance by twelve tokens"},
		{name: "no overlap", window: 20, overlap: 0, description: "windows tile the tokens"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			chunks, err := chunker.Chunk(transcriptSample, tt.window, tt.overlap)
			if err != nil {
				t.Fatalf("Unexpected error for test %s: %v", tt.description, err)
			}

			step := tt.window - tt.overlap
			expected := (total + step - 1) / step
			if len(chunks) != expected {
				t.Fatalf("Expected %d chunks, got %d for test: %s", expected, len(chunks), tt.description)
			}

			for i, chunk := range chunks {
				if strings.TrimSpace(chunk) == "" {
					t.Errorf("Chunk %d is empty for test: %s", i, tt.description)
				}
			}
		})
	}

	t.Run("whole text in one window", func(t *testing.T) {
		chunks, _ := chunker.Chunk(transcriptSample, total, 0)
		if len(chunks) != 1 || chunks[0] != transcriptSample {
			t.Errorf("Expected the original text back, got %q", chunks)
		}
	})
}

func TestTokenChunker_InvalidInput(t *testing.T) {
	chunker, err := NewTokenChunker()
	if err != nil {
		t.Fatalf("Failed to create token chunker: %v", err)
	}

	if _, err := chunker.Chunk("hello", 10, 10); !errors.Is(err, ErrInvalidOverlap) {
		t.Errorf("Expected ErrInvalidOverlap, got %v", err)
	}
	if _, err := chunker.Chunk("hello", -1, 0); !errors.Is(err, ErrInvalidWindow) {
		t.Errorf("Expected ErrInvalidWindow, got %v", err)
	}

	chunks, err := chunker.Chunk("   ", 10, 2)
	if err != nil || len(chunks) != 0 {
		t.Errorf("Expected no chunks for blank text, got %q, %v", chunks, err)
	}
}

func TestGetTokenizerEncoding(t *testing.T) {
	for _, name := range []string{"cl100k_base", "p50k_base", "r50k_base", "unknown"} {
		if _, err := GetTokenizerEncoding(name); err != nil {
			t.Errorf("Expected encoding for %s, got error %v", name, err)
		}
	}
}
