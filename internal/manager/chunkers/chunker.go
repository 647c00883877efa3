// Package chunkers splits transcripts into overlapping windows for embedding.
package chunkers

import (
	"errors"
	"fmt"
	"strings"

	"github.com/code-sleuth/ike-tube/internal/manager/interfaces"
)

var (
	ErrInvalidWindow   = errors.New("window must be positive")
	ErrInvalidOverlap  = errors.New("overlap must be between 0 and window")
	ErrUnknownStrategy = errors.New("unknown chunking strategy")
)

const (
	StrategyWord  = "word"
	StrategyToken = "token"

	DefaultWindow  = 500
	DefaultOverlap = 50
)

// New returns the chunker registered under strategy.
func New(strategy string) (interfaces.Chunker, error) {
	switch strings.ToLower(strategy) {
	case "", StrategyWord:
		return NewWordChunker(), nil
	case StrategyToken:
		return NewTokenChunker()
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownStrategy, strategy)
	}
}

// ValidateWindow reports whether window and overlap describe a usable sliding window.
func ValidateWindow(window, overlap int) error {
	if window <= 0 {
		return ErrInvalidWindow
	}
	if overlap < 0 || overlap >= window {
		return ErrInvalidOverlap
	}
	return nil
}

// windows returns the [start, end) bounds of each window over n units. The
// window advances by window-overlap from 0 until its start reaches n.
func windows(n, window, overlap int) [][2]int {
	step := window - overlap
	bounds := make([][2]int, 0, (n+step-1)/step)
	for start := 0; start < n; start += step {
		bounds = append(bounds, [2]int{start, min(start+window, n)})
	}
	return bounds
}
