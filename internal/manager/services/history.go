package services

import (
	"unicode/utf8"

	"github.com/code-sleuth/ike-tube/internal/manager/models"
)

const (
	// DefaultHistoryTokenBudget is the estimated token allowance for prior turns.
	DefaultHistoryTokenBudget = 4000

	minRetainedMessages = 2
	charsPerToken       = 4
)

// EstimateTokens approximates the token count of text as one token per four
// characters. Characters are runes, not bytes.
func EstimateTokens(text string) int {
	return (utf8.RuneCountInString(text) + charsPerToken - 1) / charsPerToken
}

// TruncateHistory drops the oldest messages until the estimated total fits
// budget or only the last two messages remain. The returned slice shares the
// tail of history.
func TruncateHistory(history []models.Message, budget int) []models.Message {
	total := 0
	for _, message := range history {
		total += EstimateTokens(message.Content)
	}

	start := 0
	for total > budget && len(history)-start > minRetainedMessages {
		total -= EstimateTokens(history[start].Content)
		start++
	}
	return history[start:]
}
