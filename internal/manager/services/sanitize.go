package services

import (
	"regexp"
	"strings"
)

const removedMarker = "[removed]"

var injectionPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)ignore (all )?(previous|prior|above) (instructions|prompts)`),
	regexp.MustCompile(`(?i)disregard (all )?(previous|prior|above)`),
	regexp.MustCompile(`(?i)forget (everything|all|your instructions)`),
	regexp.MustCompile(`(?i)you are now`),
	regexp.MustCompile(`(?i)new instructions:`),
	regexp.MustCompile(`(?i)system:`),
}

// SanitizeQuestion replaces common prompt-injection phrases with a marker and
// trims the result.
func SanitizeQuestion(question string) string {
	for _, pattern := range injectionPatterns {
		question = pattern.ReplaceAllString(question, removedMarker)
	}
	return strings.TrimSpace(question)
}
