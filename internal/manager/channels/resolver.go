// Package channels turns user-supplied channel references into namespaces.
package channels

import (
	"regexp"
	"strings"

	"github.com/code-sleuth/ike-tube/internal/manager/models"
)

var (
	handlePattern     = regexp.MustCompile(`@([^/?#\s]+)`)
	channelIDPattern  = regexp.MustCompile(`/channel/([^/?#\s]+)`)
	channelURLPattern = regexp.MustCompile(`(?i)^(https?://)?(www\.)?youtube\.com/@[\w-]+`)
	urlPrefixPattern  = regexp.MustCompile(`(?i)^(https?://)?(www\.)?`)
)

// ExtractHandle returns the token following the first "@" in reference.
func ExtractHandle(reference string) (string, bool) {
	match := handlePattern.FindStringSubmatch(reference)
	if match == nil {
		return "", false
	}
	return match[1], true
}

// ExtractChannelID returns the id in a "/channel/<id>" path segment.
func ExtractChannelID(reference string) (string, bool) {
	match := channelIDPattern.FindStringSubmatch(reference)
	if match == nil {
		return "", false
	}
	return match[1], true
}

// Resolve derives the namespace of a channel reference. It never fails: when no
// pattern matches, the reference is used with its URL prefix and any leading
// "@" removed, so the same page with or without a protocol collapses.
//
// A channel ID segment takes precedence over a handle. Vanity URLs
// (youtube.com/c/<name>) are not reconciled with the channel's handle.
func Resolve(reference string) models.Namespace {
	reference = strings.TrimSpace(reference)

	if id, ok := ExtractChannelID(reference); ok {
		return models.Namespace(id)
	}
	if handle, ok := ExtractHandle(reference); ok {
		return models.Namespace(handle)
	}
	reference = urlPrefixPattern.ReplaceAllString(reference, "")
	reference = strings.TrimRight(reference, "/")
	return models.Namespace(strings.TrimPrefix(reference, "@"))
}

// IsValidChannelURL reports whether reference looks like youtube.com/@handle.
func IsValidChannelURL(reference string) bool {
	return channelURLPattern.MatchString(strings.TrimSpace(reference))
}

// CleanChannelURL drops anything after the handle of a channel URL. Inputs that
// are not channel URLs are returned unchanged.
func CleanChannelURL(reference string) string {
	trimmed := strings.TrimSpace(reference)
	if match := channelURLPattern.FindString(trimmed); match != "" {
		return match
	}
	return reference
}
