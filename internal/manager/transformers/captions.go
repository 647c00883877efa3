// Package transformers turns raw caption cues into clean transcript text.
package transformers

import (
	"regexp"
	"strings"

	"github.com/code-sleuth/ike-tube/internal/manager/models"
	"github.com/code-sleuth/ike-tube/pkg/util"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/PuerkitoBio/goquery"
	"github.com/rs/zerolog"
)

var (
	// non-speech annotations such as [Music], (applause) and ♪ lyrics markers
	annotationPattern = regexp.MustCompile(`(?i)\[[^\]]*\]|\((?:[^)]*\b(?:music|applause|laughter|laughs|inaudible|silence)\b[^)]*)\)|♪+`)
	whitespacePattern = regexp.MustCompile(`\s+`)

	// inline styling caption tracks carry around spoken words
	inlineTags = []string{"b", "i", "u", "em", "strong", "font", "span", "c", "s"}
)

// CaptionTransformer normalises caption cues into a single transcript.
type CaptionTransformer struct {
	markdownConverter *md.Converter
	logger            zerolog.Logger
}

// NewCaptionTransformer creates a transformer that flattens styled caption
// markup to plain text.
func NewCaptionTransformer() *CaptionTransformer {
	converter := md.NewConverter("", true, &md.Options{EscapeMode: "disabled"})
	converter.AddRules(
		md.Rule{
			Filter: []string{"#text"},
			Replacement: func(_ string, selec *goquery.Selection, _ *md.Options) *string {
				return md.String(selec.Text())
			},
		},
		md.Rule{
			Filter: inlineTags,
			Replacement: func(content string, _ *goquery.Selection, _ *md.Options) *string {
				return md.String(content)
			},
		},
		md.Rule{
			Filter: []string{"br"},
			Replacement: func(_ string, _ *goquery.Selection, _ *md.Options) *string {
				return md.String(" ")
			},
		},
	)

	return &CaptionTransformer{
		markdownConverter: converter,
		logger:            util.NewLogger(util.LevelFromEnv("TRANSFORMER_LOG_LEVEL", zerolog.ErrorLevel)),
	}
}

// Transform joins the spoken text of cues with single spaces. Markup and
// non-speech annotations are removed, and a cue repeating the previous one
// (as rolling auto-captions do) is dropped.
func (t *CaptionTransformer) Transform(cues []models.Cue) string {
	lines := make([]string, 0, len(cues))
	previous := ""
	for _, cue := range cues {
		line := t.CleanLine(cue.Text)
		if line == "" || line == previous {
			continue
		}
		lines = append(lines, line)
		previous = line
	}
	return strings.Join(lines, " ")
}

// CleanLine returns the spoken text of one caption line.
func (t *CaptionTransformer) CleanLine(text string) string {
	if strings.ContainsRune(text, '<') {
		converted, err := t.markdownConverter.ConvertString(text)
		if err != nil {
			t.logger.Debug().Err(err).Msg("failed to strip caption markup")
		} else {
			text = converted
		}
	}

	text = annotationPattern.ReplaceAllString(text, " ")
	text = whitespacePattern.ReplaceAllString(text, " ")
	return strings.TrimSpace(text)
}
