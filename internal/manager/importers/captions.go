package importers

import (
	"context"
	"encoding/json"
	"fmt"
	"html"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/code-sleuth/ike-tube/internal/manager/models"
	"github.com/code-sleuth/ike-tube/internal/manager/retry"
	"github.com/code-sleuth/ike-tube/pkg/util"

	"github.com/PuerkitoBio/goquery"
	"github.com/rs/zerolog"
)

const (
	// HTTP client timeout in seconds.
	defaultHTTPTimeout = 30

	defaultWatchURL     = "https://www.youtube.com"
	playerResponseToken = "ytInitialPlayerResponse"
	userAgent           = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0 Safari/537.36"
)

type captionTrack struct {
	BaseURL      string `json:"baseUrl"`
	LanguageCode string `json:"languageCode"`
	Kind         string `json:"kind"`
}

type playerResponse struct {
	PlayabilityStatus struct {
		Status string `json:"status"`
		Reason string `json:"reason"`
	} `json:"playabilityStatus"`
	Captions struct {
		Renderer struct {
			CaptionTracks []captionTrack `json:"captionTracks"`
		} `json:"playerCaptionsTracklistRenderer"`
	} `json:"captions"`
}

// YouTubeCaptions implements interfaces.CaptionSource by reading the caption
// tracks advertised on a video's watch page.
type YouTubeCaptions struct {
	client   *http.Client
	baseURL  string
	language string
	logger   zerolog.Logger
}

// NewYouTubeCaptions creates a caption source. proxyURL, when set, routes every
// request of this client through that proxy.
func NewYouTubeCaptions(proxyURL, language string) (*YouTubeCaptions, error) {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	if proxyURL != "" {
		proxy, err := url.Parse(proxyURL)
		if err != nil {
			return nil, fmt.Errorf("invalid captions proxy url: %w", err)
		}
		transport.Proxy = http.ProxyURL(proxy)
	}

	client := &http.Client{
		Timeout:   defaultHTTPTimeout * time.Second,
		Transport: transport,
	}
	return NewYouTubeCaptionsWithClient(client, defaultWatchURL, language), nil
}

// NewYouTubeCaptionsWithClient creates a caption source with custom HTTP client and site URL.
func NewYouTubeCaptionsWithClient(client *http.Client, baseURL, language string) *YouTubeCaptions {
	if language == "" {
		language = "en"
	}
	return &YouTubeCaptions{
		client:   client,
		baseURL:  strings.TrimRight(baseURL, "/"),
		language: language,
		logger:   util.NewLoggerFromEnv(),
	}
}

// Captions returns the cues of the preferred caption track of videoID.
func (c *YouTubeCaptions) Captions(ctx context.Context, videoID string) ([]models.Cue, error) {
	tracks, err := c.captionTracks(ctx, videoID)
	if err != nil {
		return nil, err
	}

	track := c.pickTrack(tracks)
	trackURL, err := c.resolve(track.BaseURL)
	if err != nil {
		return nil, err
	}

	body, err := c.get(ctx, trackURL)
	if err != nil {
		return nil, err
	}
	defer body.Close()

	cues, err := parseTimedText(body)
	if err != nil {
		c.logger.Err(err).Str("video_id", videoID).Msg("failed to parse timed text")
		return nil, err
	}

	c.logger.Debug().
		Str("video_id", videoID).
		Str("language", track.LanguageCode).
		Int("cues", len(cues)).
		Msg("fetched captions")
	return cues, nil
}

func (c *YouTubeCaptions) captionTracks(ctx context.Context, videoID string) ([]captionTrack, error) {
	body, err := c.get(ctx, c.baseURL+"/watch?v="+url.QueryEscape(videoID))
	if err != nil {
		return nil, err
	}
	defer body.Close()

	doc, err := goquery.NewDocumentFromReader(body)
	if err != nil {
		return nil, err
	}

	var response *playerResponse
	doc.Find("script").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		script := s.Text()
		idx := strings.Index(script, playerResponseToken)
		if idx < 0 {
			return true
		}
		start := strings.Index(script[idx:], "{")
		if start < 0 {
			return true
		}

		var decoded playerResponse
		// Decode stops after the first complete JSON value, ignoring the trailing script.
		if err := json.NewDecoder(strings.NewReader(script[idx+start:])).Decode(&decoded); err != nil {
			c.logger.Debug().Err(err).Str("video_id", videoID).Msg("skipping unparsable player response")
			return true
		}
		response = &decoded
		return false
	})

	if response == nil {
		return nil, fmt.Errorf("%w: %s", ErrPlayerResponse, videoID)
	}

	tracks := response.Captions.Renderer.CaptionTracks
	if len(tracks) == 0 {
		return nil, fmt.Errorf("%w: %s (%s)", ErrNoCaptions, videoID, response.PlayabilityStatus.Status)
	}
	return tracks, nil
}

// pickTrack prefers a manual track in the configured language, then an
// auto-generated one in that language, then whatever comes first.
func (c *YouTubeCaptions) pickTrack(tracks []captionTrack) captionTrack {
	var generated *captionTrack
	for i, track := range tracks {
		if !strings.HasPrefix(track.LanguageCode, c.language) {
			continue
		}
		if track.Kind != "asr" {
			return track
		}
		if generated == nil {
			generated = &tracks[i]
		}
	}
	if generated != nil {
		return *generated
	}
	return tracks[0]
}

func (c *YouTubeCaptions) resolve(ref string) (string, error) {
	base, err := url.Parse(c.baseURL + "/")
	if err != nil {
		return "", err
	}
	target, err := url.Parse(ref)
	if err != nil {
		return "", err
	}
	return base.ResolveReference(target).String(), nil
}

func (c *YouTubeCaptions) get(ctx context.Context, target string) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept-Language", c.language)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		c.logger.Error().Int("status_code", resp.StatusCode).Str("url", target).Msg("caption request failed")
		return nil, retry.NewStatusError(resp.StatusCode, nil)
	}
	return resp.Body, nil
}

// parseTimedText reads both timed-text formats: <text start dur> in seconds and
// <p t d> in milliseconds. Cue text is escaped twice in the payload.
func parseTimedText(r io.Reader) ([]models.Cue, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, err
	}

	var cues []models.Cue
	doc.Find("text").Each(func(_ int, s *goquery.Selection) {
		cues = appendCue(cues, s, "start", "dur", time.Second)
	})
	if len(cues) == 0 {
		doc.Find("p").Each(func(_ int, s *goquery.Selection) {
			cues = appendCue(cues, s, "t", "d", time.Millisecond)
		})
	}
	return cues, nil
}

func appendCue(cues []models.Cue, s *goquery.Selection, startAttr, durAttr string, unit time.Duration) []models.Cue {
	text := strings.TrimSpace(strings.Join(strings.Fields(html.UnescapeString(s.Text())), " "))
	if text == "" {
		return cues
	}
	return append(cues, models.Cue{
		Text:     text,
		Start:    attrDuration(s, startAttr, unit),
		Duration: attrDuration(s, durAttr, unit),
	})
}

func attrDuration(s *goquery.Selection, name string, unit time.Duration) time.Duration {
	value, ok := s.Attr(name)
	if !ok {
		return 0
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0
	}
	return time.Duration(f * float64(unit))
}
