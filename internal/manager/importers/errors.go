package importers

import (
	"errors"

	"github.com/code-sleuth/ike-tube/internal/manager/retry"

	"google.golang.org/api/googleapi"
)

var (
	ErrChannelNotFound     = errors.New("channel not found")
	ErrNoCaptions          = errors.New("video has no caption tracks")
	ErrPlayerResponse      = errors.New("player response not found on watch page")
	ErrEmptyReference      = errors.New("channel reference cannot be empty")
	ErrInvalidMaxVideos    = errors.New("max videos must be positive")
	ErrYouTubeAPIKeyNotSet = errors.New("YouTube API key not set")
)

// wrapGoogleError attaches the HTTP status of YouTube Data API failures so the
// retry policy can classify them.
func wrapGoogleError(err error) error {
	var gerr *googleapi.Error
	if errors.As(err, &gerr) && gerr.Code != 0 {
		return retry.NewStatusError(gerr.Code, err)
	}
	return err
}
