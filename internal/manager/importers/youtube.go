package importers

import (
	"context"
	"fmt"
	"strings"

	"github.com/code-sleuth/ike-tube/internal/manager/models"
	"github.com/code-sleuth/ike-tube/pkg/util"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
	"google.golang.org/api/option"
	"google.golang.org/api/youtube/v3"
)

const (
	// playlistItems.list pages hold at most 50 items.
	maxPageSize = 50

	defaultQPS   = 5.0
	defaultBurst = 5
)

// YouTubeDirectory implements interfaces.Directory on the YouTube Data API v3.
// Calls are paced by a token bucket to stay within quota.
type YouTubeDirectory struct {
	service *youtube.Service
	limiter *rate.Limiter
	logger  zerolog.Logger
}

// NewYouTubeDirectory creates a directory client authenticated with apiKey and
// paced at qps requests per second. Extra options are appended after the key,
// so tests can point the client at a fake endpoint.
func NewYouTubeDirectory(
	ctx context.Context,
	apiKey string,
	qps float64,
	opts ...option.ClientOption,
) (*YouTubeDirectory, error) {
	logger := util.NewLoggerFromEnv()
	if strings.TrimSpace(apiKey) == "" && len(opts) == 0 {
		logger.Error().Msg("YOUTUBE_API_KEY env variable not set")
		return nil, ErrYouTubeAPIKeyNotSet
	}
	if qps <= 0 {
		qps = defaultQPS
	}

	clientOpts := append([]option.ClientOption{option.WithAPIKey(apiKey)}, opts...)
	service, err := youtube.NewService(ctx, clientOpts...)
	if err != nil {
		logger.Err(err).Msg("failed to create YouTube service")
		return nil, fmt.Errorf("failed to create YouTube service: %w", err)
	}

	return &YouTubeDirectory{
		service: service,
		limiter: rate.NewLimiter(rate.Limit(qps), defaultBurst),
		logger:  logger,
	}, nil
}

// ResolveHandle returns the channel ID registered for handle (without the @).
func (y *YouTubeDirectory) ResolveHandle(ctx context.Context, handle string) (string, error) {
	if err := y.limiter.Wait(ctx); err != nil {
		return "", err
	}

	response, err := y.service.Channels.List([]string{"id"}).
		ForHandle(strings.TrimPrefix(handle, "@")).
		Context(ctx).
		Do()
	if err != nil {
		y.logger.Err(err).Str("handle", handle).Msg("channels.list failed")
		return "", wrapGoogleError(err)
	}

	if len(response.Items) == 0 || response.Items[0].Id == "" {
		return "", fmt.Errorf("%w: @%s", ErrChannelNotFound, handle)
	}
	return response.Items[0].Id, nil
}

// SearchChannel returns the ID of the best channel match for query.
func (y *YouTubeDirectory) SearchChannel(ctx context.Context, query string) (string, error) {
	if err := y.limiter.Wait(ctx); err != nil {
		return "", err
	}

	response, err := y.service.Search.List([]string{"snippet"}).
		Q(query).
		Type("channel").
		MaxResults(1).
		Context(ctx).
		Do()
	if err != nil {
		y.logger.Err(err).Str("query", query).Msg("search.list failed")
		return "", wrapGoogleError(err)
	}

	for _, item := range response.Items {
		if item.Id != nil && item.Id.ChannelId != "" {
			return item.Id.ChannelId, nil
		}
		if item.Snippet != nil && item.Snippet.ChannelId != "" {
			return item.Snippet.ChannelId, nil
		}
	}
	return "", fmt.Errorf("%w: %s", ErrChannelNotFound, query)
}

// RecentUploads lists up to maxResults of the channel's newest uploads, newest first.
func (y *YouTubeDirectory) RecentUploads(ctx context.Context, channelID string, maxResults int) ([]models.Video, error) {
	if maxResults <= 0 {
		return nil, ErrInvalidMaxVideos
	}

	playlistID := UploadsPlaylistID(channelID)
	videos := make([]models.Video, 0, maxResults)
	pageToken := ""

	for len(videos) < maxResults {
		if err := y.limiter.Wait(ctx); err != nil {
			return nil, err
		}

		call := y.service.PlaylistItems.List([]string{"snippet", "contentDetails"}).
			PlaylistId(playlistID).
			MaxResults(int64(min(maxPageSize, maxResults-len(videos)))).
			Context(ctx)
		if pageToken != "" {
			call = call.PageToken(pageToken)
		}

		response, err := call.Do()
		if err != nil {
			y.logger.Err(err).Str("playlist_id", playlistID).Msg("playlistItems.list failed")
			return nil, wrapGoogleError(err)
		}

		for _, item := range response.Items {
			video := playlistVideo(item)
			if video.ID == "" {
				continue
			}
			videos = append(videos, video)
			if len(videos) == maxResults {
				break
			}
		}

		if response.NextPageToken == "" {
			break
		}
		pageToken = response.NextPageToken
	}

	y.logger.Debug().Str("channel_id", channelID).Int("videos", len(videos)).Msg("listed uploads")
	return videos, nil
}

func playlistVideo(item *youtube.PlaylistItem) models.Video {
	var video models.Video
	if item.ContentDetails != nil {
		video.ID = item.ContentDetails.VideoId
	}
	if item.Snippet != nil {
		video.Title = item.Snippet.Title
		if video.ID == "" && item.Snippet.ResourceId != nil {
			video.ID = item.Snippet.ResourceId.VideoId
		}
	}
	return video
}

// UploadsPlaylistID returns the auto-generated uploads playlist of a channel:
// the channel ID with its UC prefix replaced by UU.
func UploadsPlaylistID(channelID string) string {
	if strings.HasPrefix(channelID, "UC") {
		return "UU" + channelID[2:]
	}
	return channelID
}
