package importers

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/code-sleuth/ike-tube/internal/manager/channels"
	"github.com/code-sleuth/ike-tube/internal/manager/interfaces"
	"github.com/code-sleuth/ike-tube/internal/manager/models"
	"github.com/code-sleuth/ike-tube/internal/manager/retry"
	"github.com/code-sleuth/ike-tube/internal/manager/transformers"
	"github.com/code-sleuth/ike-tube/pkg/util"

	"github.com/rs/zerolog"
)

// DefaultMaxVideos is how many recent uploads are transcribed per channel.
const DefaultMaxVideos = 10

var rawChannelIDPattern = regexp.MustCompile(`^UC[\w-]{22}$`)

// TranscriptAcquirer turns a channel reference into the transcripts of its
// most recent uploads.
type TranscriptAcquirer struct {
	directory interfaces.Directory
	captions  interfaces.CaptionSource
	cleaner   interfaces.CueTransformer
	maxVideos int
	retry     retry.Options
	logger    zerolog.Logger
}

func NewTranscriptAcquirer(
	directory interfaces.Directory,
	captions interfaces.CaptionSource,
	maxVideos int,
	opts retry.Options,
) *TranscriptAcquirer {
	if maxVideos <= 0 {
		maxVideos = DefaultMaxVideos
	}
	return &TranscriptAcquirer{
		directory: directory,
		captions:  captions,
		cleaner:   transformers.NewCaptionTransformer(),
		maxVideos: maxVideos,
		retry:     opts,
		logger:    util.NewLoggerFromEnv(),
	}
}

// SetTransformer replaces the caption cleaner.
func (a *TranscriptAcquirer) SetTransformer(cleaner interfaces.CueTransformer) {
	if cleaner != nil {
		a.cleaner = cleaner
	}
}

// SetMaxVideos overrides how many uploads are fetched.
func (a *TranscriptAcquirer) SetMaxVideos(maxVideos int) {
	if maxVideos > 0 {
		a.maxVideos = maxVideos
	}
}

// Fetch returns one transcript per upload that has captions, newest first.
// Videos whose captions cannot be fetched are skipped.
func (a *TranscriptAcquirer) Fetch(ctx context.Context, reference string) ([]models.Transcript, error) {
	channelID, err := a.ResolveChannelID(ctx, reference)
	if err != nil {
		return nil, err
	}

	videos, err := retry.DoValue(ctx, a.retry, func(ctx context.Context) ([]models.Video, error) {
		return a.directory.RecentUploads(ctx, channelID, a.maxVideos)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list uploads of %s: %w", channelID, err)
	}

	transcripts := make([]models.Transcript, 0, len(videos))
	for _, video := range videos {
		cues, err := retry.DoValue(ctx, a.retry, func(ctx context.Context) ([]models.Cue, error) {
			return a.captions.Captions(ctx, video.ID)
		})
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			a.logger.Warn().Err(err).Str("video_id", video.ID).Msg("skipping video without usable captions")
			continue
		}

		text := a.cleaner.Transform(cues)
		if text == "" {
			a.logger.Warn().Str("video_id", video.ID).Msg("skipping video with empty captions")
			continue
		}

		transcripts = append(transcripts, models.Transcript{VideoID: video.ID, Text: text})
	}

	a.logger.Info().
		Str("channel_id", channelID).
		Int("videos", len(videos)).
		Int("transcripts", len(transcripts)).
		Msg("acquired transcripts")
	return transcripts, nil
}

// ResolveChannelID finds the provider channel ID for reference. An explicit UC
// channel ID wins; otherwise the handle is looked up, then searched for by name.
func (a *TranscriptAcquirer) ResolveChannelID(ctx context.Context, reference string) (string, error) {
	reference = strings.TrimSpace(reference)
	if reference == "" {
		return "", ErrEmptyReference
	}

	if id, ok := channels.ExtractChannelID(reference); ok && strings.HasPrefix(id, "UC") {
		return id, nil
	}
	if rawChannelIDPattern.MatchString(reference) {
		return reference, nil
	}

	handle := channels.Resolve(reference).String()

	id, err := retry.DoValue(ctx, a.retry, func(ctx context.Context) (string, error) {
		return a.directory.ResolveHandle(ctx, handle)
	})
	if err == nil {
		return id, nil
	}
	if !errors.Is(err, ErrChannelNotFound) {
		return "", fmt.Errorf("failed to resolve handle @%s: %w", handle, err)
	}

	a.logger.Debug().Str("handle", handle).Msg("handle not registered, searching by name")
	id, err = retry.DoValue(ctx, a.retry, func(ctx context.Context) (string, error) {
		return a.directory.SearchChannel(ctx, handle)
	})
	if err != nil {
		if errors.Is(err, ErrChannelNotFound) {
			return "", err
		}
		return "", fmt.Errorf("failed to search for channel %s: %w", handle, err)
	}
	return id, nil
}
