package importers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"

	"github.com/code-sleuth/ike-tube/internal/manager/retry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/option"
)

type fakeYouTubeAPI struct {
	handles  map[string]string
	search   map[string]string
	uploads  map[string][]string
	status   int
	requests []string
}

func (f *fakeYouTubeAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.requests = append(f.requests, r.URL.Path+"?"+r.URL.RawQuery)
	w.Header().Set("Content-Type", "application/json")

	if f.status != 0 {
		w.WriteHeader(f.status)
		_, _ = fmt.Fprintf(w, `{"error":{"code":%d,"message":"quota exceeded","errors":[{"reason":"quotaExceeded"}]}}`, f.status)
		return
	}

	query := r.URL.Query()
	var body any
	switch {
	case strings.HasSuffix(r.URL.Path, "/channels"):
		items := []map[string]any{}
		if id, ok := f.handles[query.Get("forHandle")]; ok {
			items = append(items, map[string]any{"id": id})
		}
		body = map[string]any{"items": items}
	case strings.HasSuffix(r.URL.Path, "/search"):
		items := []map[string]any{}
		if id, ok := f.search[query.Get("q")]; ok {
			items = append(items, map[string]any{"id": map[string]string{"kind": "youtube#channel", "channelId": id}})
		}
		body = map[string]any{"items": items}
	case strings.HasSuffix(r.URL.Path, "/playlistItems"):
		all := f.uploads[query.Get("playlistId")]
		offset, _ := strconv.Atoi(query.Get("pageToken"))
		size, _ := strconv.Atoi(query.Get("maxResults"))
		end := min(offset+size, len(all))

		items := []map[string]any{}
		for _, id := range all[offset:end] {
			items = append(items, map[string]any{
				"snippet":        map[string]string{"title": "title " + id},
				"contentDetails": map[string]string{"videoId": id},
			})
		}
		page := map[string]any{"items": items}
		if end < len(all) {
			page["nextPageToken"] = strconv.Itoa(end)
		}
		body = page
	default:
		http.NotFound(w, r)
		return
	}
	_ = json.NewEncoder(w).Encode(body)
}

func newTestDirectory(t *testing.T, api *fakeYouTubeAPI) *YouTubeDirectory {
	t.Helper()
	server := httptest.NewServer(api)
	t.Cleanup(server.Close)

	directory, err := NewYouTubeDirectory(
		context.Background(),
		"test-key",
		1000,
		option.WithHTTPClient(server.Client()),
		option.WithEndpoint(server.URL+"/"),
	)
	require.NoError(t, err)
	return directory
}

func TestYouTubeDirectory_ResolveHandle(t *testing.T) {
	directory := newTestDirectory(t, &fakeYouTubeAPI{
		handles: map[string]string{"veritasium": "UCHnyfMqiRRG1u-2MsSQLbXA"},
	})

	id, err := directory.ResolveHandle(context.Background(), "@veritasium")
	require.NoError(t, err)
	assert.Equal(t, "UCHnyfMqiRRG1u-2MsSQLbXA", id)

	_, err = directory.ResolveHandle(context.Background(), "nobody")
	assert.ErrorIs(t, err, ErrChannelNotFound)
}

func TestYouTubeDirectory_SearchChannel(t *testing.T) {
	directory := newTestDirectory(t, &fakeYouTubeAPI{
		search: map[string]string{"Mark Rober": "UCY1kMZp36IQSyNx_9h4mpCg"},
	})

	id, err := directory.SearchChannel(context.Background(), "Mark Rober")
	require.NoError(t, err)
	assert.Equal(t, "UCY1kMZp36IQSyNx_9h4mpCg", id)

	_, err = directory.SearchChannel(context.Background(), "no such creator")
	assert.ErrorIs(t, err, ErrChannelNotFound)
}

func TestYouTubeDirectory_RecentUploads(t *testing.T) {
	uploads := make([]string, 120)
	for i := range uploads {
		uploads[i] = fmt.Sprintf("video%03d", i)
	}
	api := &fakeYouTubeAPI{uploads: map[string][]string{"UUchannel0000000000000000": uploads}}
	directory := newTestDirectory(t, api)

	tests := []struct {
		description string
		max         int
		pages       int
	}{
		{description: "single page", max: 10, pages: 1},
		{description: "spans pages", max: 75, pages: 2},
		{description: "more than available", max: 500, pages: 3},
	}

	for _, tt := range tests {
		t.Run(tt.description, func(t *testing.T) {
			api.requests = nil
			videos, err := directory.RecentUploads(context.Background(), "UCchannel0000000000000000", tt.max)
			require.NoError(t, err)

			assert.Len(t, videos, min(tt.max, len(uploads)))
			assert.Equal(t, "video000", videos[0].ID)
			assert.Equal(t, "title video000", videos[0].Title)
			assert.Len(t, api.requests, tt.pages)
		})
	}

	_, err := directory.RecentUploads(context.Background(), "UCchannel0000000000000000", 0)
	assert.ErrorIs(t, err, ErrInvalidMaxVideos)
}

func TestYouTubeDirectory_StatusErrors(t *testing.T) {
	tests := []struct {
		description string
		status      int
		transient   bool
	}{
		{description: "quota exhausted is permanent", status: http.StatusForbidden, transient: false},
		{description: "backend error is transient", status: http.StatusServiceUnavailable, transient: true},
	}

	for _, tt := range tests {
		t.Run(tt.description, func(t *testing.T) {
			directory := newTestDirectory(t, &fakeYouTubeAPI{status: tt.status})

			_, err := directory.ResolveHandle(context.Background(), "anyone")
			require.Error(t, err)

			var statusErr *retry.StatusError
			require.True(t, errors.As(err, &statusErr))
			assert.Equal(t, tt.status, statusErr.StatusCode)
			assert.Equal(t, tt.transient, retry.IsTransient(err))
		})
	}
}

func TestUploadsPlaylistID(t *testing.T) {
	assert.Equal(t, "UUHnyfMqiRRG1u-2MsSQLbXA", UploadsPlaylistID("UCHnyfMqiRRG1u-2MsSQLbXA"))
	assert.Equal(t, "PLcustom", UploadsPlaylistID("PLcustom"))
}
