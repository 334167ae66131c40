package platform

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ytget/ytdlp/v2"

	"github.com/ytget/ytplay/internal/model"
)

// Timeout constants
const (
	DefaultPlaylistTimeout = 60 * time.Second
)

// URL parameters
const (
	PlaylistURLParam       = "list="
	PlaylistParamSeparator = "&"
)

// Default values
const (
	DefaultPlaylistTitle    = "Untitled Playlist"
	PlaylistSuffix          = " Playlist"
	MinPrefixLength         = 10
	YouTubeVideoURLTemplate = "https://www.youtube.com/watch?v=%s"
)

// ErrNotPlaylist is returned for URLs without a playlist parameter
var ErrNotPlaylist = errors.New("URL does not contain playlist parameter")

// PlaylistItem is one video reported by the playlist source
type PlaylistItem struct {
	VideoID string
	Title   string
}

// ItemsFunc fetches every item of a playlist
type ItemsFunc func(ctx context.Context, playlistID string) ([]PlaylistItem, error)

// PlaylistExpander turns a playlist URL into one entry per video
type PlaylistExpander struct {
	timeout time.Duration
	items   ItemsFunc
}

// NewPlaylistExpander creates an expander backed by the ytdlp library
func NewPlaylistExpander() *PlaylistExpander {
	return &PlaylistExpander{
		timeout: DefaultPlaylistTimeout,
		items:   ytdlpItems,
	}
}

// ytdlpItems fetches playlist items through ytdlp/v2
func ytdlpItems(ctx context.Context, playlistID string) ([]PlaylistItem, error) {
	items, err := ytdlp.New().GetPlaylistItemsAll(ctx, playlistID, 0)
	if err != nil {
		return nil, err
	}
	out := make([]PlaylistItem, 0, len(items))
	for _, it := range items {
		out = append(out, PlaylistItem{VideoID: it.VideoID, Title: it.Title})
	}
	return out, nil
}

// SetTimeout sets the timeout for playlist expansion
func (p *PlaylistExpander) SetTimeout(timeout time.Duration) {
	p.timeout = timeout
}

// SetItemsFunc replaces the playlist source
func (p *PlaylistExpander) SetItemsFunc(fn ItemsFunc) {
	p.items = fn
}

// IsPlaylistURL reports whether url carries a playlist parameter
func IsPlaylistURL(url string) bool {
	_, err := ExtractPlaylistID(url)
	return err == nil
}

// ExtractPlaylistID extracts the playlist ID from a YouTube URL. Supported:
// watch?v=ID&list=PL, watch?v=ID&list=PL&index=3, playlist?list=PL
func ExtractPlaylistID(url string) (string, error) {
	if !strings.Contains(url, PlaylistURLParam) {
		return "", ErrNotPlaylist
	}
	parts := strings.SplitN(url, PlaylistURLParam, 2)
	id := strings.SplitN(parts[1], PlaylistParamSeparator, 2)[0]
	if id == "" {
		return "", fmt.Errorf("empty playlist ID")
	}
	return id, nil
}

// Expand fetches the playlist items. Entries without a video ID are skipped.
func (p *PlaylistExpander) Expand(ctx context.Context, url string) (*model.Playlist, error) {
	id, err := ExtractPlaylistID(url)
	if err != nil {
		return nil, err
	}

	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}

	items, err := p.items(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get playlist items: %w", err)
	}

	playlist := &model.Playlist{ID: id, URL: url}
	for _, it := range items {
		if it.VideoID == "" {
			continue
		}
		playlist.Entries = append(playlist.Entries, model.PlaylistEntry{
			VideoID: it.VideoID,
			Title:   strings.TrimSpace(it.Title),
			URL:     fmt.Sprintf(YouTubeVideoURLTemplate, it.VideoID),
		})
	}
	playlist.Title = playlistTitle(playlist.Entries)
	return playlist, nil
}

// playlistTitle derives a title from the common prefix of the first two entries
func playlistTitle(entries []model.PlaylistEntry) string {
	if len(entries) == 0 {
		return DefaultPlaylistTitle
	}
	if len(entries) > 1 {
		prefix := findCommonPrefix(entries[0].Title, entries[1].Title)
		if len(prefix) > MinPrefixLength {
			return strings.TrimSpace(prefix) + PlaylistSuffix
		}
	}
	return entries[0].Title + PlaylistSuffix
}

// findCommonPrefix finds the common prefix between two strings
func findCommonPrefix(s1, s2 string) string {
	minLen := min(len(s1), len(s2))
	for i := 0; i < minLen; i++ {
		if s1[i] != s2[i] {
			return s1[:i]
		}
	}
	return s1[:minLen]
}
