package download

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/lrstanley/go-ytdlp"
	"github.com/rs/zerolog"

	"github.com/ytget/ytplay/internal/log"
	"github.com/ytget/ytplay/internal/model"
)

// DefaultProgressInterval is how often yt-dlp progress is sampled
const DefaultProgressInterval = 500 * time.Millisecond

// YTDLP adapts the yt-dlp executable to Resolver and Engine.
type YTDLP struct {
	progressInterval time.Duration
	log              zerolog.Logger
}

var (
	_ Resolver = (*YTDLP)(nil)
	_ Engine   = (*YTDLP)(nil)
)

// NewYTDLP creates an adapter sampling progress every progressInterval.
func NewYTDLP(progressInterval time.Duration) *YTDLP {
	if progressInterval <= 0 {
		progressInterval = DefaultProgressInterval
	}
	return &YTDLP{
		progressInterval: progressInterval,
		log:              log.WithComponent("ytdlp"),
	}
}

// Install downloads or updates the yt-dlp executable managed by go-ytdlp.
func (y *YTDLP) Install(ctx context.Context) error {
	if _, err := ytdlp.Install(ctx, nil); err != nil {
		return fmt.Errorf("install yt-dlp: %w", err)
	}
	return nil
}

// Resolve fetches metadata and formats of a single video.
func (y *YTDLP) Resolve(ctx context.Context, url string) (*model.VideoInfo, error) {
	res, err := ytdlp.New().
		DumpJSON().
		NoPlaylist().
		Run(ctx, url)
	if err != nil {
		return nil, &ResolutionError{URL: url, Err: err}
	}

	info, err := parseInfoJSON([]byte(res.Stdout))
	if err != nil {
		return nil, &ResolutionError{URL: url, Err: err}
	}
	y.log.Debug().Str("url", url).Int("formats", len(info.Formats)).Msg("resolved")
	return info, nil
}

// Download runs yt-dlp for req, reporting progress through hook.
func (y *YTDLP) Download(ctx context.Context, req Request, hook func(Progress)) error {
	dl := ytdlp.New().
		Format(req.Selector).
		Output(req.OutputTemplate).
		NoPlaylist()

	if req.Mode == model.ModeAudio {
		dl = dl.ExtractAudio().
			AudioFormat(model.ExtAudio).
			EmbedMetadata().
			EmbedThumbnail().
			WriteThumbnail()
	} else {
		dl = dl.MergeOutputFormat(model.ExtVideo)
	}

	dl.ProgressFunc(y.progressInterval, func(update ytdlp.ProgressUpdate) {
		if hook == nil {
			return
		}
		status := ProgressDownloading
		if update.Status == ytdlp.ProgressStatusFinished {
			status = ProgressFinished
		}
		hook(Progress{
			Status:          status,
			DownloadedBytes: int64(update.DownloadedBytes),
			TotalBytes:      int64(update.TotalBytes),
		})
	})

	if _, err := dl.Run(ctx, req.URL); err != nil {
		return err
	}
	return nil
}

// infoJSON is the subset of yt-dlp's info dict used here
type infoJSON struct {
	Title     string       `json:"title"`
	Thumbnail string       `json:"thumbnail"`
	Duration  float64      `json:"duration"`
	Formats   []formatJSON `json:"formats"`
}

type formatJSON struct {
	FormatID string `json:"format_id"`
	Height   int    `json:"height"`
	VCodec   string `json:"vcodec"`
	ACodec   string `json:"acodec"`
	URL      string `json:"url"`
	Ext      string `json:"ext"`
}

// parseInfoJSON parses yt-dlp --dump-json output. When several JSON
// documents are present the first one is used.
func parseInfoJSON(data []byte) (*model.VideoInfo, error) {
	text := strings.TrimSpace(string(data))
	if text == "" {
		return nil, fmt.Errorf("empty yt-dlp output")
	}

	var raw infoJSON
	if err := json.NewDecoder(strings.NewReader(text)).Decode(&raw); err != nil {
		return nil, fmt.Errorf("parse yt-dlp output: %w", err)
	}

	info := &model.VideoInfo{
		Title:        raw.Title,
		ThumbnailURL: raw.Thumbnail,
		DurationSec:  int(raw.Duration),
		Formats:      make([]model.RawFormat, 0, len(raw.Formats)),
	}
	for _, f := range raw.Formats {
		info.Formats = append(info.Formats, model.RawFormat{
			FormatID: f.FormatID,
			Height:   f.Height,
			HasVideo: hasCodec(f.VCodec),
			HasAudio: hasCodec(f.ACodec),
			URL:      f.URL,
			Ext:      f.Ext,
		})
	}
	return info, nil
}

func hasCodec(codec string) bool {
	return codec != "" && codec != "none"
}
