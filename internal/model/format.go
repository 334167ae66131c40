package model

import (
	"fmt"
	"math"
)

// RankBest is the rank sentinel of the automatic/best option; it sorts above any real height
const RankBest = math.MaxInt32

// FormatOption is one selectable encoding in a catalog
type FormatOption struct {
	Label    string // unique within a catalog, e.g. "1080p"
	Selector string // engine format selector, e.g. "137+bestaudio"
	Rank     int    // vertical resolution in pixels or RankBest
}

// IsBest reports whether the option is the automatic/best entry
func (f FormatOption) IsBest() bool {
	return f.Rank == RankBest
}

// RawFormat is an encoding descriptor as reported by the resolution engine
type RawFormat struct {
	FormatID string
	Height   int
	HasVideo bool
	HasAudio bool
	URL      string
	Ext      string
}

// VideoInfo is the result of resolving a source URL
type VideoInfo struct {
	Title        string
	ThumbnailURL string
	DurationSec  int
	Formats      []RawFormat
}

// DurationString returns the duration formatted as hh:mm:ss or mm:ss, or "—" if unknown
func (vi *VideoInfo) DurationString() string {
	if vi.DurationSec <= 0 {
		return "—"
	}

	hours := vi.DurationSec / 3600
	minutes := (vi.DurationSec % 3600) / 60
	seconds := vi.DurationSec % 60

	if hours > 0 {
		return fmt.Sprintf("%02d:%02d:%02d", hours, minutes, seconds)
	}
	return fmt.Sprintf("%02d:%02d", minutes, seconds)
}
