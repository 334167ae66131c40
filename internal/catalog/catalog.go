// Package catalog turns raw encoding descriptors reported by the resolution
// engine into ranked, deduplicated lists of selectable options.
package catalog

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/samber/lo"

	"github.com/ytget/ytplay/internal/model"
)

// Selectors and labels for the automatic entries
const (
	BestVideoSelector = "bv*+ba/b"
	BestAudioSelector = "bestaudio/best"
	BestVideoLabel    = "Auto (best)"
	BestAudioLabel    = "MP3 (best)"

	// muxAudioSuffix pairs a video-only stream with the best audio track
	muxAudioSuffix = "+bestaudio"
)

// Build returns the selectable options for mode, best entry first and the
// rest ordered by resolution descending. Labels are unique. An empty input
// yields an empty list.
func Build(raw []model.RawFormat, mode model.Mode) []model.FormatOption {
	if len(raw) == 0 {
		return []model.FormatOption{}
	}

	if mode == model.ModeAudio {
		return []model.FormatOption{{
			Label:    BestAudioLabel,
			Selector: BestAudioSelector,
			Rank:     model.RankBest,
		}}
	}

	candidates := make([]model.FormatOption, 0, len(raw)+1)
	candidates = append(candidates, model.FormatOption{
		Label:    BestVideoLabel,
		Selector: BestVideoSelector,
		Rank:     model.RankBest,
	})

	for _, f := range raw {
		if !f.HasVideo || f.Height <= 0 || f.FormatID == "" {
			continue
		}
		selector := f.FormatID
		if !f.HasAudio {
			selector += muxAudioSuffix
		}
		candidates = append(candidates, model.FormatOption{
			Label:    HeightLabel(f.Height),
			Selector: selector,
			Rank:     f.Height,
		})
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Rank > candidates[j].Rank
	})

	return lo.UniqBy(candidates, func(o model.FormatOption) string {
		return o.Label
	})
}

// Find returns the option with the given label
func Find(options []model.FormatOption, label string) (model.FormatOption, bool) {
	return lo.Find(options, func(o model.FormatOption) bool {
		return o.Label == label
	})
}

// HeightLabel formats a vertical resolution as a label, e.g. "720p"
func HeightLabel(height int) string {
	return fmt.Sprintf("%dp", height)
}

// labelHeight parses a "{h}p" label, returning 0 when it is not one
func labelHeight(label string) int {
	h, err := strconv.Atoi(strings.TrimSuffix(label, "p"))
	if err != nil || !strings.HasSuffix(label, "p") {
		return 0
	}
	return h
}
