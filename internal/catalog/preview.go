package catalog

import (
	"sort"

	"github.com/samber/lo"

	"github.com/ytget/ytplay/internal/model"
)

// Preferred preview qualities, most preferred first
var previewPreference = []string{"720p", "360p"}

// PreviewStreams maps "{h}p" labels to direct URLs of streams carrying both
// audio and video, which a player can open without muxing. For duplicate
// heights the first descriptor wins.
func PreviewStreams(raw []model.RawFormat) map[string]string {
	streams := make(map[string]string)
	for _, f := range raw {
		if !f.HasVideo || !f.HasAudio || f.URL == "" || f.Height <= 0 {
			continue
		}
		label := HeightLabel(f.Height)
		if _, ok := streams[label]; !ok {
			streams[label] = f.URL
		}
	}
	return streams
}

// Labels returns the stream labels ordered by height descending
func Labels(streams map[string]string) []string {
	labels := lo.Keys(streams)
	sort.Slice(labels, func(i, j int) bool {
		hi, hj := labelHeight(labels[i]), labelHeight(labels[j])
		if hi == hj {
			return labels[i] < labels[j]
		}
		return hi > hj
	})
	return labels
}

// PreviewURL picks the stream to start a preview with: 720p, then 360p,
// then the highest available. The bool is false when streams is empty.
func PreviewURL(streams map[string]string) (label, url string, ok bool) {
	if len(streams) == 0 {
		return "", "", false
	}
	for _, want := range previewPreference {
		if u, found := streams[want]; found {
			return want, u, true
		}
	}
	label = Labels(streams)[0]
	return label, streams[label], true
}
