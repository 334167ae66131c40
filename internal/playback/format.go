package playback

import "fmt"

// FormatMillis renders a duration in milliseconds as MM:SS, or H:MM:SS once
// it reaches an hour. Negative values render as zero.
func FormatMillis(ms int64) string {
	if ms < 0 {
		ms = 0
	}
	total := ms / 1000
	h := total / 3600
	m := (total % 3600) / 60
	s := total % 60
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%02d:%02d", m, s)
}
