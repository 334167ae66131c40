package model

import (
	"fmt"
	"strings"
)

// Mode selects what a job produces on disk
type Mode string

const (
	// ModeVideo downloads video with audio muxed into an mp4 container
	ModeVideo Mode = "Video"

	// ModeAudio extracts the audio track into an mp3 file
	ModeAudio Mode = "Audio"
)

// Output container extensions
const (
	ExtVideo = "mp4"
	ExtAudio = "mp3"
)

// String returns the string representation of Mode
func (m Mode) String() string {
	return string(m)
}

// Ext returns the expected output container extension (without dot)
func (m Mode) Ext() string {
	if m == ModeAudio {
		return ExtAudio
	}
	return ExtVideo
}

// ParseMode converts user input ("video", "audio", "mp3", ...) into a Mode
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "video", "mp4":
		return ModeVideo, nil
	case "audio", "mp3":
		return ModeAudio, nil
	default:
		return "", fmt.Errorf("unknown mode: %q", s)
	}
}
