package config

import (
	"os"
	"path/filepath"

	"fyne.io/fyne/v2"

	"github.com/ytget/ytplay/internal/model"
	"github.com/ytget/ytplay/internal/platform"
)

// Settings keys for Fyne preferences
const (
	KeyDownloadDir    = "download_directory"
	KeyDefaultMode    = "default_mode"
	KeyVolume         = "playback_volume"
	KeyPreviewQuality = "preview_quality"
	KeyAutoReveal     = "auto_reveal_on_complete"
)

// Default values
const (
	DefaultMode           = model.ModeVideo
	DefaultVolume         = 70
	DefaultPreviewQuality = "720p"
	DefaultAutoReveal     = false
)

// Settings manages user preferences persisted by Fyne
type Settings struct {
	prefs fyne.Preferences
}

// NewSettings creates a new settings manager
func NewSettings(app fyne.App) *Settings {
	return &Settings{prefs: app.Preferences()}
}

// GetDownloadDirectory returns the configured download directory
func (s *Settings) GetDownloadDirectory() string {
	dir := s.prefs.String(KeyDownloadDir)
	if dir == "" {
		defaultDir, err := platform.GetHomeDownloadsDir()
		if err != nil {
			defaultDir = filepath.Join(os.TempDir(), "downloads")
		}
		s.SetDownloadDirectory(defaultDir)
		return defaultDir
	}
	return dir
}

// SetDownloadDirectory sets the download directory
func (s *Settings) SetDownloadDirectory(dir string) {
	s.prefs.SetString(KeyDownloadDir, dir)
}

// GetDefaultMode returns the mode preselected for new downloads
func (s *Settings) GetDefaultMode() model.Mode {
	mode, err := model.ParseMode(s.prefs.String(KeyDefaultMode))
	if err != nil {
		return DefaultMode
	}
	return mode
}

// SetDefaultMode sets the mode preselected for new downloads
func (s *Settings) SetDefaultMode(mode model.Mode) {
	s.prefs.SetString(KeyDefaultMode, mode.String())
}

// GetVolume returns the playback volume
func (s *Settings) GetVolume() int {
	return s.prefs.IntWithFallback(KeyVolume, DefaultVolume)
}

// SetVolume sets the playback volume, clamped to 0..100
func (s *Settings) SetVolume(volume int) {
	if volume < 0 {
		volume = 0
	}
	if volume > 100 {
		volume = 100
	}
	s.prefs.SetInt(KeyVolume, volume)
}

// GetPreviewQuality returns the preferred preview stream label
func (s *Settings) GetPreviewQuality() string {
	return s.prefs.StringWithFallback(KeyPreviewQuality, DefaultPreviewQuality)
}

// SetPreviewQuality sets the preferred preview stream label
func (s *Settings) SetPreviewQuality(label string) {
	if label == "" {
		label = DefaultPreviewQuality
	}
	s.prefs.SetString(KeyPreviewQuality, label)
}

// GetAutoRevealOnComplete returns whether to reveal finished downloads
func (s *Settings) GetAutoRevealOnComplete() bool {
	return s.prefs.BoolWithFallback(KeyAutoReveal, DefaultAutoReveal)
}

// SetAutoRevealOnComplete sets whether to reveal finished downloads
func (s *Settings) SetAutoRevealOnComplete(autoReveal bool) {
	s.prefs.SetBool(KeyAutoReveal, autoReveal)
}
