package config

import (
	"testing"

	"fyne.io/fyne/v2/test"

	"github.com/ytget/ytplay/internal/model"
)

func TestDownloadDirectory(t *testing.T) {
	app := test.NewApp()
	settings := NewSettings(app)

	// Test default value
	dir := settings.GetDownloadDirectory()
	if dir == "" {
		t.Error("Download directory should not be empty")
	}

	// Test setting custom value
	customDir := "/custom/downloads"
	settings.SetDownloadDirectory(customDir)

	if got := settings.GetDownloadDirectory(); got != customDir {
		t.Errorf("Expected download directory %s, got %s", customDir, got)
	}
}

func TestDefaultMode(t *testing.T) {
	app := test.NewApp()
	settings := NewSettings(app)

	if mode := settings.GetDefaultMode(); mode != DefaultMode {
		t.Errorf("Expected default mode %s, got %s", DefaultMode, mode)
	}

	settings.SetDefaultMode(model.ModeAudio)
	if mode := settings.GetDefaultMode(); mode != model.ModeAudio {
		t.Errorf("Expected mode %s, got %s", model.ModeAudio, mode)
	}

	// Unknown stored values fall back to the default
	app.Preferences().SetString(KeyDefaultMode, "flac")
	if mode := settings.GetDefaultMode(); mode != DefaultMode {
		t.Errorf("Expected fallback mode %s, got %s", DefaultMode, mode)
	}
}

func TestVolume(t *testing.T) {
	tests := []struct {
		name string
		set  int
		want int
	}{
		{"in range", 35, 35},
		{"zero is kept", 0, 0},
		{"clamped high", 180, 100},
		{"clamped low", -4, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			settings := NewSettings(test.NewApp())
			if got := settings.GetVolume(); got != DefaultVolume {
				t.Fatalf("Expected default volume %d, got %d", DefaultVolume, got)
			}
			settings.SetVolume(tt.set)
			if got := settings.GetVolume(); got != tt.want {
				t.Errorf("Expected volume %d, got %d", tt.want, got)
			}
		})
	}
}

func TestPreviewQuality(t *testing.T) {
	settings := NewSettings(test.NewApp())

	if got := settings.GetPreviewQuality(); got != DefaultPreviewQuality {
		t.Errorf("Expected %s, got %s", DefaultPreviewQuality, got)
	}
	settings.SetPreviewQuality("360p")
	if got := settings.GetPreviewQuality(); got != "360p" {
		t.Errorf("Expected 360p, got %s", got)
	}
	settings.SetPreviewQuality("")
	if got := settings.GetPreviewQuality(); got != DefaultPreviewQuality {
		t.Errorf("Expected reset to %s, got %s", DefaultPreviewQuality, got)
	}
}

func TestAutoRevealOnComplete(t *testing.T) {
	settings := NewSettings(test.NewApp())

	if settings.GetAutoRevealOnComplete() != DefaultAutoReveal {
		t.Error("Expected default auto reveal value")
	}
	settings.SetAutoRevealOnComplete(true)
	if !settings.GetAutoRevealOnComplete() {
		t.Error("Expected auto reveal to be enabled")
	}
}
