package ui

import "time"

// Application identity
const (
	AppID   = "com.ytget.ytplay"
	AppName = "ytplay"

	WindowWidth  = 860
	WindowHeight = 640
)

// Icons (emojis/symbols)
const (
	IconSettings   = "⚙"
	IconPlay       = "▶"
	IconPause      = "⏸"
	IconStop       = "⏹"
	IconBack       = "⏪"
	IconForward    = "⏩"
	IconFullscreen = "⛶"
	IconMute       = "🔇"
	IconVolume     = "🔊"
	IconError      = "❌"
	IconPending    = "⏳"
)

// Text fragments
const (
	DashPlaceholder     = "—"
	ProgressLabelFormat = "%d%%"
	TimePlaceholder     = "00:00 / 00:00"
)

// Layout sizing (JobRow / lists)
const (
	StatusLabelWidth  float32 = 110
	PercentLabelWidth float32 = 48

	RowMinWidth  float32 = 400
	RowMinHeight float32 = 64
)

// Player window sizes
const (
	PrimaryPlayerWidth  float32 = 800
	PrimaryPlayerHeight float32 = 450
	MiniPlayerWidth     float32 = 320
	MiniPlayerHeight    float32 = 180
)

// Notification behavior
const (
	NotificationAutoHide = 5 * time.Second
)

// Output choices of the player panel
const (
	OutputDocked     = "Docked"
	OutputMini       = "Mini"
	OutputFullscreen = "Full screen"
)
