package ui

import (
	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/driver"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"

	"github.com/ytget/ytplay/internal/playback"
)

// WindowSurface is a playback output backed by its own window. The engine
// renders into the window's native handle; the window is shown only while
// the surface is bound.
type WindowSurface struct {
	kind        playback.SurfaceKind
	win         fyne.Window
	placeholder *widget.Label
	shown       bool
}

var _ playback.Surface = (*WindowSurface)(nil)

// NewWindowSurface creates the window of a surface. onClose runs when the
// user closes the window.
func NewWindowSurface(a fyne.App, kind playback.SurfaceKind, title string, size fyne.Size, onClose func()) *WindowSurface {
	s := &WindowSurface{
		kind:        kind,
		win:         a.NewWindow(title),
		placeholder: widget.NewLabelWithStyle("", fyne.TextAlignCenter, fyne.TextStyle{Bold: true}),
	}
	s.placeholder.Importance = widget.DangerImportance
	s.placeholder.Hide()

	bg := canvas.NewRectangle(theme.Color(ColorNameVideoBackground))
	s.win.SetContent(container.NewStack(bg, container.NewCenter(s.placeholder)))
	s.win.Resize(size)
	s.win.SetCloseIntercept(func() {
		if onClose != nil {
			onClose()
		}
	})
	return s
}

// Kind returns the surface kind.
func (s *WindowSurface) Kind() playback.SurfaceKind {
	return s.kind
}

// Show realizes the window so that it has a native handle.
func (s *WindowSurface) Show() {
	if s.kind == playback.SurfaceFullscreen {
		s.win.SetFullScreen(true)
	}
	s.win.Show()
	s.shown = true
}

// Hide hides the window.
func (s *WindowSurface) Hide() {
	s.win.Hide()
}

// NativeHandle implements playback.Surface. It reports false until the
// window was shown or when the driver does not expose native windows.
func (s *WindowSurface) NativeHandle() (uintptr, bool) {
	if !s.shown {
		return 0, false
	}
	nw, ok := s.win.(driver.NativeWindow)
	if !ok {
		return 0, false
	}

	var handle uintptr
	nw.RunNative(func(ctx any) {
		switch c := ctx.(type) {
		case driver.X11WindowContext:
			handle = c.WindowHandle
		case driver.WindowsWindowContext:
			handle = c.HWND
		case driver.MacWindowContext:
			handle = c.NSWindow
		}
	})
	return handle, handle != 0
}

// SetBound implements playback.Surface.
func (s *WindowSurface) SetBound(bound bool) {
	if bound {
		s.Show()
		return
	}
	s.Hide()
}

// SetFullScreen implements playback.Surface.
func (s *WindowSurface) SetFullScreen(full bool) {
	s.win.SetFullScreen(full)
}

// ShowPlaceholder implements playback.Surface; an empty message hides it.
func (s *WindowSurface) ShowPlaceholder(msg string) {
	s.placeholder.SetText(msg)
	if msg == "" {
		s.placeholder.Hide()
		return
	}
	s.placeholder.Show()
}

// Placeholder returns the visible placeholder text.
func (s *WindowSurface) Placeholder() string {
	if !s.placeholder.Visible() {
		return ""
	}
	return s.placeholder.Text
}
