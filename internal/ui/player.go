package ui

import (
	"errors"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/widget"
	"github.com/rs/zerolog"

	"github.com/ytget/ytplay/internal/app"
	"github.com/ytget/ytplay/internal/log"
	"github.com/ytget/ytplay/internal/playback"
)

// seekScale is the slider resolution of the seek bar
const seekScale = 1000

var outputKinds = map[string]playback.SurfaceKind{
	OutputDocked:     playback.SurfacePrimary,
	OutputMini:       playback.SurfaceMini,
	OutputFullscreen: playback.SurfaceFullscreen,
}

// PlayerPanel holds the player controls and the output windows. All methods
// run on the Fyne thread.
type PlayerPanel struct {
	session  *playback.Session
	surfaces map[playback.SurfaceKind]*WindowSurface
	onError  func(error)
	log      zerolog.Logger

	titleLabel *widget.Label
	stateLabel *widget.Label
	timeLabel  *widget.Label
	playBtn    *widget.Button
	backBtn    *widget.Button
	fwdBtn     *widget.Button
	stopBtn    *widget.Button
	muteBtn    *widget.Button
	seek       *widget.Slider
	volume     *widget.Slider
	quality    *widget.Select
	output     *widget.Select

	// syncing is set while widgets are updated from session state so that
	// their change handlers do not feed the values back.
	syncing bool
	content fyne.CanvasObject
}

// NewPlayerPanel creates the output windows and a session over the shared
// engine of svc. sched must dispatch onto the Fyne thread.
func NewPlayerPanel(a fyne.App, svc *app.Services, sched playback.Scheduler, volume int, onError func(error)) *PlayerPanel {
	p := &PlayerPanel{
		onError: onError,
		log:     log.WithComponent("player"),
	}

	closeFn := func() { p.session.StopAndClose() }
	p.surfaces = map[playback.SurfaceKind]*WindowSurface{
		playback.SurfacePrimary:    NewWindowSurface(a, playback.SurfacePrimary, AppName+" player", fyne.NewSize(PrimaryPlayerWidth, PrimaryPlayerHeight), closeFn),
		playback.SurfaceMini:       NewWindowSurface(a, playback.SurfaceMini, AppName+" mini", fyne.NewSize(MiniPlayerWidth, MiniPlayerHeight), closeFn),
		playback.SurfaceFullscreen: NewWindowSurface(a, playback.SurfaceFullscreen, AppName, fyne.NewSize(PrimaryPlayerWidth, PrimaryPlayerHeight), closeFn),
	}
	surfaces := make(map[playback.SurfaceKind]playback.Surface, len(p.surfaces))
	for k, s := range p.surfaces {
		surfaces[k] = s
	}

	// The session binds the primary surface, which shows its window.
	// Keep every output hidden until something is played.
	p.session = svc.NewSession(surfaces, sched, playback.Callbacks{
		OnState:  p.showState,
		OnStatus: p.showStatus,
		OnClose:  p.hideOutputs,
		OnError:  p.reportError,
	})
	p.hideOutputs()
	p.session.SetVolume(volume)

	p.createUI()
	p.showState(p.session.State())
	return p
}

func (p *PlayerPanel) createUI() {
	p.titleLabel = widget.NewLabelWithStyle(DashPlaceholder, fyne.TextAlignLeading, fyne.TextStyle{Bold: true})
	p.titleLabel.Truncation = fyne.TextTruncateEllipsis
	p.stateLabel = widget.NewLabel("")
	p.timeLabel = widget.NewLabel(TimePlaceholder)
	p.timeLabel.TextStyle = fyne.TextStyle{Monospace: true}

	p.playBtn = widget.NewButton(IconPlay, func() { p.session.TogglePlay() })
	p.backBtn = widget.NewButton(IconBack, func() { p.session.SkipBackward() })
	p.fwdBtn = widget.NewButton(IconForward, func() { p.session.SkipForward() })
	p.stopBtn = widget.NewButton(IconStop, func() { p.session.StopAndClose() })

	p.seek = widget.NewSlider(0, seekScale)
	p.seek.OnChangeEnded = func(v float64) {
		if !p.syncing {
			p.session.SeekToFraction(v / seekScale)
		}
	}

	p.volume = widget.NewSlider(0, 100)
	p.volume.Step = 1
	p.volume.SetValue(float64(p.session.Volume()))
	p.volume.OnChanged = func(v float64) {
		if !p.syncing {
			p.session.SetVolume(int(v))
			p.showMute()
		}
	}
	p.muteBtn = widget.NewButton(IconVolume, func() {
		p.session.ToggleMute()
		p.showMute()
	})

	p.quality = widget.NewSelect(nil, func(label string) {
		if p.syncing || label == "" {
			return
		}
		if err := p.session.ChangeQuality(label); err != nil && !errors.Is(err, playback.ErrBusy) {
			p.reportError(err)
		}
		p.showQualities()
	})
	p.quality.PlaceHolder = "Quality"

	p.output = widget.NewSelect([]string{OutputDocked, OutputMini, OutputFullscreen}, func(choice string) {
		if p.syncing {
			return
		}
		if kind, ok := outputKinds[choice]; ok {
			p.SwitchOutput(kind)
		}
	})
	p.output.SetSelected(OutputDocked)

	transport := container.NewHBox(p.backBtn, p.playBtn, p.fwdBtn, p.stopBtn, p.timeLabel)
	options := container.NewHBox(p.muteBtn, container.NewGridWrap(fyne.NewSize(120, p.volume.MinSize().Height), p.volume), p.quality, p.output)

	p.content = container.NewVBox(
		container.NewBorder(nil, nil, nil, p.stateLabel, p.titleLabel),
		p.seek,
		container.NewBorder(nil, nil, transport, options),
	)
}

// Content returns the control panel.
func (p *PlayerPanel) Content() fyne.CanvasObject {
	return p.content
}

// Session returns the playback session.
func (p *PlayerPanel) Session() *playback.Session {
	return p.session
}

// Play opens uri on the bound output. streams maps quality labels to URIs
// and may be nil for local files.
func (p *PlayerPanel) Play(uri, title string, streams map[string]string) {
	if s, ok := p.surfaces[p.session.Router().Active()]; ok {
		s.Show()
	}
	p.titleLabel.SetText(cleanText(title))
	p.session.Load(uri, title, streams)
	p.showQualities()
}

// SwitchOutput moves the video to kind.
func (p *PlayerPanel) SwitchOutput(kind playback.SurfaceKind) {
	p.session.SwitchOutput(kind)
	p.showOutput()
}

// EnterPlayerView docks the video when the player is brought into view.
func (p *PlayerPanel) EnterPlayerView() {
	p.session.EnterPlayerView()
	p.showOutput()
}

// LeavePlayerView floats active video into the mini window.
func (p *PlayerPanel) LeavePlayerView() {
	p.session.LeavePlayerView()
	p.showOutput()
}

// SetVolume applies a new default volume.
func (p *PlayerPanel) SetVolume(v int) {
	p.session.SetVolume(v)
	p.syncing = true
	p.volume.SetValue(float64(p.session.Volume()))
	p.syncing = false
	p.showMute()
}

// Release destroys the engine; used on shutdown.
func (p *PlayerPanel) Release() {
	p.session.Release()
	p.hideOutputs()
}

func (p *PlayerPanel) showState(st playback.State) {
	if p.stateLabel == nil {
		return
	}
	p.stateLabel.SetText(st.String())

	if st == playback.StatePlaying {
		p.playBtn.SetText(IconPause)
	} else {
		p.playBtn.SetText(IconPlay)
	}

	active := st == playback.StatePlaying || st == playback.StatePaused || st == playback.StateEnded
	for _, b := range []*widget.Button{p.playBtn, p.backBtn, p.fwdBtn} {
		setEnabled(b, active)
	}
	setEnabled(p.stopBtn, st != playback.StateIdle)
	if active {
		p.seek.Enable()
	} else {
		p.seek.Disable()
	}
	if st == playback.StateQualitySwitching || len(p.session.Qualities()) == 0 {
		p.quality.Disable()
	} else {
		p.quality.Enable()
	}
	if st == playback.StateQualitySwitching {
		p.output.Disable()
	} else {
		p.output.Enable()
	}
	if st == playback.StateIdle {
		p.syncing = true
		p.seek.SetValue(0)
		p.syncing = false
		p.timeLabel.SetText(TimePlaceholder)
	}
}

func (p *PlayerPanel) showStatus(st playback.Status) {
	if p.seek == nil {
		return
	}
	p.syncing = true
	p.seek.SetValue(st.Position * seekScale)
	p.syncing = false
	p.timeLabel.SetText(st.Label)
}

func (p *PlayerPanel) showQualities() {
	p.syncing = true
	defer func() { p.syncing = false }()

	p.quality.SetOptions(p.session.Qualities())
	if q := p.session.CurrentQuality(); q != "" {
		p.quality.SetSelected(q)
	} else {
		p.quality.ClearSelected()
	}
	p.showState(p.session.State())
}

func (p *PlayerPanel) showOutput() {
	p.syncing = true
	defer func() { p.syncing = false }()
	for label, kind := range outputKinds {
		if kind == p.session.Router().Active() {
			p.output.SetSelected(label)
		}
	}
}

func (p *PlayerPanel) showMute() {
	if p.session.Muted() {
		p.muteBtn.SetText(IconMute)
		return
	}
	p.muteBtn.SetText(IconVolume)
}

func (p *PlayerPanel) hideOutputs() {
	for _, s := range p.surfaces {
		s.Hide()
	}
}

func (p *PlayerPanel) reportError(err error) {
	p.log.Warn().Err(err).Msg("playback error")
	if p.onError != nil {
		p.onError(err)
	}
}
