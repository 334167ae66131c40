package ui

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"path/filepath"
	"strings"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/widget"
	"github.com/rs/zerolog"
	"github.com/samber/lo"
	"github.com/spf13/afero"

	"github.com/ytget/ytplay/internal/app"
	"github.com/ytget/ytplay/internal/catalog"
	"github.com/ytget/ytplay/internal/config"
	"github.com/ytget/ytplay/internal/download"
	"github.com/ytget/ytplay/internal/log"
	"github.com/ytget/ytplay/internal/model"
	"github.com/ytget/ytplay/internal/platform"
	"github.com/ytget/ytplay/internal/playback"
)

// Tab titles
const (
	TabDownloads = "Downloads"
	TabPlayer    = "Player"
)

// RootUI represents the main UI structure
type RootUI struct {
	window   fyne.Window
	svc      *app.Services
	settings *config.Settings
	fs       afero.Fs
	log      zerolog.Logger

	ctx    context.Context
	cancel context.CancelFunc

	urlEntry     *widget.Entry
	findBtn      *widget.Button
	addBtn       *widget.Button
	previewBtn   *widget.Button
	modeRadio    *widget.RadioGroup
	formatSelect *widget.Select
	nameEntry    *widget.Entry
	jobList      *widget.List
	tabs         *container.AppTabs
	player       *PlayerPanel

	notificationContainer *fyne.Container
	notificationLabel     *widget.Label
	notificationSpinner   *widget.ProgressBarInfinite
	notificationGen       int

	// Fyne-thread state
	jobs    []model.JobRecord
	search  *download.SearchToken
	info    *model.VideoInfo
	infoURL string
	options []model.FormatOption
}

// NewRootUI creates and initializes the main UI. sched must dispatch onto
// the Fyne thread.
func NewRootUI(window fyne.Window, a fyne.App, svc *app.Services, settings *config.Settings, sched playback.Scheduler) *RootUI {
	ctx, cancel := context.WithCancel(context.Background())
	ui := &RootUI{
		window:   window,
		svc:      svc,
		settings: settings,
		fs:       afero.NewOsFs(),
		log:      log.WithComponent("ui"),
		ctx:      ctx,
		cancel:   cancel,
	}

	svc.Queue.SetUpdateCallback(ui.onJobUpdate)

	ui.createNotificationPanel()
	ui.player = NewPlayerPanel(a, svc, sched, settings.GetVolume(), func(err error) {
		ui.showNotification(err.Error(), false)
	})
	ui.setupUI()
	return ui
}

func (ui *RootUI) createNotificationPanel() {
	ui.notificationLabel = widget.NewLabel("")
	ui.notificationLabel.Truncation = fyne.TextTruncateEllipsis
	ui.notificationSpinner = widget.NewProgressBarInfinite()
	ui.notificationSpinner.Hide()
	ui.notificationContainer = container.NewBorder(nil, nil, ui.notificationSpinner, nil, ui.notificationLabel)
	ui.notificationContainer.Hide()
}

// setupUI creates and arranges all UI components
func (ui *RootUI) setupUI() {
	ui.urlEntry = widget.NewEntry()
	ui.urlEntry.SetPlaceHolder("Paste a video or playlist URL")
	ui.urlEntry.Validator = validateURL
	ui.urlEntry.OnSubmitted = func(string) { ui.onFind() }
	ui.urlEntry.OnChanged = func(string) { ui.forgetInfo() }

	ui.findBtn = widget.NewButton("Find formats", ui.onFind)
	ui.addBtn = widget.NewButton("Download", ui.onAdd)
	ui.addBtn.Importance = widget.HighImportance
	ui.previewBtn = widget.NewButton(IconPlay+" Preview", ui.onPreview)
	ui.previewBtn.Disable()

	settingsBtn := widget.NewButton(IconSettings, ui.onShowSettings)
	settingsBtn.Importance = widget.LowImportance

	ui.modeRadio = widget.NewRadioGroup([]string{model.ModeVideo.String(), model.ModeAudio.String()}, func(string) {
		ui.refreshFormats()
	})
	ui.modeRadio.Horizontal = true
	ui.modeRadio.Required = true
	ui.modeRadio.SetSelected(ui.settings.GetDefaultMode().String())

	ui.formatSelect = widget.NewSelect(nil, nil)
	ui.formatSelect.PlaceHolder = catalog.BestVideoLabel
	ui.formatSelect.Disable()

	ui.nameEntry = widget.NewEntry()
	ui.nameEntry.SetPlaceHolder("File name (optional)")

	urlRow := container.NewBorder(nil, nil, settingsBtn, container.NewHBox(ui.findBtn, ui.addBtn), ui.urlEntry)
	optionsRow := container.NewBorder(nil, nil,
		container.NewHBox(ui.modeRadio, ui.formatSelect),
		ui.previewBtn,
		ui.nameEntry,
	)

	ui.jobList = widget.NewList(
		func() int { return len(ui.jobs) },
		func() fyne.CanvasObject { return ui.createJobRow() },
		func(id widget.ListItemID, obj fyne.CanvasObject) {
			if id < len(ui.jobs) {
				obj.(*JobRow).Update(ui.jobs[id])
			}
		},
	)

	downloads := container.NewBorder(
		container.NewVBox(urlRow, optionsRow, ui.notificationContainer),
		nil, nil, nil,
		ui.jobList,
	)

	ui.tabs = container.NewAppTabs(
		container.NewTabItem(TabDownloads, downloads),
		container.NewTabItem(TabPlayer, container.NewVBox(ui.player.Content())),
	)
	ui.tabs.OnSelected = func(tab *container.TabItem) {
		if tab.Text == TabPlayer {
			ui.player.EnterPlayerView()
			return
		}
		ui.player.LeavePlayerView()
	}

	ui.window.SetContent(ui.tabs)
	ui.log.Debug().Msg("ui ready")
}

func (ui *RootUI) createJobRow() *JobRow {
	return NewJobRow(JobActions{
		OnReveal:  ui.onRevealFile,
		OnOpen:    ui.onOpenFile,
		OnPreview: ui.onPreviewFile,
		OnRetry:   ui.onRetry,
	})
}

// validateURL validates the entered URL
func validateURL(input string) error {
	if strings.TrimSpace(input) == "" {
		return nil
	}
	parsed, err := url.Parse(strings.TrimSpace(input))
	if err != nil {
		return err
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return errors.New("URL must start with http:// or https://")
	}
	if parsed.Host == "" {
		return errors.New("URL has no host")
	}
	return nil
}

// enteredURL returns the cleaned URL or reports why it cannot be used
func (ui *RootUI) enteredURL() (string, bool) {
	raw := cleanText(ui.urlEntry.Text)
	if raw == "" {
		ui.showNotification("Please enter a URL", false)
		return "", false
	}
	if err := validateURL(raw); err != nil {
		ui.showNotification("Invalid URL: "+err.Error(), false)
		return "", false
	}
	return raw, true
}

func (ui *RootUI) mode() model.Mode {
	mode, err := model.ParseMode(ui.modeRadio.Selected)
	if err != nil {
		return model.ModeVideo
	}
	return mode
}

// onFind resolves the formats of the entered URL. A newer search discards
// the result of an older one.
func (ui *RootUI) onFind() {
	u, ok := ui.enteredURL()
	if !ok {
		return
	}
	ui.forgetInfo()
	ui.showNotification("Resolving formats…", true)

	var token *download.SearchToken
	token = ui.svc.Searcher.Start(ui.ctx, u,
		func(info *model.VideoInfo) {
			fyne.Do(func() {
				if ui.search != token {
					return
				}
				ui.search = nil
				ui.applyInfo(u, info)
			})
		},
		func(err error) {
			fyne.Do(func() {
				if ui.search != token {
					return
				}
				ui.search = nil
				ui.showNotification(err.Error(), false)
			})
		},
	)
	ui.search = token
}

// forgetInfo drops the resolved formats and cancels a running search
func (ui *RootUI) forgetInfo() {
	ui.search.Cancel()
	ui.search = nil
	ui.info = nil
	ui.infoURL = ""
	ui.refreshFormats()
}

func (ui *RootUI) applyInfo(u string, info *model.VideoInfo) {
	ui.info = info
	ui.infoURL = u
	ui.refreshFormats()
	if ui.nameEntry.Text == "" {
		ui.nameEntry.SetPlaceHolder(download.SanitizeName(info.Title))
	}
	ui.showNotification(fmt.Sprintf("%s (%s)", cleanText(info.Title), info.DurationString()), false)
}

// refreshFormats rebuilds the format choices for the current mode
func (ui *RootUI) refreshFormats() {
	if ui.formatSelect == nil {
		return
	}
	if ui.info == nil {
		ui.options = nil
		ui.formatSelect.SetOptions(nil)
		ui.formatSelect.ClearSelected()
		ui.formatSelect.PlaceHolder = app.BestFormat(ui.mode()).Label
		ui.formatSelect.Disable()
		ui.previewBtn.Disable()
		return
	}

	ui.options = catalog.Build(ui.info.Formats, ui.mode())
	labels := lo.Map(ui.options, func(o model.FormatOption, _ int) string { return o.Label })
	ui.formatSelect.SetOptions(labels)
	if len(labels) > 0 {
		ui.formatSelect.SetSelected(labels[0])
		ui.formatSelect.Enable()
	}
	setEnabled(ui.previewBtn, len(catalog.PreviewStreams(ui.info.Formats)) > 0)
}

// selectedFormat returns the picked option, or the best one when the URL
// was not resolved.
func (ui *RootUI) selectedFormat(u string) model.FormatOption {
	if ui.info != nil && ui.infoURL == u {
		if opt, err := app.PickFormat(ui.options, ui.formatSelect.Selected); err == nil {
			return opt
		}
	}
	return app.BestFormat(ui.mode())
}

// onAdd queues the entered URL and starts the queue. Playlists expand into
// one job per entry on a background goroutine.
func (ui *RootUI) onAdd() {
	u, ok := ui.enteredURL()
	if !ok {
		return
	}
	format := ui.selectedFormat(u)
	mode := ui.mode()
	name := strings.TrimSpace(ui.nameEntry.Text)
	var title string
	if ui.info != nil && ui.infoURL == u {
		title = ui.info.Title
	}

	if platform.IsPlaylistURL(u) {
		ui.showNotification("Expanding playlist…", true)
		go func() {
			ids, err := ui.svc.EnqueueURL(ui.ctx, u, format, mode, name, true)
			fyne.Do(func() {
				if err != nil {
					ui.showNotification(err.Error(), false)
					return
				}
				ui.showNotification(fmt.Sprintf("%d videos queued", len(ids)), false)
				ui.startQueue()
			})
		}()
	} else {
		ids, _ := ui.svc.EnqueueURL(ui.ctx, u, format, mode, name, false)
		if title != "" {
			for _, id := range ids {
				_ = ui.svc.Queue.SetTitle(id, title)
			}
		}
		ui.showNotification("Download queued", false)
		ui.startQueue()
	}

	ui.urlEntry.SetText("")
	ui.nameEntry.SetText("")
}

// startQueue runs pending jobs; a running queue picks new jobs up by itself
func (ui *RootUI) startQueue() {
	err := ui.svc.Queue.Start(ui.ctx, download.Callbacks{
		OnItemDone: func(id int) {
			fyne.Do(func() { ui.onJobDone(id) })
		},
		OnItemError: func(id int, msg string) {
			fyne.Do(func() { ui.showNotification(fmt.Sprintf("Download %d failed: %s", id+1, msg), false) })
		},
		OnAllDone: func() {
			fyne.Do(func() { ui.showNotification("All downloads finished", false) })
		},
	})
	if err != nil && !errors.Is(err, download.ErrQueueRunning) {
		ui.showNotification(err.Error(), false)
	}
}

func (ui *RootUI) onJobDone(id int) {
	job, ok := ui.svc.Queue.Job(id)
	if !ok {
		return
	}
	ui.showNotification("Finished: "+cleanText(job.DisplayName()), false)
	if ui.settings.GetAutoRevealOnComplete() {
		ui.onRevealFile(job.OutputPath)
	}
}

// onJobUpdate receives record snapshots from the queue goroutine
func (ui *RootUI) onJobUpdate(job model.JobRecord) {
	fyne.Do(func() {
		if job.ID < len(ui.jobs) {
			ui.jobs[job.ID] = job
			ui.jobList.RefreshItem(job.ID)
			return
		}
		ui.jobs = ui.svc.Queue.Jobs()
		ui.jobList.Refresh()
	})
}

func (ui *RootUI) onRetry(id int) {
	if err := ui.svc.Queue.Requeue(id); err != nil {
		ui.showNotification(err.Error(), false)
		return
	}
	ui.startQueue()
}

// onPreview plays the resolved preview stream in the preferred quality
func (ui *RootUI) onPreview() {
	if ui.info == nil {
		return
	}
	streams := catalog.PreviewStreams(ui.info.Formats)
	uri, ok := streams[ui.settings.GetPreviewQuality()]
	if !ok {
		if _, uri, ok = catalog.PreviewURL(streams); !ok {
			ui.showNotification("No preview stream available", false)
			return
		}
	}
	ui.tabs.SelectIndex(1)
	ui.player.Play(uri, ui.info.Title, streams)
}

func (ui *RootUI) onPreviewFile(path string) {
	ui.tabs.SelectIndex(1)
	ui.player.Play(path, filepath.Base(path), nil)
}

func (ui *RootUI) onRevealFile(path string) {
	if err := platform.OpenFileInManager(path); err != nil {
		ui.log.Warn().Err(err).Str("path", path).Msg("reveal failed")
		ui.showNotification("Cannot reveal file: "+err.Error(), false)
	}
}

func (ui *RootUI) onOpenFile(path string) {
	if err := platform.OpenFileWithDefaultApp(path); err != nil {
		ui.log.Warn().Err(err).Str("path", path).Msg("open failed")
		ui.showNotification("Cannot open file: "+err.Error(), false)
	}
}

// onShowSettings shows the settings dialog
func (ui *RootUI) onShowSettings() {
	NewSettingsDialog(ui.settings, ui.window, ui.applySettings).Show()
}

// applySettings pushes saved settings into the running services
func (ui *RootUI) applySettings() {
	dir := ui.settings.GetDownloadDirectory()
	if err := platform.CreateDirectoryIfNotExists(ui.fs, dir); err != nil {
		ui.showNotification(err.Error(), false)
	}
	ui.svc.Queue.SetDownloadDirectory(dir)
	ui.player.SetVolume(ui.settings.GetVolume())
	ui.modeRadio.SetSelected(ui.settings.GetDefaultMode().String())
	ui.showNotification("Settings saved", false)
}

// showNotification displays a message in the notification panel under the
// URL input. When spinning is true a spinner indicates background activity.
// Messages without a spinner hide themselves after a while.
func (ui *RootUI) showNotification(message string, spinning bool) {
	ui.notificationGen++
	gen := ui.notificationGen

	ui.notificationLabel.SetText(message)
	if spinning {
		ui.notificationSpinner.Show()
	} else {
		ui.notificationSpinner.Hide()
	}
	ui.notificationContainer.Show()

	if !spinning {
		time.AfterFunc(NotificationAutoHide, func() {
			fyne.Do(func() {
				if gen == ui.notificationGen {
					ui.hideNotification()
				}
			})
		})
	}
}

// hideNotification hides the notification panel.
func (ui *RootUI) hideNotification() {
	ui.notificationSpinner.Hide()
	ui.notificationContainer.Hide()
}

// Close stops background work and releases the player.
func (ui *RootUI) Close() {
	ui.cancel()
	ui.search.Cancel()
	ui.player.Release()
	ui.svc.Queue.Wait()
	ui.svc.Searcher.Wait()
}
