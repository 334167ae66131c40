package ui

import (
	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/widget"

	"github.com/ytget/ytplay/internal/config"
	"github.com/ytget/ytplay/internal/model"
)

// Settings dialog size
const (
	SettingsDialogWidth  = 460
	SettingsDialogHeight = 360
)

// SettingsDialog edits the persisted user settings
type SettingsDialog struct {
	settings *config.Settings
	window   fyne.Window
	dialog   *dialog.ConfirmDialog
	onSaved  func()

	downloadDirEntry *widget.Entry
	modeRadio        *widget.RadioGroup
	volumeSlider     *widget.Slider
	previewSelect    *widget.Select
	autoRevealCheck  *widget.Check
}

// NewSettingsDialog creates a new settings dialog. onSaved runs after the
// settings were written.
func NewSettingsDialog(settings *config.Settings, window fyne.Window, onSaved func()) *SettingsDialog {
	sd := &SettingsDialog{
		settings: settings,
		window:   window,
		onSaved:  onSaved,
	}
	sd.createUI()
	return sd
}

// Show displays the settings dialog
func (sd *SettingsDialog) Show() {
	sd.loadCurrentSettings()
	sd.dialog.Show()
}

func (sd *SettingsDialog) createUI() {
	sd.downloadDirEntry = widget.NewEntry()
	sd.downloadDirEntry.SetPlaceHolder("Download directory path")

	sd.modeRadio = widget.NewRadioGroup([]string{model.ModeVideo.String(), model.ModeAudio.String()}, nil)
	sd.modeRadio.Horizontal = true

	sd.volumeSlider = widget.NewSlider(0, 100)
	sd.volumeSlider.Step = 1

	sd.previewSelect = widget.NewSelect([]string{"1080p", "720p", "480p", "360p"}, nil)

	sd.autoRevealCheck = widget.NewCheck("Reveal finished downloads", nil)

	form := widget.NewForm(
		widget.NewFormItem("Download directory", sd.downloadDirEntry),
		widget.NewFormItem("Default mode", sd.modeRadio),
		widget.NewFormItem("Volume", sd.volumeSlider),
		widget.NewFormItem("Preview quality", sd.previewSelect),
		widget.NewFormItem("", sd.autoRevealCheck),
	)

	sd.dialog = dialog.NewCustomConfirm(
		"Settings",
		"Save",
		"Cancel",
		container.NewPadded(form),
		sd.onSave,
		sd.window,
	)
	sd.dialog.Resize(fyne.NewSize(SettingsDialogWidth, SettingsDialogHeight))
}

func (sd *SettingsDialog) loadCurrentSettings() {
	sd.downloadDirEntry.SetText(sd.settings.GetDownloadDirectory())
	sd.modeRadio.SetSelected(sd.settings.GetDefaultMode().String())
	sd.volumeSlider.SetValue(float64(sd.settings.GetVolume()))
	sd.previewSelect.SetSelected(sd.settings.GetPreviewQuality())
	sd.autoRevealCheck.SetChecked(sd.settings.GetAutoRevealOnComplete())
}

func (sd *SettingsDialog) onSave(confirmed bool) {
	if !confirmed {
		return
	}
	sd.save()
	if sd.onSaved != nil {
		sd.onSaved()
	}
}

func (sd *SettingsDialog) save() {
	if dir := sd.downloadDirEntry.Text; dir != "" {
		sd.settings.SetDownloadDirectory(dir)
	}
	if mode, err := model.ParseMode(sd.modeRadio.Selected); err == nil {
		sd.settings.SetDefaultMode(mode)
	}
	sd.settings.SetVolume(int(sd.volumeSlider.Value))
	if sd.previewSelect.Selected != "" {
		sd.settings.SetPreviewQuality(sd.previewSelect.Selected)
	}
	sd.settings.SetAutoRevealOnComplete(sd.autoRevealCheck.Checked)
}
