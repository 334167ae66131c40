package ui

import (
	"fmt"
	"image/color"
	"strings"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/widget"

	"github.com/ytget/ytplay/internal/model"
)

// JobActions are the row button handlers. Any may be nil.
type JobActions struct {
	OnReveal  func(path string)
	OnOpen    func(path string)
	OnPreview func(path string)
	OnRetry   func(id int)
}

// JobRow renders one queued download: name, status, progress and actions
type JobRow struct {
	widget.BaseWidget

	job     model.JobRecord
	actions JobActions

	titleLabel    *widget.Label
	statusLabel   *widget.Label
	progressLabel *widget.Label
	progressBar   *widget.ProgressBar
	errorLabel    *widget.Label

	revealBtn  *widget.Button
	openBtn    *widget.Button
	previewBtn *widget.Button
	retryBtn   *widget.Button
}

// NewJobRow creates an empty row; list items are filled with Update.
func NewJobRow(actions JobActions) *JobRow {
	r := &JobRow{actions: actions}
	r.ExtendBaseWidget(r)

	r.titleLabel = widget.NewLabel("")
	r.titleLabel.TextStyle = fyne.TextStyle{Bold: true}
	r.titleLabel.Truncation = fyne.TextTruncateEllipsis

	r.statusLabel = widget.NewLabel("")
	r.statusLabel.Alignment = fyne.TextAlignTrailing
	r.progressLabel = widget.NewLabel("")
	r.progressLabel.Alignment = fyne.TextAlignTrailing
	r.progressBar = widget.NewProgressBar()
	r.progressBar.TextFormatter = func() string { return "" }
	r.errorLabel = widget.NewLabel("")
	r.errorLabel.Importance = widget.DangerImportance
	r.errorLabel.Truncation = fyne.TextTruncateEllipsis
	r.errorLabel.Hide()

	// The handlers read r.job at click time; rows are recycled by the list.
	r.revealBtn = widget.NewButton("reveal", func() {
		if r.actions.OnReveal != nil && r.job.OutputPath != "" {
			r.actions.OnReveal(r.job.OutputPath)
		}
	})
	r.openBtn = widget.NewButton("open", func() {
		if r.actions.OnOpen != nil && r.job.OutputPath != "" {
			r.actions.OnOpen(r.job.OutputPath)
		}
	})
	r.previewBtn = widget.NewButton(IconPlay, func() {
		if r.actions.OnPreview != nil && r.job.OutputPath != "" {
			r.actions.OnPreview(r.job.OutputPath)
		}
	})
	r.retryBtn = widget.NewButton("retry", func() {
		if r.actions.OnRetry != nil {
			r.actions.OnRetry(r.job.ID)
		}
	})
	return r
}

// Update shows job in the row.
func (r *JobRow) Update(job model.JobRecord) {
	r.job = job

	r.titleLabel.SetText(cleanText(job.DisplayName()))

	switch job.Status {
	case model.JobStatusFailed:
		r.statusLabel.Importance = widget.DangerImportance
		r.statusLabel.SetText(IconError + " " + job.Status.String())
	case model.JobStatusCompleted:
		r.statusLabel.Importance = widget.SuccessImportance
		r.statusLabel.SetText(job.Status.String())
	case model.JobStatusDownloading:
		r.statusLabel.Importance = widget.HighImportance
		r.statusLabel.SetText(IconPlay + " " + job.Status.String())
	default:
		r.statusLabel.Importance = widget.MediumImportance
		r.statusLabel.SetText(IconPending + " " + job.Status.String())
	}

	r.progressBar.SetValue(job.Progress)
	if job.Status == model.JobStatusCompleted {
		r.progressLabel.SetText("")
	} else {
		r.progressLabel.SetText(fmt.Sprintf(ProgressLabelFormat, job.Percent()))
	}

	if job.LastError != "" && job.Status == model.JobStatusFailed {
		r.errorLabel.SetText(job.LastError)
		r.errorLabel.Show()
	} else {
		r.errorLabel.Hide()
	}

	hasFile := job.Status == model.JobStatusCompleted && job.OutputPath != ""
	setEnabled(r.revealBtn, hasFile)
	setEnabled(r.openBtn, hasFile)
	setEnabled(r.previewBtn, hasFile && job.Mode == model.ModeVideo)
	setEnabled(r.retryBtn, job.Status.IsFinished())
}

// Job returns the job currently shown.
func (r *JobRow) Job() model.JobRecord {
	return r.job
}

// CreateRenderer implements fyne.Widget.
func (r *JobRow) CreateRenderer() fyne.WidgetRenderer {
	fixedWidth := func(w float32, obj fyne.CanvasObject) fyne.CanvasObject {
		spacer := canvas.NewRectangle(color.Transparent)
		spacer.SetMinSize(fyne.NewSize(w, obj.MinSize().Height))
		return container.NewStack(spacer, obj)
	}

	info := container.NewHBox(
		fixedWidth(StatusLabelWidth, r.statusLabel),
		fixedWidth(PercentLabelWidth, r.progressLabel),
	)
	actions := container.NewHBox(r.previewBtn, r.revealBtn, r.openBtn, r.retryBtn)
	header := container.NewBorder(nil, nil, nil, container.NewHBox(info, actions), r.titleLabel)

	spacer := canvas.NewRectangle(color.Transparent)
	spacer.SetMinSize(fyne.NewSize(RowMinWidth, 0))

	return widget.NewSimpleRenderer(container.NewVBox(
		spacer,
		header,
		r.progressBar,
		r.errorLabel,
		widget.NewSeparator(),
	))
}

func setEnabled(b *widget.Button, enabled bool) {
	if enabled {
		b.Enable()
		return
	}
	b.Disable()
}

// cleanText flattens control whitespace that breaks single-line labels
func cleanText(s string) string {
	return strings.TrimSpace(strings.NewReplacer("\n", " ", "\r", " ", "\t", " ").Replace(s))
}
