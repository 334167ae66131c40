package ui

import (
	"context"
	"fmt"

	"fyne.io/fyne/v2"
	fyneapp "fyne.io/fyne/v2/app"
	"github.com/spf13/afero"

	"github.com/ytget/ytplay/internal/app"
	"github.com/ytget/ytplay/internal/config"
	"github.com/ytget/ytplay/internal/log"
	"github.com/ytget/ytplay/internal/metrics"
	"github.com/ytget/ytplay/internal/platform"
	"github.com/ytget/ytplay/internal/playback"
)

// Run opens the main window and blocks until it is closed or ctx is done.
func Run(ctx context.Context, t config.Tuning, version string) error {
	logger := log.WithComponent("ui")
	logger.Info().Str("version", version).Msg("starting")

	a := fyneapp.NewWithID(AppID)
	a.Settings().SetTheme(NewCompactTheme())

	settings := config.NewSettings(a)
	dir := settings.GetDownloadDirectory()
	if err := platform.CreateDirectoryIfNotExists(afero.NewOsFs(), dir); err != nil {
		logger.Warn().Err(err).Str("dir", dir).Msg("failed to ensure downloads dir")
	}

	svc := app.New(t, dir, metrics.NewRecorder())
	go func() {
		if err := svc.ServeMetrics(ctx, t.Metrics.Addr); err != nil {
			logger.Error().Err(err).Msg("metrics endpoint stopped")
		}
	}()

	w := a.NewWindow(fmt.Sprintf("%s %s", AppName, version))
	w.Resize(fyne.NewSize(WindowWidth, WindowHeight))
	w.SetMaster()

	root := NewRootUI(w, a, svc, settings, playback.DispatchScheduler{Dispatch: fyne.Do})

	go func() {
		<-ctx.Done()
		fyne.Do(a.Quit)
	}()

	w.ShowAndRun()
	root.Close()
	return nil
}
