package cli

import (
	"context"
	"fmt"
	"io"
	"path/filepath"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/ytget/ytplay/internal/app"
	"github.com/ytget/ytplay/internal/catalog"
	"github.com/ytget/ytplay/internal/model"
	"github.com/ytget/ytplay/internal/playback"
)

func newPlayCmd(r *runner) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "play <url|file>",
		Short: "Play a video preview or a local file in the player window",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			quality, _ := cmd.Flags().GetString("quality")
			return r.runPlay(cmd.Context(), cmd.OutOrStdout(), args[0], quality)
		},
	}
	cmd.Flags().StringP("quality", "q", "", "Preview quality label, e.g. 720p")
	return cmd
}

// playable is what a session needs to open a source
type playable struct {
	uri     string
	title   string
	streams map[string]string
}

func resolvePlayable(ctx context.Context, s *app.Services, fs afero.Fs, src, quality string) (playable, error) {
	if ok, _ := afero.Exists(fs, src); ok {
		return playable{uri: src, title: filepath.Base(src)}, nil
	}

	info, _, err := s.Formats(ctx, src, model.ModeVideo)
	if err != nil {
		return playable{}, err
	}
	streams := catalog.PreviewStreams(info.Formats)
	if u, ok := streams[quality]; ok {
		return playable{uri: u, title: info.Title, streams: streams}, nil
	}
	if quality != "" {
		return playable{}, fmt.Errorf("%w: %s (have %v)", playback.ErrUnknownQuality, quality, catalog.Labels(streams))
	}
	_, u, ok := catalog.PreviewURL(streams)
	if !ok {
		return playable{}, fmt.Errorf("no preview stream for %s", src)
	}
	return playable{uri: u, title: info.Title, streams: streams}, nil
}

func (r *runner) runPlay(ctx context.Context, out io.Writer, src, quality string) error {
	s := r.services("")
	p, err := resolvePlayable(ctx, s, afero.NewOsFs(), src, quality)
	if err != nil {
		return &ExitError{Code: ExitPlaybackError, Err: err}
	}

	loop := playback.NewLoop()
	loopCtx, stopLoop := context.WithCancel(context.Background())
	defer stopLoop()
	go loop.Run(loopCtx)

	done := make(chan error, 1)
	finish := func(err error) {
		select {
		case done <- err:
		default:
		}
	}

	var session *playback.Session
	cb := playback.Callbacks{
		OnState: func(st playback.State) {
			if st == playback.StateEnded {
				finish(nil)
			}
		},
		OnStatus: func(st playback.Status) {
			fmt.Fprintf(out, "\r%s", st.Label)
		},
		OnClose: func() { finish(nil) },
		OnError: finish,
	}

	if err := loop.Do(ctx, func() {
		session = s.NewSession(nil, loop.Scheduler(), cb)
		session.Load(p.uri, p.title, p.streams)
	}); err != nil {
		return &ExitError{Code: ExitPlaybackError, Err: err}
	}
	fmt.Fprintf(out, "Playing %s\n", p.title)

	select {
	case err = <-done:
	case <-ctx.Done():
	}
	fmt.Fprintln(out)
	_ = loop.Do(context.Background(), session.Release)

	if err != nil {
		return &ExitError{Code: ExitPlaybackError, Err: err}
	}
	return nil
}

func newEngineCmd(r *runner) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "engine",
		Short: "Manage the external download engine",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "install",
		Short: "Install or update yt-dlp",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := r.services("").InstallEngine(cmd.Context()); err != nil {
				return &ExitError{Code: ExitMissingDep, Err: err}
			}
			fmt.Fprintln(cmd.OutOrStdout(), "yt-dlp is installed")
			return nil
		},
	})
	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			fmt.Fprintf(cmd.OutOrStdout(), "ytplay %s\n", Version)
			return nil
		},
	}
}
