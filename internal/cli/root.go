// Package cli implements the ytplay command line.
package cli

import (
	"context"
	"io"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ytget/ytplay/internal/app"
	"github.com/ytget/ytplay/internal/config"
	"github.com/ytget/ytplay/internal/log"
	"github.com/ytget/ytplay/internal/metrics"
)

const (
	ExitOK            = 0
	ExitCLIError      = 1
	ExitMissingDep    = 2
	ExitDownloadError = 3
	ExitPlaybackError = 4
)

// Version is set during build via -ldflags "-X github.com/ytget/ytplay/internal/cli.Version=X.Y.Z"
var Version = "dev"

// ExitError wraps an error with a process exit code.
type ExitError struct {
	Code int
	Err  error
}

func (e *ExitError) Error() string {
	if e.Err == nil {
		return ""
	}
	return e.Err.Error()
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

// GUIFunc runs the desktop interface until it is closed
type GUIFunc func(ctx context.Context, t config.Tuning, version string) error

type runner struct {
	v      *viper.Viper
	gui    GUIFunc
	opts   []app.Option
	tuning config.Tuning
	logs   io.Closer
}

func newRunner(gui GUIFunc, opts ...app.Option) *runner {
	return &runner{
		v:    config.NewViper(""),
		gui:  gui,
		opts: opts,
	}
}

func newRootCmd(r *runner) *cobra.Command {
	root := &cobra.Command{
		Use:               "ytplay",
		Short:             "Download and preview online videos",
		Long:              "ytplay resolves the formats of a video, downloads one or many items in the background and plays previews or local files in an embedded player. Without a subcommand it opens the desktop window.",
		SilenceUsage:      true,
		SilenceErrors:     true,
		Args:              cobra.NoArgs,
		PersistentPreRunE: r.setup,
		PersistentPostRun: r.teardown,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if r.gui == nil {
				return &ExitError{Code: ExitCLIError, Err: errNoGUI}
			}
			return r.gui(cmd.Context(), r.tuning, Version)
		},
	}

	pf := root.PersistentFlags()
	pf.String("config-dir", config.DefaultConfigDir(), "Directory holding ytplay.{yaml,toml,json}")
	pf.String("log-level", "", "Log level: debug, info, warn, error")
	pf.Bool("log-console", false, "Human readable log output")
	pf.String("log-file", "", "Also write logs to this rotating file")
	_ = r.v.BindPFlag("log.level", pf.Lookup("log-level"))
	_ = r.v.BindPFlag("log.console", pf.Lookup("log-console"))
	_ = r.v.BindPFlag("log.file", pf.Lookup("log-file"))

	root.AddCommand(newFormatsCmd(r))
	root.AddCommand(newDownloadCmd(r))
	root.AddCommand(newPlayCmd(r))
	root.AddCommand(newEngineCmd(r))
	root.AddCommand(newVersionCmd())

	return root
}

// Execute runs the CLI with the provided context. gui backs the root command.
func Execute(ctx context.Context, gui GUIFunc) error {
	return newRootCmd(newRunner(gui)).ExecuteContext(ctx)
}

func (r *runner) setup(cmd *cobra.Command, _ []string) error {
	if dir, _ := cmd.Flags().GetString("config-dir"); dir != "" {
		r.v.AddConfigPath(dir)
	}
	if err := config.ReadConfig(r.v); err != nil {
		return &ExitError{Code: ExitCLIError, Err: err}
	}
	t, err := config.LoadTuning(r.v)
	if err != nil {
		return &ExitError{Code: ExitCLIError, Err: err}
	}
	r.tuning = t
	r.logs = log.Configure(app.LogConfig(t.Log, "ytplay"))
	logger := log.WithComponent("cli")
	logger.Debug().Str("command", cmd.Name()).Str("config", r.v.ConfigFileUsed()).Msg("starting")
	return nil
}

func (r *runner) teardown(*cobra.Command, []string) {
	if r.logs != nil {
		_ = r.logs.Close()
	}
}

func (r *runner) services(downloadDir string) *app.Services {
	return app.New(r.tuning, downloadDir, metrics.NewRecorder(), r.opts...)
}
