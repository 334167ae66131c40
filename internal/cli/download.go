package cli

import (
	"fmt"
	"io"
	"sync"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/ytget/ytplay/internal/app"
	"github.com/ytget/ytplay/internal/download"
	"github.com/ytget/ytplay/internal/log"
	"github.com/ytget/ytplay/internal/model"
	"github.com/ytget/ytplay/internal/platform"
)

func newDownloadCmd(r *runner) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "download <url> [url...]",
		Short: "Download one or more videos sequentially",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return r.runDownload(cmd, args)
		},
	}
	bindDownloadFlags(cmd.Flags())
	_ = r.v.BindPFlag("metrics.addr", cmd.Flags().Lookup("metrics-addr"))
	return cmd
}

func bindDownloadFlags(fs *pflag.FlagSet) {
	fs.StringP("mode", "m", "video", "Download mode: video or audio")
	fs.StringP("format", "f", "", "Format label as listed by 'ytplay formats'; empty picks the best")
	fs.StringP("name", "n", "", "Output file name without extension; the title is used when empty")
	fs.StringP("out-dir", "o", "", "Output directory (defaults to ~/Downloads)")
	fs.Bool("playlist", false, "Expand playlist URLs into one download per entry")
	fs.String("metrics-addr", "", "Serve Prometheus metrics on this address while downloading")
}

func (r *runner) runDownload(cmd *cobra.Command, urls []string) error {
	ctx := cmd.Context()
	flags := cmd.Flags()

	mode, err := modeFlag(cmd)
	if err != nil {
		return err
	}
	label, _ := flags.GetString("format")
	name, _ := flags.GetString("name")
	expand, _ := flags.GetBool("playlist")
	dir, _ := flags.GetString("out-dir")
	if dir == "" {
		if dir, err = platform.GetHomeDownloadsDir(); err != nil {
			return &ExitError{Code: ExitCLIError, Err: err}
		}
	}

	s := r.services(dir)
	logger := log.WithComponent("cli")

	for _, u := range urls {
		format := app.BestFormat(mode)
		if label != "" {
			_, opts, err := s.Formats(ctx, u, mode)
			if err != nil {
				return &ExitError{Code: ExitDownloadError, Err: err}
			}
			if format, err = app.PickFormat(opts, label); err != nil {
				return &ExitError{Code: ExitCLIError, Err: err}
			}
		}
		ids, err := s.EnqueueURL(ctx, u, format, mode, name, expand)
		if err != nil {
			return &ExitError{Code: ExitDownloadError, Err: err}
		}
		logger.Debug().Str("url", u).Ints("jobs", ids).Msg("enqueued")
	}

	go func() {
		if err := s.ServeMetrics(ctx, r.tuning.Metrics.Addr); err != nil {
			logger.Error().Err(err).Msg("metrics endpoint stopped")
		}
	}()

	rep := newReporter(cmd.OutOrStdout(), s.Queue)
	if err := s.Queue.Start(ctx, rep.callbacks()); err != nil {
		return &ExitError{Code: ExitCLIError, Err: err}
	}
	s.Queue.Wait()

	failed := 0
	for _, job := range s.Queue.Jobs() {
		if job.Status == model.JobStatusFailed {
			failed++
		}
	}
	if failed > 0 {
		return &ExitError{Code: ExitDownloadError, Err: fmt.Errorf("%d of %d downloads failed", failed, len(s.Queue.Jobs()))}
	}
	if err := ctx.Err(); err != nil {
		return &ExitError{Code: ExitDownloadError, Err: err}
	}
	return nil
}

// reporter prints queue events as plain lines, one per tenth of progress.
type reporter struct {
	out   io.Writer
	queue *download.Orchestrator

	mu     sync.Mutex
	decile map[int]int
}

func newReporter(out io.Writer, q *download.Orchestrator) *reporter {
	return &reporter{out: out, queue: q, decile: make(map[int]int)}
}

func (p *reporter) callbacks() download.Callbacks {
	return download.Callbacks{
		OnProgress: func(id int, f float64) {
			p.mu.Lock()
			defer p.mu.Unlock()
			d := int(f * 10)
			if d <= p.decile[id] || d >= 10 {
				return
			}
			p.decile[id] = d
			fmt.Fprintf(p.out, "[%d] %3d%%\n", id+1, d*10)
		},
		OnItemDone: func(id int) {
			p.mu.Lock()
			defer p.mu.Unlock()
			job, _ := p.queue.Job(id)
			fmt.Fprintf(p.out, "[%d] done  %s\n", id+1, job.OutputPath)
		},
		OnItemError: func(id int, msg string) {
			p.mu.Lock()
			defer p.mu.Unlock()
			fmt.Fprintf(p.out, "[%d] failed %s\n", id+1, msg)
		},
		OnAllDone: func() {
			p.mu.Lock()
			defer p.mu.Unlock()
			fmt.Fprintln(p.out, "all downloads finished")
		},
	}
}
