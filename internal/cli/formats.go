package cli

import (
	"errors"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/ytget/ytplay/internal/catalog"
	"github.com/ytget/ytplay/internal/model"
)

var errNoGUI = errors.New("desktop interface not available in this build")

func newFormatsCmd(r *runner) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "formats <url>",
		Short: "List the downloadable formats and preview streams of a video",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			mode, err := modeFlag(cmd)
			if err != nil {
				return err
			}

			s := r.services("")
			info, opts, err := s.Formats(cmd.Context(), args[0], mode)
			if err != nil {
				return &ExitError{Code: ExitDownloadError, Err: err}
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Title:    %s\n", info.Title)
			fmt.Fprintf(out, "Duration: %s\n\n", info.DurationString())

			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "LABEL\tSELECTOR")
			for _, o := range opts {
				fmt.Fprintf(tw, "%s\t%s\n", o.Label, o.Selector)
			}
			if err := tw.Flush(); err != nil {
				return err
			}

			if mode == model.ModeVideo {
				streams := catalog.PreviewStreams(info.Formats)
				if len(streams) > 0 {
					fmt.Fprintf(out, "\nPreview: %v\n", catalog.Labels(streams))
				}
			}
			return nil
		},
	}
	cmd.Flags().StringP("mode", "m", "video", "Download mode: video or audio")
	return cmd
}

func modeFlag(cmd *cobra.Command) (model.Mode, error) {
	raw, _ := cmd.Flags().GetString("mode")
	mode, err := model.ParseMode(raw)
	if err != nil {
		return "", &ExitError{Code: ExitCLIError, Err: err}
	}
	return mode, nil
}
