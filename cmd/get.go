package cmd

import (
	"errors"

	"github.com/spf13/cobra"
	"github.com/tanq16/segdl/internal/utils"
)

func newGetCmd() *cobra.Command {
	var outputPath string

	cmd := &cobra.Command{
		Use:     "get [URL] [--output OUTPUT_PATH]",
		Short:   "Download a video (or any range-capable URL) in parallel segments",
		Aliases: []string{"download", "dl"},
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if args[0] == "" {
				return errors.New("the video link cannot be empty")
			}
			s, cleanup := newScheduler()
			defer cleanup()
			ctx, cancel := signalContext()
			defer cancel()
			jobs := []utils.JobSpec{{URL: args[0], OutputPath: outputPath, Segments: cfg.Segments}}
			return s.Run(ctx, jobs)
		},
	}

	cmd.Flags().StringVarP(&outputPath, "output", "o", "", "Output file path (defaults to <title>.mp4)")
	return cmd
}
