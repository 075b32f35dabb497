package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/tanq16/segdl/internal/output"
	"github.com/tanq16/segdl/internal/utils"
)

func newCleanCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "clean [path]",
		Short: "Remove segment files left behind by failed or interrupted downloads",
		Long: "With a directory, removes its whole temp folder. With an output file path, " +
			"removes only the segments belonging to that file.",
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			target := "."
			if len(args) == 1 {
				target = args[0]
			}
			var err error
			if info, statErr := os.Stat(target); statErr == nil && info.IsDir() {
				err = utils.Clean(target)
			} else {
				err = utils.CleanFunction(target)
			}
			if err != nil {
				return fmt.Errorf("error cleaning up temporary files: %w", err)
			}
			output.PrintSuccess("Temporary files cleaned up")
			return nil
		},
	}
}
