package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/tanq16/segdl/internal/utils"
	"gopkg.in/yaml.v3"
)

// BatchFile lists downloads as
//
//	downloads:
//	  - link: https://...
//	    op: out.mp4
//	    segments: 8
type BatchFile struct {
	Downloads []utils.BatchEntry `yaml:"downloads"`
}

func newBatchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "batch [YAML_FILE]",
		Short: "Process multiple downloads from a YAML file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			jobs, err := readBatchFile(args[0], cfg.Segments)
			if err != nil {
				return err
			}
			s, cleanup := newScheduler()
			defer cleanup()
			ctx, cancel := signalContext()
			defer cancel()
			return s.Run(ctx, jobs)
		},
	}
}

func readBatchFile(path string, defaultSegments int) ([]utils.JobSpec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading YAML file: %w", err)
	}
	var batch BatchFile
	if err := yaml.Unmarshal(data, &batch); err != nil {
		return nil, fmt.Errorf("error parsing YAML file: %w", err)
	}
	var jobs []utils.JobSpec
	for i, entry := range batch.Downloads {
		if entry.Link == "" {
			log.Warn().Str("op", "cmd/batch").Msgf("Entry %d has an empty link, skipping", i+1)
			continue
		}
		segments := entry.Segments
		if segments <= 0 {
			segments = defaultSegments
		}
		jobs = append(jobs, utils.JobSpec{URL: entry.Link, OutputPath: entry.OutputPath, Segments: segments})
	}
	if len(jobs) == 0 {
		return nil, errors.New("no valid jobs found in the batch file")
	}
	return jobs, nil
}
