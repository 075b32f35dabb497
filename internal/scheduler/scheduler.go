package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/tanq16/segdl/internal/history"
	"github.com/tanq16/segdl/internal/output"
	"github.com/tanq16/segdl/internal/segmented"
	"github.com/tanq16/segdl/internal/utils"
)

// ResolverFunc picks the resolver for one job URL.
type ResolverFunc func(url string) (segmented.Resolver, error)

// Recorder stores the outcome of finished jobs.
type Recorder interface {
	Record(ctx context.Context, e history.Entry) error
}

type Scheduler struct {
	Resolve  ResolverFunc
	Client   utils.HTTPDoer
	Output   *output.Manager
	History  Recorder
	Workers  int
	Defaults segmented.Options
}

// Run downloads jobs with s.Workers jobs in flight and returns an error if any
// job failed.
func (s *Scheduler) Run(ctx context.Context, jobs []utils.JobSpec) error {
	workers := max(s.Workers, 1)
	s.Output.StartDisplay()
	defer s.Output.StopDisplay()

	jobCh := make(chan utils.JobSpec, len(jobs))
	for _, job := range jobs {
		jobCh <- job
	}
	close(jobCh)

	var failed int
	var mu sync.Mutex
	var wg sync.WaitGroup
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for job := range jobCh {
				if err := s.process(ctx, job); err != nil {
					mu.Lock()
					failed++
					mu.Unlock()
				}
			}
		}()
	}
	wg.Wait()
	if failed > 0 {
		return fmt.Errorf("%d of %d downloads failed", failed, len(jobs))
	}
	return nil
}

func (s *Scheduler) process(ctx context.Context, job utils.JobSpec) error {
	id := s.Output.Register(job.URL)
	started := time.Now()
	if ctx.Err() != nil {
		s.Output.ReportError(id, ctx.Err())
		return ctx.Err()
	}

	resolver, err := s.Resolve(job.URL)
	if err != nil {
		s.Output.ReportError(id, err)
		s.record(ctx, nil, job, started, err)
		return err
	}

	opts := s.Defaults
	if job.OutputPath != "" {
		opts.OutputPath = job.OutputPath
	}
	opts.OnProgress = func(message string, percent int) {
		s.Output.SetMessage(id, message, percent)
	}
	opts.OnSnapshot = func(snap segmented.ProgressSnapshot) {
		s.Output.SetSnapshot(id, snap)
	}
	opts.OnSegment = func(line string) {
		s.Output.AddStreamLine(id, line)
	}
	opts.OnWarning = func(message string) {
		s.Output.Warn(id, message)
	}

	segments := job.Segments
	if segments == 0 {
		segments = utils.DefaultSegments
	}
	controller := segmented.NewController(resolver, s.Client, opts)
	result, err := controller.Start(ctx, job.URL, segments)
	if err != nil {
		log.Error().Str("op", "scheduler").Err(err).Msgf("Download failed for %s", job.URL)
		s.Output.ReportError(id, err)
		s.record(ctx, nil, job, started, err)
		return err
	}
	s.Output.SetLabel(id, result.OutputPath)
	s.Output.Complete(id, fmt.Sprintf("Completed %s (%s in %s)", result.OutputPath,
		utils.FormatBytes(uint64(result.Size)), result.Elapsed.Round(time.Second)))
	s.record(ctx, result, job, started, nil)
	return nil
}

func (s *Scheduler) record(ctx context.Context, result *segmented.Result, job utils.JobSpec, started time.Time, jobErr error) {
	if s.History == nil {
		return
	}
	entry := history.Entry{
		SourceURL:  job.URL,
		OutputPath: job.OutputPath,
		Segments:   job.Segments,
		Status:     history.StatusCompleted,
		StartedAt:  started,
		FinishedAt: time.Now(),
	}
	if result != nil {
		entry.JobID = result.Job.ID
		entry.OutputPath = result.OutputPath
		entry.TotalSize = result.Size
		entry.Segments = result.Job.SegmentCount
	} else {
		entry.JobID = uuid.NewString()
	}
	if jobErr != nil {
		entry.Status = history.StatusFailed
		entry.Error = jobErr.Error()
	}
	// the job context may already be cancelled; the record should still land
	recordCtx := context.WithoutCancel(ctx)
	if err := s.History.Record(recordCtx, entry); err != nil && !errors.Is(err, context.Canceled) {
		log.Warn().Str("op", "scheduler").Err(err).Msg("Failed to record history")
	}
}
