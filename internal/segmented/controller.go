package segmented

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/tanq16/segdl/internal/utils"
	"golang.org/x/sync/errgroup"
)

type Options struct {
	// OutputPath wins over OutputDir. With neither set the file is written to
	// the working directory under the resolved title.
	OutputPath           string
	OutputDir            string
	Retries              int
	SingleStreamFallback bool
	ProgressInterval     time.Duration

	OnProgress func(message string, percent int)
	OnSnapshot func(ProgressSnapshot)
	OnSegment  func(line string)
	OnState    func(State)
	OnWarning  func(message string)
}

// Controller runs one segmented download through its stages. A Controller is
// single use.
type Controller struct {
	resolver Resolver
	client   utils.HTTPDoer
	opts     Options
	state    atomic.Int32
	notifyMu sync.Mutex
}

func NewController(resolver Resolver, client utils.HTTPDoer, opts Options) *Controller {
	return &Controller{resolver: resolver, client: client, opts: opts}
}

func (c *Controller) State() State {
	return State(c.state.Load())
}

func (c *Controller) transition(to State) {
	from := c.State()
	if !canTransition(from, to) {
		log.Error().Str("op", "segmented/controller").Msgf("Illegal transition %s -> %s", from, to)
		return
	}
	c.state.Store(int32(to))
	log.Debug().Str("op", "segmented/controller").Msgf("State %s -> %s", from, to)
	if c.opts.OnState != nil {
		c.opts.OnState(to)
	}
}

func (c *Controller) progress(message string, percent int) {
	if c.opts.OnProgress == nil {
		return
	}
	c.notifyMu.Lock()
	defer c.notifyMu.Unlock()
	c.opts.OnProgress(message, min(max(percent, 0), 100))
}

// fetchProgress holds back 100 until the output file is in place.
func (c *Controller) fetchProgress(message string, percent int) {
	c.progress(message, min(percent, 99))
}

func (c *Controller) warn(message string) {
	log.Warn().Str("op", "segmented/controller").Msg(message)
	if c.opts.OnWarning == nil {
		return
	}
	c.notifyMu.Lock()
	defer c.notifyMu.Unlock()
	c.opts.OnWarning(message)
}

func (c *Controller) segmentLine(line string) {
	if c.opts.OnSegment == nil {
		return
	}
	c.notifyMu.Lock()
	defer c.notifyMu.Unlock()
	c.opts.OnSegment(line)
}

func (c *Controller) fail(err error) error {
	stage := c.State()
	c.transition(StateFailed)
	return &JobError{Stage: stage, Err: err}
}

// Start downloads videoURL in segmentCount parallel ranges and returns once
// the output file is in place or the job has failed.
func (c *Controller) Start(ctx context.Context, videoURL string, segmentCount int) (*Result, error) {
	if c.State() != StateIdle {
		return nil, fmt.Errorf("%w: controller already used", ErrInvalidConfiguration)
	}
	if segmentCount <= 0 {
		return nil, fmt.Errorf("%w: segment count must be positive, got %d", ErrInvalidConfiguration, segmentCount)
	}
	startTime := time.Now()

	c.transition(StateResolving)
	c.progress("Resolving link...", 0)
	res, err := c.resolver.Resolve(ctx, videoURL)
	if err != nil {
		if !errors.Is(err, ErrResolutionFailed) {
			err = fmt.Errorf("%w: %w", ErrResolutionFailed, err)
		}
		return nil, c.fail(err)
	}
	if res.ContentURL == "" || res.TotalSize <= 0 {
		return nil, c.fail(fmt.Errorf("%w: resolver returned no usable content for %s", ErrResolutionFailed, videoURL))
	}

	c.transition(StatePlanning)
	c.progress("Connecting to server...", 0)
	job, segments, err := c.plan(videoURL, segmentCount, res)
	if err != nil {
		return nil, c.fail(err)
	}
	parts := NewPartStore(job.OutputPath)
	if err := parts.Prepare(); err != nil {
		return nil, c.fail(err)
	}
	log.Info().Str("op", "segmented/controller").Str("job", job.ID).Msgf("Downloading %s (%d bytes) in %d segments", job.OutputPath, job.TotalSize, len(segments))

	c.transition(StateFetching)
	final, err := c.fetchAll(ctx, job, segments, parts)
	if err != nil {
		return nil, c.fail(err)
	}

	c.transition(StateAssembling)
	c.fetchProgress("Assembling segments...", int(final.Percentage))
	size, err := Assemble(segments, parts, job.OutputPath)
	if err != nil {
		return nil, c.fail(err)
	}
	if entries, err := os.ReadDir(parts.Dir()); err == nil && len(entries) == 0 {
		os.Remove(parts.Dir())
	}

	c.transition(StateCompleted)
	c.progress("Download completed", 100)
	elapsed := time.Since(startTime)
	log.Info().Str("op", "segmented/controller").Str("job", job.ID).Msgf("Completed %s in %s", job.OutputPath, elapsed.Round(time.Millisecond))
	return &Result{Job: job, OutputPath: job.OutputPath, Size: size, Elapsed: elapsed}, nil
}

func (c *Controller) plan(videoURL string, segmentCount int, res *Resolution) (DownloadJob, []*Segment, error) {
	job := DownloadJob{
		ID:           uuid.NewString(),
		SourceURL:    videoURL,
		ContentURL:   res.ContentURL,
		Title:        res.Title,
		SegmentCount: segmentCount,
		TotalSize:    res.TotalSize,
		OutputPath:   c.outputPath(res.Title),
	}
	if res.RangesUnsupported {
		if c.opts.SingleStreamFallback {
			c.warn("Server does not advertise ranges, using a single stream")
			job.SingleStream = true
			job.SegmentCount = 1
		} else {
			c.warn("Server does not advertise ranges, trying segments anyway")
		}
	}
	segments, err := Plan(job.TotalSize, job.SegmentCount)
	return job, segments, err
}

func (c *Controller) outputPath(title string) string {
	path := c.opts.OutputPath
	if path == "" {
		path = filepath.Join(c.opts.OutputDir, utils.SanitizeFilename(title)+utils.VideoExtension)
	}
	if _, err := os.Stat(path); err == nil {
		path = utils.RenewOutputPath(path)
	}
	return path
}

// fetchAll runs every segment fetcher next to the aggregator. The first failed
// segment cancels the others.
func (c *Controller) fetchAll(ctx context.Context, job DownloadJob, segments []*Segment, parts PartStore) (ProgressSnapshot, error) {
	fetcher := &Fetcher{
		Client:       c.client,
		URL:          job.ContentURL,
		TotalSize:    job.TotalSize,
		Parts:        parts,
		Retries:      c.opts.Retries,
		SingleStream: job.SingleStream,
		OnSegment:    c.segmentLine,
	}
	aggregator := &Aggregator{
		Segments:   segments,
		TotalSize:  job.TotalSize,
		Interval:   c.opts.ProgressInterval,
		OnSnapshot: c.opts.OnSnapshot,
		OnProgress: c.fetchProgress,
	}
	done := make(chan struct{})
	aggDone := make(chan ProgressSnapshot, 1)
	go func() {
		aggDone <- aggregator.Run(done)
	}()

	g, gctx := errgroup.WithContext(ctx)
	for _, seg := range segments {
		g.Go(func() error {
			return fetcher.Fetch(gctx, seg)
		})
	}
	err := g.Wait()
	close(done)
	return <-aggDone, err
}
