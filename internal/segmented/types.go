package segmented

import (
	"context"
	"sync/atomic"
	"time"
)

// Resolution is what a Resolver knows about a video URL.
type Resolution struct {
	ContentURL        string
	TotalSize         int64
	Title             string
	RangesUnsupported bool
}

type Resolver interface {
	Resolve(ctx context.Context, url string) (*Resolution, error)
}

// DownloadJob is built once a URL has been resolved and is not modified afterwards.
type DownloadJob struct {
	ID           string
	SourceURL    string
	ContentURL   string
	Title        string
	SegmentCount int
	TotalSize    int64
	OutputPath   string
	SingleStream bool
}

// Segment is an inclusive byte range of the target file. bytesReceived has a
// single writer (the segment's fetcher) and is read by the progress aggregator.
type Segment struct {
	Index     int
	ByteStart int64
	ByteEnd   int64

	bytesReceived atomic.Int64
}

func (s *Segment) Size() int64 {
	return s.ByteEnd - s.ByteStart + 1
}

func (s *Segment) BytesReceived() int64 {
	return s.bytesReceived.Load()
}

func (s *Segment) Complete() bool {
	return s.bytesReceived.Load() == s.Size()
}

type ProgressSnapshot struct {
	TotalDownloaded       int64
	TotalSize             int64
	Percentage            float64
	ThroughputBytesPerSec float64
	ETASeconds            float64
	Elapsed               time.Duration
}

type Result struct {
	Job        DownloadJob
	OutputPath string
	Size       int64
	Elapsed    time.Duration
}
