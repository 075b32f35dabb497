package segmented

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidConfiguration = errors.New("invalid configuration")
	ErrResolutionFailed     = errors.New("resolution failed")
	ErrRangeNotSupported    = errors.New("server does not support range requests")
	ErrIncompleteSegment    = errors.New("segment not fully received")
)

// SegmentFetchError reports a network or protocol failure for one segment.
type SegmentFetchError struct {
	Index int
	Err   error
}

func (e *SegmentFetchError) Error() string {
	return fmt.Sprintf("segment %d fetch failed: %v", e.Index, e.Err)
}

func (e *SegmentFetchError) Unwrap() error {
	return e.Err
}

// AssemblyError reports an I/O failure while concatenating parts.
type AssemblyError struct {
	Err error
}

func (e *AssemblyError) Error() string {
	return fmt.Sprintf("assembly failed: %v", e.Err)
}

func (e *AssemblyError) Unwrap() error {
	return e.Err
}

// JobError is the single terminal failure of a download and names the stage
// the job was in when it failed.
type JobError struct {
	Stage State
	Err   error
}

func (e *JobError) Error() string {
	return fmt.Sprintf("%s: %v", e.Stage, e.Err)
}

func (e *JobError) Unwrap() error {
	return e.Err
}
