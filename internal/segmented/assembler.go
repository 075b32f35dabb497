package segmented

import (
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog/log"
)

// Assemble concatenates the parts of segments in index order into outputPath.
// Output is staged inside the part store and renamed into place only after
// every byte has been written, so a failure never leaves a partial file at
// outputPath. Consumed parts are deleted as they are copied.
func Assemble(segments []*Segment, parts PartStore, outputPath string) (int64, error) {
	var expected int64
	for i, seg := range segments {
		if seg.Index != i {
			return 0, &AssemblyError{Err: fmt.Errorf("segment %d out of order at position %d", seg.Index, i)}
		}
		if !seg.Complete() {
			return 0, &AssemblyError{Err: fmt.Errorf("%w: segment %d has %d of %d bytes", ErrIncompleteSegment, seg.Index, seg.BytesReceived(), seg.Size())}
		}
		expected += seg.Size()
	}

	stagingPath := parts.StagingPath()
	written, err := concatParts(segments, parts)
	if err != nil {
		os.Remove(stagingPath)
		return written, &AssemblyError{Err: err}
	}
	if written != expected {
		os.Remove(stagingPath)
		return written, &AssemblyError{Err: fmt.Errorf("size mismatch: expected %d, got %d", expected, written)}
	}
	if err := os.Rename(stagingPath, outputPath); err != nil {
		os.Remove(stagingPath)
		return written, &AssemblyError{Err: fmt.Errorf("error finalizing output file: %w", err)}
	}
	log.Debug().Str("op", "segmented/assemble").Int64("bytes", written).Msgf("Assembled %s", outputPath)
	return written, nil
}

func concatParts(segments []*Segment, parts PartStore) (int64, error) {
	dest, err := parts.CreateStaging()
	if err != nil {
		return 0, fmt.Errorf("error creating output file: %w", err)
	}
	defer dest.Close()

	var total int64
	for _, seg := range segments {
		n, err := appendPart(dest, parts.Path(seg.Index))
		total += n
		if err != nil {
			return total, fmt.Errorf("error copying segment %d: %w", seg.Index, err)
		}
		if err := parts.Remove(seg.Index); err != nil {
			return total, fmt.Errorf("error removing segment %d: %w", seg.Index, err)
		}
	}
	if err := dest.Sync(); err != nil {
		return total, err
	}
	return total, dest.Close()
}

func appendPart(dest io.Writer, path string) (int64, error) {
	src, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer src.Close()
	return io.Copy(dest, src)
}
