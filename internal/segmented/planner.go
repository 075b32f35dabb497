package segmented

import "fmt"

// Plan splits [0, totalSize) into segmentCount contiguous ranges. All ranges
// share the same size except the last, which absorbs the division remainder.
func Plan(totalSize int64, segmentCount int) ([]*Segment, error) {
	if segmentCount <= 0 {
		return nil, fmt.Errorf("%w: segment count must be positive, got %d", ErrInvalidConfiguration, segmentCount)
	}
	if totalSize <= 0 {
		return nil, fmt.Errorf("%w: total size must be positive, got %d", ErrInvalidConfiguration, totalSize)
	}
	if int64(segmentCount) > totalSize {
		return nil, fmt.Errorf("%w: %d segments for %d bytes", ErrInvalidConfiguration, segmentCount, totalSize)
	}
	base := totalSize / int64(segmentCount)
	segments := make([]*Segment, segmentCount)
	for i := range segmentCount {
		start := int64(i) * base
		end := start + base - 1
		if i == segmentCount-1 {
			end = totalSize - 1
		}
		segments[i] = &Segment{Index: i, ByteStart: start, ByteEnd: end}
	}
	return segments, nil
}
