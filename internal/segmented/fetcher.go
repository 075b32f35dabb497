package segmented

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/tanq16/segdl/internal/utils"
)

// Fetcher downloads single segments of one job into its part store.
type Fetcher struct {
	Client       utils.HTTPDoer
	URL          string
	TotalSize    int64
	Parts        PartStore
	Retries      int
	SingleStream bool
	OnSegment    func(line string)
}

// Fetch downloads seg, retrying up to f.Retries times. Any returned error is a
// *SegmentFetchError.
func (f *Fetcher) Fetch(ctx context.Context, seg *Segment) error {
	var lastErr error
	retries := max(f.Retries, 0)
	for attempt := range retries + 1 {
		if attempt > 0 {
			log.Warn().Str("op", "segmented/fetch").Int("segment", seg.Index).Msgf("Retrying segment (attempt %d/%d)", attempt+1, retries+1)
			select {
			case <-time.After(time.Duration(attempt+1) * 500 * time.Millisecond):
			case <-ctx.Done():
				return &SegmentFetchError{Index: seg.Index, Err: ctx.Err()}
			}
		}
		lastErr = f.attempt(ctx, seg)
		if lastErr == nil {
			f.report(seg)
			return nil
		}
		log.Debug().Str("op", "segmented/fetch").Int("segment", seg.Index).Err(lastErr).Msgf("Segment attempt %d failed", attempt+1)
		if ctx.Err() != nil || errors.Is(lastErr, ErrRangeNotSupported) {
			break
		}
	}
	return &SegmentFetchError{Index: seg.Index, Err: lastErr}
}

func (f *Fetcher) attempt(ctx context.Context, seg *Segment) error {
	seg.bytesReceived.Store(0)
	out, err := f.Parts.Create(seg.Index)
	if err != nil {
		return fmt.Errorf("error opening part file: %w", err)
	}
	defer out.Close()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.URL, nil)
	if err != nil {
		return fmt.Errorf("error creating request: %w", err)
	}
	if !f.SingleStream {
		req.Header.Set("Range", fmt.Sprintf("bytes=%d-%d", seg.ByteStart, seg.ByteEnd))
	}
	req.Header.Set("Connection", "keep-alive")
	resp, err := f.Client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	switch {
	case f.SingleStream && resp.StatusCode == http.StatusOK:
	case !f.SingleStream && resp.StatusCode == http.StatusPartialContent:
	case !f.SingleStream && resp.StatusCode == http.StatusOK:
		return ErrRangeNotSupported
	default:
		return fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	buffer := make([]byte, utils.DefaultBufferSize)
	for {
		n, readErr := resp.Body.Read(buffer)
		if n > 0 {
			if seg.bytesReceived.Load()+int64(n) > seg.Size() {
				return fmt.Errorf("server sent more than %d bytes", seg.Size())
			}
			if _, err := out.Write(buffer[:n]); err != nil {
				return fmt.Errorf("error writing part file: %w", err)
			}
			seg.bytesReceived.Add(int64(n))
		}
		if readErr != nil {
			if readErr == io.EOF {
				break
			}
			return fmt.Errorf("error reading body: %w", readErr)
		}
	}
	if got := seg.bytesReceived.Load(); got != seg.Size() {
		return fmt.Errorf("size mismatch: expected %d bytes, got %d", seg.Size(), got)
	}
	return out.Sync()
}

func (f *Fetcher) report(seg *Segment) {
	received := seg.BytesReceived()
	share := float64(received) / float64(f.TotalSize) * 100
	line := fmt.Sprintf("Segment %d downloaded: %d bytes (%.2f%%)", seg.Index, received, share)
	log.Debug().Str("op", "segmented/fetch").Int("segment", seg.Index).Int64("bytes", received).Msg("Segment complete")
	if f.OnSegment != nil {
		f.OnSegment(line)
	}
}
