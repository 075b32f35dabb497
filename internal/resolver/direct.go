package resolver

import (
	"context"
	"errors"
	"fmt"
	"mime"
	"net/http"
	"net/url"
	"path"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/tanq16/segdl/internal/segmented"
	"github.com/tanq16/segdl/internal/utils"
)

const maxRedirects = 5

// DirectResolver treats the URL itself as the content URL and learns its size
// from a HEAD request.
type DirectResolver struct {
	Client utils.HTTPDoer
}

func (d *DirectResolver) Resolve(ctx context.Context, link string) (*segmented.Resolution, error) {
	info, err := probe(ctx, d.Client, link)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", segmented.ErrResolutionFailed, err)
	}
	title := info.filename
	if title == "" {
		title = nameFromURL(info.url)
	}
	title = strings.TrimSuffix(title, path.Ext(title))
	return &segmented.Resolution{
		ContentURL:        info.url,
		TotalSize:         info.size,
		Title:             title,
		RangesUnsupported: !info.acceptRanges,
	}, nil
}

type headInfo struct {
	url          string
	size         int64
	filename     string
	acceptRanges bool
}

// probe issues HEAD requests and returns the final URL after redirects so it
// can be reused for ranged GETs.
func probe(ctx context.Context, client utils.HTTPDoer, link string) (*headInfo, error) {
	for range maxRedirects {
		req, err := http.NewRequestWithContext(ctx, http.MethodHead, link, nil)
		if err != nil {
			return nil, fmt.Errorf("error creating request: %w", err)
		}
		resp, err := client.Do(req)
		if err != nil {
			return nil, fmt.Errorf("error checking URL: %w", err)
		}
		resp.Body.Close()

		switch {
		case resp.StatusCode == http.StatusMovedPermanently || resp.StatusCode == http.StatusFound ||
			resp.StatusCode == http.StatusTemporaryRedirect || resp.StatusCode == http.StatusPermanentRedirect:
			location := resp.Header.Get("Location")
			if location == "" {
				return nil, errors.New("redirect without Location header")
			}
			next, err := resp.Request.URL.Parse(location)
			if err != nil {
				return nil, fmt.Errorf("invalid redirect location: %w", err)
			}
			log.Debug().Str("op", "resolver/direct").Msgf("Following redirect to %s", next)
			link = next.String()
			continue
		case resp.StatusCode == http.StatusNotFound:
			return nil, errors.New("URL not found (404)")
		case resp.StatusCode >= 400:
			return nil, fmt.Errorf("server returned error: %d", resp.StatusCode)
		}

		if resp.Request != nil && resp.Request.URL != nil {
			link = resp.Request.URL.String()
		}
		info := &headInfo{
			url:          link,
			filename:     filenameFromHeader(resp.Header.Get("Content-Disposition")),
			acceptRanges: resp.Header.Get("Accept-Ranges") == "bytes",
		}
		contentLength := resp.Header.Get("Content-Length")
		if contentLength == "" {
			return nil, errors.New("server didn't provide Content-Length header")
		}
		size, err := strconv.ParseInt(contentLength, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid Content-Length: %w", err)
		}
		if size <= 0 {
			return nil, errors.New("invalid file size reported by server")
		}
		info.size = size
		return info, nil
	}
	return nil, fmt.Errorf("too many redirects (%d)", maxRedirects)
}

func filenameFromHeader(contentDisposition string) string {
	if contentDisposition == "" {
		return ""
	}
	_, params, err := mime.ParseMediaType(contentDisposition)
	if err != nil {
		return ""
	}
	if fn := params["filename"]; fn != "" {
		return fn
	}
	if fn := params["filename*"]; strings.HasPrefix(fn, "UTF-8''") {
		unescaped, _ := url.PathUnescape(strings.TrimPrefix(fn, "UTF-8''"))
		return unescaped
	}
	return ""
}

func nameFromURL(link string) string {
	parsed, err := url.Parse(link)
	if err != nil {
		return ""
	}
	return path.Base(parsed.Path)
}
