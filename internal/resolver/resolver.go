package resolver

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/tanq16/segdl/internal/segmented"
	"github.com/tanq16/segdl/internal/utils"
)

type Options struct {
	Client    utils.HTTPDoer
	Format    string // yt-dlp format selector
	YtdlpPath string
	S3Profile string
	Kind      string // force a resolver: "video", "direct" or "s3"
}

// DetermineKind maps a URL onto the resolver that handles it.
func DetermineKind(link string) string {
	switch {
	case strings.HasPrefix(link, "s3://"):
		return "s3"
	case strings.Contains(link, "youtube.com/watch"),
		strings.Contains(link, "youtube.com/shorts/"),
		strings.Contains(link, "youtu.be/"),
		strings.Contains(link, "vimeo.com/"),
		strings.Contains(link, "dailymotion.com/video/"):
		return "video"
	default:
		return "direct"
	}
}

// ForURL returns the resolver for link, honouring opts.Kind when set.
func ForURL(link string, opts Options) (segmented.Resolver, error) {
	kind := opts.Kind
	if kind == "" {
		kind = DetermineKind(link)
	}
	switch kind {
	case "s3":
		return NewS3Resolver(opts.S3Profile), nil
	case "video":
		return &YtdlpResolver{Path: opts.YtdlpPath, Format: opts.Format, Client: opts.Client}, nil
	case "direct":
		parsed, err := url.Parse(link)
		if err != nil {
			return nil, fmt.Errorf("invalid URL: %w", err)
		}
		if parsed.Scheme != "http" && parsed.Scheme != "https" {
			return nil, fmt.Errorf("unsupported scheme: %s", parsed.Scheme)
		}
		return &DirectResolver{Client: opts.Client}, nil
	default:
		return nil, fmt.Errorf("unknown resolver kind: %s", kind)
	}
}
