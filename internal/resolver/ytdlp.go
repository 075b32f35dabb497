package resolver

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/tanq16/segdl/internal/segmented"
	"github.com/tanq16/segdl/internal/utils"
)

// DefaultFormat selects the best progressive stream served over plain HTTP,
// which is a single file that accepts range requests.
const DefaultFormat = "best[ext=mp4][protocol^=http]/best[protocol^=http]"

var ytdlpFormats = map[string]string{
	"best":     DefaultFormat,
	"720p":     "best[height<=720][ext=mp4][protocol^=http]/best[height<=720][protocol^=http]",
	"480p":     "best[height<=480][ext=mp4][protocol^=http]/best[height<=480][protocol^=http]",
	"360p":     "best[height<=360][ext=mp4][protocol^=http]/best[height<=360][protocol^=http]",
	"audio":    "bestaudio[ext=m4a][protocol^=http]/bestaudio[protocol^=http]",
	"smallest": "worst[protocol^=http]",
}

// YtdlpResolver asks yt-dlp for the direct stream URL of a video page.
type YtdlpResolver struct {
	Path   string
	Format string
	Client utils.HTTPDoer
}

type ytdlpInfo struct {
	Title          string   `json:"title"`
	URL            string   `json:"url"`
	Ext            string   `json:"ext"`
	Protocol       string   `json:"protocol"`
	Filesize       *int64   `json:"filesize"`
	FilesizeApprox *float64 `json:"filesize_approx"`
}

func (y *YtdlpResolver) Resolve(ctx context.Context, link string) (*segmented.Resolution, error) {
	binary := y.Path
	if binary == "" {
		found, err := EnsureYtdlp()
		if err != nil {
			return nil, fmt.Errorf("%w: %w", segmented.ErrResolutionFailed, err)
		}
		binary = found
	}
	format := ResolveFormat(y.Format)
	args := []string{
		"--dump-single-json",
		"--no-playlist",
		"--no-warnings",
		"-f", format,
		link,
	}
	cmd := exec.CommandContext(ctx, binary, args...)
	log.Debug().Str("op", "resolver/ytdlp").Msgf("Executing yt-dlp command: %s", cmd.String())
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			msg = err.Error()
		}
		return nil, fmt.Errorf("%w: yt-dlp failed: %s", segmented.ErrResolutionFailed, msg)
	}
	info, err := parseYtdlpOutput(stdout.Bytes())
	if err != nil {
		return nil, fmt.Errorf("%w: %w", segmented.ErrResolutionFailed, err)
	}

	res := &segmented.Resolution{ContentURL: info.URL, Title: info.Title}
	switch {
	case info.Filesize != nil && *info.Filesize > 0:
		res.TotalSize = *info.Filesize
	case y.Client != nil:
		// filesize_approx is not exact enough to plan byte ranges with
		head, err := probe(ctx, y.Client, info.URL)
		if err != nil {
			return nil, fmt.Errorf("%w: size probe: %w", segmented.ErrResolutionFailed, err)
		}
		res.TotalSize = head.size
		res.ContentURL = head.url
		res.RangesUnsupported = !head.acceptRanges
	default:
		return nil, fmt.Errorf("%w: yt-dlp reported no exact file size", segmented.ErrResolutionFailed)
	}
	log.Info().Str("op", "resolver/ytdlp").Msgf("Resolved %q (%d bytes, %s)", res.Title, res.TotalSize, info.Protocol)
	return res, nil
}

func parseYtdlpOutput(data []byte) (*ytdlpInfo, error) {
	var info ytdlpInfo
	if err := json.Unmarshal(data, &info); err != nil {
		return nil, fmt.Errorf("error parsing yt-dlp output: %w", err)
	}
	if info.URL == "" {
		return nil, errors.New("yt-dlp returned no direct URL (format may require merging)")
	}
	if info.Protocol != "" && !strings.HasPrefix(info.Protocol, "http") {
		return nil, fmt.Errorf("unsupported stream protocol: %s", info.Protocol)
	}
	if info.Title == "" {
		info.Title = "video"
	}
	return &info, nil
}

// ResolveFormat maps a preset name to a yt-dlp selector. Unknown values are
// passed through as raw selectors.
func ResolveFormat(format string) string {
	if format == "" {
		return DefaultFormat
	}
	if selector, ok := ytdlpFormats[format]; ok {
		return selector
	}
	return format
}

// EnsureYtdlp finds yt-dlp on PATH or next to the running executable.
func EnsureYtdlp() (string, error) {
	if path, err := exec.LookPath("yt-dlp"); err == nil {
		return path, nil
	}
	execPath, err := os.Executable()
	if err == nil {
		candidate := filepath.Join(filepath.Dir(execPath), "yt-dlp")
		if runtime.GOOS == "windows" {
			candidate += ".exe"
		}
		if _, err := os.Stat(candidate); err == nil {
			return candidate, nil
		}
	}
	return "", errors.New("yt-dlp not found in PATH, please install it")
}
