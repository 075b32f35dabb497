package resolver

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/tanq16/segdl/internal/segmented"
)

func TestParseYtdlpOutput(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		wantTitle string
		wantErr   bool
	}{
		{"progressive", `{"title":"Talk","url":"https://cdn/v.mp4","ext":"mp4","protocol":"https","filesize":100}`, "Talk", false},
		{"untitled", `{"url":"https://cdn/v.mp4","protocol":"http"}`, "video", false},
		{"merged formats", `{"title":"Talk","requested_formats":[{},{}]}`, "", true},
		{"hls", `{"title":"Live","url":"https://cdn/index.m3u8","protocol":"m3u8_native"}`, "", true},
		{"not json", `ERROR: unavailable`, "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			info, err := parseYtdlpOutput([]byte(tt.input))
			if (err != nil) != tt.wantErr {
				t.Fatalf("parseYtdlpOutput() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && info.Title != tt.wantTitle {
				t.Errorf("Title = %q, want %q", info.Title, tt.wantTitle)
			}
		})
	}
}

func TestResolveFormat(t *testing.T) {
	if got := ResolveFormat(""); got != DefaultFormat {
		t.Errorf("ResolveFormat(\"\") = %q", got)
	}
	if got := ResolveFormat("720p"); got != ytdlpFormats["720p"] {
		t.Errorf("ResolveFormat(720p) = %q", got)
	}
	if got := ResolveFormat("bestvideo[height<=1080]"); got != "bestvideo[height<=1080]" {
		t.Errorf("raw selector not passed through: %q", got)
	}
}

// fakeYtdlp writes a script that prints output and exits with code.
func fakeYtdlp(t *testing.T, output string, code int) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell script stand-in needs a unix shell")
	}
	dir := t.TempDir()
	payload := filepath.Join(dir, "out.json")
	if err := os.WriteFile(payload, []byte(output), 0644); err != nil {
		t.Fatal(err)
	}
	script := filepath.Join(dir, "yt-dlp")
	body := "#!/bin/sh\ncat '" + payload + "'\n"
	if code != 0 {
		body = "#!/bin/sh\necho 'ERROR: video unavailable' >&2\nexit 1\n"
	}
	if err := os.WriteFile(script, []byte(body), 0755); err != nil {
		t.Fatal(err)
	}
	return script
}

func TestYtdlpResolverFilesize(t *testing.T) {
	bin := fakeYtdlp(t, `{"title":"Conference Talk","url":"https://cdn.example.com/v.mp4","protocol":"https","filesize":7340032}`, 0)
	y := &YtdlpResolver{Path: bin}

	res, err := y.Resolve(context.Background(), "https://youtu.be/abc")
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if res.ContentURL != "https://cdn.example.com/v.mp4" || res.TotalSize != 7340032 || res.Title != "Conference Talk" {
		t.Errorf("unexpected resolution %+v", res)
	}
}

func TestYtdlpResolverProbesSize(t *testing.T) {
	data := bytes.Repeat([]byte{'v'}, 2048)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.ServeContent(w, r, "v.mp4", time.Time{}, bytes.NewReader(data))
	}))
	t.Cleanup(srv.Close)
	bin := fakeYtdlp(t, `{"title":"Clip","url":"`+srv.URL+`/v.mp4","protocol":"http","filesize_approx":2000.5}`, 0)
	y := &YtdlpResolver{Path: bin, Client: srv.Client()}

	res, err := y.Resolve(context.Background(), "https://vimeo.com/1")
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if res.TotalSize != 2048 {
		t.Errorf("TotalSize = %d, want probed 2048", res.TotalSize)
	}
	if res.RangesUnsupported {
		t.Error("RangesUnsupported set for a range capable server")
	}
}

func TestYtdlpResolverFailure(t *testing.T) {
	bin := fakeYtdlp(t, "", 1)
	y := &YtdlpResolver{Path: bin}
	_, err := y.Resolve(context.Background(), "https://youtu.be/gone")
	if !errors.Is(err, segmented.ErrResolutionFailed) {
		t.Fatalf("Resolve() error = %v, want ErrResolutionFailed", err)
	}
}

func TestYtdlpResolverNeedsExactSize(t *testing.T) {
	bin := fakeYtdlp(t, `{"title":"Clip","url":"https://cdn/v.mp4","protocol":"https","filesize_approx":99.0}`, 0)
	y := &YtdlpResolver{Path: bin}
	if _, err := y.Resolve(context.Background(), "https://youtu.be/x"); !errors.Is(err, segmented.ErrResolutionFailed) {
		t.Fatalf("Resolve() error = %v, want ErrResolutionFailed", err)
	}
}
