package utils

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"unicode/utf8"
)

func TestSanitizeFilename(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Conference Talk 2024", "Conference Talk 2024"},
		{"a/b\\c:d", "a_b_c_d"},
		{"  ..hidden.. ", "hidden"},
		{"???", "_"},
		{"", "video"},
		{"Café déjà-vu", "Café déjà-vu"},
	}
	for _, tt := range tests {
		if got := SanitizeFilename(tt.in); got != tt.want {
			t.Errorf("SanitizeFilename(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestSanitizeFilenameTruncatesOnRuneBoundary(t *testing.T) {
	tests := []struct {
		name  string
		title string
	}{
		{"accented", "a" + strings.Repeat("é", 150)},
		{"cjk", strings.Repeat("動画", 80)},
		{"ascii", strings.Repeat("x", 300)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SanitizeFilename(tt.title)
			if !utf8.ValidString(got) {
				t.Errorf("SanitizeFilename() = invalid UTF-8, tail % x", got[len(got)-3:])
			}
			if len(got) > maxNameBytes {
				t.Errorf("len = %d, want at most %d", len(got), maxNameBytes)
			}
			if !strings.HasPrefix(tt.title, got) {
				t.Errorf("SanitizeFilename() is not a prefix of the title")
			}
		})
	}
}

func TestRenewOutputPath(t *testing.T) {
	dir := t.TempDir()
	original := filepath.Join(dir, "video.mp4")
	for _, name := range []string{"video.mp4", "video-(1).mp4"} {
		if err := os.WriteFile(filepath.Join(dir, name), nil, 0644); err != nil {
			t.Fatal(err)
		}
	}
	if got, want := RenewOutputPath(original), filepath.Join(dir, "video-(2).mp4"); got != want {
		t.Errorf("RenewOutputPath() = %q, want %q", got, want)
	}
}

func TestParseHeaderArgs(t *testing.T) {
	got := ParseHeaderArgs([]string{"Referer: https://example.com", "X-Token:abc:def", "broken"})
	if len(got) != 2 {
		t.Fatalf("ParseHeaderArgs() = %v", got)
	}
	if got["Referer"] != "https://example.com" || got["X-Token"] != "abc:def" {
		t.Errorf("ParseHeaderArgs() = %v", got)
	}
}

func TestSplitProxyAuth(t *testing.T) {
	cfg := HTTPClientConfig{ProxyURL: "http://bob:pw@proxy:8080"}
	SplitProxyAuth(&cfg)
	if cfg.ProxyURL != "http://proxy:8080" || cfg.ProxyUsername != "bob" || cfg.ProxyPassword != "pw" {
		t.Errorf("SplitProxyAuth() = %+v", cfg)
	}

	explicit := HTTPClientConfig{ProxyURL: "http://bob:pw@proxy:8080", ProxyUsername: "alice"}
	SplitProxyAuth(&explicit)
	if explicit.ProxyUsername != "alice" {
		t.Errorf("explicit username overwritten: %+v", explicit)
	}
}

func TestFormatBytes(t *testing.T) {
	tests := []struct {
		in   uint64
		want string
	}{
		{512, "512 B"},
		{2048, "2.00 KB"},
		{5 * 1024 * 1024, "5.00 MB"},
	}
	for _, tt := range tests {
		if got := FormatBytes(tt.in); got != tt.want {
			t.Errorf("FormatBytes(%d) = %q, want %q", tt.in, got, tt.want)
		}
	}
	if got := FormatETA(0); got != "--" {
		t.Errorf("FormatETA(0) = %q", got)
	}
	if got := FormatETA(75); got != "1m15s" {
		t.Errorf("FormatETA(75) = %q", got)
	}
}

func TestCleanFunction(t *testing.T) {
	dir := t.TempDir()
	temp := filepath.Join(dir, TempDirName)
	if err := os.MkdirAll(temp, 0755); err != nil {
		t.Fatal(err)
	}
	for _, name := range []string{"a.mp4.part0", "a.mp4.part1", "a.mp4.assembling", "b.mp4.part0"} {
		if err := os.WriteFile(filepath.Join(temp, name), []byte("x"), 0644); err != nil {
			t.Fatal(err)
		}
	}

	if err := CleanFunction(filepath.Join(dir, "a.mp4")); err != nil {
		t.Fatalf("CleanFunction() error = %v", err)
	}
	entries, err := os.ReadDir(temp)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 || entries[0].Name() != "b.mp4.part0" {
		t.Errorf("remaining entries = %v, want only b.mp4.part0", entries)
	}

	if err := CleanFunction(filepath.Join(dir, "b.mp4")); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(temp); !os.IsNotExist(err) {
		t.Error("empty temp directory not removed")
	}
	if err := CleanFunction(filepath.Join(dir, "c.mp4")); err != nil {
		t.Errorf("CleanFunction() without temp dir error = %v", err)
	}
}

func TestClean(t *testing.T) {
	dir := t.TempDir()
	temp := filepath.Join(dir, TempDirName)
	if err := os.MkdirAll(temp, 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(temp, "x.mp4.part0"), nil, 0644); err != nil {
		t.Fatal(err)
	}
	if err := Clean(dir); err != nil {
		t.Fatalf("Clean() error = %v", err)
	}
	if _, err := os.Stat(temp); !os.IsNotExist(err) {
		t.Error("temp directory still present")
	}
}
