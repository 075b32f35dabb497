package utils

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"
)

// maxNameBytes keeps names under the 255 byte limit of common filesystems
// once an extension and a "-(n)" suffix are added.
const maxNameBytes = 200

var unsafeNameChars = regexp.MustCompile(`[^\p{L}\p{N}_\-\. ]+`)

func GetRandomUserAgent() string {
	return userAgents[time.Now().UnixNano()%int64(len(userAgents))]
}

// RenewOutputPath returns the first free "name-(n).ext" sibling of outputPath.
func RenewOutputPath(outputPath string) string {
	dir := filepath.Dir(outputPath)
	base := filepath.Base(outputPath)
	ext := filepath.Ext(base)
	name := base[:len(base)-len(ext)]
	index := 1
	for {
		outputPath = filepath.Join(dir, fmt.Sprintf("%s-(%d)%s", name, index, ext))
		if _, err := os.Stat(outputPath); os.IsNotExist(err) {
			return outputPath
		}
		index++
	}
}

// SanitizeFilename makes a resolved title safe to use as a file name.
func SanitizeFilename(title string) string {
	name := strings.TrimSpace(unsafeNameChars.ReplaceAllString(title, "_"))
	name = strings.Trim(name, ". ")
	if name == "" {
		return "video"
	}
	if len(name) > maxNameBytes {
		cut := maxNameBytes
		for cut > 0 && !utf8.RuneStart(name[cut]) {
			cut--
		}
		name = name[:cut]
	}
	return name
}

func ParseHeaderArgs(headers []string) map[string]string {
	result := make(map[string]string)
	for _, header := range headers {
		parts := strings.SplitN(header, ":", 2)
		if len(parts) == 2 {
			key := strings.TrimSpace(parts[0])
			value := strings.TrimSpace(parts[1])
			result[key] = value
		}
	}
	return result
}

// SplitProxyAuth moves credentials embedded in a proxy URL into the config
// fields unless they were given explicitly.
func SplitProxyAuth(cfg *HTTPClientConfig) {
	parsed, err := url.Parse(cfg.ProxyURL)
	if err != nil || parsed.User == nil || cfg.ProxyUsername != "" {
		return
	}
	cfg.ProxyUsername = parsed.User.Username()
	if password, set := parsed.User.Password(); set {
		cfg.ProxyPassword = password
	}
	parsed.User = nil
	cfg.ProxyURL = parsed.String()
}

func FormatBytes(bytes uint64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := uint64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.2f %cB", float64(bytes)/float64(div), "KMGTPE"[exp])
}

func FormatRate(bytesPerSec float64) string {
	if bytesPerSec <= 0 {
		return "0 B/s"
	}
	return FormatBytes(uint64(bytesPerSec)) + "/s"
}

func FormatETA(seconds float64) string {
	if seconds <= 0 {
		return "--"
	}
	return (time.Duration(seconds) * time.Second).Round(time.Second).String()
}

// Clean removes segment leftovers of interrupted or failed downloads below dir.
func Clean(dir string) error {
	tempDir := filepath.Join(dir, TempDirName)
	if _, err := os.Stat(tempDir); os.IsNotExist(err) {
		return nil
	} else if err != nil {
		return err
	}
	return os.RemoveAll(tempDir)
}

// CleanFunction removes only the leftovers that belong to outputPath and drops
// the temp directory once it is empty.
func CleanFunction(outputPath string) error {
	tempDir := filepath.Join(filepath.Dir(outputPath), TempDirName)
	files, err := os.ReadDir(tempDir)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return err
	}
	prefix := filepath.Base(outputPath) + "."
	for _, file := range files {
		if strings.HasPrefix(file.Name(), prefix) {
			if err := os.RemoveAll(filepath.Join(tempDir, file.Name())); err != nil {
				return err
			}
		}
	}
	remaining, err := os.ReadDir(tempDir)
	if err != nil {
		return err
	}
	if len(remaining) == 0 {
		return os.Remove(tempDir)
	}
	return nil
}
