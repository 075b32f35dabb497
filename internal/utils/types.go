package utils

import "time"

type HTTPClientConfig struct {
	Timeout        time.Duration
	KATimeout      time.Duration
	ProxyURL       string
	ProxyUsername  string
	ProxyPassword  string
	UserAgent      string
	Headers        map[string]string
	HighThreadMode bool // larger socket buffers for many parallel segments
}

// JobSpec is one requested download before resolution.
type JobSpec struct {
	URL        string
	OutputPath string
	Segments   int
}

// BatchEntry is a single line of a batch YAML file.
type BatchEntry struct {
	OutputPath string `yaml:"op,omitempty"`
	Link       string `yaml:"link"`
	Segments   int    `yaml:"segments,omitempty"`
}
