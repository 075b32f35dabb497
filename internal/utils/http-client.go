package utils

import (
	"net"
	"net/http"
	"net/url"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
)

// HTTPDoer is what the segment fetchers and resolvers need from a client.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

type SegHTTPClient struct {
	client *http.Client
	config HTTPClientConfig
}

func NewSegHTTPClient(cfg HTTPClientConfig) *SegHTTPClient {
	if cfg.Timeout == 0 {
		cfg.Timeout = 60 * time.Second
	}
	if cfg.KATimeout == 0 {
		cfg.KATimeout = 60 * time.Second
	}
	transport := &http.Transport{
		IdleConnTimeout:     cfg.KATimeout,
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 100,
		DisableCompression:  true,
		MaxConnsPerHost:     0,
	}
	if cfg.HighThreadMode {
		transport.DialContext = (&net.Dialer{
			Timeout:   30 * time.Second,
			KeepAlive: 30 * time.Second,
			Control: func(network, address string, c syscall.RawConn) error {
				var sockErr error
				if err := c.Control(func(fd uintptr) {
					sockErr = setSocketBuffers(fd, DefaultBufferSize/2)
				}); err != nil {
					return err
				}
				if sockErr != nil {
					log.Debug().Str("op", "utils/http-client").Err(sockErr).Msg("Could not size socket buffers")
				}
				return nil
			},
		}).DialContext
	}
	if cfg.ProxyURL != "" {
		proxyURL, err := url.Parse(cfg.ProxyURL)
		if err == nil {
			if cfg.ProxyUsername != "" {
				if cfg.ProxyPassword != "" {
					proxyURL.User = url.UserPassword(cfg.ProxyUsername, cfg.ProxyPassword)
				} else {
					proxyURL.User = url.User(cfg.ProxyUsername)
				}
			}
			transport.Proxy = http.ProxyURL(proxyURL)
		}
	}
	// Timeout bounds a whole request including the body, so large segments
	// rely on the context and the transport deadlines instead.
	transport.ResponseHeaderTimeout = cfg.Timeout
	return &SegHTTPClient{
		client: &http.Client{Transport: transport},
		config: cfg,
	}
}

func (c *SegHTTPClient) Do(req *http.Request) (*http.Response, error) {
	if c.config.UserAgent != "" {
		req.Header.Set("User-Agent", c.config.UserAgent)
	} else {
		req.Header.Set("User-Agent", ToolUserAgent)
	}
	for k, v := range c.config.Headers {
		req.Header.Set(k, v)
	}
	return c.client.Do(req)
}
