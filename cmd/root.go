package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"github.com/tanq16/segdl/internal/config"
	"github.com/tanq16/segdl/internal/history"
	"github.com/tanq16/segdl/internal/output"
	"github.com/tanq16/segdl/internal/resolver"
	"github.com/tanq16/segdl/internal/scheduler"
	"github.com/tanq16/segdl/internal/segmented"
	"github.com/tanq16/segdl/internal/utils"
)

var SegdlVersion = "dev"

var (
	configFile string
	cfg        *config.Config
	logCloser  io.Closer
	v          = viper.New()
)

var rootCmd = &cobra.Command{
	Use:     "segdl",
	Short:   "segdl downloads videos in parallel byte-range segments",
	Version: SegdlVersion,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		loaded, err := config.Load(v, configFile)
		if err != nil {
			return err
		}
		cfg = loaded
		logCloser, err = utils.InitLogger(cfg.Debug, cfg.LogFile)
		if err != nil {
			return fmt.Errorf("error opening log file: %w", err)
		}
		log.Debug().Str("op", "cmd/root").Msgf("Loaded config: %d segments, %d workers", cfg.Segments, cfg.Workers)
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logCloser != nil {
			logCloser.Close()
		}
	},
	SilenceUsage: true,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		output.PrintError(err.Error())
		os.Exit(1)
	}
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&configFile, "config", "", "Path to a YAML config file")
	flags.IntP("segments", "s", utils.DefaultSegments, "Number of parallel byte-range segments per download")
	flags.IntP("workers", "w", 1, "Number of downloads to run in parallel (batch)")
	flags.IntP("retries", "r", 0, "Retries per segment before the download fails")
	flags.DurationP("timeout", "t", 3*time.Minute, "Connection timeout (eg. 5s, 10m)")
	flags.DurationP("keep-alive-timeout", "k", 90*time.Second, "Keep-alive timeout for client (eg. 10s, 1m, 80s)")
	flags.StringP("user-agent", "a", utils.ToolUserAgent, "User agent (\"randomize\" picks a browser UA)")
	flags.StringP("proxy", "p", "", "HTTP/HTTPS proxy URL (e.g., proxy.example.com:8080)")
	flags.String("proxy-username", "", "Proxy username (if not provided in proxy URL)")
	flags.String("proxy-password", "", "Proxy password (if not provided in proxy URL)")
	flags.StringArrayP("header", "H", []string{}, "Custom headers (like 'Referer: https://example.com'); can be specified multiple times")
	flags.String("output-dir", ".", "Directory for downloads named after their title")
	flags.StringP("format", "f", "best", "yt-dlp format preset (best, 720p, 480p, 360p, audio, smallest) or selector")
	flags.String("resolver", "", "Force a resolver: video, direct or s3")
	flags.String("ytdlp-path", "", "Path to the yt-dlp binary")
	flags.String("s3-profile", "", "AWS profile for s3:// URLs")
	flags.Bool("single-stream-fallback", false, "Download in one stream when the server does not advertise range support")
	flags.String("history-db", config.DefaultHistoryPath(), "Path to the download history database (empty disables it)")
	flags.String("log-file", "", "Write logs to this file instead of stderr")
	flags.Bool("debug", false, "Enable debug logging")

	bindFlags(flags, map[string]string{
		"segments":               "segments",
		"workers":                "workers",
		"retries":                "retries",
		"timeout":                "timeout",
		"keep_alive_timeout":     "keep-alive-timeout",
		"user_agent":             "user-agent",
		"proxy":                  "proxy",
		"proxy_username":         "proxy-username",
		"proxy_password":         "proxy-password",
		"headers":                "header",
		"output_dir":             "output-dir",
		"format":                 "format",
		"resolver":               "resolver",
		"ytdlp_path":             "ytdlp-path",
		"s3_profile":             "s3-profile",
		"single_stream_fallback": "single-stream-fallback",
		"history_db":             "history-db",
		"log_file":               "log-file",
		"debug":                  "debug",
	})

	rootCmd.AddCommand(newGetCmd())
	rootCmd.AddCommand(newBatchCmd())
	rootCmd.AddCommand(newCleanCmd())
	rootCmd.AddCommand(newHistoryCmd())
}

func bindFlags(flags *pflag.FlagSet, keys map[string]string) {
	for key, flag := range keys {
		if err := v.BindPFlag(key, flags.Lookup(flag)); err != nil {
			panic(fmt.Sprintf("binding flag %s: %v", flag, err))
		}
	}
}

// signalContext is cancelled on Ctrl-C so in-flight segments stop promptly.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func newScheduler() (*scheduler.Scheduler, func()) {
	client := utils.NewSegHTTPClient(cfg.HTTPClientConfig())
	s := &scheduler.Scheduler{
		Client:  client,
		Output:  output.NewManager(),
		Workers: cfg.Workers,
		Defaults: segmented.Options{
			OutputDir:            cfg.OutputDir,
			Retries:              cfg.Retries,
			SingleStreamFallback: cfg.SingleStreamFallback,
		},
		Resolve: func(link string) (segmented.Resolver, error) {
			return resolver.ForURL(link, resolver.Options{
				Client:    client,
				Format:    cfg.Format,
				YtdlpPath: cfg.YtdlpPath,
				S3Profile: cfg.S3Profile,
				Kind:      cfg.Resolver,
			})
		},
	}
	cleanup := func() {}
	if cfg.HistoryDB != "" {
		store, err := history.Open(cfg.HistoryDB)
		if err != nil {
			log.Debug().Str("op", "cmd/root").Err(err).Msg("History store unavailable")
			output.PrintWarning(fmt.Sprintf("History disabled: %v", err))
		} else {
			s.History = store
			cleanup = func() { store.Close() }
		}
	}
	return s, cleanup
}
