package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/yuanying/epubreader/internal/config"
	"github.com/yuanying/epubreader/internal/epub"
)

var validLogLevels = map[string]slog.Level{
	"debug": slog.LevelDebug,
	"info":  slog.LevelInfo,
	"warn":  slog.LevelWarn,
	"error": slog.LevelError,
}

// cliOptions are the settings resolved from the config file and flags.
type cliOptions struct {
	Config *config.Config
	Logger *slog.Logger
}

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "epubreader",
		Short: "Inspect EPUB books and extract their text",
		Long: `epubreader reads EPUB ebooks and prints their metadata, reading-order
chapters and plain text. Text can be split into sentences for
text-to-speech, and the cover image can be exported or thumbnailed.`,
		SilenceUsage: true,
	}

	flags := cmd.PersistentFlags()
	flags.String("config", "", "Config file path (default: ~/.config/epubreader/config.toml)")
	flags.String("log-level", "", "Log level: debug, info, warn, error")
	flags.String("log-format", "", "Log format: text or json")
	flags.BoolP("verbose", "v", false, "Enable debug logging")

	cmd.AddCommand(
		newInfoCmd(),
		newChaptersCmd(),
		newTextCmd(),
		newCoverCmd(),
	)
	return cmd
}

// readCLIOptions loads the config file and applies flag overrides.
func readCLIOptions(cmd *cobra.Command) (cliOptions, error) {
	flags := cmd.Flags()

	configPath, _ := flags.GetString("config")
	cfg, err := config.Load(configPath)
	if err != nil {
		return cliOptions{}, err
	}

	if flags.Changed("log-level") {
		level, _ := flags.GetString("log-level")
		level = strings.ToLower(strings.TrimSpace(level))
		if _, ok := validLogLevels[level]; !ok {
			return cliOptions{}, fmt.Errorf("invalid --log-level %q: must be one of debug, info, warn, error", level)
		}
		cfg.LogLevel = level
	}
	if flags.Changed("log-format") {
		format, _ := flags.GetString("log-format")
		format = strings.ToLower(strings.TrimSpace(format))
		if format != "text" && format != "json" {
			return cliOptions{}, fmt.Errorf("invalid --log-format %q: must be text or json", format)
		}
		cfg.LogFormat = format
	}
	if verbose, _ := flags.GetBool("verbose"); verbose {
		cfg.LogLevel = "debug"
	}

	return cliOptions{
		Config: cfg,
		Logger: buildLogger(cmd.ErrOrStderr(), cfg.LogLevel, cfg.LogFormat),
	}, nil
}

// buildLogger creates an slog logger writing to w. Unknown levels fall back
// to info and unknown formats to text.
func buildLogger(w io.Writer, level, format string) *slog.Logger {
	lvl, ok := validLogLevels[strings.ToLower(level)]
	if !ok {
		lvl = slog.LevelInfo
	}
	handlerOpts := &slog.HandlerOptions{Level: lvl}

	if strings.EqualFold(format, "json") {
		return slog.New(slog.NewJSONHandler(w, handlerOpts))
	}
	return slog.New(slog.NewTextHandler(w, handlerOpts))
}

// openBook parses the EPUB at path. The caller must close the reader.
func openBook(path string, opts cliOptions) (*epub.Reader, error) {
	r := epub.New(path,
		epub.WithLogger(opts.Logger),
		epub.WithDefaultAuthor(opts.Config.DefaultAuthor),
	)
	if !r.Parse() {
		err := r.Err()
		r.Close()
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return r, nil
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
