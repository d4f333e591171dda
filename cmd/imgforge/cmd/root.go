package cmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/MeKo-Tech/imgforge/internal/config"
	"github.com/MeKo-Tech/imgforge/internal/version"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// cliState carries configuration from the root command to its subcommands.
type cliState struct {
	v       *viper.Viper
	loader  *config.Loader
	cfg     *config.Config
	cfgFile string
}

// load reads the configuration once per invocation. Bound root flags take
// part in resolution through the viper instance.
func (st *cliState) load() error {
	st.loader = config.NewLoaderWithViper(st.v)
	cfg, err := st.loader.LoadWithFile(st.cfgFile)
	if err != nil {
		return fmt.Errorf("error loading configuration: %w", err)
	}
	st.cfg = cfg
	return nil
}

// NewRootCommand builds the imgforge command tree.
func NewRootCommand() *cobra.Command {
	st := &cliState{v: viper.New()}

	rootCmd := &cobra.Command{
		Use:   "imgforge",
		Short: "Image transformation pipeline and batch processor",
		Long: `imgforge decodes images, resizes them, applies color filters and a text
watermark, and re-encodes them as JPEG, PNG or WebP.

This tool provides:
- Single image processing with filter presets and watermarks
- Parallel batch processing of files and directories with reports
- Pre-decode validation of uploads
- An HTTP and WebSocket server with Prometheus metrics

Examples:
  imgforge process photo.jpg --format webp --width 800
  imgforge batch images/ --recursive --workers 4 --output-dir out
  imgforge serve --port 8080`,
		Version:      version.String(),
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := st.load(); err != nil {
				return err
			}
			setupLogging(cmd.ErrOrStderr(), st.cfg)
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&st.cfgFile, "config", "",
		"config file (default is search in ., $HOME, $HOME/.config/imgforge, /etc/imgforge)")
	flags.BoolP("verbose", "v", false, "verbose output (equivalent to --log-level=debug)")
	flags.String("log-level", "info", "log level (debug, info, warn, error)")

	_ = st.v.BindPFlag("verbose", flags.Lookup("verbose"))
	_ = st.v.BindPFlag("log_level", flags.Lookup("log-level"))

	rootCmd.AddCommand(
		newProcessCommand(st),
		newBatchCommand(st),
		newValidateCommand(st),
		newServeCommand(st),
		newConfigCommand(st),
		newBenchCommand(st),
	)
	return rootCmd
}

// ExecuteContext runs the command tree with ctx.
func ExecuteContext(ctx context.Context) error {
	return NewRootCommand().ExecuteContext(ctx)
}

// Execute runs the command tree with a background context.
func Execute() error {
	return ExecuteContext(context.Background())
}

// setupLogging installs a JSON slog handler at the configured level.
func setupLogging(w io.Writer, cfg *config.Config) {
	var level slog.Level
	if cfg.Verbose {
		level = slog.LevelDebug
	} else {
		switch cfg.LogLevel {
		case "debug":
			level = slog.LevelDebug
		case "warn":
			level = slog.LevelWarn
		case "error":
			level = slog.LevelError
		default:
			level = slog.LevelInfo
		}
	}

	slog.SetDefault(slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level})))
}
