// Package cmd provides the CLI commands for hpackCodec using Cobra.
package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"hpackCodec/internal/config"
	"hpackCodec/internal/logging"
)

// Version is set at build time via -ldflags.
var Version = "dev"

// global flags
var (
	configFile string
	logLevel   string
)

var rootCmd = &cobra.Command{
	Use:   "hpackCodec",
	Short: "HPACK header compression for HTTP/2",
	Long: `hpackCodec encodes and decodes HTTP/2 header blocks (RFC 7541).

Examples:
  hpackCodec decode --hex < blocks.txt              # Decode hex blocks, one per line
  hpackCodec decode --frames capture.bin            # Decode HEADERS/CONTINUATION frames
  hpackCodec encode request.txt                     # Encode "name: value" lines
  hpackCodec serve -c hpack.yaml                    # Run the inspection service`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "",
		"YAML config file (defaults are used when empty)")
	rootCmd.PersistentFlags().StringVarP(&logLevel, "log-level", "l", "",
		"Override the configured log level (debug, info, warn, error)")

	rootCmd.AddCommand(decodeCmd)
	rootCmd.AddCommand(encodeCmd)
	rootCmd.AddCommand(serveCmd)
}

func loadConfig() (*config.Config, error) {
	conf := config.Default()
	if configFile != "" {
		var err error
		conf, err = config.LoadConfig(configFile)
		if err != nil {
			return nil, err
		}
	}
	if logLevel != "" {
		conf.Logger.Level = logLevel
		if err := conf.Validate(); err != nil {
			return nil, err
		}
	}
	return conf, nil
}

// newLogger writes to stderr so command output stays clean, unless the
// config names a log file.
func newLogger(cmd *cobra.Command, conf *config.Config) (*logging.DefaultLogger, error) {
	if conf.Logger.File != "" {
		return conf.NewLogger()
	}
	level, err := logging.ParseLevel(conf.Logger.Level)
	if err != nil {
		return nil, err
	}
	return logging.NewWriterLogger(level, cmd.ErrOrStderr()), nil
}

// openInput returns the named file, or stdin for no argument or "-".
func openInput(cmd *cobra.Command, args []string) (io.ReadCloser, error) {
	if len(args) == 0 || args[0] == "-" {
		return io.NopCloser(cmd.InOrStdin()), nil
	}
	return os.Open(args[0])
}
