package cmd

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"hpackCodec/internal/inspect"
	"hpackCodec/internal/logging"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP inspection service",
	Long: `Run an HTTP service that keeps named flows of encoder and decoder state.

Routes:
  POST   /flows/{flow}/decode     Decode a header block (?format=hex, ?frames=1)
  POST   /flows/{flow}/encode     Encode JSON fields into a header block
  POST   /flows/{flow}/settings   Apply SETTINGS_HEADER_TABLE_SIZE values
  GET    /flows/{flow}/table      Show both dynamic tables
  DELETE /flows/{flow}            Forget a flow
  GET    /flows/                  List flows
  GET    /stats                   Interning statistics`,
	Example: `  hpackCodec serve
  hpackCodec serve -c hpack.yaml -p 9000`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().IntVarP(&servePort, "port", "p", 0, "Listen port (overrides config)")
}

func runServe(cmd *cobra.Command, args []string) error {
	conf, err := loadConfig()
	if err != nil {
		return err
	}
	if servePort != 0 {
		conf.Server.Port = servePort
		if err := conf.Validate(); err != nil {
			return err
		}
	}

	logger, err := conf.NewLogger()
	if err != nil {
		return err
	}
	defer logger.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	server := inspect.NewServer(conf, logger)
	if err := server.Start(ctx); err != nil {
		logger.Log(logging.LogLevelError, "Server stopped: %v", err)
		return err
	}
	return nil
}
