package cmd

import (
	"context"
	"net"
	"os"
	"os/signal"
	"syscall"

	"github.com/audiolibrelab/fieldcapture/internal/server"

	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve recorded takes over HTTP",
	Long: `Start a read-only web server listing every take under the output
directory, with streaming URLs for each file.

The server will display the local network URL for easy access from mobile devices.`,
	Annotations: map[string]string{configAnnotation: configSettings},
	Args:        cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		port, _ := cmd.Flags().GetString("port")
		host, _ := cmd.Flags().GetString("host")

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		srv := server.New(net.JoinHostPort(host, port), server.StaticDir(cfg.Output.Directory), nil, logger)
		return srv.Start(ctx)
	},
}

func init() {
	serveCmd.Flags().String("port", "8080", "port for the web server")
	serveCmd.Flags().String("host", "", "address to listen on (default all interfaces)")
}
