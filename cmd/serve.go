package cmd

import (
	"context"
	"log"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/moto-nrw/fingerprint-edge/api"
	"github.com/moto-nrw/fingerprint-edge/applog"
	"github.com/moto-nrw/fingerprint-edge/internal/config"
)

// serveCmd represents the serve command.
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "start the edge HTTP server",
	Long:  `Starts the edge HTTP server: device pool, enrollment/attendance orchestrators, decision arbiter, background sync worker, and the operator HTTP/websocket surface.`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := config.Load()
		if err != nil {
			log.Fatal(err)
		}

		logger := applog.New(applog.Config{
			Level:  viper.GetString("log_level"),
			Format: viper.GetString("log_format"),
			Env:    viper.GetString("app_env"),
		})

		ctx := context.Background()
		server, err := api.NewServer(ctx, cfg, logger)
		if err != nil {
			log.Fatal(err)
		}
		server.Start(ctx)
	},
}

func init() {
	RootCmd.AddCommand(serveCmd)
}
