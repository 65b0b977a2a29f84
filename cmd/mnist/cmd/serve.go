/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"github.com/spf13/cobra"

	"github.com/ssargent/mnistidx/pkg/api"
)

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Browse imported records over HTTP",
	Long: `Start the record browser on top of the record store filled by
'mnist import'. Records are served as JSON and PNG, and Prometheus metrics
at /metrics. When an API key is configured every /api/v1 request must carry
it in the X-API-Key header.

Examples:
  mnist serve
  mnist serve --port=9000 --api-key=mysecretkey`,
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := getContainer(cmd)
		if err != nil {
			return err
		}
		cfg := c.Config()

		port := cfg.Port
		if cmd.Flags().Changed("port") {
			port, _ = cmd.Flags().GetInt("port")
		}

		store, err := c.OpenStore(stringFlag(cmd, "store-dir", cfg.StoreDir))
		if err != nil {
			return err
		}
		defer store.Close()

		serverConfig := api.ServerConfig{
			Bind:   stringFlag(cmd, "bind", cfg.Bind),
			Port:   port,
			APIKey: stringFlag(cmd, "api-key", cfg.Security.APIKey),
		}
		return c.GetServerFactory().CreateServerStarter().StartServer(cmd.Context(), store, serverConfig)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().IntP("port", "p", 8080, "Port to listen on (overrides config)")
	serveCmd.Flags().String("bind", "", "Address to bind (overrides config)")
	serveCmd.Flags().String("api-key", "", "API key for /api/v1 (overrides config)")
	serveCmd.Flags().String("store-dir", "", "Record store directory (overrides config)")
}
