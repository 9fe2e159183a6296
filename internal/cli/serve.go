package cli

import (
	"github.com/spf13/cobra"
	"ui2sql-backend/internal/app"
)

// NewServeCommand creates the serve command.
func NewServeCommand() *cobra.Command {
	var port string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := getConfig(cmd)
			if port != "" {
				cfg.Port = port
			}
			return app.New(cfg, newLogger(cmd, cfg)).Serve(cmd.Context())
		},
	}

	cmd.Flags().StringVarP(&port, "port", "p", "", "Port to listen on (overrides PORT)")

	return cmd
}
