package cli

import (
	"github.com/spf13/cobra"

	"github.com/matzehuels/erdiagram/internal/server"
)

func (c *CLI) serveCommand() *cobra.Command {
	var addr string
	var noCache bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve diagram rendering over HTTP",
		Long: `Serve diagram rendering over HTTP.

  POST /v1/render?format=svg&infer=true   body: schema document
  GET  /healthz
  GET  /version`,
		Example: `  erd serve --addr :8080
  curl --data-binary @school.yaml 'localhost:8080/v1/render?format=svg' > school.svg`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if !cmd.Flags().Changed("addr") && c.config.Server.Addr != "" {
				addr = c.config.Server.Addr
			}

			runner, err := c.newRunner(ctx, noCache)
			if err != nil {
				return err
			}
			defer runner.Close()

			srv := server.New(server.Config{
				Addr:         addr,
				Runner:       runner,
				Logger:       c.Logger,
				MaxBodyBytes: c.config.Server.MaxBodyBytes,
			})
			return srv.ListenAndServe(ctx)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", server.DefaultAddr, "listen address")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "disable caching")
	return cmd
}
