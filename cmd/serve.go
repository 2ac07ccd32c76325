// cmd/serve.go
package cmd

import (
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/halilc4/tabby-mcp/internal/browser"
	"github.com/halilc4/tabby-mcp/internal/observability"
	"github.com/halilc4/tabby-mcp/internal/tools"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve MCP tools over stdio",
		Long: `Runs the MCP server on stdin/stdout for an MCP client to drive.
All logging goes to stderr; stdout belongs to the protocol stream.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			logger := observability.GetLogger()

			conn := browser.NewConn(cfg.DevTools, logger)
			defer func() {
				if err := conn.CloseAll(); err != nil {
					logger.Warn("Failed to detach sessions", zap.Error(err))
				}
				observability.Sync()
			}()

			// Reachability probe. Tabby may come up after the server, so
			// an unreachable endpoint is a warning, not a refusal to
			// serve; tool calls keep trying.
			if v, err := conn.Version(ctx); err != nil {
				logger.Warn("Tabby endpoint not reachable yet",
					zap.String("endpoint", cfg.DevTools.Endpoint()), zap.Error(err))
			} else {
				logger.Info("Connected to Tabby",
					zap.String("endpoint", cfg.DevTools.Endpoint()), zap.String("browser", v.Browser))
			}

			server := tools.NewServer(conn, Version, logger)
			logger.Info("Serving MCP over stdio",
				zap.String("server", tools.ServerName), zap.String("version", Version))

			if err := server.Run(ctx, &mcp.StdioTransport{}); err != nil && ctx.Err() == nil {
				return err
			}
			logger.Info("MCP server stopped")
			return nil
		},
	}
}
