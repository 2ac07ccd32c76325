package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/halilc4/tabby-mcp/internal/browser"
	"github.com/halilc4/tabby-mcp/internal/observability"
)

func newTargetsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "targets",
		Short: "List the debuggable Tabby pages",
		RunE: func(cmd *cobra.Command, args []string) error {
			conn := browser.NewConn(cfg.DevTools, observability.GetLogger())
			defer closeConn(conn)

			targets, err := conn.ListTargets(cmd.Context())
			if err != nil {
				return err
			}

			payload, err := json.MarshalIndent(targets, "", "  ")
			if err != nil {
				return err
			}
			fmt.Println(string(payload))
			return nil
		},
	}
}
