package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/halilc4/tabby-mcp/api/schemas"
	"github.com/halilc4/tabby-mcp/internal/browser"
	"github.com/halilc4/tabby-mcp/internal/observability"
)

func newQueryCmd() *cobra.Command {
	var (
		target   string
		children bool
		noText   bool
		skipWait bool
	)

	queryCmd := &cobra.Command{
		Use:   "query <selector>",
		Short: "Query DOM elements by CSS selector and print the matches",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			conn := browser.NewConn(cfg.DevTools, observability.GetLogger())
			defer closeConn(conn)

			elements, err := conn.Query(cmd.Context(), schemas.ParseTargetFlag(target), args[0], browser.QueryOptions{
				IncludeText:     !noText,
				IncludeChildren: children,
				SkipWait:        skipWait,
			})
			if err != nil {
				return err
			}

			payload, err := json.MarshalIndent(elements, "", "  ")
			if err != nil {
				return err
			}
			fmt.Println(string(payload))
			return nil
		},
	}

	queryCmd.Flags().StringVarP(&target, "target", "t", "", "target tab: index (0=first, -1=last), target id, or websocket url")
	queryCmd.Flags().BoolVar(&children, "children", false, "include a summary of each element's direct children")
	queryCmd.Flags().BoolVar(&noText, "no-text", false, "omit text content from the element records")
	queryCmd.Flags().BoolVar(&skipWait, "skip-wait", false, "query immediately instead of waiting for the page to settle")

	return queryCmd
}
