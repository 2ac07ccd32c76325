package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/halilc4/tabby-mcp/api/schemas"
	"github.com/halilc4/tabby-mcp/internal/browser"
	"github.com/halilc4/tabby-mcp/internal/observability"
)

func newEvalCmd() *cobra.Command {
	var (
		target string
		raw    bool
	)

	evalCmd := &cobra.Command{
		Use:   "eval <code>",
		Short: "Evaluate JavaScript in a Tabby page and print the result",
		Long: `Evaluates the code inside a fresh async scope and prints the result
as JSON. With --raw the code runs verbatim at the page's top level, so
declarations persist across calls.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			conn := browser.NewConn(cfg.DevTools, observability.GetLogger())
			defer closeConn(conn)

			value, err := conn.Execute(cmd.Context(), schemas.ParseTargetFlag(target), args[0], raw)
			if err != nil {
				return err
			}

			payload, err := json.Marshal(value)
			if err != nil {
				return err
			}
			fmt.Println(string(payload))
			return nil
		},
	}

	evalCmd.Flags().StringVarP(&target, "target", "t", "", "target tab: index (0=first, -1=last), target id, or websocket url")
	evalCmd.Flags().BoolVar(&raw, "raw", false, "evaluate the code verbatim so declarations persist in the page")

	return evalCmd
}
