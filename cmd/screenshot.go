package cmd

import (
	"encoding/base64"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/halilc4/tabby-mcp/api/schemas"
	"github.com/halilc4/tabby-mcp/internal/browser"
	"github.com/halilc4/tabby-mcp/internal/observability"
)

func newScreenshotCmd() *cobra.Command {
	var (
		target  string
		format  string
		quality int
		outFile string
	)

	screenshotCmd := &cobra.Command{
		Use:   "screenshot",
		Short: "Capture a screenshot of a Tabby page",
		Long: `Captures the page as PNG or JPEG. With --out the encoded image is
written to a file; otherwise the bytes are printed base64-encoded.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			imageFormat, err := schemas.ParseImageFormat(format)
			if err != nil {
				return err
			}

			conn := browser.NewConn(cfg.DevTools, observability.GetLogger())
			defer closeConn(conn)

			data, err := conn.Screenshot(cmd.Context(), schemas.ParseTargetFlag(target), imageFormat, quality)
			if err != nil {
				return err
			}

			if outFile != "" {
				if err := os.WriteFile(outFile, data, 0o644); err != nil {
					return fmt.Errorf("write %s: %w", outFile, err)
				}
				observability.GetLogger().Info("Screenshot written",
					zap.String("path", outFile), zap.Int("bytes", len(data)))
				return nil
			}

			fmt.Println(base64.StdEncoding.EncodeToString(data))
			return nil
		},
	}

	screenshotCmd.Flags().StringVarP(&target, "target", "t", "", "target tab: index (0=first, -1=last), target id, or websocket url")
	screenshotCmd.Flags().StringVar(&format, "format", "png", "image format: png or jpeg")
	screenshotCmd.Flags().IntVar(&quality, "quality", schemas.DefaultJPEGQuality, "jpeg quality 0-100 (ignored for png)")
	screenshotCmd.Flags().StringVarP(&outFile, "out", "o", "", "write the image to a file instead of printing base64")

	return screenshotCmd
}
