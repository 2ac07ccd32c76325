package browser

import (
	"context"

	"github.com/mafredri/cdp/devtool"
)

// listPages fetches the current target list and keeps only real pages.
// The endpoint also lists devtools frontends, service workers and other
// target kinds that must never be attached to.
func listPages(ctx context.Context, devt *devtool.DevTools, endpoint string) ([]*devtool.Target, error) {
	targets, err := devt.List(ctx)
	if err != nil {
		return nil, &TransportError{Endpoint: endpoint, Err: err}
	}

	pages := make([]*devtool.Target, 0, len(targets))
	for _, t := range targets {
		if t.Type == devtool.Page {
			pages = append(pages, t)
		}
	}
	return pages, nil
}
