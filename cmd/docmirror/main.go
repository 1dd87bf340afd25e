// Command docmirror mirrors a remote document store into a local cache.
//
// Usage:
//
//	docmirror [--config FILE] [--output table|json|yaml] update
//	docmirror get-changes ID
//	docmirror watch
package main

import (
	"context"
	"os"

	"github.com/yndnr/docmirror/internal/cli/command"
	"github.com/yndnr/docmirror/internal/infra/shutdown"
)

func main() {
	ctx, stop := shutdown.Notify(context.Background())
	code := command.Run(ctx, os.Args)
	stop()
	os.Exit(code)
}
