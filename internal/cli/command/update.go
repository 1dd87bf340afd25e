package command

import (
	"context"
	"fmt"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/docmirror/internal/core/service"
	"github.com/yndnr/docmirror/internal/infra/lockfile"
)

// lockWait bounds how long a command waits for another docmirror process
// to release the lock file.
var lockWait = 2 * time.Second

// UpdateCommand returns the update command.
func UpdateCommand() *cli.Command {
	return &cli.Command{
		Name:   "update",
		Usage:  "Run one sync pass and print every listed document",
		Action: runUpdate,
	}
}

func runUpdate(c *cli.Context) error {
	env, err := envFrom(c)
	if err != nil {
		return err
	}

	release, err := acquireLock(c.Context, env.Store.LockFile())
	if err != nil {
		return err
	}
	defer release()

	svc, err := env.Services()
	if err != nil {
		return err
	}

	report, err := svc.Engine.Sync(c.Context)
	if err != nil {
		return err
	}
	if err := render(c, report.Results); err != nil {
		return err
	}
	reportFailures(c, report)

	return env.WriteMetrics()
}

func reportFailures(c *cli.Context, report *service.Report) {
	for _, f := range report.Failed {
		PrintError(c.App.ErrWriter, "%s: %v", f.RemoteID, f.Err)
	}
	if !report.OK() {
		fmt.Fprintf(c.App.ErrWriter, "%d of %d documents failed\n", len(report.Failed), len(report.Results))
	}
}

func acquireLock(ctx context.Context, path string) (func() error, error) {
	lctx, cancel := context.WithTimeout(ctx, lockWait)
	defer cancel()

	release, err := lockfile.Acquire(lctx, path)
	if err != nil {
		return nil, fmt.Errorf("another docmirror process is running: %w", err)
	}
	return release, nil
}
