package command

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/docmirror/internal/infra/fswatch"
	"github.com/yndnr/docmirror/internal/telemetry/logger"
)

// WatchCommand returns the watch command.
func WatchCommand() *cli.Command {
	return &cli.Command{
		Name:   "watch",
		Usage:  "Run a sync pass, then fetch cache files again when they are deleted",
		Action: runWatch,
	}
}

func runWatch(c *cli.Context) error {
	env, err := envFrom(c)
	if err != nil {
		return err
	}
	ctx := c.Context

	release, err := acquireLock(ctx, env.Store.LockFile())
	if err != nil {
		return err
	}
	defer release()

	removePid, err := writePidFile(env.Store.PidFile())
	if err != nil {
		return err
	}
	defer removePid()

	svc, err := env.Services()
	if err != nil {
		return err
	}

	report, err := svc.Engine.Sync(ctx)
	if err != nil {
		return err
	}
	if err := render(c, report.Results); err != nil {
		return err
	}
	reportFailures(c, report)
	if err := env.WriteMetrics(); err != nil {
		env.Log.Warn("metrics not written", "error", err)
	}

	cacheDir := svc.Engine.CacheDir()
	ext := svc.Engine.CacheExt()

	w, err := fswatch.New(
		fswatch.WithLogger(logger.Slog(env.Log.With("component", "fswatch"))),
		fswatch.WithExtension(ext),
	)
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer w.Close()

	if err := w.Watch(cacheDir); err != nil {
		return fmt.Errorf("watch %s: %w", cacheDir, err)
	}

	w.OnRemove(func(path string) {
		id := strings.TrimSuffix(filepath.Base(path), ext)
		fetched, err := svc.Engine.Refetch(ctx, id)
		switch {
		case err != nil:
			env.Log.Error("refetch failed", "remote_id", id, "error", err)
		case fetched:
			env.Log.Info("cache file restored", "remote_id", id)
			if err := env.WriteMetrics(); err != nil {
				env.Log.Warn("metrics not written", "error", err)
			}
		}
	})

	err = w.Run(ctx)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// writePidFile records the process id and returns a func removing the
// file again.
func writePidFile(path string) (func(), error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create pid dir: %w", err)
	}
	if err := os.WriteFile(path, []byte(strconv.Itoa(os.Getpid())+"\n"), 0o644); err != nil {
		return nil, fmt.Errorf("write pid file: %w", err)
	}
	return func() { os.Remove(path) }, nil
}
