package command

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/docmirror/internal/cli/output"
	"github.com/yndnr/docmirror/internal/config"
	"github.com/yndnr/docmirror/internal/infra/buildinfo"
)

const envKey = "env"

// LayerFlags is the config layer holding values given on the command line.
const LayerFlags = "flags"

// App creates the CLI application.
func App() *cli.App {
	return &cli.App{
		Name:    "docmirror",
		Usage:   "Mirror a remote document store into a local cache",
		Version: buildinfo.String(),
		Flags:   globalFlags(),
		Commands: []*cli.Command{
			UpdateCommand(),
			GetChangesCommand(),
			ListCommand(),
			FoldersCommand(),
			WatchCommand(),
			PathsCommand(),
			ConfigCommand(),
			VersionCommand(),
		},
		Before: before,
		After:  after,
	}
}

func globalFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "config",
			Aliases: []string{"c"},
			Usage:   "Configuration file (default: first of ./docmirror.yaml, user and system config)",
			EnvVars: []string{"DOCMIRROR_CONFIG"},
		},
		&cli.StringFlag{
			Name:  "log-level",
			Usage: "Log level: debug, info, warn, error",
		},
		&cli.StringFlag{
			Name:    "output",
			Aliases: []string{"o"},
			Usage:   "Output format: table, json, yaml",
			Value:   "table",
		},
	}
}

// command paths that run without loading the configuration.
var configless = map[string]bool{
	"":                true,
	"version":         true,
	"help":            true,
	"h":               true,
	"config":          true,
	"config help":     true,
	"config h":        true,
	"config validate": true,
}

// commandPath returns the command and, for command groups, the subcommand
// named by args.
func commandPath(args cli.Args) string {
	name := args.First()
	if name == "config" {
		return strings.TrimSpace(name + " " + args.Get(1))
	}
	return name
}

func before(c *cli.Context) error {
	format, err := output.ParseFormat(c.String("output"))
	if err != nil {
		return err
	}

	env := &Env{
		Format: format,
		errOut: c.App.ErrWriter,
	}
	c.App.Metadata[envKey] = env

	if configless[commandPath(c.Args())] {
		return nil
	}

	store, err := config.Open(c.String("config"))
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}
	if level := c.String("log-level"); level != "" {
		if err := store.PushValues(LayerFlags, map[string]any{"log.level": level}); err != nil {
			return fmt.Errorf("--log-level: %w", err)
		}
	}
	env.Store = store

	return env.setupLogger()
}

func after(c *cli.Context) error {
	if env, ok := c.App.Metadata[envKey].(*Env); ok {
		return env.Close()
	}
	return nil
}

// envFrom returns the Env set up by the Before hook.
func envFrom(c *cli.Context) (*Env, error) {
	env, ok := c.App.Metadata[envKey].(*Env)
	if !ok || env == nil {
		return nil, fmt.Errorf("command environment is not initialized")
	}
	if env.Store == nil {
		return nil, config.ErrNotLoaded
	}
	return env, nil
}

// render writes data to the command output in the selected format.
func render(c *cli.Context, data any) error {
	format := output.FormatTable
	if env, ok := c.App.Metadata[envKey].(*Env); ok {
		format = env.Format
	}
	return output.NewFormatter(format).Format(writer(c.App.Writer), data)
}

// PrintError prints an error message to w.
func PrintError(w io.Writer, format string, args ...any) {
	fmt.Fprintf(w, "error: "+format+"\n", args...)
}

// Run runs the application and returns the process exit code.
func Run(ctx context.Context, args []string) int {
	return RunApp(ctx, App(), args)
}

// RunApp runs app and returns the process exit code.
func RunApp(ctx context.Context, app *cli.App, args []string) int {
	if err := app.RunContext(ctx, args); err != nil {
		errOut := app.ErrWriter
		if errOut == nil {
			errOut = os.Stderr
		}
		PrintError(errOut, "%v", err)
		return 1
	}
	return 0
}

func writer(w io.Writer) io.Writer {
	if w == nil {
		return os.Stdout
	}
	return w
}
