package command

import (
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/docmirror/internal/cli/output"
	"github.com/yndnr/docmirror/internal/infra/buildinfo"
)

// VersionCommand returns the version command.
func VersionCommand() *cli.Command {
	return &cli.Command{
		Name:  "version",
		Usage: "Print build information",
		Action: func(c *cli.Context) error {
			if env, ok := c.App.Metadata[envKey].(*Env); ok && env.Format != output.FormatTable {
				return render(c, buildinfo.Get())
			}
			_, err := fmt.Fprintln(writer(c.App.Writer), buildinfo.String())
			return err
		},
	}
}
