package command

import (
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/docmirror/internal/cli/output"
	"github.com/yndnr/docmirror/internal/config"
)

// ConfigCommand returns the config subcommand group.
func ConfigCommand() *cli.Command {
	return &cli.Command{
		Name:  "config",
		Usage: "Inspect the configuration",
		Subcommands: []*cli.Command{
			{
				Name:   "show",
				Usage:  "Show the merged configuration with secrets masked",
				Action: configShow,
			},
			{
				Name:   "layers",
				Usage:  "List the configuration layers, lowest first",
				Action: configLayers,
			},
			{
				Name:      "validate",
				Usage:     "Check that a configuration file loads",
				ArgsUsage: "FILE",
				Action:    configValidate,
			},
		},
	}
}

func configShow(c *cli.Context) error {
	env, err := envFrom(c)
	if err != nil {
		return err
	}
	cfg := config.Sanitize(env.Store.Config())

	// A nested struct has no table form.
	format := env.Format
	if format == output.FormatTable {
		format = output.FormatYAML
	}
	return output.NewFormatter(format).Format(writer(c.App.Writer), cfg)
}

type layerRow struct {
	Position int    `json:"position" yaml:"position"`
	Name     string `json:"name" yaml:"name"`
}

func configLayers(c *cli.Context) error {
	env, err := envFrom(c)
	if err != nil {
		return err
	}
	var rows []layerRow
	for i, name := range env.Store.Layers() {
		rows = append(rows, layerRow{Position: i, Name: name})
	}
	return render(c, rows)
}

func configValidate(c *cli.Context) error {
	path := c.Args().First()
	if path == "" {
		return fmt.Errorf("configuration file is required")
	}

	store, err := config.New(config.WithoutCreatePaths(), config.WithoutEnv())
	if err != nil {
		return err
	}
	if err := store.Load(path); err != nil {
		return err
	}
	fmt.Fprintf(writer(c.App.Writer), "%s: ok (layout %s)\n", path, store.Layout())
	return nil
}
