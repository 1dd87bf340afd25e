package command

import (
	"sort"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/docmirror/internal/cli/output"
)

// PathsCommand returns the paths command.
func PathsCommand() *cli.Command {
	return &cli.Command{
		Name:   "paths",
		Usage:  "Print the resolved directories and files",
		Action: runPaths,
	}
}

type pathsView struct {
	Layout     string            `json:"layout" yaml:"layout"`
	ConfigFile string            `json:"config_file,omitempty" yaml:"config_file,omitempty"`
	Paths      map[string]string `json:"paths" yaml:"paths"`
}

func (v pathsView) Table() *output.Table {
	names := make([]string, 0, len(v.Paths))
	for name := range v.Paths {
		names = append(names, name)
	}
	sort.Strings(names)

	t := &output.Table{Headers: []string{"NAME", "PATH"}}
	t.AddRow("layout", v.Layout)
	for _, name := range names {
		t.AddRow(name, v.Paths[name])
	}
	return t
}

func runPaths(c *cli.Context) error {
	env, err := envFrom(c)
	if err != nil {
		return err
	}
	return render(c, pathsView{
		Layout:     env.Store.Layout(),
		ConfigFile: env.Store.ConfigFile(),
		Paths:      env.Store.Paths(),
	})
}
