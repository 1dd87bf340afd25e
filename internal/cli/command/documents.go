package command

import (
	"errors"
	"fmt"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/docmirror/internal/core/domain"
	"github.com/yndnr/docmirror/internal/core/service"
)

// ListCommand returns the list command.
func ListCommand() *cli.Command {
	return &cli.Command{
		Name:    "list",
		Aliases: []string{"ls"},
		Usage:   "List the documents in the local catalog",
		Action:  runList,
	}
}

type documentRow struct {
	RemoteID    string    `json:"remote_id" yaml:"remote_id"`
	Title       string    `json:"title" yaml:"title"`
	Version     int64     `json:"version" yaml:"version"`
	Folder      string    `json:"folder,omitempty" yaml:"folder,omitempty"`
	LastUpdated time.Time `json:"last_updated" yaml:"last_updated"`
}

func runList(c *cli.Context) error {
	env, err := envFrom(c)
	if err != nil {
		return err
	}
	cat, err := env.Catalog()
	if err != nil {
		return err
	}
	docs := service.NewDocumentCatalog(cat, service.NewFolderCatalog(cat))

	list, err := docs.List(c.Context)
	if err != nil {
		return err
	}

	rows := make([]documentRow, 0, len(list))
	for _, d := range list {
		row := documentRow{
			RemoteID:    d.RemoteID,
			Title:       d.Title,
			Version:     d.Version,
			LastUpdated: d.LastUpdated,
		}
		folder, err := docs.FolderOf(c.Context, d)
		if err != nil {
			return err
		}
		if folder != nil {
			row.Folder = folder.Name
		}
		rows = append(rows, row)
	}
	return render(c, rows)
}

// FoldersCommand returns the folders command.
func FoldersCommand() *cli.Command {
	return &cli.Command{
		Name:   "folders",
		Usage:  "List the folders in the local catalog",
		Action: runFolders,
	}
}

type folderRow struct {
	ID        string `json:"id" yaml:"id"`
	Name      string `json:"name" yaml:"name"`
	Documents int    `json:"documents" yaml:"documents"`
}

func runFolders(c *cli.Context) error {
	env, err := envFrom(c)
	if err != nil {
		return err
	}
	cat, err := env.Catalog()
	if err != nil {
		return err
	}
	folders := service.NewFolderCatalog(cat)
	docs := service.NewDocumentCatalog(cat, folders)

	list, err := folders.List(c.Context)
	if err != nil {
		return err
	}
	all, err := docs.List(c.Context)
	if err != nil {
		return err
	}
	perFolder := make(map[string]int)
	for _, d := range all {
		if d.FolderID != "" {
			perFolder[d.FolderID]++
		}
	}

	rows := make([]folderRow, 0, len(list))
	for _, f := range list {
		rows = append(rows, folderRow{ID: f.ID, Name: f.Name, Documents: perFolder[f.ID]})
	}
	return render(c, rows)
}

// GetChangesCommand returns the get-changes command.
func GetChangesCommand() *cli.Command {
	return &cli.Command{
		Name:      "get-changes",
		Usage:     "Download one catalogued document again and apply its changes",
		ArgsUsage: "ID",
		Action:    runGetChanges,
	}
}

func runGetChanges(c *cli.Context) error {
	id := c.Args().First()
	if id == "" {
		return fmt.Errorf("document id is required")
	}

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

	doc, err := svc.Docs.FindByRemoteID(c.Context, id)
	if errors.Is(err, domain.ErrNotFound) {
		return fmt.Errorf("document %s is not in the catalog, run update first: %w", id, err)
	}
	if err != nil {
		return err
	}

	changed, err := svc.Engine.GetChanges(c.Context, doc)
	if err != nil {
		return err
	}

	outcome := service.OutcomeUnchanged
	if changed {
		outcome = service.OutcomeUpdated
	}
	if err := render(c, []service.DocumentResult{{
		RemoteID: doc.RemoteID,
		Title:    doc.Title,
		Version:  doc.Version,
		Outcome:  outcome,
	}}); err != nil {
		return err
	}
	return env.WriteMetrics()
}
