package cli

import (
	"strings"

	"threadshelf/internal/export"

	"github.com/spf13/cobra"
)

func newExportCmd(app *App) *cobra.Command {
	var out string
	var overwrite bool

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write every thread and conversation to a ZIP archive",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := openRepo(cmd, app)
			if err != nil {
				return writeErr(cmd, err)
			}
			now := app.clock.Now()
			path := strings.TrimSpace(out)
			if path == "" {
				path = export.DefaultFileName(now.Local())
			}

			res, err := export.WriteFile(path, r.Snapshot(), export.WriteOptions{
				Overwrite: overwrite,
				Now:       now,
			})
			if err != nil {
				return writeErr(cmd, err)
			}
			app.log.Info("archive written", "path", res.Path, "entries", len(res.Entries))
			return writeResult(cmd, app, res)
		},
	}

	cmd.Flags().StringVar(&out, "out", "", "Output path (default: ./threadshelf-export-<timestamp>.zip)")
	cmd.Flags().BoolVar(&overwrite, "overwrite", false, "Replace an existing file at --out")
	return cmd
}
