package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"threadshelf/internal/interpret"
	"threadshelf/internal/repo"
	"threadshelf/internal/tui"

	"github.com/spf13/cobra"
	"golang.org/x/term"
)

func newConvsCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "convs",
		Aliases: []string{"conv", "conversations"},
		Short:   "Conversation commands",
	}
	cmd.AddCommand(newConvsListCmd(app))
	cmd.AddCommand(newConvsUploadCmd(app))
	cmd.AddCommand(newConvsShowCmd(app))
	cmd.AddCommand(newConvsDeleteCmd(app))
	cmd.AddCommand(newConvsNoteCmd(app))
	return cmd
}

// targetThread resolves --thread, falling back to the current thread.
func targetThread(app *App, flagValue string) (string, error) {
	id := strings.TrimSpace(flagValue)
	if id == "" {
		id = app.repo.Active()
	}
	if id == "" {
		return "", errors.New("no current thread; pass --thread or run `threadshelf threads use <thread-id>`")
	}
	if _, ok := app.repo.Thread(id); !ok {
		return "", errNotFound("thread", id)
	}
	return id, nil
}

func newConvsListCmd(app *App) *cobra.Command {
	var threadID string
	var all bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List conversations in a thread (newest upload first)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := openRepo(cmd, app)
			if err != nil {
				return writeErr(cmd, err)
			}
			out := convList{}
			if all {
				for _, c := range r.Conversations() {
					out = append(out, newConvView(c))
				}
				return writeResult(cmd, app, out)
			}
			id, err := targetThread(app, threadID)
			if err != nil {
				return writeErr(cmd, err)
			}
			for _, c := range r.ConversationsForThread(id) {
				out = append(out, newConvView(c))
			}
			return writeResult(cmd, app, out)
		},
	}

	cmd.Flags().StringVar(&threadID, "thread", "", "Thread id (default: current thread)")
	cmd.Flags().BoolVar(&all, "all", false, "List every conversation in upload order")
	return cmd
}

func newConvsUploadCmd(app *App) *cobra.Command {
	var threadID string

	cmd := &cobra.Command{
		Use:   "upload <path>",
		Short: "Attach a .txt or .json export to a thread",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := strings.TrimSpace(args[0])
			if err := repo.CheckUploadPath(path); err != nil {
				return writeErr(cmd, err)
			}
			r, err := openRepo(cmd, app)
			if err != nil {
				return writeErr(cmd, err)
			}
			id, err := targetThread(app, threadID)
			if err != nil {
				return writeErr(cmd, err)
			}
			b, err := os.ReadFile(path)
			if err != nil {
				return writeErr(cmd, err)
			}
			c, err := r.AttachConversation(cmd.Context(), id, repo.UploadTitle(path), string(b))
			if err != nil {
				return writeErr(cmd, err)
			}
			return writeResult(cmd, app, newConvView(c),
				"threadshelf convs show "+c.ID,
			)
		},
	}

	cmd.Flags().StringVar(&threadID, "thread", "", "Thread id (default: current thread)")
	return cmd
}

func newConvsShowCmd(app *App) *cobra.Command {
	var sectionFlag string
	var render bool

	cmd := &cobra.Command{
		Use:   "show <conversation-id>",
		Short: "Show a conversation, interpreted when it is a structured export",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := openRepo(cmd, app)
			if err != nil {
				return writeErr(cmd, err)
			}
			id := strings.TrimSpace(args[0])
			c, ok := r.Conversation(id)
			if !ok {
				return writeErr(cmd, errNotFound("conversation", id))
			}
			res := interpret.Interpret(c.Content)

			section, _ := res.DefaultSection()
			if strings.TrimSpace(sectionFlag) != "" {
				s, ok := interpret.ParseSection(sectionFlag)
				if !ok {
					return writeErr(cmd, fmt.Errorf("unknown section: %q (expected characters|inventory|crafting|messages)", sectionFlag))
				}
				if !res.HasSection(s) {
					return writeErr(cmd, fmt.Errorf("section %s is empty or absent in %s", s, id))
				}
				section = s
			}

			detail := newConvDetail(c, res, section)
			if render {
				return writeRendered(cmd, app, detail)
			}
			return writeResult(cmd, app, detail)
		},
	}

	cmd.Flags().StringVar(&sectionFlag, "section", "", "Section to show (characters|inventory|crafting|messages)")
	cmd.Flags().BoolVar(&render, "render", false, "Render as styled Markdown instead of JSON")
	return cmd
}

func writeRendered(cmd *cobra.Command, app *App, d convDetail) error {
	width := 80
	theme := app.settings.Theme
	if f, ok := cmd.OutOrStdout().(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		if w, _, err := term.GetSize(int(f.Fd())); err == nil && w > 0 {
			width = w
		}
	} else {
		theme = "notty"
	}

	md := "# " + d.Conversation.Title + "\n\n" + d.Markdown
	if d.Conversation.Modifications != "" {
		md += "\n## Note\n\n" + d.Conversation.Modifications + "\n"
	}
	_, err := io.WriteString(cmd.OutOrStdout(), tui.RenderMarkdown(md, width, theme)+"\n")
	return err
}

func newConvsDeleteCmd(app *App) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "delete <conversation-id>",
		Short: "Delete a conversation",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := openRepo(cmd, app)
			if err != nil {
				return writeErr(cmd, err)
			}
			id := strings.TrimSpace(args[0])
			c, ok := r.Conversation(id)
			if !ok {
				return writeErr(cmd, errNotFound("conversation", id))
			}
			ok, err = confirm(cmd, app, "Delete conversation \""+c.Title+"\"?", yes)
			if err != nil {
				return writeErr(cmd, err)
			}
			if !ok {
				return writeResult(cmd, app, deleteResult{ID: id, Deleted: false},
					"re-run with --yes to delete without a prompt",
				)
			}
			r.DeleteConversation(cmd.Context(), id)
			return writeResult(cmd, app, deleteResult{ID: id, Deleted: true})
		},
	}

	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Do not prompt for confirmation")
	return cmd
}

func newConvsNoteCmd(app *App) *cobra.Command {
	var text string
	var file string

	cmd := &cobra.Command{
		Use:   "note <conversation-id>",
		Short: "Set the modification note on a conversation (empty --text clears it)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := openRepo(cmd, app)
			if err != nil {
				return writeErr(cmd, err)
			}
			id := strings.TrimSpace(args[0])

			note := text
			if cmd.Flags().Changed("file") {
				var b []byte
				if file == "-" {
					b, err = io.ReadAll(cmd.InOrStdin())
				} else {
					b, err = os.ReadFile(file)
				}
				if err != nil {
					return writeErr(cmd, err)
				}
				note = string(b)
			}

			if err := r.SaveModification(cmd.Context(), id, note); err != nil {
				return writeErr(cmd, err)
			}
			c, _ := r.Conversation(id)
			return writeResult(cmd, app, map[string]any{
				"id":            c.ID,
				"modifications": c.Modifications,
			})
		},
	}

	cmd.Flags().StringVar(&text, "text", "", "Note text")
	cmd.Flags().StringVar(&file, "file", "", "Read the note from a file (- for stdin)")
	cmd.MarkFlagsMutuallyExclusive("text", "file")
	cmd.MarkFlagsOneRequired("text", "file")
	return cmd
}
