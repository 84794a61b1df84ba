package cli

import (
	"fmt"
	"strings"

	"github.com/sahilm/fuzzy"
	"github.com/spf13/cobra"
)

func newThreadsCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "threads",
		Aliases: []string{"thread"},
		Short:   "Thread commands",
	}
	cmd.AddCommand(newThreadsListCmd(app))
	cmd.AddCommand(newThreadsShowCmd(app))
	cmd.AddCommand(newThreadsAddCmd(app))
	cmd.AddCommand(newThreadsRenameCmd(app))
	cmd.AddCommand(newThreadsDeleteCmd(app))
	cmd.AddCommand(newThreadsUseCmd(app))
	cmd.AddCommand(newThreadsCurrentCmd(app))
	return cmd
}

func newThreadsListCmd(app *App) *cobra.Command {
	var search string
	var useFuzzy bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List threads (most recently updated first)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := openRepo(cmd, app)
			if err != nil {
				return writeErr(cmd, err)
			}

			out := threadList{}
			if useFuzzy && strings.TrimSpace(search) != "" {
				ordered := r.ThreadsByRecency()
				titles := make([]string, len(ordered))
				for i, t := range ordered {
					titles[i] = t.Title
				}
				for _, m := range fuzzy.Find(strings.TrimSpace(search), titles) {
					v := newThreadView(r, ordered[m.Index])
					score := m.Score
					v.Score = &score
					out = append(out, v)
				}
			} else {
				for _, t := range r.SearchThreads(search) {
					out = append(out, newThreadView(r, t))
				}
			}
			return writeResult(cmd, app, out)
		},
	}

	cmd.Flags().StringVar(&search, "search", "", "Filter by title (case-insensitive substring)")
	cmd.Flags().BoolVar(&useFuzzy, "fuzzy", false, "Fuzzy-match --search and order by match score")
	return cmd
}

func newThreadsShowCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show <thread-id>",
		Short: "Show a thread and its conversations",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := openRepo(cmd, app)
			if err != nil {
				return writeErr(cmd, err)
			}
			id := strings.TrimSpace(args[0])
			t, ok := r.Thread(id)
			if !ok {
				return writeErr(cmd, errNotFound("thread", id))
			}
			convs := convList{}
			for _, c := range r.ConversationsForThread(id) {
				convs = append(convs, newConvView(c))
			}
			return writeResult(cmd, app, threadDetail{Thread: newThreadView(r, t), Conversations: convs})
		},
	}
	return cmd
}

func newThreadsAddCmd(app *App) *cobra.Command {
	var noUse bool

	cmd := &cobra.Command{
		Use:   "add <title>",
		Short: "Create a thread and make it the current thread",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := openRepo(cmd, app)
			if err != nil {
				return writeErr(cmd, err)
			}
			t, err := r.AddThread(cmd.Context(), strings.Join(args, " "))
			if err != nil {
				return writeErr(cmd, err)
			}
			if !noUse {
				r.SelectAdded(cmd.Context(), t)
			}
			return writeResult(cmd, app, newThreadView(r, t),
				"threadshelf convs upload <path> --thread "+t.ID,
			)
		},
	}

	cmd.Flags().BoolVar(&noUse, "no-use", false, "Keep the current thread selection")
	return cmd
}

func newThreadsRenameCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rename <thread-id> <title>",
		Short: "Rename a thread",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := openRepo(cmd, app)
			if err != nil {
				return writeErr(cmd, err)
			}
			id := strings.TrimSpace(args[0])
			if _, ok := r.Thread(id); !ok {
				return writeErr(cmd, errNotFound("thread", id))
			}
			if err := r.RenameThread(cmd.Context(), id, strings.Join(args[1:], " ")); err != nil {
				return writeErr(cmd, err)
			}
			t, _ := r.Thread(id)
			return writeResult(cmd, app, newThreadView(r, t))
		},
	}
	return cmd
}

func newThreadsDeleteCmd(app *App) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "delete <thread-id>",
		Short: "Delete a thread and every conversation in it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := openRepo(cmd, app)
			if err != nil {
				return writeErr(cmd, err)
			}
			id := strings.TrimSpace(args[0])
			t, ok := r.Thread(id)
			if !ok {
				return writeErr(cmd, errNotFound("thread", id))
			}
			n := len(r.ConversationsForThread(id))

			ok, err = confirm(cmd, app, "Delete thread \""+t.Title+"\" and its "+pluralConvs(n)+"?", yes)
			if err != nil {
				return writeErr(cmd, err)
			}
			if !ok {
				return writeResult(cmd, app, deleteResult{ID: id, Deleted: false},
					"re-run with --yes to delete without a prompt",
				)
			}
			r.DeleteThread(cmd.Context(), id)
			return writeResult(cmd, app, deleteResult{ID: id, Deleted: true, ConversationsRemoved: n, Active: r.Active()})
		},
	}

	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Do not prompt for confirmation")
	return cmd
}

func newThreadsUseCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "use <thread-id>",
		Short: "Set the current thread",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := openRepo(cmd, app)
			if err != nil {
				return writeErr(cmd, err)
			}
			id := strings.TrimSpace(args[0])
			if !r.Pick(cmd.Context(), id) {
				return writeErr(cmd, errNotFound("thread", id))
			}
			t, _ := r.Thread(id)
			return writeResult(cmd, app, newThreadView(r, t))
		},
	}
	return cmd
}

func newThreadsCurrentCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "current",
		Short: "Show the current thread",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := openRepo(cmd, app)
			if err != nil {
				return writeErr(cmd, err)
			}
			t, ok := r.Thread(r.Active())
			if !ok {
				return writeOut(cmd, app, map[string]any{
					"data":   nil,
					"_hints": []string{"threadshelf threads add <title>"},
				})
			}
			return writeResult(cmd, app, newThreadView(r, t))
		},
	}
	return cmd
}

func pluralConvs(n int) string {
	if n == 1 {
		return "1 conversation"
	}
	return fmt.Sprintf("%d conversations", n)
}
