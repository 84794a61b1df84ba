package cli

import (
	"strings"

	"threadshelf/internal/interpret"
	"threadshelf/internal/model"

	"github.com/spf13/cobra"
)

func newChatCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "chat <conversation-id> <message>",
		Short: "Continue a conversation with the AI model",
		Long: strings.TrimSpace(`
Sends <message> to the configured Gemini model. When the conversation is a
structured export with a message transcript, that transcript is sent as the
prior history.

Requires GEMINI_API_KEY (or gemini.apiKey in the config file).
`),
		Args: cobra.MinimumNArgs(2),
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
			message := strings.Join(args[1:], " ")

			history := []model.Message{}
			if res := interpret.Interpret(c.Content); res.Kind == interpret.KindStructured {
				history = append(history, res.Messages...)
			}

			client, err := app.newAssistant(cmd.Context(), app)
			if err != nil {
				return writeErr(cmd, err)
			}
			reply, err := client.GetChatResponse(cmd.Context(), history, message)
			if err != nil {
				return writeErr(cmd, err)
			}

			out := chatReply{
				ConversationID: c.ID,
				HistoryTurns:   len(history),
				Reply:          reply,
			}
			if m, ok := client.(interface{ Model() string }); ok {
				out.Model = m.Model()
			}
			return writeResult(cmd, app, out)
		},
	}
	return cmd
}
