package cli

import (
	"strings"

	"github.com/promptlab/modelrouter/internal/infrastructure/server"
	"github.com/spf13/cobra"
)

var (
	chatConversation string
	chatUser         string
	chatRemember     bool
)

var chatCmd = &cobra.Command{
	Use:   "chat <message>",
	Short: "Chat with the general backend, optionally inside a stored conversation",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		message := strings.Join(args, " ")
		remember := chatRemember || chatConversation != ""
		return withApp(cmd, remember, func(app *server.App) error {
			if remember {
				reply, err := app.Memory.Chat(cmd.Context(), chatConversation, chatUser, message)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), reply)
			}
			reply, err := app.Chat.Basic(cmd.Context(), message)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), reply)
		})
	},
}

var similarityCmd = &cobra.Command{
	Use:   "similarity <text1> <text2>",
	Short: "Embed two texts and print their cosine similarity",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, false, func(app *server.App) error {
			res, err := app.Embed.Similarity(cmd.Context(), args[0], args[1])
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), res)
		})
	},
}

func init() {
	rootCmd.AddCommand(chatCmd, similarityCmd)

	chatCmd.Flags().StringVarP(&chatConversation, "conversation", "c", "", "Continue a stored conversation by id")
	chatCmd.Flags().StringVarP(&chatUser, "user", "u", "", "User id recorded on new conversations")
	chatCmd.Flags().BoolVar(&chatRemember, "remember", false, "Start a new stored conversation")
}
